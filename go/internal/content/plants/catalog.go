package plants

import "github.com/floraclash/floraclash/go/internal/models"

// Catalog returns the built-in plant identification bank. Each entry keys
// the correct option so the resolver can score submissions; clients only
// ever see prompt, image and options.
func Catalog() []models.Question {
	return []models.Question{
		{
			ID:       "monstera-deliciosa",
			Prompt:   "Which plant grows these fenestrated leaves?",
			ImageURL: "https://img.floraclash.io/plants/monstera-deliciosa.jpg",
			Options:  []string{"Monstera deliciosa", "Philodendron hederaceum", "Epipremnum aureum", "Alocasia amazonica"},
			Answer:   "Monstera deliciosa",
		},
		{
			ID:       "ficus-lyrata",
			Prompt:   "Identify the plant with these violin-shaped leaves.",
			ImageURL: "https://img.floraclash.io/plants/ficus-lyrata.jpg",
			Options:  []string{"Ficus elastica", "Ficus lyrata", "Ficus benjamina", "Schefflera arboricola"},
			Answer:   "Ficus lyrata",
		},
		{
			ID:       "sansevieria",
			Prompt:   "Which species are these upright sword-like leaves from?",
			ImageURL: "https://img.floraclash.io/plants/sansevieria.jpg",
			Options:  []string{"Aloe vera", "Agave americana", "Dracaena trifasciata", "Yucca gigantea"},
			Answer:   "Dracaena trifasciata",
		},
		{
			ID:       "calathea-orbifolia",
			Prompt:   "Name the plant with these striped round leaves.",
			ImageURL: "https://img.floraclash.io/plants/calathea-orbifolia.jpg",
			Options:  []string{"Calathea orbifolia", "Maranta leuconeura", "Ctenanthe setosa", "Stromanthe sanguinea"},
			Answer:   "Calathea orbifolia",
		},
		{
			ID:       "pilea-peperomioides",
			Prompt:   "Which plant is known for these coin-shaped leaves?",
			ImageURL: "https://img.floraclash.io/plants/pilea-peperomioides.jpg",
			Options:  []string{"Peperomia polybotrya", "Pilea peperomioides", "Hydrocotyle vulgaris", "Nasturtium officinale"},
			Answer:   "Pilea peperomioides",
		},
		{
			ID:       "echeveria-elegans",
			Prompt:   "Identify this rosette-forming succulent.",
			ImageURL: "https://img.floraclash.io/plants/echeveria-elegans.jpg",
			Options:  []string{"Sempervivum tectorum", "Echeveria elegans", "Graptopetalum paraguayense", "Aeonium arboreum"},
			Answer:   "Echeveria elegans",
		},
		{
			ID:       "nepenthes",
			Prompt:   "Which carnivorous plant grows these hanging pitchers?",
			ImageURL: "https://img.floraclash.io/plants/nepenthes.jpg",
			Options:  []string{"Sarracenia purpurea", "Dionaea muscipula", "Nepenthes alata", "Drosera capensis"},
			Answer:   "Nepenthes alata",
		},
		{
			ID:       "zamioculcas",
			Prompt:   "Name the plant with these glossy pinnate stems.",
			ImageURL: "https://img.floraclash.io/plants/zamioculcas.jpg",
			Options:  []string{"Zamioculcas zamiifolia", "Cycas revoluta", "Chamaedorea elegans", "Dypsis lutescens"},
			Answer:   "Zamioculcas zamiifolia",
		},
		{
			ID:       "tradescantia-zebrina",
			Prompt:   "Which trailing plant shows these purple-striped leaves?",
			ImageURL: "https://img.floraclash.io/plants/tradescantia-zebrina.jpg",
			Options:  []string{"Tradescantia zebrina", "Callisia repens", "Oxalis triangularis", "Gynura aurantiaca"},
			Answer:   "Tradescantia zebrina",
		},
		{
			ID:       "stringofpearls",
			Prompt:   "Identify the succulent with these bead-like leaves.",
			ImageURL: "https://img.floraclash.io/plants/string-of-pearls.jpg",
			Options:  []string{"Ceropegia woodii", "Curio rowleyanus", "Sedum morganianum", "Crassula perforata"},
			Answer:   "Curio rowleyanus",
		},
		{
			ID:       "oxalis-triangularis",
			Prompt:   "Which plant folds these purple triangular leaves at night?",
			ImageURL: "https://img.floraclash.io/plants/oxalis-triangularis.jpg",
			Options:  []string{"Oxalis triangularis", "Marsilea quadrifolia", "Trifolium repens", "Begonia rex"},
			Answer:   "Oxalis triangularis",
		},
		{
			ID:       "alocasia-polly",
			Prompt:   "Name the plant with these arrow-shaped veined leaves.",
			ImageURL: "https://img.floraclash.io/plants/alocasia-polly.jpg",
			Options:  []string{"Colocasia esculenta", "Alocasia amazonica", "Caladium bicolor", "Xanthosoma sagittifolium"},
			Answer:   "Alocasia amazonica",
		},
		{
			ID:       "maidenhair-fern",
			Prompt:   "Which fern grows these delicate fan-shaped fronds?",
			ImageURL: "https://img.floraclash.io/plants/maidenhair-fern.jpg",
			Options:  []string{"Nephrolepis exaltata", "Asplenium nidus", "Adiantum raddianum", "Platycerium bifurcatum"},
			Answer:   "Adiantum raddianum",
		},
		{
			ID:       "hoya-kerrii",
			Prompt:   "Identify the plant with these heart-shaped succulent leaves.",
			ImageURL: "https://img.floraclash.io/plants/hoya-kerrii.jpg",
			Options:  []string{"Hoya kerrii", "Anthurium andraeanum", "Philodendron gloriosum", "Peperomia scandens"},
			Answer:   "Hoya kerrii",
		},
	}
}
