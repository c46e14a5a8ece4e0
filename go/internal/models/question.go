package models

// Question is one round's content payload, supplied by a content provider.
// The core treats prompt, image and options as opaque; only the answer key
// is consulted when scoring a submission. The key is never serialized.
type Question struct {
	ID       string   `json:"id"`
	Prompt   string   `json:"prompt"`
	ImageURL string   `json:"image_url,omitempty"`
	Options  []string `json:"options"`
	Answer   string   `json:"-"`
}

// IsCorrect checks a raw submitted answer against the key.
func (q *Question) IsCorrect(answer string) bool {
	return q.Answer != "" && answer == q.Answer
}
