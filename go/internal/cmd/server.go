package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/floraclash/floraclash/go/internal/economy"
	"github.com/floraclash/floraclash/go/internal/match"
	"github.com/floraclash/floraclash/go/internal/models"
	"github.com/floraclash/floraclash/go/internal/players"
)

func setupServer(services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	// Register routes
	registerRoutes(mux, services)

	// Add health check endpoint
	setupHealthCheck(mux)

	// Wrap with CORS
	handler := c.Handler(mux)

	// Setup HTTP/2 server
	return &http.Server{
		Addr:    fmt.Sprintf(":%s", getEnv("PORT", "8080")),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

func registerRoutes(mux *http.ServeMux, services *Services) {
	// WebSocket gameplay endpoint
	services.Gateway.RegisterRoutes(mux)

	// REST surface for profiles, history and standings
	mux.HandleFunc("POST /api/players", handleCreatePlayer(services))
	mux.HandleFunc("GET /api/players/{id}", handleGetPlayer(services))
	mux.HandleFunc("GET /api/players/{id}/matches", handleListPlayerMatches(services))
	mux.HandleFunc("GET /api/players/{id}/wallet", handleGetWallet(services))
	mux.HandleFunc("GET /api/players/{id}/transactions", handleListTransactions(services))
	mux.HandleFunc("GET /api/matches/{id}", handleGetMatch(services))
	mux.HandleFunc("GET /api/leaderboard", handleLeaderboard(services))
	mux.HandleFunc("GET /api/stats", handleStats(services))
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Error: msg})
}

func pathID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}

func queryLimit(r *http.Request, fallback int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func handleCreatePlayer(services *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req players.CreatePlayerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		player, err := services.Players.CreatePlayer(r.Context(), req)
		switch {
		case errors.Is(err, players.ErrInvalidUsername):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, players.ErrUsernameTaken):
			writeError(w, http.StatusConflict, err.Error())
		case err != nil:
			writeError(w, http.StatusInternalServerError, "failed to create player")
		default:
			writeJSON(w, http.StatusCreated, player)
		}
	}
}

type playerResponse struct {
	models.Player
	Tier string `json:"tier"`
	Rank int64  `json:"rank,omitempty"`
}

func handleGetPlayer(services *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid player id")
			return
		}

		player, err := services.Players.GetPlayer(r.Context(), id)
		if errors.Is(err, players.ErrPlayerNotFound) {
			writeError(w, http.StatusNotFound, "player not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load player")
			return
		}

		resp := playerResponse{
			Player: *player,
			Tier:   services.Players.Tier(player.Rating),
		}
		if rank, err := services.Players.Rank(r.Context(), id); err == nil {
			resp.Rank = rank
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleListPlayerMatches(services *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid player id")
			return
		}

		records, err := services.Records.ListPlayerRecords(r.Context(), id, queryLimit(r, 20))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load match history")
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func handleGetWallet(services *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid player id")
			return
		}

		wallet, err := services.Economy.Wallet(r.Context(), id)
		if errors.Is(err, economy.ErrWalletNotFound) {
			writeError(w, http.StatusNotFound, "wallet not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load wallet")
			return
		}
		writeJSON(w, http.StatusOK, wallet)
	}
}

func handleListTransactions(services *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid player id")
			return
		}

		transactions, err := services.Economy.Transactions(r.Context(), id, int32(queryLimit(r, 20)))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load transactions")
			return
		}
		writeJSON(w, http.StatusOK, transactions)
	}
}

type liveMatchResponse struct {
	Live     bool                `json:"live"`
	Session  models.MatchSession `json:"session"`
	Question *models.Question    `json:"question,omitempty"`
}

// handleGetMatch serves a running match from its coordinator and a
// finished one from the persisted record.
func handleGetMatch(services *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid match id")
			return
		}

		if snap, err := services.Match.LiveSnapshot(r.Context(), id); err == nil {
			writeJSON(w, http.StatusOK, liveMatchResponse{
				Live:     true,
				Session:  snap.Session,
				Question: snap.Question,
			})
			return
		}

		record, err := services.Records.GetMatchRecord(r.Context(), id)
		if errors.Is(err, match.ErrMatchNotFound) {
			writeError(w, http.StatusNotFound, "match not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load match")
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

func handleLeaderboard(services *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := services.Players.Leaderboard(r.Context(), int64(queryLimit(r, 10)))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load leaderboard")
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

type statsResponse struct {
	Connections int `json:"connections"`
	LiveMatches int `json:"live_matches"`
	QueueSize   int `json:"queue_size"`
}

func handleStats(services *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		queueSize, err := services.Pool.Size(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("failed to read queue size")
			queueSize = -1
		}
		writeJSON(w, http.StatusOK, statsResponse{
			Connections: services.Gateway.Manager().Count(),
			LiveMatches: services.Match.Live(),
			QueueSize:   queueSize,
		})
	}
}
