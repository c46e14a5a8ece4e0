package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floraclash/floraclash/go/internal/dbconfig"
	"github.com/floraclash/floraclash/go/internal/economy"
	"github.com/floraclash/floraclash/go/internal/players"
)

// SeedPlayer is one row of the seed file. ID, rating and balance are
// optional; unset values get the standard new-player treatment.
type SeedPlayer struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Rating   int       `json:"rating"`
	Balance  int64     `json:"balance"`
}

func main() {
	ctx := context.Background()

	path := "seed_players.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// 1) Load the seed file
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		os.Exit(1)
	}
	var seeds []SeedPlayer
	if err := json.Unmarshal(data, &seeds); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal seed players: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect to DB
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Seed players
	total, inserted, skipped, errs := len(seeds), 0, 0, 0
	for _, p := range seeds {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.Rating <= 0 {
			p.Rating = players.DefaultStartingRating
		}
		tag, err := pool.Exec(ctx, `
            INSERT INTO players (id, username, rating)
            VALUES ($1,$2,$3)
            ON CONFLICT (username) DO NOTHING
        `, p.ID, p.Username, p.Rating)
		if err != nil {
			errs++
			continue
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}
	fmt.Printf(
		"Players seed: total=%d inserted=%d skipped=%d errors=%d\n",
		total, inserted, skipped, errs,
	)

	// 4) Seed wallets, keyed by username so reruns hit the existing rows
	total, inserted, skipped, errs = len(seeds), 0, 0, 0
	for _, p := range seeds {
		if p.Balance <= 0 {
			p.Balance = economy.SeedGrant
		}
		tag, err := pool.Exec(ctx, `
            INSERT INTO wallets (player_id, balance, updated_at)
            SELECT id, $2, now() FROM players WHERE username = $1
            ON CONFLICT (player_id) DO NOTHING
        `, p.Username, p.Balance)
		if err != nil {
			errs++
			continue
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}
	fmt.Printf(
		"Wallets seed: total=%d inserted=%d skipped=%d errors=%d\n",
		total, inserted, skipped, errs,
	)
}
