package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/floraclash/floraclash/go/internal/match"
	"github.com/floraclash/floraclash/go/internal/matchmaking"
	"github.com/floraclash/floraclash/go/internal/rating"
)

// Config is the game tuning file. Unset fields fall back to each
// package's built-in defaults, so an empty file runs the standard
// ruleset.
type Config struct {
	Match struct {
		MaxRounds         int `yaml:"max_rounds"`
		RoundSeconds      int `yaml:"round_seconds"`
		InterRoundSeconds int `yaml:"inter_round_seconds"`
		PointsPerRound    int `yaml:"points_per_round"`
		ReconnectSeconds  int `yaml:"reconnect_seconds"`
	} `yaml:"match"`

	Matchmaking struct {
		matchmaking.SelectorConfig `yaml:",inline"`

		TicketTTLMinutes int `yaml:"ticket_ttl_minutes"`
		PollSeconds      int `yaml:"poll_seconds"`
		ClaimRetries     int `yaml:"claim_retries"`
	} `yaml:"matchmaking"`

	Rating rating.Config `yaml:"rating"`

	Content struct {
		Provider string `yaml:"provider"`
	} `yaml:"content"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

func (c *Config) matchConfig() match.Config {
	return match.Config{
		MaxRounds:       c.Match.MaxRounds,
		RoundDuration:   time.Duration(c.Match.RoundSeconds) * time.Second,
		InterRoundDelay: time.Duration(c.Match.InterRoundSeconds) * time.Second,
		PointsPerRound:  c.Match.PointsPerRound,
		ReconnectWindow: time.Duration(c.Match.ReconnectSeconds) * time.Second,
	}
}

func (c *Config) ticketTTL() time.Duration {
	if c.Matchmaking.TicketTTLMinutes <= 0 {
		return matchmaking.DefaultTicketTTL
	}
	return time.Duration(c.Matchmaking.TicketTTLMinutes) * time.Minute
}

func (c *Config) pollInterval() time.Duration {
	return time.Duration(c.Matchmaking.PollSeconds) * time.Second
}

func (c *Config) providerKey() string {
	if c.Content.Provider == "" {
		return "plants"
	}
	return c.Content.Provider
}
