package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sendou-ink/sendou.ink-sub003/internal/leaderboard"
	"github.com/sendou-ink/sendou.ink-sub003/internal/match"
	"github.com/sendou-ink/sendou.ink-sub003/internal/rating"
	"github.com/sendou-ink/sendou.ink-sub003/internal/season"
)

type Config struct {
	Season      season.Schedule    `yaml:"season"`
	MapPool     match.MapPool      `yaml:"map_pool"`
	Rating      rating.Config      `yaml:"rating"`
	Leaderboard leaderboard.Config `yaml:"leaderboard"`
}

func defaultConfig() *Config {
	return &Config{
		Season:      season.DefaultSchedule(),
		MapPool:     match.DefaultMapPool(),
		Rating:      rating.DefaultConfig(),
		Leaderboard: leaderboard.DefaultConfig(),
	}
}

// loadConfig reads the yaml config at path; a missing file means defaults.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
