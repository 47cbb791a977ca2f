package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Events   EventsConfig   `yaml:"events"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Rescorer RescorerConfig `yaml:"rescorer"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type EventsConfig struct {
	URL string `yaml:"url"`
}

type TrackerConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type ScoringConfig struct {
	// TierHigh and TierMedium are the lower-inclusive composite-score
	// cutoffs for the priority tiers.
	TierHigh   float64 `yaml:"tier_high"`
	TierMedium float64 `yaml:"tier_medium"`
	// ConsistencyThreshold is the CR acceptance bound for derived weights.
	ConsistencyThreshold float64 `yaml:"consistency_threshold"`
	// RandomIndex extends the built-in Saaty random-index table for
	// matrices with more than 10 criteria.
	RandomIndex map[int]float64 `yaml:"random_index"`
}

type RescorerConfig struct {
	Enabled        bool `yaml:"enabled"`
	TickIntervalMs int  `yaml:"tick_interval_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) RescoreTickInterval() time.Duration {
	return time.Duration(c.Rescorer.TickIntervalMs) * time.Millisecond
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		Events: EventsConfig{
			URL: "nats://localhost:4222",
		},
		Tracker: TrackerConfig{
			URL: "http://localhost:8100",
		},
		Scoring: ScoringConfig{
			TierHigh:             0.7,
			TierMedium:           0.4,
			ConsistencyThreshold: 0.1,
		},
		Rescorer: RescorerConfig{
			Enabled:        true,
			TickIntervalMs: 15000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.Scoring.TierMedium < 0 || cfg.Scoring.TierHigh > 1 || cfg.Scoring.TierMedium > cfg.Scoring.TierHigh {
		return nil, fmt.Errorf("tier thresholds must satisfy 0 <= medium <= high <= 1")
	}
	if cfg.Scoring.ConsistencyThreshold <= 0 {
		return nil, fmt.Errorf("consistency threshold must be positive")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("QVF_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("QVF_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("QVF_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("QVF_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("QVF_EVENTS_URL"); v != "" {
		cfg.Events.URL = v
	}
	if v := os.Getenv("QVF_TRACKER_URL"); v != "" {
		cfg.Tracker.URL = v
	}
	if v := os.Getenv("QVF_TRACKER_TOKEN"); v != "" {
		cfg.Tracker.Token = v
	}
	if v := os.Getenv("QVF_CONSISTENCY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scoring.ConsistencyThreshold = f
		}
	}
	if v := os.Getenv("QVF_RESCORER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Rescorer.Enabled = b
		}
	}
	if v := os.Getenv("QVF_RESCORE_TICK_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Rescorer.TickIntervalMs = n
		}
	}
	if v := os.Getenv("QVF_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
