package common

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/news-digest/models"
)

// NewLogger builds the JSON stderr logger used by every command.
// --quiet wins over --verbose.
func NewLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	if c.Bool("verbose") {
		logLevel = slog.LevelDebug
	}
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// LoadConfig reads --config and applies any command flags that were set
// explicitly on top of it.
func LoadConfig(c *cli.Context) (models.DigestConfig, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return cfg, err
	}

	if c.IsSet("timezone") {
		cfg.Timezone = c.String("timezone")
	}
	if c.IsSet("store") {
		cfg.StoreKind = c.String("store")
	}
	if c.IsSet("store-path") {
		cfg.StorePath = c.String("store-path")
	}
	if c.IsSet("store-ttl") {
		cfg.StoreTTL = c.Duration("store-ttl")
	}
	if c.IsSet("output-dir") {
		cfg.OutputDir = c.String("output-dir")
	}
	if c.IsSet("workers") {
		cfg.IntakeWorkers = c.Int("workers")
	}
	if c.IsSet("dedup-threshold") {
		cfg.DedupThreshold = c.Float64("dedup-threshold")
	}
	if c.IsSet("min-domains") {
		cfg.MinIntakeDomains = c.Int("min-domains")
	}
	if c.IsSet("at-a-glance") {
		cfg.AtAGlanceLimit = c.Int("at-a-glance")
	}
	if c.IsSet("executive") {
		cfg.ExecutiveLimit = c.Int("executive")
	}

	cfg.Normalize()
	return cfg, nil
}
