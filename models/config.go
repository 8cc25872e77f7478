package models

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store kinds accepted by DigestConfig.StoreKind.
const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
)

// DigestConfig holds runtime configuration for a digest run.
// Values come from an optional YAML file, then DIGEST_* environment
// variables, then CLI flags (applied by the caller).
type DigestConfig struct {
	Timezone string `yaml:"timezone"`

	DedupThreshold   float64 `yaml:"dedup_threshold"`
	DedupNGram       int     `yaml:"dedup_ngram"`
	DedupPrefixChars int     `yaml:"dedup_prefix_chars"`

	CoherenceThreshold float64 `yaml:"coherence_threshold"`

	MaxBulletChars    int `yaml:"max_bullet_chars"`
	MaxClusterBullets int `yaml:"max_cluster_bullets"`
	MaxTopicBullets   int `yaml:"max_topic_bullets"`

	AtAGlanceLimit   int `yaml:"at_a_glance_limit"`
	ExecutiveLimit   int `yaml:"executive_limit"`
	RankingMaxChars  int `yaml:"ranking_max_chars"`
	TopDomainsLimit  int `yaml:"top_domains_limit"`
	IntakeWorkers    int `yaml:"intake_workers"`
	MinIntakeDomains int `yaml:"min_intake_domains"`

	StoreKind string        `yaml:"store_kind"`
	StorePath string        `yaml:"store_path"`
	StoreTTL  time.Duration `yaml:"store_ttl"` // 0 keeps snapshots forever
	OutputDir string        `yaml:"output_dir"`
}

// DefaultDigestConfig returns the built-in defaults.
func DefaultDigestConfig() DigestConfig {
	return DigestConfig{
		Timezone:           "UTC",
		DedupThreshold:     0.8,
		DedupNGram:         3,
		DedupPrefixChars:   1000,
		CoherenceThreshold: 0.3,
		MaxBulletChars:     320,
		MaxClusterBullets:  5,
		MaxTopicBullets:    25,
		AtAGlanceLimit:     5,
		ExecutiveLimit:     5,
		RankingMaxChars:    160,
		TopDomainsLimit:    10,
		IntakeWorkers:      4,
		MinIntakeDomains:   2,
		StoreKind:          StoreSQLite,
		StorePath:          "news-digest.db",
		OutputDir:          "digest_output",
	}
}

// LoadConfig reads path (when non-empty), applies environment overrides
// and fills unset or out-of-range values with defaults.
func LoadConfig(path string) (DigestConfig, error) {
	cfg := DefaultDigestConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	cfg.Normalize()
	return cfg, nil
}

// Normalize clamps values into their valid ranges.
func (c *DigestConfig) Normalize() {
	d := DefaultDigestConfig()

	if strings.TrimSpace(c.Timezone) == "" {
		c.Timezone = d.Timezone
	}
	if c.DedupThreshold <= 0 || c.DedupThreshold > 1 {
		c.DedupThreshold = d.DedupThreshold
	}
	if c.DedupNGram < 1 {
		c.DedupNGram = d.DedupNGram
	}
	if c.DedupPrefixChars < 1 {
		c.DedupPrefixChars = d.DedupPrefixChars
	}
	if c.CoherenceThreshold < 0 || c.CoherenceThreshold > 1 {
		c.CoherenceThreshold = d.CoherenceThreshold
	}
	positive := []struct {
		v   *int
		def int
	}{
		{&c.MaxBulletChars, d.MaxBulletChars},
		{&c.MaxClusterBullets, d.MaxClusterBullets},
		{&c.MaxTopicBullets, d.MaxTopicBullets},
		{&c.AtAGlanceLimit, d.AtAGlanceLimit},
		{&c.ExecutiveLimit, d.ExecutiveLimit},
		{&c.RankingMaxChars, d.RankingMaxChars},
		{&c.TopDomainsLimit, d.TopDomainsLimit},
		{&c.IntakeWorkers, d.IntakeWorkers},
	}
	for _, p := range positive {
		if *p.v < 1 {
			*p.v = p.def
		}
	}
	if c.MinIntakeDomains < 0 {
		c.MinIntakeDomains = d.MinIntakeDomains
	}
	c.StoreKind = strings.ToLower(strings.TrimSpace(c.StoreKind))
	if c.StoreKind != StoreSQLite && c.StoreKind != StoreFile {
		c.StoreKind = d.StoreKind
	}
	if c.StorePath == "" {
		c.StorePath = d.StorePath
	}
	if c.StoreTTL < 0 {
		c.StoreTTL = 0
	}
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
}

func applyEnv(cfg *DigestConfig) error {
	strs := map[string]*string{
		"DIGEST_TIMEZONE":   &cfg.Timezone,
		"DIGEST_STORE_KIND": &cfg.StoreKind,
		"DIGEST_STORE_PATH": &cfg.StorePath,
		"DIGEST_OUTPUT_DIR": &cfg.OutputDir,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	floats := map[string]*float64{
		"DIGEST_DEDUP_THRESHOLD":     &cfg.DedupThreshold,
		"DIGEST_COHERENCE_THRESHOLD": &cfg.CoherenceThreshold,
	}
	for key, dst := range floats {
		if v, ok := os.LookupEnv(key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, v, err)
			}
			*dst = f
		}
	}

	if v, ok := os.LookupEnv("DIGEST_STORE_TTL"); ok {
		ttl, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid DIGEST_STORE_TTL %q: %w", v, err)
		}
		cfg.StoreTTL = ttl
	}

	ints := map[string]*int{
		"DIGEST_MAX_BULLET_CHARS":    &cfg.MaxBulletChars,
		"DIGEST_MAX_CLUSTER_BULLETS": &cfg.MaxClusterBullets,
		"DIGEST_MAX_TOPIC_BULLETS":   &cfg.MaxTopicBullets,
		"DIGEST_AT_A_GLANCE_LIMIT":   &cfg.AtAGlanceLimit,
		"DIGEST_EXECUTIVE_LIMIT":     &cfg.ExecutiveLimit,
		"DIGEST_INTAKE_WORKERS":      &cfg.IntakeWorkers,
	}
	for key, dst := range ints {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, v, err)
			}
			*dst = n
		}
	}
	return nil
}
