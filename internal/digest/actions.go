package digest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/news-digest/internal/common"
	"github.com/dtnitsch/news-digest/models"
	"github.com/dtnitsch/news-digest/pkg/caching"
	"github.com/dtnitsch/news-digest/pkg/citations"
	dbpkg "github.com/dtnitsch/news-digest/pkg/db"
	digestpkg "github.com/dtnitsch/news-digest/pkg/digest"
	"github.com/dtnitsch/news-digest/pkg/manifest"
	"github.com/dtnitsch/news-digest/pkg/storage"
	"github.com/dtnitsch/news-digest/pkg/storydiff"
)

// DigestAction annotates a raw digest document, writes the digest and its
// manifest, and records the run when the SQLite store is in use.
func DigestAction(c *cli.Context) error {
	logger := common.NewLogger(c)
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := common.LoadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to load config: %v", err), 2)
	}

	input := c.String("input")
	if input == "" {
		return cli.Exit("Error: --input is required (raw digest JSON or YAML)", 1)
	}

	s := &storage.Storage{}
	if !s.HasFile(input) {
		return cli.Exit(fmt.Sprintf("Error: input file %s not found", input), 1)
	}
	var raw models.RawDigest
	if err := s.LoadDocument(input, &raw); err != nil {
		return cli.Exit(fmt.Sprintf("failed to load input: %v", err), 2)
	}
	if c.IsSet("topics") {
		raw.Topics = filterTopics(raw.Topics, common.SplitCSV(c.String("topics")))
	}
	if len(raw.Topics) == 0 {
		return cli.Exit(fmt.Sprintf("input %s has no topics", input), 1)
	}

	store, database, err := openStore(cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to open snapshot store: %v", err), 2)
	}
	if database != nil {
		defer database.Close()
	}
	logger.Info("Snapshot store opened", "kind", cfg.StoreKind, "path", cfg.StorePath, "ttl", cfg.StoreTTL.String())

	d, err := process(ctx, logger, cfg, raw, store, func(runID string, started time.Time) {
		if database == nil {
			return
		}
		if err := database.StartRun(ctx, runID, started); err != nil {
			logger.Warn("Failed to record run start", "run_id", runID, "error", err)
		}
	})
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	format := strings.ToLower(c.String("format"))
	output := c.String("output")
	if output == "" {
		ext := "json"
		if format == "yaml" {
			ext = "yaml"
		}
		output = filepath.Join(cfg.OutputDir, fmt.Sprintf("digest-%s.%s", d.GeneratedAt.Format("2006-01-02"), ext))
	}
	if err := s.SaveDocument(output, format, d); err != nil {
		return cli.Exit(fmt.Sprintf("failed to write digest: %v", err), 2)
	}

	m := manifest.FromDigest(d, output)
	manifestName := strings.TrimSuffix(filepath.Base(output), filepath.Ext(output)) + "-manifest.yaml"
	manifestPath, err := manifest.Write(s, filepath.Dir(output), manifestName, m)
	if err != nil {
		logger.Warn("Failed to write run manifest", "error", err)
	}

	if database != nil {
		recordRun(ctx, logger, database, d, m, output)
	}

	fmt.Printf("Run %s: %d topics, %d stories (%d updated), %d sources\n",
		d.RunID, m.Topics, m.Stories, m.Updated, m.Sources)
	if stats, err := s.GetFileStats(output); err == nil {
		fmt.Printf("Digest: %s (%d bytes)\n", output, stats.SizeBytes)
	} else {
		fmt.Printf("Digest: %s\n", output)
	}
	if manifestPath != "" {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}
	if m.Warnings > 0 {
		fmt.Printf("Warnings: %d (see manifest)\n", m.Warnings)
	}
	return nil
}

// process runs every topic of raw through one Processor. onStart is called
// once the run ID is known.
func process(ctx context.Context, logger *slog.Logger, cfg models.DigestConfig, raw models.RawDigest, store storydiff.SnapshotStore, onStart func(runID string, started time.Time)) (models.Digest, error) {
	p, err := digestpkg.NewProcessor(citations.NewTracker(), store, digestpkg.Options{
		Config: cfg,
		Logger: logger,
	})
	if err != nil {
		return models.Digest{}, fmt.Errorf("failed to create processor: %w", err)
	}
	if onStart != nil {
		onStart(p.RunID(), time.Now())
	}

	topics := make([]models.Topic, 0, len(raw.Topics))
	for _, rt := range raw.Topics {
		t, err := p.ProcessTopic(ctx, rt)
		if err != nil {
			return models.Digest{}, fmt.Errorf("failed to process topic %q: %w", rt.Name, err)
		}
		topics = append(topics, t)
	}
	return p.Finish(ctx, topics)
}

// filterTopics keeps the topics named in names, compared case-insensitively.
func filterTopics(topics []models.RawTopic, names []string) []models.RawTopic {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.ToLower(n)] = true
	}
	var out []models.RawTopic
	for _, t := range topics {
		if want[strings.ToLower(strings.TrimSpace(t.Name))] {
			out = append(out, t)
		}
	}
	return out
}

// openStore returns the configured snapshot store. The database is non-nil
// only for the SQLite store and must be closed by the caller.
func openStore(cfg models.DigestConfig) (storydiff.SnapshotStore, *dbpkg.DB, error) {
	switch cfg.StoreKind {
	case models.StoreFile:
		cache, err := caching.NewCache(cfg.StorePath, cfg.StoreTTL)
		if err != nil {
			return nil, nil, err
		}
		return cache, nil, nil
	default:
		database, err := dbpkg.Open(cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		database.SetSnapshotTTL(cfg.StoreTTL)
		return database, database, nil
	}
}

func recordRun(ctx context.Context, logger *slog.Logger, database *dbpkg.DB, d models.Digest, m manifest.RunManifest, output string) {
	for _, t := range d.Topics {
		if err := database.RecordChanges(ctx, d.RunID, t.Name, t.Changes); err != nil {
			logger.Warn("Failed to record story changes", "topic", t.Name, "error", err)
		}
	}
	err := database.FinishRun(ctx, dbpkg.Run{
		RunID:        d.RunID,
		TopicCount:   m.Topics,
		SourceCount:  m.Sources,
		StoryCount:   m.Stories,
		UpdatedCount: m.Updated,
		WarningCount: m.Warnings,
		OutputPath:   output,
	})
	if err != nil {
		logger.Warn("Failed to record run totals", "run_id", d.RunID, "error", err)
	}
}
