package pages

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/news-digest/internal/common"
	"github.com/dtnitsch/news-digest/models"
	"github.com/dtnitsch/news-digest/pkg/dedup"
	"github.com/dtnitsch/news-digest/pkg/detector"
	"github.com/dtnitsch/news-digest/pkg/manifest"
	"github.com/dtnitsch/news-digest/pkg/storage"
	"github.com/dtnitsch/news-digest/pkg/triage"
)

// PagesAction parses saved HTML pages for one topic, drops near-duplicates,
// triages the rest and writes the surviving pages as a raw topic document
// ready for summarization.
func PagesAction(c *cli.Context) error {
	logger := common.NewLogger(c)
	startTime := time.Now()

	cfg, err := common.LoadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to load config: %v", err), 2)
	}

	jobs, err := collectJobs(c.Args().Slice())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if len(jobs) == 0 {
		fmt.Fprintln(os.Stderr, "Error: No HTML files provided")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, `  news-digest pages --topic "Markets" saved/*.html`)
		fmt.Fprintln(os.Stderr, `  news-digest pages --topic "Markets" page.html=https://example.com/story`)
		return cli.Exit("", 1)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("unknown timezone, using UTC", "timezone", cfg.Timezone, "error", err)
		loc = time.UTC
	}

	results := run(c.Context, logger, jobs, cfg.IntakeWorkers, detector.New(loc))

	var parsed []models.SourcePage
	var failed int
	for _, r := range results {
		if r.Error != nil || r.Page == nil {
			failed++
			continue
		}
		parsed = append(parsed, *r.Page)
	}

	res, selected := selectPages(parsed, cfg, logger)

	topic := strings.TrimSpace(c.String("topic"))
	slug := common.Slugify(topic)
	format := strings.ToLower(c.String("format"))

	output := c.String("output")
	if output == "" {
		ext := "json"
		if format == "yaml" {
			ext = "yaml"
		}
		output = filepath.Join(cfg.OutputDir, fmt.Sprintf("pages-%s.%s", slug, ext))
	}

	s := &storage.Storage{}
	if err := s.SaveDocument(output, format, models.RawTopic{Name: topic, Pages: selected}); err != nil {
		return cli.Exit(fmt.Sprintf("failed to write pages: %v", err), 2)
	}

	m := manifest.FromPages(topic, toPageResults(results), res, selected, startTime)
	m.Output = output
	manifestPath, err := manifest.Write(s, filepath.Dir(output), fmt.Sprintf("pages-%s-manifest.yaml", slug), m)
	if err != nil {
		logger.Warn("Failed to write pages manifest", "error", err)
	}

	logger.Info("Pages intake finished",
		"files", len(jobs),
		"parsed", len(parsed),
		"duplicates", len(res.Dropped),
		"kept", len(selected),
		"elapsed", time.Since(startTime).Seconds())

	fmt.Printf("Topic %q: %d/%d files parsed, %d kept (%d near-duplicates)\nPages: %s\n",
		topic, len(parsed), len(jobs), len(selected), len(res.Dropped), output)
	if manifestPath != "" {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if len(parsed) == 0 {
		return cli.Exit("no pages could be parsed", 2)
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d file(s) failed", failed), 1)
	}
	return nil
}

// selectPages drops near-duplicates in fetch order, so the first fetched
// copy survives, then triages what is left.
func selectPages(parsed []models.SourcePage, cfg models.DigestConfig, logger *slog.Logger) (dedup.Result, []models.SourcePage) {
	ordered := slices.Clone(parsed)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].FetchOrder < ordered[j].FetchOrder })

	res := dedup.New(dedup.Options{
		Threshold:   cfg.DedupThreshold,
		NGram:       cfg.DedupNGram,
		PrefixChars: cfg.DedupPrefixChars,
		Logger:      logger,
	}).Filter(ordered)
	return res, triage.Triage(res.Kept, triage.Options{MinDomains: cfg.MinIntakeDomains, Logger: logger})
}

// collectJobs expands arguments into parse jobs. An argument is a file, a
// directory (its .html and .htm files, sorted) or "file=url" to give the
// page URL explicitly.
func collectJobs(args []string) ([]Job, error) {
	var jobs []Job
	add := func(path, url string) {
		jobs = append(jobs, Job{Path: path, URL: url, Order: len(jobs)})
	}

	for _, arg := range args {
		path, url := arg, ""
		if i := strings.Index(arg, "="); i > 0 && strings.HasPrefix(arg[i+1:], "http") {
			path, url = arg[:i], common.SanitizeURL(arg[i+1:])
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path, url)
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", path, err)
		}
		var names []string
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !e.IsDir() && (ext == ".html" || ext == ".htm") {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			add(filepath.Join(path, name), "")
		}
	}
	return jobs, nil
}

func toPageResults(results []Result) []manifest.PageResult {
	out := make([]manifest.PageResult, len(results))
	for i, r := range results {
		out[i] = r.PageResult
	}
	return out
}
