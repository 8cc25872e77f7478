// Package digest runs the evidence pipeline over summarized topics:
// citation remapping, bullet hygiene, coherence, change detection,
// scoring and ranked selection.
package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtnitsch/news-digest/models"
	"github.com/dtnitsch/news-digest/pkg/analytics"
	"github.com/dtnitsch/news-digest/pkg/citations"
	"github.com/dtnitsch/news-digest/pkg/coherence"
	"github.com/dtnitsch/news-digest/pkg/mapreduce"
	"github.com/dtnitsch/news-digest/pkg/ranking"
	"github.com/dtnitsch/news-digest/pkg/scoring"
	"github.com/dtnitsch/news-digest/pkg/storydiff"
)

var (
	// ErrNilTracker is returned when no citation tracker is supplied.
	ErrNilTracker = errors.New("digest: citation tracker is required")
	// ErrNilStore is returned when no snapshot store is supplied.
	ErrNilStore = storydiff.ErrNilStore
)

// Options configures a Processor.
type Options struct {
	Config models.DigestConfig
	Logger *slog.Logger
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// Processor annotates the topics of one digest run. It shares the run's
// citation tracker across topics and is not safe for concurrent use.
type Processor struct {
	cfg     models.DigestConfig
	tracker *citations.Tracker
	diff    *storydiff.Tracker
	stats   *analytics.Analytics
	logger  *slog.Logger
	now     func() time.Time

	runID        string
	started      time.Time
	domainCounts []map[string]int
}

// NewProcessor creates a Processor for a single run.
func NewProcessor(tr *citations.Tracker, store storydiff.SnapshotStore, opts Options) (*Processor, error) {
	if tr == nil {
		return nil, ErrNilTracker
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	diff, err := storydiff.NewTracker(store, logger)
	if err != nil {
		return nil, err
	}

	cfg := opts.Config
	cfg.Normalize()

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	runID := uuid.NewString()
	return &Processor{
		cfg:     cfg,
		tracker: tr,
		diff:    diff,
		stats:   analytics.New(tr, logger),
		logger:  logger.With("component", "digest", "run_id", runID),
		now:     now,
		runID:   runID,
		started: now(),
	}, nil
}

// RunID returns the identifier of this run.
func (p *Processor) RunID() string {
	return p.runID
}

// ProcessTopic annotates one summarized topic. Malformed bullets and
// stories are dropped and reported in Topic.Warnings.
func (p *Processor) ProcessTopic(ctx context.Context, raw models.RawTopic) (models.Topic, error) {
	if err := ctx.Err(); err != nil {
		return models.Topic{}, err
	}

	topic := models.Topic{Name: strings.TrimSpace(raw.Name)}
	logger := p.logger.With("topic", topic.Name)
	warn := func(msg string, args ...any) {
		logger.Warn(msg, args...)
		topic.Warnings = append(topic.Warnings, formatWarning(msg, args...))
	}

	remap := p.register(raw)
	now := p.now()

	// Clusters
	var clusters []models.Cluster
	for _, rc := range raw.Clusters {
		c := models.Cluster{Heading: strings.TrimSpace(rc.Heading)}
		for _, rb := range rc.Bullets {
			if b, ok := p.prepareBullet(rb, remap, warn); ok {
				c.Bullets = append(c.Bullets, b)
			}
		}
		clusters = append(clusters, c)
	}

	// Stories
	var stories []models.Story
	for _, rs := range raw.Stories {
		if s, ok := p.prepareStory(rs, remap, warn); ok {
			stories = append(stories, s)
		}
	}

	if len(clusters) == 0 && len(stories) > 0 {
		clusters = []models.Cluster{p.storiesCluster(stories)}
	}

	clusters = clampClusters(clusters, p.cfg.MaxClusterBullets)
	clusters, pruned := capTopic(clusters, p.cfg.MaxTopicBullets)
	if pruned > 0 {
		logger.Info("topic bullet cap applied", "pruned", pruned, "cap", p.cfg.MaxTopicBullets)
	}
	for i := range clusters {
		clusters[i] = coherence.ValidateWith(clusters[i], p.cfg.CoherenceThreshold)
		if clusters[i].Flag == models.CoherenceLooselyRelated {
			logger.Debug("cluster loosely related", "heading", clusters[i].Heading, "coherence", clusters[i].Coherence)
		}
	}
	topic.Clusters = clusters

	// Change detection runs before scoring so the updated flag is known.
	keys := storydiff.Keys(topic.Name, stories)
	for i, s := range stories {
		key := keys[i]
		ch, err := p.diff.Compare(ctx, key, topic.Name, s)
		if err != nil {
			return topic, fmt.Errorf("failed to diff story %q: %w", s.Headline, err)
		}
		s.Updated = ch.MarksUpdated()
		if s.Updated {
			s.UpdateNote = ch.Summary
		}
		topic.Changes = append(topic.Changes, models.StoryChange{
			Key:      key,
			Headline: s.Headline,
			Kind:     string(ch.Kind),
			Summary:  ch.Summary,
			Added:    ch.Added,
			Removed:  ch.Removed,
		})
		stories[i] = scoring.Annotate(s, now)
	}
	topic.Stories = stories

	topic.Stats = p.stats.TopicStats(topic.Name, clusters, stories)

	var cands []ranking.Candidate
	if len(stories) > 0 {
		cands = ranking.FromStories(topic.Name, stories, p.tracker)
	} else {
		cands = ranking.FromBullets(topic.Name, clusters, p.tracker)
	}
	entries, err := ranking.Select(cands, p.cfg.AtAGlanceLimit, p.cfg.RankingMaxChars)
	if err != nil {
		return topic, fmt.Errorf("failed to rank topic %q: %w", topic.Name, err)
	}
	topic.AtAGlance = ranking.ToItems(entries)

	p.domainCounts = append(p.domainCounts, mapreduce.Map(clusters, p.stats))

	logger.Info("topic processed",
		"clusters", len(clusters),
		"stories", len(stories),
		"bullets", topic.Stats.TotalBullets,
		"corroborated", topic.Stats.CorroboratedBullets,
		"warnings", len(topic.Warnings))

	return topic, nil
}

// Finish builds the executive summary, persists the staged snapshots and
// assembles the digest.
func (p *Processor) Finish(ctx context.Context, topics []models.Topic) (models.Digest, error) {
	var cands []ranking.Candidate
	for _, t := range topics {
		var tc []ranking.Candidate
		if len(t.Stories) > 0 {
			tc = ranking.FromStories(t.Name, t.Stories, p.tracker)
		} else {
			tc = ranking.FromBullets(t.Name, t.Clusters, p.tracker)
		}
		for _, c := range tc {
			c.Position = len(cands)
			cands = append(cands, c)
		}
	}

	entries, err := ranking.Select(cands, p.cfg.ExecutiveLimit, p.cfg.RankingMaxChars)
	if err != nil {
		return models.Digest{}, fmt.Errorf("failed to rank executive summary: %w", err)
	}

	written, err := p.diff.Commit(ctx)
	if err != nil {
		return models.Digest{}, fmt.Errorf("failed to commit snapshots: %w", err)
	}

	loc, err := time.LoadLocation(p.cfg.Timezone)
	if err != nil {
		p.logger.Warn("unknown timezone, using UTC", "timezone", p.cfg.Timezone, "error", err)
		loc = time.UTC
	}
	finished := p.now()

	d := models.Digest{
		RunID:            p.runID,
		GeneratedAt:      finished.In(loc),
		Timezone:         loc.String(),
		Topics:           topics,
		Sources:          p.tracker.Sources(),
		ExecutiveSummary: ranking.ToItems(entries),
		TopDomains:       mapreduce.TopDomains(mapreduce.Reduce(p.domainCounts), p.cfg.TopDomainsLimit),
		ElapsedSeconds:   finished.Sub(p.started).Seconds(),
	}

	p.logger.Info("digest finished",
		"topics", len(topics),
		"sources", len(d.Sources),
		"snapshots", written,
		"elapsed", d.ElapsedSeconds)

	return d, nil
}

// register adds the topic's source table to the run tracker and returns
// the local to run-wide index mapping.
func (p *Processor) register(raw models.RawTopic) remapper {
	table := raw.SourceTable()
	r := remapper{local: make(map[int]int, len(table)), max: len(table)}
	for i, src := range table {
		if strings.TrimSpace(src.URL) == "" && strings.TrimSpace(src.Title) == "" {
			continue
		}
		r.local[i+1] = p.tracker.Register(src.Title, src.URL)
	}
	return r
}

func (p *Processor) prepareBullet(rb models.RawBullet, r remapper, warn func(string, ...any)) (models.Bullet, bool) {
	if citations.StripMarkers(rb.Text) == "" {
		warn("dropping bullet without text")
		return models.Bullet{}, false
	}
	cites := r.citationsFor(rb.Text, rb.Citations)
	if len(cites) == 0 {
		warn("dropping bullet without citations", "text", rb.Text)
		return models.Bullet{}, false
	}

	b := models.Bullet{
		Text:      r.cleanText(rb.Text, cites, p.cfg.MaxBulletChars),
		Citations: cites,
	}
	if d, ok := scoring.ParseDate(rb.Date); ok {
		b.Date = d.Format("2006-01-02")
	}
	return b, true
}

func (p *Processor) prepareStory(rs models.RawStory, r remapper, warn func(string, ...any)) (models.Story, bool) {
	headline := strings.Join(strings.Fields(rs.Headline), " ")
	if headline == "" {
		warn("dropping story without headline")
		return models.Story{}, false
	}

	s := models.Story{
		Headline: headline,
		Why:      strings.Join(strings.Fields(rs.Why), " "),
	}
	var union []int
	for _, rb := range rs.Bullets {
		b, ok := p.prepareBullet(rb, r, warn)
		if !ok {
			continue
		}
		s.Bullets = append(s.Bullets, b)
		union = append(union, b.Citations...)
	}
	if len(s.Bullets) == 0 {
		warn("dropping story without cited bullets", "headline", headline)
		return models.Story{}, false
	}

	s.SourceIndices = citations.Normalize(union)
	s.URLs = p.storyURLs(union)
	if d, ok := scoring.ParseDate(rs.Date); ok {
		s.Date = d.Format("2006-01-02")
	} else if strings.TrimSpace(rs.Date) != "" {
		p.logger.Debug("ignoring unparseable story date", "headline", headline, "date", rs.Date)
	}
	return s, true
}

// storyURLs resolves citations to source URLs in the order the story first
// cites them, so a later bullet citing an older source leaves the lead URL
// in place.
func (p *Processor) storyURLs(cites []int) []string {
	seen := make(map[int]bool, len(cites))
	var urls []string
	for _, idx := range cites {
		if seen[idx] {
			continue
		}
		seen[idx] = true
		if ref, ok := p.tracker.Lookup(idx); ok && ref.URL != "" {
			urls = append(urls, ref.URL)
		}
	}
	return urls
}

// storiesCluster renders stories as a single cluster when the summary
// carried no clusters of its own.
func (p *Processor) storiesCluster(stories []models.Story) models.Cluster {
	c := models.Cluster{Heading: "Top Stories"}
	for _, s := range stories {
		text := s.Headline
		if s.Why != "" {
			text += " - " + s.Why
		}
		text = TruncateSentence(citations.StripTrailing(text), p.cfg.MaxBulletChars)
		c.Bullets = append(c.Bullets, models.Bullet{
			Text:      citations.EnsureSuffix(text, s.SourceIndices),
			Citations: s.SourceIndices,
			Date:      s.Date,
		})
	}
	return c
}

// formatWarning renders a log message and its key/value pairs as one line.
func formatWarning(msg string, args ...any) string {
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&sb, " %v=%q", args[i], fmt.Sprint(args[i+1]))
	}
	return sb.String()
}
