// Package analytics computes coverage and corroboration metrics for topics.
package analytics

import (
	"log/slog"

	"github.com/dtnitsch/news-digest/internal/common"
	"github.com/dtnitsch/news-digest/models"
	"github.com/dtnitsch/news-digest/pkg/citations"
)

// Analytics resolves citation indices to domains through a run tracker.
type Analytics struct {
	tracker *citations.Tracker
	logger  *slog.Logger
}

// New creates an Analytics bound to tr.
func New(tr *citations.Tracker, logger *slog.Logger) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analytics{tracker: tr, logger: logger.With("component", "analytics")}
}

// Domains returns the distinct registrable domains behind cites.
func (a *Analytics) Domains(cites []int) []string {
	if a.tracker == nil {
		return nil
	}
	urls := make([]string, 0, len(cites))
	for _, idx := range citations.Normalize(cites) {
		if ref, ok := a.tracker.Lookup(idx); ok {
			urls = append(urls, ref.URL)
		}
	}
	return common.DistinctDomains(urls)
}

// TopicStats counts bullets, corroborated bullets (two or more distinct
// domains) and the union of citations used by clusters and stories.
func (a *Analytics) TopicStats(topic string, clusters []models.Cluster, stories []models.Story) models.TopicStats {
	var stats models.TopicStats
	var used []int

	for _, cl := range clusters {
		for _, b := range cl.Bullets {
			stats.TotalBullets++
			if len(a.Domains(b.Citations)) >= 2 {
				stats.CorroboratedBullets++
			}
			if len(b.Citations) == 0 {
				a.logger.Warn("bullet without citations", "topic", topic, "text", b.Text)
			}
			used = append(used, b.Citations...)
		}
	}
	for _, s := range stories {
		used = append(used, s.SourceIndices...)
	}

	stats.UsedSources = citations.Normalize(used)
	stats.CoverageDomains = len(a.Domains(stats.UsedSources))
	return stats
}

// CorroborationRate is the share of corroborated bullets, 0 when there
// are no bullets.
func CorroborationRate(stats models.TopicStats) float64 {
	if stats.TotalBullets == 0 {
		return 0
	}
	return float64(stats.CorroboratedBullets) / float64(stats.TotalBullets)
}

// DomainCounts counts citation occurrences per domain across a topic's
// bullets. Each bullet counts a domain at most once.
func (a *Analytics) DomainCounts(clusters []models.Cluster) map[string]int {
	counts := make(map[string]int)
	for _, cl := range clusters {
		for _, b := range cl.Bullets {
			for _, d := range a.Domains(b.Citations) {
				counts[d]++
			}
		}
	}
	return counts
}
