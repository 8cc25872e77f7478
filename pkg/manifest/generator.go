package manifest

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dtnitsch/news-digest/models"
	"github.com/dtnitsch/news-digest/pkg/analytics"
	"github.com/dtnitsch/news-digest/pkg/dedup"
	"github.com/dtnitsch/news-digest/pkg/storage"
)

// PageResult is the outcome of parsing one intake file.
type PageResult struct {
	Path      string
	Page      *models.SourcePage
	Error     error
	ErrorType string
}

// FromDigest condenses d. output is the path the digest was written to.
func FromDigest(d models.Digest, output string) RunManifest {
	m := RunManifest{
		RunID:          d.RunID,
		GeneratedAt:    d.GeneratedAt.Format(time.RFC3339),
		Timezone:       d.Timezone,
		Output:         output,
		Topics:         len(d.Topics),
		Sources:        len(d.Sources),
		ElapsedSeconds: d.ElapsedSeconds,
		TopDomains:     d.TopDomains,
	}

	for _, t := range d.Topics {
		ts := TopicSummary{
			Name:              t.Name,
			Clusters:          len(t.Clusters),
			Bullets:           t.Stats.TotalBullets,
			Corroborated:      t.Stats.CorroboratedBullets,
			CorroborationRate: analytics.CorroborationRate(t.Stats),
			CoverageDomains:   t.Stats.CoverageDomains,
			Stories:           len(t.Stories),
			Warnings:          len(t.Warnings),
		}
		for _, c := range t.Clusters {
			if c.Flag == models.CoherenceLooselyRelated {
				ts.LooselyRelated++
			}
		}
		for _, s := range t.Stories {
			if s.Updated {
				m.Updated++
			}
		}
		for _, ch := range t.Changes {
			ts.Changes = append(ts.Changes, ch.Headline+": "+ch.Summary)
		}

		m.Stories += ts.Stories
		m.Warnings += ts.Warnings
		m.TopicSummaries = append(m.TopicSummaries, ts)
	}
	return m
}

// FromPages summarizes an intake run. res is the near-duplicate filtering
// over the parsed pages and selected the pages triage kept from res.Kept.
func FromPages(topic string, results []PageResult, res dedup.Result, selected []models.SourcePage, now time.Time) PagesManifest {
	m := PagesManifest{
		GeneratedAt: now.Format(time.RFC3339),
		Topic:       topic,
		TotalFiles:  len(results),
		Duplicates:  len(res.Dropped),
		Triaged:     len(res.Kept) - len(selected),
		Kept:        len(selected),
	}

	kept := make(map[string]bool, len(selected))
	for _, p := range selected {
		kept[p.URL] = true
	}
	dropped := make(map[string]dedup.Dropped, len(res.Dropped))
	for _, d := range res.Dropped {
		dropped[d.Page.URL] = d
	}

	for _, r := range results {
		summary := PageSummary{Path: r.Path}
		if r.Error != nil || r.Page == nil {
			m.Failed++
			summary.Status = "error"
			summary.ErrorType = r.ErrorType
			if r.Error != nil {
				summary.ErrorMessage = r.Error.Error()
			}
			m.Results = append(m.Results, summary)
			continue
		}

		m.Parsed++
		p := r.Page
		summary.URL = p.URL
		summary.Domain = p.Domain
		summary.Language = p.Language
		summary.WordCount = len(strings.Fields(p.Content))
		if p.PublishedAt != nil {
			summary.Published = p.PublishedAt.Format("2006-01-02")
		}

		switch {
		case kept[p.URL]:
			summary.Status = "kept"
		case dropped[p.URL].DuplicateOf != "":
			d := dropped[p.URL]
			summary.Status = "duplicate"
			summary.DuplicateOf = d.DuplicateOf
			summary.Similarity = d.Similarity
		default:
			summary.Status = "triaged"
		}
		m.Results = append(m.Results, summary)
	}
	return m
}

// Write saves m as YAML under dir and returns the file path.
func Write(s *storage.Storage, dir, name string, m any) (string, error) {
	path := filepath.Join(dir, name)
	if err := s.SaveDocument(path, "yaml", m); err != nil {
		return "", fmt.Errorf("error saving manifest: %w", err)
	}
	return path, nil
}
