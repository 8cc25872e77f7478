// Package models defines data structures for configuration and digest processing.
package models

import "time"

// SourceRef is a citation index bound to a distinct (title, url) pair.
type SourceRef struct {
	Index int    `json:"index" yaml:"index"`
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
}

// Bullet is one supported claim. Citations may contain duplicates until normalized.
type Bullet struct {
	Text      string `json:"text" yaml:"text"`
	Citations []int  `json:"citations" yaml:"citations"`
	Date      string `json:"date,omitempty" yaml:"date,omitempty"`
}

// CoherenceFlag carries cluster quality as structured state.
type CoherenceFlag string

const (
	CoherenceCoherent       CoherenceFlag = "coherent"
	CoherenceLooselyRelated CoherenceFlag = "loosely_related"
)

// Cluster groups bullets under a heading.
type Cluster struct {
	Heading   string        `json:"heading" yaml:"heading"`
	Bullets   []Bullet      `json:"bullets" yaml:"bullets"`
	Coherence float64       `json:"coherence" yaml:"coherence"`
	Flag      CoherenceFlag `json:"flag,omitempty" yaml:"flag,omitempty"`
}

// ConfidenceTier classifies a story by corroboration.
type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "high"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceLow    ConfidenceTier = "low"
)

// Story is a headline with supporting bullets.
type Story struct {
	Headline      string         `json:"headline" yaml:"headline"`
	Why           string         `json:"why" yaml:"why"`
	Bullets       []Bullet       `json:"bullets" yaml:"bullets"`
	SourceIndices []int          `json:"source_indices" yaml:"source_indices"`
	URLs          []string       `json:"urls,omitempty" yaml:"urls,omitempty"`
	Date          string         `json:"date,omitempty" yaml:"date,omitempty"` // YYYY-MM-DD
	Updated       bool           `json:"updated" yaml:"updated"`
	UpdateNote    string         `json:"update_note,omitempty" yaml:"update_note,omitempty"`
	Importance    int            `json:"importance" yaml:"importance"`
	Confidence    ConfidenceTier `json:"confidence" yaml:"confidence"`
}

// TopicStats aggregates evidence counts for a topic.
type TopicStats struct {
	TotalBullets        int   `json:"total_bullets" yaml:"total_bullets"`
	CorroboratedBullets int   `json:"corroborated_bullets" yaml:"corroborated_bullets"`
	UsedSources         []int `json:"used_sources" yaml:"used_sources"`
	CoverageDomains     int   `json:"coverage_domains" yaml:"coverage_domains"`
}

// RankedItem is a rendered, truncated line chosen for quick scanning.
type RankedItem struct {
	Text     string   `json:"text" yaml:"text"`
	Priority int      `json:"priority" yaml:"priority"`
	Domains  []string `json:"domains,omitempty" yaml:"domains,omitempty"`
	Topic    string   `json:"topic,omitempty" yaml:"topic,omitempty"`
}

// StoryChange is the diff summary attached to a story for rendering.
type StoryChange struct {
	Key      string   `json:"key" yaml:"key"`
	Headline string   `json:"headline" yaml:"headline"`
	Kind     string   `json:"kind" yaml:"kind"`
	Summary  string   `json:"summary" yaml:"summary"`
	Added    []string `json:"added,omitempty" yaml:"added,omitempty"`
	Removed  []string `json:"removed,omitempty" yaml:"removed,omitempty"`
}

// Topic is the annotated output for one topic.
type Topic struct {
	Name      string        `json:"name" yaml:"name"`
	Clusters  []Cluster     `json:"clusters" yaml:"clusters"`
	Stories   []Story       `json:"stories,omitempty" yaml:"stories,omitempty"`
	Stats     TopicStats    `json:"stats" yaml:"stats"`
	AtAGlance []RankedItem  `json:"at_a_glance,omitempty" yaml:"at_a_glance,omitempty"`
	Changes   []StoryChange `json:"changes,omitempty" yaml:"changes,omitempty"`
	Warnings  []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Digest is the full output of one run.
type Digest struct {
	RunID            string       `json:"run_id" yaml:"run_id"`
	GeneratedAt      time.Time    `json:"generated_at" yaml:"generated_at"`
	Timezone         string       `json:"timezone" yaml:"timezone"`
	Topics           []Topic      `json:"topics" yaml:"topics"`
	Sources          []SourceRef  `json:"sources" yaml:"sources"`
	ExecutiveSummary []RankedItem `json:"executive_summary,omitempty" yaml:"executive_summary,omitempty"`
	TopDomains       []string     `json:"top_domains,omitempty" yaml:"top_domains,omitempty"`
	ElapsedSeconds   float64      `json:"elapsed_seconds" yaml:"elapsed_seconds"`
}
