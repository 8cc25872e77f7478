package models

import (
	"strings"
	"time"
)

// SourcePage represents a single fetched web page for one topic.
// FetchOrder is the preference order used when near-duplicates are dropped.
type SourcePage struct {
	URL        string `json:"url" yaml:"url"`
	Domain     string `json:"domain" yaml:"domain"`
	Title      string `json:"title" yaml:"title"`
	SiteName   string `json:"site_name,omitempty" yaml:"site_name,omitempty"`
	Content    string `json:"content" yaml:"content"`
	FetchOrder int    `json:"fetch_order" yaml:"fetch_order"`

	// Intake enrichment (pkg/detector)
	Language    string     `json:"language,omitempty" yaml:"language,omitempty"`
	SourceKind  string     `json:"source_kind,omitempty" yaml:"source_kind,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty" yaml:"published_at,omitempty"`
}

// ContentBlock represents a semantic block of text on a page.
type ContentBlock struct {
	Type string `json:"type"` // e.g., "h1", "h2", "p", "li"
	Text string `json:"text"`
}

// JoinBlocks concatenates readable text from all content blocks.
func JoinBlocks(blocks []ContentBlock) string {
	var sb strings.Builder

	for _, block := range blocks {
		if block.Text == "" {
			continue
		}
		sb.WriteString(block.Text)
		sb.WriteString("\n")
	}

	return sb.String()
}
