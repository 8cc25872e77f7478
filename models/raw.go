package models

// RawBullet is a bullet as emitted by the summarization collaborator.
// Citations are local, 1-based indices into the topic's source table.
type RawBullet struct {
	Text      string `json:"text" yaml:"text"`
	Citations []int  `json:"citations" yaml:"citations"`
	Date      string `json:"date,omitempty" yaml:"date,omitempty"`
}

// RawCluster is an unannotated cluster from the summarization collaborator.
type RawCluster struct {
	Heading string      `json:"heading" yaml:"heading"`
	Bullets []RawBullet `json:"bullets" yaml:"bullets"`
}

// RawStory is an unannotated story from the summarization collaborator.
type RawStory struct {
	Headline      string      `json:"headline" yaml:"headline"`
	Why           string      `json:"why" yaml:"why"`
	Bullets       []RawBullet `json:"bullets" yaml:"bullets"`
	Date          string      `json:"date,omitempty" yaml:"date,omitempty"`
	SourceIndices []int       `json:"source_indices,omitempty" yaml:"source_indices,omitempty"`
}

// RawSource is one row of the local source table shown to the summarizer.
type RawSource struct {
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
}

// RawTopic bundles everything the core receives for one topic.
// When Sources is empty, Pages (in order) act as the source table.
type RawTopic struct {
	Name     string       `json:"name" yaml:"name"`
	Sources  []RawSource  `json:"sources,omitempty" yaml:"sources,omitempty"`
	Pages    []SourcePage `json:"pages,omitempty" yaml:"pages,omitempty"`
	Clusters []RawCluster `json:"clusters,omitempty" yaml:"clusters,omitempty"`
	Stories  []RawStory   `json:"stories,omitempty" yaml:"stories,omitempty"`
}

// RawDigest is the input document for one digest run.
type RawDigest struct {
	Topics []RawTopic `json:"topics" yaml:"topics"`
}

// SourceTable returns the local source table for the topic.
func (t RawTopic) SourceTable() []RawSource {
	if len(t.Sources) > 0 {
		return t.Sources
	}
	table := make([]RawSource, 0, len(t.Pages))
	for _, p := range t.Pages {
		title := p.Title
		if title == "" {
			title = p.URL
		}
		table = append(table, RawSource{Title: title, URL: p.URL})
	}
	return table
}
