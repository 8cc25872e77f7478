package manifest

// RunManifest is a lightweight overview of one digest run, written next to
// the digest so a reader can see what changed without opening it.
type RunManifest struct {
	RunID          string         `yaml:"run_id"`
	GeneratedAt    string         `yaml:"generated_at"`
	Timezone       string         `yaml:"timezone"`
	Output         string         `yaml:"output,omitempty"`
	Topics         int            `yaml:"topics"`
	Sources        int            `yaml:"sources"`
	Stories        int            `yaml:"stories"`
	Updated        int            `yaml:"updated"`
	Warnings       int            `yaml:"warnings"`
	ElapsedSeconds float64        `yaml:"elapsed_seconds"`
	TopDomains     []string       `yaml:"top_domains,omitempty"`
	TopicSummaries []TopicSummary `yaml:"topic_summaries"`
}

// TopicSummary condenses one topic's evidence metrics and changes.
type TopicSummary struct {
	Name              string   `yaml:"name"`
	Clusters          int      `yaml:"clusters"`
	LooselyRelated    int      `yaml:"loosely_related,omitempty"`
	Bullets           int      `yaml:"bullets"`
	Corroborated      int      `yaml:"corroborated"`
	CorroborationRate float64  `yaml:"corroboration_rate"`
	CoverageDomains   int      `yaml:"coverage_domains"`
	Stories           int      `yaml:"stories"`
	Changes           []string `yaml:"changes,omitempty"` // "headline: summary"
	Warnings          int      `yaml:"warnings,omitempty"`
}

// PagesManifest summarizes a page intake run.
type PagesManifest struct {
	GeneratedAt string        `yaml:"generated_at" json:"generated_at"`
	Topic       string        `yaml:"topic,omitempty" json:"topic,omitempty"`
	TotalFiles  int           `yaml:"total_files" json:"total_files"`
	Parsed      int           `yaml:"parsed" json:"parsed"`
	Failed      int           `yaml:"failed" json:"failed"`
	Duplicates  int           `yaml:"duplicates" json:"duplicates"`
	Triaged     int           `yaml:"triaged" json:"triaged"` // dropped by triage after dedup
	Kept        int           `yaml:"kept" json:"kept"`
	Output      string        `yaml:"output,omitempty" json:"output,omitempty"`
	Results     []PageSummary `yaml:"results" json:"results"`
}

// PageSummary is the outcome for one intake file.
type PageSummary struct {
	Path         string  `yaml:"path" json:"path"`
	URL          string  `yaml:"url,omitempty" json:"url,omitempty"`
	Status       string  `yaml:"status" json:"status"` // "kept", "duplicate", "triaged" or "error"
	ErrorType    string  `yaml:"error_type,omitempty" json:"error_type,omitempty"`
	ErrorMessage string  `yaml:"error_message,omitempty" json:"error_message,omitempty"`
	Domain       string  `yaml:"domain,omitempty" json:"domain,omitempty"`
	Language     string  `yaml:"language,omitempty" json:"language,omitempty"`
	Published    string  `yaml:"published,omitempty" json:"published,omitempty"`
	WordCount    int     `yaml:"word_count,omitempty" json:"word_count,omitempty"`
	DuplicateOf  string  `yaml:"duplicate_of,omitempty" json:"duplicate_of,omitempty"`
	Similarity   float64 `yaml:"similarity,omitempty" json:"similarity,omitempty"`
}
