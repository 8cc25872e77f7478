// Package dedup drops near-duplicate source pages before summarization.
package dedup

import (
	"log/slog"
	"strings"

	"github.com/dtnitsch/news-digest/models"
)

const (
	DefaultThreshold   = 0.8
	DefaultNGram       = 3
	DefaultPrefixChars = 1000
)

// Options configures a Deduplicator. Zero values take the defaults.
type Options struct {
	Threshold   float64
	NGram       int
	PrefixChars int
	Logger      *slog.Logger
}

// Dropped records a page removed as a near-duplicate of an accepted page.
type Dropped struct {
	Page        models.SourcePage
	DuplicateOf string
	Similarity  float64
}

// Result is the outcome of Filter.
type Result struct {
	Kept    []models.SourcePage
	Dropped []Dropped
}

// Deduplicator compares character n-gram multisets of page prefixes.
// Cost is quadratic in the number of pages per topic.
type Deduplicator struct {
	threshold   float64
	ngram       int
	prefixChars int
	logger      *slog.Logger
}

// New creates a Deduplicator.
func New(opts Options) *Deduplicator {
	d := &Deduplicator{
		threshold:   opts.Threshold,
		ngram:       opts.NGram,
		prefixChars: opts.PrefixChars,
		logger:      opts.Logger,
	}
	if d.threshold <= 0 || d.threshold > 1 {
		d.threshold = DefaultThreshold
	}
	if d.ngram < 1 {
		d.ngram = DefaultNGram
	}
	if d.prefixChars < 1 {
		d.prefixChars = DefaultPrefixChars
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	d.logger = d.logger.With("component", "dedup")
	return d
}

// Filter keeps the first page of each near-duplicate group. Input order is
// preference order and is preserved in the output.
func (d *Deduplicator) Filter(pages []models.SourcePage) Result {
	res := Result{Kept: make([]models.SourcePage, 0, len(pages))}
	accepted := make([]map[string]int, 0, len(pages))

	for _, page := range pages {
		grams := d.shingles(page.Content)

		dup := -1
		var sim float64
		for i, other := range accepted {
			sim = jaccard(grams, other)
			if sim >= d.threshold {
				dup = i
				break
			}
		}

		if dup >= 0 {
			res.Dropped = append(res.Dropped, Dropped{
				Page:        page,
				DuplicateOf: res.Kept[dup].URL,
				Similarity:  sim,
			})
			d.logger.Debug("dropped near-duplicate page",
				"url", page.URL,
				"duplicate_of", res.Kept[dup].URL,
				"similarity", sim)
			continue
		}

		accepted = append(accepted, grams)
		res.Kept = append(res.Kept, page)
	}

	return res
}

// Similarity returns the multiset Jaccard similarity of a and b using the
// deduplicator's n-gram size and prefix bound.
func (d *Deduplicator) Similarity(a, b string) float64 {
	return jaccard(d.shingles(a), d.shingles(b))
}

// Similarity compares a and b with the default options.
func Similarity(a, b string) float64 {
	return New(Options{}).Similarity(a, b)
}

func (d *Deduplicator) shingles(content string) map[string]int {
	text := strings.ToLower(strings.Join(strings.Fields(content), " "))
	runes := []rune(text)
	if len(runes) > d.prefixChars {
		runes = runes[:d.prefixChars]
	}

	grams := make(map[string]int)
	for i := 0; i+d.ngram <= len(runes); i++ {
		grams[string(runes[i:i+d.ngram])]++
	}
	return grams
}

// jaccard is |a ∩ b| / |a ∪ b| counted with multiplicity.
func jaccard(a, b map[string]int) float64 {
	var inter, union int
	for g, ca := range a {
		cb := b[g]
		inter += min(ca, cb)
		union += max(ca, cb)
	}
	for g, cb := range b {
		if _, ok := a[g]; !ok {
			union += cb
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
