// Package citations assigns stable citation indices to sources and keeps
// citation markers in rendered text consistent.
package citations

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/dtnitsch/news-digest/models"
)

var (
	markerPattern   = regexp.MustCompile(`\[(\d+)\]`)
	trailingPattern = regexp.MustCompile(`(?:\s*\[\d+\])+\s*$`)
	spacePattern    = regexp.MustCompile(`\s+`)
)

// Tracker maps distinct (title, url) pairs to 1-based citation indices.
// Indices are assigned in first-registration order and never change.
//
// A Tracker is scoped to one digest run and is not safe for concurrent use.
// Callers that process topics in parallel must shard it or lock around it.
type Tracker struct {
	index   map[string]int
	sources []models.SourceRef
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{index: make(map[string]int)}
}

// Register returns the index for (title, url), assigning the next unused
// index if the pair has not been seen. Matching ignores case and repeated
// whitespace.
func (t *Tracker) Register(title, url string) int {
	key := pairKey(title, url)
	if idx, ok := t.index[key]; ok {
		return idx
	}
	idx := len(t.sources) + 1
	t.index[key] = idx
	t.sources = append(t.sources, models.SourceRef{
		Index: idx,
		Title: strings.TrimSpace(title),
		URL:   strings.TrimSpace(url),
	})
	return idx
}

// Lookup returns the source registered under idx.
func (t *Tracker) Lookup(idx int) (models.SourceRef, bool) {
	if idx < 1 || idx > len(t.sources) {
		return models.SourceRef{}, false
	}
	return t.sources[idx-1], true
}

// Sources returns a copy of the registered sources in index order.
func (t *Tracker) Sources() []models.SourceRef {
	return slices.Clone(t.sources)
}

// Len returns the number of registered sources.
func (t *Tracker) Len() int {
	return len(t.sources)
}

// Normalize is Normalize bound to the tracker for callers holding one.
func (t *Tracker) Normalize(citations []int) []int {
	return Normalize(citations)
}

// Normalize returns the unique values of citations in ascending order.
// It never returns nil.
func Normalize(citations []int) []int {
	out := make([]int, 0, len(citations))
	out = append(out, citations...)
	slices.Sort(out)
	return slices.Compact(out)
}

// Extract returns the indices of [n] markers in text that fall in 1..maxIndex,
// in order of appearance.
func Extract(text string, maxIndex int) []int {
	var found []int
	for _, m := range markerPattern.FindAllStringSubmatch(text, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if idx >= 1 && idx <= maxIndex {
			found = append(found, idx)
		}
	}
	return found
}

// Remap rewrites every [n] marker in text through mapping and drops
// markers with no mapping.
func Remap(text string, mapping map[int]int) string {
	return markerPattern.ReplaceAllStringFunc(text, func(m string) string {
		idx, err := strconv.Atoi(m[1 : len(m)-1])
		if err != nil {
			return ""
		}
		if to, ok := mapping[idx]; ok {
			return "[" + strconv.Itoa(to) + "]"
		}
		return ""
	})
}

// StripMarkers removes all [n] markers and collapses whitespace.
func StripMarkers(text string) string {
	stripped := markerPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(spacePattern.ReplaceAllString(stripped, " "))
}

// StripTrailing removes the run of [n] markers at the end of text.
func StripTrailing(text string) string {
	return strings.TrimSpace(trailingPattern.ReplaceAllString(text, ""))
}

// Suffix renders normalized citations as "[1][2]".
func Suffix(citations []int) string {
	var sb strings.Builder
	for _, idx := range Normalize(citations) {
		sb.WriteString("[")
		sb.WriteString(strconv.Itoa(idx))
		sb.WriteString("]")
	}
	return sb.String()
}

// EnsureSuffix replaces any trailing markers on text with the normalized
// suffix for citations.
func EnsureSuffix(text string, citations []int) string {
	base := StripTrailing(text)
	suffix := Suffix(citations)
	if suffix == "" {
		return base
	}
	if base == "" {
		return suffix
	}
	return base + " " + suffix
}

func pairKey(title, url string) string {
	norm := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	}
	return norm(title) + "\x00" + norm(url)
}
