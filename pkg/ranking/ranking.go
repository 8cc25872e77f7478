// Package ranking selects the highest-priority lines for the at-a-glance
// and executive summary views.
package ranking

import (
	"errors"
	"sort"
	"strings"
	"unicode"

	"github.com/dtnitsch/news-digest/internal/common"
	"github.com/dtnitsch/news-digest/models"
	"github.com/dtnitsch/news-digest/pkg/citations"
	"github.com/dtnitsch/news-digest/pkg/scoring"
)

// ErrInvalidLimit is returned for a negative limit or non-positive width.
var ErrInvalidLimit = errors.New("ranking: invalid limit")

const ellipsis = "…"

// Candidate is one line eligible for selection.
type Candidate struct {
	UniqueSources int
	HasDate       bool
	DomainCount   int
	Updated       bool
	Text          string
	Citations     []int
	Domains       []string
	Topic         string
	Position      int
}

// Entry is a selected, rendered line.
type Entry struct {
	Priority int
	Text     string
	Domains  []string
	Topic    string
	Position int
}

// Priority weights a candidate for selection.
func Priority(c Candidate) int {
	p := 5*c.UniqueSources + 10*c.DomainCount
	if c.Updated {
		p += 30
	}
	if c.HasDate {
		p += 10
	}
	return p
}

// Select orders candidates by priority, highest first, with ties kept in
// ascending Position, and returns at most limit rendered entries. Text is
// cut to maxChars on a word boundary before the citation suffix is added.
func Select(cands []Candidate, limit, maxChars int) ([]Entry, error) {
	if limit < 0 || maxChars <= 0 {
		return nil, ErrInvalidLimit
	}

	entries := make([]Entry, len(cands))
	for i, c := range cands {
		entries[i] = Entry{
			Priority: Priority(c),
			Text:     render(c, maxChars),
			Domains:  c.Domains,
			Topic:    c.Topic,
			Position: c.Position,
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Position < entries[j].Position
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// ToItems converts entries to the rendered model.
func ToItems(entries []Entry) []models.RankedItem {
	items := make([]models.RankedItem, len(entries))
	for i, e := range entries {
		items[i] = models.RankedItem{
			Text:     e.Text,
			Priority: e.Priority,
			Domains:  e.Domains,
			Topic:    e.Topic,
		}
	}
	return items
}

// Truncate shortens text to at most maxChars runes, breaking on a word
// boundary and ending with an ellipsis when anything was removed. A first
// word longer than maxChars is cut hard.
func Truncate(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	if maxChars <= 1 {
		return ellipsis
	}

	budget := maxChars - 1
	cut := budget
	if !unicode.IsSpace(runes[budget]) {
		for cut > 0 && !unicode.IsSpace(runes[cut-1]) {
			cut--
		}
		if cut == 0 {
			cut = budget
		}
	}

	head := strings.TrimRightFunc(string(runes[:cut]), func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(",;:-", r)
	})
	if head == "" {
		head = string(runes[:budget])
	}
	return head + ellipsis
}

func render(c Candidate, maxChars int) string {
	body := Truncate(citations.StripTrailing(c.Text), maxChars)
	suffix := citations.Suffix(c.Citations)
	if suffix == "" {
		return body
	}
	return body + " " + suffix
}

// FromStories builds candidates from stories, resolving source domains
// through the tracker.
func FromStories(topic string, stories []models.Story, tr *citations.Tracker) []Candidate {
	cands := make([]Candidate, 0, len(stories))
	for i, s := range stories {
		cites := citations.Normalize(s.SourceIndices)
		_, hasDate := scoring.ParseDate(s.Date)
		domains := domainsOf(cites, tr)
		cands = append(cands, Candidate{
			UniqueSources: len(cites),
			HasDate:       hasDate,
			DomainCount:   len(domains),
			Updated:       s.Updated,
			Text:          s.Headline,
			Citations:     cites,
			Domains:       domains,
			Topic:         topic,
			Position:      i,
		})
	}
	return cands
}

// FromBullets builds candidates from cluster bullets in reading order.
func FromBullets(topic string, clusters []models.Cluster, tr *citations.Tracker) []Candidate {
	var cands []Candidate
	pos := 0
	for _, cl := range clusters {
		for _, b := range cl.Bullets {
			cites := citations.Normalize(b.Citations)
			_, hasDate := scoring.ParseDate(b.Date)
			domains := domainsOf(cites, tr)
			cands = append(cands, Candidate{
				UniqueSources: len(cites),
				HasDate:       hasDate,
				DomainCount:   len(domains),
				Text:          b.Text,
				Citations:     cites,
				Domains:       domains,
				Topic:         topic,
				Position:      pos,
			})
			pos++
		}
	}
	return cands
}

func domainsOf(cites []int, tr *citations.Tracker) []string {
	if tr == nil {
		return nil
	}
	urls := make([]string, 0, len(cites))
	for _, idx := range cites {
		if ref, ok := tr.Lookup(idx); ok {
			urls = append(urls, ref.URL)
		}
	}
	return common.DistinctDomains(urls)
}
