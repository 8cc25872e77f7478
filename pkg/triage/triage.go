// Package triage trims and orders a topic's fetched pages before
// near-duplicate filtering.
package triage

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/dtnitsch/news-digest/internal/common"
	"github.com/dtnitsch/news-digest/models"
)

// DefaultMinDomains is the domain mix Diversify aims for.
const DefaultMinDomains = 2

// recencyPrefix bounds how much page content is scanned for date hints.
const recencyPrefix = 1000

var isoDatePattern = regexp.MustCompile(`\b((?:19|20)\d{2})-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])\b`)

// Options configures Triage.
type Options struct {
	MinDomains int
	Logger     *slog.Logger
}

// Triage drops pages with duplicate titles, keeps a mix of domains and
// orders the survivors newest first.
func Triage(pages []models.SourcePage, opts Options) []models.SourcePage {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	minDomains := opts.MinDomains
	if minDomains == 0 {
		minDomains = DefaultMinDomains
	}

	deduped := DedupeTitles(pages)
	diverse := Diversify(deduped, minDomains)
	ordered := OrderByRecency(diverse)

	logger.With("component", "triage").Debug("pages triaged",
		"input", len(pages),
		"after_titles", len(deduped),
		"output", len(ordered))
	return ordered
}

// DedupeTitles keeps the first page for each title, comparing titles by
// their lower-cased letters and digits only.
func DedupeTitles(pages []models.SourcePage) []models.SourcePage {
	seen := make(map[string]bool, len(pages))
	out := make([]models.SourcePage, 0, len(pages))
	for _, p := range pages {
		key := titleKey(p.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

func titleKey(title string) string {
	var sb strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
		}
	}
	return sb.String()
}

// Diversify keeps the first page of each domain. When that yields fewer
// than minDomains domains, the remaining pages are appended in order until
// the target is met or the pages run out.
func Diversify(pages []models.SourcePage, minDomains int) []models.SourcePage {
	if len(pages) == 0 || minDomains <= 1 {
		return pages
	}

	picked := make([]bool, len(pages))
	seen := make(map[string]bool)
	var out []models.SourcePage
	for i, p := range pages {
		d := domainOf(p)
		if seen[d] {
			continue
		}
		seen[d] = true
		picked[i] = true
		out = append(out, p)
	}
	if len(seen) >= minDomains {
		return out
	}

	for i, p := range pages {
		if picked[i] {
			continue
		}
		out = append(out, p)
		seen[domainOf(p)] = true
		if len(seen) >= minDomains {
			break
		}
	}
	return out
}

func domainOf(p models.SourcePage) string {
	if p.Domain != "" {
		return p.Domain
	}
	return common.DomainOf(p.URL)
}

// OrderByRecency sorts pages by their publication date, or else the latest
// ISO date in the title and start of the content, newest first. Pages
// without any date keep their relative order at the end.
func OrderByRecency(pages []models.SourcePage) []models.SourcePage {
	type scored struct {
		page   models.SourcePage
		latest time.Time
	}
	items := make([]scored, len(pages))
	for i, p := range pages {
		items[i] = scored{page: p, latest: RecencyHint(p)}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].latest.After(items[j].latest)
	})

	out := make([]models.SourcePage, len(items))
	for i, it := range items {
		out[i] = it.page
	}
	return out
}

// RecencyHint returns the date a page most likely refers to, or the zero
// time when it carries none.
func RecencyHint(p models.SourcePage) time.Time {
	if p.PublishedAt != nil {
		return *p.PublishedAt
	}
	content := []rune(p.Content)
	if len(content) > recencyPrefix {
		content = content[:recencyPrefix]
	}

	var latest time.Time
	for _, m := range isoDatePattern.FindAllStringSubmatch(p.Title+"\n"+string(content), -1) {
		d, err := time.Parse("2006-01-02", m[1]+"-"+m[2]+"-"+m[3])
		if err != nil {
			continue
		}
		if d.After(latest) {
			latest = d
		}
	}
	return latest
}
