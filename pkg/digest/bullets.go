package digest

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dtnitsch/news-digest/models"
	"github.com/dtnitsch/news-digest/pkg/citations"
	"github.com/dtnitsch/news-digest/pkg/ranking"
	"github.com/dtnitsch/news-digest/pkg/scoring"
)

var isoDatePattern = regexp.MustCompile(`\b((?:19|20)\d{2})[-/](0[1-9]|1[0-2])[-/](0[1-9]|[12]\d|3[01])\b`)

// remapper translates local source-table indices to run-wide indices.
type remapper struct {
	local map[int]int
	max   int
}

// citationsFor returns the run-wide citations of a raw bullet: its
// explicit list plus any in-range markers in its text. Unmapped
// indices are pruned.
func (r remapper) citationsFor(text string, explicit []int) []int {
	var out []int
	for _, idx := range append(append([]int(nil), explicit...), citations.Extract(text, r.max)...) {
		if g, ok := r.local[idx]; ok {
			out = append(out, g)
		}
	}
	return citations.Normalize(out)
}

// cleanText rewrites inline markers to run-wide indices, tidies spacing,
// truncates the claim and re-appends the normalized suffix.
func (r remapper) cleanText(text string, cites []int, maxChars int) string {
	body := citations.StripTrailing(citations.Remap(text, r.local))
	body = strings.Join(strings.Fields(body), " ")
	body = TruncateSentence(body, maxChars)
	return citations.EnsureSuffix(body, cites)
}

// TruncateSentence shortens text to maxChars runes, preferring to end on a
// sentence boundary in the second half of the budget and otherwise on a
// word boundary with an ellipsis.
func TruncateSentence(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	window := string(runes[:maxChars])

	best := -1
	for _, end := range []string{". ", "! ", "? "} {
		if i := strings.LastIndex(window, end); i > best {
			best = i
		}
	}
	if best >= 0 && utf8.RuneCountInString(window[:best+1]) >= maxChars/2 {
		return window[:best+1]
	}
	return ranking.Truncate(text, maxChars)
}

// latestDate returns the most recent valid date on a bullet, from its
// date field or ISO dates in its text.
func latestDate(b models.Bullet) time.Time {
	var latest time.Time
	if d, ok := scoring.ParseDate(b.Date); ok {
		latest = d
	}
	for _, m := range isoDatePattern.FindAllStringSubmatch(b.Text, -1) {
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

// clampClusters keeps at most perCluster bullets in each cluster and
// drops empty clusters. Missing headings become "Summary".
func clampClusters(clusters []models.Cluster, perCluster int) []models.Cluster {
	out := make([]models.Cluster, 0, len(clusters))
	for _, c := range clusters {
		if len(c.Bullets) == 0 {
			continue
		}
		if len(c.Bullets) > perCluster {
			c.Bullets = c.Bullets[:perCluster]
		}
		if strings.TrimSpace(c.Heading) == "" {
			c.Heading = "Summary"
		}
		out = append(out, c)
	}
	return out
}

// capTopic keeps at most limit bullets across clusters. Survivors are
// chosen by corroboration (two or more citations), then latest date, then
// citation count, then shorter text, then reading order. Reading order is
// preserved in the result.
func capTopic(clusters []models.Cluster, limit int) ([]models.Cluster, int) {
	type entry struct {
		cluster, bullet int
		corroborated    bool
		latest          time.Time
		cites, length   int
		seq             int
	}

	var catalogue []entry
	seq := 0
	for ci, c := range clusters {
		for bi, b := range c.Bullets {
			n := len(citations.Normalize(b.Citations))
			catalogue = append(catalogue, entry{
				cluster:      ci,
				bullet:       bi,
				corroborated: n >= 2,
				latest:       latestDate(b),
				cites:        n,
				length:       utf8.RuneCountInString(b.Text),
				seq:          seq,
			})
			seq++
		}
	}
	if len(catalogue) <= limit {
		return clusters, 0
	}

	sort.SliceStable(catalogue, func(i, j int) bool {
		a, b := catalogue[i], catalogue[j]
		if a.corroborated != b.corroborated {
			return a.corroborated
		}
		if !a.latest.Equal(b.latest) {
			return a.latest.After(b.latest)
		}
		if a.cites != b.cites {
			return a.cites > b.cites
		}
		if a.length != b.length {
			return a.length < b.length
		}
		return a.seq < b.seq
	})

	keep := make(map[[2]int]bool, limit)
	for _, e := range catalogue[:limit] {
		keep[[2]int{e.cluster, e.bullet}] = true
	}

	var out []models.Cluster
	for ci, c := range clusters {
		var kept []models.Bullet
		for bi, b := range c.Bullets {
			if keep[[2]int{ci, bi}] {
				kept = append(kept, b)
			}
		}
		if len(kept) > 0 {
			c.Bullets = kept
			out = append(out, c)
		}
	}
	return out, len(catalogue) - limit
}
