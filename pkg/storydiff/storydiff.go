// Package storydiff detects how a story changed since the previous run.
package storydiff

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/dtnitsch/news-digest/internal/common"
	"github.com/dtnitsch/news-digest/models"
	"github.com/dtnitsch/news-digest/pkg/citations"
)

// Kind classifies a change, in precedence order.
type Kind string

const (
	KindNew            Kind = "new"
	KindContentUpdated Kind = "content_updated"
	KindDateChanged    Kind = "date_changed"
	KindRefreshed      Kind = "refreshed"
	KindUnchanged      Kind = "unchanged"
)

// DateEvent describes what happened to the story date.
type DateEvent string

const (
	DateNone    DateEvent = ""
	DateAdded   DateEvent = "added"
	DateChanged DateEvent = "changed"
)

// Change is the structured result of comparing a story to its snapshot.
type Change struct {
	Kind         Kind
	Added        []string
	Removed      []string
	DateEvent    DateEvent
	PreviousDate string
	CurrentDate  string
	Summary      string
}

// MarksUpdated reports whether the story should be flagged as updated.
// New and unchanged stories are not.
func (c Change) MarksUpdated() bool {
	switch c.Kind {
	case KindContentUpdated, KindDateChanged, KindRefreshed:
		return true
	}
	return false
}

// Key returns the identity of a story: the topic plus the first
// canonicalizable URL, or the topic plus the headline.
func Key(topic, headline string, urls []string) string {
	if key, ok := urlKey(topic, urls); ok {
		return key
	}
	return titleKey(topic, headline)
}

// Keys returns one key per story, unique within the topic. Stories whose
// URL keys collide fall back to their headline, and repeated headlines
// get an ordinal suffix.
func Keys(topic string, stories []models.Story) []string {
	keys := make([]string, len(stories))
	byURL := make(map[string]int, len(stories))
	for i, s := range stories {
		keys[i] = Key(topic, s.Headline, s.URLs)
		byURL[keys[i]]++
	}

	seen := make(map[string]int, len(stories))
	for i, s := range stories {
		if _, ok := urlKey(topic, s.URLs); ok && byURL[keys[i]] > 1 {
			keys[i] = titleKey(topic, s.Headline)
		}
		seen[keys[i]]++
		if n := seen[keys[i]]; n > 1 {
			keys[i] = fmt.Sprintf("%s#%d", keys[i], n)
		}
	}
	return keys
}

func urlKey(topic string, urls []string) (string, bool) {
	for _, u := range urls {
		if canon := common.CanonicalURL(u); canon != "" {
			return common.Slugify(topic) + "|url::" + canon, true
		}
	}
	return "", false
}

func titleKey(topic, headline string) string {
	return common.Slugify(topic) + "|title::" + common.Slugify(headline)
}

// Diff compares current with previous. A nil previous means the story
// was not in the last run.
func Diff(current models.Story, previous *models.DigestSnapshot) Change {
	if previous == nil {
		return Change{
			Kind:        KindNew,
			CurrentDate: current.Date,
			Summary:     "new story",
		}
	}

	cur := bulletSet(bulletTexts(current.Bullets))
	prev := bulletSet(previous.Bullets)

	ch := Change{
		Added:        difference(cur, prev),
		Removed:      difference(prev, cur),
		PreviousDate: previous.Date,
		CurrentDate:  current.Date,
	}

	var dateMsg string
	switch {
	case previous.Date == "" && current.Date != "":
		ch.DateEvent = DateAdded
		dateMsg = fmt.Sprintf("date added (%s)", current.Date)
	case previous.Date != "" && current.Date != "" && previous.Date != current.Date:
		ch.DateEvent = DateChanged
		dateMsg = fmt.Sprintf("date changed (from %s to %s)", previous.Date, current.Date)
	}

	switch {
	case len(ch.Added) > 0 || len(ch.Removed) > 0:
		ch.Kind = KindContentUpdated
		ch.Summary = fmt.Sprintf("content updated: %d new, %d removed", len(ch.Added), len(ch.Removed))
	case ch.DateEvent != DateNone:
		ch.Kind = KindDateChanged
		ch.Summary = dateMsg
	case !slices.Equal(storyCitations(current), citations.Normalize(previous.Citations)):
		ch.Kind = KindRefreshed
		ch.Summary = "content refreshed"
	default:
		ch.Kind = KindUnchanged
		ch.Summary = "no change"
	}
	return ch
}

// Snapshot builds the state persisted for s under key. It replaces any
// earlier snapshot for the key.
func Snapshot(key, topic string, s models.Story, now time.Time) models.DigestSnapshot {
	set := bulletSet(bulletTexts(s.Bullets))
	bullets := make([]string, 0, len(set))
	for b := range set {
		bullets = append(bullets, b)
	}
	sort.Strings(bullets)

	return models.DigestSnapshot{
		Key:       key,
		Topic:     topic,
		Headline:  s.Headline,
		Bullets:   bullets,
		Date:      s.Date,
		Citations: storyCitations(s),
		SavedAt:   now.UTC(),
	}
}

// NormalizeBullet strips citation markers and collapses whitespace.
func NormalizeBullet(text string) string {
	return citations.StripMarkers(text)
}

func bulletTexts(bullets []models.Bullet) []string {
	texts := make([]string, len(bullets))
	for i, b := range bullets {
		texts[i] = b.Text
	}
	return texts
}

func bulletSet(texts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(texts))
	for _, t := range texts {
		if n := NormalizeBullet(t); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func difference(a, b map[string]struct{}) []string {
	var out []string
	for k := range a {
		if _, ok := b[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func storyCitations(s models.Story) []int {
	all := slices.Clone(s.SourceIndices)
	for _, b := range s.Bullets {
		all = append(all, b.Citations...)
	}
	return citations.Normalize(all)
}
