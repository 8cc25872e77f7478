// Package scoring computes story importance and confidence tiers.
package scoring

import (
	"strings"
	"time"

	"github.com/dtnitsch/news-digest/models"
)

const (
	maxCorroboration = 40
	maxDepth         = 20
	maxImportance    = 100

	updatedRecency = 30
	weekRecency    = 20
	monthRecency   = 10

	// Dates further ahead than this are treated as bogus and earn no recency.
	futureSkew = 24 * time.Hour
)

// Breakdown holds the additive components of an importance score.
type Breakdown struct {
	Corroboration int
	Recency       int
	Depth         int
}

// Total returns the capped importance score.
func (b Breakdown) Total() int {
	return min(b.Corroboration+b.Recency+b.Depth, maxImportance)
}

// Score returns the component breakdown for s as of now.
func Score(s models.Story, now time.Time) Breakdown {
	return Breakdown{
		Corroboration: min(10*len(s.SourceIndices), maxCorroboration),
		Recency:       recency(s, now),
		Depth:         min(5*len(s.Bullets), maxDepth),
	}
}

// Importance returns the importance score of s in [0,100].
func Importance(s models.Story, now time.Time) int {
	return Score(s, now).Total()
}

// Confidence maps a distinct source count to a tier.
func Confidence(sourceCount int) models.ConfidenceTier {
	switch {
	case sourceCount >= 4:
		return models.ConfidenceHigh
	case sourceCount >= 2:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// Annotate returns a copy of s with Importance and Confidence set.
func Annotate(s models.Story, now time.Time) models.Story {
	s.Importance = Importance(s, now)
	s.Confidence = Confidence(len(s.SourceIndices))
	return s
}

// ParseDate parses a YYYY-MM-DD date, optionally followed by a time part.
// Anything else is reported as absent.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if len(value) < len("2006-01-02") {
		return time.Time{}, false
	}
	d, err := time.Parse("2006-01-02", value[:10])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func recency(s models.Story, now time.Time) int {
	if s.Updated {
		return updatedRecency
	}
	d, ok := ParseDate(s.Date)
	if !ok {
		return 0
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	age := today.Sub(d)
	switch {
	case age < -futureSkew:
		return 0
	case age <= 7*24*time.Hour:
		return weekRecency
	case age <= 30*24*time.Hour:
		return monthRecency
	default:
		return 0
	}
}
