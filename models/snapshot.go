package models

import "time"

// DigestSnapshot is the persisted prior-run state for one story identity.
// It is replaced wholesale every run.
type DigestSnapshot struct {
	Key       string    `json:"key" yaml:"key"`
	Topic     string    `json:"topic" yaml:"topic"`
	Headline  string    `json:"headline" yaml:"headline"`
	Bullets   []string  `json:"bullets" yaml:"bullets"` // citation-stripped, sorted
	Date      string    `json:"date,omitempty" yaml:"date,omitempty"`
	Citations []int     `json:"citations" yaml:"citations"`
	SavedAt   time.Time `json:"saved_at" yaml:"saved_at"`
}
