package manifest

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/news-digest/models"
	"github.com/dtnitsch/news-digest/pkg/dedup"
	"github.com/dtnitsch/news-digest/pkg/storage"
)

func TestFromDigest(t *testing.T) {
	d := models.Digest{
		RunID:       "run-1",
		GeneratedAt: time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC),
		Timezone:    "UTC",
		Sources:     make([]models.SourceRef, 4),
		TopDomains:  []string{"reuters.com:3"},
		Topics: []models.Topic{
			{
				Name: "Markets",
				Clusters: []models.Cluster{
					{Heading: "a", Flag: models.CoherenceCoherent},
					{Heading: "b", Flag: models.CoherenceLooselyRelated},
				},
				Stories: []models.Story{{Headline: "Rates", Updated: true}, {Headline: "Oil"}},
				Stats:   models.TopicStats{TotalBullets: 4, CorroboratedBullets: 1, CoverageDomains: 3},
				Changes: []models.StoryChange{
					{Headline: "Rates", Summary: "content updated: 1 new, 0 removed"},
					{Headline: "Oil", Summary: "new story"},
				},
				Warnings: []string{"dropping bullet without citations"},
			},
			{Name: "Sport"},
		},
	}

	m := FromDigest(d, "out/digest.json")

	if m.RunID != "run-1" || m.GeneratedAt != "2024-06-15T08:00:00Z" || m.Output != "out/digest.json" {
		t.Errorf("header = %+v", m)
	}
	if m.Topics != 2 || m.Sources != 4 || m.Stories != 2 || m.Updated != 1 || m.Warnings != 1 {
		t.Errorf("counts = topics %d sources %d stories %d updated %d warnings %d",
			m.Topics, m.Sources, m.Stories, m.Updated, m.Warnings)
	}

	ts := m.TopicSummaries[0]
	if ts.LooselyRelated != 1 || ts.CorroborationRate != 0.25 {
		t.Errorf("topic summary = %+v", ts)
	}
	if len(ts.Changes) != 2 || ts.Changes[0] != "Rates: content updated: 1 new, 0 removed" {
		t.Errorf("Changes = %v", ts.Changes)
	}
	if m.TopicSummaries[1].CorroborationRate != 0 {
		t.Errorf("empty topic rate = %v", m.TopicSummaries[1].CorroborationRate)
	}
}

func TestFromPages(t *testing.T) {
	published := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
	a := models.SourcePage{URL: "https://a.com/1", Domain: "a.com", Content: "one two three", Language: "en", PublishedAt: &published}
	b := models.SourcePage{URL: "https://b.com/1", Domain: "b.com", Content: "one two three"}
	c := models.SourcePage{URL: "https://a.com/2", Domain: "a.com", Content: "other"}

	results := []PageResult{
		{Path: "a.html", Page: &a},
		{Path: "b.html", Page: &b},
		{Path: "c.html", Page: &c},
		{Path: "bad.html", Error: errors.New("no readable content"), ErrorType: "parse_error"},
	}
	res := dedup.Result{
		Kept:    []models.SourcePage{a, c},
		Dropped: []dedup.Dropped{{Page: b, DuplicateOf: a.URL, Similarity: 1}},
	}

	m := FromPages("markets", results, res, []models.SourcePage{a}, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))

	if m.TotalFiles != 4 || m.Parsed != 3 || m.Failed != 1 || m.Duplicates != 1 || m.Triaged != 1 || m.Kept != 1 {
		t.Errorf("counts = %+v", m)
	}
	wantStatus := []string{"kept", "duplicate", "triaged", "error"}
	for i, want := range wantStatus {
		if m.Results[i].Status != want {
			t.Errorf("Results[%d].Status = %q, want %q", i, m.Results[i].Status, want)
		}
	}
	if m.Results[0].WordCount != 3 || m.Results[0].Published != "2024-06-14" {
		t.Errorf("Results[0] = %+v", m.Results[0])
	}
	if m.Results[1].DuplicateOf != a.URL {
		t.Errorf("Results[1].DuplicateOf = %q", m.Results[1].DuplicateOf)
	}
	if m.Results[3].ErrorType != "parse_error" {
		t.Errorf("Results[3] = %+v", m.Results[3])
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	s := &storage.Storage{}

	path, err := Write(s, dir, "manifest.yaml", RunManifest{RunID: "run-1", Topics: 2})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if path != filepath.Join(dir, "manifest.yaml") {
		t.Errorf("path = %q", path)
	}

	data, err := s.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "run_id: run-1") {
		t.Errorf("manifest = %s", data)
	}

	var back RunManifest
	if err := yaml.Unmarshal(data, &back); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if back.Topics != 2 {
		t.Errorf("Topics = %d, want 2", back.Topics)
	}
}
