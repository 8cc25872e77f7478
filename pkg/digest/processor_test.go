package digest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/dtnitsch/news-digest/models"
	"github.com/dtnitsch/news-digest/pkg/citations"
	"github.com/dtnitsch/news-digest/pkg/storydiff"
)

var fixedNow = time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)

func newTestProcessor(t *testing.T, store storydiff.SnapshotStore) (*Processor, *citations.Tracker) {
	t.Helper()
	tr := citations.NewTracker()
	p, err := NewProcessor(tr, store, Options{
		Config: models.DefaultDigestConfig(),
		Now:    func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("NewProcessor() error = %v", err)
	}
	return p, tr
}

func sources(n int) []models.RawSource {
	domains := []string{"reuters.com", "bbc.co.uk", "apnews.com", "ft.com", "nytimes.com", "lemonde.fr"}
	out := make([]models.RawSource, n)
	for i := range out {
		out[i] = models.RawSource{
			Title: fmt.Sprintf("Source %d", i+1),
			URL:   fmt.Sprintf("https://www.%s/story-%d", domains[i%len(domains)], i+1),
		}
	}
	return out
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestNewProcessor_Preconditions(t *testing.T) {
	if _, err := NewProcessor(nil, storydiff.NewMemoryStore(), Options{}); !errors.Is(err, ErrNilTracker) {
		t.Errorf("NewProcessor(nil tracker) error = %v, want ErrNilTracker", err)
	}
	if _, err := NewProcessor(citations.NewTracker(), nil, Options{}); !errors.Is(err, ErrNilStore) {
		t.Errorf("NewProcessor(nil store) error = %v, want ErrNilStore", err)
	}
}

func TestProcessTopic_ConfidenceAndImportanceOrdering(t *testing.T) {
	p, _ := newTestProcessor(t, storydiff.NewMemoryStore())

	raw := models.RawTopic{
		Name:    "Markets",
		Sources: sources(5),
		Stories: []models.RawStory{
			{
				Headline: "Five source story",
				Why:      "Widely reported.",
				Bullets: []models.RawBullet{
					{Text: "Claim one", Citations: seq(5)},
					{Text: "Claim two", Citations: []int{1}},
				},
			},
			{
				Headline: "Two source story",
				Bullets: []models.RawBullet{
					{Text: "Claim three", Citations: []int{1, 2}},
					{Text: "Claim four", Citations: []int{2}},
				},
			},
			{
				Headline: "One source story",
				Date:     "2099-01-01",
				Bullets: []models.RawBullet{
					{Text: "Claim five", Citations: []int{3}},
					{Text: "Claim six", Citations: []int{3}},
				},
			},
		},
	}

	topic, err := p.ProcessTopic(context.Background(), raw)
	if err != nil {
		t.Fatalf("ProcessTopic() error = %v", err)
	}
	if len(topic.Stories) != 3 {
		t.Fatalf("Stories = %d, want 3", len(topic.Stories))
	}

	wantTiers := []models.ConfidenceTier{models.ConfidenceHigh, models.ConfidenceMedium, models.ConfidenceLow}
	for i, s := range topic.Stories {
		if s.Confidence != wantTiers[i] {
			t.Errorf("Stories[%d].Confidence = %q, want %q", i, s.Confidence, wantTiers[i])
		}
		if s.Updated {
			t.Errorf("Stories[%d].Updated = true on first run", i)
		}
	}

	imp := []int{topic.Stories[0].Importance, topic.Stories[1].Importance, topic.Stories[2].Importance}
	if !(imp[0] > imp[1] && imp[1] > imp[2]) {
		t.Errorf("importance = %v, want strictly decreasing", imp)
	}

	for _, c := range topic.Changes {
		if c.Summary != "new story" {
			t.Errorf("change %q summary = %q, want new story", c.Headline, c.Summary)
		}
	}
}

func TestProcessTopic_SourceIndicesMatchBulletUnion(t *testing.T) {
	p, _ := newTestProcessor(t, storydiff.NewMemoryStore())

	topic, err := p.ProcessTopic(context.Background(), models.RawTopic{
		Name:    "Tech",
		Sources: sources(4),
		Stories: []models.RawStory{{
			Headline:      "Chip export rules",
			SourceIndices: []int{1, 2, 3, 4},
			Bullets: []models.RawBullet{
				{Text: "Rules tightened [3][1][1]"},
				{Text: "Vendors respond", Citations: []int{3}},
			},
		}},
	})
	if err != nil {
		t.Fatalf("ProcessTopic() error = %v", err)
	}

	s := topic.Stories[0]
	if !slices.Equal(s.SourceIndices, []int{1, 3}) {
		t.Errorf("SourceIndices = %v, want [1 3]", s.SourceIndices)
	}
	if s.Bullets[0].Text != "Rules tightened [1][3]" {
		t.Errorf("Bullets[0].Text = %q", s.Bullets[0].Text)
	}
	if len(s.URLs) != 2 {
		t.Errorf("URLs = %v, want 2 entries", s.URLs)
	}
}

func TestProcessTopic_CitationsRemappedAcrossTopics(t *testing.T) {
	p, tr := newTestProcessor(t, storydiff.NewMemoryStore())
	ctx := context.Background()

	first := models.RawTopic{
		Name:     "A",
		Sources:  []models.RawSource{{Title: "Shared", URL: "https://reuters.com/x"}},
		Clusters: []models.RawCluster{{Heading: "h", Bullets: []models.RawBullet{{Text: "claim [1]", Citations: []int{1}}}}},
	}
	second := models.RawTopic{
		Name: "B",
		Sources: []models.RawSource{
			{Title: "Other", URL: "https://bbc.co.uk/y"},
			{Title: "Shared", URL: "https://reuters.com/x"},
		},
		Clusters: []models.RawCluster{{Heading: "h", Bullets: []models.RawBullet{
			{Text: "both [1][2]", Citations: []int{1, 2}},
			{Text: "out of range [7]", Citations: []int{7}},
		}}},
	}

	if _, err := p.ProcessTopic(ctx, first); err != nil {
		t.Fatalf("ProcessTopic(first) error = %v", err)
	}
	topic, err := p.ProcessTopic(ctx, second)
	if err != nil {
		t.Fatalf("ProcessTopic(second) error = %v", err)
	}

	if tr.Len() != 2 {
		t.Errorf("tracker Len() = %d, want 2", tr.Len())
	}
	if len(topic.Clusters) != 1 || len(topic.Clusters[0].Bullets) != 1 {
		t.Fatalf("Clusters = %+v", topic.Clusters)
	}
	b := topic.Clusters[0].Bullets[0]
	if !slices.Equal(b.Citations, []int{1, 2}) || b.Text != "both [1][2]" {
		t.Errorf("bullet = %+v", b)
	}
	if len(topic.Warnings) != 1 || !strings.Contains(topic.Warnings[0], "without citations") {
		t.Errorf("Warnings = %v", topic.Warnings)
	}
	if topic.Stats.CorroboratedBullets != 1 || topic.Stats.CoverageDomains != 2 {
		t.Errorf("Stats = %+v", topic.Stats)
	}
}

func TestProcessTopic_ClusterHygiene(t *testing.T) {
	p, _ := newTestProcessor(t, storydiff.NewMemoryStore())

	var bullets []models.RawBullet
	for i := 0; i < 7; i++ {
		bullets = append(bullets, models.RawBullet{Text: fmt.Sprintf("claim %d", i), Citations: []int{1}})
	}
	long := strings.Repeat("word ", 100) + "[1]"

	topic, err := p.ProcessTopic(context.Background(), models.RawTopic{
		Name:    "Hygiene",
		Sources: sources(2),
		Clusters: []models.RawCluster{
			{Heading: "", Bullets: bullets},
			{Heading: "Long", Bullets: []models.RawBullet{{Text: long}}},
			{Heading: "Empty", Bullets: []models.RawBullet{{Text: "[1]", Citations: []int{1}}}},
			{Heading: "Split", Bullets: []models.RawBullet{
				{Text: "left", Citations: []int{1}},
				{Text: "right", Citations: []int{2}},
			}},
		},
	})
	if err != nil {
		t.Fatalf("ProcessTopic() error = %v", err)
	}

	if len(topic.Clusters) != 3 {
		t.Fatalf("Clusters = %d, want 3", len(topic.Clusters))
	}
	if topic.Clusters[0].Heading != "Summary" || len(topic.Clusters[0].Bullets) != 5 {
		t.Errorf("first cluster = %q with %d bullets", topic.Clusters[0].Heading, len(topic.Clusters[0].Bullets))
	}

	longText := topic.Clusters[1].Bullets[0].Text
	body := strings.TrimSuffix(longText, " [1]")
	if len([]rune(body)) > 320 || !strings.HasSuffix(longText, "[1]") {
		t.Errorf("long bullet not truncated with suffix: %d runes", len([]rune(body)))
	}

	split := topic.Clusters[2]
	if split.Flag != models.CoherenceLooselyRelated || split.Coherence != 0 {
		t.Errorf("split cluster = %v/%q, want 0/loosely_related", split.Coherence, split.Flag)
	}
	if split.Heading != "Split" {
		t.Errorf("heading mutated to %q", split.Heading)
	}
}

func TestProcessTopic_TopicCap(t *testing.T) {
	p, _ := newTestProcessor(t, storydiff.NewMemoryStore())
	p.cfg.MaxTopicBullets = 3

	topic, err := p.ProcessTopic(context.Background(), models.RawTopic{
		Name:    "Cap",
		Sources: sources(3),
		Clusters: []models.RawCluster{
			{Heading: "one", Bullets: []models.RawBullet{
				{Text: "single old", Citations: []int{1}},
				{Text: "corroborated", Citations: []int{1, 2}},
			}},
			{Heading: "two", Bullets: []models.RawBullet{
				{Text: "single dated 2024-06-10", Citations: []int{3}},
				{Text: "single plain", Citations: []int{2}},
				{Text: "corroborated wide", Citations: []int{1, 2, 3}},
			}},
		},
	})
	if err != nil {
		t.Fatalf("ProcessTopic() error = %v", err)
	}

	var got []string
	for _, c := range topic.Clusters {
		for _, b := range c.Bullets {
			got = append(got, citations.StripMarkers(b.Text))
		}
	}
	want := []string{"corroborated", "single dated 2024-06-10", "corroborated wide"}
	if !slices.Equal(got, want) {
		t.Errorf("capped bullets = %v, want %v", got, want)
	}
}

func TestProcessTopic_StoriesOnlyBecomeCluster(t *testing.T) {
	p, _ := newTestProcessor(t, storydiff.NewMemoryStore())

	topic, err := p.ProcessTopic(context.Background(), models.RawTopic{
		Name:    "Stories",
		Sources: sources(2),
		Stories: []models.RawStory{{
			Headline: "Budget passes",
			Why:      "Sets spending.",
			Bullets:  []models.RawBullet{{Text: "Vote held", Citations: []int{1, 2}}},
		}},
	})
	if err != nil {
		t.Fatalf("ProcessTopic() error = %v", err)
	}
	if len(topic.Clusters) != 1 || topic.Clusters[0].Heading != "Top Stories" {
		t.Fatalf("Clusters = %+v", topic.Clusters)
	}
	if got := topic.Clusters[0].Bullets[0].Text; got != "Budget passes - Sets spending. [1][2]" {
		t.Errorf("story bullet = %q", got)
	}
}

func TestProcessTopic_SecondRunMarksUpdated(t *testing.T) {
	store := storydiff.NewMemoryStore()
	ctx := context.Background()

	raw := models.RawTopic{
		Name:    "Markets",
		Sources: sources(2),
		Stories: []models.RawStory{{
			Headline: "Rates rise",
			Bullets:  []models.RawBullet{{Text: "Bank acts", Citations: []int{1}}},
		}},
	}

	p1, _ := newTestProcessor(t, store)
	t1, err := p1.ProcessTopic(ctx, raw)
	if err != nil {
		t.Fatalf("run 1 ProcessTopic() error = %v", err)
	}
	if _, err := p1.Finish(ctx, []models.Topic{t1}); err != nil {
		t.Fatalf("run 1 Finish() error = %v", err)
	}

	raw.Stories[0].Bullets = append(raw.Stories[0].Bullets, models.RawBullet{Text: "Markets fall", Citations: []int{2}})
	p2, _ := newTestProcessor(t, store)
	t2, err := p2.ProcessTopic(ctx, raw)
	if err != nil {
		t.Fatalf("run 2 ProcessTopic() error = %v", err)
	}

	s := t2.Stories[0]
	if !s.Updated || s.UpdateNote != "content updated: 1 new, 0 removed" {
		t.Errorf("story = updated %v, note %q", s.Updated, s.UpdateNote)
	}
	if s.Importance != 20+30+10 {
		t.Errorf("Importance = %d, want 60", s.Importance)
	}
	if len(t2.AtAGlance) != 1 || t2.AtAGlance[0].Priority != 30+10+20 {
		t.Errorf("AtAGlance = %+v", t2.AtAGlance)
	}
}

// runTopic processes raw as a complete single-topic run over store.
func runTopic(t *testing.T, store storydiff.SnapshotStore, raw models.RawTopic) models.Topic {
	t.Helper()
	ctx := context.Background()
	p, _ := newTestProcessor(t, store)
	topic, err := p.ProcessTopic(ctx, raw)
	if err != nil {
		t.Fatalf("ProcessTopic() error = %v", err)
	}
	if _, err := p.Finish(ctx, []models.Topic{topic}); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	return topic
}

func TestProcessTopic_SharedLeadSourceKeepsSeparateSnapshots(t *testing.T) {
	store := storydiff.NewMemoryStore()
	raw := models.RawTopic{
		Name:    "Markets",
		Sources: sources(3),
		Stories: []models.RawStory{
			{Headline: "Rates rise", Bullets: []models.RawBullet{{Text: "Bank acts", Citations: []int{1, 2}}}},
			{Headline: "Oil falls", Bullets: []models.RawBullet{{Text: "Supply cut", Citations: []int{1, 3}}}},
		},
	}

	first := runTopic(t, store, raw)
	if len(first.Changes) != 2 || first.Changes[0].Key == first.Changes[1].Key {
		t.Fatalf("run 1 changes = %+v, want two distinct keys", first.Changes)
	}
	for _, ch := range first.Changes {
		if _, ok, _ := store.Get(context.Background(), ch.Key); !ok {
			t.Errorf("snapshot for %q not stored", ch.Key)
		}
	}

	second := runTopic(t, store, raw)
	for i, s := range second.Stories {
		if s.Updated {
			t.Errorf("story %d %q marked updated on identical rerun: %q", i, s.Headline, s.UpdateNote)
		}
		if s.Importance != 20+5 {
			t.Errorf("story %d Importance = %d, want 25", i, s.Importance)
		}
		if second.Changes[i].Summary != "no change" {
			t.Errorf("story %d change = %q, want no change", i, second.Changes[i].Summary)
		}
	}
}

func TestProcessTopic_OlderSourceAddedKeepsIdentity(t *testing.T) {
	store := storydiff.NewMemoryStore()
	raw := models.RawTopic{
		Name:    "Markets",
		Sources: sources(2),
		Stories: []models.RawStory{{
			Headline: "Oil falls",
			Bullets:  []models.RawBullet{{Text: "Supply cut", Citations: []int{2}}},
		}},
	}
	first := runTopic(t, store, raw)

	raw.Stories[0].Bullets = append(raw.Stories[0].Bullets, models.RawBullet{Text: "Bank responds", Citations: []int{1}})
	second := runTopic(t, store, raw)

	if second.Changes[0].Key != first.Changes[0].Key {
		t.Errorf("key changed from %q to %q", first.Changes[0].Key, second.Changes[0].Key)
	}
	s := second.Stories[0]
	if !s.Updated || s.UpdateNote != "content updated: 1 new, 0 removed" {
		t.Errorf("story = updated %v, note %q", s.Updated, s.UpdateNote)
	}
	if !slices.Equal(s.SourceIndices, []int{1, 2}) {
		t.Errorf("SourceIndices = %v, want [1 2]", s.SourceIndices)
	}
}

func TestFinish(t *testing.T) {
	p, _ := newTestProcessor(t, storydiff.NewMemoryStore())
	ctx := context.Background()

	var topics []models.Topic
	for _, name := range []string{"One", "Two"} {
		topic, err := p.ProcessTopic(ctx, models.RawTopic{
			Name:    name,
			Sources: sources(3),
			Clusters: []models.RawCluster{{Heading: "h", Bullets: []models.RawBullet{
				{Text: name + " wide", Citations: []int{1, 2, 3}},
				{Text: name + " narrow", Citations: []int{1}},
			}}},
		})
		if err != nil {
			t.Fatalf("ProcessTopic(%s) error = %v", name, err)
		}
		topics = append(topics, topic)
	}

	d, err := p.Finish(ctx, topics)
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if d.RunID != p.RunID() || d.RunID == "" {
		t.Errorf("RunID = %q", d.RunID)
	}
	if len(d.Sources) != 3 {
		t.Errorf("Sources = %d, want 3", len(d.Sources))
	}
	if len(d.ExecutiveSummary) != 4 {
		t.Fatalf("ExecutiveSummary = %d, want 4", len(d.ExecutiveSummary))
	}
	if !strings.HasPrefix(d.ExecutiveSummary[0].Text, "One wide") || !strings.HasPrefix(d.ExecutiveSummary[1].Text, "Two wide") {
		t.Errorf("ExecutiveSummary order = %q, %q", d.ExecutiveSummary[0].Text, d.ExecutiveSummary[1].Text)
	}
	if len(d.TopDomains) == 0 || d.TopDomains[0] != "reuters.com:4" {
		t.Errorf("TopDomains = %v", d.TopDomains)
	}
	if d.Timezone != "UTC" {
		t.Errorf("Timezone = %q", d.Timezone)
	}
}

func TestTruncateSentence(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{"fits", "Short.", 20, "Short."},
		{"sentence boundary", "First sentence here. Second one is long", 30, "First sentence here."},
		{"word boundary", "alpha beta gamma delta", 12, "alpha beta…"},
	}
	for _, tt := range tests {
		if got := TruncateSentence(tt.text, tt.max); got != tt.want {
			t.Errorf("%s: TruncateSentence() = %q, want %q", tt.name, got, tt.want)
		}
	}
}
