package storydiff

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/dtnitsch/news-digest/models"
)

var now = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func bullets(texts ...string) []models.Bullet {
	out := make([]models.Bullet, len(texts))
	for i, t := range texts {
		out[i] = models.Bullet{Text: t, Citations: []int{1}}
	}
	return out
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name        string
		current     models.Story
		previous    *models.DigestSnapshot
		wantKind    Kind
		wantSummary string
		wantAdded   []string
		wantRemoved []string
	}{
		{
			name:        "no previous snapshot",
			current:     models.Story{Bullets: bullets("A [1]")},
			wantKind:    KindNew,
			wantSummary: "new story",
		},
		{
			name:        "added and removed",
			current:     models.Story{Bullets: bullets("A [1]", "C [2]")},
			previous:    &models.DigestSnapshot{Bullets: []string{"A", "B"}, Citations: []int{1}},
			wantKind:    KindContentUpdated,
			wantSummary: "content updated: 1 new, 1 removed",
			wantAdded:   []string{"C"},
			wantRemoved: []string{"B"},
		},
		{
			name:        "content change outranks date change",
			current:     models.Story{Bullets: bullets("A", "D"), Date: "2024-06-02"},
			previous:    &models.DigestSnapshot{Bullets: []string{"A"}, Date: "2024-06-01"},
			wantKind:    KindContentUpdated,
			wantSummary: "content updated: 1 new, 0 removed",
			wantAdded:   []string{"D"},
		},
		{
			name:        "date added",
			current:     models.Story{Bullets: bullets("A [1]"), Date: "2024-06-02"},
			previous:    &models.DigestSnapshot{Bullets: []string{"A"}, Citations: []int{1}},
			wantKind:    KindDateChanged,
			wantSummary: "date added (2024-06-02)",
		},
		{
			name:        "date changed",
			current:     models.Story{Bullets: bullets("A [1]"), Date: "2024-06-02"},
			previous:    &models.DigestSnapshot{Bullets: []string{"A"}, Date: "2024-05-30", Citations: []int{1}},
			wantKind:    KindDateChanged,
			wantSummary: "date changed (from 2024-05-30 to 2024-06-02)",
		},
		{
			name:        "date removed is not a date event",
			current:     models.Story{Bullets: bullets("A [1]")},
			previous:    &models.DigestSnapshot{Bullets: []string{"A"}, Date: "2024-05-30", Citations: []int{1}},
			wantKind:    KindUnchanged,
			wantSummary: "no change",
		},
		{
			name: "same text different citations",
			current: models.Story{
				Bullets:       []models.Bullet{{Text: "A [1][3]", Citations: []int{1, 3}}},
				SourceIndices: []int{1, 3},
			},
			previous:    &models.DigestSnapshot{Bullets: []string{"A"}, Citations: []int{1, 2}},
			wantKind:    KindRefreshed,
			wantSummary: "content refreshed",
		},
		{
			name:        "markers and spacing ignored",
			current:     models.Story{Bullets: bullets("Rates  rose [1]", "Rates rose [1][1]"), SourceIndices: []int{1}},
			previous:    &models.DigestSnapshot{Bullets: []string{"Rates rose [4]"}, Citations: []int{1}},
			wantKind:    KindUnchanged,
			wantSummary: "no change",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.current, tt.previous)
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", got.Kind, tt.wantKind)
			}
			if got.Summary != tt.wantSummary {
				t.Errorf("Summary = %q, want %q", got.Summary, tt.wantSummary)
			}
			if !slices.Equal(got.Added, tt.wantAdded) {
				t.Errorf("Added = %v, want %v", got.Added, tt.wantAdded)
			}
			if !slices.Equal(got.Removed, tt.wantRemoved) {
				t.Errorf("Removed = %v, want %v", got.Removed, tt.wantRemoved)
			}
		})
	}
}

func TestChange_MarksUpdated(t *testing.T) {
	tests := map[Kind]bool{
		KindNew:            false,
		KindUnchanged:      false,
		KindContentUpdated: true,
		KindDateChanged:    true,
		KindRefreshed:      true,
	}
	for kind, want := range tests {
		if got := (Change{Kind: kind}).MarksUpdated(); got != want {
			t.Errorf("MarksUpdated(%s) = %v, want %v", kind, got, want)
		}
	}
}

func TestKey(t *testing.T) {
	byURL := Key("UK Politics", "Budget vote", []string{"", "https://www.bbc.co.uk/news/1?utm_source=x"})
	if byURL != "uk-politics|url::https://bbc.co.uk/news/1" {
		t.Errorf("Key() by url = %q", byURL)
	}

	byTitle := Key("UK Politics", "Budget Vote!", nil)
	if byTitle != "uk-politics|title::budget-vote" {
		t.Errorf("Key() by title = %q", byTitle)
	}

	if Key("UK Politics", "Budget vote", nil) != byTitle {
		t.Error("Key() not stable across headline punctuation")
	}
}

func TestKeys(t *testing.T) {
	shared := "https://www.reuters.com/markets/1"
	tests := []struct {
		name    string
		stories []models.Story
		want    []string
	}{
		{
			name: "distinct urls",
			stories: []models.Story{
				{Headline: "Rates rise", URLs: []string{shared}},
				{Headline: "Oil falls", URLs: []string{"https://apnews.com/oil"}},
			},
			want: []string{"markets|url::https://reuters.com/markets/1", "markets|url::https://apnews.com/oil"},
		},
		{
			name: "shared url falls back to headlines",
			stories: []models.Story{
				{Headline: "Rates rise", URLs: []string{shared, "https://bbc.co.uk/a"}},
				{Headline: "Oil falls", URLs: []string{shared}},
				{Headline: "Gold flat", URLs: []string{"https://ft.com/gold"}},
			},
			want: []string{"markets|title::rates-rise", "markets|title::oil-falls", "markets|url::https://ft.com/gold"},
		},
		{
			name: "repeated headline gets ordinal",
			stories: []models.Story{
				{Headline: "Update"},
				{Headline: "update!"},
			},
			want: []string{"markets|title::update", "markets|title::update#2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Keys("Markets", tt.stories)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Keys() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSnapshot(t *testing.T) {
	s := models.Story{
		Headline: "Budget",
		Bullets:  []models.Bullet{{Text: "Z claim [2]", Citations: []int{2}}, {Text: "A claim [1]", Citations: []int{1, 1}}},
		Date:     "2024-06-01",
	}
	snap := Snapshot("k", "politics", s, now)
	if !slices.Equal(snap.Bullets, []string{"A claim", "Z claim"}) {
		t.Errorf("Bullets = %v", snap.Bullets)
	}
	if !slices.Equal(snap.Citations, []int{1, 2}) {
		t.Errorf("Citations = %v", snap.Citations)
	}
	if got := Diff(s, &snap); got.Kind != KindUnchanged {
		t.Errorf("Diff(story, own snapshot) = %q, want unchanged", got.Kind)
	}
}

func TestTracker_CompareCommit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tr, err := NewTracker(store, nil)
	if err != nil {
		t.Fatalf("NewTracker() error = %v", err)
	}

	story := models.Story{
		Headline: "Rates rise",
		URLs:     []string{"https://example.com/rates"},
		Bullets:  []models.Bullet{{Text: "A [1]", Citations: []int{1}}},
	}

	key := Keys("markets", []models.Story{story})[0]
	if !strings.Contains(key, "url::https://example.com/rates") {
		t.Errorf("key = %q", key)
	}

	ch, err := tr.Compare(ctx, key, "markets", story)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if ch.Kind != KindNew {
		t.Errorf("first run Kind = %q, want new", ch.Kind)
	}
	if n, err := tr.Commit(ctx); err != nil || n != 1 {
		t.Fatalf("Commit() = %d, %v", n, err)
	}
	if n, err := tr.Commit(ctx); err != nil || n != 0 {
		t.Errorf("second Commit() = %d, %v, want nothing staged", n, err)
	}

	story.Bullets = append(story.Bullets, models.Bullet{Text: "B [2]", Citations: []int{2}})
	ch, err = tr.Compare(ctx, key, "markets", story)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if ch.Summary != "content updated: 1 new, 0 removed" {
		t.Errorf("second run Summary = %q", ch.Summary)
	}
}

func TestTracker_CorruptSnapshotIsNew(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	key := Key("markets", "Rates", nil)
	_ = store.Put(ctx, key, []byte("{not json"))

	tr, _ := NewTracker(store, nil)
	ch, err := tr.Compare(ctx, key, "markets", models.Story{Headline: "Rates"})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if ch.Kind != KindNew {
		t.Errorf("Kind = %q, want new", ch.Kind)
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk gone")
}

func (failingStore) Put(context.Context, string, []byte) error {
	return errors.New("disk gone")
}

func TestTracker_Errors(t *testing.T) {
	if _, err := NewTracker(nil, nil); !errors.Is(err, ErrNilStore) {
		t.Errorf("NewTracker(nil) error = %v, want ErrNilStore", err)
	}

	tr, _ := NewTracker(failingStore{}, nil)
	if _, err := tr.Compare(context.Background(), "t|title::h", "t", models.Story{Headline: "h"}); err == nil {
		t.Error("Compare() expected store error")
	}
}
