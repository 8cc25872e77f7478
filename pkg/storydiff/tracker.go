package storydiff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dtnitsch/news-digest/models"
)

// ErrNilStore is returned when a Tracker is built without a store.
var ErrNilStore = errors.New("storydiff: snapshot store is required")

// SnapshotStore is the key to blob contract used for prior-run state.
// Get reports ok=false, with a nil error, for unknown keys.
type SnapshotStore interface {
	Get(ctx context.Context, key string) (blob []byte, ok bool, err error)
	Put(ctx context.Context, key string, blob []byte) error
}

// Tracker loads snapshots, diffs stories against them and stages the
// replacement snapshots until Commit.
type Tracker struct {
	store  SnapshotStore
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	pending map[string]models.DigestSnapshot
}

// NewTracker creates a Tracker over store.
func NewTracker(store SnapshotStore, logger *slog.Logger) (*Tracker, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store:   store,
		logger:  logger.With("component", "storydiff"),
		now:     time.Now,
		pending: make(map[string]models.DigestSnapshot),
	}, nil
}

// Compare diffs story against the stored snapshot for key and stages the
// new snapshot. A missing or unreadable snapshot yields "new story". Keys
// come from Keys so that stories sharing a URL do not overwrite each other.
func (t *Tracker) Compare(ctx context.Context, key, topic string, story models.Story) (Change, error) {
	prev, err := t.load(ctx, key)
	if err != nil {
		return Change{}, err
	}

	ch := Diff(story, prev)
	t.logger.Debug("story compared", "key", key, "kind", ch.Kind, "summary", ch.Summary)

	t.mu.Lock()
	if _, dup := t.pending[key]; dup {
		t.logger.Warn("story key staged twice in one run", "key", key, "headline", story.Headline)
	}
	t.pending[key] = Snapshot(key, topic, story, t.now())
	t.mu.Unlock()

	return ch, nil
}

// Commit writes every staged snapshot and clears the stage.
func (t *Tracker) Commit(ctx context.Context) (int, error) {
	t.mu.Lock()
	staged := t.pending
	t.pending = make(map[string]models.DigestSnapshot)
	t.mu.Unlock()

	written := 0
	for key, snap := range staged {
		blob, err := Encode(snap)
		if err != nil {
			return written, err
		}
		if err := t.store.Put(ctx, key, blob); err != nil {
			return written, fmt.Errorf("failed to save snapshot %s: %w", key, err)
		}
		written++
	}
	t.logger.Info("snapshots committed", "count", written)
	return written, nil
}

func (t *Tracker) load(ctx context.Context, key string) (*models.DigestSnapshot, error) {
	blob, ok, err := t.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	snap, err := Decode(blob)
	if err != nil {
		t.logger.Warn("ignoring corrupt snapshot", "key", key, "error", err)
		return nil, nil
	}
	return &snap, nil
}

// Encode serializes a snapshot for storage.
func Encode(snap models.DigestSnapshot) ([]byte, error) {
	blob, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return blob, nil
}

// Decode parses a stored snapshot blob.
func Decode(blob []byte) (models.DigestSnapshot, error) {
	var snap models.DigestSnapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return snap, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}

// MemoryStore is an in-process SnapshotStore.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.blobs[key]
	return blob, ok, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), blob...)
	return nil
}
