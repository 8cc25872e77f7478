package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/dtnitsch/news-digest/models"
)

// SnapshotInfo is a stored snapshot row without its blob.
type SnapshotInfo struct {
	Key       string
	Topic     string
	Headline  string
	SizeBytes int
	UpdatedAt time.Time
}

// Get returns the snapshot blob stored under key. Unknown keys, and keys
// older than the snapshot TTL, report ok=false with a nil error.
func (db *DB) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query, args, err := sq.Select("blob", "updated_at").
		From("snapshots").
		Where(sq.Eq{"story_key": key}).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("failed to build snapshot query: %w", err)
	}

	var blob []byte
	var updatedAt time.Time
	err = db.QueryRowContext(ctx, query, args...).Scan(&blob, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get snapshot: %w", err)
	}
	if db.snapshotTTL > 0 && time.Since(updatedAt) > db.snapshotTTL {
		return nil, false, nil
	}
	return blob, true, nil
}

// Put stores blob under key, replacing any previous snapshot.
func (db *DB) Put(ctx context.Context, key string, blob []byte) error {
	// Topic and headline are denormalized for listing; a blob that does not
	// decode is still stored.
	var meta models.DigestSnapshot
	_ = json.Unmarshal(blob, &meta)

	query, args, err := sq.Insert("snapshots").
		Columns("story_key", "topic", "headline", "blob").
		Values(key, meta.Topic, meta.Headline, blob).
		Suffix(`ON CONFLICT(story_key) DO UPDATE SET
			topic = excluded.topic,
			headline = excluded.headline,
			blob = excluded.blob,
			updated_at = CURRENT_TIMESTAMP`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build snapshot upsert: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns stored snapshots, most recently updated first.
// An empty topic lists every topic; limit <= 0 means no limit.
func (db *DB) ListSnapshots(ctx context.Context, topic string, limit int) ([]SnapshotInfo, error) {
	builder := sq.Select("story_key", "topic", "headline", "length(blob)", "updated_at").
		From("snapshots").
		OrderBy("updated_at DESC", "story_key")
	if topic != "" {
		builder = builder.Where(sq.Eq{"topic": topic})
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot list query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var s SnapshotInfo
		if err := rows.Scan(&s.Key, &s.Topic, &s.Headline, &s.SizeBytes, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		infos = append(infos, s)
	}

	return infos, rows.Err()
}

// DeleteSnapshots removes every snapshot for topic and returns the count.
// An empty topic removes all snapshots.
func (db *DB) DeleteSnapshots(ctx context.Context, topic string) (int64, error) {
	builder := sq.Delete("snapshots")
	if topic != "" {
		builder = builder.Where(sq.Eq{"topic": topic})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build snapshot delete: %w", err)
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete snapshots: %w", err)
	}
	return res.RowsAffected()
}
