package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/dtnitsch/news-digest/models"
)

// Run represents one digest run
type Run struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   *time.Time
	TopicCount   int
	SourceCount  int
	StoryCount   int
	UpdatedCount int
	WarningCount int
	OutputPath   string
}

// ChangeRecord is a stored story change.
type ChangeRecord struct {
	RunID    string
	Topic    string
	Key      string
	Headline string
	Kind     string
	Summary  string
}

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// StartRun inserts a run row.
func (db *DB) StartRun(ctx context.Context, runID string, startedAt time.Time) error {
	query, args, err := sq.Insert("runs").
		Columns("run_id", "started_at").
		Values(runID, startedAt.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build run insert: %w", err)
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// FinishRun records the run totals.
func (db *DB) FinishRun(ctx context.Context, run Run) error {
	finished := time.Now().UTC()
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC()
	}

	query, args, err := sq.Update("runs").
		Set("finished_at", finished).
		Set("topic_count", run.TopicCount).
		Set("source_count", run.SourceCount).
		Set("story_count", run.StoryCount).
		Set("updated_count", run.UpdatedCount).
		Set("warning_count", run.WarningCount).
		Set("output_path", run.OutputPath).
		Where(sq.Eq{"run_id": run.RunID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build run update: %w", err)
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to finish run %s: %w", run.RunID, ErrRunNotFound)
	}
	return nil
}

// RecordChanges stores the story changes of one topic for a run.
func (db *DB) RecordChanges(ctx context.Context, runID, topic string, changes []models.StoryChange) error {
	if len(changes) == 0 {
		return nil
	}

	builder := sq.Insert("story_changes").
		Columns("run_id", "story_key", "topic", "headline", "kind", "summary")
	for _, c := range changes {
		builder = builder.Values(runID, c.Key, topic, c.Headline, c.Kind, c.Summary)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build change insert: %w", err)
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to record changes: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	query, args, err := runSelect().Where(sq.Eq{"run_id": runID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build run query: %w", err)
	}

	run, err := scanRun(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves runs ordered by most recent first
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	builder := runSelect().OrderBy("started_at DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build run list query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// ListChanges returns the story changes recorded for a run.
func (db *DB) ListChanges(ctx context.Context, runID string) ([]ChangeRecord, error) {
	query, args, err := sq.Select("run_id", "topic", "story_key", "headline", "kind", "summary").
		From("story_changes").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("change_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build change query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}
	defer rows.Close()

	var changes []ChangeRecord
	for rows.Next() {
		var c ChangeRecord
		var headline, summary sql.NullString
		if err := rows.Scan(&c.RunID, &c.Topic, &c.Key, &headline, &c.Kind, &summary); err != nil {
			return nil, fmt.Errorf("failed to scan change: %w", err)
		}
		c.Headline = headline.String
		c.Summary = summary.String
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func runSelect() sq.SelectBuilder {
	return sq.Select("run_id", "started_at", "finished_at", "topic_count", "source_count",
		"story_count", "updated_count", "warning_count", "output_path").
		From("runs")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var finished sql.NullTime
	var output sql.NullString
	if err := row.Scan(&r.RunID, &r.StartedAt, &finished, &r.TopicCount, &r.SourceCount,
		&r.StoryCount, &r.UpdatedCount, &r.WarningCount, &output); err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	r.OutputPath = output.String
	return &r, nil
}
