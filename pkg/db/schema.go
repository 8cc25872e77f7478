package db

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Snapshots: latest persisted state per story identity, replaced each run
CREATE TABLE IF NOT EXISTS snapshots (
    story_key TEXT PRIMARY KEY,
    topic TEXT NOT NULL DEFAULT '',
    headline TEXT NOT NULL DEFAULT '',
    blob BLOB NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_snapshots_topic ON snapshots(topic);
CREATE INDEX IF NOT EXISTS idx_snapshots_updated ON snapshots(updated_at);

-- Runs: one row per digest run
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    topic_count INTEGER DEFAULT 0,
    source_count INTEGER DEFAULT 0,
    story_count INTEGER DEFAULT 0,
    updated_count INTEGER DEFAULT 0,
    warning_count INTEGER DEFAULT 0,
    output_path TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

-- Story changes: diff outcome per story per run
CREATE TABLE IF NOT EXISTS story_changes (
    change_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    story_key TEXT NOT NULL,
    topic TEXT NOT NULL,
    headline TEXT,
    kind TEXT NOT NULL,               -- new, content_updated, date_changed, refreshed, unchanged
    summary TEXT,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_story_changes_run ON story_changes(run_id);
CREATE INDEX IF NOT EXISTS idx_story_changes_key ON story_changes(story_key);
`
