// Package db keeps story snapshots and the digest run log in SQLite.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	DefaultDBName = "news-digest.db"
	memoryPath    = ":memory:"
)

// Tables created by schema. Open re-applies the schema when any is missing.
var tables = []string{"snapshots", "runs", "story_changes"}

var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

// DB is the SQLite snapshot store and run log.
type DB struct {
	*sql.DB
	path        string
	snapshotTTL time.Duration
}

// openDB connects to dbPath and applies the connection pragmas.
func openDB(dbPath string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists only inside its connection.
	if dbPath == memoryPath {
		sqlDB.SetMaxOpenConns(1)
	}

	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return sqlDB, nil
}

// Open opens the snapshot database at path, creating the file and schema
// on first use. An empty path puts news-digest.db next to the binary.
func Open(path string) (*DB, error) {
	dbPath, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	sqlDB, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}

	db := &DB{DB: sqlDB, path: dbPath}
	if err := db.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

func resolvePath(path string) (string, error) {
	if path == memoryPath {
		return path, nil
	}
	if path == "" {
		execPath, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("failed to locate executable: %w", err)
		}
		path = filepath.Join(filepath.Dir(execPath), DefaultDBName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return path, nil
}

func (db *DB) ensureSchema(ctx context.Context) error {
	var found int
	query := "SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN (?, ?, ?)"
	if err := db.QueryRowContext(ctx, query, tables[0], tables[1], tables[2]).Scan(&found); err != nil {
		return fmt.Errorf("failed to check schema: %w", err)
	}
	if found == len(tables) {
		return nil
	}
	return db.InitSchema()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// SetSnapshotTTL makes Get ignore snapshots last written longer than ttl
// ago. Zero keeps snapshots forever.
func (db *DB) SetSnapshotTTL(ttl time.Duration) {
	if ttl < 0 {
		ttl = 0
	}
	db.snapshotTTL = ttl
}

// InitSchema creates any missing tables and indexes.
func (db *DB) InitSchema() error {
	_, err := db.Exec(schema)
	return err
}
