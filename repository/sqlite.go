package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/sulu/sulu-sub013/migrations"
)

var sqliteDialect = &sqlDialect{
	isConflict: func(err error) bool {
		var sqliteErr sqlite3.Error
		if !errors.As(err, &sqliteErr) {
			return false
		}
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return true
		}
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	},
}

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db     *sqlx.DB
	dbPath string
}

// DefaultSQLitePath returns the database file used when none is configured
func DefaultSQLitePath() string {
	// Default to data directory in user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".contenttree", "content.db")
}

// NewSQLiteStore creates a new SQLite store backed by the file at dbPath.
// An empty dbPath selects DefaultSQLitePath.
func NewSQLiteStore(dbPath string) *SQLiteStore {
	if dbPath == "" {
		dbPath = DefaultSQLitePath()
	}
	return &SQLiteStore{dbPath: dbPath}
}

// Initialize opens the database file and applies the schema migrations
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(s.dbPath), 0755); err != nil {
		return fmt.Errorf("error creating data directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_txlock=immediate&_busy_timeout=5000", s.dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}

	// SQLite allows a single writer; one connection keeps transactions serialised
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("error pinging database: %w", err)
	}

	if err := migrations.Up(db.DB, migrations.SQLite); err != nil {
		db.Close()
		return err
	}

	s.db = db
	return nil
}

// Cleanup closes the database connection
func (s *SQLiteStore) Cleanup(ctx context.Context) error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Begin opens an immediate transaction, taking the database write lock
func (s *SQLiteStore) Begin(ctx context.Context) (Tx, error) {
	if s.db == nil {
		return nil, fmt.Errorf("sqlite store is not initialized")
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error beginning transaction: %w", err)
	}
	return &sqlTx{tx: tx, dialect: sqliteDialect}, nil
}
