package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sulu/sulu-sub013/config"
	"github.com/sulu/sulu-sub013/migrations"
)

var postgresDialect = &sqlDialect{
	isConflict: func(err error) bool {
		var pqErr *pq.Error
		if !errors.As(err, &pqErr) {
			return false
		}
		switch pqErr.Code {
		case "23505", // unique_violation
			"40001", // serialization_failure
			"40P01": // deadlock_detected
			return true
		}
		return false
	},
}

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db     *sqlx.DB
	config *config.DatabaseConfig
	dsn    string
}

// NewPostgresStore creates a new PostgreSQL store from the database
// configuration of cfgProvider
func NewPostgresStore(ctx context.Context, cfgProvider config.Provider) (*PostgresStore, error) {
	cfg, err := config.GetDatabaseConfig(ctx, cfgProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to get database config: %w", err)
	}

	return &PostgresStore{
		config: cfg,
	}, nil
}

// NewPostgresStoreFromDSN creates a PostgreSQL store for a ready-made
// connection string
func NewPostgresStoreFromDSN(dsn string) *PostgresStore {
	return &PostgresStore{dsn: dsn}
}

func (s *PostgresStore) connectionString() string {
	if s.dsn != "" {
		return s.dsn
	}
	return s.config.DSN()
}

// Initialize sets up the PostgreSQL database
func (s *PostgresStore) Initialize(ctx context.Context) error {
	// Open database connection
	db, err := sqlx.Open("postgres", s.connectionString())
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("error pinging database: %w", err)
	}

	// Run migrations
	if err := migrations.Up(db.DB, migrations.Postgres); err != nil {
		db.Close()
		return err
	}

	s.db = db
	return nil
}

// Cleanup closes the database connection
func (s *PostgresStore) Cleanup(ctx context.Context) error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Begin opens a serializable transaction. Concurrent writers that would
// observe each other's changes fail with a *ConflictError on commit.
func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	if s.db == nil {
		return nil, fmt.Errorf("postgres store is not initialized")
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("error beginning transaction: %w", err)
	}
	return &sqlTx{tx: tx, dialect: postgresDialect}, nil
}
