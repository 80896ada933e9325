package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	cfgpkg "github.com/sweetpotato0/deepresearch/config"
	errorspkg "github.com/sweetpotato0/deepresearch/errors"
	"github.com/sweetpotato0/deepresearch/research"
)

// PostgresStore persists research contexts in PostgreSQL as JSONB rows.
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DefaultPostgresConfig returns default PostgreSQL configuration.
func DefaultPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		DBName:   "deepresearch",
		SSLMode:  "disable",
	}
}

// NewPostgresStore creates a PostgreSQL-backed context store.
func NewPostgresStore(config *PostgresConfig) (*PostgresStore, error) {
	if config == nil {
		config = DefaultPostgresConfig()
	}
	if err := cfgpkg.ValidatePostgresConfig(config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.createTable(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return store, nil
}

// createTable creates the contexts table if it doesn't exist.
func (s *PostgresStore) createTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS research_contexts (
		id VARCHAR(255) PRIMARY KEY,
		query TEXT NOT NULL,
		context JSONB NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_research_contexts_query ON research_contexts(query);
	CREATE INDEX IF NOT EXISTS idx_research_contexts_updated_at ON research_contexts(updated_at);
	`

	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Save stores a new context and returns its id.
func (s *PostgresStore) Save(ctx context.Context, rc *research.ResearchContext) (string, error) {
	if rc == nil {
		return "", fmt.Errorf("context cannot be nil: %w", errorspkg.ErrInvalidInput)
	}

	id := newContextID()
	now := time.Now().UTC()
	if rc.CreatedAt.IsZero() {
		rc.CreatedAt = now
	}
	rc.UpdatedAt = now

	data, err := json.Marshal(rc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal context: %w", err)
	}

	query := `
	INSERT INTO research_contexts (id, query, context, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.db.ExecContext(ctx, query, id, rc.Query, string(data), rc.CreatedAt, rc.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to store context in PostgreSQL: %w", err)
	}
	return id, nil
}

// Get retrieves a context by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (*research.ResearchContext, error) {
	var data string
	query := `SELECT context FROM research_contexts WHERE id = $1`
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("context %s: %w", id, errorspkg.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get context: %w", err)
	}

	var rc research.ResearchContext
	if err := json.Unmarshal([]byte(data), &rc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context: %w", err)
	}
	return &rc, nil
}

// FindLatestByQuery returns the most recently updated context for the query,
// or nil when none matches.
func (s *PostgresStore) FindLatestByQuery(ctx context.Context, query string) (*research.ResearchContext, error) {
	var data string
	sqlQuery := `
	SELECT context FROM research_contexts
	WHERE query = $1
	ORDER BY updated_at DESC
	LIMIT 1
	`
	if err := s.db.QueryRowContext(ctx, sqlQuery, query).Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find context: %w", err)
	}

	var rc research.ResearchContext
	if err := json.Unmarshal([]byte(data), &rc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context: %w", err)
	}
	return &rc, nil
}

// Update replaces the context stored under id. Returns false when the id is
// unknown.
func (s *PostgresStore) Update(ctx context.Context, id string, rc *research.ResearchContext) (bool, error) {
	if rc == nil {
		return false, fmt.Errorf("context cannot be nil: %w", errorspkg.ErrInvalidInput)
	}

	if rc.CreatedAt.IsZero() {
		if existing, err := s.Get(ctx, id); err == nil {
			rc.CreatedAt = existing.CreatedAt
		}
	}
	rc.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(rc)
	if err != nil {
		return false, fmt.Errorf("failed to marshal context: %w", err)
	}

	query := `
	UPDATE research_contexts
	SET query = $2, context = $3, updated_at = $4
	WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, id, rc.Query, string(data), rc.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to update context in PostgreSQL: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return affected > 0, nil
}

// Close closes the PostgreSQL connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping checks if the PostgreSQL connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
