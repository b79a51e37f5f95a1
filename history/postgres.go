package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store on PostgreSQL. Trace and sources are kept
// as JSONB columns so the full audit payload stays queryable.
type PostgresStore struct {
	db    *sql.DB
	table string
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Table    string
}

// DefaultPostgresConfig returns local development defaults.
func DefaultPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		DBName:   "ragguard",
		SSLMode:  "disable",
		Table:    "run_history",
	}
}

// NewPostgresStore creates a PostgreSQL-backed history store and ensures the
// table exists.
func NewPostgresStore(config *PostgresConfig) (*PostgresStore, error) {
	if config == nil {
		config = DefaultPostgresConfig()
	}
	if config.Table == "" {
		config.Table = "run_history"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{db: db, table: config.Table}
	if err := store.createTable(context.Background()); err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) createTable(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(255) PRIMARY KEY,
		query TEXT NOT NULL,
		final_answer TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		approved BOOLEAN NOT NULL,
		sources JSONB,
		trace JSONB,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_%s_created_at ON %s(created_at);
	`, s.table, s.table, s.table)

	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Save persists a record, replacing any existing record with the same ID.
func (s *PostgresStore) Save(ctx context.Context, rec *Record) error {
	if err := prepare(rec); err != nil {
		return err
	}

	sourcesJSON, err := json.Marshal(rec.Sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}
	traceJSON, err := json.Marshal(rec.Trace)
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (id, query, final_answer, confidence, approved, sources, trace, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET
		query = EXCLUDED.query,
		final_answer = EXCLUDED.final_answer,
		confidence = EXCLUDED.confidence,
		approved = EXCLUDED.approved,
		sources = EXCLUDED.sources,
		trace = EXCLUDED.trace
	`, s.table)

	_, err = s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Query,
		rec.FinalAnswer,
		rec.Confidence,
		rec.Approved,
		string(sourcesJSON),
		string(traceJSON),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]*Record, error) {
	query := fmt.Sprintf(`
	SELECT id, query, final_answer, confidence, approved, sources, trace, created_at
	FROM %s
	ORDER BY created_at DESC
	`, s.table)

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+" LIMIT $1", limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := make([]*Record, 0)
	for rows.Next() {
		rec := &Record{}
		var sourcesJSON, traceJSON []byte

		err := rows.Scan(&rec.ID, &rec.Query, &rec.FinalAnswer, &rec.Confidence,
			&rec.Approved, &sourcesJSON, &traceJSON, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if len(sourcesJSON) > 0 {
			if err := json.Unmarshal(sourcesJSON, &rec.Sources); err != nil {
				return nil, fmt.Errorf("unmarshal sources: %w", err)
			}
		}
		if len(traceJSON) > 0 {
			if err := json.Unmarshal(traceJSON, &rec.Trace); err != nil {
				return nil, fmt.Errorf("unmarshal trace: %w", err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Clear removes all records.
func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.table)); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping checks that the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
