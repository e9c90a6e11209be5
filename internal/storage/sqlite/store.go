// Package sqlite is the SQLite implementation of the interaction audit log.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jmbish04/ai-proxy-gateway/internal/domain"
	"github.com/jmbish04/ai-proxy-gateway/internal/storage"
)

// Store persists interaction records in a SQLite database.
type Store struct {
	db *sql.DB
}

var _ storage.InteractionStore = (*Store)(nil)

// New opens (or creates) the database at dbPath and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS interactions (
			id TEXT PRIMARY KEY,
			endpoint TEXT NOT NULL,
			provider TEXT NOT NULL,
			requested_model TEXT NOT NULL,
			resolved_model TEXT,
			session_id TEXT,
			status INTEGER NOT NULL,
			duration_ns INTEGER,
			usage TEXT,
			error_type TEXT,
			error_code TEXT,
			error_message TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_provider ON interactions(provider)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_session ON interactions(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// SaveInteraction inserts one interaction record.
func (s *Store) SaveInteraction(ctx context.Context, interaction *storage.Interaction) error {
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now()
	}

	var usage sql.NullString
	if interaction.Usage != nil {
		usageJSON, err := json.Marshal(interaction.Usage)
		if err != nil {
			return fmt.Errorf("failed to marshal usage: %w", err)
		}
		usage = sql.NullString{String: string(usageJSON), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interactions (
			id, endpoint, provider, requested_model, resolved_model, session_id,
			status, duration_ns, usage, error_type, error_code, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		interaction.ID,
		interaction.Endpoint,
		string(interaction.Provider),
		interaction.RequestedModel,
		interaction.ResolvedModel,
		interaction.SessionID,
		interaction.Status,
		interaction.Duration.Nanoseconds(),
		usage,
		nullable(interaction.ErrorType),
		nullable(interaction.ErrorCode),
		nullable(interaction.ErrorMessage),
		interaction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save interaction: %w", err)
	}

	return nil
}

// ListInteractions returns records newest first, filtered by opts.
func (s *Store) ListInteractions(ctx context.Context, opts storage.ListOptions) ([]*storage.Interaction, error) {
	query := `
		SELECT id, endpoint, provider, requested_model, resolved_model, session_id,
		       status, duration_ns, usage, error_type, error_code, error_message, created_at
		FROM interactions WHERE 1=1`
	args := []any{}

	if opts.Provider != "" {
		query += " AND provider = ?"
		args = append(args, string(opts.Provider))
	}
	if opts.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, opts.SessionID)
	}

	query += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	defer rows.Close()

	var interactions []*storage.Interaction
	for rows.Next() {
		var it storage.Interaction
		var provider string
		var durationNS int64
		var usage, errorType, errorCode, errorMessage sql.NullString

		if err := rows.Scan(
			&it.ID, &it.Endpoint, &provider, &it.RequestedModel, &it.ResolvedModel,
			&it.SessionID, &it.Status, &durationNS, &usage,
			&errorType, &errorCode, &errorMessage, &it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}

		it.Provider = domain.ProviderTag(provider)
		it.Duration = time.Duration(durationNS)
		it.ErrorType = errorType.String
		it.ErrorCode = errorCode.String
		it.ErrorMessage = errorMessage.String

		if usage.Valid {
			var u domain.Usage
			if err := json.Unmarshal([]byte(usage.String), &u); err == nil {
				it.Usage = &u
			}
		}

		interactions = append(interactions, &it)
	}

	return interactions, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
