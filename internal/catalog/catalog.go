// Package catalog records committed index files in PostgreSQL so searchers
// can discover shards without sharing a filesystem listing.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Adithya-Monish-Kumar-K/filesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/postgres"
)

// Schema creates the shard catalog table. Paths are unique; re-registering
// a path replaces its row.
const Schema = `
CREATE TABLE IF NOT EXISTS index_shards (
	id          UUID PRIMARY KEY,
	path        TEXT NOT NULL UNIQUE,
	root        TEXT NOT NULL,
	documents   BIGINT NOT NULL,
	words       BIGINT NOT NULL,
	size_bytes  BIGINT NOT NULL,
	checksum    BIGINT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Entry describes one committed index file.
type Entry struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Root      string    `json:"root"`
	Documents int       `json:"documents"`
	Words     int       `json:"words"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  uint32    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "catalog"),
	}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating catalog schema: %w", err)
	}
	return nil
}

// Register upserts e by path and returns the stored entry.
func (s *Store) Register(ctx context.Context, e Entry) (Entry, error) {
	if e.Path == "" {
		return Entry{}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "catalog entry has no path")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `
			INSERT INTO index_shards (id, path, root, documents, words, size_bytes, checksum)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (path) DO UPDATE SET
				root = EXCLUDED.root,
				documents = EXCLUDED.documents,
				words = EXCLUDED.words,
				size_bytes = EXCLUDED.size_bytes,
				checksum = EXCLUDED.checksum,
				created_at = NOW()
			RETURNING id, created_at`,
			e.ID, e.Path, e.Root, e.Documents, e.Words, e.SizeBytes, int64(e.Checksum),
		).Scan(&e.ID, &e.CreatedAt)
	})
	if err != nil {
		return Entry{}, fmt.Errorf("registering shard %s: %w", e.Path, err)
	}
	s.logger.Info("shard registered", "path", e.Path, "documents", e.Documents)
	return e, nil
}

// List returns every registered shard ordered by path.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.DB.QueryContext(ctx, `
		SELECT id, path, root, documents, words, size_bytes, checksum, created_at
		FROM index_shards ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("listing shards: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			checksum int64
		)
		if err := rows.Scan(&e.ID, &e.Path, &e.Root, &e.Documents, &e.Words, &e.SizeBytes, &checksum, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning shard row: %w", err)
		}
		e.Checksum = uint32(checksum)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating shard rows: %w", err)
	}
	return entries, nil
}

// Paths returns the registered shard paths in path order.
func (s *Store) Paths(ctx context.Context) ([]string, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	return paths, nil
}

func (s *Store) Remove(ctx context.Context, path string) error {
	res, err := s.db.DB.ExecContext(ctx, `DELETE FROM index_shards WHERE path = $1`, path)
	if err != nil {
		return fmt.Errorf("removing shard %s: %w", path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("removing shard %s: %w", path, err)
	}
	if n == 0 {
		return apperrors.Newf(apperrors.ErrNotFound, http.StatusNotFound, "shard %s is not registered", path)
	}
	s.logger.Info("shard removed", "path", path)
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
