package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/Dossier/internal/core"
	"github.com/markdave123-py/Dossier/internal/models"
)

var _ core.DocumentStore = (*PostgresStore)(nil)

// PostgresStore persists documents in Postgres. Each WriteDocument is one
// transaction: the parent row is upserted and its chunk rows replaced.
type PostgresStore struct {
	db     *sql.DB
	types  *pgtype.Map
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// OpenPostgres connects with the pgx driver, verifies the connection and
// applies the schema when missing.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return NewPostgresStore(db, logger), nil
}

// NewPostgresStore wraps an open, bootstrapped database.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{
		db:     db,
		types:  pgtype.NewMap(),
		logger: logger.With("store", "postgres"),
		now:    time.Now,
	}
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// WriteDocument upserts doc and replaces its chunk rows. analysis is not in
// the update list, so a value written by a later stage survives re-ingestion.
func (s *PostgresStore) WriteDocument(ctx context.Context, doc models.ParentDocument, chunks []string) (*models.WriteResult, error) {
	if err := validateDocument(doc, chunks); err != nil {
		return nil, err
	}
	b := newBatch(doc, chunks, s.now().UTC(), s.newID)

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, persistenceFailed("begin tx", err)
	}

	const upsert = `
		INSERT INTO documents
			(id, project_id, file_id, source_object_key, container_id, declared_content_type, chunk_ids, chunk_count, last_written_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			project_id            = EXCLUDED.project_id,
			file_id               = EXCLUDED.file_id,
			source_object_key     = EXCLUDED.source_object_key,
			container_id          = EXCLUDED.container_id,
			declared_content_type = EXCLUDED.declared_content_type,
			chunk_ids             = EXCLUDED.chunk_ids,
			chunk_count           = EXCLUDED.chunk_count,
			last_written_at       = EXCLUDED.last_written_at
	`
	d := b.doc
	if _, err := tx.ExecContext(ctx, upsert,
		d.ID, d.ProjectID, d.FileID, d.SourceObjectKey, d.ContainerID, d.DeclaredContentType, d.ChunkIDs, d.ChunkCount, d.LastWrittenAt,
	); err != nil {
		_ = tx.Rollback()
		return nil, persistenceFailed("upsert document", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, d.ID); err != nil {
		_ = tx.Rollback()
		return nil, persistenceFailed("delete stale chunks", err)
	}

	if len(b.chunks) > 0 {
		const q = `
			INSERT INTO document_chunks (id, document_id, chunk_order, content, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			_ = tx.Rollback()
			return nil, persistenceFailed("prepare chunk insert", err)
		}
		defer stmt.Close()

		for i := range b.chunks {
			ch := &b.chunks[i]
			if _, err := stmt.ExecContext(ctx, ch.ID, ch.DocumentID, ch.Order, ch.Content, ch.CreatedAt); err != nil {
				_ = tx.Rollback()
				return nil, persistenceFailed(fmt.Sprintf("insert chunk %d", ch.Order), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, persistenceFailed("commit", err)
	}

	s.logger.Debug("document written", "document_id", d.ID, "chunks", d.ChunkCount)
	return b.result(), nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (*models.ParentDocument, error) {
	const q = `
		SELECT id, project_id, file_id, source_object_key, container_id, declared_content_type,
		       chunk_ids, chunk_count, analysis, last_written_at
		FROM documents
		WHERE id = $1
	`
	var d models.ParentDocument
	err := s.db.QueryRowContext(ctx, q, documentID).Scan(
		&d.ID, &d.ProjectID, &d.FileID, &d.SourceObjectKey, &d.ContainerID, &d.DeclaredContentType,
		s.types.SQLScanner(&d.ChunkIDs), &d.ChunkCount, &d.Analysis, &d.LastWrittenAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %q: %w", documentID, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *PostgresStore) GetChunks(ctx context.Context, documentID string) ([]models.TextChunk, error) {
	const q = `
		SELECT id, document_id, chunk_order, content, created_at
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY chunk_order ASC
	`
	rows, err := s.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TextChunk
	for rows.Next() {
		var ch models.TextChunk
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.Order, &ch.Content, &ch.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}
