package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edilcheck/compliance-pipeline/internal/common"
	"github.com/edilcheck/compliance-pipeline/internal/entity"
	"github.com/edilcheck/compliance-pipeline/internal/versioning"
)

// txMaxRetries bounds serialization-failure retries before giving up.
const txMaxRetries = 3

// Store implements versioning.Store on PostgreSQL with serializable
// transactions. Serialization failures (40001) and deadlocks (40P01) are
// retried; the retry reruns the whole closure so the current-version read
// is repeated.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

func (s *Store) InTx(ctx context.Context, fn func(tx versioning.Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= txMaxRetries; attempt++ {
		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetriable(err) {
			return err
		}
		lastErr = err
		s.logger.Warn("db.tx_retry", "attempt", attempt, "error", err)
	}
	return fmt.Errorf("%w: transaction retries exhausted: %v", common.ErrConflict, lastErr)
}

func (s *Store) runOnce(ctx context.Context, fn func(tx versioning.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isRetriable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) CurrentForUpdate(ctx context.Context, logicalKey string) (*entity.DocumentRecord, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT id, tenant_id, company_id, doc_type, logical_key, version,
		       is_current, content_hash, verdict, supersedes, superseded_by,
		       last_processed_at, created_at, updated_at
		FROM documents
		WHERE logical_key = $1 AND is_current
		FOR UPDATE`, logicalKey)
	rec, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (t *pgTx) Insert(ctx context.Context, rec *entity.DocumentRecord) error {
	verdict, err := json.Marshal(rec.Verdict)
	if err != nil {
		return fmt.Errorf("encode verdict: %w", err)
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO documents (
			id, tenant_id, company_id, doc_type, logical_key, version,
			is_current, content_hash, verdict, supersedes,
			last_processed_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		rec.ID, rec.TenantID, rec.CompanyID, rec.DocType, rec.LogicalKey,
		rec.Version, rec.IsCurrent, rec.ContentHash, verdict, rec.Supersedes,
		rec.LastProcessedAt, rec.CreatedAt, rec.UpdatedAt)
	return err
}

func (t *pgTx) Supersede(ctx context.Context, id, byID uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE documents
		SET is_current = false, superseded_by = $2, updated_at = now()
		WHERE id = $1`, id, byID)
	return err
}

func (t *pgTx) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE documents
		SET last_processed_at = $2, updated_at = $2
		WHERE id = $1`, id, at)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*entity.DocumentRecord, error) {
	var rec entity.DocumentRecord
	var verdict []byte
	err := row.Scan(
		&rec.ID, &rec.TenantID, &rec.CompanyID, &rec.DocType, &rec.LogicalKey,
		&rec.Version, &rec.IsCurrent, &rec.ContentHash, &verdict,
		&rec.Supersedes, &rec.SupersededBy,
		&rec.LastProcessedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(verdict) > 0 {
		if err := json.Unmarshal(verdict, &rec.Verdict); err != nil {
			return nil, fmt.Errorf("decode verdict for %s: %w", rec.ID, err)
		}
	}
	return &rec, nil
}
