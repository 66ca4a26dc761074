package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edilcheck/compliance-pipeline/internal/common"
	"github.com/edilcheck/compliance-pipeline/internal/entity"
)

// Documents reads document versions outside the versioning transaction.
type Documents struct {
	pool *pgxpool.Pool
}

func NewDocuments(pool *pgxpool.Pool) *Documents {
	return &Documents{pool: pool}
}

const documentColumns = `
	id, tenant_id, company_id, doc_type, logical_key, version,
	is_current, content_hash, verdict, supersedes, superseded_by,
	last_processed_at, created_at, updated_at`

// GetByID fetches any version by primary key, tenant-scoped.
func (d *Documents) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*entity.DocumentRecord, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT `+documentColumns+`
		FROM documents WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	rec, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %s", common.ErrNotFound, id)
	}
	return rec, err
}

// Current returns the current version for one logical document.
func (d *Documents) Current(ctx context.Context, tenantID, companyID, docType string) (*entity.DocumentRecord, error) {
	key := entity.LogicalKey(tenantID, companyID, docType)
	row := d.pool.QueryRow(ctx, `
		SELECT `+documentColumns+`
		FROM documents WHERE logical_key = $1 AND is_current`, key)
	rec, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: no current document for %s", common.ErrNotFound, key)
	}
	return rec, err
}

// ListCurrent returns every current document for a company, newest first.
func (d *Documents) ListCurrent(ctx context.Context, tenantID, companyID string) ([]*entity.DocumentRecord, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE tenant_id = $1 AND company_id = $2 AND is_current
		ORDER BY updated_at DESC`, tenantID, companyID)
	if err != nil {
		return nil, fmt.Errorf("list current documents: %w", err)
	}
	defer rows.Close()
	return collectDocuments(rows)
}

// History returns all versions of one logical document, newest first.
func (d *Documents) History(ctx context.Context, tenantID, companyID, docType string) ([]*entity.DocumentRecord, error) {
	key := entity.LogicalKey(tenantID, companyID, docType)
	rows, err := d.pool.Query(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE logical_key = $1
		ORDER BY version DESC`, key)
	if err != nil {
		return nil, fmt.Errorf("document history: %w", err)
	}
	defer rows.Close()
	return collectDocuments(rows)
}

// UpdateVerdict replaces the verdict JSON of one version in place. Used by
// the manual override endpoint, which merges into the current record rather
// than appending a version.
func (d *Documents) UpdateVerdict(ctx context.Context, tenantID string, id uuid.UUID, verdict entity.Verdict) error {
	raw, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("encode verdict: %w", err)
	}
	tag, err := d.pool.Exec(ctx, `
		UPDATE documents SET verdict = $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2`, id, tenantID, raw)
	if err != nil {
		return fmt.Errorf("update verdict: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: document %s", common.ErrNotFound, id)
	}
	return nil
}

func collectDocuments(rows pgx.Rows) ([]*entity.DocumentRecord, error) {
	var out []*entity.DocumentRecord
	for rows.Next() {
		rec, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
