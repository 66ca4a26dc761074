package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edilcheck/compliance-pipeline/constants"
	"github.com/edilcheck/compliance-pipeline/internal/common"
	"github.com/edilcheck/compliance-pipeline/internal/entity"
)

// maxErrorMessage caps pipeline_runs.error_message.
const maxErrorMessage = 500

// Runs tracks processing attempts. Error and in-flight states live here;
// the documents table only ever sees successful verdicts.
type Runs struct {
	pool *pgxpool.Pool
}

func NewRuns(pool *pgxpool.Pool) *Runs {
	return &Runs{pool: pool}
}

// Start inserts a run in RECEIVED state and returns it.
func (r *Runs) Start(ctx context.Context, tenantID, companyID, objectName, generation, contentHash string) (*entity.PipelineRun, error) {
	run := &entity.PipelineRun{
		ID:          uuid.New(),
		TenantID:    tenantID,
		CompanyID:   companyID,
		ObjectName:  objectName,
		Generation:  generation,
		ContentHash: contentHash,
		State:       string(constants.RunStateReceived),
		StartedAt:   time.Now().UTC(),
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO pipeline_runs (
			id, tenant_id, company_id, object_name, generation,
			content_hash, state, started_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		run.ID, run.TenantID, run.CompanyID, run.ObjectName, run.Generation,
		run.ContentHash, run.State, run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("insert pipeline run: %w", err)
	}
	return run, nil
}

// SetState advances the run through the state machine.
func (r *Runs) SetState(ctx context.Context, id uuid.UUID, state constants.RunState) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE pipeline_runs SET state = $2 WHERE id = $1`, id, state)
	if err != nil {
		return fmt.Errorf("set run state %s: %w", state, err)
	}
	return nil
}

// SetOCRMode records the gating decision on the run.
func (r *Runs) SetOCRMode(ctx context.Context, id uuid.UUID, mode constants.OCRMode) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE pipeline_runs SET ocr_mode = $2 WHERE id = $1`, id, mode)
	return err
}

// FinishSuccess marks the run DONE and links the document version it wrote.
func (r *Runs) FinishSuccess(ctx context.Context, id, documentID uuid.UUID, version int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE pipeline_runs
		SET state = $2, document_id = $3, version = $4, finished_at = now()
		WHERE id = $1`,
		id, constants.RunStateDone, documentID, version)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// FinishFailure marks the run ERROR with a bounded reason.
func (r *Runs) FinishFailure(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE pipeline_runs
		SET state = $2, error_message = $3, finished_at = now()
		WHERE id = $1`,
		id, constants.RunStateError, common.TruncateReason(reason, maxErrorMessage))
	if err != nil {
		return fmt.Errorf("fail run: %w", err)
	}
	return nil
}

// HasSucceeded reports whether this exact object generation with this
// content hash already completed, for the early idempotency skip.
func (r *Runs) HasSucceeded(ctx context.Context, tenantID, objectName, generation, contentHash string) (bool, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM pipeline_runs
		WHERE tenant_id = $1 AND object_name = $2
		  AND generation = $3 AND content_hash = $4
		  AND state = $5`,
		tenantID, objectName, generation, contentHash,
		constants.RunStateDone).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check completed runs: %w", err)
	}
	return n > 0, nil
}
