package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edilcheck/compliance-pipeline/constants"
	"github.com/edilcheck/compliance-pipeline/internal/common"
	"github.com/edilcheck/compliance-pipeline/internal/entity"
)

// MemoryRuns is an in-memory RunTracker for tests and the one-shot runner.
type MemoryRuns struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*entity.PipelineRun
}

func NewMemoryRuns() *MemoryRuns {
	return &MemoryRuns{runs: make(map[uuid.UUID]*entity.PipelineRun)}
}

func (m *MemoryRuns) Start(_ context.Context, tenantID, companyID, objectName, generation, contentHash string) (*entity.PipelineRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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
	m.runs[run.ID] = run
	cp := *run
	return &cp, nil
}

func (m *MemoryRuns) SetState(_ context.Context, id uuid.UUID, state constants.RunState) error {
	return m.update(id, func(r *entity.PipelineRun) { r.State = string(state) })
}

func (m *MemoryRuns) SetOCRMode(_ context.Context, id uuid.UUID, mode constants.OCRMode) error {
	return m.update(id, func(r *entity.PipelineRun) { r.OCRMode = string(mode) })
}

func (m *MemoryRuns) FinishSuccess(_ context.Context, id, documentID uuid.UUID, version int) error {
	return m.update(id, func(r *entity.PipelineRun) {
		r.State = string(constants.RunStateDone)
		doc := documentID
		r.DocumentID = &doc
		r.Version = version
		now := time.Now().UTC()
		r.FinishedAt = &now
	})
}

func (m *MemoryRuns) FinishFailure(_ context.Context, id uuid.UUID, reason string) error {
	return m.update(id, func(r *entity.PipelineRun) {
		r.State = string(constants.RunStateError)
		r.ErrorMessage = common.TruncateReason(reason, 500)
		now := time.Now().UTC()
		r.FinishedAt = &now
	})
}

func (m *MemoryRuns) HasSucceeded(_ context.Context, tenantID, objectName, generation, contentHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.TenantID == tenantID && r.ObjectName == objectName &&
			r.Generation == generation && r.ContentHash == contentHash &&
			r.State == string(constants.RunStateDone) {
			return true, nil
		}
	}
	return false, nil
}

// Get returns a copy of one run, for assertions.
func (m *MemoryRuns) Get(id uuid.UUID) (*entity.PipelineRun, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, false
	}
	cp := *r
	return &cp, true
}

func (m *MemoryRuns) update(id uuid.UUID, fn func(*entity.PipelineRun)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return common.ErrNotFound
	}
	fn(r)
	return nil
}
