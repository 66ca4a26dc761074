package versioning

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edilcheck/compliance-pipeline/internal/entity"
)

// MemoryStore keeps version chains in memory. Used by tests and by the
// one-shot local runner; the serializable-transaction store backs the
// service.
type MemoryStore struct {
	mu   sync.Mutex
	recs map[uuid.UUID]*entity.DocumentRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[uuid.UUID]*entity.DocumentRecord)}
}

type memoryTx struct {
	s *MemoryStore
}

// InTx serializes all writers behind one mutex, so the transactional
// contract holds trivially.
func (s *MemoryStore) InTx(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memoryTx{s: s})
}

func (t *memoryTx) CurrentForUpdate(_ context.Context, logicalKey string) (*entity.DocumentRecord, error) {
	for _, r := range t.s.recs {
		if r.LogicalKey == logicalKey && r.IsCurrent {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (t *memoryTx) Insert(_ context.Context, rec *entity.DocumentRecord) error {
	cp := *rec
	t.s.recs[rec.ID] = &cp
	return nil
}

func (t *memoryTx) Supersede(_ context.Context, id, byID uuid.UUID) error {
	if r, ok := t.s.recs[id]; ok {
		r.IsCurrent = false
		by := byID
		r.SupersededBy = &by
		r.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (t *memoryTx) Touch(_ context.Context, id uuid.UUID, at time.Time) error {
	if r, ok := t.s.recs[id]; ok {
		r.LastProcessedAt = at
		r.UpdatedAt = at
	}
	return nil
}

// Get returns a copy of a stored record, for tests and the local runner.
func (s *MemoryStore) Get(id uuid.UUID) (*entity.DocumentRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recs[id]
	if !ok {
		return nil, false
	}
	cp := *r
	return &cp, true
}

// History returns all versions for a logical key, oldest first.
func (s *MemoryStore) History(logicalKey string) []*entity.DocumentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.DocumentRecord
	for _, r := range s.recs {
		if r.LogicalKey == logicalKey {
			cp := *r
			out = append(out, &cp)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Version < out[i].Version {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}
