// Package versioning owns the append-only version chain of compliance
// documents. Every reprocessing of a changed file appends a new version and
// atomically moves the is_current flag; reprocessing identical bytes only
// refreshes the processing timestamp.
package versioning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/edilcheck/compliance-pipeline/internal/entity"
)

// Tx is the set of operations the manager needs inside one transaction.
type Tx interface {
	// CurrentForUpdate returns the current version for a logical key,
	// locked against concurrent writers, or nil when none exists.
	CurrentForUpdate(ctx context.Context, logicalKey string) (*entity.DocumentRecord, error)
	Insert(ctx context.Context, rec *entity.DocumentRecord) error
	// Supersede clears is_current on id and links it forward to byID.
	Supersede(ctx context.Context, id, byID uuid.UUID) error
	// Touch refreshes last_processed_at without any version change.
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Store runs fn atomically; the chain invariants (exactly one current
// version per logical key, consistent supersedes links) hold only because
// every mutation goes through here.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Result reports what CreateVersionedDocument did.
type Result struct {
	Record              *entity.DocumentRecord
	DidCreateNewVersion bool
	SupersededID        *uuid.UUID
}

type Manager struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewManager(store Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, logger: logger, now: time.Now}
}

// CreateVersionedDocument persists a verdict as a document version.
//
// Same content hash as the current version: no new version, the current
// record's timestamp is refreshed. Otherwise a new version is inserted with
// version = current+1 (or 1) and the previous current is superseded, all in
// one transaction.
func (m *Manager) CreateVersionedDocument(ctx context.Context, tenantID, companyID, docType, contentHash string, verdict entity.Verdict) (Result, error) {
	logicalKey := entity.LogicalKey(tenantID, companyID, docType)
	var res Result

	err := m.store.InTx(ctx, func(tx Tx) error {
		now := m.now().UTC()

		cur, err := tx.CurrentForUpdate(ctx, logicalKey)
		if err != nil {
			return fmt.Errorf("load current version: %w", err)
		}

		if cur != nil && cur.ContentHash == contentHash {
			if err := tx.Touch(ctx, cur.ID, now); err != nil {
				return fmt.Errorf("touch current version: %w", err)
			}
			cur.LastProcessedAt = now
			res = Result{Record: cur, DidCreateNewVersion: false}
			return nil
		}

		rec := &entity.DocumentRecord{
			ID:              uuid.New(),
			TenantID:        tenantID,
			CompanyID:       companyID,
			DocType:         docType,
			LogicalKey:      logicalKey,
			Version:         1,
			IsCurrent:       true,
			ContentHash:     contentHash,
			Verdict:         verdict,
			LastProcessedAt: now,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if cur != nil {
			rec.Version = cur.Version + 1
			id := cur.ID
			rec.Supersedes = &id
		}

		if err := tx.Insert(ctx, rec); err != nil {
			return fmt.Errorf("insert version %d: %w", rec.Version, err)
		}
		if cur != nil {
			if err := tx.Supersede(ctx, cur.ID, rec.ID); err != nil {
				return fmt.Errorf("supersede version %d: %w", cur.Version, err)
			}
			id := cur.ID
			res = Result{Record: rec, DidCreateNewVersion: true, SupersededID: &id}
			return nil
		}
		res = Result{Record: rec, DidCreateNewVersion: true}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if res.DidCreateNewVersion {
		m.logger.Info("versioning.new_version",
			"logical_key", logicalKey,
			"version", res.Record.Version,
			"document_id", res.Record.ID,
		)
	} else {
		m.logger.Info("versioning.unchanged",
			"logical_key", logicalKey,
			"version", res.Record.Version,
			"document_id", res.Record.ID,
		)
	}
	return res, nil
}
