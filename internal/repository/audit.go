package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEvent is one append-only record of a manual action on a document.
type AuditEvent struct {
	ID         uuid.UUID
	TenantID   string
	DocumentID uuid.UUID
	Action     string
	Actor      string
	Role       string
	Reason     string
	Detail     map[string]any
	CreatedAt  time.Time
}

// Audits appends and lists audit events; events are never updated.
type Audits struct {
	pool *pgxpool.Pool
}

func NewAudits(pool *pgxpool.Pool) *Audits {
	return &Audits{pool: pool}
}

func (a *Audits) Append(ctx context.Context, ev AuditEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	detail, err := json.Marshal(ev.Detail)
	if err != nil {
		return fmt.Errorf("encode audit detail: %w", err)
	}
	_, err = a.pool.Exec(ctx, `
		INSERT INTO audit_events (
			id, tenant_id, document_id, action, actor, role, reason, detail, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8, now())`,
		ev.ID, ev.TenantID, ev.DocumentID, ev.Action, ev.Actor, ev.Role, ev.Reason, detail)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ForDocument lists events for one document, newest first.
func (a *Audits) ForDocument(ctx context.Context, tenantID string, documentID uuid.UUID) ([]AuditEvent, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT id, tenant_id, document_id, action, actor, role, reason, detail, created_at
		FROM audit_events
		WHERE tenant_id = $1 AND document_id = $2
		ORDER BY created_at DESC`, tenantID, documentID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []AuditEvent
	for rows.Next() {
		var ev AuditEvent
		var detail []byte
		if err := rows.Scan(&ev.ID, &ev.TenantID, &ev.DocumentID, &ev.Action,
			&ev.Actor, &ev.Role, &ev.Reason, &detail, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &ev.Detail); err != nil {
				return nil, fmt.Errorf("decode audit detail: %w", err)
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
