package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"housebalance/internal/adapters/outbound/persistence/postgresql/shared"
	apperrors "housebalance/internal/shared_kernel/errors"

	"github.com/google/uuid"
)

const auditEventIDPrefix = "evt_"

type auditEnvelope struct {
	EventID    string         `json:"event_id"`
	EventType  string         `json:"event_type"`
	OccurredAt string         `json:"occurred_at"`
	Data       map[string]any `json:"data"`
}

// appendAuditEvent writes the event in the caller's transaction so it commits
// or rolls back together with the balance change it describes.
func (r *Repository) appendAuditEvent(
	ctx context.Context,
	tx *sql.Tx,
	eventType string,
	aggregateKey string,
	occurredAt time.Time,
	data map[string]any,
) *apperrors.AppError {
	if !r.config.AuditEnabled {
		return nil
	}

	eventID := auditEventIDPrefix + uuid.NewString()
	payload, err := json.Marshal(auditEnvelope{
		EventID:    eventID,
		EventType:  eventType,
		OccurredAt: occurredAt.UTC().Format(time.RFC3339Nano),
		Data:       data,
	})
	if err != nil {
		return apperrors.NewInternal(
			"audit_payload_invalid",
			"failed to encode audit event payload",
			map[string]any{"event_type": eventType, "error": err.Error()},
		)
	}

	const query = `
INSERT INTO app.audit_outbox_events (
  event_id,
  event_type,
  aggregate_key,
  payload,
  delivery_status,
  attempts,
  max_attempts,
  next_attempt_at,
  created_at,
  updated_at
) VALUES ($1, $2, $3, $4::jsonb, 'pending', 0, $5, $6, $6, $6)
`
	if _, err := tx.ExecContext(
		ctx,
		query,
		eventID,
		eventType,
		aggregateKey,
		string(payload),
		r.config.AuditMaxAttempts,
		occurredAt.UTC(),
	); err != nil {
		return shared.StoreError("audit_outbox_insert_failed", "failed to enqueue audit event", err)
	}

	return nil
}
