package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/plantops/workdesk/internal/application/port"
	"github.com/plantops/workdesk/internal/domain/entity"
)

// OutboxRepository implements port.OutboxRepository
type OutboxRepository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewOutboxRepository creates a new outbox repository
func NewOutboxRepository(db *sql.DB, logger *zap.Logger) port.OutboxRepository {
	return &OutboxRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

const outboxColumns = `
	id, family, entity_id, event_type,
	mail_to, mail_subject, mail_html,
	status, attempts, next_attempt_at, last_error,
	created_at, updated_at
`

// Append inserts a pending event; runs inside the caller's transaction
func (r *OutboxRepository) Append(ctx context.Context, evt *entity.OutboxEvent) error {
	now := r.now().UTC()
	result, err := getExecutor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO outbox_events (
			family, entity_id, event_type,
			mail_to, mail_subject, mail_html,
			status, attempts, next_attempt_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
	`,
		evt.Family.String(), evt.EntityID, evt.EventType,
		evt.MailTo, evt.MailSubject, evt.MailHTML,
		entity.OutboxPending, now, now, now,
	)
	if err != nil {
		r.logger.Error("Failed to append outbox event",
			zap.String("entity_id", evt.EntityID),
			zap.String("event_type", evt.EventType),
			zap.Error(err))
		return fmt.Errorf("failed to append outbox event: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		evt.ID = id
	}
	evt.Status = entity.OutboxPending
	evt.NextAttemptAt = now
	evt.CreatedAt = now
	evt.UpdatedAt = now
	return nil
}

// Due returns pending events whose next attempt is not in the future,
// oldest first.
func (r *OutboxRepository) Due(ctx context.Context, now time.Time, limit int) ([]*entity.OutboxEvent, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, `
		SELECT `+outboxColumns+`
		FROM outbox_events
		WHERE status = ? AND next_attempt_at <= ?
		ORDER BY id ASC
		LIMIT ?
	`, entity.OutboxPending, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due outbox events: %w", err)
	}
	defer rows.Close()

	var out []*entity.OutboxEvent
	for rows.Next() {
		evt, err := scanOutbox(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

// MarkSent finalizes a delivered event
func (r *OutboxRepository) MarkSent(ctx context.Context, id int64) error {
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, `
		UPDATE outbox_events
		SET status = ?, last_error = '', updated_at = ?
		WHERE id = ?
	`, entity.OutboxSent, r.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event sent: %w", err)
	}
	return nil
}

// MarkFailed records a delivery failure. Non-final failures stay
// pending and become due again at nextAttempt; final failures are
// parked as FAILED.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64, attempts int, nextAttempt time.Time, lastError string, final bool) error {
	status := entity.OutboxPending
	if final {
		status = entity.OutboxFailed
	}
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, `
		UPDATE outbox_events
		SET status = ?, attempts = ?, next_attempt_at = ?, last_error = ?, updated_at = ?
		WHERE id = ?
	`, status, attempts, nextAttempt.UTC(), lastError, r.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event failed: %w", err)
	}
	return nil
}

// GetByEntityID returns all events recorded for one entity
func (r *OutboxRepository) GetByEntityID(ctx context.Context, entityID string) ([]*entity.OutboxEvent, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, `
		SELECT `+outboxColumns+`
		FROM outbox_events
		WHERE entity_id = ?
		ORDER BY id ASC
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list outbox events: %w", err)
	}
	defer rows.Close()

	var out []*entity.OutboxEvent
	for rows.Next() {
		evt, err := scanOutbox(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func scanOutbox(row rowScanner) (*entity.OutboxEvent, error) {
	var evt entity.OutboxEvent
	var family string
	err := row.Scan(
		&evt.ID, &family, &evt.EntityID, &evt.EventType,
		&evt.MailTo, &evt.MailSubject, &evt.MailHTML,
		&evt.Status, &evt.Attempts, &evt.NextAttemptAt, &evt.LastError,
		&evt.CreatedAt, &evt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	evt.Family = entity.Family(family)
	return &evt, nil
}
