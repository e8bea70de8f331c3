package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/plantops/workdesk/internal/application/port"
	"github.com/plantops/workdesk/internal/domain/entity"
)

// OvertimeRepository implements port.OvertimeRepository
type OvertimeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOvertimeRepository creates a new overtime repository
func NewOvertimeRepository(db *sql.DB, logger *zap.Logger) port.OvertimeRepository {
	return &OvertimeRepository{
		db:     db,
		logger: logger,
	}
}

const overtimeColumns = `
	id, internal_id, department, reason, starts_at, ends_at,
	hours, head_count, requested_by, requested_email,
	status, version, stamps, history, notes,
	edited_at, edited_by, created_at, updated_at
`

// Create inserts a new overtime order
func (r *OvertimeRepository) Create(ctx context.Context, o *entity.OvertimeOrder) error {
	stamps, history, notes, err := overtimeDocs(o)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO overtime_orders (` + overtimeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = getExecutor(ctx, r.db).ExecContext(ctx, query,
		o.ID, o.InternalID, o.Department, o.Reason, o.StartsAt.UTC(), o.EndsAt.UTC(),
		o.Hours.String(), o.HeadCount, o.RequestedBy, o.RequestedEmail,
		o.Status, o.Version, stamps, history, notes,
		o.EditedAt.UTC(), o.EditedBy, o.CreatedAt.UTC(), o.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create overtime order",
			zap.String("id", o.ID),
			zap.Error(err))
		return fmt.Errorf("failed to create overtime order: %w", err)
	}
	return nil
}

// GetByID loads an order, nil when absent
func (r *OvertimeRepository) GetByID(ctx context.Context, id string) (*entity.OvertimeOrder, error) {
	query := `SELECT ` + overtimeColumns + ` FROM overtime_orders WHERE id = ?`
	row := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id)

	o, err := scanOvertime(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get overtime order: %w", err)
	}
	return o, nil
}

// Save persists the full document with a version compare-and-swap
func (r *OvertimeRepository) Save(ctx context.Context, o *entity.OvertimeOrder, expectedVersion int64) error {
	stamps, history, notes, err := overtimeDocs(o)
	if err != nil {
		return err
	}

	query := `
		UPDATE overtime_orders SET
			department = ?, reason = ?, starts_at = ?, ends_at = ?,
			hours = ?, head_count = ?,
			status = ?, version = ?, stamps = ?, history = ?, notes = ?,
			edited_at = ?, edited_by = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`
	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		o.Department, o.Reason, o.StartsAt.UTC(), o.EndsAt.UTC(),
		o.Hours.String(), o.HeadCount,
		o.Status, o.Version, stamps, history, notes,
		o.EditedAt.UTC(), o.EditedBy, o.EditedAt.UTC(),
		o.ID, expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to save overtime order",
			zap.String("id", o.ID),
			zap.Error(err))
		return fmt.Errorf("failed to save overtime order: %w", err)
	}
	return casUpdate(result)
}

// List returns orders matching the filter, newest first, capped.
// The date range filters on the order start.
func (r *OvertimeRepository) List(ctx context.Context, filter port.ListFilter) ([]*entity.OvertimeOrder, error) {
	where, args := listClauses(filter, "requested_by", "starts_at",
		[]string{"internal_id", "department", "reason"})
	query := `SELECT ` + overtimeColumns + ` FROM overtime_orders` + where +
		` ORDER BY starts_at DESC LIMIT ?`
	args = append(args, filter.Cap())

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list overtime orders: %w", err)
	}
	defer rows.Close()

	var out []*entity.OvertimeOrder
	for rows.Next() {
		o, err := scanOvertime(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan overtime order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CountByStatus returns per-status counts
func (r *OvertimeRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	return countByStatus(ctx, r.db, "overtime_orders")
}

// Delete removes an order
func (r *OvertimeRepository) Delete(ctx context.Context, id string) error {
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM overtime_orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete overtime order: %w", err)
	}
	return nil
}

func overtimeDocs(o *entity.OvertimeOrder) (stamps, history, notes sql.NullString, err error) {
	if stamps, err = marshalDoc(o.Stamps); err != nil {
		return
	}
	if history, err = marshalDoc(o.History); err != nil {
		return
	}
	notes, err = marshalDoc(o.Notes)
	return
}

func scanOvertime(row rowScanner) (*entity.OvertimeOrder, error) {
	var o entity.OvertimeOrder
	var hours string
	var stamps, history, notes sql.NullString

	err := row.Scan(
		&o.ID, &o.InternalID, &o.Department, &o.Reason, &o.StartsAt, &o.EndsAt,
		&hours, &o.HeadCount, &o.RequestedBy, &o.RequestedEmail,
		&o.Status, &o.Version, &stamps, &history, &notes,
		&o.EditedAt, &o.EditedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if o.Hours, err = decimal.NewFromString(hours); err != nil {
		return nil, fmt.Errorf("parse hours: %w", err)
	}

	o.Stamps = make(entity.Stamps)
	if err := unmarshalDoc(stamps, &o.Stamps); err != nil {
		return nil, err
	}
	if err := unmarshalDoc(history, &o.History); err != nil {
		return nil, err
	}
	if err := unmarshalDoc(notes, &o.Notes); err != nil {
		return nil, err
	}
	return &o, nil
}
