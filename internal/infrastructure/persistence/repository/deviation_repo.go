package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/plantops/workdesk/internal/application/port"
	"github.com/plantops/workdesk/internal/domain/entity"
)

// DeviationRepository implements port.DeviationRepository
type DeviationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDeviationRepository creates a new deviation repository
func NewDeviationRepository(db *sql.DB, logger *zap.Logger) port.DeviationRepository {
	return &DeviationRepository{
		db:     db,
		logger: logger,
	}
}

const deviationColumns = `
	id, internal_id, title, description, area, category,
	owner_id, owner_email, status, version,
	stamps, history, approvals, actions, notes,
	edited_at, edited_by, created_at, updated_at
`

// Create inserts a new deviation
func (r *DeviationRepository) Create(ctx context.Context, d *entity.Deviation) error {
	stamps, history, approvals, actions, notes, err := deviationDocs(d)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO deviations (` + deviationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = getExecutor(ctx, r.db).ExecContext(ctx, query,
		d.ID, d.InternalID, d.Title, d.Description, d.Area, d.Category,
		d.OwnerID, d.OwnerEmail, d.Status, d.Version,
		stamps, history, approvals, actions, notes,
		d.EditedAt.UTC(), d.EditedBy, d.CreatedAt.UTC(), d.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create deviation",
			zap.String("id", d.ID),
			zap.Error(err))
		return fmt.Errorf("failed to create deviation: %w", err)
	}
	return nil
}

// GetByID loads a deviation, nil when absent
func (r *DeviationRepository) GetByID(ctx context.Context, id string) (*entity.Deviation, error) {
	query := `SELECT ` + deviationColumns + ` FROM deviations WHERE id = ?`
	row := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id)

	d, err := scanDeviation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deviation: %w", err)
	}
	return d, nil
}

// Save persists the full document with a version compare-and-swap
func (r *DeviationRepository) Save(ctx context.Context, d *entity.Deviation, expectedVersion int64) error {
	stamps, history, approvals, actions, notes, err := deviationDocs(d)
	if err != nil {
		return err
	}

	query := `
		UPDATE deviations SET
			title = ?, description = ?, area = ?, category = ?,
			status = ?, version = ?,
			stamps = ?, history = ?, approvals = ?, actions = ?, notes = ?,
			edited_at = ?, edited_by = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`
	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		d.Title, d.Description, d.Area, d.Category,
		d.Status, d.Version,
		stamps, history, approvals, actions, notes,
		d.EditedAt.UTC(), d.EditedBy, d.EditedAt.UTC(),
		d.ID, expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to save deviation",
			zap.String("id", d.ID),
			zap.Error(err))
		return fmt.Errorf("failed to save deviation: %w", err)
	}
	return casUpdate(result)
}

// List returns deviations matching the filter, newest first, capped
func (r *DeviationRepository) List(ctx context.Context, filter port.ListFilter) ([]*entity.Deviation, error) {
	where, args := listClauses(filter, "owner_id", "created_at",
		[]string{"internal_id", "title", "description", "area"})
	query := `SELECT ` + deviationColumns + ` FROM deviations` + where +
		` ORDER BY created_at DESC LIMIT ?`
	args = append(args, filter.Cap())

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list deviations: %w", err)
	}
	defer rows.Close()

	var out []*entity.Deviation
	for rows.Next() {
		d, err := scanDeviation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deviation: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountByStatus returns per-status counts
func (r *DeviationRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	return countByStatus(ctx, r.db, "deviations")
}

// Delete removes a deviation
func (r *DeviationRepository) Delete(ctx context.Context, id string) error {
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM deviations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete deviation: %w", err)
	}
	return nil
}

func deviationDocs(d *entity.Deviation) (stamps, history, approvals, actions, notes sql.NullString, err error) {
	if stamps, err = marshalDoc(d.Stamps); err != nil {
		return
	}
	if history, err = marshalDoc(d.History); err != nil {
		return
	}
	if approvals, err = marshalDoc(d.Approvals); err != nil {
		return
	}
	if actions, err = marshalDoc(d.Actions); err != nil {
		return
	}
	notes, err = marshalDoc(d.Notes)
	return
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDeviation(row rowScanner) (*entity.Deviation, error) {
	var d entity.Deviation
	var stamps, history, approvals, actions, notes sql.NullString

	err := row.Scan(
		&d.ID, &d.InternalID, &d.Title, &d.Description, &d.Area, &d.Category,
		&d.OwnerID, &d.OwnerEmail, &d.Status, &d.Version,
		&stamps, &history, &approvals, &actions, &notes,
		&d.EditedAt, &d.EditedBy, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Stamps = make(entity.Stamps)
	if err := unmarshalDoc(stamps, &d.Stamps); err != nil {
		return nil, err
	}
	if err := unmarshalDoc(history, &d.History); err != nil {
		return nil, err
	}
	if err := unmarshalDoc(approvals, &d.Approvals); err != nil {
		return nil, err
	}
	if err := unmarshalDoc(actions, &d.Actions); err != nil {
		return nil, err
	}
	if err := unmarshalDoc(notes, &d.Notes); err != nil {
		return nil, err
	}
	return &d, nil
}
