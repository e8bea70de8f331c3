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

// FailureRepository implements port.FailureRepository
type FailureRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewFailureRepository creates a new failure repository
func NewFailureRepository(db *sql.DB, logger *zap.Logger) port.FailureRepository {
	return &FailureRepository{
		db:     db,
		logger: logger,
	}
}

const failureColumns = `
	id, internal_id, line, machine, description,
	reported_by, handler_id, resolution,
	status, version, stamps, history,
	edited_at, edited_by, created_at, updated_at
`

// Create inserts a new failure report
func (r *FailureRepository) Create(ctx context.Context, f *entity.FailureReport) error {
	stamps, history, err := failureDocs(f)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO failure_reports (` + failureColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = getExecutor(ctx, r.db).ExecContext(ctx, query,
		f.ID, f.InternalID, f.Line, f.Machine, f.Description,
		f.ReportedBy, f.HandlerID, f.Resolution,
		f.Status, f.Version, stamps, history,
		f.EditedAt.UTC(), f.EditedBy, f.CreatedAt.UTC(), f.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create failure report",
			zap.String("id", f.ID),
			zap.Error(err))
		return fmt.Errorf("failed to create failure report: %w", err)
	}
	return nil
}

// GetByID loads a report, nil when absent
func (r *FailureRepository) GetByID(ctx context.Context, id string) (*entity.FailureReport, error) {
	query := `SELECT ` + failureColumns + ` FROM failure_reports WHERE id = ?`
	row := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id)

	f, err := scanFailure(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get failure report: %w", err)
	}
	return f, nil
}

// Save persists the full document with a version compare-and-swap
func (r *FailureRepository) Save(ctx context.Context, f *entity.FailureReport, expectedVersion int64) error {
	stamps, history, err := failureDocs(f)
	if err != nil {
		return err
	}

	query := `
		UPDATE failure_reports SET
			line = ?, machine = ?, description = ?,
			handler_id = ?, resolution = ?,
			status = ?, version = ?, stamps = ?, history = ?,
			edited_at = ?, edited_by = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`
	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		f.Line, f.Machine, f.Description,
		f.HandlerID, f.Resolution,
		f.Status, f.Version, stamps, history,
		f.EditedAt.UTC(), f.EditedBy, f.EditedAt.UTC(),
		f.ID, expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to save failure report",
			zap.String("id", f.ID),
			zap.Error(err))
		return fmt.Errorf("failed to save failure report: %w", err)
	}
	return casUpdate(result)
}

// List returns reports matching the filter, newest first, capped
func (r *FailureRepository) List(ctx context.Context, filter port.ListFilter) ([]*entity.FailureReport, error) {
	where, args := listClauses(filter, "reported_by", "created_at",
		[]string{"internal_id", "line", "machine", "description"})
	query := `SELECT ` + failureColumns + ` FROM failure_reports` + where +
		` ORDER BY created_at DESC LIMIT ?`
	args = append(args, filter.Cap())

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list failure reports: %w", err)
	}
	defer rows.Close()

	var out []*entity.FailureReport
	for rows.Next() {
		f, err := scanFailure(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan failure report: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// CountByStatus returns per-status counts
func (r *FailureRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	return countByStatus(ctx, r.db, "failure_reports")
}

func failureDocs(f *entity.FailureReport) (stamps, history sql.NullString, err error) {
	if stamps, err = marshalDoc(f.Stamps); err != nil {
		return
	}
	history, err = marshalDoc(f.History)
	return
}

func scanFailure(row rowScanner) (*entity.FailureReport, error) {
	var f entity.FailureReport
	var stamps, history sql.NullString

	err := row.Scan(
		&f.ID, &f.InternalID, &f.Line, &f.Machine, &f.Description,
		&f.ReportedBy, &f.HandlerID, &f.Resolution,
		&f.Status, &f.Version, &stamps, &history,
		&f.EditedAt, &f.EditedBy, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.Stamps = make(entity.Stamps)
	if err := unmarshalDoc(stamps, &f.Stamps); err != nil {
		return nil, err
	}
	if err := unmarshalDoc(history, &f.History); err != nil {
		return nil, err
	}
	return &f, nil
}
