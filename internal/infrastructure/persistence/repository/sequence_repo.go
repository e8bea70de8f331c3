package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/plantops/workdesk/internal/application/port"
	"github.com/plantops/workdesk/internal/domain/entity"
)

// SequenceRepository issues per-family per-year sequential numbers
type SequenceRepository struct {
	db *sql.DB
}

// NewSequenceRepository creates a new sequence repository
func NewSequenceRepository(db *sql.DB) port.SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next increments and returns the counter for (family, year). Meant to
// run inside the creating transaction so a rolled-back create never
// burns a number visible to readers.
func (r *SequenceRepository) Next(ctx context.Context, family entity.Family, year int) (int, error) {
	ex := getExecutor(ctx, r.db)

	_, err := ex.ExecContext(ctx, `
		INSERT INTO sequences (family, year, value) VALUES (?, ?, 1)
		ON CONFLICT(family, year) DO UPDATE SET value = value + 1
	`, family.String(), year)
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence: %w", err)
	}

	var value int
	err = ex.QueryRowContext(ctx,
		`SELECT value FROM sequences WHERE family = ? AND year = ?`,
		family.String(), year,
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("failed to read sequence: %w", err)
	}
	return value, nil
}
