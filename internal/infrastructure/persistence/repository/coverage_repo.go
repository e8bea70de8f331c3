package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/plantops/workdesk/internal/application/port"
)

// CoverageRepository answers the vacancy check against the department
// coverage table maintained by shift planning.
type CoverageRepository struct {
	db *sql.DB
}

// NewCoverageRepository creates a new coverage repository
func NewCoverageRepository(db *sql.DB) port.CoverageRepository {
	return &CoverageRepository{db: db}
}

// HasCoverage reports whether the department has a coverage entry
// spanning the whole window.
func (r *CoverageRepository) HasCoverage(ctx context.Context, department string, from, to time.Time) (bool, error) {
	var n int
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM department_coverage
		WHERE department = ? AND covered_from <= ? AND covered_to >= ?
	`, department, from.UTC(), to.UTC()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check coverage: %w", err)
	}
	return n > 0, nil
}
