package port

import (
	"context"
	"time"

	"github.com/plantops/workdesk/internal/domain/entity"
)

// MaxListRows caps every list view. There is no data-layer pagination;
// the cap substitutes for cursoring.
const MaxListRows = 2000

// ListFilter holds the common list-view parameters
type ListFilter struct {
	// OwnerID restricts visibility to one owner's entities; empty
	// means no ownership restriction (elevated readers).
	OwnerID  string
	Search   string
	Statuses []string
	From     *time.Time
	To       *time.Time
	Limit    int
}

// Cap returns the effective row limit
func (f ListFilter) Cap() int {
	if f.Limit <= 0 || f.Limit > MaxListRows {
		return MaxListRows
	}
	return f.Limit
}

// DeviationRepository defines persistence operations for Deviation
type DeviationRepository interface {
	Create(ctx context.Context, d *entity.Deviation) error
	GetByID(ctx context.Context, id string) (*entity.Deviation, error)
	// Save persists the full document if the stored version still equals
	// expectedVersion; otherwise it returns ErrVersionConflict.
	Save(ctx context.Context, d *entity.Deviation, expectedVersion int64) error
	List(ctx context.Context, filter ListFilter) ([]*entity.Deviation, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	Delete(ctx context.Context, id string) error
}

// OvertimeRepository defines persistence operations for OvertimeOrder
type OvertimeRepository interface {
	Create(ctx context.Context, o *entity.OvertimeOrder) error
	GetByID(ctx context.Context, id string) (*entity.OvertimeOrder, error)
	Save(ctx context.Context, o *entity.OvertimeOrder, expectedVersion int64) error
	List(ctx context.Context, filter ListFilter) ([]*entity.OvertimeOrder, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	Delete(ctx context.Context, id string) error
}

// InventoryRepository defines persistence operations for InventoryItem
type InventoryRepository interface {
	Create(ctx context.Context, item *entity.InventoryItem) error
	GetByID(ctx context.Context, id string) (*entity.InventoryItem, error)
	Save(ctx context.Context, item *entity.InventoryItem, expectedVersion int64) error
	List(ctx context.Context, filter ListFilter) ([]*entity.InventoryItem, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	Delete(ctx context.Context, id string) error
}

// FailureRepository defines persistence operations for FailureReport
type FailureRepository interface {
	Create(ctx context.Context, f *entity.FailureReport) error
	GetByID(ctx context.Context, id string) (*entity.FailureReport, error)
	Save(ctx context.Context, f *entity.FailureReport, expectedVersion int64) error
	List(ctx context.Context, filter ListFilter) ([]*entity.FailureReport, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// SequenceRepository issues per-family, per-year sequential numbers for
// human-readable internal ids ("N/YY").
type SequenceRepository interface {
	Next(ctx context.Context, family entity.Family, year int) (int, error)
}

// OutboxRepository defines persistence operations for outbox events
type OutboxRepository interface {
	Append(ctx context.Context, evt *entity.OutboxEvent) error
	// Due returns pending events whose next attempt is not in the future
	Due(ctx context.Context, now time.Time, limit int) ([]*entity.OutboxEvent, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, attempts int, nextAttempt time.Time, lastError string, final bool) error
	GetByEntityID(ctx context.Context, entityID string) ([]*entity.OutboxEvent, error)
}

// CoverageRepository answers the vacancy check gating elevated overtime
// approvals.
type CoverageRepository interface {
	HasCoverage(ctx context.Context, department string, from, to time.Time) (bool, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
