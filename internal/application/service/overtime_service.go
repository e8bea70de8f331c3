package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/plantops/workdesk/internal/application/port"
	appwf "github.com/plantops/workdesk/internal/application/workflow"
	"github.com/plantops/workdesk/internal/domain/authz"
	"github.com/plantops/workdesk/internal/domain/entity"
)

// CreateOvertimeInput carries the fields of a new overtime order
type CreateOvertimeInput struct {
	Department string
	Reason     string
	StartsAt   time.Time
	EndsAt     time.Time
	Hours      decimal.Decimal
	HeadCount  int
}

// OvertimeService manages the overtime-order workflow
type OvertimeService interface {
	Create(ctx context.Context, actor entity.Actor, input CreateOvertimeInput) (*entity.OvertimeOrder, error)
	Get(ctx context.Context, actor entity.Actor, id string) (*entity.OvertimeOrder, error)
	List(ctx context.Context, actor entity.Actor, filter port.ListFilter) ([]*entity.OvertimeOrder, error)
	CountByStatus(ctx context.Context) (map[string]int, error)

	Confirm(ctx context.Context, actor entity.Actor, id string, version int64) error
	Approve(ctx context.Context, actor entity.Actor, id string, version int64) error
	Cancel(ctx context.Context, actor entity.Actor, id string, reason string, version int64) error
	Complete(ctx context.Context, actor entity.Actor, id string, version int64) error
	MarkAccounted(ctx context.Context, actor entity.Actor, id string, version int64) error
	Reactivate(ctx context.Context, actor entity.Actor, id string, version int64) error
	AddNote(ctx context.Context, actor entity.Actor, id string, text string) error

	BulkMarkAccounted(ctx context.Context, actor entity.Actor, ids []string) (BulkResult, error)
	BulkDelete(ctx context.Context, actor entity.Actor, ids []string) (BulkResult, error)
}

type overtimeServiceImpl struct {
	repo         port.OvertimeRepository
	sequenceRepo port.SequenceRepository
	coverageRepo port.CoverageRepository
	txManager    port.TransactionManager
	executor     *appwf.Executor
	views        port.ViewCache
	logger       *zap.Logger
	now          func() time.Time
}

// OvertimeOption configures the overtime service
type OvertimeOption func(*overtimeServiceImpl)

// WithOvertimeClock overrides the service clock (tests)
func WithOvertimeClock(now func() time.Time) OvertimeOption {
	return func(s *overtimeServiceImpl) {
		s.now = now
	}
}

// NewOvertimeService creates a new OvertimeService
func NewOvertimeService(
	repo port.OvertimeRepository,
	sequenceRepo port.SequenceRepository,
	coverageRepo port.CoverageRepository,
	txManager port.TransactionManager,
	executor *appwf.Executor,
	views port.ViewCache,
	logger *zap.Logger,
	opts ...OvertimeOption,
) OvertimeService {
	s := &overtimeServiceImpl{
		repo:         repo,
		sequenceRepo: sequenceRepo,
		coverageRepo: coverageRepo,
		txManager:    txManager,
		executor:     executor,
		views:        views,
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create creates a new overtime order. Orders starting more than the
// forecast window in the future begin as forecast and carry no pending
// stamp until confirmed.
func (s *overtimeServiceImpl) Create(ctx context.Context, actor entity.Actor, input CreateOvertimeInput) (*entity.OvertimeOrder, error) {
	if input.Department == "" || input.StartsAt.IsZero() || input.EndsAt.IsZero() {
		return nil, fmt.Errorf("%w: department and time window are required", ErrValidation)
	}
	if !input.EndsAt.After(input.StartsAt) {
		return nil, fmt.Errorf("%w: end must be after start", ErrValidation)
	}

	now := s.now()
	status := entity.InitialOvertimeStatus(input.StartsAt, now)

	order := &entity.OvertimeOrder{
		ID:             uuid.NewString(),
		Department:     input.Department,
		Reason:         input.Reason,
		StartsAt:       input.StartsAt,
		EndsAt:         input.EndsAt,
		Hours:          input.Hours,
		HeadCount:      input.HeadCount,
		RequestedBy:    actor.ID,
		RequestedEmail: actor.Email,
		Lifecycle:      entity.NewLifecycle(status, now, actor.Email, status == entity.OvertimeForecast),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		seq, err := s.sequenceRepo.Next(txCtx, entity.FamilyOvertime, now.Year())
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		order.InternalID = internalID(seq, now.Year())
		return s.repo.Create(txCtx, order)
	})
	if err != nil {
		s.logger.Error("Failed to create overtime order", zap.Error(err))
		return nil, err
	}

	s.views.Invalidate(entity.FamilyOvertime.String())
	s.logger.Info("Overtime order created",
		zap.String("id", order.ID),
		zap.String("internal_id", order.InternalID),
		zap.String("status", order.Status))
	return order, nil
}

// Get retrieves one order; non-elevated actors only see their own
func (s *overtimeServiceImpl) Get(ctx context.Context, actor entity.Actor, id string) (*entity.OvertimeOrder, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	if !s.mayRead(actor) && order.RequestedBy != actor.ID {
		return nil, ErrUnauthorized
	}
	return order, nil
}

// List returns a capped, role-scoped projection of orders
func (s *overtimeServiceImpl) List(ctx context.Context, actor entity.Actor, filter port.ListFilter) ([]*entity.OvertimeOrder, error) {
	if !s.mayRead(actor) {
		filter.OwnerID = actor.ID
	}
	return s.repo.List(ctx, filter)
}

// CountByStatus returns per-status counts for summary cards. Counts
// are cached under the family tag and dropped on every transition.
func (s *overtimeServiceImpl) CountByStatus(ctx context.Context) (map[string]int, error) {
	tag := entity.FamilyOvertime.String()
	if v, ok := s.views.Get(tag + ":counts"); ok {
		if counts, ok := v.(map[string]int); ok {
			return counts, nil
		}
	}
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	s.views.Set(tag, tag+":counts", counts)
	return counts, nil
}

// Confirm moves a forecast order into the pending queue
func (s *overtimeServiceImpl) Confirm(ctx context.Context, actor entity.Actor, id string, version int64) error {
	order, err := s.load(ctx, id, version)
	if err != nil {
		return err
	}
	return s.apply(ctx, order, appwf.Action{Actor: actor, Trigger: appwf.TriggerConfirm})
}

// Approve approves a pending order. The department must have coverage
// registered for the order window; otherwise the approval is blocked
// with vacancy_required. Approval queues exactly one notification to
// the requester; its delivery never affects the transition.
func (s *overtimeServiceImpl) Approve(ctx context.Context, actor entity.Actor, id string, version int64) error {
	order, err := s.load(ctx, id, version)
	if err != nil {
		return err
	}

	covered, err := s.coverageRepo.HasCoverage(ctx, order.Department, order.StartsAt, order.EndsAt)
	if err != nil {
		s.logger.Error("Coverage check failed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("coverage check: %w", err)
	}
	if !covered {
		return ErrVacancyRequired
	}

	return s.apply(ctx, order, appwf.Action{
		Actor:   actor,
		Trigger: appwf.TriggerApprove,
		Outbox:  s.approvalMail(order, actor),
	})
}

// Cancel cancels an order. Completed, accounted and already-canceled
// orders cannot be canceled.
func (s *overtimeServiceImpl) Cancel(ctx context.Context, actor entity.Actor, id string, reason string, version int64) error {
	order, err := s.load(ctx, id, version)
	if err != nil {
		return err
	}
	err = s.apply(ctx, order, appwf.Action{Actor: actor, Trigger: appwf.TriggerCancel, Comment: reason})
	if errors.Is(err, ErrInvalidStatus) {
		return ErrCannotCancel
	}
	return err
}

// Complete marks an approved order as worked
func (s *overtimeServiceImpl) Complete(ctx context.Context, actor entity.Actor, id string, version int64) error {
	order, err := s.load(ctx, id, version)
	if err != nil {
		return err
	}
	return s.apply(ctx, order, appwf.Action{Actor: actor, Trigger: appwf.TriggerComplete})
}

// MarkAccounted closes the payroll loop on a completed order
func (s *overtimeServiceImpl) MarkAccounted(ctx context.Context, actor entity.Actor, id string, version int64) error {
	order, err := s.load(ctx, id, version)
	if err != nil {
		return err
	}
	return s.apply(ctx, order, appwf.Action{Actor: actor, Trigger: appwf.TriggerMarkAccounted})
}

// Reactivate returns a canceled order to the pending queue
func (s *overtimeServiceImpl) Reactivate(ctx context.Context, actor entity.Actor, id string, version int64) error {
	order, err := s.load(ctx, id, version)
	if err != nil {
		return err
	}
	return s.apply(ctx, order, appwf.Action{Actor: actor, Trigger: appwf.TriggerReactivate})
}

// AddNote appends a note without advancing the status
func (s *overtimeServiceImpl) AddNote(ctx context.Context, actor entity.Actor, id string, text string) error {
	if text == "" {
		return fmt.Errorf("%w: note text is required", ErrValidation)
	}
	order, err := s.load(ctx, id, 0)
	if err != nil {
		return err
	}
	return s.executor.ApplyMutation(ctx, order, appwf.Action{
		Actor:      actor,
		Transition: authz.TransitionNoteAdd,
		Mutate: func() {
			order.Notes = append(order.Notes, entity.Note{
				ID:        uuid.NewString(),
				Text:      text,
				CreatedAt: s.now(),
				CreatedBy: actor.Email,
			})
		},
	}, s.saveFunc(order))
}

// BulkMarkAccounted applies mark-accounted to a batch. Items in an
// ineligible status are skipped; faults are counted, never re-raised.
func (s *overtimeServiceImpl) BulkMarkAccounted(ctx context.Context, actor entity.Actor, ids []string) (BulkResult, error) {
	var result BulkResult
	for _, id := range ids {
		order, err := s.repo.GetByID(ctx, id)
		if err != nil {
			s.logger.Error("Bulk account: load failed", zap.String("id", id), zap.Error(err))
			result.Failed++
			continue
		}
		if order == nil {
			result.Skipped++
			continue
		}

		err = s.apply(ctx, order, appwf.Action{Actor: actor, Trigger: appwf.TriggerMarkAccounted})
		switch {
		case err == nil:
			result.Modified++
		case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrUnauthorized):
			result.Skipped++
		default:
			s.logger.Error("Bulk account: transition failed", zap.String("id", id), zap.Error(err))
			result.Failed++
		}
	}
	return result, nil
}

// BulkDelete physically deletes a batch of orders. Admin only; this is
// the single path that ever removes an order.
func (s *overtimeServiceImpl) BulkDelete(ctx context.Context, actor entity.Actor, ids []string) (BulkResult, error) {
	if !actor.IsAdmin() {
		return BulkResult{}, ErrUnauthorized
	}

	var result BulkResult
	for _, id := range ids {
		order, err := s.repo.GetByID(ctx, id)
		if err != nil {
			result.Failed++
			continue
		}
		if order == nil {
			result.Skipped++
			continue
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			s.logger.Error("Bulk delete failed", zap.String("id", id), zap.Error(err))
			result.Failed++
			continue
		}
		result.Modified++
	}

	if result.Modified > 0 {
		s.views.Invalidate(entity.FamilyOvertime.String())
	}
	return result, nil
}

func (s *overtimeServiceImpl) load(ctx context.Context, id string, version int64) (*entity.OvertimeOrder, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	if version != 0 && order.Version != version {
		return nil, port.ErrVersionConflict
	}
	return order, nil
}

func (s *overtimeServiceImpl) apply(ctx context.Context, order *entity.OvertimeOrder, act appwf.Action) error {
	return s.executor.Apply(ctx, order, act, s.saveFunc(order))
}

func (s *overtimeServiceImpl) saveFunc(order *entity.OvertimeOrder) appwf.SaveFunc {
	return func(txCtx context.Context, expectedVersion int64) error {
		return s.repo.Save(txCtx, order, expectedVersion)
	}
}

func (s *overtimeServiceImpl) mayRead(actor entity.Actor) bool {
	return actor.IsAdmin() ||
		actor.HasRole(entity.RolePlantManager) ||
		actor.HasRole(entity.RoleHR) ||
		actor.HasRole(entity.RoleGroupLeader) ||
		actor.HasRole(entity.RoleProductionManager)
}

func (s *overtimeServiceImpl) approvalMail(order *entity.OvertimeOrder, approver entity.Actor) *entity.OutboxEvent {
	html := fmt.Sprintf(
		"<p>Your overtime order %s (%s, %s&ndash;%s) has been approved by %s.</p>",
		order.InternalID,
		order.Department,
		order.StartsAt.Format("2006-01-02 15:04"),
		order.EndsAt.Format("15:04"),
		approver.Name,
	)
	return &entity.OutboxEvent{
		Family:      entity.FamilyOvertime,
		EntityID:    order.ID,
		EventType:   "overtime.approved",
		MailTo:      order.RequestedEmail,
		MailSubject: fmt.Sprintf("Overtime order %s approved", order.InternalID),
		MailHTML:    html,
	}
}
