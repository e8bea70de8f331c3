package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/plantops/workdesk/internal/application/port"
	appwf "github.com/plantops/workdesk/internal/application/workflow"
	"github.com/plantops/workdesk/internal/domain/entity"
)

// CreateFailureInput carries the fields of a new failure report
type CreateFailureInput struct {
	Line        string
	Machine     string
	Description string
}

// FailureService manages the failure-report workflow
type FailureService interface {
	Create(ctx context.Context, actor entity.Actor, input CreateFailureInput) (*entity.FailureReport, error)
	Get(ctx context.Context, actor entity.Actor, id string) (*entity.FailureReport, error)
	List(ctx context.Context, actor entity.Actor, filter port.ListFilter) ([]*entity.FailureReport, error)
	CountByStatus(ctx context.Context) (map[string]int, error)

	Take(ctx context.Context, actor entity.Actor, id string, version int64) error
	Resolve(ctx context.Context, actor entity.Actor, id string, resolution string, version int64) error
	Reopen(ctx context.Context, actor entity.Actor, id string, reason string, version int64) error
}

type failureServiceImpl struct {
	repo         port.FailureRepository
	sequenceRepo port.SequenceRepository
	txManager    port.TransactionManager
	executor     *appwf.Executor
	views        port.ViewCache
	logger       *zap.Logger
	now          func() time.Time
}

// NewFailureService creates a new FailureService
func NewFailureService(
	repo port.FailureRepository,
	sequenceRepo port.SequenceRepository,
	txManager port.TransactionManager,
	executor *appwf.Executor,
	views port.ViewCache,
	logger *zap.Logger,
) FailureService {
	return &failureServiceImpl{
		repo:         repo,
		sequenceRepo: sequenceRepo,
		txManager:    txManager,
		executor:     executor,
		views:        views,
		logger:       logger,
		now:          time.Now,
	}
}

// Create logs a new failure. Anyone on the floor may report one.
func (s *failureServiceImpl) Create(ctx context.Context, actor entity.Actor, input CreateFailureInput) (*entity.FailureReport, error) {
	if input.Line == "" || input.Description == "" {
		return nil, fmt.Errorf("%w: line and description are required", ErrValidation)
	}

	now := s.now()
	report := &entity.FailureReport{
		ID:          uuid.NewString(),
		Line:        input.Line,
		Machine:     input.Machine,
		Description: input.Description,
		ReportedBy:  actor.ID,
		Lifecycle:   entity.NewLifecycle(entity.FailureOpen, now, actor.Email, false),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		seq, err := s.sequenceRepo.Next(txCtx, entity.FamilyFailures, now.Year())
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		report.InternalID = internalID(seq, now.Year())
		return s.repo.Create(txCtx, report)
	})
	if err != nil {
		s.logger.Error("Failed to create failure report", zap.Error(err))
		return nil, err
	}

	s.views.Invalidate(entity.FamilyFailures.String())
	s.logger.Info("Failure report created",
		zap.String("id", report.ID),
		zap.String("internal_id", report.InternalID),
		zap.String("line", report.Line))
	return report, nil
}

// Get retrieves one report. Failure reports are plant-public.
func (s *failureServiceImpl) Get(ctx context.Context, actor entity.Actor, id string) (*entity.FailureReport, error) {
	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, ErrNotFound
	}
	return report, nil
}

// List returns a capped projection of reports
func (s *failureServiceImpl) List(ctx context.Context, actor entity.Actor, filter port.ListFilter) ([]*entity.FailureReport, error) {
	return s.repo.List(ctx, filter)
}

// CountByStatus returns per-status counts for summary cards. Counts
// are cached under the family tag and dropped on every transition.
func (s *failureServiceImpl) CountByStatus(ctx context.Context) (map[string]int, error) {
	tag := entity.FamilyFailures.String()
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

// Take claims an open report; the caller becomes its handler
func (s *failureServiceImpl) Take(ctx context.Context, actor entity.Actor, id string, version int64) error {
	report, err := s.load(ctx, id, version)
	if err != nil {
		return err
	}
	return s.executor.Apply(ctx, report, appwf.Action{
		Actor:   actor,
		Trigger: appwf.TriggerTake,
		Mutate: func() {
			report.HandlerID = actor.ID
		},
	}, s.saveFunc(report))
}

// Resolve closes a report in progress. A resolution note is mandatory.
func (s *failureServiceImpl) Resolve(ctx context.Context, actor entity.Actor, id string, resolution string, version int64) error {
	if resolution == "" {
		return fmt.Errorf("%w: resolution is required", ErrValidation)
	}
	report, err := s.load(ctx, id, version)
	if err != nil {
		return err
	}
	return s.executor.Apply(ctx, report, appwf.Action{
		Actor:   actor,
		Trigger: appwf.TriggerResolve,
		Comment: resolution,
		Mutate: func() {
			report.Resolution = resolution
		},
	}, s.saveFunc(report))
}

// Reopen returns a resolved report to open
func (s *failureServiceImpl) Reopen(ctx context.Context, actor entity.Actor, id string, reason string, version int64) error {
	report, err := s.load(ctx, id, version)
	if err != nil {
		return err
	}
	return s.executor.Apply(ctx, report, appwf.Action{
		Actor:   actor,
		Trigger: appwf.TriggerReopen,
		Comment: reason,
		Mutate: func() {
			report.HandlerID = ""
			report.Resolution = ""
		},
	}, s.saveFunc(report))
}

func (s *failureServiceImpl) load(ctx context.Context, id string, version int64) (*entity.FailureReport, error) {
	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, ErrNotFound
	}
	if version != 0 && report.Version != version {
		return nil, port.ErrVersionConflict
	}
	return report, nil
}

func (s *failureServiceImpl) saveFunc(report *entity.FailureReport) appwf.SaveFunc {
	return func(txCtx context.Context, expectedVersion int64) error {
		return s.repo.Save(txCtx, report, expectedVersion)
	}
}
