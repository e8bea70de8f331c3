package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/plantops/workdesk/internal/application/port"
	appwf "github.com/plantops/workdesk/internal/application/workflow"
	"github.com/plantops/workdesk/internal/domain/authz"
	"github.com/plantops/workdesk/internal/domain/entity"
	domainwf "github.com/plantops/workdesk/internal/domain/workflow"
)

// CreateDeviationInput carries the fields of a new deviation record
type CreateDeviationInput struct {
	Title       string
	Description string
	Area        string
	Category    string
}

// UpdateDeviationInput carries the editable fields of a draft deviation
type UpdateDeviationInput struct {
	Title       string
	Description string
	Area        string
	Category    string
}

// AddActionInput carries the fields of a new corrective action
type AddActionInput struct {
	Description   string
	ResponsibleID string
	DueDate       time.Time
}

// DeviationService manages the deviation workflow
type DeviationService interface {
	Create(ctx context.Context, actor entity.Actor, input CreateDeviationInput) (*entity.Deviation, error)
	Update(ctx context.Context, actor entity.Actor, id string, input UpdateDeviationInput, version int64) error
	Get(ctx context.Context, actor entity.Actor, id string) (*entity.Deviation, error)
	List(ctx context.Context, actor entity.Actor, filter port.ListFilter) ([]*entity.Deviation, error)
	CountByStatus(ctx context.Context) (map[string]int, error)

	Submit(ctx context.Context, actor entity.Actor, id string, version int64) error
	Approve(ctx context.Context, actor entity.Actor, id string, comment string, version int64) error
	Reject(ctx context.Context, actor entity.Actor, id string, reason string, version int64) error
	BeginProgress(ctx context.Context, actor entity.Actor, id string, version int64) error
	Close(ctx context.Context, actor entity.Actor, id string, comment string, version int64) error
	Reopen(ctx context.Context, actor entity.Actor, id string, reason string, version int64) error

	DecideRole(ctx context.Context, actor entity.Actor, id string, role entity.Role, decision, reason string) error
	AddAction(ctx context.Context, actor entity.Actor, id string, input AddActionInput) (*entity.CorrectiveAction, error)
	SetActionStatus(ctx context.Context, actor entity.Actor, id, actionID, status, comment string) error
	AddNote(ctx context.Context, actor entity.Actor, id string, text string) error

	BulkDelete(ctx context.Context, actor entity.Actor, ids []string) (BulkResult, error)
}

type deviationServiceImpl struct {
	repo         port.DeviationRepository
	sequenceRepo port.SequenceRepository
	txManager    port.TransactionManager
	executor     *appwf.Executor
	views        port.ViewCache
	logger       *zap.Logger
	now          func() time.Time
}

// DeviationOption configures the deviation service
type DeviationOption func(*deviationServiceImpl)

// WithDeviationClock overrides the service clock (tests)
func WithDeviationClock(now func() time.Time) DeviationOption {
	return func(s *deviationServiceImpl) {
		s.now = now
	}
}

// NewDeviationService creates a new DeviationService
func NewDeviationService(
	repo port.DeviationRepository,
	sequenceRepo port.SequenceRepository,
	txManager port.TransactionManager,
	executor *appwf.Executor,
	views port.ViewCache,
	logger *zap.Logger,
	opts ...DeviationOption,
) DeviationService {
	s := &deviationServiceImpl{
		repo:         repo,
		sequenceRepo: sequenceRepo,
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

// Create records a new deviation in draft
func (s *deviationServiceImpl) Create(ctx context.Context, actor entity.Actor, input CreateDeviationInput) (*entity.Deviation, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	now := s.now()
	dev := &entity.Deviation{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: input.Description,
		Area:        input.Area,
		Category:    input.Category,
		OwnerID:     actor.ID,
		OwnerEmail:  actor.Email,
		Lifecycle:   entity.NewLifecycle(entity.DeviationDraft, now, actor.Email, false),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		seq, err := s.sequenceRepo.Next(txCtx, entity.FamilyDeviations, now.Year())
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		dev.InternalID = internalID(seq, now.Year())
		return s.repo.Create(txCtx, dev)
	})
	if err != nil {
		s.logger.Error("Failed to create deviation", zap.Error(err))
		return nil, err
	}

	s.views.Invalidate(entity.FamilyDeviations.String())
	s.logger.Info("Deviation created",
		zap.String("id", dev.ID),
		zap.String("internal_id", dev.InternalID))
	return dev, nil
}

// Update edits the descriptive fields of a draft. Once submitted a
// deviation's core fields are frozen; only the workflow moves it.
func (s *deviationServiceImpl) Update(ctx context.Context, actor entity.Actor, id string, input UpdateDeviationInput, version int64) error {
	dev, err := s.load(ctx, id, version)
	if err != nil {
		return err
	}
	if dev.Status != entity.DeviationDraft {
		return ErrCannotEdit
	}
	if input.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}

	return s.executor.ApplyMutation(ctx, dev, appwf.Action{
		Actor:      actor,
		Transition: authz.TransitionEdit,
		Mutate: func() {
			dev.Title = input.Title
			dev.Description = input.Description
			dev.Area = input.Area
			dev.Category = input.Category
		},
	}, s.saveFunc(dev))
}

// Get retrieves one deviation; non-elevated actors only see their own
func (s *deviationServiceImpl) Get(ctx context.Context, actor entity.Actor, id string) (*entity.Deviation, error) {
	dev, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, ErrNotFound
	}
	if !s.mayRead(actor) && dev.OwnerID != actor.ID {
		return nil, ErrUnauthorized
	}
	return dev, nil
}

// List returns a capped, role-scoped projection of deviations
func (s *deviationServiceImpl) List(ctx context.Context, actor entity.Actor, filter port.ListFilter) ([]*entity.Deviation, error) {
	if !s.mayRead(actor) {
		filter.OwnerID = actor.ID
	}
	return s.repo.List(ctx, filter)
}

// CountByStatus returns per-status counts for summary cards. Counts
// are cached under the family tag and dropped on every transition.
func (s *deviationServiceImpl) CountByStatus(ctx context.Context) (map[string]int, error) {
	tag := entity.FamilyDeviations.String()
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

// Submit sends a draft into approval
func (s *deviationServiceImpl) Submit(ctx context.Context, actor entity.Actor, id string, version int64) error {
	return s.fire(ctx, actor, id, appwf.TriggerSubmit, "", version)
}

// Approve approves a deviation under review
func (s *deviationServiceImpl) Approve(ctx context.Context, actor entity.Actor, id string, comment string, version int64) error {
	return s.fire(ctx, actor, id, appwf.TriggerApprove, comment, version)
}

// Reject rejects a deviation under review. Rejected deviations are
// terminal for everyone but admin.
func (s *deviationServiceImpl) Reject(ctx context.Context, actor entity.Actor, id string, reason string, version int64) error {
	return s.fire(ctx, actor, id, appwf.TriggerReject, reason, version)
}

// BeginProgress starts work on an approved deviation
func (s *deviationServiceImpl) BeginProgress(ctx context.Context, actor entity.Actor, id string, version int64) error {
	return s.fire(ctx, actor, id, appwf.TriggerBeginProgress, "", version)
}

// Close closes a deviation being worked
func (s *deviationServiceImpl) Close(ctx context.Context, actor entity.Actor, id string, comment string, version int64) error {
	return s.fire(ctx, actor, id, appwf.TriggerClose, comment, version)
}

// Reopen returns a rejected or closed deviation to in progress
func (s *deviationServiceImpl) Reopen(ctx context.Context, actor entity.Actor, id string, reason string, version int64) error {
	return s.fire(ctx, actor, id, appwf.TriggerReopen, reason, version)
}

// DecideRole records one role's approve/reject decision. A role holds
// at most one active decision; a new decision archives the previous one
// to that role's history before overwriting.
func (s *deviationServiceImpl) DecideRole(ctx context.Context, actor entity.Actor, id string, role entity.Role, decision, reason string) error {
	if decision != entity.DecisionApproved && decision != entity.DecisionRejected {
		return fmt.Errorf("%w: decision must be %q or %q", ErrValidation, entity.DecisionApproved, entity.DecisionRejected)
	}
	if !isApprovalRole(role) {
		return fmt.Errorf("%w: %s holds no approval slot", ErrValidation, role)
	}
	if !actor.IsAdmin() && !authz.Satisfies(actor, role) {
		return ErrUnauthorized
	}

	dev, err := s.load(ctx, id, 0)
	if err != nil {
		return err
	}

	at := s.now()
	return s.executor.ApplyMutation(ctx, dev, appwf.Action{
		Actor:      actor,
		Transition: authz.TransitionRoleApproval,
		Mutate: func() {
			dev.Approval(role).Decide(decision, reason, at, actor.Email)
		},
	}, s.saveFunc(dev))
}

// AddAction attaches a new corrective action to a deviation
func (s *deviationServiceImpl) AddAction(ctx context.Context, actor entity.Actor, id string, input AddActionInput) (*entity.CorrectiveAction, error) {
	if input.Description == "" || input.ResponsibleID == "" {
		return nil, fmt.Errorf("%w: description and responsible are required", ErrValidation)
	}

	dev, err := s.load(ctx, id, 0)
	if err != nil {
		return nil, err
	}

	at := s.now()
	action := entity.CorrectiveAction{
		ID:            uuid.NewString(),
		Description:   input.Description,
		ResponsibleID: input.ResponsibleID,
		DueDate:       input.DueDate,
		Status:        entity.ActionOpen,
		CreatedAt:     at,
		CreatedBy:     actor.Email,
	}

	err = s.executor.ApplyMutation(ctx, dev, appwf.Action{
		Actor:      actor,
		Transition: authz.TransitionActionCreate,
		Mutate: func() {
			dev.Actions = append(dev.Actions, action)
		},
	}, s.saveFunc(dev))
	if err != nil {
		return nil, err
	}
	return dev.Action(action.ID), nil
}

// SetActionStatus advances one corrective action through its own
// machine. The action's responsible may act on it regardless of role.
func (s *deviationServiceImpl) SetActionStatus(ctx context.Context, actor entity.Actor, id, actionID, status, comment string) error {
	dev, err := s.load(ctx, id, 0)
	if err != nil {
		return err
	}
	action := dev.Action(actionID)
	if action == nil {
		return ErrNotFound
	}

	trigger, ok := actionTrigger(status)
	if !ok {
		return fmt.Errorf("%w: unknown action status %q", ErrValidation, status)
	}

	machine := appwf.ActionTable().Machine(domainwf.State(action.Status))
	if !machine.CanFire(trigger) {
		return fmt.Errorf("%w: %s from %q", ErrInvalidStatus, trigger, action.Status)
	}

	at := s.now()
	return s.executor.ApplyMutation(ctx, dev, appwf.Action{
		Actor:         actor,
		Transition:    authz.TransitionActionStatus,
		ExtraActorIDs: []string{action.ResponsibleID},
		Mutate: func() {
			action.SetStatus(status, comment, at, actor.Email)
		},
	}, s.saveFunc(dev))
}

// AddNote appends a note without advancing the status
func (s *deviationServiceImpl) AddNote(ctx context.Context, actor entity.Actor, id string, text string) error {
	if text == "" {
		return fmt.Errorf("%w: note text is required", ErrValidation)
	}
	dev, err := s.load(ctx, id, 0)
	if err != nil {
		return err
	}
	return s.executor.ApplyMutation(ctx, dev, appwf.Action{
		Actor:      actor,
		Transition: authz.TransitionNoteAdd,
		Mutate: func() {
			dev.Notes = append(dev.Notes, entity.Note{
				ID:        uuid.NewString(),
				Text:      text,
				CreatedAt: s.now(),
				CreatedBy: actor.Email,
			})
		},
	}, s.saveFunc(dev))
}

// BulkDelete physically deletes a batch of deviations. Admin only.
func (s *deviationServiceImpl) BulkDelete(ctx context.Context, actor entity.Actor, ids []string) (BulkResult, error) {
	if !actor.IsAdmin() {
		return BulkResult{}, ErrUnauthorized
	}

	var result BulkResult
	for _, id := range ids {
		dev, err := s.repo.GetByID(ctx, id)
		if err != nil {
			result.Failed++
			continue
		}
		if dev == nil {
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
		s.views.Invalidate(entity.FamilyDeviations.String())
	}
	return result, nil
}

func (s *deviationServiceImpl) fire(ctx context.Context, actor entity.Actor, id string, trigger domainwf.Trigger, comment string, version int64) error {
	dev, err := s.load(ctx, id, version)
	if err != nil {
		return err
	}
	return s.executor.Apply(ctx, dev, appwf.Action{Actor: actor, Trigger: trigger, Comment: comment}, s.saveFunc(dev))
}

func (s *deviationServiceImpl) load(ctx context.Context, id string, version int64) (*entity.Deviation, error) {
	dev, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, ErrNotFound
	}
	if version != 0 && dev.Version != version {
		return nil, port.ErrVersionConflict
	}
	return dev, nil
}

func (s *deviationServiceImpl) saveFunc(dev *entity.Deviation) appwf.SaveFunc {
	return func(txCtx context.Context, expectedVersion int64) error {
		return s.repo.Save(txCtx, dev, expectedVersion)
	}
}

func (s *deviationServiceImpl) mayRead(actor entity.Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	for _, role := range entity.ApprovalRoles {
		if actor.HasRole(role) {
			return true
		}
	}
	return false
}

func isApprovalRole(role entity.Role) bool {
	for _, r := range entity.ApprovalRoles {
		if r == role {
			return true
		}
	}
	return false
}

// actionTrigger maps a requested action status to its machine trigger
func actionTrigger(status string) (domainwf.Trigger, bool) {
	switch status {
	case entity.ActionInProgress:
		return appwf.TriggerBeginProgress, true
	case entity.ActionClosed:
		return appwf.TriggerClose, true
	case entity.ActionRejected:
		return appwf.TriggerReject, true
	default:
		return "", false
	}
}
