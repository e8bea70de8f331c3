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
)

// CreateInventoryInput carries the fields of a new inventory item
type CreateInventoryInput struct {
	Name         string
	SerialNumber string
	Category     string
}

// InventoryService manages the IT asset workflow
type InventoryService interface {
	Create(ctx context.Context, actor entity.Actor, input CreateInventoryInput) (*entity.InventoryItem, error)
	Get(ctx context.Context, actor entity.Actor, id string) (*entity.InventoryItem, error)
	List(ctx context.Context, actor entity.Actor, filter port.ListFilter) ([]*entity.InventoryItem, error)
	CountByStatus(ctx context.Context) (map[string]int, error)

	Assign(ctx context.Context, actor entity.Actor, id string, assignee entity.Actor, version int64) error
	Release(ctx context.Context, actor entity.Actor, id string, version int64) error
	SendToRepair(ctx context.Context, actor entity.Actor, id string, comment string, version int64) error
	ReturnFromRepair(ctx context.Context, actor entity.Actor, id string, version int64) error
	Dispose(ctx context.Context, actor entity.Actor, id string, comment string, version int64) error
	AddNote(ctx context.Context, actor entity.Actor, id string, text string) error
}

type inventoryServiceImpl struct {
	repo         port.InventoryRepository
	sequenceRepo port.SequenceRepository
	txManager    port.TransactionManager
	executor     *appwf.Executor
	views        port.ViewCache
	logger       *zap.Logger
	now          func() time.Time
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(
	repo port.InventoryRepository,
	sequenceRepo port.SequenceRepository,
	txManager port.TransactionManager,
	executor *appwf.Executor,
	views port.ViewCache,
	logger *zap.Logger,
) InventoryService {
	return &inventoryServiceImpl{
		repo:         repo,
		sequenceRepo: sequenceRepo,
		txManager:    txManager,
		executor:     executor,
		views:        views,
		logger:       logger,
		now:          time.Now,
	}
}

// Create registers a new asset in storage
func (s *inventoryServiceImpl) Create(ctx context.Context, actor entity.Actor, input CreateInventoryInput) (*entity.InventoryItem, error) {
	if !actor.IsAdmin() && !actor.HasRole(entity.RoleITManager) {
		return nil, ErrUnauthorized
	}
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	now := s.now()
	item := &entity.InventoryItem{
		ID:           uuid.NewString(),
		Name:         input.Name,
		SerialNumber: input.SerialNumber,
		Category:     input.Category,
		OwnerID:      actor.ID,
		Lifecycle:    entity.NewLifecycle(entity.InventoryInStorage, now, actor.Email, false),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		seq, err := s.sequenceRepo.Next(txCtx, entity.FamilyInventory, now.Year())
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		item.InternalID = internalID(seq, now.Year())
		return s.repo.Create(txCtx, item)
	})
	if err != nil {
		s.logger.Error("Failed to create inventory item", zap.Error(err))
		return nil, err
	}

	s.views.Invalidate(entity.FamilyInventory.String())
	s.logger.Info("Inventory item created",
		zap.String("id", item.ID),
		zap.String("internal_id", item.InternalID))
	return item, nil
}

// Get retrieves one item
func (s *inventoryServiceImpl) Get(ctx context.Context, actor entity.Actor, id string) (*entity.InventoryItem, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

// List returns a capped projection. The inventory register is readable
// by everyone; non-elevated actors without an assignment see the whole
// list too, the asset register is not confidential.
func (s *inventoryServiceImpl) List(ctx context.Context, actor entity.Actor, filter port.ListFilter) ([]*entity.InventoryItem, error) {
	return s.repo.List(ctx, filter)
}

// CountByStatus returns per-status counts for summary cards. Counts
// are cached under the family tag and dropped on every transition.
func (s *inventoryServiceImpl) CountByStatus(ctx context.Context) (map[string]int, error) {
	tag := entity.FamilyInventory.String()
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

// Assign hands a stored asset to a user
func (s *inventoryServiceImpl) Assign(ctx context.Context, actor entity.Actor, id string, assignee entity.Actor, version int64) error {
	if assignee.ID == "" {
		return fmt.Errorf("%w: assignee is required", ErrValidation)
	}
	item, err := s.load(ctx, id, version)
	if err != nil {
		return err
	}
	return s.apply(ctx, item, appwf.Action{
		Actor:   actor,
		Trigger: appwf.TriggerAssign,
		Mutate: func() {
			item.AssigneeID = assignee.ID
			item.AssigneeEmail = assignee.Email
		},
	})
}

// Release returns an assigned asset to storage
func (s *inventoryServiceImpl) Release(ctx context.Context, actor entity.Actor, id string, version int64) error {
	item, err := s.load(ctx, id, version)
	if err != nil {
		return err
	}
	return s.apply(ctx, item, appwf.Action{
		Actor:         actor,
		Trigger:       appwf.TriggerRelease,
		ExtraActorIDs: []string{item.AssigneeID},
		Mutate: func() {
			item.AssigneeID = ""
			item.AssigneeEmail = ""
		},
	})
}

// SendToRepair moves an asset to repair
func (s *inventoryServiceImpl) SendToRepair(ctx context.Context, actor entity.Actor, id string, comment string, version int64) error {
	item, err := s.load(ctx, id, version)
	if err != nil {
		return err
	}
	return s.apply(ctx, item, appwf.Action{
		Actor:         actor,
		Trigger:       appwf.TriggerSendRepair,
		Comment:       comment,
		ExtraActorIDs: []string{item.AssigneeID},
	})
}

// ReturnFromRepair returns a repaired asset to storage
func (s *inventoryServiceImpl) ReturnFromRepair(ctx context.Context, actor entity.Actor, id string, version int64) error {
	item, err := s.load(ctx, id, version)
	if err != nil {
		return err
	}
	return s.apply(ctx, item, appwf.Action{Actor: actor, Trigger: appwf.TriggerReturnRepair})
}

// Dispose retires an asset. Disposed is terminal.
func (s *inventoryServiceImpl) Dispose(ctx context.Context, actor entity.Actor, id string, comment string, version int64) error {
	item, err := s.load(ctx, id, version)
	if err != nil {
		return err
	}
	return s.apply(ctx, item, appwf.Action{Actor: actor, Trigger: appwf.TriggerDispose, Comment: comment})
}

// AddNote appends a note without advancing the status
func (s *inventoryServiceImpl) AddNote(ctx context.Context, actor entity.Actor, id string, text string) error {
	if text == "" {
		return fmt.Errorf("%w: note text is required", ErrValidation)
	}
	item, err := s.load(ctx, id, 0)
	if err != nil {
		return err
	}
	return s.executor.ApplyMutation(ctx, item, appwf.Action{
		Actor:         actor,
		Transition:    authz.TransitionNoteAdd,
		ExtraActorIDs: []string{item.AssigneeID},
		Mutate: func() {
			item.Notes = append(item.Notes, entity.Note{
				ID:        uuid.NewString(),
				Text:      text,
				CreatedAt: s.now(),
				CreatedBy: actor.Email,
			})
		},
	}, s.saveFunc(item))
}

func (s *inventoryServiceImpl) load(ctx context.Context, id string, version int64) (*entity.InventoryItem, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	if version != 0 && item.Version != version {
		return nil, port.ErrVersionConflict
	}
	return item, nil
}

func (s *inventoryServiceImpl) apply(ctx context.Context, item *entity.InventoryItem, act appwf.Action) error {
	return s.executor.Apply(ctx, item, act, s.saveFunc(item))
}

func (s *inventoryServiceImpl) saveFunc(item *entity.InventoryItem) appwf.SaveFunc {
	return func(txCtx context.Context, expectedVersion int64) error {
		return s.repo.Save(txCtx, item, expectedVersion)
	}
}
