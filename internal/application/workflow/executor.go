package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/plantops/workdesk/internal/application/dispatcher"
	"github.com/plantops/workdesk/internal/application/port"
	"github.com/plantops/workdesk/internal/domain/authz"
	"github.com/plantops/workdesk/internal/domain/entity"
	"github.com/plantops/workdesk/internal/domain/event"
	domainwf "github.com/plantops/workdesk/internal/domain/workflow"
)

// Executor-level sentinel errors. Services translate these into their
// own taxonomy where the API needs a more specific reason.
var (
	// ErrUnauthorized is returned when the authorization guard denies
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidStatus is returned when the requested transition is not
	// legal from the entity's current status
	ErrInvalidStatus = errors.New("invalid status")
)

// Entity is the surface the executor needs from a workflow-bearing
// entity; every family's aggregate implements it via the embedded
// Lifecycle plus its identity accessors.
type Entity interface {
	GetID() string
	GetFamily() entity.Family
	GetOwnerID() string
	GetStatus() string
	SetStatus(string)
	GetVersion() int64
	BumpVersion()
	StampStatus(status string, at time.Time, by string)
	Touch(at time.Time, by string)
	AppendHistory(change entity.StatusChange)
}

// SaveFunc persists the mutated entity inside the executor's
// transaction; expectedVersion is the version loaded before mutation
// and must be compared-and-swapped by the repository.
type SaveFunc func(ctx context.Context, expectedVersion int64) error

// Action describes one guarded mutation applied to one entity
type Action struct {
	Actor entity.Actor

	// Trigger drives the state machine; empty for guarded mutations
	// that do not change the status (role approvals, notes).
	Trigger domainwf.Trigger

	// Transition overrides the authorization policy name; defaults to
	// the trigger name.
	Transition string

	Comment string

	// ExtraActorIDs admits additional actors for this one action
	// (e.g. a corrective action's responsible).
	ExtraActorIDs []string

	// Mutate applies extra field changes inside the transaction,
	// after the status change and before saving.
	Mutate func()

	// Outbox, when set, is appended in the same transaction as the
	// state change. Delivery is the outbox worker's problem.
	Outbox *entity.OutboxEvent
}

// Executor applies guarded transitions: authorization, transition-table
// validation, stamping, history, version CAS and the outbox append, all
// inside one transaction, with cache invalidation and async event
// dispatch after commit.
type Executor struct {
	tables      map[entity.Family]*Table
	txManager   port.TransactionManager
	outboxRepo  port.OutboxRepository
	invalidator port.CacheInvalidator
	dispatcher  dispatcher.Dispatcher
	logger      *zap.Logger
	now         func() time.Time
}

// ExecutorOption configures the executor
type ExecutorOption func(*Executor)

// WithClock overrides the executor's clock (tests)
func WithClock(now func() time.Time) ExecutorOption {
	return func(x *Executor) {
		x.now = now
	}
}

// WithDispatcher sets the event dispatcher for post-commit events
func WithDispatcher(d dispatcher.Dispatcher) ExecutorOption {
	return func(x *Executor) {
		x.dispatcher = d
	}
}

// NewExecutor creates a transition executor over the given tables
func NewExecutor(
	tables map[entity.Family]*Table,
	txManager port.TransactionManager,
	outboxRepo port.OutboxRepository,
	invalidator port.CacheInvalidator,
	logger *zap.Logger,
	opts ...ExecutorOption,
) *Executor {
	x := &Executor{
		tables:      tables,
		txManager:   txManager,
		outboxRepo:  outboxRepo,
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Apply executes one transition on one entity, atomically from the
// caller's perspective. The save function must persist with a version
// compare-and-swap.
func (x *Executor) Apply(ctx context.Context, ent Entity, act Action, save SaveFunc) error {
	table, ok := x.tables[ent.GetFamily()]
	if !ok {
		return fmt.Errorf("no transition table for family %s", ent.GetFamily())
	}

	current := domainwf.State(ent.GetStatus())
	if !table.Def.IsValid(current) {
		return fmt.Errorf("entity %s has unknown status %q", ent.GetID(), ent.GetStatus())
	}

	if err := x.authorize(ent, act, table); err != nil {
		return err
	}

	machine := table.Machine(current)
	if !machine.CanFire(act.Trigger) {
		return fmt.Errorf("%w: %s from %q", ErrInvalidStatus, act.Trigger, current)
	}

	previous := ent.GetStatus()
	at := x.now()
	expected := ent.GetVersion()

	err := x.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := machine.Fire(txCtx, act.Trigger); err != nil {
			return fmt.Errorf("%w: %s from %q", ErrInvalidStatus, act.Trigger, previous)
		}

		next := machine.State().String()
		ent.SetStatus(next)
		ent.StampStatus(next, at, x.stampedBy(act.Actor))
		ent.AppendHistory(entity.StatusChange{
			From:      previous,
			To:        next,
			Trigger:   act.Trigger.String(),
			Comment:   act.Comment,
			ChangedAt: at,
			ChangedBy: x.stampedBy(act.Actor),
		})
		ent.Touch(at, x.stampedBy(act.Actor))

		if act.Mutate != nil {
			act.Mutate()
		}

		ent.BumpVersion()

		if err := save(txCtx, expected); err != nil {
			return err
		}

		if act.Outbox != nil {
			if err := x.outboxRepo.Append(txCtx, act.Outbox); err != nil {
				return fmt.Errorf("append outbox event: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	x.afterCommit(ctx, ent, act, previous)
	return nil
}

// ApplyMutation executes a guarded mutation that does not advance the
// status: role approvals, corrective action changes, notes. The same
// authorization, version CAS, edited stamp and outbox semantics apply.
func (x *Executor) ApplyMutation(ctx context.Context, ent Entity, act Action, save SaveFunc) error {
	table, ok := x.tables[ent.GetFamily()]
	if !ok {
		return fmt.Errorf("no transition table for family %s", ent.GetFamily())
	}

	if act.Transition == "" {
		return fmt.Errorf("mutation requires a transition name")
	}

	if err := x.authorize(ent, act, table); err != nil {
		return err
	}

	at := x.now()
	expected := ent.GetVersion()

	err := x.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if act.Mutate != nil {
			act.Mutate()
		}

		ent.Touch(at, x.stampedBy(act.Actor))
		ent.BumpVersion()

		if err := save(txCtx, expected); err != nil {
			return err
		}

		if act.Outbox != nil {
			if err := x.outboxRepo.Append(txCtx, act.Outbox); err != nil {
				return fmt.Errorf("append outbox event: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	x.afterCommit(ctx, ent, act, ent.GetStatus())
	return nil
}

func (x *Executor) authorize(ent Entity, act Action, table *Table) error {
	transition := act.Transition
	if transition == "" {
		transition = act.Trigger.String()
	}

	decision := authz.Decide(act.Actor, authz.Resource{
		Family:          ent.GetFamily(),
		Status:          ent.GetStatus(),
		Terminal:        table.Def.IsTerminal(domainwf.State(ent.GetStatus())),
		OwnerID:         ent.GetOwnerID(),
		AllowedActorIDs: act.ExtraActorIDs,
	}, transition)

	if !decision.Allowed {
		return fmt.Errorf("%w: %s", ErrUnauthorized, decision.Reason)
	}
	return nil
}

func (x *Executor) stampedBy(actor entity.Actor) string {
	if actor.Email != "" {
		return actor.Email
	}
	return actor.ID
}

// afterCommit runs the best-effort side effects. Failures here are
// logged and swallowed: the authoritative write already committed.
func (x *Executor) afterCommit(ctx context.Context, ent Entity, act Action, previous string) {
	if x.invalidator != nil {
		x.invalidator.Invalidate(ent.GetFamily().String())
	}

	if x.dispatcher != nil {
		evt := event.NewEvent(event.TypeStatusChanged, ent.GetFamily(), ent.GetID(), map[string]interface{}{
			"previous_status": previous,
			"new_status":      ent.GetStatus(),
			"trigger":         act.Trigger.String(),
			"actor":           act.Actor.ID,
		})
		x.dispatcher.DispatchAsync(ctx, evt)
	}
}
