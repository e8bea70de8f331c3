package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plantops/workdesk/internal/domain/entity"
	"github.com/plantops/workdesk/pkg/utils"
)

type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type mockOutboxRepo struct {
	appended   []*entity.OutboxEvent
	appendFunc func(ctx context.Context, evt *entity.OutboxEvent) error
}

func (m *mockOutboxRepo) Append(ctx context.Context, evt *entity.OutboxEvent) error {
	if m.appendFunc != nil {
		return m.appendFunc(ctx, evt)
	}
	m.appended = append(m.appended, evt)
	return nil
}

func (m *mockOutboxRepo) Due(ctx context.Context, now time.Time, limit int) ([]*entity.OutboxEvent, error) {
	return nil, nil
}

func (m *mockOutboxRepo) MarkSent(ctx context.Context, id int64) error { return nil }

func (m *mockOutboxRepo) MarkFailed(ctx context.Context, id int64, attempts int, nextAttempt time.Time, lastError string, final bool) error {
	return nil
}

func (m *mockOutboxRepo) GetByEntityID(ctx context.Context, entityID string) ([]*entity.OutboxEvent, error) {
	return nil, nil
}

type mockInvalidator struct {
	tags []string
}

func (m *mockInvalidator) Invalidate(tags ...string) {
	m.tags = append(m.tags, tags...)
}

func fixedClock() func() time.Time {
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func pendingOrder(owner string) *entity.OvertimeOrder {
	now := time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC)
	return &entity.OvertimeOrder{
		ID:          "ot-1",
		InternalID:  "4/25",
		Department:  "assembly",
		RequestedBy: owner,
		StartsAt:    now.Add(48 * time.Hour),
		EndsAt:      now.Add(52 * time.Hour),
		Lifecycle:   entity.NewLifecycle(entity.OvertimePending, now, owner+"@plant.example", false),
	}
}

func newTestExecutor(outbox *mockOutboxRepo, inv *mockInvalidator) (*Executor, *mockTxManager) {
	tx := &mockTxManager{}
	x := NewExecutor(Tables(), tx, outbox, inv, utils.NewTestLogger(), WithClock(fixedClock()))
	return x, tx
}

func TestExecutor_ApplyLegalTransition(t *testing.T) {
	outbox := &mockOutboxRepo{}
	inv := &mockInvalidator{}
	x, _ := newTestExecutor(outbox, inv)

	order := pendingOrder("requester")
	approver := entity.Actor{ID: "pm", Email: "pm@plant.example", Roles: []entity.Role{entity.RolePlantManager}}

	var savedExpected int64 = -1
	err := x.Apply(context.Background(), order, Action{
		Actor:   approver,
		Trigger: TriggerApprove,
		Outbox: &entity.OutboxEvent{
			Family:   entity.FamilyOvertime,
			EntityID: order.ID,
			MailTo:   "requester@plant.example",
		},
	}, func(ctx context.Context, expectedVersion int64) error {
		savedExpected = expectedVersion
		return nil
	})

	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if order.Status != entity.OvertimeApproved {
		t.Errorf("status = %q, want %q", order.Status, entity.OvertimeApproved)
	}
	if stamp, ok := order.Stamps.Get(entity.OvertimeApproved); !ok {
		t.Error("approved stamp missing")
	} else if stamp.By != "pm@plant.example" {
		t.Errorf("approved stamp by = %q, want pm@plant.example", stamp.By)
	}
	if savedExpected != 1 {
		t.Errorf("save expected version = %d, want 1", savedExpected)
	}
	if order.Version != 2 {
		t.Errorf("version after transition = %d, want 2", order.Version)
	}
	if len(order.History) != 1 || order.History[0].From != entity.OvertimePending || order.History[0].To != entity.OvertimeApproved {
		t.Errorf("history = %+v, want one pending->approved entry", order.History)
	}
	if len(outbox.appended) != 1 {
		t.Fatalf("outbox events = %d, want exactly 1", len(outbox.appended))
	}
	if len(inv.tags) != 1 || inv.tags[0] != "overtime-orders" {
		t.Errorf("invalidated tags = %v, want [overtime-orders]", inv.tags)
	}
}

func TestExecutor_ApplyIllegalSourceStatus(t *testing.T) {
	outbox := &mockOutboxRepo{}
	x, tx := newTestExecutor(outbox, &mockInvalidator{})

	order := pendingOrder("requester")
	order.Status = entity.OvertimeCompleted

	saveCalled := false
	err := x.Apply(context.Background(), order, Action{
		Actor:   entity.Actor{ID: "pm", Roles: []entity.Role{entity.RolePlantManager}},
		Trigger: TriggerCancel,
	}, func(ctx context.Context, expectedVersion int64) error {
		saveCalled = true
		return nil
	})

	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("Apply() error = %v, want ErrInvalidStatus", err)
	}
	if saveCalled {
		t.Error("save must not be called on illegal transition")
	}
	if tx.calls != 0 {
		t.Error("transaction must not start on illegal transition")
	}
	if order.Status != entity.OvertimeCompleted {
		t.Errorf("status mutated to %q on failed transition", order.Status)
	}
	if order.Version != 1 {
		t.Errorf("version mutated to %d on failed transition", order.Version)
	}
	if len(order.History) != 0 {
		t.Error("history appended on failed transition")
	}
	if order.Stamps.Has(entity.OvertimeCanceled) {
		t.Error("canceled stamp written on failed transition")
	}
	if len(outbox.appended) != 0 {
		t.Error("outbox event appended on failed transition")
	}
}

func TestExecutor_ApplyUnauthorized(t *testing.T) {
	x, tx := newTestExecutor(&mockOutboxRepo{}, &mockInvalidator{})

	order := pendingOrder("requester")

	err := x.Apply(context.Background(), order, Action{
		Actor:   entity.Actor{ID: "someone", Roles: []entity.Role{entity.RoleEmployee}},
		Trigger: TriggerApprove,
	}, func(ctx context.Context, expectedVersion int64) error {
		t.Fatal("save must not be called")
		return nil
	})

	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Apply() error = %v, want ErrUnauthorized", err)
	}
	if tx.calls != 0 {
		t.Error("transaction must not start for unauthorized caller")
	}
	if order.Status != entity.OvertimePending {
		t.Errorf("status mutated to %q for unauthorized caller", order.Status)
	}
}

func TestExecutor_ApplyPropagatesSaveError(t *testing.T) {
	x, _ := newTestExecutor(&mockOutboxRepo{}, &mockInvalidator{})

	order := pendingOrder("requester")
	conflict := errors.New("version conflict")

	err := x.Apply(context.Background(), order, Action{
		Actor:   entity.Actor{ID: "pm", Roles: []entity.Role{entity.RolePlantManager}},
		Trigger: TriggerApprove,
	}, func(ctx context.Context, expectedVersion int64) error {
		return conflict
	})

	if !errors.Is(err, conflict) {
		t.Fatalf("Apply() error = %v, want save error", err)
	}
}

func TestExecutor_ApplyUnknownStoredStatus(t *testing.T) {
	x, _ := newTestExecutor(&mockOutboxRepo{}, &mockInvalidator{})

	order := pendingOrder("requester")
	order.Status = "garbled"

	err := x.Apply(context.Background(), order, Action{
		Actor:   entity.Actor{ID: "pm", Roles: []entity.Role{entity.RolePlantManager}},
		Trigger: TriggerApprove,
	}, func(ctx context.Context, expectedVersion int64) error { return nil })

	if err == nil {
		t.Fatal("Apply() with unknown stored status should error")
	}
}

func TestExecutor_ApplyMutation(t *testing.T) {
	x, _ := newTestExecutor(&mockOutboxRepo{}, &mockInvalidator{})

	order := pendingOrder("requester")
	actor := entity.Actor{ID: "requester", Email: "requester@plant.example"}

	mutated := false
	err := x.ApplyMutation(context.Background(), order, Action{
		Actor:      actor,
		Transition: "note-add",
		Mutate: func() {
			mutated = true
			order.Notes = append(order.Notes, entity.Note{ID: "n1", Text: "shift confirmed"})
		},
	}, func(ctx context.Context, expectedVersion int64) error {
		if expectedVersion != 1 {
			t.Errorf("expected version = %d, want 1", expectedVersion)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("ApplyMutation() error = %v", err)
	}
	if !mutated {
		t.Error("Mutate was not invoked")
	}
	if order.Version != 2 {
		t.Errorf("version = %d, want 2", order.Version)
	}
	if order.Status != entity.OvertimePending {
		t.Errorf("status changed by mutation to %q", order.Status)
	}
	if order.EditedBy != "requester@plant.example" {
		t.Errorf("edited by = %q, want requester email", order.EditedBy)
	}
}

func TestExecutor_ApplyMutationRequiresTransitionName(t *testing.T) {
	x, _ := newTestExecutor(&mockOutboxRepo{}, &mockInvalidator{})

	order := pendingOrder("requester")
	err := x.ApplyMutation(context.Background(), order, Action{
		Actor: entity.Actor{ID: "requester"},
	}, func(ctx context.Context, expectedVersion int64) error { return nil })

	if err == nil {
		t.Fatal("ApplyMutation() without transition name should error")
	}
}
