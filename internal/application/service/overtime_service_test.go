package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/workdesk/internal/application/port"
	appwf "github.com/plantops/workdesk/internal/application/workflow"
	"github.com/plantops/workdesk/internal/domain/entity"
	"github.com/plantops/workdesk/pkg/utils"
)

type mockTxManager struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockOvertimeRepo struct {
	orders  map[string]*entity.OvertimeOrder
	saveErr error
	deleted []string
}

func newMockOvertimeRepo(orders ...*entity.OvertimeOrder) *mockOvertimeRepo {
	m := &mockOvertimeRepo{orders: make(map[string]*entity.OvertimeOrder)}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *mockOvertimeRepo) Create(ctx context.Context, o *entity.OvertimeOrder) error {
	m.orders[o.ID] = o
	return nil
}

func (m *mockOvertimeRepo) GetByID(ctx context.Context, id string) (*entity.OvertimeOrder, error) {
	return m.orders[id], nil
}

func (m *mockOvertimeRepo) Save(ctx context.Context, o *entity.OvertimeOrder, expectedVersion int64) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.orders[o.ID]; !ok {
		return port.ErrVersionConflict
	}
	m.orders[o.ID] = o
	return nil
}

func (m *mockOvertimeRepo) List(ctx context.Context, filter port.ListFilter) ([]*entity.OvertimeOrder, error) {
	var out []*entity.OvertimeOrder
	for _, o := range m.orders {
		if filter.OwnerID != "" && o.RequestedBy != filter.OwnerID {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (m *mockOvertimeRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, o := range m.orders {
		counts[o.Status]++
	}
	return counts, nil
}

func (m *mockOvertimeRepo) Delete(ctx context.Context, id string) error {
	delete(m.orders, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockSequenceRepo struct {
	next int
}

func (m *mockSequenceRepo) Next(ctx context.Context, family entity.Family, year int) (int, error) {
	m.next++
	return m.next, nil
}

type mockCoverageRepo struct {
	covered bool
	err     error
	calls   int
}

func (m *mockCoverageRepo) HasCoverage(ctx context.Context, department string, from, to time.Time) (bool, error) {
	m.calls++
	return m.covered, m.err
}

type mockOutboxRepo struct {
	appended []*entity.OutboxEvent
}

func (m *mockOutboxRepo) Append(ctx context.Context, evt *entity.OutboxEvent) error {
	m.appended = append(m.appended, evt)
	return nil
}

func (m *mockOutboxRepo) Due(ctx context.Context, now time.Time, limit int) ([]*entity.OutboxEvent, error) {
	return nil, nil
}

func (m *mockOutboxRepo) MarkSent(ctx context.Context, id int64) error { return nil }

func (m *mockOutboxRepo) MarkFailed(ctx context.Context, id int64, attempts int, next time.Time, lastError string, final bool) error {
	return nil
}

func (m *mockOutboxRepo) GetByEntityID(ctx context.Context, entityID string) ([]*entity.OutboxEvent, error) {
	return m.appended, nil
}

type mockViewCache struct {
	tags    []string
	entries map[string]interface{}
}

func (m *mockViewCache) Invalidate(tags ...string) {
	m.tags = append(m.tags, tags...)
	m.entries = nil
}

func (m *mockViewCache) Get(key string) (interface{}, bool) {
	v, ok := m.entries[key]
	return v, ok
}

func (m *mockViewCache) Set(tag, key string, value interface{}) {
	if m.entries == nil {
		m.entries = make(map[string]interface{})
	}
	m.entries[key] = value
}

type overtimeFixture struct {
	service  OvertimeService
	repo     *mockOvertimeRepo
	outbox   *mockOutboxRepo
	coverage *mockCoverageRepo
	cache    *mockViewCache
	now      time.Time
}

func newOvertimeFixture(t *testing.T, orders ...*entity.OvertimeOrder) *overtimeFixture {
	t.Helper()

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	logger := utils.NewTestLogger()

	repo := newMockOvertimeRepo(orders...)
	outbox := &mockOutboxRepo{}
	coverage := &mockCoverageRepo{covered: true}
	cache := &mockViewCache{}
	tx := &mockTxManager{}

	executor := appwf.NewExecutor(appwf.Tables(), tx, outbox, cache, logger, appwf.WithClock(clock))
	svc := NewOvertimeService(repo, &mockSequenceRepo{}, coverage, tx, executor, cache, logger, WithOvertimeClock(clock))

	return &overtimeFixture{service: svc, repo: repo, outbox: outbox, coverage: coverage, cache: cache, now: now}
}

func hrActor() entity.Actor {
	return entity.Actor{ID: "hr-1", Email: "hr@plant.example", Name: "HR", Roles: []entity.Role{entity.RoleHR}}
}

func plantManagerActor() entity.Actor {
	return entity.Actor{ID: "pm-1", Email: "pm@plant.example", Name: "Plant Manager", Roles: []entity.Role{entity.RolePlantManager}}
}

func requesterActor() entity.Actor {
	return entity.Actor{ID: "emp-1", Email: "emp@plant.example", Name: "Employee", Roles: []entity.Role{entity.RoleEmployee}}
}

func orderInStatus(id, status string, startsAt time.Time) *entity.OvertimeOrder {
	created := startsAt.Add(-48 * time.Hour)
	return &entity.OvertimeOrder{
		ID:             id,
		InternalID:     "7/26",
		Department:     "assembly",
		StartsAt:       startsAt,
		EndsAt:         startsAt.Add(4 * time.Hour),
		Hours:          decimal.NewFromInt(4),
		HeadCount:      3,
		RequestedBy:    "emp-1",
		RequestedEmail: "emp@plant.example",
		Lifecycle:      entity.NewLifecycle(status, created, "emp@plant.example", false),
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

func TestOvertimeCreate_NearStartIsPending(t *testing.T) {
	f := newOvertimeFixture(t)

	order, err := f.service.Create(context.Background(), requesterActor(), CreateOvertimeInput{
		Department: "assembly",
		Reason:     "rush order",
		StartsAt:   f.now.Add(48 * time.Hour),
		EndsAt:     f.now.Add(52 * time.Hour),
		Hours:      decimal.NewFromInt(4),
		HeadCount:  2,
	})
	require.NoError(t, err)

	assert.Equal(t, entity.OvertimePending, order.Status)
	assert.Equal(t, "1/26", order.InternalID)
	assert.True(t, order.Stamps.Has(entity.OvertimePending))
	assert.Equal(t, int64(1), order.Version)
}

func TestOvertimeCreate_FarStartIsForecastWithoutPendingStamp(t *testing.T) {
	f := newOvertimeFixture(t)

	order, err := f.service.Create(context.Background(), requesterActor(), CreateOvertimeInput{
		Department: "assembly",
		StartsAt:   f.now.Add(10 * 24 * time.Hour),
		EndsAt:     f.now.Add(10*24*time.Hour + 4*time.Hour),
		Hours:      decimal.NewFromInt(4),
	})
	require.NoError(t, err)

	assert.Equal(t, entity.OvertimeForecast, order.Status)
	assert.False(t, order.Stamps.Has(entity.OvertimePending), "forecast orders carry no pending stamp")
	assert.False(t, order.Stamps.Has(entity.OvertimeForecast))
	assert.Empty(t, order.History)
}

func TestOvertimeCreate_RejectsInvertedWindow(t *testing.T) {
	f := newOvertimeFixture(t)

	_, err := f.service.Create(context.Background(), requesterActor(), CreateOvertimeInput{
		Department: "assembly",
		StartsAt:   f.now.Add(4 * time.Hour),
		EndsAt:     f.now.Add(2 * time.Hour),
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOvertimeConfirm_ForecastBecomesPendingAndStamped(t *testing.T) {
	order := orderInStatus("ot-1", entity.OvertimeForecast, time.Date(2026, 3, 20, 6, 0, 0, 0, time.UTC))
	f := newOvertimeFixture(t, order)

	err := f.service.Confirm(context.Background(), hrActor(), "ot-1", 1)
	require.NoError(t, err)

	assert.Equal(t, entity.OvertimePending, order.Status)
	assert.True(t, order.Stamps.Has(entity.OvertimePending))
	assert.Equal(t, int64(2), order.Version)
}

func TestOvertimeApprove_QueuesExactlyOneMailToRequester(t *testing.T) {
	order := orderInStatus("ot-1", entity.OvertimePending, f0().Add(72*time.Hour))
	f := newOvertimeFixture(t, order)

	err := f.service.Approve(context.Background(), plantManagerActor(), "ot-1", 1)
	require.NoError(t, err)

	assert.Equal(t, entity.OvertimeApproved, order.Status)
	require.Len(t, f.outbox.appended, 1)
	evt := f.outbox.appended[0]
	assert.Equal(t, "emp@plant.example", evt.MailTo)
	assert.Equal(t, "overtime.approved", evt.EventType)
	assert.Contains(t, evt.MailSubject, "7/26")
	assert.Contains(t, f.cache.tags, entity.FamilyOvertime.String())
}

func f0() time.Time {
	return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
}

func TestOvertimeApprove_BlockedWithoutCoverage(t *testing.T) {
	order := orderInStatus("ot-1", entity.OvertimePending, f0().Add(72*time.Hour))
	f := newOvertimeFixture(t, order)
	f.coverage.covered = false

	err := f.service.Approve(context.Background(), plantManagerActor(), "ot-1", 1)
	assert.ErrorIs(t, err, ErrVacancyRequired)

	assert.Equal(t, entity.OvertimePending, order.Status)
	assert.Empty(t, f.outbox.appended)
	assert.Equal(t, int64(1), order.Version)
}

func TestOvertimeApprove_RequesterRoleDenied(t *testing.T) {
	order := orderInStatus("ot-1", entity.OvertimePending, f0().Add(72*time.Hour))
	f := newOvertimeFixture(t, order)

	err := f.service.Approve(context.Background(), requesterActor(), "ot-1", 1)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, entity.OvertimePending, order.Status)
}

func TestOvertimeCancel_CompletedOrderCannotBeCanceled(t *testing.T) {
	order := orderInStatus("ot-1", entity.OvertimeCompleted, f0().Add(-72*time.Hour))
	f := newOvertimeFixture(t, order)

	err := f.service.Cancel(context.Background(), plantManagerActor(), "ot-1", "not needed", 1)
	assert.ErrorIs(t, err, ErrCannotCancel)

	assert.Equal(t, entity.OvertimeCompleted, order.Status)
	assert.Equal(t, int64(1), order.Version)
	assert.Empty(t, order.History)
}

func TestOvertimeCancel_TerminalOrderDeniedBeforeCancelCheck(t *testing.T) {
	order := orderInStatus("ot-1", entity.OvertimeAccounted, f0().Add(-72*time.Hour))
	f := newOvertimeFixture(t, order)

	// Terminal lockout wins over the cancel-specific error for
	// non-admin actors
	err := f.service.Cancel(context.Background(), plantManagerActor(), "ot-1", "too late", 1)
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, entity.OvertimeAccounted, order.Status)
	assert.Equal(t, int64(1), order.Version)
	assert.Empty(t, order.History)
}

func TestOvertimeCancel_OwnerMayCancelPending(t *testing.T) {
	order := orderInStatus("ot-1", entity.OvertimePending, f0().Add(72*time.Hour))
	f := newOvertimeFixture(t, order)

	err := f.service.Cancel(context.Background(), requesterActor(), "ot-1", "shift covered", 1)
	require.NoError(t, err)

	assert.Equal(t, entity.OvertimeCanceled, order.Status)
	require.Len(t, order.History, 1)
	assert.Equal(t, "shift covered", order.History[0].Comment)
}

func TestOvertimeTransition_StaleVersionConflicts(t *testing.T) {
	order := orderInStatus("ot-1", entity.OvertimePending, f0().Add(72*time.Hour))
	f := newOvertimeFixture(t, order)

	err := f.service.Approve(context.Background(), plantManagerActor(), "ot-1", 7)
	assert.ErrorIs(t, err, port.ErrVersionConflict)
	assert.Equal(t, entity.OvertimePending, order.Status)
}

func TestOvertimeBulkMarkAccounted_MixedBatch(t *testing.T) {
	completed := orderInStatus("ot-1", entity.OvertimeCompleted, f0().Add(-72*time.Hour))
	pending := orderInStatus("ot-2", entity.OvertimePending, f0().Add(72*time.Hour))
	f := newOvertimeFixture(t, completed, pending)

	result, err := f.service.BulkMarkAccounted(context.Background(), hrActor(), []string{"ot-1", "ot-2", "missing"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Modified)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, entity.OvertimeAccounted, completed.Status)
	assert.Equal(t, entity.OvertimePending, pending.Status)
}

func TestOvertimeBulkDelete_AdminOnly(t *testing.T) {
	order := orderInStatus("ot-1", entity.OvertimePending, f0().Add(72*time.Hour))
	f := newOvertimeFixture(t, order)

	_, err := f.service.BulkDelete(context.Background(), hrActor(), []string{"ot-1"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	admin := entity.Actor{ID: "root", Email: "root@plant.example", Roles: []entity.Role{entity.RoleAdmin}}
	result, err := f.service.BulkDelete(context.Background(), admin, []string{"ot-1", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Modified)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, []string{"ot-1"}, f.repo.deleted)
}

func TestOvertimeList_NonElevatedActorSeesOnlyOwn(t *testing.T) {
	mine := orderInStatus("ot-1", entity.OvertimePending, f0().Add(72*time.Hour))
	other := orderInStatus("ot-2", entity.OvertimePending, f0().Add(72*time.Hour))
	other.RequestedBy = "someone-else"
	f := newOvertimeFixture(t, mine, other)

	orders, err := f.service.List(context.Background(), requesterActor(), port.ListFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "ot-1", orders[0].ID)

	all, err := f.service.List(context.Background(), hrActor(), port.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestOvertimeAddNote_AppendsWithoutStatusChange(t *testing.T) {
	order := orderInStatus("ot-1", entity.OvertimeApproved, f0().Add(72*time.Hour))
	f := newOvertimeFixture(t, order)

	err := f.service.AddNote(context.Background(), requesterActor(), "ot-1", "shift leader informed")
	require.NoError(t, err)

	assert.Equal(t, entity.OvertimeApproved, order.Status)
	require.Len(t, order.Notes, 1)
	assert.Equal(t, "shift leader informed", order.Notes[0].Text)
	assert.Equal(t, int64(2), order.Version)
	assert.Empty(t, order.History)
}

func TestOvertimeCountByStatus_ServedFromCacheUntilInvalidated(t *testing.T) {
	f := newOvertimeFixture(t,
		orderInStatus("ot-1", entity.OvertimePending, f0().Add(72*time.Hour)),
		orderInStatus("ot-2", entity.OvertimeApproved, f0().Add(96*time.Hour)),
	)
	ctx := context.Background()

	counts, err := f.service.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[entity.OvertimePending])

	// A stale cached view hides new rows until the next invalidation
	f.repo.orders["ot-3"] = orderInStatus("ot-3", entity.OvertimePending, f0().Add(120*time.Hour))

	counts, err = f.service.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[entity.OvertimePending])

	f.cache.Invalidate(entity.FamilyOvertime.String())

	counts, err = f.service.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[entity.OvertimePending])
}
