package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/plantops/workdesk/internal/application/port"
	"github.com/plantops/workdesk/internal/domain/entity"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// In-memory databases exist per connection
	db.SetMaxOpenConns(1)

	schema, err := os.ReadFile("../../../../migrations/001_initial_schema.sql")
	require.NoError(t, err)

	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	return db
}

func newTestDeviation(id string, at time.Time) *entity.Deviation {
	d := &entity.Deviation{
		ID:          id,
		InternalID:  "1/26",
		Title:       "Paint defects on line 2",
		Description: "Recurring paint blistering on rear panels",
		Area:        "paint shop",
		Category:    "quality",
		OwnerID:     "u-owner",
		OwnerEmail:  "owner@plant.example",
		Lifecycle:   entity.NewLifecycle(entity.DeviationDraft, at, "u-owner", false),
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	return d
}

func TestDeviationRepositoryRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewDeviationRepository(db, zap.NewNop())
	ctx := context.Background()

	at := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	d := newTestDeviation("dev-1", at)
	d.AppendHistory(entity.StatusChange{
		From:      "",
		To:        entity.DeviationDraft,
		Trigger:   "create",
		ChangedAt: at,
		ChangedBy: "u-owner",
	})
	d.Approvals = []entity.RoleApproval{{Role: entity.RoleQualityManager}}

	require.NoError(t, repo.Create(ctx, d))

	got, err := repo.GetByID(ctx, "dev-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "1/26", got.InternalID)
	assert.Equal(t, entity.DeviationDraft, got.Status)
	assert.Equal(t, int64(1), got.Version)
	assert.True(t, got.Stamps.Has(entity.DeviationDraft))
	require.Len(t, got.History, 1)
	assert.Equal(t, "create", got.History[0].Trigger)
	require.Len(t, got.Approvals, 1)
	assert.Equal(t, entity.RoleQualityManager, got.Approvals[0].Role)
	assert.True(t, got.CreatedAt.Equal(at))
}

func TestDeviationRepositoryGetAbsent(t *testing.T) {
	db := newTestDB(t)
	repo := NewDeviationRepository(db, zap.NewNop())

	got, err := repo.GetByID(context.Background(), "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeviationRepositorySaveVersionGuard(t *testing.T) {
	db := newTestDB(t)
	repo := NewDeviationRepository(db, zap.NewNop())
	ctx := context.Background()

	at := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	d := newTestDeviation("dev-1", at)
	require.NoError(t, repo.Create(ctx, d))

	d.Status = entity.DeviationInApproval
	d.Version = 2
	require.NoError(t, repo.Save(ctx, d, 1))

	// A writer holding the old version must not win
	stale := newTestDeviation("dev-1", at)
	stale.Status = entity.DeviationClosed
	stale.Version = 2
	err := repo.Save(ctx, stale, 1)
	assert.ErrorIs(t, err, port.ErrVersionConflict)

	got, err := repo.GetByID(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, entity.DeviationInApproval, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestDeviationRepositoryListFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewDeviationRepository(db, zap.NewNop())
	ctx := context.Background()

	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	first := newTestDeviation("dev-1", base)
	require.NoError(t, repo.Create(ctx, first))

	second := newTestDeviation("dev-2", base.Add(time.Hour))
	second.InternalID = "2/26"
	second.Title = "Torque wrench out of calibration"
	second.OwnerID = "u-other"
	second.Status = entity.DeviationInApproval
	require.NoError(t, repo.Create(ctx, second))

	t.Run("by status", func(t *testing.T) {
		out, err := repo.List(ctx, port.ListFilter{Statuses: []string{entity.DeviationInApproval}})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "dev-2", out[0].ID)
	})

	t.Run("by owner", func(t *testing.T) {
		out, err := repo.List(ctx, port.ListFilter{OwnerID: "u-owner"})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "dev-1", out[0].ID)
	})

	t.Run("by search", func(t *testing.T) {
		out, err := repo.List(ctx, port.ListFilter{Search: "torque"})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "dev-2", out[0].ID)
	})

	t.Run("newest first", func(t *testing.T) {
		out, err := repo.List(ctx, port.ListFilter{})
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "dev-2", out[0].ID)
	})

	t.Run("counts", func(t *testing.T) {
		counts, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, counts[entity.DeviationDraft])
		assert.Equal(t, 1, counts[entity.DeviationInApproval])
	})
}

func TestOvertimeRepositoryHoursRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewOvertimeRepository(db, zap.NewNop())
	ctx := context.Background()

	at := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	o := &entity.OvertimeOrder{
		ID:             "ot-1",
		InternalID:     "1/26",
		Department:     "assembly",
		Reason:         "backlog on order 4711",
		StartsAt:       at.Add(48 * time.Hour),
		EndsAt:         at.Add(52 * time.Hour),
		Hours:          decimal.RequireFromString("3.25"),
		HeadCount:      4,
		RequestedBy:    "u-lead",
		RequestedEmail: "lead@plant.example",
		Lifecycle:      entity.NewLifecycle(entity.OvertimePending, at, "u-lead", false),
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	require.NoError(t, repo.Create(ctx, o))

	got, err := repo.GetByID(ctx, "ot-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Hours.Equal(decimal.RequireFromString("3.25")))
	assert.Equal(t, 4, got.HeadCount)
	assert.Equal(t, entity.OvertimePending, got.Status)
}

func TestSequenceRepositoryNext(t *testing.T) {
	db := newTestDB(t)
	repo := NewSequenceRepository(db)
	ctx := context.Background()

	n, err := repo.Next(ctx, entity.FamilyDeviations, 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.Next(ctx, entity.FamilyDeviations, 2026)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Counters are independent per family and per year
	n, err = repo.Next(ctx, entity.FamilyOvertime, 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.Next(ctx, entity.FamilyDeviations, 2027)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOutboxRepositoryDueAndMarks(t *testing.T) {
	db := newTestDB(t)
	repo := NewOutboxRepository(db, zap.NewNop())
	ctx := context.Background()

	evt := &entity.OutboxEvent{
		Family:      entity.FamilyOvertime,
		EntityID:    "ot-1",
		EventType:   "overtime.approved",
		MailTo:      "lead@plant.example",
		MailSubject: "Overtime order 1/26 approved",
		MailHTML:    "<p>approved</p>",
	}
	require.NoError(t, repo.Append(ctx, evt))
	require.NotZero(t, evt.ID)

	later := time.Now().Add(time.Minute)

	due, err := repo.Due(ctx, later, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "overtime.approved", due[0].EventType)
	assert.Equal(t, entity.OutboxPending, due[0].Status)

	t.Run("sent events leave the queue", func(t *testing.T) {
		require.NoError(t, repo.MarkSent(ctx, evt.ID))

		due, err := repo.Due(ctx, later, 10)
		require.NoError(t, err)
		assert.Empty(t, due)

		all, err := repo.GetByEntityID(ctx, "ot-1")
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, entity.OutboxSent, all[0].Status)
	})
}

func TestOutboxRepositoryFailureRescheduling(t *testing.T) {
	db := newTestDB(t)
	repo := NewOutboxRepository(db, zap.NewNop())
	ctx := context.Background()

	evt := &entity.OutboxEvent{
		Family:    entity.FamilyDeviations,
		EntityID:  "dev-1",
		EventType: "deviation.closed",
		MailTo:    "owner@plant.example",
	}
	require.NoError(t, repo.Append(ctx, evt))

	next := time.Now().Add(30 * time.Second)
	require.NoError(t, repo.MarkFailed(ctx, evt.ID, 1, next, "relay timeout", false))

	// Not due before the reschedule point
	due, err := repo.Due(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = repo.Due(ctx, next.Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 1, due[0].Attempts)
	assert.Equal(t, "relay timeout", due[0].LastError)

	t.Run("final failure parks the event", func(t *testing.T) {
		require.NoError(t, repo.MarkFailed(ctx, evt.ID, 5, next, "relay down", true))

		due, err := repo.Due(ctx, next.Add(time.Hour), 10)
		require.NoError(t, err)
		assert.Empty(t, due)

		all, err := repo.GetByEntityID(ctx, "dev-1")
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, entity.OutboxFailed, all[0].Status)
	})
}

func TestCoverageRepositoryHasCoverage(t *testing.T) {
	db := newTestDB(t)
	repo := NewCoverageRepository(db)
	ctx := context.Background()

	from := time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)

	_, err := db.Exec(`
		INSERT INTO department_coverage (department, covered_from, covered_to)
		VALUES (?, ?, ?)
	`, "assembly", from.Add(-time.Hour), to.Add(time.Hour))
	require.NoError(t, err)

	covered, err := repo.HasCoverage(ctx, "assembly", from, to)
	require.NoError(t, err)
	assert.True(t, covered)

	// Partial overlap does not count as coverage
	covered, err = repo.HasCoverage(ctx, "assembly", from, to.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, covered)

	covered, err = repo.HasCoverage(ctx, "logistics", from, to)
	require.NoError(t, err)
	assert.False(t, covered)
}
