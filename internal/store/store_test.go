package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"finsim/internal/domain"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, EnsureSchema(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func newTask(owner, product string, due time.Time) domain.Task {
	return domain.Task{
		OwnerID:         owner,
		ProductID:       product,
		Type:            domain.TaskTypeLoan,
		State:           domain.LoanPendingApproval,
		Status:          domain.TaskPending,
		NextProcessTime: due,
		CreatedTime:     due,
	}
}

func TestTaskCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))
	now := time.Now()

	created, err := repo.Create(ctx, newTask("alice", "loan_1", now))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := repo.GetByID(ctx, "alice", created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanPendingApproval, got.State)
	assert.Equal(t, domain.TaskPending, got.Status)
	assert.WithinDuration(t, now, got.NextProcessTime, time.Millisecond)

	got.State = domain.LoanReviewing
	got.CompletedSteps = []domain.TaskState{domain.LoanPendingApproval}
	got.PaymentRef = "ref_x"
	updated, err := repo.Update(ctx, got)
	require.NoError(t, err)

	got, err = repo.GetByID(ctx, "alice", updated.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanReviewing, got.State)
	assert.Equal(t, []domain.TaskState{domain.LoanPendingApproval}, got.CompletedSteps)
	assert.Equal(t, "ref_x", got.PaymentRef)

	byProduct, err := repo.GetByProductID(ctx, "alice", "loan_1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byProduct.ID)

	require.NoError(t, repo.Delete(ctx, "alice", created.ID))
	_, err = repo.GetByID(ctx, "alice", created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskUpdateUnknownID(t *testing.T) {
	repo := NewTaskRepository(newTestDB(t))
	task := newTask("alice", "loan_1", time.Now())
	task.ID = "sim_missing"
	_, err := repo.Update(context.Background(), task)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskOwnerIsolation(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))

	created, err := repo.Create(ctx, newTask("alice", "loan_1", time.Now()))
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, "bob", created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	tasks, err := repo.List(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestNextReadyInsertionOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))
	now := time.Now()

	// Second task is due earlier but the first one was inserted first.
	first, err := repo.Create(ctx, newTask("alice", "loan_1", now.Add(-time.Minute)))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newTask("alice", "loan_2", now.Add(-time.Hour)))
	require.NoError(t, err)

	got, err := repo.NextReady(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestNextReadySkipsNotDueAndTerminal(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))
	now := time.Now()

	future := newTask("alice", "loan_1", now.Add(time.Hour))
	_, err := repo.Create(ctx, future)
	require.NoError(t, err)

	stopped := newTask("alice", "loan_2", now.Add(-time.Hour))
	stopped.Status = domain.TaskStopped
	_, err = repo.Create(ctx, stopped)
	require.NoError(t, err)

	completed := newTask("alice", "loan_3", now.Add(-time.Hour))
	completed.Status = domain.TaskCompleted
	_, err = repo.Create(ctx, completed)
	require.NoError(t, err)

	_, err = repo.NextReady(ctx, now)
	assert.ErrorIs(t, err, ErrNoTaskReady)
}

func TestNextReadyIncludesInProgress(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))
	now := time.Now()

	task := newTask("alice", "loan_1", now.Add(-time.Minute))
	task.Status = domain.TaskInProgress
	created, err := repo.Create(ctx, task)
	require.NoError(t, err)

	got, err := repo.NextReady(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestNextReadySpansOwners(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))
	now := time.Now()

	created, err := repo.Create(ctx, newTask("system", "upcoming-transactions", now.Add(-time.Second)))
	require.NoError(t, err)

	got, err := repo.NextReady(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestAccountBalanceRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(newTestDB(t))

	created, err := repo.Create(ctx, domain.Account{
		OwnerID:   "alice",
		Name:      "Checking",
		Number:    "12345678",
		Currency:  "USD",
		Balance:   decimal.RequireFromString("-1520.45"),
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "alice", created.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("-1520.45")))
	assert.False(t, got.External())

	require.NoError(t, repo.UpdateBalance(ctx, "alice", created.ID, decimal.NewFromInt(100)))
	got, err = repo.GetByID(ctx, "alice", created.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(100)))
}

func TestCardDueDateNullable(t *testing.T) {
	ctx := context.Background()
	repo := NewCardRepository(newTestDB(t))

	created, err := repo.Create(ctx, domain.Card{
		OwnerID:     "alice",
		AccountID:   "acc_1",
		Kind:        domain.CardCredit,
		State:       domain.CardActive,
		CreditLimit: decimal.NewFromInt(1000),
		CreatedAt:   time.Now(),
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "alice", created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DueDate)

	due := time.Now().Add(30 * 24 * time.Hour)
	got.DueDate = &due
	got.PaymentRef = "ref_1"
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.GetByID(ctx, "alice", created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DueDate)
	assert.WithinDuration(t, due, *got.DueDate, time.Millisecond)
	assert.Equal(t, "ref_1", got.PaymentRef)
}

func TestUpcomingListDue(t *testing.T) {
	ctx := context.Background()
	repo := NewUpcomingTransactionRepository(newTestDB(t))
	now := time.Now()

	past, err := repo.Create(ctx, domain.UpcomingTransaction{
		OwnerID:      "alice",
		Amount:       decimal.NewFromInt(50),
		Currency:     "USD",
		ScheduledFor: now.Add(-time.Hour),
		CreatedAt:    now,
	})
	require.NoError(t, err)
	_, err = repo.Create(ctx, domain.UpcomingTransaction{
		OwnerID:      "bob",
		Amount:       decimal.NewFromInt(75),
		Currency:     "USD",
		ScheduledFor: now.Add(time.Hour),
		CreatedAt:    now,
	})
	require.NoError(t, err)

	due, err := repo.ListDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, past.ID, due[0].ID)

	byRef, err := repo.GetByReference(ctx, "alice", past.Reference)
	require.NoError(t, err)
	assert.Equal(t, past.ID, byRef.ID)

	require.NoError(t, repo.Delete(ctx, "alice", past.ID))
	_, err = repo.GetByID(ctx, "alice", past.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
