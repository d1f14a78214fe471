package sim

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsim/internal/domain"
)

func TestLoanProcessorWalksAllStatesToActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	loan := env.loan(t, "alice", "acc_1", decimal.NewFromInt(10000), decimal.NewFromInt(300))
	p := NewLoanProcessor(env.loans)
	p.now = func() time.Time { return now }

	task := domain.Task{
		OwnerID:   "alice",
		ProductID: loan.ID,
		Type:      domain.TaskTypeLoan,
		State:     domain.LoanPendingApproval,
	}

	expected := []domain.TaskState{domain.LoanReviewing, domain.LoanApproved, domain.LoanFunding, domain.LoanActive}
	for _, want := range expected {
		res, err := p.Process(ctx, &task)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, want, task.State)
		assert.Equal(t, now.Add(DelayFor(domain.TaskTypeLoan, want)), task.NextProcessTime)
	}
}

func TestLoanProcessorTerminalStateIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	loan := env.loan(t, "alice", "acc_1", decimal.NewFromInt(10000), decimal.NewFromInt(300))
	p := NewLoanProcessor(env.loans)

	task := domain.Task{
		OwnerID:   "alice",
		ProductID: loan.ID,
		Type:      domain.TaskTypeLoan,
		State:     domain.LoanActive,
		Status:    domain.TaskPending,
	}
	before := task

	for i := 0; i < 3; i++ {
		res, err := p.Process(ctx, &task)
		require.NoError(t, err)
		assert.True(t, res.Success)
	}
	assert.Equal(t, domain.LoanActive, task.State)
	assert.Equal(t, before.NextProcessTime, task.NextProcessTime)
	// The task is never completed at the terminal state; it keeps polling.
	assert.Equal(t, domain.TaskPending, task.Status)
}

func TestLoanProcessorUnknownState(t *testing.T) {
	env := newTestEnv(t)
	loan := env.loan(t, "alice", "acc_1", decimal.NewFromInt(100), decimal.NewFromInt(10))
	p := NewLoanProcessor(env.loans)

	task := domain.Task{OwnerID: "alice", ProductID: loan.ID, Type: domain.TaskTypeLoan, State: "defaulted"}
	res, err := p.Process(context.Background(), &task)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Err, "unknown loan state")
}

func TestLoanProcessorMissingLoanIsBusinessFailure(t *testing.T) {
	env := newTestEnv(t)
	p := NewLoanProcessor(env.loans)

	task := domain.Task{OwnerID: "alice", ProductID: "loan_missing", Type: domain.TaskTypeLoan, State: domain.LoanPendingApproval}
	res, err := p.Process(context.Background(), &task)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Err, "not found")
}
