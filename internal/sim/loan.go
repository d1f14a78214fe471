package sim

import (
	"context"
	"errors"
	"time"

	"finsim/internal/domain"
	"finsim/internal/store"
)

// LoanProcessor walks a loan application through its ordered approval states.
// Reaching "active" is terminal for the state, but the task status is left
// pending, so the task keeps being re-selected and keeps succeeding with no
// further movement. Intentional; do not add a completion transition here.
type LoanProcessor struct {
	loans store.LoanRepository
	now   func() time.Time
}

func NewLoanProcessor(loans store.LoanRepository) *LoanProcessor {
	return &LoanProcessor{loans: loans, now: time.Now}
}

func (p *LoanProcessor) Process(ctx context.Context, task *domain.Task) (Result, error) {
	if _, err := p.loans.GetByID(ctx, task.OwnerID, task.ProductID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return failure("loan %s not found", task.ProductID), nil
		}
		return Result{}, err
	}

	if task.State == domain.LoanActive {
		return Result{Success: true}, nil
	}

	idx := -1
	for i, s := range domain.LoanStates {
		if s == task.State {
			idx = i
			break
		}
	}
	if idx < 0 {
		return failure("unknown loan state %q", task.State), nil
	}

	next := domain.LoanStates[idx+1]
	task.State = next
	task.NextProcessTime = p.now().Add(DelayFor(task.Type, next))
	return Result{Success: true}, nil
}
