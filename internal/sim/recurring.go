package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"finsim/internal/domain"
	"finsim/internal/store"
)

// Monthly loan payments land on the 28th, at least thirty days out.
var day28 = mustCron("0 0 28 * *")

const recheckInterval = time.Hour

func mustCron(expr string) cron.Schedule {
	s, err := cron.ParseStandard(expr)
	if err != nil {
		panic(err)
	}
	return s
}

// NextPaymentDate returns the next day-28 occurrence at least thirty days
// after from.
func NextPaymentDate(from time.Time) time.Time {
	return day28.Next(from.AddDate(0, 0, 30))
}

// RecurringPaymentProcessor keeps one scheduled payment outstanding against a
// loan until the loan is repaid. Unlike the loan and card processors it
// returns a real error when the referenced loan is missing.
type RecurringPaymentProcessor struct {
	loans    store.LoanRepository
	upcoming store.UpcomingTransactionRepository
	now      func() time.Time
}

func NewRecurringPaymentProcessor(loans store.LoanRepository, upcoming store.UpcomingTransactionRepository) *RecurringPaymentProcessor {
	return &RecurringPaymentProcessor{loans: loans, upcoming: upcoming, now: time.Now}
}

func (p *RecurringPaymentProcessor) Process(ctx context.Context, task *domain.Task) (Result, error) {
	loan, err := p.loans.GetByID(ctx, task.OwnerID, task.ProductID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Result{}, fmt.Errorf("recurring payment: loan %s not found", task.ProductID)
		}
		return Result{}, err
	}
	now := p.now()

	if !loan.RemainingOwed.IsPositive() {
		task.Status = domain.TaskCompleted
		return Result{Success: true}, nil
	}

	if task.PaymentRef != "" {
		prev, err := p.upcoming.GetByReference(ctx, task.OwnerID, task.PaymentRef)
		switch {
		case err == nil && prev.ScheduledFor.After(now):
			// Previous payment still pending; check back later.
			task.State = domain.RecurringWaiting
			task.NextProcessTime = now.Add(recheckInterval)
			return Result{Success: true}, nil
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return Result{}, err
		}
	}

	ref := newPaymentRef()
	_, err = p.upcoming.Create(ctx, domain.UpcomingTransaction{
		OwnerID:       task.OwnerID,
		Reference:     ref,
		FromAccountID: loan.AccountID,
		Amount:        loan.MonthlyPayment,
		Currency:      "USD",
		Description:   "Loan payment",
		ScheduledFor:  NextPaymentDate(now),
		CreatedAt:     now,
	})
	if err != nil {
		return Result{}, err
	}
	task.PaymentRef = ref
	task.State = domain.RecurringWaiting
	task.NextProcessTime = now.Add(recheckInterval)
	return Result{Success: true}, nil
}
