package sim

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"finsim/internal/domain"
	"finsim/internal/store"
)

const (
	overdraftFeeDue = 3 * 24 * time.Hour
	dueDateHorizon  = 30 * 24 * time.Hour
	payoffWindow    = 7 * 24 * time.Hour
)

var overdraftFeeRate = decimal.NewFromFloat(1.1)

// CardProcessor drives the card lifecycle. Pending debit cards auto-activate;
// active credit cards accrue overdraft fees, get a due date assigned, and get
// a payoff payment scheduled as the due date approaches. Cancellation
// processing is not implemented and reports failure.
type CardProcessor struct {
	cards    store.CardRepository
	accounts store.AccountRepository
	upcoming store.UpcomingTransactionRepository
	now      func() time.Time
}

func NewCardProcessor(cards store.CardRepository, accounts store.AccountRepository, upcoming store.UpcomingTransactionRepository) *CardProcessor {
	return &CardProcessor{cards: cards, accounts: accounts, upcoming: upcoming, now: time.Now}
}

func (p *CardProcessor) Process(ctx context.Context, task *domain.Task) (Result, error) {
	card, err := p.cards.GetByID(ctx, task.OwnerID, task.ProductID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return failure("card %s not found", task.ProductID), nil
		}
		return Result{}, err
	}
	now := p.now()

	switch card.State {
	case domain.CardPending:
		if card.Kind == domain.CardDebit {
			card.State = domain.CardActive
			if err := p.cards.Update(ctx, card); err != nil {
				return Result{}, err
			}
		}
		// Pending credit cards wait for external activation.
		task.State = domain.TaskState(card.State)
		task.NextProcessTime = now.Add(DelayFor(task.Type, task.State))
		return Result{Success: true}, nil

	case domain.CardActive:
		if card.Kind == domain.CardCredit {
			if res, err := p.processCreditCard(ctx, task, &card, now); err != nil || !res.Success {
				return res, err
			}
		}
		task.State = domain.CardTaskActive
		task.NextProcessTime = now.Add(DelayFor(task.Type, domain.CardTaskActive))
		return Result{Success: true}, nil

	case domain.CardCanceled:
		return failure("card cancellation processing not implemented"), nil

	default:
		return failure("unknown card state %q", card.State), nil
	}
}

func (p *CardProcessor) processCreditCard(ctx context.Context, task *domain.Task, card *domain.Card, now time.Time) (Result, error) {
	account, err := p.accounts.GetByID(ctx, task.OwnerID, card.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return failure("account %s for card %s not found", card.AccountID, card.ID), nil
		}
		return Result{}, err
	}

	if !account.OverdraftProtection && account.Balance.IsNegative() {
		overdrawn := account.Balance.Neg().Sub(card.CreditLimit)
		if overdrawn.IsPositive() {
			fee := overdrawn.Mul(overdraftFeeRate)
			_, err := p.upcoming.Create(ctx, domain.UpcomingTransaction{
				OwnerID:       task.OwnerID,
				Reference:     newPaymentRef(),
				FromAccountID: account.ID,
				Amount:        fee,
				Currency:      account.Currency,
				Description:   "Overdraft fee",
				ScheduledFor:  now.Add(overdraftFeeDue),
				CreatedAt:     now,
			})
			if err != nil {
				return Result{}, err
			}
		}
	}

	if card.DueDate == nil {
		due := now.Add(dueDateHorizon)
		card.DueDate = &due
		if err := p.cards.Update(ctx, *card); err != nil {
			return Result{}, err
		}
		return Result{Success: true}, nil
	}

	if card.DueDate.Sub(now) > payoffWindow {
		return Result{Success: true}, nil
	}
	if card.PaymentRef != "" {
		if _, err := p.upcoming.GetByReference(ctx, task.OwnerID, card.PaymentRef); err == nil {
			return Result{Success: true}, nil // payoff already scheduled
		} else if !errors.Is(err, store.ErrNotFound) {
			return Result{}, err
		}
	}
	if !account.Balance.IsNegative() {
		return Result{Success: true}, nil
	}

	ref := newPaymentRef()
	_, err = p.upcoming.Create(ctx, domain.UpcomingTransaction{
		OwnerID:      task.OwnerID,
		Reference:    ref,
		ToAccountID:  account.ID,
		Amount:       account.Balance.Neg(),
		Currency:     account.Currency,
		Description:  "Credit card payment",
		ScheduledFor: *card.DueDate,
		CreatedAt:    now,
	})
	if err != nil {
		return Result{}, err
	}
	card.PaymentRef = ref
	if err := p.cards.Update(ctx, *card); err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}
