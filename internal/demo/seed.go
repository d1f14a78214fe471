package demo

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"

	"finsim/internal/domain"
	"finsim/internal/store"
)

// Repos bundles the repositories the seeder writes to.
type Repos struct {
	Accounts store.AccountRepository
	Cards    store.CardRepository
	Loans    store.LoanRepository
}

// Seed populates a fresh database with one demo owner's products: a funded
// checking account, a savings account, a debit card, a credit card whose
// account is overdrawn past its limit, a loan, and a few external contact
// accounts. Every processor has material to work with afterwards.
func Seed(ctx context.Context, repos Repos, ownerID string) error {
	now := time.Now()

	checking, err := repos.Accounts.Create(ctx, domain.Account{
		OwnerID:             ownerID,
		Name:                "Checking",
		Number:              gofakeit.AchAccount(),
		Currency:            "USD",
		Balance:             decimal.NewFromFloat(gofakeit.Price(1500, 4000)),
		OverdraftProtection: true,
		CreatedAt:           now,
	})
	if err != nil {
		return fmt.Errorf("seed checking account: %w", err)
	}

	if _, err := repos.Accounts.Create(ctx, domain.Account{
		OwnerID:   ownerID,
		Name:      "Savings",
		Number:    gofakeit.AchAccount(),
		Currency:  "USD",
		Balance:   decimal.NewFromFloat(gofakeit.Price(5000, 20000)),
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("seed savings account: %w", err)
	}

	if _, err := repos.Cards.Create(ctx, domain.Card{
		OwnerID:   ownerID,
		AccountID: checking.ID,
		Kind:      domain.CardDebit,
		State:     domain.CardPending,
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("seed debit card: %w", err)
	}

	// Credit card account overdrawn past the card limit, to exercise the
	// overdraft fee path.
	creditAccount, err := repos.Accounts.Create(ctx, domain.Account{
		OwnerID:   ownerID,
		Name:      "Credit card account",
		Number:    gofakeit.AchAccount(),
		Currency:  "USD",
		Balance:   decimal.NewFromFloat(-gofakeit.Price(1200, 1800)),
		CreatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("seed credit account: %w", err)
	}
	if _, err := repos.Cards.Create(ctx, domain.Card{
		OwnerID:     ownerID,
		AccountID:   creditAccount.ID,
		Kind:        domain.CardCredit,
		State:       domain.CardActive,
		CreditLimit: decimal.NewFromInt(1000),
		CreatedAt:   now,
	}); err != nil {
		return fmt.Errorf("seed credit card: %w", err)
	}

	amount := decimal.NewFromFloat(gofakeit.Price(8000, 25000))
	if _, err := repos.Loans.Create(ctx, domain.Loan{
		OwnerID:        ownerID,
		AccountID:      checking.ID,
		Amount:         amount,
		RemainingOwed:  amount,
		MonthlyPayment: amount.Div(decimal.NewFromInt(36)).Round(2),
		CreatedAt:      now,
	}); err != nil {
		return fmt.Errorf("seed loan: %w", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := repos.Accounts.Create(ctx, domain.Account{
			OwnerID:   ownerID,
			Name:      gofakeit.Name(),
			Currency:  "USD",
			CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("seed contact account: %w", err)
		}
	}
	return nil
}
