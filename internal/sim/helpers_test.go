package sim

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"finsim/internal/domain"
	"finsim/internal/store"
)

type testEnv struct {
	tasks        store.TaskRepository
	accounts     store.AccountRepository
	cards        store.CardRepository
	loans        store.LoanRepository
	transactions store.TransactionRepository
	upcoming     store.UpcomingTransactionRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, store.EnsureSchema(db))
	t.Cleanup(func() { db.Close() })
	return &testEnv{
		tasks:        store.NewTaskRepository(db),
		accounts:     store.NewAccountRepository(db),
		cards:        store.NewCardRepository(db),
		loans:        store.NewLoanRepository(db),
		transactions: store.NewTransactionRepository(db),
		upcoming:     store.NewUpcomingTransactionRepository(db),
	}
}

func (e *testEnv) account(t *testing.T, owner, number string, balance decimal.Decimal) domain.Account {
	t.Helper()
	a, err := e.accounts.Create(context.Background(), domain.Account{
		OwnerID:   owner,
		Name:      "Account",
		Number:    number,
		Currency:  "USD",
		Balance:   balance,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	return a
}

func (e *testEnv) loan(t *testing.T, owner, accountID string, owed, monthly decimal.Decimal) domain.Loan {
	t.Helper()
	l, err := e.loans.Create(context.Background(), domain.Loan{
		OwnerID:        owner,
		AccountID:      accountID,
		Amount:         owed,
		RemainingOwed:  owed,
		MonthlyPayment: monthly,
		CreatedAt:      time.Now(),
	})
	require.NoError(t, err)
	return l
}

func (e *testEnv) card(t *testing.T, c domain.Card) domain.Card {
	t.Helper()
	c.CreatedAt = time.Now()
	created, err := e.cards.Create(context.Background(), c)
	require.NoError(t, err)
	return created
}
