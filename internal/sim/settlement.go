package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"finsim/internal/domain"
	"finsim/internal/store"
)

const settlementInterval = time.Minute

// SettlementProcessor applies every past-due upcoming transaction to account
// balances and replaces it with a completed ledger entry. Entries are applied
// one at a time with no rollback; a failure partway leaves earlier entries
// settled. Missing accounts are integrity errors, not business failures.
type SettlementProcessor struct {
	upcoming     store.UpcomingTransactionRepository
	accounts     store.AccountRepository
	transactions store.TransactionRepository
	now          func() time.Time
}

func NewSettlementProcessor(upcoming store.UpcomingTransactionRepository, accounts store.AccountRepository, transactions store.TransactionRepository) *SettlementProcessor {
	return &SettlementProcessor{upcoming: upcoming, accounts: accounts, transactions: transactions, now: time.Now}
}

func (p *SettlementProcessor) Process(ctx context.Context, task *domain.Task) (Result, error) {
	now := p.now()
	// Runs again in a minute no matter how many entries settle below.
	task.State = domain.SettlementWatching
	task.NextProcessTime = now.Add(settlementInterval)

	due, err := p.upcoming.ListDue(ctx, now)
	if err != nil {
		return Result{}, err
	}
	for _, entry := range due {
		if err := p.settle(ctx, entry, now); err != nil {
			return Result{}, err
		}
		log.Debug().Str("upcoming_id", entry.ID).Str("reference", entry.Reference).Msg("settled upcoming transaction")
	}
	return Result{Success: true}, nil
}

func (p *SettlementProcessor) settle(ctx context.Context, entry domain.UpcomingTransaction, now time.Time) error {
	if entry.FromAccountID != "" {
		if err := p.applyDelta(ctx, entry, entry.FromAccountID, true); err != nil {
			return err
		}
	}
	if entry.ToAccountID != "" {
		if err := p.applyDelta(ctx, entry, entry.ToAccountID, false); err != nil {
			return err
		}
	}
	_, err := p.transactions.Create(ctx, domain.Transaction{
		OwnerID:       entry.OwnerID,
		Reference:     entry.Reference,
		FromAccountID: entry.FromAccountID,
		ToAccountID:   entry.ToAccountID,
		Amount:        entry.Amount,
		Currency:      entry.Currency,
		Description:   entry.Description,
		CreatedAt:     now,
	})
	if err != nil {
		return err
	}
	return p.upcoming.Delete(ctx, entry.OwnerID, entry.ID)
}

func (p *SettlementProcessor) applyDelta(ctx context.Context, entry domain.UpcomingTransaction, accountID string, debit bool) error {
	account, err := p.accounts.GetByID(ctx, entry.OwnerID, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("settlement: account %s referenced by %s not found", accountID, entry.ID)
		}
		return err
	}
	if account.External() {
		return nil // placeholder accounts carry no balance
	}
	balance := account.Balance.Add(entry.Amount)
	if debit {
		balance = account.Balance.Sub(entry.Amount)
	}
	return p.accounts.UpdateBalance(ctx, entry.OwnerID, accountID, balance)
}
