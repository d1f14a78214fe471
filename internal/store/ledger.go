package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"finsim/internal/domain"
)

// TransactionRepository holds completed ledger entries.
type TransactionRepository interface {
	Create(ctx context.Context, t domain.Transaction) (domain.Transaction, error)
	List(ctx context.Context, ownerID string) ([]domain.Transaction, error)
}

// UpcomingTransactionRepository holds postings scheduled for a future date.
// ListDue spans all owners; settlement is a system concern.
type UpcomingTransactionRepository interface {
	Create(ctx context.Context, t domain.UpcomingTransaction) (domain.UpcomingTransaction, error)
	GetByID(ctx context.Context, ownerID, id string) (domain.UpcomingTransaction, error)
	GetByReference(ctx context.Context, ownerID, reference string) (domain.UpcomingTransaction, error)
	List(ctx context.Context, ownerID string) ([]domain.UpcomingTransaction, error)
	ListDue(ctx context.Context, now time.Time) ([]domain.UpcomingTransaction, error)
	Delete(ctx context.Context, ownerID, id string) error
}

type transactionRepo struct{ db *sql.DB }

func NewTransactionRepository(db *sql.DB) TransactionRepository { return &transactionRepo{db: db} }

const transactionColumns = `id,owner_id,reference,from_account_id,to_account_id,amount,currency,description,created_at`

func (r *transactionRepo) Create(ctx context.Context, t domain.Transaction) (domain.Transaction, error) {
	if t.ID == "" {
		t.ID = "txn_" + uuid.NewString()
	}
	if t.Reference == "" {
		t.Reference = "ref_" + uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO transactions (`+transactionColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		t.ID, t.OwnerID, t.Reference, t.FromAccountID, t.ToAccountID,
		t.Amount.String(), t.Currency, t.Description, encodeTime(t.CreatedAt))
	if err != nil {
		return domain.Transaction{}, err
	}
	return t, nil
}

func (r *transactionRepo) List(ctx context.Context, ownerID string) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+transactionColumns+` FROM transactions WHERE owner_id=? ORDER BY rowid DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		var (
			t               domain.Transaction
			amount, created string
		)
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Reference, &t.FromAccountID, &t.ToAccountID,
			&amount, &t.Currency, &t.Description, &created); err != nil {
			return nil, err
		}
		if t.Amount, err = decodeAmount(amount); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = decodeTime(created); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

type upcomingRepo struct{ db *sql.DB }

func NewUpcomingTransactionRepository(db *sql.DB) UpcomingTransactionRepository {
	return &upcomingRepo{db: db}
}

const upcomingColumns = `id,owner_id,reference,from_account_id,to_account_id,amount,currency,description,scheduled_for,created_at`

func (r *upcomingRepo) Create(ctx context.Context, t domain.UpcomingTransaction) (domain.UpcomingTransaction, error) {
	if t.ID == "" {
		t.ID = "upc_" + uuid.NewString()
	}
	if t.Reference == "" {
		t.Reference = "ref_" + uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO upcoming_transactions (`+upcomingColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.OwnerID, t.Reference, t.FromAccountID, t.ToAccountID,
		t.Amount.String(), t.Currency, t.Description, encodeTime(t.ScheduledFor), encodeTime(t.CreatedAt))
	if err != nil {
		return domain.UpcomingTransaction{}, err
	}
	return t, nil
}

func (r *upcomingRepo) GetByID(ctx context.Context, ownerID, id string) (domain.UpcomingTransaction, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+upcomingColumns+` FROM upcoming_transactions WHERE owner_id=? AND id=?`, ownerID, id)
	return scanUpcoming(row)
}

func (r *upcomingRepo) GetByReference(ctx context.Context, ownerID, reference string) (domain.UpcomingTransaction, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+upcomingColumns+` FROM upcoming_transactions WHERE owner_id=? AND reference=?`, ownerID, reference)
	return scanUpcoming(row)
}

func (r *upcomingRepo) List(ctx context.Context, ownerID string) ([]domain.UpcomingTransaction, error) {
	return r.list(ctx, `WHERE owner_id=? ORDER BY scheduled_for`, ownerID)
}

func (r *upcomingRepo) ListDue(ctx context.Context, now time.Time) ([]domain.UpcomingTransaction, error) {
	return r.list(ctx, `WHERE scheduled_for <= ? ORDER BY scheduled_for`, encodeTime(now))
}

func (r *upcomingRepo) list(ctx context.Context, where string, arg any) ([]domain.UpcomingTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+upcomingColumns+` FROM upcoming_transactions `+where, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []domain.UpcomingTransaction
	for rows.Next() {
		t, err := scanUpcoming(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (r *upcomingRepo) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM upcoming_transactions WHERE owner_id=? AND id=?`, ownerID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUpcoming(row rowScanner) (domain.UpcomingTransaction, error) {
	var (
		t                          domain.UpcomingTransaction
		amount, scheduled, created string
	)
	err := row.Scan(&t.ID, &t.OwnerID, &t.Reference, &t.FromAccountID, &t.ToAccountID,
		&amount, &t.Currency, &t.Description, &scheduled, &created)
	if err == sql.ErrNoRows {
		return domain.UpcomingTransaction{}, ErrNotFound
	}
	if err != nil {
		return domain.UpcomingTransaction{}, err
	}
	if t.Amount, err = decodeAmount(amount); err != nil {
		return domain.UpcomingTransaction{}, err
	}
	if t.ScheduledFor, err = decodeTime(scheduled); err != nil {
		return domain.UpcomingTransaction{}, err
	}
	if t.CreatedAt, err = decodeTime(created); err != nil {
		return domain.UpcomingTransaction{}, err
	}
	return t, nil
}
