package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finsim/internal/domain"
)

type AccountRepository interface {
	Create(ctx context.Context, a domain.Account) (domain.Account, error)
	GetByID(ctx context.Context, ownerID, id string) (domain.Account, error)
	List(ctx context.Context, ownerID string) ([]domain.Account, error)
	Update(ctx context.Context, a domain.Account) error
	UpdateBalance(ctx context.Context, ownerID, id string, balance decimal.Decimal) error
}

type accountRepo struct{ db *sql.DB }

func NewAccountRepository(db *sql.DB) AccountRepository { return &accountRepo{db: db} }

const accountColumns = `id,owner_id,name,number,currency,balance,overdraft_protection,created_at`

func (r *accountRepo) Create(ctx context.Context, a domain.Account) (domain.Account, error) {
	if a.ID == "" {
		a.ID = "acc_" + uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO accounts (`+accountColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		a.ID, a.OwnerID, a.Name, a.Number, a.Currency, a.Balance.String(), a.OverdraftProtection, encodeTime(a.CreatedAt))
	if err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

func (r *accountRepo) GetByID(ctx context.Context, ownerID, id string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+accountColumns+` FROM accounts WHERE owner_id=? AND id=?`, ownerID, id)
	return scanAccount(row)
}

func (r *accountRepo) List(ctx context.Context, ownerID string) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+accountColumns+` FROM accounts WHERE owner_id=? ORDER BY rowid`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *accountRepo) Update(ctx context.Context, a domain.Account) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE accounts SET name=?, number=?, currency=?, balance=?, overdraft_protection=?
WHERE owner_id=? AND id=?`,
		a.Name, a.Number, a.Currency, a.Balance.String(), a.OverdraftProtection, a.OwnerID, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *accountRepo) UpdateBalance(ctx context.Context, ownerID, id string, balance decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE accounts SET balance=? WHERE owner_id=? AND id=?`, balance.String(), ownerID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		a                domain.Account
		balance, created string
	)
	err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Number, &a.Currency, &balance, &a.OverdraftProtection, &created)
	if err == sql.ErrNoRows {
		return domain.Account{}, ErrNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}
	if a.Balance, err = decodeAmount(balance); err != nil {
		return domain.Account{}, err
	}
	if a.CreatedAt, err = decodeTime(created); err != nil {
		return domain.Account{}, err
	}
	return a, nil
}
