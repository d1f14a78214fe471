package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finsim/internal/domain"
)

type LoanRepository interface {
	Create(ctx context.Context, l domain.Loan) (domain.Loan, error)
	GetByID(ctx context.Context, ownerID, id string) (domain.Loan, error)
	List(ctx context.Context, ownerID string) ([]domain.Loan, error)
	UpdateRemainingOwed(ctx context.Context, ownerID, id string, owed decimal.Decimal) error
}

type loanRepo struct{ db *sql.DB }

func NewLoanRepository(db *sql.DB) LoanRepository { return &loanRepo{db: db} }

const loanColumns = `id,owner_id,account_id,amount,remaining_owed,monthly_payment,created_at`

func (r *loanRepo) Create(ctx context.Context, l domain.Loan) (domain.Loan, error) {
	if l.ID == "" {
		l.ID = "loan_" + uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO loans (`+loanColumns+`) VALUES (?,?,?,?,?,?,?)`,
		l.ID, l.OwnerID, l.AccountID, l.Amount.String(), l.RemainingOwed.String(),
		l.MonthlyPayment.String(), encodeTime(l.CreatedAt))
	if err != nil {
		return domain.Loan{}, err
	}
	return l, nil
}

func (r *loanRepo) GetByID(ctx context.Context, ownerID, id string) (domain.Loan, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+loanColumns+` FROM loans WHERE owner_id=? AND id=?`, ownerID, id)
	return scanLoan(row)
}

func (r *loanRepo) List(ctx context.Context, ownerID string) ([]domain.Loan, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+loanColumns+` FROM loans WHERE owner_id=? ORDER BY rowid`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []domain.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

func (r *loanRepo) UpdateRemainingOwed(ctx context.Context, ownerID, id string, owed decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE loans SET remaining_owed=? WHERE owner_id=? AND id=?`, owed.String(), ownerID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanLoan(row rowScanner) (domain.Loan, error) {
	var (
		l                              domain.Loan
		amount, owed, monthly, created string
	)
	err := row.Scan(&l.ID, &l.OwnerID, &l.AccountID, &amount, &owed, &monthly, &created)
	if err == sql.ErrNoRows {
		return domain.Loan{}, ErrNotFound
	}
	if err != nil {
		return domain.Loan{}, err
	}
	if l.Amount, err = decodeAmount(amount); err != nil {
		return domain.Loan{}, err
	}
	if l.RemainingOwed, err = decodeAmount(owed); err != nil {
		return domain.Loan{}, err
	}
	if l.MonthlyPayment, err = decodeAmount(monthly); err != nil {
		return domain.Loan{}, err
	}
	if l.CreatedAt, err = decodeTime(created); err != nil {
		return domain.Loan{}, err
	}
	return l, nil
}
