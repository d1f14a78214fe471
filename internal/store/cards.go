package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"finsim/internal/domain"
)

type CardRepository interface {
	Create(ctx context.Context, c domain.Card) (domain.Card, error)
	GetByID(ctx context.Context, ownerID, id string) (domain.Card, error)
	List(ctx context.Context, ownerID string) ([]domain.Card, error)
	Update(ctx context.Context, c domain.Card) error
}

type cardRepo struct{ db *sql.DB }

func NewCardRepository(db *sql.DB) CardRepository { return &cardRepo{db: db} }

const cardColumns = `id,owner_id,account_id,kind,state,credit_limit,due_date,payment_ref,created_at`

func (r *cardRepo) Create(ctx context.Context, c domain.Card) (domain.Card, error) {
	if c.ID == "" {
		c.ID = "card_" + uuid.NewString()
	}
	if c.State == "" {
		c.State = domain.CardPending
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO cards (`+cardColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		c.ID, c.OwnerID, c.AccountID, c.Kind, c.State, c.CreditLimit.String(),
		encodeDueDate(c.DueDate), c.PaymentRef, encodeTime(c.CreatedAt))
	if err != nil {
		return domain.Card{}, err
	}
	return c, nil
}

func (r *cardRepo) GetByID(ctx context.Context, ownerID, id string) (domain.Card, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+cardColumns+` FROM cards WHERE owner_id=? AND id=?`, ownerID, id)
	return scanCard(row)
}

func (r *cardRepo) List(ctx context.Context, ownerID string) ([]domain.Card, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+cardColumns+` FROM cards WHERE owner_id=? ORDER BY rowid`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (r *cardRepo) Update(ctx context.Context, c domain.Card) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE cards SET state=?, credit_limit=?, due_date=?, payment_ref=?
WHERE owner_id=? AND id=?`,
		c.State, c.CreditLimit.String(), encodeDueDate(c.DueDate), c.PaymentRef, c.OwnerID, c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeDueDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: encodeTime(*t), Valid: true}
}

func scanCard(row rowScanner) (domain.Card, error) {
	var (
		c              domain.Card
		limit, created string
		due            sql.NullString
	)
	err := row.Scan(&c.ID, &c.OwnerID, &c.AccountID, &c.Kind, &c.State, &limit, &due, &c.PaymentRef, &created)
	if err == sql.ErrNoRows {
		return domain.Card{}, ErrNotFound
	}
	if err != nil {
		return domain.Card{}, err
	}
	if c.CreditLimit, err = decodeAmount(limit); err != nil {
		return domain.Card{}, err
	}
	if due.Valid {
		d, err := decodeTime(due.String)
		if err != nil {
			return domain.Card{}, err
		}
		c.DueDate = &d
	}
	if c.CreatedAt, err = decodeTime(created); err != nil {
		return domain.Card{}, err
	}
	return c, nil
}
