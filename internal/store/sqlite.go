package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a referenced record does not exist for
	// the given owner.
	ErrNotFound = errors.New("record not found")
	// ErrNoTaskReady is returned by NextReady when no task is due.
	ErrNoTaskReady = errors.New("no task ready")
)

// Timestamps are stored as fixed-width UTC text so that SQL comparisons
// order correctly.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func decodeAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// EnsureSchema creates tables if they don't exist.
func EnsureSchema(db *sql.DB) error {
	schema := `
PRAGMA journal_mode=WAL;
CREATE TABLE IF NOT EXISTS simulation_tasks (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  type TEXT NOT NULL,
  state TEXT NOT NULL,
  status TEXT NOT NULL CHECK(status IN ('pending','in_progress','completed','stopped')) DEFAULT 'pending',
  next_process_time TEXT NOT NULL,
  created_time TEXT NOT NULL,
  last_processed_time TEXT NOT NULL DEFAULT '',
  completed_steps TEXT NOT NULL DEFAULT '[]',
  payment_ref TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_sim_tasks_ready ON simulation_tasks(status, next_process_time);
CREATE INDEX IF NOT EXISTS idx_sim_tasks_owner ON simulation_tasks(owner_id);
CREATE TABLE IF NOT EXISTS accounts (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  name TEXT NOT NULL,
  number TEXT NOT NULL DEFAULT '',
  currency TEXT NOT NULL DEFAULT 'USD',
  balance TEXT NOT NULL DEFAULT '0',
  overdraft_protection INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_accounts_owner ON accounts(owner_id);
CREATE TABLE IF NOT EXISTS cards (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  account_id TEXT NOT NULL,
  kind TEXT NOT NULL CHECK(kind IN ('debit','credit')),
  state TEXT NOT NULL CHECK(state IN ('pending','active','canceled')) DEFAULT 'pending',
  credit_limit TEXT NOT NULL DEFAULT '0',
  due_date TEXT,
  payment_ref TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cards_owner ON cards(owner_id);
CREATE TABLE IF NOT EXISTS loans (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  account_id TEXT NOT NULL,
  amount TEXT NOT NULL,
  remaining_owed TEXT NOT NULL,
  monthly_payment TEXT NOT NULL,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_loans_owner ON loans(owner_id);
CREATE TABLE IF NOT EXISTS transactions (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  reference TEXT NOT NULL,
  from_account_id TEXT NOT NULL DEFAULT '',
  to_account_id TEXT NOT NULL DEFAULT '',
  amount TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  description TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_owner ON transactions(owner_id);
CREATE TABLE IF NOT EXISTS upcoming_transactions (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  reference TEXT NOT NULL,
  from_account_id TEXT NOT NULL DEFAULT '',
  to_account_id TEXT NOT NULL DEFAULT '',
  amount TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  description TEXT NOT NULL DEFAULT '',
  scheduled_for TEXT NOT NULL,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_upcoming_due ON upcoming_transactions(scheduled_for);
CREATE UNIQUE INDEX IF NOT EXISTS idx_upcoming_ref ON upcoming_transactions(owner_id, reference);
`
	_, err := db.Exec(schema)
	return err
}
