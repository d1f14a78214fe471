package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TaskType identifies which processor advances a simulation task.
type TaskType string

const (
	TaskTypeLoan               TaskType = "loan"
	TaskTypeRecurringPayment   TaskType = "recurring_payment"
	TaskTypeUpcomingProcessing TaskType = "system-upcoming-processing"
	TaskTypeCardProcessing     TaskType = "card-processing"
)

// ParseTaskType normalizes a wire-level type string. Matching is
// case-insensitive.
func ParseTaskType(s string) (TaskType, error) {
	switch t := TaskType(strings.ToLower(strings.TrimSpace(s))); t {
	case TaskTypeLoan, TaskTypeRecurringPayment, TaskTypeUpcomingProcessing, TaskTypeCardProcessing:
		return t, nil
	default:
		return "", fmt.Errorf("unsupported task type %q", s)
	}
}

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskStopped    TaskStatus = "stopped"
)

// TaskState is the per-type simulation state a task is currently in.
// Each TaskType draws from its own closed set of values below.
type TaskState string

// Loan application states, in processing order.
const (
	LoanPendingApproval TaskState = "pending_approval"
	LoanReviewing       TaskState = "reviewing"
	LoanApproved        TaskState = "approved"
	LoanFunding         TaskState = "funding"
	LoanActive          TaskState = "active"
)

// LoanStates is the ordered progression a loan application walks through.
// LoanActive is terminal.
var LoanStates = []TaskState{LoanPendingApproval, LoanReviewing, LoanApproved, LoanFunding, LoanActive}

// Card task states mirror the card entity's lifecycle.
const (
	CardTaskPending  TaskState = "pending"
	CardTaskActive   TaskState = "active"
	CardTaskCanceled TaskState = "canceled"
)

// Recurring payment task states.
const (
	RecurringScheduled TaskState = "scheduled"
	RecurringWaiting   TaskState = "waiting_settlement"
)

// Settlement task state. The task never leaves it.
const SettlementWatching TaskState = "watching"

// Task is one unit of simulated background work tied to a single product.
type Task struct {
	ID                string      `json:"id"`
	OwnerID           string      `json:"owner_id"`
	ProductID         string      `json:"product_id"`
	Type              TaskType    `json:"type"`
	State             TaskState   `json:"current_state"`
	Status            TaskStatus  `json:"status"`
	NextProcessTime   time.Time   `json:"next_process_time"`
	CreatedTime       time.Time   `json:"created_time"`
	LastProcessedTime time.Time   `json:"last_processed_time"`
	CompletedSteps    []TaskState `json:"completed_steps"`
	// PaymentRef carries the reference of the last scheduled payment a
	// processor created for this task, so the next invocation can check
	// whether it settled.
	PaymentRef string `json:"payment_ref,omitempty"`
}

// RecordStep appends the given state to CompletedSteps unless already present.
func (t *Task) RecordStep(state TaskState) {
	for _, s := range t.CompletedSteps {
		if s == state {
			return
		}
	}
	t.CompletedSteps = append(t.CompletedSteps, state)
}

// Account is a demo bank account. Accounts belonging to external contacts
// have no account number and never receive balance updates.
type Account struct {
	ID                  string          `json:"id"`
	OwnerID             string          `json:"owner_id"`
	Name                string          `json:"name"`
	Number              string          `json:"number"`
	Currency            string          `json:"currency"`
	Balance             decimal.Decimal `json:"balance"`
	OverdraftProtection bool            `json:"overdraft_protection"`
	CreatedAt           time.Time       `json:"created_at"`
}

// External reports whether the account is a placeholder for a counterparty
// outside the simulated bank.
func (a Account) External() bool { return a.Number == "" }

type CardKind string

const (
	CardDebit  CardKind = "debit"
	CardCredit CardKind = "credit"
)

type CardState string

const (
	CardPending  CardState = "pending"
	CardActive   CardState = "active"
	CardCanceled CardState = "canceled"
)

type Card struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	AccountID   string          `json:"account_id"`
	Kind        CardKind        `json:"kind"`
	State       CardState       `json:"state"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	// PaymentRef is the reference of the scheduled payoff transaction for
	// the current billing cycle, empty if none has been created yet.
	PaymentRef string    `json:"payment_ref,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Loan struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"owner_id"`
	AccountID      string          `json:"account_id"`
	Amount         decimal.Decimal `json:"amount"`
	RemainingOwed  decimal.Decimal `json:"remaining_owed"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Transaction is a completed ledger entry.
type Transaction struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"owner_id"`
	Reference     string          `json:"reference"`
	FromAccountID string          `json:"from_account_id,omitempty"`
	ToAccountID   string          `json:"to_account_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Description   string          `json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
}

// UpcomingTransaction is a posting scheduled for a future date. It is not
// reflected in account balances until settlement, which replaces it with a
// mirroring Transaction.
type UpcomingTransaction struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"owner_id"`
	Reference     string          `json:"reference"`
	FromAccountID string          `json:"from_account_id,omitempty"`
	ToAccountID   string          `json:"to_account_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Description   string          `json:"description"`
	ScheduledFor  time.Time       `json:"scheduled_for"`
	CreatedAt     time.Time       `json:"created_at"`
}
