package sim

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"finsim/internal/domain"
)

// Result is the outcome of one processor invocation. Business-rule problems
// are reported through Success/Err; only data-integrity problems in the
// recurring-payment and settlement paths surface as real errors.
type Result struct {
	Success bool
	Err     string
}

// Processor advances one task a single step. Implementations mutate the task
// in place (state, next process time, payment reference, status) and leave
// persistence to the scheduler.
type Processor interface {
	Process(ctx context.Context, task *domain.Task) (Result, error)
}

func failure(format string, args ...any) Result {
	return Result{Err: fmt.Sprintf(format, args...)}
}

func newPaymentRef() string { return "ref_" + uuid.NewString() }
