package sim

import (
	"time"

	"finsim/internal/domain"
)

// stateDefault is the per-type fallback key in the delay table.
const stateDefault domain.TaskState = "default"

// globalDefaultDelay applies when the task type itself is unrecognized.
const globalDefaultDelay = 10 * time.Second

var delayTable = map[domain.TaskType]map[domain.TaskState]time.Duration{
	domain.TaskTypeLoan: {
		domain.LoanPendingApproval: 5 * time.Second,
		domain.LoanReviewing:       10 * time.Second,
		domain.LoanApproved:        7 * time.Second,
		domain.LoanFunding:         7 * time.Second,
		domain.LoanActive:          20 * time.Second,
		stateDefault:               10 * time.Second,
	},
	domain.TaskTypeCardProcessing: {
		domain.CardTaskPending: 8 * time.Second,
		domain.CardTaskActive:  30 * time.Second,
		stateDefault:           15 * time.Second,
	},
	domain.TaskTypeRecurringPayment: {
		stateDefault: time.Hour,
	},
	domain.TaskTypeUpcomingProcessing: {
		stateDefault: time.Minute,
	},
}

// DelayFor returns how long a task should wait before its next processing
// attempt. Lookup falls back from (type, state) to the type's default and
// finally to the global default, so every input resolves to a delay.
func DelayFor(taskType domain.TaskType, state domain.TaskState) time.Duration {
	states, ok := delayTable[taskType]
	if !ok {
		return globalDefaultDelay
	}
	if d, ok := states[state]; ok {
		return d
	}
	if d, ok := states[stateDefault]; ok {
		return d
	}
	return globalDefaultDelay
}
