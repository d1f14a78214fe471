package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finsim/internal/domain"
	"finsim/internal/store"
)

// SystemOwner scopes tasks that belong to the service itself rather than a
// demo user, such as the upcoming-transaction settlement task.
const SystemOwner = "system"

// settlementProductID is the fixed product id of the singleton settlement task.
const settlementProductID = "upcoming-transactions"

// Service is the inbound surface for starting and stopping simulations.
type Service struct {
	tasks store.TaskRepository
	cards store.CardRepository
	now   func() time.Time
}

func NewService(tasks store.TaskRepository, cards store.CardRepository) *Service {
	return &Service{tasks: tasks, cards: cards, now: time.Now}
}

// StartSimulation creates a pending task for the given product, due
// immediately. The initial state depends on the task type; card tasks pick up
// the card's current state.
func (s *Service) StartSimulation(ctx context.Context, ownerID, productID string, taskType domain.TaskType) (domain.Task, error) {
	var state domain.TaskState
	switch taskType {
	case domain.TaskTypeLoan:
		state = domain.LoanPendingApproval
	case domain.TaskTypeCardProcessing:
		card, err := s.cards.GetByID(ctx, ownerID, productID)
		if err != nil {
			return domain.Task{}, fmt.Errorf("card %s: %w", productID, err)
		}
		state = domain.TaskState(card.State)
	case domain.TaskTypeRecurringPayment:
		state = domain.RecurringScheduled
	case domain.TaskTypeUpcomingProcessing:
		state = domain.SettlementWatching
	default:
		return domain.Task{}, fmt.Errorf("unsupported task type %q", taskType)
	}

	now := s.now()
	return s.tasks.Create(ctx, domain.Task{
		OwnerID:         ownerID,
		ProductID:       productID,
		Type:            taskType,
		State:           state,
		Status:          domain.TaskPending,
		NextProcessTime: now,
		CreatedTime:     now,
	})
}

// StopSimulation soft-stops the task tracking the given product. The record
// is retained; a tick already processing it is not interrupted.
func (s *Service) StopSimulation(ctx context.Context, ownerID, productID string) error {
	task, err := s.tasks.GetByProductID(ctx, ownerID, productID)
	if err != nil {
		return err
	}
	task.Status = domain.TaskStopped
	_, err = s.tasks.Update(ctx, task)
	return err
}

func (s *Service) GetTask(ctx context.Context, ownerID, id string) (domain.Task, error) {
	return s.tasks.GetByID(ctx, ownerID, id)
}

func (s *Service) ListTasks(ctx context.Context, ownerID string) ([]domain.Task, error) {
	return s.tasks.List(ctx, ownerID)
}

// EnsureSettlementTask creates the system-owned settlement task if it does
// not exist yet. Safe to call on every startup.
func (s *Service) EnsureSettlementTask(ctx context.Context) (domain.Task, error) {
	task, err := s.tasks.GetByProductID(ctx, SystemOwner, settlementProductID)
	if err == nil {
		return task, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Task{}, err
	}
	return s.StartSimulation(ctx, SystemOwner, settlementProductID, domain.TaskTypeUpcomingProcessing)
}
