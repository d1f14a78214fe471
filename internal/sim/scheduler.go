package sim

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"finsim/internal/domain"
	"finsim/internal/store"
)

// DefaultTickInterval is how often the scheduler looks for a ready task.
const DefaultTickInterval = 5 * time.Second

// Scheduler polls the task store on a fixed interval and advances at most
// one task per tick. Ticks never overlap: if a tick's work outlives the
// interval, the next tick is skipped outright rather than queued.
type Scheduler struct {
	tasks      store.TaskRepository
	processors map[domain.TaskType]Processor
	interval   time.Duration
	running    atomic.Bool
	stop       chan struct{}
	now        func() time.Time
}

func NewScheduler(tasks store.TaskRepository, processors map[domain.TaskType]Processor, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Scheduler{
		tasks:      tasks,
		processors: processors,
		interval:   interval,
		stop:       make(chan struct{}),
		now:        time.Now,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.interval).Msg("simulation scheduler started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case now := <-ticker.C:
			go s.tick(ctx, now)
		}
	}
}

func (s *Scheduler) Stop() {
	close(s.stop)
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	if !s.running.CompareAndSwap(false, true) {
		log.Debug().Msg("previous tick still running, skipping")
		return
	}
	defer s.running.Store(false)

	task, err := s.tasks.NextReady(ctx, now)
	if errors.Is(err, store.ErrNoTaskReady) {
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch next ready task")
		return
	}

	task.Status = domain.TaskInProgress
	task.LastProcessedTime = now
	if task, err = s.tasks.Update(ctx, task); err != nil {
		log.Error().Err(err).Str("task_id", task.ID).Msg("failed to mark task in progress")
		return
	}

	// The store round-trip takes time; make sure the task is still due.
	if task.NextProcessTime.After(s.now()) {
		return
	}

	processor, ok := s.processors[task.Type]
	if !ok {
		log.Error().Str("task_id", task.ID).Str("type", string(task.Type)).Msg("no processor for task type")
		return
	}

	prevState := task.State
	result, err := processor.Process(ctx, &task)
	if err != nil {
		// Integrity error. The task stays in_progress with its due time
		// unchanged, so it keeps being re-selected without progressing.
		log.Error().Err(err).Str("task_id", task.ID).Str("type", string(task.Type)).Msg("processor error")
		return
	}
	if !result.Success {
		log.Warn().Str("task_id", task.ID).Str("type", string(task.Type)).Str("error", result.Err).Msg("task processing failed")
		return
	}

	task.RecordStep(prevState)
	if task.Status != domain.TaskCompleted {
		task.Status = domain.TaskPending
	}
	task.LastProcessedTime = s.now()
	if _, err := s.tasks.Update(ctx, task); err != nil {
		log.Error().Err(err).Str("task_id", task.ID).Msg("failed to persist processed task")
		return
	}
	log.Info().
		Str("task_id", task.ID).
		Str("type", string(task.Type)).
		Str("state", string(task.State)).
		Time("next_process_time", task.NextProcessTime).
		Msg("task processed")
}
