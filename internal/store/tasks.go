package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"finsim/internal/domain"
)

// TaskRepository is the durable collection of simulation tasks. Read and
// write operations are owner-scoped; NextReady is the one system-level
// query the scheduler uses, and it spans all owners.
type TaskRepository interface {
	Create(ctx context.Context, t domain.Task) (domain.Task, error)
	GetByID(ctx context.Context, ownerID, id string) (domain.Task, error)
	GetByProductID(ctx context.Context, ownerID, productID string) (domain.Task, error)
	List(ctx context.Context, ownerID string) ([]domain.Task, error)
	Update(ctx context.Context, t domain.Task) (domain.Task, error)
	Delete(ctx context.Context, ownerID, id string) error
	NextReady(ctx context.Context, now time.Time) (domain.Task, error)
}

type taskRepo struct{ db *sql.DB }

func NewTaskRepository(db *sql.DB) TaskRepository { return &taskRepo{db: db} }

const taskColumns = `id,owner_id,product_id,type,state,status,next_process_time,created_time,last_processed_time,completed_steps,payment_ref`

func (r *taskRepo) Create(ctx context.Context, t domain.Task) (domain.Task, error) {
	if t.ID == "" {
		t.ID = "sim_" + uuid.NewString()
	}
	if t.Status == "" {
		t.Status = domain.TaskPending
	}
	steps, err := json.Marshal(t.CompletedSteps)
	if err != nil {
		return domain.Task{}, err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO simulation_tasks (`+taskColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?)
`, t.ID, t.OwnerID, t.ProductID, t.Type, t.State, t.Status,
		encodeTime(t.NextProcessTime), encodeTime(t.CreatedTime), encodeLastProcessed(t.LastProcessedTime),
		string(steps), t.PaymentRef)
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (r *taskRepo) GetByID(ctx context.Context, ownerID, id string) (domain.Task, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+taskColumns+` FROM simulation_tasks WHERE owner_id=? AND id=?`, ownerID, id)
	return scanTask(row)
}

func (r *taskRepo) GetByProductID(ctx context.Context, ownerID, productID string) (domain.Task, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+taskColumns+` FROM simulation_tasks WHERE owner_id=? AND product_id=? ORDER BY rowid LIMIT 1`, ownerID, productID)
	return scanTask(row)
}

func (r *taskRepo) List(ctx context.Context, ownerID string) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+taskColumns+` FROM simulation_tasks WHERE owner_id=? ORDER BY rowid`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *taskRepo) Update(ctx context.Context, t domain.Task) (domain.Task, error) {
	steps, err := json.Marshal(t.CompletedSteps)
	if err != nil {
		return domain.Task{}, err
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE simulation_tasks
SET state=?, status=?, next_process_time=?, last_processed_time=?, completed_steps=?, payment_ref=?
WHERE owner_id=? AND id=?`,
		t.State, t.Status, encodeTime(t.NextProcessTime), encodeLastProcessed(t.LastProcessedTime),
		string(steps), t.PaymentRef, t.OwnerID, t.ID)
	if err != nil {
		return domain.Task{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Task{}, ErrNotFound
	}
	return t, nil
}

func (r *taskRepo) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM simulation_tasks WHERE owner_id=? AND id=?`, ownerID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// NextReady returns the first due task in insertion order. Selection is not
// earliest-due-first; switching ORDER BY rowid to next_process_time would
// make it so.
func (r *taskRepo) NextReady(ctx context.Context, now time.Time) (domain.Task, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+taskColumns+` FROM simulation_tasks
WHERE status IN ('pending','in_progress') AND next_process_time <= ?
ORDER BY rowid
LIMIT 1`, encodeTime(now))
	t, err := scanTask(row)
	if err == ErrNotFound {
		return domain.Task{}, ErrNoTaskReady
	}
	return t, err
}

func encodeLastProcessed(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return encodeTime(t)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (domain.Task, error) {
	var (
		t                   domain.Task
		next, created, last string
		steps               string
	)
	err := row.Scan(&t.ID, &t.OwnerID, &t.ProductID, &t.Type, &t.State, &t.Status,
		&next, &created, &last, &steps, &t.PaymentRef)
	if err == sql.ErrNoRows {
		return domain.Task{}, ErrNotFound
	}
	if err != nil {
		return domain.Task{}, err
	}
	if t.NextProcessTime, err = decodeTime(next); err != nil {
		return domain.Task{}, err
	}
	if t.CreatedTime, err = decodeTime(created); err != nil {
		return domain.Task{}, err
	}
	if t.LastProcessedTime, err = decodeTime(last); err != nil {
		return domain.Task{}, err
	}
	if err = json.Unmarshal([]byte(steps), &t.CompletedSteps); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}
