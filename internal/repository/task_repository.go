package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/task-management-api/internal/model"
)

type TaskRepo struct{ DB *sql.DB }

func NewTaskRepo(db *sql.DB) *TaskRepo { return &TaskRepo{DB: db} }

// Create inserts a task and returns its ID. executorID 0 means unassigned.
func (r *TaskRepo) Create(ctx context.Context, text string, reviewerID, executorID uint64, deadline time.Time) (uint64, error) {
	var executor any
	if executorID != 0 {
		executor = executorID
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO task (text, reviewer_id, executor_id, deadline, status, created_at) VALUES (?,?,?,?,?,?)",
		text, reviewerID, executor, deadline, model.TaskStatusNotStarted, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// FindByID fetches a task by id.
func (r *TaskRepo) FindByID(ctx context.Context, id uint64) (model.Task, error) {
	var t model.Task
	var executor sql.NullInt64
	var status string
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, text, executor_id, reviewer_id, deadline, status, created_at FROM task WHERE id = ? LIMIT 1",
		id).Scan(&t.ID, &t.Text, &executor, &t.ReviewerID, &t.Deadline, &status, &t.CreatedAt)
	if err != nil {
		return model.Task{}, err
	}
	if executor.Valid {
		t.ExecutorID = uint64(executor.Int64)
	}
	t.Status = model.TaskStatus(status)
	return t, nil
}

// List returns one page of tasks ordered by creation, plus the total count.
func (r *TaskRepo) List(ctx context.Context, page, size int) ([]model.Task, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM task").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, text, executor_id, reviewer_id, deadline, status, created_at FROM task ORDER BY id LIMIT ? OFFSET ?",
		size, page*size)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		var executor sql.NullInt64
		var status string
		if err := rows.Scan(&t.ID, &t.Text, &executor, &t.ReviewerID, &t.Deadline, &status, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		if executor.Valid {
			t.ExecutorID = uint64(executor.Int64)
		}
		t.Status = model.TaskStatus(status)
		tasks = append(tasks, t)
	}
	return tasks, total, rows.Err()
}

// ChangeStatus updates a task's status.
func (r *TaskRepo) ChangeStatus(ctx context.Context, id uint64, status model.TaskStatus) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE task SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Take assigns the task to an executor and moves it to IN_PROGRESS. Fails
// with ErrConflict if the task is already assigned or does not exist.
func (r *TaskRepo) Take(ctx context.Context, id, executorID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE task SET executor_id = ?, status = ? WHERE id = ? AND executor_id IS NULL",
		executorID, model.TaskStatusInProgress, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// Delete removes a task.
func (r *TaskRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM task WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
