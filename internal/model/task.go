package model

import "time"

// TaskStatus mirrors the `task.status` column.
type TaskStatus string

const (
	TaskStatusNotStarted TaskStatus = "NOT_STARTED"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

// ParseTaskStatus validates a status string coming from a request body.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch TaskStatus(s) {
	case TaskStatusNotStarted, TaskStatusInProgress, TaskStatusDone:
		return TaskStatus(s), true
	}
	return "", false
}

// Task represents a row in the `task` table. Reviewer is required (the admin
// who created the task); Executor is zero until a user takes the task.
type Task struct {
	ID         uint64     // task.id
	Text       string     // task.text
	ExecutorID uint64     // task.executor_id (0 = unassigned)
	ReviewerID uint64     // task.reviewer_id
	Deadline   time.Time  // task.deadline
	Status     TaskStatus // task.status
	CreatedAt  time.Time  // task.created_at
}
