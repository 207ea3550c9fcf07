package task

import "time"

// Status enumerates the task lifecycle states.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Task represents a single unit of work owned by a user.
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Status      Status
	Priority    int
	DueDate     *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Summary aggregates a user's tasks for dashboards.
type Summary struct {
	Total     int
	Completed int
	DueToday  int
	Overdue   int
}
