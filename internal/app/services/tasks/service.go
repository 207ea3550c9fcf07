package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pulsedesk/pulsedesk/internal/app/domain/task"
	"github.com/pulsedesk/pulsedesk/internal/app/storage"
	"github.com/pulsedesk/pulsedesk/pkg/logger"
)

// CompletionPoints is awarded each time a task transitions to done.
const CompletionPoints = 10

// PointsAwarder credits gamification points for completed work.
type PointsAwarder interface {
	Award(ctx context.Context, userID string, points int, reason string) error
}

// ActivityRecorder appends entries to the team activity feed.
type ActivityRecorder interface {
	Record(ctx context.Context, userID, action, subject string)
}

// Service manages tasks.
type Service struct {
	store    storage.TaskStore
	users    storage.UserStore
	awarder  PointsAwarder
	activity ActivityRecorder
	log      *logger.Logger
}

// New constructs a task service.
func New(store storage.TaskStore, users storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("tasks")
	}
	return &Service{store: store, users: users, log: log}
}

// AttachAwarder wires the gamification hook. Call before serving requests.
func (s *Service) AttachAwarder(a PointsAwarder) { s.awarder = a }

// AttachActivityRecorder wires the team activity feed hook.
func (s *Service) AttachActivityRecorder(r ActivityRecorder) { s.activity = r }

// Create registers a new task for a user.
func (s *Service) Create(ctx context.Context, userID, title, description string, priority int, due *time.Time) (task.Task, error) {
	userID = strings.TrimSpace(userID)
	title = strings.TrimSpace(title)

	if userID == "" {
		return task.Task{}, fmt.Errorf("user_id is required")
	}
	if title == "" {
		return task.Task{}, fmt.Errorf("title is required")
	}
	if priority < 0 || priority > 3 {
		return task.Task{}, fmt.Errorf("priority must be between 0 and 3")
	}
	if s.users != nil {
		if _, err := s.users.GetUser(ctx, userID); err != nil {
			return task.Task{}, fmt.Errorf("user validation failed: %w", err)
		}
	}

	t := task.Task{
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(description),
		Status:      task.StatusTodo,
		Priority:    priority,
		DueDate:     due,
	}
	t, err := s.store.CreateTask(ctx, t)
	if err != nil {
		return task.Task{}, err
	}
	s.log.WithField("task_id", t.ID).
		WithField("user_id", userID).
		Info("task created")
	return t, nil
}

// Update applies non-nil fields to a task.
func (s *Service) Update(ctx context.Context, id string, title, description *string, priority *int, due *time.Time, status *string) (task.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return task.Task{}, err
	}

	if title != nil {
		trimmed := strings.TrimSpace(*title)
		if trimmed == "" {
			return task.Task{}, fmt.Errorf("title cannot be empty")
		}
		t.Title = trimmed
	}
	if description != nil {
		t.Description = strings.TrimSpace(*description)
	}
	if priority != nil {
		if *priority < 0 || *priority > 3 {
			return task.Task{}, fmt.Errorf("priority must be between 0 and 3")
		}
		t.Priority = *priority
	}
	if due != nil {
		t.DueDate = due
	}
	if status != nil {
		next := task.Status(strings.ToLower(strings.TrimSpace(*status)))
		if !next.Valid() {
			return task.Task{}, fmt.Errorf("unsupported status %s", *status)
		}
		if next == task.StatusDone {
			return s.complete(ctx, t)
		}
		if t.Status == task.StatusDone && next != task.StatusDone {
			t.CompletedAt = nil
		}
		t.Status = next
	}

	return s.store.UpdateTask(ctx, t)
}

// Complete marks a task done, awarding completion points exactly once.
func (s *Service) Complete(ctx context.Context, id string) (task.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return task.Task{}, err
	}
	return s.complete(ctx, t)
}

func (s *Service) complete(ctx context.Context, t task.Task) (task.Task, error) {
	if t.Status == task.StatusDone {
		return t, nil
	}

	now := time.Now().UTC()
	t.Status = task.StatusDone
	t.CompletedAt = &now

	t, err := s.store.UpdateTask(ctx, t)
	if err != nil {
		return task.Task{}, err
	}

	if s.awarder != nil {
		if err := s.awarder.Award(ctx, t.UserID, CompletionPoints, "task completed"); err != nil {
			s.log.WithError(err).WithField("task_id", t.ID).Warn("points award failed")
		}
	}
	if s.activity != nil {
		s.activity.Record(ctx, t.UserID, "completed task", t.Title)
	}

	s.log.WithField("task_id", t.ID).
		WithField("user_id", t.UserID).
		Info("task completed")
	return t, nil
}

// Get retrieves a task by identifier.
func (s *Service) Get(ctx context.Context, id string) (task.Task, error) {
	return s.store.GetTask(ctx, id)
}

// List returns all tasks for a user.
func (s *Service) List(ctx context.Context, userID string) ([]task.Task, error) {
	return s.store.ListTasks(ctx, userID)
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteTask(ctx, id)
}

// TaskSummary aggregates a user's tasks for the dashboard.
func (s *Service) TaskSummary(ctx context.Context, userID string) (task.Summary, error) {
	return s.store.TaskSummary(ctx, userID, time.Now().UTC())
}
