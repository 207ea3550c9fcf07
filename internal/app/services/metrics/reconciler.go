// Package metrics assembles the unified dashboard snapshot from the
// per-domain summary sources, degrading gracefully when any source fails.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/pulsedesk/pulsedesk/internal/app/domain/focus"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/gamification"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/invoice"
	domain "github.com/pulsedesk/pulsedesk/internal/app/domain/metrics"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/task"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/user"
	appmetrics "github.com/pulsedesk/pulsedesk/internal/app/metrics"
	"github.com/pulsedesk/pulsedesk/internal/errors"
	"github.com/pulsedesk/pulsedesk/pkg/logger"
)

// DefaultDeadline bounds a whole snapshot pass. Sources that have not
// settled by then degrade with a timeout reason instead of stalling the
// snapshot behind the slowest dependency.
const DefaultDeadline = 5 * time.Second

// TaskSource supplies the task summary slice of the snapshot.
type TaskSource interface {
	TaskSummary(ctx context.Context, userID string) (task.Summary, error)
}

// RevenueSource supplies the revenue slice of the snapshot.
type RevenueSource interface {
	RevenueSummary(ctx context.Context, userID string) (invoice.RevenueSummary, error)
}

// GamificationSource supplies the points/level/streak slice of the snapshot.
type GamificationSource interface {
	Summary(ctx context.Context, userID string) (gamification.Summary, error)
}

// FocusSource supplies the focus-minutes slice of the snapshot.
type FocusSource interface {
	Summary(ctx context.Context, userID string) (focus.Summary, error)
}

// ActivitySource supplies the team activity list.
type ActivitySource interface {
	RecentActivity(ctx context.Context, userID string) ([]user.Activity, error)
}

// Reconciler fans out to the summary sources and folds the results into one
// structurally complete snapshot. It holds no state between calls: every
// snapshot is a full recomputation and the caller decides refresh cadence.
type Reconciler struct {
	tasks        TaskSource
	revenue      RevenueSource
	gamification GamificationSource
	focus        FocusSource
	activity     ActivitySource
	deadline     time.Duration
	log          *logger.Logger
}

// NewReconciler constructs a reconciler over the given sources.
func NewReconciler(tasks TaskSource, revenue RevenueSource, gam GamificationSource, foc FocusSource, activity ActivitySource, log *logger.Logger) *Reconciler {
	if log == nil {
		log = logger.NewDefault("metrics-reconciler")
	}
	return &Reconciler{
		tasks:        tasks,
		revenue:      revenue,
		gamification: gam,
		focus:        foc,
		activity:     activity,
		deadline:     DefaultDeadline,
		log:          log,
	}
}

// WithDeadline overrides the aggregate snapshot deadline.
func (r *Reconciler) WithDeadline(d time.Duration) *Reconciler {
	if d > 0 {
		r.deadline = d
	}
	return r
}

type result[T any] struct {
	data T
	err  error
}

// fetch runs fn in its own goroutine, converting panics into errors. The
// returned channel is buffered so an abandoned fetch never leaks its sender.
func fetch[T any](ctx context.Context, fn func(context.Context) (T, error)) <-chan result[T] {
	ch := make(chan result[T], 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				var zero T
				ch <- result[T]{data: zero, err: fmt.Errorf("source panic: %v", p)}
			}
		}()
		data, err := fn(ctx)
		ch <- result[T]{data: data, err: err}
	}()
	return ch
}

// await waits for a fetch to settle or the aggregate deadline to pass. A
// result that is already buffered always wins, even when the deadline has
// fired: a settled source must never be reported as timed out.
func await[T any](ctx context.Context, ch <-chan result[T]) result[T] {
	select {
	case res := <-ch:
		return res
	default:
	}
	select {
	case res := <-ch:
		return res
	case <-ctx.Done():
		var zero T
		return result[T]{data: zero, err: fmt.Errorf("source not settled: %w", ctx.Err())}
	}
}

// Snapshot assembles one unified metrics snapshot for a user. It never
// returns an error: a failing source degrades only its own fields, which
// fall back to zero values with the source flagged in Sources.
func (r *Reconciler) Snapshot(ctx context.Context, userID string) domain.Unified {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.deadline)
	defer cancel()

	// Fan out; order here is the declared source priority order.
	tasksCh := fetch(ctx, func(ctx context.Context) (task.Summary, error) {
		return r.tasks.TaskSummary(ctx, userID)
	})
	revenueCh := fetch(ctx, func(ctx context.Context) (invoice.RevenueSummary, error) {
		return r.revenue.RevenueSummary(ctx, userID)
	})
	gamCh := fetch(ctx, func(ctx context.Context) (gamification.Summary, error) {
		return r.gamification.Summary(ctx, userID)
	})
	focusCh := fetch(ctx, func(ctx context.Context) (focus.Summary, error) {
		return r.focus.Summary(ctx, userID)
	})
	activityCh := fetch(ctx, func(ctx context.Context) ([]user.Activity, error) {
		return r.activity.RecentActivity(ctx, userID)
	})

	out := domain.Unified{
		TeamActivity: []user.Activity{},
		Sources:      make(map[string]domain.SourceState, len(domain.SourceOrder)),
	}

	if res := await(ctx, tasksCh); res.err != nil {
		r.degrade(&out, domain.SourceTasks, userID, res.err)
	} else {
		out.TotalTasks = res.data.Total
		out.CompletedTasks = res.data.Completed
		r.settle(&out, domain.SourceTasks)
	}

	if res := await(ctx, revenueCh); res.err != nil {
		r.degrade(&out, domain.SourceRevenue, userID, res.err)
	} else {
		out.TotalRevenue = res.data.TotalRevenue
		r.settle(&out, domain.SourceRevenue)
	}

	if res := await(ctx, gamCh); res.err != nil {
		r.degrade(&out, domain.SourceGamification, userID, res.err)
	} else {
		out.TotalPoints = res.data.TotalPoints
		out.CurrentLevel = res.data.Level
		out.CurrentStreak = res.data.Streak
		r.settle(&out, domain.SourceGamification)
	}

	if res := await(ctx, focusCh); res.err != nil {
		r.degrade(&out, domain.SourceFocus, userID, res.err)
	} else {
		out.TotalFocusMinutes = res.data.TotalMinutes
		out.TodayFocusMinutes = res.data.TodayMinutes
		r.settle(&out, domain.SourceFocus)
	}

	if res := await(ctx, activityCh); res.err != nil {
		r.degrade(&out, domain.SourceActivity, userID, res.err)
	} else {
		if res.data != nil {
			out.TeamActivity = res.data
		}
		r.settle(&out, domain.SourceActivity)
	}

	// Composite fields. A zero denominator yields 0, never NaN.
	if out.TotalTasks > 0 {
		out.CompletionRate = float64(out.CompletedTasks) / float64(out.TotalTasks) * 100
	}

	appmetrics.RecordSnapshot(time.Since(start))
	return out
}

func (r *Reconciler) degrade(out *domain.Unified, source, userID string, err error) {
	reason := err.Error()
	if se := errors.GetServiceError(err); se != nil {
		reason = fmt.Sprintf("%s: %s", se.Code, se.Message)
	}
	out.Sources[source] = domain.SourceState{Degraded: true, Reason: reason}
	appmetrics.RecordSourceResult(source, true)
	r.log.WithField("source", source).
		WithField("user_id", userID).
		WithField("reason", reason).
		Warn("metrics source degraded")
}

func (r *Reconciler) settle(out *domain.Unified, source string) {
	out.Sources[source] = domain.SourceState{}
	appmetrics.RecordSourceResult(source, false)
}
