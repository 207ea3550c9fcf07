package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/pulsedesk/pulsedesk/internal/app/domain/focus"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/gamification"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/invoice"
	domain "github.com/pulsedesk/pulsedesk/internal/app/domain/metrics"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/task"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/user"
	"github.com/pulsedesk/pulsedesk/internal/errors"
)

type stubTasks struct {
	sum   task.Summary
	err   error
	delay time.Duration
	panic bool
}

func (s stubTasks) TaskSummary(ctx context.Context, userID string) (task.Summary, error) {
	if s.panic {
		panic("tasks source blew up")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return task.Summary{}, ctx.Err()
		}
	}
	return s.sum, s.err
}

type stubRevenue struct {
	sum invoice.RevenueSummary
	err error
}

func (s stubRevenue) RevenueSummary(ctx context.Context, userID string) (invoice.RevenueSummary, error) {
	return s.sum, s.err
}

type stubGamification struct {
	sum gamification.Summary
	err error
}

func (s stubGamification) Summary(ctx context.Context, userID string) (gamification.Summary, error) {
	return s.sum, s.err
}

type stubFocus struct {
	sum focus.Summary
	err error
}

func (s stubFocus) Summary(ctx context.Context, userID string) (focus.Summary, error) {
	return s.sum, s.err
}

type stubActivity struct {
	feed []user.Activity
	err  error
}

func (s stubActivity) RecentActivity(ctx context.Context, userID string) ([]user.Activity, error) {
	return s.feed, s.err
}

func healthySources() (stubTasks, stubRevenue, stubGamification, stubFocus, stubActivity) {
	return stubTasks{sum: task.Summary{Total: 10, Completed: 4}},
		stubRevenue{sum: invoice.RevenueSummary{TotalRevenue: 1500.50}},
		stubGamification{sum: gamification.Summary{TotalPoints: 230, Level: 3, Streak: 5}},
		stubFocus{sum: focus.Summary{TotalMinutes: 480, TodayMinutes: 90}},
		stubActivity{feed: []user.Activity{{ID: "a1", UserID: "u2", Action: "completed_task", Subject: "ship it"}}}
}

func TestSnapshotAllSourcesHealthy(t *testing.T) {
	tasks, revenue, gam, foc, act := healthySources()
	r := NewReconciler(tasks, revenue, gam, foc, act, nil)

	snap := r.Snapshot(context.Background(), "u1")

	if snap.TotalTasks != 10 || snap.CompletedTasks != 4 {
		t.Fatalf("unexpected task fields: %+v", snap)
	}
	if snap.CompletionRate != 40 {
		t.Fatalf("completion rate = %v, want 40", snap.CompletionRate)
	}
	if snap.TotalRevenue != 1500.50 {
		t.Fatalf("revenue = %v", snap.TotalRevenue)
	}
	if snap.TotalPoints != 230 || snap.CurrentLevel != 3 || snap.CurrentStreak != 5 {
		t.Fatalf("unexpected gamification fields: %+v", snap)
	}
	if snap.TotalFocusMinutes != 480 || snap.TodayFocusMinutes != 90 {
		t.Fatalf("unexpected focus fields: %+v", snap)
	}
	if len(snap.TeamActivity) != 1 {
		t.Fatalf("team activity = %d entries, want 1", len(snap.TeamActivity))
	}
	if snap.DegradedCount() != 0 {
		t.Fatalf("degraded count = %d, want 0", snap.DegradedCount())
	}
	for _, name := range domain.SourceOrder {
		st, ok := snap.Sources[name]
		if !ok {
			t.Fatalf("source %s missing from state map", name)
		}
		if st.Degraded {
			t.Fatalf("source %s unexpectedly degraded: %s", name, st.Reason)
		}
	}
}

// Every combination of healthy and failing sources must yield a structurally
// complete snapshot with exactly the failing sources flagged.
func TestSnapshotTotality(t *testing.T) {
	for mask := 0; mask < 1<<len(domain.SourceOrder); mask++ {
		mask := mask
		t.Run(fmt.Sprintf("mask_%05b", mask), func(t *testing.T) {
			tasks, revenue, gam, foc, act := healthySources()
			fail := errors.Backend(503, "summary unavailable")
			if mask&1 != 0 {
				tasks.err = fail
			}
			if mask&2 != 0 {
				revenue.err = fail
			}
			if mask&4 != 0 {
				gam.err = fail
			}
			if mask&8 != 0 {
				foc.err = fail
			}
			if mask&16 != 0 {
				act.err = fail
			}

			r := NewReconciler(tasks, revenue, gam, foc, act, nil)
			snap := r.Snapshot(context.Background(), "u1")

			if len(snap.Sources) != len(domain.SourceOrder) {
				t.Fatalf("source map has %d entries, want %d", len(snap.Sources), len(domain.SourceOrder))
			}
			if snap.TeamActivity == nil {
				t.Fatal("team activity must never be nil")
			}
			for i, name := range domain.SourceOrder {
				wantDegraded := mask&(1<<i) != 0
				st := snap.Sources[name]
				if st.Degraded != wantDegraded {
					t.Fatalf("source %s degraded = %v, want %v", name, st.Degraded, wantDegraded)
				}
				if wantDegraded && st.Reason == "" {
					t.Fatalf("source %s degraded without a reason", name)
				}
			}
		})
	}
}

// A failing source degrades only its own fields; the rest keep real values.
func TestSnapshotSourceIndependence(t *testing.T) {
	tasks, revenue, gam, foc, act := healthySources()
	gam.err = errors.Transport("connection refused", nil)

	r := NewReconciler(tasks, revenue, gam, foc, act, nil)
	snap := r.Snapshot(context.Background(), "u1")

	if snap.TotalPoints != 0 || snap.CurrentLevel != 0 || snap.CurrentStreak != 0 {
		t.Fatalf("gamification fields not zeroed: %+v", snap)
	}
	if !snap.Sources[domain.SourceGamification].Degraded {
		t.Fatal("gamification source not flagged")
	}
	if snap.TotalTasks != 10 || snap.TotalRevenue != 1500.50 || snap.TotalFocusMinutes != 480 {
		t.Fatalf("healthy sources lost data: %+v", snap)
	}
	if snap.DegradedCount() != 1 {
		t.Fatalf("degraded count = %d, want 1", snap.DegradedCount())
	}
}

func TestSnapshotAllSourcesFail(t *testing.T) {
	fail := errors.Transport("network down", nil)
	r := NewReconciler(
		stubTasks{err: fail},
		stubRevenue{err: fail},
		stubGamification{err: fail},
		stubFocus{err: fail},
		stubActivity{err: fail},
		nil,
	)

	snap := r.Snapshot(context.Background(), "u1")

	if snap.TotalTasks != 0 || snap.TotalRevenue != 0 || snap.TotalPoints != 0 ||
		snap.TotalFocusMinutes != 0 || snap.CompletionRate != 0 {
		t.Fatalf("expected all-zero snapshot, got %+v", snap)
	}
	if len(snap.TeamActivity) != 0 || snap.TeamActivity == nil {
		t.Fatal("team activity must be an empty non-nil list")
	}
	if snap.DegradedCount() != len(domain.SourceOrder) {
		t.Fatalf("degraded count = %d, want %d", snap.DegradedCount(), len(domain.SourceOrder))
	}
}

func TestSnapshotZeroTaskDenominator(t *testing.T) {
	tasks, revenue, gam, foc, act := healthySources()
	tasks.sum = task.Summary{}

	r := NewReconciler(tasks, revenue, gam, foc, act, nil)
	snap := r.Snapshot(context.Background(), "u1")

	if snap.CompletionRate != 0 {
		t.Fatalf("completion rate = %v, want 0", snap.CompletionRate)
	}
}

// Two snapshots over unchanged sources must serialize identically.
func TestSnapshotIdempotent(t *testing.T) {
	tasks, revenue, gam, foc, act := healthySources()
	r := NewReconciler(tasks, revenue, gam, foc, act, nil)

	first, err := json.Marshal(r.Snapshot(context.Background(), "u1"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := json.Marshal(r.Snapshot(context.Background(), "u1"))
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Fatalf("snapshots differ:\n%s\n%s", first, second)
	}
}

func TestSnapshotSlowSourceDegradesOnDeadline(t *testing.T) {
	tasks, revenue, gam, foc, act := healthySources()
	tasks.delay = time.Second

	r := NewReconciler(tasks, revenue, gam, foc, act, nil).WithDeadline(50 * time.Millisecond)

	start := time.Now()
	snap := r.Snapshot(context.Background(), "u1")
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("snapshot took %v, deadline not enforced", elapsed)
	}

	if !snap.Sources[domain.SourceTasks].Degraded {
		t.Fatal("slow tasks source not degraded")
	}
	if snap.Sources[domain.SourceRevenue].Degraded || snap.Sources[domain.SourceFocus].Degraded {
		t.Fatal("fast sources degraded by slow sibling")
	}
}

func TestSnapshotPanickingSourceDegrades(t *testing.T) {
	tasks, revenue, gam, foc, act := healthySources()
	tasks.panic = true

	r := NewReconciler(tasks, revenue, gam, foc, act, nil)
	snap := r.Snapshot(context.Background(), "u1")

	st := snap.Sources[domain.SourceTasks]
	if !st.Degraded {
		t.Fatal("panicking source not degraded")
	}
	if snap.TotalRevenue != 1500.50 {
		t.Fatal("panic leaked into other sources")
	}
}

func TestSnapshotDegradeReasonUsesErrorCode(t *testing.T) {
	tasks, revenue, gam, foc, act := healthySources()
	revenue.err = errors.Unauthorized("token expired")

	r := NewReconciler(tasks, revenue, gam, foc, act, nil)
	snap := r.Snapshot(context.Background(), "u1")

	st := snap.Sources[domain.SourceRevenue]
	if !st.Degraded {
		t.Fatal("revenue source not degraded")
	}
	if want := "AUTH_ERROR: token expired"; st.Reason != want {
		t.Fatalf("reason = %q, want %q", st.Reason, want)
	}
}

func TestSnapshotNilActivityBecomesEmptyList(t *testing.T) {
	tasks, revenue, gam, foc, _ := healthySources()
	r := NewReconciler(tasks, revenue, gam, foc, stubActivity{feed: nil}, nil)

	snap := r.Snapshot(context.Background(), "u1")
	if snap.TeamActivity == nil {
		t.Fatal("nil activity feed must project to an empty list")
	}
	if snap.Sources[domain.SourceActivity].Degraded {
		t.Fatal("empty feed is not a degradation")
	}
}

// A slow source must degrade alone even when the deadline fires while its
// siblings' results are already buffered. The failure mode is a scheduling
// race, so run several passes.
func TestSnapshotDeadlineRaceLeavesSettledSourcesAlone(t *testing.T) {
	for i := 0; i < 20; i++ {
		tasks, revenue, gam, foc, act := healthySources()
		tasks.delay = time.Second
		r := NewReconciler(tasks, revenue, gam, foc, act, nil).WithDeadline(30 * time.Millisecond)

		snap := r.Snapshot(context.Background(), "u1")

		if !snap.Sources[domain.SourceTasks].Degraded {
			t.Fatalf("pass %d: slow source not degraded", i)
		}
		for _, name := range domain.SourceOrder {
			if name == domain.SourceTasks {
				continue
			}
			if st := snap.Sources[name]; st.Degraded {
				t.Fatalf("pass %d: settled source %s degraded: %s", i, name, st.Reason)
			}
		}
		if snap.TotalRevenue != 1500.50 || snap.TotalPoints != 230 {
			t.Fatalf("pass %d: settled values lost: %+v", i, snap)
		}
	}
}
