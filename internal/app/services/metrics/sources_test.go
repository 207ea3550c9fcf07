package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pulsedesk/pulsedesk/internal/errors"
	"github.com/pulsedesk/pulsedesk/internal/gateway"
)

func newGatewayFixture(t *testing.T, payloads map[string]string) *GatewaySources {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := payloads[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	gw, err := gateway.New(gateway.Config{BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return NewGatewaySources(gw, "user-token")
}

func TestGatewayTaskSummary(t *testing.T) {
	src := newGatewayFixture(t, map[string]string{
		"/functions/v1/tasks-summary": `{"total": 12, "completed": 5, "due_today": 2, "overdue": 1}`,
	})

	sum, err := src.TaskSummary(context.Background(), "u1")
	if err != nil {
		t.Fatalf("task summary: %v", err)
	}
	if sum.Total != 12 || sum.Completed != 5 || sum.DueToday != 2 || sum.Overdue != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestGatewayTaskSummaryMissingFieldIsShapeError(t *testing.T) {
	src := newGatewayFixture(t, map[string]string{
		"/functions/v1/tasks-summary": `{"completed": 5}`,
	})

	_, err := src.TaskSummary(context.Background(), "u1")
	if err == nil {
		t.Fatal("expected shape error")
	}
	se := errors.GetServiceError(err)
	if se == nil || se.Code != errors.CodeShape {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGatewayRevenueSummary(t *testing.T) {
	src := newGatewayFixture(t, map[string]string{
		"/functions/v1/revenue-summary": `{"total_revenue": 9001.5, "outstanding": 120, "paid_count": 4, "open_count": 2}`,
	})

	sum, err := src.RevenueSummary(context.Background(), "u1")
	if err != nil {
		t.Fatalf("revenue summary: %v", err)
	}
	if sum.TotalRevenue != 9001.5 || sum.Outstanding != 120 || sum.PaidCount != 4 || sum.OpenCount != 2 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestGatewayGamificationSummary(t *testing.T) {
	src := newGatewayFixture(t, map[string]string{
		"/functions/v1/gamification-summary": `{"total_points": 340, "level": 4, "streak": 9}`,
	})

	sum, err := GatewayGamificationSource{src}.Summary(context.Background(), "u1")
	if err != nil {
		t.Fatalf("gamification summary: %v", err)
	}
	if sum.TotalPoints != 340 || sum.Level != 4 || sum.Streak != 9 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestGatewayFocusSummaryMissingTodayIsShapeError(t *testing.T) {
	src := newGatewayFixture(t, map[string]string{
		"/functions/v1/focus-summary": `{"total_minutes": 300}`,
	})

	_, err := GatewayFocusSource{src}.Summary(context.Background(), "u1")
	se := errors.GetServiceError(err)
	if se == nil || se.Code != errors.CodeShape {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGatewayRecentActivity(t *testing.T) {
	src := newGatewayFixture(t, map[string]string{
		"/functions/v1/team-activity": `{"entries": [
			{"id": "a1", "user_id": "u2", "user_name": "Dana", "action": "completed_task", "subject": "Q3 report"},
			{"id": "a2", "user_id": "u3", "user_name": "Lee", "action": "paid_invoice", "subject": "INV-7"}
		]}`,
	})

	feed, err := src.RecentActivity(context.Background(), "u1")
	if err != nil {
		t.Fatalf("recent activity: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("feed length = %d", len(feed))
	}
	if feed[0].UserName != "Dana" || feed[1].Action != "paid_invoice" {
		t.Fatalf("unexpected feed: %+v", feed)
	}
}

func TestGatewayRecentActivityMissingEntriesIsShapeError(t *testing.T) {
	src := newGatewayFixture(t, map[string]string{
		"/functions/v1/team-activity": `{"items": []}`,
	})

	_, err := src.RecentActivity(context.Background(), "u1")
	se := errors.GetServiceError(err)
	if se == nil || se.Code != errors.CodeShape {
		t.Fatalf("unexpected error: %v", err)
	}
}

// End to end: a gateway-backed reconciler degrades the failing remote source
// and keeps the rest.
func TestGatewayBackedReconcilerDegradesFailingSource(t *testing.T) {
	src := newGatewayFixture(t, map[string]string{
		"/functions/v1/tasks-summary":        `{"total": 8, "completed": 8}`,
		"/functions/v1/revenue-summary":      `{"total_revenue": 50}`,
		"/functions/v1/gamification-summary": `{"total_points": 10, "level": 1}`,
		"/functions/v1/focus-summary":        `{"total_minutes": 60, "today_minutes": 60}`,
		// team-activity intentionally absent -> 404 from the fixture
	})

	r := NewReconciler(src, src, GatewayGamificationSource{src}, GatewayFocusSource{src}, src, nil)
	snap := r.Snapshot(context.Background(), "u1")

	if snap.TotalTasks != 8 || snap.CompletionRate != 100 {
		t.Fatalf("unexpected task fields: %+v", snap)
	}
	if !snap.Sources["activity"].Degraded {
		t.Fatal("activity source should degrade on backend failure")
	}
	if snap.DegradedCount() != 1 {
		t.Fatalf("degraded count = %d", snap.DegradedCount())
	}
}
