package runtime

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pulsedesk/pulsedesk/internal/app"
	"github.com/pulsedesk/pulsedesk/internal/config"
	"github.com/pulsedesk/pulsedesk/internal/middleware"
	"github.com/pulsedesk/pulsedesk/pkg/logger"
)

// Auth must run before the limiter so limiting is keyed by user, not by
// connection.
func TestRateLimitAppliesPerAuthenticatedUser(t *testing.T) {
	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1

	rt := &Runtime{cfg: cfg, log: logger.NewDefault("test")}
	h := rt.buildMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
		req.RemoteAddr = "10.1.1.1:4000"
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	tokenA, err := middleware.GenerateToken(cfg.Auth.JWTSecret, middleware.Claims{UserID: "ua"})
	if err != nil {
		t.Fatal(err)
	}
	tokenB, err := middleware.GenerateToken(cfg.Auth.JWTSecret, middleware.Claims{UserID: "ub"})
	if err != nil {
		t.Fatal(err)
	}

	if code := send(tokenA); code != http.StatusOK {
		t.Fatalf("first request = %d", code)
	}
	if code := send(tokenA); code != http.StatusTooManyRequests {
		t.Fatalf("second request for same user = %d, want 429", code)
	}
	if code := send(tokenB); code != http.StatusOK {
		t.Fatalf("other user from same address = %d, want 200", code)
	}
}

func TestGatewayConfigBacksSnapshotSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/functions/v1/tasks-summary":
			fmt.Fprint(w, `{"total":7,"completed":3,"due_today":1,"overdue":0}`)
		case "/functions/v1/revenue-summary":
			fmt.Fprint(w, `{"total_revenue":900.5,"outstanding":100}`)
		case "/functions/v1/gamification-summary":
			fmt.Fprint(w, `{"total_points":120,"level":2,"streak":4}`)
		case "/functions/v1/focus-summary":
			fmt.Fprint(w, `{"total_minutes":300,"today_minutes":45}`)
		case "/functions/v1/team-activity":
			fmt.Fprint(w, `{"entries":[]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Gateway.BaseURL = srv.URL
	cfg.Gateway.APIKey = "service-key"

	application, err := app.New(app.Stores{}, app.Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}

	rt := &Runtime{cfg: cfg, log: logger.NewDefault("test")}
	rec, err := rt.buildReconciler(application)
	if err != nil {
		t.Fatalf("build reconciler: %v", err)
	}
	if rec == application.Reconciler {
		t.Fatal("gateway config ignored, local reconciler returned")
	}

	snap := rec.Snapshot(context.Background(), "u1")
	if snap.DegradedCount() != 0 {
		t.Fatalf("degraded sources: %+v", snap.Sources)
	}
	if snap.TotalTasks != 7 || snap.TotalRevenue != 900.5 || snap.TotalPoints != 120 || snap.TotalFocusMinutes != 300 {
		t.Fatalf("snapshot not served from gateway: %+v", snap)
	}
}
