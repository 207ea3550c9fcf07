package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pulsedesk/pulsedesk/internal/app"
	"github.com/pulsedesk/pulsedesk/internal/middleware"
)

const testSecret = "test-secret"

type testAPI struct {
	srv *httptest.Server
	app *app.Application
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	application, err := app.New(app.Stores{}, app.Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}

	handler := NewHandler(Services{
		Tasks:         application.Tasks,
		CRM:           application.CRM,
		Invoicing:     application.Invoicing,
		Gamification:  application.Gamification,
		Focus:         application.Focus,
		Notifications: application.Notifications,
		Users:         application.Users,
		Snapshots:     application.Reconciler,
	}, nil)

	auth := middleware.NewAuthMiddleware(testSecret, nil, []string{"/healthz", "/metrics", "/api/v1/register"})
	srv := httptest.NewServer(auth.Handler(handler.Router()))
	t.Cleanup(srv.Close)

	return &testAPI{srv: srv, app: application}
}

func (a *testAPI) request(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, a.srv.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func (a *testAPI) registerUser(t *testing.T, email, role string) (id, token string) {
	t.Helper()

	resp := a.request(t, http.MethodPost, "/api/v1/register", "", map[string]string{
		"email": email,
		"name":  "Test User",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	var u struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &u)

	token, err := middleware.GenerateToken(testSecret, middleware.Claims{UserID: u.ID, Email: email, Role: role})
	if err != nil {
		t.Fatal(err)
	}
	return u.ID, token
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodGet, "/api/v1/tasks", "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestHealthzSkipsAuth(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodGet, "/healthz", "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestTaskRoundtrip(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.registerUser(t, "dev@example.com", "member")

	resp := api.request(t, http.MethodPost, "/api/v1/tasks", token, map[string]interface{}{
		"title":    "write the handler test",
		"priority": 1,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeBody(t, resp, &created)
	if created.Status != "todo" {
		t.Fatalf("status = %s", created.Status)
	}

	resp = api.request(t, http.MethodPost, "/api/v1/tasks/"+created.ID+"/complete", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete status = %d", resp.StatusCode)
	}
	var completed struct {
		Status string `json:"status"`
	}
	decodeBody(t, resp, &completed)
	if completed.Status != "done" {
		t.Fatalf("status = %s", completed.Status)
	}

	resp = api.request(t, http.MethodGet, "/api/v1/tasks/summary", token, nil)
	var sum struct {
		Total     int `json:"total"`
		Completed int `json:"completed"`
	}
	decodeBody(t, resp, &sum)
	if sum.Total != 1 || sum.Completed != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestTasksAreScopedToOwner(t *testing.T) {
	api := newTestAPI(t)
	_, ownerToken := api.registerUser(t, "owner@example.com", "member")
	_, otherToken := api.registerUser(t, "other@example.com", "member")

	resp := api.request(t, http.MethodPost, "/api/v1/tasks", ownerToken, map[string]interface{}{
		"title": "private work",
	})
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)

	resp = api.request(t, http.MethodGet, "/api/v1/tasks/"+created.ID, otherToken, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for foreign task", resp.StatusCode)
	}
}

func TestUnifiedMetricsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.registerUser(t, "dev@example.com", "member")

	for i := 0; i < 2; i++ {
		resp := api.request(t, http.MethodPost, "/api/v1/tasks", token, map[string]interface{}{
			"title": fmt.Sprintf("task %d", i),
		})
		var created struct {
			ID string `json:"id"`
		}
		decodeBody(t, resp, &created)
		if i == 0 {
			resp = api.request(t, http.MethodPost, "/api/v1/tasks/"+created.ID+"/complete", token, nil)
			resp.Body.Close()
		}
	}

	resp := api.request(t, http.MethodGet, "/api/v1/metrics/unified", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var snap struct {
		TotalTasks     int                    `json:"total_tasks"`
		CompletedTasks int                    `json:"completed_tasks"`
		CompletionRate float64                `json:"completion_rate"`
		TotalPoints    int                    `json:"total_points"`
		TeamActivity   []json.RawMessage      `json:"team_activity"`
		Sources        map[string]interface{} `json:"sources"`
	}
	decodeBody(t, resp, &snap)

	if snap.TotalTasks != 2 || snap.CompletedTasks != 1 {
		t.Fatalf("unexpected task counts: %+v", snap)
	}
	if snap.CompletionRate != 50 {
		t.Fatalf("completion rate = %v", snap.CompletionRate)
	}
	// Completion awarded points through the gamification hook.
	if snap.TotalPoints == 0 {
		t.Fatal("expected points from completed task")
	}
	if snap.TeamActivity == nil {
		t.Fatal("team_activity must serialize as a list")
	}
	if len(snap.Sources) != 5 {
		t.Fatalf("sources = %d entries, want 5", len(snap.Sources))
	}
}

func TestAdminEndpointsRequireAdminRole(t *testing.T) {
	api := newTestAPI(t)
	memberID, memberToken := api.registerUser(t, "member@example.com", "member")
	_, adminToken := api.registerUser(t, "admin@example.com", "admin")

	resp := api.request(t, http.MethodGet, "/api/v1/admin/users", memberToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("member status = %d, want 403", resp.StatusCode)
	}

	resp = api.request(t, http.MethodGet, "/api/v1/admin/users", adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin status = %d", resp.StatusCode)
	}
	var users []struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &users)
	if len(users) != 2 {
		t.Fatalf("users = %d, want 2", len(users))
	}

	resp = api.request(t, http.MethodPut, "/api/v1/admin/users/"+memberID+"/role", adminToken, map[string]string{"role": "admin"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set role status = %d", resp.StatusCode)
	}
	var promoted struct {
		Role string `json:"role"`
	}
	decodeBody(t, resp, &promoted)
	if promoted.Role != "admin" {
		t.Fatalf("role = %s", promoted.Role)
	}
}

func TestUnknownFieldsRejected(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.registerUser(t, "dev@example.com", "member")

	resp := api.request(t, http.MethodPost, "/api/v1/tasks", token, map[string]interface{}{
		"title":    "ok",
		"surprise": true,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
