// Package httpapi exposes the REST API.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	domainmetrics "github.com/pulsedesk/pulsedesk/internal/app/domain/metrics"
	appmetrics "github.com/pulsedesk/pulsedesk/internal/app/metrics"
	"github.com/pulsedesk/pulsedesk/internal/app/services/crm"
	"github.com/pulsedesk/pulsedesk/internal/app/services/focus"
	"github.com/pulsedesk/pulsedesk/internal/app/services/gamification"
	"github.com/pulsedesk/pulsedesk/internal/app/services/invoicing"
	"github.com/pulsedesk/pulsedesk/internal/app/services/notifications"
	"github.com/pulsedesk/pulsedesk/internal/app/services/tasks"
	"github.com/pulsedesk/pulsedesk/internal/app/services/users"
	"github.com/pulsedesk/pulsedesk/internal/errors"
	"github.com/pulsedesk/pulsedesk/internal/middleware"
	"github.com/pulsedesk/pulsedesk/pkg/logger"
)

// Snapshotter produces the unified dashboard snapshot. Satisfied by the
// reconciler and its caching wrapper.
type Snapshotter interface {
	Snapshot(ctx context.Context, userID string) domainmetrics.Unified
}

// Services bundles everything the handler needs.
type Services struct {
	Tasks         *tasks.Service
	CRM           *crm.Service
	Invoicing     *invoicing.Service
	Gamification  *gamification.Service
	Focus         *focus.Service
	Notifications *notifications.Service
	Users         *users.Service
	Snapshots     Snapshotter
}

// Handler serves the REST API.
type Handler struct {
	svc Services
	log *logger.Logger
}

// NewHandler creates the API handler.
func NewHandler(svc Services, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	return &Handler{svc: svc, log: log}
}

// Router builds the route table.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", appmetrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/register", h.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/users/me", h.handleMe).Methods(http.MethodGet)
	api.HandleFunc("/users/me", h.handleUpdateMe).Methods(http.MethodPatch)
	api.HandleFunc("/activity", h.handleActivity).Methods(http.MethodGet)

	api.HandleFunc("/tasks", h.handleCreateTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks", h.handleListTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks/summary", h.handleTaskSummary).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", h.handleGetTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", h.handleUpdateTask).Methods(http.MethodPatch)
	api.HandleFunc("/tasks/{id}", h.handleDeleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{id}/complete", h.handleCompleteTask).Methods(http.MethodPost)

	api.HandleFunc("/clients", h.handleCreateClient).Methods(http.MethodPost)
	api.HandleFunc("/clients", h.handleListClients).Methods(http.MethodGet)
	api.HandleFunc("/clients/{id}", h.handleGetClient).Methods(http.MethodGet)
	api.HandleFunc("/clients/{id}", h.handleUpdateClient).Methods(http.MethodPatch)
	api.HandleFunc("/clients/{id}", h.handleDeleteClient).Methods(http.MethodDelete)

	api.HandleFunc("/deals", h.handleCreateDeal).Methods(http.MethodPost)
	api.HandleFunc("/deals", h.handleListDeals).Methods(http.MethodGet)
	api.HandleFunc("/deals/summary", h.handlePipelineSummary).Methods(http.MethodGet)
	api.HandleFunc("/deals/{id}/stage", h.handleMoveDeal).Methods(http.MethodPost)

	api.HandleFunc("/invoices", h.handleCreateInvoice).Methods(http.MethodPost)
	api.HandleFunc("/invoices", h.handleListInvoices).Methods(http.MethodGet)
	api.HandleFunc("/invoices/{id}", h.handleGetInvoice).Methods(http.MethodGet)
	api.HandleFunc("/invoices/{id}/send", h.handleSendInvoice).Methods(http.MethodPost)
	api.HandleFunc("/invoices/{id}/pay", h.handlePayInvoice).Methods(http.MethodPost)
	api.HandleFunc("/invoices/{id}/void", h.handleVoidInvoice).Methods(http.MethodPost)
	api.HandleFunc("/revenue/summary", h.handleRevenueSummary).Methods(http.MethodGet)
	api.HandleFunc("/revenue/trend", h.handleRevenueTrend).Methods(http.MethodGet)

	api.HandleFunc("/gamification/summary", h.handleGamificationSummary).Methods(http.MethodGet)
	api.HandleFunc("/gamification/history", h.handleGamificationHistory).Methods(http.MethodGet)

	api.HandleFunc("/focus/sessions", h.handleStartFocus).Methods(http.MethodPost)
	api.HandleFunc("/focus/sessions/current", h.handleCurrentFocus).Methods(http.MethodGet)
	api.HandleFunc("/focus/sessions/{id}/stop", h.handleStopFocus).Methods(http.MethodPost)
	api.HandleFunc("/focus/summary", h.handleFocusSummary).Methods(http.MethodGet)

	api.HandleFunc("/notifications", h.handleListNotifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications/unread-count", h.handleUnreadCount).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id}/read", h.handleMarkRead).Methods(http.MethodPost)

	api.HandleFunc("/metrics/unified", h.handleUnifiedMetrics).Methods(http.MethodGet)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(h.requireAdmin)
	admin.HandleFunc("/users", h.handleListUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}/role", h.handleSetRole).Methods(http.MethodPut)
	admin.HandleFunc("/users/{id}/active", h.handleSetActive).Methods(http.MethodPut)

	return r
}

func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if middleware.GetUserRole(r.Context()) != "admin" {
			h.writeError(w, errors.Forbidden("admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- users ---

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.Users.Register(r.Context(), req.Email, req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toUserView(u))
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Users.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserView(u))
}

func (h *Handler) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name *string `json:"name"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.Users.UpdateProfile(r.Context(), middleware.GetUserID(r.Context()), req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserView(u))
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	feed, err := h.svc.Users.RecentActivity(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"entries": feed})
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Users.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]userView, 0, len(list))
	for _, u := range list {
		out = append(out, toUserView(u))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleSetRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.Users.SetRole(r.Context(), mux.Vars(r)["id"], req.Role)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserView(u))
}

func (h *Handler) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active bool `json:"active"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.Users.SetActive(r.Context(), mux.Vars(r)["id"], req.Active)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserView(u))
}

// --- tasks ---

func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		Priority    int        `json:"priority"`
		DueDate     *time.Time `json:"due_date"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.Tasks.Create(r.Context(), middleware.GetUserID(r.Context()), req.Title, req.Description, req.Priority, req.DueDate)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toTaskView(t))
}

func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Tasks.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toTaskViews(list))
}

func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Tasks.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	if t.UserID != middleware.GetUserID(r.Context()) {
		h.writeError(w, errors.NotFound("task", t.ID))
		return
	}
	h.writeJSON(w, http.StatusOK, toTaskView(t))
}

func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	if !h.ownsTask(w, r) {
		return
	}
	var req struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		Priority    *int       `json:"priority"`
		DueDate     *time.Time `json:"due_date"`
		Status      *string    `json:"status"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.Tasks.Update(r.Context(), mux.Vars(r)["id"], req.Title, req.Description, req.Priority, req.DueDate, req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toTaskView(t))
}

func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if !h.ownsTask(w, r) {
		return
	}
	if err := h.svc.Tasks.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	if !h.ownsTask(w, r) {
		return
	}
	t, err := h.svc.Tasks.Complete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toTaskView(t))
}

func (h *Handler) ownsTask(w http.ResponseWriter, r *http.Request) bool {
	id := mux.Vars(r)["id"]
	t, err := h.svc.Tasks.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return false
	}
	if t.UserID != middleware.GetUserID(r.Context()) {
		h.writeError(w, errors.NotFound("task", id))
		return false
	}
	return true
}

func (h *Handler) handleTaskSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Tasks.TaskSummary(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, taskSummaryView{
		Total:     sum.Total,
		Completed: sum.Completed,
		DueToday:  sum.DueToday,
		Overdue:   sum.Overdue,
	})
}

// --- clients and deals ---

func (h *Handler) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Company string `json:"company"`
		Phone   string `json:"phone"`
		Notes   string `json:"notes"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.CRM.CreateClient(r.Context(), middleware.GetUserID(r.Context()), req.Name, req.Email, req.Company, req.Phone, req.Notes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toClientView(c))
}

func (h *Handler) handleListClients(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.CRM.ListClients(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]clientView, 0, len(list))
	for _, c := range list {
		out = append(out, toClientView(c))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetClient(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.CRM.GetClient(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	if c.UserID != middleware.GetUserID(r.Context()) {
		h.writeError(w, errors.NotFound("client", c.ID))
		return
	}
	h.writeJSON(w, http.StatusOK, toClientView(c))
}

func (h *Handler) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	if !h.ownsClient(w, r) {
		return
	}
	var req struct {
		Name    *string `json:"name"`
		Email   *string `json:"email"`
		Company *string `json:"company"`
		Phone   *string `json:"phone"`
		Notes   *string `json:"notes"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.CRM.UpdateClient(r.Context(), mux.Vars(r)["id"], req.Name, req.Email, req.Company, req.Phone, req.Notes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toClientView(c))
}

func (h *Handler) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	if !h.ownsClient(w, r) {
		return
	}
	if err := h.svc.CRM.DeleteClient(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ownsClient(w http.ResponseWriter, r *http.Request) bool {
	id := mux.Vars(r)["id"]
	c, err := h.svc.CRM.GetClient(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return false
	}
	if c.UserID != middleware.GetUserID(r.Context()) {
		h.writeError(w, errors.NotFound("client", id))
		return false
	}
	return true
}

func (h *Handler) handleCreateDeal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID string  `json:"client_id"`
		Title    string  `json:"title"`
		Value    float64 `json:"value"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.CRM.CreateDeal(r.Context(), middleware.GetUserID(r.Context()), req.ClientID, req.Title, req.Value)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toDealView(d))
}

func (h *Handler) handleListDeals(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.CRM.ListDeals(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]dealView, 0, len(list))
	for _, d := range list {
		out = append(out, toDealView(d))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleMoveDeal(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	d, err := h.svc.CRM.GetDeal(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if d.UserID != middleware.GetUserID(r.Context()) {
		h.writeError(w, errors.NotFound("deal", id))
		return
	}
	var req struct {
		Stage string `json:"stage"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}
	d, err = h.svc.CRM.MoveDeal(r.Context(), id, req.Stage)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toDealView(d))
}

func (h *Handler) handlePipelineSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.CRM.PipelineSummary(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, pipelineView{
		OpenDeals:     sum.OpenDeals,
		PipelineValue: sum.PipelineValue,
		WonDeals:      sum.WonDeals,
		WonValue:      sum.WonValue,
	})
}

// --- invoices ---

func (h *Handler) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID string    `json:"client_id"`
		Number   string    `json:"number"`
		Amount   float64   `json:"amount"`
		Currency string    `json:"currency"`
		DueAt    time.Time `json:"due_at"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}
	inv, err := h.svc.Invoicing.Create(r.Context(), middleware.GetUserID(r.Context()), req.ClientID, req.Number, req.Amount, req.Currency, req.DueAt)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toInvoiceView(inv))
}

func (h *Handler) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Invoicing.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]invoiceView, 0, len(list))
	for _, inv := range list {
		out = append(out, toInvoiceView(inv))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.invoiceForCaller(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, inv)
}

func (h *Handler) handleSendInvoice(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.invoiceForCaller(w, r); !ok {
		return
	}
	inv, err := h.svc.Invoicing.Send(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toInvoiceView(inv))
}

func (h *Handler) handlePayInvoice(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.invoiceForCaller(w, r); !ok {
		return
	}
	inv, err := h.svc.Invoicing.MarkPaid(r.Context(), mux.Vars(r)["id"], time.Now().UTC())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toInvoiceView(inv))
}

func (h *Handler) handleVoidInvoice(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.invoiceForCaller(w, r); !ok {
		return
	}
	inv, err := h.svc.Invoicing.Void(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toInvoiceView(inv))
}

func (h *Handler) invoiceForCaller(w http.ResponseWriter, r *http.Request) (inv invoiceView, ok bool) {
	id := mux.Vars(r)["id"]
	found, err := h.svc.Invoicing.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return invoiceView{}, false
	}
	if found.UserID != middleware.GetUserID(r.Context()) {
		h.writeError(w, errors.NotFound("invoice", id))
		return invoiceView{}, false
	}
	return toInvoiceView(found), true
}

func (h *Handler) handleRevenueSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Invoicing.RevenueSummary(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, revenueSummaryView{
		TotalRevenue: sum.TotalRevenue,
		Outstanding:  sum.Outstanding,
		PaidCount:    sum.PaidCount,
		OpenCount:    sum.OpenCount,
	})
}

func (h *Handler) handleRevenueTrend(w http.ResponseWriter, r *http.Request) {
	months, _ := strconv.Atoi(r.URL.Query().Get("months"))
	trend, err := h.svc.Invoicing.RevenueTrend(r.Context(), middleware.GetUserID(r.Context()), months)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toTrendView(trend))
}

// --- gamification ---

func (h *Handler) handleGamificationSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Gamification.Summary(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toGamificationView(sum))
}

func (h *Handler) handleGamificationHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.svc.Gamification.History(r.Context(), middleware.GetUserID(r.Context()), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]pointsEventView, 0, len(events))
	for _, e := range events {
		out = append(out, pointsEventView{ID: e.ID, Points: e.Points, Reason: e.Reason, CreatedAt: e.CreatedAt})
	}
	h.writeJSON(w, http.StatusOK, out)
}

// --- focus ---

func (h *Handler) handleStartFocus(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Focus.Start(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toSessionView(s))
}

func (h *Handler) handleStopFocus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	current, err := h.svc.Focus.Current(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil || current.ID != id {
		h.writeError(w, errors.NotFound("session", id))
		return
	}
	s, err := h.svc.Focus.Stop(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toSessionView(s))
}

func (h *Handler) handleCurrentFocus(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Focus.Current(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toSessionView(s))
}

func (h *Handler) handleFocusSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Focus.Summary(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, focusSummaryView{TotalMinutes: sum.TotalMinutes, TodayMinutes: sum.TodayMinutes})
}

// --- notifications ---

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"
	list, err := h.svc.Notifications.List(r.Context(), middleware.GetUserID(r.Context()), unreadOnly)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]notificationView, 0, len(list))
	for _, n := range list {
		out = append(out, toNotificationView(n))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.Notifications.UnreadCount(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Notifications.MarkRead(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toNotificationView(n))
}

// --- unified metrics ---

func (h *Handler) handleUnifiedMetrics(w http.ResponseWriter, r *http.Request) {
	snap := h.svc.Snapshots.Snapshot(r.Context(), middleware.GetUserID(r.Context()))
	h.writeJSON(w, http.StatusOK, snap)
}
