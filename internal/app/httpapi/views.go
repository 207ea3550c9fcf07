package httpapi

import (
	"time"

	"github.com/pulsedesk/pulsedesk/internal/app/domain/crm"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/focus"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/gamification"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/invoice"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/notification"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/task"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/user"
)

// View types own the wire format; domain structs stay free of JSON tags.

type taskView struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Priority    int        `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toTaskView(t task.Task) taskView {
	return taskView{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toTaskViews(ts []task.Task) []taskView {
	out := make([]taskView, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTaskView(t))
	}
	return out
}

type taskSummaryView struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	DueToday  int `json:"due_today"`
	Overdue   int `json:"overdue"`
}

type clientView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Company   string    `json:"company,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toClientView(c crm.Client) clientView {
	return clientView{
		ID:        c.ID,
		UserID:    c.UserID,
		Name:      c.Name,
		Email:     c.Email,
		Company:   c.Company,
		Phone:     c.Phone,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type dealView struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	ClientID  string     `json:"client_id"`
	Title     string     `json:"title"`
	Stage     string     `json:"stage"`
	Value     float64    `json:"value"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func toDealView(d crm.Deal) dealView {
	return dealView{
		ID:        d.ID,
		UserID:    d.UserID,
		ClientID:  d.ClientID,
		Title:     d.Title,
		Stage:     string(d.Stage),
		Value:     d.Value,
		ClosedAt:  d.ClosedAt,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type pipelineView struct {
	OpenDeals     int     `json:"open_deals"`
	PipelineValue float64 `json:"pipeline_value"`
	WonDeals      int     `json:"won_deals"`
	WonValue      float64 `json:"won_value"`
}

type invoiceView struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	ClientID  string     `json:"client_id"`
	Number    string     `json:"number"`
	Amount    float64    `json:"amount"`
	Currency  string     `json:"currency"`
	Status    string     `json:"status"`
	IssuedAt  time.Time  `json:"issued_at"`
	DueAt     time.Time  `json:"due_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func toInvoiceView(inv invoice.Invoice) invoiceView {
	return invoiceView{
		ID:        inv.ID,
		UserID:    inv.UserID,
		ClientID:  inv.ClientID,
		Number:    inv.Number,
		Amount:    inv.Amount,
		Currency:  inv.Currency,
		Status:    string(inv.Status),
		IssuedAt:  inv.IssuedAt,
		DueAt:     inv.DueAt,
		PaidAt:    inv.PaidAt,
		CreatedAt: inv.CreatedAt,
		UpdatedAt: inv.UpdatedAt,
	}
}

type revenueSummaryView struct {
	TotalRevenue float64 `json:"total_revenue"`
	Outstanding  float64 `json:"outstanding"`
	PaidCount    int     `json:"paid_count"`
	OpenCount    int     `json:"open_count"`
}

type monthlyRevenueView struct {
	Month   string  `json:"month"`
	Year    int     `json:"year"`
	Revenue float64 `json:"revenue"`
}

func toTrendView(rows []invoice.MonthlyRevenue) []monthlyRevenueView {
	out := make([]monthlyRevenueView, 0, len(rows))
	for _, r := range rows {
		out = append(out, monthlyRevenueView{Month: r.Month, Year: r.Year, Revenue: r.Revenue})
	}
	return out
}

type gamificationView struct {
	TotalPoints int `json:"total_points"`
	Level       int `json:"level"`
	Streak      int `json:"streak"`
}

func toGamificationView(s gamification.Summary) gamificationView {
	return gamificationView{TotalPoints: s.TotalPoints, Level: s.Level, Streak: s.Streak}
}

type pointsEventView struct {
	ID        string    `json:"id"`
	Points    int       `json:"points"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionView struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Minutes   int        `json:"minutes"`
}

func toSessionView(s focus.Session) sessionView {
	return sessionView{ID: s.ID, UserID: s.UserID, StartedAt: s.StartedAt, EndedAt: s.EndedAt, Minutes: s.Minutes}
}

type focusSummaryView struct {
	TotalMinutes int `json:"total_minutes"`
	TodayMinutes int `json:"today_minutes"`
}

type notificationView struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func toNotificationView(n notification.Notification) notificationView {
	return notificationView{
		ID:        n.ID,
		Type:      string(n.Type),
		Title:     n.Title,
		Body:      n.Body,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

type userView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserView(u user.User) userView {
	return userView{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}
