package storage

import (
	"context"
	"time"

	"github.com/pulsedesk/pulsedesk/internal/app/domain/crm"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/focus"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/gamification"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/invoice"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/notification"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/task"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/user"
)

// TaskStore persists tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, t task.Task) (task.Task, error)
	UpdateTask(ctx context.Context, t task.Task) (task.Task, error)
	GetTask(ctx context.Context, id string) (task.Task, error)
	ListTasks(ctx context.Context, userID string) ([]task.Task, error)
	DeleteTask(ctx context.Context, id string) error
	TaskSummary(ctx context.Context, userID string, now time.Time) (task.Summary, error)
}

// CRMStore persists clients and deals.
type CRMStore interface {
	CreateClient(ctx context.Context, c crm.Client) (crm.Client, error)
	UpdateClient(ctx context.Context, c crm.Client) (crm.Client, error)
	GetClient(ctx context.Context, id string) (crm.Client, error)
	ListClients(ctx context.Context, userID string) ([]crm.Client, error)
	DeleteClient(ctx context.Context, id string) error

	CreateDeal(ctx context.Context, d crm.Deal) (crm.Deal, error)
	UpdateDeal(ctx context.Context, d crm.Deal) (crm.Deal, error)
	GetDeal(ctx context.Context, id string) (crm.Deal, error)
	ListDeals(ctx context.Context, userID string) ([]crm.Deal, error)
	PipelineSummary(ctx context.Context, userID string) (crm.PipelineSummary, error)
}

// InvoiceStore persists invoices.
type InvoiceStore interface {
	CreateInvoice(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error)
	UpdateInvoice(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error)
	GetInvoice(ctx context.Context, id string) (invoice.Invoice, error)
	ListInvoices(ctx context.Context, userID string) ([]invoice.Invoice, error)
	RevenueSummary(ctx context.Context, userID string) (invoice.RevenueSummary, error)
	MonthlyRevenue(ctx context.Context, userID string, months int, now time.Time) ([]invoice.MonthlyRevenue, error)
}

// GamificationStore persists points profiles and award events.
type GamificationStore interface {
	GetProfile(ctx context.Context, userID string) (gamification.Profile, error)
	UpsertProfile(ctx context.Context, p gamification.Profile) (gamification.Profile, error)
	CreateEvent(ctx context.Context, e gamification.Event) (gamification.Event, error)
	ListEvents(ctx context.Context, userID string, limit int) ([]gamification.Event, error)
}

// FocusStore persists focus sessions.
type FocusStore interface {
	CreateSession(ctx context.Context, s focus.Session) (focus.Session, error)
	UpdateSession(ctx context.Context, s focus.Session) (focus.Session, error)
	GetSession(ctx context.Context, id string) (focus.Session, error)
	OpenSession(ctx context.Context, userID string) (focus.Session, error)
	FocusSummary(ctx context.Context, userID string, now time.Time) (focus.Summary, error)
}

// NotificationStore persists notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error)
	GetNotification(ctx context.Context, id string) (notification.Notification, error)
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]notification.Notification, error)
	MarkRead(ctx context.Context, id string) (notification.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
}

// UserStore persists users and the team activity feed.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)

	RecordActivity(ctx context.Context, a user.Activity) (user.Activity, error)
	RecentActivity(ctx context.Context, limit int) ([]user.Activity, error)
}
