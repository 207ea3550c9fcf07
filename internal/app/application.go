// Package app wires the domain services together.
package app

import (
	"context"
	"time"

	"github.com/pulsedesk/pulsedesk/internal/app/services/crm"
	"github.com/pulsedesk/pulsedesk/internal/app/services/focus"
	"github.com/pulsedesk/pulsedesk/internal/app/services/gamification"
	"github.com/pulsedesk/pulsedesk/internal/app/services/invoicing"
	"github.com/pulsedesk/pulsedesk/internal/app/services/metrics"
	"github.com/pulsedesk/pulsedesk/internal/app/services/notifications"
	"github.com/pulsedesk/pulsedesk/internal/app/services/tasks"
	"github.com/pulsedesk/pulsedesk/internal/app/services/users"
	"github.com/pulsedesk/pulsedesk/internal/app/storage"
	"github.com/pulsedesk/pulsedesk/internal/app/storage/memory"
	"github.com/pulsedesk/pulsedesk/internal/app/system"
	"github.com/pulsedesk/pulsedesk/pkg/logger"
)

// Stores collects the persistence interfaces. Zero-value fields default to a
// shared in-memory store.
type Stores struct {
	Tasks         storage.TaskStore
	CRM           storage.CRMStore
	Invoices      storage.InvoiceStore
	Gamification  storage.GamificationStore
	Focus         storage.FocusStore
	Notifications storage.NotificationStore
	Users         storage.UserStore
}

func (s *Stores) fillDefaults() {
	var shared *memory.Store
	mem := func() *memory.Store {
		if shared == nil {
			shared = memory.New()
		}
		return shared
	}
	if s.Tasks == nil {
		s.Tasks = mem()
	}
	if s.CRM == nil {
		s.CRM = mem()
	}
	if s.Invoices == nil {
		s.Invoices = mem()
	}
	if s.Gamification == nil {
		s.Gamification = mem()
	}
	if s.Focus == nil {
		s.Focus = mem()
	}
	if s.Notifications == nil {
		s.Notifications = mem()
	}
	if s.Users == nil {
		s.Users = mem()
	}
}

// Options tunes application construction.
type Options struct {
	SnapshotDeadline time.Duration
}

// Application owns every domain service and the background service manager.
type Application struct {
	Tasks         *tasks.Service
	CRM           *crm.Service
	Invoicing     *invoicing.Service
	Gamification  *gamification.Service
	Focus         *focus.Service
	Notifications *notifications.Service
	Users         *users.Service
	Reconciler    *metrics.Reconciler

	manager *system.Manager
	log     *logger.Logger
}

// New builds the application. Task completion is wired to points awards and
// the activity feed; the reconciler reads from the local services.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	stores.fillDefaults()

	usersSvc := users.New(stores.Users, log)
	tasksSvc := tasks.New(stores.Tasks, stores.Users, log)
	crmSvc := crm.New(stores.CRM, log)
	invoicingSvc := invoicing.New(stores.Invoices, stores.CRM, log)
	gamificationSvc := gamification.New(stores.Gamification, log)
	focusSvc := focus.New(stores.Focus, log)
	notificationsSvc := notifications.New(stores.Notifications, log)

	tasksSvc.AttachAwarder(gamificationSvc)
	tasksSvc.AttachActivityRecorder(usersSvc)

	reconciler := metrics.NewReconciler(tasksSvc, invoicingSvc, gamificationSvc, focusSvc, usersSvc, log)
	if opts.SnapshotDeadline > 0 {
		reconciler = reconciler.WithDeadline(opts.SnapshotDeadline)
	}

	manager := system.NewManager()
	digest := notifications.NewDigestScheduler(notificationsSvc, stores.Users, log)
	if err := manager.Register(digest); err != nil {
		return nil, err
	}

	return &Application{
		Tasks:         tasksSvc,
		CRM:           crmSvc,
		Invoicing:     invoicingSvc,
		Gamification:  gamificationSvc,
		Focus:         focusSvc,
		Notifications: notificationsSvc,
		Users:         usersSvc,
		Reconciler:    reconciler,
		manager:       manager,
		log:           log,
	}, nil
}

// RegisterService adds a background service to the lifecycle manager. Call
// before Start.
func (a *Application) RegisterService(svc system.Service) error {
	return a.manager.Register(svc)
}

// Start launches background services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop shuts down background services in reverse order.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
