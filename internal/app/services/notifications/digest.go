package notifications

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/pulsedesk/pulsedesk/internal/app/domain/notification"
	"github.com/pulsedesk/pulsedesk/internal/app/storage"
	"github.com/pulsedesk/pulsedesk/pkg/logger"
)

// DefaultDigestSchedule delivers the daily digest at 08:00 UTC.
const DefaultDigestSchedule = "0 8 * * *"

// DigestScheduler delivers a daily unread-summary notification to every
// active user. It implements the system.Service lifecycle.
type DigestScheduler struct {
	svc      *Service
	users    storage.UserStore
	schedule string
	cron     *cron.Cron
	log      *logger.Logger
}

// NewDigestScheduler constructs the scheduler with the default cadence.
func NewDigestScheduler(svc *Service, users storage.UserStore, log *logger.Logger) *DigestScheduler {
	if log == nil {
		log = logger.NewDefault("notification-digest")
	}
	return &DigestScheduler{
		svc:      svc,
		users:    users,
		schedule: DefaultDigestSchedule,
		log:      log,
	}
}

// WithSchedule overrides the cron expression. Call before Start.
func (d *DigestScheduler) WithSchedule(expr string) *DigestScheduler {
	if expr != "" {
		d.schedule = expr
	}
	return d
}

// Name implements system.Service.
func (d *DigestScheduler) Name() string { return "notification-digest" }

// Start implements system.Service.
func (d *DigestScheduler) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(d.schedule, func() { d.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("invalid digest schedule %q: %w", d.schedule, err)
	}
	d.cron = c
	c.Start()
	d.log.WithField("schedule", d.schedule).Info("digest scheduler started")
	return nil
}

// Stop implements system.Service.
func (d *DigestScheduler) Stop(ctx context.Context) error {
	if d.cron == nil {
		return nil
	}
	stopped := d.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
	}
	return nil
}

// RunOnce delivers one digest pass. Exposed for tests and manual triggering.
func (d *DigestScheduler) RunOnce(ctx context.Context) {
	users, err := d.users.ListUsers(ctx)
	if err != nil {
		d.log.WithError(err).Warn("digest pass skipped: list users")
		return
	}

	for _, u := range users {
		if !u.Active {
			continue
		}
		count, err := d.svc.UnreadCount(ctx, u.ID)
		if err != nil {
			d.log.WithError(err).WithField("user_id", u.ID).Warn("digest unread count failed")
			continue
		}
		if count == 0 {
			continue
		}
		body := fmt.Sprintf("You have %d unread notifications waiting.", count)
		if _, err := d.svc.Notify(ctx, u.ID, notification.TypeDigest, "Daily digest", body); err != nil {
			d.log.WithError(err).WithField("user_id", u.ID).Warn("digest delivery failed")
		}
	}
}
