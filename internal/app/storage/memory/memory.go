package memory

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulsedesk/pulsedesk/internal/app/domain/crm"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/focus"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/gamification"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/invoice"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/notification"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/task"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/user"
	"github.com/pulsedesk/pulsedesk/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local
// development. Missing rows are reported as sql.ErrNoRows so callers behave
// identically against the Postgres store.
type Store struct {
	mu            sync.RWMutex
	tasks         map[string]task.Task
	clients       map[string]crm.Client
	deals         map[string]crm.Deal
	invoices      map[string]invoice.Invoice
	profiles      map[string]gamification.Profile
	events        map[string][]gamification.Event
	sessions      map[string]focus.Session
	notifications map[string]notification.Notification
	users         map[string]user.User
	activity      []user.Activity
}

var _ storage.TaskStore = (*Store)(nil)
var _ storage.CRMStore = (*Store)(nil)
var _ storage.InvoiceStore = (*Store)(nil)
var _ storage.GamificationStore = (*Store)(nil)
var _ storage.FocusStore = (*Store)(nil)
var _ storage.NotificationStore = (*Store)(nil)
var _ storage.UserStore = (*Store)(nil)

var errDuplicateEmail = errors.New("email already registered")

// New creates an empty store.
func New() *Store {
	return &Store{
		tasks:         make(map[string]task.Task),
		clients:       make(map[string]crm.Client),
		deals:         make(map[string]crm.Deal),
		invoices:      make(map[string]invoice.Invoice),
		profiles:      make(map[string]gamification.Profile),
		events:        make(map[string][]gamification.Event),
		sessions:      make(map[string]focus.Session),
		notifications: make(map[string]notification.Notification),
		users:         make(map[string]user.User),
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// --- TaskStore --------------------------------------------------------------

func (s *Store) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.tasks[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTask(ctx context.Context, t task.Task) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[t.ID]
	if !ok {
		return task.Task{}, sql.ErrNoRows
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	s.tasks[t.ID] = t
	return t, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return task.Task{}, sql.ErrNoRows
	}
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context, userID string) ([]task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []task.Task
	for _, t := range s.tasks {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.tasks, id)
	return nil
}

func (s *Store) TaskSummary(ctx context.Context, userID string, now time.Time) (task.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum task.Summary
	for _, t := range s.tasks {
		if t.UserID != userID {
			continue
		}
		sum.Total++
		if t.Status == task.StatusDone {
			sum.Completed++
			continue
		}
		if t.DueDate == nil {
			continue
		}
		if sameDay(*t.DueDate, now) {
			sum.DueToday++
		} else if t.DueDate.Before(now) {
			sum.Overdue++
		}
	}
	return sum, nil
}

// --- CRMStore ---------------------------------------------------------------

func (s *Store) CreateClient(ctx context.Context, c crm.Client) (crm.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.clients[c.ID] = c
	return c, nil
}

func (s *Store) UpdateClient(ctx context.Context, c crm.Client) (crm.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.clients[c.ID]
	if !ok {
		return crm.Client{}, sql.ErrNoRows
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	s.clients[c.ID] = c
	return c, nil
}

func (s *Store) GetClient(ctx context.Context, id string) (crm.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[id]
	if !ok {
		return crm.Client{}, sql.ErrNoRows
	}
	return c, nil
}

func (s *Store) ListClients(ctx context.Context, userID string) ([]crm.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []crm.Client
	for _, c := range s.clients {
		if c.UserID == userID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteClient(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.clients, id)
	return nil
}

func (s *Store) CreateDeal(ctx context.Context, d crm.Deal) (crm.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	s.deals[d.ID] = d
	return d, nil
}

func (s *Store) UpdateDeal(ctx context.Context, d crm.Deal) (crm.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.deals[d.ID]
	if !ok {
		return crm.Deal{}, sql.ErrNoRows
	}
	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = time.Now().UTC()
	s.deals[d.ID] = d
	return d, nil
}

func (s *Store) GetDeal(ctx context.Context, id string) (crm.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.deals[id]
	if !ok {
		return crm.Deal{}, sql.ErrNoRows
	}
	return d, nil
}

func (s *Store) ListDeals(ctx context.Context, userID string) ([]crm.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []crm.Deal
	for _, d := range s.deals {
		if d.UserID == userID {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) PipelineSummary(ctx context.Context, userID string) (crm.PipelineSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum crm.PipelineSummary
	for _, d := range s.deals {
		if d.UserID != userID {
			continue
		}
		switch d.Stage {
		case crm.StageWon:
			sum.WonDeals++
			sum.WonValue += d.Value
		case crm.StageLost:
		default:
			sum.OpenDeals++
			sum.PipelineValue += d.Value
		}
	}
	return sum, nil
}

// --- InvoiceStore -----------------------------------------------------------

func (s *Store) CreateInvoice(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	s.invoices[inv.ID] = inv
	return inv, nil
}

func (s *Store) UpdateInvoice(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.invoices[inv.ID]
	if !ok {
		return invoice.Invoice{}, sql.ErrNoRows
	}
	inv.CreatedAt = existing.CreatedAt
	inv.UpdatedAt = time.Now().UTC()
	s.invoices[inv.ID] = inv
	return inv, nil
}

func (s *Store) GetInvoice(ctx context.Context, id string) (invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[id]
	if !ok {
		return invoice.Invoice{}, sql.ErrNoRows
	}
	return inv, nil
}

func (s *Store) ListInvoices(ctx context.Context, userID string) ([]invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []invoice.Invoice
	for _, inv := range s.invoices {
		if inv.UserID == userID {
			result = append(result, inv)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) RevenueSummary(ctx context.Context, userID string) (invoice.RevenueSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum invoice.RevenueSummary
	for _, inv := range s.invoices {
		if inv.UserID != userID || inv.Status == invoice.StatusVoid {
			continue
		}
		if inv.Status == invoice.StatusPaid {
			sum.TotalRevenue += inv.Amount
			sum.PaidCount++
		} else {
			sum.Outstanding += inv.Amount
			sum.OpenCount++
		}
	}
	return sum, nil
}

func (s *Store) MonthlyRevenue(ctx context.Context, userID string, months int, now time.Time) ([]invoice.MonthlyRevenue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if months <= 0 {
		months = 6
	}
	now = now.UTC()
	// Anchor on the first of the month: subtracting months from day 29-31
	// normalizes into the wrong bucket.
	base := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	buckets := make([]invoice.MonthlyRevenue, months)
	index := make(map[string]int, months)
	for i := 0; i < months; i++ {
		m := base.AddDate(0, -(months - 1 - i), 0)
		buckets[i] = invoice.MonthlyRevenue{
			Month:       m.Month().String()[:3],
			MonthNumber: int(m.Month()),
			Year:        m.Year(),
		}
		index[m.Format("2006-01")] = i
	}

	for _, inv := range s.invoices {
		if inv.UserID != userID || inv.Status != invoice.StatusPaid || inv.PaidAt == nil {
			continue
		}
		if i, ok := index[inv.PaidAt.UTC().Format("2006-01")]; ok {
			buckets[i].Revenue += inv.Amount
		}
	}
	return buckets, nil
}

// --- GamificationStore ------------------------------------------------------

func (s *Store) GetProfile(ctx context.Context, userID string) (gamification.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return gamification.Profile{}, sql.ErrNoRows
	}
	return p, nil
}

func (s *Store) UpsertProfile(ctx context.Context, p gamification.Profile) (gamification.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.UpdatedAt = time.Now().UTC()
	s.profiles[p.UserID] = p
	return p, nil
}

func (s *Store) CreateEvent(ctx context.Context, e gamification.Event) (gamification.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = time.Now().UTC()
	s.events[e.UserID] = append(s.events[e.UserID], e)
	return e, nil
}

func (s *Store) ListEvents(ctx context.Context, userID string, limit int) ([]gamification.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.events[userID]
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	out := make([]gamification.Event, len(events))
	copy(out, events)
	return out, nil
}

// --- FocusStore -------------------------------------------------------------

func (s *Store) CreateSession(ctx context.Context, sess focus.Session) (focus.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	sess.CreatedAt = time.Now().UTC()
	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *Store) UpdateSession(ctx context.Context, sess focus.Session) (focus.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.ID]; !ok {
		return focus.Session{}, sql.ErrNoRows
	}
	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (focus.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return focus.Session{}, sql.ErrNoRows
	}
	return sess, nil
}

func (s *Store) OpenSession(ctx context.Context, userID string) (focus.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.EndedAt == nil {
			return sess, nil
		}
	}
	return focus.Session{}, sql.ErrNoRows
}

func (s *Store) FocusSummary(ctx context.Context, userID string, now time.Time) (focus.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum focus.Summary
	for _, sess := range s.sessions {
		if sess.UserID != userID || sess.EndedAt == nil {
			continue
		}
		sum.TotalMinutes += sess.Minutes
		if sameDay(sess.StartedAt, now) {
			sum.TodayMinutes += sess.Minutes
		}
	}
	return sum, nil
}

// --- NotificationStore ------------------------------------------------------

func (s *Store) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()
	s.notifications[n.ID] = n
	return n, nil
}

func (s *Store) GetNotification(ctx context.Context, id string) (notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[id]
	if !ok {
		return notification.Notification{}, sql.ErrNoRows
	}
	return n, nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []notification.Notification
	for _, n := range s.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) MarkRead(ctx context.Context, id string) (notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return notification.Notification{}, sql.ErrNoRows
	}
	n.Read = true
	s.notifications[id] = n
	return n, nil
}

func (s *Store) UnreadCount(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return user.User{}, errDuplicateEmail
		}
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[u.ID]
	if !ok {
		return user.User{}, sql.ErrNoRows
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, sql.ErrNoRows
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) RecordActivity(ctx context.Context, a user.Activity) (user.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()
	s.activity = append(s.activity, a)
	return a, nil
}

func (s *Store) RecentActivity(ctx context.Context, limit int) ([]user.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	start := len(s.activity) - limit
	if start < 0 {
		start = 0
	}
	recent := s.activity[start:]
	out := make([]user.Activity, len(recent))
	copy(out, recent)
	// newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
