// Package postgres implements the storage interfaces on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/pulsedesk/pulsedesk/internal/app/domain/crm"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/focus"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/gamification"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/invoice"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/notification"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/task"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/user"
	"github.com/pulsedesk/pulsedesk/internal/app/storage"
)

// Store implements the storage interfaces on a live database handle.
type Store struct {
	db *sql.DB
}

var _ storage.TaskStore = (*Store)(nil)
var _ storage.CRMStore = (*Store)(nil)
var _ storage.InvoiceStore = (*Store)(nil)
var _ storage.GamificationStore = (*Store)(nil)
var _ storage.FocusStore = (*Store)(nil)
var _ storage.NotificationStore = (*Store)(nil)
var _ storage.UserStore = (*Store)(nil)

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// --- TaskStore --------------------------------------------------------------

const taskColumns = "id, user_id, title, description, status, priority, due_date, completed_at, created_at, updated_at"

func scanTask(row interface{ Scan(...interface{}) error }) (task.Task, error) {
	var t task.Task
	var due, completed sql.NullTime
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status, &t.Priority, &due, &completed, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return task.Task{}, err
	}
	t.DueDate = timePtr(due)
	t.CompletedAt = timePtr(completed)
	return t, nil
}

func (s *Store) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, title, description, status, priority, due_date, completed_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.UserID, t.Title, t.Description, t.Status, t.Priority, nullTime(t.DueDate), nullTime(t.CompletedAt), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return task.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (s *Store) UpdateTask(ctx context.Context, t task.Task) (task.Task, error) {
	t.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = $2, description = $3, status = $4, priority = $5, due_date = $6, completed_at = $7, updated_at = $8
		 WHERE id = $1`,
		t.ID, t.Title, t.Description, t.Status, t.Priority, nullTime(t.DueDate), nullTime(t.CompletedAt), t.UpdatedAt)
	if err != nil {
		return task.Task{}, fmt.Errorf("update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return task.Task{}, sql.ErrNoRows
	}
	return s.GetTask(ctx, t.ID)
}

func (s *Store) GetTask(ctx context.Context, id string) (task.Task, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = $1", id)
	return scanTask(row)
}

func (s *Store) ListTasks(ctx context.Context, userID string) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = $1 ORDER BY created_at", userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var result []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) TaskSummary(ctx context.Context, userID string, now time.Time) (task.Summary, error) {
	now = now.UTC()
	var sum task.Summary
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'done'),
		        COUNT(*) FILTER (WHERE status <> 'done' AND due_date::date = $2::date),
		        COUNT(*) FILTER (WHERE status <> 'done' AND due_date < $2 AND due_date::date <> $2::date)
		 FROM tasks WHERE user_id = $1`,
		userID, now).Scan(&sum.Total, &sum.Completed, &sum.DueToday, &sum.Overdue)
	if err != nil {
		return task.Summary{}, fmt.Errorf("task summary: %w", err)
	}
	return sum, nil
}

// --- CRMStore ---------------------------------------------------------------

func (s *Store) CreateClient(ctx context.Context, c crm.Client) (crm.Client, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO crm_clients (id, user_id, name, email, company, phone, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.UserID, c.Name, c.Email, c.Company, c.Phone, c.Notes, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return crm.Client{}, fmt.Errorf("insert client: %w", err)
	}
	return c, nil
}

func (s *Store) UpdateClient(ctx context.Context, c crm.Client) (crm.Client, error) {
	c.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE crm_clients SET name = $2, email = $3, company = $4, phone = $5, notes = $6, updated_at = $7
		 WHERE id = $1`,
		c.ID, c.Name, c.Email, c.Company, c.Phone, c.Notes, c.UpdatedAt)
	if err != nil {
		return crm.Client{}, fmt.Errorf("update client: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return crm.Client{}, sql.ErrNoRows
	}
	return s.GetClient(ctx, c.ID)
}

func (s *Store) GetClient(ctx context.Context, id string) (crm.Client, error) {
	var c crm.Client
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, email, company, phone, notes, created_at, updated_at
		 FROM crm_clients WHERE id = $1`, id).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Company, &c.Phone, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return crm.Client{}, err
	}
	return c, nil
}

func (s *Store) ListClients(ctx context.Context, userID string) ([]crm.Client, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, email, company, phone, notes, created_at, updated_at
		 FROM crm_clients WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var result []crm.Client
	for rows.Next() {
		var c crm.Client
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Company, &c.Phone, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) DeleteClient(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM crm_clients WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) CreateDeal(ctx context.Context, d crm.Deal) (crm.Deal, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO crm_deals (id, user_id, client_id, title, stage, value, closed_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.UserID, d.ClientID, d.Title, d.Stage, d.Value, nullTime(d.ClosedAt), d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return crm.Deal{}, fmt.Errorf("insert deal: %w", err)
	}
	return d, nil
}

func (s *Store) UpdateDeal(ctx context.Context, d crm.Deal) (crm.Deal, error) {
	d.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE crm_deals SET title = $2, stage = $3, value = $4, closed_at = $5, updated_at = $6
		 WHERE id = $1`,
		d.ID, d.Title, d.Stage, d.Value, nullTime(d.ClosedAt), d.UpdatedAt)
	if err != nil {
		return crm.Deal{}, fmt.Errorf("update deal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return crm.Deal{}, sql.ErrNoRows
	}
	return s.GetDeal(ctx, d.ID)
}

func (s *Store) GetDeal(ctx context.Context, id string) (crm.Deal, error) {
	var d crm.Deal
	var closed sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, client_id, title, stage, value, closed_at, created_at, updated_at
		 FROM crm_deals WHERE id = $1`, id).
		Scan(&d.ID, &d.UserID, &d.ClientID, &d.Title, &d.Stage, &d.Value, &closed, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return crm.Deal{}, err
	}
	d.ClosedAt = timePtr(closed)
	return d, nil
}

func (s *Store) ListDeals(ctx context.Context, userID string) ([]crm.Deal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, client_id, title, stage, value, closed_at, created_at, updated_at
		 FROM crm_deals WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	defer rows.Close()

	var result []crm.Deal
	for rows.Next() {
		var d crm.Deal
		var closed sql.NullTime
		if err := rows.Scan(&d.ID, &d.UserID, &d.ClientID, &d.Title, &d.Stage, &d.Value, &closed, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.ClosedAt = timePtr(closed)
		result = append(result, d)
	}
	return result, rows.Err()
}

func (s *Store) PipelineSummary(ctx context.Context, userID string) (crm.PipelineSummary, error) {
	var sum crm.PipelineSummary
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE stage NOT IN ('won', 'lost')),
		        COALESCE(SUM(value) FILTER (WHERE stage NOT IN ('won', 'lost')), 0),
		        COUNT(*) FILTER (WHERE stage = 'won'),
		        COALESCE(SUM(value) FILTER (WHERE stage = 'won'), 0)
		 FROM crm_deals WHERE user_id = $1`, userID).
		Scan(&sum.OpenDeals, &sum.PipelineValue, &sum.WonDeals, &sum.WonValue)
	if err != nil {
		return crm.PipelineSummary{}, fmt.Errorf("pipeline summary: %w", err)
	}
	return sum, nil
}

// --- InvoiceStore -----------------------------------------------------------

const invoiceColumns = "id, user_id, client_id, number, amount, currency, status, issued_at, due_at, paid_at, created_at, updated_at"

func scanInvoice(row interface{ Scan(...interface{}) error }) (invoice.Invoice, error) {
	var inv invoice.Invoice
	var paid sql.NullTime
	err := row.Scan(&inv.ID, &inv.UserID, &inv.ClientID, &inv.Number, &inv.Amount, &inv.Currency, &inv.Status,
		&inv.IssuedAt, &inv.DueAt, &paid, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return invoice.Invoice{}, err
	}
	inv.PaidAt = timePtr(paid)
	return inv, nil
}

func (s *Store) CreateInvoice(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invoices (id, user_id, client_id, number, amount, currency, status, issued_at, due_at, paid_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		inv.ID, inv.UserID, inv.ClientID, inv.Number, inv.Amount, inv.Currency, inv.Status,
		inv.IssuedAt, inv.DueAt, nullTime(inv.PaidAt), inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return invoice.Invoice{}, fmt.Errorf("invoice number %s already exists", inv.Number)
		}
		return invoice.Invoice{}, fmt.Errorf("insert invoice: %w", err)
	}
	return inv, nil
}

func (s *Store) UpdateInvoice(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	inv.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE invoices SET status = $2, paid_at = $3, updated_at = $4 WHERE id = $1`,
		inv.ID, inv.Status, nullTime(inv.PaidAt), inv.UpdatedAt)
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("update invoice: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return invoice.Invoice{}, sql.ErrNoRows
	}
	return s.GetInvoice(ctx, inv.ID)
}

func (s *Store) GetInvoice(ctx context.Context, id string) (invoice.Invoice, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE id = $1", id)
	return scanInvoice(row)
}

func (s *Store) ListInvoices(ctx context.Context, userID string) ([]invoice.Invoice, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+invoiceColumns+" FROM invoices WHERE user_id = $1 ORDER BY created_at", userID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var result []invoice.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

func (s *Store) RevenueSummary(ctx context.Context, userID string) (invoice.RevenueSummary, error) {
	var sum invoice.RevenueSummary
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount) FILTER (WHERE status = 'paid'), 0),
		        COALESCE(SUM(amount) FILTER (WHERE status NOT IN ('paid', 'void')), 0),
		        COUNT(*) FILTER (WHERE status = 'paid'),
		        COUNT(*) FILTER (WHERE status NOT IN ('paid', 'void'))
		 FROM invoices WHERE user_id = $1`, userID).
		Scan(&sum.TotalRevenue, &sum.Outstanding, &sum.PaidCount, &sum.OpenCount)
	if err != nil {
		return invoice.RevenueSummary{}, fmt.Errorf("revenue summary: %w", err)
	}
	return sum, nil
}

func (s *Store) MonthlyRevenue(ctx context.Context, userID string, months int, now time.Time) ([]invoice.MonthlyRevenue, error) {
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

	rows, err := s.db.QueryContext(ctx,
		`SELECT to_char(paid_at, 'YYYY-MM'), COALESCE(SUM(amount), 0)
		 FROM invoices
		 WHERE user_id = $1 AND status = 'paid' AND paid_at IS NOT NULL AND paid_at >= $2
		 GROUP BY 1`,
		userID, base.AddDate(0, -(months-1), 0))
	if err != nil {
		return nil, fmt.Errorf("monthly revenue: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var amount float64
		if err := rows.Scan(&key, &amount); err != nil {
			return nil, err
		}
		if i, ok := index[key]; ok {
			buckets[i].Revenue = amount
		}
	}
	return buckets, rows.Err()
}

// --- GamificationStore ------------------------------------------------------

func (s *Store) GetProfile(ctx context.Context, userID string) (gamification.Profile, error) {
	var p gamification.Profile
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, points, level, streak, last_active, updated_at
		 FROM gamification_profiles WHERE user_id = $1`, userID).
		Scan(&p.UserID, &p.Points, &p.Level, &p.Streak, &p.LastActive, &p.UpdatedAt)
	if err != nil {
		return gamification.Profile{}, err
	}
	return p, nil
}

func (s *Store) UpsertProfile(ctx context.Context, p gamification.Profile) (gamification.Profile, error) {
	p.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO gamification_profiles (user_id, points, level, streak, last_active, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id) DO UPDATE SET points = $2, level = $3, streak = $4, last_active = $5, updated_at = $6`,
		p.UserID, p.Points, p.Level, p.Streak, p.LastActive, p.UpdatedAt)
	if err != nil {
		return gamification.Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	return p, nil
}

func (s *Store) CreateEvent(ctx context.Context, e gamification.Event) (gamification.Event, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO points_events (id, user_id, points, reason, created_at) VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.UserID, e.Points, e.Reason, e.CreatedAt)
	if err != nil {
		return gamification.Event{}, fmt.Errorf("insert points event: %w", err)
	}
	return e, nil
}

func (s *Store) ListEvents(ctx context.Context, userID string, limit int) ([]gamification.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, points, reason, created_at
		 FROM points_events WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list points events: %w", err)
	}
	defer rows.Close()

	var result []gamification.Event
	for rows.Next() {
		var e gamification.Event
		if err := rows.Scan(&e.ID, &e.UserID, &e.Points, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// --- FocusStore -------------------------------------------------------------

func (s *Store) CreateSession(ctx context.Context, sess focus.Session) (focus.Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	sess.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO focus_sessions (id, user_id, started_at, ended_at, minutes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sess.ID, sess.UserID, sess.StartedAt, nullTime(sess.EndedAt), sess.Minutes, sess.CreatedAt)
	if err != nil {
		return focus.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

func (s *Store) UpdateSession(ctx context.Context, sess focus.Session) (focus.Session, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE focus_sessions SET ended_at = $2, minutes = $3 WHERE id = $1`,
		sess.ID, nullTime(sess.EndedAt), sess.Minutes)
	if err != nil {
		return focus.Session{}, fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return focus.Session{}, sql.ErrNoRows
	}
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (focus.Session, error) {
	var sess focus.Session
	var ended sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, started_at, ended_at, minutes, created_at
		 FROM focus_sessions WHERE id = $1`, id).
		Scan(&sess.ID, &sess.UserID, &sess.StartedAt, &ended, &sess.Minutes, &sess.CreatedAt)
	if err != nil {
		return focus.Session{}, err
	}
	sess.EndedAt = timePtr(ended)
	return sess, nil
}

func (s *Store) OpenSession(ctx context.Context, userID string) (focus.Session, error) {
	var sess focus.Session
	var ended sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, started_at, ended_at, minutes, created_at
		 FROM focus_sessions WHERE user_id = $1 AND ended_at IS NULL
		 ORDER BY started_at DESC LIMIT 1`, userID).
		Scan(&sess.ID, &sess.UserID, &sess.StartedAt, &ended, &sess.Minutes, &sess.CreatedAt)
	if err != nil {
		return focus.Session{}, err
	}
	sess.EndedAt = timePtr(ended)
	return sess, nil
}

func (s *Store) FocusSummary(ctx context.Context, userID string, now time.Time) (focus.Summary, error) {
	now = now.UTC()
	var sum focus.Summary
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(minutes), 0),
		        COALESCE(SUM(minutes) FILTER (WHERE started_at::date = $2::date), 0)
		 FROM focus_sessions WHERE user_id = $1 AND ended_at IS NOT NULL`,
		userID, now).Scan(&sum.TotalMinutes, &sum.TodayMinutes)
	if err != nil {
		return focus.Summary{}, fmt.Errorf("focus summary: %w", err)
	}
	return sum, nil
}

// --- NotificationStore ------------------------------------------------------

func (s *Store) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, type, title, body, read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.UserID, n.Type, n.Title, n.Body, n.Read, n.CreatedAt)
	if err != nil {
		return notification.Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

func (s *Store) GetNotification(ctx context.Context, id string) (notification.Notification, error) {
	var n notification.Notification
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, type, title, body, read, created_at FROM notifications WHERE id = $1`, id).
		Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Read, &n.CreatedAt)
	if err != nil {
		return notification.Notification{}, err
	}
	return n, nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]notification.Notification, error) {
	query := `SELECT id, user_id, type, title, body, read, created_at
	          FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += " AND read = FALSE"
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var result []notification.Notification
	for rows.Next() {
		var n notification.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (s *Store) MarkRead(ctx context.Context, id string) (notification.Notification, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE notifications SET read = TRUE WHERE id = $1", id)
	if err != nil {
		return notification.Notification{}, fmt.Errorf("mark read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notification.Notification{}, sql.ErrNoRows
	}
	return s.GetNotification(ctx, id)
}

func (s *Store) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return count, nil
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, role, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.Name, u.Role, u.Active, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return user.User{}, fmt.Errorf("email already registered")
		}
		return user.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	u.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = $2, role = $3, active = $4, updated_at = $5 WHERE id = $1`,
		u.ID, u.Name, u.Role, u.Active, u.UpdatedAt)
	if err != nil {
		return user.User{}, fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, sql.ErrNoRows
	}
	return s.GetUser(ctx, u.ID)
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	var u user.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, role, active, created_at, updated_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, role, active, created_at, updated_at FROM users WHERE lower(email) = lower($1)`, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, name, role, active, created_at, updated_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var result []user.User
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (s *Store) RecordActivity(ctx context.Context, a user.Activity) (user.Activity, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_activity (id, user_id, user_name, action, subject, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.UserID, a.UserName, a.Action, a.Subject, a.CreatedAt)
	if err != nil {
		return user.Activity{}, fmt.Errorf("insert activity: %w", err)
	}
	return a, nil
}

func (s *Store) RecentActivity(ctx context.Context, limit int) ([]user.Activity, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, user_name, action, subject, created_at
		 FROM user_activity ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	defer rows.Close()

	var result []user.Activity
	for rows.Next() {
		var a user.Activity
		if err := rows.Scan(&a.ID, &a.UserID, &a.UserName, &a.Action, &a.Subject, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
