package invoicing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pulsedesk/pulsedesk/internal/app/domain/invoice"
	"github.com/pulsedesk/pulsedesk/internal/app/storage"
	"github.com/pulsedesk/pulsedesk/pkg/logger"
)

// Service manages invoices and revenue aggregates.
type Service struct {
	store storage.InvoiceStore
	crm   storage.CRMStore
	log   *logger.Logger
}

// New constructs an invoicing service.
func New(store storage.InvoiceStore, crm storage.CRMStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("invoicing")
	}
	return &Service{store: store, crm: crm, log: log}
}

// Create issues a new invoice for a client the user owns.
func (s *Service) Create(ctx context.Context, userID, clientID, number string, amount float64, currency string, dueAt time.Time) (invoice.Invoice, error) {
	userID = strings.TrimSpace(userID)
	clientID = strings.TrimSpace(clientID)
	number = strings.TrimSpace(number)

	if userID == "" {
		return invoice.Invoice{}, fmt.Errorf("user_id is required")
	}
	if number == "" {
		return invoice.Invoice{}, fmt.Errorf("number is required")
	}
	if amount <= 0 {
		return invoice.Invoice{}, fmt.Errorf("amount must be positive")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}
	if s.crm != nil && clientID != "" {
		client, err := s.crm.GetClient(ctx, clientID)
		if err != nil {
			return invoice.Invoice{}, fmt.Errorf("client validation failed: %w", err)
		}
		if client.UserID != userID {
			return invoice.Invoice{}, fmt.Errorf("client %s not owned by %s", clientID, userID)
		}
	}

	existing, err := s.store.ListInvoices(ctx, userID)
	if err != nil {
		return invoice.Invoice{}, err
	}
	for _, inv := range existing {
		if strings.EqualFold(inv.Number, number) {
			return invoice.Invoice{}, fmt.Errorf("invoice number %s already exists", number)
		}
	}

	now := time.Now().UTC()
	if dueAt.IsZero() {
		dueAt = now.AddDate(0, 0, 30)
	}
	inv := invoice.Invoice{
		UserID:   userID,
		ClientID: clientID,
		Number:   number,
		Amount:   amount,
		Currency: currency,
		Status:   invoice.StatusDraft,
		IssuedAt: now,
		DueAt:    dueAt.UTC(),
	}
	inv, err = s.store.CreateInvoice(ctx, inv)
	if err != nil {
		return invoice.Invoice{}, err
	}
	s.log.WithField("invoice_id", inv.ID).
		WithField("user_id", userID).
		WithField("number", number).
		Info("invoice created")
	return inv, nil
}

// Send transitions a draft invoice to sent.
func (s *Service) Send(ctx context.Context, id string) (invoice.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return invoice.Invoice{}, err
	}
	if inv.Status != invoice.StatusDraft {
		return invoice.Invoice{}, fmt.Errorf("only draft invoices can be sent")
	}
	inv.Status = invoice.StatusSent
	return s.store.UpdateInvoice(ctx, inv)
}

// MarkPaid records payment of a sent or overdue invoice.
func (s *Service) MarkPaid(ctx context.Context, id string, paidAt time.Time) (invoice.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return invoice.Invoice{}, err
	}
	switch inv.Status {
	case invoice.StatusPaid:
		return inv, nil
	case invoice.StatusVoid:
		return invoice.Invoice{}, fmt.Errorf("void invoices cannot be paid")
	}

	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}
	paidAt = paidAt.UTC()
	inv.Status = invoice.StatusPaid
	inv.PaidAt = &paidAt

	inv, err = s.store.UpdateInvoice(ctx, inv)
	if err != nil {
		return invoice.Invoice{}, err
	}
	s.log.WithField("invoice_id", inv.ID).
		WithField("amount", inv.Amount).
		Info("invoice paid")
	return inv, nil
}

// Void cancels an unpaid invoice.
func (s *Service) Void(ctx context.Context, id string) (invoice.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return invoice.Invoice{}, err
	}
	if inv.Status == invoice.StatusPaid {
		return invoice.Invoice{}, fmt.Errorf("paid invoices cannot be voided")
	}
	inv.Status = invoice.StatusVoid
	return s.store.UpdateInvoice(ctx, inv)
}

// Get retrieves an invoice by identifier.
func (s *Service) Get(ctx context.Context, id string) (invoice.Invoice, error) {
	return s.store.GetInvoice(ctx, id)
}

// List returns all invoices for a user.
func (s *Service) List(ctx context.Context, userID string) ([]invoice.Invoice, error) {
	return s.store.ListInvoices(ctx, userID)
}

// RevenueSummary aggregates paid and outstanding amounts for a user.
func (s *Service) RevenueSummary(ctx context.Context, userID string) (invoice.RevenueSummary, error) {
	return s.store.RevenueSummary(ctx, userID)
}

// RevenueTrend returns per-month revenue buckets for the trailing window.
func (s *Service) RevenueTrend(ctx context.Context, userID string, months int) ([]invoice.MonthlyRevenue, error) {
	if months <= 0 || months > 24 {
		months = 6
	}
	return s.store.MonthlyRevenue(ctx, userID, months, time.Now().UTC())
}
