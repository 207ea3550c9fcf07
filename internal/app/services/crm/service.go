package crm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pulsedesk/pulsedesk/internal/app/domain/crm"
	"github.com/pulsedesk/pulsedesk/internal/app/storage"
	"github.com/pulsedesk/pulsedesk/pkg/logger"
)

// Service manages CRM clients and deals.
type Service struct {
	store storage.CRMStore
	log   *logger.Logger
}

// New constructs a CRM service.
func New(store storage.CRMStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("crm")
	}
	return &Service{store: store, log: log}
}

// CreateClient registers a new client contact.
func (s *Service) CreateClient(ctx context.Context, userID, name, email, company, phone, notes string) (crm.Client, error) {
	userID = strings.TrimSpace(userID)
	name = strings.TrimSpace(name)

	if userID == "" {
		return crm.Client{}, fmt.Errorf("user_id is required")
	}
	if name == "" {
		return crm.Client{}, fmt.Errorf("name is required")
	}

	c := crm.Client{
		UserID:  userID,
		Name:    name,
		Email:   strings.TrimSpace(email),
		Company: strings.TrimSpace(company),
		Phone:   strings.TrimSpace(phone),
		Notes:   strings.TrimSpace(notes),
	}
	c, err := s.store.CreateClient(ctx, c)
	if err != nil {
		return crm.Client{}, err
	}
	s.log.WithField("client_id", c.ID).
		WithField("user_id", userID).
		Info("client created")
	return c, nil
}

// UpdateClient applies non-nil fields to a client.
func (s *Service) UpdateClient(ctx context.Context, id string, name, email, company, phone, notes *string) (crm.Client, error) {
	c, err := s.store.GetClient(ctx, id)
	if err != nil {
		return crm.Client{}, err
	}

	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return crm.Client{}, fmt.Errorf("name cannot be empty")
		}
		c.Name = trimmed
	}
	if email != nil {
		c.Email = strings.TrimSpace(*email)
	}
	if company != nil {
		c.Company = strings.TrimSpace(*company)
	}
	if phone != nil {
		c.Phone = strings.TrimSpace(*phone)
	}
	if notes != nil {
		c.Notes = strings.TrimSpace(*notes)
	}

	return s.store.UpdateClient(ctx, c)
}

// GetClient retrieves a client by identifier.
func (s *Service) GetClient(ctx context.Context, id string) (crm.Client, error) {
	return s.store.GetClient(ctx, id)
}

// ListClients returns all clients for a user.
func (s *Service) ListClients(ctx context.Context, userID string) ([]crm.Client, error) {
	return s.store.ListClients(ctx, userID)
}

// DeleteClient removes a client.
func (s *Service) DeleteClient(ctx context.Context, id string) error {
	return s.store.DeleteClient(ctx, id)
}

// CreateDeal opens a deal attached to a client the user owns.
func (s *Service) CreateDeal(ctx context.Context, userID, clientID, title string, value float64) (crm.Deal, error) {
	userID = strings.TrimSpace(userID)
	clientID = strings.TrimSpace(clientID)
	title = strings.TrimSpace(title)

	if userID == "" {
		return crm.Deal{}, fmt.Errorf("user_id is required")
	}
	if title == "" {
		return crm.Deal{}, fmt.Errorf("title is required")
	}
	if value < 0 {
		return crm.Deal{}, fmt.Errorf("value cannot be negative")
	}
	if clientID != "" {
		client, err := s.store.GetClient(ctx, clientID)
		if err != nil {
			return crm.Deal{}, fmt.Errorf("client validation failed: %w", err)
		}
		if client.UserID != userID {
			return crm.Deal{}, fmt.Errorf("client %s not owned by %s", clientID, userID)
		}
	}

	d := crm.Deal{
		UserID:   userID,
		ClientID: clientID,
		Title:    title,
		Stage:    crm.StageLead,
		Value:    value,
	}
	d, err := s.store.CreateDeal(ctx, d)
	if err != nil {
		return crm.Deal{}, err
	}
	s.log.WithField("deal_id", d.ID).
		WithField("user_id", userID).
		Info("deal created")
	return d, nil
}

// MoveDeal transitions a deal to a new stage. Closed deals cannot move.
func (s *Service) MoveDeal(ctx context.Context, id string, stage string) (crm.Deal, error) {
	next := crm.Stage(strings.ToLower(strings.TrimSpace(stage)))
	if !next.Valid() {
		return crm.Deal{}, fmt.Errorf("unsupported stage %s", stage)
	}

	d, err := s.store.GetDeal(ctx, id)
	if err != nil {
		return crm.Deal{}, err
	}
	if d.Stage.Closed() {
		return crm.Deal{}, fmt.Errorf("deal %s is already closed", id)
	}
	if d.Stage == next {
		return d, nil
	}

	d.Stage = next
	if next.Closed() {
		now := time.Now().UTC()
		d.ClosedAt = &now
	}

	d, err = s.store.UpdateDeal(ctx, d)
	if err != nil {
		return crm.Deal{}, err
	}
	s.log.WithField("deal_id", d.ID).
		WithField("stage", string(next)).
		Info("deal moved")
	return d, nil
}

// GetDeal retrieves a deal by identifier.
func (s *Service) GetDeal(ctx context.Context, id string) (crm.Deal, error) {
	return s.store.GetDeal(ctx, id)
}

// ListDeals returns all deals for a user.
func (s *Service) ListDeals(ctx context.Context, userID string) ([]crm.Deal, error) {
	return s.store.ListDeals(ctx, userID)
}

// PipelineSummary aggregates open and won deal value for a user.
func (s *Service) PipelineSummary(ctx context.Context, userID string) (crm.PipelineSummary, error) {
	return s.store.PipelineSummary(ctx, userID)
}
