package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/pulsedesk/pulsedesk/internal/app/domain/user"
	"github.com/pulsedesk/pulsedesk/internal/app/storage"
	"github.com/pulsedesk/pulsedesk/pkg/logger"
)

// ActivityFeedLimit caps the team activity list surfaced to dashboards.
const ActivityFeedLimit = 20

// Service manages users and the team activity feed.
type Service struct {
	store storage.UserStore
	log   *logger.Logger
}

// New constructs a user service.
func New(store storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{store: store, log: log}
}

// Register creates a new active member account.
func (s *Service) Register(ctx context.Context, email, name string) (user.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if email == "" || !strings.Contains(email, "@") {
		return user.User{}, fmt.Errorf("a valid email is required")
	}
	if name == "" {
		return user.User{}, fmt.Errorf("name is required")
	}

	u := user.User{
		Email:  email,
		Name:   name,
		Role:   user.RoleMember,
		Active: true,
	}
	u, err := s.store.CreateUser(ctx, u)
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", u.ID).
		WithField("email", email).
		Info("user registered")
	return u, nil
}

// Get retrieves a user by identifier.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	return s.store.GetUser(ctx, id)
}

// UpdateProfile applies non-nil profile fields.
func (s *Service) UpdateProfile(ctx context.Context, id string, name *string) (user.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return user.User{}, fmt.Errorf("name cannot be empty")
		}
		u.Name = trimmed
	}
	return s.store.UpdateUser(ctx, u)
}

// List returns all users. Admin surface.
func (s *Service) List(ctx context.Context) ([]user.User, error) {
	return s.store.ListUsers(ctx)
}

// SetRole changes a user's role. Admin surface.
func (s *Service) SetRole(ctx context.Context, id string, role string) (user.User, error) {
	next := user.Role(strings.ToLower(strings.TrimSpace(role)))
	if !next.Valid() {
		return user.User{}, fmt.Errorf("unsupported role %s", role)
	}

	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	if u.Role == next {
		return u, nil
	}
	u.Role = next

	u, err = s.store.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", u.ID).
		WithField("role", string(next)).
		Info("user role changed")
	return u, nil
}

// SetActive enables or disables a user. Admin surface.
func (s *Service) SetActive(ctx context.Context, id string, active bool) (user.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	if u.Active == active {
		return u, nil
	}
	u.Active = active
	return s.store.UpdateUser(ctx, u)
}

// Record appends an entry to the team activity feed. Failures are logged and
// swallowed: the feed is best effort and must never fail a business action.
func (s *Service) Record(ctx context.Context, userID, action, subject string) {
	userName := ""
	if u, err := s.store.GetUser(ctx, userID); err == nil {
		userName = u.Name
	}
	a := user.Activity{
		UserID:   userID,
		UserName: userName,
		Action:   action,
		Subject:  subject,
	}
	if _, err := s.store.RecordActivity(ctx, a); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("activity not recorded")
	}
}

// RecentActivity returns the newest team activity entries.
func (s *Service) RecentActivity(ctx context.Context, userID string) ([]user.Activity, error) {
	return s.store.RecentActivity(ctx, ActivityFeedLimit)
}
