package focus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pulsedesk/pulsedesk/internal/app/domain/focus"
	"github.com/pulsedesk/pulsedesk/internal/app/storage"
	"github.com/pulsedesk/pulsedesk/pkg/logger"
)

// Service manages focus-time sessions.
type Service struct {
	store storage.FocusStore
	log   *logger.Logger
	now   func() time.Time
}

// New constructs a focus service.
func New(store storage.FocusStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("focus")
	}
	return &Service{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Start opens a focus session. A user can have at most one open session.
func (s *Service) Start(ctx context.Context, userID string) (focus.Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return focus.Session{}, fmt.Errorf("user_id is required")
	}

	if _, err := s.store.OpenSession(ctx, userID); err == nil {
		return focus.Session{}, fmt.Errorf("a focus session is already running")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return focus.Session{}, err
	}

	sess := focus.Session{UserID: userID, StartedAt: s.now()}
	sess, err := s.store.CreateSession(ctx, sess)
	if err != nil {
		return focus.Session{}, err
	}
	s.log.WithField("session_id", sess.ID).
		WithField("user_id", userID).
		Info("focus session started")
	return sess, nil
}

// Stop closes an open session and records its duration in whole minutes.
func (s *Service) Stop(ctx context.Context, id string) (focus.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return focus.Session{}, err
	}
	if sess.EndedAt != nil {
		return sess, nil
	}

	now := s.now()
	sess.EndedAt = &now
	sess.Minutes = int(now.Sub(sess.StartedAt).Minutes())
	if sess.Minutes < 0 {
		sess.Minutes = 0
	}

	sess, err = s.store.UpdateSession(ctx, sess)
	if err != nil {
		return focus.Session{}, err
	}
	s.log.WithField("session_id", sess.ID).
		WithField("minutes", sess.Minutes).
		Info("focus session stopped")
	return sess, nil
}

// Current returns the user's open session, if any.
func (s *Service) Current(ctx context.Context, userID string) (focus.Session, error) {
	return s.store.OpenSession(ctx, userID)
}

// Summary aggregates total and today's focus minutes for a user.
func (s *Service) Summary(ctx context.Context, userID string) (focus.Summary, error) {
	return s.store.FocusSummary(ctx, userID, s.now())
}
