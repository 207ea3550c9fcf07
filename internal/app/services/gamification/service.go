package gamification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pulsedesk/pulsedesk/internal/app/domain/gamification"
	"github.com/pulsedesk/pulsedesk/internal/app/storage"
	"github.com/pulsedesk/pulsedesk/pkg/logger"
)

// Service manages points profiles, levels and streaks.
type Service struct {
	store storage.GamificationStore
	log   *logger.Logger
	now   func() time.Time
}

// New constructs a gamification service.
func New(store storage.GamificationStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("gamification")
	}
	return &Service{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Award credits points to a user, deriving level and updating the daily
// streak. A profile is created on first award.
func (s *Service) Award(ctx context.Context, userID string, points int, reason string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}
	if points <= 0 {
		return fmt.Errorf("points must be positive")
	}

	now := s.now()
	profile, err := s.store.GetProfile(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, sql.ErrNoRows):
		profile = gamification.Profile{UserID: userID}
	default:
		return err
	}

	profile.Points += points
	profile.Level = gamification.LevelForPoints(profile.Points)
	profile.Streak = nextStreak(profile, now)
	profile.LastActive = now

	if _, err := s.store.UpsertProfile(ctx, profile); err != nil {
		return err
	}
	if _, err := s.store.CreateEvent(ctx, gamification.Event{
		UserID: userID,
		Points: points,
		Reason: strings.TrimSpace(reason),
	}); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("points event not recorded")
	}

	s.log.WithField("user_id", userID).
		WithField("points", points).
		WithField("level", profile.Level).
		Info("points awarded")
	return nil
}

// nextStreak advances the streak when the previous activity was yesterday,
// keeps it for same-day activity, and resets it otherwise.
func nextStreak(p gamification.Profile, now time.Time) int {
	if p.LastActive.IsZero() {
		return 1
	}
	last := p.LastActive.UTC().Truncate(24 * time.Hour)
	today := now.Truncate(24 * time.Hour)
	switch today.Sub(last) {
	case 0:
		if p.Streak == 0 {
			return 1
		}
		return p.Streak
	case 24 * time.Hour:
		return p.Streak + 1
	default:
		return 1
	}
}

// Summary returns the dashboard slice of a user's profile. Users without a
// profile get the zero summary at level 1.
func (s *Service) Summary(ctx context.Context, userID string) (gamification.Summary, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return gamification.Summary{Level: 1}, nil
	}
	if err != nil {
		return gamification.Summary{}, err
	}
	return gamification.Summary{
		TotalPoints: profile.Points,
		Level:       profile.Level,
		Streak:      profile.Streak,
	}, nil
}

// History returns the most recent award events.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]gamification.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListEvents(ctx, userID, limit)
}
