package metrics

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/pulsedesk/pulsedesk/internal/app/domain/focus"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/gamification"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/invoice"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/task"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/user"
	"github.com/pulsedesk/pulsedesk/internal/errors"
	"github.com/pulsedesk/pulsedesk/internal/gateway"
)

// Edge function names serving the remote summary sources.
const (
	fnTasksSummary        = "tasks-summary"
	fnRevenueSummary      = "revenue-summary"
	fnGamificationSummary = "gamification-summary"
	fnFocusSummary        = "focus-summary"
	fnTeamActivity        = "team-activity"
)

// GatewaySources implements the reconciler source interfaces against remote
// edge functions instead of local stores. The caller's credential is held
// explicitly; payloads are parsed loosely and any missing required field
// degrades the whole source with a shape error.
type GatewaySources struct {
	gw    *gateway.Client
	token string
}

var _ TaskSource = (*GatewaySources)(nil)
var _ RevenueSource = (*GatewaySources)(nil)
var _ ActivitySource = (*GatewaySources)(nil)

// NewGatewaySources binds a gateway client and a caller credential.
func NewGatewaySources(gw *gateway.Client, token string) *GatewaySources {
	return &GatewaySources{gw: gw, token: token}
}

// field extracts a required field from a payload, converting absence into a
// shape error so the reconciler degrades the whole source.
func field(fn string, body []byte, path string) (gjson.Result, error) {
	res := gjson.GetBytes(body, path)
	if !res.Exists() {
		return gjson.Result{}, errors.Shape(fmt.Sprintf("%s payload missing %s", fn, path))
	}
	return res, nil
}

// TaskSummary implements TaskSource.
func (s *GatewaySources) TaskSummary(ctx context.Context, userID string) (task.Summary, error) {
	body, err := s.gw.Invoke(ctx, s.token, fnTasksSummary, map[string]string{"user_id": userID})
	if err != nil {
		return task.Summary{}, err
	}

	total, err := field(fnTasksSummary, body, "total")
	if err != nil {
		return task.Summary{}, err
	}
	completed, err := field(fnTasksSummary, body, "completed")
	if err != nil {
		return task.Summary{}, err
	}
	return task.Summary{
		Total:     int(total.Int()),
		Completed: int(completed.Int()),
		DueToday:  int(gjson.GetBytes(body, "due_today").Int()),
		Overdue:   int(gjson.GetBytes(body, "overdue").Int()),
	}, nil
}

// RevenueSummary implements RevenueSource.
func (s *GatewaySources) RevenueSummary(ctx context.Context, userID string) (invoice.RevenueSummary, error) {
	body, err := s.gw.Invoke(ctx, s.token, fnRevenueSummary, map[string]string{"user_id": userID})
	if err != nil {
		return invoice.RevenueSummary{}, err
	}

	total, err := field(fnRevenueSummary, body, "total_revenue")
	if err != nil {
		return invoice.RevenueSummary{}, err
	}
	return invoice.RevenueSummary{
		TotalRevenue: total.Float(),
		Outstanding:  gjson.GetBytes(body, "outstanding").Float(),
		PaidCount:    int(gjson.GetBytes(body, "paid_count").Int()),
		OpenCount:    int(gjson.GetBytes(body, "open_count").Int()),
	}, nil
}

// GatewayGamificationSource fetches the points summary remotely.
type GatewayGamificationSource struct{ *GatewaySources }

var _ GamificationSource = GatewayGamificationSource{}

// Summary implements GamificationSource.
func (s GatewayGamificationSource) Summary(ctx context.Context, userID string) (gamification.Summary, error) {
	body, err := s.gw.Invoke(ctx, s.token, fnGamificationSummary, map[string]string{"user_id": userID})
	if err != nil {
		return gamification.Summary{}, err
	}

	points, err := field(fnGamificationSummary, body, "total_points")
	if err != nil {
		return gamification.Summary{}, err
	}
	level, err := field(fnGamificationSummary, body, "level")
	if err != nil {
		return gamification.Summary{}, err
	}
	return gamification.Summary{
		TotalPoints: int(points.Int()),
		Level:       int(level.Int()),
		Streak:      int(gjson.GetBytes(body, "streak").Int()),
	}, nil
}

// GatewayFocusSource fetches the focus summary remotely.
type GatewayFocusSource struct{ *GatewaySources }

var _ FocusSource = GatewayFocusSource{}

// Summary implements FocusSource.
func (s GatewayFocusSource) Summary(ctx context.Context, userID string) (focus.Summary, error) {
	body, err := s.gw.Invoke(ctx, s.token, fnFocusSummary, map[string]string{"user_id": userID})
	if err != nil {
		return focus.Summary{}, err
	}

	total, err := field(fnFocusSummary, body, "total_minutes")
	if err != nil {
		return focus.Summary{}, err
	}
	today, err := field(fnFocusSummary, body, "today_minutes")
	if err != nil {
		return focus.Summary{}, err
	}
	return focus.Summary{
		TotalMinutes: int(total.Int()),
		TodayMinutes: int(today.Int()),
	}, nil
}

// RecentActivity implements ActivitySource.
func (s *GatewaySources) RecentActivity(ctx context.Context, userID string) ([]user.Activity, error) {
	body, err := s.gw.Invoke(ctx, s.token, fnTeamActivity, map[string]string{"user_id": userID})
	if err != nil {
		return nil, err
	}

	entries := gjson.GetBytes(body, "entries")
	if !entries.Exists() || !entries.IsArray() {
		return nil, errors.Shape(fmt.Sprintf("%s payload missing entries", fnTeamActivity))
	}

	out := []user.Activity{}
	for _, e := range entries.Array() {
		out = append(out, user.Activity{
			ID:       e.Get("id").String(),
			UserID:   e.Get("user_id").String(),
			UserName: e.Get("user_name").String(),
			Action:   e.Get("action").String(),
			Subject:  e.Get("subject").String(),
		})
	}
	return out, nil
}
