// Package metrics defines the unified dashboard snapshot assembled from the
// per-domain summary sources.
package metrics

import "github.com/pulsedesk/pulsedesk/internal/app/domain/user"

// Source names, in declared priority order. If two sources ever report an
// overlapping figure, the later entry wins.
const (
	SourceTasks        = "tasks"
	SourceRevenue      = "revenue"
	SourceGamification = "gamification"
	SourceFocus        = "focus"
	SourceActivity     = "activity"
)

// SourceOrder is the fixed enumeration order of summary sources.
var SourceOrder = []string{SourceTasks, SourceRevenue, SourceGamification, SourceFocus, SourceActivity}

// SourceState reports whether a source degraded to its zero-value fallback
// for this snapshot, and why.
type SourceState struct {
	Degraded bool   `json:"degraded"`
	Reason   string `json:"reason,omitempty"`
}

// Unified is one immutable dashboard snapshot. Every field carries a
// deterministic zero-value fallback so the object is always fully populated
// regardless of upstream failures.
type Unified struct {
	TotalTasks        int     `json:"total_tasks"`
	CompletedTasks    int     `json:"completed_tasks"`
	CompletionRate    float64 `json:"completion_rate"` // 0..100
	TotalPoints       int     `json:"total_points"`
	CurrentLevel      int     `json:"current_level"`
	CurrentStreak     int     `json:"current_streak"`
	TotalFocusMinutes int     `json:"total_focus_minutes"`
	TodayFocusMinutes int     `json:"today_focus_minutes"`
	TotalRevenue      float64 `json:"total_revenue"`

	TeamActivity []user.Activity `json:"team_activity"`

	Sources map[string]SourceState `json:"sources"`
}

// DegradedCount returns how many sources fell back for this snapshot.
func (u Unified) DegradedCount() int {
	n := 0
	for _, st := range u.Sources {
		if st.Degraded {
			n++
		}
	}
	return n
}
