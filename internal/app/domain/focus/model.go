package focus

import "time"

// Session represents one focus-time interval. Minutes is derived when the
// session is stopped; open sessions have a nil EndedAt.
type Session struct {
	ID        string
	UserID    string
	StartedAt time.Time
	EndedAt   *time.Time
	Minutes   int
	CreatedAt time.Time
}

// Summary aggregates focus minutes for dashboards.
type Summary struct {
	TotalMinutes int
	TodayMinutes int
}
