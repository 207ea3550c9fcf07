package gamification

import "time"

// PointsPerLevel is the number of points needed to advance one level.
const PointsPerLevel = 100

// Profile tracks a user's accumulated points, level and daily streak.
type Profile struct {
	UserID     string
	Points     int
	Level      int
	Streak     int
	LastActive time.Time
	UpdatedAt  time.Time
}

// Event records one points award.
type Event struct {
	ID        string
	UserID    string
	Points    int
	Reason    string
	CreatedAt time.Time
}

// Summary is the slice of a profile surfaced to dashboards.
type Summary struct {
	TotalPoints int
	Level       int
	Streak      int
}

// LevelForPoints derives the level from a points total. Levels start at 1.
func LevelForPoints(points int) int {
	if points < 0 {
		points = 0
	}
	return points/PointsPerLevel + 1
}
