package invoice

import "time"

// Status enumerates invoice lifecycle states.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusSent    Status = "sent"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
	StatusVoid    Status = "void"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusVoid:
		return true
	}
	return false
}

// Invoice represents a billable document issued to a CRM client.
type Invoice struct {
	ID        string
	UserID    string
	ClientID  string
	Number    string
	Amount    float64
	Currency  string
	Status    Status
	IssuedAt  time.Time
	DueAt     time.Time
	PaidAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RevenueSummary aggregates paid and outstanding amounts for a user.
type RevenueSummary struct {
	TotalRevenue float64
	Outstanding  float64
	PaidCount    int
	OpenCount    int
}

// MonthlyRevenue is one bucket of the revenue trend.
type MonthlyRevenue struct {
	Month       string
	MonthNumber int
	Year        int
	Revenue     float64
}
