package crm

import "time"

// Client represents a CRM contact owned by a user.
type Client struct {
	ID        string
	UserID    string
	Name      string
	Email     string
	Company   string
	Phone     string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Stage enumerates deal pipeline stages.
type Stage string

const (
	StageLead      Stage = "lead"
	StageQualified Stage = "qualified"
	StageProposal  Stage = "proposal"
	StageWon       Stage = "won"
	StageLost      Stage = "lost"
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageLead, StageQualified, StageProposal, StageWon, StageLost:
		return true
	}
	return false
}

// Closed reports whether the stage is terminal.
func (s Stage) Closed() bool { return s == StageWon || s == StageLost }

// Deal represents a sales opportunity attached to a client.
type Deal struct {
	ID        string
	UserID    string
	ClientID  string
	Title     string
	Stage     Stage
	Value     float64
	ClosedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PipelineSummary aggregates open and won deal value for a user.
type PipelineSummary struct {
	OpenDeals     int
	PipelineValue float64
	WonDeals      int
	WonValue      float64
}
