package notification

import "time"

// Type enumerates notification categories.
type Type string

const (
	TypeInfo    Type = "info"
	TypeTask    Type = "task"
	TypeInvoice Type = "invoice"
	TypeDigest  Type = "digest"
)

// Notification is one item in a user's inbox.
type Notification struct {
	ID        string
	UserID    string
	Type      Type
	Title     string
	Body      string
	Read      bool
	CreatedAt time.Time
}
