package notification

import (
	"time"
)

type Notification struct {
	ID          string    `json:"id"`
	Unread      bool      `json:"unread"`
	UpdatedAt   time.Time `json:"updated_at"`
	Repository  string    `json:"repository"`
	SubjectType string    `json:"subject_type"`
	Reason      string    `json:"reason"`
	Title       string    `json:"title"`
}

// Message is what a sink delivers to its fixed recipient.
type Message struct {
	NotificationID string
	Text           string
}

type ListOptions struct {
	Since   *time.Time
	Page    int
	PerPage int
}
