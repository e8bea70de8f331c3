package entity

import "time"

// Outbox event status constants
const (
	OutboxPending = "PENDING"
	OutboxSent    = "SENT"
	OutboxFailed  = "FAILED"
)

// OutboxEvent is a notification recorded in the same transaction as
// the state change that produced it. A separate worker delivers it;
// delivery retries and failures never touch the entity.
type OutboxEvent struct {
	ID        int64  `json:"id"`
	Family    Family `json:"family"`
	EntityID  string `json:"entity_id"`
	EventType string `json:"event_type"`

	MailTo      string `json:"mail_to"`
	MailSubject string `json:"mail_subject"`
	MailHTML    string `json:"mail_html"`

	Status        string    `json:"status"`
	Attempts      int       `json:"attempts"`
	NextAttemptAt time.Time `json:"next_attempt_at"`
	LastError     string    `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
