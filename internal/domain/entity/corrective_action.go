package entity

import "time"

// Status constants for CorrectiveAction
const (
	ActionOpen       = "open"
	ActionInProgress = "in progress"
	ActionClosed     = "closed"
	ActionRejected   = "rejected"

	// ActionOverdue is a display state derived from the due date,
	// never stored.
	ActionOverdue = "overdue"
)

// ActionChange is one entry of a corrective action's own history
type ActionChange struct {
	Value      string    `json:"value"`
	Comment    string    `json:"comment,omitempty"`
	ExecutedAt time.Time `json:"executed_at"`
	ChangedAt  time.Time `json:"changed_at"`
	ChangedBy  string    `json:"changed_by"`
}

// CorrectiveAction is a sub-entity of a deviation with its own
// status machine and append-only history.
type CorrectiveAction struct {
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	ResponsibleID string         `json:"responsible_id"`
	DueDate       time.Time      `json:"due_date"`
	Status        string         `json:"status"`
	History       []ActionChange `json:"history,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	CreatedBy     string         `json:"created_by"`
}

// SetStatus changes the action's status and appends the change to the
// action's own history.
func (a *CorrectiveAction) SetStatus(status, comment string, at time.Time, by string) {
	a.Status = status
	a.History = append(a.History, ActionChange{
		Value:      status,
		Comment:    comment,
		ExecutedAt: at,
		ChangedAt:  at,
		ChangedBy:  by,
	})
}

// DisplayStatus returns the status shown to readers: an open or
// in-progress action past its due date reads as overdue.
func (a *CorrectiveAction) DisplayStatus(now time.Time) string {
	if (a.Status == ActionOpen || a.Status == ActionInProgress) && now.After(a.DueDate) {
		return ActionOverdue
	}
	return a.Status
}
