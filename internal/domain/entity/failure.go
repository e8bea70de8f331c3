package entity

import "time"

// Status constants for FailureReport
const (
	FailureOpen       = "open"
	FailureInProgress = "in progress"
	FailureResolved   = "resolved"
)

// FailureReport is a production failure log entry with a minimal
// take/resolve workflow.
type FailureReport struct {
	ID          string `json:"id"`
	InternalID  string `json:"internal_id"`
	Line        string `json:"line"`
	Machine     string `json:"machine"`
	Description string `json:"description"`
	ReportedBy  string `json:"reported_by"`
	HandlerID   string `json:"handler_id,omitempty"`
	Resolution  string `json:"resolution,omitempty"`

	Lifecycle

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetID returns the entity id
func (f *FailureReport) GetID() string { return f.ID }

// GetFamily returns the entity family
func (f *FailureReport) GetFamily() Family { return FamilyFailures }

// GetOwnerID returns the reporter's id
func (f *FailureReport) GetOwnerID() string { return f.ReportedBy }
