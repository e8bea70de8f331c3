package entity

import "time"

// Role decision constants
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// RoleDecision is a single approve/reject decision taken by a role
type RoleDecision struct {
	Decision  string    `json:"decision"`
	Reason    string    `json:"reason,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
	DecidedBy string    `json:"decided_by"`
}

// RoleApproval holds the active decision of one role on an entity.
// A role has at most one active decision; every change archives the
// superseded decision to History (oldest first) before overwriting.
type RoleApproval struct {
	Role    Role           `json:"role"`
	Current *RoleDecision  `json:"current,omitempty"`
	History []RoleDecision `json:"history,omitempty"`
}

// Decide records a new decision for the role, archiving the previous
// one with its original actor, timestamp and reason.
func (ra *RoleApproval) Decide(decision, reason string, at time.Time, by string) {
	if ra.Current != nil {
		ra.History = append(ra.History, *ra.Current)
	}
	ra.Current = &RoleDecision{
		Decision:  decision,
		Reason:    reason,
		DecidedAt: at,
		DecidedBy: by,
	}
}

// FindApproval returns the approval slot for a role, if present
func FindApproval(approvals []RoleApproval, role Role) *RoleApproval {
	for i := range approvals {
		if approvals[i].Role == role {
			return &approvals[i]
		}
	}
	return nil
}
