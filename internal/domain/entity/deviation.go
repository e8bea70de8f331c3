package entity

import "time"

// Status constants for Deviation
const (
	DeviationDraft      = "draft"
	DeviationInApproval = "in approval"
	DeviationApproved   = "approved"
	DeviationRejected   = "rejected"
	DeviationInProgress = "in progress"
	DeviationClosed     = "closed"
)

// ApprovalRoles are the roles holding an approval slot on a deviation
var ApprovalRoles = []Role{
	RoleGroupLeader,
	RoleQualityManager,
	RoleProductionManager,
	RolePlantManager,
}

// Deviation is a non-conformance record advanced through the approval
// workflow, carrying role approvals, corrective actions and notes.
type Deviation struct {
	ID          string `json:"id"`
	InternalID  string `json:"internal_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Area        string `json:"area"`
	Category    string `json:"category"`
	OwnerID     string `json:"owner_id"`
	OwnerEmail  string `json:"owner_email"`

	Lifecycle

	Approvals []RoleApproval     `json:"approvals,omitempty"`
	Actions   []CorrectiveAction `json:"actions,omitempty"`
	Notes     []Note             `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetID returns the entity id
func (d *Deviation) GetID() string { return d.ID }

// GetFamily returns the entity family
func (d *Deviation) GetFamily() Family { return FamilyDeviations }

// GetOwnerID returns the creator's id
func (d *Deviation) GetOwnerID() string { return d.OwnerID }

// Approval returns the approval slot for a role, creating it if absent
func (d *Deviation) Approval(role Role) *RoleApproval {
	if ra := FindApproval(d.Approvals, role); ra != nil {
		return ra
	}
	d.Approvals = append(d.Approvals, RoleApproval{Role: role})
	return &d.Approvals[len(d.Approvals)-1]
}

// Action returns the corrective action with the given id, if present
func (d *Deviation) Action(actionID string) *CorrectiveAction {
	for i := range d.Actions {
		if d.Actions[i].ID == actionID {
			return &d.Actions[i]
		}
	}
	return nil
}
