package authz

import (
	"testing"

	"github.com/plantops/workdesk/internal/domain/entity"
)

func actor(id string, roles ...entity.Role) entity.Actor {
	return entity.Actor{ID: id, Email: id + "@plant.example", Roles: roles}
}

func TestDecide_AdminAlwaysAllowed(t *testing.T) {
	res := Resource{
		Family:   entity.FamilyOvertime,
		Status:   entity.OvertimeAccounted,
		Terminal: true,
		OwnerID:  "someone-else",
	}

	got := Decide(actor("u1", entity.RoleAdmin), res, TransitionReactivate)
	if !got.Allowed {
		t.Errorf("Decide() admin on terminal entity = deny(%s), want allow", got.Reason)
	}
}

func TestDecide_TerminalLocksOutNonAdmins(t *testing.T) {
	res := Resource{
		Family:   entity.FamilyDeviations,
		Status:   entity.DeviationClosed,
		Terminal: true,
		OwnerID:  "owner",
	}

	tests := []struct {
		name  string
		actor entity.Actor
	}{
		{"owner", actor("owner")},
		{"quality manager", actor("qm", entity.RoleQualityManager)},
		{"plant manager", actor("pm", entity.RolePlantManager)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.actor, res, TransitionClose)
			if got.Allowed {
				t.Error("Decide() on terminal entity = allow, want deny")
			}
			if got.Reason != ReasonTerminal {
				t.Errorf("Decide() reason = %q, want %q", got.Reason, ReasonTerminal)
			}
		})
	}
}

func TestDecide_OwnershipRule(t *testing.T) {
	res := Resource{
		Family:  entity.FamilyDeviations,
		Status:  entity.DeviationDraft,
		OwnerID: "owner",
	}

	if got := Decide(actor("owner"), res, TransitionSubmit); !got.Allowed {
		t.Errorf("Decide() owner submit = deny(%s), want allow", got.Reason)
	}

	if got := Decide(actor("stranger"), res, TransitionSubmit); got.Allowed {
		t.Error("Decide() non-owner submit = allow, want deny")
	}
}

func TestDecide_RoleMembership(t *testing.T) {
	res := Resource{
		Family:  entity.FamilyOvertime,
		Status:  entity.OvertimePending,
		OwnerID: "requester",
	}

	tests := []struct {
		name    string
		actor   entity.Actor
		allowed bool
	}{
		{"plant manager may approve", actor("pm", entity.RolePlantManager), true},
		{"hr may approve", actor("hr", entity.RoleHR), true},
		{"requester may not approve own order", actor("requester"), false},
		{"plain employee may not approve", actor("emp", entity.RoleEmployee), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.actor, res, TransitionApprove)
			if got.Allowed != tt.allowed {
				t.Errorf("Decide() = %v (%s), want allowed=%v", got.Allowed, got.Reason, tt.allowed)
			}
		})
	}
}

func TestDecide_RoleElevation(t *testing.T) {
	res := Resource{
		Family:  entity.FamilyDeviations,
		Status:  entity.DeviationApproved,
		OwnerID: "owner",
	}

	// production-manager acts as group-leader
	got := Decide(actor("prodmgr", entity.RoleProductionManager), res, TransitionBeginProgress)
	if !got.Allowed {
		t.Errorf("Decide() production-manager as group-leader = deny(%s), want allow", got.Reason)
	}
}

func TestDecide_PerResourceActorGrant(t *testing.T) {
	res := Resource{
		Family:          entity.FamilyDeviations,
		Status:          entity.DeviationInProgress,
		OwnerID:         "owner",
		AllowedActorIDs: []string{"responsible", "action-creator"},
	}

	if got := Decide(actor("responsible"), res, TransitionActionStatus); !got.Allowed {
		t.Errorf("Decide() action responsible = deny(%s), want allow", got.Reason)
	}
	if got := Decide(actor("bystander"), res, TransitionActionStatus); got.Allowed {
		t.Error("Decide() bystander = allow, want deny")
	}
}

func TestDecide_UnknownTransition(t *testing.T) {
	res := Resource{
		Family:  entity.FamilyFailures,
		Status:  entity.FailureOpen,
		OwnerID: "owner",
	}

	got := Decide(actor("owner"), res, "frobnicate")
	if got.Allowed {
		t.Error("Decide() unknown transition = allow, want deny")
	}
	if got.Reason != ReasonNoRule {
		t.Errorf("Decide() reason = %q, want %q", got.Reason, ReasonNoRule)
	}
}

func TestSatisfies(t *testing.T) {
	tests := []struct {
		name     string
		actor    entity.Actor
		required entity.Role
		expected bool
	}{
		{"direct role", actor("a", entity.RoleHR), entity.RoleHR, true},
		{"elevated role", actor("a", entity.RoleProductionManager), entity.RoleGroupLeader, true},
		{"no elevation upward", actor("a", entity.RoleGroupLeader), entity.RoleProductionManager, false},
		{"missing role", actor("a", entity.RoleEmployee), entity.RoleHR, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Satisfies(tt.actor, tt.required); got != tt.expected {
				t.Errorf("Satisfies() = %v, want %v", got, tt.expected)
			}
		})
	}
}
