package authz

import "github.com/plantops/workdesk/internal/domain/entity"

// Transition names shared between the policy table and the transition
// tables in the application layer.
const (
	TransitionSubmit        = "submit"
	TransitionApprove       = "approve"
	TransitionReject        = "reject"
	TransitionBeginProgress = "begin-progress"
	TransitionClose         = "close"
	TransitionReopen        = "reopen"
	TransitionRoleApproval  = "role-approval"
	TransitionActionCreate  = "action-create"
	TransitionActionStatus  = "action-status"
	TransitionNoteAdd       = "note-add"
	TransitionConfirm       = "confirm"
	TransitionCancel        = "cancel"
	TransitionComplete      = "complete"
	TransitionMarkAccounted = "mark-accounted"
	TransitionReactivate    = "reactivate"
	TransitionDelete        = "delete"
	TransitionEdit          = "edit"
	TransitionAssign        = "assign"
	TransitionRelease       = "release"
	TransitionSendRepair    = "send-repair"
	TransitionReturnRepair  = "return-repair"
	TransitionDispose       = "dispose"
	TransitionTake          = "take"
	TransitionResolve       = "resolve"
)

// Rule is one row of the policy table: the role set admitting the
// transition plus whether the entity owner may act.
type Rule struct {
	Roles    []entity.Role
	OwnerMay bool
}

type policyKey struct {
	family     entity.Family
	transition string
}

// policies is the single source of truth for transition authorization.
// Admin is implicit everywhere and terminal lockout is applied before
// the table is consulted; neither is repeated per row.
var policies = map[policyKey]Rule{
	// Deviations
	{entity.FamilyDeviations, TransitionSubmit}: {OwnerMay: true},
	{entity.FamilyDeviations, TransitionApprove}: {
		Roles: []entity.Role{entity.RoleQualityManager, entity.RolePlantManager},
	},
	{entity.FamilyDeviations, TransitionReject}: {
		Roles: []entity.Role{entity.RoleQualityManager, entity.RolePlantManager},
	},
	{entity.FamilyDeviations, TransitionBeginProgress}: {
		Roles:    []entity.Role{entity.RoleGroupLeader, entity.RoleQualityManager},
		OwnerMay: true,
	},
	{entity.FamilyDeviations, TransitionClose}: {
		Roles: []entity.Role{entity.RoleQualityManager, entity.RolePlantManager},
	},
	{entity.FamilyDeviations, TransitionReopen}: {},
	{entity.FamilyDeviations, TransitionRoleApproval}: {
		Roles: entity.ApprovalRoles,
	},
	{entity.FamilyDeviations, TransitionActionCreate}: {
		Roles:    []entity.Role{entity.RoleGroupLeader, entity.RoleQualityManager},
		OwnerMay: true,
	},
	{entity.FamilyDeviations, TransitionActionStatus}: {
		Roles:    []entity.Role{entity.RoleQualityManager, entity.RolePlantManager},
		OwnerMay: true,
	},
	{entity.FamilyDeviations, TransitionNoteAdd}: {
		Roles:    entity.ApprovalRoles,
		OwnerMay: true,
	},
	{entity.FamilyDeviations, TransitionEdit}:   {OwnerMay: true},
	{entity.FamilyDeviations, TransitionDelete}: {},

	// Overtime orders
	{entity.FamilyOvertime, TransitionConfirm}: {
		Roles:    []entity.Role{entity.RoleHR, entity.RolePlantManager},
		OwnerMay: true,
	},
	{entity.FamilyOvertime, TransitionApprove}: {
		Roles: []entity.Role{entity.RolePlantManager, entity.RoleHR},
	},
	{entity.FamilyOvertime, TransitionCancel}: {
		Roles:    []entity.Role{entity.RolePlantManager, entity.RoleHR},
		OwnerMay: true,
	},
	{entity.FamilyOvertime, TransitionComplete}: {
		Roles:    []entity.Role{entity.RoleGroupLeader, entity.RolePlantManager},
		OwnerMay: true,
	},
	{entity.FamilyOvertime, TransitionMarkAccounted}: {
		Roles: []entity.Role{entity.RoleHR},
	},
	{entity.FamilyOvertime, TransitionReactivate}: {},
	{entity.FamilyOvertime, TransitionDelete}:     {},
	{entity.FamilyOvertime, TransitionNoteAdd}: {
		Roles:    []entity.Role{entity.RoleHR, entity.RolePlantManager, entity.RoleGroupLeader},
		OwnerMay: true,
	},

	// IT inventory
	{entity.FamilyInventory, TransitionAssign}: {
		Roles:    []entity.Role{entity.RoleITManager},
		OwnerMay: true,
	},
	{entity.FamilyInventory, TransitionRelease}: {
		Roles:    []entity.Role{entity.RoleITManager},
		OwnerMay: true,
	},
	{entity.FamilyInventory, TransitionSendRepair}: {
		Roles:    []entity.Role{entity.RoleITManager},
		OwnerMay: true,
	},
	{entity.FamilyInventory, TransitionReturnRepair}: {
		Roles: []entity.Role{entity.RoleITManager},
	},
	{entity.FamilyInventory, TransitionDispose}: {
		Roles: []entity.Role{entity.RoleITManager},
	},
	{entity.FamilyInventory, TransitionNoteAdd}: {
		Roles:    []entity.Role{entity.RoleITManager},
		OwnerMay: true,
	},

	// Failure reports
	{entity.FamilyFailures, TransitionTake}: {
		Roles: []entity.Role{entity.RoleMaintenanceManager},
	},
	{entity.FamilyFailures, TransitionResolve}: {
		Roles: []entity.Role{entity.RoleMaintenanceManager},
	},
	{entity.FamilyFailures, TransitionReopen}: {
		Roles: []entity.Role{entity.RoleMaintenanceManager},
	},
}
