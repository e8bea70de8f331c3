// Package authz holds the declarative transition policy table and the
// single guard evaluating it. The guard is a pure decision: it never
// errors and never mutates anything.
package authz

import (
	"github.com/plantops/workdesk/internal/domain/entity"
)

// Resource describes the entity a transition targets, as far as the
// guard needs to see it.
type Resource struct {
	Family   entity.Family
	Status   string
	Terminal bool
	OwnerID  string

	// AllowedActorIDs admits specific non-owner actors for this one
	// resource (e.g. a corrective action's responsible).
	AllowedActorIDs []string
}

// Decision is the guard's verdict. Deny carries a caller-facing reason.
type Decision struct {
	Allowed bool
	Reason  string
}

// Deny reasons
const (
	ReasonNoRule       = "no policy for transition"
	ReasonTerminal     = "entity in terminal status"
	ReasonMissingRole  = "actor lacks required role"
	ReasonNotOwner     = "actor is not the owner"
)

// Allow returns an allowing decision
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denying decision with a reason
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// elevations maps a role to the roles it may additionally act as
var elevations = map[entity.Role][]entity.Role{
	entity.RoleProductionManager: {entity.RoleGroupLeader},
}

// Satisfies returns true if the actor holds the role directly or via
// an elevation.
func Satisfies(actor entity.Actor, required entity.Role) bool {
	if actor.HasRole(required) {
		return true
	}
	for _, held := range actor.Roles {
		for _, as := range elevations[held] {
			if as == required {
				return true
			}
		}
	}
	return false
}

// Decide admits or denies a named transition on a resource.
//
// Admin always passes. A terminal status locks out everyone else,
// regardless of the transition's own rule. Otherwise the policy table
// decides: ownership, per-resource actor grants, then role membership.
func Decide(actor entity.Actor, res Resource, transition string) Decision {
	if actor.IsAdmin() {
		return Allow()
	}

	if res.Terminal {
		return Deny(ReasonTerminal)
	}

	rule, ok := policies[policyKey{family: res.Family, transition: transition}]
	if !ok {
		return Deny(ReasonNoRule)
	}

	if rule.OwnerMay && actor.ID != "" && actor.ID == res.OwnerID {
		return Allow()
	}

	for _, id := range res.AllowedActorIDs {
		if id != "" && id == actor.ID {
			return Allow()
		}
	}

	for _, required := range rule.Roles {
		if Satisfies(actor, required) {
			return Allow()
		}
	}

	if rule.OwnerMay {
		return Deny(ReasonNotOwner)
	}
	return Deny(ReasonMissingRole)
}
