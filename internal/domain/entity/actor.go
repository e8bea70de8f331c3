package entity

// Role identifies a business role carried in the actor's token claims
type Role string

const (
	RoleAdmin              Role = "admin"
	RolePlantManager       Role = "plant-manager"
	RoleHR                 Role = "hr"
	RoleQualityManager     Role = "quality-manager"
	RoleProductionManager  Role = "production-manager"
	RoleGroupLeader        Role = "group-leader"
	RoleITManager          Role = "it-manager"
	RoleMaintenanceManager Role = "maintenance-manager"
	RoleEmployee           Role = "employee"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// Actor is the authenticated caller of a transition or read view
type Actor struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Roles []Role `json:"roles"`
}

// HasRole returns true if the actor carries the exact role
func (a Actor) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin returns true if the actor carries the admin role
func (a Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}
