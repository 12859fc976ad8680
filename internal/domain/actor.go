package domain

// SystemActor is the changed-by value recorded when no user drove the change.
const SystemActor = "system"

// Role is the user role carried in the bearer token.
type Role string

const (
	RoleAdmin         Role = "ADMIN"
	RoleManager       Role = "MANAGER"
	RoleDispatcher    Role = "DISPATCHER"
	RoleSafetyOfficer Role = "SAFETY_OFFICER"
	RoleFinance       Role = "FINANCE"
)

// Actor identifies who asked for an operation. IP and UserAgent are carried
// for audit events only and never influence business rules.
type Actor struct {
	UserID    string
	Role      Role
	IP        string
	UserAgent string
}

// Name returns the user id, or SystemActor when the request was anonymous.
func (a Actor) Name() string {
	if a.UserID == "" {
		return SystemActor
	}
	return a.UserID
}

// HasAnyRole reports whether the actor holds one of roles. ADMIN holds every
// role.
func (a Actor) HasAnyRole(roles ...Role) bool {
	if a.Role == RoleAdmin {
		return true
	}
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
