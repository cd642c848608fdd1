package domain

import "time"

// Role enumerates what an agent may do.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleAgent Role = "Agent"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleAgent
}

// Agent is a staff member requests can be assigned to.
type Agent struct {
	ID        string
	Name      string
	Role      Role
	CreatedAt time.Time
}
