package domain

import "time"

// Principal is the caller identity attached to a token. Engine calls receive
// Name as their explicit actor.
type Principal struct {
	AgentID string
	Name    string
	Role    Role
}

// Token represents issued token metadata.
type Token struct {
	Value     string
	Principal Principal
	ExpiresAt time.Time
	IssuedAt  time.Time
}
