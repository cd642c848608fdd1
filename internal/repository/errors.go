package repository

import "errors"

var (
	// ErrNotFound is returned when the addressed entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned by SaveRequest when the stored version moved on.
	ErrVersionConflict = errors.New("version conflict")
	// ErrAgentNotFound is returned by SaveRequest when the assigned agent no
	// longer exists at write time.
	ErrAgentNotFound = errors.New("assigned agent not found")
	// ErrAgentInUse is returned when deleting an agent still assigned to live requests.
	ErrAgentInUse = errors.New("agent assigned to active requests")
)
