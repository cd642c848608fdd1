package domain

import "time"

// CommentType differentiates human notes from engine audit entries.
type CommentType string

const (
	CommentTypeGeneral         CommentType = "General"
	CommentTypeStatusUpdate    CommentType = "Status update"
	CommentTypeSystemGenerated CommentType = "System-generated"
)

// SystemAuthor is the author recorded on comments the engine writes on its own.
const SystemAuthor = "System"

// Comment is an append-only entry in a request thread.
type Comment struct {
	ID        string
	RequestID string
	Author    string
	Text      string
	Type      CommentType
	CreatedAt time.Time
}
