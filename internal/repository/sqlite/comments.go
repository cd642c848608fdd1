package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/repository"
)

type commentRepository struct {
	db *sql.DB
}

// NewCommentRepository builds a sqlite-backed repository.CommentRepository.
func NewCommentRepository(db *sql.DB) repository.CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) AppendComment(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (id, request_id, author, text, type, created_at)
        VALUES (?,?,?,?,?,?)`
	_, err := r.db.ExecContext(ctx, query,
		comment.ID,
		comment.RequestID,
		comment.Author,
		comment.Text,
		string(comment.Type),
		comment.CreatedAt.UTC().Format(timeLayout),
	)
	return err
}

func (r *commentRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.Comment, error) {
	const query = `
        SELECT id, request_id, author, text, type, created_at
        FROM comments WHERE request_id=? ORDER BY created_at ASC, seq ASC`
	rows, err := r.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var (
			c                 domain.Comment
			typ, createdAtRaw string
		)
		if err := rows.Scan(&c.ID, &c.RequestID, &c.Author, &c.Text, &typ, &createdAtRaw); err != nil {
			return nil, err
		}
		c.Type = domain.CommentType(typ)
		if c.CreatedAt, err = time.Parse(timeLayout, createdAtRaw); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *commentRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments`).Scan(&n)
	return n, err
}
