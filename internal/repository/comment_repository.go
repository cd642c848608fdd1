package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/request-tracker/internal/domain"
)

// CommentRepository manages request comment threads.
type CommentRepository interface {
	AppendComment(ctx context.Context, comment *domain.Comment) error
	// ListByRequest returns comments ordered by creation time, oldest first.
	ListByRequest(ctx context.Context, requestID string) ([]domain.Comment, error)
	Count(ctx context.Context) (int, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) AppendComment(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (id, request_id, author, text, type, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.pool.Exec(ctx, query,
		comment.ID,
		comment.RequestID,
		comment.Author,
		comment.Text,
		comment.Type,
		comment.CreatedAt,
	)
	return err
}

func (r *commentRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.Comment, error) {
	const query = `
        SELECT id, request_id, author, text, type, created_at
        FROM comments WHERE request_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(
			&c.ID,
			&c.RequestID,
			&c.Author,
			&c.Text,
			&c.Type,
			&c.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *commentRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM comments`).Scan(&n)
	return n, err
}
