package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/request-tracker/internal/domain"
)

// RequestRepository encapsulates request persistence.
type RequestRepository interface {
	Create(ctx context.Context, req *domain.Request) error
	GetRequest(ctx context.Context, id string) (*domain.Request, error)
	// ListActive returns every request whose status is not Done.
	ListActive(ctx context.Context) ([]domain.Request, error)
	List(ctx context.Context, limit, offset int) ([]domain.Request, error)
	// SaveRequest writes req only if the stored version equals expectedVersion
	// and the assigned agent, if any, still exists (ErrAgentNotFound).
	SaveRequest(ctx context.Context, req *domain.Request, expectedVersion int64) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository instantiates repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

const requestColumns = `id, title, description, status, priority, due_date, assigned_agent_id, tags, created_at, updated_at, version`

func (r *requestRepository) Create(ctx context.Context, req *domain.Request) error {
	const query = `
        INSERT INTO requests (id, title, description, status, priority, due_date, assigned_agent_id, tags, created_at, updated_at, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,1)`
	_, err := r.pool.Exec(ctx, query,
		req.ID,
		req.Title,
		req.Description,
		req.Status,
		req.Priority,
		req.DueDate,
		req.AssignedAgentID,
		tagsOrEmpty(req.Tags),
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return err
	}
	req.Version = 1
	return nil
}

func (r *requestRepository) GetRequest(ctx context.Context, id string) (*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id=$1`
	req, err := scanRequest(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return req, err
}

func (r *requestRepository) ListActive(ctx context.Context) ([]domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE status <> $1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, domain.StatusDone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (r *requestRepository) List(ctx context.Context, limit, offset int) ([]domain.Request, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + requestColumns + ` FROM requests ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (r *requestRepository) SaveRequest(ctx context.Context, req *domain.Request, expectedVersion int64) error {
	const query = `
        UPDATE requests SET title=$1, description=$2, status=$3, priority=$4, due_date=$5,
            assigned_agent_id=$6, tags=$7, updated_at=$8, version=version+1
        WHERE id=$9 AND version=$10
          AND ($6::text IS NULL OR EXISTS (SELECT 1 FROM agents WHERE id=$6 FOR SHARE))
        RETURNING version`
	var version int64
	err := r.pool.QueryRow(ctx, query,
		req.Title,
		req.Description,
		req.Status,
		req.Priority,
		req.DueDate,
		req.AssignedAgentID,
		tagsOrEmpty(req.Tags),
		req.UpdatedAt,
		req.ID,
		expectedVersion,
	).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.explainMiss(ctx, req.ID, expectedVersion)
	}
	if err != nil {
		return err
	}
	req.Version = version
	return nil
}

// explainMiss tells apart the reasons a conditional save touched no row.
func (r *requestRepository) explainMiss(ctx context.Context, id string, expectedVersion int64) error {
	var version int64
	err := r.pool.QueryRow(ctx, `SELECT version FROM requests WHERE id=$1`, id).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if version != expectedVersion {
		return ErrVersionConflict
	}
	return ErrAgentNotFound
}

func (r *requestRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM requests WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *requestRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM requests`).Scan(&n)
	return n, err
}

func scanRequest(row pgx.Row) (*domain.Request, error) {
	var req domain.Request
	if err := row.Scan(
		&req.ID,
		&req.Title,
		&req.Description,
		&req.Status,
		&req.Priority,
		&req.DueDate,
		&req.AssignedAgentID,
		&req.Tags,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.Version,
	); err != nil {
		return nil, err
	}
	return &req, nil
}

func scanRequests(rows pgx.Rows) ([]domain.Request, error) {
	var result []domain.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
