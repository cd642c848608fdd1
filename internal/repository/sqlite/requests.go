package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/repository"
)

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type requestRepository struct {
	db *sql.DB
}

// NewRequestRepository builds a sqlite-backed repository.RequestRepository.
func NewRequestRepository(db *sql.DB) repository.RequestRepository {
	return &requestRepository{db: db}
}

const requestColumns = `id, title, description, status, priority, due_date, assigned_agent_id, tags, created_at, updated_at, version`

func (r *requestRepository) Create(ctx context.Context, req *domain.Request) error {
	tags, err := encodeTags(req.Tags)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO requests (id, title, description, status, priority, due_date, assigned_agent_id, tags, created_at, updated_at, version)
        VALUES (?,?,?,?,?,?,?,?,?,?,1)`
	if _, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.Title,
		req.Description,
		string(req.Status),
		string(req.Priority),
		req.DueDate.UTC().Format(domain.DateLayout),
		nullable(req.AssignedAgentID),
		tags,
		req.CreatedAt.UTC().Format(timeLayout),
		req.UpdatedAt.UTC().Format(timeLayout),
	); err != nil {
		return err
	}
	req.Version = 1
	return nil
}

func (r *requestRepository) GetRequest(ctx context.Context, id string) (*domain.Request, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE id=?`, id)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return req, err
}

func (r *requestRepository) ListActive(ctx context.Context) ([]domain.Request, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE status <> ? ORDER BY created_at ASC`,
		string(domain.StatusDone))
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
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM requests ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (r *requestRepository) SaveRequest(ctx context.Context, req *domain.Request, expectedVersion int64) error {
	tags, err := encodeTags(req.Tags)
	if err != nil {
		return err
	}
	const query = `
        UPDATE requests SET title=?, description=?, status=?, priority=?, due_date=?,
            assigned_agent_id=?, tags=?, updated_at=?, version=version+1
        WHERE id=? AND version=?
          AND (? IS NULL OR EXISTS (SELECT 1 FROM agents WHERE id=?))`
	agentID := nullable(req.AssignedAgentID)
	res, err := r.db.ExecContext(ctx, query,
		req.Title,
		req.Description,
		string(req.Status),
		string(req.Priority),
		req.DueDate.UTC().Format(domain.DateLayout),
		agentID,
		tags,
		req.UpdatedAt.UTC().Format(timeLayout),
		req.ID,
		expectedVersion,
		agentID,
		agentID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return r.explainMiss(ctx, req.ID, expectedVersion)
	}
	req.Version = expectedVersion + 1
	return nil
}

// explainMiss tells apart the reasons a conditional save touched no row.
func (r *requestRepository) explainMiss(ctx context.Context, id string, expectedVersion int64) error {
	var version int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM requests WHERE id=?`, id).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}
	if version != expectedVersion {
		return repository.ErrVersionConflict
	}
	return repository.ErrAgentNotFound
}

func (r *requestRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM requests WHERE id=?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *requestRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM requests`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*domain.Request, error) {
	var (
		req              domain.Request
		status, priority string
		due, tags        string
		created, updated string
		assigned         sql.NullString
	)
	if err := row.Scan(
		&req.ID,
		&req.Title,
		&req.Description,
		&status,
		&priority,
		&due,
		&assigned,
		&tags,
		&created,
		&updated,
		&req.Version,
	); err != nil {
		return nil, err
	}
	req.Status = domain.Status(status)
	req.Priority = domain.Priority(priority)
	if assigned.Valid {
		id := assigned.String
		req.AssignedAgentID = &id
	}

	var err error
	if req.DueDate, err = time.Parse(domain.DateLayout, due); err != nil {
		return nil, fmt.Errorf("parse due_date: %w", err)
	}
	if req.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if req.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &req.Tags); err != nil {
		return nil, fmt.Errorf("parse tags: %w", err)
	}
	return &req, nil
}

func scanRequests(rows *sql.Rows) ([]domain.Request, error) {
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

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
