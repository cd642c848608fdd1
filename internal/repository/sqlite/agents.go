package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/repository"
)

type agentRepository struct {
	db *sql.DB
}

// NewAgentRepository builds a sqlite-backed repository.AgentRepository.
func NewAgentRepository(db *sql.DB) repository.AgentRepository {
	return &agentRepository{db: db}
}

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO agents (id, name, role, created_at) VALUES (?,?,?,?)`,
		agent.ID, agent.Name, string(agent.Role), agent.CreatedAt.UTC().Format(timeLayout))
	return err
}

func (r *agentRepository) Update(ctx context.Context, agent *domain.Agent) error {
	res, err := r.db.ExecContext(ctx, `UPDATE agents SET name=?, role=? WHERE id=?`, agent.Name, string(agent.Role), agent.ID)
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

func (r *agentRepository) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, role, created_at FROM agents WHERE id=?`, id)
	agent, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return agent, err
}

func (r *agentRepository) List(ctx context.Context) ([]domain.Agent, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, role, created_at FROM agents ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *agent)
	}
	return result, rows.Err()
}

func (r *agentRepository) Delete(ctx context.Context, id string) error {
	const query = `
        DELETE FROM agents WHERE id=?
          AND NOT EXISTS (SELECT 1 FROM requests WHERE assigned_agent_id=? AND status <> ?)`
	res, err := r.db.ExecContext(ctx, query, id, id, string(domain.StatusDone))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	if _, err := r.GetAgent(ctx, id); err != nil {
		return err
	}
	return repository.ErrAgentInUse
}

func (r *agentRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agents`).Scan(&n)
	return n, err
}

func scanAgent(row rowScanner) (*domain.Agent, error) {
	var (
		agent      domain.Agent
		role       string
		createdRaw string
	)
	if err := row.Scan(&agent.ID, &agent.Name, &role, &createdRaw); err != nil {
		return nil, err
	}
	agent.Role = domain.Role(role)
	created, err := time.Parse(timeLayout, createdRaw)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	agent.CreatedAt = created
	return &agent, nil
}
