package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/request-tracker/internal/domain"
)

// AgentRepository handles persistence for agents.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	Update(ctx context.Context, agent *domain.Agent) error
	GetAgent(ctx context.Context, id string) (*domain.Agent, error)
	List(ctx context.Context) ([]domain.Agent, error)
	// Delete removes the agent unless a request that is not Done still references it.
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates the repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	const query = `INSERT INTO agents (id, name, role, created_at) VALUES ($1,$2,$3,$4)`
	_, err := r.pool.Exec(ctx, query, agent.ID, agent.Name, agent.Role, agent.CreatedAt)
	return err
}

func (r *agentRepository) Update(ctx context.Context, agent *domain.Agent) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE agents SET name=$1, role=$2 WHERE id=$3`, agent.Name, agent.Role, agent.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *agentRepository) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	var agent domain.Agent
	err := r.pool.QueryRow(ctx, `SELECT id, name, role, created_at FROM agents WHERE id=$1`, id).Scan(
		&agent.ID,
		&agent.Name,
		&agent.Role,
		&agent.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *agentRepository) List(ctx context.Context) ([]domain.Agent, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, role, created_at FROM agents ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Agent
	for rows.Next() {
		var agent domain.Agent
		if err := rows.Scan(&agent.ID, &agent.Name, &agent.Role, &agent.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, agent)
	}
	return result, rows.Err()
}

// Delete locks the agent row before checking references. SaveRequest holds
// FOR SHARE on the same row while it writes an assignment.
func (r *agentRepository) Delete(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM agents WHERE id=$1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var inUse bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM requests WHERE assigned_agent_id=$1 AND status <> $2)`,
			id, domain.StatusDone).Scan(&inUse)
		if err != nil {
			return err
		}
		if inUse {
			return ErrAgentInUse
		}

		_, err = tx.Exec(ctx, `DELETE FROM agents WHERE id=$1`, id)
		return err
	})
}

func (r *agentRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM agents`).Scan(&n)
	return n, err
}
