// Package bootstrap opens the configured store backend for the binaries.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/request-tracker/internal/config"
	"github.com/spec-kit/request-tracker/internal/persistence"
	"github.com/spec-kit/request-tracker/internal/repository"
	"github.com/spec-kit/request-tracker/internal/repository/memory"
	sqliterepo "github.com/spec-kit/request-tracker/internal/repository/sqlite"
)

// Stores is the set of repositories backed by one driver.
type Stores struct {
	Driver   string
	Requests repository.RequestRepository
	Comments repository.CommentRepository
	Agents   repository.AgentRepository

	pinger interface{ Ping(context.Context) error }
	close  func()
}

// Ping checks the backing database. The memory driver is always reachable.
func (s *Stores) Ping(ctx context.Context) error {
	if s.pinger == nil {
		return nil
	}
	return s.pinger.Ping(ctx)
}

// Close releases the backing connection.
func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// Counts reports entity totals.
func (s *Stores) Counts(ctx context.Context) (map[string]int, error) {
	requests, err := s.Requests.Count(ctx)
	if err != nil {
		return nil, err
	}
	comments, err := s.Comments.Count(ctx)
	if err != nil {
		return nil, err
	}
	agents, err := s.Agents.Count(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]int{"requests": requests, "comments": comments, "agents": agents}, nil
}

// OpenStores connects the driver named by cfg.Store.Driver. When migrate is
// set the embedded schema migrations run first.
func OpenStores(ctx context.Context, cfg *config.Config, logger *zap.Logger, migrate bool) (*Stores, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if migrate {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		pool := pg.PoolHandle()
		return &Stores{
			Driver:   cfg.Store.Driver,
			Requests: repository.NewRequestRepository(pool),
			Comments: repository.NewCommentRepository(pool),
			Agents:   repository.NewAgentRepository(pool),
			pinger:   pg,
			close:    pg.Close,
		}, nil

	case config.StoreDriverSQLite:
		db, err := persistence.NewSQLite(ctx, cfg.SQLite, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if migrate {
			if err := persistence.RunSQLiteMigrations(ctx, db.DB, logger); err != nil {
				db.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		return &Stores{
			Driver:   cfg.Store.Driver,
			Requests: sqliterepo.NewRequestRepository(db.DB),
			Comments: sqliterepo.NewCommentRepository(db.DB),
			Agents:   sqliterepo.NewAgentRepository(db.DB),
			pinger:   db,
			close:    db.Close,
		}, nil

	case config.StoreDriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		store := memory.NewStore()
		return &Stores{
			Driver:   cfg.Store.Driver,
			Requests: store.Requests,
			Comments: store.Comments,
			Agents:   store.Agents,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
