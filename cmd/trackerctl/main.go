package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/request-tracker/internal/bootstrap"
	"github.com/spec-kit/request-tracker/internal/config"
	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/events"
	"github.com/spec-kit/request-tracker/internal/lifecycle"
	"github.com/spec-kit/request-tracker/internal/observability"
	"github.com/spec-kit/request-tracker/internal/service"
)

var rootCmd = &cobra.Command{
	Use:           "trackerctl",
	Short:         "Request tracker administration",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(agentsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// session holds what every subcommand needs from the environment.
type session struct {
	cfg    *config.Config
	logger *zap.Logger
	stores *bootstrap.Stores
}

func openSession(ctx context.Context, migrate bool) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, err
	}
	stores, err := bootstrap.OpenStores(ctx, cfg, logger, migrate)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, stores: stores}, nil
}

func (s *session) close() {
	s.stores.Close()
	_ = s.logger.Sync()
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations to the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer s.close()
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", s.stores.Driver)
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one escalation sweep now",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			engine := lifecycle.NewEngine(lifecycle.Dependencies{
				Requests:     s.stores.Requests,
				Comments:     s.stores.Comments,
				Agents:       s.stores.Agents,
				Dispatcher:   events.NewInMemoryDispatcher(),
				Logger:       s.logger,
				StoreTimeout: s.cfg.Store.Timeout(),
			})
			result, err := engine.RunEscalationSweep(cmd.Context(), engine.Now())
			if err != nil {
				return err
			}
			renderSweep(cmd.OutOrStdout(), result)
			return result.Err()
		},
	}
}

func agentsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "agents", Short: "Manage agents"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()
			agents, err := service.NewAgentService(s.stores.Agents, s.logger).ListAgents(cmd.Context())
			if err != nil {
				return err
			}
			renderAgents(cmd.OutOrStdout(), agents)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Insert the demo agents into an empty store",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()
			n, err := service.NewAgentService(s.stores.Agents, s.logger).SeedDemoAgents(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d agents\n", n)
			return nil
		},
	})
	return cmd
}

func renderSweep(w io.Writer, result *lifecycle.SweepResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Request", "Outcome", "Detail"})
	for _, id := range result.Escalated {
		tw.AppendRow(table.Row{id, "escalated", ""})
	}
	for _, f := range result.Failures {
		tw.AppendRow(table.Row{f.RequestID, f.Code, f.Err.Error()})
	}
	tw.AppendFooter(table.Row{"", "total", result.Count()})
	tw.Render()
}

func renderAgents(w io.Writer, agents []domain.Agent) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Name", "Role"})
	for _, a := range agents {
		tw.AppendRow(table.Row{a.ID, a.Name, a.Role})
	}
	tw.Render()
}
