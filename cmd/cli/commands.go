package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/infrastructure/logger"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/repository"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/service"
	"github.com/CleanExpo/RestoreAssist-sub011/pkg/config"
	"github.com/CleanExpo/RestoreAssist-sub011/pkg/database"
)

// openDB loads configuration and connects to Postgres.
func openDB(ctx context.Context) (*database.ConnectionPool, *config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.NewLogger(cfg.LogLevel)
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Driver: cfg.DatabaseDriver,
		URL:    cfg.DatabaseURL,
	}, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return pool, cfg, log, nil
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, _, log, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := database.Migrate(cmd.Context(), pool.GetDB(), log)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			return nil
		},
	}
}

func newCreditsCommand() *cobra.Command {
	credits := &cobra.Command{
		Use:   "credits",
		Short: "Inspect or adjust user credit balances",
	}

	var (
		email     string
		reports   int
		quickFill int
	)
	grant := &cobra.Command{
		Use:   "grant",
		Short: "Add report and quick-fill credits to a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if reports < 0 || quickFill < 0 || reports+quickFill == 0 {
				return errors.New("--reports and --quickfill must be non-negative and not both zero")
			}
			pool, _, log, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			users := repository.NewPostgresUserRepository(pool.GetDB(), log)
			u, err := users.GetByEmail(cmd.Context(), email)
			if err != nil {
				return fmt.Errorf("find user %s: %w", email, err)
			}
			if err := users.GrantCredits(cmd.Context(), u.ID, reports, quickFill); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "granted %d report and %d quick-fill credits to %s\n", reports, quickFill, email)
			return nil
		},
	}
	grant.Flags().StringVar(&email, "email", "", "user email address")
	grant.Flags().IntVar(&reports, "reports", 0, "report credits to add")
	grant.Flags().IntVar(&quickFill, "quickfill", 0, "quick-fill credits to add")
	_ = grant.MarkFlagRequired("email")

	credits.AddCommand(grant)
	return credits
}

func newMembersCommand() *cobra.Command {
	var orgID string
	cmd := &cobra.Command{
		Use:   "members",
		Short: "List the members of an organization",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, _, log, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			members, err := repository.NewPostgresUserRepository(pool.GetDB(), log).ListByOrganization(cmd.Context(), orgID)
			if err != nil {
				return err
			}
			printMembers(members)
			return nil
		},
	}
	cmd.Flags().StringVar(&orgID, "org", "", "organization id")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func printMembers(members []*domain.User) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tROLE\tCREDITS")
	for _, u := range members {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", u.ID, u.Email, u.Role, u.CreditsRemaining)
	}
	w.Flush()
}

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-handshakes",
		Short: "Clear abandoned integration OAuth handshakes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, cfg, log, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			return sweep(cmd, pool.GetDB(), cfg, log)
		},
	}
}

func sweep(cmd *cobra.Command, db *sql.DB, cfg *config.Config, log *slog.Logger) error {
	integrations := service.NewIntegrationService(
		repository.NewPostgresIntegrationRepository(db, log), nil, cfg.APIBaseURL, cfg.HandshakeMaxAge, log)
	n, err := integrations.SweepStaleHandshakes(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cleared %d stale handshakes\n", n)
	return nil
}
