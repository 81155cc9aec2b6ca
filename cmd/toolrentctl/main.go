// Command toolrentctl is the operator CLI: schema migrations, access tokens
// for staff, and one-shot job runs.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"toolrent-backend/internal/config"
	"toolrent-backend/internal/database"
	"toolrent-backend/internal/jobs"
	"toolrent-backend/internal/logger"
	"toolrent-backend/internal/metrics"
	"toolrent-backend/internal/security"
	"toolrent-backend/internal/service"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var cfg *config.Config

	root := &cobra.Command{
		Use:          "toolrentctl",
		Short:        "Operate the tool rental backend",
		SilenceUsage: true,
	}
	root.PersistentPreRunE = func(*cobra.Command, []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		logger.Initialize(cfg.Log.Level, cfg.Log.Format)
		return nil
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.dev.yaml", "Path to configuration file")

	load := func() *config.Config { return cfg }
	root.AddCommand(newMigrateCmd(load), newTokenCmd(load), newJobsCmd(load))
	return root
}

func newMigrateCmd(cfg func() *config.Config) *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := database.Connect(ctx, cfg())
			if err != nil {
				return err
			}
			defer db.Close()

			m := database.NewMigrator(db)
			if statusOnly {
				pending, err := m.Pending(ctx)
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pending: %s\n", strings.Join(pending, ", "))
				return nil
			}
			n, err := m.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "List pending migrations without applying them")
	return cmd
}

func newTokenCmd(cfg func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens",
	}

	var (
		username string
		roles    []string
		ttl      time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue an access token for a staff member",
		Example: `  toolrentctl token issue --username mrojas --role EMPLOYEE
  toolrentctl token issue --username admin --role ADMIN --ttl 8h`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed := make([]security.Role, 0, len(roles))
			for _, r := range roles {
				role, err := security.ParseRole(r)
				if err != nil {
					return err
				}
				parsed = append(parsed, role)
			}
			if len(parsed) == 0 {
				return fmt.Errorf("at least one --role is required")
			}
			expiry := cfg().AccessTokenExpiry()
			if ttl > 0 {
				expiry = ttl
			}
			tm := security.NewTokenManager(cfg().JWT.Secret, expiry)
			token, err := tm.GenerateAccessToken(username, username, parsed)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issue.Flags().StringVar(&username, "username", "", "Username recorded as the actor of the holder's operations")
	issue.Flags().StringSliceVar(&roles, "role", nil, "Role to grant (ADMIN or EMPLOYEE); repeatable")
	issue.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default jwt.access_token_expiry_minutes)")
	_ = issue.MarkFlagRequired("username")

	cmd.AddCommand(issue)
	return cmd
}

func newJobsCmd(cfg func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Run scheduled jobs by hand",
	}
	cmd.AddCommand(&cobra.Command{
		Use:       "run <job>",
		Short:     "Run one job now",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{jobs.JobMarkOverdueLoans, jobs.JobSendOverdueReminders, jobs.JobAll},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			store, err := database.OpenStore(ctx, cfg())
			if err != nil {
				return err
			}
			defer store.Close()

			engine := service.NewEngine(store, service.RulesFromConfig(cfg()), nil, nil)
			runner, err := jobs.Build(engine, cfg(), metrics.New())
			if err != nil {
				return err
			}
			return runner.Run(args[0])
		},
	})
	return cmd
}
