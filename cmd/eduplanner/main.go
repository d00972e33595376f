package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/eduplanner-backend/internal/agents"
	"github.com/yungbote/eduplanner-backend/internal/app"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "eduplanner",
		Short:         "Instructor dashboard backend",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.LoadDotEnv()
		},
	}
	root.AddCommand(serveCmd(), migrateCmd(), routeCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := app.NewLogger()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, log)
			if err != nil {
				log.Error("Failed to init app", "error", err)
				log.Sync()
				return err
			}
			defer a.Close()

			if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Server stopped", "error", err)
				return err
			}
			log.Info("Server stopped")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	var seedData, force bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the schema and optionally load the demo course",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := app.NewLogger()
			if err != nil {
				return err
			}
			defer log.Sync()
			cfg := app.LoadConfig(log)
			dbs, _, err := app.OpenDB(cmd.Context(), log, cfg, seedData, force)
			if err != nil {
				log.Error("Migration failed", "error", err)
				return err
			}
			log.Info("Migration complete", "driver", dbs.Driver(), "seeded", seedData)
			return dbs.Close()
		},
	}
	cmd.Flags().BoolVar(&seedData, "seed", false, "load the demo roster, assets and lesson plan when the roster is empty")
	cmd.Flags().BoolVar(&force, "force", false, "with --seed, replace existing data")
	return cmd
}

func routeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route <text>",
		Short: "Print which agent a chat message would be routed to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), agents.Route(strings.Join(args, " ")))
			return err
		},
	}
}
