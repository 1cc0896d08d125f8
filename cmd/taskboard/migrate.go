package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/taskboard/pkg/config"
	"github.com/platinummonkey/taskboard/pkg/storage/postgres"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPostgres(cmd.Context(), func(pg *postgres.Store) error {
				if err := postgres.Migrate(pg.DB()); err != nil {
					return err
				}
				return printVersion(cmd, pg)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations, one step by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("steps must be a positive integer, got %q", args[0])
				}
				steps = n
			}
			return withPostgres(cmd.Context(), func(pg *postgres.Store) error {
				if err := postgres.MigrateDown(pg.DB(), steps); err != nil {
					return err
				}
				return printVersion(cmd, pg)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPostgres(cmd.Context(), func(pg *postgres.Store) error {
				return printVersion(cmd, pg)
			})
		},
	})

	return cmd
}

func withPostgres(ctx context.Context, fn func(*postgres.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.Storage.Type != "postgres" {
		return fmt.Errorf("migrations need postgres storage, configured %q", cfg.Storage.Type)
	}

	settings := cfg.StorageSettings()
	settings.AutoMigrate = false
	pg, err := postgres.Open(ctx, settings)
	if err != nil {
		return err
	}
	defer pg.Close()

	return fn(pg)
}

func printVersion(cmd *cobra.Command, pg *postgres.Store) error {
	v, dirty, err := postgres.MigrationVersion(pg.DB())
	if err != nil {
		return err
	}
	cmd.Printf("schema version %d (dirty=%t)\n", v, dirty)
	return nil
}
