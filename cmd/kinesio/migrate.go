package main

import (
	"context"
	"fmt"

	"github.com/smallbiznis/kinesio/internal/config"
	"github.com/smallbiznis/kinesio/internal/migration"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSchema(cmd.Context(), func(ctx context.Context, conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
				if err := migration.Apply(conn, cfg.DBType); err != nil {
					return err
				}
				log.Info("schema up to date")
				return nil
			})
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert migrations (postgres only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSchema(cmd.Context(), func(ctx context.Context, conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
				if cfg.DBType != "postgres" {
					return fmt.Errorf("migrate down is not supported for %s", cfg.DBType)
				}
				sqlDB, err := conn.DB()
				if err != nil {
					return err
				}
				if err := migration.Rollback(sqlDB, steps); err != nil {
					return err
				}
				log.Info("schema rolled back", zap.Int("steps", steps))
				return nil
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to revert, 0 reverts all")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSchema(cmd.Context(), func(ctx context.Context, conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
				sqlDB, err := conn.DB()
				if err != nil {
					return err
				}
				v, dirty, err := migration.Version(sqlDB)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", v, dirty)
				return nil
			})
		},
	}

	cmd.AddCommand(up, down, versionCmd)
	return cmd
}

func withSchema(ctx context.Context, fn func(context.Context, *gorm.DB, config.Config, *zap.Logger) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		conn *gorm.DB
		cfg  config.Config
		log  *zap.Logger
	)
	app := fx.New(
		infraModules(),
		fx.Populate(&conn, &cfg, &log),
		fx.NopLogger,
	)
	return runOnce(ctx, app, func(ctx context.Context) error {
		return fn(ctx, conn, cfg, log)
	})
}
