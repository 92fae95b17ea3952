package main

import (
	"github.com/smallbiznis/kinesio/internal/auth"
	"github.com/smallbiznis/kinesio/internal/authorization"
	"github.com/smallbiznis/kinesio/internal/migration"
	"github.com/smallbiznis/kinesio/internal/scheduler"
	"github.com/smallbiznis/kinesio/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the overdue sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				infraModules(),
				migration.Module,
				ledgerModules(),
				auth.Module,
				authorization.Module,
				scheduler.Module,
				server.Module,
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}
