package main

import (
	"context"

	"github.com/smallbiznis/kinesio/internal/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-overdue",
		Short: "Mark past-due invoices as OVERDUE once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			var sched *scheduler.Scheduler
			app := fx.New(
				infraModules(),
				ledgerModules(),
				fx.Provide(scheduler.New),
				fx.Populate(&sched),
				fx.NopLogger,
			)
			return runOnce(ctx, app, sched.RunSweepOverdue)
		},
	}
}
