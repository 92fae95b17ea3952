package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kinesio/internal/audit"
	"github.com/smallbiznis/kinesio/internal/clock"
	"github.com/smallbiznis/kinesio/internal/config"
	"github.com/smallbiznis/kinesio/internal/crypto/fieldcrypt"
	"github.com/smallbiznis/kinesio/internal/expense"
	"github.com/smallbiznis/kinesio/internal/invoice"
	"github.com/smallbiznis/kinesio/internal/notification"
	"github.com/smallbiznis/kinesio/internal/observability"
	"github.com/smallbiznis/kinesio/internal/patient"
	"github.com/smallbiznis/kinesio/internal/providers"
	"github.com/smallbiznis/kinesio/internal/ratelimit"
	"github.com/smallbiznis/kinesio/internal/report"
	"github.com/smallbiznis/kinesio/internal/serviceprice"
	"github.com/smallbiznis/kinesio/internal/tax"
	"github.com/smallbiznis/kinesio/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "kinesio: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kinesio",
		Short:         "Billing ledger for a kinesiology clinic",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSweepCmd(),
		newTokenCmd(),
	)
	return root
}

// infraModules is the base every command shares.
func infraModules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		clock.Module,
		db.Module,
		fx.Provide(newSnowflakeNode),
	)
}

// ledgerModules wires the domain services behind the API.
func ledgerModules() fx.Option {
	return fx.Options(
		tax.Module,
		fieldcrypt.Module,
		providers.Module,
		ratelimit.Module,
		audit.Module,
		notification.Module,
		patient.Module,
		serviceprice.Module,
		invoice.Module,
		expense.Module,
		report.Module,
	)
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

// runOnce starts app, runs fn and stops app again. Used by the one-shot commands.
func runOnce(ctx context.Context, app *fx.App, fn func(context.Context) error) error {
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	runErr := fn(ctx)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}
