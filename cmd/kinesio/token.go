package main

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/kinesio/internal/auth"
	"github.com/smallbiznis/kinesio/internal/authorization"
	"github.com/smallbiznis/kinesio/internal/clock"
	"github.com/smallbiznis/kinesio/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newTokenCmd() *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a staff bearer token signed with AUTH_JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			switch role {
			case authorization.RoleAdmin, authorization.RoleReceptionist, authorization.RoleKinesiologist, authorization.RoleAccountant:
			default:
				return fmt.Errorf("unknown role %q", role)
			}

			var verifier *auth.Verifier
			app := fx.New(
				config.Module,
				clock.Module,
				auth.Module,
				fx.Populate(&verifier),
				fx.NopLogger,
			)
			return runOnce(context.Background(), app, func(context.Context) error {
				token, err := verifier.Issue(userID, role, ttl)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "staff user id placed in the sub claim")
	cmd.Flags().StringVar(&role, "role", authorization.RoleReceptionist, "admin, receptionist, kinesiologist or accountant")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	return cmd
}
