package cli

import (
	"github.com/spf13/cobra"

	"github.com/forgeplex/psp-console/internal/format"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := application.Logout(cmd.Context()); err != nil {
			return err
		}
		format.Success(cmd.OutOrStdout(), colors(), "Signed out")
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the stored refresh token for a new session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := application.RefreshTokens(cmd.Context()); err != nil {
			return err
		}
		format.Success(cmd.OutOrStdout(), colors(), "Session refreshed")
		return nil
	},
}
