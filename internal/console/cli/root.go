// Package cli implements the psp-admin command tree.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/forgeplex/psp-console/internal/console/app"
	"github.com/forgeplex/psp-console/internal/format"
)

var (
	cfgFile string
	output  string
	noColor bool

	application *app.Application
)

var rootCmd = &cobra.Command{
	Use:   "psp-admin",
	Short: "Admin console for the payment service provider backend",
	Long: `psp-admin signs operators into the PSP admin backend and manages the
credentials that come with it: TOTP enrollment, recovery codes, and
trusted devices.`,
	Version:       app.BuildVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if noColor {
			cfg.Format.Colors = false
		}
		if output == "" {
			output = cfg.Format.Default
		}

		application, err = app.New(cfg, nil)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if application == nil {
			return nil
		}
		return application.Close()
	},
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.psp-admin.yaml)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "output format (table, json, yaml, text)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(backupCodesCmd)
	rootCmd.AddCommand(devicesCmd)
}

func colors() bool {
	return application != nil && application.Config().Format.Colors && !noColor
}

func render(w io.Writer, data any) error {
	f, err := format.New(output, colors())
	if err != nil {
		return err
	}
	return f.Format(w, data)
}

func requireSignedIn(cmd *cobra.Command) error {
	if !application.Issuer().Authenticated(cmd.Context()) {
		return fmt.Errorf("not signed in, run `psp-admin login` first")
	}
	return nil
}
