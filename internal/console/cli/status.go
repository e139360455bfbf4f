package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgeplex/psp-console/internal/console/store"
	"github.com/forgeplex/psp-console/internal/format"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session and device trust",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	issuer := application.Issuer()

	row := format.Row{
		"server":    application.Config().API.URL,
		"signed_in": false,
	}

	pair, expiresAt, err := issuer.Current(ctx)
	switch {
	case err == nil && !pair.Empty():
		row["signed_in"] = time.Now().Before(expiresAt)
		row["access_token_expires"] = expiresAt.Local().Format(time.RFC3339)
		if sub, err := issuer.Subject(ctx); err == nil && sub != "" {
			row["operator"] = sub
		}
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return err
	}

	trusted, err := application.Trusted().Trusted(ctx)
	if err != nil {
		return err
	}
	row["device_trusted"] = trusted

	return render(cmd.OutOrStdout(), row)
}
