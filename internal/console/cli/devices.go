package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/forgeplex/psp-console/internal/format"
)

var devicesCmd = &cobra.Command{
	Use:   "trusted-devices",
	Short: "Manage trust markers held by this install",
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored trust markers",
	RunE: func(cmd *cobra.Command, args []string) error {
		markers, err := application.Trusted().Markers(cmd.Context())
		if err != nil {
			return err
		}

		now := time.Now()
		rows := make([]format.Row, 0, len(markers))
		for _, m := range markers {
			rows = append(rows, format.Row{
				"fingerprint":   m.Fingerprint,
				"trusted_until": m.TrustedUntil.Local().Format(time.RFC3339),
				"noted_at":      m.NotedAt.Local().Format(time.RFC3339),
				"valid":         m.Valid(now),
			})
		}
		return render(cmd.OutOrStdout(), rows)
	},
}

var devicesForgetCmd = &cobra.Command{
	Use:   "forget <fingerprint>",
	Short: "Drop a trust marker",
	Long: `Drop the stored trust marker for a fingerprint. The next login from this
device will require MFA again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := application.Trusted().Forget(cmd.Context(), args[0]); err != nil {
			return err
		}
		format.Success(cmd.OutOrStdout(), colors(), "Trust marker removed")
		return nil
	},
}

func init() {
	devicesCmd.AddCommand(devicesListCmd)
	devicesCmd.AddCommand(devicesForgetCmd)
}
