package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forgeplex/psp-console/internal/format"
)

var regenerateCodesFile string

var backupCodesCmd = &cobra.Command{
	Use:   "backup-codes",
	Short: "Manage recovery codes",
}

var regenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Issue a fresh set of recovery codes",
	Long: `Issue a fresh set of recovery codes for the signed-in account. Every
previously issued code stops working the moment this succeeds.`,
	RunE: runRegenerate,
}

func init() {
	regenerateCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	regenerateCmd.Flags().StringVar(&regenerateCodesFile, "codes-file", "", "write the new codes to this file")
	backupCodesCmd.AddCommand(regenerateCmd)
}

func runRegenerate(cmd *cobra.Command, args []string) error {
	if err := requireSignedIn(cmd); err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		fmt.Fprint(out, "This invalidates all existing recovery codes. Continue? [y/N] ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil {
			return err
		}
		if !strings.EqualFold(strings.TrimSpace(line), "y") {
			fmt.Fprintln(out, "Aborted")
			return nil
		}
	}

	vault, err := application.RegenerateBackupCodes(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\nYour new recovery codes. Each works exactly once and they will not be shown again:")
	for _, code := range vault.Formatted() {
		fmt.Fprintf(out, "  %s\n", code)
	}
	fmt.Fprintln(out)

	if regenerateCodesFile != "" {
		f, err := os.OpenFile(regenerateCodesFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("write codes file: %w", err)
		}
		defer f.Close()
		if _, err := vault.WriteTo(f); err != nil {
			return fmt.Errorf("write codes file: %w", err)
		}
		format.Success(out, colors(), "Codes written to %s", regenerateCodesFile)
	}

	format.Warn(out, colors(), "All previously issued codes are now invalid")
	return nil
}
