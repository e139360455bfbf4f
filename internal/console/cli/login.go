package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/forgeplex/psp-console/internal/console/domain"
	"github.com/forgeplex/psp-console/internal/console/flow"
	"github.com/forgeplex/psp-console/internal/format"
)

var (
	loginUsername  string
	loginTrust     bool
	loginCodesFile string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the admin backend",
	Long: `Sign in with username and password, then complete whichever MFA step the
backend asks for: a TOTP code, a recovery code, or first-time TOTP
enrollment. The password is prompted without echo and never stored.`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "username to sign in with")
	loginCmd.Flags().BoolVar(&loginTrust, "trust", false, "ask the backend to trust this device after TOTP verification")
	loginCmd.Flags().StringVar(&loginCodesFile, "codes-file", "", "write freshly issued backup codes to this file")
}

func runLogin(cmd *cobra.Command, args []string) error {
	co := application.Coordinator()
	ctx := cmd.Context()
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	if application.Issuer().Authenticated(ctx) {
		format.Warn(out, colors(), "already signed in, run `psp-admin logout` to switch accounts")
		return nil
	}
	for {
		snap := co.Snapshot()
		if snap.Err != nil {
			format.Fail(out, colors(), "%s", snap.Err.Message)
		}

		switch snap.State {
		case flow.StateCredentials:
			if err := stepCredentials(cmd, in, snap); err != nil {
				return err
			}
		case flow.StateMFAVerify:
			if err := stepVerify(cmd, in, snap); err != nil {
				return err
			}
		case flow.StateMFASetup:
			if err := stepSetup(cmd, in); err != nil {
				return err
			}
		case flow.StateBackupCodes:
			if err := stepBackupCodes(cmd, in); err != nil {
				return err
			}
		case flow.StateSuccess:
			format.Success(out, colors(), "Signed in as %s", snap.Username)
			return nil
		case flow.StateFailed:
			return errors.New("login attempt ended, start again with `psp-admin login`")
		default:
			return fmt.Errorf("unexpected login state %q", snap.State)
		}
	}
}

func stepCredentials(cmd *cobra.Command, in *bufio.Reader, snap flow.Snapshot) error {
	out := cmd.OutOrStdout()

	username := loginUsername
	if username == "" {
		username = snap.Username
	}
	if username == "" {
		fmt.Fprint(out, "Username: ")
		line, err := in.ReadString('\n')
		if err != nil {
			return err
		}
		username = strings.TrimSpace(line)
	} else {
		fmt.Fprintf(out, "Username: %s\n", username)
	}
	if username == "" {
		return errors.New("username is required")
	}

	password, err := readPassword(cmd, in)
	if err != nil {
		return err
	}
	if password == "" {
		return errors.New("password is required")
	}

	return application.Coordinator().SubmitCredentials(cmd.Context(), username, password)
}

// readPassword reads without echo on a real terminal and falls back to a
// plain line read when stdin is piped.
func readPassword(cmd *cobra.Command, in *bufio.Reader) (string, error) {
	out := cmd.OutOrStdout()
	fmt.Fprint(out, "Password: ")

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	line, err := in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func stepVerify(cmd *cobra.Command, in *bufio.Reader, snap flow.Snapshot) error {
	co := application.Coordinator()
	out := cmd.OutOrStdout()

	switch snap.ActiveMethod {
	case domain.MethodTOTP:
		// The coordinator clears the flag on entering the verify step.
		co.SetTrustDevice(loginTrust)
		fmt.Fprint(out, "Enter the 6-digit code from your authenticator (or 'recovery', 'back'): ")
	case domain.MethodRecovery:
		fmt.Fprint(out, "Enter a recovery code (or 'totp', 'back'): ")
	default:
		// The terminal has no passkey authenticator, so steer to the
		// methods it can complete.
		format.Warn(out, colors(), "passkeys are not available in the terminal, falling back to a recovery code")
		return co.SelectMethod(domain.MethodRecovery)
	}

	line, err := in.ReadString('\n')
	if err != nil {
		return err
	}
	input := strings.TrimSpace(line)

	switch strings.ToLower(input) {
	case "back":
		return co.Back()
	case "recovery":
		return co.SelectMethod(domain.MethodRecovery)
	case "totp":
		return co.SelectMethod(domain.MethodTOTP)
	case "":
		return nil
	}

	ctx := cmd.Context()
	if snap.ActiveMethod == domain.MethodRecovery {
		co.SetRecoveryInput(input)
		if !co.Snapshot().RecoverySubmittable {
			format.Fail(out, colors(), "recovery codes are at least 8 characters")
			return nil
		}
		return co.SubmitRecovery(ctx)
	}

	for _, ch := range input {
		if err := co.PushOTPDigit(ctx, ch); err != nil {
			return err
		}
	}
	return nil
}

func stepSetup(cmd *cobra.Command, in *bufio.Reader) error {
	co := application.Coordinator()
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if err := co.BeginEnrollment(ctx); err != nil {
		return err
	}
	material := co.Enrollment().Material()
	if material == nil {
		// Fetch failed; the snapshot error was already printed.
		return errors.New("could not fetch enrollment material")
	}

	fmt.Fprintln(out, "Two-factor authentication is required for your account.")
	fmt.Fprintln(out, "Add it to your authenticator app using this URI:")
	fmt.Fprintf(out, "\n  %s\n\n", material.QRCodeURI)
	if co.Enrollment().SecretRevealed() {
		fmt.Fprintf(out, "Manual-entry secret: %s\n\n", flow.GroupRecoveryCode(material.Secret))
	}

	fmt.Fprint(out, "Enter the 6-digit code from the app (or 'secret', 'back'): ")
	line, err := in.ReadString('\n')
	if err != nil {
		return err
	}
	input := strings.TrimSpace(line)
	switch strings.ToLower(input) {
	case "back":
		return co.Back()
	case "secret":
		co.Enrollment().RevealSecret(true)
		return nil
	}

	for _, ch := range input {
		if err := co.PushBindDigit(ctx, ch); err != nil {
			return err
		}
	}
	return nil
}

func stepBackupCodes(cmd *cobra.Command, in *bufio.Reader) error {
	co := application.Coordinator()
	out := cmd.OutOrStdout()

	vault := co.Vault()
	if vault == nil {
		return errors.New("backup codes are no longer available")
	}

	fmt.Fprintln(out, "\nYour recovery codes. Each works exactly once and they will not be shown again:")
	for _, code := range vault.Formatted() {
		fmt.Fprintf(out, "  %s\n", code)
	}
	fmt.Fprintln(out)

	if loginCodesFile != "" {
		f, err := os.OpenFile(loginCodesFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("write codes file: %w", err)
		}
		if _, err := vault.WriteTo(f); err != nil {
			f.Close()
			return fmt.Errorf("write codes file: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		format.Success(out, colors(), "Codes written to %s", loginCodesFile)
	}

	fmt.Fprint(out, "Type 'saved' once you have stored them: ")
	line, err := in.ReadString('\n')
	if err != nil {
		return err
	}
	if !strings.EqualFold(strings.TrimSpace(line), "saved") {
		return nil
	}

	if err := co.AcknowledgeBackupCodes(); err != nil {
		return err
	}
	return co.ConfirmBackupCodesSaved(cmd.Context())
}
