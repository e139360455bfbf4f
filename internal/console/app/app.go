package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/forgeplex/psp-console/internal/console/domain"
	"github.com/forgeplex/psp-console/internal/console/flow"
	"github.com/forgeplex/psp-console/internal/console/store"
	"github.com/forgeplex/psp-console/internal/console/store/drivers/sqlite"
	"github.com/forgeplex/psp-console/pkg/consolesdk"
	"github.com/forgeplex/psp-console/pkg/slogx"
	"github.com/forgeplex/psp-console/pkg/webauthnx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the console together: configuration, logging, the local
// state database, the backend client, and the login flow components.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db  store.Store
	api *consolesdk.Client

	issuer  *flow.TokenIssuer
	trusted *flow.TrustedDeviceRegistry
	coord   *flow.Coordinator
}

// New builds an Application. authenticator may be nil when the passkey path
// is unavailable on this machine.
func New(cfg Config, authenticator webauthnx.Authenticator) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "psp-admin",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	app.initClient()
	app.initFlow(authenticator)

	return app, nil
}

func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(app.cfg.State.DatabaseFile)
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		db.Close()
		return fmt.Errorf("migrate state database: %w", err)
	}
	app.db = db
	return nil
}

func (app *Application) initClient() {
	app.api = consolesdk.NewClient(app.cfg.API.URL, app.cfg.API.Timeout)
	app.api.OnAuthFailure = func() {
		app.logger.Info("access token rejected, clearing stored session")
		if err := app.issuer.Clear(context.Background()); err != nil {
			app.logger.Error("clearing stored session failed", "error", err)
		}
	}
}

func (app *Application) initFlow(authenticator webauthnx.Authenticator) {
	app.issuer = flow.NewTokenIssuer(app.db.Tokens())
	app.trusted = flow.NewTrustedDeviceRegistry(app.db.Devices())

	app.coord = flow.NewCoordinator(flow.Config{
		API:            app.api,
		Issuer:         app.issuer,
		TrustedDevices: app.trusted,
		Enrollment:     flow.NewTOTPEnrollment(app.api),
		Passkeys:       flow.NewPasskeyCeremony(app.api, authenticator),
		ConsumedCodes:  app.db.ConsumedCodes(),
		Logger:         app.logger,
	})
}

func (app *Application) Config() Config                       { return app.cfg }
func (app *Application) Logger() *slog.Logger                 { return app.logger }
func (app *Application) API() *consolesdk.Client              { return app.api }
func (app *Application) Coordinator() *flow.Coordinator       { return app.coord }
func (app *Application) Issuer() *flow.TokenIssuer            { return app.issuer }
func (app *Application) Trusted() *flow.TrustedDeviceRegistry { return app.trusted }

// Logout revokes the session with the backend and clears local state. A
// backend failure still clears locally; the token would expire server-side
// anyway.
func (app *Application) Logout(ctx context.Context) error {
	pair, _, err := app.issuer.Current(ctx)
	if err == nil && !pair.Empty() {
		if err := app.api.Logout(ctx, pair.AccessToken); err != nil {
			app.logger.Warn("backend logout failed", "error", err)
		}
	}
	return app.issuer.Clear(ctx)
}

// RefreshTokens exchanges the stored refresh token for a new pair.
func (app *Application) RefreshTokens(ctx context.Context) error {
	pair, _, err := app.issuer.Current(ctx)
	if err != nil {
		return fmt.Errorf("no stored session: %w", err)
	}
	resp, err := app.api.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		return err
	}
	return app.issuer.Persist(ctx, pairFromTokens(resp))
}

// RegenerateBackupCodes reissues the account's recovery codes and returns a
// vault holding them for their single display.
func (app *Application) RegenerateBackupCodes(ctx context.Context) (*flow.BackupCodeVault, error) {
	pair, _, err := app.issuer.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("no stored session: %w", err)
	}
	codes, err := app.api.RegenerateBackupCodes(ctx, pair.AccessToken)
	if err != nil {
		return nil, err
	}
	return flow.NewBackupCodeVault(codes), nil
}

// Close releases the state database.
func (app *Application) Close() error {
	if app.db == nil {
		return nil
	}
	return app.db.Close()
}

func pairFromTokens(resp *consolesdk.TokenResponse) domain.TokenPair {
	return domain.TokenPair{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	}
}
