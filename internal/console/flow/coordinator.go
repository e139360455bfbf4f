package flow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/forgeplex/psp-console/internal/console/domain"
	"github.com/forgeplex/psp-console/internal/console/store"
	"github.com/forgeplex/psp-console/pkg/consolesdk"
	"github.com/forgeplex/psp-console/pkg/cryptox"
	"github.com/forgeplex/psp-console/pkg/webauthnx"
)

// ErrNotAcknowledged is returned when the backup-codes confirm action is
// invoked before the user acknowledged saving the codes.
var ErrNotAcknowledged = errors.New("flow: backup codes not acknowledged")

// Config wires a Coordinator. All fields are required except Logger.
type Config struct {
	API            *consolesdk.Client
	Issuer         *TokenIssuer
	TrustedDevices *TrustedDeviceRegistry
	Enrollment     *TOTPEnrollment
	Passkeys       *PasskeyCeremony
	ConsumedCodes  store.ConsumedCodes
	Logger         *slog.Logger
}

// Coordinator drives the admin login flow. It owns the single State, applies
// every change through the transition table, and serialises all mutation
// behind one mutex. Network calls run outside the lock; each carries a
// sequence number taken when it started, and a response whose sequence is no
// longer current is discarded without touching any state.
type Coordinator struct {
	api     *consolesdk.Client
	issuer  *TokenIssuer
	trusted *TrustedDeviceRegistry
	enroll  *TOTPEnrollment
	passkey *PasskeyCeremony
	codes   store.ConsumedCodes
	log     *slog.Logger

	mu       sync.Mutex
	state    State
	session  domain.Session
	username string
	mfa      domain.MFAStatus
	resolver MFAChallengeResolver
	bind     otpInput
	vault    *BackupCodeVault

	// pending holds tokens received from the backend until the state machine
	// reaches success, which is the only point they are persisted.
	pending *domain.TokenPair

	lastErr     *FlowError
	busy        bool
	trustDevice bool

	seq    uint64
	cancel context.CancelFunc
}

func NewCoordinator(cfg Config) *Coordinator {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		api:     cfg.API,
		issuer:  cfg.Issuer,
		trusted: cfg.TrustedDevices,
		enroll:  cfg.Enrollment,
		passkey: cfg.Passkeys,
		codes:   cfg.ConsumedCodes,
		log:     log,
		state:   StateCredentials,
	}
}

// Snapshot is the read-only projection the UI renders from.
type Snapshot struct {
	State    State
	Busy     bool
	Err      *FlowError
	Username string
	Session  domain.Session

	Methods      []domain.MFAMethod
	ActiveMethod domain.MFAMethod
	OTPDigits    int
	BindDigits   int

	RecoveryInput       string
	RecoverySubmittable bool
	TrustDevice         bool

	MFA domain.MFAStatus

	EnrollmentReady bool
	HasBackupCodes  bool
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:               c.state,
		Busy:                c.busy,
		Err:                 c.lastErr,
		Username:            c.username,
		Session:             c.session,
		Methods:             c.resolver.Available(),
		ActiveMethod:        c.resolver.Active(),
		OTPDigits:           c.resolver.OTPLen(),
		BindDigits:          c.bind.Len(),
		RecoveryInput:       c.resolver.RecoveryInput(),
		RecoverySubmittable: c.resolver.RecoverySubmittable(),
		TrustDevice:         c.trustDevice,
		MFA:                 c.mfa,
		EnrollmentReady:     c.enroll.Material() != nil,
		HasBackupCodes:      c.vault != nil,
	}
}

// Vault returns the backup-code vault while the flow sits on the
// backup-codes step, nil otherwise.
func (c *Coordinator) Vault() *BackupCodeVault {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vault
}

// Enrollment exposes the enrollment component for rendering the setup step.
func (c *Coordinator) Enrollment() *TOTPEnrollment { return c.enroll }

// inflight describes one network attempt: the cancellable context it runs
// under, the sequence it was issued with, and the session it targets.
type inflight struct {
	ctx     context.Context
	seq     uint64
	session domain.Session
}

// begin validates state, marks the coordinator busy, and issues a fresh
// sequence number for one network attempt.
func (c *Coordinator) begin(ctx context.Context, want State) (inflight, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != want {
		return inflight{}, ErrInvalidState
	}
	if c.busy {
		return inflight{}, ErrBusy
	}
	c.busy = true
	c.lastErr = nil
	c.seq++
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	return inflight{ctx: reqCtx, seq: c.seq, session: c.session}, nil
}

// settle re-acquires the lock after a network attempt. It returns false,
// with the lock released, when the attempt's sequence is stale and its
// response must be dropped. On true the lock is held and the caller owns
// releasing it.
func (c *Coordinator) settle(in inflight) bool {
	c.mu.Lock()
	if in.seq != c.seq {
		c.mu.Unlock()
		c.log.Debug("discarding stale response", "seq", in.seq)
		return false
	}
	c.busy = false
	c.cancel = nil
	return true
}

// invalidateLocked cancels any in-flight attempt and advances the sequence
// so its eventual response is discarded.
func (c *Coordinator) invalidateLocked() {
	c.seq++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.busy = false
}

// apply resolves an event against the transition table. Illegal events are
// dropped with a warning rather than corrupting the state.
func (c *Coordinator) apply(ev Event) {
	next, ok := transition(c.state, ev)
	if !ok {
		c.log.Warn("event not legal in state", "state", c.state, "event", ev)
		return
	}
	prev := c.state
	c.state = next
	c.log.Debug("flow transition", "from", prev, "event", ev, "to", next)

	if next == StateFailed || (prev == StateMFASetup && next == StateCredentials) {
		// Leaving the setup step by any route kills the secret.
		c.enroll.Discard()
	}
}

// complete persists the pending token pair, once. Called with the lock held
// after every transition that can land in success.
func (c *Coordinator) complete(ctx context.Context) {
	if c.state != StateSuccess || c.pending == nil || c.pending.Empty() {
		return
	}
	pair := *c.pending
	c.pending = nil
	c.session.Status = domain.SessionVerified

	if err := c.issuer.Persist(ctx, pair); err != nil {
		c.log.Error("storing session tokens failed", "error", err)
		c.lastErr = &FlowError{
			Class:   consolesdk.ClassTransport,
			Message: "signed in, but storing the session locally failed",
		}
		return
	}
	if c.session.ID != "" {
		if err := c.codes.PurgeSession(ctx, c.session.ID); err != nil {
			c.log.Warn("purging consumed-code records failed", "error", err)
		}
	}
}

// SubmitCredentials runs the credential step. The password is sent and
// forgotten; it is never retained on the coordinator. Flow-level failures
// land in the snapshot, the returned error only reports misuse.
func (c *Coordinator) SubmitCredentials(ctx context.Context, username, password string) error {
	in, err := c.begin(ctx, StateCredentials)
	if err != nil {
		return err
	}

	req := consolesdk.LoginRequest{Username: username, Password: password}
	if fp, err := c.trusted.Fingerprint(in.ctx); err == nil {
		req.DeviceFingerprint = fp
	} else {
		c.log.Warn("device fingerprint unavailable", "error", err)
	}
	resp, loginErr := c.api.Login(in.ctx, req)

	if !c.settle(in) {
		return nil
	}
	defer c.mu.Unlock()

	c.username = username
	if loginErr != nil {
		c.log.Info("login rejected", "username", username)
		c.lastErr = flowErrorFrom(loginErr)
		c.apply(eventLoginRejected)
		return nil
	}

	c.session = domain.Session{
		ID:        resp.SessionID,
		CreatedAt: time.Now().UTC(),
		Status:    domain.SessionPending,
	}
	if resp.MFA != nil {
		c.mfa = domain.MFAStatus{
			Enabled:              resp.MFA.Enabled,
			HasTOTP:              resp.MFA.HasTOTP,
			HasPasskey:           resp.MFA.HasPasskey,
			PrimaryMethod:        domain.MFAMethod(resp.MFA.PrimaryMethod),
			BackupCodesRemaining: resp.MFA.BackupCodesRemaining,
		}
	}

	switch resp.MFAStatus {
	case consolesdk.MFAVerified, consolesdk.MFANotRequired:
		c.pending = &domain.TokenPair{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			ExpiresIn:    resp.ExpiresIn,
		}
		c.apply(eventLoginVerified)
		c.complete(ctx)
	case consolesdk.MFARequiresVerification:
		c.session.Status = domain.SessionMFARequired
		c.resolver.Reset(domain.MethodsFromStrings(resp.AvailableMFATypes))
		c.trustDevice = false
		c.apply(eventLoginNeedsVerify)
	case consolesdk.MFARequiresSetup:
		c.session.Status = domain.SessionMFARequired
		c.apply(eventLoginNeedsSetup)
	default:
		c.lastErr = &FlowError{
			Class:   consolesdk.ClassTransport,
			Message: "backend returned an unrecognised mfa status",
		}
		c.apply(eventLoginRejected)
	}
	return nil
}

// SelectMethod switches the active verification method. Any in-flight
// challenge for the previous method is cancelled and its response, should it
// still arrive, is discarded.
func (c *Coordinator) SelectMethod(m domain.MFAMethod) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateMFAVerify {
		return ErrInvalidState
	}
	c.invalidateLocked()
	if err := c.resolver.Select(m); err != nil {
		return err
	}
	c.lastErr = nil
	return nil
}

// SetTrustDevice records the trust-this-device choice. It only applies to
// TOTP verification; the backend ignores it elsewhere.
func (c *Coordinator) SetTrustDevice(v bool) {
	c.mu.Lock()
	c.trustDevice = v
	c.mu.Unlock()
}

// PushOTPDigit feeds one digit of the one-time code. The sixth digit submits
// the challenge automatically; until then nothing leaves the client. Digits
// arriving while a submit is pending are dropped, matching a disabled input.
func (c *Coordinator) PushOTPDigit(ctx context.Context, ch rune) error {
	c.mu.Lock()
	if c.state != StateMFAVerify {
		c.mu.Unlock()
		return ErrInvalidState
	}
	if c.busy || c.resolver.Active() != domain.MethodTOTP {
		c.mu.Unlock()
		return nil
	}
	code, ready := c.resolver.PushDigit(ch)
	c.mu.Unlock()
	if !ready {
		return nil
	}
	return c.submitChallenge(ctx, domain.MethodTOTP, code)
}

// SetRecoveryInput buffers the normalized recovery code as the user types.
func (c *Coordinator) SetRecoveryInput(raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateMFAVerify || c.busy {
		return
	}
	c.resolver.SetRecoveryInput(raw)
}

// SubmitRecovery sends the buffered recovery code.
func (c *Coordinator) SubmitRecovery(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateMFAVerify {
		c.mu.Unlock()
		return ErrInvalidState
	}
	if c.resolver.Active() != domain.MethodRecovery || !c.resolver.RecoverySubmittable() {
		c.mu.Unlock()
		return ErrInvalidState
	}
	code := c.resolver.RecoveryInput()
	c.mu.Unlock()
	return c.submitChallenge(ctx, domain.MethodRecovery, code)
}

func (c *Coordinator) submitChallenge(ctx context.Context, method domain.MFAMethod, code string) error {
	in, err := c.begin(ctx, StateMFAVerify)
	if err != nil {
		return err
	}

	// A recovery code this client already consumed for this session is
	// rejected locally, before any network traffic.
	codeFP := cryptox.FingerprintCode(code)
	if method == domain.MethodRecovery {
		if used, err := c.codes.Consumed(in.ctx, in.session.ID, codeFP); err == nil && used {
			if c.settle(in) {
				c.lastErr = usedCodeError()
				c.resolver.ClearInputs()
				c.apply(eventChallengeFailed)
				c.mu.Unlock()
			}
			return nil
		}
	}

	req := consolesdk.VerifyRequest{Method: string(method), Code: code}
	if method == domain.MethodTOTP && c.trustRequested() {
		if fp, err := c.trusted.Fingerprint(in.ctx); err == nil {
			req.TrustDevice = true
			req.DeviceFingerprint = fp
		}
	}
	resp, verifyErr := c.api.Verify(in.ctx, in.session.ID, req)

	if !c.settle(in) {
		return nil
	}
	defer c.mu.Unlock()

	if verifyErr != nil {
		c.challengeFailed(verifyErr)
		return nil
	}

	if method == domain.MethodRecovery {
		if err := c.codes.MarkConsumed(ctx, in.session.ID, codeFP); err != nil {
			c.log.Warn("recording consumed recovery code failed", "error", err)
		}
		if resp.BackupCodesRemaining != nil {
			c.mfa.BackupCodesRemaining = *resp.BackupCodesRemaining
		}
	}
	if resp.TrustedUntil != "" {
		c.noteTrust(ctx, resp.TrustedUntil)
	}

	c.pending = &domain.TokenPair{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	}
	c.apply(eventChallengePassed)
	c.complete(ctx)
	return nil
}

func (c *Coordinator) trustRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trustDevice
}

// challengeFailed routes a verification error. Session-class errors end the
// attempt; everything else re-renders the step with the error and cleared
// input. Called with the lock held.
func (c *Coordinator) challengeFailed(err error) {
	c.lastErr = flowErrorFrom(err)
	if consolesdk.ClassOf(err) == consolesdk.ClassSession {
		c.session.Status = domain.SessionExpired
		c.apply(eventSessionLost)
		return
	}
	c.resolver.ClearInputs()
	c.apply(eventChallengeFailed)
}

// noteTrust parses the server-granted trust expiry and records it against
// this device. Called with the lock held.
func (c *Coordinator) noteTrust(ctx context.Context, trustedUntil string) {
	until, err := time.Parse(time.RFC3339, trustedUntil)
	if err != nil {
		c.log.Warn("unparseable trusted_until in verify response", "value", trustedUntil)
		return
	}
	fp, err := c.trusted.Fingerprint(ctx)
	if err == nil {
		err = c.trusted.Note(ctx, fp, until)
	}
	if err != nil {
		c.log.Warn("recording trust marker failed", "error", err)
	}
}

// UsePasskey runs the passkey ceremony for the active session. A cancelled
// ceremony is a non-event: no error is shown and the step stays as it was.
func (c *Coordinator) UsePasskey(ctx context.Context) error {
	in, err := c.begin(ctx, StateMFAVerify)
	if err != nil {
		return err
	}

	resp, pkErr := c.passkey.Authenticate(in.ctx, in.session.ID)

	if !c.settle(in) {
		return nil
	}
	defer c.mu.Unlock()

	if pkErr != nil {
		if webauthnx.Cancelled(pkErr) {
			c.log.Debug("passkey ceremony cancelled")
			return nil
		}
		c.challengeFailed(pkErr)
		return nil
	}

	c.pending = &domain.TokenPair{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	}
	c.apply(eventChallengePassed)
	c.complete(ctx)
	return nil
}

// BeginEnrollment fetches TOTP enrollment material for the setup step. Safe
// to call repeatedly; material already held is reused.
func (c *Coordinator) BeginEnrollment(ctx context.Context) error {
	in, err := c.begin(ctx, StateMFASetup)
	if err != nil {
		return err
	}

	setupErr := c.enroll.Setup(in.ctx, in.session.ID)

	if !c.settle(in) {
		return nil
	}
	defer c.mu.Unlock()

	if setupErr != nil {
		c.lastErr = flowErrorFrom(setupErr)
		if consolesdk.ClassOf(setupErr) == consolesdk.ClassSession {
			c.session.Status = domain.SessionExpired
			c.apply(eventSessionLost)
		}
	}
	return nil
}

// EnrollPasskey runs the registration ceremony during setup, adding a passkey
// for future logins. Optional; the TOTP bind still advances the flow.
func (c *Coordinator) EnrollPasskey(ctx context.Context) error {
	in, err := c.begin(ctx, StateMFASetup)
	if err != nil {
		return err
	}

	regErr := c.passkey.Register(in.ctx, in.session.ID)

	if !c.settle(in) {
		return nil
	}
	defer c.mu.Unlock()

	if regErr != nil {
		if webauthnx.Cancelled(regErr) {
			c.log.Debug("passkey registration cancelled")
			return nil
		}
		c.lastErr = flowErrorFrom(regErr)
		if consolesdk.ClassOf(regErr) == consolesdk.ClassSession {
			c.session.Status = domain.SessionExpired
			c.apply(eventSessionLost)
		} else {
			c.apply(eventBindRejected)
		}
		return nil
	}

	c.log.Info("passkey enrolled", "session_id", c.session.ID)
	return nil
}

// PushBindDigit feeds one digit of the enrollment confirmation code; the
// sixth digit submits the bind.
func (c *Coordinator) PushBindDigit(ctx context.Context, ch rune) error {
	c.mu.Lock()
	if c.state != StateMFASetup {
		c.mu.Unlock()
		return ErrInvalidState
	}
	if c.busy {
		c.mu.Unlock()
		return nil
	}
	code, ready := c.bind.Push(ch)
	c.mu.Unlock()
	if !ready {
		return nil
	}
	return c.submitBind(ctx, code)
}

func (c *Coordinator) submitBind(ctx context.Context, code string) error {
	in, err := c.begin(ctx, StateMFASetup)
	if err != nil {
		return err
	}

	resp, bindErr := c.enroll.Bind(in.ctx, in.session.ID, code)

	if !c.settle(in) {
		return nil
	}
	defer c.mu.Unlock()

	if bindErr != nil {
		c.lastErr = flowErrorFrom(bindErr)
		c.bind.Clear()
		if consolesdk.ClassOf(bindErr) == consolesdk.ClassSession {
			c.session.Status = domain.SessionExpired
			c.apply(eventSessionLost)
			return nil
		}
		c.apply(eventBindRejected)
		return nil
	}
	if !resp.Success {
		c.lastErr = &FlowError{
			Class:   consolesdk.ClassChallenge,
			Code:    consolesdk.CodeInvalidMFACode,
			Message: "that code did not match, check your authenticator app and try again",
		}
		c.bind.Clear()
		c.apply(eventBindRejected)
		return nil
	}

	material := c.enroll.Material()
	if material != nil {
		c.vault = NewBackupCodeVault(material.BackupCodes)
	}
	c.enroll.Discard()
	c.pending = &domain.TokenPair{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	}
	c.apply(eventBindVerified)
	return nil
}

// AcknowledgeBackupCodes records the user's confirmation that the codes are
// saved.
func (c *Coordinator) AcknowledgeBackupCodes() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateBackupCodes || c.vault == nil {
		return ErrInvalidState
	}
	c.vault.Acknowledge()
	return nil
}

// ConfirmBackupCodesSaved completes enrollment. It refuses until the codes
// have been acknowledged, then moves to success and persists the tokens held
// since the bind.
func (c *Coordinator) ConfirmBackupCodesSaved(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateBackupCodes || c.vault == nil {
		return ErrInvalidState
	}
	if !c.vault.Acknowledged() {
		return ErrNotAcknowledged
	}
	c.vault = nil
	c.apply(eventCodesSaved)
	c.complete(ctx)
	return nil
}

// Back returns from a verification or setup step to the credential step. The
// username survives for re-display; the session, any buffered input, and any
// enrollment material do not. An in-flight request is cancelled and its
// response discarded.
func (c *Coordinator) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateMFAVerify && c.state != StateMFASetup {
		return ErrInvalidState
	}
	c.invalidateLocked()
	c.enroll.Discard()
	c.resolver.ClearInputs()
	c.bind.Clear()
	c.session = domain.Session{}
	c.trustDevice = false
	c.lastErr = nil
	c.apply(eventBack)
	return nil
}

// Restart leaves the failed state for a fresh credential step. Only the
// username carries over.
func (c *Coordinator) Restart() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateFailed {
		return ErrInvalidState
	}
	c.invalidateLocked()
	c.enroll.Discard()
	c.resolver.ClearInputs()
	c.bind.Clear()
	c.session = domain.Session{}
	c.pending = nil
	c.vault = nil
	c.trustDevice = false
	c.lastErr = nil
	c.apply(eventRestart)
	return nil
}
