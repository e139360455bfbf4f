package flow

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/stretchr/testify/require"

	"github.com/forgeplex/psp-console/internal/console/domain"
	"github.com/forgeplex/psp-console/internal/console/store"
	"github.com/forgeplex/psp-console/pkg/consolesdk"
)

// memTokens is an in-memory store.Tokens that counts writes, so tests can
// assert persistence happens exactly once per flow.
type memTokens struct {
	mu        sync.Mutex
	pair      domain.TokenPair
	expiresAt time.Time
	has       bool
	saves     int
}

func (m *memTokens) Save(_ context.Context, pair domain.TokenPair, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair, m.expiresAt, m.has = pair, expiresAt, true
	m.saves++
	return nil
}

func (m *memTokens) Load(context.Context) (domain.TokenPair, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.has {
		return domain.TokenPair{}, time.Time{}, store.ErrNotFound
	}
	return m.pair, m.expiresAt, nil
}

func (m *memTokens) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair, m.expiresAt, m.has = domain.TokenPair{}, time.Time{}, false
	return nil
}

func (m *memTokens) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type memDevices struct {
	mu       sync.Mutex
	identity *domain.DeviceIdentity
	markers  map[string]domain.TrustedDeviceMarker
}

func newMemDevices() *memDevices {
	return &memDevices{markers: map[string]domain.TrustedDeviceMarker{}}
}

func (m *memDevices) Identity(context.Context) (domain.DeviceIdentity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return domain.DeviceIdentity{}, store.ErrNotFound
	}
	return *m.identity, nil
}

func (m *memDevices) SaveIdentity(_ context.Context, id domain.DeviceIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = &id
	return nil
}

func (m *memDevices) SaveMarker(_ context.Context, mk domain.TrustedDeviceMarker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markers[mk.Fingerprint] = mk
	return nil
}

func (m *memDevices) Marker(_ context.Context, fp string) (domain.TrustedDeviceMarker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mk, ok := m.markers[fp]
	if !ok {
		return domain.TrustedDeviceMarker{}, store.ErrNotFound
	}
	return mk, nil
}

func (m *memDevices) Markers(context.Context) ([]domain.TrustedDeviceMarker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.TrustedDeviceMarker, 0, len(m.markers))
	for _, mk := range m.markers {
		out = append(out, mk)
	}
	return out, nil
}

func (m *memDevices) DeleteMarker(_ context.Context, fp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.markers, fp)
	return nil
}

type memCodes struct {
	mu       sync.Mutex
	consumed map[string]map[string]bool
}

func newMemCodes() *memCodes {
	return &memCodes{consumed: map[string]map[string]bool{}}
}

func (m *memCodes) MarkConsumed(_ context.Context, sessionID, fp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.consumed[sessionID] == nil {
		m.consumed[sessionID] = map[string]bool{}
	}
	m.consumed[sessionID][fp] = true
	return nil
}

func (m *memCodes) Consumed(_ context.Context, sessionID, fp string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consumed[sessionID][fp], nil
}

func (m *memCodes) PurgeSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.consumed, sessionID)
	return nil
}

// testBackend is a scripted admin API. Tests install handlers per endpoint
// and read back per-path request counts.
type testBackend struct {
	mu     sync.Mutex
	counts map[string]int

	login         func(req consolesdk.LoginRequest) (int, any)
	verify        func(req consolesdk.VerifyRequest) (int, any)
	totpSetup     func() (int, any)
	totpBind      func(req consolesdk.TOTPBindRequest) (int, any)
	passkeyOpts        func() (int, any)
	passkeyVerify      func() (int, any)
	passkeyRegOpts     func() (int, any)
	passkeyRegComplete func() (int, any)

	// verifyGate, when set, blocks the verify handler until the channel is
	// closed. Used to keep a challenge in flight while the test acts.
	verifyGate chan struct{}

	srv *httptest.Server
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()
	b := &testBackend{counts: map[string]int{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req consolesdk.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		b.serve(w, r, func() (int, any) { return b.login(req) })
	})
	mux.HandleFunc("/api/admin/auth/mfa/verify", func(w http.ResponseWriter, r *http.Request) {
		var req consolesdk.VerifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		b.mu.Lock()
		gate := b.verifyGate
		b.mu.Unlock()
		if gate != nil {
			<-gate
		}
		b.serve(w, r, func() (int, any) { return b.verify(req) })
	})
	mux.HandleFunc("/api/admin/mfa/totp/setup", func(w http.ResponseWriter, r *http.Request) {
		b.serve(w, r, b.totpSetup)
	})
	mux.HandleFunc("/api/admin/mfa/totp/bind", func(w http.ResponseWriter, r *http.Request) {
		var req consolesdk.TOTPBindRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		b.serve(w, r, func() (int, any) { return b.totpBind(req) })
	})
	mux.HandleFunc("/api/admin/mfa/passkey/authentication/options", func(w http.ResponseWriter, r *http.Request) {
		b.serve(w, r, b.passkeyOpts)
	})
	mux.HandleFunc("/api/admin/mfa/passkey/authentication/verify", func(w http.ResponseWriter, r *http.Request) {
		b.serve(w, r, b.passkeyVerify)
	})
	mux.HandleFunc("/api/admin/mfa/passkey/registration/options", func(w http.ResponseWriter, r *http.Request) {
		b.serve(w, r, b.passkeyRegOpts)
	})
	mux.HandleFunc("/api/admin/mfa/passkey/registration/complete", func(w http.ResponseWriter, r *http.Request) {
		b.serve(w, r, b.passkeyRegComplete)
	})
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *testBackend) serve(w http.ResponseWriter, r *http.Request, h func() (int, any)) {
	b.mu.Lock()
	b.counts[r.URL.Path]++
	b.mu.Unlock()

	if h == nil {
		http.Error(w, "not scripted", http.StatusNotImplemented)
		return
	}
	status, body := h()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (b *testBackend) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[path]
}

func apiError(code, message string) map[string]string {
	return map[string]string{"code": code, "message": message}
}

// fakeAuthenticator satisfies webauthnx.Authenticator with canned behaviour.
type fakeAuthenticator struct {
	create func(ctx context.Context, opts *protocol.CredentialCreation) (*protocol.CredentialCreationResponse, error)
	get    func(ctx context.Context, opts *protocol.CredentialAssertion) (*protocol.CredentialAssertionResponse, error)
}

func (f *fakeAuthenticator) Create(ctx context.Context, opts *protocol.CredentialCreation) (*protocol.CredentialCreationResponse, error) {
	return f.create(ctx, opts)
}

func (f *fakeAuthenticator) Get(ctx context.Context, opts *protocol.CredentialAssertion) (*protocol.CredentialAssertionResponse, error) {
	return f.get(ctx, opts)
}

type testRig struct {
	backend *testBackend
	tokens  *memTokens
	devices *memDevices
	codes   *memCodes
	auth    *fakeAuthenticator
	co      *Coordinator
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	backend := newTestBackend(t)
	tokens := &memTokens{}
	devices := newMemDevices()
	codes := newMemCodes()
	auth := &fakeAuthenticator{}

	api := consolesdk.NewClient(backend.srv.URL, 5*time.Second)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	co := NewCoordinator(Config{
		API:            api,
		Issuer:         NewTokenIssuer(tokens),
		TrustedDevices: NewTrustedDeviceRegistry(devices),
		Enrollment:     NewTOTPEnrollment(api),
		Passkeys:       NewPasskeyCeremony(api, auth),
		ConsumedCodes:  codes,
		Logger:         log,
	})

	return &testRig{backend: backend, tokens: tokens, devices: devices, codes: codes, auth: auth, co: co}
}

// loginToVerify scripts a requires_verification login and drives the
// coordinator onto the mfa-verify step.
func (r *testRig) loginToVerify(t *testing.T, methods ...string) {
	t.Helper()
	if len(methods) == 0 {
		methods = []string{"totp", "passkey", "recovery"}
	}
	r.backend.login = func(consolesdk.LoginRequest) (int, any) {
		return http.StatusOK, consolesdk.LoginResponse{
			SessionID:         "sess-1",
			MFAStatus:         consolesdk.MFARequiresVerification,
			AvailableMFATypes: methods,
			MFA:               &consolesdk.MFAStatusPayload{Enabled: true, HasTOTP: true, BackupCodesRemaining: 8},
		}
	}
	require.NoError(t, r.co.SubmitCredentials(context.Background(), "ops@example.com", "hunter2"))
	require.Equal(t, StateMFAVerify, r.co.Snapshot().State)
}

func pushCode(t *testing.T, co *Coordinator, code string) {
	t.Helper()
	for _, ch := range code {
		require.NoError(t, co.PushOTPDigit(context.Background(), ch))
	}
}

func pushBindCode(t *testing.T, co *Coordinator, code string) {
	t.Helper()
	for _, ch := range code {
		require.NoError(t, co.PushBindDigit(context.Background(), ch))
	}
}

func okVerifyResponse() consolesdk.VerifyResponse {
	return consolesdk.VerifyResponse{
		Success:      true,
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresIn:    900,
	}
}
