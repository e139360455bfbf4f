// Package consolesdk is a typed HTTP client for the PSP admin backend's
// authentication surface: credential login, TOTP enrollment and binding,
// TOTP/recovery-code verification, passkey ceremonies, backup-code
// regeneration, token refresh and logout.
//
// The client is deliberately thin. It translates wire payloads and error
// bodies into Go types and leaves all flow decisions (state transitions,
// retries, input handling) to the caller. Unauthenticated MFA-scoped calls
// carry the login session id in the X-Session-ID header; authenticated calls
// carry a bearer token.
//
// Errors are returned as *APIError when the backend produced a structured
// error body, classified into credential, challenge, session and transport
// classes. A 401 from an endpoint outside the auth surface invokes the
// client's OnAuthFailure hook, which the application uses to clear persisted
// tokens; 401s from login/MFA/refresh endpoints never do, since a rejected
// code or credential is their expected failure mode.
package consolesdk
