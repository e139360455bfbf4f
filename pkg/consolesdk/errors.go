package consolesdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Backend error codes the flow depends on. Credential codes are surfaced
// verbatim to the operator; the others drive flow decisions.
const (
	CodeInvalidCredentials = "AUTH_001"
	CodeAccountLocked      = "AUTH_002"
	CodeAccountDisabled    = "AUTH_003"
	CodeIPBanned           = "AUTH_004"

	CodeInvalidMFACode = "MFA_CODE_INVALID"
	CodeUsedMFACode    = "MFA_CODE_USED"
	CodePasskeyFailed  = "MFA_PASSKEY_FAILED"

	CodeSessionNotFound = "SESSION_NOT_FOUND"
	CodeSessionExpired  = "SESSION_EXPIRED"
)

// ErrorClass groups backend errors by how the flow must react to them.
type ErrorClass int

const (
	// ClassTransport covers network failures, timeouts and non-2xx responses
	// without a structured error body. Generic message, retry permitted.
	ClassTransport ErrorClass = iota

	// ClassCredential covers AUTH_* rejections on the credentials step.
	// Not retryable without user action.
	ClassCredential

	// ClassChallenge covers rejected TOTP/recovery codes and failed passkey
	// verification. Input is cleared and the user may retry immediately.
	ClassChallenge

	// ClassSession covers missing or expired login sessions. Fatal to the
	// current flow; the user must start over from credentials.
	ClassSession
)

// APIError is a structured error response from the backend.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Class reports how the flow must treat this error.
func (e *APIError) Class() ErrorClass {
	switch {
	case strings.HasPrefix(e.Code, "AUTH_"):
		return ClassCredential
	case strings.HasPrefix(e.Code, "SESSION_"):
		return ClassSession
	case strings.HasPrefix(e.Code, "MFA_"):
		return ClassChallenge
	default:
		return ClassTransport
	}
}

// ClassOf classifies any error coming out of the SDK. Anything that is not a
// structured *APIError is a transport failure.
func ClassOf(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Class()
	}
	return ClassTransport
}

// IsUsedCode reports whether err is the backend telling us a recovery code
// was already consumed. The UI surfaces this distinctly from a wrong code.
func IsUsedCode(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == CodeUsedMFACode
}

// IsSessionInvalid reports whether err means the login session is gone and
// the flow has to restart from credentials.
func IsSessionInvalid(err error) bool {
	return ClassOf(err) == ClassSession
}

// parseErrorResponse turns a non-2xx response into a typed error. A missing
// or unparseable body yields a transport-class APIError, except on a
// session-scoped route where 404/410 means the session itself is gone.
func parseErrorResponse(statusCode int, body []byte, sessionScoped bool) error {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		apiErr.StatusCode = statusCode
		return &apiErr
	}

	if sessionScoped && (statusCode == http.StatusNotFound || statusCode == http.StatusGone) {
		return &APIError{
			StatusCode: statusCode,
			Code:       CodeSessionNotFound,
			Message:    "login session not found or expired",
		}
	}

	return &APIError{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP %d: %s", statusCode, http.StatusText(statusCode)),
	}
}
