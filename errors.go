package nucleus

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Sentinel errors classify the outcomes callers are expected to branch on.
// All of them survive wrapping, so use errors.Is to test.
var (
	// ErrCancelled reports that a pending interactive capture was cancelled
	// by the user before a token arrived.
	ErrCancelled = errors.New("nucleus: cancelled")

	// ErrNoToken reports that no credential is available (nothing stored, or
	// an acquisition flow finished without producing a token).
	ErrNoToken = errors.New("nucleus: no token")

	// ErrInvalidCredentials reports a rejected email/password pair.
	ErrInvalidCredentials = errors.New("nucleus: invalid credentials")

	// ErrCaptchaRequired reports that the login page demanded a CAPTCHA,
	// which the credential-exchange path cannot satisfy.
	ErrCaptchaRequired = errors.New("nucleus: captcha required")

	// ErrTwoFactorRequired reports that the account has two-factor
	// verification enabled.
	ErrTwoFactorRequired = errors.New("nucleus: two-factor verification required")

	// ErrAccountLocked reports a provider-side account lockout.
	ErrAccountLocked = errors.New("nucleus: account locked")

	// ErrSessionExpired reports that the stored credential is expired and
	// could not be refreshed; the caller must re-authenticate interactively.
	ErrSessionExpired = errors.New("nucleus: session expired")

	// ErrInvalidToken reports that the provider rejected the bearer token.
	ErrInvalidToken = errors.New("nucleus: invalid token")

	// ErrRateLimited reports HTTP 429 from the provider.
	ErrRateLimited = errors.New("nucleus: rate limited")
)

// ConfigError signals invalid client or authenticator configuration.
type ConfigError struct {
	Reason string
}

func (e ConfigError) Error() string {
	return "nucleus: config error: " + e.Reason
}

// HTTPError carries an unexpected non-2xx status together with the response
// body for diagnostics.
type HTTPError struct {
	Status int
	Body   string
}

func (e HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("nucleus: http error: status %d", e.Status)
	}
	return fmt.Sprintf("nucleus: http error: status %d: %s", e.Status, e.Body)
}

// ServerError reports a non-2xx status from an auth endpoint where the body
// carries no useful detail.
type ServerError struct {
	Status int
}

func (e ServerError) Error() string {
	return fmt.Sprintf("nucleus: server error: status %d", e.Status)
}

// DecodeError reports a response body that could not be decoded into the
// expected shape.
type DecodeError struct {
	Message string
	Cause   error
}

func (e DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("nucleus: decode error: %s: %v", e.Message, e.Cause)
	}
	return "nucleus: decode error: " + e.Message
}

func (e DecodeError) Unwrap() error { return e.Cause }

// MissingFieldError reports a response that decoded but lacked a required
// field (or, for list payloads, contained no entries at all).
type MissingFieldError struct {
	Field string
}

func (e MissingFieldError) Error() string {
	return "nucleus: missing field: " + e.Field
}

// TransportError wraps connection-level failures (DNS, TLS, timeouts).
type TransportError struct {
	Message string
	Cause   error
}

func (e TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("nucleus: transport error: %s: %v", e.Message, e.Cause)
	}
	return "nucleus: transport error: " + e.Message
}

func (e TransportError) Unwrap() error { return e.Cause }

const errorBodyLimit = 4 << 10

// statusError maps a non-2xx identity-endpoint response onto the error
// taxonomy. The caller keeps ownership of the body.
func statusError(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrInvalidToken
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return HTTPError{Status: resp.StatusCode, Body: string(body)}
	}
}
