package auth

import (
	"errors"
	"fmt"
)

// CredentialUnavailableError means the federated token file is absent or
// empty. Retrying cannot succeed without external remediation, so callers
// fail fast on it.
type CredentialUnavailableError struct {
	Path string
	Err  error
}

func (e *CredentialUnavailableError) Error() string {
	return fmt.Sprintf("federated credential unavailable at %s: %v", e.Path, e.Err)
}

func (e *CredentialUnavailableError) Unwrap() error {
	return e.Err
}

// TokenExchangeError means the identity provider rejected the exchange or
// returned an unusable token. It is fatal for the current cycle.
type TokenExchangeError struct {
	// StatusCode is the HTTP status from the token endpoint, zero when
	// the failure happened before a response arrived.
	StatusCode int
	Reason     string
	// Transient marks transport-level failures, the only class a caller
	// may reasonably retry.
	Transient bool
	Err       error
}

func (e *TokenExchangeError) Error() string {
	if e.Err != nil {
		if e.StatusCode != 0 {
			return fmt.Sprintf("token exchange failed (status %d): %s: %v", e.StatusCode, e.Reason, e.Err)
		}
		return fmt.Sprintf("token exchange failed: %s: %v", e.Reason, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("token exchange failed (status %d): %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("token exchange failed: %s", e.Reason)
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}

// Retryable returns true for transport-level exchange failures. A
// non-success status from the provider usually indicates misconfiguration
// or an unissued federated credential and is never retried.
func (e *TokenExchangeError) Retryable() bool {
	return e.Transient
}

// IsCredentialUnavailableError returns true if the error means the token
// file is missing or empty.
func IsCredentialUnavailableError(err error) bool {
	var ce *CredentialUnavailableError
	return errors.As(err, &ce)
}

// IsTokenExchangeError returns true if the error came from the token
// exchange stage. This keeps the TokenFailed/CallFailed distinction
// visible at the process boundary.
func IsTokenExchangeError(err error) bool {
	var te *TokenExchangeError
	return errors.As(err, &te)
}

// IsRetryableExchangeError returns true when a bounded retry of the
// exchange could help.
func IsRetryableExchangeError(err error) bool {
	var te *TokenExchangeError
	if errors.As(err, &te) {
		return te.Retryable()
	}
	return false
}
