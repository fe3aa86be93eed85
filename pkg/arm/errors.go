package arm

import (
	"errors"
	"fmt"
	"net/http"
)

// APICallError means the ARM endpoint rejected or failed the orchestrators
// call, or returned a body that could not be decoded. It is fatal for the
// current cycle.
type APICallError struct {
	// StatusCode is zero when the failure happened before a response
	// arrived.
	StatusCode int
	Reason     string
	// Transient marks transport-level failures.
	Transient bool
	Err       error
}

func (e *APICallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("arm call failed (status %d): %s: %v", e.StatusCode, e.Reason, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("arm call failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("arm call failed: %s", e.Reason)
}

func (e *APICallError) Unwrap() error {
	return e.Err
}

// AuthorizationFailure returns true for 401/403 responses, which signal an
// expired token or a role-assignment gap rather than a service problem.
func (e *APICallError) AuthorizationFailure() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Retryable returns true for transport failures and 5xx responses.
// Authorization and client errors cannot succeed on retry.
func (e *APICallError) Retryable() bool {
	return e.Transient || e.StatusCode >= http.StatusInternalServerError
}

// IsAPICallError returns true if the error came from the ARM call stage.
func IsAPICallError(err error) bool {
	var ae *APICallError
	return errors.As(err, &ae)
}

// IsAuthorizationError returns true if ARM denied the call outright.
func IsAuthorizationError(err error) bool {
	var ae *APICallError
	if errors.As(err, &ae) {
		return ae.AuthorizationFailure()
	}
	return false
}

// IsRetryableAPIError returns true when a bounded retry of the call could
// help.
func IsRetryableAPIError(err error) bool {
	var ae *APICallError
	if errors.As(err, &ae) {
		return ae.Retryable()
	}
	return false
}
