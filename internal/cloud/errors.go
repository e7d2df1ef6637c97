package cloud

import (
	"errors"
	"fmt"
)

// ErrNotConfigured means no remote backend is configured (missing base
// URL or credentials). Callers must treat this as "sync disabled", not a
// failure; no adapter call is attempted in that state.
var ErrNotConfigured = errors.New("remote backend not configured")

// ErrRemoteUnavailable means the backend is unreachable or refused the
// credentials. Retryable: queue items stay in place and the next cycle
// tries again.
var ErrRemoteUnavailable = errors.New("remote backend unavailable")

// RemoteRejectedError means the backend rejected the payload (validation
// or permissions). Non-retryable: the orchestrator counts attempts and
// parks the offending item rather than retrying forever.
type RemoteRejectedError struct {
	StatusCode int
	Message    string
}

func (e *RemoteRejectedError) Error() string {
	return fmt.Sprintf("remote rejected request (status %d): %s", e.StatusCode, e.Message)
}
