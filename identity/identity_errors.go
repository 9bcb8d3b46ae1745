package identity

import (
	"fmt"

	errs "github.com/rentdesk/sessiongate/internal/errors"
)

// UpstreamAuthError carries the backend's HTTP status and body when the
// credential-verification endpoint rejects an exchange. Callers log the
// detail; end users only ever see a generic message.
type UpstreamAuthError struct {
	Status int
	Body   string
}

func (e *UpstreamAuthError) Error() string {
	return fmt.Sprintf("backend rejected credential exchange: status %d: %s", e.Status, e.Body)
}

func (e *UpstreamAuthError) Unwrap() error {
	return errs.ErrUpstreamAuthFailure
}
