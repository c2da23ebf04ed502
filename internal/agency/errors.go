package agency

import (
	"context"
	"errors"
	"fmt"
	"net"

	dErrors "credbridge/pkg/domain-errors"
)

// UpstreamError describes a failed platform call. StatusCode is zero when the
// request never produced an HTTP response.
type UpstreamError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("platform %s failed: status %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("platform %s failed: %s", e.Operation, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the call was abandoned because its deadline passed.
func (e *UpstreamError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// AsUpstream extracts the UpstreamError from a domain error chain.
func AsUpstream(err error) (*UpstreamError, bool) {
	var up *UpstreamError
	if errors.As(err, &up) {
		return up, true
	}
	return nil, false
}

func upstreamFailure(op string, status int, message string, cause error) error {
	up := &UpstreamError{Operation: op, StatusCode: status, Message: message, Err: cause}
	return dErrors.Wrap(up, dErrors.CodeUpstream, up.Error())
}
