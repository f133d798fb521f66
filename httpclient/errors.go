package httpclient

import (
	"errors"
	"fmt"
	"net"
)

// StatusError wraps a non-2xx response that a caller may want to classify
// by status code, mirroring the teacher's httpStatusError.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpclient: unexpected status %d", e.StatusCode)
}

// isRetryable reports whether err indicates a transient condition worth
// retrying, grounded on the teacher's isRetryable classification: a fixed
// set of retryable HTTP statuses, or a network timeout.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case 408, 425, 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
