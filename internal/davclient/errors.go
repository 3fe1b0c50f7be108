package davclient

import (
	"fmt"
	"io"
	"net/http"
)

// TransportError carries enough of the HTTP outcome for the propagator's
// classifier to bucket it without this package knowing about propagation
// semantics, trimmed to the two booleans the classifier actually branches on.
type TransportError struct {
	Operation string
	Status    int
	Message   string
	Soft      bool // precondition failed, rate limited, redirect-like
	Fatal     bool // DNS, TLS, auth, proxy-auth, connect, timeout
	Cause     error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("davclient: %s: %v", e.Operation, e.Cause)
	}
	if e.Message != "" {
		return fmt.Sprintf("davclient: %s: status %d: %s", e.Operation, e.Status, e.Message)
	}
	return fmt.Sprintf("davclient: %s: status %d", e.Operation, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Cause }

func fatal(op string, cause error) error {
	return &TransportError{Operation: op, Fatal: true, Cause: cause}
}

func softf(op string, status int) error {
	return &TransportError{Operation: op, Status: status, Soft: true}
}

// classifyStatus reports whether a raw HTTP status code should be treated
// as fatal (not worth retrying: auth/proxy-auth/timeout) or soft (worth
// retrying after a backoff: precondition failed, rate limited, a
// redirect-like 3xx) by the propagator's classifier. Kept in this package
// so every non-2xx response constructed here - not just the one
// hand-picked PutChunk case - carries the right bucket.
func classifyStatus(status int) (isFatal, isSoft bool) {
	switch {
	case status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		status == http.StatusProxyAuthRequired,
		status == http.StatusRequestTimeout:
		return true, false
	case status == http.StatusPreconditionFailed,
		status == http.StatusTooManyRequests,
		status == http.StatusServiceUnavailable,
		status >= 300 && status < 400:
		return false, true
	default:
		return false, false
	}
}

func statusError(op string, status int) error {
	isFatal, isSoft := classifyStatus(status)
	return &TransportError{Operation: op, Status: status, Fatal: isFatal, Soft: isSoft}
}

// apiError is the JSON error body some WebDAV gateways return alongside
// a non-2xx status, in place of (or in addition to) an XML error document.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusErrorWithBody decodes body as a JSON error payload when possible
// and attaches whatever message it finds to the resulting TransportError.
func statusErrorWithBody(op string, status int, body io.Reader) error {
	isFatal, isSoft := classifyStatus(status)
	err := &TransportError{Operation: op, Status: status, Fatal: isFatal, Soft: isSoft}
	if body == nil {
		return err
	}

	var ae apiError
	if decErr := jsonDecoder(body, &ae); decErr == nil {
		if ae.Message != "" {
			err.Message = ae.Message
		} else if ae.Error != "" {
			err.Message = ae.Error
		}
	}
	return err
}
