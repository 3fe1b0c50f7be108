package propagator

import (
	"context"
	"errors"
	"net/http"

	"github.com/tyljohnny/davsync/internal/davclient"
)

// ErrAborted is returned by in-flight transfers once cancellation has been
// observed at a chunk boundary.
var ErrAborted = errors.New("propagator: aborted by user")

// classify maps a transport outcome to one of the four propagation
// classes. ignoredStatus lets a caller pre-declare a status code that is
// not actually an error for this particular verb (404 for DELETE, 405 for
// MKCOL).
func classify(err error, status int, ignoredStatus int) Result {
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrAborted) {
		return Failed(StatusNormalError, ErrAborted)
	}

	var te *davclient.TransportError
	if errors.As(err, &te) {
		switch {
		case te.Fatal:
			return Failed(StatusFatalError, err)
		case te.Soft:
			return Failed(StatusSoftError, err)
		default:
			return Failed(StatusNormalError, err)
		}
	}

	if err != nil {
		// an error that is not a TransportError carries no severity of its
		// own (a local write failure, a broken gzip stream): NormalError.
		// Transport failures such as DNS or connect errors arrive as a
		// TransportError with Fatal set and are handled above.
		return Failed(StatusNormalError, err)
	}

	if status == ignoredStatus {
		return Succeeded()
	}

	switch {
	case status >= 200 && status < 300:
		return Succeeded()
	case status == http.StatusPreconditionFailed,
		status == http.StatusTooManyRequests,
		status == http.StatusServiceUnavailable,
		status >= 300 && status < 400:
		return Failed(StatusSoftError, httpStatusError(status))
	case status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		status == http.StatusProxyAuthRequired,
		status == http.StatusRequestTimeout:
		return Failed(StatusFatalError, httpStatusError(status))
	default:
		return Failed(StatusNormalError, httpStatusError(status))
	}
}

func httpStatusError(status int) error {
	return errors.New(http.StatusText(status))
}
