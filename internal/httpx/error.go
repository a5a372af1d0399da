package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/webhdfs/webhdfs_sdk_go/internal/webhdfsapi"
)

// StatusHandshakeFailed is the synthetic status reported when a redirected
// write fails before any payload is sent. It never equals a success code.
const StatusHandshakeFailed = http.StatusBadRequest

var (
	// ErrRedirectExpected indicates the name service did not answer phase 1
	// of a redirected write with 307 Temporary Redirect.
	ErrRedirectExpected = errors.New("httpx: expected 307 Temporary Redirect from name service")
	// ErrMalformedLocation indicates the 307 answer carried no usable
	// Location header.
	ErrMalformedLocation = errors.New("httpx: missing or malformed Location header")
)

// HTTPError represents an unexpected final status returned by the remote
// service in Raw or JSON mode.
type HTTPError struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	Remote     *webhdfsapi.RemoteException
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Remote != nil {
		return fmt.Sprintf("http error: status=%d remote=%s", e.StatusCode, e.Remote.Error())
	}
	return fmt.Sprintf("http error: status=%d body=%s", e.StatusCode, string(e.Body))
}

// DecodeError reports a nominal 200 JSON response whose body is not a JSON
// object.
type DecodeError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("httpx: decode json body (status=%d): %v", e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newHTTPError(resp *http.Response, body []byte) *HTTPError {
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header.Clone(),
		Remote:     webhdfsapi.DecodeRemoteException(body),
	}
}

// outcome classifies a dispatch result for logs and metrics.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var (
		httpErr   *HTTPError
		decodeErr *DecodeError
	)
	switch {
	case errors.As(err, &httpErr):
		return "status"
	case errors.As(err, &decodeErr):
		return "decode"
	case errors.Is(err, ErrRedirectExpected), errors.Is(err, ErrMalformedLocation):
		return "handshake"
	default:
		return "transport"
	}
}
