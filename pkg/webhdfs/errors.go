package webhdfs

import (
	"errors"
	"net/http"

	"github.com/webhdfs/webhdfs_sdk_go/internal/httpx"
)

// OpError records the operation and path of a failed call.
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "webhdfs: " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches ErrNotFound when the name node answered 404 or reported a
// FileNotFoundException.
func (e *OpError) Is(target error) bool {
	if target != ErrNotFound {
		return false
	}
	var httpErr *httpx.HTTPError
	if !errors.As(e.Err, &httpErr) {
		return false
	}
	if httpErr.Remote != nil {
		return httpErr.Remote.Exception == "FileNotFoundException"
	}
	return httpErr.StatusCode == http.StatusNotFound
}

// StatusCode returns the HTTP status carried by err, or 0 when err did not
// come from a completed exchange.
func StatusCode(err error) int {
	var httpErr *httpx.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	var decodeErr *httpx.DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr.StatusCode
	}
	return 0
}
