package httpx

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// HandshakeState is a step of the two-phase write protocol.
type HandshakeState int

const (
	StateAwaitingRedirect HandshakeState = iota
	StateSendingPayload
	StateDone
	StateFailed
)

func (s HandshakeState) String() string {
	switch s {
	case StateAwaitingRedirect:
		return "awaiting_redirect"
	case StateSendingPayload:
		return "sending_payload"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("HandshakeState(%d)", int(s))
	}
}

// Handshake drives one redirected write:
//
//	AwaitingRedirect -> SendingPayload -> Done
//	        \                  \
//	         -> Failed          -> Failed
//
// Each transition is a separate method so the protocol can be exercised
// without a network.
type Handshake struct {
	method  string
	payload []byte

	state  HandshakeState
	target string
	status int
	err    error
}

// NewHandshake prepares a handshake for the given verb and payload. The
// payload is sent on phase 2 using the same verb as phase 1.
func NewHandshake(method string, payload []byte) *Handshake {
	return &Handshake{
		method:  method,
		payload: payload,
		state:   StateAwaitingRedirect,
	}
}

// State returns the current protocol state.
func (h *Handshake) State() HandshakeState { return h.state }

// Target returns the data-node URL once the redirect has been accepted.
func (h *Handshake) Target() string { return h.target }

// Status returns the phase-2 status once Done, or StatusHandshakeFailed if the
// handshake failed before the payload was sent.
func (h *Handshake) Status() int { return h.status }

// Err returns the failure that moved the handshake to Failed.
func (h *Handshake) Err() error { return h.err }

// AcceptRedirect consumes the phase-1 response from the name service.
func (h *Handshake) AcceptRedirect(resp *http.Response) error {
	if h.state != StateAwaitingRedirect {
		return fmt.Errorf("httpx: handshake in state %s cannot accept a redirect", h.state)
	}
	if resp == nil {
		return h.fail(fmt.Errorf("%w: no response", ErrRedirectExpected))
	}
	if resp.StatusCode != http.StatusTemporaryRedirect {
		return h.fail(fmt.Errorf("%w: got status %d", ErrRedirectExpected, resp.StatusCode))
	}
	target, err := ParseLocation(resp.Header)
	if err != nil {
		return h.fail(err)
	}
	h.target = target
	h.state = StateSendingPayload
	return nil
}

// PayloadRequest builds the phase-2 request carrying the payload.
func (h *Handshake) PayloadRequest(ctx context.Context) (*http.Request, error) {
	if h.state != StateSendingPayload {
		return nil, fmt.Errorf("httpx: handshake in state %s cannot send payload", h.state)
	}
	req, err := http.NewRequestWithContext(ctx, h.method, h.target, bytes.NewReader(h.payload))
	if err != nil {
		return nil, h.fail(fmt.Errorf("httpx: build payload request: %w", err))
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = int64(len(h.payload))
	return req, nil
}

// Complete records the phase-2 response. Its status is kept verbatim.
func (h *Handshake) Complete(resp *http.Response) (int, error) {
	if h.state != StateSendingPayload {
		return 0, fmt.Errorf("httpx: handshake in state %s cannot complete", h.state)
	}
	h.status = resp.StatusCode
	h.state = StateDone
	return h.status, nil
}

// Abort moves the handshake to Failed after a transport error.
func (h *Handshake) Abort(err error) error {
	if h.state == StateSendingPayload {
		h.state = StateFailed
		h.err = err
		return err
	}
	return h.fail(err)
}

func (h *Handshake) fail(err error) error {
	h.state = StateFailed
	h.status = StatusHandshakeFailed
	h.err = err
	return err
}

// ParseLocation extracts the data-node URL from a 307 response header. The
// header must hold exactly one absolute http(s) URL; surrounding whitespace,
// including a stray carriage return, is not part of the URL.
func ParseLocation(h http.Header) (string, error) {
	values := h.Values("Location")
	switch len(values) {
	case 0:
		return "", fmt.Errorf("%w: header absent", ErrMalformedLocation)
	case 1:
	default:
		return "", fmt.Errorf("%w: %d values", ErrMalformedLocation, len(values))
	}
	loc := strings.TrimSpace(values[0])
	if loc == "" {
		return "", fmt.Errorf("%w: empty value", ErrMalformedLocation)
	}
	u, err := url.Parse(loc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedLocation, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not an absolute URL", ErrMalformedLocation, loc)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrMalformedLocation, u.Scheme)
	}
	return loc, nil
}
