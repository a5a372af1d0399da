package httpx

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readResponse(t *testing.T, raw string) *http.Response {
	t.Helper()
	resp, err := http.ReadResponse(bufio.NewReader(strings.NewReader(raw)), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHandshakeHappyPath(t *testing.T) {
	payload := []byte("0123456789")
	hs := NewHandshake(http.MethodPut, payload)
	assert.Equal(t, StateAwaitingRedirect, hs.State())

	resp := readResponse(t, "HTTP/1.1 307 Temporary Redirect\r\n"+
		"Location: http://node2:9000/path?op=CREATE&user.name=hdfs\r\n"+
		"Content-Length: 0\r\n\r\n")
	require.NoError(t, hs.AcceptRedirect(resp))
	assert.Equal(t, StateSendingPayload, hs.State())
	assert.Equal(t, "http://node2:9000/path?op=CREATE&user.name=hdfs", hs.Target())

	req, err := hs.PayloadRequest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "node2:9000", req.URL.Host)
	assert.Equal(t, "/path", req.URL.Path)
	assert.Equal(t, "op=CREATE&user.name=hdfs", req.URL.RawQuery)
	assert.Equal(t, "application/octet-stream", req.Header.Get("Content-Type"))
	assert.Equal(t, int64(len(payload)), req.ContentLength)
	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, body)

	status, err := hs.Complete(&http.Response{StatusCode: http.StatusCreated})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, StateDone, hs.State())
	assert.Equal(t, http.StatusCreated, hs.Status())
	assert.NoError(t, hs.Err())
}

func TestHandshakeEmptyPayload(t *testing.T) {
	hs := NewHandshake(http.MethodPut, nil)
	require.NoError(t, hs.AcceptRedirect(&http.Response{
		StatusCode: http.StatusTemporaryRedirect,
		Header:     http.Header{"Location": []string{"http://dn:9864/webhdfs/v1/e"}},
	}))
	req, err := hs.PayloadRequest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), req.ContentLength)
	assert.Equal(t, "application/octet-stream", req.Header.Get("Content-Type"))
}

func TestHandshakeRejectsNonRedirect(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusCreated, http.StatusFound, http.StatusForbidden, http.StatusInternalServerError} {
		hs := NewHandshake(http.MethodPost, []byte("x"))
		err := hs.AcceptRedirect(&http.Response{
			StatusCode: status,
			Header:     http.Header{"Location": []string{"http://dn:9864/x"}},
		})
		require.ErrorIs(t, err, ErrRedirectExpected)
		assert.Equal(t, StateFailed, hs.State())
		assert.Equal(t, StatusHandshakeFailed, hs.Status())
		assert.Empty(t, hs.Target())

		_, err = hs.PayloadRequest(context.Background())
		assert.Error(t, err, "no payload after failure")
	}
}

func TestHandshakeAbortBeforeAndAfterRedirect(t *testing.T) {
	boom := errors.New("connection reset")

	hs := NewHandshake(http.MethodPut, []byte("x"))
	assert.Equal(t, boom, hs.Abort(boom))
	assert.Equal(t, StateFailed, hs.State())
	assert.Equal(t, StatusHandshakeFailed, hs.Status())
	assert.Equal(t, boom, hs.Err())

	hs = NewHandshake(http.MethodPut, []byte("x"))
	require.NoError(t, hs.AcceptRedirect(&http.Response{
		StatusCode: http.StatusTemporaryRedirect,
		Header:     http.Header{"Location": []string{"http://dn:9864/x"}},
	}))
	hs.Abort(boom)
	assert.Equal(t, StateFailed, hs.State())
	assert.Equal(t, boom, hs.Err())
}

func TestHandshakeOutOfOrderTransitions(t *testing.T) {
	hs := NewHandshake(http.MethodPut, nil)
	_, err := hs.Complete(&http.Response{StatusCode: http.StatusCreated})
	assert.Error(t, err)
	assert.Equal(t, StateAwaitingRedirect, hs.State())

	_, err = hs.PayloadRequest(context.Background())
	assert.Error(t, err)

	require.NoError(t, hs.AcceptRedirect(&http.Response{
		StatusCode: http.StatusTemporaryRedirect,
		Header:     http.Header{"Location": []string{"http://dn:9864/x"}},
	}))
	assert.Error(t, hs.AcceptRedirect(&http.Response{StatusCode: http.StatusTemporaryRedirect}))
	assert.Equal(t, StateSendingPayload, hs.State())
}

func TestHandshakeStateString(t *testing.T) {
	assert.Equal(t, "awaiting_redirect", StateAwaitingRedirect.String())
	assert.Equal(t, "sending_payload", StateSendingPayload.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "HandshakeState(9)", HandshakeState(9).String())
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
		ok     bool
	}{
		{name: "plain", values: []string{"http://node2:9000/path?op=CREATE"}, want: "http://node2:9000/path?op=CREATE", ok: true},
		{name: "trailing carriage return", values: []string{"http://node2:9000/path?op=CREATE\r"}, want: "http://node2:9000/path?op=CREATE", ok: true},
		{name: "surrounding spaces", values: []string{"  https://dn.example:9865/webhdfs/v1/a?op=APPEND  "}, want: "https://dn.example:9865/webhdfs/v1/a?op=APPEND", ok: true},
		{name: "encoded query kept", values: []string{"http://dn:9864/webhdfs/v1/a%20b?op=CREATE&namenoderpcaddress=nn%3A8020"}, want: "http://dn:9864/webhdfs/v1/a%20b?op=CREATE&namenoderpcaddress=nn%3A8020", ok: true},
		{name: "absent"},
		{name: "blank", values: []string{"   "}},
		{name: "relative", values: []string{"/webhdfs/v1/a"}},
		{name: "no host", values: []string{"http:///webhdfs/v1/a"}},
		{name: "other scheme", values: []string{"file:///etc/passwd"}},
		{name: "unparseable", values: []string{"http://[::1/x"}},
		{name: "duplicated", values: []string{"http://a:1/x", "http://b:2/x"}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			h := http.Header{}
			for _, v := range tc.values {
				h.Add("Location", v)
			}
			got, err := ParseLocation(h)
			if !tc.ok {
				require.ErrorIs(t, err, ErrMalformedLocation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
