package webhdfs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/webhdfs/webhdfs_sdk_go/internal/httpx"
	api "github.com/webhdfs/webhdfs_sdk_go/internal/webhdfsapi"
)

// Dispatcher executes a single WebHDFS exchange. *httpx.Client implements it;
// tests substitute their own.
type Dispatcher interface {
	Dispatch(ctx context.Context, method, rawURL string, mode httpx.Mode) (*httpx.Result, error)
}

// Client provides WebHDFS filesystem operations against one name node. It
// holds no mutable state and is safe for concurrent use.
type Client struct {
	cfg        Config
	base       string
	dispatcher Dispatcher
}

// New constructs an HTTP-backed client.
func New(cfg Config, opts ...httpx.Option) (*Client, error) {
	return NewWithDispatcher(cfg, httpx.NewClient(opts...))
}

// NewWithDispatcher wraps an existing dispatcher.
func NewWithDispatcher(cfg Config, d Dispatcher) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("webhdfs: dispatcher is nil")
	}
	return &Client{cfg: cfg, base: cfg.BaseURL(), dispatcher: d}, nil
}

// Config returns the connection identity the client was built with.
func (c *Client) Config() Config { return c.cfg }

// Create writes data to a new file at path and reports whether the data node
// answered 201 Created.
func (c *Client) Create(ctx context.Context, path string, data []byte, opts *CreateOptions) (bool, error) {
	res, err := c.dispatch(ctx, createOp(path, data, opts))
	if res == nil {
		return false, err
	}
	return res.StatusCode == http.StatusCreated, err
}

// Append adds data to the end of an existing file and reports whether the
// data node answered 200 OK. A bufferSize of zero or less sends len(data).
func (c *Client) Append(ctx context.Context, path string, data []byte, bufferSize int) (bool, error) {
	res, err := c.dispatch(ctx, appendOp(path, data, bufferSize))
	if res == nil {
		return false, err
	}
	return res.StatusCode == http.StatusOK, err
}

// Open reads a file. Redirects to the data node are followed. A nil slice is
// returned when the final status is not 200.
func (c *Client) Open(ctx context.Context, path string, opts *OpenOptions) ([]byte, error) {
	res, err := c.dispatch(ctx, openOp(path, opts))
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// Mkdirs creates path and any missing parents. An empty permission means
// DefaultPermission.
func (c *Client) Mkdirs(ctx context.Context, path, permission string) (bool, error) {
	return c.boolean(ctx, mkdirsOp(path, permission))
}

// Rename moves path to destination.
func (c *Client) Rename(ctx context.Context, path, destination string) (bool, error) {
	return c.boolean(ctx, renameOp(path, destination))
}

// Delete removes path. Non-empty directories require recursive.
func (c *Client) Delete(ctx context.Context, path string, recursive bool) (bool, error) {
	return c.boolean(ctx, deleteOp(path, recursive))
}

// GetFileStatus returns the decoded GETFILESTATUS response unmodified. Use
// DecodeFileStatus for a typed view.
func (c *Client) GetFileStatus(ctx context.Context, path string) (map[string]any, error) {
	return c.object(ctx, getFileStatusOp(path))
}

// ListStatus returns the decoded LISTSTATUS response unmodified. Use
// DecodeListing for a typed view.
func (c *Client) ListStatus(ctx context.Context, path string) (map[string]any, error) {
	return c.object(ctx, listStatusOp(path))
}

// GetContentSummary returns the decoded GETCONTENTSUMMARY response
// unmodified. Use DecodeContentSummary for a typed view.
func (c *Client) GetContentSummary(ctx context.Context, path string) (map[string]any, error) {
	return c.object(ctx, getContentSummaryOp(path))
}

// GetHomeDirectory returns the acting user's home directory, or "" when the
// response carried no string Path.
func (c *Client) GetHomeDirectory(ctx context.Context) (string, error) {
	obj, err := c.object(ctx, getHomeDirectoryOp())
	if err != nil {
		return "", err
	}
	return api.Path(obj), nil
}

// SetOwner changes the owner and, when group is not empty, the group of path.
func (c *Client) SetOwner(ctx context.Context, path, owner, group string) (bool, error) {
	return c.status(ctx, setOwnerOp(path, owner, group))
}

// SetPermission changes the octal permission of path.
func (c *Client) SetPermission(ctx context.Context, path, permission string) (bool, error) {
	return c.status(ctx, setPermissionOp(path, permission))
}

func (c *Client) boolean(ctx context.Context, o *operation) (bool, error) {
	obj, err := c.object(ctx, o)
	if err != nil {
		return false, err
	}
	return api.Boolean(obj), nil
}

func (c *Client) object(ctx context.Context, o *operation) (map[string]any, error) {
	res, err := c.dispatch(ctx, o)
	if err != nil {
		return nil, err
	}
	return res.Object, nil
}

func (c *Client) status(ctx context.Context, o *operation) (bool, error) {
	res, err := c.dispatch(ctx, o)
	if err != nil {
		return false, err
	}
	return res.StatusCode == http.StatusOK, nil
}

func (c *Client) dispatch(ctx context.Context, o *operation) (*httpx.Result, error) {
	if c == nil || c.dispatcher == nil {
		return nil, fmt.Errorf("webhdfs: client is nil")
	}
	res, err := c.dispatcher.Dispatch(ctx, o.method, c.url(o), o.mode)
	if err != nil {
		return res, &OpError{Op: o.op(), Path: o.path, Err: err}
	}
	return res, nil
}

// url addresses o on the name node. The path is percent-encoded by segment
// and user.name, when configured, is the last parameter.
func (c *Client) url(o *operation) string {
	p := o.path
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Path: api.PathPrefix + p}

	params := Params{
		keys:   append([]string(nil), o.params.keys...),
		values: append([]string(nil), o.params.values...),
	}
	if user := strings.TrimSpace(c.cfg.User); user != "" {
		params.Add(api.ParamUser, user)
	}
	return c.base + u.EscapedPath() + "?" + params.Encode()
}
