package mock

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	api "github.com/webhdfs/webhdfs_sdk_go/internal/webhdfsapi"
)

const (
	paramDataNode = "datanode"
	paramTicket   = "ticket"
	paramRPC      = "namenoderpcaddress"

	rpcAddress = "localhost:8020"
)

var javaClassNames = map[string]string{
	"FileNotFoundException":            "java.io.FileNotFoundException",
	"FileAlreadyExistsException":       "org.apache.hadoop.fs.FileAlreadyExistsException",
	"ParentNotDirectoryException":      "org.apache.hadoop.fs.ParentNotDirectoryException",
	"PathIsNotEmptyDirectoryException": "org.apache.hadoop.fs.PathIsNotEmptyDirectoryException",
	"IllegalArgumentException":         "java.lang.IllegalArgumentException",
	"UnsupportedOperationException":    "java.lang.UnsupportedOperationException",
	"IOException":                      "java.io.IOException",
}

// opMethods lists the HTTP verb each operation must arrive with.
var opMethods = map[string]string{
	api.OpCreate:            http.MethodPut,
	api.OpAppend:            http.MethodPost,
	api.OpOpen:              http.MethodGet,
	api.OpMkdirs:            http.MethodPut,
	api.OpRename:            http.MethodPut,
	api.OpDelete:            http.MethodDelete,
	api.OpGetFileStatus:     http.MethodGet,
	api.OpListStatus:        http.MethodGet,
	api.OpGetHomeDirectory:  http.MethodGet,
	api.OpGetContentSummary: http.MethodGet,
	api.OpSetOwner:          http.MethodPut,
	api.OpSetPermission:     http.MethodPut,
}

type clusterError struct {
	status    int
	exception string
	message   string
}

func (e *clusterError) Error() string {
	return e.exception + ": " + e.message
}

func illegalArgument(format string, args ...any) *clusterError {
	return &clusterError{status: http.StatusBadRequest, exception: "IllegalArgumentException", message: fmt.Sprintf(format, args...)}
}

func fileNotFound(message string) *clusterError {
	return &clusterError{status: http.StatusNotFound, exception: "FileNotFoundException", message: message}
}

func fileAlreadyExists(p, message string) *clusterError {
	if message == "" {
		message = p + " already exists"
	}
	return &clusterError{status: http.StatusForbidden, exception: "FileAlreadyExistsException", message: message}
}

func parentNotDirectory(p string) *clusterError {
	return &clusterError{status: http.StatusForbidden, exception: "ParentNotDirectoryException", message: "Parent path is not a directory: " + p}
}

// Register mounts the WebHDFS routes on e. Middleware applies to every route.
func (c *Cluster) Register(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	e.Any(api.PathPrefix, c.handle, mw...)
	e.Any(api.PathPrefix+"/*", c.handle, mw...)
}

func (c *Cluster) handle(ctx echo.Context) error {
	req := ctx.Request()
	p := cleanPath(strings.TrimPrefix(req.URL.Path, api.PathPrefix))
	q := req.URL.Query()
	op := strings.ToUpper(q.Get(api.ParamOp))
	user := orDefault(q.Get(api.ParamUser), DefaultUser)

	c.logger.Debug("mock webhdfs request",
		zap.String("method", req.Method),
		zap.String("op", op),
		zap.String("path", p),
		zap.String("user", user),
		zap.Bool("datanode", q.Get(paramDataNode) == "true"))

	method, ok := opMethods[op]
	if !ok {
		return writeError(ctx, illegalArgument("Invalid value for webhdfs parameter \"op\": %q", q.Get(api.ParamOp)))
	}
	if req.Method != method {
		return writeError(ctx, illegalArgument("Invalid http method %s for op %s", req.Method, op))
	}

	if q.Get(paramDataNode) == "true" {
		return c.serveDataNode(ctx, op, p, q)
	}

	switch op {
	case api.OpCreate:
		return c.createRedirect(ctx, p, user, q)
	case api.OpAppend:
		return c.appendRedirect(ctx, p, user, q)
	case api.OpOpen:
		return c.openRedirect(ctx, p, q)
	case api.OpMkdirs:
		return c.handleMkdirs(ctx, p, user, q)
	case api.OpRename:
		return c.handleRename(ctx, p, q)
	case api.OpDelete:
		return c.handleDelete(ctx, p, q)
	case api.OpGetFileStatus:
		return c.handleFileStatus(ctx, p)
	case api.OpListStatus:
		return c.handleListStatus(ctx, p)
	case api.OpGetContentSummary:
		return c.handleContentSummary(ctx, p)
	case api.OpGetHomeDirectory:
		return ctx.JSON(http.StatusOK, map[string]string{api.KeyPath: "/user/" + user})
	case api.OpSetOwner:
		return c.handleSetOwner(ctx, p, q)
	default:
		return c.handleSetPermission(ctx, p, q)
	}
}

func (c *Cluster) createRedirect(ctx echo.Context, p, user string, q url.Values) error {
	t := ticket{method: http.MethodPut, op: api.OpCreate, path: p, user: user, permission: "644"}
	var cerr *clusterError
	if t.overwrite, cerr = parseBool(q, api.ParamOverwrite); cerr != nil {
		return writeError(ctx, cerr)
	}
	if v := q.Get(api.ParamPermission); v != "" {
		if !permissionPattern.MatchString(v) {
			return writeError(ctx, illegalArgument("Invalid value for webhdfs parameter \"permission\": %q", v))
		}
		t.permission = normalizePermission(v)
	}
	replication, cerr := parsePositive(q, api.ParamReplication)
	if cerr != nil {
		return writeError(ctx, cerr)
	}
	t.replication = int(replication)
	if t.blockSize, cerr = parsePositive(q, api.ParamBlockSize); cerr != nil {
		return writeError(ctx, cerr)
	}
	if _, cerr = parsePositive(q, api.ParamBufferSize); cerr != nil {
		return writeError(ctx, cerr)
	}

	id := uuid.NewString()
	c.mu.Lock()
	cerr = c.checkCreate(p, t.overwrite)
	if cerr == nil {
		c.tickets[id] = t
	}
	c.mu.Unlock()
	if cerr != nil {
		return writeError(ctx, cerr)
	}
	return ctx.Redirect(http.StatusTemporaryRedirect, c.dataNodeURL(ctx.Request(), p, q, id))
}

func (c *Cluster) appendRedirect(ctx echo.Context, p, user string, q url.Values) error {
	if _, cerr := parsePositive(q, api.ParamBufferSize); cerr != nil {
		return writeError(ctx, cerr)
	}
	t := ticket{method: http.MethodPost, op: api.OpAppend, path: p, user: user}

	id := uuid.NewString()
	c.mu.Lock()
	cerr := c.checkAppend(p)
	if cerr == nil {
		c.tickets[id] = t
	}
	c.mu.Unlock()
	if cerr != nil {
		return writeError(ctx, cerr)
	}
	return ctx.Redirect(http.StatusTemporaryRedirect, c.dataNodeURL(ctx.Request(), p, q, id))
}

func (c *Cluster) openRedirect(ctx echo.Context, p string, q url.Values) error {
	if _, _, cerr := parseRange(q); cerr != nil {
		return writeError(ctx, cerr)
	}
	c.mu.Lock()
	n, ok := c.nodes[p]
	c.mu.Unlock()
	if !ok {
		return writeError(ctx, fileNotFound("File does not exist: "+p))
	}
	if n.dir {
		return writeError(ctx, fileNotFound("Path is not a file: "+p))
	}
	return ctx.Redirect(http.StatusTemporaryRedirect, c.dataNodeURL(ctx.Request(), p, q, ""))
}

func (c *Cluster) serveDataNode(ctx echo.Context, op, p string, q url.Values) error {
	switch op {
	case api.OpCreate, api.OpAppend:
		return c.receivePayload(ctx, op, p, q.Get(paramTicket))
	case api.OpOpen:
		return c.sendFile(ctx, p, q)
	default:
		return writeError(ctx, &clusterError{
			status:    http.StatusBadRequest,
			exception: "UnsupportedOperationException",
			message:   op + " is not supported by the data node",
		})
	}
}

func (c *Cluster) receivePayload(ctx echo.Context, op, p, id string) error {
	req := ctx.Request()
	c.mu.Lock()
	t, ok := c.tickets[id]
	if ok {
		delete(c.tickets, id)
	}
	c.mu.Unlock()
	if !ok {
		return writeError(ctx, illegalArgument("Unknown or expired write ticket %q", id))
	}
	if t.op != op || t.path != p || t.method != req.Method {
		return writeError(ctx, illegalArgument("Write ticket %q was issued for %s %s %s", id, t.method, t.op, t.path))
	}

	payload, err := io.ReadAll(req.Body)
	if err != nil {
		return writeError(ctx, &clusterError{status: http.StatusInternalServerError, exception: "IOException", message: err.Error()})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if op == api.OpAppend {
		if cerr := c.checkAppend(p); cerr != nil {
			return writeError(ctx, cerr)
		}
		n := c.nodes[p]
		n.data = append(n.data, payload...)
		n.mtime = c.now().UnixMilli()
		return ctx.NoContent(http.StatusOK)
	}

	if cerr := c.checkCreate(p, t.overwrite); cerr != nil {
		return writeError(ctx, cerr)
	}
	if cerr := c.mkdirs(path.Dir(p), t.user, superGroup, "755"); cerr != nil {
		return writeError(ctx, cerr)
	}
	n := c.newFile(t.user, superGroup, t.permission, t.replication, t.blockSize)
	n.data = payload
	c.nodes[p] = n
	ctx.Response().Header().Set(echo.HeaderLocation, "hdfs://"+rpcAddress+p)
	return ctx.NoContent(http.StatusCreated)
}

func (c *Cluster) sendFile(ctx echo.Context, p string, q url.Values) error {
	offset, length, cerr := parseRange(q)
	if cerr != nil {
		return writeError(ctx, cerr)
	}
	c.mu.Lock()
	n, ok := c.nodes[p]
	if !ok || n.dir {
		c.mu.Unlock()
		return writeError(ctx, fileNotFound("File does not exist: "+p))
	}
	size := int64(len(n.data))
	if offset > size {
		c.mu.Unlock()
		return writeError(ctx, &clusterError{
			status:    http.StatusForbidden,
			exception: "IOException",
			message:   fmt.Sprintf("Offset=%d out of the range [0, %d]", offset, size),
		})
	}
	end := size
	if length >= 0 && length < size-offset {
		end = offset + length
	}
	data := append([]byte(nil), n.data[offset:end]...)
	n.atime = c.now().UnixMilli()
	c.mu.Unlock()
	return ctx.Blob(http.StatusOK, echo.MIMEOctetStream, data)
}

func (c *Cluster) handleMkdirs(ctx echo.Context, p, user string, q url.Values) error {
	perm := "755"
	if v := q.Get(api.ParamPermission); v != "" {
		if !permissionPattern.MatchString(v) {
			return writeError(ctx, illegalArgument("Invalid value for webhdfs parameter \"permission\": %q", v))
		}
		perm = normalizePermission(v)
	}
	c.mu.Lock()
	cerr := c.mkdirs(p, user, superGroup, perm)
	c.mu.Unlock()
	if cerr != nil {
		return writeError(ctx, cerr)
	}
	return writeBoolean(ctx, true)
}

func (c *Cluster) handleRename(ctx echo.Context, p string, q url.Values) error {
	dst := q.Get(api.ParamDestination)
	if !strings.HasPrefix(dst, "/") {
		return writeError(ctx, illegalArgument("Invalid value for webhdfs parameter \"destination\": %q is not an absolute path", dst))
	}
	c.mu.Lock()
	ok := c.rename(p, cleanPath(dst))
	c.mu.Unlock()
	return writeBoolean(ctx, ok)
}

func (c *Cluster) handleDelete(ctx echo.Context, p string, q url.Values) error {
	recursive, cerr := parseBool(q, api.ParamRecursive)
	if cerr != nil {
		return writeError(ctx, cerr)
	}
	c.mu.Lock()
	ok, cerr := c.remove(p, recursive)
	c.mu.Unlock()
	if cerr != nil {
		return writeError(ctx, cerr)
	}
	return writeBoolean(ctx, ok)
}

func (c *Cluster) handleFileStatus(ctx echo.Context, p string) error {
	c.mu.Lock()
	n, ok := c.nodes[p]
	var st map[string]any
	if ok {
		st = c.status(p, n, "")
	}
	c.mu.Unlock()
	if !ok {
		return writeError(ctx, fileNotFound("File does not exist: "+p))
	}
	return ctx.JSON(http.StatusOK, map[string]any{api.KeyFileStatus: st})
}

func (c *Cluster) handleListStatus(ctx echo.Context, p string) error {
	c.mu.Lock()
	n, ok := c.nodes[p]
	statuses := []map[string]any{}
	if ok {
		if n.dir {
			for _, name := range c.children(p) {
				child := path.Join(p, name)
				statuses = append(statuses, c.status(child, c.nodes[child], name))
			}
		} else {
			statuses = append(statuses, c.status(p, n, ""))
		}
	}
	c.mu.Unlock()
	if !ok {
		return writeError(ctx, fileNotFound("File "+p+" does not exist."))
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		api.KeyFileStatuses: map[string]any{api.KeyFileStatus: statuses},
	})
}

func (c *Cluster) handleContentSummary(ctx echo.Context, p string) error {
	c.mu.Lock()
	_, ok := c.nodes[p]
	var summary map[string]any
	if ok {
		summary = c.summary(p)
	}
	c.mu.Unlock()
	if !ok {
		return writeError(ctx, fileNotFound("File does not exist: "+p))
	}
	return ctx.JSON(http.StatusOK, map[string]any{api.KeyContentSummary: summary})
}

func (c *Cluster) handleSetOwner(ctx echo.Context, p string, q url.Values) error {
	owner, group := q.Get(api.ParamOwner), q.Get(api.ParamGroup)
	if owner == "" && group == "" {
		return writeError(ctx, illegalArgument("Both owner and group are empty."))
	}
	c.mu.Lock()
	n, ok := c.nodes[p]
	if ok {
		if owner != "" {
			n.owner = owner
		}
		if group != "" {
			n.group = group
		}
	}
	c.mu.Unlock()
	if !ok {
		return writeError(ctx, fileNotFound("File does not exist: "+p))
	}
	return ctx.NoContent(http.StatusOK)
}

func (c *Cluster) handleSetPermission(ctx echo.Context, p string, q url.Values) error {
	perm := orDefault(q.Get(api.ParamPermission), "755")
	if !permissionPattern.MatchString(perm) {
		return writeError(ctx, illegalArgument("Invalid value for webhdfs parameter \"permission\": %q", perm))
	}
	c.mu.Lock()
	n, ok := c.nodes[p]
	if ok {
		n.permission = normalizePermission(perm)
	}
	c.mu.Unlock()
	if !ok {
		return writeError(ctx, fileNotFound("File does not exist: "+p))
	}
	return ctx.NoContent(http.StatusOK)
}

// checkCreate expects c.mu to be held.
func (c *Cluster) checkCreate(p string, overwrite bool) *clusterError {
	if err := c.checkAncestors(p); err != nil {
		return err
	}
	if n, ok := c.nodes[p]; ok {
		if n.dir {
			return fileAlreadyExists(p, p+" already exists as a directory")
		}
		if !overwrite {
			return fileAlreadyExists(p, "")
		}
	}
	return nil
}

// checkAppend expects c.mu to be held.
func (c *Cluster) checkAppend(p string) *clusterError {
	n, ok := c.nodes[p]
	if !ok {
		return fileNotFound("Failed to append to non-existent file " + p)
	}
	if n.dir {
		return fileNotFound("Failed to append to non-file " + p)
	}
	return nil
}

// dataNodeURL builds the redirect target for phase 2. The original query is
// kept and the data-node markers are added.
func (c *Cluster) dataNodeURL(req *http.Request, p string, q url.Values, ticketID string) string {
	host := c.dataNode
	if host == "" {
		host = req.Host
	}
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	next := url.Values{}
	for k, v := range q {
		next[k] = append([]string(nil), v...)
	}
	next.Set(paramDataNode, "true")
	next.Set(paramRPC, rpcAddress)
	if ticketID != "" {
		next.Set(paramTicket, ticketID)
	}
	u := url.URL{Scheme: scheme, Host: host, Path: api.PathPrefix + p, RawQuery: next.Encode()}
	return u.String()
}

func writeBoolean(ctx echo.Context, v bool) error {
	return ctx.JSON(http.StatusOK, map[string]bool{api.KeyBoolean: v})
}

func writeError(ctx echo.Context, e *clusterError) error {
	return ctx.JSON(e.status, map[string]any{
		api.KeyRemoteError: api.RemoteException{
			Exception:     e.exception,
			JavaClassName: javaClassNames[e.exception],
			Message:       e.message,
		},
	})
}

func parseBool(q url.Values, key string) (bool, *clusterError) {
	v := q.Get(key)
	if v == "" {
		return false, nil
	}
	switch strings.ToLower(v) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, illegalArgument("Invalid value for webhdfs parameter %q: %q", key, v)
}

// parsePositive returns 0 when key is absent.
func parsePositive(q url.Values, key string) (int64, *clusterError) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, illegalArgument("Invalid value for webhdfs parameter %q: %q", key, v)
	}
	return n, nil
}

// parseRange returns offset and length; length is -1 when absent.
func parseRange(q url.Values) (int64, int64, *clusterError) {
	offset, length := int64(0), int64(-1)
	if v := q.Get(api.ParamOffset); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return 0, 0, illegalArgument("Invalid value for webhdfs parameter \"offset\": %q", v)
		}
		offset = n
	}
	if v := q.Get(api.ParamLength); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return 0, 0, illegalArgument("Invalid value for webhdfs parameter \"length\": %q", v)
		}
		length = n
	}
	if _, cerr := parsePositive(q, api.ParamBufferSize); cerr != nil {
		return 0, 0, cerr
	}
	return offset, length, nil
}
