package mock

import (
	"fmt"
	"net/http"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/webhdfs/webhdfs_sdk_go/internal/devseed"
)

const (
	// DefaultUser is reported when a request carries no user.name.
	DefaultUser = "dr.who"
	// DefaultBlockSize matches the HDFS default of 128 MiB.
	DefaultBlockSize int64 = 134217728

	superUser  = "hdfs"
	superGroup = "supergroup"
)

var permissionPattern = regexp.MustCompile(`^[01]?[0-7]{3}$`)

type inode struct {
	id          int64
	dir         bool
	data        []byte
	owner       string
	group       string
	permission  string
	replication int
	blockSize   int64
	mtime       int64
	atime       int64
}

// ticket is issued by the name node on phase 1 of a write and redeemed by
// the data node on phase 2.
type ticket struct {
	method      string
	op          string
	path        string
	user        string
	overwrite   bool
	permission  string
	replication int
	blockSize   int64
}

// Option configures a Cluster.
type Option func(*Cluster)

// WithDataNodeAddress makes redirects point at host:port instead of the host
// the request was addressed to.
func WithDataNodeAddress(hostport string) Option {
	return func(c *Cluster) {
		c.dataNode = strings.TrimSpace(hostport)
	}
}

// WithClock overrides the time source used for modification times.
func WithClock(now func() time.Time) Option {
	return func(c *Cluster) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger attaches a zap logger; requests are logged at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cluster) {
		if l != nil {
			c.logger = l
		}
	}
}

// Cluster is an in-memory WebHDFS name node and data node. It speaks the same
// wire protocol as a real cluster, including the 307 write handshake, and is
// safe for concurrent use.
type Cluster struct {
	mu      sync.Mutex
	nodes   map[string]*inode
	tickets map[string]ticket
	nextID  int64

	dataNode string
	now      func() time.Time
	logger   *zap.Logger
	echo     *echo.Echo
}

// New constructs a cluster holding only the root directory.
func New(opts ...Option) *Cluster {
	c := &Cluster{
		nodes:   make(map[string]*inode),
		tickets: make(map[string]ticket),
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.nodes["/"] = c.newDir(superUser, superGroup, "755")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	c.Register(e)
	c.echo = e
	return c
}

// ServeHTTP serves the WebHDFS REST API.
func (c *Cluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.echo.ServeHTTP(w, r)
}

// Seed creates the given inodes. Missing parents are created as directories.
func (c *Cluster) Seed(entries []devseed.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range entries {
		if strings.TrimSpace(e.Path) == "" {
			return fmt.Errorf("mock webhdfs: seed entry missing path")
		}
		p := cleanPath(e.Path)
		owner := orDefault(e.Owner, superUser)
		group := orDefault(e.Group, superGroup)
		if e.Dir {
			if cerr := c.mkdirs(p, owner, group, orDefault(e.Permission, "755")); cerr != nil {
				return fmt.Errorf("mock webhdfs: seed %s: %w", p, cerr)
			}
			continue
		}
		data, err := e.Data()
		if err != nil {
			return err
		}
		if cerr := c.mkdirs(path.Dir(p), owner, group, "755"); cerr != nil {
			return fmt.Errorf("mock webhdfs: seed %s: %w", p, cerr)
		}
		if n, ok := c.nodes[p]; ok && n.dir {
			return fmt.Errorf("mock webhdfs: seed %s: path is a directory", p)
		}
		n := c.newFile(owner, group, orDefault(e.Permission, "644"), e.Replication, 0)
		n.data = append([]byte(nil), data...)
		if e.ModificationTime > 0 {
			n.mtime = e.ModificationTime
			n.atime = e.ModificationTime
		}
		c.nodes[p] = n
	}
	return nil
}

// ReadFile returns a copy of the file stored at p.
func (c *Cluster) ReadFile(p string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[cleanPath(p)]
	if !ok || n.dir {
		return nil, false
	}
	return append([]byte(nil), n.data...), true
}

// Exists reports whether any inode is stored at p.
func (c *Cluster) Exists(p string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.nodes[cleanPath(p)]
	return ok
}

// PendingWrites reports how many write tickets were issued but not redeemed.
func (c *Cluster) PendingWrites() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickets)
}

func (c *Cluster) newDir(owner, group, perm string) *inode {
	c.nextID++
	ts := c.now().UnixMilli()
	return &inode{
		id:         16384 + c.nextID,
		dir:        true,
		owner:      owner,
		group:      group,
		permission: perm,
		mtime:      ts,
	}
}

func (c *Cluster) newFile(owner, group, perm string, replication int, blockSize int64) *inode {
	if replication <= 0 {
		replication = 1
	}
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	c.nextID++
	ts := c.now().UnixMilli()
	return &inode{
		id:          16384 + c.nextID,
		owner:       owner,
		group:       group,
		permission:  perm,
		replication: replication,
		blockSize:   blockSize,
		mtime:       ts,
		atime:       ts,
	}
}

// The methods below expect c.mu to be held.

func (c *Cluster) checkAncestors(p string) *clusterError {
	for dir := path.Dir(p); ; dir = path.Dir(dir) {
		if n, ok := c.nodes[dir]; ok && !n.dir {
			return parentNotDirectory(dir)
		}
		if dir == "/" {
			return nil
		}
	}
}

func (c *Cluster) mkdirs(p, owner, group, perm string) *clusterError {
	if err := c.checkAncestors(p); err != nil {
		return err
	}
	if n, ok := c.nodes[p]; ok {
		if n.dir {
			return nil
		}
		return fileAlreadyExists(p, "Path is not a directory: "+p)
	}
	var missing []string
	for dir := p; dir != "/"; dir = path.Dir(dir) {
		if _, ok := c.nodes[dir]; ok {
			break
		}
		missing = append(missing, dir)
	}
	for i := len(missing) - 1; i >= 0; i-- {
		c.nodes[missing[i]] = c.newDir(owner, group, perm)
	}
	return nil
}

func (c *Cluster) children(p string) []string {
	var names []string
	for k := range c.nodes {
		if k != "/" && path.Dir(k) == p {
			names = append(names, path.Base(k))
		}
	}
	sort.Strings(names)
	return names
}

func (c *Cluster) subtree(p string) []string {
	prefix := p + "/"
	if p == "/" {
		prefix = "/"
	}
	var keys []string
	for k := range c.nodes {
		if k == p || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (c *Cluster) status(p string, n *inode, suffix string) map[string]any {
	st := map[string]any{
		"accessTime":       n.atime,
		"blockSize":        n.blockSize,
		"childrenNum":      0,
		"fileId":           n.id,
		"group":            n.group,
		"length":           int64(len(n.data)),
		"modificationTime": n.mtime,
		"owner":            n.owner,
		"pathSuffix":       suffix,
		"permission":       n.permission,
		"replication":      n.replication,
		"storagePolicy":    0,
		"type":             "FILE",
	}
	if n.dir {
		st["childrenNum"] = len(c.children(p))
		st["type"] = "DIRECTORY"
	}
	return st
}

func (c *Cluster) rename(src, dst string) bool {
	if src == "/" || dst == "/" {
		return false
	}
	if _, ok := c.nodes[src]; !ok {
		return false
	}
	if target, ok := c.nodes[dst]; ok {
		if !target.dir {
			return false
		}
		dst = path.Join(dst, path.Base(src))
		if _, exists := c.nodes[dst]; exists {
			return false
		}
	}
	if parent, ok := c.nodes[path.Dir(dst)]; !ok || !parent.dir {
		return false
	}
	if dst == src || strings.HasPrefix(dst, src+"/") {
		return false
	}
	for _, k := range c.subtree(src) {
		c.nodes[dst+strings.TrimPrefix(k, src)] = c.nodes[k]
		delete(c.nodes, k)
	}
	c.nodes[path.Dir(dst)].mtime = c.now().UnixMilli()
	return true
}

func (c *Cluster) remove(p string, recursive bool) (bool, *clusterError) {
	if p == "/" {
		return false, nil
	}
	n, ok := c.nodes[p]
	if !ok {
		return false, nil
	}
	if n.dir && !recursive && len(c.children(p)) > 0 {
		return false, &clusterError{
			status:    http.StatusForbidden,
			exception: "PathIsNotEmptyDirectoryException",
			message:   fmt.Sprintf("`%s is non empty': Directory is not empty", p),
		}
	}
	for _, k := range c.subtree(p) {
		delete(c.nodes, k)
	}
	return true, nil
}

func (c *Cluster) summary(p string) map[string]any {
	var dirs, files, length, consumed int64
	for _, k := range c.subtree(p) {
		n := c.nodes[k]
		if n.dir {
			dirs++
			continue
		}
		files++
		length += int64(len(n.data))
		consumed += int64(len(n.data)) * int64(n.replication)
	}
	return map[string]any{
		"directoryCount": dirs,
		"fileCount":      files,
		"length":         length,
		"quota":          -1,
		"spaceConsumed":  consumed,
		"spaceQuota":     -1,
	}
}

func cleanPath(p string) string {
	return path.Clean("/" + strings.TrimSpace(p))
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func normalizePermission(p string) string {
	if len(p) == 4 && p[0] == '0' {
		return p[1:]
	}
	return p
}
