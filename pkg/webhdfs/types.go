package webhdfs

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// DefaultPermission is used by Mkdirs when no permission is given.
const DefaultPermission = "755"

var (
	// ErrNotFound indicates the name node reported a FileNotFoundException.
	ErrNotFound = errors.New("webhdfs: not found")
	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("webhdfs: invalid config")
)

// Config identifies the name node and the user operations run as.
type Config struct {
	Host string
	Port int
	User string
}

// Validate checks that the config names a reachable endpoint.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	return nil
}

// BaseURL returns the scheme and authority of the name node.
func (c Config) BaseURL() string {
	return "http://" + net.JoinHostPort(strings.TrimSpace(c.Host), strconv.Itoa(c.Port))
}

// CreateOptions are the optional CREATE parameters. Zero values are omitted
// from the request.
type CreateOptions struct {
	Overwrite   bool
	BlockSize   int64
	Replication int
	Permission  string
	BufferSize  int
}

// OpenOptions are the optional OPEN parameters. Zero values are omitted from
// the request.
type OpenOptions struct {
	Offset     int64
	Length     int64
	BufferSize int
}

// FileStatus is the typed form of a WebHDFS FileStatus object.
type FileStatus struct {
	AccessTime       int64  `json:"accessTime"`
	BlockSize        int64  `json:"blockSize"`
	ChildrenNum      int    `json:"childrenNum"`
	FileID           int64  `json:"fileId"`
	Group            string `json:"group"`
	Length           int64  `json:"length"`
	ModificationTime int64  `json:"modificationTime"`
	Owner            string `json:"owner"`
	PathSuffix       string `json:"pathSuffix"`
	Permission       string `json:"permission"`
	Replication      int    `json:"replication"`
	StoragePolicy    int    `json:"storagePolicy"`
	Type             string `json:"type"` // FILE, DIRECTORY or SYMLINK
}

// IsDir reports whether the status describes a directory.
func (s FileStatus) IsDir() bool { return s.Type == "DIRECTORY" }

// ModTime converts ModificationTime from epoch milliseconds.
func (s FileStatus) ModTime() time.Time { return time.UnixMilli(s.ModificationTime) }

// ContentSummary is the typed form of a WebHDFS ContentSummary object.
type ContentSummary struct {
	DirectoryCount int64 `json:"directoryCount"`
	FileCount      int64 `json:"fileCount"`
	Length         int64 `json:"length"`
	Quota          int64 `json:"quota"`
	SpaceConsumed  int64 `json:"spaceConsumed"`
	SpaceQuota     int64 `json:"spaceQuota"`
}
