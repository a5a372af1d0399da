// Package devseed loads fixture files used to pre-populate the mock cluster.
package devseed

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry describes one inode to create before serving requests. Directories
// set Dir; files carry either Base64 or Content (Base64 wins when both are
// set). Parent directories are created implicitly.
type Entry struct {
	Path             string `json:"path" yaml:"path"`
	Dir              bool   `json:"dir,omitempty" yaml:"dir,omitempty"`
	Base64           string `json:"base64,omitempty" yaml:"base64,omitempty"`
	Content          string `json:"content,omitempty" yaml:"content,omitempty"`
	Owner            string `json:"owner,omitempty" yaml:"owner,omitempty"`
	Group            string `json:"group,omitempty" yaml:"group,omitempty"`
	Permission       string `json:"permission,omitempty" yaml:"permission,omitempty"`
	Replication      int    `json:"replication,omitempty" yaml:"replication,omitempty"`
	ModificationTime int64  `json:"modificationTime,omitempty" yaml:"modificationTime,omitempty"`
}

// Data returns the decoded file payload.
func (e Entry) Data() ([]byte, error) {
	if e.Base64 != "" {
		data, err := base64.StdEncoding.DecodeString(e.Base64)
		if err != nil {
			return nil, fmt.Errorf("devseed: %s: decode base64: %w", e.Path, err)
		}
		return data, nil
	}
	return []byte(e.Content), nil
}

// Load reads seed entries from path. Files ending in .yaml or .yml are decoded
// as YAML, everything else as JSON.
func Load(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("devseed: read %s: %w", path, err)
	}
	var entries []Entry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &entries)
	default:
		err = json.Unmarshal(raw, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("devseed: decode %s: %w", path, err)
	}
	for i, e := range entries {
		if strings.TrimSpace(e.Path) == "" {
			return nil, fmt.Errorf("devseed: entry %d missing path", i)
		}
		if e.Dir && (e.Base64 != "" || e.Content != "") {
			return nil, fmt.Errorf("devseed: %s: directory entries cannot carry data", e.Path)
		}
	}
	return entries, nil
}
