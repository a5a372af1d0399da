// Package hadoopconf reads name-node addresses from a Hadoop client
// configuration directory.
package hadoopconf

import (
	"encoding/xml"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// KeyHTTPAddress is the name-node HTTP endpoint serving WebHDFS.
	KeyHTTPAddress = "dfs.namenode.http-address"
	// KeyDefaultFS is the default file system URI.
	KeyDefaultFS = "fs.defaultFS"

	// DefaultHTTPPort is the Hadoop 3 name-node HTTP port.
	DefaultHTTPPort = 9870
)

// ErrNoConfDir is returned when neither HADOOP_CONF_DIR nor HADOOP_HOME is set.
var ErrNoConfDir = errors.New("hadoopconf: HADOOP_CONF_DIR and HADOOP_HOME are unset")

type configuration struct {
	XMLName    xml.Name   `xml:"configuration"`
	Properties []property `xml:"property"`
}

type property struct {
	Name  string `xml:"name"`
	Value string `xml:"value"`
}

// Properties maps configuration keys to values.
type Properties map[string]string

// Dir resolves the configuration directory from HADOOP_CONF_DIR, falling back
// to $HADOOP_HOME/etc/hadoop.
func Dir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("HADOOP_CONF_DIR")); dir != "" {
		return dir, nil
	}
	if home := strings.TrimSpace(os.Getenv("HADOOP_HOME")); home != "" {
		return filepath.Join(home, "etc", "hadoop"), nil
	}
	return "", ErrNoConfDir
}

// Load merges core-site.xml and hdfs-site.xml from dir; hdfs-site wins on
// conflicts. One missing file is tolerated.
func Load(dir string) (Properties, error) {
	core, coreErr := loadFile(filepath.Join(dir, "core-site.xml"))
	hdfs, hdfsErr := loadFile(filepath.Join(dir, "hdfs-site.xml"))
	if coreErr != nil && hdfsErr != nil {
		return nil, fmt.Errorf("hadoopconf: read core-site.xml and hdfs-site.xml: %v; %v", coreErr, hdfsErr)
	}
	props := make(Properties, len(core)+len(hdfs))
	for k, v := range core {
		props[k] = v
	}
	for k, v := range hdfs {
		props[k] = v
	}
	return props, nil
}

func loadFile(path string) (Properties, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var conf configuration
	if err := xml.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	props := make(Properties, len(conf.Properties))
	for _, p := range conf.Properties {
		props[strings.TrimSpace(p.Name)] = strings.TrimSpace(p.Value)
	}
	return props, nil
}

// NameNodeHTTP returns the WebHDFS host and port. It prefers
// dfs.namenode.http-address and falls back to the host of fs.defaultFS on
// DefaultHTTPPort. A wildcard bind address maps to localhost.
func (p Properties) NameNodeHTTP() (string, int, error) {
	if addr := p[KeyHTTPAddress]; addr != "" {
		host, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			return "", 0, fmt.Errorf("hadoopconf: %s=%q: %w", KeyHTTPAddress, addr, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 || port > 65535 {
			return "", 0, fmt.Errorf("hadoopconf: %s=%q: invalid port", KeyHTTPAddress, addr)
		}
		if host == "" || host == "0.0.0.0" {
			host = "localhost"
		}
		return host, port, nil
	}
	if fs := p[KeyDefaultFS]; fs != "" {
		u, err := url.Parse(fs)
		if err != nil {
			return "", 0, fmt.Errorf("hadoopconf: %s=%q: %w", KeyDefaultFS, fs, err)
		}
		if u.Scheme == "hdfs" && u.Hostname() != "" {
			return u.Hostname(), DefaultHTTPPort, nil
		}
	}
	return "", 0, fmt.Errorf("hadoopconf: neither %s nor an hdfs:// %s is set", KeyHTTPAddress, KeyDefaultFS)
}

// NameNodeFromEnv loads the configuration directory named by the environment
// and resolves the WebHDFS endpoint from it.
func NameNodeFromEnv() (string, int, error) {
	dir, err := Dir()
	if err != nil {
		return "", 0, err
	}
	props, err := Load(dir)
	if err != nil {
		return "", 0, err
	}
	return props.NameNodeHTTP()
}
