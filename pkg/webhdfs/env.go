package webhdfs

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/webhdfs/webhdfs_sdk_go/internal/devseed"
	"github.com/webhdfs/webhdfs_sdk_go/internal/hadoopconf"
	"github.com/webhdfs/webhdfs_sdk_go/internal/httpx"
	"github.com/webhdfs/webhdfs_sdk_go/pkg/webhdfs/mock"
)

const (
	envMode      = "WEBHDFS_RUNTIME_MODE"
	envHost      = "WEBHDFS_HOST"
	envPort      = "WEBHDFS_PORT"
	envUser      = "WEBHDFS_USER"
	envRateLimit = "WEBHDFS_RATE_LIMIT"
	envMockSeed  = "WEBHDFS_MOCK_SEED"

	ModeAuto = "auto"
	ModeHTTP = "http"
	ModeMock = "mock"

	// MockHost and MockPort address the in-process cluster used in mock mode.
	MockHost = "mock.webhdfs.invalid"
	MockPort = 9870
)

// NewFromEnv initialises a client from WEBHDFS_* environment variables and
// returns the resolved mode ("http" or "mock").
//
// WEBHDFS_RUNTIME_MODE selects the backend. "http" requires a name node,
// taken from WEBHDFS_HOST and WEBHDFS_PORT or, when the host is unset, from
// dfs.namenode.http-address in the Hadoop client configuration. "mock" serves
// every request from an in-memory cluster seeded from WEBHDFS_MOCK_SEED.
// "auto", the default, picks http when a name node can be resolved.
func NewFromEnv(opts ...httpx.Option) (*Client, string, error) {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv(envMode)))
	user := strings.TrimSpace(os.Getenv(envUser))

	limit, err := rateLimitFromEnv()
	if err != nil {
		return nil, "", err
	}
	if limit != nil {
		opts = append(opts, limit)
	}

	switch mode {
	case "", ModeAuto:
		cfg, err := nameNodeFromEnv(user)
		if err != nil {
			return newMockClient(user, opts)
		}
		return newHTTPClient(cfg, opts)
	case ModeHTTP:
		cfg, err := nameNodeFromEnv(user)
		if err != nil {
			return nil, "", fmt.Errorf("webhdfs: HTTP mode requires %s or a Hadoop configuration: %w", envHost, err)
		}
		return newHTTPClient(cfg, opts)
	case ModeMock:
		return newMockClient(user, opts)
	default:
		return nil, "", fmt.Errorf("webhdfs: unsupported %s value %q", envMode, mode)
	}
}

func nameNodeFromEnv(user string) (Config, error) {
	if host := strings.TrimSpace(os.Getenv(envHost)); host != "" {
		port := hadoopconf.DefaultHTTPPort
		if raw := strings.TrimSpace(os.Getenv(envPort)); raw != "" {
			p, err := strconv.Atoi(raw)
			if err != nil {
				return Config{}, fmt.Errorf("webhdfs: parse %s: %w", envPort, err)
			}
			port = p
		}
		cfg := Config{Host: host, Port: port, User: user}
		return cfg, cfg.Validate()
	}
	host, port, err := hadoopconf.NameNodeFromEnv()
	if err != nil {
		return Config{}, err
	}
	return Config{Host: host, Port: port, User: user}, nil
}

func rateLimitFromEnv() (httpx.Option, error) {
	raw := strings.TrimSpace(os.Getenv(envRateLimit))
	if raw == "" {
		return nil, nil
	}
	rps, err := strconv.ParseFloat(raw, 64)
	if err != nil || rps < 0 || math.IsInf(rps, 0) || math.IsNaN(rps) {
		return nil, fmt.Errorf("webhdfs: invalid %s value %q", envRateLimit, raw)
	}
	burst := int(math.Ceil(rps))
	if burst < 1 {
		burst = 1
	}
	return httpx.WithRateLimit(rps, burst), nil
}

func newHTTPClient(cfg Config, opts []httpx.Option) (*Client, string, error) {
	client, err := New(cfg, opts...)
	if err != nil {
		return nil, "", fmt.Errorf("webhdfs: init HTTP client: %w", err)
	}
	return client, ModeHTTP, nil
}

func newMockClient(user string, opts []httpx.Option) (*Client, string, error) {
	cluster := mock.New()
	if path := strings.TrimSpace(os.Getenv(envMockSeed)); path != "" {
		entries, err := devseed.Load(path)
		if err != nil {
			return nil, "", fmt.Errorf("webhdfs: load mock seed: %w", err)
		}
		if err := cluster.Seed(entries); err != nil {
			return nil, "", fmt.Errorf("webhdfs: apply mock seed: %w", err)
		}
	}
	opts = append([]httpx.Option{httpx.WithTransport(cluster.Transport())}, opts...)
	client, err := New(Config{Host: MockHost, Port: MockPort, User: user}, opts...)
	if err != nil {
		return nil, "", fmt.Errorf("webhdfs: init mock client: %w", err)
	}
	return client, ModeMock, nil
}
