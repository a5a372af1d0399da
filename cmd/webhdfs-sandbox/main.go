package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/webhdfs/webhdfs_sdk_go/internal/devseed"
	"github.com/webhdfs/webhdfs_sdk_go/pkg/webhdfs/mock"
)

func main() {
	addr := flag.String("addr", ":9870", "name-node listen address")
	seed := flag.String("seed", "", "path to a JSON or YAML namespace seed")
	latency := flag.Duration("latency", 0, "artificial latency to inject per request")
	fail := flag.String("fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	user := flag.String("user", "", "value printed for WEBHDFS_USER")
	verbose := flag.Bool("verbose", false, "log every request at debug level")
	flag.Parse()

	logger, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	failCfg, err := parseFailConfig(*fail)
	if err != nil {
		logger.Fatal("parse fail flag", zap.Error(err))
	}

	cluster := mock.New(mock.WithLogger(logger.Named("cluster")))
	if *seed != "" {
		entries, err := devseed.Load(*seed)
		if err != nil {
			logger.Fatal("load seed", zap.String("path", *seed), zap.Error(err))
		}
		if err := cluster.Seed(entries); err != nil {
			logger.Fatal("apply seed", zap.String("path", *seed), zap.Error(err))
		}
		logger.Info("namespace seeded", zap.String("path", *seed), zap.Int("entries", len(entries)))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	e, err := newServer(cluster, reg, logger, *latency, failCfg, rand.Float64)
	if err != nil {
		logger.Fatal("build server", zap.Error(err))
	}

	printExports(*addr, *user)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("webhdfs-sandbox listening", zap.String("addr", *addr))
		if err := e.Start(*addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newServer mounts the cluster under /webhdfs/v1 with the injection
// middleware and exposes reg on /metrics.
func newServer(cluster *mock.Cluster, reg *prometheus.Registry, logger *zap.Logger, delay time.Duration, failCfg failConfig, roll func() float64) (*echo.Echo, error) {
	counter, err := newRequestCounter(reg)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(requestLogger(logger), counter)

	cluster.Register(e, withLatency(delay), withFailures(failCfg, roll))
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	return e, nil
}

func printExports(addr, user string) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	if _, err := strconv.Atoi(port); err != nil {
		return
	}
	fmt.Println()
	fmt.Println("export WEBHDFS_RUNTIME_MODE=http")
	fmt.Printf("export WEBHDFS_HOST=%s\n", host)
	fmt.Printf("export WEBHDFS_PORT=%s\n", port)
	if strings.TrimSpace(user) != "" {
		fmt.Printf("export WEBHDFS_USER=%s\n", user)
	}
	fmt.Println()
}
