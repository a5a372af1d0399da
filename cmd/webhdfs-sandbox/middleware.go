package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	api "github.com/webhdfs/webhdfs_sdk_go/internal/webhdfsapi"
)

type failConfig struct {
	rate float64
	code int
}

func withLatency(delay time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if delay <= 0 {
				return next(c)
			}
			t := time.NewTimer(delay)
			defer t.Stop()
			select {
			case <-t.C:
			case <-c.Request().Context().Done():
				return c.Request().Context().Err()
			}
			return next(c)
		}
	}
}

// withFailures answers a share of requests with cfg.code and a
// RemoteException body instead of reaching the cluster. roll returns a value
// in [0, 1).
func withFailures(cfg failConfig, roll func() float64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.rate <= 0 || roll() >= cfg.rate {
				return next(c)
			}
			status := cfg.code
			if status == 0 {
				status = http.StatusInternalServerError
			}
			return c.JSON(status, map[string]api.RemoteException{
				api.KeyRemoteError: {
					Exception:     "IOException",
					JavaClassName: "java.io.IOException",
					Message:       "failure injected",
				},
			})
		}
	}
}

func newRequestCounter(reg prometheus.Registerer) (echo.MiddlewareFunc, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "webhdfs",
		Subsystem: "sandbox",
		Name:      "requests_total",
		Help:      "Requests served by the sandbox, by op and status code.",
	}, []string{"op", "code"})
	if err := reg.Register(requests); err != nil {
		return nil, fmt.Errorf("register sandbox metrics: %w", err)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			op := strings.ToUpper(c.QueryParam(api.ParamOp))
			if op == "" {
				op = "none"
			}
			requests.WithLabelValues(op, strconv.Itoa(c.Response().Status)).Inc()
			return nil
		}
	}, nil
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			req := c.Request()
			logger.Debug("request",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("op", c.QueryParam(api.ParamOp)),
				zap.Int("status", c.Response().Status),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
			return err
		}
	}
}

func parseFailConfig(raw string) (failConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return failConfig{}, nil
	}
	cfg := failConfig{code: http.StatusInternalServerError}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		keyVal := strings.SplitN(part, "=", 2)
		if len(keyVal) != 2 {
			return failConfig{}, fmt.Errorf("invalid fail segment %q", part)
		}
		switch strings.TrimSpace(keyVal[0]) {
		case "rate":
			val, err := strconv.ParseFloat(strings.TrimSpace(keyVal[1]), 64)
			if err != nil {
				return failConfig{}, err
			}
			if val < 0 || val > 1 {
				return failConfig{}, fmt.Errorf("fail rate %v outside [0, 1]", val)
			}
			cfg.rate = val
		case "code":
			val, err := strconv.Atoi(strings.TrimSpace(keyVal[1]))
			if err != nil {
				return failConfig{}, err
			}
			if val < 100 || val > 599 {
				return failConfig{}, fmt.Errorf("fail code %d is not an HTTP status", val)
			}
			cfg.code = val
		default:
			return failConfig{}, fmt.Errorf("unknown fail key %q", keyVal[0])
		}
	}
	return cfg, nil
}
