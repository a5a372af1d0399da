// Package logging builds the zap logger shared by the SDK binaries.
//
// Logging is off unless WEBHDFS_ENABLE_LOG parses as true. Records are JSON
// with an ISO8601 "time" key and go to WEBHDFS_LOG_FILE when set, otherwise
// to stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	EnvEnable = "WEBHDFS_ENABLE_LOG"
	EnvFile   = "WEBHDFS_LOG_FILE"
	EnvLevel  = "WEBHDFS_LOG_LEVEL"
)

// FromEnv returns a logger configured from the process environment together
// with a cleanup func that flushes it and closes the log file. A disabled
// logger is a no-op.
func FromEnv() (*zap.Logger, func(), error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (*zap.Logger, func(), error) {
	noop := func() {}
	raw, ok := lookup(EnvEnable)
	if !ok || strings.TrimSpace(raw) == "" {
		return zap.NewNop(), noop, nil
	}
	enabled, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return zap.NewNop(), noop, fmt.Errorf("logging: bad value for %s: %w", EnvEnable, err)
	}
	if !enabled {
		return zap.NewNop(), noop, nil
	}

	level := zapcore.DebugLevel
	if v, ok := lookup(EnvLevel); ok && strings.TrimSpace(v) != "" {
		if err := level.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
			return zap.NewNop(), noop, fmt.Errorf("logging: bad value for %s: %w", EnvLevel, err)
		}
	}

	path, _ := lookup(EnvFile)
	if path = strings.TrimSpace(path); path == "" {
		logger := New(zapcore.Lock(os.Stderr), level)
		return logger, func() { _ = logger.Sync() }, nil
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return zap.NewNop(), noop, fmt.Errorf("logging: open log file: %w", err)
	}
	logger := New(zapcore.AddSync(f), level)
	return logger, func() {
		_ = logger.Sync()
		_ = f.Close()
	}, nil
}

// New builds a JSON logger writing to w at the given level.
func New(w io.Writer, level zapcore.Level) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	return zap.New(zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(w),
		level,
	))
}
