package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/webhdfs/webhdfs_sdk_go/internal/httpx"
	"github.com/webhdfs/webhdfs_sdk_go/internal/logging"
	"github.com/webhdfs/webhdfs_sdk_go/pkg/webhdfs"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	v       *viper.Viper
	out     io.Writer
	client  *webhdfs.Client
	logger  *zap.Logger
	cleanup func()
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out, logger: zap.NewNop(), cleanup: func() {}}
	var cfgFile string

	root := &cobra.Command{
		Use:   "webhdfs",
		Short: "Command line client for the Hadoop WebHDFS REST API",
		Long: `webhdfs talks to a Hadoop name node over the WebHDFS REST API.

The name node is taken from --host/--port, the WEBHDFS_* environment, or a
webhdfs.yaml config file in $HOME/.webhdfs or the working directory. Without a
host it falls back to WEBHDFS_RUNTIME_MODE and the Hadoop client configuration.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.connect(cfgFile)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.cleanup()
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default $HOME/.webhdfs/webhdfs.yaml)")
	flags.String("host", "", "name-node host")
	flags.Int("port", 9870, "name-node HTTP port")
	flags.String("user", "", "user.name sent with every request")
	flags.Float64("rate-limit", 0, "maximum requests per second (0 disables)")
	flags.StringP("output", "o", outputText, "output format: text, json or yaml")
	flags.BoolP("verbose", "v", false, "log every exchange to stderr")

	for key, name := range map[string]string{
		"host":       "host",
		"port":       "port",
		"user":       "user",
		"rate_limit": "rate-limit",
		"output":     "output",
		"verbose":    "verbose",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(name))
	}

	root.AddCommand(
		putCmd(a),
		appendCmd(a),
		catCmd(a),
		mkdirCmd(a),
		mvCmd(a),
		rmCmd(a),
		statCmd(a),
		lsCmd(a),
		homeCmd(a),
		chownCmd(a),
		chmodCmd(a),
		duCmd(a),
	)
	return root
}

func (a *app) connect(cfgFile string) error {
	v := a.v
	v.SetEnvPrefix("WEBHDFS")
	v.AutomaticEnv()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("webhdfs")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.webhdfs")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	switch a.output() {
	case outputText, outputJSON, outputYAML:
	default:
		return fmt.Errorf("unsupported output format %q", v.GetString("output"))
	}

	if v.GetBool("verbose") {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		a.logger = logger
		a.cleanup = func() { _ = logger.Sync() }
	} else {
		logger, cleanup, err := logging.FromEnv()
		if err != nil {
			return err
		}
		a.logger, a.cleanup = logger, cleanup
	}
	opts := []httpx.Option{httpx.WithLogger(a.logger)}

	host := strings.TrimSpace(v.GetString("host"))
	if host == "" {
		client, mode, err := webhdfs.NewFromEnv(opts...)
		if err != nil {
			return err
		}
		a.logger.Debug("client configured from environment", zap.String("mode", mode))
		a.client = client
		return nil
	}

	if rps := v.GetFloat64("rate_limit"); rps > 0 {
		opts = append(opts, httpx.WithRateLimit(rps, int(math.Max(1, math.Ceil(rps)))))
	}
	client, err := webhdfs.New(webhdfs.Config{
		Host: host,
		Port: v.GetInt("port"),
		User: strings.TrimSpace(v.GetString("user")),
	}, opts...)
	if err != nil {
		return err
	}
	a.client = client
	return nil
}

func (a *app) output() string {
	return strings.ToLower(strings.TrimSpace(a.v.GetString("output")))
}
