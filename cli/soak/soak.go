// Package soak implements the soak command that churns ownership handles
// under a configurable load and verifies that every payload settles.
package soak

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/nspcc-dev/refs/pkg/config"
	"github.com/nspcc-dev/refs/pkg/services/metrics"
	"github.com/nspcc-dev/refs/pkg/soak"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// defaultConfigPath is used when the config-path flag is not given.
const defaultConfigPath = "./config/soak.yml"

// NewCommands returns the 'soak' command.
func NewCommands() []cli.Command {
	var cfgFlags = []cli.Flag{
		cli.StringFlag{
			Name:  "config-path",
			Usage: "path to the YAML run configuration",
		},
		cli.DurationFlag{
			Name:  "duration, t",
			Usage: "override the configured run duration",
		},
		cli.BoolFlag{
			Name:  "debug, d",
			Usage: "enable debug logging (LOTS of output)",
		},
	}
	return []cli.Command{
		{
			Name:   "soak",
			Usage:  "churn shared, weak and unique handles under load",
			Action: startSoak,
			Flags:  cfgFlags,
		},
	}
}

// newGraceContext returns a context that is canceled by SIGTERM or
// interrupt.
func newGraceContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, os.Interrupt)
	go func() {
		<-stop
		cancel()
	}()
	return ctx
}

// getConfigFromContext looks at the path and the duration flags and
// returns the appropriate config.
func getConfigFromContext(ctx *cli.Context) (config.Config, error) {
	configPath := defaultConfigPath
	if argCfg := ctx.String("config-path"); argCfg != "" {
		configPath = argCfg
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if d := ctx.Duration("duration"); d != 0 {
		cfg.SoakConfiguration.Duration = d
	}
	return cfg, nil
}

// handleLoggingParams reads logging parameters.
// If a user selected debug level -- function enables debug logging.
// If logPath is configured -- function creates a dir and a file for logging.
func handleLoggingParams(ctx *cli.Context, cfg config.ApplicationConfiguration) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if ctx.Bool("debug") {
		level = zapcore.DebugLevel
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cc.Encoding = "console"
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.Sampling = nil

	if logPath := cfg.LogPath; logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), os.ModePerm); err != nil {
			return nil, fmt.Errorf("could not create dir for logger: %w", err)
		}
		_, err := os.Create(logPath)
		if err != nil {
			return nil, err
		}
		cc.OutputPaths = []string{logPath}
	}

	return cc.Build()
}

func startSoak(ctx *cli.Context) error {
	cfg, err := getConfigFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	log, err := handleLoggingParams(ctx, cfg.ApplicationConfiguration)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	log = log.With(zap.String("run", uuid.NewString()))

	grace, cancel := context.WithCancel(newGraceContext())
	defer cancel()

	prometheus := metrics.NewPrometheusService(cfg.ApplicationConfiguration.Prometheus, log)
	pprof := metrics.NewPprofService(cfg.ApplicationConfiguration.Pprof, log)
	go prometheus.Start()
	go pprof.Start()
	defer prometheus.ShutDown()
	defer pprof.ShutDown()

	runner, err := soak.New(cfg.SoakConfiguration, log)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("failed to create soak runner: %w", err), 1)
	}
	res, err := runner.Run(grace)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	log.Info("soak run finished",
		zap.Int64("ops", res.Ops),
		zap.Duration("duration", res.Duration),
		zap.Int64("allocated", res.Counters.Allocated),
		zap.Int64("released", res.Counters.Released),
		zap.Int64("freed", res.Counters.Freed),
		zap.Int64("cacheHits", res.Cache.Hits),
		zap.Int64("cacheMisses", res.Cache.Misses),
	)
	return nil
}
