package soak

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nspcc-dev/refs/pkg/config"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

func TestGetConfigFromContext(t *testing.T) {
	set := flag.NewFlagSet("flagSet", flag.ExitOnError)
	set.String("config-path", "../../config/soak.yml", "")
	set.Duration("duration", 3*time.Second, "")
	ctx := cli.NewContext(cli.NewApp(), set, nil)
	cfg, err := getConfigFromContext(ctx)
	require.NoError(t, err)
	require.Equal(t, 16, cfg.SoakConfiguration.Workers)
	require.Equal(t, 3*time.Second, cfg.SoakConfiguration.Duration)
}

func TestGetConfigFromContextMissing(t *testing.T) {
	set := flag.NewFlagSet("flagSet", flag.ExitOnError)
	set.String("config-path", filepath.Join(t.TempDir(), "nonexistent.yml"), "")
	ctx := cli.NewContext(cli.NewApp(), set, nil)
	_, err := getConfigFromContext(ctx)
	require.Error(t, err)
}

func TestHandleLoggingParams(t *testing.T) {
	d := t.TempDir()
	testLog := filepath.Join(d, "file.log")

	t.Run("logdir is a file", func(t *testing.T) {
		logfile := filepath.Join(d, "logdir")
		require.NoError(t, os.WriteFile(logfile, []byte{1, 2, 3}, os.ModePerm))
		set := flag.NewFlagSet("flagSet", flag.ExitOnError)
		ctx := cli.NewContext(cli.NewApp(), set, nil)
		cfg := config.ApplicationConfiguration{
			LogPath: filepath.Join(logfile, "file.log"),
		}
		_, err := handleLoggingParams(ctx, cfg)
		require.Error(t, err)
	})

	t.Run("default", func(t *testing.T) {
		set := flag.NewFlagSet("flagSet", flag.ExitOnError)
		ctx := cli.NewContext(cli.NewApp(), set, nil)
		cfg := config.ApplicationConfiguration{
			LogPath: testLog,
		}
		logger, err := handleLoggingParams(ctx, cfg)
		require.NoError(t, err)
		require.True(t, logger.Core().Enabled(zap.InfoLevel))
		require.False(t, logger.Core().Enabled(zap.DebugLevel))
	})

	t.Run("debug", func(t *testing.T) {
		set := flag.NewFlagSet("flagSet", flag.ExitOnError)
		set.Bool("debug", true, "")
		ctx := cli.NewContext(cli.NewApp(), set, nil)
		cfg := config.ApplicationConfiguration{
			LogPath: testLog,
		}
		logger, err := handleLoggingParams(ctx, cfg)
		require.NoError(t, err)
		require.True(t, logger.Core().Enabled(zap.InfoLevel))
		require.True(t, logger.Core().Enabled(zap.DebugLevel))
	})
}

func TestSoakCommand(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "soak.yml")
	data := `
SoakConfiguration:
  Workers: 2
  Slots: 4
  CacheSize: 4
  Duration: 100ms
  ReportInterval: 50ms
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(data), 0o600))

	set := flag.NewFlagSet("flagSet", flag.ExitOnError)
	set.String("config-path", cfgPath, "")
	ctx := cli.NewContext(cli.NewApp(), set, nil)
	require.NoError(t, startSoak(ctx))
}
