package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/bluefunda/greenapi-console/config"
	"github.com/bluefunda/greenapi-console/form"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func testLoggingConfig(file string) config.LoggingConfig {
	return config.LoggingConfig{Level: "info", File: file, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1}
}

func TestInitLogger_Levels(t *testing.T) {
	t.Parallel()

	verbose, err := initLogger(true, false, testLoggingConfig(""))
	require.NoError(t, err)
	require.True(t, verbose.Core().Enabled(zapcore.DebugLevel))

	normal, err := initLogger(false, false, testLoggingConfig(""))
	require.NoError(t, err)
	require.False(t, normal.Core().Enabled(zapcore.DebugLevel))
	require.True(t, normal.Core().Enabled(zapcore.InfoLevel))

	quiet, err := initLogger(false, true, testLoggingConfig(""))
	require.NoError(t, err)
	require.False(t, quiet.Core().Enabled(zapcore.WarnLevel))
	require.True(t, quiet.Core().Enabled(zapcore.ErrorLevel))
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	t.Parallel()

	cfg := testLoggingConfig("")
	cfg.Level = "chatty"
	_, err := initLogger(false, false, cfg)
	require.Error(t, err)
}

func TestInitLogger_WritesRotatingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "console.log")
	log, err := initLogger(false, true, testLoggingConfig(path))
	require.NoError(t, err)

	log.Warn("written to file")
	require.NoError(t, log.Sync())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "written to file")
}

func newFlagCommand(flags *Config) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().IntVar(&flags.Port, "port", 8080, "")
	cmd.Flags().StringVar(&flags.APIBase, "api-base", "", "")
	cmd.Flags().StringVar(&flags.LogFile, "log-file", "", "")
	return cmd
}

func TestLoadConfig_FlagsOverrideDefaults(t *testing.T) {
	t.Parallel()

	flags := &Config{}
	cmd := newFlagCommand(flags)
	require.NoError(t, cmd.Flags().Parse([]string{"--port", "9191", "--api-base", "http://127.0.0.1:9191/api/v1"}))

	cfg, err := loadConfig(cmd, flags)
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Server.Port)
	require.Equal(t, "http://127.0.0.1:9191/api/v1", cfg.Console.APIBase)
}

func TestLoadConfig_UnsetFlagsKeepDefaults(t *testing.T) {
	t.Parallel()

	flags := &Config{}
	cmd := newFlagCommand(flags)
	require.NoError(t, cmd.Flags().Parse(nil))

	cfg, err := loadConfig(cmd, flags)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "http://localhost:8080/api/v1", cfg.Console.APIBase)
}

func TestLoadConfig_InvalidOverride(t *testing.T) {
	t.Parallel()

	flags := &Config{}
	cmd := newFlagCommand(flags)
	require.NoError(t, cmd.Flags().Parse([]string{"--port", "70000"}))

	_, err := loadConfig(cmd, flags)
	require.Error(t, err)
}

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	require.Equal(t, ExitSuccess, exitCodeFor(nil))
	require.Equal(t, ExitMisuse, exitCodeFor(fmt.Errorf("settings: %w", form.ErrValidation)))
	require.Equal(t, ExitMisuse, exitCodeFor(fmt.Errorf("%w: bad flag", errUsage)))
	require.Equal(t, ExitGeneralError, exitCodeFor(fmt.Errorf("settings: %w", form.ErrNetwork)))
	require.Equal(t, ExitGeneralError, exitCodeFor(errors.New("boom")))
}

func TestRootCommand_RegistersActions(t *testing.T) {
	t.Parallel()

	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"server", "settings", "state", "send-message", "send-file-by-url", "docs"} {
		require.True(t, names[want], "missing command %s", want)
	}
}
