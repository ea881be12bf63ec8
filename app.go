package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/bluefunda/greenapi-console/config"
	"github.com/bluefunda/greenapi-console/rest/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// POSIX-compliant exit codes
const (
	ExitSuccess      = 0   // Successful completion
	ExitGeneralError = 1   // General error
	ExitMisuse       = 2   // Misuse of shell command
	ExitSIGINT       = 130 // Terminated by Ctrl+C (128 + 2)
	ExitSIGTERM      = 143 // Terminated by SIGTERM (128 + 15)
)

// Build-time variables set via ldflags
var (
	Version   string = "v0.1.0"
	BuildTime string = "unknown"
	GitCommit string = "unknown"
	BuildMode string = "dev"
)

// Config holds the command line state. File and environment settings live in
// config.Config; flags set here override them.
type Config struct {
	// Mode
	Mode string // "server", "cli"
	Port int

	// Common flags - QUIET IS DEFAULT
	Quiet   bool
	Verbose bool
	Normal  bool

	// GREEN-API credentials
	IDInstance string
	APIToken   string
	ShowToken  bool

	// Backend the CLI form controller posts to
	APIBase string

	LogFile    string
	ConfigFile string
}

const (
	PROGRAM_NAME = "greenapi-console"
)

var (
	logger     *zap.Logger
	rootConfig = &Config{}
	appConfig  config.Config

	receivedSignal atomic.Value
)

// Root command
var rootCmd = &cobra.Command{
	Use:   PROGRAM_NAME,
	Short: "GREEN-API console - browser form, REST backend and CLI",
	Long: `GREEN-API console - browser form, REST backend and CLI

Calls four GREEN-API methods (getSettings, getStateInstance, sendMessage,
sendFileByUrl) either from the embedded browser form served by "server"
or directly from the command line.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, rootConfig)
		if err != nil {
			return err
		}
		appConfig = cfg

		logger, err = initLogger(rootConfig.Verbose, rootConfig.Quiet && !rootConfig.Normal, appConfig.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		logger.Info("Application starting",
			zap.String("version", Version),
			zap.String("build_mode", BuildMode),
			zap.String("build_time", BuildTime),
			zap.String("git_commit", GitCommit),
			zap.String("command", cmd.Name()))

		return nil
	},
}

// Server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the REST backend and serve the browser form",
	Long: `Start the backend that serves the browser form at / and proxies its four
calls under /api/v1 to GREEN-API.

EXAMPLES:
  greenapi-console server
  greenapi-console server --port 9090 --config ./greenapi.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootConfig.Mode = "server"
		return runServerMode(cmd.Context(), appConfig)
	},
}

// loadConfig reads file and environment settings, then applies flags the user set.
func loadConfig(cmd *cobra.Command, flags *Config) (config.Config, error) {
	cfg, err := config.Load(flags.ConfigFile)
	if err != nil {
		return config.Config{}, err
	}

	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("port") {
		cfg.Server.Port = flags.Port
	}
	if changed("api-base") {
		cfg.Console.APIBase = flags.APIBase
	}
	if changed("log-file") || (cfg.Logging.File == "" && flags.LogFile != "") {
		cfg.Logging.File = flags.LogFile
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// initLogger builds the zap logger for the selected output mode. With a log
// file configured, output goes to a rotating file instead of stderr.
func initLogger(verbose, quiet bool, logCfg config.LoggingConfig) (*zap.Logger, error) {
	var (
		encoder zapcore.Encoder
		level   zapcore.Level
	)

	switch {
	case verbose:
		level = zapcore.DebugLevel
		encoder = zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			TimeKey:        "T",
			LevelKey:       "L",
			NameKey:        "N",
			CallerKey:      "C",
			MessageKey:     "M",
			StacktraceKey:  "S",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.TimeEncoderOfLayout("15:04:05"),
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		})
	case quiet:
		level = zapcore.WarnLevel
		encoder = zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:     "timestamp",
			LevelKey:    "level",
			MessageKey:  "message",
			LineEnding:  zapcore.DefaultLineEnding,
			EncodeLevel: zapcore.LowercaseLevelEncoder,
			EncodeTime:  zapcore.ISO8601TimeEncoder,
		})
	default:
		if err := level.Set(logCfg.Level); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", logCfg.Level, err)
		}
		encoder = zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.EpochTimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		})
	}

	var cores []zapcore.Core
	stderr := zapcore.Lock(os.Stderr)

	if logCfg.File != "" {
		file := zapcore.AddSync(&lumberjack.Logger{
			Filename:   logCfg.File,
			MaxSize:    logCfg.MaxSizeMB,
			MaxBackups: logCfg.MaxBackups,
			MaxAge:     logCfg.MaxAgeDays,
		})
		cores = append(cores, zapcore.NewCore(encoder, file, level))

		// In verbose mode, also output to stderr
		if verbose {
			cores = append(cores, zapcore.NewCore(encoder.Clone(), stderr, level))
		}
	} else if !quiet {
		cores = append(cores, zapcore.NewCore(encoder, stderr, level))
	} else {
		// Quiet mode: only errors reach stderr
		cores = append(cores, zapcore.NewCore(encoder, stderr, zapcore.ErrorLevel))
	}

	opts := []zap.Option{zap.ErrorOutput(stderr)}
	if verbose {
		opts = append(opts, zap.Development(), zap.AddCaller())
	}

	if logCfg.File != "" && !quiet {
		fmt.Fprintf(os.Stderr, "📄 Logging to: %s\n", logCfg.File)
	}

	return zap.New(zapcore.NewTee(cores...), opts...), nil
}

// Signal handling: the first SIGINT/SIGTERM cancels the returned context so the
// running command can shut down; the signal decides the exit code.
func setupSignalHandling(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			receivedSignal.Store(sig)
			if logger != nil {
				logger.Info("Received signal, shutting down gracefully", zap.String("signal", sig.String()))
			}
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// signalExitCode maps the received signal, if any, to its POSIX exit code.
func signalExitCode() (int, bool) {
	sig, ok := receivedSignal.Load().(os.Signal)
	if !ok {
		return 0, false
	}
	switch sig {
	case os.Interrupt:
		return ExitSIGINT, true
	case syscall.SIGTERM:
		return ExitSIGTERM, true
	default:
		return ExitGeneralError, true
	}
}

// runServerMode starts the REST server with the GREEN-API client behind it
func runServerMode(ctx context.Context, cfg config.Config) error {
	logger.Info("Starting in server mode",
		zap.String("address", cfg.Server.Address()),
		zap.String("green_api", cfg.GreenAPI.BaseURL))

	if !rootConfig.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	client := NewGreenAPIClient(cfg.GreenAPI, logger)

	serverConfig := &server.Config{
		Address:         cfg.Server.Address(),
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		ReadTimeout:     cfg.Server.ReadTimeout(),
		WriteTimeout:    cfg.Server.WriteTimeout(),
		ShutdownTimeout: cfg.Server.ShutdownTimeout(),
		BreakerOpen:     ErrCircuitBreakerOpen,
		Version:         Version,
		BuildTime:       BuildTime,
		GitCommit:       GitCommit,
	}

	restServer := server.NewRestServer(serverConfig, logger, client)
	if err := restServer.Start(ctx); err != nil {
		logger.Error("REST server failed", zap.Error(err))
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// Error handling helper
func exitWithError(err error, exitCode int) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", PROGRAM_NAME, err)
	if logger != nil {
		logger.Error("Application error", zap.Error(err), zap.Int("exit_code", exitCode))
		_ = logger.Sync()
	}
	os.Exit(exitCode)
}

func init() {
	// Initialize configuration with defaults
	rootConfig.Mode = "cli"
	rootConfig.Port = 8080
	rootConfig.Quiet = true // DEFAULT TO QUIET MODE
	rootConfig.IDInstance = os.Getenv("GREENAPI_ID_INSTANCE")
	rootConfig.APIToken = os.Getenv("GREENAPI_API_TOKEN")
	rootConfig.LogFile = os.Getenv("GREENAPI_LOG_FILE")

	// Add persistent flags
	rootCmd.PersistentFlags().BoolVarP(&rootConfig.Quiet, "quiet", "q", true, "Quiet mode (DEFAULT - print only the response)")
	rootCmd.PersistentFlags().BoolVar(&rootConfig.Normal, "normal", false, "Normal mode (show status and logs)")
	rootCmd.PersistentFlags().BoolVarP(&rootConfig.Verbose, "verbose", "v", false, "Verbose mode (detailed output + debug info)")
	rootCmd.PersistentFlags().StringVar(&rootConfig.LogFile, "log-file", rootConfig.LogFile, "Log to specified rotating file (or set GREENAPI_LOG_FILE)")
	rootCmd.PersistentFlags().StringVar(&rootConfig.ConfigFile, "config", "", "Configuration file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&rootConfig.IDInstance, "id-instance", rootConfig.IDInstance, "GREEN-API idInstance (or set GREENAPI_ID_INSTANCE)")
	rootCmd.PersistentFlags().StringVar(&rootConfig.APIToken, "api-token", rootConfig.APIToken, "GREEN-API apiTokenInstance (or set GREENAPI_API_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&rootConfig.ShowToken, "show-token", false, "Print the token unmasked in status output")
	rootCmd.PersistentFlags().StringVar(&rootConfig.APIBase, "api-base", "", "Backend API base the CLI posts to (default from config console.api_base)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	// Server command flags
	serverCmd.Flags().IntVarP(&rootConfig.Port, "port", "p", rootConfig.Port, "Port for server mode")

	// Add subcommands
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(sendMessageCmd)
	rootCmd.AddCommand(sendFileByURLCmd)
	rootCmd.AddCommand(docsCmd)

	// Customize version template
	rootCmd.SetVersionTemplate(`{{.Use}} {{.Version}}
Built: ` + BuildTime + `
Commit: ` + GitCommit + `
Mode: ` + BuildMode + `
Features: Browser form, REST backend and CLI
POSIX Compliant: Yes
`)
}
