package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/username/festival-planner/internal/config"
	"github.com/username/festival-planner/internal/daemon"
	"github.com/username/festival-planner/internal/fetch"
	"github.com/username/festival-planner/internal/holiday"
	"github.com/username/festival-planner/internal/overview"
	"github.com/username/festival-planner/internal/preferences"
)

var (
	configPath string
	logger     *zap.Logger
	stdout     io.Writer = os.Stdout
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "festival-planner",
		Short: "Festival weekend planner",
		Long:  "Browse the festival catalog by week and month, mark favourites, share and merge them via links",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load config to get log file path
			cfg, err := config.Load(configPath)
			if err == nil && cfg.Daemon.LogFile != "" {
				logger, err = initFileLogger(cfg.Daemon.LogFile, cfg.Daemon.LogLevel)
				if err != nil {
					initLogger() // Fallback to console
				}
			} else {
				initLogger() // Default console logger
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: ./config.yaml or ~/.festival-planner/config.yaml)")

	rootCmd.AddCommand(weeksCmd())
	rootCmd.AddCommand(overviewCmd())
	rootCmd.AddCommand(likeCmd())
	rootCmd.AddCommand(likesCmd())
	rootCmd.AddCommand(shareCmd())
	rootCmd.AddCommand(openCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(initConfigCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// planner bundles the components every command works on
type planner struct {
	cfg    *config.Config
	store  *preferences.Store
	board  *overview.Board
	daemon *daemon.Daemon
}

func initializePlanner(cfg *config.Config) *planner {
	storage := preferences.NewFileStorage(cfg.Preferences.File)
	store := preferences.NewStore(storage, cfg.Preferences.GetKey(), logger)

	board := overview.NewBoard(cfg.Year, store, logger)
	d := daemon.NewDaemon(board, buildSources(cfg), cfg.Daemon.Schedule, logger)

	return &planner{
		cfg:    cfg,
		store:  store,
		board:  board,
		daemon: d,
	}
}

func buildSources(cfg *config.Config) daemon.Sources {
	catalogSource := fetch.FromLocation(cfg.Catalog.URL, "application/json", cfg.Catalog.GetTimeout(), logger)
	if cfg.Catalog.FallbackFile != "" {
		catalogSource = fetch.NewFallbackSource(catalogSource, fetch.NewFileSource(cfg.Catalog.FallbackFile), logger)
	}

	sources := daemon.Sources{
		Catalog:        catalogSource,
		Parser:         holiday.NewParser(cfg.Year, cfg.Year, logger),
		PublicHolidays: cfg.Holidays.PublicHolidays,
	}

	if cfg.Holidays.URL == "" {
		logger.Info("No school holiday calendar configured")
		return sources
	}

	var holidaySource fetch.Source
	if isRemote(cfg.Holidays.URL) {
		logger.Info("Using remote school holiday calendar",
			zap.String("url", cfg.Holidays.URL),
			zap.Duration("cache_ttl", cfg.Holidays.GetCacheTTL()))
		holidaySource = holiday.NewHTTPSource(cfg.Holidays.URL, cfg.Holidays.GetCacheTTL(), cfg.Holidays.GetTimeout(), logger)
	} else {
		holidaySource = holiday.NewFileSource(strings.TrimPrefix(cfg.Holidays.URL, "file://"))
	}

	if cfg.Holidays.FallbackFile != "" {
		holidaySource = holiday.NewCompositeSource(holidaySource, holiday.NewFileSource(cfg.Holidays.FallbackFile), logger)
	}
	sources.Holidays = holidaySource

	return sources
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func initLogger() {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var err error
	logger, err = config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
}

func initFileLogger(logFile string, level string) (*zap.Logger, error) {
	// Setup lumberjack for log rotation
	logWriter := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100,  // MB
		MaxBackups: 3,    // Keep max 3 old log files
		MaxAge:     28,   // days
		Compress:   true, // Compress old logs with gzip
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(logWriter),
		zapLevel,
	)

	return zap.New(core), nil
}
