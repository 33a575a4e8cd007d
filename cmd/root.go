package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/cadence/internal/auth"
	"github.com/joescharf/cadence/internal/cache"
	"github.com/joescharf/cadence/internal/content"
	"github.com/joescharf/cadence/internal/logging"
	"github.com/joescharf/cadence/internal/output"
	"github.com/joescharf/cadence/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui         *output.UI
	logger     *slog.Logger
	dataStore  store.Store
	listCache  cache.Cache
	contentSvc *content.Service

	verbose bool
	dryRun  bool
)

// Set from main via Execute.
var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "cadence",
	Short: "Cadence - plan content from idea to published",
	Long: `cadence tracks content items through a kanban lifecycle
(idea, draft, scheduled, published) with WIP limits, deadline risk
flags, and throughput stats. It also serves a JSON API for the
dashboard and an MCP server for AI assistants.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(ui.Out, "cadence %s (commit %s, built %s)\n", buildVersion, buildCommit, buildDate)
	},
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	err := rootCmd.Execute()
	if logger != nil {
		closeDeps()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rootRun(cmd)
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/cadence/config.yaml)")
	rootCmd.PersistentFlags().String("user", "", "Act as this user id (overrides user.id)")
	_ = viper.BindPFlag("user.id", rootCmd.PersistentFlags().Lookup("user"))

	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	// An optional .env in the working directory seeds the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: ignoring .env: %v\n", err)
	}

	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configDir, err := configDirFunc()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CADENCE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers a default for every config key.
func setDefaults() {
	stateDir, err := configDirFunc()
	if err != nil {
		stateDir = "."
	}

	viper.SetDefault("state_dir", stateDir)
	viper.SetDefault("db_path", filepath.Join(stateDir, "cadence.db"))
	viper.SetDefault("user.id", "local")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	viper.SetDefault("cache.ttl", "5m")
	viper.SetDefault("port", 8080)
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	level := viper.GetString("log.level")
	if verbose {
		level = "debug"
	}
	logger = logging.New(level, viper.GetString("log.format"), os.Stderr)

	// Store and service are opened lazily so config/version run without a db.
}

// rootRun handles `cadence` with no subcommand: show the board.
func rootRun(cmd *cobra.Command) error {
	if _, err := getService(); err != nil {
		return cmd.Help()
	}
	return boardRun("")
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(context.Background()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// newCache builds the list cache selected by cache.backend.
func newCache() (cache.Cache, error) {
	ttl := viper.GetDuration("cache.ttl")
	switch backend := viper.GetString("cache.backend"); backend {
	case "", "memory":
		return cache.NewMemoryCache(ttl), nil
	case "redis":
		c, err := cache.NewRedisCache(viper.GetString("cache.redis_url"), ttl)
		if err != nil {
			return nil, err
		}
		logger.Debug("using redis cache", "url", viper.GetString("cache.redis_url"), "ttl", ttl)
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache.backend %q (want memory or redis)", backend)
	}
}

// getService returns the shared content service, initializing it on first call.
func getService() (*content.Service, error) {
	if contentSvc != nil {
		return contentSvc, nil
	}
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	c, err := newCache()
	if err != nil {
		return nil, err
	}
	listCache = c
	contentSvc = content.NewService(s, c, logger)
	return contentSvc, nil
}

// closeDeps releases the store and any networked cache.
func closeDeps() {
	if closer, ok := listCache.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("close cache", "error", err)
		}
	}
	if dataStore != nil {
		if err := dataStore.Close(); err != nil {
			logger.Warn("close store", "error", err)
		}
	}
	listCache, dataStore, contentSvc = nil, nil, nil
}

// userContext returns a context acting as the configured user.
func userContext() context.Context {
	return auth.WithUser(context.Background(), viper.GetString("user.id"))
}

// commandTimeout bounds one-shot CLI operations.
const commandTimeout = 30 * time.Second
