package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/solatis/queryforge/internal/core/config"
	"github.com/solatis/queryforge/internal/core/db"
	"github.com/solatis/queryforge/internal/core/query"
	"github.com/solatis/queryforge/internal/types"
)

const Version = "0.1.0"

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "queryforge",
	Short: "QueryForge filter compilation service",
	Long:  `QueryForge compiles visual filter trees into SQL, Elasticsearch, and MongoDB queries with validation, optimization, and injection-safe parameterization.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds a slog logger from the persistent flags. Logs go to
// stderr so command output on stdout stays machine-readable.
func newLogger() *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if logFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// loadConfig applies the --db-url override on top of the file/env config.
func loadConfig() (*config.ServiceConfig, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	return cfg, nil
}

// newService wires a service for stateless commands (no database).
func newService(cfg *config.ServiceConfig) (*query.Service, error) {
	return query.NewService(cfg, nil, nil, newLogger())
}

// newServiceWithStore wires a service with persistence and share secrets
// for template commands.
func newServiceWithStore(cfg *config.ServiceConfig) (*query.Service, func(), error) {
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}

	secrets, err := config.ShareSecrets()
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load share secrets: %w", err)
	}

	svc, err := query.NewService(cfg, query.NewStore(queries), secrets, newLogger())
	if err != nil {
		database.Close()
		return nil, nil, err
	}

	return svc, func() { database.Close() }, nil
}

// readTree loads and decodes a filter tree from a JSON file.
func readTree(path string) (types.Node, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tree file: %w", err)
	}
	root, err := types.UnmarshalNode(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tree: %w", err)
	}
	return root, nil
}
