package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pable/go-hax-metrics/internal/config"
	"github.com/pable/go-hax-metrics/internal/storage"
	"github.com/pable/go-hax-metrics/pkg/logger"
)

var (
	dbPath     string
	configPath string
	logLevel   string

	cfg = config.New()
)

var rootCmd = &cobra.Command{
	Use:               "haxmetrics",
	Short:             "Ball-sport match metrics tool",
	Long:              "Replay host event streams, classify kicks and possession, and compute per-player metrics.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", cfg.DBPath, "path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $HAXMETRICS_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(kicksCmd)
	rootCmd.AddCommand(possessionCmd)
	rootCmd.AddCommand(playersCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(shellCmd)
}

// loadConfig layers config file and env under explicit flags, then sets up logging.
func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("db") {
		c.DBPath = dbPath
	} else {
		dbPath = c.DBPath
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}

	if err := logger.Init(logger.Options{JSON: c.LogJSON}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := logger.SetLevelString(c.LogLevel); err != nil {
		return err
	}
	cfg = c
	return nil
}

func openStorage() (*storage.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return db, nil
}
