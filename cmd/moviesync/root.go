package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"moviesync/internal/config"
	"moviesync/internal/logger"
)

var (
	cfgFile  string
	envFile  string
	logLevel string
	retries  int
	runID    string
	cfg      *config.Config
	log      *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "moviesync",
	Short: "Movie catalog ingest and popular review sync",
	Long: `moviesync keeps a MongoDB catalog of recent movies up to date.

Example usage:
  moviesync run                            # ingest the review window, then sync popular reviews
  moviesync sync                           # sync the popular set only
  moviesync ingest --from 2024-03-01       # ingest every movie released since a date
  moviesync --config moviesync.yaml run    # use a config file`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}

		return initConfig()
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if log != nil {
			_ = log.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with TMDB_API_KEY and MONGO_URI")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", -1, "override tasks.retries")
}

// initConfig loads the YAML configuration and sets up the logger.
func initConfig() error {
	var err error

	cfg, err = config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid --log-level: %w", err)
		}
	}

	if retries >= 0 {
		cfg.Tasks.Retries = retries
	}

	runID = uuid.NewString()

	log = logger.New(logger.Options{
		Output:     os.Stderr,
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMb:  cfg.Logging.MaxSizeMb,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	}).With("run_id", runID)

	return nil
}
