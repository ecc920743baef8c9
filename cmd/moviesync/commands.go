package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	ingestFrom string
	ingestTo   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest the review window, then sync popular reviews",
	Long: `Run the daily job: every movie released within sync.review_window_days is
ingested with its details, reviews and credits, then the popular set is
synchronized. Each step is retried as a task.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			to := time.Now()
			from := to.Add(-cfg.ReviewWindow())

			log.Info("starting run", "from", from.Format(time.DateOnly), "to", to.Format(time.DateOnly))

			if err := a.ingest(ctx, from, to); err != nil {
				return err
			}

			return a.sync(ctx)
		})
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize the popular set and its reviews",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			return a.sync(ctx)
		})
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest every movie released in a date range",
	Long: `Ingest details, reviews, cast and directors of every movie released
between --from and --to (inclusive, YYYY-MM-DD). --to defaults to today and
--from to the start of the review window.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		from, to, err := ingestWindow(ingestFrom, ingestTo, time.Now(), cfg.ReviewWindow())
		if err != nil {
			return err
		}

		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			return a.ingest(ctx, from, to)
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "moviesync", version)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFrom, "from", "", "first release date (YYYY-MM-DD)")
	ingestCmd.Flags().StringVar(&ingestTo, "to", "", "last release date (YYYY-MM-DD)")

	rootCmd.AddCommand(runCmd, syncCmd, ingestCmd, versionCmd)
}

// ingestWindow parses the --from and --to flags.
func ingestWindow(from, to string, now time.Time, window time.Duration) (time.Time, time.Time, error) {
	end := now

	if to != "" {
		parsed, err := time.Parse(time.DateOnly, to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}

		end = parsed
	}

	start := end.Add(-window)

	if from != "" {
		parsed, err := time.Parse(time.DateOnly, from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
		}

		start = parsed
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("--from %s is after --to %s", start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	return start, end, nil
}
