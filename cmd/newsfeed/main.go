// Package main provides the newsfeed CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-newsfeed/internal/app"
	"github.com/samvad-hq/samvad-newsfeed/internal/config"
	"github.com/samvad-hq/samvad-newsfeed/internal/domain"
	"github.com/samvad-hq/samvad-newsfeed/internal/feed"
	"github.com/samvad-hq/samvad-newsfeed/internal/logger"
)

var version = "0.1.0"

const emptyNotice = "No articles found. Try other sources or loosen the filters."

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// newRootCmd creates the root command for the newsfeed CLI.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "newsfeed",
		Short:         "Aggregate headlines from NewsAPI, The Guardian and the New York Times",
		Long:          "Newsfeed merges paginated results from several news APIs into one feed, driven by your saved preferences.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate("newsfeed version {{.Version}}\n")

	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newPrefsCmd())

	return rootCmd
}

// bootstrap loads config, initializes logging and builds the runtime.
func bootstrap(ctx context.Context, opts app.Options) (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	log.DebugObj("newsfeed starting", "config", cfg.Redacted())

	a, err := app.New(ctx, cfg, log, opts)
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}

	cleanup := func() {
		if err := a.Close(); err != nil {
			log.ErrorObj("shutdown failed", "error", err)
		}
		_ = log.Sync()
	}
	return a, cleanup, nil
}

// newFetchCmd creates the fetch subcommand.
func newFetchCmd() *cobra.Command {
	var (
		sourceList []string
		category   string
		search     string
		date       string
		pages      int
		publish    bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Print the aggregated feed as JSON lines",
		Long: "Fetch the first page from every selected source, then up to --pages in total while any source " +
			"reports more results. Flags override saved preferences for this run only. Sources are rate limited " +
			"per the catalog's requests_per_second; a source whose next slot is too far away is skipped for that page.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, cleanup, err := bootstrap(ctx, app.Options{Publish: publish})
			if err != nil {
				return printErr(cmd, err)
			}
			defer cleanup()

			metricsCtx, stopMetrics := context.WithCancel(ctx)
			defer stopMetrics()
			go func() { _ = a.ServeMetrics(metricsCtx) }()

			sel := a.DefaultSelection()
			if cmd.Flags().Changed("sources") {
				sel.Sources = domain.ParseSourceIDs(sourceList...)
			}
			if cmd.Flags().Changed("category") {
				sel.Filters.Category = strings.TrimSpace(category)
			}
			sel.Filters.SearchTerm = strings.TrimSpace(search)
			sel.Filters.Date = strings.TrimSpace(date)

			enc := json.NewEncoder(cmd.OutOrStdout())
			summary, err := a.Run(ctx, sel, pages, func(art domain.Article) error {
				return enc.Encode(art)
			})
			if err != nil {
				return reportErr(cmd, err)
			}
			if summary.Empty() {
				fmt.Fprintln(cmd.ErrOrStderr(), emptyNotice)
			}
			if summary.PublishErrors > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d page(s) failed to publish; see logs\n", summary.PublishErrors)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&sourceList, "sources", "s", nil, "Sources to query (newsapi, guardian, nyt)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category filter (defaults to the saved category)")
	cmd.Flags().StringVarP(&search, "q", "q", "", "Search term")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Earliest publish date (YYYY-MM-DD)")
	cmd.Flags().IntVarP(&pages, "pages", "p", 1, "Maximum number of pages to load")
	cmd.Flags().BoolVar(&publish, "publish", false, "Send each page to the configured publishers")

	return cmd
}

// reportErr prints the feed's user facing message for err and returns it so
// the process exits non-zero.
func reportErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), feed.State{Err: err}.ErrorMessage())
	return err
}

func printErr(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	return err
}

// newPrefsCmd creates the prefs subcommand tree.
func newPrefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change saved feed preferences",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print saved preferences as JSON",
		Args:  cobra.NoArgs,
		RunE: withPrefs(func(cmd *cobra.Command, a *app.App, _ []string) error {
			return printPrefs(cmd, a)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-sources <id>[,<id>...]",
		Short: "Choose which sources the feed queries",
		Args:  cobra.MinimumNArgs(1),
		RunE: withPrefs(func(cmd *cobra.Command, a *app.App, args []string) error {
			if err := a.Preferences().SetSources(domain.ParseSourceIDs(args...)); err != nil {
				return err
			}
			return printPrefs(cmd, a)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-category <category>",
		Short: "Choose the default category",
		Args:  cobra.ExactArgs(1),
		RunE: withPrefs(func(cmd *cobra.Command, a *app.App, args []string) error {
			if err := a.Preferences().SetCategory(args[0]); err != nil {
				return err
			}
			return printPrefs(cmd, a)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-authors [author...]",
		Short: "Replace the followed authors",
		RunE: withPrefs(func(cmd *cobra.Command, a *app.App, args []string) error {
			if err := a.Preferences().SetAuthors(args); err != nil {
				return err
			}
			return printPrefs(cmd, a)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore default preferences",
		Args:  cobra.NoArgs,
		RunE: withPrefs(func(cmd *cobra.Command, a *app.App, _ []string) error {
			if err := a.Preferences().Reset(); err != nil {
				return err
			}
			return printPrefs(cmd, a)
		}),
	})

	return cmd
}

func withPrefs(fn func(*cobra.Command, *app.App, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := bootstrap(cmd.Context(), app.Options{})
		if err != nil {
			return printErr(cmd, err)
		}
		defer cleanup()
		if err := fn(cmd, a, args); err != nil {
			return printErr(cmd, err)
		}
		return nil
	}
}

func printPrefs(cmd *cobra.Command, a *app.App) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(a.Preferences().Snapshot())
}
