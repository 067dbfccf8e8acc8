package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"weekcal/internal/config"
	"weekcal/internal/ics"
	appLog "weekcal/internal/log"
	"weekcal/internal/render"
	"weekcal/internal/web"
)

var version = "0.1.0"

type rootFlags struct {
	configPath string
	url        string
	output     string
	stdout     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		appLog.Error("run failed", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:     "weekcal",
		Short:   "Extract the current week's events from a shared calendar feed",
		Long:    "weekcal fetches an iCalendar feed, selects the events of the current Monday-to-Sunday week (expanding recurrences), and writes them as a Markdown document.",
		Version: version,
		// Errors are logged once in main; cobra should not echo them again.
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags.configPath)
			if err != nil {
				return err
			}
			return runOnce(cmd.Context(), cfg, flags.url, flags.output, flags.stdout)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to config file (optional; built-in defaults are used when omitted)")
	cmd.Flags().StringVar(&flags.url, "url", "", "URL of the shared calendar feed (required)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output Markdown file (default "+config.DefaultOutput+")")
	cmd.Flags().BoolVar(&flags.stdout, "stdout", false, "Echo the rendered document to stdout as well")
	_ = cmd.MarkFlagRequired("url")

	cmd.AddCommand(newWatchCmd(flags))

	return cmd
}

type watchFlags struct {
	url    string
	output string
	listen string
	cron   string
}

func newWatchCmd(root *rootFlags) *cobra.Command {
	flags := &watchFlags{}

	cmd := &cobra.Command{
		Use:           "watch",
		Short:         "Re-render on a cron schedule and serve the document over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root.configPath)
			if err != nil {
				return err
			}
			if flags.cron != "" {
				cfg.Refresh = flags.cron
			}
			if flags.listen != "" {
				cfg.Listen = flags.listen
			}
			return runWatch(cfg, flags.url, flags.output)
		},
	}

	cmd.Flags().StringVar(&flags.url, "url", "", "URL of the shared calendar feed (required)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output Markdown file (default "+config.DefaultOutput+")")
	cmd.Flags().StringVar(&flags.listen, "listen", "", "HTTP listen address for the preview server (overrides config)")
	cmd.Flags().StringVar(&flags.cron, "cron", "", "Cron schedule for refresh (overrides config)")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

// loadConfig resolves the effective configuration. Without --config the
// built-in defaults apply and no file is touched; with it, config.Load's
// first-run semantics create the file if missing.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, errors.Wrapf(err, "load config %s", path)
		}
		cfg = loaded
	}
	appLog.SetLevel(cfg.LogLevel)
	return cfg, nil
}

// runOnce is the whole pipeline: fetch -> parse -> filter/expand ->
// render. Zero selected occurrences is a successful run that writes
// nothing and prints a notice.
func runOnce(ctx context.Context, cfg *config.Config, url, output string, echo bool) error {
	if output == "" {
		output = cfg.Output
	}

	fetcher := ics.NewFetcher(cfg.UserAgent, cfg.Timeout())
	body, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}

	win := ics.CurrentWeek(time.Now())
	appLog.Info("current week",
		"start", win.Start.Format("2006-01-02"),
		"end", win.End.Format("2006-01-02"),
	)

	events, err := ics.ParseFeed(body)
	if err != nil {
		return err
	}

	occurrences := ics.SelectOccurrences(events, win)
	appLog.Info("occurrences selected", "count", len(occurrences))

	if len(occurrences) == 0 {
		fmt.Println("No events found for the current week.")
		return nil
	}

	doc := render.Markdown(occurrences, render.Options{
		WeekStart:       win.Start,
		WeekEnd:         win.End,
		Now:             time.Now(),
		TruncateMarkers: cfg.TruncateMarkers,
	})

	if err := render.WriteFile(output, doc); err != nil {
		return err
	}
	if _, err := os.Stat(output); err != nil {
		return errors.Wrapf(err, "output file %s missing after write", output)
	}
	fmt.Printf("Events saved to %s\n", output)

	if echo {
		fmt.Println(doc)
	}
	return nil
}

// runWatch re-runs the pipeline on cfg.Refresh and serves the latest
// document until SIGINT/SIGTERM.
func runWatch(cfg *config.Config, url, output string) error {
	if output == "" {
		output = cfg.Output
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	refresh := func() {
		runCtx, runCancel := context.WithTimeout(ctx, 2*time.Minute)
		defer runCancel()
		if err := runOnce(runCtx, cfg, url, output, false); err != nil {
			appLog.Error("scheduled refresh failed", err)
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Refresh, refresh); err != nil {
		return errors.Wrapf(err, "parse refresh schedule %q", cfg.Refresh)
	}

	appLog.Info("watch mode starting",
		"refresh", cfg.Refresh,
		"listen", cfg.Listen,
		"output", output,
	)

	// Initial render before the first cron tick.
	refresh()
	c.Start()

	webErr := make(chan error, 1)
	go func() {
		webErr <- web.StartServer(ctx, cfg.Listen, output)
	}()

	select {
	case <-ctx.Done():
	case err := <-webErr:
		if err != nil {
			cancel()
			<-c.Stop().Done()
			return errors.Wrap(err, "preview server")
		}
	}

	<-c.Stop().Done()
	appLog.Info("watch mode exiting")
	return nil
}
