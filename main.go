package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"reddit-persona/config"
	"reddit-persona/corpus"
	"reddit-persona/llm"
	"reddit-persona/notify"
	"reddit-persona/pipeline"
	"reddit-persona/reddit"
	"reddit-persona/scheduler"
	"reddit-persona/scrape"
	"reddit-persona/store"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file (defaults to PERSONA_CONFIG or config.yaml)")
		user       = flag.String("user", "", "Reddit username or profile URL")
		showStats  = flag.Bool("stats", false, "print aggregate run statistics and exit")
		schedule   = flag.Bool("schedule", false, "run daily at the configured time instead of once")
	)
	flag.Parse()

	path := *configPath
	if path == "" {
		path = config.GetConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config %s: %v\n", path, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	db, err := store.New(cfg.DBPath, cfg.DataDir)
	if err != nil {
		slog.Error("failed to initialize store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if *showStats {
		if err := printStats(context.Background(), db); err != nil {
			slog.Error("failed to read stats", "error", err)
			os.Exit(1)
		}
		return
	}

	if *user == "" {
		fmt.Fprintln(os.Stderr, "usage: reddit-persona -user <username or profile URL> [-config path] [-schedule]")
		os.Exit(2)
	}
	username, err := reddit.ParseUsername(*user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid user %q: %v\n", *user, err)
		os.Exit(2)
	}

	runner := buildRunner(cfg, db)

	var notifier *notify.Notifier
	if cfg.TelegramToken != "" && cfg.ChatID != 0 {
		notifier, err = notify.New(cfg.TelegramToken, cfg.ChatID)
		if err != nil {
			slog.Warn("telegram notifications disabled", "error", err)
			notifier = nil
		}
	}

	if *schedule {
		runScheduled(cfg, runner, notifier, username)
		return
	}

	result, err := runner.Run(context.Background(), username)
	fmt.Print(result.Summary())
	if notifier != nil {
		if nerr := notifier.RunFinished(result); nerr != nil {
			slog.Warn("failed to send notification", "error", nerr)
		}
	}
	if err != nil {
		os.Exit(1)
	}
}

func buildRunner(cfg *config.Config, db *store.Store) *pipeline.Runner {
	fetcher := reddit.NewClient(
		reddit.WithTimeout(time.Duration(cfg.FetchTimeoutSec) * time.Second),
	)
	generator := llm.NewClient(
		llm.WithBaseURL(cfg.OllamaURL),
		llm.WithModel(cfg.Model),
		llm.WithTimeout(time.Duration(cfg.TimeoutSecs)*time.Second),
		llm.WithMaxRetries(*cfg.MaxRetries),
	)

	opts := []pipeline.Option{
		pipeline.WithFetchLimit(cfg.FetchLimit),
		pipeline.WithCorpusConfig(corpus.Config{
			MaxItems: cfg.MaxItems,
			MaxChars: cfg.MaxChars,
			Order:    corpus.Order(cfg.Order),
		}),
	}
	if cfg.ScrapeLinks {
		opts = append(opts, pipeline.WithLinkScraper(scrape.NewScraper(
			scrape.WithTimeout(time.Duration(cfg.FetchTimeoutSec)*time.Second),
			scrape.WithMaxExcerptLength(cfg.ExcerptChars),
		)))
	}

	return pipeline.NewRunner(fetcher, generator, db, opts...)
}

func runScheduled(cfg *config.Config, runner *pipeline.Runner, notifier *notify.Notifier, username string) {
	sched, err := scheduler.New(cfg.Timezone)
	if err != nil {
		slog.Error("failed to initialize scheduler", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	job := func() {
		result, err := runner.Run(context.Background(), username)
		if err != nil {
			slog.Error("scheduled run failed", "username", username, "error", err)
		}
		if notifier != nil {
			if nerr := notifier.RunFinished(result); nerr != nil {
				slog.Warn("failed to send notification", "error", nerr)
			}
		}
	}
	if err := sched.Daily(cfg.GenerateTime, job); err != nil {
		slog.Error("failed to schedule run", "time", cfg.GenerateTime, "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()
	slog.Info("scheduled daily run", "username", username, "time", cfg.GenerateTime, "timezone", cfg.Timezone)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received shutdown signal", "signal", sig.String())
}

func printStats(ctx context.Context, db *store.Store) error {
	stats, err := db.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Print(formatStats(stats))
	return nil
}

// formatStats renders the aggregate history. SuccessRate is already a
// percentage.
func formatStats(stats *store.Stats) string {
	if stats.TotalRuns == 0 {
		return "No runs recorded yet.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Total runs:       %d\n", stats.TotalRuns)
	fmt.Fprintf(&b, "Successful:       %d\n", stats.Successful)
	fmt.Fprintf(&b, "Partial:          %d\n", stats.Partial)
	fmt.Fprintf(&b, "Failed:           %d\n", stats.Failed)
	fmt.Fprintf(&b, "Success rate:     %.1f%%\n", stats.SuccessRate)
	fmt.Fprintf(&b, "Avg duration:     %.1fs\n", stats.AvgDurationSecs)
	fmt.Fprintf(&b, "Total items used: %d\n", stats.TotalItemsUsed)
	if !stats.LastRunAt.IsZero() {
		fmt.Fprintf(&b, "Last run:         %s\n", stats.LastRunAt.Format(time.RFC3339))
	}
	return b.String()
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
