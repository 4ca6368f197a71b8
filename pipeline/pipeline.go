// Package pipeline runs one persona generation end to end: fetch, normalize,
// build the corpus, prompt the model, parse the persona, and record the run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"reddit-persona/corpus"
	"reddit-persona/normalize"
	"reddit-persona/persona"
	"reddit-persona/prompt"
	"reddit-persona/reddit"
	"reddit-persona/report"
	"reddit-persona/store"
)

// Fetcher retrieves a user's raw history.
type Fetcher interface {
	FetchItems(ctx context.Context, username string, limit int) ([]reddit.RawItem, error)
}

// LinkScraper extracts readable text from a linked page. Optional.
type LinkScraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

// Generator produces raw model output for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Recorder persists artifacts and the execution history.
type Recorder interface {
	SaveCorpus(username string, c *corpus.Corpus) (string, error)
	SavePersona(username, rendered string) (string, error)
	AppendRun(ctx context.Context, rec *store.RunRecord) error
}

// Result summarizes one run for callers and notifiers.
type Result struct {
	RunID             string
	Username          string
	Outcome           store.Outcome
	Degraded          bool
	ItemsFetched      int
	ItemsUsed         int
	ItemsDropped      int
	CitationsStripped int
	Duration          time.Duration
	CorpusPath        string
	PersonaPath       string
	Err               error
}

// Summary renders the human-readable outcome line block. It is produced for
// every run, including failures.
func (r *Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s for u/%s: %s (%.1fs)\n", r.RunID, r.Username, r.Outcome, r.Duration.Seconds())
	fmt.Fprintf(&b, "  items fetched: %d, used: %d, dropped: %d\n", r.ItemsFetched, r.ItemsUsed, r.ItemsDropped)
	if r.Err != nil {
		fmt.Fprintf(&b, "  error: %v\n", r.Err)
		return b.String()
	}
	if r.Degraded {
		b.WriteString("  persona recovered via fallback parsing (no citations)\n")
	}
	if r.CitationsStripped > 0 {
		fmt.Fprintf(&b, "  citations stripped: %d\n", r.CitationsStripped)
	}
	fmt.Fprintf(&b, "  persona: %s\n", r.PersonaPath)
	return b.String()
}

// Runner wires the pipeline stages together.
type Runner struct {
	fetcher    Fetcher
	scraper    LinkScraper
	generator  Generator
	recorder   Recorder
	fetchLimit int
	corpusCfg  corpus.Config
	now        func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLinkScraper enables link-post content enrichment.
func WithLinkScraper(s LinkScraper) Option {
	return func(r *Runner) {
		r.scraper = s
	}
}

// WithFetchLimit caps how many posts and comments are fetched.
func WithFetchLimit(n int) Option {
	return func(r *Runner) {
		r.fetchLimit = n
	}
}

// WithCorpusConfig sets the corpus budget and ordering.
func WithCorpusConfig(cfg corpus.Config) Option {
	return func(r *Runner) {
		r.corpusCfg = cfg
	}
}

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a pipeline runner.
func NewRunner(fetcher Fetcher, generator Generator, recorder Recorder, opts ...Option) *Runner {
	r := &Runner{
		fetcher:    fetcher,
		generator:  generator,
		recorder:   recorder,
		fetchLimit: 100,
		corpusCfg:  corpus.Config{MaxItems: 50, MaxChars: 24000},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one full generation for the user. Exactly one RunRecord is
// appended whatever the outcome; the returned Result always describes the
// run even when err is non-nil.
func (r *Runner) Run(ctx context.Context, username string) (*Result, error) {
	started := r.now()
	result := &Result{
		RunID:    store.NewRunID(),
		Username: username,
	}

	slog.Info("starting run", "run_id", result.RunID, "username", username)

	err := r.run(ctx, username, result)
	result.Duration = r.now().Sub(started)
	result.Err = err

	switch {
	case err != nil:
		result.Outcome = store.OutcomeFailure
	case result.Degraded:
		result.Outcome = store.OutcomePartial
	default:
		result.Outcome = store.OutcomeSuccess
	}

	rec := &store.RunRecord{
		RunID:             result.RunID,
		Username:          username,
		Model:             r.generator.Model(),
		StartedAt:         started,
		FinishedAt:        started.Add(result.Duration),
		ItemsFetched:      result.ItemsFetched,
		ItemsUsed:         result.ItemsUsed,
		ItemsDropped:      result.ItemsDropped,
		CitationsStripped: result.CitationsStripped,
		Outcome:           result.Outcome,
		Degraded:          result.Degraded,
	}
	if err != nil {
		rec.ErrorDetail = err.Error()
	}

	if appendErr := r.recorder.AppendRun(ctx, rec); appendErr != nil {
		slog.Error("failed to append run record", "run_id", result.RunID, "error", appendErr)
		if err == nil {
			err = fmt.Errorf("append run record: %w", appendErr)
			result.Err = err
		}
	}

	slog.Info("run finished",
		"run_id", result.RunID,
		"outcome", result.Outcome,
		"items_used", result.ItemsUsed,
		"duration_secs", result.Duration.Seconds(),
	)
	return result, err
}

func (r *Runner) run(ctx context.Context, username string, result *Result) error {
	raw, err := r.fetcher.FetchItems(ctx, username, r.fetchLimit)
	if err != nil {
		return fmt.Errorf("fetch items: %w", err)
	}
	result.ItemsFetched = len(raw)

	r.enrichLinkPosts(ctx, raw)

	items, stats := normalize.Normalize(raw)
	result.ItemsDropped = stats.Dropped()
	if stats.Dropped() > 0 {
		slog.Warn("dropped unusable items", "malformed", stats.Malformed, "empty", stats.Empty)
	}

	c, err := corpus.Build(items, r.corpusCfg)
	if err != nil {
		return fmt.Errorf("build corpus: %w", err)
	}
	result.ItemsUsed = len(c.Items)

	corpusPath, err := r.recorder.SaveCorpus(username, c)
	if err != nil {
		return err
	}
	result.CorpusPath = corpusPath

	output, err := r.generator.Generate(ctx, prompt.Compose(username, c))
	if err != nil {
		return fmt.Errorf("generate persona: %w", err)
	}

	rec, err := persona.Parse(username, output, c)
	if err != nil {
		return fmt.Errorf("parse persona: %w", err)
	}
	result.Degraded = rec.Degraded
	result.CitationsStripped = rec.StrippedCitations

	personaPath, err := r.recorder.SavePersona(username, report.Render(rec, c, r.now()))
	if err != nil {
		return err
	}
	result.PersonaPath = personaPath
	return nil
}

// enrichLinkPosts fills empty link-post bodies with a readable excerpt of the
// linked page. Scrape failures are soft; the post keeps its title.
func (r *Runner) enrichLinkPosts(ctx context.Context, raw []reddit.RawItem) {
	if r.scraper == nil {
		return
	}
	for i := range raw {
		item := &raw[i]
		if item.Kind != reddit.KindPost || item.IsSelf || item.Body != "" || item.LinkURL == "" {
			continue
		}
		excerpt, err := r.scraper.Scrape(ctx, item.LinkURL)
		if err != nil {
			slog.Warn("link scrape failed", "id", item.ID, "url", item.LinkURL, "error", err)
			continue
		}
		item.Body = excerpt
	}
}
