// Package app drives a scraping run: listing, per-document extraction,
// checkpoints, post-processing and export.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"infobox_scraper/internal/config"
	"infobox_scraper/internal/db"
	"infobox_scraper/internal/infobox"
	"infobox_scraper/internal/models"
	"infobox_scraper/internal/normalize"
	"infobox_scraper/internal/persist"
	"infobox_scraper/internal/postprocess"
	"infobox_scraper/internal/record"
	urlqueue "infobox_scraper/internal/url_queue"
)

// RecordSink receives the final collection.
type RecordSink interface {
	SaveRecords(ctx context.Context, records []*record.Record) (int, error)
}

type App struct {
	cfg       *config.Config
	fetcher   Fetcher
	builder   *infobox.Builder
	processor *postprocess.Processor
	pacer     *Pacer
	policy    persist.MismatchPolicy
	sink      RecordSink
	logger    *slog.Logger
}

// Option customizes an App built by New.
type Option func(*App)

func WithSink(sink RecordSink) Option {
	return func(a *App) { a.sink = sink }
}

func WithPacer(p *Pacer) Option {
	return func(a *App) { a.pacer = p }
}

func New(cfg *config.Config, fetcher Fetcher, logger *slog.Logger, opts ...Option) (*App, error) {
	rng, err := normalize.ParseRangePolicy(cfg.Logic.CurrencyRange)
	if err != nil {
		return nil, err
	}
	policy, err := persist.ParseMismatchPolicy(cfg.Verify.Policy)
	if err != nil {
		return nil, err
	}

	sel := cfg.Source.Selectors
	a := &App{
		cfg:     cfg,
		fetcher: fetcher,
		builder: infobox.NewBuilder(infobox.Selectors{
			Infobox:      sel.Infobox,
			RejectMarker: sel.RejectMarker,
			Footnotes:    sel.Footnotes,
			Timestamps:   sel.Timestamps,
		}),
		processor: postprocess.New(normalize.CurrencyNormalizer{Range: rng}),
		pacer: NewPacer(cfg.Logic.RequestsPerSecond, cfg.Logic.Burst,
			cfg.Logic.PauseEvery, time.Duration(cfg.Logic.PauseSec)*time.Second),
		policy: policy,
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// NewFromConfig wires the fetcher named in the config and, when Mongo is
// configured, the page cache and record sink. The returned close function
// releases the database connection.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, func(), error) {
	timeout := time.Duration(cfg.Logic.TimeoutSec) * time.Second

	var fetcher Fetcher
	switch cfg.Logic.Fetcher {
	case "colly":
		fetcher = NewCollyFetcher(cfg.Logic.UserAgent, timeout)
	default:
		fetcher = NewHTTPFetcher(cfg.Logic.UserAgent, timeout, logger)
	}

	closeFn := func() {}
	var opts []Option
	if cfg.DB.Enabled() {
		mongoDB, err := db.NewMongoDB(ctx, cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		closeFn = func() {
			if err := mongoDB.Close(context.Background()); err != nil {
				logger.Warn("close MongoDB", slog.Any("error", err))
			}
		}
		maxAge := time.Duration(cfg.Logic.RecrawlThresholdHours) * time.Hour
		fetcher = NewCachingFetcher(fetcher, mongoDB, maxAge, cfg.Source.Name, logger)
		opts = append(opts, WithSink(statsSink{MongoDB: mongoDB, logger: logger}))
		logger.Info("MongoDB enabled", slog.String("database", cfg.DB.Database))
	}

	a, err := New(cfg, fetcher, logger, opts...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return a, closeFn, nil
}

// statsSink saves records to Mongo and logs the collection summary.
type statsSink struct {
	*db.MongoDB
	logger *slog.Logger
}

func (s statsSink) SaveRecords(ctx context.Context, records []*record.Record) (int, error) {
	n, err := s.MongoDB.SaveRecords(ctx, records)
	if err != nil {
		return n, err
	}
	stats, err := s.GetRecordStats(ctx, postprocess.FieldBudgetUSD, postprocess.FieldBoxOfficeUSD)
	if err != nil {
		s.logger.Warn("record stats unavailable", slog.Any("error", err))
		return n, nil
	}
	s.logger.Info("records collection",
		slog.Int("total", stats.Total),
		slog.Int("with_budget", stats.WithBudget),
		slog.Int("with_box_office", stats.WithBoxOffice),
		slog.Float64("avg_budget", stats.AvgBudget),
		slog.Float64("max_box_office", stats.MaxBoxOffice),
	)
	return n, nil
}

// Report summarizes a finished run.
type Report struct {
	Listed  int
	Records []*record.Record
	Skips   []models.Skip
	Saved   int
}

// Run executes the whole pipeline.
func (a *App) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	a.logger.Info("starting run",
		slog.String("source", a.cfg.Source.Name),
		slog.String("list_url", a.cfg.Source.ListURL),
		slog.Int("workers", a.cfg.Logic.MaxConcurrentWorkers),
	)

	entries, err := a.Listing(ctx)
	if err != nil {
		return nil, err
	}
	a.logger.Info("listing loaded", slog.Int("entries", len(entries)))

	records, skips, err := a.Scrape(ctx, entries)
	if err != nil {
		return nil, err
	}
	report := &Report{Listed: len(entries), Skips: skips}

	out := a.cfg.Output
	records, err = persist.Checkpoint{
		Name: "raw", Codec: persist.JSONCodec{}, Path: out.Path(out.RawJSON), Policy: a.policy, Logger: a.logger,
	}.Run(records)
	if err != nil {
		return nil, err
	}

	a.processor.ProcessAll(records)

	records, err = persist.Checkpoint{
		Name: "processed", Codec: persist.BSONCodec{}, Path: out.Path(out.RichBSON), Policy: a.policy, Logger: a.logger,
	}.Run(records)
	if err != nil {
		return nil, err
	}
	report.Records = records

	if err := a.export(records); err != nil {
		return nil, err
	}

	if a.sink != nil {
		saved, err := a.sink.SaveRecords(ctx, records)
		if err != nil {
			return nil, err
		}
		report.Saved = saved
	}

	a.logger.Info("run finished",
		slog.Int("listed", report.Listed),
		slog.Int("records", len(report.Records)),
		slog.Int("skipped", len(report.Skips)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return report, nil
}

func (a *App) export(records []*record.Record) error {
	out := a.cfg.Output
	exports := []struct {
		path   string
		export persist.Exporter
	}{
		{out.Path(out.FinalJSON), persist.WriteExportJSON},
		{out.Path(out.CSV), persist.WriteCSV},
	}
	for _, e := range exports {
		if e.path == "" {
			continue
		}
		if err := persist.ExportFile(e.path, e.export, records); err != nil {
			return err
		}
		a.logger.Info("exported", slog.String("path", e.path), slog.Int("records", len(records)))
	}
	return nil
}

// Listing fetches the listing page and returns its entries.
func (a *App) Listing(ctx context.Context) ([]models.Entry, error) {
	src := a.cfg.Source
	body, err := a.fetcher.Fetch(ctx, src.ListURL)
	if err != nil {
		return nil, fmt.Errorf("listing: %w", err)
	}
	return urlqueue.ExtractListing(body, src.ListURL, src.LinkSelector, src.FollowPatterns, src.ExcludePatterns, src.MaxPages)
}

type outcome struct {
	index int
	rec   *record.Record
	skip  *models.Skip
}

// Scrape fetches and builds one record per entry on a bounded pool of
// workers. Failed documents become skips. Records come back ordered by entry
// index. Cancelling ctx stops the run with ctx's error.
func (a *App) Scrape(ctx context.Context, entries []models.Entry) ([]*record.Record, []models.Skip, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.cfg.Logic.MaxConcurrentWorkers, 1))

	results := make(chan outcome)
	collected := make(chan []outcome, 1)
	go func() {
		var all []outcome
		for o := range results {
			all = append(all, o)
		}
		collected <- all
	}()

	for _, entry := range entries {
		if gctx.Err() != nil {
			break
		}
		entry := entry
		g.Go(func() error {
			if err := a.pacer.Wait(gctx); err != nil {
				return err
			}
			o := a.process(gctx, entry)
			select {
			case results <- o:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}

	err := g.Wait()
	close(results)
	all := <-collected
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	sort.Slice(all, func(i, j int) bool { return all[i].index < all[j].index })
	var (
		records []*record.Record
		skips   []models.Skip
	)
	for _, o := range all {
		if o.skip != nil {
			skips = append(skips, *o.skip)
			continue
		}
		records = append(records, o.rec)
	}
	return records, skips, nil
}

func (a *App) process(ctx context.Context, entry models.Entry) outcome {
	logger := a.logger.With(slog.Int("index", entry.Index), slog.String("url", entry.URL))

	body, err := a.fetcher.Fetch(ctx, entry.URL)
	if err == nil {
		var rec *record.Record
		rec, err = a.builder.Build(entry.Index, body, entry.URL)
		if err == nil {
			logger.Debug("record built", slog.String("title", rec.Title()), slog.Int("fields", rec.Len()))
			return outcome{index: entry.Index, rec: rec}
		}
	}

	skip := models.Skip{Index: entry.Index, URL: entry.URL, Title: entry.Title, Reason: skipReason(err), Err: err}
	logger.Warn("document skipped", slog.String("title", entry.Title), slog.String("reason", skip.Reason), slog.Any("error", err))
	return outcome{index: entry.Index, skip: &skip}
}

func skipReason(err error) string {
	var fetchErr *FetchError
	switch {
	case errors.As(err, &fetchErr):
		return models.ReasonFetch
	case errors.Is(err, infobox.ErrWrongDocumentType):
		return models.ReasonWrongType
	case errors.Is(err, infobox.ErrNoInfobox):
		return models.ReasonNoInfobox
	case errors.Is(err, infobox.ErrNoTitle):
		return models.ReasonNoTitle
	}
	return models.ReasonUnspecified
}
