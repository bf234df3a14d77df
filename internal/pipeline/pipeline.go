package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"siteaudit/internal/analyzer"
	"siteaudit/internal/config"
	"siteaudit/internal/storage"
	"siteaudit/pkg/types"
)

// ErrNoPages reports a crawl that produced zero records. The crawler
// guarantees at least one record via its fallback synthesis, so this is a
// defensive check against misbehaving Crawler implementations.
var ErrNoPages = errors.New("crawl produced no pages")

// Crawler walks a target site into page records. Satisfied by
// crawler.Crawler; tests substitute fakes.
type Crawler interface {
	Crawl(ctx context.Context, baseURL string) ([]types.PageRecord, error)
}

// MarketAnalyzer derives corpus-wide insights. Satisfied by market.Analyzer.
type MarketAnalyzer interface {
	Analyze(pages []types.PageRecord) []types.MarketInsight
}

// PageOutcome groups the analyzer results for one crawled page.
type PageOutcome struct {
	URL      string              `json:"url"`
	Outcomes []types.TestOutcome `json:"outcomes"`
}

// Report is the full result of one analysis run.
type Report struct {
	ProjectID  string                `json:"project_id"`
	SiteURL    string                `json:"site_url"`
	Status     types.ProjectStatus   `json:"status"`
	Pages      []types.PageRecord    `json:"pages"`
	Results    []PageOutcome         `json:"results"`
	Insights   []types.MarketInsight `json:"insights"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
}

// Driver runs the complete analysis pipeline for a project: crawl, per-page
// quality analysis, market analysis, persistence and status transitions.
//
// Failure isolation: a crawl failure or page persistence failure marks the
// project failed and aborts. Individual analyzer failures and storage errors
// on outcomes or insights are logged and skipped so one bad page cannot sink
// the run.
type Driver struct {
	crawler   Crawler
	analyzers []analyzer.Analyzer
	market    MarketAnalyzer
	store     storage.Store
	cfg       config.AnalysisConfig
	logger    *slog.Logger
}

// New assembles a driver. A nil store falls back to the no-op store and a nil
// market analyzer skips market analysis.
func New(c Crawler, analyzers []analyzer.Analyzer, market MarketAnalyzer, store storage.Store, cfg config.AnalysisConfig, logger *slog.Logger) *Driver {
	if store == nil {
		store = storage.NoopStore{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	return &Driver{
		crawler:   c,
		analyzers: analyzers,
		market:    market,
		store:     store,
		cfg:       cfg,
		logger:    logger,
	}
}

// Analyze executes the pipeline for one project and returns the report.
func (d *Driver) Analyze(ctx context.Context, projectID, siteURL string) (*Report, error) {
	started := time.Now()
	logger := d.logger.With("project_id", projectID, "url", siteURL)
	logger.Info("starting analysis")

	if err := d.store.SetProjectStatus(ctx, projectID, types.ProjectStatusAnalyzing); err != nil {
		logger.Warn("failed to mark project analyzing", "error", err)
	}

	pages, err := d.crawler.Crawl(ctx, siteURL)
	if err != nil {
		d.markFailed(ctx, projectID, logger)
		return nil, fmt.Errorf("crawl %s: %w", siteURL, err)
	}
	if len(pages) == 0 {
		d.markFailed(ctx, projectID, logger)
		return nil, fmt.Errorf("crawl %s: %w", siteURL, ErrNoPages)
	}
	logger.Info("crawl complete", "pages", len(pages))

	for _, page := range pages {
		if err := d.store.CreatePageRecord(ctx, projectID, page); err != nil {
			d.markFailed(ctx, projectID, logger)
			return nil, fmt.Errorf("persist page %s: %w", page.URL, err)
		}
	}

	results := d.runAnalyzers(ctx, projectID, pages, logger)

	var insights []types.MarketInsight
	if d.market != nil {
		insights = d.market.Analyze(pages)
		kept := insights[:0]
		for _, insight := range insights {
			if len(insight.Insights) == 0 {
				logger.Debug("dropping empty market insight", "dimension", insight.AnalysisType)
				continue
			}
			kept = append(kept, insight)
			if err := d.store.CreateMarketInsight(ctx, projectID, insight); err != nil {
				logger.Warn("failed to store market insight", "dimension", insight.AnalysisType, "error", err)
			}
		}
		insights = kept
	}

	if err := d.store.SetProjectStatus(ctx, projectID, types.ProjectStatusCompleted); err != nil {
		logger.Warn("failed to mark project completed", "error", err)
	}
	logger.Info("analysis complete", "pages", len(pages), "insights", len(insights))

	return &Report{
		ProjectID:  projectID,
		SiteURL:    siteURL,
		Status:     types.ProjectStatusCompleted,
		Pages:      pages,
		Results:    results,
		Insights:   insights,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}, nil
}

// runAnalyzers fans page/analyzer pairs out over the worker pool. Outcomes
// keep a stable order: pages in crawl order, analyzers in registration order.
func (d *Driver) runAnalyzers(ctx context.Context, projectID string, pages []types.PageRecord, logger *slog.Logger) []PageOutcome {
	grid := make([][]*types.TestOutcome, len(pages))
	for i := range grid {
		grid[i] = make([]*types.TestOutcome, len(d.analyzers))
	}

	pool, err := newWorkerPool(ctx, d.cfg.Concurrency, d.cfg.QueueSize)
	if err != nil {
		logger.Error("worker pool setup failed", "error", err)
		return nil
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for pi := range pages {
		for ai := range d.analyzers {
			pi, ai := pi, ai
			wg.Add(1)
			submitErr := pool.submit(ctx, func(jobCtx context.Context) {
				defer wg.Done()
				outcome, ok := d.runOne(d.analyzers[ai], pages[pi], logger)
				if !ok {
					return
				}
				if err := d.store.CreateTestOutcome(jobCtx, projectID, pages[pi].URL, outcome); err != nil {
					logger.Warn("failed to store test outcome",
						"test", outcome.Type, "page", pages[pi].URL, "error", err)
				}
				mu.Lock()
				grid[pi][ai] = &outcome
				mu.Unlock()
			})
			if submitErr != nil {
				wg.Done()
				logger.Warn("analyzer job rejected", "error", submitErr)
			}
		}
	}
	wg.Wait()
	pool.close()

	results := make([]PageOutcome, 0, len(pages))
	for pi, page := range pages {
		outcome := PageOutcome{URL: page.URL, Outcomes: []types.TestOutcome{}}
		for _, cell := range grid[pi] {
			if cell != nil {
				outcome.Outcomes = append(outcome.Outcomes, *cell)
			}
		}
		results = append(results, outcome)
	}
	return results
}

// runOne executes a single analyzer, converting panics into skipped results.
func (d *Driver) runOne(a analyzer.Analyzer, page types.PageRecord, logger *slog.Logger) (outcome types.TestOutcome, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("analyzer panicked", "test", a.Type(), "page", page.URL, "panic", r)
			ok = false
		}
	}()
	return a.Analyze(page), true
}

func (d *Driver) markFailed(ctx context.Context, projectID string, logger *slog.Logger) {
	if err := d.store.SetProjectStatus(ctx, projectID, types.ProjectStatusFailed); err != nil {
		logger.Warn("failed to mark project failed", "error", err)
	}
}
