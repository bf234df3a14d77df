package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"siteaudit/internal/analyzer"
	"siteaudit/internal/config"
	"siteaudit/pkg/types"
)

type fakeCrawler struct {
	pages []types.PageRecord
	err   error
}

func (f *fakeCrawler) Crawl(ctx context.Context, baseURL string) ([]types.PageRecord, error) {
	return f.pages, f.err
}

type fakeMarket struct {
	insights []types.MarketInsight
}

func (f *fakeMarket) Analyze(pages []types.PageRecord) []types.MarketInsight {
	return f.insights
}

// memStore records every write and the order of status transitions.
type memStore struct {
	mu         sync.Mutex
	statuses   []types.ProjectStatus
	pages      []types.PageRecord
	outcomes   []types.TestOutcome
	insights   []types.MarketInsight
	pageErr    error
	outcomeErr error
}

func (m *memStore) SetProjectStatus(_ context.Context, _ string, status types.ProjectStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *memStore) CreatePageRecord(_ context.Context, _ string, page types.PageRecord) error {
	if m.pageErr != nil {
		return m.pageErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = append(m.pages, page)
	return nil
}

func (m *memStore) CreateTestOutcome(_ context.Context, _, _ string, outcome types.TestOutcome) error {
	if m.outcomeErr != nil {
		return m.outcomeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
	return nil
}

func (m *memStore) CreateMarketInsight(_ context.Context, _ string, insight types.MarketInsight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insights = append(m.insights, insight)
	return nil
}

type panickingAnalyzer struct{}

func (panickingAnalyzer) Type() string { return "flaky" }

func (panickingAnalyzer) Analyze(types.PageRecord) types.TestOutcome {
	panic("boom")
}

func testDriver(c Crawler, m MarketAnalyzer, store *memStore, analyzers []analyzer.Analyzer) *Driver {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(c, analyzers, m, store, config.AnalysisConfig{Concurrency: 2, QueueSize: 8}, logger)
}

func somePages() []types.PageRecord {
	return []types.PageRecord{
		{URL: "https://site.test", Title: "Home", HTMLContent: "<html><body><h1>Hi</h1></body></html>"},
		{URL: "https://site.test/about", Title: "About", HTMLContent: "<html><body><h1>About</h1></body></html>"},
	}
}

func TestAnalyzeHappyPath(t *testing.T) {
	store := &memStore{}
	market := &fakeMarket{insights: []types.MarketInsight{
		{AnalysisType: "competitor", Insights: map[string]any{"industry": "saas"}, Confidence: 0.6},
		{AnalysisType: "pricing", Insights: map[string]any{}, Confidence: 0.1},
	}}
	driver := testDriver(&fakeCrawler{pages: somePages()}, market, store, analyzer.All())

	report, err := driver.Analyze(context.Background(), "p1", "https://site.test")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if report.Status != types.ProjectStatusCompleted {
		t.Fatalf("expected completed, got %s", report.Status)
	}
	wantStatuses := []types.ProjectStatus{types.ProjectStatusAnalyzing, types.ProjectStatusCompleted}
	if len(store.statuses) != 2 || store.statuses[0] != wantStatuses[0] || store.statuses[1] != wantStatuses[1] {
		t.Fatalf("unexpected status transitions %v", store.statuses)
	}
	if len(store.pages) != 2 {
		t.Fatalf("expected 2 persisted pages, got %d", len(store.pages))
	}
	if want := 2 * len(analyzer.All()); len(store.outcomes) != want {
		t.Fatalf("expected %d outcomes, got %d", want, len(store.outcomes))
	}
	// The empty pricing insight is filtered before persistence and reporting.
	if len(store.insights) != 1 || store.insights[0].AnalysisType != "competitor" {
		t.Fatalf("unexpected insights %+v", store.insights)
	}
	if len(report.Insights) != 1 {
		t.Fatalf("report should carry only non-empty insights, got %d", len(report.Insights))
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected results for both pages, got %d", len(report.Results))
	}
	for _, res := range report.Results {
		if len(res.Outcomes) != len(analyzer.All()) {
			t.Fatalf("page %s missing outcomes: %d", res.URL, len(res.Outcomes))
		}
	}
}

func TestAnalyzeCrawlFailureMarksProjectFailed(t *testing.T) {
	store := &memStore{}
	driver := testDriver(&fakeCrawler{err: errors.New("dns failure")}, nil, store, analyzer.All())

	_, err := driver.Analyze(context.Background(), "p1", "https://site.test")
	if err == nil {
		t.Fatal("expected crawl error")
	}
	last := store.statuses[len(store.statuses)-1]
	if last != types.ProjectStatusFailed {
		t.Fatalf("expected failed status, got %s", last)
	}
}

func TestAnalyzeEmptyCrawlMarksProjectFailed(t *testing.T) {
	store := &memStore{}
	driver := testDriver(&fakeCrawler{}, nil, store, analyzer.All())

	_, err := driver.Analyze(context.Background(), "p1", "https://site.test")
	if !errors.Is(err, ErrNoPages) {
		t.Fatalf("expected ErrNoPages, got %v", err)
	}
	if last := store.statuses[len(store.statuses)-1]; last != types.ProjectStatusFailed {
		t.Fatalf("expected failed status, got %s", last)
	}
}

func TestAnalyzePagePersistFailureAborts(t *testing.T) {
	store := &memStore{pageErr: errors.New("disk full")}
	driver := testDriver(&fakeCrawler{pages: somePages()}, nil, store, analyzer.All())

	_, err := driver.Analyze(context.Background(), "p1", "https://site.test")
	if err == nil {
		t.Fatal("expected persistence error")
	}
	if last := store.statuses[len(store.statuses)-1]; last != types.ProjectStatusFailed {
		t.Fatalf("expected failed status, got %s", last)
	}
	if len(store.outcomes) != 0 {
		t.Fatal("no analyzers should run after a persistence failure")
	}
}

func TestAnalyzeSurvivesPanickingAnalyzer(t *testing.T) {
	store := &memStore{}
	analyzers := append([]analyzer.Analyzer{panickingAnalyzer{}}, analyzer.All()...)
	driver := testDriver(&fakeCrawler{pages: somePages()}, nil, store, analyzers)

	report, err := driver.Analyze(context.Background(), "p1", "https://site.test")
	if err != nil {
		t.Fatalf("a panicking analyzer must not fail the run: %v", err)
	}
	if report.Status != types.ProjectStatusCompleted {
		t.Fatalf("expected completed, got %s", report.Status)
	}
	for _, res := range report.Results {
		if len(res.Outcomes) != len(analyzer.All()) {
			t.Fatalf("expected outcomes from the healthy analyzers only, got %d", len(res.Outcomes))
		}
		for _, outcome := range res.Outcomes {
			if outcome.Type == "flaky" {
				t.Fatal("panicked analyzer leaked an outcome")
			}
		}
	}
}

func TestAnalyzeOutcomeStoreErrorsAreNotFatal(t *testing.T) {
	store := &memStore{outcomeErr: errors.New("transient")}
	driver := testDriver(&fakeCrawler{pages: somePages()}, nil, store, analyzer.All())

	report, err := driver.Analyze(context.Background(), "p1", "https://site.test")
	if err != nil {
		t.Fatalf("outcome store errors must not fail the run: %v", err)
	}
	if report.Status != types.ProjectStatusCompleted {
		t.Fatalf("expected completed, got %s", report.Status)
	}
}
