package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"siteaudit/internal/config"
	"siteaudit/internal/fetcher"
	"siteaudit/pkg/types"
)

type fakeResponse struct {
	status int
	body   string
	err    error
}

// fakeFetcher serves canned responses keyed by URL and records every request.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string][]fakeResponse
	requests  []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{responses: make(map[string][]fakeResponse)}
}

func (f *fakeFetcher) on(url string, resp ...fakeResponse) {
	f.responses[url] = append(f.responses[url], resp...)
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (*fetcher.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, rawURL)

	queue, ok := f.responses[rawURL]
	if !ok || len(queue) == 0 {
		return nil, fmt.Errorf("no canned response for %s", rawURL)
	}
	resp := queue[0]
	if len(queue) > 1 {
		f.responses[rawURL] = queue[1:]
	}
	if resp.err != nil {
		return nil, resp.err
	}
	if resp.status != 0 && (resp.status < 200 || resp.status > 299) {
		return nil, &fetcher.StatusError{URL: rawURL, StatusCode: resp.status, Status: http.StatusText(resp.status)}
	}
	return &fetcher.Result{URL: rawURL, StatusCode: 200, Body: []byte(resp.body), FetchedAt: time.Now()}, nil
}

func (f *fakeFetcher) requestCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r == url {
			n++
		}
	}
	return n
}

func testCrawler(f fetcher.Fetcher) *Crawler {
	cfg := config.Default().Crawl
	cfg.PageDelay = config.DurationFrom(0)
	cfg.RetryBackoff = config.DurationFrom(2 * time.Millisecond)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, f, nil, logger)
}

func pageWithLinks(title string, links ...string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>" + title + "</title></head><body><p>")
	b.WriteString(strings.Repeat("content ", 20))
	b.WriteString("</p>")
	for _, l := range links {
		b.WriteString(`<a href="` + l + `">link</a>`)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func TestCrawlStopsAtPageLimit(t *testing.T) {
	f := newFakeFetcher()
	f.on("https://site.test", fakeResponse{body: pageWithLinks("home",
		"https://site.test/a", "https://site.test/b", "https://site.test/c", "https://site.test/d")})
	for _, p := range []string{"a", "b", "c"} {
		f.on("https://site.test/"+p, fakeResponse{body: pageWithLinks(p,
			"https://site.test/"+p+"1", "https://site.test/"+p+"2", "https://site.test/"+p+"3")})
	}
	for _, p := range []string{"a1", "a2", "a3", "b1", "b2", "b3", "c1", "c2", "c3"} {
		f.on("https://site.test/"+p, fakeResponse{body: pageWithLinks(p)})
	}

	records, err := testCrawler(f).Crawl(context.Background(), "https://site.test")
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected 5 pages, got %d", len(records))
	}
	// Only 3 links per page enter the frontier: /d is never requested.
	if f.requestCount("https://site.test/d") != 0 {
		t.Fatal("fourth link should not have been enqueued")
	}
}

func TestCrawlRetriesOnceAfterRateLimit(t *testing.T) {
	f := newFakeFetcher()
	f.on("https://site.test",
		fakeResponse{status: http.StatusTooManyRequests},
		fakeResponse{body: pageWithLinks("recovered")},
	)

	records, err := testCrawler(f).Crawl(context.Background(), "https://site.test")
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if got := f.requestCount("https://site.test"); got != 2 {
		t.Fatalf("expected exactly one retry (2 requests), got %d", got)
	}
	if len(records) != 1 || records[0].Title != "recovered" {
		t.Fatalf("expected recovered page, got %+v", records)
	}
}

func TestCrawlTriesSeedAlternates(t *testing.T) {
	f := newFakeFetcher()
	f.on("https://site.test", fakeResponse{status: http.StatusNotFound})
	f.on("https://www.site.test", fakeResponse{status: http.StatusNotFound})
	f.on("http://www.site.test", fakeResponse{body: pageWithLinks("www over http")})

	records, err := testCrawler(f).Crawl(context.Background(), "https://site.test")
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if len(records) != 1 || records[0].Title != "www over http" {
		t.Fatalf("expected alternate page, got %+v", records)
	}
}

func TestCrawlSPAFallback(t *testing.T) {
	f := newFakeFetcher()
	f.on("https://site.test", fakeResponse{body: `{"status":"ok","data":{"service":"api","version":"2.1"}}`})

	records, err := testCrawler(f).Crawl(context.Background(), "https://site.test")
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected single record, got %d", len(records))
	}
	if records[0].MetaDescription != types.SPAMetaDescription {
		t.Fatalf("expected SPA sentinel, got %q", records[0].MetaDescription)
	}
}

func TestCrawlTotalFailureProducesFallbackRecord(t *testing.T) {
	f := newFakeFetcher()
	f.on("https://site.test", fakeResponse{status: http.StatusForbidden})
	f.on("https://www.site.test", fakeResponse{status: http.StatusForbidden})
	f.on("http://www.site.test", fakeResponse{status: http.StatusForbidden})

	records, err := testCrawler(f).Crawl(context.Background(), "https://site.test")
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected fallback record, got %d records", len(records))
	}
	if !records[0].IsFallback() {
		t.Fatalf("expected fallback sentinel, got %q", records[0].MetaDescription)
	}
}

func TestCrawlRejectsPrivateTargetsWithoutFetching(t *testing.T) {
	for _, target := range []string{
		"http://localhost:3000",
		"http://127.0.0.1",
		"http://192.168.1.5",
		"http://10.0.0.8/admin",
		"https://dev.box.local",
	} {
		f := newFakeFetcher()
		_, err := testCrawler(f).Crawl(context.Background(), target)
		var unsupported *UnsupportedTargetError
		if !errors.As(err, &unsupported) {
			t.Fatalf("%s: expected UnsupportedTargetError, got %v", target, err)
		}
		if len(f.requests) != 0 {
			t.Fatalf("%s: expected no fetches, got %v", target, f.requests)
		}
	}
}

func TestCrawlSkipsNonPageLinks(t *testing.T) {
	f := newFakeFetcher()
	f.on("https://site.test", fakeResponse{body: pageWithLinks("home",
		"https://site.test/report.pdf",
		"https://site.test/search?q=x",
		"https://site.test/about",
	)})
	f.on("https://site.test/about", fakeResponse{body: pageWithLinks("about")})

	records, err := testCrawler(f).Crawl(context.Background(), "https://site.test")
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected home + about, got %d records", len(records))
	}
	if f.requestCount("https://site.test/report.pdf") != 0 {
		t.Fatal("pdf link should be skipped")
	}
	if f.requestCount("https://site.test/search?q=x") != 0 {
		t.Fatal("query link should be skipped")
	}
}

func TestCrawlNetworkErrorOnSeedDegrades(t *testing.T) {
	f := newFakeFetcher()
	f.on("https://site.test", fakeResponse{err: errors.New("dial tcp: connection refused")})

	records, err := testCrawler(f).Crawl(context.Background(), "https://site.test")
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected degraded record, got %d", len(records))
	}
	if records[0].MetaDescription != "Unable to fully analyze this page" {
		t.Fatalf("unexpected meta description %q", records[0].MetaDescription)
	}
}
