package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"siteaudit/internal/config"
	"siteaudit/internal/extractor"
	"siteaudit/internal/fetcher"
	robotsclient "siteaudit/internal/robots"
	"siteaudit/pkg/types"
)

// UnsupportedTargetError marks a target that must not be fetched at all,
// such as localhost or a private network address. It is raised before any
// network I/O happens.
type UnsupportedTargetError struct {
	Host string
}

func (e *UnsupportedTargetError) Error() string {
	return fmt.Sprintf("target %q resolves to localhost or a private address and cannot be crawled; deploy the site to a public URL", e.Host)
}

// Link URLs matching any of these are never enqueued.
var skipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\.(pdf|doc|docx|zip|exe|dmg)$`),
	regexp.MustCompile(`(?i)mailto:`),
	regexp.MustCompile(`(?i)tel:`),
	regexp.MustCompile(`#`),
	regexp.MustCompile(`\?`),
}

// Crawler walks a small same-host neighbourhood of a target URL and turns
// each reachable page into a PageRecord. A crawl always yields at least one
// record: inaccessible sites produce a synthetic fallback entry so downstream
// analysis can still run in degraded mode.
type Crawler struct {
	cfg     config.CrawlConfig
	fetcher fetcher.Fetcher
	robots  *robotsclient.Agent
	limiter *HostLimiter
	logger  *slog.Logger
}

// New builds a crawler. The robots agent may be nil, in which case robots.txt
// is not consulted.
func New(cfg config.CrawlConfig, f fetcher.Fetcher, agent *robotsclient.Agent, logger *slog.Logger) *Crawler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 5
	}
	limiter := NewHostLimiter(cfg.PageDelay.Duration, RateLimiterSettings{
		Requests: cfg.RateLimitPerHost.Requests,
		Window:   cfg.RateLimitPerHost.Window.Duration,
	})
	return &Crawler{
		cfg:     cfg,
		fetcher: f,
		robots:  agent,
		limiter: limiter,
		logger:  logger,
	}
}

// Crawl fetches up to MaxPages pages starting at baseURL, breadth-first over
// same-host links. It fails only for unusable targets; transient fetch
// problems degrade to fallback records instead.
func (c *Crawler) Crawl(ctx context.Context, baseURL string) ([]types.PageRecord, error) {
	seed := normalizeSeed(baseURL)
	parsedSeed, err := url.Parse(seed)
	if err != nil {
		return nil, fmt.Errorf("parse target url %q: %w", baseURL, err)
	}
	if parsedSeed.Hostname() == "" {
		return nil, fmt.Errorf("target url %q missing host", baseURL)
	}
	if isPrivateHost(parsedSeed.Hostname()) {
		return nil, &UnsupportedTargetError{Host: parsedSeed.Hostname()}
	}
	baseHost := strings.ToLower(parsedSeed.Hostname())

	front := newFrontier(seed)
	visited := make(map[string]struct{})
	retried := make(map[string]struct{})
	var records []types.PageRecord

	for !front.empty() && len(records) < c.cfg.MaxPages {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		current, _ := front.pop()
		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}

		parsed, err := url.Parse(current)
		if err != nil {
			continue
		}

		if c.robots != nil && !c.robots.Allowed(ctx, parsed) {
			c.logger.Debug("blocked by robots", "url", current)
			continue
		}

		if err := c.limiter.Wait(ctx, parsed.Hostname()); err != nil {
			return nil, err
		}

		res, err := c.fetcher.Fetch(ctx, current)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var statusErr *fetcher.StatusError
			if errors.As(err, &statusErr) {
				c.logger.Warn("fetch failed", "url", current, "status", statusErr.StatusCode)
				if err := c.handleFetchStatus(ctx, statusErr, current, front, visited, retried, len(records)); err != nil {
					return nil, err
				}
				continue
			}

			c.logger.Warn("crawl error", "url", current, "error", err)
			if len(records) == 0 && current == seed {
				c.logger.Info("creating degraded entry for unreachable target", "url", current)
				records = append(records, seedErrorRecord(current))
			}
			continue
		}

		body := string(res.Body)
		if len(body) < 50 {
			c.logger.Debug("response too small to analyze", "url", current, "bytes", len(body))
			continue
		}

		lower := strings.ToLower(body)
		if !strings.Contains(lower, "<html") && !strings.Contains(lower, "<!doctype") {
			c.logger.Debug("non-html response", "url", current)
			if len(records) == 0 {
				c.logger.Info("creating minimal entry for SPA or API endpoint", "url", current)
				records = append(records, spaRecord(current, body))
			}
			continue
		}

		page := extractor.Parse(current, body)
		records = append(records, page)
		c.logger.Info("crawled page", "url", current, "title", page.Title)

		c.enqueueLinks(front, visited, page, baseHost, parsedSeed)
	}

	if len(records) == 0 {
		c.logger.Warn("no pages crawled, using fallback analysis record", "url", seed)
		records = append(records, fallbackRecord(seed))
	}

	c.logger.Info("crawl finished", "url", seed, "pages", len(records))
	return records, nil
}

// handleFetchStatus applies the recovery ladder for non-2xx responses:
// rate-limit backoff with a single retry of the seed, then www/http seed
// alternates while nothing has been crawled yet.
func (c *Crawler) handleFetchStatus(ctx context.Context, statusErr *fetcher.StatusError, current string, front *frontier, visited, retried map[string]struct{}, crawled int) error {
	if statusErr.StatusCode == http.StatusTooManyRequests {
		if err := c.sleep(ctx, c.cfg.RetryBackoff.Duration); err != nil {
			return err
		}
		if crawled == 0 {
			if _, done := retried[current]; !done {
				retried[current] = struct{}{}
				c.logger.Info("retrying after rate limit", "url", current)
				if err := c.sleep(ctx, c.cfg.RetryBackoff.Duration/2); err != nil {
					return err
				}
				delete(visited, current)
				front.pushFront(current)
				return nil
			}
			c.logger.Warn("persistently rate limited", "url", current)
		}
	}

	if crawled == 0 {
		if !strings.Contains(current, "www.") && strings.HasPrefix(current, "https://") {
			alt := strings.Replace(current, "https://", "https://www.", 1)
			c.logger.Info("retrying with www alternate", "url", alt)
			front.pushFront(alt)
			return nil
		}
		if strings.HasPrefix(current, "https://") && statusErr.StatusCode != http.StatusTooManyRequests {
			alt := strings.Replace(current, "https://", "http://", 1)
			c.logger.Info("retrying over http", "url", alt)
			front.pushFront(alt)
			return nil
		}
	}
	return nil
}

func (c *Crawler) enqueueLinks(front *frontier, visited map[string]struct{}, page types.PageRecord, baseHost string, seed *url.URL) {
	limit := c.cfg.LinksPerPage
	if limit <= 0 {
		return
	}

	queued := 0
	for _, link := range page.Links {
		if queued >= limit {
			break
		}
		resolved := resolveLink(link, seed)
		if resolved == "" {
			continue
		}
		parsed, err := url.Parse(resolved)
		if err != nil {
			continue
		}
		if !sameSite(parsed.Hostname(), baseHost) {
			continue
		}
		queued++

		if _, seen := visited[resolved]; seen {
			continue
		}
		if front.contains(resolved) {
			continue
		}
		if matchesSkipPattern(resolved) {
			continue
		}
		front.push(resolved)
	}
}

// sameSite treats the bare host and its www. alias as the same site.
func sameSite(host, baseHost string) bool {
	host = strings.ToLower(host)
	return host == baseHost ||
		host == "www."+baseHost ||
		host == strings.TrimPrefix(baseHost, "www.")
}

func resolveLink(link string, seed *url.URL) string {
	if strings.HasPrefix(link, "/") {
		resolved, err := seed.Parse(link)
		if err != nil {
			return ""
		}
		return resolved.String()
	}
	return link
}

func matchesSkipPattern(u string) bool {
	for _, pat := range skipPatterns {
		if pat.MatchString(u) {
			return true
		}
	}
	return false
}

func (c *Crawler) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func normalizeSeed(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "http") {
		return raw
	}
	return "https://" + raw
}

// isPrivateHost classifies the hostname literally, without DNS resolution.
func isPrivateHost(host string) bool {
	host = strings.ToLower(host)
	if host == "localhost" || host == "127.0.0.1" || host == "0.0.0.0" {
		return true
	}
	if strings.HasPrefix(host, "192.168.") || strings.HasPrefix(host, "10.") || strings.HasPrefix(host, "172.") {
		return true
	}
	if strings.HasSuffix(host, ".local") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
	}
	return false
}

func seedErrorRecord(pageURL string) types.PageRecord {
	return types.PageRecord{
		URL:             pageURL,
		Title:           "Website at " + pageURL,
		MetaDescription: "Unable to fully analyze this page",
		ContentText:     "Basic analysis performed",
		HTMLContent:     "<html><head><title>Fallback</title></head><body>Basic content</body></html>",
		Images:          []string{},
		Links:           []string{},
		Forms:           []types.FormRecord{},
		Scripts:         []string{},
		Stylesheets:     []string{},
	}
}

func spaRecord(pageURL, body string) types.PageRecord {
	return types.PageRecord{
		URL:             pageURL,
		Title:           "Website at " + pageURL,
		MetaDescription: types.SPAMetaDescription,
		ContentText:     head(body, 1000),
		HTMLContent:     head(body, 5000),
		Images:          []string{},
		Links:           []string{},
		Forms:           []types.FormRecord{},
		Scripts:         []string{},
		Stylesheets:     []string{},
	}
}

func fallbackRecord(seed string) types.PageRecord {
	return types.PageRecord{
		URL:             seed,
		Title:           "Analysis for " + seed,
		MetaDescription: types.FallbackMetaDescription,
		ContentText:     "This website could not be fully crawled due to access restrictions, rate limiting, or other technical limitations. A basic analysis has been performed based on the URL structure and available public information.",
		HTMLContent:     "<html><head><title>Fallback Analysis</title></head><body><h1>Limited Analysis Mode</h1><p>Website: " + seed + "</p></body></html>",
		Images:          []string{},
		Links:           []string{},
		Forms:           []types.FormRecord{},
		Scripts:         []string{},
		Stylesheets:     []string{},
	}
}

func head(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
