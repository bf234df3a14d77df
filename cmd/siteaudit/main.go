package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"siteaudit/internal/analyzer"
	"siteaudit/internal/config"
	"siteaudit/internal/crawler"
	"siteaudit/internal/fetcher"
	"siteaudit/internal/market"
	"siteaudit/internal/pipeline"
	"siteaudit/internal/robots"
	"siteaudit/internal/storage"
)

// One-shot runner: analyze a single site and print the report as JSON.
func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	siteURL := flag.String("url", "", "Website URL to analyze")
	projectID := flag.String("project-id", "local", "Project identifier for persisted results")
	flag.Parse()

	if *siteURL == "" {
		fmt.Fprintln(os.Stderr, "usage: siteaudit -url https://example.com [-config configs/config.yaml]")
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.BuildLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	var store storage.Store = storage.NoopStore{}
	if cfg.DB.DSN != "" {
		sqlStore, err := storage.NewSQLStore(cfg.DB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialise store: %v\n", err)
			os.Exit(1)
		}
		defer sqlStore.Close()
		store = sqlStore
	}

	httpFetcher, err := fetcher.NewHTTPFetcher(fetcher.Options{
		UserAgent:    cfg.Crawl.UserAgent,
		Headers:      cfg.Crawl.Headers,
		Timeout:      cfg.Crawl.RequestTimeout.Duration,
		MaxBodyBytes: cfg.Crawl.MaxBodyBytes,
		ProxyURL:     cfg.Crawl.ProxyURL,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise fetcher: %v\n", err)
		os.Exit(1)
	}

	var robotsAgent *robots.Agent
	if cfg.Robots.Respect {
		robotsAgent = robots.NewAgent(cfg.Robots, httpFetcher.Client())
	}

	siteCrawler := crawler.New(cfg.Crawl, httpFetcher, robotsAgent, logger)
	driver := pipeline.New(siteCrawler, analyzer.All(), market.New(logger), store, cfg.Analysis, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := driver.Analyze(ctx, *projectID, *siteURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fmt.Fprintf(os.Stderr, "encode report: %v\n", err)
		os.Exit(1)
	}
}
