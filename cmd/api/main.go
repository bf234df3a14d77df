package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"siteaudit/internal/analyzer"
	"siteaudit/internal/api"
	"siteaudit/internal/config"
	"siteaudit/internal/crawler"
	"siteaudit/internal/fetcher"
	"siteaudit/internal/market"
	"siteaudit/internal/pipeline"
	"siteaudit/internal/robots"
	"siteaudit/internal/storage"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	maxRunsFlag := flag.Int("max-concurrent-runs", 0, "Maximum concurrent analysis runs")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := config.BuildLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}

	listenAddr := cfg.Server.Addr
	if *addr != "" {
		listenAddr = *addr
	}
	maxRuns := resolveMaxRuns(*maxRunsFlag, cfg.Server.MaxConcurrentRuns)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting api server", "addr", listenAddr, "max_concurrent_runs", maxRuns)

	var store storage.Store = storage.NoopStore{}
	if cfg.DB.DSN != "" {
		sqlStore, err := storage.NewSQLStore(cfg.DB)
		if err != nil {
			log.Fatalf("failed to initialise store: %v", err)
		}
		defer sqlStore.Close()
		store = sqlStore
	} else {
		logger.Warn("no database configured, analysis results will not be persisted")
	}

	httpFetcher, err := fetcher.NewHTTPFetcher(fetcher.Options{
		UserAgent:    cfg.Crawl.UserAgent,
		Headers:      cfg.Crawl.Headers,
		Timeout:      cfg.Crawl.RequestTimeout.Duration,
		MaxBodyBytes: cfg.Crawl.MaxBodyBytes,
		ProxyURL:     cfg.Crawl.ProxyURL,
	})
	if err != nil {
		log.Fatalf("failed to initialise fetcher: %v", err)
	}

	var robotsAgent *robots.Agent
	if cfg.Robots.Respect {
		robotsAgent = robots.NewAgent(cfg.Robots, httpFetcher.Client())
	}

	siteCrawler := crawler.New(cfg.Crawl, httpFetcher, robotsAgent, logger)
	driver := pipeline.New(siteCrawler, analyzer.All(), market.New(logger), store, cfg.Analysis, logger)
	manager := api.NewRunManager(driver, maxRuns, ctx)
	server := api.NewServer(manager)

	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: server,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown error", "error", err)
		}
	}()

	logger.Info("api server listening", "addr", listenAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
	log.Println("API server stopped")
}

func resolveMaxRuns(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	if raw := os.Getenv("SITEAUDIT_MAX_CONCURRENT_RUNS"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	if configValue > 0 {
		return configValue
	}
	return 5
}
