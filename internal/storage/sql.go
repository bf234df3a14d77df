package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"siteaudit/internal/config"
	"siteaudit/pkg/types"
)

// SQLStore persists analysis artifacts into PostgreSQL. Nested structures
// (issues, recommendations, insights) are stored as JSONB.
type SQLStore struct {
	db          *sql.DB
	autoMigrate bool
}

// NewSQLStore opens the database, optionally creating it and applying the
// schema when auto_migrate is enabled.
func NewSQLStore(cfg config.SQLConfig) (*SQLStore, error) {
	if cfg.Driver == "" || cfg.DSN == "" {
		return nil, errors.New("sql config missing driver or dsn")
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sql connection: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if cfg.CreateIfMissing && shouldAttemptCreateDatabase(cfg.Driver, err) {
			_ = db.Close()
			if err := createDatabase(ctx, cfg); err != nil {
				return nil, err
			}
			db, err = sql.Open(cfg.Driver, cfg.DSN)
			if err != nil {
				return nil, fmt.Errorf("open sql connection: %w", err)
			}
			if err := db.PingContext(ctx); err != nil {
				return nil, fmt.Errorf("ping sql connection: %w", err)
			}
		} else {
			return nil, fmt.Errorf("ping sql connection: %w", err)
		}
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime.Duration > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime.Duration)
	}
	store := &SQLStore{
		db:          db,
		autoMigrate: cfg.AutoMigrate,
	}
	if cfg.AutoMigrate {
		if err := store.ensureSchema(context.Background()); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// SetProjectStatus upserts the project row with its current lifecycle state.
func (s *SQLStore) SetProjectStatus(ctx context.Context, projectID string, status types.ProjectStatus) error {
	query := `
        INSERT INTO projects (id, status, updated_at)
        VALUES ($1,$2,NOW())
        ON CONFLICT (id) DO UPDATE SET
            status = EXCLUDED.status,
            updated_at = EXCLUDED.updated_at
    `
	return s.exec(ctx, "set project status", query, projectID, string(status))
}

// CreatePageRecord stores one crawled page. Re-crawling a URL within the same
// project replaces the previous snapshot.
func (s *SQLStore) CreatePageRecord(ctx context.Context, projectID string, page types.PageRecord) error {
	pageData, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("encode page record: %w", err)
	}
	query := `
        INSERT INTO crawl_pages (project_id, url, title, meta_description, content_text, html_content, page_data, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
        ON CONFLICT (project_id, url) DO UPDATE SET
            title = EXCLUDED.title,
            meta_description = EXCLUDED.meta_description,
            content_text = EXCLUDED.content_text,
            html_content = EXCLUDED.html_content,
            page_data = EXCLUDED.page_data,
            created_at = EXCLUDED.created_at
    `
	return s.exec(ctx, "insert page", query,
		projectID, page.URL, page.Title, page.MetaDescription,
		page.ContentText, page.HTMLContent, pageData)
}

// CreateTestOutcome stores one analyzer result for a page.
func (s *SQLStore) CreateTestOutcome(ctx context.Context, projectID, pageURL string, outcome types.TestOutcome) error {
	issues, err := json.Marshal(outcome.Issues)
	if err != nil {
		return fmt.Errorf("encode issues: %w", err)
	}
	recs, err := json.Marshal(outcome.Recommendations)
	if err != nil {
		return fmt.Errorf("encode recommendations: %w", err)
	}
	query := `
        INSERT INTO test_results (project_id, page_url, test_type, status, score, issues, recommendations, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
    `
	return s.exec(ctx, "insert test result", query,
		projectID, pageURL, outcome.Type, string(outcome.Status), outcome.Score, issues, recs)
}

// CreateMarketInsight stores one market analysis dimension.
func (s *SQLStore) CreateMarketInsight(ctx context.Context, projectID string, insight types.MarketInsight) error {
	payload, err := json.Marshal(insight.Insights)
	if err != nil {
		return fmt.Errorf("encode insights: %w", err)
	}
	query := `
        INSERT INTO market_insights (project_id, analysis_type, insights, confidence_score, created_at)
        VALUES ($1,$2,$3,$4,NOW())
    `
	return s.exec(ctx, "insert market insight", query,
		projectID, insight.AnalysisType, payload, insight.Confidence)
}

// exec runs a statement and transparently applies the schema once when the
// target table is missing.
func (s *SQLStore) exec(ctx context.Context, op, query string, args ...any) error {
	if s == nil || s.db == nil {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if s.autoMigrate && isUndefinedTableErr(err) {
			if schemaErr := s.ensureSchema(ctx); schemaErr != nil {
				return fmt.Errorf("ensure schema: %w", schemaErr)
			}
			if _, retryErr := s.db.ExecContext(ctx, query, args...); retryErr != nil {
				return fmt.Errorf("%s: %w", op, retryErr)
			}
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close closes the underlying DB connection.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func shouldAttemptCreateDatabase(driver string, err error) bool {
	if !strings.EqualFold(driver, "postgres") {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "3D000"
	}
	return strings.Contains(strings.ToLower(err.Error()), "does not exist")
}

func createDatabase(ctx context.Context, cfg config.SQLConfig) error {
	parsed, err := url.Parse(cfg.DSN)
	if err != nil {
		return fmt.Errorf("parse dsn: %w", err)
	}
	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return errors.New("dsn missing database name")
	}
	if strings.EqualFold(dbName, "postgres") {
		return fmt.Errorf("target database %q cannot be auto-created", dbName)
	}
	parsed.Path = "/postgres"
	adminDSN := parsed.String()
	adminDB, err := sql.Open(cfg.Driver, adminDSN)
	if err != nil {
		return fmt.Errorf("connect admin database: %w", err)
	}
	defer adminDB.Close()
	if err := adminDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping admin database: %w", err)
	}
	stmt := fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(dbName))
	if _, err := adminDB.ExecContext(ctx, stmt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "42P04" {
			return nil
		}
		return fmt.Errorf("create database %q: %w", dbName, err)
	}
	return nil
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil || !s.autoMigrate {
		return nil
	}
	schemaCtx := ctx
	if schemaCtx == nil || schemaCtx.Err() != nil {
		schemaCtx = context.Background()
	}
	schemaCtx, cancel := context.WithTimeout(schemaCtx, 10*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
		    id TEXT PRIMARY KEY,
		    status TEXT NOT NULL,
		    updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS crawl_pages (
		    id BIGSERIAL PRIMARY KEY,
		    project_id TEXT NOT NULL,
		    url TEXT NOT NULL,
		    title TEXT,
		    meta_description TEXT,
		    content_text TEXT,
		    html_content TEXT,
		    page_data JSONB,
		    created_at TIMESTAMPTZ NOT NULL,
		    UNIQUE (project_id, url)
		)`,
		`CREATE TABLE IF NOT EXISTS test_results (
		    id BIGSERIAL PRIMARY KEY,
		    project_id TEXT NOT NULL,
		    page_url TEXT NOT NULL,
		    test_type TEXT NOT NULL,
		    status TEXT NOT NULL,
		    score INT NOT NULL,
		    issues JSONB,
		    recommendations JSONB,
		    created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS market_insights (
		    id BIGSERIAL PRIMARY KEY,
		    project_id TEXT NOT NULL,
		    analysis_type TEXT NOT NULL,
		    insights JSONB NOT NULL,
		    confidence_score DOUBLE PRECISION NOT NULL,
		    created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_crawl_pages_project ON crawl_pages (project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_test_results_project ON test_results (project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_market_insights_project ON market_insights (project_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(schemaCtx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func isUndefinedTableErr(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "relation") && strings.Contains(lower, "does not exist")
}
