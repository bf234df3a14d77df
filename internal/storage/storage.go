package storage

import (
	"context"

	"siteaudit/pkg/types"
)

// Store persists the artifacts of an analysis run: crawled pages, per-page
// test outcomes, market insights and the project lifecycle status.
type Store interface {
	SetProjectStatus(ctx context.Context, projectID string, status types.ProjectStatus) error
	CreatePageRecord(ctx context.Context, projectID string, page types.PageRecord) error
	CreateTestOutcome(ctx context.Context, projectID, pageURL string, outcome types.TestOutcome) error
	CreateMarketInsight(ctx context.Context, projectID string, insight types.MarketInsight) error
}

// NoopStore discards everything. Used when no database is configured so the
// pipeline can still run and return its report in-process.
type NoopStore struct{}

func (NoopStore) SetProjectStatus(context.Context, string, types.ProjectStatus) error { return nil }

func (NoopStore) CreatePageRecord(context.Context, string, types.PageRecord) error { return nil }

func (NoopStore) CreateTestOutcome(context.Context, string, string, types.TestOutcome) error {
	return nil
}

func (NoopStore) CreateMarketInsight(context.Context, string, types.MarketInsight) error { return nil }
