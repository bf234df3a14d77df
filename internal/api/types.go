package api

import (
	"time"

	"siteaudit/internal/pipeline"
	"siteaudit/pkg/types"
)

// AnalyzeRequest is the payload for starting an analysis run.
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// ProjectState is the public view of a project's latest analysis run.
type ProjectState struct {
	ProjectID   string              `json:"project_id"`
	SiteURL     string              `json:"site_url"`
	Status      types.ProjectStatus `json:"status"`
	StartedAt   *time.Time          `json:"started_at,omitempty"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	Error       string              `json:"error,omitempty"`
	Report      *pipeline.Report    `json:"report,omitempty"`
}
