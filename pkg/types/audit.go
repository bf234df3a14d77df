package types

// PageRecord is the normalised snapshot of a single crawled page that every
// downstream analyzer consumes.
type PageRecord struct {
	URL             string       `json:"url"`
	Title           string       `json:"title"`
	MetaDescription string       `json:"meta_description"`
	ContentText     string       `json:"content_text"`
	HTMLContent     string       `json:"html_content"`
	Images          []string     `json:"images"`
	Links           []string     `json:"links"`
	Forms           []FormRecord `json:"forms"`
	Scripts         []string     `json:"scripts"`
	Stylesheets     []string     `json:"stylesheets"`
}

// FormRecord captures a single <form> element found on a page.
type FormRecord struct {
	ID     int    `json:"id"`
	HTML   string `json:"html"`
	Method string `json:"method"`
	Action string `json:"action"`
}

// Sentinel meta descriptions used to mark synthetic page records. Analyzers
// switch into degraded mode when they see the crawl-failure sentinel.
const (
	FallbackMetaDescription = "Unable to crawl - performing limited analysis"
	SPAMetaDescription      = "Single Page Application or API endpoint"
)

// IsFallback reports whether the record is the synthetic total-failure entry.
func (p PageRecord) IsFallback() bool {
	return p.MetaDescription == FallbackMetaDescription
}

// Status classifies an analyzer outcome.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusWarning Status = "warning"
	StatusFailed  Status = "failed"
)

// StatusForScore maps a numeric score to its status band.
func StatusForScore(score int) Status {
	switch {
	case score >= 80:
		return StatusPassed
	case score >= 60:
		return StatusWarning
	default:
		return StatusFailed
	}
}

// ClampScore floors a score at zero.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	return score
}

// Issue describes a single finding raised by an analyzer.
type Issue struct {
	Severity  string   `json:"severity"`
	Type      string   `json:"type"`
	Message   string   `json:"message"`
	Location  string   `json:"location,omitempty"`
	Form      string   `json:"form,omitempty"`
	Count     int      `json:"count,omitempty"`
	Size      int      `json:"size,omitempty"`
	Resources []string `json:"resources,omitempty"`
}

// Recommendation pairs an issue with an actionable remediation.
type Recommendation struct {
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Message  string `json:"message"`
	Impact   string `json:"impact"`
}

// TestOutcome is the scored result of one analyzer run against one page.
type TestOutcome struct {
	Type            string           `json:"type"`
	Status          Status           `json:"status"`
	Score           int              `json:"score"`
	Issues          []Issue          `json:"issues"`
	Recommendations []Recommendation `json:"recommendations"`
}

// MarketInsight is one dimension of the corpus-wide market analysis.
type MarketInsight struct {
	AnalysisType string         `json:"analysis_type"`
	Insights     map[string]any `json:"insights"`
	Confidence   float64        `json:"confidence_score"`
}

// ProjectStatus tracks the lifecycle of an analysis run for a project.
type ProjectStatus string

const (
	ProjectStatusPending   ProjectStatus = "pending"
	ProjectStatusAnalyzing ProjectStatus = "analyzing"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusFailed    ProjectStatus = "failed"
)
