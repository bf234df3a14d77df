package analyzer

import (
	"regexp"
	"strings"

	"siteaudit/pkg/types"
)

// Analyzer scores one page along a single quality dimension. Implementations
// are pure functions of the page record: no I/O, deterministic output.
type Analyzer interface {
	Type() string
	Analyze(page types.PageRecord) types.TestOutcome
}

// All returns the standard analyzer set in reporting order.
func All() []Analyzer {
	return []Analyzer{
		Security{},
		Accessibility{},
		Performance{},
		SEO{},
		UIUX{},
	}
}

// scorecard accumulates findings while checks run. Every page starts at 100
// and each failed check deducts its fixed penalty.
type scorecard struct {
	testType string
	score    int
	issues   []types.Issue
	recs     []types.Recommendation
}

func newScorecard(testType string) *scorecard {
	return &scorecard{
		testType: testType,
		score:    100,
		issues:   []types.Issue{},
		recs:     []types.Recommendation{},
	}
}

func (s *scorecard) deduct(penalty int, issue types.Issue, rec types.Recommendation) {
	s.issues = append(s.issues, issue)
	s.recs = append(s.recs, rec)
	s.score -= penalty
}

func (s *scorecard) recommend(rec types.Recommendation) {
	s.recs = append(s.recs, rec)
}

func (s *scorecard) outcome() types.TestOutcome {
	score := types.ClampScore(s.score)
	return types.TestOutcome{
		Type:            s.testType,
		Status:          types.StatusForScore(score),
		Score:           score,
		Issues:          s.issues,
		Recommendations: s.recs,
	}
}

// fixedOutcome reports a predetermined score and status, used by degraded
// analysis branches.
func (s *scorecard) fixedOutcome(score int, status types.Status) types.TestOutcome {
	return types.TestOutcome{
		Type:            s.testType,
		Status:          status,
		Score:           score,
		Issues:          s.issues,
		Recommendations: s.recs,
	}
}

var headingPattern = regexp.MustCompile(`(?is)<h([1-6])[^>]*>.*?</h[1-6]>`)

// headingLevels returns the heading levels present in document order.
func headingLevels(htmlContent string) []int {
	matches := headingPattern.FindAllStringSubmatch(htmlContent, -1)
	levels := make([]int, 0, len(matches))
	for _, m := range matches {
		levels = append(levels, int(m[1][0]-'0'))
	}
	return levels
}

// imagesWithoutAlt counts extracted images whose originating <img> tag in the
// stored markup carries no alt attribute. Images whose tag cannot be located
// in the truncated markup are not counted.
func imagesWithoutAlt(page types.PageRecord) int {
	count := 0
	for _, img := range page.Images {
		pat, err := regexp.Compile(`(?i)<img[^>]*src=["']` + regexp.QuoteMeta(img) + `["'][^>]*>`)
		if err != nil {
			continue
		}
		tag := pat.FindString(page.HTMLContent)
		if tag != "" && !strings.Contains(tag, "alt=") {
			count++
		}
	}
	return count
}

func formLabel(form types.FormRecord) string {
	if form.Action != "" {
		return form.Action
	}
	return "Unknown action"
}
