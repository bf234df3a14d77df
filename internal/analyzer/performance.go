package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"siteaudit/pkg/types"
)

var inlineStylePattern = regexp.MustCompile(`(?i)style=["'][^"']*["']`)

// Performance estimates page weight and render cost from the captured markup
// and resource lists.
type Performance struct{}

func (Performance) Type() string { return "performance" }

func (Performance) Analyze(page types.PageRecord) types.TestOutcome {
	card := newScorecard("performance")

	if page.IsFallback() {
		// Nothing measurable was fetched: report a neutral score with
		// generic guidance instead of penalising an empty record.
		card.recommend(types.Recommendation{
			Type:     "performance",
			Priority: "medium",
			Message:  "Run detailed performance analysis when website becomes accessible",
			Impact:   "Identifies concrete optimization opportunities",
		})
		card.recommend(types.Recommendation{
			Type:     "performance",
			Priority: "high",
			Message:  "Implement CDN for global content delivery",
			Impact:   "Reduces latency for geographically distributed users",
		})
		card.recommend(types.Recommendation{
			Type:     "performance",
			Priority: "medium",
			Message:  "Optimize images and implement lazy loading",
			Impact:   "Faster initial page load",
		})
		return card.fixedOutcome(70, types.StatusWarning)
	}

	if size := len(page.HTMLContent); size > 100000 {
		card.deduct(10, types.Issue{
			Severity: "medium",
			Type:     "large_html_size",
			Message:  fmt.Sprintf("HTML size is %dKB", size/1024),
			Size:     size,
		}, types.Recommendation{
			Type:     "performance",
			Priority: "medium",
			Message:  "Minify HTML and remove unnecessary markup",
			Impact:   "Reduces download time",
		})
	}

	external := len(page.Scripts) + len(page.Stylesheets) + len(page.Images)
	if external > 50 {
		card.deduct(15, types.Issue{
			Severity: "medium",
			Type:     "too_many_requests",
			Message:  fmt.Sprintf("%d external resources detected", external),
			Count:    external,
		}, types.Recommendation{
			Type:     "performance",
			Priority: "medium",
			Message:  "Bundle and concatenate resources to reduce HTTP requests",
			Impact:   "Fewer round trips per page load",
		})
	}

	unoptimized := 0
	for _, img := range page.Images {
		lower := strings.ToLower(img)
		if strings.Contains(lower, ".png") || strings.Contains(lower, ".jpg") || strings.Contains(lower, ".jpeg") {
			unoptimized++
		}
	}
	if unoptimized > 10 {
		card.deduct(10, types.Issue{
			Severity: "medium",
			Type:     "unoptimized_images",
			Message:  fmt.Sprintf("%d potentially unoptimized images", unoptimized),
			Count:    unoptimized,
		}, types.Recommendation{
			Type:     "performance",
			Priority: "medium",
			Message:  "Convert images to WebP format and add lazy loading",
			Impact:   "Significantly reduces page weight",
		})
	}

	if inlineStyles := len(inlineStylePattern.FindAllString(page.HTMLContent, -1)); inlineStyles > 20 {
		card.deduct(5, types.Issue{
			Severity: "low",
			Type:     "excessive_inline_styles",
			Message:  fmt.Sprintf("%d inline styles detected", inlineStyles),
			Count:    inlineStyles,
		}, types.Recommendation{
			Type:     "performance",
			Priority: "low",
			Message:  "Move inline styles to external stylesheets",
			Impact:   "Improves caching and maintainability",
		})
	}

	if !strings.Contains(page.HTMLContent, `name="viewport"`) {
		card.deduct(20, types.Issue{
			Severity: "high",
			Type:     "missing_viewport_meta",
			Message:  "Missing viewport meta tag for mobile optimization",
		}, types.Recommendation{
			Type:     "performance",
			Priority: "high",
			Message:  `Add <meta name="viewport" content="width=device-width, initial-scale=1"> to the page head`,
			Impact:   "Essential for mobile rendering",
		})
	}

	if n := len(page.Stylesheets); n > 5 {
		card.deduct(10, types.Issue{
			Severity: "medium",
			Type:     "render_blocking_css",
			Message:  fmt.Sprintf("%d CSS files may block rendering", n),
			Count:    n,
		}, types.Recommendation{
			Type:     "performance",
			Priority: "medium",
			Message:  "Inline critical CSS and defer non-critical stylesheets",
			Impact:   "Faster first contentful paint",
		})
	}

	return card.outcome()
}
