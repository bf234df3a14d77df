package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"siteaudit/pkg/types"
)

var (
	inputPattern  = regexp.MustCompile(`(?i)<input[^>]*>`)
	inputIDReg    = regexp.MustCompile(`(?i)id=["']([^"']+)["']`)
	contrastHints = []string{"color: #ccc", "color: #ddd", "color: #eee"}
)

// Accessibility checks alt text, heading structure, form labelling and a few
// coarse contrast heuristics. It runs on fallback records too since every
// check degrades safely on empty input.
type Accessibility struct{}

func (Accessibility) Type() string { return "accessibility" }

func (Accessibility) Analyze(page types.PageRecord) types.TestOutcome {
	card := newScorecard("accessibility")

	if missing := imagesWithoutAlt(page); missing > 0 {
		card.deduct(15, types.Issue{
			Severity: "high",
			Type:     "missing_alt_text",
			Message:  fmt.Sprintf("%d images missing alt text", missing),
			Count:    missing,
		}, types.Recommendation{
			Type:     "accessibility",
			Priority: "high",
			Message:  "Add alt text to all images for screen reader users",
			Impact:   "Essential for visually impaired visitors",
		})
	}

	levels := headingLevels(page.HTMLContent)
	hasTopLevel := false
	for _, level := range levels {
		if level == 1 {
			hasTopLevel = true
			break
		}
	}
	if !hasTopLevel {
		card.deduct(20, types.Issue{
			Severity: "high",
			Type:     "missing_h1",
			Message:  "Page has no top-level heading",
		}, types.Recommendation{
			Type:     "accessibility",
			Priority: "high",
			Message:  "Add an H1 heading as the main page landmark",
			Impact:   "Screen readers use headings for navigation",
		})
	}

	jumps := 0
	for i := 1; i < len(levels); i++ {
		if levels[i] > levels[i-1]+1 {
			jumps++
		}
	}
	if jumps > 0 {
		card.deduct(10, types.Issue{
			Severity: "medium",
			Type:     "heading_hierarchy",
			Message:  fmt.Sprintf("%d heading level skips detected", jumps),
			Count:    jumps,
		}, types.Recommendation{
			Type:     "accessibility",
			Priority: "medium",
			Message:  "Keep heading levels sequential without skipping",
			Impact:   "Predictable document outline for assistive tech",
		})
	}

	for i, form := range page.Forms {
		unlabeled := 0
		for _, input := range inputPattern.FindAllString(form.HTML, -1) {
			idMatch := inputIDReg.FindStringSubmatch(input)
			if idMatch == nil {
				unlabeled++
				continue
			}
			if strings.Contains(form.HTML, `for="`+idMatch[1]+`"`) {
				continue
			}
			if strings.Contains(input, "aria-label=") {
				continue
			}
			unlabeled++
		}
		if unlabeled > 0 {
			card.deduct(15, types.Issue{
				Severity: "high",
				Type:     "missing_form_labels",
				Message:  fmt.Sprintf("Form %d has %d inputs without labels", i+1, unlabeled),
				Form:     formLabel(form),
				Count:    unlabeled,
			}, types.Recommendation{
				Type:     "accessibility",
				Priority: "high",
				Message:  "Associate every form input with a label element",
				Impact:   "Unlabeled inputs are unusable with screen readers",
			})
		}
	}

	for _, hint := range contrastHints {
		if strings.Contains(page.HTMLContent, hint) {
			card.deduct(10, types.Issue{
				Severity: "medium",
				Type:     "potential_contrast_issues",
				Message:  "Light gray text may have insufficient contrast",
			}, types.Recommendation{
				Type:     "accessibility",
				Priority: "medium",
				Message:  "Verify text contrast meets WCAG AA ratios",
				Impact:   "Low contrast text is hard to read",
			})
			break
		}
	}

	return card.outcome()
}
