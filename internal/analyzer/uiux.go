package analyzer

import (
	"fmt"
	"strings"

	"siteaudit/pkg/types"
)

// UIUX applies heuristics for mobile readiness, form usability, navigation
// and focus management.
type UIUX struct{}

func (UIUX) Type() string { return "ui_ux" }

func (UIUX) Analyze(page types.PageRecord) types.TestOutcome {
	card := newScorecard("ui_ux")
	html := page.HTMLContent
	lower := strings.ToLower(html)

	if !strings.Contains(html, `name="viewport"`) {
		card.deduct(20, types.Issue{
			Severity: "high",
			Type:     "no_mobile_viewport",
			Message:  "Page is not configured for mobile devices",
		}, types.Recommendation{
			Type:     "ui_ux",
			Priority: "high",
			Message:  "Add a viewport meta tag for mobile rendering",
			Impact:   "Page is unusable on phones without it",
		})
	}

	hasMediaQueries := strings.Contains(html, "@media")
	if !hasMediaQueries {
		for _, sheet := range page.Stylesheets {
			if strings.Contains(sheet, "responsive") {
				hasMediaQueries = true
				break
			}
		}
	}
	if !hasMediaQueries {
		card.deduct(15, types.Issue{
			Severity: "medium",
			Type:     "no_responsive_design",
			Message:  "No responsive design indicators found",
		}, types.Recommendation{
			Type:     "ui_ux",
			Priority: "medium",
			Message:  "Add media queries to adapt the layout to screen size",
			Impact:   "Improves experience across devices",
		})
	}

	for i, form := range page.Forms {
		if strings.Contains(form.HTML, `type="submit"`) ||
			strings.Contains(form.HTML, "<button") ||
			strings.Contains(form.HTML, `input[type="submit"]`) {
			continue
		}
		card.deduct(10, types.Issue{
			Severity: "medium",
			Type:     "form_no_submit",
			Message:  fmt.Sprintf("Form %d appears to be missing a submit button", i+1),
			Form:     formLabel(form),
		}, types.Recommendation{
			Type:     "ui_ux",
			Priority: "medium",
			Message:  "Add an explicit submit button to every form",
			Impact:   "Users need a clear way to submit",
		})
	}

	if strings.Contains(html, "placeholder=") &&
		!strings.Contains(html, "<label") && !strings.Contains(html, "aria-label=") {
		card.deduct(10, types.Issue{
			Severity: "medium",
			Type:     "placeholder_only_labels",
			Message:  "Inputs rely on placeholders instead of labels",
		}, types.Recommendation{
			Type:     "ui_ux",
			Priority: "medium",
			Message:  "Use persistent labels; placeholders disappear on input",
			Impact:   "Users lose context while typing",
		})
	}

	if !strings.Contains(lower, "<nav") && !strings.Contains(lower, "navigation") && !strings.Contains(lower, "menu") {
		card.deduct(15, types.Issue{
			Severity: "medium",
			Type:     "no_navigation",
			Message:  "No navigation structure detected",
		}, types.Recommendation{
			Type:     "ui_ux",
			Priority: "medium",
			Message:  "Add a clear navigation menu",
			Impact:   "Visitors cannot discover other pages",
		})
	}

	if len(page.Scripts) > 10 &&
		!strings.Contains(lower, "loading") && !strings.Contains(lower, "spinner") && !strings.Contains(lower, "progress") {
		card.deduct(5, types.Issue{
			Severity: "low",
			Type:     "no_loading_states",
			Message:  "Script-heavy page without loading indicators",
			Count:    len(page.Scripts),
		}, types.Recommendation{
			Type:     "ui_ux",
			Priority: "low",
			Message:  "Show loading states while scripts initialise",
			Impact:   "Reduces perceived wait time",
		})
	}

	for i, form := range page.Forms {
		formLower := strings.ToLower(form.HTML)
		if strings.Contains(formLower, "error") || strings.Contains(formLower, "invalid") || strings.Contains(formLower, "required") {
			continue
		}
		card.deduct(5, types.Issue{
			Severity: "low",
			Type:     "no_form_validation",
			Message:  fmt.Sprintf("Form %d has no visible validation", i+1),
			Form:     formLabel(form),
		}, types.Recommendation{
			Type:     "ui_ux",
			Priority: "low",
			Message:  "Add inline validation feedback to forms",
			Impact:   "Users catch mistakes before submitting",
		})
	}

	if !strings.Contains(lower, "tabindex") && !strings.Contains(lower, "focus") && !strings.Contains(lower, "outline") {
		card.deduct(10, types.Issue{
			Severity: "medium",
			Type:     "poor_focus_management",
			Message:  "No keyboard focus management detected",
		}, types.Recommendation{
			Type:     "ui_ux",
			Priority: "medium",
			Message:  "Provide visible focus styles for keyboard users",
			Impact:   "Keyboard navigation is otherwise invisible",
		})
	}

	return card.outcome()
}
