package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"siteaudit/pkg/types"
)

var inlineScriptPattern = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)

// Security inspects transport security, mixed content, inline scripts and
// CSRF protection on forms.
type Security struct{}

func (Security) Type() string { return "security" }

func (Security) Analyze(page types.PageRecord) types.TestOutcome {
	card := newScorecard("security")

	if page.IsFallback() {
		// Only the URL itself is trustworthy for a page we could not fetch.
		if !strings.HasPrefix(page.URL, "https://") {
			card.deduct(30, types.Issue{
				Severity: "high",
				Type:     "insecure_protocol",
				Message:  "Website is not using HTTPS",
				Location: page.URL,
			}, types.Recommendation{
				Type:     "security",
				Priority: "high",
				Message:  "Implement SSL/TLS certificate to enable HTTPS",
				Impact:   "Critical for user trust and data protection",
			})
		} else {
			card.recommend(types.Recommendation{
				Type:     "security",
				Priority: "low",
				Message:  "Continue monitoring SSL certificate expiry and renewal",
				Impact:   "Maintains secure connections for visitors",
			})
		}
		return card.outcome()
	}

	if !strings.HasPrefix(page.URL, "https://") {
		card.deduct(30, types.Issue{
			Severity: "high",
			Type:     "insecure_protocol",
			Message:  "Website is not using HTTPS",
			Location: page.URL,
		}, types.Recommendation{
			Type:     "security",
			Priority: "high",
			Message:  "Implement SSL/TLS certificate to enable HTTPS",
			Impact:   "Critical for user trust and data protection",
		})
	}

	var insecure []string
	for _, group := range [][]string{page.Images, page.Scripts, page.Stylesheets} {
		for _, resource := range group {
			if strings.HasPrefix(resource, "http://") {
				insecure = append(insecure, resource)
			}
		}
	}
	if len(insecure) > 0 {
		card.deduct(15, types.Issue{
			Severity:  "medium",
			Type:      "mixed_content",
			Message:   fmt.Sprintf("Found %d insecure resources", len(insecure)),
			Resources: insecure,
		}, types.Recommendation{
			Type:     "security",
			Priority: "medium",
			Message:  "Update all HTTP resources to use HTTPS",
			Impact:   "Prevents mixed content warnings",
		})
	}

	inline := 0
	for _, script := range inlineScriptPattern.FindAllString(page.HTMLContent, -1) {
		if !strings.Contains(script, "src=") {
			inline++
		}
	}
	if inline > 0 {
		card.deduct(10, types.Issue{
			Severity: "low",
			Type:     "inline_scripts",
			Message:  fmt.Sprintf("Found %d inline scripts", inline),
			Count:    inline,
		}, types.Recommendation{
			Type:     "security",
			Priority: "low",
			Message:  "Move inline scripts to external files and implement Content Security Policy",
			Impact:   "Reduces XSS attack surface",
		})
	}

	for i, form := range page.Forms {
		if !strings.EqualFold(form.Method, "POST") {
			continue
		}
		lower := strings.ToLower(form.HTML)
		if strings.Contains(lower, "csrf") || strings.Contains(lower, "_token") {
			continue
		}
		card.deduct(20, types.Issue{
			Severity: "high",
			Type:     "csrf_vulnerability",
			Message:  fmt.Sprintf("Form %d may be vulnerable to CSRF attacks", i+1),
			Form:     formLabel(form),
		}, types.Recommendation{
			Type:     "security",
			Priority: "high",
			Message:  "Implement CSRF protection for all forms",
			Impact:   "Prevents cross-site request forgery attacks",
		})
	}

	return card.outcome()
}
