package analyzer

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"siteaudit/pkg/types"
)

var h1Pattern = regexp.MustCompile(`(?is)<h1[^>]*>.*?</h1>`)

// SEO checks on-page search optimisation signals: title and description
// length, heading use, alt text, content depth and internal linking.
type SEO struct{}

func (SEO) Type() string { return "seo" }

func (SEO) Analyze(page types.PageRecord) types.TestOutcome {
	card := newScorecard("seo")

	if page.IsFallback() {
		if host := hostOf(page.URL); len(host) > 15 {
			card.recommend(types.Recommendation{
				Type:     "seo",
				Priority: "low",
				Message:  "Consider a shorter, more memorable domain name",
				Impact:   "Easier to remember and type",
			})
		}
		card.recommend(types.Recommendation{
			Type:     "seo",
			Priority: "high",
			Message:  "Ensure every page has a unique, descriptive title tag",
			Impact:   "Primary ranking and click-through signal",
		})
		card.recommend(types.Recommendation{
			Type:     "seo",
			Priority: "high",
			Message:  "Write compelling meta descriptions for key pages",
			Impact:   "Improves search result click-through rate",
		})
		card.recommend(types.Recommendation{
			Type:     "seo",
			Priority: "medium",
			Message:  "Add structured data markup for rich search results",
			Impact:   "Enables enhanced search listings",
		})
		return card.fixedOutcome(60, types.StatusWarning)
	}

	switch {
	case page.Title == "":
		card.deduct(25, types.Issue{
			Severity: "high",
			Type:     "missing_title",
			Message:  "Page is missing a title tag",
		}, types.Recommendation{
			Type:     "seo",
			Priority: "high",
			Message:  "Add a descriptive title tag to every page",
			Impact:   "Critical for search rankings",
		})
	case len(page.Title) > 60:
		card.deduct(10, types.Issue{
			Severity: "medium",
			Type:     "long_title",
			Message:  fmt.Sprintf("Title tag is %d characters (recommended: 50-60)", len(page.Title)),
		}, types.Recommendation{
			Type:     "seo",
			Priority: "medium",
			Message:  "Shorten the title tag to under 60 characters",
			Impact:   "Prevents truncation in search results",
		})
	}

	switch {
	case page.MetaDescription == "":
		card.deduct(20, types.Issue{
			Severity: "high",
			Type:     "missing_meta_description",
			Message:  "Page is missing a meta description",
		}, types.Recommendation{
			Type:     "seo",
			Priority: "high",
			Message:  "Add a meta description summarising the page content",
			Impact:   "Improves search result click-through rate",
		})
	case len(page.MetaDescription) > 160:
		card.deduct(5, types.Issue{
			Severity: "low",
			Type:     "long_meta_description",
			Message:  fmt.Sprintf("Meta description is %d characters (recommended: 150-160)", len(page.MetaDescription)),
		}, types.Recommendation{
			Type:     "seo",
			Priority: "low",
			Message:  "Shorten the meta description to under 160 characters",
			Impact:   "Prevents truncation in search results",
		})
	}

	switch h1Count := len(h1Pattern.FindAllString(page.HTMLContent, -1)); {
	case h1Count == 0:
		card.deduct(15, types.Issue{
			Severity: "medium",
			Type:     "missing_h1",
			Message:  "Page has no H1 heading",
		}, types.Recommendation{
			Type:     "seo",
			Priority: "medium",
			Message:  "Add a single H1 heading describing the page topic",
			Impact:   "Clarifies page topic for search engines",
		})
	case h1Count > 1:
		card.deduct(10, types.Issue{
			Severity: "medium",
			Type:     "multiple_h1",
			Message:  fmt.Sprintf("Page has %d H1 tags (recommended: 1)", h1Count),
			Count:    h1Count,
		}, types.Recommendation{
			Type:     "seo",
			Priority: "medium",
			Message:  "Use exactly one H1 per page and demote the rest",
			Impact:   "Keeps the page topic unambiguous",
		})
	}

	if missing := imagesWithoutAlt(page); missing > 0 {
		card.deduct(10, types.Issue{
			Severity: "medium",
			Type:     "images_missing_alt",
			Message:  fmt.Sprintf("%d images missing alt text", missing),
			Count:    missing,
		}, types.Recommendation{
			Type:     "seo",
			Priority: "medium",
			Message:  "Add descriptive alt text to all images",
			Impact:   "Helps image search and accessibility",
		})
	}

	if words := len(strings.Fields(page.ContentText)); words < 300 {
		card.deduct(15, types.Issue{
			Severity: "medium",
			Type:     "thin_content",
			Message:  fmt.Sprintf("Page has only %d words (recommended: 300+)", words),
			Count:    words,
		}, types.Recommendation{
			Type:     "seo",
			Priority: "medium",
			Message:  "Expand the page content with relevant detail",
			Impact:   "Thin pages rank poorly",
		})
	}

	host := hostOf(page.URL)
	internal := 0
	for _, link := range page.Links {
		if strings.HasPrefix(link, "/") || (host != "" && strings.Contains(link, host)) {
			internal++
		}
	}
	if internal < 3 {
		card.deduct(5, types.Issue{
			Severity: "low",
			Type:     "few_internal_links",
			Message:  fmt.Sprintf("Only %d internal links found", internal),
			Count:    internal,
		}, types.Recommendation{
			Type:     "seo",
			Priority: "low",
			Message:  "Add internal links to related pages",
			Impact:   "Distributes ranking signals across the site",
		})
	}

	return card.outcome()
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
