package analyzer

import (
	"reflect"
	"strings"
	"testing"

	"siteaudit/pkg/types"
)

func fallbackPage(url string) types.PageRecord {
	return types.PageRecord{
		URL:             url,
		Title:           "Analysis for " + url,
		MetaDescription: types.FallbackMetaDescription,
		ContentText:     "Basic analysis performed",
		HTMLContent:     "<html><body></body></html>",
	}
}

func TestSecurityFlagsInsecureSignals(t *testing.T) {
	page := types.PageRecord{
		URL:         "http://shop.test",
		Title:       "Shop",
		HTMLContent: `<html><body><script>var a = 1;</script></body></html>`,
		Images:      []string{"http://cdn.test/logo.png"},
		Forms: []types.FormRecord{
			{ID: 1, Method: "POST", Action: "/checkout", HTML: `<form method="post"><input type="text"></form>`},
		},
	}

	out := Security{}.Analyze(page)
	// 100 - 30 (http) - 15 (mixed) - 10 (inline script) - 20 (csrf) = 25
	if out.Score != 25 {
		t.Fatalf("expected score 25, got %d", out.Score)
	}
	if out.Status != types.StatusFailed {
		t.Fatalf("expected failed, got %s", out.Status)
	}
	seen := map[string]bool{}
	for _, issue := range out.Issues {
		seen[issue.Type] = true
	}
	for _, want := range []string{"insecure_protocol", "mixed_content", "inline_scripts", "csrf_vulnerability"} {
		if !seen[want] {
			t.Fatalf("missing issue %s in %+v", want, out.Issues)
		}
	}
}

func TestSecurityIgnoresTokenProtectedForms(t *testing.T) {
	page := types.PageRecord{
		URL: "https://shop.test",
		Forms: []types.FormRecord{
			{ID: 1, Method: "POST", HTML: `<form><input type="hidden" name="_token" value="x"></form>`},
			{ID: 2, Method: "GET", HTML: `<form><input type="search"></form>`},
		},
	}
	out := Security{}.Analyze(page)
	if out.Score != 100 || out.Status != types.StatusPassed {
		t.Fatalf("expected clean pass, got score=%d status=%s", out.Score, out.Status)
	}
}

func TestSecurityDegradedChecksSchemeOnly(t *testing.T) {
	page := fallbackPage("http://unreachable.test")
	page.Forms = []types.FormRecord{{ID: 1, Method: "POST", HTML: "<form></form>"}}

	out := Security{}.Analyze(page)
	if out.Score != 70 {
		t.Fatalf("degraded analysis should only deduct for the scheme, got %d", out.Score)
	}
	if len(out.Issues) != 1 || out.Issues[0].Type != "insecure_protocol" {
		t.Fatalf("unexpected issues %+v", out.Issues)
	}

	out = Security{}.Analyze(fallbackPage("https://unreachable.test"))
	if out.Score != 100 || len(out.Recommendations) != 1 {
		t.Fatalf("https fallback should pass with a single monitoring recommendation, got %+v", out)
	}
}

func TestPerformanceDegradedFixedScore(t *testing.T) {
	out := Performance{}.Analyze(fallbackPage("https://unreachable.test"))
	if out.Score != 70 || out.Status != types.StatusWarning {
		t.Fatalf("expected 70/warning, got %d/%s", out.Score, out.Status)
	}
	if len(out.Issues) != 0 || len(out.Recommendations) != 3 {
		t.Fatalf("expected no issues and 3 recommendations, got %+v", out)
	}
}

func TestPerformanceCountsResources(t *testing.T) {
	page := types.PageRecord{
		URL:         "https://site.test",
		HTMLContent: `<html><head><meta name="viewport" content="width=device-width"></head><body></body></html>`,
	}
	for i := 0; i < 30; i++ {
		page.Images = append(page.Images, "https://cdn.test/a.webp")
		page.Scripts = append(page.Scripts, "https://cdn.test/b.js")
	}

	out := Performance{}.Analyze(page)
	// 60 resources -> -15, everything else clean.
	if out.Score != 85 {
		t.Fatalf("expected 85, got %d", out.Score)
	}
	if len(out.Issues) != 1 || out.Issues[0].Type != "too_many_requests" {
		t.Fatalf("unexpected issues %+v", out.Issues)
	}
	if out.Issues[0].Message != "60 external resources detected" {
		t.Fatalf("unexpected message %q", out.Issues[0].Message)
	}
}

func TestSEOScoresWeakPage(t *testing.T) {
	page := types.PageRecord{
		URL:         "https://site.test/page",
		Title:       "Welcome",
		HTMLContent: "<html><body><h2>Section</h2><p>hello</p></body></html>",
		ContentText: "hello world short page",
	}

	out := SEO{}.Analyze(page)
	// -20 missing meta, -15 missing h1, -15 thin content, -5 few internal links = 45
	if out.Score != 45 {
		t.Fatalf("expected 45, got %d (issues %+v)", out.Score, out.Issues)
	}
	if out.Status != types.StatusFailed {
		t.Fatalf("expected failed, got %s", out.Status)
	}
}

func TestSEOTitleLengthMessage(t *testing.T) {
	page := types.PageRecord{
		URL:             "https://site.test",
		Title:           strings.Repeat("t", 75),
		MetaDescription: "fine",
		HTMLContent:     "<html><body><h1>ok</h1></body></html>",
		ContentText:     strings.Repeat("word ", 301),
		Links:           []string{"/a", "/b", "/c"},
	}
	out := SEO{}.Analyze(page)
	if out.Score != 90 {
		t.Fatalf("expected 90, got %d", out.Score)
	}
	if out.Issues[0].Message != "Title tag is 75 characters (recommended: 50-60)" {
		t.Fatalf("unexpected message %q", out.Issues[0].Message)
	}
}

func TestSEODegraded(t *testing.T) {
	out := SEO{}.Analyze(fallbackPage("https://averyverylongdomainname.example"))
	if out.Score != 60 || out.Status != types.StatusWarning {
		t.Fatalf("expected 60/warning, got %d/%s", out.Score, out.Status)
	}
	if len(out.Recommendations) != 4 {
		t.Fatalf("long domain should add a fourth recommendation, got %d", len(out.Recommendations))
	}
}

func TestAccessibilityFormLabels(t *testing.T) {
	page := types.PageRecord{
		URL:         "https://site.test",
		HTMLContent: "<html><body><h1>Title</h1></body></html>",
		Forms: []types.FormRecord{
			{ID: 1, Method: "POST", Action: "/signup", HTML: `<form><input type="text"><input id="email" type="email"></form>`},
		},
	}

	out := Accessibility{}.Analyze(page)
	if out.Score != 85 {
		t.Fatalf("expected 85, got %d (issues %+v)", out.Score, out.Issues)
	}
	if out.Issues[0].Message != "Form 1 has 2 inputs without labels" {
		t.Fatalf("unexpected message %q", out.Issues[0].Message)
	}
}

func TestAccessibilityAcceptsLabelledInputs(t *testing.T) {
	page := types.PageRecord{
		URL:         "https://site.test",
		HTMLContent: "<html><body><h1>Title</h1><h2>Sub</h2></body></html>",
		Forms: []types.FormRecord{
			{ID: 1, HTML: `<form><label for="email">Email</label><input id="email" type="email"><input type="text" aria-label="Name"></form>`},
		},
	}
	out := Accessibility{}.Analyze(page)
	if out.Score != 100 {
		t.Fatalf("expected 100, got %d (issues %+v)", out.Score, out.Issues)
	}
}

func TestAccessibilityHeadingHierarchy(t *testing.T) {
	page := types.PageRecord{
		URL:         "https://site.test",
		HTMLContent: "<html><body><h1>Top</h1><h4>Jumped</h4></body></html>",
	}
	out := Accessibility{}.Analyze(page)
	if out.Score != 90 {
		t.Fatalf("expected 90, got %d", out.Score)
	}
	if out.Issues[0].Type != "heading_hierarchy" {
		t.Fatalf("unexpected issue %+v", out.Issues[0])
	}
}

func TestUIUXCleanPage(t *testing.T) {
	page := types.PageRecord{
		URL: "https://site.test",
		HTMLContent: `<html><head><meta name="viewport" content="width=device-width">` +
			`<style>@media (max-width: 600px) { body { outline: none } }</style></head>` +
			`<body><nav>home</nav><label>Q</label><input placeholder="search"></body></html>`,
	}
	out := UIUX{}.Analyze(page)
	if out.Score != 100 || out.Status != types.StatusPassed {
		t.Fatalf("expected clean pass, got %d/%s (issues %+v)", out.Score, out.Status, out.Issues)
	}
}

func TestUIUXFormHeuristics(t *testing.T) {
	page := types.PageRecord{
		URL: "https://site.test",
		HTMLContent: `<html><head><meta name="viewport" content=""><style>@media a { .focus {} }</style></head>` +
			`<body><nav>x</nav></body></html>`,
		Forms: []types.FormRecord{
			{ID: 1, Action: "/subscribe", HTML: `<form><input type="email" required><button>Go</button></form>`},
			{ID: 2, HTML: `<form><input type="text"></form>`},
		},
	}
	out := UIUX{}.Analyze(page)
	// Form 2: no submit (-10) and no validation (-5).
	if out.Score != 85 {
		t.Fatalf("expected 85, got %d (issues %+v)", out.Score, out.Issues)
	}
}

func TestAnalyzersAreDeterministic(t *testing.T) {
	page := types.PageRecord{
		URL:         "http://site.test",
		Title:       "Page",
		HTMLContent: `<html><body><h1>a</h1><script>x()</script></body></html>`,
		ContentText: "short",
		Images:      []string{"http://cdn.test/a.png"},
		Forms:       []types.FormRecord{{ID: 1, Method: "POST", HTML: "<form><input></form>"}},
	}
	for _, a := range All() {
		first := a.Analyze(page)
		second := a.Analyze(page)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("%s produced differing outcomes", a.Type())
		}
	}
}

func TestScoreNeverNegative(t *testing.T) {
	forms := make([]types.FormRecord, 8)
	for i := range forms {
		forms[i] = types.FormRecord{ID: i + 1, Method: "POST", HTML: "<form><input></form>"}
	}
	out := Security{}.Analyze(types.PageRecord{URL: "http://site.test", Forms: forms})
	if out.Score != 0 {
		t.Fatalf("expected clamped 0, got %d", out.Score)
	}
	if out.Status != types.StatusFailed {
		t.Fatalf("expected failed, got %s", out.Status)
	}
}
