package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"siteaudit/pkg/types"
)

// Field caps keep page records bounded regardless of page size.
const (
	maxTitleLen       = 200
	maxMetaLen        = 300
	maxContentLen     = 5000
	maxHTMLLen        = 15000
	maxFormHTMLLen    = 1000
	maxImages         = 50
	maxLinks          = 100
	maxScripts        = 20
	maxStylesheets    = 20
	minContentRuneLen = 100
)

// Parse extracts a normalised PageRecord from raw markup. It never fails:
// unparseable input degrades to a minimal valid record.
func Parse(pageURL, rawHTML string) types.PageRecord {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return fallbackRecord(pageURL, rawHTML)
	}

	base, baseErr := url.Parse(pageURL)
	if baseErr != nil {
		base = nil
	}

	record := types.PageRecord{
		URL:         pageURL,
		Title:       truncate(extractTitle(doc, pageURL), maxTitleLen),
		HTMLContent: truncate(rawHTML, maxHTMLLen),
		Images:      []string{},
		Links:       []string{},
		Forms:       []types.FormRecord{},
		Scripts:     []string{},
		Stylesheets: []string{},
	}

	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		record.MetaDescription = truncate(strings.TrimSpace(desc), maxMetaLen)
	}

	record.ContentText = truncate(extractVisibleText(doc), maxContentLen)

	doc.Find("img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if resolved := resolveRef(base, src); resolved != "" {
			record.Images = append(record.Images, resolved)
		}
		return len(record.Images) < maxImages
	})

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return true
		}
		lower := strings.ToLower(href)
		if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
			return true
		}
		if resolved := resolveRef(base, href); resolved != "" {
			record.Links = append(record.Links, resolved)
		}
		return len(record.Links) < maxLinks
	})

	doc.Find("form").Each(func(i int, s *goquery.Selection) {
		formHTML, err := goquery.OuterHtml(s)
		if err != nil {
			return
		}
		method := strings.ToUpper(strings.TrimSpace(s.AttrOr("method", "")))
		if method == "" {
			method = "GET"
		}
		record.Forms = append(record.Forms, types.FormRecord{
			ID:     i,
			HTML:   truncate(formHTML, maxFormHTMLLen),
			Method: method,
			Action: s.AttrOr("action", ""),
		})
	})

	doc.Find("script[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if resolved := resolveRef(base, src); resolved != "" {
			record.Scripts = append(record.Scripts, resolved)
		}
		return len(record.Scripts) < maxScripts
	})

	doc.Find(`link[rel="stylesheet"][href]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if resolved := resolveRef(base, href); resolved != "" {
			record.Stylesheets = append(record.Stylesheets, resolved)
		}
		return len(record.Stylesheets) < maxStylesheets
	})

	return record
}

func fallbackRecord(pageURL, rawHTML string) types.PageRecord {
	return types.PageRecord{
		URL:         pageURL,
		Title:       truncate("Website at "+pageURL, maxTitleLen),
		ContentText: "Unable to parse page content",
		HTMLContent: truncate(rawHTML, maxFormHTMLLen),
		Images:      []string{},
		Links:       []string{},
		Forms:       []types.FormRecord{},
		Scripts:     []string{},
		Stylesheets: []string{},
	}
}

func extractTitle(doc *goquery.Document, pageURL string) string {
	title := normalizeWhitespace(doc.Find("title").First().Text())
	if title != "" {
		return title
	}
	if h1 := normalizeWhitespace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return "Page at " + pageURL
}

// extractVisibleText walks the parsed tree accumulating rendered text,
// skipping script, style, and noscript subtrees. When the whole document
// yields almost nothing it retries restricted to the body subtree.
func extractVisibleText(doc *goquery.Document) string {
	root := documentRoot(doc)
	if root == nil {
		return ""
	}
	text := collectText(root)
	if len([]rune(text)) < minContentRuneLen {
		if body := findFirstElement(root, "body"); body != nil {
			if retry := collectText(body); retry != "" {
				text = retry
			}
		}
	}
	return text
}

func documentRoot(doc *goquery.Document) *html.Node {
	nodes := doc.Nodes
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

var skippedTextTags = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
}

func collectText(root *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text := normalizeWhitespace(n.Data)
			if text != "" {
				if b.Len() > 0 {
					b.WriteString(" ")
				}
				b.WriteString(text)
			}
		case html.ElementNode:
			if _, skip := skippedTextTags[strings.ToLower(n.Data)]; skip {
				return
			}
			fallthrough
		case html.DocumentNode:
			for child := n.FirstChild; child != nil; child = child.NextSibling {
				walk(child)
			}
		}
	}
	walk(root)
	return b.String()
}

func findFirstElement(node *html.Node, tag string) *html.Node {
	if node == nil {
		return nil
	}
	if node.Type == html.ElementNode && strings.EqualFold(node.Data, tag) {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findFirstElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}

func resolveRef(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if base == nil {
		if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
			return ref
		}
		return ""
	}
	resolved, err := base.Parse(ref)
	if err != nil {
		return ""
	}
	return resolved.String()
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
