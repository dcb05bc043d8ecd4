package util

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FirstText returns the cleaned text of the first selector that yields any.
func FirstText(s *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if t := CleanText(s.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// FirstBlock is FirstText for multi-paragraph content such as descriptions.
func FirstBlock(s *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		node := s.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		node.Find("script,style,noscript").Remove()
		if t := CleanBlock(BlockText(node)); t != "" {
			return t
		}
	}
	return ""
}

// BlockText renders a selection as text with a newline after block elements.
func BlockText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
			return
		}
		switch goquery.NodeName(c) {
		case "br":
			b.WriteString("\n")
			return
		case "p", "div", "li", "ul", "ol", "h1", "h2", "h3", "h4", "h5", "h6", "section", "tr":
			b.WriteString("\n")
			b.WriteString(BlockText(c))
			b.WriteString("\n")
			return
		}
		b.WriteString(BlockText(c))
	})
	return b.String()
}

func FindLocation(doc *goquery.Selection) string {
	candidates := []string{
		".location",
		".opening .location",
		".posting-categories .location",
		".job__location",
		".app-title + .location",
		"[data-testid='job-location']",
		"[data-testid='location']",
	}

	if t := FirstText(doc, candidates...); t != "" {
		return NormalizeLocation(t)
	}

	if v, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		if loc := ExtractLocationFromLabeledText(v); loc != "" {
			return NormalizeLocation(loc)
		}
	}
	return ""
}

// ExtractLocationFromLabeledText pulls the value after a "Location:" label.
func ExtractLocationFromLabeledText(s string) string {
	low := strings.ToLower(s)

	for _, lab := range []string{"job location:", "locations:", "location:"} {
		i := strings.Index(low, lab)
		if i < 0 {
			continue
		}
		rest := strings.TrimSpace(s[i+len(lab):])
		for _, cut := range []string{"\n", "\r", " | ", " · "} {
			if j := strings.Index(rest, cut); j >= 0 {
				rest = rest[:j]
			}
		}
		rest = CleanText(rest)
		if rest != "" && len(rest) <= 80 {
			return rest
		}
	}
	return ""
}
