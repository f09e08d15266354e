package sources

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// firstText returns the trimmed text of the first selector in the chain
// that matches inside the selection. Sites change markup, so every field
// carries several candidate selectors.
func firstText(s *goquery.Selection, selectors ...string) string {
	for _, selector := range selectors {
		found := s.Find(selector).First()
		if found.Length() > 0 {
			if text := strings.TrimSpace(found.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

// firstAttr returns the named attribute of the first selector in the chain
// that matches and carries it.
func firstAttr(s *goquery.Selection, attr string, selectors ...string) string {
	for _, selector := range selectors {
		found := s.Find(selector).First()
		if found.Length() > 0 {
			if value, ok := found.Attr(attr); ok && strings.TrimSpace(value) != "" {
				return strings.TrimSpace(value)
			}
		}
	}
	return ""
}

// absoluteURL prefixes site-relative hrefs with the site's base URL.
func absoluteURL(base, href string) string {
	if href == "" || strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return base + href
	}
	return href
}
