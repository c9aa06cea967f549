package util

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

var (
	tagRe       = regexp.MustCompile(`<[^>]*>`)
	anchorRe    = regexp.MustCompile(`(?is)<a\s[^>]*href\s*=\s*["']([^"']*)["'][^>]*>(.*?)</a\s*>`)
	breakRe     = regexp.MustCompile(`(?i)<br\s*/?\s*>|</(?:p|div|h[1-6]|blockquote|pre|table|tr)\s*>`)
	itemRe      = regexp.MustCompile(`(?i)<li(?:\s[^>]*)?>`)
	styleRe     = regexp.MustCompile(`(?is)<(style|script|head)[^>]*>.*?</(style|script|head)\s*>`)
	spacesRe    = regexp.MustCompile(`[^\S\n]+`)
	blankLineRe = regexp.MustCompile(`\n{3,}`)
)

// HTMLToText flattens an HTML event body into plain text. Anchors become
// "text (url)", list items become bullets, and Google redirect links are
// unwrapped to their target. Plain text input passes through unchanged
// apart from whitespace cleanup.
func HTMLToText(s string) string {
	if s == "" {
		return s
	}

	s = strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(s)
	s = styleRe.ReplaceAllString(s, "")
	s = anchorRe.ReplaceAllStringFunc(s, func(m string) string {
		parts := anchorRe.FindStringSubmatch(m)
		href := unwrapRedirect(html.UnescapeString(parts[1]))
		text := strings.TrimSpace(tagRe.ReplaceAllString(parts[2], ""))
		if text == "" || text == href {
			return href
		}
		return text + " (" + href + ")"
	})
	s = breakRe.ReplaceAllString(s, "\n")
	s = itemRe.ReplaceAllString(s, "\n• ")
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = spacesRe.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	s = blankLineRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")

	return strings.TrimSpace(s)
}

// unwrapRedirect extracts the real URL from Google redirect wrappers
// like https://www.google.com/url?q=REAL_URL&...
func unwrapRedirect(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if u.Host == "www.google.com" && u.Path == "/url" {
		if q := u.Query().Get("q"); q != "" {
			return q
		}
	}
	return rawURL
}
