package sanitizer

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy *bluemonday.Policy
	safePolicy   *bluemonday.Policy
	initOnce     sync.Once
)

var (
	anchorRe     = regexp.MustCompile(`(?is)<a\s[^>]*href\s*=\s*["']([^"']*)["'][^>]*>(.*?)</a>`)
	blockEndRe   = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|table|blockquote)>|<br\s*/?>`)
	cellEndRe    = regexp.MustCompile(`(?i)</t[dh]>`)
	headBlockRe  = regexp.MustCompile(`(?is)<(head|style|script)[^>]*>.*?</(head|style|script)>`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

func initPolicies() {
	initOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()

		safePolicy = bluemonday.NewPolicy()
		safePolicy.AllowStandardURLs()
		safePolicy.AllowElements("p", "br", "strong", "em", "b", "i", "u", "ul", "ol", "li", "blockquote", "code", "pre")
		safePolicy.AllowAttrs("href").OnElements("a")
		safePolicy.RequireNoFollowOnLinks(true)
	})
}

// SanitizeHTML keeps basic formatting and safe links, dropping everything else.
func SanitizeHTML(s string) string {
	initPolicies()
	return safePolicy.Sanitize(s)
}

// SanitizeHTMLCustom sanitizes s with a caller supplied policy.
func SanitizeHTMLCustom(s string, policy *bluemonday.Policy) string {
	return policy.Sanitize(s)
}

// StripTags removes all markup from s.
func StripTags(s string) string {
	initPolicies()
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// HTMLToText turns a rendered HTML document into readable plain text.
// Links keep their target as "label (url)" and block elements end a line.
func HTMLToText(s string) string {
	initPolicies()

	s = headBlockRe.ReplaceAllString(s, "")
	s = anchorRe.ReplaceAllString(s, "$2 ($1)")
	s = cellEndRe.ReplaceAllString(s, " ")
	s = blockEndRe.ReplaceAllString(s, "\n")
	s = html.UnescapeString(strictPolicy.Sanitize(s))

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	s = strings.Join(lines, "\n")
	s = blankLinesRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s) + "\n"
}
