package activity

import (
	"strings"

	"golang.org/x/net/html"
)

// allowedTags is the small safe-markup allowlist most AP content renders
// with: inline emphasis, links, and paragraph/list structure. Everything
// else is dropped, its text content kept.
var allowedTags = map[string]bool{
	"p": true, "br": true, "a": true, "em": true, "strong": true,
	"ul": true, "ol": true, "li": true, "blockquote": true, "span": true,
}

// sanitizeHTML strips any tag outside allowedTags (and all of script/style
// content) from client-authored HTML (the content of objects created
// through the outbox) before it's stored, using
// the standard tokenizer so every entity reference is decoded and
// re-escaped consistently rather than passed through raw.
func sanitizeHTML(h string) string {
	z := html.NewTokenizer(strings.NewReader(h))
	var sb strings.Builder
	skipContent := false
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		switch tt {
		case html.TextToken:
			if !skipContent {
				sb.WriteString(html.EscapeString(html.UnescapeString(string(z.Raw()))))
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skipContent = true
				continue
			}
			if allowedTags[tag] {
				sb.WriteString("<" + tag + ">")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skipContent = false
				continue
			}
			if allowedTags[tag] {
				sb.WriteString("</" + tag + ">")
			}
		}
	}
	return strings.TrimSpace(sb.String())
}
