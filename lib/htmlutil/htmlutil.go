package htmlutil

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Attr returns the value of the attribute `key` on node, or "" if it is missing.
func Attr(node *html.Node, key string) string {
	if node == nil {
		return ""
	}
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// SelectionAttr is Attr over the first node of a goquery selection.
func SelectionAttr(sel *goquery.Selection, key string) string {
	return sel.AttrOr(key, "")
}

// IsAbsolute reports whether ref already carries an http(s) scheme.
func IsAbsolute(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// JoinURL concatenates base and path with exactly one "/" between them.
// an empty path yields the base unchanged.
func JoinURL(base, path string) string {
	if path == "" {
		return base
	}
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// Resolve returns ref as-is when it is absolute, otherwise it is joined onto base.
func Resolve(base, ref string) string {
	if IsAbsolute(ref) {
		return ref
	}
	return JoinURL(base, ref)
}
