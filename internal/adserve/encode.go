package adserve

import (
	"net/url"
	"strings"
)

// componentUnescapes restores the marks url.QueryEscape encodes but a
// URI-component encoding leaves alone.
var componentUnescapes = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeReferrer percent-encodes a page URL for the referrer segment. Only
// A-Z a-z 0-9 and - _ . ! ~ * ' ( ) pass through unescaped.
func EncodeReferrer(pageURL string) string {
	return componentUnescapes.Replace(url.QueryEscape(pageURL))
}
