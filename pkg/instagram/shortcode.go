package instagram

import (
	"regexp"
	"strings"
)

// shortcodePatterns are tried in order; the first match wins. They are not
// anchored at the end so query strings and trailing paths are ignored.
var shortcodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`instagram\.com/(?:p|reel|tv|reels)/([\w-]+)`),
	regexp.MustCompile(`instagram\.com/[\w.]+/(?:p|reel|tv|reels)/([\w-]+)`),
}

// ExtractShortcode pulls the post identifier out of an Instagram URL
func ExtractShortcode(rawURL string) (string, bool) {
	for _, re := range shortcodePatterns {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// IsInstagramURL performs the loose domain check applied before extraction
func IsInstagramURL(rawURL string) bool {
	return strings.Contains(rawURL, "instagram.com")
}

// PostReference identifies the post a single request is about. It is built
// once and never modified.
type PostReference struct {
	URL       string
	Shortcode string
}

// NewPostReference builds a reference from a raw URL. Shortcode is empty
// when the URL has no recognized path shape.
func NewPostReference(rawURL string) PostReference {
	code, _ := ExtractShortcode(rawURL)
	return PostReference{URL: rawURL, Shortcode: code}
}

// HasShortcode reports whether an identifier was recognized
func (r PostReference) HasShortcode() bool {
	return r.Shortcode != ""
}
