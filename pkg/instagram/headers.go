package instagram

import "strings"

// Accept-Encoding is left to net/http so compressed bodies are decoded
// transparently.

// BrowserHeaders returns the headers of a top-level page navigation
func BrowserHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":                userAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.5",
		"DNT":                       "1",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
	}
}

// APIHeaders returns the headers of a same-origin XHR to a post's JSON endpoint
func APIHeaders(userAgent, base, shortcode string) map[string]string {
	base = strings.TrimRight(base, "/")
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "*/*",
		"Accept-Language": "en-US,en;q=0.9",
		"X-IG-App-ID":     AppID,
		"X-ASBD-ID":       ASBDID,
		"X-IG-WWW-Claim":  "0",
		"Origin":          base,
		"Referer":         PostPageURL(base, shortcode),
		"Sec-Fetch-Dest":  "empty",
		"Sec-Fetch-Mode":  "cors",
		"Sec-Fetch-Site":  "same-origin",
	}
}

// EngineHeaders returns the headers handed to the managed extraction engine
func EngineHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":                userAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"Accept-Encoding":           "gzip, deflate, br",
		"DNT":                       "1",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Cache-Control":             "max-age=0",
	}
}
