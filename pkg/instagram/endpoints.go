package instagram

import (
	"fmt"
	"strings"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// AppID is sent as X-IG-App-ID on JSON endpoint requests
	AppID = "936619743392459"

	// ASBDID is sent as X-ASBD-ID on JSON endpoint requests
	ASBDID = "198387"

	// jsonQuery asks a post page for its JSON rendition
	jsonQuery = "?__a=1&__d=dis"
)

// PostPageURL returns the canonical post page for a shortcode
func PostPageURL(base, shortcode string) string {
	if shortcode == "" {
		return ""
	}
	return fmt.Sprintf("%s/p/%s/", strings.TrimRight(base, "/"), shortcode)
}

// PostJSONURLs returns the JSON endpoints tried for a shortcode, in order
func PostJSONURLs(base, shortcode string) []string {
	base = strings.TrimRight(base, "/")
	return []string{
		fmt.Sprintf("%s/p/%s/%s", base, shortcode, jsonQuery),
		fmt.Sprintf("%s/reel/%s/%s", base, shortcode, jsonQuery),
	}
}
