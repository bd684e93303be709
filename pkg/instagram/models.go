package instagram

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// PayloadKind tags which shape a post JSON payload arrived in
type PayloadKind int

const (
	PayloadUnrecognized PayloadKind = iota
	PayloadItems
	PayloadGraphQL
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadItems:
		return "items"
	case PayloadGraphQL:
		return "graphql"
	default:
		return "unrecognized"
	}
}

// Media is the shape-independent view of one post
type Media struct {
	VideoURL  string
	Caption   string
	Author    string
	Thumbnail string
}

// HasVideo reports whether a video URL was found
func (m Media) HasVideo() bool {
	return m.VideoURL != ""
}

// PostPayload is a decoded JSON endpoint response. Media is only
// meaningful when Kind is not PayloadUnrecognized.
type PostPayload struct {
	Kind  PayloadKind
	Media Media
}

type rawPayload struct {
	Items   json.RawMessage `json:"items"`
	GraphQL json.RawMessage `json:"graphql"`
}

// rawMedia covers both the items[0] and graphql.shortcode_media shapes.
// Every field is kept raw and decoded on its own so one field of an
// unexpected type does not cost the others.
type rawMedia struct {
	VideoURL           json.RawMessage `json:"video_url"`
	VideoVersions      json.RawMessage `json:"video_versions"`
	Caption            json.RawMessage `json:"caption"`
	EdgeMediaToCaption json.RawMessage `json:"edge_media_to_caption"`
	Owner              json.RawMessage `json:"owner"`
	DisplayURL         json.RawMessage `json:"display_url"`
	ImageVersions2     json.RawMessage `json:"image_versions2"`
}

type urlEntry struct {
	URL string `json:"url"`
}

// decodeField unmarshals a present field into v, reporting success
func decodeField(raw json.RawMessage, v interface{}) bool {
	return len(raw) > 0 && json.Unmarshal(raw, v) == nil
}

func parseMedia(data json.RawMessage) Media {
	var m Media

	var r rawMedia
	if !decodeField(data, &r) {
		return m
	}

	var videoURL string
	var versions []urlEntry
	switch {
	case decodeField(r.VideoURL, &videoURL) && videoURL != "":
		m.VideoURL = videoURL
	case decodeField(r.VideoVersions, &versions) && len(versions) > 0:
		m.VideoURL = versions[0].URL
	}

	var caption *struct {
		Text string `json:"text"`
	}
	var edges struct {
		Edges []struct {
			Node struct {
				Text string `json:"text"`
			} `json:"node"`
		} `json:"edges"`
	}
	switch {
	case decodeField(r.Caption, &caption) && caption != nil:
		m.Caption = caption.Text
	case decodeField(r.EdgeMediaToCaption, &edges) && len(edges.Edges) > 0:
		m.Caption = edges.Edges[0].Node.Text
	}

	var owner struct {
		Username string `json:"username"`
	}
	if decodeField(r.Owner, &owner) {
		m.Author = owner.Username
	}

	var displayURL string
	var images struct {
		Candidates []urlEntry `json:"candidates"`
	}
	switch {
	case decodeField(r.DisplayURL, &displayURL) && displayURL != "":
		m.Thumbnail = displayURL
	case decodeField(r.ImageVersions2, &images) && len(images.Candidates) > 0:
		m.Thumbnail = images.Candidates[0].URL
	}

	return m
}

// ParsePostPayload decodes a JSON endpoint body. Invalid JSON is an error;
// valid JSON of an unknown shape yields PayloadUnrecognized. Only the first
// item is read, and metadata fields of an unexpected type are left empty.
func ParsePostPayload(data []byte) (PostPayload, error) {
	var raw rawPayload
	if err := json.Unmarshal(data, &raw); err != nil {
		return PostPayload{}, fmt.Errorf("decode post payload: %w", err)
	}

	var items []json.RawMessage
	if decodeField(raw.Items, &items) && len(items) > 0 {
		return PostPayload{Kind: PayloadItems, Media: parseMedia(items[0])}, nil
	}

	var graphql struct {
		ShortcodeMedia json.RawMessage `json:"shortcode_media"`
	}
	if decodeField(raw.GraphQL, &graphql) && len(graphql.ShortcodeMedia) > 0 && string(graphql.ShortcodeMedia) != "null" {
		return PostPayload{Kind: PayloadGraphQL, Media: parseMedia(graphql.ShortcodeMedia)}, nil
	}

	return PostPayload{Kind: PayloadUnrecognized}, nil
}

// LinkedData is the subset of a schema.org ld+json block used for videos
type LinkedData struct {
	VideoURL string
	Caption  string
	Author   string
}

// HasVideo reports whether the block carried a content URL
func (d LinkedData) HasVideo() bool {
	return d.VideoURL != ""
}

var ldJSONPattern = regexp.MustCompile(`(?s)<script type="application/ld\+json">(\{.*?\})</script>`)

// ExtractLinkedData finds every ld+json block in a page, in document order.
// Blocks that fail to decode or lack a video content URL are skipped.
func ExtractLinkedData(html string) []LinkedData {
	var out []LinkedData
	for _, m := range ldJSONPattern.FindAllStringSubmatch(html, -1) {
		d, err := ParseLinkedData([]byte(m[1]))
		if err != nil || !d.HasVideo() {
			continue
		}
		out = append(out, d)
	}
	return out
}

// ParseLinkedData decodes a single ld+json object. Fields with unexpected
// types are ignored rather than failing the whole block.
func ParseLinkedData(data []byte) (LinkedData, error) {
	var raw struct {
		Video   json.RawMessage `json:"video"`
		Caption json.RawMessage `json:"caption"`
		Author  json.RawMessage `json:"author"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return LinkedData{}, fmt.Errorf("decode ld+json: %w", err)
	}

	var d LinkedData

	var video struct {
		ContentURL string `json:"contentUrl"`
	}
	if json.Unmarshal(raw.Video, &video) == nil {
		d.VideoURL = video.ContentURL
	}

	var caption string
	if json.Unmarshal(raw.Caption, &caption) == nil {
		d.Caption = caption
	}

	var author struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(raw.Author, &author) == nil {
		d.Author = author.Name
	}

	return d, nil
}
