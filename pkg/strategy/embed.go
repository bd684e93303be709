package strategy

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"igfetch/pkg/instagram"
)

// EmbedStrategy scrapes the post page for schema.org video metadata
type EmbedStrategy struct {
	deps Deps
}

// NewEmbedStrategy creates the page-scraping strategy
func NewEmbedStrategy(deps Deps) *EmbedStrategy {
	deps.withDefaults()
	deps.Logger = deps.Logger.WithField("strategy", string(NameEmbed))
	return &EmbedStrategy{deps: deps}
}

func (s *EmbedStrategy) Name() Name { return NameEmbed }

func (s *EmbedStrategy) Attempt(ctx context.Context, ref instagram.PostReference) Outcome {
	log := s.deps.Logger.WithField("shortcode", ref.Shortcode)
	log.Info("attempting HTML scraping")

	headers := instagram.BrowserHeaders(s.deps.Rotator.UserAgent())
	pageURL := instagram.PostPageURL(s.deps.BaseURL, ref.Shortcode)

	body, err := s.deps.Client.Fetch(ctx, pageURL, headers, s.deps.MetadataTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return Failed(ctx.Err())
		}
		log.WithError(err).Warn("post page unavailable")
		return NoResult("post page: %v", err)
	}
	html := string(body)

	blocks := instagram.ExtractLinkedData(html)
	if len(blocks) == 0 {
		log.Debug("no ld+json video block found")
		return NoResult("no embedded video metadata")
	}

	thumbnail := ogImage(html)

	for i, block := range blocks {
		path, size, err := s.deps.download(ctx, block.VideoURL, headers, ref.Shortcode)
		if err != nil {
			if ctx.Err() != nil {
				return Failed(ctx.Err())
			}
			log.WithError(err).WithField("block", i).Warn("video download failed")
			continue
		}

		name := fileName(ref.Shortcode)
		log.WithField("file", name).Info("downloaded via HTML scraping")
		return Succeeded(normalize(Result{
			FilePath:     path,
			FileName:     name,
			FileSize:     size,
			Title:        block.Caption,
			Author:       block.Author,
			Caption:      block.Caption,
			ThumbnailURL: thumbnail,
		}, NameEmbed, DefaultTitle))
	}

	return NoResult("no embedded video could be downloaded")
}

// ogImage returns the page's OpenGraph image, if any
func ogImage(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	content, _ := doc.Find(`meta[property="og:image"]`).First().Attr("content")
	return strings.TrimSpace(content)
}
