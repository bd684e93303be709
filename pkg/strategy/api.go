package strategy

import (
	"context"

	errs "igfetch/pkg/errors"
	"igfetch/pkg/instagram"
)

// APIStrategy reads the post's JSON rendition and streams the video it names
type APIStrategy struct {
	deps Deps
}

// NewAPIStrategy creates the JSON endpoint strategy
func NewAPIStrategy(deps Deps) *APIStrategy {
	deps.withDefaults()
	deps.Logger = deps.Logger.WithField("strategy", string(NameAPI))
	return &APIStrategy{deps: deps}
}

func (s *APIStrategy) Name() Name { return NameAPI }

func (s *APIStrategy) Attempt(ctx context.Context, ref instagram.PostReference) Outcome {
	log := s.deps.Logger.WithField("shortcode", ref.Shortcode)
	log.Info("attempting direct API")

	headers := instagram.APIHeaders(s.deps.Rotator.UserAgent(), s.deps.BaseURL, ref.Shortcode)

	for _, endpoint := range instagram.PostJSONURLs(s.deps.BaseURL, ref.Shortcode) {
		elog := log.WithField("endpoint", endpoint)

		payload, err := s.deps.Client.FetchPayload(ctx, endpoint, headers, s.deps.MetadataTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return Failed(ctx.Err())
			}
			elog.WithError(err).Debug("endpoint unusable")
			continue
		}
		if payload.Kind == instagram.PayloadUnrecognized {
			elog.Debug("unrecognized payload shape")
			continue
		}
		if !payload.Media.HasVideo() {
			elog.WithField("shape", payload.Kind.String()).Debug("payload has no video")
			continue
		}

		path, size, err := s.deps.download(ctx, payload.Media.VideoURL, headers, ref.Shortcode)
		if err != nil {
			if ctx.Err() != nil {
				return Failed(ctx.Err())
			}
			elog.WithError(err).WithField("kind", string(errs.TypeOf(err))).Warn("video download failed")
			continue
		}

		name := fileName(ref.Shortcode)
		log.WithField("file", name).Info("downloaded via direct API")
		return Succeeded(normalize(Result{
			FilePath:     path,
			FileName:     name,
			FileSize:     size,
			Author:       payload.Media.Author,
			Caption:      payload.Media.Caption,
			ThumbnailURL: payload.Media.Thumbnail,
		}, NameAPI, DefaultTitle+" - "+ref.Shortcode))
	}

	return NoResult("no endpoint yielded a downloadable video")
}
