package strategy

import (
	"context"
	"errors"
	"path/filepath"

	"igfetch/pkg/instagram"
	"igfetch/pkg/logger"
	"igfetch/pkg/storage"
	"igfetch/pkg/ytdlp"
)

// minRetries is the floor for engine retry counts
const minRetries = 5

// ManagedStrategy delegates the whole download to the extraction engine
type ManagedStrategy struct {
	engine  ytdlp.Engine
	storage *storage.Manager
	rotator *instagram.Rotator
	retries int
	logger  logger.Logger
}

// NewManagedStrategy creates the engine-backed strategy. retries below five
// are raised to five.
func NewManagedStrategy(engine ytdlp.Engine, store *storage.Manager, rotator *instagram.Rotator, retries int, log logger.Logger) *ManagedStrategy {
	if retries < minRetries {
		retries = minRetries
	}
	if rotator == nil {
		rotator = instagram.NewRotator(nil)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &ManagedStrategy{
		engine:  engine,
		storage: store,
		rotator: rotator,
		retries: retries,
		logger:  log.WithField("strategy", string(NameManaged)),
	}
}

func (s *ManagedStrategy) Name() Name { return NameManaged }

// Options returns the engine options for one attempt, with a freshly
// rotated identity.
func (s *ManagedStrategy) Options(shortcode string) ytdlp.Options {
	return ytdlp.Options{
		Format:             "best",
		MergeOutputFormat:  "mp4",
		OutputTemplate:     filepath.Join(s.storage.Dir(), shortcode+".%(ext)s"),
		NoCheckCertificate: true,
		Retries:            s.retries,
		FragmentRetries:    s.retries,
		GeoBypass:          true,
		ExtractorArgs:      "instagram:api_version=1",
		Headers:            instagram.EngineHeaders(s.rotator.UserAgent()),
	}
}

func (s *ManagedStrategy) Attempt(ctx context.Context, ref instagram.PostReference) Outcome {
	log := s.logger.WithField("shortcode", ref.Shortcode)
	log.Info("attempting managed extraction")

	info, err := s.engine.Download(ctx, ref.URL, s.Options(ref.Shortcode))
	if err != nil {
		var dlErr *ytdlp.DownloadError
		if errors.As(err, &dlErr) {
			log.WithError(err).Warn("managed extraction failed")
			return NoResult("engine: %v", err)
		}
		log.WithError(err).Error("managed extraction error")
		return Failed(err)
	}

	id := info.ID
	if id == "" {
		id = ref.Shortcode
	}
	ext := info.Ext
	if ext == "" {
		ext = "mp4"
	}
	name := id + "." + ext

	size, ok := s.storage.Exists(name)
	if !ok {
		log.WithField("file", name).Warn("engine reported success but file is missing")
		return NoResult("expected file %s not found", name)
	}

	log.WithField("file", name).Info("downloaded via managed extraction")
	return Succeeded(normalize(Result{
		FilePath:     s.storage.Path(name),
		FileName:     name,
		FileSize:     size,
		Title:        info.Title,
		Author:       info.Uploader,
		Caption:      info.Description,
		ThumbnailURL: info.Thumbnail,
	}, NameManaged, DefaultTitle))
}
