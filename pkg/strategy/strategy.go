// Package strategy implements the three ways igfetch can recover a video
// from a post: the managed extraction engine, the JSON endpoints and the
// ld+json metadata embedded in the post page. All three share one contract
// and report through an explicit Outcome instead of returning errors.
package strategy

import (
	"context"
	"fmt"
	"time"

	"igfetch/pkg/instagram"
	"igfetch/pkg/logger"
	"igfetch/pkg/storage"
)

// Name tags which strategy produced a result
type Name string

const (
	NameManaged Name = "ytdlp_enhanced"
	NameAPI     Name = "direct_api"
	NameEmbed   Name = "html_scraping"
)

// Default placeholder values
const (
	DefaultTitle   = "Instagram Video"
	DefaultAuthor  = "Unknown"
	DefaultCaption = "No caption available"
)

// Strategy tries to obtain the video for one post. Attempt never panics on
// purpose and never returns an error value; every failure is an Outcome.
type Strategy interface {
	Name() Name
	Attempt(ctx context.Context, ref instagram.PostReference) Outcome
}

// OutcomeKind discriminates Outcome
type OutcomeKind int

const (
	OutcomeNoResult OutcomeKind = iota
	OutcomeSuccess
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeError:
		return "error"
	default:
		return "no_result"
	}
}

// Outcome is the result of one strategy attempt. Result is set only for
// OutcomeSuccess, Err only for OutcomeError.
type Outcome struct {
	Kind   OutcomeKind
	Result *Result
	Reason string
	Err    error
}

// Succeeded wraps a normalized result
func Succeeded(r *Result) Outcome {
	return Outcome{Kind: OutcomeSuccess, Result: r}
}

// NoResult reports that the strategy ran cleanly but found nothing usable
func NoResult(format string, args ...interface{}) Outcome {
	return Outcome{Kind: OutcomeNoResult, Reason: fmt.Sprintf(format, args...)}
}

// Failed reports an unexpected error inside the strategy
func Failed(err error) Outcome {
	return Outcome{Kind: OutcomeError, Err: err, Reason: err.Error()}
}

// Cause returns an error describing a non-success outcome, or nil
func (o Outcome) Cause() error {
	switch o.Kind {
	case OutcomeSuccess:
		return nil
	case OutcomeError:
		return o.Err
	default:
		return fmt.Errorf("no result: %s", o.Reason)
	}
}

// Result is the normalized description of a downloaded video
type Result struct {
	Success      bool   `json:"success"`
	FilePath     string `json:"-"`
	FileName     string `json:"filename"`
	FileSize     int64  `json:"file_size"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	Caption      string `json:"caption"`
	ThumbnailURL string `json:"thumbnail,omitempty"`
	Strategy     Name   `json:"method"`
}

// normalize applies placeholder defaults and stamps the producing strategy.
// Every success passes through here before leaving a strategy.
func normalize(r Result, name Name, defaultTitle string) *Result {
	r.Success = true
	r.Strategy = name
	if r.Title == "" {
		r.Title = defaultTitle
	}
	if r.Author == "" {
		r.Author = DefaultAuthor
	}
	if r.Caption == "" {
		r.Caption = DefaultCaption
	}
	return &r
}

// Deps are the collaborators shared by the HTTP-based strategies
type Deps struct {
	Client          *instagram.Client
	Storage         *storage.Manager
	Rotator         *instagram.Rotator
	BaseURL         string
	MetadataTimeout time.Duration
	StreamTimeout   time.Duration
	Logger          logger.Logger
}

func (d *Deps) withDefaults() {
	if d.Rotator == nil {
		d.Rotator = instagram.NewRotator(nil)
	}
	if d.BaseURL == "" {
		d.BaseURL = instagram.BaseURL
	}
	if d.MetadataTimeout <= 0 {
		d.MetadataTimeout = 30 * time.Second
	}
	if d.StreamTimeout <= 0 {
		d.StreamTimeout = 60 * time.Second
	}
	if d.Logger == nil {
		d.Logger = logger.NewNopLogger()
	}
	if d.Client == nil {
		d.Client = instagram.NewClient(nil, d.Logger)
	}
}

// fileName is the on-disk name used by the streaming strategies
func fileName(shortcode string) string {
	return shortcode + ".mp4"
}

// download streams videoURL into {shortcode}.mp4 in the output directory
func (d *Deps) download(ctx context.Context, videoURL string, headers map[string]string, shortcode string) (string, int64, error) {
	stream, err := d.Client.OpenStream(ctx, videoURL, headers, d.StreamTimeout)
	if err != nil {
		return "", 0, err
	}
	defer stream.Close()

	return d.Storage.SaveStream(ctx, stream, fileName(shortcode), stream.Size)
}
