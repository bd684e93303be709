// Package ytdlp drives the yt-dlp binary as a black-box extraction engine:
// given a post URL and a set of options it leaves a media file on disk and
// reports the metadata it found.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"igfetch/pkg/logger"
)

const defaultTimeout = 5 * time.Minute

// ErrNotInstalled is returned when the engine binary cannot be found
var ErrNotInstalled = errors.New("yt-dlp binary not found in PATH")

// Options mirrors the engine flags igfetch cares about
type Options struct {
	Format             string
	MergeOutputFormat  string
	OutputTemplate     string
	NoCheckCertificate bool
	Retries            int
	FragmentRetries    int
	GeoBypass          bool
	ExtractorArgs      string
	Headers            map[string]string
}

// Info is the metadata the engine reports for a finished download
type Info struct {
	ID          string `json:"id"`
	Ext         string `json:"ext"`
	Title       string `json:"title"`
	Uploader    string `json:"uploader"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
}

// Engine downloads the media behind url according to opts
type Engine interface {
	Download(ctx context.Context, url string, opts Options) (*Info, error)
}

// DownloadError is the engine's own failure, carrying whatever it printed
type DownloadError struct {
	URL    string
	Stderr string
	Err    error
}

func (e *DownloadError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("yt-dlp failed for %s: %v: %s", e.URL, e.Err, e.Stderr)
	}
	return fmt.Sprintf("yt-dlp failed for %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Runner executes the binary and returns its captured output
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// ExecEngine is the Engine backed by an installed yt-dlp binary
type ExecEngine struct {
	binary  string
	timeout time.Duration
	run     Runner
	lookup  func(string) (string, error)
	logger  logger.Logger
}

// NewExecEngine creates an engine for binary. A non-positive timeout uses
// five minutes.
func NewExecEngine(binary string, timeout time.Duration, log logger.Logger) *ExecEngine {
	if binary == "" {
		binary = "yt-dlp"
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &ExecEngine{
		binary:  binary,
		timeout: timeout,
		run:     execRunner,
		lookup:  exec.LookPath,
		logger:  log,
	}
}

// WithRunner swaps the process runner, mainly for tests
func (e *ExecEngine) WithRunner(run Runner) *ExecEngine {
	e.run = run
	e.lookup = func(name string) (string, error) { return name, nil }
	return e
}

// Available reports whether the binary can be found
func (e *ExecEngine) Available() bool {
	_, err := e.lookup(e.binary)
	return err == nil
}

// Download runs the engine with -j --no-simulate so it both downloads the
// file and prints the info JSON on stdout.
func (e *ExecEngine) Download(ctx context.Context, url string, opts Options) (*Info, error) {
	path, err := e.lookup(e.binary)
	if err != nil {
		return nil, ErrNotInstalled
	}

	dCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := BuildArgs(url, opts)
	start := time.Now()
	e.logger.DebugWithFields("running yt-dlp", map[string]interface{}{
		"url":  url,
		"args": len(args),
	})

	stdout, stderr, err := e.run(dCtx, path, args...)
	if err != nil {
		if errors.Is(dCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", e.timeout, context.DeadlineExceeded)
		}
		return nil, &DownloadError{URL: url, Stderr: lastLine(stderr), Err: err}
	}

	info, err := ParseInfo(stdout)
	if err != nil {
		return nil, fmt.Errorf("unreadable yt-dlp output for %s: %w", url, err)
	}

	e.logger.DebugWithFields("yt-dlp finished", map[string]interface{}{
		"url":      url,
		"id":       info.ID,
		"ext":      info.Ext,
		"duration": time.Since(start),
	})
	return info, nil
}

// BuildArgs renders opts as a yt-dlp command line ending in url
func BuildArgs(url string, opts Options) []string {
	args := []string{"-j", "--no-simulate", "--no-playlist", "--no-warnings", "--no-progress"}

	if opts.Format != "" {
		args = append(args, "-f", opts.Format)
	}
	if opts.MergeOutputFormat != "" {
		args = append(args, "--merge-output-format", opts.MergeOutputFormat)
	}
	if opts.OutputTemplate != "" {
		args = append(args, "-o", opts.OutputTemplate)
	}
	if opts.NoCheckCertificate {
		args = append(args, "--no-check-certificates")
	}
	if opts.Retries > 0 {
		args = append(args, "--retries", strconv.Itoa(opts.Retries))
	}
	if opts.FragmentRetries > 0 {
		args = append(args, "--fragment-retries", strconv.Itoa(opts.FragmentRetries))
	}
	if opts.GeoBypass {
		args = append(args, "--geo-bypass")
	}
	if opts.ExtractorArgs != "" {
		args = append(args, "--extractor-args", opts.ExtractorArgs)
	}

	keys := make([]string, 0, len(opts.Headers))
	for k := range opts.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--add-header", k+":"+opts.Headers[k])
	}

	return append(args, url)
}

// ParseInfo decodes the last JSON object line of the engine's stdout
func ParseInfo(stdout []byte) (*Info, error) {
	lines := strings.Split(strings.TrimSpace(string(stdout)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var info Info
		if err := json.Unmarshal([]byte(line), &info); err != nil {
			return nil, fmt.Errorf("decode yt-dlp info: %w", err)
		}
		return &info, nil
	}
	return nil, errors.New("yt-dlp printed no info JSON")
}

func lastLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
