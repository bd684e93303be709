package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"igfetch/pkg/logger"
)

// ChunkSize is the unit in which streamed bodies are copied to disk
const ChunkSize = 8 * 1024

// partSuffix marks a download still being written
const partSuffix = ".part"

var (
	// ErrEmptyFile is returned when a stream produced no bytes
	ErrEmptyFile = errors.New("downloaded file is empty")

	// ErrInvalidName is returned for names that would escape the output directory
	ErrInvalidName = errors.New("invalid file name")
)

// ProgressFunc returns a writer that observes the bytes of one download.
// total is -1 when the size is unknown.
type ProgressFunc func(name string, total int64) io.Writer

// Manager owns the output directory: streamed writes, lookups and expiry
type Manager struct {
	outputDir string
	logger    logger.Logger

	mu       sync.RWMutex
	progress ProgressFunc
}

// NewManager creates a new storage manager, creating the directory if needed
func NewManager(outputDir string, log logger.Logger) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	abs, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{outputDir: abs, logger: log}, nil
}

// Dir returns the absolute output directory
func (m *Manager) Dir() string {
	return m.outputDir
}

// SetProgress installs a progress observer for subsequent downloads
func (m *Manager) SetProgress(fn ProgressFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress = fn
}

// Path joins name onto the output directory without validation
func (m *Manager) Path(name string) string {
	return filepath.Join(m.outputDir, name)
}

// SafePath resolves a client-supplied file name, rejecting anything that is
// not a plain name inside the output directory. Hidden names and .part
// files are in-progress downloads and never resolve.
func (m *Manager) SafePath(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, ".") || strings.HasSuffix(name, partSuffix) ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", ErrInvalidName
	}
	p := filepath.Join(m.outputDir, name)
	if filepath.Dir(p) != m.outputDir {
		return "", ErrInvalidName
	}
	return p, nil
}

// Exists reports whether name is a non-empty regular file and returns its size
func (m *Manager) Exists(name string) (int64, bool) {
	p, err := m.SafePath(name)
	if err != nil {
		return 0, false
	}
	info, err := os.Stat(p)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		return 0, false
	}
	return info.Size(), true
}

// SaveStream copies r into name in ChunkSize pieces. The data lands in a
// temporary file first and is renamed into place only when complete and
// non-empty, so an existing file of the same name is replaced atomically.
func (m *Manager) SaveStream(ctx context.Context, r io.Reader, name string, size int64) (string, int64, error) {
	final, err := m.SafePath(name)
	if err != nil {
		return "", 0, err
	}

	out, err := os.CreateTemp(m.outputDir, "."+name+".*"+partSuffix)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempFile := out.Name()

	var w io.Writer = out
	m.mu.RLock()
	progress := m.progress
	m.mu.RUnlock()
	if progress != nil {
		if pw := progress(name, size); pw != nil {
			w = io.MultiWriter(out, pw)
		}
	}

	written, err := copyChunks(ctx, w, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", written, fmt.Errorf("failed to save %s: %w", name, err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return "", written, fmt.Errorf("failed to close file: %w", closeErr)
	}
	if written == 0 {
		os.Remove(tempFile)
		return "", 0, ErrEmptyFile
	}

	if err := os.Rename(tempFile, final); err != nil {
		os.Remove(tempFile)
		return "", written, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.logger.DebugWithFields("file saved", map[string]interface{}{
		"file":  name,
		"bytes": written,
	})
	return final, written, nil
}

// copyChunks moves r to w one ChunkSize buffer at a time, stopping early if
// ctx is cancelled between chunks.
func copyChunks(ctx context.Context, w io.Writer, r io.Reader) (int64, error) {
	buf := make([]byte, ChunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			wn, werr := w.Write(buf[:n])
			written += int64(wn)
			if werr != nil {
				return written, werr
			}
			if wn != n {
				return written, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

// Sweep deletes regular files last modified more than maxAge ago and
// returns how many were removed.
func (m *Manager) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	var errs []error
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(m.outputDir, entry.Name())); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
			continue
		}
		removed++
		m.logger.DebugWithFields("removed expired file", map[string]interface{}{
			"file": entry.Name(),
			"age":  time.Since(info.ModTime()),
		})
	}

	if removed > 0 {
		m.logger.InfoWithFields("output directory swept", map[string]interface{}{
			"removed": removed,
		})
	}
	return removed, errors.Join(errs...)
}

// StartSweeper sweeps once immediately and then every interval until ctx is
// done. onSweep, if set, receives the removal count of every pass. The
// returned channel closes when the loop exits.
func (m *Manager) StartSweeper(ctx context.Context, interval, maxAge time.Duration, onSweep func(removed int)) <-chan struct{} {
	done := make(chan struct{})

	sweep := func() {
		removed, err := m.Sweep(maxAge)
		if err != nil {
			m.logger.WithError(err).Warn("sweep failed")
		}
		if onSweep != nil {
			onSweep(removed)
		}
	}

	go func() {
		defer close(done)
		sweep()
		if interval <= 0 {
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweep()
			}
		}
	}()

	return done
}
