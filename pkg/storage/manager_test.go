package storage

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igfetch/pkg/logger"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "downloads"), logger.NewTestLogger())
	require.NoError(t, err)
	return m
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

// chunkRecorder records the size of every Write it receives
type chunkRecorder struct {
	sizes []int
}

func (c *chunkRecorder) Write(p []byte) (int, error) {
	c.sizes = append(c.sizes, len(p))
	return len(p), nil
}

func TestNewManagerCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	m, err := NewManager(dir, nil)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.True(t, filepath.IsAbs(m.Dir()))
}

func TestSaveStreamByteEquality(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"smaller than one chunk", 5000},
		{"exactly one chunk", ChunkSize},
		{"larger than a mebibyte", (1 << 20) + 12345},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t)
			payload := randomBytes(t, tt.size)

			path, n, err := m.SaveStream(context.Background(), bytes.NewReader(payload), "video.mp4", int64(tt.size))
			require.NoError(t, err)
			assert.Equal(t, int64(tt.size), n)
			assert.Equal(t, m.Path("video.mp4"), path)

			got, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(payload, got))
		})
	}
}

func TestSaveStreamWritesInChunks(t *testing.T) {
	m := newTestManager(t)
	rec := &chunkRecorder{}
	m.SetProgress(func(name string, total int64) io.Writer {
		assert.Equal(t, "clip.mp4", name)
		assert.Equal(t, int64(3*ChunkSize+10), total)
		return rec
	})

	payload := randomBytes(t, 3*ChunkSize+10)
	_, _, err := m.SaveStream(context.Background(), bytes.NewReader(payload), "clip.mp4", int64(len(payload)))
	require.NoError(t, err)

	total := 0
	for _, s := range rec.sizes {
		assert.LessOrEqual(t, s, ChunkSize)
		total += s
	}
	assert.Equal(t, len(payload), total)
}

func TestSaveStreamRejectsEmpty(t *testing.T) {
	m := newTestManager(t)

	_, _, err := m.SaveStream(context.Background(), bytes.NewReader(nil), "empty.mp4", 0)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, ok := m.Exists("empty.mp4")
	assert.False(t, ok)

	entries, err := os.ReadDir(m.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary file should be removed")
}

type failingReader struct{ after int }

func (f *failingReader) Read(p []byte) (int, error) {
	if f.after <= 0 {
		return 0, errors.New("connection reset")
	}
	n := len(p)
	if n > f.after {
		n = f.after
	}
	f.after -= n
	return n, nil
}

func TestSaveStreamReadErrorLeavesNoFile(t *testing.T) {
	m := newTestManager(t)

	_, _, err := m.SaveStream(context.Background(), &failingReader{after: 20000}, "broken.mp4", -1)
	require.Error(t, err)

	entries, err := os.ReadDir(m.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveStreamCancelled(t *testing.T) {
	m := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := m.SaveStream(ctx, bytes.NewReader([]byte("data")), "x.mp4", 4)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSaveStreamLastWriteWins(t *testing.T) {
	m := newTestManager(t)

	_, _, err := m.SaveStream(context.Background(), bytes.NewReader([]byte("first")), "same.mp4", 5)
	require.NoError(t, err)
	_, _, err = m.SaveStream(context.Background(), bytes.NewReader([]byte("second!")), "same.mp4", 7)
	require.NoError(t, err)

	got, err := os.ReadFile(m.Path("same.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "second!", string(got))
}

func TestSafePath(t *testing.T) {
	m := newTestManager(t)

	p, err := m.SafePath("ABC.mp4")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(m.Dir(), "ABC.mp4"), p)

	for _, bad := range []string{"", ".", "..", "../etc/passwd", "a/b.mp4", `..\x`, "/abs", ".ABC.mp4.123.part", ".hidden", "ABC.mp4.part"} {
		_, err := m.SafePath(bad)
		assert.ErrorIs(t, err, ErrInvalidName, bad)
	}
}

func TestExists(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, os.WriteFile(m.Path("full.mp4"), []byte("abc"), 0644))
	require.NoError(t, os.WriteFile(m.Path("zero.mp4"), nil, 0644))

	size, ok := m.Exists("full.mp4")
	assert.True(t, ok)
	assert.Equal(t, int64(3), size)

	_, ok = m.Exists("zero.mp4")
	assert.False(t, ok)
	_, ok = m.Exists("missing.mp4")
	assert.False(t, ok)
	_, ok = m.Exists("../full.mp4")
	assert.False(t, ok)
}

func TestSweep(t *testing.T) {
	m := newTestManager(t)
	old := m.Path("old.mp4")
	fresh := m.Path("fresh.mp4")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(fresh, []byte("y"), 0644))
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))
	require.NoError(t, os.Mkdir(m.Path("subdir"), 0755))

	removed, err := m.Sweep(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
	_, err = os.Stat(m.Path("subdir"))
	assert.NoError(t, err)
}

func TestStartSweeper(t *testing.T) {
	m := newTestManager(t)
	old := m.Path("old.mp4")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0644))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	var total int32
	ctx, cancel := context.WithCancel(context.Background())
	done := m.StartSweeper(ctx, 10*time.Millisecond, time.Hour, func(removed int) {
		atomic.AddInt32(&total, int32(removed))
	})

	assert.Eventually(t, func() bool {
		_, err := os.Stat(old)
		return os.IsNotExist(err)
	}, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&total) == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
