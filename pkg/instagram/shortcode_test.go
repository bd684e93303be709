package instagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractShortcode(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		want   string
		wantOK bool
	}{
		{"post", "https://www.instagram.com/p/ABC123/", "ABC123", true},
		{"reel with query", "https://instagram.com/reel/XyZ_9-a?igsh=abc", "XyZ_9-a", true},
		{"tv", "https://www.instagram.com/tv/CODE1/", "CODE1", true},
		{"reels", "https://www.instagram.com/reels/R33ls/", "R33ls", true},
		{"no trailing slash", "https://www.instagram.com/p/ABC123", "ABC123", true},
		{"user-prefixed post", "https://www.instagram.com/some.user_1/p/ABC123/", "ABC123", true},
		{"user-prefixed reel", "https://www.instagram.com/someone/reel/Q-1/", "Q-1", true},
		{"profile only", "https://www.instagram.com/someone/", "", false},
		{"stories are not posts", "https://www.instagram.com/stories/someone/123/", "", false},
		{"keyword is case sensitive", "https://www.instagram.com/P/ABC123/", "", false},
		{"other domain", "https://example.com/p/ABC123/", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractShortcode(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsInstagramURL(t *testing.T) {
	assert.True(t, IsInstagramURL("https://www.instagram.com/p/X/"))
	assert.True(t, IsInstagramURL("instagram.com/whatever"))
	assert.False(t, IsInstagramURL("https://youtube.com/watch?v=1"))
	assert.False(t, IsInstagramURL(""))
}

func TestNewPostReference(t *testing.T) {
	ref := NewPostReference("https://www.instagram.com/reel/ABC/")
	assert.Equal(t, "https://www.instagram.com/reel/ABC/", ref.URL)
	assert.Equal(t, "ABC", ref.Shortcode)
	assert.True(t, ref.HasShortcode())

	ref = NewPostReference("https://www.instagram.com/explore/")
	assert.False(t, ref.HasShortcode())
}
