package storage

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout_UserDirectory_ShouldJoinRootAndUserID(t *testing.T) {
	// given
	layout := NewLayout("/srv/videos/")

	// when
	dir := layout.UserDirectory("user-1")

	// then
	assert.Equal(t, filepath.Join("/srv/videos", "user-1"), dir)
}

func TestLayout_ShouldAnchorRelativeRootToWorkingDirectory(t *testing.T) {
	// given
	wd, err := os.Getwd()
	require.NoError(t, err)

	// when
	layout := NewLayout("files/videos")

	// then
	assert.True(t, filepath.IsAbs(layout.UserDirectory("user-1")))
	assert.Equal(t, filepath.Join(wd, "files", "videos", "user-1"), layout.UserDirectory("user-1"))
}

func TestLayout_RelativePath_ShouldBeResolvableBackToUserDirectory(t *testing.T) {
	// given
	layout := NewLayout("/srv/videos")

	// when
	relative := layout.RelativePath("user-1", "123-clip.mp4")

	// then
	assert.Equal(t, "/user-1/123-clip.mp4", relative)
	assert.Equal(t, filepath.Join(layout.UserDirectory("user-1"), "123-clip.mp4"), layout.Resolve(relative))
}

func TestLayout_Resolve_ShouldStayUnderRoot(t *testing.T) {
	// given
	layout := NewLayout("/srv/videos")

	// when
	resolved := layout.Resolve("/../../etc/passwd")

	// then
	assert.Equal(t, filepath.Join("/srv/videos", "etc", "passwd"), resolved)
}

func TestLayout_NewFileName_ShouldPrefixTimestampAndKeepOriginalName(t *testing.T) {
	// given
	layout := NewLayout("/srv/videos")
	fixed := time.Unix(1700000000, 0)
	layout.now = func() time.Time { return fixed }

	// when
	name := layout.NewFileName("holiday.mp4")

	// then
	assert.Equal(t, "1700000000000000000-holiday.mp4", name)
}

func TestLayout_NewFileName_ShouldNotCollideWhenClockStandsStill(t *testing.T) {
	// given
	layout := NewLayout("/srv/videos")
	fixed := time.Unix(1700000000, 0)
	layout.now = func() time.Time { return fixed }

	// when
	first := layout.NewFileName("clip.mp4")
	second := layout.NewFileName("clip.mp4")

	// then
	assert.NotEqual(t, first, second)
}

func TestLayout_NewFileName_ShouldBeUniqueUnderConcurrency(t *testing.T) {
	// given
	layout := NewLayout("/srv/videos")
	const workers = 16
	const perWorker = 200

	var mu sync.Mutex
	seen := make(map[string]struct{}, workers*perWorker)
	var wg sync.WaitGroup

	// when
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				name := layout.NewFileName("same.mp4")
				mu.Lock()
				seen[name] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// then
	assert.Len(t, seen, workers*perWorker)
}

func TestLayout_NewFileName_ShouldStripDirectoryComponents(t *testing.T) {
	tests := []struct {
		original string
		want     string
	}{
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\movie.mov`, "movie.mov"},
		{".hidden.mp4", "hidden.mp4"},
		{"", fallbackFileName},
		{"..", fallbackFileName},
		{"/", fallbackFileName},
	}

	layout := NewLayout("/srv/videos")
	for _, tt := range tests {
		t.Run(tt.original, func(t *testing.T) {
			name := layout.NewFileName(tt.original)

			parts := strings.SplitN(name, "-", 2)
			require.Len(t, parts, 2)
			assert.Equal(t, tt.want, parts[1])
		})
	}
}

func TestLayout_NewFileName_ShouldFitSinglePathComponent(t *testing.T) {
	tests := []struct {
		name     string
		original string
		ext      string
	}{
		{"ascii", strings.Repeat("a", 250) + ".mp4", ".mp4"},
		{"multibyte", strings.Repeat("é", 130) + ".mov", ".mov"},
		{"no extension", strings.Repeat("b", 300), ""},
	}

	layout := NewLayout("/srv/videos")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := layout.NewFileName(tt.original)

			assert.LessOrEqual(t, len(name), maxFileNameBytes)
			assert.True(t, utf8.ValidString(name))
			assert.True(t, strings.HasSuffix(name, tt.ext))
		})
	}
}

func TestLayout_NewIncomingPath_ShouldLiveInIncomingDirectory(t *testing.T) {
	// given
	layout := NewLayout("/srv/videos")

	// when
	first := layout.NewIncomingPath()
	second := layout.NewIncomingPath()

	// then
	assert.Equal(t, layout.IncomingDirectory(), filepath.Dir(first))
	assert.NotEqual(t, first, second)
}
