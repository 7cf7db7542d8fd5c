package storage

import (
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	incomingDirName  = ".incoming"
	fallbackFileName = "video"
	// maxFileNameBytes is NAME_MAX on the filesystems we deploy to.
	maxFileNameBytes = 255
)

type Config struct {
	Path           string        `mapstructure:"path"`
	IncomingMaxAge time.Duration `mapstructure:"incoming_max_age"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
}

// Layout maps users and file names to locations under the storage root.
// It never touches the filesystem; callers create directories before writing.
type Layout struct {
	root string
	now  func() time.Time
	last atomic.Int64
}

// NewLayout anchors root to an absolute path once, so later changes of the
// working directory cannot move the store.
func NewLayout(root string) *Layout {
	absolute, err := filepath.Abs(root)
	if err != nil {
		absolute = filepath.Clean(root)
	}
	return &Layout{
		root: absolute,
		now:  time.Now,
	}
}

func (l *Layout) Root() string {
	return l.root
}

// UserDirectory is the directory holding every file owned by userID.
func (l *Layout) UserDirectory(userID string) string {
	return filepath.Join(l.root, userID)
}

// RelativePath is the value persisted on a video record: /<userID>/<fileName>.
func (l *Layout) RelativePath(userID, fileName string) string {
	return "/" + path.Join(userID, fileName)
}

// Resolve joins a persisted relative path back onto the root. Parent
// references are collapsed so the result always stays under the root.
func (l *Layout) Resolve(relativePath string) string {
	cleaned := path.Clean("/" + filepath.ToSlash(relativePath))
	return filepath.Join(l.root, filepath.FromSlash(cleaned))
}

// NewFileName prefixes the base of original with a nanosecond stamp that is
// strictly greater than any stamp this layout has handed out before, so two
// calls never return the same name even for the same original. Long
// originals are shortened to fit a single path component, keeping the extension.
func (l *Layout) NewFileName(original string) string {
	prefix := strconv.FormatInt(l.nextStamp(), 10) + "-"
	return prefix + truncateFileName(sanitizeFileName(original), maxFileNameBytes-len(prefix))
}

func (l *Layout) IncomingDirectory() string {
	return filepath.Join(l.root, incomingDirName)
}

// NewIncomingPath returns a fresh location for an upload that has not been
// validated yet.
func (l *Layout) NewIncomingPath() string {
	return filepath.Join(l.IncomingDirectory(), uuid.New().String())
}

func (l *Layout) nextStamp() int64 {
	for {
		last := l.last.Load()
		stamp := l.now().UnixNano()
		if stamp <= last {
			stamp = last + 1
		}
		if l.last.CompareAndSwap(last, stamp) {
			return stamp
		}
	}
}

func truncateFileName(name string, limit int) string {
	if len(name) <= limit {
		return name
	}
	ext := path.Ext(name)
	if len(ext) >= limit {
		ext = ""
	}
	base := name[:len(name)-len(ext)]
	cut := limit - len(ext)
	for cut > 0 && !utf8.RuneStart(base[cut]) {
		cut--
	}
	return base[:cut] + ext
}

func sanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.TrimLeft(name, ".")
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "/" {
		return fallbackFileName
	}
	return name
}
