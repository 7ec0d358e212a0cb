package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	logx "crowpost/pkg/logx"
)

// Inventory lists media files available for scheduling.
type Inventory interface {
	ListAvailable(ctx context.Context) ([]string, error)
}

// Default media formats, lower-case extensions with dot.
var (
	defaultImageFormats = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"}
	defaultVideoFormats = []string{".mp4", ".mov", ".avi", ".mkv", ".wmv"}
)

// Config controls the on-disk media library.
type Config struct {
	LibraryDir string
	// Formats overrides the accepted extension set. Entries may be given
	// with or without the leading dot. Empty means images + videos.
	Formats []string
}

// Library is a directory-backed Inventory. The directory is re-scanned on
// every call so new files are picked up without a restart.
type Library struct {
	dir     string
	formats map[string]struct{}
	log     logx.Logger
}

func NewLibrary(cfg Config, log logx.Logger) *Library {
	if log.IsZero() {
		log = logx.Nop()
	}
	formats := map[string]struct{}{}
	src := cfg.Formats
	if len(src) == 0 {
		src = append(append([]string{}, defaultImageFormats...), defaultVideoFormats...)
	}
	for _, f := range src {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if !strings.HasPrefix(f, ".") {
			f = "." + f
		}
		formats[f] = struct{}{}
	}
	return &Library{dir: cfg.LibraryDir, formats: formats, log: log}
}

// ListAvailable returns the paths of all supported media files in the
// library directory. A missing directory is reported as an error; the
// caller decides whether that is fatal.
func (l *Library) ListAvailable(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if _, ok := l.formats[ext]; !ok {
			continue
		}
		files = append(files, filepath.Join(l.dir, e.Name()))
	}
	return files, nil
}

// IsVideo reports whether the file looks like a video, by extension.
func IsVideo(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, v := range defaultVideoFormats {
		if ext == v {
			return true
		}
	}
	return false
}
