// Package fs provides file-based storage for downloaded listing images.
package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fwojciec/listgrab"
	"github.com/google/uuid"
)

// MaxNameLength bounds the base file name before the extension.
const MaxNameLength = 200

// Ensure ImageStore implements listgrab.ImageStore at compile time.
var _ listgrab.ImageStore = (*ImageStore)(nil)

// ImageStore writes images into a directory on the local filesystem.
// Files are written to a temporary name and renamed into place, so a reader
// never observes a partial image.
type ImageStore struct {
	// NewName generates a base name when the requested one sanitizes to
	// nothing. Defaults to "image-<uuid>".
	NewName func() string
}

// NewImageStore creates a new ImageStore.
func NewImageStore() *ImageStore {
	return &ImageStore{NewName: generatedName}
}

func generatedName() string {
	return "image-" + uuid.NewString()
}

// SaveImage copies r to dir/name+ext, creating dir if needed.
func (s *ImageStore) SaveImage(ctx context.Context, dir, name, ext string, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, listgrab.WrapErrorf(err, listgrab.EWRITE, "saving image canceled: %v", err)
	}

	base := SanitizeFilename(name)
	if base == "" {
		newName := s.NewName
		if newName == nil {
			newName = generatedName
		}
		base = newName()
	}
	if dir == "" {
		dir = "."
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, listgrab.WrapErrorf(err, listgrab.EWRITE, "failed to create image directory %s: %v", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+base+"-*.tmp")
	if err != nil {
		return "", 0, listgrab.WrapErrorf(err, listgrab.EWRITE, "failed to create image file in %s: %v", dir, err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return "", 0, listgrab.WrapErrorf(err, listgrab.EWRITE, "failed to write image: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, listgrab.WrapErrorf(err, listgrab.EWRITE, "failed to write image: %v", err)
	}

	path := filepath.Join(dir, base+ext)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", 0, listgrab.WrapErrorf(err, listgrab.EWRITE, "failed to save image %s: %v", path, err)
	}

	return path, n, nil
}

var (
	invalidNameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	underscoreRuns   = regexp.MustCompile(`_+`)
)

// SanitizeFilename makes name safe to use as a file name: characters that
// are invalid on common filesystems are removed, spaces become underscores,
// runs of underscores collapse, and the result is truncated to
// MaxNameLength bytes and stripped of leading and trailing underscores.
func SanitizeFilename(name string) string {
	name = invalidNameChars.ReplaceAllString(name, "")
	name = strings.ReplaceAll(name, " ", "_")
	name = underscoreRuns.ReplaceAllString(name, "_")
	if len(name) > MaxNameLength {
		name = strings.ToValidUTF8(name[:MaxNameLength], "")
	}
	name = strings.Trim(name, "_")
	if strings.Trim(name, ".") == "" {
		return ""
	}
	return name
}
