package http

import (
	"context"
	"errors"
	"io"
	"mime"
	"strings"

	"github.com/fwojciec/listgrab"
)

// MaxImageSize caps the number of bytes read from an image body.
const MaxImageSize = 25 << 20

const acceptImage = "image/avif,image/webp,image/apng,image/*,*/*;q=0.8"

// Ensure ImageRetriever implements listgrab.ImageRetriever at compile time.
var _ listgrab.ImageRetriever = (*ImageRetriever)(nil)

// ImageRetriever downloads listing images over HTTP and hands the bytes to
// an ImageStore. It follows the same timeout and pause policy as Fetcher.
type ImageRetriever struct {
	client *client
	store  listgrab.ImageStore
}

// NewImageRetriever creates a new ImageRetriever writing to store.
func NewImageRetriever(store listgrab.ImageStore, opts ...Option) *ImageRetriever {
	return &ImageRetriever{client: newClient(opts...), store: store}
}

// Retrieve downloads req.URL and saves it under req.Dir.
func (r *ImageRetriever) Retrieve(ctx context.Context, req listgrab.ImageRequest) (*listgrab.SavedImage, error) {
	u, err := listgrab.ParseURL(req.URL)
	if err != nil {
		return nil, err
	}
	url := u.String()

	resp, err := r.client.get(ctx, url, acceptImage)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := statusError(resp, "image", url); err != nil {
		return nil, err
	}

	mediaType, err := imageMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	body := &readTracker{r: io.LimitReader(resp.Body, MaxImageSize)}
	path, n, err := r.store.SaveImage(ctx, req.Dir, req.Name, ExtensionForType(mediaType), body)
	if err != nil {
		if body.err != nil {
			return nil, networkError(url, body.err)
		}
		return nil, err
	}

	return &listgrab.SavedImage{Path: path, ContentType: mediaType, Bytes: n}, nil
}

// imageMediaType parses a Content-Type header and requires an image type.
func imageMediaType(contentType string) (string, error) {
	if contentType == "" {
		return "", listgrab.Errorf(listgrab.ECONTENTTYPE, "missing content type; expected an image")
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", listgrab.WrapErrorf(err, listgrab.ECONTENTTYPE, "invalid content type %q", contentType)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return "", listgrab.Errorf(listgrab.ECONTENTTYPE, "unexpected content type %q; expected an image", mediaType)
	}
	return mediaType, nil
}

var imageExtensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/pjpeg":   ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/avif":    ".avif",
	"image/svg+xml": ".svg",
	"image/bmp":     ".bmp",
	"image/tiff":    ".tiff",
	"image/x-icon":  ".ico",
}

// ExtensionForType returns the file extension for an image media type.
// Unknown types fall back to the system MIME table and then to ".img".
func ExtensionForType(mediaType string) string {
	if ext, ok := imageExtensions[mediaType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".img"
}

// readTracker remembers the first read error so a failed save can be
// attributed to the network rather than the filesystem.
type readTracker struct {
	r   io.Reader
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && t.err == nil {
		t.err = err
	}
	return n, err
}
