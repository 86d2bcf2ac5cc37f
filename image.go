package listgrab

import (
	"context"
	"io"
)

// ImageRequest describes an image to download.
type ImageRequest struct {
	URL string

	// Dir is the target directory. It is created if absent.
	Dir string

	// Name is the base file name, usually the listing ID.
	// A generated name is used when it is empty.
	Name string
}

// SavedImage describes a downloaded image on disk.
type SavedImage struct {
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	Bytes       int64  `json:"bytes"`
}

// ImageRetriever downloads a listing's primary image.
type ImageRetriever interface {
	// Retrieve downloads the image and writes it to the request directory.
	// Fails with ENETWORK, EHTTPSTATUS, ECONTENTTYPE or EWRITE.
	Retrieve(ctx context.Context, req ImageRequest) (*SavedImage, error)
}

// ImageStore writes image bytes to local storage.
type ImageStore interface {
	// SaveImage writes r to dir/name+ext and returns the final path and
	// the number of bytes written. Fails with EWRITE.
	SaveImage(ctx context.Context, dir, name, ext string, r io.Reader) (path string, n int64, err error)
}
