package mock

import (
	"context"
	"io"

	"github.com/fwojciec/listgrab"
)

var (
	_ listgrab.ImageRetriever = (*ImageRetriever)(nil)
	_ listgrab.ImageStore     = (*ImageStore)(nil)
)

// ImageRetriever is a mock implementation of listgrab.ImageRetriever.
type ImageRetriever struct {
	RetrieveFn func(ctx context.Context, req listgrab.ImageRequest) (*listgrab.SavedImage, error)
}

func (r *ImageRetriever) Retrieve(ctx context.Context, req listgrab.ImageRequest) (*listgrab.SavedImage, error) {
	return r.RetrieveFn(ctx, req)
}

// ImageStore is a mock implementation of listgrab.ImageStore.
type ImageStore struct {
	SaveImageFn func(ctx context.Context, dir, name, ext string, r io.Reader) (string, int64, error)
}

func (s *ImageStore) SaveImage(ctx context.Context, dir, name, ext string, r io.Reader) (string, int64, error) {
	return s.SaveImageFn(ctx, dir, name, ext, r)
}
