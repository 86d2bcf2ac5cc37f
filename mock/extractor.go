package mock

import "github.com/fwojciec/listgrab"

var _ listgrab.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of listgrab.Extractor.
type Extractor struct {
	ExtractFn func(page *listgrab.Page) (*listgrab.EmbeddedData, error)
}

func (e *Extractor) Extract(page *listgrab.Page) (*listgrab.EmbeddedData, error) {
	return e.ExtractFn(page)
}
