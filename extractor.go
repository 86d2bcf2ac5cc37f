package listgrab

// EmbeddedData is the decoded JSON document found inside a page.
type EmbeddedData struct {
	// Root is the decoded tree: map[string]any, []any, string,
	// json.Number, bool or nil.
	Root any

	// Source describes the element the data came from, for diagnostics.
	Source string
}

// Extractor locates and decodes the data blob embedded in a page.
type Extractor interface {
	// Extract returns the embedded data.
	// Fails with ENOTFOUND when no element matches and with EMALFORMED
	// when a matching element does not contain valid JSON.
	Extract(page *Page) (*EmbeddedData, error)
}
