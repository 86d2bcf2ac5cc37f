// Package goquery locates JSON data embedded in listing pages using CSS
// selectors over the parsed HTML document.
package goquery

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/listgrab"
)

// MaxExcerptSize bounds the payload excerpt attached to EMALFORMED errors.
const MaxExcerptSize = 120

// DefaultSelectors are tried in order before the heuristic scan.
var DefaultSelectors = []string{
	"script#__NEXT_DATA__",
	"script[data-listing-json]",
}

// DefaultMarkers are top-level key fragments that identify a listing blob
// during the heuristic scan.
var DefaultMarkers = []string{"listing", "item"}

// Ensure Extractor implements listgrab.Extractor at compile time.
var _ listgrab.Extractor = (*Extractor)(nil)

// Extractor finds the structured data blob embedded in a listing page.
//
// Selectors are tried first. When none of them match, every script element
// is scanned and the first JSON object with a top-level key containing one
// of the markers is used.
type Extractor struct {
	Selectors []string
	Markers   []string
}

// NewExtractor creates an Extractor with the default selectors and markers.
func NewExtractor() *Extractor {
	return &Extractor{
		Selectors: DefaultSelectors,
		Markers:   DefaultMarkers,
	}
}

// Extract returns the decoded embedded data of page.
func (e *Extractor) Extract(page *listgrab.Page) (*listgrab.EmbeddedData, error) {
	if page == nil {
		return nil, listgrab.Errorf(listgrab.EINVALID, "page is required")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
	if err != nil {
		return nil, listgrab.WrapErrorf(err, listgrab.EINVALID, "failed to parse HTML: %v", err)
	}

	for _, selector := range e.Selectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}

		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return nil, listgrab.Errorf(listgrab.EMALFORMED, "embedded data element %s is empty", selector)
		}
		root, err := decode(text)
		if err != nil {
			return nil, malformed(selector, text, err)
		}
		return &listgrab.EmbeddedData{Root: root, Source: selector}, nil
	}

	return e.scan(doc)
}

// scan is the heuristic fallback over all script elements.
func (e *Extractor) scan(doc *goquery.Document) (*listgrab.EmbeddedData, error) {
	var (
		found   *listgrab.EmbeddedData
		badErr  error
		badText string
		badSrc  string
	)

	doc.Find("script").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		typ, _ := sel.Attr("type")
		declaresJSON := strings.Contains(strings.ToLower(typ), "json")
		text := strings.TrimSpace(sel.Text())
		if text == "" || !declaresJSON && !strings.HasPrefix(text, "{") {
			return true
		}

		source := fmt.Sprintf("script[%d]", i)
		root, err := decode(text)
		if err != nil {
			if badErr == nil && (declaresJSON || e.mentionsMarker(text)) {
				badErr, badText, badSrc = err, text, source
			}
			return true
		}

		obj, ok := root.(map[string]any)
		if !ok || !e.hasMarkerKey(obj) {
			return true
		}
		found = &listgrab.EmbeddedData{Root: root, Source: source}
		return false
	})

	switch {
	case found != nil:
		return found, nil
	case badErr != nil:
		return nil, malformed(badSrc, badText, badErr)
	default:
		return nil, listgrab.Errorf(listgrab.ENOTFOUND, "no embedded listing data found; the page layout may have changed")
	}
}

func (e *Extractor) hasMarkerKey(obj map[string]any) bool {
	for key := range obj {
		key = strings.ToLower(key)
		for _, m := range e.Markers {
			if strings.Contains(key, strings.ToLower(m)) {
				return true
			}
		}
	}
	return false
}

// mentionsMarker reports whether text contains a quoted key starting with a
// marker word.
func (e *Extractor) mentionsMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range e.Markers {
		if strings.Contains(lower, `"`+strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// decode parses exactly one JSON value from text. Numbers are kept as
// json.Number and trailing data is rejected.
func decode(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &trailingDataError{offset: dec.InputOffset()}
	}
	return v, nil
}

type trailingDataError struct {
	offset int64
}

func (e *trailingDataError) Error() string {
	return fmt.Sprintf("unexpected data after JSON value at offset %d", e.offset)
}

func malformed(source, text string, err error) error {
	offset := int64(-1)
	var syntaxErr *json.SyntaxError
	var trailingErr *trailingDataError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &trailingErr):
		offset = trailingErr.offset
	case errors.Is(err, io.ErrUnexpectedEOF):
		offset = int64(len(text))
	}

	e := listgrab.WrapErrorf(err, listgrab.EMALFORMED, "embedded data in %s is malformed: %v", source, err)
	e.Excerpt = Excerpt(text, offset)
	return e
}

// Excerpt returns at most MaxExcerptSize bytes of s centered on offset.
// A negative offset selects the start of s. Cuts fall on UTF-8 boundaries.
func Excerpt(s string, offset int64) string {
	if len(s) <= MaxExcerptSize {
		return s
	}

	start := 0
	if offset >= 0 {
		start = int(min(offset, int64(len(s)))) - MaxExcerptSize/2
	}
	start = max(0, min(start, len(s)-MaxExcerptSize))
	end := start + MaxExcerptSize

	for start < end && !utf8.RuneStart(s[start]) {
		start++
	}
	for end > start && end < len(s) && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[start:end]
}
