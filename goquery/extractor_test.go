package goquery_test

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/fwojciec/listgrab"
	"github.com/fwojciec/listgrab/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page(body string) *listgrab.Page {
	return &listgrab.Page{URL: "https://example.com/item/detail/abc-123", StatusCode: 200, Body: body}
}

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("decodes the Next.js data script", func(t *testing.T) {
		t.Parallel()

		html := `<!DOCTYPE html>
<html>
<head><title>Bike</title></head>
<body>
<div id="__next"></div>
<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"listing":{"title":"Bike","price":50}}}}</script>
</body>
</html>`

		data, err := goquery.NewExtractor().Extract(page(html))
		require.NoError(t, err)
		assert.Equal(t, "script#__NEXT_DATA__", data.Source)

		root, ok := data.Root.(map[string]any)
		require.True(t, ok)
		listing := root["props"].(map[string]any)["pageProps"].(map[string]any)["listing"].(map[string]any)
		assert.Equal(t, "Bike", listing["title"])
		assert.Equal(t, json.Number("50"), listing["price"])
	})

	t.Run("prefers selectors over earlier scripts", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
<script type="application/json">{"item":{"title":"decoy"}}</script>
<script data-listing-json>{"listing":{"title":"real"}}</script>
</body></html>`

		data, err := goquery.NewExtractor().Extract(page(html))
		require.NoError(t, err)
		assert.Equal(t, "script[data-listing-json]", data.Source)
		assert.Contains(t, data.Root.(map[string]any), "listing")
	})

	t.Run("falls back to a script with a marker key", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
<script>window.dataLayer = [];</script>
<script type="application/ld+json">{"@type":"Organization"}</script>
<script type="application/json">{"listingDetail":{"title":"Couch"}}</script>
</body></html>`

		data, err := goquery.NewExtractor().Extract(page(html))
		require.NoError(t, err)
		assert.Equal(t, "script[2]", data.Source)
		assert.Contains(t, data.Root.(map[string]any), "listingDetail")
	})

	t.Run("marker match is case-insensitive", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><script>{"ITEM":{"title":"Lamp"}}</script></body></html>`

		data, err := goquery.NewExtractor().Extract(page(html))
		require.NoError(t, err)
		assert.Contains(t, data.Root.(map[string]any), "ITEM")
	})

	t.Run("returns not found when nothing matches", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
<h1>Bike</h1>
<script>console.log("hi")</script>
<script type="application/json">{"config":{"theme":"dark"}}</script>
</body></html>`

		_, err := goquery.NewExtractor().Extract(page(html))
		require.Error(t, err)
		assert.Equal(t, listgrab.ENOTFOUND, listgrab.ErrorCode(err))
	})

	t.Run("returns not found for an empty page", func(t *testing.T) {
		t.Parallel()

		_, err := goquery.NewExtractor().Extract(page(""))
		require.Error(t, err)
		assert.Equal(t, listgrab.ENOTFOUND, listgrab.ErrorCode(err))
	})

	t.Run("returns malformed for a truncated data script", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"listing":{"title":"Bi</script></body></html>`

		_, err := goquery.NewExtractor().Extract(page(html))
		require.Error(t, err)
		assert.Equal(t, listgrab.EMALFORMED, listgrab.ErrorCode(err))
		assert.Contains(t, listgrab.ErrorExcerpt(err), `"listing"`)
	})

	t.Run("returns malformed for an empty data script", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><script id="__NEXT_DATA__" type="application/json">   </script></body></html>`

		_, err := goquery.NewExtractor().Extract(page(html))
		require.Error(t, err)
		assert.Equal(t, listgrab.EMALFORMED, listgrab.ErrorCode(err))
	})

	t.Run("rejects trailing data after the JSON value", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><script id="__NEXT_DATA__">{"listing":{}} garbage</script></body></html>`

		_, err := goquery.NewExtractor().Extract(page(html))
		require.Error(t, err)
		assert.Equal(t, listgrab.EMALFORMED, listgrab.ErrorCode(err))
	})

	t.Run("remembers a malformed marker candidate", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
<script>{"listing": {"title": "Bike",}}</script>
<script type="application/json">{"config":{}}</script>
</body></html>`

		_, err := goquery.NewExtractor().Extract(page(html))
		require.Error(t, err)
		assert.Equal(t, listgrab.EMALFORMED, listgrab.ErrorCode(err))
	})

	t.Run("valid candidate wins over an earlier malformed one", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
<script type="application/json">{"listing": oops}</script>
<script type="application/json">{"item":{"title":"ok"}}</script>
</body></html>`

		data, err := goquery.NewExtractor().Extract(page(html))
		require.NoError(t, err)
		assert.Contains(t, data.Root.(map[string]any), "item")
	})

	t.Run("ignores malformed scripts without markers", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><script>{ not json at all</script></body></html>`

		_, err := goquery.NewExtractor().Extract(page(html))
		require.Error(t, err)
		assert.Equal(t, listgrab.ENOTFOUND, listgrab.ErrorCode(err))
	})

	t.Run("uses custom selectors and markers", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
<script id="state">{"whatever":1}</script>
<script>{"advert":{"title":"Van"}}</script>
</body></html>`

		e := &goquery.Extractor{Selectors: []string{"script#state"}, Markers: []string{"advert"}}
		data, err := e.Extract(page(html))
		require.NoError(t, err)
		assert.Equal(t, "script#state", data.Source)

		e = &goquery.Extractor{Markers: []string{"advert"}}
		data, err = e.Extract(page(html))
		require.NoError(t, err)
		assert.Contains(t, data.Root.(map[string]any), "advert")
	})

	t.Run("rejects a nil page", func(t *testing.T) {
		t.Parallel()

		_, err := goquery.NewExtractor().Extract(nil)
		require.Error(t, err)
		assert.Equal(t, listgrab.EINVALID, listgrab.ErrorCode(err))
	})
}

func TestExcerpt(t *testing.T) {
	t.Parallel()

	t.Run("returns short input unchanged", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, `{"a":1`, goquery.Excerpt(`{"a":1`, 6))
	})

	t.Run("centers on the offset", func(t *testing.T) {
		t.Parallel()

		s := strings.Repeat("a", 200) + "X" + strings.Repeat("b", 200)
		got := goquery.Excerpt(s, 200)
		assert.Len(t, got, goquery.MaxExcerptSize)
		assert.Contains(t, got, "X")
	})

	t.Run("starts at the beginning for unknown offset", func(t *testing.T) {
		t.Parallel()

		s := "START" + strings.Repeat("x", 300)
		got := goquery.Excerpt(s, -1)
		assert.True(t, strings.HasPrefix(got, "START"))
		assert.LessOrEqual(t, len(got), goquery.MaxExcerptSize)
	})

	t.Run("clamps offsets past the end", func(t *testing.T) {
		t.Parallel()

		s := strings.Repeat("x", 300) + "END"
		got := goquery.Excerpt(s, 10_000)
		assert.True(t, strings.HasSuffix(got, "END"))
	})

	t.Run("cuts on rune boundaries", func(t *testing.T) {
		t.Parallel()

		s := strings.Repeat("é", 200)
		got := goquery.Excerpt(s, 101)
		assert.True(t, utf8.ValidString(got))
		assert.LessOrEqual(t, len(got), goquery.MaxExcerptSize)
	})
}
