// Package htmltomarkdown renders HTML listing descriptions as Markdown text.
package htmltomarkdown

import (
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/fwojciec/listgrab"
)

// Ensure Converter implements listgrab.Converter at compile time.
var _ listgrab.Converter = (*Converter)(nil)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Converter wraps html-to-markdown to turn seller-written HTML descriptions
// into readable Markdown. Tables are kept.
type Converter struct {
	conv *converter.Converter
}

// NewConverter creates a new Converter.
func NewConverter() *Converter {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithBulletListMarker("-"),
			),
			table.NewTablePlugin(),
		),
	)
	return &Converter{conv: conv}
}

// Convert transforms an HTML description into Markdown. The result has no
// leading or trailing blank lines and at most one blank line in a row.
func (c *Converter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", listgrab.Errorf(listgrab.EINVALID, "empty HTML input")
	}

	result, err := c.conv.ConvertString(html)
	if err != nil {
		return "", listgrab.WrapErrorf(err, listgrab.EINTERNAL, "converting description: %v", err)
	}

	result = blankRuns.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result), nil
}
