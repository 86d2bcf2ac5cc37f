package listgrab_test

import (
	"testing"

	"github.com/fwojciec/listgrab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	t.Parallel()

	t.Run("parses keys, indexes and prefixes", func(t *testing.T) {
		t.Parallel()

		for _, s := range []string{"", "title", "item.title", "photos[0].url", "[1]", "a[0][2].b", "ROOT_QUERY.listing(*"} {
			p, err := listgrab.ParsePath(s)
			require.NoError(t, err, s)
			assert.Equal(t, s, p.String())
		}
	})

	t.Run("rejects malformed paths", func(t *testing.T) {
		t.Parallel()

		for _, s := range []string{"a..b", ".a", "a.", "photos[", "photos[x]", "photos[-1]", "photos[0]x"} {
			_, err := listgrab.ParsePath(s)
			require.Error(t, err, s)
			assert.Equal(t, listgrab.EINVALID, listgrab.ErrorCode(err), s)
		}
	})

	t.Run("MustParsePath panics on malformed path", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() { listgrab.MustParsePath("a..b") })
	})
}

func TestPath_Join(t *testing.T) {
	t.Parallel()

	base := listgrab.MustParsePath("props.item")

	assert.Equal(t, "props.item.title", base.Join(listgrab.MustParsePath("title")).String())
	assert.Equal(t, "props.item[0]", base.Join(listgrab.MustParsePath("[0]")).String())
	assert.Equal(t, "title", listgrab.MustParsePath("").Join(listgrab.MustParsePath("title")).String())
	assert.Equal(t, "props.item", base.Join(listgrab.MustParsePath("")).String())
}
