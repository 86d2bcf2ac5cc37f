package listgrab

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Policy maps a decoded tree onto Listing fields.
//
// Each field has an ordered list of candidate paths relative to a listing
// root. Candidates are tried root by root, path by path; the first one that
// resolves to a scalar of the expected kind wins.
type Policy struct {
	// Roots are candidate locations of the listing object. The empty path
	// selects the document root.
	Roots []Path

	// RefRoots are candidate locations of an Apollo-style normalized cache
	// used to resolve {"__ref": ...} nodes.
	RefRoots []Path

	Title       []Path
	Price       []Path
	Description []Path
	Image       []Path
	Seller      []Path
	Location    []Path
	ListingID   []Path
}

// DefaultPolicy returns the policy used by Normalize. It covers the Apollo
// cache layout of Next.js marketplace pages as well as plain "listing",
// "item" and "product" objects.
func DefaultPolicy() Policy {
	return Policy{
		Roots: MustParsePaths(
			"props.pageProps.initialApolloState.ROOT_QUERY.listing(*",
			"props.pageProps.listing",
			"props.pageProps.item",
			"props.pageProps.product",
			"listing",
			"item",
			"product",
			"",
		),
		RefRoots: MustParsePaths(
			"props.pageProps.initialApolloState",
			"props.pageProps.apolloState",
			"__APOLLO_STATE__",
			"apolloState",
		),
		Title: MustParsePaths("title", "name", "listingTitle", "headline"),
		Price: MustParsePaths(
			"price",
			"price.amount",
			"price.value",
			"priceInfo.price",
			"listPrice",
			"formattedPrice",
		),
		Description: MustParsePaths("description", "descriptionText", "body", "details"),
		Image: MustParsePaths(
			"photos[0].detailFull.url",
			"photos[0].detailSquare.url",
			"photos[0].url",
			"photos[0]",
			"images[0].url",
			"images[0]",
			"image.url",
			"image",
			"imageUrl",
			"primaryImageUrl",
			"thumbnail.url",
			"thumbnail",
		),
		Seller: MustParsePaths(
			"owner.profile.name",
			"owner.name",
			"seller.profile.name",
			"seller.name",
			"seller.displayName",
			"sellerName",
			"user.name",
		),
		Location: MustParsePaths(
			"locationDetails.locationName",
			"location.name",
			"location.displayName",
			"location",
			"locationName",
			"city",
		),
		ListingID: MustParsePaths("listingId", "listingID", "itemId", "id"),
	}
}

// Normalizer turns embedded data into a Listing.
type Normalizer struct {
	Policy Policy

	// Converter, when set, turns HTML descriptions into Markdown text.
	Converter Converter
}

// NewNormalizer returns a Normalizer using the default policy.
func NewNormalizer() *Normalizer {
	return &Normalizer{Policy: DefaultPolicy()}
}

// Normalize maps data onto a Listing using the default policy.
func Normalize(data *EmbeddedData, sourceURL string) Listing {
	return NewNormalizer().Normalize(data, sourceURL)
}

// Normalize maps data onto a Listing. It never fails: fields that cannot be
// resolved are left at their empty default. A nil data yields a listing
// holding only the source URL and any listing ID found in it.
func (n *Normalizer) Normalize(data *EmbeddedData, sourceURL string) Listing {
	l := Listing{SourceURL: sourceURL}

	var root any
	if data != nil {
		root = data.Root
	}

	r := resolver{caches: n.caches(root)}
	lookup := func(fields []Path, accept func(any) (string, bool)) string {
		for _, base := range n.Policy.Roots {
			if _, ok := r.lookup(root, base); !ok {
				continue
			}
			for _, rel := range fields {
				v, ok := r.lookup(root, base.Join(rel))
				if !ok {
					continue
				}
				if s, ok := accept(v); ok {
					return s
				}
			}
		}
		return ""
	}

	l.Title = lookup(n.Policy.Title, scalarText)
	l.Description = n.description(lookup(n.Policy.Description, stringValue))
	l.Price = NormalizePrice(lookup(n.Policy.Price, scalarText))
	l.FirstImageURL = NormalizeImageURL(lookup(n.Policy.Image, stringValue))
	l.SellerName = lookup(n.Policy.Seller, scalarText)
	l.Location = lookup(n.Policy.Location, scalarText)

	l.ListingID = lookup(n.Policy.ListingID, scalarText)
	if l.ListingID == "" {
		l.ListingID = ListingIDFromURL(sourceURL)
	}

	return l
}

// caches returns the normalized caches present in root.
func (n *Normalizer) caches(root any) []map[string]any {
	var caches []map[string]any
	r := resolver{}
	for _, p := range n.Policy.RefRoots {
		v, ok := r.lookup(root, p)
		if !ok {
			continue
		}
		if m, ok := v.(map[string]any); ok {
			caches = append(caches, m)
		}
	}
	return caches
}

var (
	markupRe     = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// description converts markup line by line so the seller's own line breaks
// survive; HTML rendering would fold them into spaces.
func (n *Normalizer) description(s string) string {
	if n.Converter == nil || !markupRe.MatchString(s) {
		return s
	}

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if !markupRe.MatchString(line) {
			continue
		}
		md, err := n.Converter.Convert(line)
		if err != nil {
			return s
		}
		lines[i] = strings.TrimSpace(md)
	}

	out := strings.TrimSpace(blankLinesRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
	if out == "" {
		return s
	}
	return out
}

// scalarText accepts non-empty strings and numbers.
func scalarText(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		s := strings.TrimSpace(v)
		return s, s != ""
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	}
	return "", false
}

// stringValue accepts non-blank strings. Inner line breaks are kept.
func stringValue(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

var plainDecimalRe = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// NormalizePrice strips currency symbols, whitespace and comma thousands
// separators from raw. If what remains is a plain decimal it is returned,
// otherwise the trimmed input is returned unchanged.
func NormalizePrice(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	rs := []rune(s)
	var b strings.Builder
	for i, r := range rs {
		switch {
		case unicode.Is(unicode.Sc, r), unicode.IsSpace(r):
			continue
		case r == ',' && isThousandsSeparator(rs, i):
			continue
		}
		b.WriteRune(r)
	}

	if cleaned := b.String(); plainDecimalRe.MatchString(cleaned) {
		return cleaned
	}
	return s
}

// isThousandsSeparator reports whether the comma at i sits between a digit
// and a group of exactly three digits.
func isThousandsSeparator(rs []rune, i int) bool {
	if i == 0 || i+3 >= len(rs) || !unicode.IsDigit(rs[i-1]) {
		return false
	}
	for j := i + 1; j <= i+3; j++ {
		if !unicode.IsDigit(rs[j]) {
			return false
		}
	}
	return i+4 == len(rs) || !unicode.IsDigit(rs[i+4])
}

// NormalizeImageURL returns s if it is an absolute http or https URL and the
// empty string otherwise.
func NormalizeImageURL(s string) string {
	if s == "" {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return s
}

var listingIDRe = regexp.MustCompile(`(?i)^[0-9a-f]+(-[0-9a-f]+)*$`)

// ListingIDFromURL returns the last path segment of rawURL when it is
// UUID-shaped (hex groups joined by dashes, with at least one digit), and the
// empty string otherwise. Words spelled with hex letters such as "bed" or
// "cafe" are not IDs.
func ListingIDFromURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}

	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	last := segs[len(segs)-1]
	if listingIDRe.MatchString(last) && strings.ContainsAny(last, "0123456789") {
		return last
	}
	return ""
}
