package listgrab

// Listing is the canonical record produced by one extraction.
//
// Optional fields use the empty string for "absent". Title and Description
// are always present, possibly empty. SourceURL is the URL given by the
// caller and is never rewritten.
type Listing struct {
	Title         string `json:"title"`
	Price         string `json:"price,omitempty"`
	Description   string `json:"description"`
	FirstImageURL string `json:"first_image_url,omitempty"`
	SellerName    string `json:"seller_name,omitempty"`
	Location      string `json:"location,omitempty"`
	ListingID     string `json:"listing_id,omitempty"`
	SourceURL     string `json:"source_url"`
}

// Field is one labeled value of a Listing.
type Field struct {
	Key      string // JSON and CSV column name
	Label    string // human-readable label
	Value    string
	Required bool // rendered even when Value is empty
}

// Present reports whether the field should be rendered.
func (f Field) Present() bool {
	return f.Required || f.Value != ""
}

// Fields returns the listing's fields in canonical order.
// All output formats use this order.
func (l Listing) Fields() []Field {
	return []Field{
		{Key: "title", Label: "Title", Value: l.Title, Required: true},
		{Key: "price", Label: "Price", Value: l.Price},
		{Key: "description", Label: "Description", Value: l.Description, Required: true},
		{Key: "first_image_url", Label: "Image URL", Value: l.FirstImageURL},
		{Key: "seller_name", Label: "Seller", Value: l.SellerName},
		{Key: "location", Label: "Location", Value: l.Location},
		{Key: "listing_id", Label: "Listing ID", Value: l.ListingID},
		{Key: "source_url", Label: "Source URL", Value: l.SourceURL, Required: true},
	}
}
