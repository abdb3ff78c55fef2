package domain

// ListingState mirrors the lifecycle states Etsy reports for a listing.
type ListingState string

const (
	StateActive   ListingState = "active"
	StateInactive ListingState = "inactive"
	StateDraft    ListingState = "draft"
)

// Money is a price in minor units. Never a float: amount/divisor keeps
// the exact value Etsy reported.
type Money struct {
	Amount       int64  `json:"amount"`
	Divisor      int64  `json:"divisor"`
	CurrencyCode string `json:"currency_code"`
}

// Major returns the price in major units (e.g. dollars).
func (m Money) Major() float64 {
	if m.Divisor == 0 {
		return 0
	}
	return float64(m.Amount) / float64(m.Divisor)
}

// ListingImage is one image descriptor attached to a listing.
type ListingImage struct {
	FullURL  string `json:"url_fullxfull"`
	ThumbURL string `json:"url_170x135"`
}

// Listing is a single product record sourced from Etsy. ListingID is the
// immutable external key; exactly one local record exists per ID.
type Listing struct {
	ListingID   int64          `json:"listing_id"`
	ShopID      int64          `json:"shop_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	State       ListingState   `json:"state"`
	URL         string         `json:"url"`
	NumFavorers *int64         `json:"num_favorers,omitempty"`
	Price       *Money         `json:"price,omitempty"`
	Images      []ListingImage `json:"images,omitempty"`
}

// Published reports whether the listing is publicly visible. Visibility
// derives from the lifecycle state alone.
func (l *Listing) Published() bool {
	return l.State == StateActive
}

// FirstImage returns the leading image descriptor, or nil.
func (l *Listing) FirstImage() *ListingImage {
	if len(l.Images) == 0 {
		return nil
	}
	return &l.Images[0]
}
