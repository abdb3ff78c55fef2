// Package render produces the embeddable HTML fragments: the listing
// tile, the tile grid, the two canned queries over the content store
// and the standalone listing page. It is pure read-side: nothing here
// mutates stored content.
//
// All externally sourced text flows through html/template so it is
// escaped for the context it lands in (body, attribute or URL).
package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/cbernatz/Etsywp/internal/domain"
	"github.com/cbernatz/Etsywp/internal/infrastructure/metrics"
	"github.com/cbernatz/Etsywp/internal/ports"
	"github.com/cbernatz/Etsywp/internal/store"

	"github.com/rs/zerolog"
)

const (
	defaultBestSellerLimit   = 30
	defaultBestSellerColumns = 3
	defaultShopAllColumns    = 2
	fragmentTTL              = 5 * time.Minute
)

// emptyResult is emitted when a canned query matches no listings.
const emptyResult = template.HTML("<p>No listings found.</p>")

var tileTmpl = template.Must(template.New("tile").Parse(
	`<a class="etsywp-product-card" href="/{{.ListingID}}">` +
		`{{if .ImageURL}}<div class="etsywp-product-image">` +
		`<img class="image-fit-cover" src="{{.ImageURL}}" alt="{{.Title}}">` +
		`</div>{{end}}` +
		`<div class="etsywp-product-details">` +
		`<h3>{{.Title}}</h3>` +
		`{{if .Price}}<div class="etsywp-product-price">{{.Currency}} {{.Price}}</div>{{end}}` +
		`</div>` +
		`</a>`))

var gridTmpl = template.Must(template.New("grid").Parse(
	`{{if .FullWidth}}<div class="etsywp-grid-container">{{end}}` +
		`<div class="etsywp-grid" data-columns="{{.Columns}}">` +
		`{{range .Tiles}}{{.}}{{end}}` +
		`</div>` +
		`{{if .FullWidth}}</div>{{end}}`))

var pageTmpl = template.Must(template.New("page").Parse(
	`{{if .ImageURL}}<figure class="wp-block-image"><img src="{{.ImageURL}}" alt=""/></figure>
{{end}}{{if .Price}}<p>{{.Price}} {{.Currency}}</p>
{{end}}<p>{{.Description}}</p>
<div class="wp-block-buttons"><div class="wp-block-button">` +
		`<a class="wp-block-button__link wp-element-button" ` +
		`href="https://www.etsy.com/offsite-checkout/cart/add-listing?listing_id={{.ListingID}}">Buy on Etsy</a>` +
		`</div></div>`))

// TileParams carries the attribute-style parameters of one tile
// placeholder.
type TileParams struct {
	ListingID int64
	Title     string
	URL       string
	Price     string
	Currency  string
	ImageURL  string
}

// Renderer reads listings from the content store and renders fragments.
// The fragment cache is optional; a nil cache disables it.
type Renderer struct {
	store  *store.ContentStore
	cache  ports.FragmentCache
	logger zerolog.Logger
}

// New creates a renderer over the content store.
func New(contentStore *store.ContentStore, cache ports.FragmentCache, logger zerolog.Logger) *Renderer {
	return &Renderer{store: contentStore, cache: cache, logger: logger}
}

// Tile renders a single listing tile. A tile without a title renders
// nothing; missing price or image are simply omitted.
func (r *Renderer) Tile(p TileParams) (template.HTML, error) {
	if p.Title == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := tileTmpl.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("failed to render tile: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// TileByListingID renders the tile for a stored listing. An unknown ID
// renders nothing.
func (r *Renderer) TileByListingID(ctx context.Context, listingID int64) (template.HTML, error) {
	listing, err := r.store.GetListingByExternalID(ctx, listingID)
	if err != nil {
		return "", err
	}
	if listing == nil {
		return "", nil
	}
	return r.Tile(tileParams(listing))
}

// Grid wraps rendered tiles in the grid markup.
func (r *Renderer) Grid(tiles []template.HTML, columns int, fullwidth bool) (template.HTML, error) {
	if columns <= 0 {
		columns = defaultBestSellerColumns
	}
	var buf bytes.Buffer
	err := gridTmpl.Execute(&buf, struct {
		Tiles     []template.HTML
		Columns   int
		FullWidth bool
	}{tiles, columns, fullwidth})
	if err != nil {
		return "", fmt.Errorf("failed to render grid: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// BestSellers renders a grid of the most-favorited listings. Listings
// with zero favorites never appear.
func (r *Renderer) BestSellers(ctx context.Context, limit, columns int) (template.HTML, error) {
	if limit <= 0 {
		limit = defaultBestSellerLimit
	}
	if columns <= 0 {
		columns = defaultBestSellerColumns
	}

	key := fmt.Sprintf("etsywp:fragment:best_sellers:%d:%d", limit, columns)
	if cached, ok := r.fromCache(ctx, key); ok {
		return cached, nil
	}

	listings, err := r.store.GetListings(ctx, store.ListingFilter{
		Limit:           limit,
		FavoritesRanked: true,
	})
	if err != nil {
		return "", err
	}

	fragment, err := r.grid(listings, columns)
	if err != nil {
		return "", err
	}
	r.toCache(ctx, key, fragment)
	return fragment, nil
}

// ShopAll renders every published listing in insertion order.
func (r *Renderer) ShopAll(ctx context.Context, columns int) (template.HTML, error) {
	if columns <= 0 {
		columns = defaultShopAllColumns
	}

	key := fmt.Sprintf("etsywp:fragment:shop_all:%d", columns)
	if cached, ok := r.fromCache(ctx, key); ok {
		return cached, nil
	}

	listings, err := r.store.GetListings(ctx, store.ListingFilter{})
	if err != nil {
		return "", err
	}

	fragment, err := r.grid(listings, columns)
	if err != nil {
		return "", err
	}
	r.toCache(ctx, key, fragment)
	return fragment, nil
}

func (r *Renderer) grid(listings []domain.Listing, columns int) (template.HTML, error) {
	if len(listings) == 0 {
		return emptyResult, nil
	}
	tiles := make([]template.HTML, 0, len(listings))
	for i := range listings {
		tile, err := r.Tile(tileParams(&listings[i]))
		if err != nil {
			return "", err
		}
		if tile != "" {
			tiles = append(tiles, tile)
		}
	}
	return r.Grid(tiles, columns, true)
}

func (r *Renderer) fromCache(ctx context.Context, key string) (template.HTML, bool) {
	if r.cache == nil {
		return "", false
	}
	val, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("Fragment cache read failed")
		return "", false
	}
	if !ok {
		metrics.FragmentCacheLookups.WithLabelValues("miss").Inc()
		return "", false
	}
	metrics.FragmentCacheLookups.WithLabelValues("hit").Inc()
	return template.HTML(val), true
}

func (r *Renderer) toCache(ctx context.Context, key string, fragment template.HTML) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, key, string(fragment), fragmentTTL); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("Fragment cache write failed")
	}
}

// ListingPage renders the standalone page body for one listing.
func ListingPage(listing *domain.Listing) (string, error) {
	data := struct {
		ListingID   int64
		ImageURL    string
		Price       string
		Currency    string
		Description string
	}{
		ListingID:   listing.ListingID,
		Description: listing.Description,
	}
	if img := listing.FirstImage(); img != nil {
		data.ImageURL = img.FullURL
	}
	if listing.Price != nil {
		data.Price = fmt.Sprintf("%.2f", listing.Price.Major())
		data.Currency = listing.Price.CurrencyCode
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render listing page: %w", err)
	}
	return buf.String(), nil
}

func tileParams(listing *domain.Listing) TileParams {
	p := TileParams{
		ListingID: listing.ListingID,
		Title:     listing.Title,
		URL:       listing.URL,
	}
	if listing.Price != nil {
		p.Price = fmt.Sprintf("%.2f", listing.Price.Major())
		p.Currency = listing.Price.CurrencyCode
	}
	if img := listing.FirstImage(); img != nil {
		p.ImageURL = img.ThumbURL
	}
	return p
}
