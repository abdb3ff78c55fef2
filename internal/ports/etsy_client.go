package ports

import (
	"context"

	"github.com/cbernatz/Etsywp/internal/domain"
)

// ClientConfig carries everything an Etsy client needs. It is built per
// operation from the stored shop record; nothing is read from globals.
type ClientConfig struct {
	BaseURL string // defaults to the public Etsy v3 base when empty
	APIKey  string
	ShopURL string // storefront URL, used to resolve the shop ID once
	ShopID  int64  // 0 when not yet resolved
}

// ShopIDSaver persists a shop ID the client discovered while resolving
// a storefront URL, so later calls skip the search round-trip.
type ShopIDSaver func(ctx context.Context, shopID int64) error

// EtsyClient defines the marketplace gateway operations.
type EtsyClient interface {
	// FindShopByName searches for a shop and returns the first match.
	// Returns domain.ErrNotFound when the result set is empty.
	FindShopByName(ctx context.Context, name string) (*domain.Shop, error)

	// GetShopDetails fetches the connected shop's full payload,
	// resolving the shop ID from the storefront URL if necessary.
	GetShopDetails(ctx context.Context) (*domain.Shop, error)

	// GetListingDetails fetches a single listing with images included.
	GetListingDetails(ctx context.Context, listingID int64) (*domain.Listing, error)

	// ListActiveListings fetches one page of active listings. The limit
	// is clamped to the API ceiling of 100.
	ListActiveListings(ctx context.Context, limit, offset int) ([]domain.Listing, error)

	// GetShopListingsWithDetails fetches a page of summaries and then
	// full details for each; listings whose detail fetch fails are
	// omitted rather than failing the batch.
	GetShopListingsWithDetails(ctx context.Context, limit int) ([]domain.Listing, error)
}

// EtsyClientFactory builds a client for one operation's configuration.
type EtsyClientFactory func(cfg ClientConfig, saver ShopIDSaver) EtsyClient
