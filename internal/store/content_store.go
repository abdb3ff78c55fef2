package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/cbernatz/Etsywp/internal/domain"
	"github.com/cbernatz/Etsywp/internal/ports"

	"github.com/rs/zerolog"
)

// Object types held in the content store.
const (
	TypeShop       = "etsy_shop"
	TypeListing    = "etsy_listing"
	TypePage       = "page"
	TypeAttachment = "etsy_attachment"
)

// Listing metadata field keys.
const (
	fieldListingID   = "etsy_listing_id"
	fieldShopID      = "etsy_shop_id"
	fieldState       = "etsy_state"
	fieldURL         = "etsy_url"
	fieldNumFavorers = "etsy_num_favorers"
	fieldPrice       = "etsy_price"
	fieldCurrency    = "etsy_currency_code"
	fieldImages      = "etsy_images"
)

// ContentStore maps shops, listings and pages onto the generic object
// store. Upserts are keyed by external ID: re-syncing updates in place
// and never duplicates.
type ContentStore struct {
	objects ports.ObjectStore
	logger  zerolog.Logger
}

// New creates a content store over the given object store.
func New(objects ports.ObjectStore, logger zerolog.Logger) *ContentStore {
	return &ContentStore{objects: objects, logger: logger}
}

// UpsertShop saves the singleton shop record, updating the existing one
// when present.
func (s *ContentStore) UpsertShop(ctx context.Context, shop *domain.Shop) (string, error) {
	existing, err := s.objects.FindOne(ctx, ports.Query{Type: TypeShop})
	if err != nil {
		return "", fmt.Errorf("failed to look up shop: %w", err)
	}

	title := shop.ShopName
	if title == "" {
		title = "Etsy Shop"
	}

	obj := &ports.Object{
		Type:   TypeShop,
		Title:  title,
		Status: ports.StatusPublish,
		Fields: map[string]interface{}{
			fieldShopID:   shop.ShopID,
			"shop_name":   shop.ShopName,
			"shop_url":    shop.ShopURL,
			"api_key":     shop.APIKey,
			"create_date": shop.CreateDate.String(),
			"icon_url":    shop.IconURL,
		},
	}

	if existing != nil {
		obj.ID = existing.ID
		if err := s.objects.Update(ctx, obj); err != nil {
			return "", fmt.Errorf("failed to update shop: %w", err)
		}
		return obj.ID, nil
	}

	id, err := s.objects.Insert(ctx, obj)
	if err != nil {
		return "", fmt.Errorf("failed to save shop: %w", err)
	}
	return id, nil
}

// GetShop returns the stored shop, or nil when disconnected.
func (s *ContentStore) GetShop(ctx context.Context) (*domain.Shop, error) {
	obj, err := s.objects.FindOne(ctx, ports.Query{Type: TypeShop})
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	if obj == nil {
		return nil, nil
	}
	return &domain.Shop{
		ShopID:     fieldInt64(obj, fieldShopID),
		ShopName:   fieldString(obj, "shop_name"),
		ShopURL:    fieldString(obj, "shop_url"),
		APIKey:     fieldString(obj, "api_key"),
		CreateDate: domain.FlexDate(fieldString(obj, "create_date")),
		IconURL:    fieldString(obj, "icon_url"),
	}, nil
}

// SaveShopID stores a resolved shop ID on the existing shop record.
func (s *ContentStore) SaveShopID(ctx context.Context, shopID int64) error {
	obj, err := s.objects.FindOne(ctx, ports.Query{Type: TypeShop})
	if err != nil {
		return fmt.Errorf("failed to look up shop: %w", err)
	}
	if obj == nil {
		return fmt.Errorf("no shop record to save the shop ID on: %w", domain.ErrNotFound)
	}
	obj.Fields[fieldShopID] = shopID
	return s.objects.Update(ctx, obj)
}

// DeleteShop removes the shop and cascades to all listings. Weak
// listing back-references mean no per-listing bookkeeping is needed.
func (s *ContentStore) DeleteShop(ctx context.Context) error {
	if err := s.DeleteShopRecord(ctx); err != nil {
		return err
	}
	if _, err := s.DeleteAllListings(ctx); err != nil {
		return err
	}
	return nil
}

// DeleteShopRecord removes only the shop record. Used to roll back a
// provisional shop after a failed connection, where listings from a
// prior successful sync must survive.
func (s *ContentStore) DeleteShopRecord(ctx context.Context) error {
	if _, err := s.objects.DeleteByType(ctx, TypeShop); err != nil {
		return fmt.Errorf("failed to delete shop: %w", err)
	}
	return nil
}

// UpsertListing saves a listing keyed by its external ID. Published
// status derives from the lifecycle state.
func (s *ContentStore) UpsertListing(ctx context.Context, listing *domain.Listing) (string, error) {
	existing, err := s.objects.FindOne(ctx, ports.Query{
		Type:  TypeListing,
		Field: fieldListingID,
		Value: listing.ListingID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to look up listing %d: %w", listing.ListingID, err)
	}

	status := ports.StatusDraft
	if listing.Published() {
		status = ports.StatusPublish
	}

	fields := map[string]interface{}{
		fieldListingID: listing.ListingID,
		fieldShopID:    listing.ShopID,
		fieldState:     string(listing.State),
		fieldURL:       listing.URL,
	}
	if listing.NumFavorers != nil {
		fields[fieldNumFavorers] = *listing.NumFavorers
	}
	if listing.Price != nil {
		// Price is persisted as a major-unit decimal plus currency and
		// reconstructed as amount/100 on read. This lossy round-trip is
		// load-bearing for compatibility; do not store amount/divisor.
		fields[fieldPrice] = listing.Price.Major()
		fields[fieldCurrency] = listing.Price.CurrencyCode
	}
	if len(listing.Images) > 0 {
		encoded, err := json.Marshal(listing.Images)
		if err != nil {
			return "", fmt.Errorf("failed to encode listing images: %w", err)
		}
		fields[fieldImages] = string(encoded)
	}

	obj := &ports.Object{
		Type:    TypeListing,
		Title:   listing.Title,
		Content: listing.Description,
		Status:  status,
		Fields:  fields,
	}

	if existing != nil {
		obj.ID = existing.ID
		if err := s.objects.Update(ctx, obj); err != nil {
			return "", fmt.Errorf("failed to update listing %d: %w", listing.ListingID, err)
		}
		return obj.ID, nil
	}

	id, err := s.objects.Insert(ctx, obj)
	if err != nil {
		return "", fmt.Errorf("failed to save listing %d: %w", listing.ListingID, err)
	}
	return id, nil
}

// ListingFilter selects published listings. FavoritesRanked restricts
// to favorite counts above zero, sorted descending.
type ListingFilter struct {
	Limit           int
	Offset          int
	FavoritesRanked bool
}

// GetListings returns published listings, in insertion order unless
// ranked by favorites.
func (s *ContentStore) GetListings(ctx context.Context, filter ListingFilter) ([]domain.Listing, error) {
	q := ports.Query{
		Type:   TypeListing,
		Status: ports.StatusPublish,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	if filter.FavoritesRanked {
		q.MinField = fieldNumFavorers
		q.Min = 0
		q.SortField = fieldNumFavorers
		q.SortDesc = true
	}

	objects, err := s.objects.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}

	listings := make([]domain.Listing, 0, len(objects))
	for _, obj := range objects {
		listings = append(listings, *s.objectToListing(obj))
	}
	return listings, nil
}

// GetListingByExternalID returns one stored listing, or nil when no
// record carries that external ID.
func (s *ContentStore) GetListingByExternalID(ctx context.Context, listingID int64) (*domain.Listing, error) {
	obj, err := s.objects.FindOne(ctx, ports.Query{
		Type:  TypeListing,
		Field: fieldListingID,
		Value: listingID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get listing %d: %w", listingID, err)
	}
	if obj == nil {
		return nil, nil
	}
	return s.objectToListing(obj), nil
}

// DeleteAllListings removes every stored listing.
func (s *ContentStore) DeleteAllListings(ctx context.Context) (int64, error) {
	deleted, err := s.objects.DeleteByType(ctx, TypeListing)
	if err != nil {
		return 0, fmt.Errorf("failed to delete listings: %w", err)
	}
	return deleted, nil
}

// CountListings returns the number of published listings.
func (s *ContentStore) CountListings(ctx context.Context) (int, error) {
	objects, err := s.objects.Find(ctx, ports.Query{Type: TypeListing, Status: ports.StatusPublish})
	if err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return len(objects), nil
}

// UpsertListingPage saves a standalone page generated for a listing,
// keyed by the listing's external ID.
func (s *ContentStore) UpsertListingPage(ctx context.Context, listing *domain.Listing, body string) (string, error) {
	existing, err := s.objects.FindOne(ctx, ports.Query{
		Type:  TypePage,
		Field: fieldListingID,
		Value: listing.ListingID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to look up listing page: %w", err)
	}

	obj := &ports.Object{
		Type:    TypePage,
		Title:   listing.Title,
		Content: body,
		Status:  ports.StatusPublish,
		Fields: map[string]interface{}{
			fieldListingID: listing.ListingID,
			"slug":         fmt.Sprintf("%d/%s", listing.ListingID, listing.Title),
		},
	}

	if existing != nil {
		obj.ID = existing.ID
		if err := s.objects.Update(ctx, obj); err != nil {
			return "", fmt.Errorf("failed to update listing page: %w", err)
		}
		return obj.ID, nil
	}

	id, err := s.objects.Insert(ctx, obj)
	if err != nil {
		return "", fmt.Errorf("failed to save listing page: %w", err)
	}
	return id, nil
}

func (s *ContentStore) objectToListing(obj *ports.Object) *domain.Listing {
	listing := &domain.Listing{
		ListingID:   fieldInt64(obj, fieldListingID),
		ShopID:      fieldInt64(obj, fieldShopID),
		Title:       obj.Title,
		Description: obj.Content,
		State:       domain.ListingState(fieldString(obj, fieldState)),
		URL:         fieldString(obj, fieldURL),
	}

	if v := obj.Field(fieldNumFavorers); v != nil {
		n := fieldInt64(obj, fieldNumFavorers)
		listing.NumFavorers = &n
	}

	if v := obj.Field(fieldPrice); v != nil {
		major, _ := toFloat(v)
		listing.Price = &domain.Money{
			Amount:       int64(math.Round(major * 100)),
			Divisor:      100,
			CurrencyCode: fieldString(obj, fieldCurrency),
		}
	}

	if raw := fieldString(obj, fieldImages); raw != "" {
		if err := json.Unmarshal([]byte(raw), &listing.Images); err != nil {
			s.logger.Warn().Err(err).Int64("listing_id", listing.ListingID).
				Msg("Failed to decode stored listing images")
		}
	}
	return listing
}

func fieldString(obj *ports.Object, key string) string {
	if v, ok := obj.Field(key).(string); ok {
		return v
	}
	return ""
}

func fieldInt64(obj *ports.Object, key string) int64 {
	f, _ := toFloat(obj.Field(key))
	return int64(f)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
