package render

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cbernatz/Etsywp/internal/domain"
	"github.com/cbernatz/Etsywp/internal/infrastructure/repository"
	"github.com/cbernatz/Etsywp/internal/store"

	"github.com/rs/zerolog"
)

func newTestRenderer() (*Renderer, *store.ContentStore) {
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	contentStore := store.New(repository.NewMemoryObjectStore(), logger)
	return New(contentStore, nil, logger), contentStore
}

func i64(n int64) *int64 { return &n }

func seedListing(t *testing.T, s *store.ContentStore, id int64, title string, favorers int64) {
	t.Helper()
	l := &domain.Listing{
		ListingID:   id,
		Title:       title,
		State:       domain.StateActive,
		NumFavorers: i64(favorers),
		Price:       &domain.Money{Amount: 1999, Divisor: 100, CurrencyCode: "USD"},
	}
	if _, err := s.UpsertListing(context.Background(), l); err != nil {
		t.Fatalf("UpsertListing: %v", err)
	}
}

func TestTileRequiresTitle(t *testing.T) {
	r, _ := newTestRenderer()
	tile, err := r.Tile(TileParams{ListingID: 100, Price: "19.99", Currency: "USD"})
	if err != nil {
		t.Fatalf("Tile: %v", err)
	}
	if tile != "" {
		t.Errorf("got %q, want empty fragment without a title", tile)
	}
}

func TestTileMarkup(t *testing.T) {
	r, _ := newTestRenderer()
	tile, err := r.Tile(TileParams{
		ListingID: 100,
		Title:     "Carved Bowl",
		Price:     "19.99",
		Currency:  "USD",
		ImageURL:  "https://img.example/thumb.jpg",
	})
	if err != nil {
		t.Fatalf("Tile: %v", err)
	}

	html := string(tile)
	for _, want := range []string{
		`class="etsywp-product-card"`,
		`href="/100"`,
		`<h3>Carved Bowl</h3>`,
		`USD 19.99`,
		`src="https://img.example/thumb.jpg"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("tile missing %q:\n%s", want, html)
		}
	}
}

func TestTileOmitsOptionalParts(t *testing.T) {
	r, _ := newTestRenderer()
	tile, err := r.Tile(TileParams{ListingID: 100, Title: "Plain"})
	if err != nil {
		t.Fatalf("Tile: %v", err)
	}
	html := string(tile)
	if strings.Contains(html, "etsywp-product-image") {
		t.Error("image block rendered without an image URL")
	}
	if strings.Contains(html, "etsywp-product-price") {
		t.Error("price block rendered without a price")
	}
}

func TestTileEscapesTitle(t *testing.T) {
	r, _ := newTestRenderer()
	tile, err := r.Tile(TileParams{ListingID: 100, Title: `<script>alert("x")</script>`})
	if err != nil {
		t.Fatalf("Tile: %v", err)
	}
	html := string(tile)
	if strings.Contains(html, "<script>") {
		t.Errorf("unescaped script tag in output:\n%s", html)
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Errorf("title not HTML escaped:\n%s", html)
	}
}

func TestBestSellersOrderAndExclusion(t *testing.T) {
	r, s := newTestRenderer()
	seedListing(t, s, 100, "Zero", 0)
	seedListing(t, s, 101, "Top", 12)
	seedListing(t, s, 102, "Mid", 5)

	fragment, err := r.BestSellers(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("BestSellers: %v", err)
	}
	html := string(fragment)

	if strings.Contains(html, "Zero") {
		t.Error("zero-favorite listing rendered")
	}
	top := strings.Index(html, "Top")
	mid := strings.Index(html, "Mid")
	if top < 0 || mid < 0 || top > mid {
		t.Errorf("order wrong (Top at %d, Mid at %d):\n%s", top, mid, html)
	}
	if !strings.Contains(html, "etsywp-grid-container") {
		t.Error("full-width wrapper missing")
	}
	if !strings.Contains(html, `data-columns="3"`) {
		t.Error("default column count missing")
	}
}

func TestBestSellersEmptyStore(t *testing.T) {
	r, _ := newTestRenderer()
	fragment, err := r.BestSellers(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("BestSellers: %v", err)
	}
	if fragment != emptyResult {
		t.Errorf("got %q, want the empty-result message", fragment)
	}
}

func TestShopAllInsertionOrder(t *testing.T) {
	r, s := newTestRenderer()
	seedListing(t, s, 100, "First", 0)
	seedListing(t, s, 101, "Second", 9)

	fragment, err := r.ShopAll(context.Background(), 0)
	if err != nil {
		t.Fatalf("ShopAll: %v", err)
	}
	html := string(fragment)

	first := strings.Index(html, "First")
	second := strings.Index(html, "Second")
	if first < 0 || second < 0 || first > second {
		t.Errorf("order wrong (First at %d, Second at %d):\n%s", first, second, html)
	}
	if !strings.Contains(html, `data-columns="2"`) {
		t.Error("default column count missing")
	}
}

func TestTileByListingIDUnknown(t *testing.T) {
	r, _ := newTestRenderer()
	tile, err := r.TileByListingID(context.Background(), 999)
	if err != nil {
		t.Fatalf("TileByListingID: %v", err)
	}
	if tile != "" {
		t.Errorf("got %q, want empty fragment", tile)
	}
}

// mapCache is an in-memory ports.FragmentCache.
type mapCache struct {
	mu   sync.Mutex
	data map[string]string
	sets int
}

func (c *mapCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
	return nil
}

func TestBestSellersUsesFragmentCache(t *testing.T) {
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	contentStore := store.New(repository.NewMemoryObjectStore(), logger)
	cache := &mapCache{data: map[string]string{}}
	r := New(contentStore, cache, logger)

	seedListing(t, contentStore, 100, "Cached", 7)
	ctx := context.Background()

	first, err := r.BestSellers(ctx, 10, 3)
	if err != nil {
		t.Fatalf("BestSellers: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("cache sets = %d, want 1", cache.sets)
	}

	// A second listing appears only after the cached fragment expires.
	seedListing(t, contentStore, 101, "Newer", 20)
	second, err := r.BestSellers(ctx, 10, 3)
	if err != nil {
		t.Fatalf("BestSellers: %v", err)
	}
	if first != second {
		t.Error("cached fragment was not served")
	}
}

func TestListingPageMarkup(t *testing.T) {
	listing := &domain.Listing{
		ListingID:   100,
		Title:       "Carved Bowl",
		Description: "Hand carved walnut bowl",
		State:       domain.StateActive,
		Price:       &domain.Money{Amount: 1999, Divisor: 100, CurrencyCode: "USD"},
		Images: []domain.ListingImage{
			{FullURL: "https://img.example/full.jpg", ThumbURL: "https://img.example/thumb.jpg"},
		},
	}

	body, err := ListingPage(listing)
	if err != nil {
		t.Fatalf("ListingPage: %v", err)
	}

	for _, want := range []string{
		`src="https://img.example/full.jpg"`,
		"19.99 USD",
		"Hand carved walnut bowl",
		"https://www.etsy.com/offsite-checkout/cart/add-listing?listing_id=100",
		"Buy on Etsy",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q:\n%s", want, body)
		}
	}
}

func TestListingPageEscapesDescription(t *testing.T) {
	listing := &domain.Listing{
		ListingID:   100,
		Title:       "X",
		Description: `<img src=x onerror="alert(1)">`,
	}
	body, err := ListingPage(listing)
	if err != nil {
		t.Fatalf("ListingPage: %v", err)
	}
	if strings.Contains(body, "<img src=x") {
		t.Errorf("description not escaped:\n%s", body)
	}
}
