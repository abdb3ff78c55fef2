package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/cbernatz/Etsywp/internal/domain"
	"github.com/cbernatz/Etsywp/internal/infrastructure/etsy"
	"github.com/cbernatz/Etsywp/internal/infrastructure/metrics"
	"github.com/cbernatz/Etsywp/internal/ports"
	"github.com/cbernatz/Etsywp/internal/render"
	"github.com/cbernatz/Etsywp/internal/store"

	"github.com/rs/zerolog"
)

// SyncState is the lifecycle of one connect or refresh run.
type SyncState string

const (
	StateIdle       SyncState = "idle"
	StateConnecting SyncState = "connecting"
	StateFetching   SyncState = "fetching"
	StatePersisting SyncState = "persisting"
	StateDone       SyncState = "done"
	StateFailed     SyncState = "failed"
)

// minAPIKeyLen is the shortest credential Etsy issues; anything shorter
// is rejected before touching the network.
const minAPIKeyLen = 24

// syncPageSize is how many listings each sync run imports.
const syncPageSize = 100

// SyncResult summarizes a finished run.
type SyncResult struct {
	State    SyncState
	ShopName string
	Synced   int
}

// SyncService drives the connect, refresh and disconnect flows. One run
// executes at a time; concurrent calls are serialized.
type SyncService struct {
	store     *store.ContentStore
	images    *ImageService
	newClient ports.EtsyClientFactory
	baseURL   string
	logger    zerolog.Logger

	mu    sync.Mutex
	state SyncState
}

// NewSyncService creates the orchestrator. baseURL overrides the Etsy
// API endpoint when non-empty; tests point it at a local server.
func NewSyncService(contentStore *store.ContentStore, images *ImageService, factory ports.EtsyClientFactory, baseURL string, logger zerolog.Logger) *SyncService {
	return &SyncService{
		store:     contentStore,
		images:    images,
		newClient: factory,
		baseURL:   baseURL,
		state:     StateIdle,
		logger:    logger,
	}
}

// State reports the most recent run's state.
func (s *SyncService) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SyncService) setState(state SyncState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Connect validates the credentials, verifies them against the API and
// runs a full import. The shop record is saved before verification so
// the client can persist the resolved shop ID; if verification fails
// the record is rolled back and previously synced listings are kept.
func (s *SyncService) Connect(ctx context.Context, shopURL, apiKey string) (*SyncResult, error) {
	if err := s.validate(shopURL, apiKey); err != nil {
		return nil, err
	}
	s.setState(StateConnecting)

	provisional := &domain.Shop{ShopURL: shopURL, APIKey: apiKey}
	if _, err := s.store.UpsertShop(ctx, provisional); err != nil {
		s.setState(StateFailed)
		metrics.SyncRuns.WithLabelValues("connect", "failure").Inc()
		return nil, fmt.Errorf("failed to save shop record: %w", err)
	}

	client := s.newClient(ports.ClientConfig{
		BaseURL: s.baseURL,
		APIKey:  apiKey,
		ShopURL: shopURL,
	}, s.store.SaveShopID)

	details, err := client.GetShopDetails(ctx)
	if err != nil {
		if rbErr := s.store.DeleteShopRecord(ctx); rbErr != nil {
			s.logger.Error().Err(rbErr).Msg("Failed to roll back shop record")
		}
		s.setState(StateFailed)
		metrics.SyncRuns.WithLabelValues("connect", "failure").Inc()
		return nil, fmt.Errorf("failed to verify shop: %w", err)
	}

	// The API payload has no storefront URL or credential; carry over
	// what the user entered.
	details.ShopURL = shopURL
	details.APIKey = apiKey
	if _, err := s.store.UpsertShop(ctx, details); err != nil {
		s.setState(StateFailed)
		metrics.SyncRuns.WithLabelValues("connect", "failure").Inc()
		return nil, fmt.Errorf("failed to save shop record: %w", err)
	}

	synced := s.importListings(ctx, client)
	s.setState(StateDone)
	metrics.SyncRuns.WithLabelValues("connect", "success").Inc()
	s.logger.Info().Str("shop", details.ShopName).Int("listings", synced).Msg("Shop connected")

	return &SyncResult{State: StateDone, ShopName: details.ShopName, Synced: synced}, nil
}

// Refresh re-imports listings for the connected shop. Returns
// domain.ErrNotFound when no shop is connected.
func (s *SyncService) Refresh(ctx context.Context) (*SyncResult, error) {
	shop, err := s.store.GetShop(ctx)
	if err != nil {
		return nil, err
	}
	if shop == nil || !shop.Connected() {
		return nil, fmt.Errorf("no connected shop: %w", domain.ErrNotFound)
	}
	s.setState(StateFetching)

	client := s.newClient(ports.ClientConfig{
		BaseURL: s.baseURL,
		APIKey:  shop.APIKey,
		ShopURL: shop.ShopURL,
		ShopID:  shop.ShopID,
	}, s.store.SaveShopID)

	synced := s.importListings(ctx, client)
	s.setState(StateDone)
	metrics.SyncRuns.WithLabelValues("refresh", "success").Inc()
	s.logger.Info().Str("shop", shop.ShopName).Int("listings", synced).Msg("Shop refreshed")

	return &SyncResult{State: StateDone, ShopName: shop.ShopName, Synced: synced}, nil
}

// Disconnect removes the shop record, all synced listings and every
// cached image. It succeeds even when nothing is connected.
func (s *SyncService) Disconnect(ctx context.Context) error {
	if err := s.store.DeleteShop(ctx); err != nil {
		metrics.SyncRuns.WithLabelValues("disconnect", "failure").Inc()
		return err
	}
	if err := s.images.Purge(ctx); err != nil {
		metrics.SyncRuns.WithLabelValues("disconnect", "failure").Inc()
		return err
	}
	s.setState(StateIdle)
	metrics.SyncRuns.WithLabelValues("disconnect", "success").Inc()
	s.logger.Info().Msg("Shop disconnected")
	return nil
}

// CreateListingPage fetches one listing and saves a standalone page
// built from it.
func (s *SyncService) CreateListingPage(ctx context.Context, listingID int64) (string, error) {
	shop, err := s.store.GetShop(ctx)
	if err != nil {
		return "", err
	}
	if shop == nil || !shop.Connected() {
		return "", fmt.Errorf("no connected shop: %w", domain.ErrNotFound)
	}

	client := s.newClient(ports.ClientConfig{
		BaseURL: s.baseURL,
		APIKey:  shop.APIKey,
		ShopURL: shop.ShopURL,
		ShopID:  shop.ShopID,
	}, s.store.SaveShopID)

	listing, err := client.GetListingDetails(ctx, listingID)
	if err != nil {
		return "", err
	}

	body, err := render.ListingPage(listing)
	if err != nil {
		return "", err
	}
	return s.store.UpsertListingPage(ctx, listing, body)
}

// importListings pulls one page of detailed listings and persists each.
// Fetch and per-listing persistence errors are logged and skipped; the
// run still completes with whatever landed.
func (s *SyncService) importListings(ctx context.Context, client ports.EtsyClient) int {
	s.setState(StateFetching)
	listings, err := client.GetShopListingsWithDetails(ctx, syncPageSize)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Listing fetch failed, keeping existing content")
		return 0
	}

	s.setState(StatePersisting)
	synced := 0
	for i := range listings {
		listing := &listings[i]
		if _, err := s.store.UpsertListing(ctx, listing); err != nil {
			s.logger.Warn().Err(err).Int64("listing_id", listing.ListingID).Msg("Failed to save listing")
			continue
		}
		synced++
		if img := listing.FirstImage(); img != nil {
			if _, err := s.images.EnsureCached(ctx, img.FullURL); err != nil {
				s.logger.Warn().Err(err).Int64("listing_id", listing.ListingID).Msg("Failed to record cached image")
			}
		}
	}
	metrics.ListingsSynced.Add(float64(synced))
	return synced
}

func (s *SyncService) validate(shopURL, apiKey string) error {
	if shopURL == "" {
		return fmt.Errorf("shop URL is required: %w", domain.ErrInvalidInput)
	}
	if !etsy.ValidShopURL(shopURL) {
		return fmt.Errorf("shop URL %q is not an Etsy storefront: %w", shopURL, domain.ErrInvalidInput)
	}
	if apiKey == "" {
		return fmt.Errorf("API key is required: %w", domain.ErrInvalidInput)
	}
	if len(apiKey) < minAPIKeyLen {
		return fmt.Errorf("API key is too short: %w", domain.ErrInvalidInput)
	}
	return nil
}
