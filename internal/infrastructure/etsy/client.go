package etsy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/cbernatz/Etsywp/internal/domain"
	"github.com/cbernatz/Etsywp/internal/infrastructure/metrics"
	"github.com/cbernatz/Etsywp/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Etsy Open API v3 base.
const DefaultBaseURL = "https://openapi.etsy.com/v3"

const (
	requestTimeout = 30 * time.Second
	// maxPageLimit is the API's ceiling for one listings page.
	maxPageLimit = 100
)

var shopURLPattern = regexp.MustCompile(`^https://www\.etsy\.com/shop/([a-zA-Z0-9][\w-]*)$`)

// ValidShopURL reports whether the URL is a well-formed Etsy storefront
// URL (https://www.etsy.com/shop/<name>).
func ValidShopURL(shopURL string) bool {
	return shopURLPattern.MatchString(shopURL)
}

// client is the Etsy API adapter. One instance serves one operation's
// configuration; construct it from the stored shop record via Factory.
type client struct {
	cfg     ports.ClientConfig
	saver   ports.ShopIDSaver
	http    *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewClient creates an Etsy client for the given configuration. saver
// may be nil when discovered shop IDs need not be persisted.
func NewClient(cfg ports.ClientConfig, saver ports.ShopIDSaver, logger zerolog.Logger) ports.EtsyClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &client{
		cfg:     cfg,
		saver:   saver,
		http:    &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		logger:  logger,
	}
}

// Factory returns an EtsyClientFactory closed over the logger.
func Factory(logger zerolog.Logger) ports.EtsyClientFactory {
	return func(cfg ports.ClientConfig, saver ports.ShopIDSaver) ports.EtsyClient {
		return NewClient(cfg, saver, logger)
	}
}

// request issues one API call. GET params go to the query string, other
// methods get a JSON body. A response outside [200,300) becomes an
// APIError carrying the server message when one was supplied; transport
// failures are returned wrapped. No retries at this layer.
func (c *client) request(ctx context.Context, method, path string, params map[string]string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	fullURL := c.cfg.BaseURL + path
	var body io.Reader

	if method == http.MethodGet {
		if len(params) > 0 {
			q := url.Values{}
			for k, v := range params {
				q.Set(k, v)
			}
			fullURL += "?" + q.Encode()
		}
	} else if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("etsy request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(raw, &apiErr)
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("path", path).
			Msg("Etsy API returned an error")
		return domain.NewAPIError(resp.StatusCode, apiErr.Error)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

type shopSearchResponse struct {
	Count   int           `json:"count"`
	Results []domain.Shop `json:"results"`
}

type listingListResponse struct {
	Count   int              `json:"count"`
	Results []domain.Listing `json:"results"`
}

func (c *client) FindShopByName(ctx context.Context, name string) (*domain.Shop, error) {
	var res shopSearchResponse
	err := c.request(ctx, http.MethodGet, "/application/shops", map[string]string{
		"shop_name": name,
		"limit":     "1",
	}, &res)
	metrics.RecordAPICall("find_shop_by_name", err)
	if err != nil {
		return nil, err
	}
	if len(res.Results) == 0 {
		return nil, fmt.Errorf("shop %q: %w", name, domain.ErrNotFound)
	}

	shop := res.Results[0]
	c.cfg.ShopID = shop.ShopID
	if c.saver != nil {
		if err := c.saver(ctx, shop.ShopID); err != nil {
			c.logger.Warn().Err(err).Int64("shop_id", shop.ShopID).
				Msg("Failed to persist resolved shop ID")
		}
	}
	return &shop, nil
}

// resolveShopID ensures the client knows the shop's numeric ID,
// searching by the name embedded in the storefront URL when it does
// not. A URL that does not match the storefront pattern fails before
// any network call.
func (c *client) resolveShopID(ctx context.Context) error {
	if c.cfg.ShopID != 0 {
		return nil
	}
	m := shopURLPattern.FindStringSubmatch(c.cfg.ShopURL)
	if m == nil {
		return fmt.Errorf("shop URL %q does not match https://www.etsy.com/shop/<name>: %w",
			c.cfg.ShopURL, domain.ErrInvalidInput)
	}
	if _, err := c.FindShopByName(ctx, m[1]); err != nil {
		return err
	}
	return nil
}

func (c *client) GetShopDetails(ctx context.Context) (*domain.Shop, error) {
	if err := c.resolveShopID(ctx); err != nil {
		return nil, err
	}

	var shop domain.Shop
	path := fmt.Sprintf("/application/shops/%d", c.cfg.ShopID)
	err := c.request(ctx, http.MethodGet, path, nil, &shop)
	metrics.RecordAPICall("get_shop_details", err)
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (c *client) GetListingDetails(ctx context.Context, listingID int64) (*domain.Listing, error) {
	if listingID <= 0 {
		return nil, fmt.Errorf("listing ID is required: %w", domain.ErrInvalidInput)
	}

	var listing domain.Listing
	path := fmt.Sprintf("/application/listings/%d", listingID)
	err := c.request(ctx, http.MethodGet, path, map[string]string{"includes": "Images"}, &listing)
	metrics.RecordAPICall("get_listing_details", err)
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (c *client) ListActiveListings(ctx context.Context, limit, offset int) ([]domain.Listing, error) {
	if limit > maxPageLimit {
		c.logger.Debug().Int("requested", limit).Int("clamped", maxPageLimit).
			Msg("Clamping listings page limit")
		limit = maxPageLimit
	}
	if limit <= 0 {
		limit = 25
	}
	if err := c.resolveShopID(ctx); err != nil {
		return nil, err
	}

	var res listingListResponse
	path := fmt.Sprintf("/application/shops/%d/listings/active", c.cfg.ShopID)
	err := c.request(ctx, http.MethodGet, path, map[string]string{
		"limit":  fmt.Sprintf("%d", limit),
		"offset": fmt.Sprintf("%d", offset),
	}, &res)
	metrics.RecordAPICall("list_active_listings", err)
	if err != nil {
		return nil, err
	}
	return res.Results, nil
}

func (c *client) GetShopListingsWithDetails(ctx context.Context, limit int) ([]domain.Listing, error) {
	summaries, err := c.ListActiveListings(ctx, limit, 0)
	if err != nil {
		return nil, err
	}

	detailed := make([]domain.Listing, 0, len(summaries))
	for _, summary := range summaries {
		listing, err := c.GetListingDetails(ctx, summary.ListingID)
		if err != nil {
			// Partial failures degrade gracefully: the listing is
			// dropped from the batch, not retried.
			c.logger.Warn().Err(err).Int64("listing_id", summary.ListingID).
				Msg("Skipping listing whose detail fetch failed")
			continue
		}
		detailed = append(detailed, *listing)
	}
	return detailed, nil
}
