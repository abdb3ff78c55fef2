package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/cbernatz/Etsywp/internal/application"
	"github.com/cbernatz/Etsywp/internal/domain"
	"github.com/cbernatz/Etsywp/internal/infrastructure/assets"
	"github.com/cbernatz/Etsywp/internal/infrastructure/cache"
	"github.com/cbernatz/Etsywp/internal/infrastructure/etsy"
	"github.com/cbernatz/Etsywp/internal/infrastructure/repository"
	"github.com/cbernatz/Etsywp/internal/ports"
	"github.com/cbernatz/Etsywp/internal/render"
	"github.com/cbernatz/Etsywp/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	securitymiddleware "github.com/cbernatz/Etsywp/internal/infrastructure/middleware"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	// Get configuration from environment
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}

	assetDir := os.Getenv("ASSET_DIR")
	if assetDir == "" {
		assetDir = "./assets"
	}
	assetBaseURL := os.Getenv("ASSET_BASE_URL")
	if assetBaseURL == "" {
		assetBaseURL = "/assets"
	}

	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		logger.Warn().Msg("ADMIN_TOKEN not set, admin endpoints are disabled")
	}

	// Connect to MongoDB
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	db := client.Database(os.Getenv("MONGODB_DATABASE"))

	// Initialize infrastructure (implementations)
	objectStore := repository.NewMongoObjectStore(db)

	assetStore, err := assets.NewDiskStore(assetDir, assetBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize asset store")
	}

	// Fragment caching through Redis is optional; everything renders
	// without it.
	var fragmentCache ports.FragmentCache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisCache, err := cache.NewRedisFragmentCache(addr, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, fragment caching disabled")
		} else {
			defer redisCache.Close()
			fragmentCache = redisCache
		}
	}

	// Initialize application services
	contentStore := store.New(objectStore, logger)
	imageService := application.NewImageService(objectStore, assetStore, logger)
	syncService := application.NewSyncService(
		contentStore,
		imageService,
		etsy.Factory(logger),
		os.Getenv("ETSY_API_BASE"),
		logger,
	)
	renderer := render.New(contentStore, fragmentCache, logger)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(securitymiddleware.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/embed/best-sellers", bestSellersHandler(renderer, logger))
	r.Get("/embed/shop-all", shopAllHandler(renderer, logger))
	r.Get("/embed/tile/{listingID}", tileHandler(renderer, logger))

	// Cached listing images
	fileServer := http.StripPrefix("/assets/", http.FileServer(http.Dir(assetStore.Dir())))
	r.Get("/assets/*", fileServer.ServeHTTP)

	// Admin routes
	r.Route("/admin", func(r chi.Router) {
		r.Use(securitymiddleware.AdminAuth(adminToken, logger))
		r.Get("/status", statusHandler(contentStore, adminToken, logger))
		r.Post("/connect", connectHandler(syncService, logger))
		r.Post("/disconnect", disconnectHandler(syncService, logger))
		r.Post("/refresh", refreshHandler(syncService, logger))
		r.Post("/listing-page", listingPageHandler(syncService, logger))
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info().Str("port", port).Msg("Starting API server")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// connectHandler links a shop and runs the first import
func connectHandler(syncService *application.SyncService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ShopURL string `json:"shop_url"`
			APIKey  string `json:"api_key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		result, err := syncService.Connect(r.Context(), req.ShopURL, req.APIKey)
		if err != nil {
			writeSyncError(w, logger, err)
			return
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"state":     string(result.State),
			"shop_name": result.ShopName,
			"synced":    result.Synced,
		})
	}
}

func disconnectHandler(syncService *application.SyncService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := syncService.Disconnect(r.Context()); err != nil {
			logger.Error().Err(err).Msg("Disconnect failed")
			http.Error(w, "Failed to disconnect shop", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"state": string(application.StateIdle)})
	}
}

func refreshHandler(syncService *application.SyncService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := syncService.Refresh(r.Context())
		if err != nil {
			writeSyncError(w, logger, err)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"state":  string(result.State),
			"synced": result.Synced,
		})
	}
}

// listingPageHandler creates a standalone page for one listing
func listingPageHandler(syncService *application.SyncService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ListingID int64 `json:"listing_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		pageID, err := syncService.CreateListingPage(r.Context(), req.ListingID)
		if err != nil {
			writeSyncError(w, logger, err)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"page_id": pageID})
	}
}

// statusHandler reports the connected shop and a nonce for mutating
// admin calls
func statusHandler(contentStore *store.ContentStore, adminToken string, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop, err := contentStore.GetShop(r.Context())
		if err != nil {
			logger.Error().Err(err).Msg("Failed to load shop record")
			http.Error(w, "Failed to load shop", http.StatusInternalServerError)
			return
		}

		resp := map[string]interface{}{
			"connected": false,
			"nonce":     securitymiddleware.Nonce(adminToken),
		}
		if shop != nil && shop.Connected() {
			count, err := contentStore.CountListings(r.Context())
			if err != nil {
				logger.Error().Err(err).Msg("Failed to count listings")
				http.Error(w, "Failed to count listings", http.StatusInternalServerError)
				return
			}
			created := domain.ParseDateValue(string(shop.CreateDate))
			resp["connected"] = true
			resp["shop_name"] = shop.ShopName
			resp["shop_url"] = shop.ShopURL
			resp["icon_url"] = shop.IconURL
			resp["created"] = created.Display()
			resp["listings"] = count
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func bestSellersHandler(renderer *render.Renderer, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit")
		columns := queryInt(r, "columns")

		fragment, err := renderer.BestSellers(r.Context(), limit, columns)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to render best sellers")
			http.Error(w, "Failed to render", http.StatusInternalServerError)
			return
		}
		writeFragment(w, string(fragment))
	}
}

func shopAllHandler(renderer *render.Renderer, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fragment, err := renderer.ShopAll(r.Context(), queryInt(r, "columns"))
		if err != nil {
			logger.Error().Err(err).Msg("Failed to render shop grid")
			http.Error(w, "Failed to render", http.StatusInternalServerError)
			return
		}
		writeFragment(w, string(fragment))
	}
}

func tileHandler(renderer *render.Renderer, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listingID, err := strconv.ParseInt(chi.URLParam(r, "listingID"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid listing ID", http.StatusBadRequest)
			return
		}

		fragment, err := renderer.TileByListingID(r.Context(), listingID)
		if err != nil {
			logger.Error().Err(err).Int64("listing_id", listingID).Msg("Failed to render tile")
			http.Error(w, "Failed to render", http.StatusInternalServerError)
			return
		}
		if fragment == "" {
			http.Error(w, "Listing not found", http.StatusNotFound)
			return
		}
		writeFragment(w, string(fragment))
	}
}

func writeFragment(w http.ResponseWriter, fragment string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(fragment))
}

// writeSyncError maps domain errors to HTTP statuses
func writeSyncError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var apiErr *domain.APIError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &apiErr):
		logger.Error().Err(err).Msg("Etsy API rejected the request")
		http.Error(w, apiErr.Message, http.StatusBadGateway)
	default:
		logger.Error().Err(err).Msg("Sync operation failed")
		http.Error(w, "Operation failed", http.StatusInternalServerError)
	}
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}
