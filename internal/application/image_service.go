package application

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/cbernatz/Etsywp/internal/domain"
	"github.com/cbernatz/Etsywp/internal/infrastructure/metrics"
	"github.com/cbernatz/Etsywp/internal/ports"
	"github.com/cbernatz/Etsywp/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const downloadTimeout = 30 * time.Second

// ImageService caches remote listing images as locally served assets.
// Each distinct source URL is downloaded at most once; failures leave
// no record and are never escalated to the enclosing sync.
type ImageService struct {
	objects ports.ObjectStore
	assets  ports.AssetStore
	http    *http.Client
	logger  zerolog.Logger
}

// NewImageService creates a new image cache service.
func NewImageService(objects ports.ObjectStore, assets ports.AssetStore, logger zerolog.Logger) *ImageService {
	return &ImageService{
		objects: objects,
		assets:  assets,
		http:    &http.Client{Timeout: downloadTimeout},
		logger:  logger,
	}
}

// EnsureCached returns the local reference for a source URL, caching it
// on first encounter. A failed download returns (nil, nil): the caller
// renders without an image.
func (s *ImageService) EnsureCached(ctx context.Context, sourceURL string) (*domain.CachedImage, error) {
	if sourceURL == "" {
		return nil, nil
	}

	existing, err := s.objects.FindOne(ctx, ports.Query{
		Type:  store.TypeAttachment,
		Field: "source_url",
		Value: sourceURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up cached image: %w", err)
	}
	if existing != nil {
		metrics.ImageCacheLookups.WithLabelValues("hit").Inc()
		return cachedImageFromObject(existing), nil
	}
	metrics.ImageCacheLookups.WithLabelValues("miss").Inc()

	body, err := s.download(ctx, sourceURL)
	if err != nil {
		metrics.ImageCacheLookups.WithLabelValues("download_failed").Inc()
		s.logger.Warn().Err(err).Str("url", sourceURL).Msg("Image download failed")
		return nil, nil
	}
	defer body.Close()

	name := assetFileName(sourceURL)
	localURL, err := s.assets.Save(ctx, name, body)
	if err != nil {
		metrics.ImageCacheLookups.WithLabelValues("store_failed").Inc()
		s.logger.Warn().Err(err).Str("url", sourceURL).Msg("Failed to store downloaded image")
		return nil, nil
	}

	obj := &ports.Object{
		Type:   store.TypeAttachment,
		Title:  name,
		Status: ports.StatusPublish,
		Fields: map[string]interface{}{
			"source_url": sourceURL,
			"file_name":  name,
			"local_url":  localURL,
		},
	}
	if _, err := s.objects.Insert(ctx, obj); err != nil {
		return nil, fmt.Errorf("failed to record cached image: %w", err)
	}

	return &domain.CachedImage{SourceURL: sourceURL, FileName: name, LocalURL: localURL}, nil
}

// Purge removes every cached image record and its file. Called on
// disconnect; file removal is best effort.
func (s *ImageService) Purge(ctx context.Context) error {
	objects, err := s.objects.Find(ctx, ports.Query{Type: store.TypeAttachment})
	if err != nil {
		return fmt.Errorf("failed to list cached images: %w", err)
	}
	for _, obj := range objects {
		img := cachedImageFromObject(obj)
		if err := s.assets.Remove(img.FileName); err != nil {
			s.logger.Warn().Err(err).Str("file", img.FileName).Msg("Failed to remove cached image file")
		}
	}
	if _, err := s.objects.DeleteByType(ctx, store.TypeAttachment); err != nil {
		return fmt.Errorf("failed to delete cached image records: %w", err)
	}
	return nil
}

func (s *ImageService) download(ctx context.Context, sourceURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func cachedImageFromObject(obj *ports.Object) *domain.CachedImage {
	img := &domain.CachedImage{}
	if v, ok := obj.Field("source_url").(string); ok {
		img.SourceURL = v
	}
	if v, ok := obj.Field("file_name").(string); ok {
		img.FileName = v
	}
	if v, ok := obj.Field("local_url").(string); ok {
		img.LocalURL = v
	}
	return img
}

// assetFileName builds a unique file name, keeping the source URL's
// extension when it has a sane one.
func assetFileName(sourceURL string) string {
	ext := path.Ext(path.Base(sourceURL))
	if len(ext) > 5 || strings.ContainsAny(ext, "?&#%") {
		ext = ""
	}
	return uuid.NewString() + ext
}
