package services

import (
	"context"
	"strings"
	"time"

	"github.com/modera-shop/modera/app/models"
	"github.com/modera-shop/modera/app/repositories"
	"github.com/modera-shop/modera/pkg/cache"
	"github.com/modera-shop/modera/pkg/collection"
	"github.com/modera-shop/modera/pkg/logger"
	"github.com/modera-shop/modera/pkg/metrics"
)

const (
	cacheAll       = "catalog:all"
	cacheWomen     = "catalog:women"
	newCollection  = 8
	popularInWomen = 4
)

// CatalogService serves the product views. Raw store results are cached;
// image URLs are normalized per request since the base can differ.
type CatalogService struct {
	store   repositories.CatalogStore
	cache   cache.Store
	ttl     time.Duration
	baseURL string
}

func NewCatalogService(store repositories.CatalogStore, c cache.Store, ttl time.Duration, baseURL string) *CatalogService {
	return &CatalogService{store: store, cache: c, ttl: ttl, baseURL: strings.TrimRight(baseURL, "/")}
}

type AddProductInput struct {
	Name      string  `json:"name"      validate:"required,max=255"`
	Image     string  `json:"image"     validate:"required,max=1024"`
	Category  string  `json:"category"  validate:"required,max=64"`
	NewPrice  float64 `json:"new_price" validate:"gte=0"`
	OldPrice  float64 `json:"old_price" validate:"gte=0"`
	Available *bool   `json:"available"`
}

// Base is BASE_URL when configured, otherwise the request origin.
func (s *CatalogService) Base(origin string) string {
	if s.baseURL != "" {
		return s.baseURL
	}
	return strings.TrimRight(origin, "/")
}

func (s *CatalogService) cached(ctx context.Context, key string, load func() ([]models.Product, error)) ([]models.Product, error) {
	var products []models.Product
	if s.cache != nil && s.cache.Get(ctx, key, &products) {
		metrics.CacheHits.WithLabelValues(key).Inc()
		return products, nil
	}
	metrics.CacheMisses.WithLabelValues(key).Inc()

	products, err := load()
	if err != nil {
		return nil, storageError("load "+key, err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, products, s.ttl); err != nil {
			logger.WithCtx(ctx).Warn("catalog: cache write failed", "key", key, "error", err)
		}
	}
	return products, nil
}

func (s *CatalogService) all(ctx context.Context) ([]models.Product, error) {
	return s.cached(ctx, cacheAll, func() ([]models.Product, error) { return s.store.All(ctx) })
}

func (s *CatalogService) normalize(products []models.Product, origin string) []models.Product {
	base := s.Base(origin)
	return collection.Map(products, func(p models.Product) models.Product {
		p.Image = NormalizeImageURL(p.Image, base)
		return p
	})
}

// All returns every product in insertion order.
func (s *CatalogService) All(ctx context.Context, origin string) ([]models.Product, error) {
	products, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return s.normalize(products, origin), nil
}

// NewCollection drops the first product and keeps the last eight.
func (s *CatalogService) NewCollection(ctx context.Context, origin string) ([]models.Product, error) {
	products, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return s.normalize(NewCollectionOf(products), origin), nil
}

// PopularInWomen returns the first four products in the women category.
func (s *CatalogService) PopularInWomen(ctx context.Context, origin string) ([]models.Product, error) {
	women, err := s.cached(ctx, cacheWomen, func() ([]models.Product, error) { return s.store.ByCategory(ctx, "women") })
	if err != nil {
		return nil, err
	}
	return s.normalize(collection.Take(women, popularInWomen), origin), nil
}

// NewCollectionOf applies the new collection rule to products.
func NewCollectionOf(products []models.Product) []models.Product {
	rest := collection.TakeLast(collection.Skip(products, 1), newCollection)
	if rest == nil {
		return []models.Product{}
	}
	return rest
}

func (s *CatalogService) Add(ctx context.Context, in AddProductInput) (models.Product, error) {
	available := true
	if in.Available != nil {
		available = *in.Available
	}
	p, err := s.store.Insert(ctx, models.Product{
		Name:      strings.TrimSpace(in.Name),
		Image:     in.Image,
		Category:  strings.TrimSpace(in.Category),
		NewPrice:  in.NewPrice,
		OldPrice:  in.OldPrice,
		Available: available,
	})
	if err != nil {
		return models.Product{}, storageError("insert product", err)
	}
	s.invalidate(ctx)
	logger.WithCtx(ctx).Info("catalog: product added", "id", p.ID, "name", p.Name)
	return p, nil
}

// Remove deletes the product; a missing id is not an error.
func (s *CatalogService) Remove(ctx context.Context, id int) error {
	if err := s.store.RemoveByID(ctx, id); err != nil {
		return storageError("remove product", err)
	}
	s.invalidate(ctx)
	logger.WithCtx(ctx).Info("catalog: product removed", "id", id)
	return nil
}

func (s *CatalogService) Exists(ctx context.Context, id int) (bool, error) {
	ok, err := s.store.Exists(ctx, id)
	if err != nil {
		return false, storageError("product exists", err)
	}
	return ok, nil
}

// FixImages rewrites stored image URLs, replacing from with to.
func (s *CatalogService) FixImages(ctx context.Context, from, to string) (int, error) {
	n, err := s.store.ReplaceImagePrefix(ctx, from, strings.TrimRight(to, "/"))
	if err != nil {
		return n, storageError("fix images", err)
	}
	if n > 0 {
		s.invalidate(ctx)
	}
	return n, nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheAll, cacheWomen); err != nil {
		logger.WithCtx(ctx).Warn("catalog: cache invalidation failed", "error", err)
	}
}
