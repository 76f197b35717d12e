package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-manzano/internal/common"
	"github.com/noah-isme/backend-manzano/internal/display"
	"github.com/noah-isme/backend-manzano/internal/obs"
)

var (
	// ErrNotFound is returned when no service carries the requested id.
	ErrNotFound = errors.New("catalog: service not found")
	// ErrUnavailable is returned when the catalog cannot be loaded and no earlier copy exists.
	ErrUnavailable = errors.New("catalog: unavailable")
)

const defaultCacheKey = "catalog:servicios"

var catalogNopLogger = zerolog.Nop()

// ServiceConfig configures the catalog Service.
type ServiceConfig struct {
	Source   Source
	Cache    *Cache
	CacheKey string
	Logger   *zerolog.Logger
}

// Service serves catalog lookups from the configured source.
type Service struct {
	source   Source
	cache    *Cache
	cacheKey string
	logger   *zerolog.Logger

	mu   sync.RWMutex
	last *Document
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Source == nil {
		return nil, errors.New("catalog: source is required")
	}
	key := strings.TrimSpace(cfg.CacheKey)
	if key == "" {
		key = defaultCacheKey
	}
	logger := cfg.Logger
	if logger == nil {
		logger = &catalogNopLogger
	}
	return &Service{source: cfg.Source, cache: cfg.Cache, cacheKey: key, logger: logger}, nil
}

// Document returns the catalog, preferring the shared cache. When the source
// fails the last successfully loaded document is served instead.
func (s *Service) Document(ctx context.Context) (Document, error) {
	if doc, ok, err := s.cache.Get(ctx, s.cacheKey); err != nil {
		s.logger.Warn().Err(err).Msg("catalog_cache_read_failed")
	} else if ok {
		return doc, nil
	}

	doc, err := s.source.Fetch(ctx)
	obs.ObserveCatalogFetch(s.source.Origin(), err)
	if err != nil {
		if prev, ok := s.previous(); ok {
			s.logger.Warn().Err(err).Msg("catalog_load_failed_serving_previous")
			return prev, nil
		}
		return Document{}, &common.AppError{
			Code:       "CATALOG_UNAVAILABLE",
			Message:    "catalog unavailable",
			HTTPStatus: http.StatusServiceUnavailable,
			Err:        fmt.Errorf("%w: %v", ErrUnavailable, err),
		}
	}
	s.remember(doc)
	if err := s.cache.Set(ctx, s.cacheKey, doc); err != nil {
		s.logger.Warn().Err(err).Msg("catalog_cache_write_failed")
	}
	return doc, nil
}

// Servicios lists every service in catalog order.
func (s *Service) Servicios(ctx context.Context) ([]Servicio, error) {
	doc, err := s.Document(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Servicios, nil
}

// Find returns the service with the given id.
func (s *Service) Find(ctx context.Context, id string) (Servicio, error) {
	doc, err := s.Document(ctx)
	if err != nil {
		return Servicio{}, err
	}
	id = strings.TrimSpace(id)
	for _, svc := range doc.Servicios {
		if svc.ID == id {
			return svc, nil
		}
	}
	return Servicio{}, common.NewAppError("NOT_FOUND", "service not found", http.StatusNotFound, ErrNotFound)
}

// Grouped buckets services by category in order of first appearance.
func (s *Service) Grouped(ctx context.Context) ([]Group, error) {
	doc, err := s.Document(ctx)
	if err != nil {
		return nil, err
	}
	return GroupByCategory(doc.Servicios), nil
}

// Refresh drops the cached copy so the next read hits the source.
func (s *Service) Refresh(ctx context.Context) error {
	return s.cache.Invalidate(ctx, s.cacheKey)
}

// Ping reports whether the catalog can currently be served.
func (s *Service) Ping(ctx context.Context) error {
	_, err := s.Document(ctx)
	return err
}

// GroupByCategory buckets services by category in order of first appearance.
func GroupByCategory(servicios []Servicio) []Group {
	groups := make([]Group, 0)
	index := make(map[string]int)
	for _, svc := range servicios {
		name := svc.CategoryName()
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, Group{Categoria: name, Slug: display.Slug(name)})
		}
		groups[i].Servicios = append(groups[i].Servicios, svc)
	}
	return groups
}

func (s *Service) previous() (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return Document{}, false
	}
	return *s.last, true
}

func (s *Service) remember(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &doc
}
