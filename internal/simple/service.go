package simple

import (
	"context"
	"fmt"
	"log"

	"github.com/sol-registry/sol-backend/internal/cache"
	"github.com/sol-registry/sol-backend/internal/index/domain"
	"github.com/sol-registry/sol-backend/internal/pep503"
)

// Store is the slice of the metadata store the read path needs.
type Store interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ListProjectVersions(ctx context.Context) (map[string][]string, error)
	ProjectDetail(ctx context.Context, normalized string) (*domain.ProjectDetail, error)
}

// Service renders index documents, caching the fully rendered result.
type Service struct {
	store Store
	cache *cache.Cache
}

func NewService(store Store, c *cache.Cache) *Service {
	return &Service{store: store, cache: c}
}

// Index returns the root index document in the requested format. A
// cache hit short-circuits the store entirely; a miss renders from a
// fresh query and stores the result.
func (s *Service) Index(ctx context.Context, format RenderFormat) (*cache.Document, error) {
	key := cache.IndexKey(RepositoryVersion, string(format))
	if doc := s.cached(ctx, key); doc != nil {
		return doc, nil
	}

	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	var body []byte
	if format == FormatHTML {
		body = RenderIndexHTML(projects)
	} else {
		versions, err := s.store.ListProjectVersions(ctx)
		if err != nil {
			return nil, fmt.Errorf("list project versions: %w", err)
		}
		body, err = RenderIndexJSON(projects, versions)
		if err != nil {
			return nil, err
		}
	}

	doc := cache.Document{ContentType: format.ContentType(), Body: body}
	s.put(ctx, key, doc)
	return &doc, nil
}

// Project returns a project page document. The name is normalized
// before lookup, so any spelling of the project name resolves.
func (s *Service) Project(ctx context.Context, name string, format RenderFormat) (*cache.Document, error) {
	normalized := pep503.Normalize(name)

	key := cache.ProjectKey(normalized, RepositoryVersion, string(format))
	if doc := s.cached(ctx, key); doc != nil {
		return doc, nil
	}

	detail, err := s.store.ProjectDetail(ctx, normalized)
	if err != nil {
		return nil, err
	}

	var body []byte
	if format == FormatHTML {
		body = RenderProjectHTML(detail)
	} else {
		body, err = RenderProjectJSON(detail)
		if err != nil {
			return nil, err
		}
	}

	doc := cache.Document{ContentType: format.ContentType(), Body: body}
	s.put(ctx, key, doc)
	return &doc, nil
}

// cached returns the cached document or nil. Cache failures are logged
// and treated as misses: the store is authoritative.
func (s *Service) cached(ctx context.Context, key string) *cache.Document {
	if s.cache == nil {
		return nil
	}
	doc, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Printf("[simple] cache get failed for %s: %v", key, err)
		return nil
	}
	if !ok {
		return nil
	}
	return doc
}

func (s *Service) put(ctx context.Context, key string, doc cache.Document) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, key, doc); err != nil {
		log.Printf("[simple] cache put failed for %s: %v", key, err)
	}
}
