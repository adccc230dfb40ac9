// Package files serves distribution downloads and per-file management:
// download by project/version/filename, sidecar retrieval, flat info
// records and yank toggling.
package files

import (
	"context"
	"log"
	"strings"

	"github.com/sol-registry/sol-backend/internal/index/domain"
	"github.com/sol-registry/sol-backend/internal/pep503"
)

// Store is the metadata lookup slice the read path needs.
type Store interface {
	GetFileByLocation(ctx context.Context, normalized, version, filename string) (*domain.File, error)
	SetFileYanked(ctx context.Context, normalized, version, filename string, yanked bool, reason string) error
	SetReleaseYanked(ctx context.Context, normalized, version string, yanked bool, reason string) error
}

// BlobStore resolves content by hash.
type BlobStore interface {
	Get(ctx context.Context, hash string) ([]byte, string, error)
}

// Invalidator flushes cached index documents after a yank change.
type Invalidator interface {
	InvalidateProject(ctx context.Context, normalized string) error
}

type Service struct {
	store Store
	blobs BlobStore
	cache Invalidator
}

func NewService(store Store, blobs BlobStore, cache Invalidator) *Service {
	return &Service{store: store, blobs: blobs, cache: cache}
}

// Download is a resolved distribution ready to stream to the client.
type Download struct {
	Filename     string
	Content      []byte
	ContentType  string
	SHA256Digest string
	Size         int64
}

// Download fetches the distribution at project/version/filename.
func (s *Service) Download(ctx context.Context, project, version, filename string) (*Download, error) {
	f, err := s.lookup(ctx, project, version, filename)
	if err != nil {
		return nil, err
	}

	content, contentType, err := s.blobs.Get(ctx, f.SHA256Digest)
	if err != nil {
		return nil, err
	}
	if f.ContentType != "" {
		contentType = f.ContentType
	}
	return &Download{
		Filename:     f.Filename,
		Content:      content,
		ContentType:  contentType,
		SHA256Digest: f.SHA256Digest,
		Size:         int64(len(content)),
	}, nil
}

// Metadata fetches the PEP 658 metadata sidecar for a distribution.
func (s *Service) Metadata(ctx context.Context, project, version, filename string) (*Download, error) {
	f, err := s.lookup(ctx, project, version, filename)
	if err != nil {
		return nil, err
	}
	if !f.HasMetadata || f.MetadataSHA256 == "" {
		return nil, domain.NotFound("metadata not available for %s", filename)
	}

	content, _, err := s.blobs.Get(ctx, f.MetadataSHA256)
	if err != nil {
		// The record advertises metadata; a missing blob is our
		// inconsistency, not the client's.
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, domain.Internal("metadata blob missing for "+filename, err)
		}
		return nil, err
	}
	return &Download{
		Filename:     f.Filename + ".metadata",
		Content:      content,
		ContentType:  "text/plain",
		SHA256Digest: f.MetadataSHA256,
		Size:         int64(len(content)),
	}, nil
}

// Signature fetches the detached GPG signature for a distribution.
func (s *Service) Signature(ctx context.Context, project, version, filename string) (*Download, error) {
	f, err := s.lookup(ctx, project, version, filename)
	if err != nil {
		return nil, err
	}
	if !f.HasSignature {
		return nil, domain.NotFound("signature not available for %s", filename)
	}

	content, _, err := s.blobs.Get(ctx, f.SHA256Digest+".asc")
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, domain.Internal("signature blob missing for "+filename, err)
		}
		return nil, err
	}
	return &Download{
		Filename:    f.Filename + ".asc",
		Content:     content,
		ContentType: "application/pgp-signature",
		Size:        int64(len(content)),
	}, nil
}

// Info returns the file's metadata record without touching the blob
// store.
func (s *Service) Info(ctx context.Context, project, version, filename string) (*domain.File, error) {
	return s.lookup(ctx, project, version, filename)
}

// YankFile marks or unmarks a single file. Yanked files remain listed
// in index documents.
func (s *Service) YankFile(ctx context.Context, project, version, filename string, yanked bool, reason string) error {
	normalized := pep503.Normalize(project)
	if err := s.store.SetFileYanked(ctx, normalized, version, filename, yanked, reason); err != nil {
		return err
	}
	s.invalidate(ctx, normalized)
	return nil
}

// YankRelease marks or unmarks a whole release.
func (s *Service) YankRelease(ctx context.Context, project, version string, yanked bool, reason string) error {
	normalized := pep503.Normalize(project)
	if err := s.store.SetReleaseYanked(ctx, normalized, version, yanked, reason); err != nil {
		return err
	}
	s.invalidate(ctx, normalized)
	return nil
}

func (s *Service) lookup(ctx context.Context, project, version, filename string) (*domain.File, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, domain.Validation("missing filename")
	}
	return s.store.GetFileByLocation(ctx, pep503.Normalize(project), version, filename)
}

// invalidate retries once; the yank is already committed, so a second
// failure degrades to the cache's TTL backstop.
func (s *Service) invalidate(ctx context.Context, normalized string) {
	if s.cache == nil {
		return
	}
	err := s.cache.InvalidateProject(ctx, normalized)
	if err != nil {
		err = s.cache.InvalidateProject(ctx, normalized)
	}
	if err != nil {
		log.Printf("[files] cache invalidation failed for %s, stale entries expire by TTL: %v", normalized, err)
	}
}
