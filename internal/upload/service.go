// Package upload implements the write path: validate, hash and persist
// an uploaded distribution plus its metadata in one atomic unit, then
// invalidate the affected cache entries.
package upload

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/sol-registry/sol-backend/internal/index/domain"
	"github.com/sol-registry/sol-backend/internal/index/repository"
	"github.com/sol-registry/sol-backend/internal/pep503"
)

// BlobStore is the content store collaborator. Put is idempotent for
// identical bytes under the same hash.
type BlobStore interface {
	Put(ctx context.Context, hash string, content []byte, contentType string) error
}

// Store is the slice of the metadata store the write path needs.
type Store interface {
	CreateFile(ctx context.Context, p repository.CreateFileParams) (*repository.CreateFileResult, error)
}

// Invalidator removes cached documents made stale by a write.
type Invalidator interface {
	InvalidateProject(ctx context.Context, normalized string) error
	InvalidateIndex(ctx context.Context) error
}

type Service struct {
	store Store
	blobs BlobStore
	cache Invalidator
}

func NewService(store Store, blobs BlobStore, cache Invalidator) *Service {
	return &Service{store: store, blobs: blobs, cache: cache}
}

// Request is one upload: the distribution file plus declared metadata
// and optional sidecar blobs.
type Request struct {
	Name        string
	Version     string
	Filename    string
	Content     []byte
	ContentType string

	// Declared digests; when present they must match the content.
	MD5Digest    string
	SHA256Digest string

	RequiresPython string
	Summary        string
	Description    string
	Author         string
	AuthorEmail    string
	License        string
	Keywords       string
	HomePage       string

	Metadata  []byte // PEP 658 metadata sidecar
	Signature []byte // detached GPG signature

	UploadedBy string
}

type Result struct {
	File domain.File
	// Existing is true when identical content was already registered
	// under this filename and the upload was an idempotent no-op.
	Existing bool
}

// Upload runs the pipeline. The metadata transaction commits only
// after the blob store confirmed the content; a failure at any step
// leaves no partial metadata. Orphaned blobs are tolerated.
func (s *Service) Upload(ctx context.Context, req Request) (*Result, error) {
	if !ValidPackageName(req.Name) {
		return nil, domain.Validation("invalid package name: %s", req.Name)
	}
	if !ValidVersion(req.Version) {
		return nil, domain.Validation("invalid version: %s", req.Version)
	}

	parsed, err := ParseFilename(req.Filename)
	if err != nil {
		return nil, err
	}

	normalized := pep503.Normalize(req.Name)
	if pep503.Normalize(parsed.Name) != normalized {
		return nil, domain.Validation("filename %s does not match package name %s", req.Filename, req.Name)
	}
	if parsed.Version != req.Version {
		return nil, domain.Validation("filename %s does not match version %s", req.Filename, req.Version)
	}

	sum := sha256.Sum256(req.Content)
	sha256Digest := hex.EncodeToString(sum[:])
	md5Sum := md5.Sum(req.Content)
	md5Digest := hex.EncodeToString(md5Sum[:])

	if req.SHA256Digest != "" && !strings.EqualFold(req.SHA256Digest, sha256Digest) {
		return nil, domain.Validation("SHA256 checksum mismatch")
	}
	if req.MD5Digest != "" && !strings.EqualFold(req.MD5Digest, md5Digest) {
		return nil, domain.Validation("MD5 checksum mismatch")
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = ContentTypeFor(req.Filename)
	}

	// Content goes to the blob store first; the metadata row is the
	// source of truth and is only committed after a confirmed store.
	if err := s.blobs.Put(ctx, sha256Digest, req.Content, contentType); err != nil {
		return nil, err
	}

	var metadataSHA256 string
	if len(req.Metadata) > 0 {
		metaSum := sha256.Sum256(req.Metadata)
		metadataSHA256 = hex.EncodeToString(metaSum[:])
		if err := s.blobs.Put(ctx, metadataSHA256, req.Metadata, "text/plain"); err != nil {
			return nil, err
		}
	}

	if len(req.Signature) > 0 {
		// The signature rides along under the content digest so it can
		// be resolved without its own metadata column.
		if err := s.blobs.Put(ctx, sha256Digest+".asc", req.Signature, "application/pgp-signature"); err != nil {
			return nil, err
		}
	}

	res, err := s.store.CreateFile(ctx, repository.CreateFileParams{
		Name:           req.Name,
		NormalizedName: normalized,
		Description:    req.Description,

		Version:        req.Version,
		RequiresPython: req.RequiresPython,
		IsPrerelease:   isPrerelease(req.Version),
		Summary:        req.Summary,
		Author:         req.Author,
		AuthorEmail:    req.AuthorEmail,
		License:        req.License,
		Keywords:       req.Keywords,
		HomePage:       req.HomePage,

		Filename:       req.Filename,
		Size:           int64(len(req.Content)),
		MD5Digest:      md5Digest,
		SHA256Digest:   sha256Digest,
		UploadedBy:     req.UploadedBy,
		Path:           fmt.Sprintf("%s/%s/%s", normalized, req.Version, req.Filename),
		ContentType:    contentType,
		PackageType:    parsed.PackageType,
		PythonVersion:  parsed.PythonVersion,
		HasSignature:   len(req.Signature) > 0,
		HasMetadata:    len(req.Metadata) > 0,
		MetadataSHA256: metadataSHA256,
	})
	if err != nil {
		return nil, err
	}

	// Invalidate after the commit so a read racing this upload never
	// keeps a pre-write document alive past the write's success.
	if s.cache != nil {
		invalidate(func() error { return s.cache.InvalidateProject(ctx, normalized) },
			"[upload] cache invalidation failed for "+normalized)
		if res.ProjectCreated {
			invalidate(func() error { return s.cache.InvalidateIndex(ctx) },
				"[upload] index cache invalidation failed")
		}
	}

	return &Result{File: res.File, Existing: res.Existing}, nil
}

// invalidate retries a failed invalidation once. The metadata write is
// already committed, so a second failure degrades to the cache's TTL
// backstop instead of failing the request.
func invalidate(fn func() error, msg string) {
	err := fn()
	if err != nil {
		err = fn()
	}
	if err != nil {
		log.Printf("%s, stale entries expire by TTL: %v", msg, err)
	}
}

// Alpha/beta/rc/dev markers per PEP 440 pre-release segments.
var prereleasePattern = regexp.MustCompile(`(?i)(a|b|rc|alpha|beta|c|pre|preview|dev)[0-9]*$`)

func isPrerelease(version string) bool {
	return prereleasePattern.MatchString(version)
}
