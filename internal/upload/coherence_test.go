package upload

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sol-registry/sol-backend/internal/cache"
	"github.com/sol-registry/sol-backend/internal/index/domain"
	"github.com/sol-registry/sol-backend/internal/index/repository"
	"github.com/sol-registry/sol-backend/internal/simple"
)

// registryState backs both the read and write paths so a cached page
// can be checked against a subsequent upload.
type registryState struct {
	detail *domain.ProjectDetail
}

func (s *registryState) ListProjects(ctx context.Context) ([]domain.Project, error) {
	if s.detail == nil {
		return nil, nil
	}
	return []domain.Project{s.detail.Project}, nil
}

func (s *registryState) ListProjectVersions(ctx context.Context) (map[string][]string, error) {
	out := make(map[string][]string)
	if s.detail != nil {
		for _, rel := range s.detail.Releases {
			out[s.detail.Project.NormalizedName] = append(out[s.detail.Project.NormalizedName], rel.Version)
		}
	}
	return out, nil
}

func (s *registryState) ProjectDetail(ctx context.Context, normalized string) (*domain.ProjectDetail, error) {
	if s.detail == nil || s.detail.Project.NormalizedName != normalized {
		return nil, domain.NotFound("project not found: %s", normalized)
	}
	return s.detail, nil
}

func (s *registryState) CreateFile(ctx context.Context, p repository.CreateFileParams) (*repository.CreateFileResult, error) {
	created := s.detail == nil
	if created {
		s.detail = &domain.ProjectDetail{
			Project: domain.Project{ID: 1, Name: p.Name, NormalizedName: p.NormalizedName},
		}
	}
	s.detail.Releases = append(s.detail.Releases, domain.Release{Version: p.Version})
	f := domain.File{
		Filename:     p.Filename,
		Size:         p.Size,
		SHA256Digest: p.SHA256Digest,
		Path:         p.Path,
	}
	s.detail.Files = append(s.detail.Files, f)
	return &repository.CreateFileResult{File: f, ProjectCreated: created}, nil
}

func TestUploadInvalidatesCachedProjectPage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	docCache := cache.New(client, time.Minute)
	state := &registryState{}
	readSvc := simple.NewService(state, docCache)
	writeSvc := NewService(state, newFakeBlobs(), docCache)
	ctx := context.Background()

	req := wheelRequest()
	_, err := writeSvc.Upload(ctx, req)
	require.NoError(t, err)

	// Prime the cache with the one-file page.
	doc, err := readSvc.Project(ctx, "my-lib", simple.FormatJSON)
	require.NoError(t, err)
	assert.NotContains(t, string(doc.Body), "my_lib-2.0.0")

	req2 := wheelRequest()
	req2.Version = "2.0.0"
	req2.Filename = "my_lib-2.0.0-py3-none-any.whl"
	req2.Content = []byte("second wheel")
	_, err = writeSvc.Upload(ctx, req2)
	require.NoError(t, err)

	// The read after the write must never serve the pre-upload copy.
	doc, err = readSvc.Project(ctx, "my-lib", simple.FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, string(doc.Body), "my_lib-2.0.0-py3-none-any.whl")
}

func TestFirstUploadInvalidatesRootIndex(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	docCache := cache.New(client, time.Minute)
	state := &registryState{}
	readSvc := simple.NewService(state, docCache)
	writeSvc := NewService(state, newFakeBlobs(), docCache)
	ctx := context.Background()

	// Prime the empty index.
	doc, err := readSvc.Index(ctx, simple.FormatHTML)
	require.NoError(t, err)
	assert.NotContains(t, string(doc.Body), "my-lib")

	_, err = writeSvc.Upload(ctx, wheelRequest())
	require.NoError(t, err)

	doc, err = readSvc.Index(ctx, simple.FormatHTML)
	require.NoError(t, err)
	assert.Contains(t, string(doc.Body), "/simple/my-lib/")
}
