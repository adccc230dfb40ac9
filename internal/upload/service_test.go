package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sol-registry/sol-backend/internal/index/domain"
	"github.com/sol-registry/sol-backend/internal/index/repository"
)

type fakeBlobs struct {
	puts map[string][]byte
	err  error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{puts: make(map[string][]byte)}
}

func (b *fakeBlobs) Put(ctx context.Context, hash string, content []byte, contentType string) error {
	if b.err != nil {
		return b.err
	}
	b.puts[hash] = content
	return nil
}

type fakeRepo struct {
	params         *repository.CreateFileParams
	projectCreated bool
	existing       bool
	err            error
}

func (r *fakeRepo) CreateFile(ctx context.Context, p repository.CreateFileParams) (*repository.CreateFileResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.params = &p
	return &repository.CreateFileResult{
		File: domain.File{
			Filename:     p.Filename,
			Size:         p.Size,
			SHA256Digest: p.SHA256Digest,
			MD5Digest:    p.MD5Digest,
			Path:         p.Path,
			ContentType:  p.ContentType,
		},
		ProjectCreated: r.projectCreated,
		Existing:       r.existing,
	}, nil
}

type fakeInvalidator struct {
	projects []string
	index    int
	// failures makes the first n InvalidateProject calls fail.
	failures     int
	projectCalls int
}

func (i *fakeInvalidator) InvalidateProject(ctx context.Context, normalized string) error {
	i.projectCalls++
	if i.projectCalls <= i.failures {
		return errors.New("connection reset")
	}
	i.projects = append(i.projects, normalized)
	return nil
}

func (i *fakeInvalidator) InvalidateIndex(ctx context.Context) error {
	i.index++
	return nil
}

func wheelRequest() Request {
	return Request{
		Name:     "My_Lib",
		Version:  "1.0.0",
		Filename: "my_lib-1.0.0-py3-none-any.whl",
		Content:  []byte("wheel bytes"),
	}
}

func TestUploadStoresBlobAndMetadata(t *testing.T) {
	blobs := newFakeBlobs()
	repo := &fakeRepo{}
	inv := &fakeInvalidator{}
	svc := NewService(repo, blobs, inv)

	res, err := svc.Upload(context.Background(), wheelRequest())
	require.NoError(t, err)
	assert.False(t, res.Existing)

	sum := sha256.Sum256([]byte("wheel bytes"))
	digest := hex.EncodeToString(sum[:])
	assert.Contains(t, blobs.puts, digest)

	require.NotNil(t, repo.params)
	assert.Equal(t, "my-lib", repo.params.NormalizedName)
	assert.Equal(t, digest, repo.params.SHA256Digest)
	assert.Equal(t, "my-lib/1.0.0/my_lib-1.0.0-py3-none-any.whl", repo.params.Path)
	assert.Equal(t, domain.PackageTypeWheel, repo.params.PackageType)
	assert.Equal(t, int64(len("wheel bytes")), repo.params.Size)

	assert.Equal(t, []string{"my-lib"}, inv.projects)
	assert.Zero(t, inv.index, "existing project must not flush the root index")
}

func TestUploadNewProjectInvalidatesIndex(t *testing.T) {
	inv := &fakeInvalidator{}
	svc := NewService(&fakeRepo{projectCreated: true}, newFakeBlobs(), inv)

	_, err := svc.Upload(context.Background(), wheelRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, inv.index)
}

func TestUploadSidecars(t *testing.T) {
	blobs := newFakeBlobs()
	repo := &fakeRepo{}
	svc := NewService(repo, blobs, &fakeInvalidator{})

	req := wheelRequest()
	req.Metadata = []byte("Metadata-Version: 2.1")
	req.Signature = []byte("-----BEGIN PGP SIGNATURE-----")

	_, err := svc.Upload(context.Background(), req)
	require.NoError(t, err)

	metaSum := sha256.Sum256(req.Metadata)
	metaDigest := hex.EncodeToString(metaSum[:])
	assert.Contains(t, blobs.puts, metaDigest)

	contentSum := sha256.Sum256(req.Content)
	assert.Contains(t, blobs.puts, hex.EncodeToString(contentSum[:])+".asc")

	assert.True(t, repo.params.HasMetadata)
	assert.True(t, repo.params.HasSignature)
	assert.Equal(t, metaDigest, repo.params.MetadataSHA256)
}

func TestUploadVerifiesDeclaredDigests(t *testing.T) {
	svc := NewService(&fakeRepo{}, newFakeBlobs(), &fakeInvalidator{})

	req := wheelRequest()
	req.SHA256Digest = "0000000000000000000000000000000000000000000000000000000000000000"
	_, err := svc.Upload(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Contains(t, err.Error(), "SHA256 checksum mismatch")

	req = wheelRequest()
	req.MD5Digest = "00000000000000000000000000000000"
	_, err = svc.Upload(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MD5 checksum mismatch")
}

func TestUploadRejectsMismatchedFilename(t *testing.T) {
	svc := NewService(&fakeRepo{}, newFakeBlobs(), &fakeInvalidator{})

	req := wheelRequest()
	req.Name = "other-package"
	_, err := svc.Upload(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	req = wheelRequest()
	req.Version = "2.0.0"
	_, err = svc.Upload(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestUploadIdempotentReplay(t *testing.T) {
	inv := &fakeInvalidator{}
	svc := NewService(&fakeRepo{existing: true}, newFakeBlobs(), inv)

	res, err := svc.Upload(context.Background(), wheelRequest())
	require.NoError(t, err)
	assert.True(t, res.Existing)
	// The cache is still flushed; the replay may follow a partial failure.
	assert.Equal(t, []string{"my-lib"}, inv.projects)
}

func TestUploadRetriesFailedInvalidation(t *testing.T) {
	inv := &fakeInvalidator{failures: 1}
	svc := NewService(&fakeRepo{}, newFakeBlobs(), inv)

	res, err := svc.Upload(context.Background(), wheelRequest())
	require.NoError(t, err)
	assert.False(t, res.Existing)
	assert.Equal(t, 2, inv.projectCalls, "a failed invalidation is retried once")
	assert.Equal(t, []string{"my-lib"}, inv.projects)
}

func TestUploadBlobFailureSkipsMetadata(t *testing.T) {
	blobs := newFakeBlobs()
	blobs.err = domain.Upstream("blob store put", errors.New("connection refused"))
	repo := &fakeRepo{}
	svc := NewService(repo, blobs, &fakeInvalidator{})

	_, err := svc.Upload(context.Background(), wheelRequest())
	require.Error(t, err)
	assert.Equal(t, domain.KindUpstream, domain.KindOf(err))
	assert.Nil(t, repo.params, "metadata must not be written when the blob store fails")
}

func TestUploadConflictPropagates(t *testing.T) {
	repo := &fakeRepo{err: domain.Conflict("file %s already exists with different content", "my_lib-1.0.0-py3-none-any.whl")}
	svc := NewService(repo, newFakeBlobs(), &fakeInvalidator{})

	_, err := svc.Upload(context.Background(), wheelRequest())
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}
