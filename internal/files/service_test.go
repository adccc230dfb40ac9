package files

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sol-registry/sol-backend/internal/index/domain"
)

type fakeStore struct {
	file *domain.File

	yankedFile    bool
	yankedRelease bool
	lastReason    string
	lastNormal    string
}

func (s *fakeStore) GetFileByLocation(ctx context.Context, normalized, version, filename string) (*domain.File, error) {
	s.lastNormal = normalized
	if s.file == nil || s.file.Filename != filename {
		return nil, domain.NotFound("file not found: %s/%s/%s", normalized, version, filename)
	}
	return s.file, nil
}

func (s *fakeStore) SetFileYanked(ctx context.Context, normalized, version, filename string, yanked bool, reason string) error {
	s.lastNormal = normalized
	s.yankedFile = yanked
	s.lastReason = reason
	return nil
}

func (s *fakeStore) SetReleaseYanked(ctx context.Context, normalized, version string, yanked bool, reason string) error {
	s.lastNormal = normalized
	s.yankedRelease = yanked
	s.lastReason = reason
	return nil
}

type fakeBlobs struct {
	blobs map[string][]byte
}

func (b *fakeBlobs) Get(ctx context.Context, hash string) ([]byte, string, error) {
	content, ok := b.blobs[hash]
	if !ok {
		return nil, "", domain.NotFound("blob not found: %s", hash)
	}
	return content, "application/octet-stream", nil
}

type fakeInvalidator struct {
	projects []string
	// failures makes the first n calls fail.
	failures int
	calls    int
}

func (i *fakeInvalidator) InvalidateProject(ctx context.Context, normalized string) error {
	i.calls++
	if i.calls <= i.failures {
		return errors.New("connection reset")
	}
	i.projects = append(i.projects, normalized)
	return nil
}

func testFile() *domain.File {
	return &domain.File{
		ID:             100,
		Filename:       "my_lib-1.0.0-py3-none-any.whl",
		Size:           11,
		SHA256Digest:   "contenthash",
		Path:           "my-lib/1.0.0/my_lib-1.0.0-py3-none-any.whl",
		ContentType:    "application/octet-stream",
		HasMetadata:    true,
		MetadataSHA256: "metahash",
		HasSignature:   true,
	}
}

func testService() (*Service, *fakeStore, *fakeInvalidator) {
	store := &fakeStore{file: testFile()}
	blobs := &fakeBlobs{blobs: map[string][]byte{
		"contenthash":     []byte("wheel bytes"),
		"metahash":        []byte("Metadata-Version: 2.1"),
		"contenthash.asc": []byte("signature"),
	}}
	inv := &fakeInvalidator{}
	return NewService(store, blobs, inv), store, inv
}

func TestDownload(t *testing.T) {
	svc, store, _ := testService()

	dl, err := svc.Download(context.Background(), "My_Lib", "1.0.0", "my_lib-1.0.0-py3-none-any.whl")
	require.NoError(t, err)
	assert.Equal(t, []byte("wheel bytes"), dl.Content)
	assert.Equal(t, "contenthash", dl.SHA256Digest)
	assert.Equal(t, "my-lib", store.lastNormal, "lookup must normalize the project name")
}

func TestDownloadUnknownFile(t *testing.T) {
	svc, _, _ := testService()

	_, err := svc.Download(context.Background(), "my-lib", "1.0.0", "nope.whl")
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestMetadataSidecar(t *testing.T) {
	svc, _, _ := testService()

	dl, err := svc.Metadata(context.Background(), "my-lib", "1.0.0", "my_lib-1.0.0-py3-none-any.whl")
	require.NoError(t, err)
	assert.Equal(t, []byte("Metadata-Version: 2.1"), dl.Content)
	assert.Equal(t, "text/plain", dl.ContentType)
	assert.Equal(t, "my_lib-1.0.0-py3-none-any.whl.metadata", dl.Filename)
}

func TestMetadataMissing(t *testing.T) {
	svc, store, _ := testService()
	store.file.HasMetadata = false

	_, err := svc.Metadata(context.Background(), "my-lib", "1.0.0", "my_lib-1.0.0-py3-none-any.whl")
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestMetadataAdvertisedButBlobGone(t *testing.T) {
	svc, _, _ := testService()
	svc.blobs.(*fakeBlobs).blobs = map[string][]byte{"contenthash": []byte("wheel bytes")}

	_, err := svc.Metadata(context.Background(), "my-lib", "1.0.0", "my_lib-1.0.0-py3-none-any.whl")
	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
}

func TestSignatureSidecar(t *testing.T) {
	svc, _, _ := testService()

	dl, err := svc.Signature(context.Background(), "my-lib", "1.0.0", "my_lib-1.0.0-py3-none-any.whl")
	require.NoError(t, err)
	assert.Equal(t, []byte("signature"), dl.Content)
	assert.Equal(t, "application/pgp-signature", dl.ContentType)
}

func TestYankFileInvalidatesCache(t *testing.T) {
	svc, store, inv := testService()

	err := svc.YankFile(context.Background(), "My_Lib", "1.0.0", "my_lib-1.0.0-py3-none-any.whl", true, "security issue")
	require.NoError(t, err)
	assert.True(t, store.yankedFile)
	assert.Equal(t, "security issue", store.lastReason)
	assert.Equal(t, []string{"my-lib"}, inv.projects)
}

func TestYankRetriesFailedInvalidation(t *testing.T) {
	store := &fakeStore{file: testFile()}
	inv := &fakeInvalidator{failures: 1}
	svc := NewService(store, &fakeBlobs{}, inv)

	err := svc.YankFile(context.Background(), "my-lib", "1.0.0", "my_lib-1.0.0-py3-none-any.whl", true, "security issue")
	require.NoError(t, err)
	assert.Equal(t, 2, inv.calls, "a failed invalidation is retried once")
	assert.Equal(t, []string{"my-lib"}, inv.projects)
}

func TestYankRelease(t *testing.T) {
	svc, store, inv := testService()

	err := svc.YankRelease(context.Background(), "my-lib", "1.0.0", true, "broken upload")
	require.NoError(t, err)
	assert.True(t, store.yankedRelease)
	assert.Equal(t, []string{"my-lib"}, inv.projects)
}
