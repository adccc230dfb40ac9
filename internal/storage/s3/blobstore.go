// Package s3 implements the content-addressed blob store on S3 (or any
// S3-compatible endpoint such as MinIO). Objects are keyed by the
// sha256 of their content, so re-uploading identical bytes is a no-op
// and orphaned blobs are harmless.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/sol-registry/sol-backend/internal/index/domain"
)

type Store struct {
	client *s3.Client
	bucket string
	putTO  time.Duration
}

func New(client *s3.Client, bucket string, putTO time.Duration) *Store {
	if putTO <= 0 {
		putTO = 30 * time.Second
	}
	return &Store{client: client, bucket: bucket, putTO: putTO}
}

func blobKey(hash string) string {
	return "sha256/" + hash
}

// Put stores content under its sha256. The call carries a bounded
// timeout; a timeout is an upstream failure and the caller must not
// commit metadata for the blob.
func (s *Store) Put(ctx context.Context, hash string, content []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, s.putTO)
	defer cancel()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(blobKey(hash)),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
		Metadata:    map[string]string{"sha256": hash},
	})
	if err != nil {
		return domain.Upstream(fmt.Sprintf("blob store put %s", hash), err)
	}
	return nil
}

// Get retrieves a blob and its content type by hash.
func (s *Store) Get(ctx context.Context, hash string) ([]byte, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(blobKey(hash)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, "", domain.NotFound("blob not found: %s", hash)
		}
		return nil, "", domain.Upstream(fmt.Sprintf("blob store get %s", hash), err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", domain.Upstream(fmt.Sprintf("blob store read %s", hash), err)
	}

	contentType := "application/octet-stream"
	if out.ContentType != nil && *out.ContentType != "" {
		contentType = *out.ContentType
	}
	return content, contentType, nil
}

// Exists reports whether a blob with the given hash is stored.
func (s *Store) Exists(ctx context.Context, hash string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(blobKey(hash)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, domain.Upstream(fmt.Sprintf("blob store head %s", hash), err)
	}
	return true, nil
}
