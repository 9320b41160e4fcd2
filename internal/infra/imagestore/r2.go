package imagestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yanqian/stylecast/internal/domain/session"
)

// objectClient is the subset of *minio.Client the storage needs.
type objectClient interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (*minio.Object, error)
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
}

// R2Storage stores images in Cloudflare R2 (or any S3-compatible service).
type R2Storage struct {
	client      objectClient
	bucket      string
	logger      *slog.Logger
	bucketReady atomic.Bool
}

// NewR2Storage constructs the storage adapter.
func NewR2Storage(endpoint, accessKey, secretKey, bucket, region string, logger *slog.Logger) (*R2Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	useSSL := !strings.HasPrefix(strings.ToLower(strings.TrimSpace(endpoint)), "http://")
	client, err := minio.New(sanitizeEndpoint(endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       useSSL,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init r2 client: %w", err)
	}
	return newR2Storage(client, bucket, logger), nil
}

func newR2Storage(client objectClient, bucket string, logger *slog.Logger) *R2Storage {
	return &R2Storage{client: client, bucket: bucket, logger: logger.With("component", "imagestore.r2")}
}

func (s *R2Storage) ensureBucket(ctx context.Context) error {
	if s.bucketReady.Load() {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err == nil && exists {
		s.bucketReady.Store(true)
		return nil
	}
	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
		return err
	}
	s.logger.Info("bucket ready", "bucket", s.bucket)
	s.bucketReady.Store(true)
	return nil
}

// Put uploads an image.
func (s *R2Storage) Put(ctx context.Context, key string, data []byte, mimeType string) (session.StoredObject, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return session.StoredObject{}, err
	}
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:      mimeType,
		CacheControl:     cacheControlFor(key),
		UserMetadata:     map[string]string{"kind": kindOf(key)},
		DisableMultipart: len(data) < 5*1024*1024,
	})
	if err != nil {
		return session.StoredObject{}, err
	}
	return session.StoredObject{
		Key:      key,
		Size:     info.Size,
		MimeType: mimeType,
		ETag:     info.ETag,
	}, nil
}

// Get fetches an image for reading.
func (s *R2Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller reads.
	if _, statErr := obj.Stat(); statErr != nil {
		_ = obj.Close()
		return nil, statErr
	}
	return obj, nil
}

// Delete removes an image. Missing keys are not an error.
func (s *R2Storage) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

var _ session.ImageStore = (*R2Storage)(nil)

// cacheControlFor keeps user photos out of every cache. Try-on renders are
// replaced on each attempt, so they may only be cached briefly.
func cacheControlFor(key string) string {
	if kindOf(key) == kindReference {
		return "private, no-store"
	}
	return "private, max-age=60"
}

const (
	kindReference = "reference"
	kindTryOn     = "tryon"
)

func kindOf(key string) string {
	if strings.HasSuffix(key, "/"+kindReference) {
		return kindReference
	}
	return kindTryOn
}

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	host, _, _ := strings.Cut(raw, "/")
	return host
}
