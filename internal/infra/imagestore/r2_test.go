package imagestore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"
)

type stubObjectClient struct {
	exists      bool
	existsErr   error
	makeErr     error
	existsCalls int
	makeCalls   int
	puts        []minio.PutObjectOptions
	putBodies   [][]byte
	removed     []string
}

func (s *stubObjectClient) BucketExists(context.Context, string) (bool, error) {
	s.existsCalls++
	return s.exists, s.existsErr
}

func (s *stubObjectClient) MakeBucket(context.Context, string, minio.MakeBucketOptions) error {
	s.makeCalls++
	return s.makeErr
}

func (s *stubObjectClient) PutObject(_ context.Context, _, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	s.puts = append(s.puts, opts)
	s.putBodies = append(s.putBodies, data)
	return minio.UploadInfo{Key: object, Size: size, ETag: "etag-1"}, nil
}

func (s *stubObjectClient) GetObject(context.Context, string, string, minio.GetObjectOptions) (*minio.Object, error) {
	return nil, errors.New("not used")
}

func (s *stubObjectClient) RemoveObject(_ context.Context, _, object string, _ minio.RemoveObjectOptions) error {
	s.removed = append(s.removed, object)
	return nil
}

func newTestR2(client objectClient) *R2Storage {
	return newR2Storage(client, "stylecast", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestR2PutChecksBucketOnce(t *testing.T) {
	client := &stubObjectClient{exists: true}
	store := newTestR2(client)
	ctx := context.Background()

	obj, err := store.Put(ctx, "sessions/a/reference", []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)
	require.Equal(t, "sessions/a/reference", obj.Key)
	require.Equal(t, int64(4), obj.Size)
	require.Equal(t, "etag-1", obj.ETag)

	_, err = store.Put(ctx, "sessions/a/tryon", []byte("png"), "image/png")
	require.NoError(t, err)

	require.Equal(t, 1, client.existsCalls)
	require.Zero(t, client.makeCalls)
	require.Equal(t, []byte("jpeg"), client.putBodies[0])
}

func TestR2PutCreatesMissingBucket(t *testing.T) {
	client := &stubObjectClient{}
	store := newTestR2(client)

	_, err := store.Put(context.Background(), "sessions/a/tryon", []byte("png"), "image/png")
	require.NoError(t, err)
	require.Equal(t, 1, client.makeCalls)
	require.True(t, store.bucketReady.Load())
}

func TestR2PutRetriesBucketAfterFailure(t *testing.T) {
	client := &stubObjectClient{makeErr: errors.New("access denied")}
	store := newTestR2(client)
	ctx := context.Background()

	_, err := store.Put(ctx, "sessions/a/tryon", []byte("png"), "image/png")
	require.Error(t, err)
	require.False(t, store.bucketReady.Load())
	require.Empty(t, client.puts)

	client.makeErr = nil
	_, err = store.Put(ctx, "sessions/a/tryon", []byte("png"), "image/png")
	require.NoError(t, err)
	require.Equal(t, 2, client.makeCalls)
	require.True(t, store.bucketReady.Load())
}

func TestR2PutSetsCachePolicyPerKind(t *testing.T) {
	client := &stubObjectClient{exists: true}
	store := newTestR2(client)
	ctx := context.Background()

	_, err := store.Put(ctx, "sessions/a/reference", []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)
	_, err = store.Put(ctx, "sessions/a/tryon", []byte("png"), "image/png")
	require.NoError(t, err)

	require.Equal(t, "private, no-store", client.puts[0].CacheControl)
	require.Equal(t, "reference", client.puts[0].UserMetadata["kind"])
	require.Equal(t, "image/jpeg", client.puts[0].ContentType)
	require.Equal(t, "private, max-age=60", client.puts[1].CacheControl)
	require.Equal(t, "tryon", client.puts[1].UserMetadata["kind"])
}

func TestR2DeleteRemovesObject(t *testing.T) {
	client := &stubObjectClient{}
	store := newTestR2(client)

	require.NoError(t, store.Delete(context.Background(), "sessions/a/tryon"))
	require.Equal(t, []string{"sessions/a/tryon"}, client.removed)
}
