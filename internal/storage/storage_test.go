package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/hostrate/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Disabled(t *testing.T) {
	for _, backend := range []string{"", config.BackendNone} {
		s, err := Open(context.Background(), config.StorageConfig{Backend: backend})
		assert.ErrorIs(t, err, ErrDisabled)
		assert.Nil(t, s)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Backend: "s3"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDisabled)
}

func TestNewMinioClient_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MinioConfig
		want string
	}{
		{name: "endpoint", cfg: config.MinioConfig{}, want: "minio endpoint is required"},
		{name: "keys", cfg: config.MinioConfig{Endpoint: "localhost:9000"}, want: "minio access key and secret key are required"},
		{name: "bucket", cfg: config.MinioConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}, want: "minio bucket is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMinioClient(tt.cfg)
			assert.EqualError(t, err, tt.want)
		})
	}
}

func TestNewMinioClient(t *testing.T) {
	client, err := NewMinioClient(config.MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "avatars",
	})
	require.NoError(t, err)
	assert.Equal(t, "avatars", NewStorage(client).Bucket())
}

func TestNewGCSClient_RequiresBucket(t *testing.T) {
	_, err := NewGCSClient(context.Background(), config.GCSConfig{})
	assert.EqualError(t, err, "gcs bucket is required")
}

type closeTracker struct {
	bucketErr error
	closed    int
}

func (c *closeTracker) EnsureBucket(context.Context) error { return c.bucketErr }
func (c *closeTracker) Put(context.Context, string, io.Reader, int64, string) error {
	return nil
}
func (c *closeTracker) Get(context.Context, string) (io.ReadCloser, error) {
	return nil, ErrObjectNotFound
}
func (c *closeTracker) Delete(context.Context, string) error { return nil }
func (c *closeTracker) Bucket() string                       { return "avatars" }
func (c *closeTracker) Close() error {
	c.closed++
	return nil
}

func TestStorage_CloseReleasesBackend(t *testing.T) {
	backend := &closeTracker{}
	require.NoError(t, NewStorage(backend).Close())
	assert.Equal(t, 1, backend.closed)
}

func TestMinioClient_Close(t *testing.T) {
	client, err := NewMinioClient(config.MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "avatars",
	})
	require.NoError(t, err)
	assert.NoError(t, NewStorage(client).Close())
}

func TestStorage_EnsureBucketErrorSurfaces(t *testing.T) {
	backend := &closeTracker{bucketErr: errors.New("forbidden")}
	err := NewStorage(backend).EnsureBucket(context.Background())
	assert.EqualError(t, err, "forbidden")
}
