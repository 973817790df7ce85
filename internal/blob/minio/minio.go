// Package minio implements blob.Store on minio-go for S3-compatible
// servers.
package minio

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"kpietl/internal/blob"
)

// API is the subset of *minio.Client the store uses.
type API interface {
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	FGetObject(ctx context.Context, bucket, object, filePath string, opts minio.GetObjectOptions) error
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// newMinioClientFn builds the client; tests replace it.
var newMinioClientFn = newClient

// Store is a MinIO-backed blob.Store bound to one bucket.
type Store struct {
	api    API
	bucket string
}

// New returns a Store over api for bucket.
func New(api API, bucket string) *Store { return &Store{api: api, bucket: bucket} }

func init() {
	blob.Register("minio", func(ctx context.Context, cfg blob.Config) (blob.Store, error) {
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("minio: bucket is required")
		}
		api, err := newMinioClientFn(cfg)
		if err != nil {
			return nil, err
		}
		return New(api, cfg.Bucket), nil
	})
}

func newClient(c blob.Config) (API, error) {
	if c.Endpoint == "" {
		return nil, fmt.Errorf("minio: endpoint is required")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return nil, fmt.Errorf("minio: access key and secret key are required")
	}
	client, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, c.SessionToken),
		Secure: c.Secure,
		Region: c.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: create client: %w", err)
	}
	return client, nil
}

// Put uploads localPath with its xxh3 digest as user metadata.
func (s *Store) Put(ctx context.Context, key, localPath string) error {
	sum, err := blob.Checksum(localPath)
	if err != nil {
		return &blob.StorageError{Op: "put", Bucket: s.bucket, Key: key, Err: err}
	}
	_, err = s.api.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{
		UserMetadata: map[string]string{blob.ChecksumKey: sum},
	})
	if err != nil {
		return &blob.StorageError{Op: "put", Bucket: s.bucket, Key: key, Err: err}
	}
	return nil
}

// Get downloads key to localPath.
func (s *Store) Get(ctx context.Context, key, localPath string) error {
	if err := s.api.FGetObject(ctx, s.bucket, key, localPath, minio.GetObjectOptions{}); err != nil {
		return &blob.StorageError{Op: "get", Bucket: s.bucket, Key: key, Err: err}
	}
	return nil
}

// List returns every key under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var keys []string
	for obj := range s.api.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, &blob.StorageError{Op: "list", Bucket: s.bucket, Key: prefix, Err: obj.Err}
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}
