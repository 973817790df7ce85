// Package s3 implements blob.Store on Amazon S3 with aws-sdk-go-v2.
//
// Credentials come from the default chain unless static keys are configured;
// RoleARN switches to an STS assume-role provider. Endpoint and UsePathStyle
// point the client at S3-compatible services.
package s3

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"kpietl/internal/blob"
)

// API is the subset of *s3.Client the store uses.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// newS3ClientFn builds the SDK client; tests replace it.
var newS3ClientFn = newClient

// Store is an S3-backed blob.Store bound to one bucket.
type Store struct {
	api    API
	bucket string
}

// New returns a Store over api for bucket.
func New(api API, bucket string) *Store { return &Store{api: api, bucket: bucket} }

func init() {
	blob.Register("s3", func(ctx context.Context, cfg blob.Config) (blob.Store, error) {
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("s3: bucket is required")
		}
		api, err := newS3ClientFn(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return New(api, cfg.Bucket), nil
	})
}

func newClient(ctx context.Context, c blob.Config) (API, error) {
	if c.Region == "" {
		return nil, fmt.Errorf("s3: region is required")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.AccessKey != "" && c.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, c.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load AWS config: %w", err)
	}
	if c.RoleARN != "" {
		provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(awsCfg), c.RoleARN, func(o *stscreds.AssumeRoleOptions) {
			if c.ExternalID != "" {
				o.ExternalID = aws.String(c.ExternalID)
			}
		})
		awsCfg.Credentials = aws.NewCredentialsCache(provider)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
		o.UsePathStyle = c.UsePathStyle
	}), nil
}

// Put uploads localPath with its xxh3 digest as object metadata.
func (s *Store) Put(ctx context.Context, key, localPath string) error {
	sum, err := blob.Checksum(localPath)
	if err != nil {
		return &blob.StorageError{Op: "put", Bucket: s.bucket, Key: key, Err: err}
	}
	f, err := os.Open(localPath)
	if err != nil {
		return &blob.StorageError{Op: "put", Bucket: s.bucket, Key: key, Err: err}
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return &blob.StorageError{Op: "put", Bucket: s.bucket, Key: key, Err: err}
	}

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(fi.Size()),
		ContentType:   aws.String(contentType(key)),
		Metadata:      map[string]string{blob.ChecksumKey: sum},
	})
	if err != nil {
		return &blob.StorageError{Op: "put", Bucket: s.bucket, Key: key, Err: err}
	}
	return nil
}

// Get streams key into localPath through a temporary file.
func (s *Store) Get(ctx context.Context, key, localPath string) error {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return &blob.StorageError{Op: "get", Bucket: s.bucket, Key: key, Err: err}
	}
	defer out.Body.Close()

	if err := writeFile(localPath, out.Body); err != nil {
		return &blob.StorageError{Op: "get", Bucket: s.bucket, Key: key, Err: err}
	}
	return nil
}

// List pages through prefix with a "/" delimiter and descends into each
// common prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	if err := s.list(ctx, prefix, &keys); err != nil {
		return nil, &blob.StorageError{Op: "list", Bucket: s.bucket, Key: prefix, Err: err}
	}
	return keys, nil
}

func (s *Store) list(ctx context.Context, prefix string, keys *[]string) error {
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	var subs []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, obj := range page.Contents {
			*keys = append(*keys, aws.ToString(obj.Key))
		}
		for _, cp := range page.CommonPrefixes {
			subs = append(subs, aws.ToString(cp.Prefix))
		}
	}
	for _, sub := range subs {
		if err := s.list(ctx, sub, keys); err != nil {
			return err
		}
	}
	return nil
}

func contentType(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".csv":
		return "text/csv"
	case ".log":
		return "text/plain"
	}
	return "application/octet-stream"
}

func writeFile(path string, r io.Reader) error {
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
