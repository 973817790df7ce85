package minio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"

	"kpietl/internal/blob"
)

type fakeAPI struct {
	objects map[string]string // key -> local source path
	meta    map[string]map[string]string
	listErr error
	opts    minio.ListObjectsOptions
}

func (f *fakeAPI) FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.objects[object] = filePath
	f.meta[object] = opts.UserMetadata
	return minio.UploadInfo{Bucket: bucket, Key: object}, nil
}

func (f *fakeAPI) FGetObject(ctx context.Context, bucket, object, filePath string, opts minio.GetObjectOptions) error {
	src, ok := f.objects[object]
	if !ok {
		return errors.New("The specified key does not exist.")
	}
	b, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, b, 0o644)
}

func (f *fakeAPI) ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	f.opts = opts
	ch := make(chan minio.ObjectInfo, len(f.objects)+1)
	if f.listErr != nil {
		ch <- minio.ObjectInfo{Err: f.listErr}
	}
	for k := range f.objects {
		if strings.HasPrefix(k, opts.Prefix) {
			ch <- minio.ObjectInfo{Key: k}
		}
	}
	close(ch)
	return ch
}

func newFake() *fakeAPI {
	return &fakeAPI{objects: map[string]string{}, meta: map[string]map[string]string{}}
}

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()
	api := newFake()
	s := New(api, "ops")
	dir := t.TempDir()
	src := filepath.Join(dir, "a.csv")
	if err := os.WriteFile(src, []byte("a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := s.Put(context.Background(), "landing/empl/a.csv", src); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if api.meta["landing/empl/a.csv"][blob.ChecksumKey] == "" {
		t.Fatalf("checksum metadata missing")
	}
	keys, err := s.List(context.Background(), "landing/")
	if err != nil || !reflect.DeepEqual(keys, []string{"landing/empl/a.csv"}) {
		t.Fatalf("List=%v,%v", keys, err)
	}
	if !api.opts.Recursive {
		t.Fatalf("listing is not recursive")
	}
	dst := filepath.Join(dir, "b.csv")
	if err := s.Get(context.Background(), "landing/empl/a.csv", dst); err != nil {
		t.Fatalf("Get: %v", err)
	}
}

func TestStore_Errors(t *testing.T) {
	t.Parallel()
	api := newFake()
	api.listErr = errors.New("Access Denied")
	s := New(api, "ops")

	var serr *blob.StorageError
	if _, err := s.List(context.Background(), "x"); !errors.As(err, &serr) || serr.Op != "list" {
		t.Fatalf("List err=%v", err)
	}
	if err := s.Get(context.Background(), "missing", filepath.Join(t.TempDir(), "m")); !errors.As(err, &serr) || serr.Op != "get" {
		t.Fatalf("Get err=%v", err)
	}
	if err := s.Put(context.Background(), "k", filepath.Join(t.TempDir(), "absent")); !errors.As(err, &serr) || serr.Op != "put" {
		t.Fatalf("Put err=%v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()
	if _, err := newClient(blob.Config{}); err == nil {
		t.Fatalf("missing endpoint accepted")
	}
	if _, err := newClient(blob.Config{Endpoint: "localhost:9000"}); err == nil {
		t.Fatalf("missing keys accepted")
	}
	api, err := newClient(blob.Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	if err != nil || api == nil {
		t.Fatalf("newClient=%v,%v", api, err)
	}
}
