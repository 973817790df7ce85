// Package blob is the object-store boundary of the run: landing files,
// canonical outputs, error logs and the geocode master file move between the
// working directories and a bucket through a Store.
//
// Backends register a Factory under a kind ("s3", "minio", "local") from
// their init functions; callers open a Store with New.
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/zeebo/xxh3"
)

// Store is the minimal object-store contract.
type Store interface {
	// Put uploads the file at localPath to key.
	Put(ctx context.Context, key, localPath string) error
	// Get downloads key to localPath, creating parent directories.
	Get(ctx context.Context, key, localPath string) error
	// List returns every object key under prefix, descending into
	// sub-prefixes.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Config selects and configures a backend. Fields a backend does not use
// are ignored.
type Config struct {
	Kind   string
	Bucket string

	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	SessionToken string
	RoleARN      string
	ExternalID   string
	UsePathStyle bool
	Secure       bool

	// Root is the base directory of the local backend.
	Root string
}

// Factory opens a Store for cfg.
type Factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Store using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Store, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported bucket.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// StorageError reports a failed object-store operation.
type StorageError struct {
	Op     string // put, get or list
	Bucket string
	Key    string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("blob: %s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ChecksumKey is the object metadata key holding the xxh3 digest of the
// uploaded file.
const ChecksumKey = "xxh3"

// Checksum returns the hex xxh3-64 digest of the file at path.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
