package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"kpietl/internal/logger"
	"kpietl/internal/metrics"
)

// Syncer moves whole directories between the working tree and a Store.
// Failures of single objects are logged as StorageError and the remaining
// objects are still transferred; the returned error joins them.
type Syncer struct {
	Store  Store
	Bucket string
	Log    *logger.Logger
	Job    string
}

func (s *Syncer) log() *logger.Logger {
	if s.Log == nil {
		return logger.NewNop()
	}
	return s.Log
}

// UploadDir uploads every regular file under dir to prefix/<relative path>.
// A missing dir uploads nothing.
func (s *Syncer) UploadDir(ctx context.Context, dir, prefix string) (int, error) {
	start := time.Now()
	var (
		n    int
		errs []error
	)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == dir {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := path.Join(prefix, filepath.ToSlash(rel))
		if err := s.Put(ctx, key, p); err != nil {
			errs = append(errs, err)
			return nil
		}
		n++
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}
	joined := errors.Join(errs...)
	metrics.RecordStep(s.Job, "upload", joined, time.Since(start))
	s.log().Info("upload finished", zap.String("dir", dir), zap.String("prefix", prefix), zap.Int("objects", n), zap.Int("failed", len(errs)))
	return n, joined
}

// DownloadPrefix downloads every object under prefix into dir, keeping the
// key layout below prefix.
func (s *Syncer) DownloadPrefix(ctx context.Context, prefix, dir string) (int, error) {
	start := time.Now()
	keys, err := s.Store.List(ctx, prefix)
	if err != nil {
		serr := &StorageError{Op: "list", Bucket: s.Bucket, Key: prefix, Err: err}
		s.log().Error("Could not list bucket prefix", zap.Error(serr))
		metrics.RecordStep(s.Job, "download_bucket", serr, time.Since(start))
		return 0, serr
	}

	var (
		n    int
		errs []error
	)
	base := strings.TrimSuffix(prefix, "/")
	for _, key := range keys {
		if strings.HasSuffix(key, "/") {
			continue
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(key, base), "/")
		local, err := localPath(dir, rel)
		if err != nil {
			serr := &StorageError{Op: "get", Bucket: s.Bucket, Key: key, Err: err}
			s.log().Error("Could not download object", zap.Error(serr))
			errs = append(errs, serr)
			continue
		}
		if err := s.Get(ctx, key, local); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	joined := errors.Join(errs...)
	metrics.RecordStep(s.Job, "download_bucket", joined, time.Since(start))
	s.log().Info("bucket download finished", zap.String("prefix", prefix), zap.String("dir", dir), zap.Int("objects", n), zap.Int("failed", len(errs)))
	return n, joined
}

// Put uploads one file, logging a failure as StorageError.
func (s *Syncer) Put(ctx context.Context, key, localPath string) error {
	if err := s.Store.Put(ctx, key, localPath); err != nil {
		serr := asStorageError("put", s.Bucket, key, err)
		s.log().Error("Could not upload file", zap.String("file", localPath), zap.Error(serr))
		return serr
	}
	s.log().Debug("uploaded", zap.String("key", key))
	return nil
}

// Get downloads one object, logging a failure as StorageError.
func (s *Syncer) Get(ctx context.Context, key, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o777); err != nil {
		serr := &StorageError{Op: "get", Bucket: s.Bucket, Key: key, Err: err}
		s.log().Error("Could not download object", zap.Error(serr))
		return serr
	}
	if err := s.Store.Get(ctx, key, localPath); err != nil {
		serr := asStorageError("get", s.Bucket, key, err)
		s.log().Error("Could not download object", zap.String("file", localPath), zap.Error(serr))
		return serr
	}
	s.log().Debug("downloaded", zap.String("key", key))
	return nil
}

func asStorageError(op, bucket, key string, err error) *StorageError {
	var serr *StorageError
	if errors.As(err, &serr) {
		return serr
	}
	return &StorageError{Op: op, Bucket: bucket, Key: key, Err: err}
}

// localPath joins rel under dir and refuses keys that would escape it.
func localPath(dir, rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("empty relative key")
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("key %q escapes %s", rel, dir)
	}
	return filepath.Join(dir, clean), nil
}
