// Package local implements a blob.Store on a directory tree. Keys map to
// paths below Root. Useful for development runs and tests.
package local

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"kpietl/internal/blob"
)

// Store keeps objects as files under root.
type Store struct{ root string }

// New returns a Store rooted at root, creating it if needed.
func New(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("local: root must not be empty")
	}
	if err := os.MkdirAll(root, 0o777); err != nil {
		return nil, fmt.Errorf("local: create root: %w", err)
	}
	return &Store{root: root}, nil
}

func init() {
	blob.Register("local", func(ctx context.Context, cfg blob.Config) (blob.Store, error) {
		root := cfg.Root
		if cfg.Bucket != "" {
			root = filepath.Join(root, cfg.Bucket)
		}
		return New(root)
	})
}

func (s *Store) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(key, "/")))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("local: invalid key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

// Put copies localPath to key.
func (s *Store) Put(ctx context.Context, key, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o777); err != nil {
		return err
	}
	return copyFile(localPath, dst)
}

// Get copies key to localPath.
func (s *Store) Get(ctx context.Context, key, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o777); err != nil {
		return err
	}
	return copyFile(src, localPath)
}

// List walks the directory for prefix and returns slash-separated keys in
// lexical order. A missing prefix lists nothing.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := s.root
	if p := strings.Trim(prefix, "/"); p != "" {
		var err error
		if dir, err = s.path(p); err != nil {
			return nil, err
		}
	}
	var keys []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == dir {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("local: list %s: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
