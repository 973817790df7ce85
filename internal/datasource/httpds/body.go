package httpds

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReadBody GETs url and returns at most n bytes of a 2xx response body.
//
// The count probe uses this: the service answers with a single number, and a
// misbehaving endpoint (an HTML error page, a full data dump) must not be
// read into memory unbounded.
func (c *Client) ReadBody(ctx context.Context, url string, n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("httpds: n must be > 0")
	}

	resp, err := c.Get(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	lr := &io.LimitedReader{R: resp.Body, N: int64(n)}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(lr); err != nil {
		return nil, fmt.Errorf("httpds: read body: %w", err)
	}
	return buf.Bytes(), nil
}

// Download GETs url and streams a 2xx response body to dst, creating parent
// directories as needed. The bytes are written exactly as received.
//
// On failure the partially written file is removed so a later reassembly
// never folds in a truncated part.
func (c *Client) Download(ctx context.Context, url, dst string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("httpds: create dir for %s: %w", dst, err)
	}

	resp, err := c.Get(ctx, url, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	f, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("httpds: create %s: %w", dst, err)
	}

	n, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(dst)
		if copyErr != nil {
			return n, fmt.Errorf("httpds: write %s: %w", dst, copyErr)
		}
		return n, fmt.Errorf("httpds: close %s: %w", dst, closeErr)
	}
	return n, nil
}
