package download

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Reassemble concatenates parts, in the given order, into dst. The header
// line is kept from the first part present on disk only. Each part is removed once folded in.
// Missing parts (failed fetches) are skipped and reported by index.
func Reassemble(dst string, parts []string) (missing []int, err error) {
	out, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", dst, err)
	}
	w := bufio.NewWriter(out)

	var errs []error
	var last byte = '\n'
	wroteHeader := false
	for i, p := range parts {
		lb, ferr := foldPart(w, p, wroteHeader, last)
		if errors.Is(ferr, fs.ErrNotExist) {
			missing = append(missing, i)
			continue
		}
		last = lb
		wroteHeader = true
		if rmErr := os.Remove(p); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", p, rmErr))
		}
		if ferr != nil {
			errs = append(errs, ferr)
		}
	}

	if ferr := w.Flush(); ferr != nil {
		errs = append(errs, fmt.Errorf("flush %s: %w", dst, ferr))
	}
	if cerr := out.Close(); cerr != nil {
		errs = append(errs, fmt.Errorf("close %s: %w", dst, cerr))
	}
	return missing, errors.Join(errs...)
}

// foldPart copies one part into w, optionally dropping its first line. prev
// is the last byte already in w; the result is the new last byte.
func foldPart(w *bufio.Writer, path string, skipHeader bool, prev byte) (byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return prev, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	if skipHeader {
		if _, err := r.ReadString('\n'); err != nil {
			if err == io.EOF {
				return prev, nil
			}
			return prev, fmt.Errorf("read header of %s: %w", path, err)
		}
	}

	lastByte := prev
	if prev != '\n' {
		// Previous part ended without a newline.
		if _, err := r.Peek(1); err == nil {
			if err := w.WriteByte('\n'); err != nil {
				return prev, err
			}
			lastByte = '\n'
		}
	}

	buf := make([]byte, 32*1024)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return lastByte, fmt.Errorf("write %s: %w", path, werr)
			}
			lastByte = buf[n-1]
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return lastByte, fmt.Errorf("read %s: %w", path, rerr)
		}
	}
	return lastByte, nil
}
