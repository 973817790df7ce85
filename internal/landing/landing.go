// Package landing validates landing files and lists them in processing order.
package landing

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"

	kcsv "kpietl/internal/parser/csv"
)

// ValidationError flags a landing file whose header does not match the
// dataset contract or which holds no data rows.
type ValidationError struct {
	File string
	Msg  string
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid file %s: %s: %v", e.File, e.Msg, e.Err)
	}
	return fmt.Sprintf("invalid file %s: %s", e.File, e.Msg)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Report describes a landing file that passed validation.
type Report struct {
	Path        string
	Rows        int
	Fingerprint string // xxh3-64 of the file bytes, hex
}

// Validate checks that path's header is set-equal to want and that at least
// one data row follows it.
func Validate(path string, want []string) (Report, error) {
	name := filepath.Base(path)
	f, err := os.Open(path)
	if err != nil {
		return Report{}, &ValidationError{File: name, Msg: "cannot open", Err: err}
	}
	defer f.Close()

	h := xxh3.New()
	r, err := kcsv.NewReader(io.TeeReader(f, h))
	if err != nil {
		return Report{}, &ValidationError{File: name, Msg: "cannot read header", Err: err}
	}
	if missing, extra := diff(r.Header(), want); len(missing) > 0 || len(extra) > 0 {
		return Report{}, &ValidationError{
			File: name,
			Msg:  fmt.Sprintf("invalid headers: missing %v, unexpected %v", missing, extra),
		}
	}

	rows := 0
	for {
		_, _, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Report{}, &ValidationError{File: name, Msg: fmt.Sprintf("unreadable after %d rows", rows), Err: err}
		}
		rows++
	}
	if rows == 0 {
		return Report{}, &ValidationError{File: name, Msg: "file has no rows"}
	}
	return Report{Path: path, Rows: rows, Fingerprint: fmt.Sprintf("%016x", h.Sum64())}, nil
}

// Fingerprint hashes a whole file with xxh3-64.
func Fingerprint(path string) (string, error) {
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

// diff compares header sets.
func diff(got, want []string) (missing, extra []string) {
	have := make(map[string]struct{}, len(got))
	for _, g := range got {
		have[g] = struct{}{}
	}
	exp := make(map[string]struct{}, len(want))
	for _, w := range want {
		exp[w] = struct{}{}
		if _, ok := have[w]; !ok {
			missing = append(missing, w)
		}
	}
	for _, g := range got {
		if _, ok := exp[g]; !ok {
			extra = append(extra, g)
		}
	}
	return missing, extra
}

// Files lists the regular files in dir whose names start with prefix and end
// with suffix, in natural order (digit runs compare numerically). A missing
// directory yields no files.
func Files(dir, prefix, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if !e.Type().IsRegular() || !strings.HasPrefix(n, prefix) || !strings.HasSuffix(n, suffix) {
			continue
		}
		names = append(names, n)
	}
	NaturalSort(names)
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(dir, n)
	}
	return out, nil
}

// Matching lists the files in the directory of path that share its stem and
// extension: landing_X.csv matches landing_X.csv and landing_X_part_2.csv.
func Matching(path string) ([]string, error) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	return Files(filepath.Dir(path), stem, ext)
}

// NaturalSort orders names so that digit runs compare by value and all other
// text compares by code point. Names that compare equal keep their order.
func NaturalSort(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return naturalCompare(names[i], names[j]) < 0
	})
}

// naturalCompare walks both names as alternating text and digit chunks,
// always starting with a text chunk that may be empty.
func naturalCompare(a, b string) int {
	for digits := false; ; digits = !digits {
		if a == "" || b == "" {
			return cmpInt(len(a), len(b))
		}
		ca, ra := nextChunk(a, digits)
		cb, rb := nextChunk(b, digits)
		var r int
		if digits {
			r = cmpDigits(ca, cb)
		} else {
			r = strings.Compare(ca, cb)
		}
		if r != 0 {
			return r
		}
		a, b = ra, rb
	}
}

// nextChunk splits off the leading run of s made of digits or non-digits.
func nextChunk(s string, digits bool) (chunk, rest string) {
	n := 0
	for n < len(s) && isDigit(s[n]) == digits {
		n++
	}
	return s[:n], s[n:]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// cmpDigits compares two digit runs by numeric value.
func cmpDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if r := cmpInt(len(a), len(b)); r != 0 {
		return r
	}
	return strings.Compare(a, b)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
