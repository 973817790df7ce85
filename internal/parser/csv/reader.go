// Package csv reads landing files and writes canonical output files.
//
// The reader streams rows without buffering the file. Fields are returned
// exactly as read, untrimmed. The writer quotes every non-numeric field.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNoHeader is returned for an input without a header line.
var ErrNoHeader = errors.New("csv: no header line")

// Reader streams the rows of a headed CSV file.
type Reader struct {
	cr     *csv.Reader
	header []string
	index  map[string]int
	closer io.Closer
}

// Open opens path and reads its header line.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.closer = f
	return r, nil
}

// NewReader reads the header line from r.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(stripBOM(r))
	// Width is checked by the caller against the header.
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return &Reader{cr: cr, header: header, index: idx}, nil
}

// Header returns the header line.
func (r *Reader) Header() []string { return r.header }

// Index returns the position of the named column.
func (r *Reader) Index(name string) (int, bool) {
	i, ok := r.index[name]
	return i, ok
}

// Next returns the next row and its 1-based line number in the file. It
// returns io.EOF after the last row.
func (r *Reader) Next() ([]string, int, error) {
	rec, err := r.cr.Read()
	if err != nil {
		return nil, 0, err
	}
	line, _ := r.cr.FieldPos(0)
	return rec, line, nil
}

// Close closes the underlying file, if the Reader opened one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Project reorders rec from the file's column order into the order of want,
// matching columns by name. Missing columns are reported as an error.
func (r *Reader) Project(rec []string, want []string) ([]string, error) {
	out := make([]string, len(want))
	for i, name := range want {
		j, ok := r.index[name]
		if !ok {
			return nil, fmt.Errorf("csv: column %q not in header", name)
		}
		if j >= len(rec) {
			return nil, fmt.Errorf("csv: row has %d fields, column %q is field %d", len(rec), name, j+1)
		}
		out[i] = rec[j]
	}
	return out, nil
}
