// Package geocode answers membership and name lookups against the geography
// reference mapping.
package geocode

import (
	"errors"
	"fmt"
	"io"
	"sync"

	kcsv "kpietl/internal/parser/csv"
)

// Level of an administrative area.
type Level string

const (
	LocalAuthority Level = "LocalAuthority"
	County         Level = "County"
	Region         Level = "Region"
	National3      Level = "National3"
	National2      Level = "National2"
	National1      Level = "National1"
)

// columns lists the code and name columns per level, in lookup priority.
var columns = []struct {
	level      Level
	code, name string
}{
	{LocalAuthority, "LocalAuthority_Code", "LocalAuthority"},
	{County, "County_code", "County"},
	{Region, "Region_Code", "Region"},
	{National3, "National3_Code", "National3"},
	{National2, "National2_Code", "National2"},
	{National1, "National1_Code", "National1"},
}

// Area is a lookup result.
type Area struct {
	Level Level
	Name  string
}

type mapping [12]string // code, name per level in columns order

// Table is the reference mapping. It loads its file on first use and is
// read-only afterwards; it is safe for concurrent use.
type Table struct {
	path string

	once  sync.Once
	err   error
	rows  []mapping
	codes map[string]struct{}
}

// NewTable returns a Table backed by the CSV file at path. Nothing is read
// until the first query.
func NewTable(path string) *Table {
	return &Table{path: path}
}

// Load reads the file if it has not been read yet.
func (t *Table) Load() error {
	t.once.Do(func() { t.err = t.load() })
	return t.err
}

func (t *Table) load() error {
	r, err := kcsv.Open(t.path)
	if err != nil {
		return fmt.Errorf("geocode: open %s: %w", t.path, err)
	}
	defer r.Close()

	var idx [12]int
	for i, c := range columns {
		ci, ok := r.Index(c.code)
		if !ok {
			return fmt.Errorf("geocode: %s: missing column %s", t.path, c.code)
		}
		ni, ok := r.Index(c.name)
		if !ok {
			return fmt.Errorf("geocode: %s: missing column %s", t.path, c.name)
		}
		idx[2*i], idx[2*i+1] = ci, ni
	}

	codes := make(map[string]struct{})
	var rows []mapping
	for {
		rec, line, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("geocode: %s: %w", t.path, err)
		}
		var m mapping
		for k, j := range idx {
			if j >= len(rec) {
				return fmt.Errorf("geocode: %s line %d: %d fields, want > %d", t.path, line, len(rec), j)
			}
			m[k] = rec[j]
		}
		for i := range columns {
			if m[2*i] != "" {
				codes[m[2*i]] = struct{}{}
			}
		}
		rows = append(rows, m)
	}
	t.rows, t.codes = rows, codes
	return nil
}

// Contains reports whether code appears in any of the six code columns.
func (t *Table) Contains(code string) (bool, error) {
	if err := t.Load(); err != nil {
		return false, err
	}
	_, ok := t.codes[code]
	return ok, nil
}

// Lookup scans the mapping rows in file order and returns the level and
// name of the first column matching code, trying the levels from
// LocalAuthority up to National1 on each row.
func (t *Table) Lookup(code string) (Area, bool, error) {
	if err := t.Load(); err != nil {
		return Area{}, false, err
	}
	for _, m := range t.rows {
		for i, c := range columns {
			if m[2*i] == code {
				return Area{Level: c.level, Name: m[2*i+1]}, true, nil
			}
		}
	}
	return Area{}, false, nil
}

// Len is the number of distinct codes.
func (t *Table) Len() (int, error) {
	if err := t.Load(); err != nil {
		return 0, err
	}
	return len(t.codes), nil
}
