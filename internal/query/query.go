// Package query holds the query-string helpers for the statistical query
// service: parameter merging, the select projection, geography code sets,
// and the count/page variants of a dataset URL.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Service parameter names.
const (
	ParamSelect                = "select"
	ParamGeography             = "geography"
	ParamRecordOffset          = "RecordOffset"
	ParamRecordLimit           = "RecordLimit"
	ParamExcludeColumnHeadings = "ExcludeColumnHeadings"

	// RangeSep separates the bounds of an inclusive code range ("a...b").
	RangeSep = "..."
)

// Merge returns rawURL with params merged into its query string. Existing
// parameters are kept; a key present in params replaces the existing value.
func Merge(rawURL string, params map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("query: parse %q: %w", rawURL, err)
	}
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return "", fmt.Errorf("query: parse query of %q: %w", rawURL, err)
	}
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Param returns the comma-separated values of the first occurrence of name
// in rawURL's query string. It errors when the parameter is absent.
func Param(rawURL, name string) ([]string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("query: parse %q: %w", rawURL, err)
	}
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, fmt.Errorf("query: parse query of %q: %w", rawURL, err)
	}
	vs, ok := q[name]
	if !ok || len(vs) == 0 {
		return nil, fmt.Errorf("query: %q has no %s parameter", rawURL, name)
	}
	return strings.Split(vs[0], ","), nil
}

// LandingHeader derives the landing file header from the select projection:
// the service answers with the selected column names in upper case.
func LandingHeader(rawURL string) ([]string, error) {
	cols, err := Param(rawURL, ParamSelect)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = strings.ToUpper(c)
	}
	return out, nil
}

// CountURL returns the count-only variant of rawURL: a record_count
// projection limited to one row and no header line.
func CountURL(rawURL string) (string, error) {
	return Merge(rawURL, map[string]string{
		ParamSelect:                "record_count",
		ParamRecordLimit:           "1",
		ParamExcludeColumnHeadings: "true",
	})
}

// PageURL returns rawURL restricted to limit records starting at offset.
func PageURL(rawURL string, offset, limit int) (string, error) {
	return Merge(rawURL, map[string]string{
		ParamRecordOffset: strconv.Itoa(offset),
		ParamRecordLimit:  strconv.Itoa(limit),
	})
}

// CodeSet expands the named parameter of rawURL into the set of codes it
// requests. Entries are single codes or inclusive ranges "a...b".
func CodeSet(rawURL, name string) (map[int64]struct{}, error) {
	entries, err := Param(rawURL, name)
	if err != nil {
		return nil, err
	}
	set := make(map[int64]struct{})
	for _, e := range entries {
		lo, hi, err := parseRange(e)
		if err != nil {
			return nil, err
		}
		for c := lo; c <= hi; c++ {
			set[c] = struct{}{}
		}
	}
	return set, nil
}

func parseRange(e string) (int64, int64, error) {
	bounds := strings.Split(e, RangeSep)
	switch len(bounds) {
	case 1:
		c, err := strconv.ParseInt(bounds[0], 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("query: bad code %q: %w", e, err)
		}
		return c, c, nil
	case 2:
		lo, err := strconv.ParseInt(bounds[0], 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("query: bad range start %q: %w", e, err)
		}
		hi, err := strconv.ParseInt(bounds[1], 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("query: bad range end %q: %w", e, err)
		}
		if hi < lo {
			return 0, 0, fmt.Errorf("query: empty range %q", e)
		}
		return lo, hi, nil
	default:
		return 0, 0, fmt.Errorf("query: malformed code entry %q", e)
	}
}
