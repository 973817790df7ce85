// Package dataset resolves dataset declarations into Query Descriptors.
//
// A declaration (config.Dataset) carries a query template with placeholders:
//
//	{base_url}         the service base URL
//	{interval}         latestMINUS{q-1}-latest, q = run.quarters
//	{interval_claims}  latestMINUS{3q-1}-latest for monthly series
//	{geo:NAME}         a named geography code set (see Geography)
//
// Build expands the templates, derives the landing header from the select
// projection, converts the 1-based column lists to 0-based indices, and binds
// the named transform.
package dataset

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"kpietl/internal/config"
	"kpietl/internal/query"
	"kpietl/internal/transformer"
	"kpietl/internal/transformer/builtin"
)

// Descriptor is the immutable definition of one dataset. It is built once
// and shared read-only by every phase.
type Descriptor struct {
	Name string
	URL  string

	File        string
	Dir         string
	LandingFile string
	ValidFile   string

	LandingHeader []string
	OutputHeader  []string

	// KeyColumns index LandingHeader; RequiredColumns index OutputHeader.
	KeyColumns      []int
	RequiredColumns []int

	Transform transformer.Transform
}

// LandingDir is the directory holding the dataset's landing files.
func (d Descriptor) LandingDir(root string) string {
	return filepath.Join(root, d.Dir)
}

// LandingPath is the reassembled landing file.
func (d Descriptor) LandingPath(root string) string {
	return filepath.Join(root, d.Dir, d.LandingFile)
}

// ValidPath is the canonical output file.
func (d Descriptor) ValidPath(root string) string {
	return filepath.Join(root, d.Dir, d.ValidFile)
}

// Interval is the relative date expression covering the last q quarters.
func Interval(quarters int) string {
	if quarters < 1 {
		quarters = 1
	}
	return fmt.Sprintf("latestMINUS%d-latest", quarters-1)
}

// ClaimsInterval is Interval for monthly series.
func ClaimsInterval(quarters int) string {
	if quarters < 1 {
		quarters = 1
	}
	return fmt.Sprintf("latestMINUS%d-latest", 3*quarters-1)
}

// AppendExtIfMissing adds ".csv" to name when it has no extension.
func AppendExtIfMissing(name string) string {
	if filepath.Ext(name) == "" {
		return name + ".csv"
	}
	return name
}

// PartPath inserts the 1-based partition suffix before the extension:
// landing_X.csv, 0 -> landing_X_part_1.csv.
func PartPath(path string, index int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_part_%d%s", strings.TrimSuffix(path, ext), index+1, ext)
}

var placeholder = regexp.MustCompile(`\{([a-z_]+)(?::([A-Za-z_]+))?\}`)

// Expand substitutes the template placeholders.
func Expand(tmpl, baseURL string, quarters int) (string, error) {
	var firstErr error
	out := placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		sub := placeholder.FindStringSubmatch(m)
		switch sub[1] {
		case "base_url":
			return strings.TrimRight(baseURL, "/")
		case "interval":
			return Interval(quarters)
		case "interval_claims":
			return ClaimsInterval(quarters)
		case "geo":
			if codes, ok := Geography(sub[2]); ok {
				return codes
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("dataset: unknown geography %q", sub[2])
			}
		default:
			if firstErr == nil {
				firstErr = fmt.Errorf("dataset: unknown placeholder %s", m)
			}
		}
		return m
	})
	return out, firstErr
}

// Resolve builds the Descriptor for one declaration.
func Resolve(ds config.Dataset, baseURL string, quarters int) (Descriptor, error) {
	tr, ok := builtin.Lookup(ds.Transform)
	if !ok {
		return Descriptor{}, fmt.Errorf("dataset %s: unknown transform %q (have %s)",
			ds.Name, ds.Transform, strings.Join(builtin.Names(), ", "))
	}

	u, err := Expand(ds.URL, baseURL, quarters)
	if err != nil {
		return Descriptor{}, fmt.Errorf("dataset %s: %w", ds.Name, err)
	}
	landing, err := query.LandingHeader(u)
	if err != nil {
		return Descriptor{}, fmt.Errorf("dataset %s: %w", ds.Name, err)
	}
	if len(landing) < tr.Shape.Width() {
		return Descriptor{}, fmt.Errorf("dataset %s: transform %s reads %d columns, select has %d",
			ds.Name, tr.Name, tr.Shape.Width(), len(landing))
	}
	if len(ds.OutputHeader) != tr.Width {
		return Descriptor{}, fmt.Errorf("dataset %s: output header has %d columns, transform %s produces %d",
			ds.Name, len(ds.OutputHeader), tr.Name, tr.Width)
	}

	keys, err := zeroBased(ds.KeyColumns, len(landing))
	if err != nil {
		return Descriptor{}, fmt.Errorf("dataset %s: key columns: %w", ds.Name, err)
	}
	req, err := zeroBased(ds.RequiredColumns, len(ds.OutputHeader))
	if err != nil {
		return Descriptor{}, fmt.Errorf("dataset %s: required columns: %w", ds.Name, err)
	}

	landingFile := ds.LandingFile
	if landingFile == "" {
		landingFile = "landing_" + ds.File
	}
	validFile := ds.ValidFile
	if validFile == "" {
		validFile = "valid_" + ds.File
	}

	return Descriptor{
		Name:            ds.Name,
		URL:             u,
		File:            ds.File,
		Dir:             ds.Dir,
		LandingFile:     AppendExtIfMissing(landingFile),
		ValidFile:       AppendExtIfMissing(validFile),
		LandingHeader:   landing,
		OutputHeader:    append([]string(nil), ds.OutputHeader...),
		KeyColumns:      keys,
		RequiredColumns: req,
		Transform:       tr,
	}, nil
}

// Build resolves the configured datasets, or the built-in catalog when none
// are configured, filtered by cfg.Only.
func Build(cfg config.Config) ([]Descriptor, error) {
	decls := cfg.Datasets
	if len(decls) == 0 {
		decls = Builtins()
	}

	var only map[string]bool
	if len(cfg.Only) > 0 {
		only = make(map[string]bool, len(cfg.Only))
		for _, n := range cfg.Only {
			only[n] = false
		}
	}

	out := make([]Descriptor, 0, len(decls))
	for _, ds := range decls {
		if only != nil {
			if _, ok := only[ds.Name]; !ok {
				continue
			}
			only[ds.Name] = true
		}
		d, err := Resolve(ds, cfg.API.BaseURL, cfg.Run.Quarters)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	for _, n := range cfg.Only {
		if !only[n] {
			return nil, fmt.Errorf("dataset: only lists unknown dataset %q", n)
		}
	}
	return out, nil
}

func zeroBased(cols []int, width int) ([]int, error) {
	out := make([]int, len(cols))
	for i, c := range cols {
		if c < 1 || c > width {
			return nil, fmt.Errorf("column %d outside 1..%d", c, width)
		}
		out[i] = c - 1
	}
	return out, nil
}
