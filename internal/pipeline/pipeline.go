// Package pipeline turns a dataset's landing files into its canonical output
// file.
//
// Processing is sequential: files in natural filename order, rows in file
// order. For each row the dedup key is taken from the raw landing values,
// duplicates are dropped, the rest are transformed and validated, and the
// accepted rows are written with their date formatted DD/MM/YYYY. A Summary
// counts every row read as accepted, duplicate or invalid.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"go.uber.org/zap"

	"kpietl/internal/dataset"
	"kpietl/internal/geocode"
	"kpietl/internal/landing"
	"kpietl/internal/logger"
	"kpietl/internal/metrics"
	kcsv "kpietl/internal/parser/csv"
	"kpietl/internal/transformer"
)

// Positions of the date and geography code in every canonical row.
const (
	dateCol = 0
	geoCol  = 1
)

// OutputDateLayout is the canonical date format (DD/MM/YYYY).
const OutputDateLayout = "02/01/2006"

// ProcessingError reports a landing file that could not be processed. Rows
// read before the failure stay counted; the next file is processed.
type ProcessingError struct {
	Dataset string
	File    string
	Err     error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("process %s: %s: %v", e.Dataset, e.File, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// Sink receives accepted canonical rows before the date is formatted.
type Sink interface {
	Put(ctx context.Context, row transformer.Row) error
}

// Processor runs the dedup/transform pipeline for one dataset at a time.
type Processor struct {
	LandingDir string
	ValidDir   string

	// Geo, when set, rejects rows whose geography code is not in the table.
	Geo *geocode.Table

	// UseCRLF terminates output records with \r\n.
	UseCRLF bool

	Log *logger.Logger
	Job string
}

// run is the state owned by one dataset run.
type run struct {
	d    dataset.Descriptor
	log  *logger.Logger
	keys *KeySet
	sum  *Summary
	w    *kcsv.Writer
	sink Sink

	parseErrs *errAgg
	misses    *errAgg
}

// Process runs d and reports its summary. The returned error is set only
// when the dataset as a whole could not run (no landing files, output not
// writable, geocode table unavailable, context canceled); per-file failures
// are logged as ProcessingError and skipped. sink may be nil.
func (p *Processor) Process(ctx context.Context, d dataset.Descriptor, sink Sink) (*Summary, error) {
	log := p.Log.WithDataset(d.Name)
	start := time.Now()

	sum, err := p.process(ctx, d, sink, log)
	metrics.RecordStep(p.Job, "process", err, time.Since(start))
	if sum != nil {
		metrics.RecordRow(p.Job, d.Name, "total", sum.Total)
		metrics.RecordRow(p.Job, d.Name, "accepted", sum.Accepted)
		metrics.RecordRow(p.Job, d.Name, "duplicate", sum.Duplicate)
		metrics.RecordRow(p.Job, d.Name, "rejected", sum.Invalid)
	}
	return sum, err
}

func (p *Processor) process(ctx context.Context, d dataset.Descriptor, sink Sink, log *logger.Logger) (*Summary, error) {
	files, err := landing.Files(d.LandingDir(p.LandingDir), "", "")
	if err != nil {
		return nil, fmt.Errorf("list landing files: %w", err)
	}
	if len(files) == 0 {
		return nil, &ProcessingError{Dataset: d.Name, File: d.LandingFile, Err: errors.New("no landing files")}
	}
	if p.Geo != nil {
		if err := p.Geo.Load(); err != nil {
			return nil, fmt.Errorf("geocode table: %w", err)
		}
	}

	outPath := d.ValidPath(p.ValidDir)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o777); err != nil {
		return nil, fmt.Errorf("create valid dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", d.ValidFile, err)
	}
	defer f.Close()

	w := kcsv.NewWriter(f)
	w.UseCRLF = p.UseCRLF
	if err := w.WriteHeader(d.OutputHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	st := &run{
		d:         d,
		log:       log,
		keys:      NewKeySet(d.KeyColumns),
		sum:       newSummary(d.Name, outPath),
		w:         w,
		sink:      sink,
		parseErrs: newErrAgg(3),
		misses:    newErrAgg(10),
	}

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return st.sum, err
		}
		log.Info(fmt.Sprintf("Processing file %s [%d of %d]", filepath.Base(path), i+1, len(files)))
		if err := p.processFile(ctx, path, st); err != nil {
			if ctx.Err() != nil {
				return st.sum, ctx.Err()
			}
			perr := &ProcessingError{Dataset: d.Name, File: filepath.Base(path), Err: err}
			log.Error("Could not process file", zap.String("file", filepath.Base(path)), zap.Error(perr))
		}
	}

	if err := w.Flush(); err != nil {
		return st.sum, fmt.Errorf("write %s: %w", d.ValidFile, err)
	}
	if err := f.Close(); err != nil {
		return st.sum, fmt.Errorf("close %s: %w", d.ValidFile, err)
	}

	st.sum.Report(log)
	st.parseErrs.log(log, "parse errors")
	st.misses.log(log, "classification misses")
	return st.sum, nil
}

func (p *Processor) processFile(ctx context.Context, path string, st *run) error {
	r, err := kcsv.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, name := range st.d.LandingHeader {
		if _, ok := r.Index(name); !ok {
			return fmt.Errorf("column %q not in header", name)
		}
	}
	width := len(r.Header())
	name := filepath.Base(path)
	rep := missReporter{agg: st.misses}

	for n := 0; ; n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		rec, line, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		st.sum.Total++

		if len(rec) != width {
			st.sum.Invalid++
			perr := &transformer.ParseError{Line: line, Msg: fmt.Sprintf("got %d columns, header has %d", len(rec), width)}
			st.parseErrs.add(name + ": " + perr.Error())
			continue
		}
		raw, err := r.Project(rec, st.d.LandingHeader)
		if err != nil {
			st.sum.Invalid++
			st.parseErrs.add(name + ": " + err.Error())
			continue
		}

		if !st.keys.Add(raw) {
			st.sum.Duplicate++
			continue
		}

		obs, err := transformer.Parse(st.d.Transform.Shape, st.d.LandingHeader, raw, line)
		if err != nil {
			st.sum.Invalid++
			st.parseErrs.add(name + ": " + err.Error())
			continue
		}
		row := st.d.Transform.Apply(obs, rep)
		if !p.valid(st.d, row) {
			st.sum.Invalid++
			continue
		}

		date, _ := row[dateCol].(time.Time)
		code, _ := row[geoCol].(string)
		st.sum.accept(date, code)

		if st.sink != nil {
			if err := st.sink.Put(ctx, slices.Clone(row)); err != nil {
				st.log.Warn("warehouse sink failed; continuing with file output only", zap.Error(err))
				st.sink = nil
			}
		}

		row[dateCol] = date.Format(OutputDateLayout)
		if err := st.w.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", st.d.ValidFile, err)
		}
	}
}

// valid reports whether every required column is truthy and, when a
// geocode table is set, the geography code is known.
func (p *Processor) valid(d dataset.Descriptor, row transformer.Row) bool {
	if len(row) <= geoCol {
		return false
	}
	for _, c := range d.RequiredColumns {
		if c >= len(row) || !transformer.Truthy(row[c]) {
			return false
		}
	}
	if _, ok := row[dateCol].(time.Time); !ok {
		return false
	}
	if p.Geo != nil {
		code, _ := row[geoCol].(string)
		ok, err := p.Geo.Contains(code)
		if err != nil || !ok {
			return false
		}
	}
	return true
}
