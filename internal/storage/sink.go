package storage

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"kpietl/internal/logger"
	"kpietl/internal/metrics"
	"kpietl/internal/transformer"
)

// SinkConfig describes where one dataset's rows go.
type SinkConfig struct {
	// Kind selects the DDL builder when AutoCreate is set.
	Kind string
	// Table is the target table; Header is the dataset's output header.
	Table  string
	Header []string

	BatchSize  int
	AutoCreate bool

	Job     string
	Dataset string
}

// Sink streams canonical rows into a Repository on a background loader.
// Put is called from a single producer; Close waits for the loader.
type Sink struct {
	in   chan []any
	done chan struct{}
	once sync.Once

	table string
	total int64
	err   error
}

var errSinkClosed = errors.New("sink closed")

// OpenSink starts the loader goroutine. With AutoCreate, the table is
// created from the header and the first batch before the first copy.
func OpenSink(ctx context.Context, repo Repository, cfg SinkConfig, log *logger.Logger) *Sink {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5000
	}
	if log == nil {
		log = logger.NewNop()
	}
	s := &Sink{
		in:    make(chan []any, cfg.BatchSize),
		done:  make(chan struct{}),
		table: cfg.Table,
	}

	columns := make([]string, len(cfg.Header))
	for i, h := range cfg.Header {
		columns[i] = ColumnName(h)
	}

	created := !cfg.AutoCreate
	copyFn := func(ctx context.Context, cols []string, rows [][]any) (int64, error) {
		if !created {
			td := InferTable(cfg.Table, cfg.Header, rows)
			if err := EnsureTable(ctx, cfg.Kind, repo, td); err != nil {
				return 0, err
			}
			log.Info("table ensured", zap.String("table", cfg.Table))
			created = true
		}
		n, err := repo.CopyFrom(ctx, cols, rows)
		if err == nil {
			metrics.RecordBatches(cfg.Job, cfg.Dataset, 1)
			metrics.RecordRow(cfg.Job, cfg.Dataset, "loaded", n)
		}
		return n, err
	}

	go func() {
		defer close(s.done)
		s.total, s.err = LoadBatches(ctx, columns, s.in, cfg.BatchSize, copyFn, log)
		if s.err != nil {
			s.err = &LoadError{Table: cfg.Table, Err: s.err}
		}
	}()
	return s
}

// Put queues one row. It fails once the loader has stopped.
func (s *Sink) Put(ctx context.Context, row transformer.Row) error {
	select {
	case <-s.done:
		return s.stopped()
	default:
	}
	select {
	case s.in <- []any(row):
		return nil
	case <-s.done:
		return s.stopped()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sink) stopped() error {
	if s.err != nil {
		return s.err
	}
	return &LoadError{Table: s.table, Err: errSinkClosed}
}

// Close flushes the last batch, waits for the loader and reports the number
// of rows written.
func (s *Sink) Close() (int64, error) {
	s.once.Do(func() { close(s.in) })
	<-s.done
	return s.total, s.err
}
