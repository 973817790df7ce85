// Package download implements the paginated concurrent download of dataset
// queries into landing files.
//
// For every dataset the engine probes the record count, plans the pages,
// and submits every page of every dataset to one shared worker pool. The
// last page of a dataset to finish folds the pages back together in index
// order.
package download

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"kpietl/internal/dataset"
	"kpietl/internal/logger"
	"kpietl/internal/metrics"
	"kpietl/internal/query"
	"kpietl/internal/workpool"
)

// Engine downloads datasets into a landing directory.
type Engine struct {
	Client           Client
	Pool             *workpool.Pool
	MaxPartitionSize int
	LandingDir       string
	Log              *logger.Logger
	// Job labels metrics.
	Job string
}

// Result summarizes one dataset's download.
type Result struct {
	Dataset string
	Total   int
	Parts   int
	Failed  int
	Err     error
}

type job struct {
	desc      dataset.Descriptor
	log       *logger.Logger
	parts     []Partition
	remaining atomic.Int32
	failed    atomic.Int32

	mu  sync.Mutex
	res Result
}

func (j *job) fail(err error) {
	j.mu.Lock()
	if j.res.Err == nil {
		j.res.Err = err
	}
	j.mu.Unlock()
}

// Run downloads all datasets. It returns after every page has completed or
// failed and every multi-page dataset has been reassembled. Failures are
// logged at error level and reported in the results; none stops the run.
func (e *Engine) Run(ctx context.Context, ds []dataset.Descriptor) []Result {
	jobs := make([]*job, len(ds))
	probes := make([]workpool.Task, len(ds))
	for i, d := range ds {
		j := &job{desc: d, log: e.Log.WithDataset(d.Name), res: Result{Dataset: d.Name}}
		jobs[i] = j
		probes[i] = func() error { return e.plan(ctx, j) }
	}
	_ = e.Pool.Run(probes)

	var fetches []workpool.Task
	for _, j := range jobs {
		j.remaining.Store(int32(len(j.parts)))
		for _, p := range j.parts {
			fetches = append(fetches, func() error { return e.fetch(ctx, j, p) })
		}
	}
	_ = e.Pool.Run(fetches)

	out := make([]Result, len(jobs))
	for i, j := range jobs {
		j.res.Failed = int(j.failed.Load())
		out[i] = j.res
	}
	return out
}

func (e *Engine) plan(ctx context.Context, j *job) error {
	d := j.desc
	if codes, err := query.CodeSet(d.URL, query.ParamGeography); err == nil {
		j.log.Debug("geography codes requested", zap.Int("codes", len(codes)))
	}

	start := time.Now()
	total, err := Prober{Client: e.Client}.Count(ctx, d.Name, d.URL)
	metrics.RecordStep(e.Job, "probe", err, time.Since(start))
	if err != nil {
		j.log.Error("probe failed; dataset skipped", zap.String("file", d.LandingFile), zap.Error(err))
		j.fail(err)
		return err
	}

	landing := d.LandingPath(e.LandingDir)
	parts, err := Plan(d.Name, d.URL, landing, total, e.MaxPartitionSize)
	if err != nil {
		j.log.Error("could not plan partitions", zap.String("file", d.LandingFile), zap.Error(err))
		j.fail(err)
		return err
	}
	j.res.Total = total
	j.res.Parts = len(parts)
	if len(parts) == 0 {
		j.log.Error("no records; nothing downloaded", zap.String("file", d.LandingFile))
		return nil
	}
	j.parts = parts
	return nil
}

func (e *Engine) fetch(ctx context.Context, j *job, p Partition) error {
	file := filepath.Base(p.Path)
	if p.Count == 1 {
		j.log.Info("Downloading "+file, zap.Int("records", p.Rows))
	} else {
		j.log.Info("Downloading "+file,
			zap.Int("records", p.Rows), zap.Int("part", p.Index+1), zap.Int("parts", p.Count))
	}

	start := time.Now()
	_, err := e.Client.Download(ctx, p.URL, p.Path)
	metrics.RecordStep(e.Job, "fetch", err, time.Since(start))
	if err != nil {
		ferr := &FetchError{Dataset: p.Dataset, File: file, Part: p.Index + 1, Parts: p.Count, Err: err}
		j.log.Error("download failed", zap.String("file", file), zap.Error(ferr))
		j.failed.Add(1)
		j.fail(ferr)
	}

	if j.remaining.Add(-1) == 0 && p.Count > 1 {
		e.reassemble(j)
	}
	return err
}

func (e *Engine) reassemble(j *job) {
	landing := j.desc.LandingPath(e.LandingDir)
	paths := make([]string, len(j.parts))
	for i, p := range j.parts {
		paths[i] = p.Path
	}
	j.log.Info("Creating "+filepath.Base(landing)+" by concatenating parts", zap.Int("parts", len(paths)))

	start := time.Now()
	missing, err := Reassemble(landing, paths)
	metrics.RecordStep(e.Job, "reassemble", err, time.Since(start))
	if len(missing) > 0 {
		j.log.Warn("parts missing from reassembly", zap.Ints("parts", oneBased(missing)))
	}
	if err != nil {
		j.log.Error("could not reassemble", zap.String("file", filepath.Base(landing)), zap.Error(err))
		j.fail(err)
	}
}

func oneBased(idx []int) []int {
	out := make([]int, len(idx))
	for i, v := range idx {
		out[i] = v + 1
	}
	return out
}
