// Package etl runs one end-to-end ETL pass: landing files are downloaded
// from the query service (or restored from the bucket), validated,
// optionally uploaded, then turned into canonical outputs that are
// optionally uploaded and loaded into the warehouse.
//
// Every failure below the configuration level is logged and the run moves
// on to the next independent unit of work. The error log decides the
// outcome: an empty error log means the run succeeded.
package etl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kpietl/internal/blob"
	"kpietl/internal/config"
	"kpietl/internal/dataset"
	"kpietl/internal/download"
	"kpietl/internal/geocode"
	"kpietl/internal/landing"
	"kpietl/internal/logger"
	"kpietl/internal/pipeline"
	"kpietl/internal/storage"
	"kpietl/internal/workpool"
)

// GeoMasterFile is the local name of the geocode reference file, below the
// valid directory.
const GeoMasterFile = "geo_master_mapping.csv"

// ErrorLogLayout names the error log file after the run start time.
const ErrorLogLayout = "2006_01_02__15_04_05"

// openRepository opens the warehouse for one dataset; tests replace it.
var openRepository = storage.New

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// ErrorLogPath is the error log of a run started at t.
func ErrorLogPath(errorDir string, t time.Time) string {
	return filepath.Join(errorDir, t.Format(ErrorLogLayout)+".log")
}

// PrepareDirs recreates the landing and error directories and makes sure
// the valid directory exists. It runs before the logger opens its error
// log inside the error directory.
func PrepareDirs(d config.DirsConfig) error {
	for _, dir := range []string{d.Landing, d.Error} {
		if err := recreate(dir); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(d.Valid, 0o777); err != nil {
		return fmt.Errorf("create %s: %w", d.Valid, err)
	}
	return nil
}

func recreate(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}

// Runner holds everything one run needs.
type Runner struct {
	Config   config.Config
	Datasets []dataset.Descriptor

	// Client talks to the query service.
	Client download.Client
	// Store is the blob store; nil when no enabled phase needs it.
	Store blob.Store

	Log *logger.Logger
	Job string
}

// Outcome is the end-of-run signal.
type Outcome struct {
	OK        bool
	ErrorLog  string
	Downloads []download.Result
	Summaries []*pipeline.Summary
}

// Message is the single end-of-run line shown to the user.
func (o Outcome) Message() string {
	if o.OK {
		return "ETL completed successfully"
	}
	return "ETL completed with errors. Details logged in " + o.ErrorLog
}

// Run executes the enabled phases in order. The returned error is reserved
// for failures that make the run itself impossible (working directories,
// error log); everything else is logged and reflected in Outcome.OK.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	cfg := r.Config
	log := r.Log.WithComponent("etl")
	var out Outcome

	if cfg.Run.NeedsBucket() && r.Store == nil {
		return out, fmt.Errorf("bucket.kind=%q cannot serve the enabled bucket phases", cfg.Bucket.Kind)
	}
	syncer := &blob.Syncer{Store: r.Store, Bucket: cfg.Bucket.Name, Log: r.Log.WithComponent("blob"), Job: r.Job}
	pool := workpool.New(cfg.Download.Workers)

	log.Info("run started",
		zap.Int("datasets", len(r.Datasets)),
		zap.String("environment", cfg.Run.Environment),
		zap.Int("quarters", cfg.Run.Quarters))

	if cfg.Run.DownloadLandingFromBucket {
		r.restoreLanding(ctx, syncer)
	} else {
		eng := &download.Engine{
			Client:           r.Client,
			Pool:             pool,
			MaxPartitionSize: cfg.Download.MaxPartitionSize,
			LandingDir:       cfg.Dirs.Landing,
			Log:              r.Log.WithComponent("download"),
			Job:              r.Job,
		}
		out.Downloads = eng.Run(ctx, r.Datasets)

		v := &landing.Validator{Pool: pool, LandingDir: cfg.Dirs.Landing, Log: r.Log.WithComponent("validate"), Job: r.Job}
		reports := v.Run(r.Datasets)
		log.Info("landing files validated", zap.Int("valid_files", len(reports)))
	}

	if cfg.Run.UploadLanding && !cfg.Run.DownloadLandingFromBucket {
		r.uploadLanding(ctx, syncer)
	}

	if cfg.Run.ProcessLanding {
		sums, err := r.process(ctx, syncer)
		out.Summaries = sums
		if err != nil {
			return out, err
		}
	}

	return r.finish(ctx, syncer, out)
}

// restoreLanding downloads landing/<dir>/ of every dataset directory.
func (r *Runner) restoreLanding(ctx context.Context, syncer *blob.Syncer) {
	cfg := r.Config
	seen := map[string]bool{}
	for _, d := range r.Datasets {
		if seen[d.Dir] {
			continue
		}
		seen[d.Dir] = true
		prefix := path.Join(cfg.Bucket.LandingPrefix, d.Dir) + "/"
		_, _ = syncer.DownloadPrefix(ctx, prefix, d.LandingDir(cfg.Dirs.Landing))
	}
}

// uploadLanding uploads each dataset's landing files to landing/<dir>/.
func (r *Runner) uploadLanding(ctx context.Context, syncer *blob.Syncer) {
	cfg := r.Config
	for _, d := range r.Datasets {
		files, err := landing.Matching(d.LandingPath(cfg.Dirs.Landing))
		if err != nil {
			r.Log.WithDataset(d.Name).Error("could not list landing files", zap.Error(err))
			continue
		}
		for _, f := range files {
			key := path.Join(cfg.Bucket.LandingPrefix, d.Dir, filepath.Base(f))
			_ = syncer.Put(ctx, key, f)
		}
	}
}

// process recreates the valid directory, fetches the geocode master file
// when verification is on, and runs the pipeline for each dataset in turn.
func (r *Runner) process(ctx context.Context, syncer *blob.Syncer) ([]*pipeline.Summary, error) {
	cfg := r.Config
	if err := recreate(cfg.Dirs.Valid); err != nil {
		return nil, err
	}

	var geo *geocode.Table
	if cfg.Run.VerifyGeocodes {
		local := filepath.Join(cfg.Dirs.Valid, GeoMasterFile)
		_ = syncer.Get(ctx, cfg.Bucket.GeoMasterKey, local)
		geo = geocode.NewTable(local)
	}

	p := &pipeline.Processor{
		LandingDir: cfg.Dirs.Landing,
		ValidDir:   cfg.Dirs.Valid,
		UseCRLF:    cfg.Output.CRLF,
		Geo:        geo,
		Log:        r.Log.WithComponent("pipeline"),
		Job:        r.Job,
	}

	var sums []*pipeline.Summary
	for _, d := range r.Datasets {
		if err := ctx.Err(); err != nil {
			return sums, err
		}
		log := r.Log.WithDataset(d.Name)
		log.Info("Processing " + d.Name)

		sink, repo := r.openSink(ctx, d, log)
		var ps pipeline.Sink
		if sink != nil {
			ps = sink
		}
		sum, err := p.Process(ctx, d, ps)
		if sink != nil {
			n, serr := sink.Close()
			repo.Close()
			if serr != nil {
				log.Error("warehouse load failed", zap.Error(serr))
			} else {
				log.Info("warehouse load finished", zap.Int64("rows", n))
			}
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return sums, err
			}
			log.Error("Could not process dataset", zap.Error(err))
			continue
		}
		sums = append(sums, sum)

		if cfg.Run.UploadValid {
			key := path.Join(cfg.Bucket.ValidPrefix, d.Dir, d.ValidFile)
			_ = syncer.Put(ctx, key, d.ValidPath(cfg.Dirs.Valid))
		}
	}
	return sums, nil
}

// openSink opens the warehouse sink for d and the repository behind it.
// Both are nil when the warehouse is disabled or unavailable.
func (r *Runner) openSink(ctx context.Context, d dataset.Descriptor, log *logger.Logger) (*storage.Sink, storage.Repository) {
	sc := r.Config.Storage
	if sc.Kind == "" || sc.Kind == "none" {
		return nil, nil
	}
	table := sc.TablePrefix + d.Name
	columns := make([]string, len(d.OutputHeader))
	for i, h := range d.OutputHeader {
		columns[i] = storage.ColumnName(h)
	}
	repo, err := openRepository(ctx, storage.Config{Kind: sc.Kind, DSN: sc.DSN, Table: table, Columns: columns})
	if err != nil {
		log.Error("could not open warehouse", zap.Error(&storage.LoadError{Table: table, Err: err}))
		return nil, nil
	}
	sink := storage.OpenSink(ctx, repo, storage.SinkConfig{
		Kind:       sc.Kind,
		Table:      table,
		Header:     d.OutputHeader,
		BatchSize:  sc.BatchSize,
		AutoCreate: sc.AutoCreateTable,
		Job:        r.Job,
		Dataset:    d.Name,
	}, r.Log.WithComponent("storage").WithDataset(d.Name))
	return sink, repo
}

// finish reads the error log, uploads the error directory when the run
// failed and an upload phase is enabled, and logs the end-of-run message.
func (r *Runner) finish(ctx context.Context, syncer *blob.Syncer, out Outcome) (Outcome, error) {
	cfg := r.Config
	out.ErrorLog = r.Log.ErrorLogPath()
	empty, err := r.Log.ErrorLogEmpty()
	if err != nil {
		return out, err
	}
	out.OK = empty

	if !out.OK && (cfg.Run.UploadLanding || cfg.Run.UploadValid) && r.Store != nil {
		_, _ = syncer.UploadDir(ctx, cfg.Dirs.Error, cfg.Bucket.ErrorPrefix)
	}

	log := r.Log.WithComponent("etl")
	if out.OK {
		log.Info(out.Message())
	} else {
		log.Warn(out.Message())
	}
	return out, nil
}
