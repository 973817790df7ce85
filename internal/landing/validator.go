package landing

import (
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"kpietl/internal/dataset"
	"kpietl/internal/logger"
	"kpietl/internal/metrics"
	"kpietl/internal/workpool"
)

// Validator checks every dataset's landing files, one pool task per dataset.
type Validator struct {
	Pool       *workpool.Pool
	LandingDir string
	Log        *logger.Logger
	Job        string
}

// Run validates all landing files of ds. Failures are logged at error level
// and do not stop sibling files. The result maps each valid file's path to
// its report.
func (v *Validator) Run(ds []dataset.Descriptor) map[string]Report {
	var mu sync.Mutex
	out := make(map[string]Report)

	tasks := make([]workpool.Task, len(ds))
	for i, d := range ds {
		tasks[i] = func() error {
			log := v.Log.WithDataset(d.Name)
			files, err := Matching(d.LandingPath(v.LandingDir))
			if err != nil {
				log.Error("could not list landing files", zap.Error(err))
				return err
			}
			if len(files) == 0 {
				err := &ValidationError{File: d.LandingFile, Msg: "file not found"}
				log.Error("landing file missing", zap.Error(err))
				return err
			}
			var firstErr error
			for _, f := range files {
				log.Info("Validating " + filepath.Base(f))
				start := time.Now()
				rep, err := Validate(f, d.LandingHeader)
				metrics.RecordStep(v.Job, "validate", err, time.Since(start))
				if err != nil {
					log.Error("validation failed", zap.String("file", filepath.Base(f)), zap.Error(err))
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				log.Debug("validated",
					zap.String("file", filepath.Base(f)),
					zap.Int("rows", rep.Rows),
					zap.String("xxh3", rep.Fingerprint))
				mu.Lock()
				out[f] = rep
				mu.Unlock()
			}
			return firstErr
		}
	}
	_ = v.Pool.Run(tasks)
	return out
}
