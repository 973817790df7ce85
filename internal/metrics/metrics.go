// Package metrics records operational metrics for a kpietl run behind a
// small, backend-agnostic interface.
//
// The default backend is a no-op, so instrumentation is always safe to call.
// Concrete systems live in subpackages (prompush, datadog) and are installed
// once at startup with SetBackend; Flush is called once at exit.
//
// Three families are recorded:
//
//   - kpietl_step_total / kpietl_step_duration_seconds, per phase step
//     (probe, fetch, reassemble, validate, process, upload, load).
//   - kpietl_records_total, per dataset and row outcome (total, accepted,
//     duplicate, rejected, loaded).
//   - kpietl_batches_total, per dataset, for warehouse load batches.
package metrics

import "time"

// Metric names understood by the backends.
const (
	StepTotal    = "kpietl_step_total"
	StepDuration = "kpietl_step_duration_seconds"
	RecordsTotal = "kpietl_records_total"
	BatchesTotal = "kpietl_batches_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of a phase step and observes its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow adds delta rows of the given outcome kind for a dataset.
// Non-positive deltas are ignored.
func RecordRow(job, dataset, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RecordsTotal, float64(delta), Labels{
		"job":     job,
		"dataset": dataset,
		"kind":    kind,
	})
}

// RecordBatches counts warehouse load batches for a dataset.
func RecordBatches(job, dataset string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(BatchesTotal, float64(delta), Labels{
		"job":     job,
		"dataset": dataset,
	})
}
