package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"kpietl/internal/logger"
)

// errAgg aggregates repeated messages. It keeps the first limit distinct
// messages in arrival order and a count per message.
type errAgg struct {
	limit   int
	count   int
	first   []string
	buckets map[string]int
}

func newErrAgg(limit int) *errAgg {
	return &errAgg{limit: limit, buckets: make(map[string]int)}
}

func (a *errAgg) add(msg string) {
	if _, ok := a.buckets[msg]; !ok && len(a.first) < a.limit {
		a.first = append(a.first, msg)
	}
	a.buckets[msg]++
	a.count++
}

// log prints the aggregate as warnings under title. Nothing is logged when
// no message was added.
func (a *errAgg) log(log *logger.Logger, title string) {
	if a.count == 0 {
		return
	}
	log.Warn(fmt.Sprintf("%s: %d (showing first %d)", title, a.count, len(a.first)),
		zap.Int("distinct", len(a.buckets)))
	for i, s := range a.first {
		log.Warn(fmt.Sprintf("  #%03d: %s (x%d)", i+1, s, a.buckets[s]))
	}
}

// missReporter adapts errAgg to transformer.Reporter.
type missReporter struct{ agg *errAgg }

func (m missReporter) Miss(kind, label string) {
	m.agg.add(fmt.Sprintf("could not classify %s %q", kind, label))
}
