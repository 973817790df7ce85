package pipeline

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"kpietl/internal/logger"
)

// Summary accumulates the outcome of one dataset run.
//
// Total always equals Accepted + Duplicate + Invalid.
type Summary struct {
	Dataset string
	// File is the canonical output path.
	File string

	Total     int64
	Accepted  int64
	Duplicate int64
	Invalid   int64

	dates map[time.Time]struct{}
	codes map[string]struct{}
}

func newSummary(dataset, file string) *Summary {
	return &Summary{
		Dataset: dataset,
		File:    file,
		dates:   make(map[time.Time]struct{}),
		codes:   make(map[string]struct{}),
	}
}

func (s *Summary) accept(date time.Time, code string) {
	s.Accepted++
	s.dates[date] = struct{}{}
	s.codes[code] = struct{}{}
}

// Dates returns the number of distinct accepted dates and their range.
func (s *Summary) Dates() (n int, first, last time.Time) {
	for d := range s.dates {
		if n == 0 || d.Before(first) {
			first = d
		}
		if n == 0 || d.After(last) {
			last = d
		}
		n++
	}
	return n, first, last
}

// Codes returns the number of distinct accepted geography codes.
func (s *Summary) Codes() int { return len(s.codes) }

// Balanced reports whether every counted row is accounted for.
func (s *Summary) Balanced() bool {
	return s.Total == s.Accepted+s.Duplicate+s.Invalid
}

// Report logs the run summary. Invalid rows produce an error entry.
func (s *Summary) Report(log *logger.Logger) {
	name := filepath.Base(s.File)
	log.Info("Generated " + name)
	log.Info(fmt.Sprintf("Records: %d total, %d valid, %d duplicate, %d invalid",
		s.Total, s.Accepted, s.Duplicate, s.Invalid))

	switch n, first, last := s.Dates(); {
	case n == 0:
		log.Info("Dates: 0 values")
	case n == 1:
		log.Info(fmt.Sprintf("Dates: 1 value = %s", first.Format(time.DateOnly)))
	default:
		log.Info(fmt.Sprintf("Dates: %d distinct values between %s and %s",
			n, first.Format(time.DateOnly), last.Format(time.DateOnly)))
	}
	log.Info(fmt.Sprintf("Geo codes: %d distinct values", s.Codes()))

	if s.Invalid > 0 {
		log.Error(fmt.Sprintf("*** ATTENTION - File %s includes invalid records ***", name),
			zap.Int64("invalid", s.Invalid))
	}
}
