// Package workpool runs independent tasks on a fixed number of goroutines.
//
// A failing task never stops its siblings: every submitted task runs, and Run
// returns only after all of them finished.
package workpool

import (
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultSize is the pool width when none is configured.
const DefaultSize = 8

// Task is one unit of work.
type Task func() error

// Pool is a bounded worker pool. The zero value is not usable; see New.
type Pool struct {
	size int
}

// New returns a pool running at most size tasks at a time.
func New(size int) *Pool {
	if size < 1 {
		size = DefaultSize
	}
	return &Pool{size: size}
}

// Size is the pool width.
func (p *Pool) Size() int { return p.size }

// Run executes tasks and blocks until every one has returned. Completion
// order is unspecified. The result joins all task errors in submission order,
// or is nil when every task succeeded.
func (p *Pool) Run(tasks []Task) error {
	var g errgroup.Group
	g.SetLimit(p.size)

	errs := make([]error, len(tasks))
	var mu sync.Mutex
	for i, t := range tasks {
		g.Go(func() error {
			// Errors are collected instead of returned so the group never
			// records a first error and siblings keep running.
			if err := t(); err != nil {
				mu.Lock()
				errs[i] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
