// Package threadrunner runs display list uploads either inline or on a
// single background worker.
package threadrunner

import "golang.org/x/sync/errgroup"

// Runner executes upload tasks. At most one task is in flight; Wait blocks
// until it finished. A task error is reported once, by the call that
// observed the task finish.
type Runner interface {
	Run(task func() error) error
	Wait() error
}

// Single runs tasks synchronously.
type Single struct{}

// Run executes task immediately and returns its error.
func (Single) Run(task func() error) error { return task() }

// Wait returns nil; nothing is ever in flight.
func (Single) Wait() error { return nil }

// Multi runs each task on a worker goroutine. Run waits for the previous
// task before starting the next one.
type Multi struct {
	g *errgroup.Group
}

// NewMulti returns a runner with one worker.
func NewMulti() *Multi {
	m := &Multi{}
	m.reset()
	return m
}

func (m *Multi) reset() {
	m.g = new(errgroup.Group)
	m.g.SetLimit(1)
}

// Run waits for the in-flight task, then starts task in the background.
// It returns the error of the task it waited for.
func (m *Multi) Run(task func() error) error {
	err := m.Wait()
	m.g.Go(task)
	return err
}

// Wait blocks until the in-flight task finished.
func (m *Multi) Wait() error {
	err := m.g.Wait()
	m.reset()
	return err
}
