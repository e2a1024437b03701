// Package sched implements the cooperative scheduler that lets sequential
// computations await values delivered by host callbacks. Execution is
// strictly single-threaded: a computation runs only while its driver is
// blocked handing control to it, and yields back at every Await. The two
// registries (pending futures and uncollected results) are therefore
// mutated without locks; every identity is registered and consumed exactly
// once, and violations are raised as InvariantError panics.
package sched

import (
	"github.com/google/uuid"
)

// Future is a single-use handle for a value that arrives from outside the
// current computation, matched back to it by a unique identity.
type Future struct {
	id string
}

// NewFuture allocates a future with a fresh identity.
func NewFuture() *Future {
	return &Future{id: uuid.NewString()}
}

// ID returns the future's identity, used to register host callbacks.
func (f *Future) ID() string {
	return f.id
}

// Result carries a finished task's outcome to whoever awaits it.
type Result struct {
	Value any
	Err   error
}

// Computation is a resumable unit of sequential logic. It may suspend any
// number of times through the coroutine handle and finishes with a value
// or an error.
type Computation func(co *Coroutine) (any, error)

// Task is a future that owns a running computation. When final is set the
// computation's result is discarded on completion instead of being stashed
// for a later awaiter.
type Task struct {
	Future
	final  bool
	resume chan any
	steps  chan step
}

// step is what a computation hands back to the driver: either a future it
// is now suspended on, or its final outcome.
type step struct {
	future *Future
	value  any
	err    error
}

// Coroutine is the handle a computation uses to suspend itself.
type Coroutine struct {
	task *Task
}

// Await parks the computation until a value is delivered for the future's
// identity and returns that value. Control transfers to the scheduler; the
// computation does not run again until the matching delivery arrives.
func (co *Coroutine) Await(f *Future) any {
	co.task.steps <- step{future: f}
	return <-co.task.resume
}

// AwaitTask parks the computation until another task finishes and returns
// that task's result, propagating its error.
func (co *Coroutine) AwaitTask(t *Task) (any, error) {
	res := co.Await(&t.Future).(Result)
	return res.Value, res.Err
}
