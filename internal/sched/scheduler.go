package sched

import (
	"fmt"
	"sort"

	"github.com/kelsos/slack-bridge/internal/logger"
)

// Observer receives scheduler lifecycle events, used by the TUI monitor.
// All methods are invoked from the dispatch goroutine.
type Observer interface {
	TaskCreated(taskID string, final bool)
	TaskParked(taskID, futureID string)
	TaskResumed(taskID string)
	TaskFinished(taskID string, err error)
}

// Scheduler drives suspended computations forward as host callbacks deliver
// the values they are parked on. All entry points (CreateTask, OnCallback)
// must be invoked from a single dispatch goroutine; the scheduler provides
// no internal synchronization beyond the coroutine handoff itself.
type Scheduler struct {
	// pending maps a future identity to the task currently parked on it.
	pending map[string]*Task
	// completed maps a task identity to its finished result, for tasks
	// that completed before anything awaited them.
	completed map[string]Result
	observer  Observer
}

// New creates a scheduler with empty registries.
func New() *Scheduler {
	return &Scheduler{
		pending:   make(map[string]*Task),
		completed: make(map[string]Result),
	}
}

// SetObserver attaches a lifecycle observer. Pass nil to detach.
func (s *Scheduler) SetObserver(o Observer) {
	s.observer = o
}

// CreateTask launches a computation and drives it to its first suspension
// point or to completion before returning. Callers generally ignore the
// returned task unless they intend to await its result.
func (s *Scheduler) CreateTask(fn Computation, final bool) *Task {
	task := &Task{
		Future: *NewFuture(),
		final:  final,
		resume: make(chan any),
		steps:  make(chan step),
	}

	go func() {
		<-task.resume
		value, err := runComputation(task, fn)
		task.steps <- step{value: value, err: err}
	}()

	if s.observer != nil {
		s.observer.TaskCreated(task.id, final)
	}

	s.run(task, nil)
	return task
}

// runComputation executes fn, converting a panic into the task's error so
// a failing computation cannot take down unrelated in-flight work.
// InvariantError panics are re-raised: they indicate scheduler corruption,
// not a failure of this computation.
func runComputation(task *Task, fn Computation) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			if inv, ok := r.(*InvariantError); ok {
				panic(inv)
			}
			logger.Error("Task %s panicked: %v", task.id, r)
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(&Coroutine{task: task})
}

// OnCallback is the single entry point the host invokes when an external
// event completes. It resumes the task parked on futureID with the payload.
func (s *Scheduler) OnCallback(futureID string, payload any) {
	task, ok := s.pending[futureID]
	if !ok {
		panic(s.fault(futureID, "callback for unregistered future"))
	}
	delete(s.pending, futureID)
	s.run(task, payload)
}

// run is the trampoline: it feeds input into the task's computation and
// loops until some computation parks on a future whose value has not
// arrived yet. Completed results are either handed straight to an already
// parked awaiter (staying inside the loop), stashed for later pickup, or
// discarded for final tasks.
func (s *Scheduler) run(task *Task, input any) {
	for {
		if s.observer != nil {
			s.observer.TaskResumed(task.id)
		}
		task.resume <- input
		st := <-task.steps

		if st.future != nil {
			if res, ok := s.completed[st.future.id]; ok {
				// The awaited operation finished before this await was
				// reached; consume the stashed result without a host
				// round trip.
				delete(s.completed, st.future.id)
				input = any(res)
				continue
			}
			if _, ok := s.pending[st.future.id]; ok {
				panic(s.fault(st.future.id, "future already registered"))
			}
			s.pending[st.future.id] = task
			if s.observer != nil {
				s.observer.TaskParked(task.id, st.future.id)
			}
			return
		}

		// The computation finished.
		if s.observer != nil {
			s.observer.TaskFinished(task.id, st.err)
		}
		result := Result{Value: st.value, Err: st.err}
		if waiter, ok := s.pending[task.id]; ok {
			// Another computation is parked awaiting this task; resume
			// it directly with the result.
			delete(s.pending, task.id)
			task = waiter
			input = any(result)
			continue
		}
		if _, ok := s.completed[task.id]; ok {
			panic(s.fault(task.id, "task result already recorded"))
		}
		if !task.final {
			s.completed[task.id] = result
		}
		return
	}
}

// InvariantError reports corrupted scheduler bookkeeping: an identity
// registered or consumed other than exactly once. It is not recoverable
// and is never caught inside this package.
type InvariantError struct {
	FutureID  string
	Reason    string
	Pending   []string
	Completed []string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("scheduler invariant violated: %s (future %s, pending %v, completed %v)",
		e.Reason, e.FutureID, e.Pending, e.Completed)
}

// fault builds an InvariantError with a snapshot of both registries and
// logs it before the caller panics.
func (s *Scheduler) fault(futureID, reason string) *InvariantError {
	err := &InvariantError{
		FutureID:  futureID,
		Reason:    reason,
		Pending:   registryKeys(s.pending),
		Completed: registryKeys(s.completed),
	}
	logger.Error("%v", err)
	return err
}

func registryKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
