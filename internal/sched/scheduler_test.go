package sched

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFutureIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		f := NewFuture()
		require.False(t, seen[f.ID()], "duplicate future id %s", f.ID())
		seen[f.ID()] = true
	}
}

func TestAwaitDeliversValueToParkedTask(t *testing.T) {
	s := New()
	f := NewFuture()

	var got any
	s.CreateTask(func(co *Coroutine) (any, error) {
		got = co.Await(f)
		return nil, nil
	}, true)

	require.Contains(t, s.pending, f.ID())

	s.OnCallback(f.ID(), "hello")

	assert.Equal(t, "hello", got)
	assert.Empty(t, s.pending)
	assert.Empty(t, s.completed)
}

func TestValuesRouteToMatchingSuspension(t *testing.T) {
	s := New()
	f1 := NewFuture()
	f2 := NewFuture()

	var got1, got2 any
	s.CreateTask(func(co *Coroutine) (any, error) {
		got1 = co.Await(f1)
		return nil, nil
	}, true)
	s.CreateTask(func(co *Coroutine) (any, error) {
		got2 = co.Await(f2)
		return nil, nil
	}, true)

	// Deliver in reverse registration order.
	s.OnCallback(f2.ID(), "two")
	s.OnCallback(f1.ID(), "one")

	assert.Equal(t, "one", got1)
	assert.Equal(t, "two", got2)
}

func TestFinalTaskLeavesNoResidue(t *testing.T) {
	s := New()

	s.CreateTask(func(co *Coroutine) (any, error) {
		return "discarded", nil
	}, true)

	assert.Empty(t, s.pending)
	assert.Empty(t, s.completed)
}

func TestNonFinalResultStashedUntilCollected(t *testing.T) {
	s := New()

	task := s.CreateTask(func(co *Coroutine) (any, error) {
		return 42, nil
	}, false)

	require.Contains(t, s.completed, task.ID())
	require.NotContains(t, s.pending, task.ID())

	var got any
	var gotErr error
	s.CreateTask(func(co *Coroutine) (any, error) {
		got, gotErr = co.AwaitTask(task)
		return nil, nil
	}, true)

	// The stashed result was consumed without any host callback.
	assert.Equal(t, 42, got)
	assert.NoError(t, gotErr)
	assert.Empty(t, s.pending)
	assert.Empty(t, s.completed)
}

func TestCompletionResumesAwaitingTask(t *testing.T) {
	s := New()
	f := NewFuture()

	inner := s.CreateTask(func(co *Coroutine) (any, error) {
		v := co.Await(f)
		return v, nil
	}, false)

	var got any
	outerDone := false
	s.CreateTask(func(co *Coroutine) (any, error) {
		got, _ = co.AwaitTask(inner)
		outerDone = true
		return nil, nil
	}, true)

	require.False(t, outerDone)
	require.Contains(t, s.pending, inner.ID())

	// One callback resumes the inner task; its completion resumes the
	// outer task in the same trampoline loop.
	s.OnCallback(f.ID(), "chained")

	assert.True(t, outerDone)
	assert.Equal(t, "chained", got)
	assert.Empty(t, s.pending)
	assert.Empty(t, s.completed)
}

func TestErrorPropagatesThroughAwaitTask(t *testing.T) {
	s := New()
	boom := errors.New("boom")

	failing := s.CreateTask(func(co *Coroutine) (any, error) {
		return nil, boom
	}, false)

	var gotErr error
	s.CreateTask(func(co *Coroutine) (any, error) {
		_, gotErr = co.AwaitTask(failing)
		return nil, nil
	}, true)

	assert.ErrorIs(t, gotErr, boom)
}

func TestPanicInComputationBecomesTaskError(t *testing.T) {
	s := New()

	panicking := s.CreateTask(func(co *Coroutine) (any, error) {
		panic("computation bug")
	}, false)

	var gotErr error
	s.CreateTask(func(co *Coroutine) (any, error) {
		_, gotErr = co.AwaitTask(panicking)
		return nil, nil
	}, true)

	require.Error(t, gotErr)
	assert.Contains(t, gotErr.Error(), "computation bug")
	assert.Empty(t, s.pending)
	assert.Empty(t, s.completed)
}

func TestNestedCreateTask(t *testing.T) {
	s := New()
	f := NewFuture()

	var got any
	s.CreateTask(func(co *Coroutine) (any, error) {
		inner := s.CreateTask(func(co *Coroutine) (any, error) {
			return co.Await(f), nil
		}, false)
		got, _ = co.AwaitTask(inner)
		return nil, nil
	}, true)

	require.Contains(t, s.pending, f.ID())
	s.OnCallback(f.ID(), "nested")

	assert.Equal(t, "nested", got)
	assert.Empty(t, s.pending)
	assert.Empty(t, s.completed)
}

func TestDuplicateFutureRegistrationFaults(t *testing.T) {
	s := New()
	f := NewFuture()

	s.CreateTask(func(co *Coroutine) (any, error) {
		co.Await(f)
		return nil, nil
	}, true)

	defer func() {
		r := recover()
		require.NotNil(t, r, "expected invariant fault")
		inv, ok := r.(*InvariantError)
		require.True(t, ok, "expected *InvariantError, got %T", r)
		assert.Equal(t, f.ID(), inv.FutureID)
		assert.Contains(t, inv.Pending, f.ID())
	}()

	s.CreateTask(func(co *Coroutine) (any, error) {
		co.Await(f)
		return nil, nil
	}, true)
}

func TestCallbackForUnknownFutureFaults(t *testing.T) {
	s := New()

	defer func() {
		r := recover()
		require.NotNil(t, r, "expected invariant fault")
		_, ok := r.(*InvariantError)
		require.True(t, ok, "expected *InvariantError, got %T", r)
	}()

	s.OnCallback("no-such-future", "payload")
}

func TestDuplicateCompletedEntryFaults(t *testing.T) {
	s := New()
	f := NewFuture()

	task := s.CreateTask(func(co *Coroutine) (any, error) {
		co.Await(f)
		return "done", nil
	}, false)

	// Simulate corrupted bookkeeping: a result already recorded under the
	// task's identity before it finishes.
	s.completed[task.ID()] = Result{Value: "stale"}

	defer func() {
		r := recover()
		require.NotNil(t, r, "expected invariant fault")
		inv, ok := r.(*InvariantError)
		require.True(t, ok, "expected *InvariantError, got %T", r)
		assert.Equal(t, task.ID(), inv.FutureID)
	}()

	s.OnCallback(f.ID(), nil)
}

func TestIdentityInAtMostOneRegistry(t *testing.T) {
	s := New()
	f := NewFuture()

	task := s.CreateTask(func(co *Coroutine) (any, error) {
		co.Await(f)
		return "v", nil
	}, false)

	// Parked: the task's own identity is in neither registry; the future
	// identity is pending only.
	assert.Contains(t, s.pending, f.ID())
	assert.NotContains(t, s.completed, f.ID())
	assert.NotContains(t, s.pending, task.ID())
	assert.NotContains(t, s.completed, task.ID())

	s.OnCallback(f.ID(), nil)

	// Completed uncollected: identity moved to the completed registry.
	assert.NotContains(t, s.pending, task.ID())
	assert.Contains(t, s.completed, task.ID())
}
