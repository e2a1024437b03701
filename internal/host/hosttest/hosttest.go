// Package hosttest provides a deterministic in-memory host for tests:
// timers fire instantly in virtual time, process output is scripted, and
// queued callbacks are pumped explicitly from the test goroutine.
package hosttest

import (
	"github.com/kelsos/slack-bridge/internal/host"
	"github.com/kelsos/slack-bridge/internal/sched"
)

// SpawnRequest records one RunProcess call.
type SpawnRequest struct {
	Command   string
	Options   map[string]string
	TimeoutMs int
}

type queuedEvent struct {
	callbackID string
	payload    any
}

// Fake implements host.Host with scripted behavior. Every callback is
// queued and only delivered when the test pumps it, so tests control the
// exact interleaving of resumptions.
type Fake struct {
	// Respond produces the events delivered for a spawned command. Each
	// returned event arrives as a separate callback.
	Respond func(req SpawnRequest) []host.ProcessEvent

	// HeadroomFunc overrides the reported file descriptor headroom.
	HeadroomFunc func() int

	// Timers records the delay of every timer, in registration order.
	Timers []int

	// Spawns records every RunProcess call.
	Spawns []SpawnRequest

	queue []queuedEvent
}

// New creates a fake host with ample file descriptor headroom.
func New() *Fake {
	return &Fake{}
}

func (f *Fake) RunTimer(delayMs int, callbackID string) {
	f.Timers = append(f.Timers, delayMs)
	f.queue = append(f.queue, queuedEvent{callbackID: callbackID, payload: 0})
}

func (f *Fake) RunProcess(command string, options map[string]string, timeoutMs int, callbackID string) {
	req := SpawnRequest{Command: command, Options: options, TimeoutMs: timeoutMs}
	f.Spawns = append(f.Spawns, req)
	for _, event := range f.Respond(req) {
		f.queue = append(f.queue, queuedEvent{callbackID: callbackID, payload: event})
	}
}

func (f *Fake) AvailableFileDescriptors() int {
	if f.HeadroomFunc != nil {
		return f.HeadroomFunc()
	}
	return 1 << 16
}

// Pump delivers the oldest queued callback and reports whether one was
// delivered.
func (f *Fake) Pump(s *sched.Scheduler) bool {
	if len(f.queue) == 0 {
		return false
	}
	event := f.queue[0]
	f.queue = f.queue[1:]
	s.OnCallback(event.callbackID, event.payload)
	return true
}

// Drive launches fn as a final task and pumps callbacks until the queue
// drains.
func (f *Fake) Drive(s *sched.Scheduler, fn sched.Computation) {
	s.CreateTask(fn, true)
	for f.Pump(s) {
	}
}
