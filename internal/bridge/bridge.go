// Package bridge turns the host's callback-hook primitives into awaitable
// operations: one hook registration per future, one future per suspension.
package bridge

import (
	"strings"

	"github.com/kelsos/slack-bridge/internal/host"
	"github.com/kelsos/slack-bridge/internal/logger"
	"github.com/kelsos/slack-bridge/internal/sched"
)

const (
	// fdHeadroomThreshold is the minimum file descriptor headroom required
	// before spawning a process; below it the bridge polls until the host
	// frees descriptors.
	fdHeadroomThreshold = 10
	fdPollIntervalMs    = 10
)

// Bridge adapts a host's asynchronous primitives into calls a computation
// can await.
type Bridge struct {
	host host.Host
}

// New creates a bridge over the given host.
func New(h host.Host) *Bridge {
	return &Bridge{host: h}
}

// Sleep suspends the computation for durationMs milliseconds and returns
// the host's tick payload.
func (b *Bridge) Sleep(co *sched.Coroutine, durationMs int) any {
	future := sched.NewFuture()
	b.host.RunTimer(durationMs, future.ID())
	return co.Await(future)
}

// SpawnProcess executes a command through the host and reassembles its
// streamed output. The host delivers every fragment under the identity
// registered at spawn time; each intermediary fragment (return code -1)
// re-parks the computation on that same identity until the final return
// code arrives.
func (b *Bridge) SpawnProcess(co *sched.Coroutine, command string, options map[string]string, timeoutMs int) host.ProcessEvent {
	future := sched.NewFuture()
	logger.Debug("Spawning process (%s): command: %s", future.ID(), command)

	for b.host.AvailableFileDescriptors() < fdHeadroomThreshold {
		b.Sleep(co, fdPollIntervalMs)
	}

	b.host.RunProcess(command, options, timeoutMs, future.ID())

	var stdout, stderr strings.Builder
	returnCode := host.MoreOutput

	for returnCode == host.MoreOutput {
		event := co.Await(future).(host.ProcessEvent)
		logger.Trace("Intermediary process response (%s): command: %s", future.ID(), command)
		stdout.WriteString(event.Stdout)
		stderr.WriteString(event.Stderr)
		returnCode = event.ReturnCode
	}

	out := stdout.String()
	errOut := stderr.String()
	if errOut != "" {
		logger.Debug("Process response (%s): command: %s, return_code: %d, response length: %d, error: %s",
			future.ID(), command, returnCode, len(out), errOut)
	} else {
		logger.Debug("Process response (%s): command: %s, return_code: %d, response length: %d",
			future.ID(), command, returnCode, len(out))
	}

	return host.ProcessEvent{
		Command:    command,
		ReturnCode: returnCode,
		Stdout:     out,
		Stderr:     errOut,
	}
}
