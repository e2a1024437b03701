// Package host defines the callback-based primitives the scheduler core
// consumes, and provides a local implementation of them. The host owns the
// event loop: callbacks are delivered strictly serially, one at a time, to
// the registered dispatch entry point.
package host

// ProcessEvent is the payload delivered for process callbacks. A spawned
// process may report multiple times; ReturnCode -1 means more output
// follows, any other value is the final return code.
type ProcessEvent struct {
	Command    string
	ReturnCode int
	Stdout     string
	Stderr     string
}

// MoreOutput is the return code of an intermediary process event.
const MoreOutput = -1

// Host exposes the asynchronous primitives the bridge builds on. All three
// calls return immediately; results arrive later through the dispatch loop
// under the given callback identity.
type Host interface {
	// RunProcess executes a command asynchronously. Commands of the form
	// "url:<target>" request a URL fetch honoring the useragent,
	// httpheader, cookie and header options; anything else runs as a
	// shell command with streamed output.
	RunProcess(command string, options map[string]string, timeoutMs int, callbackID string)

	// RunTimer fires one callback after delayMs milliseconds.
	RunTimer(delayMs int, callbackID string)

	// AvailableFileDescriptors reports how many file descriptors the
	// process can still open.
	AvailableFileDescriptors() int
}
