package host

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kelsos/slack-bridge/internal/logger"
)

// URLCommandPrefix marks a command as a URL fetch request.
const URLCommandPrefix = "url:"

// event is one queued callback delivery.
type event struct {
	callbackID string
	payload    any
	invoke     func()
}

// Local provides the host primitives using the standard runtime: timers via
// time.AfterFunc, URL fetches via net/http and other commands via os/exec.
// Completions are queued and drained by Run on a single goroutine, so the
// dispatch entry point is never invoked concurrently.
type Local struct {
	events chan event
	quit   chan struct{}
	once   sync.Once
}

// NewLocal creates a local host. Call Run to start delivering callbacks.
func NewLocal() *Local {
	return &Local{
		events: make(chan event, 256),
		quit:   make(chan struct{}),
	}
}

// Run drains the event queue, invoking dispatch for every completed
// callback. It blocks until Stop is called.
func (h *Local) Run(dispatch func(callbackID string, payload any)) {
	for {
		select {
		case <-h.quit:
			return
		case ev := <-h.events:
			if ev.invoke != nil {
				ev.invoke()
				continue
			}
			dispatch(ev.callbackID, ev.payload)
		}
	}
}

// Stop terminates the dispatch loop. Safe to call from any goroutine.
func (h *Local) Stop() {
	h.once.Do(func() {
		close(h.quit)
	})
}

// Invoke queues fn to run on the dispatch goroutine. Used to launch the
// initial task from the same context host callbacks are delivered in.
func (h *Local) Invoke(fn func()) {
	h.events <- event{invoke: fn}
}

func (h *Local) emit(callbackID string, payload any) {
	select {
	case h.events <- event{callbackID: callbackID, payload: payload}:
	case <-h.quit:
	}
}

// RunTimer fires one callback after delayMs milliseconds.
func (h *Local) RunTimer(delayMs int, callbackID string) {
	time.AfterFunc(time.Duration(delayMs)*time.Millisecond, func() {
		h.emit(callbackID, 0)
	})
}

// RunProcess executes a command asynchronously, delivering one or more
// ProcessEvent payloads under callbackID.
func (h *Local) RunProcess(command string, options map[string]string, timeoutMs int, callbackID string) {
	if target, ok := strings.CutPrefix(command, URLCommandPrefix); ok {
		go h.fetchURL(command, target, options, timeoutMs, callbackID)
		return
	}
	go h.runCommand(command, timeoutMs, callbackID)
}

// AvailableFileDescriptors reports remaining file descriptor headroom from
// the open descriptor count and RLIMIT_NOFILE.
func (h *Local) AvailableFileDescriptors() int {
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		// No descriptor accounting on this platform; report plenty of
		// headroom so callers never throttle.
		return 1 << 16
	}

	var limit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &limit); err != nil {
		return 1 << 16
	}

	maxFDs := limit.Cur
	if limit.Max < maxFDs {
		maxFDs = limit.Max
	}
	return int(maxFDs) - len(entries)
}

// fetchURL performs a URL fetch and delivers a single final event. The raw
// output mirrors wire framing: when the header option is set, the status
// line and header block precede the body, separated by a blank line.
func (h *Local) fetchURL(command, target string, options map[string]string, timeoutMs int, callbackID string) {
	start := time.Now()
	logger.Debug("Starting fetch of %s (%s)", target, callbackID)

	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		h.emit(callbackID, ProcessEvent{Command: command, ReturnCode: 1, Stderr: err.Error()})
		return
	}

	if ua := options["useragent"]; ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	if cookie := options["cookie"]; cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	for _, line := range strings.Split(options["httpheader"], "\n") {
		if name, value, ok := strings.Cut(line, ":"); ok {
			req.Header.Set(strings.TrimSpace(name), strings.TrimSpace(value))
		}
	}

	client := &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond}
	resp, err := client.Do(req)
	if err != nil {
		elapsed := time.Since(start)
		logger.Error("Fetch of %s failed after %v: %v", target, elapsed, err)
		h.emit(callbackID, ProcessEvent{Command: command, ReturnCode: 1, Stderr: err.Error()})
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		h.emit(callbackID, ProcessEvent{Command: command, ReturnCode: 1, Stderr: err.Error()})
		return
	}

	elapsed := time.Since(start)
	logger.Debug("Fetch of %s completed in %v with status %d", target, elapsed, resp.StatusCode)

	out := string(body)
	if options["header"] == "1" {
		out = frameResponse(resp, body)
	}
	h.emit(callbackID, ProcessEvent{Command: command, ReturnCode: 0, Stdout: out})
}

// frameResponse reconstructs status-line + header-block + blank-line + body
// framing from a parsed response.
func frameResponse(resp *http.Response, body []byte) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\r\n", resp.Proto, resp.Status)
	for name, values := range resp.Header {
		for _, value := range values {
			fmt.Fprintf(&sb, "%s: %s\r\n", name, value)
		}
	}
	sb.WriteString("\r\n")
	sb.Write(body)
	return sb.String()
}

// runCommand executes a shell command, streaming output as intermediary
// events and finishing with the exit code.
func (h *Local) runCommand(command string, timeoutMs int, callbackID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	// #nosec G204 - commands come from the host bridge, not end users
	cmd := exec.CommandContext(ctx, "sh", "-c", command)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		h.emit(callbackID, ProcessEvent{Command: command, ReturnCode: 1, Stderr: err.Error()})
		return
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		h.emit(callbackID, ProcessEvent{Command: command, ReturnCode: 1, Stderr: err.Error()})
		return
	}

	if err := cmd.Start(); err != nil {
		h.emit(callbackID, ProcessEvent{Command: command, ReturnCode: 1, Stderr: err.Error()})
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go h.streamOutput(command, callbackID, stdout, false, &wg)
	go h.streamOutput(command, callbackID, stderr, true, &wg)
	wg.Wait()

	returnCode := 0
	if err := cmd.Wait(); err != nil {
		returnCode = cmd.ProcessState.ExitCode()
		if returnCode < 0 {
			returnCode = 1
		}
	}
	h.emit(callbackID, ProcessEvent{Command: command, ReturnCode: returnCode})
}

// streamOutput forwards chunks of process output as intermediary events.
func (h *Local) streamOutput(command, callbackID string, r io.Reader, isStderr bool, wg *sync.WaitGroup) {
	defer wg.Done()

	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			ev := ProcessEvent{Command: command, ReturnCode: MoreOutput}
			if isStderr {
				ev.Stderr = string(buf[:n])
			} else {
				ev.Stdout = string(buf[:n])
			}
			logger.Trace("Process output fragment (%s): %d bytes", callbackID, n)
			h.emit(callbackID, ev)
		}
		if err != nil {
			return
		}
	}
}
