package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelsos/slack-bridge/internal/host"
	"github.com/kelsos/slack-bridge/internal/host/hosttest"
	"github.com/kelsos/slack-bridge/internal/sched"
)

func TestSleepRegistersTimerAndResumes(t *testing.T) {
	h := hosttest.New()
	s := sched.New()
	b := New(h)

	resumed := false
	h.Drive(s, func(co *sched.Coroutine) (any, error) {
		b.Sleep(co, 250)
		resumed = true
		return nil, nil
	})

	assert.True(t, resumed)
	assert.Equal(t, []int{250}, h.Timers)
}

func TestSpawnProcessReassemblesFragments(t *testing.T) {
	h := hosttest.New()
	h.Respond = func(req hosttest.SpawnRequest) []host.ProcessEvent {
		return []host.ProcessEvent{
			{Command: req.Command, ReturnCode: host.MoreOutput, Stdout: "Hel"},
			{Command: req.Command, ReturnCode: host.MoreOutput, Stdout: "lo", Stderr: "warn"},
			{Command: req.Command, ReturnCode: 0, Stdout: "!"},
		}
	}
	s := sched.New()
	b := New(h)

	var result host.ProcessEvent
	h.Drive(s, func(co *sched.Coroutine) (any, error) {
		result = b.SpawnProcess(co, "echo hello", nil, 1000)
		return nil, nil
	})

	assert.Equal(t, "echo hello", result.Command)
	assert.Equal(t, 0, result.ReturnCode)
	assert.Equal(t, "Hello!", result.Stdout)
	assert.Equal(t, "warn", result.Stderr)
}

func TestSpawnProcessThrottlesOnLowHeadroom(t *testing.T) {
	h := hosttest.New()
	h.Respond = func(req hosttest.SpawnRequest) []host.ProcessEvent {
		return []host.ProcessEvent{{Command: req.Command, ReturnCode: 0, Stdout: "ok"}}
	}

	// Headroom recovers after three polls.
	polls := 0
	h.HeadroomFunc = func() int {
		polls++
		if polls <= 3 {
			return 5
		}
		return 100
	}

	s := sched.New()
	b := New(h)

	var result host.ProcessEvent
	h.Drive(s, func(co *sched.Coroutine) (any, error) {
		result = b.SpawnProcess(co, "cmd", nil, 1000)
		return nil, nil
	})

	require.Equal(t, 0, result.ReturnCode)
	assert.Equal(t, []int{10, 10, 10}, h.Timers)
	require.Len(t, h.Spawns, 1)
}

func TestSpawnProcessPassesOptionsAndTimeout(t *testing.T) {
	h := hosttest.New()
	h.Respond = func(req hosttest.SpawnRequest) []host.ProcessEvent {
		return []host.ProcessEvent{{Command: req.Command, ReturnCode: 0}}
	}
	s := sched.New()
	b := New(h)

	options := map[string]string{"useragent": "test"}
	h.Drive(s, func(co *sched.Coroutine) (any, error) {
		b.SpawnProcess(co, "cmd", options, 5000)
		return nil, nil
	})

	require.Len(t, h.Spawns, 1)
	assert.Equal(t, "cmd", h.Spawns[0].Command)
	assert.Equal(t, "test", h.Spawns[0].Options["useragent"])
	assert.Equal(t, 5000, h.Spawns[0].TimeoutMs)
}
