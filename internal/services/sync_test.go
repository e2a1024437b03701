package services

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelsos/slack-bridge/internal/api"
	"github.com/kelsos/slack-bridge/internal/bridge"
	"github.com/kelsos/slack-bridge/internal/config"
	"github.com/kelsos/slack-bridge/internal/host"
	"github.com/kelsos/slack-bridge/internal/host/hosttest"
	"github.com/kelsos/slack-bridge/internal/sched"
	"github.com/kelsos/slack-bridge/internal/storage"
	"github.com/kelsos/slack-bridge/internal/transport"
)

func jsonEvent(t *testing.T, payload map[string]any) []host.ProcessEvent {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return []host.ProcessEvent{{
		ReturnCode: 0,
		Stdout:     "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\n\r\n" + string(raw),
	}}
}

func respondWorkspace(t *testing.T) func(req hosttest.SpawnRequest) []host.ProcessEvent {
	t.Helper()
	return func(req hosttest.SpawnRequest) []host.ProcessEvent {
		switch {
		case strings.Contains(req.Command, "/auth.test"):
			return jsonEvent(t, map[string]any{
				"ok": true, "team": "Acme", "user": "alice",
			})

		case strings.Contains(req.Command, "/users.conversations"):
			return jsonEvent(t, map[string]any{
				"ok": true,
				"channels": []any{
					map[string]any{"id": "C1", "name": "general"},
					map[string]any{"id": "C2", "name": "random"},
				},
				"response_metadata": map[string]any{"next_cursor": ""},
			})

		case strings.Contains(req.Command, "channel=C1"):
			return jsonEvent(t, map[string]any{
				"ok": true,
				"messages": []any{
					map[string]any{"type": "message", "user": "U1", "text": "newer", "ts": "2.0"},
					map[string]any{"type": "message", "user": "U2", "text": "older", "ts": "1.0"},
				},
			})

		case strings.Contains(req.Command, "channel=C2"):
			return jsonEvent(t, map[string]any{
				"ok":       true,
				"messages": []any{},
			})

		default:
			t.Errorf("unexpected request: %s", req.Command)
			return []host.ProcessEvent{{ReturnCode: 0, Stdout: "HTTP/1.1 404 Not Found\r\n\r\nunexpected request"}}
		}
	}
}

func newTestSync(h *hosttest.Fake) (*sched.Scheduler, *SyncService) {
	cfg := config.NewConfig()
	cfg.Token = "xoxb-test"
	cfg.Workspace = "acme"

	scheduler := sched.New()
	apiClient := api.NewClient(transport.NewClient(bridge.New(h)), cfg)
	return scheduler, NewSyncService(cfg, apiClient, scheduler)
}

func TestSyncWorkspaceFetchesAllConversations(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	h := hosttest.New()
	h.Respond = respondWorkspace(t)
	scheduler, service := newTestSync(h)

	var summary *SyncSummary
	var err error
	h.Drive(scheduler, func(co *sched.Coroutine) (any, error) {
		summary, err = service.SyncWorkspace(co, "public_channel", -1)
		return nil, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Conversations)
	assert.Equal(t, 2, summary.Messages)
	assert.Equal(t, 0, summary.Failed)

	// The newest timestamp was persisted for the next incremental fetch.
	marker, err := storage.LoadMarker("acme", "C1")
	require.NoError(t, err)
	assert.Equal(t, "2.0", marker)

	// An empty conversation leaves no marker.
	marker, err = storage.LoadMarker("acme", "C2")
	require.NoError(t, err)
	assert.Empty(t, marker)
}

func TestSyncWorkspaceCountsFailedConversations(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	h := hosttest.New()
	base := respondWorkspace(t)
	h.Respond = func(req hosttest.SpawnRequest) []host.ProcessEvent {
		if strings.Contains(req.Command, "channel=C2") {
			return []host.ProcessEvent{{
				ReturnCode: 0,
				Stdout:     "HTTP/1.1 500 Internal Server Error\r\n\r\nserver exploded",
			}}
		}
		return base(req)
	}
	scheduler, service := newTestSync(h)

	var summary *SyncSummary
	var err error
	h.Drive(scheduler, func(co *sched.Coroutine) (any, error) {
		summary, err = service.SyncWorkspace(co, "public_channel", -1)
		return nil, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Conversations)
	assert.Equal(t, 2, summary.Messages)
	assert.Equal(t, 1, summary.Failed)
}
