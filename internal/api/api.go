// Package api is the Slack Web API layer: it builds request URLs, attaches
// workspace credentials, decodes JSON envelopes and follows cursor
// pagination. Every call suspends through the scheduler, so many API
// operations can be in flight at once.
package api

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/kelsos/slack-bridge/internal/config"
	"github.com/kelsos/slack-bridge/internal/logger"
	"github.com/kelsos/slack-bridge/internal/sched"
	"github.com/kelsos/slack-bridge/internal/transport"
)

const clientVersion = "1.0.0"

// Client performs Slack Web API calls for one workspace.
type Client struct {
	transport *transport.Client
	config    *config.Config
}

// NewClient creates an API client with the given transport and
// configuration.
func NewClient(t *transport.Client, cfg *config.Config) *Client {
	return &Client{
		transport: t,
		config:    cfg,
	}
}

// requestOptions returns the host process options carrying the workspace
// credentials.
func (c *Client) requestOptions() map[string]string {
	options := map[string]string{
		"useragent":  fmt.Sprintf("slack-bridge %s", clientVersion),
		"httpheader": fmt.Sprintf("Authorization: Bearer %s", c.config.Token),
	}
	if c.config.Cookie != "" {
		options["cookie"] = fmt.Sprintf("d=%s", c.config.Cookie)
	}
	return options
}

// Fetch calls a single API method and decodes the JSON response.
func (c *Client) Fetch(co *sched.Coroutine, method string, params url.Values) (map[string]any, error) {
	requestURL := fmt.Sprintf("%s/%s?%s", c.config.BaseURL, method, params.Encode())

	body, err := c.transport.Request(co, requestURL, c.requestOptions(), c.config.Timeout*1000, c.config.MaxRetries)
	if err != nil {
		return nil, err
	}

	var response map[string]any
	if err := json.Unmarshal([]byte(body), &response); err != nil {
		return nil, fmt.Errorf("error decoding %s response: %w", method, err)
	}

	return response, nil
}

// ListCall fetches one page for FetchList.
type ListCall func(co *sched.Coroutine, params url.Values) (map[string]any, error)

// FetchList invokes call and follows the response's cursor to assemble the
// complete list under listKey. pages limits how many pages are fetched;
// zero or negative means all pages. The returned mapping is the first
// page's response with the list extended in place; metadata from later
// pages is discarded.
func FetchList(co *sched.Coroutine, call ListCall, listKey string, params url.Values, pages int) (map[string]any, error) {
	response, err := call(co, params)
	if err != nil {
		return nil, err
	}

	cursor := nextCursor(response)
	ok, _ := response["ok"].(bool)
	if pages != 1 && cursor != "" && ok {
		params.Set("cursor", cursor)
		continuation, err := FetchList(co, call, listKey, params, pages-1)
		if err != nil {
			return nil, err
		}
		list, _ := response[listKey].([]any)
		rest, _ := continuation[listKey].([]any)
		response[listKey] = append(list, rest...)
	}

	return response, nil
}

// FetchList calls a paginated API method, following cursors per the
// package-level FetchList.
func (c *Client) FetchList(co *sched.Coroutine, method, listKey string, params url.Values, pages int) (map[string]any, error) {
	logger.Debug("Fetching %s (key %s, pages %d)", method, listKey, pages)
	return FetchList(co, func(co *sched.Coroutine, params url.Values) (map[string]any, error) {
		return c.Fetch(co, method, params)
	}, listKey, params, pages)
}

func nextCursor(response map[string]any) string {
	metadata, _ := response["response_metadata"].(map[string]any)
	cursor, _ := metadata["next_cursor"].(string)
	return cursor
}

// decodeInto converts a decoded JSON mapping into a typed envelope.
func decodeInto[T any](response map[string]any) (*T, error) {
	raw, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("error re-encoding response: %w", err)
	}

	var result T
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("error decoding response envelope: %w", err)
	}

	return &result, nil
}
