// Package transport performs URL fetches through the host's process
// facility and classifies the outcome: transient failures are retried a
// bounded number of times, server rate limiting is honored indefinitely,
// HTTP status faults surface as typed errors.
package transport

import (
	"fmt"
	"maps"
	"net/http"
	"strconv"
	"strings"

	"github.com/kelsos/slack-bridge/internal/bridge"
	"github.com/kelsos/slack-bridge/internal/host"
	"github.com/kelsos/slack-bridge/internal/logger"
	"github.com/kelsos/slack-bridge/internal/sched"
)

// retryDelayMs is the fixed wait between retries of transient failures.
const retryDelayMs = 1000

// HTTPError is a classified request failure. HTTPStatus is 0 when the
// host-level call itself failed before any HTTP status was obtained.
type HTTPError struct {
	URL        string
	ReturnCode int
	HTTPStatus int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.HTTPStatus == 0 {
		return fmt.Sprintf("request to %s failed with return code %d: %s", e.URL, e.ReturnCode, e.Body)
	}
	return fmt.Sprintf("request to %s failed with HTTP status %d: %s", e.URL, e.HTTPStatus, e.Body)
}

// Client issues HTTP requests over a host bridge.
type Client struct {
	bridge *bridge.Bridge
}

// NewClient creates a transport client over the given bridge.
func NewClient(b *bridge.Bridge) *Client {
	return &Client{bridge: b}
}

// Request fetches url and returns the response body. Host-level failures
// are retried up to maxRetries times with a fixed delay; 429 responses
// carrying a Retry-After header are retried after the requested delay
// without consuming the retry budget, indefinitely if the server keeps
// throttling. A status of 400 or above is returned as an *HTTPError.
func (c *Client) Request(co *sched.Coroutine, url string, options map[string]string, timeoutMs, maxRetries int) (string, error) {
	opts := make(map[string]string, len(options)+1)
	maps.Copy(opts, options)
	opts["header"] = "1"

	retries := maxRetries
	for {
		result := c.bridge.SpawnProcess(co, host.URLCommandPrefix+url, opts, timeoutMs)

		if result.ReturnCode != 0 || result.Stderr != "" {
			if retries > 0 {
				logger.Info("HTTP error, retrying (%d attempts left): return_code: %d, error: %s, url: %s",
					retries, result.ReturnCode, result.Stderr, url)
				c.bridge.Sleep(co, retryDelayMs)
				retries--
				continue
			}
			return "", &HTTPError{URL: url, ReturnCode: result.ReturnCode, HTTPStatus: 0, Body: result.Stderr}
		}

		status, headers, body, err := ParseResponse(result.Stdout)
		if err != nil {
			return "", fmt.Errorf("malformed response from %s: %w", url, err)
		}

		if status == http.StatusTooManyRequests {
			if seconds, ok := retryAfter(headers); ok {
				logger.Info("HTTP ratelimit, retrying in %d seconds, url: %s", seconds, url)
				c.bridge.Sleep(co, seconds*1000)
				// Rate-limit waits do not consume the retry budget.
				retries = maxRetries
				continue
			}
		}

		if status >= http.StatusBadRequest {
			return "", &HTTPError{URL: url, ReturnCode: result.ReturnCode, HTTPStatus: status, Body: body}
		}

		return body, nil
	}
}

// ParseResponse splits raw output on the first blank-line boundary into
// the HTTP status, the header lines following the status line, and the
// body.
func ParseResponse(raw string) (int, []string, string, error) {
	head, body, found := strings.Cut(raw, "\r\n\r\n")
	if !found {
		return 0, nil, "", fmt.Errorf("no header/body boundary in response")
	}

	headers := strings.Split(head, "\r\n")
	fields := strings.Fields(headers[0])
	if len(fields) < 2 {
		return 0, nil, "", fmt.Errorf("malformed status line: %q", headers[0])
	}

	status, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, nil, "", fmt.Errorf("malformed status code in %q: %w", headers[0], err)
	}

	return status, headers[1:], body, nil
}

// retryAfter scans header lines for an integer Retry-After value.
func retryAfter(headers []string) (int, bool) {
	for _, header := range headers {
		name, value, found := strings.Cut(header, ":")
		if !found {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), "Retry-After") {
			if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				return seconds, true
			}
		}
	}
	return 0, false
}
