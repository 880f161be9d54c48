// Package engine talks to the media-generation engine over its HTTP API:
// health probe, pipeline submission and history polling.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	v0 "mediabridge/internal/contracts/engine/v0"
	"mediabridge/internal/pkg/errors"
	"mediabridge/internal/pkg/logger"
)

// SleepFunc suspends the caller between attempts. It returns early with the
// context error when ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type HTTPClient struct {
	baseURL string
	client  *http.Client
	log     *logger.Logger
	sleep   SleepFunc
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.client = hc }
}

func WithLogger(log *logger.Logger) Option {
	return func(c *HTTPClient) { c.log = log }
}

// WithSleep replaces the wait between probe and poll attempts.
func WithSleep(fn SleepFunc) Option {
	return func(c *HTTPClient) { c.sleep = fn }
}

func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     logger.NewDefault(),
		sleep:   Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithComponent("engine")
	return c
}

func (c *HTTPClient) BaseURL() string { return c.baseURL }

// Probe issues up to attempts GET requests on the engine root and reports
// whether one of them answered 200. Transport errors count as a failed
// attempt. It waits interval between attempts, never after the last one.
func (c *HTTPClient) Probe(ctx context.Context, attempts int, interval time.Duration) bool {
	for i := 1; i <= attempts; i++ {
		if c.healthy(ctx) {
			c.log.Info("engine API is reachable", "attempt", i)
			return true
		}
		if i == attempts {
			break
		}
		if err := c.sleep(ctx, interval); err != nil {
			c.log.Warn("engine probe interrupted", "attempt", i, "error", err.Error())
			return false
		}
	}

	c.log.Warn("failed to connect to engine",
		"url", c.baseURL,
		"attempts", attempts,
	)
	return false
}

func (c *HTTPClient) healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return false
	}
	res, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)
	return res.StatusCode == http.StatusOK
}

// Submit queues the pipeline and returns the engine's prompt_id.
func (c *HTTPClient) Submit(ctx context.Context, pipeline any) (string, error) {
	body, err := json.Marshal(v0.PromptRequest{Prompt: pipeline})
	if err != nil {
		return "", errors.WrapWithCode(err, errors.CodeSubmission, "engine.submit", "error encoding pipeline")
	}

	var out v0.PromptResponse
	if err := c.do(ctx, http.MethodPost, "/prompt", body, &out); err != nil {
		return "", errors.WrapWithCode(err, errors.CodeSubmission, "engine.submit", "error queuing pipeline")
	}
	if strings.TrimSpace(out.PromptID) == "" {
		return "", errors.New(errors.CodeSubmission, "error queuing pipeline: response has no prompt_id")
	}

	c.log.Info("queued pipeline", "prompt_id", out.PromptID)
	return out.PromptID, nil
}

// History fetches the engine history for promptID.
func (c *HTTPClient) History(ctx context.Context, promptID string) (v0.History, error) {
	var out v0.History
	if err := c.do(ctx, http.MethodGet, "/history/"+url.PathEscape(promptID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PollUntilComplete checks the history up to attempts times and returns the
// entry for promptID once it has outputs. "Not in history yet" and "running"
// both mean keep waiting. A failed history request aborts the poll.
func (c *HTTPClient) PollUntilComplete(ctx context.Context, promptID string, attempts int, interval time.Duration) (v0.HistoryEntry, error) {
	log := c.log.WithPromptID(promptID)
	log.Info("waiting until pipeline outputs are ready")

	for i := 1; i <= attempts; i++ {
		history, err := c.History(ctx, promptID)
		if err != nil {
			return v0.HistoryEntry{}, errors.WrapWithCode(err, errors.CodePoll, "engine.poll", "error waiting for pipeline outputs").
				WithField("attempt", i)
		}

		if entry, ok := history[promptID]; ok && entry.Complete() {
			log.Info("pipeline outputs ready", "attempt", i)
			return entry, nil
		}

		if i == attempts {
			break
		}
		if err := c.sleep(ctx, interval); err != nil {
			return v0.HistoryEntry{}, errors.WrapWithCode(err, errors.CodePoll, "engine.poll", "waiting for pipeline outputs canceled")
		}
	}

	return v0.HistoryEntry{}, errors.Newf(errors.CodeTimeout, "max retries reached while waiting for pipeline outputs (%d attempts)", attempts).
		WithField("prompt_id", promptID).
		WithField("attempts", attempts)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 32<<20))
	if err != nil {
		return err
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("engine http %d: %s", res.StatusCode, snippet(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode engine response: %w", err)
	}
	return nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 512 {
		s = s[:512] + "..."
	}
	return s
}

// Sleep waits d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
