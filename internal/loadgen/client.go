package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrStatus reports an unexpected HTTP status.
var ErrStatus = errors.New("unexpected status")

type client struct {
	base string
	http *http.Client
}

func newClient(base string, timeout time.Duration) *client {
	return &client{base: base, http: &http.Client{Timeout: timeout}}
}

func (c *client) do(ctx context.Context, method, path string, body, out any, want ...int) (int, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	ok := false
	for _, code := range want {
		ok = ok || resp.StatusCode == code
	}
	if !ok {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("%s %s: %w %d: %s", method, path, ErrStatus, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

func (c *client) health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK)
	return err
}

func (c *client) submit(ctx context.Context, m Match) (ack, error) {
	var a ack
	_, err := c.do(ctx, http.MethodPost, "/matches", m, &a, http.StatusAccepted, http.StatusOK)
	return a, err
}

func (c *client) queueLength(ctx context.Context) (int, error) {
	var stats struct {
		QueueLength int `json:"queueLength"`
	}
	_, err := c.do(ctx, http.MethodGet, "/stats", nil, &stats, http.StatusOK)
	return stats.QueueLength, err
}

func (c *client) leaderboard(ctx context.Context, window string, n int) ([]Entry, error) {
	q := url.Values{"window": {window}, "limit": {strconv.Itoa(n)}}
	var lb leaderboard
	_, err := c.do(ctx, http.MethodGet, "/leaderboard?"+q.Encode(), nil, &lb, http.StatusOK)
	return lb.Entries, err
}

func (c *client) player(ctx context.Context, id, window string) (Entry, error) {
	var e Entry
	path := "/players/" + url.PathEscape(id) + "?" + url.Values{"window": {window}}.Encode()
	_, err := c.do(ctx, http.MethodGet, path, nil, &e, http.StatusOK)
	return e, err
}
