// Package client talks to the conversation HTTP API. Client implements
// conversation.Backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rbaliyan/conversation/api"
	"github.com/rbaliyan/conversation/retry"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Client is an HTTP client of the conversation API. It is safe for
// concurrent use.
type Client struct {
	base   string
	opts   *options
	http   *http.Client
	logger *slog.Logger
}

// New returns a client of the API served at baseURL.
func New(baseURL string, opts ...Option) *Client {
	o := newOptions(opts...)
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		opts:   o,
		http:   o.httpClient,
		logger: o.logger,
	}
	if o.retry != nil && o.retry.OnRetry == nil {
		o.retry.OnRetry = func(attempt int, err error, wait time.Duration) {
			c.logger.Warn("retrying request", "attempt", attempt, "wait", wait, "error", err)
		}
	}
	return c
}

// route fills the {name} parameters of a route template, escaping values.
func route(tmpl string, params ...string) string {
	for i := 0; i+1 < len(params); i += 2 {
		tmpl = strings.Replace(tmpl, "{"+params[i]+"}", url.PathEscape(params[i+1]), 1)
	}
	return tmpl
}

func (c *Client) url(path string, query url.Values) string {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do sends a JSON request and decodes a JSON response into out, unless out
// is nil. Idempotent requests are retried when WithRetry is set.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("client: encode %s %s: %w", method, path, err)
		}
	}

	call := func(ctx context.Context) error {
		var r io.Reader
		if payload != nil {
			r = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), r)
		if err != nil {
			return fmt.Errorf("client: %s %s: %w", method, path, err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return c.send(req, out)
	}

	if c.opts.retry == nil || method == http.MethodPost {
		return call(ctx)
	}
	return retry.Do(ctx, *c.opts.retry, call)
}

// send runs req and decodes the response.
func (c *Client) send(req *http.Request, out any) error {
	c.authorize(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return retry.Transient(fmt.Errorf("client: %s %s: %w", req.Method, req.URL.Path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if token := c.opts.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// decodeError turns a non-2xx response into an *api.Error, reading the
// message from the JSON error field when there is one.
func decodeError(resp *http.Response) error {
	e := &api.Error{Status: resp.StatusCode}
	if s := resp.Header.Get("Retry-After"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			e.RetryAfter = n
		}
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body api.ErrorBody
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		e.Message = body.Error
	} else {
		e.Message = strings.TrimSpace(string(data))
	}
	return e
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

func hasStatus(err error, status int) bool {
	var e *api.Error
	return errors.As(err, &e) && e.Status == status
}
