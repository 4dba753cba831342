package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/harness/package-migrator/module/migrate/http/modifier"
	"github.com/harness/package-migrator/util/common/errors"
)

const userAgent = "package-migrator"

// Client is a util for the HTTP operations the migrator needs: JSON reads
// against the provider API and streaming artifact downloads.
type Client struct {
	modifiers []modifier.Modifier
	client    *retryablehttp.Client
}

// Option configures a Client.
type Option func(*retryablehttp.Client)

// WithHTTPClient replaces the underlying net/http client.
func WithHTTPClient(c *http.Client) Option {
	return func(rc *retryablehttp.Client) { rc.HTTPClient = c }
}

// WithRetryMax sets how many times a request is re-sent on connection errors,
// 429 and 5xx responses before the status is handed back to the caller.
func WithRetryMax(n int) Option {
	return func(rc *retryablehttp.Client) { rc.RetryMax = n }
}

// WithRetryWait bounds the wait between re-sends.
func WithRetryWait(min, max time.Duration) Option {
	return func(rc *retryablehttp.Client) {
		rc.RetryWaitMin = min
		rc.RetryWaitMax = max
	}
}

// WithLogger routes the retry logging of the client through l.
func WithLogger(l zerolog.Logger) Option {
	return func(rc *retryablehttp.Client) { rc.Logger = leveledLogger{l} }
}

// NewClient creates an instance of Client.
// Modifiers modify the request before sending it.
func NewClient(modifiers []modifier.Modifier, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = leveledLogger{log.Logger}
	// the final response is handed back so its status can be classified
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{modifiers: modifiers, client: rc}
}

// Do sends req after applying the modifiers.
func (c *Client) Do(req *retryablehttp.Request) (*http.Response, error) {
	for _, m := range c.modifiers {
		if err := m.Modify(req.Request); err != nil {
			return nil, err
		}
	}
	req.Header.Set("User-Agent", userAgent)
	return c.client.Do(req)
}

// GetJSON fetches url and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	op := fmt.Sprintf("GET %s", url)
	resp, err := c.get(ctx, op, url, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}

// Download streams url into the file at dst and returns the number of bytes
// written. A partially written file is removed on failure.
func (c *Client) Download(ctx context.Context, url, dst string) (int64, error) {
	op := fmt.Sprintf("GET %s", url)
	resp, err := c.get(ctx, op, url, "")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, errors.NewFileError(dst, "create", err)
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return 0, errors.NewTransientError(op, err)
	}
	return n, nil
}

func (c *Client) get(ctx context.Context, op, url, accept string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.NewTransientError(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.FromStatus(op, resp.StatusCode, string(body))
	}
	return resp, nil
}

// leveledLogger adapts zerolog to retryablehttp.LeveledLogger. Request
// failures are retried or classified by the caller, so they log as warnings.
type leveledLogger struct {
	l zerolog.Logger
}

func (z leveledLogger) Error(msg string, kv ...interface{}) { z.l.Warn().Fields(kv).Msg(msg) }
func (z leveledLogger) Info(msg string, kv ...interface{})  { z.l.Debug().Fields(kv).Msg(msg) }
func (z leveledLogger) Debug(msg string, kv ...interface{}) { z.l.Trace().Fields(kv).Msg(msg) }
func (z leveledLogger) Warn(msg string, kv ...interface{})  { z.l.Warn().Fields(kv).Msg(msg) }
