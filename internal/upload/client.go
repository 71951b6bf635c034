// Package upload posts DICOM payloads to a storage endpoint.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"

	"github.com/mrsinham/dicomsend/internal/metrics"
)

const (
	ContentType = "application/dicom"

	DefaultRetries    = 3
	DefaultRetryDelay = 100 * time.Millisecond
)

// StatusError is returned when the server answers with anything but 200.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return "server returned " + e.Status
	}
	return fmt.Sprintf("server returned status %d", e.Code)
}

// Options configures a Client.
type Options struct {
	// Retries is the number of attempts after the first failing one.
	Retries    int
	RetryDelay time.Duration
	// Timeout bounds each attempt. Zero means no timeout.
	Timeout     time.Duration
	Headers     map[string]string
	BearerToken string
	// Cookies are sent with every request in addition to those the
	// server sets during the session.
	Cookies map[string]string

	Log     zerolog.Logger
	Metrics *metrics.Recorder
	// Transport overrides the default HTTP transport.
	Transport http.RoundTripper
}

// DefaultOptions returns three retries spaced 100ms apart.
func DefaultOptions() Options {
	return Options{Retries: DefaultRetries, RetryDelay: DefaultRetryDelay, Log: zerolog.Nop()}
}

// Client uploads with a fixed-delay retry and a persistent cookie jar.
type Client struct {
	http *http.Client
	opts Options
}

// New returns a Client for opts backed by a public-suffix aware cookie jar.
func New(opts Options) (*Client, error) {
	if opts.Retries < 0 {
		return nil, errors.New("retries must not be negative")
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		http: &http.Client{Jar: jar, Timeout: opts.Timeout, Transport: opts.Transport},
		opts: opts,
	}, nil
}

// Post sends body to url. It succeeds only on status 200; any other status
// or transport error is retried up to Retries times, after which the last
// error is returned.
func (c *Client) Post(ctx context.Context, url string, body []byte) error {
	attempt := 0
	op := func() error {
		attempt++
		err := c.post(ctx, url, body)
		if err == nil {
			c.opts.Metrics.UploadAttempt("ok")
			return nil
		}
		c.opts.Metrics.UploadAttempt("error")
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.opts.RetryDelay), uint64(c.opts.Retries)),
		ctx,
	)
	err := backoff.RetryNotify(op, b, func(err error, next time.Duration) {
		c.opts.Log.Warn().Err(err).Str("url", url).Int("attempt", attempt).Dur("retry_in", next).Msg("upload failed, retrying")
	})
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", ContentType)
	for k, v := range c.opts.Headers {
		req.Header.Set(k, v)
	}
	if c.opts.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.BearerToken)
	}
	for name, value := range c.opts.Cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
	return nil
}
