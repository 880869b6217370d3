// Package upstream sends chat-completion requests to the model router.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/cvforge/cvforge/pkg/models"
)

// Options configure a Client.
type Options struct {
	URL     string
	APIKey  string
	Referer string
	Title   string
	// ConnectTimeout bounds dialing. ReadTimeout bounds the wait for
	// response headers and, together with ConnectTimeout, the whole
	// exchange including the body read.
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	// RequestsPerSecond limits outbound calls when positive.
	RequestsPerSecond float64
}

// Response is the raw result of one upstream call.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Client posts chat-completion requests. It is safe for concurrent use.
type Client struct {
	endpoint string
	opts     Options
	http     *http.Client
	limiter  *rate.Limiter
}

// New creates a Client.
func New(opts Options) (*Client, error) {
	target, err := url.Parse(opts.URL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid upstream URL %q", opts.URL)
	}

	dialer := &net.Dialer{Timeout: opts.ConnectTimeout}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = opts.ConnectTimeout
	transport.ResponseHeaderTimeout = opts.ReadTimeout

	c := &Client{
		endpoint: target.String(),
		opts:     opts,
		http:     &http.Client{Transport: transport},
	}
	if opts.RequestsPerSecond > 0 {
		burst := max(1, int(opts.RequestsPerSecond))
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c, nil
}

// Complete sends req and returns the raw response. A non-nil error means no
// complete response was received: connection failure, timeout or
// cancellation. Timeouts wrap context.DeadlineExceeded or satisfy
// net.Error.Timeout.
func (c *Client) Complete(ctx context.Context, req models.ChatCompletionRequest) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("rate limiter: %w", ctxErr)
			}
			// Wait fails early when the reservation would outlive the deadline.
			return nil, fmt.Errorf("rate limiter: %w: %v", context.DeadlineExceeded, err)
		}
	}

	if c.opts.ReadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ConnectTimeout+c.opts.ReadTimeout)
		defer cancel()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	if c.opts.Referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.opts.Referer)
	}
	if c.opts.Title != "" {
		httpReq.Header.Set("X-Title", c.opts.Title)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("read response: %w", ctxErr)
		}
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Header:     resp.Header,
	}, nil
}
