package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/cvforge/cvforge/pkg/models"
	"github.com/cvforge/cvforge/pkg/upstream"
)

// Outcome is the result of a single upstream attempt. Kind is KindNone on
// success.
type Outcome struct {
	Kind    models.ErrorKind
	Text    string
	Status  int
	Quality float64
	Err     error
}

// attempt performs one call and classifies the result.
func (d *Dispatcher) attempt(ctx context.Context, body models.ChatCompletionRequest) Outcome {
	resp, err := d.client.Complete(ctx, body)
	if err != nil {
		return classifyError(ctx, err)
	}
	return classifyResponse(resp)
}

func classifyError(ctx context.Context, err error) Outcome {
	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return Outcome{Kind: models.KindCanceled, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return Outcome{Kind: models.KindTimeout, Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return Outcome{Kind: models.KindTimeout, Err: err}
	}
	return Outcome{Kind: models.KindTransient, Err: err}
}

func classifyResponse(resp *upstream.Response) Outcome {
	status := resp.StatusCode
	var parsed models.ChatCompletionResponse
	decodeErr := json.Unmarshal(resp.Body, &parsed)

	switch {
	case status == http.StatusTooManyRequests:
		return Outcome{Kind: models.KindRateLimited, Status: status, Err: statusError(status, parsed.Error)}
	case status == http.StatusRequestTimeout || status >= 500:
		return Outcome{Kind: models.KindTransient, Status: status, Err: statusError(status, parsed.Error)}
	case status < 200 || status > 299:
		kind := models.KindMalformed
		if parsed.Error != nil && mentionsRateLimit(parsed.Error.Message) {
			kind = models.KindRateLimited
		}
		return Outcome{Kind: kind, Status: status, Err: statusError(status, parsed.Error)}
	}

	if decodeErr != nil {
		return Outcome{Kind: models.KindMalformed, Status: status, Err: fmt.Errorf("decode response: %w", decodeErr)}
	}
	if parsed.Error != nil {
		kind := models.KindMalformed
		if mentionsRateLimit(parsed.Error.Message) {
			kind = models.KindRateLimited
		}
		return Outcome{Kind: kind, Status: status, Err: fmt.Errorf("upstream error: %s", parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 {
		return Outcome{Kind: models.KindMalformed, Status: status, Err: errors.New("response has no choices")}
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return Outcome{Kind: models.KindMalformed, Status: status, Err: errors.New("empty completion")}
	}
	return Outcome{Kind: models.KindNone, Status: status, Text: text}
}

func statusError(status int, apiErr *models.APIError) error {
	if apiErr != nil && apiErr.Message != "" {
		return fmt.Errorf("upstream status %d: %s", status, apiErr.Message)
	}
	return fmt.Errorf("upstream status %d", status)
}

var rateLimitMarkers = []string{"rate limit", "rate-limit", "ratelimit", "quota", "too many requests"}

func mentionsRateLimit(msg string) bool {
	msg = strings.ToLower(msg)
	for _, m := range rateLimitMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
