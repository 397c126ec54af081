package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"crm-sync-service/internal/config"
)

// Response is the body-read result of one HTTP exchange.
type Response struct {
	StatusCode int
	Body       []byte
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// Operation performs a single outbound exchange. It must build the request
// from scratch so the caller can safely replay it.
type Operation func(ctx context.Context) (*Response, error)

// Caller wraps every outbound call to either external API. Throttling (429)
// is retried with bounded exponential backoff; transport failures are retried
// immediately a small fixed number of times; any other non-success response
// is returned as a typed failure without retrying.
type Caller struct {
	maxAttempts      int
	baseDelay        time.Duration
	maxDelay         time.Duration
	transportRetries int
	sleep            func(time.Duration)
}

func NewCaller(cfg config.CallerConfig) *Caller {
	return &Caller{
		maxAttempts:      cfg.MaxAttempts,
		baseDelay:        cfg.BaseDelay,
		maxDelay:         cfg.MaxDelay,
		transportRetries: cfg.TransportRetries,
		sleep:            time.Sleep,
	}
}

// WithSleep replaces the delay function. Tests inject a recorder here.
func (c *Caller) WithSleep(sleep func(time.Duration)) *Caller {
	c.sleep = sleep
	return c
}

// Do runs op until it yields a terminal outcome. Terminal outcomes are a
// success response, an APIError, a TransportError after the immediate-retry
// budget, a ThrottleExhaustedError after the backoff budget, or context
// cancellation. It never loops forever.
func (c *Caller) Do(ctx context.Context, op string, fn Operation) (*Response, error) {
	throttled := 0
	transportFailures := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := fn(ctx)
		if err != nil {
			transportFailures++
			if transportFailures > c.transportRetries {
				slog.Error("Transport retries exhausted", "op", op, "retries", c.transportRetries, "error", err)
				return nil, &TransportError{Op: op, Err: err}
			}
			slog.Warn("Transport failure, retrying immediately", "op", op, "attempt", transportFailures, "error", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			throttled++
			if throttled >= c.maxAttempts {
				slog.Error("Rate limit retries exhausted", "op", op, "attempts", throttled)
				return nil, &ThrottleExhaustedError{Op: op, Attempts: throttled}
			}
			delay := c.backoff(throttled - 1)
			slog.Warn("Rate limit exceeded, backing off", "op", op, "attempt", throttled, "delay", delay)
			c.sleep(delay)
			continue
		}

		if !resp.IsSuccess() {
			apiErr := &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(resp.Body)}
			slog.Error("Request failed", "op", op, "status_code", resp.StatusCode, "body", string(resp.Body))
			return resp, apiErr
		}

		return resp, nil
	}
}

// backoff returns base*2^attempt capped at the configured ceiling.
func (c *Caller) backoff(attempt int) time.Duration {
	delay := c.baseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	if delay > c.maxDelay {
		return c.maxDelay
	}
	return delay
}
