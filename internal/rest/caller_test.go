package rest

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-sync-service/internal/config"
)

func testCaller(cfg config.CallerConfig, delays *[]time.Duration) *Caller {
	return NewCaller(cfg).WithSleep(func(d time.Duration) {
		*delays = append(*delays, d)
	})
}

func TestDo_SuccessPassesThrough(t *testing.T) {
	var delays []time.Duration
	caller := testCaller(config.CallerConfig{MaxAttempts: 10, BaseDelay: 5 * time.Second, MaxDelay: 5 * time.Minute, TransportRetries: 3}, &delays)

	resp, err := caller.Do(context.Background(), "op", func(ctx context.Context) (*Response, error) {
		return &Response{StatusCode: http.StatusOK, Body: []byte(`{"ok":true}`)}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, delays, "successful call must not sleep")
}

func TestDo_PermanentThrottlingTerminates(t *testing.T) {
	var delays []time.Duration
	caller := testCaller(config.CallerConfig{MaxAttempts: 10, BaseDelay: 5 * time.Second, MaxDelay: time.Hour, TransportRetries: 3}, &delays)

	calls := 0
	_, err := caller.Do(context.Background(), "op", func(ctx context.Context) (*Response, error) {
		calls++
		return &Response{StatusCode: http.StatusTooManyRequests}, nil
	})

	var exhausted *ThrottleExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 10, exhausted.Attempts)
	assert.Equal(t, 10, calls)
	require.Len(t, delays, 9)
	assert.Equal(t, 5*time.Second, delays[0])
	assert.Equal(t, 10*time.Second, delays[1])
	assert.Equal(t, 1280*time.Second, delays[8])
}

func TestDo_BackoffIsCapped(t *testing.T) {
	var delays []time.Duration
	caller := testCaller(config.CallerConfig{MaxAttempts: 10, BaseDelay: 5 * time.Second, MaxDelay: 60 * time.Second, TransportRetries: 3}, &delays)

	_, err := caller.Do(context.Background(), "op", func(ctx context.Context) (*Response, error) {
		return &Response{StatusCode: http.StatusTooManyRequests}, nil
	})

	require.Error(t, err)
	for _, d := range delays {
		assert.LessOrEqual(t, d, 60*time.Second)
	}
}

func TestDo_ThrottleThenSuccess(t *testing.T) {
	var delays []time.Duration
	caller := testCaller(config.CallerConfig{MaxAttempts: 10, BaseDelay: 5 * time.Second, MaxDelay: time.Minute, TransportRetries: 3}, &delays)

	calls := 0
	resp, err := caller.Do(context.Background(), "op", func(ctx context.Context) (*Response, error) {
		calls++
		if calls <= 2 {
			return &Response{StatusCode: http.StatusTooManyRequests}, nil
		}
		return &Response{StatusCode: http.StatusOK}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, calls)
	assert.Len(t, delays, 2)
}

func TestDo_TransportRetriesImmediatelyThenFails(t *testing.T) {
	var delays []time.Duration
	caller := testCaller(config.CallerConfig{MaxAttempts: 10, BaseDelay: 5 * time.Second, MaxDelay: time.Minute, TransportRetries: 3}, &delays)

	calls := 0
	_, err := caller.Do(context.Background(), "op", func(ctx context.Context) (*Response, error) {
		calls++
		return nil, errors.New("connection reset by peer")
	})

	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	assert.Equal(t, 4, calls, "initial attempt plus three immediate retries")
	assert.Empty(t, delays, "transport retries must not back off")
}

func TestDo_TransportFailureThenSuccess(t *testing.T) {
	var delays []time.Duration
	caller := testCaller(config.CallerConfig{MaxAttempts: 10, BaseDelay: 5 * time.Second, MaxDelay: time.Minute, TransportRetries: 3}, &delays)

	calls := 0
	resp, err := caller.Do(context.Background(), "op", func(ctx context.Context) (*Response, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("remote disconnected")
		}
		return &Response{StatusCode: http.StatusOK}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, calls)
}

func TestDo_NonRetryableFailureReturnsImmediately(t *testing.T) {
	var delays []time.Duration
	caller := testCaller(config.CallerConfig{MaxAttempts: 10, BaseDelay: 5 * time.Second, MaxDelay: time.Minute, TransportRetries: 3}, &delays)

	calls := 0
	_, err := caller.Do(context.Background(), "op", func(ctx context.Context) (*Response, error) {
		calls++
		return &Response{StatusCode: http.StatusBadRequest, Body: []byte(`{"error":"bad payload"}`)}, nil
	})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, 1, calls, "non-retryable failures must not be retried")
	assert.Empty(t, delays)
}

func TestDo_ContextCancellationStopsRetrying(t *testing.T) {
	var delays []time.Duration
	caller := testCaller(config.CallerConfig{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: time.Minute, TransportRetries: 3}, &delays)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := caller.Do(ctx, "op", func(ctx context.Context) (*Response, error) {
		calls++
		cancel()
		return &Response{StatusCode: http.StatusTooManyRequests}, nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
