package rest

import "fmt"

// ThrottleExhaustedError is returned when an operation kept hitting the rate
// limit for the configured maximum number of attempts. It means "give up on
// this item and move on", not "the request is structurally wrong".
type ThrottleExhaustedError struct {
	Op       string
	Attempts int
}

func (e *ThrottleExhaustedError) Error() string {
	return fmt.Sprintf("%s: rate limit retries exhausted after %d attempts", e.Op, e.Attempts)
}

// TransportError wraps a connection-level failure (reset, disconnect) that
// survived the immediate retry budget. The orchestrator retries the whole
// customer with backoff on this class.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is any other non-success response. It is never retried by the
// caller: a bad payload shape stays bad no matter how often it is sent.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: request failed with status code %d: %s", e.Op, e.StatusCode, e.Body)
}
