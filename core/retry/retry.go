package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Policy defines the bounded retry behavior applied to a remote call.
// Every outbound request to GitHub, OpenAI, or Notion runs through one
// of these, parameterized only by the service's retryable predicate.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	// A value of 4 means at most 5 calls in total.
	MaxRetries int

	// BaseDelay is the delay before the first retry. Each subsequent
	// retry doubles it (BaseDelay * 2^attempt).
	BaseDelay time.Duration

	// Retryable decides whether a failure is worth retrying.
	// A nil predicate means nothing is retryable.
	Retryable func(error) bool

	// sleep overrides the inter-attempt wait in tests. Nil means a real
	// timer honoring context cancellation.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultMaxRetries matches the retry budget applied to all three services.
const DefaultMaxRetries = 4

// DefaultBaseDelay is the initial backoff delay.
const DefaultBaseDelay = time.Second

// NewPolicy returns a policy with the default attempt budget and backoff,
// retrying only errors accepted by the given predicate.
func NewPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		Retryable:  retryable,
	}
}

// Do runs op under the policy. Non-retryable errors and errors on the final
// attempt propagate to the caller unchanged. The inter-attempt sleep honors
// context cancellation.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		result, err := op()
		if err == nil {
			return result, nil
		}

		if attempt >= p.MaxRetries || p.Retryable == nil || !p.Retryable(err) {
			return zero, err
		}

		delay := p.BaseDelay * (1 << attempt)
		if p.sleep != nil {
			if err := p.sleep(ctx, delay); err != nil {
				return zero, err
			}
			continue
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// StatusError represents a non-2xx response from a remote service.
// The status code drives per-service retry classification.
type StatusError struct {
	// Service names the remote service for log and error messages.
	Service string

	// Code is the HTTP status code of the response.
	Code int

	// Body holds a truncated excerpt of the response body.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Service, e.Code)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Service, e.Code, e.Body)
}

// StatusCode extracts the HTTP status code from an error chain.
// Returns 0 if the error does not carry one.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// OnStatus returns a predicate that retries exactly the given status codes.
func OnStatus(codes ...int) func(error) bool {
	return func(err error) bool {
		code := StatusCode(err)
		for _, c := range codes {
			if code == c {
				return true
			}
		}
		return false
	}
}

// Predicates for the three services. GitHub retries rate limiting (which it
// reports as 403 as well as 429), OpenAI retries rate limiting and transient
// server errors, Notion retries rate limiting only.
var (
	GitHubRetryable = OnStatus(http.StatusTooManyRequests, http.StatusForbidden)
	OpenAIRetryable = OnStatus(http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout)
	NotionRetryable = OnStatus(http.StatusTooManyRequests)
)
