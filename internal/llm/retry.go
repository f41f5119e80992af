package llm

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// RetryProvider retries completions that fail with rate-limit or overload
// errors, backing off exponentially with jitter between attempts.
type RetryProvider struct {
	provider   Provider
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewRetryProvider wraps provider. maxRetries <= 0 disables retrying.
func NewRetryProvider(provider Provider, maxRetries int, baseDelay time.Duration) Provider {
	if maxRetries <= 0 {
		return provider
	}
	return &RetryProvider{
		provider:   provider,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   2 * time.Minute,
	}
}

func (r *RetryProvider) Name() string {
	return r.provider.Name()
}

func (r *RetryProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	for attempt := 0; ; attempt++ {
		resp, err := r.provider.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !IsTransient(err) {
			return nil, err
		}
		if attempt == r.maxRetries {
			return nil, fmt.Errorf("giving up after %d retries: %w", r.maxRetries, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff(r.baseDelay, r.maxDelay, attempt+1)):
		}
	}
}

// IsTransient reports whether err looks like a rate limit or a temporarily
// overloaded backend.
func IsTransient(err error) bool {
	s := strings.ToLower(err.Error())
	for _, marker := range []string{"rate_limit", "rate limit", "429", "too many requests", "overloaded", "resource_exhausted", "503", "502"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// backoff returns base * 2^attempt capped at max, with +/-25% jitter.
func backoff(base, max time.Duration, attempt int) time.Duration {
	if attempt <= 0 || base <= 0 {
		return 0
	}
	if attempt > 30 {
		attempt = 30
	}
	d := base * time.Duration(1<<uint(attempt))
	if d > max || d <= 0 {
		d = max
	}
	if half := int64(d) / 2; half > 0 {
		d += time.Duration(rand.Int64N(half)) - d/4
	}
	return d
}
