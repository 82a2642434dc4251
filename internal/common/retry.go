package common

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// RetryableFunc is one attempt of a retried operation.
type RetryableFunc func() error

// Config holds the retry policy.
type Config struct {
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	retryIf      func(error) bool
	onRetry      func(attempt int, delay time.Duration, err error)
}

// Option configures a retry policy.
type Option func(*Config)

// WithMaxRetries sets how many retries follow the first attempt. Default 3.
func WithMaxRetries(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithInitialDelay sets the delay before the first retry. Default 1s.
func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.initialDelay = d
		}
	}
}

// WithMaxDelay caps the backoff delay. Default 30s.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.maxDelay = d
		}
	}
}

// WithMultiplier sets the backoff growth factor. Default 2.
func WithMultiplier(m float64) Option {
	return func(c *Config) {
		if m > 0 {
			c.multiplier = m
		}
	}
}

// WithRetryIf limits retries to errors for which fn returns true. Any other
// error is returned immediately, unwrapped.
func WithRetryIf(fn func(error) bool) Option {
	return func(c *Config) {
		c.retryIf = fn
	}
}

// WithOnRetry registers a hook called before each backoff sleep.
func WithOnRetry(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(c *Config) {
		c.onRetry = fn
	}
}

func defaultConfig() *Config {
	return &Config{
		maxRetries:   3,
		initialDelay: 1 * time.Second,
		maxDelay:     30 * time.Second,
		multiplier:   2.0,
	}
}

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so Do returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs fn, retrying failures with exponential backoff until it succeeds,
// the retries run out, the error is not retryable, or ctx is done.
//
//	err := common.Do(ctx, func() error {
//	    return fetch()
//	}, common.WithMaxRetries(2), common.WithRetryIf(isTransient))
func Do(ctx context.Context, fn RetryableFunc, opts ...Option) error {
	if fn == nil {
		return errors.New("retry: function cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	lastErr := fn()
	if lastErr == nil {
		return nil
	}
	if stop, err := cfg.terminal(lastErr); stop {
		return err
	}

	for attempt := 1; attempt <= cfg.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry aborted after %d attempts: %w", attempt, ctx.Err())
		default:
		}

		delay := calculateDelay(attempt, cfg.initialDelay, cfg.maxDelay, cfg.multiplier)
		if cfg.onRetry != nil {
			cfg.onRetry(attempt, delay, lastErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted during backoff (attempt %d/%d): %w", attempt, cfg.maxRetries, ctx.Err())
		case <-timer.C:
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if stop, err := cfg.terminal(lastErr); stop {
			return err
		}
	}

	return fmt.Errorf("retry failed after %d attempts: %w", cfg.maxRetries+1, lastErr)
}

// terminal reports whether err ends the loop, and the error to return.
func (c *Config) terminal(err error) (bool, error) {
	var p *permanentError
	if errors.As(err, &p) {
		return true, p.err
	}
	if c.retryIf != nil && !c.retryIf(err) {
		return true, err
	}
	return false, nil
}

// calculateDelay returns initialDelay * multiplier^(attempt-1), capped at maxDelay.
func calculateDelay(attempt int, initialDelay, maxDelay time.Duration, multiplier float64) time.Duration {
	delay := float64(initialDelay) * math.Pow(multiplier, float64(attempt-1))
	if time.Duration(delay) > maxDelay {
		return maxDelay
	}
	return time.Duration(delay)
}
