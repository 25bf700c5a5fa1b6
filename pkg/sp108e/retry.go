package sp108e

import (
	"time"

	"github.com/cenkalti/backoff"

	"github.com/jmylchreest/sp108ed/internal/errors"
)

// BackoffObserver is told about every delay before it is slept.
type BackoffObserver func(attempt int, delay time.Duration, err error)

// RetryPolicy runs an operation up to MaxRetries+1 times with exponential
// backoff between attempts. Every failure is retried.
type RetryPolicy struct {
	maxRetries uint64
	initial    time.Duration
	multiplier float64
	sleep      func(time.Duration)
	observer   BackoffObserver
}

// RetryOption customises a RetryPolicy.
type RetryOption func(*RetryPolicy)

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n uint64) RetryOption {
	return func(p *RetryPolicy) { p.maxRetries = n }
}

// WithInitialBackoff sets the delay before the first retry.
func WithInitialBackoff(d time.Duration) RetryOption {
	return func(p *RetryPolicy) { p.initial = d }
}

// WithSleeper replaces time.Sleep, mainly for tests.
func WithSleeper(sleep func(time.Duration)) RetryOption {
	return func(p *RetryPolicy) { p.sleep = sleep }
}

// WithBackoffObserver registers a hook called with each backoff delay.
func WithBackoffObserver(fn BackoffObserver) RetryOption {
	return func(p *RetryPolicy) { p.observer = fn }
}

// NewRetryPolicy returns the default policy: 3 retries after 200, 400 and
// 800 ms.
func NewRetryPolicy(opts ...RetryOption) *RetryPolicy {
	p := &RetryPolicy{
		maxRetries: DefaultMaxRetries,
		initial:    DefaultInitialBackoff,
		multiplier: 2,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Attempts returns the maximum number of times an operation is run.
func (p *RetryPolicy) Attempts() int {
	return int(p.maxRetries) + 1
}

func (p *RetryPolicy) backOff() backoff.BackOff {
	eb := &backoff.ExponentialBackOff{
		InitialInterval:     p.initial,
		RandomizationFactor: 0,
		Multiplier:          p.multiplier,
		MaxInterval:         time.Hour,
		MaxElapsedTime:      0,
		Clock:               backoff.SystemClock,
	}
	b := backoff.WithMaxRetries(eb, p.maxRetries)
	b.Reset()
	return b
}

// Do runs op until it succeeds or the retry budget is spent. onFailure, if
// set, runs after every failed attempt before the backoff sleep. The error
// after the last attempt wraps both ErrRetriesExhausted and op's last error.
func (p *RetryPolicy) Do(op func() error, onFailure func(attempt int, err error)) error {
	b := p.backOff()
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if onFailure != nil {
			onFailure(attempt, err)
		}

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			return errors.Exhausted(attempt, err)
		}
		if p.observer != nil {
			p.observer(attempt, delay, err)
		}
		p.sleep(delay)
	}
}
