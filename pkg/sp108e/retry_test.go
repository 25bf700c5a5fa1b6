package sp108e

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/sp108ed/internal/errors"
)

func TestRetryPolicy_SucceedsOnThirdAttempt(t *testing.T) {
	sleeper := &recordingSleeper{}
	var observed []time.Duration
	p := NewRetryPolicy(
		WithSleeper(sleeper.sleep),
		WithBackoffObserver(func(_ int, d time.Duration, _ error) { observed = append(observed, d) }),
	)

	attempts := 0
	failures := 0
	err := p.Do(func() error {
		attempts++
		if attempts < 3 {
			return errors.Connectf("attempt %d", attempts)
		}
		return nil
	}, func(int, error) { failures++ })

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2, failures)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond}, sleeper.recorded())
	assert.Equal(t, sleeper.recorded(), observed)
}

func TestRetryPolicy_Exhausted(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := NewRetryPolicy(WithSleeper(sleeper.sleep))

	attempts := 0
	var failed []int
	err := p.Do(func() error {
		attempts++
		return errors.IOf("boom")
	}, func(attempt int, _ error) { failed = append(failed, attempt) })

	require.Error(t, err)
	assert.Equal(t, 4, attempts)
	assert.Equal(t, []int{1, 2, 3, 4}, failed)
	assert.True(t, errors.Is(err, ErrRetriesExhausted))
	assert.True(t, errors.Is(err, ErrIO))
	assert.Equal(t, []time.Duration{
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
	}, sleeper.recorded())
}

func TestRetryPolicy_NoRetryOnSuccess(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := NewRetryPolicy(WithSleeper(sleeper.sleep))

	calls := 0
	require.NoError(t, p.Do(func() error { calls++; return nil }, nil))
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.recorded())
}

func TestRetryPolicy_Options(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := NewRetryPolicy(
		WithSleeper(sleeper.sleep),
		WithInitialBackoff(10*time.Millisecond),
		WithMaxRetries(1),
	)
	assert.Equal(t, 2, p.Attempts())

	calls := 0
	err := p.Do(func() error { calls++; return errors.ReadTimeoutf("slow") }, nil)
	assert.True(t, errors.Is(err, ErrRetriesExhausted))
	assert.True(t, errors.Is(err, ErrReadTimeout))
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, sleeper.recorded())
}

func TestRetryPolicy_FreshBackoffPerCall(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := NewRetryPolicy(WithSleeper(sleeper.sleep))

	for range 2 {
		n := 0
		require.NoError(t, p.Do(func() error {
			n++
			if n == 1 {
				return errors.IOf("once")
			}
			return nil
		}, nil))
	}
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 200 * time.Millisecond}, sleeper.recorded())
}
