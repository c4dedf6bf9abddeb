package infra

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failN(b *Breaker, n int) {
	for i := 0; i < n; i++ {
		_ = b.Do(func() error { return errBoom })
	}
}

func TestBreakerTripsAfterMaxFailures(t *testing.T) {
	b := NewBreaker(3, time.Hour)

	failN(b, 2)
	assert.Equal(t, BreakerClosed, b.State())

	failN(b, 1)
	assert.Equal(t, BreakerOpen, b.State())

	// Open means fast-fail: fn never runs.
	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.False(t, called)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, time.Hour)
	failN(b, 2)
	require.NoError(t, b.Do(func() error { return nil }))
	failN(b, 2)
	// The streak restarted after the success, so two more failures do not trip.
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b := NewBreaker(1, 10*time.Millisecond)
	failN(b, 1)
	require.Equal(t, BreakerOpen, b.State())

	time.Sleep(15 * time.Millisecond)
	assert.Equal(t, BreakerHalfOpen, b.State())

	// Two winning probes close it again.
	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, BreakerHalfOpen, b.State())
	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker(1, 10*time.Millisecond)
	failN(b, 1)
	time.Sleep(15 * time.Millisecond)
	require.Equal(t, BreakerHalfOpen, b.State())

	failN(b, 1)
	assert.Equal(t, BreakerOpen, b.State())
	assert.ErrorIs(t, b.Do(func() error { return nil }), ErrBreakerOpen)
}

func TestBreakerDefaults(t *testing.T) {
	b := NewBreaker(0, 0)
	failN(b, 4)
	assert.Equal(t, BreakerClosed, b.State())
	failN(b, 1)
	assert.Equal(t, BreakerOpen, b.State())
}
