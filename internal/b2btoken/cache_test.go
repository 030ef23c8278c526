// ABOUTME: Tests for the per-audience B2B token cache
// ABOUTME: Covers cache hits, expiry buffer boundaries, clearing, and audience isolation

package b2btoken

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAcquirer counts acquisitions and returns canned tokens per audience.
type stubAcquirer struct {
	mu    sync.Mutex
	calls map[string]int
	ttl   time.Duration
	err   error
}

func newStubAcquirer(ttl time.Duration) *stubAcquirer {
	return &stubAcquirer{calls: make(map[string]int), ttl: ttl}
}

func (s *stubAcquirer) Acquire(ctx context.Context, audience string) (string, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", 0, s.err
	}
	s.calls[audience]++
	return fmt.Sprintf("token-%s-%d", audience, s.calls[audience]), s.ttl, nil
}

func (s *stubAcquirer) callCount(audience string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[audience]
}

// fakeClock is an adjustable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestCache_SecondCallHitsCache(t *testing.T) {
	acq := newStubAcquirer(time.Hour)
	cache := NewCache(acq)

	first, err := cache.Token(context.Background(), "https://api-user")
	require.NoError(t, err)
	second, err := cache.Token(context.Background(), "https://api-user")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, acq.callCount("https://api-user"))
}

func TestCache_AudiencesAreIsolated(t *testing.T) {
	acq := newStubAcquirer(time.Hour)
	cache := NewCache(acq)

	userToken, err := cache.Token(context.Background(), "https://api-user")
	require.NoError(t, err)
	customerToken, err := cache.Token(context.Background(), "https://api-customer")
	require.NoError(t, err)

	assert.NotEqual(t, userToken, customerToken)
	assert.Equal(t, 1, acq.callCount("https://api-user"))
	assert.Equal(t, 1, acq.callCount("https://api-customer"))
}

func TestCache_ExpiryBufferBoundary(t *testing.T) {
	const (
		ttl    = time.Hour
		buffer = 5 * time.Minute
	)
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	acq := newStubAcquirer(ttl)
	cache := NewCache(acq, WithExpiryBuffer(buffer), WithClock(clock.Now))

	_, err := cache.Token(context.Background(), "https://api-user")
	require.NoError(t, err)

	// Just inside the buffered window: still a cache hit.
	clock.Advance(ttl - buffer - time.Second)
	_, err = cache.Token(context.Background(), "https://api-user")
	require.NoError(t, err)
	assert.Equal(t, 1, acq.callCount("https://api-user"), "expected cache hit before buffered expiry")

	// Two seconds later the buffered expiry has passed: refresh.
	clock.Advance(2 * time.Second)
	_, err = cache.Token(context.Background(), "https://api-user")
	require.NoError(t, err)
	assert.Equal(t, 2, acq.callCount("https://api-user"), "expected refresh after buffered expiry")
}

func TestCache_ClearSingleAudience(t *testing.T) {
	acq := newStubAcquirer(time.Hour)
	cache := NewCache(acq)

	_, err := cache.Token(context.Background(), "https://api-user")
	require.NoError(t, err)
	_, err = cache.Token(context.Background(), "https://api-customer")
	require.NoError(t, err)

	cache.Clear("https://api-user")

	_, err = cache.Token(context.Background(), "https://api-user")
	require.NoError(t, err)
	_, err = cache.Token(context.Background(), "https://api-customer")
	require.NoError(t, err)

	assert.Equal(t, 2, acq.callCount("https://api-user"), "cleared audience should re-acquire")
	assert.Equal(t, 1, acq.callCount("https://api-customer"), "untouched audience should stay cached")
}

func TestCache_ClearAll(t *testing.T) {
	acq := newStubAcquirer(time.Hour)
	cache := NewCache(acq)

	_, err := cache.Token(context.Background(), "https://api-user")
	require.NoError(t, err)
	_, err = cache.Token(context.Background(), "https://api-customer")
	require.NoError(t, err)

	cache.Clear()

	_, err = cache.Token(context.Background(), "https://api-user")
	require.NoError(t, err)
	_, err = cache.Token(context.Background(), "https://api-customer")
	require.NoError(t, err)

	assert.Equal(t, 2, acq.callCount("https://api-user"))
	assert.Equal(t, 2, acq.callCount("https://api-customer"))
}

func TestCache_AcquisitionErrorPropagates(t *testing.T) {
	acq := newStubAcquirer(time.Hour)
	acq.err = ErrAcquisition
	cache := NewCache(acq)

	_, err := cache.Token(context.Background(), "https://api-user")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAcquisition))

	// A failed acquisition must not poison the cache.
	acq.err = nil
	token, err := cache.Token(context.Background(), "https://api-user")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestCache_ConcurrentAccessSameAudience(t *testing.T) {
	acq := newStubAcquirer(time.Hour)
	cache := NewCache(acq)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Token(context.Background(), "https://api-user")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Redundant acquisitions are permitted on a cold start, but once the
	// cache is warm further calls must not acquire again.
	warm := acq.callCount("https://api-user")
	_, err := cache.Token(context.Background(), "https://api-user")
	require.NoError(t, err)
	assert.Equal(t, warm, acq.callCount("https://api-user"))
}

func TestCache_ExpiryReflectsBuffer(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	acq := newStubAcquirer(time.Hour)
	cache := NewCache(acq, WithExpiryBuffer(5*time.Minute), WithClock(clock.Now))

	_, err := cache.Token(context.Background(), "https://api-user")
	require.NoError(t, err)

	want := clock.Now().Add(time.Hour - 5*time.Minute)
	assert.Equal(t, want, cache.Expiry("https://api-user"))
	assert.True(t, cache.Expiry("https://api-unknown").IsZero())
}
