package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelhub-api/internal/model"
)

type countingSigner struct {
	calls   atomic.Int64
	failFor map[string]bool
	delay   time.Duration
}

func (s *countingSigner) SignURL(ctx context.Context, sourceURL string) (string, error) {
	n := s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.failFor[sourceURL] {
		return "", fmt.Errorf("bucket refused %s: %w", sourceURL, model.ErrSigning)
	}
	return fmt.Sprintf("%s?sig=%d", sourceURL, n), nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// blockingSigner holds calls for the URLs in blockFor until release is closed.
// With ignoreCtx set it keeps blocking after its context is done.
type blockingSigner struct {
	calls     atomic.Int64
	blockFor  map[string]bool
	ignoreCtx bool
	started   chan string
	release   chan struct{}
	once      sync.Once
}

func (s *blockingSigner) Release() { s.once.Do(func() { close(s.release) }) }

func newBlockingSigner(t *testing.T, ignoreCtx bool, urls ...string) *blockingSigner {
	s := &blockingSigner{
		blockFor:  make(map[string]bool),
		ignoreCtx: ignoreCtx,
		started:   make(chan string, 16),
		release:   make(chan struct{}),
	}
	for _, u := range urls {
		s.blockFor[u] = true
	}
	t.Cleanup(s.Release)
	return s
}

func (s *blockingSigner) SignURL(ctx context.Context, sourceURL string) (string, error) {
	n := s.calls.Add(1)
	if s.blockFor[sourceURL] {
		s.started <- sourceURL
		if s.ignoreCtx {
			<-s.release
		} else {
			select {
			case <-s.release:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return fmt.Sprintf("%s?sig=%d", sourceURL, n), nil
}

func newTestSignedURLCache(t *testing.T, signer Signer, opts ...SignedURLOption) (*SignedURLCache, *fakeClock) {
	t.Helper()
	store := NewMemoryCache(0)
	t.Cleanup(func() { store.Close() })
	clock := &fakeClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]SignedURLOption{WithClock(clock.Now)}, opts...)
	return NewSignedURLCache(store, signer, DefaultSignedURLTTL, opts...), clock
}

func TestSignedURLCache_HitWithinTTL(t *testing.T) {
	signer := &countingSigner{}
	c, clock := newTestSignedURLCache(t, signer)
	ctx := context.Background()

	first, err := c.Get(ctx, "https://cdn.example.com/a.mp4")
	require.NoError(t, err)

	clock.Advance(5 * 24 * time.Hour)
	second, err := c.Get(ctx, "https://cdn.example.com/a.mp4")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, signer.calls.Load())
}

func TestSignedURLCache_ResignsAfterTTL(t *testing.T) {
	signer := &countingSigner{}
	c, clock := newTestSignedURLCache(t, signer)
	ctx := context.Background()

	first, err := c.Get(ctx, "https://cdn.example.com/a.mp4")
	require.NoError(t, err)

	clock.Advance(DefaultSignedURLTTL)
	second, err := c.Get(ctx, "https://cdn.example.com/a.mp4")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.EqualValues(t, 2, signer.calls.Load())
}

func TestSignedURLCache_SignerError(t *testing.T) {
	signer := &countingSigner{failFor: map[string]bool{"bad": true}}
	c, _ := newTestSignedURLCache(t, signer)

	_, err := c.Get(context.Background(), "bad")
	assert.ErrorIs(t, err, model.ErrSigning)

	_, err = c.Get(context.Background(), "")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestSignedURLCache_ConcurrentGets(t *testing.T) {
	signer := &countingSigner{delay: 20 * time.Millisecond}
	c, _ := newTestSignedURLCache(t, signer)

	var wg sync.WaitGroup
	results := make([]string, 50)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			url := fmt.Sprintf("https://cdn.example.com/%d.jpg", i%5)
			s, err := c.Get(context.Background(), url)
			assert.NoError(t, err)
			results[i] = s
		}()
	}
	wg.Wait()

	for i, r := range results {
		assert.True(t, strings.HasPrefix(r, fmt.Sprintf("https://cdn.example.com/%d.jpg?sig=", i%5)))
	}
	stats, err := c.store.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 5, stats.Entries)
}

func TestSignedURLCache_SignManyIsolatesFailures(t *testing.T) {
	urls := []string{"u1", "u2", "u3", "u4", "u5"}
	signer := &countingSigner{failFor: map[string]bool{"u3": true}}
	c, _ := newTestSignedURLCache(t, signer)

	got, err := c.SignMany(context.Background(), urls)
	require.NoError(t, err)
	require.Len(t, got, 5)

	assert.Equal(t, "u3", got["u3"])
	for _, u := range []string{"u1", "u2", "u4", "u5"} {
		assert.True(t, strings.HasPrefix(got[u], u+"?sig="), got[u])
	}
}

func TestSignedURLCache_SignManyFallsBackOnHungSigner(t *testing.T) {
	signer := newBlockingSigner(t, true, "https://b/2")
	c, _ := newTestSignedURLCache(t, signer, WithBatchTimeout(100*time.Millisecond))

	type result struct {
		urls map[string]string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		got, err := c.SignMany(context.Background(), []string{"https://b/1", "https://b/2", "https://b/3"})
		done <- result{got, err}
	}()

	select {
	case res := <-done:
		require.NoError(t, res.err)
		require.Len(t, res.urls, 3)
		assert.Equal(t, "https://b/2", res.urls["https://b/2"])
		assert.True(t, strings.HasPrefix(res.urls["https://b/1"], "https://b/1?sig="))
		assert.True(t, strings.HasPrefix(res.urls["https://b/3"], "https://b/3?sig="))
	case <-time.After(2 * time.Second):
		t.Fatal("SignMany did not return after its batch timeout")
	}
}

func TestSignedURLCache_GetBoundsHungSigner(t *testing.T) {
	signer := newBlockingSigner(t, true, "https://b/slow")
	c, _ := newTestSignedURLCache(t, signer, WithSignTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := c.Get(context.Background(), "https://b/slow")
	assert.ErrorIs(t, err, model.ErrSigning)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSignedURLCache_CancelledCallerDoesNotFailOthers(t *testing.T) {
	const url = "https://b/shared"
	signer := newBlockingSigner(t, false, url)
	c, _ := newTestSignedURLCache(t, signer)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.Get(ctxA, url)
		errA <- err
	}()
	<-signer.started

	type result struct {
		url string
		err error
	}
	resB := make(chan result, 1)
	go func() {
		u, err := c.Get(context.Background(), url)
		resB <- result{u, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	signer.Release()
	select {
	case res := <-resB:
		require.NoError(t, res.err)
		assert.True(t, strings.HasPrefix(res.url, url+"?sig="))
	case <-time.After(2 * time.Second):
		t.Fatal("second caller did not return")
	}
	assert.EqualValues(t, 1, signer.calls.Load())
}

func TestSignedURLCache_SignManyRunsConcurrently(t *testing.T) {
	urls := make([]string, 20)
	for i := range urls {
		urls[i] = fmt.Sprintf("u%d", i)
	}
	signer := &countingSigner{delay: 50 * time.Millisecond}
	c, _ := newTestSignedURLCache(t, signer)

	start := time.Now()
	got, err := c.SignMany(context.Background(), urls)
	require.NoError(t, err)
	assert.Len(t, got, 20)
	assert.Less(t, time.Since(start), 20*50*time.Millisecond/2)
}

func TestSignedURLCache_SignManyLimit(t *testing.T) {
	c, _ := newTestSignedURLCache(t, &countingSigner{})
	_, err := c.SignMany(context.Background(), make([]string, MaxBatchURLs+1))
	assert.True(t, errors.Is(err, model.ErrInvalidInput))
}

func TestSignedURLCache_Invalidate(t *testing.T) {
	signer := &countingSigner{}
	c, _ := newTestSignedURLCache(t, signer)
	ctx := context.Background()

	_, err := c.Get(ctx, "u")
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, "u"))
	_, err = c.Get(ctx, "u")
	require.NoError(t, err)
	assert.EqualValues(t, 2, signer.calls.Load())
}
