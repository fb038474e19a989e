package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"reelhub-api/internal/model"
	"reelhub-api/pkg/logger"
)

const (
	// DefaultSignedURLTTL stays a day inside the signer's seven day validity window.
	DefaultSignedURLTTL = 6 * 24 * time.Hour

	// MaxBatchURLs bounds SignMany and its concurrency.
	MaxBatchURLs = 100

	// DefaultSignTimeout bounds one shared signer call.
	DefaultSignTimeout = 10 * time.Second

	// DefaultBatchTimeout bounds a whole SignMany fan-out.
	DefaultBatchTimeout = 30 * time.Second

	signedURLKeyPrefix = "signed-url:"
)

// Signer issues a signed URL for a source URL. Calls must be idempotent.
type Signer interface {
	SignURL(ctx context.Context, sourceURL string) (string, error)
}

type signedURLEntry struct {
	SignedURL string    `json:"signed_url"`
	IssuedAt  time.Time `json:"issued_at"`
}

// SignedURLCache memoizes signer calls for TTL. An entry is served only while
// now - issuedAt < TTL. Concurrent misses for one URL share a single signer call,
// which runs detached from any one caller's cancellation.
type SignedURLCache struct {
	store        Cache
	signer       Signer
	ttl          time.Duration
	signTimeout  time.Duration
	batchTimeout time.Duration
	now          func() time.Time
	group        singleflight.Group
	log          *zap.Logger
}

// SignedURLOption configures a SignedURLCache.
type SignedURLOption func(*SignedURLCache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) SignedURLOption {
	return func(c *SignedURLCache) { c.now = now }
}

// WithSignTimeout bounds each signer call. Non-positive values are ignored.
func WithSignTimeout(d time.Duration) SignedURLOption {
	return func(c *SignedURLCache) {
		if d > 0 {
			c.signTimeout = d
		}
	}
}

// WithBatchTimeout bounds each SignMany call. Non-positive values are ignored.
func WithBatchTimeout(d time.Duration) SignedURLOption {
	return func(c *SignedURLCache) {
		if d > 0 {
			c.batchTimeout = d
		}
	}
}

// NewSignedURLCache creates a cache over store. A non-positive ttl selects DefaultSignedURLTTL.
func NewSignedURLCache(store Cache, signer Signer, ttl time.Duration, opts ...SignedURLOption) *SignedURLCache {
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}
	c := &SignedURLCache{
		store:        store,
		signer:       signer,
		ttl:          ttl,
		signTimeout:  DefaultSignTimeout,
		batchTimeout: DefaultBatchTimeout,
		now:          time.Now,
		log:          logger.Named("signed_url_cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured entry lifetime.
func (c *SignedURLCache) TTL() time.Duration { return c.ttl }

// Get returns a signed URL for sourceURL, calling the signer only on a miss or a stale entry.
// A caller that gives up returns its own ctx error; the shared call keeps running for the others.
func (c *SignedURLCache) Get(ctx context.Context, sourceURL string) (string, error) {
	if sourceURL == "" {
		return "", fmt.Errorf("empty source url: %w", model.ErrInvalidInput)
	}
	if signed, ok := c.lookup(ctx, sourceURL); ok {
		return signed, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(sourceURL, func() (interface{}, error) {
		signCtx, cancel := context.WithTimeout(detached, c.signTimeout)
		defer cancel()
		if signed, ok := c.lookup(signCtx, sourceURL); ok {
			return signed, nil
		}
		return c.sign(signCtx, sourceURL)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// SignMany signs up to MaxBatchURLs URLs concurrently within the batch timeout.
// A URL whose signing fails or does not finish in time maps to itself; the batch
// as a whole only fails on invalid input.
func (c *SignedURLCache) SignMany(ctx context.Context, sourceURLs []string) (map[string]string, error) {
	if len(sourceURLs) > MaxBatchURLs {
		return nil, fmt.Errorf("%d urls exceeds the limit of %d: %w", len(sourceURLs), MaxBatchURLs, model.ErrInvalidInput)
	}

	batchCtx, cancel := context.WithTimeout(ctx, c.batchTimeout)
	defer cancel()

	signed := make([]string, len(sourceURLs))
	var g errgroup.Group
	g.SetLimit(MaxBatchURLs)
	for i, u := range sourceURLs {
		i, u := i, u
		g.Go(func() error {
			s, err := c.Get(batchCtx, u)
			if err != nil {
				c.log.Warn("signing failed, returning original url", zap.String("url", u), zap.Error(err))
				s = u
			}
			signed[i] = s
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]string, len(sourceURLs))
	for i, u := range sourceURLs {
		out[u] = signed[i]
	}
	return out, nil
}

// Invalidate drops the cached entry for sourceURL.
func (c *SignedURLCache) Invalidate(ctx context.Context, sourceURL string) error {
	return c.store.Delete(ctx, signedURLKeyPrefix+sourceURL)
}

func (c *SignedURLCache) lookup(ctx context.Context, sourceURL string) (string, bool) {
	data, err := c.store.Get(ctx, signedURLKeyPrefix+sourceURL)
	if err != nil {
		return "", false
	}
	var e signedURLEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return "", false
	}
	if c.now().Sub(e.IssuedAt) >= c.ttl {
		return "", false
	}
	return e.SignedURL, true
}

// sign calls the signer under ctx's deadline, returning at the deadline even if
// the signer ignores cancellation.
func (c *SignedURLCache) sign(ctx context.Context, sourceURL string) (string, error) {
	type outcome struct {
		url string
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		u, err := c.signer.SignURL(ctx, sourceURL)
		done <- outcome{u, err}
	}()

	var out outcome
	select {
	case <-ctx.Done():
		out.err = ctx.Err()
	case out = <-done:
	}
	if out.err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("signing %s timed out after %s: %w", sourceURL, c.signTimeout, model.ErrSigning)
		}
		return "", out.err
	}
	signed := out.url

	data, err := json.Marshal(signedURLEntry{SignedURL: signed, IssuedAt: c.now()})
	if err == nil {
		err = c.store.Set(ctx, signedURLKeyPrefix+sourceURL, data, c.ttl)
	}
	if err != nil {
		c.log.Warn("failed to store signed url", zap.String("url", sourceURL), zap.Error(err))
	}
	return signed, nil
}
