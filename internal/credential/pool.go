// Package credential holds the ordered pool of interchangeable publishing API keys.
package credential

import (
	"fmt"
	"strings"

	"reelhub-api/internal/model"
)

// DefaultIndex is used whenever no binding exists for an entity.
const DefaultIndex = 0

// Pool is an ordered, immutable set of credentials addressed by zero-based index.
// It is read-only after construction and safe for concurrent use without locking.
type Pool struct {
	keys []string
}

// NewPool builds a pool from keys, dropping blank entries. The slice is copied.
func NewPool(keys []string) *Pool {
	p := &Pool{keys: make([]string, 0, len(keys))}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			p.keys = append(p.keys, k)
		}
	}
	return p
}

// Size returns the number of credentials.
func (p *Pool) Size() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Resolve returns the credential at index.
func (p *Pool) Resolve(index int) (string, error) {
	if p.Size() == 0 {
		return "", fmt.Errorf("credential pool is empty: %w", model.ErrNotConfigured)
	}
	if index < 0 || index >= len(p.keys) {
		return "", fmt.Errorf("index %d not in [0, %d): %w", index, len(p.keys), model.ErrOutOfRange)
	}
	return p.keys[index], nil
}

// IndexOf returns the index of key, or -1 when the key is not pooled.
func (p *Pool) IndexOf(key string) int {
	if p == nil {
		return -1
	}
	for i, k := range p.keys {
		if k == key {
			return i
		}
	}
	return -1
}

// Masked returns the pool with every key reduced to its last four characters,
// suitable for admin output.
func (p *Pool) Masked() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.keys))
	for i, k := range p.keys {
		if len(k) <= 4 {
			out[i] = "****"
			continue
		}
		out[i] = "****" + k[len(k)-4:]
	}
	return out
}
