// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of results CachingBackend keeps.
const DefaultCacheSize = 16

// CachingBackend remembers successful results by request content, so watch
// mode rebuilds that change nothing the compiler sees skip the compiler.
type CachingBackend struct {
	inner Backend
	cache *lru.Cache[string, *Result]
}

// NewCachingBackend wraps inner with an LRU cache of size entries.
func NewCachingBackend(inner Backend, size int) (*CachingBackend, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *Result](size)
	if err != nil {
		return nil, fmt.Errorf("create compiler cache: %w", err)
	}
	return &CachingBackend{inner: inner, cache: cache}, nil
}

// Name returns the wrapped backend's name.
func (c *CachingBackend) Name() string { return c.inner.Name() }

// Available returns the wrapped backend's availability.
func (c *CachingBackend) Available() bool { return c.inner.Available() }

// Len returns the number of cached results.
func (c *CachingBackend) Len() int { return c.cache.Len() }

// Compile returns a cached result for an identical request, or runs the
// wrapped backend and caches the result when it carries no errors.
func (c *CachingBackend) Compile(ctx context.Context, req *Request) (*Result, error) {
	key, err := requestKey(req)
	if err != nil {
		return nil, err
	}
	if res, ok := c.cache.Get(key); ok {
		return cloneResult(res), nil
	}

	res, err := c.inner.Compile(ctx, req)
	if err != nil {
		return nil, err
	}
	if !res.HasErrors() {
		c.cache.Add(key, cloneResult(res))
	}
	return res, nil
}

// requestKey hashes the request's JSON encoding; map keys are sorted by
// encoding/json so equal requests hash equally.
func requestKey(req *Request) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode compiler request: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func cloneResult(r *Result) *Result {
	return &Result{
		Files:       slices.Clone(r.Files),
		Diagnostics: slices.Clone(r.Diagnostics),
	}
}
