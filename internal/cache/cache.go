// Package cache memoizes read queries. Every mutation of the registry or the
// record store clears the whole cache; there is no TTL and no eviction.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
)

// ComputeFunc produces the value for a missing key.
type ComputeFunc func(ctx context.Context) (any, error)

// Cache is the read-cache contract injected into the services.
// Values handed out may be shared between callers and must not be mutated.
type Cache interface {
	GetOrCompute(ctx context.Context, key string, fn ComputeFunc) (any, error)
	InvalidateAll()
}

// Key builds the cache key of an operation from its filter arguments. The
// arguments are serialized as a JSON object, so map order never matters.
func Key(op string, params map[string]any) string {
	b, err := json.Marshal(params)
	if err != nil {
		return op + "|" + fmt.Sprint(params)
	}
	return op + "|" + string(b)
}

// Fetch is a typed GetOrCompute.
func Fetch[T any](ctx context.Context, c Cache, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.GetOrCompute(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: key %q holds %T", key, v)
	}
	return out, nil
}

// Noop computes every call. Tests use it to bypass memoization.
type Noop struct{}

func (Noop) GetOrCompute(ctx context.Context, _ string, fn ComputeFunc) (any, error) {
	return fn(ctx)
}

func (Noop) InvalidateAll() {}
