// internal/repository/redis/session_cache.go
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sentra-service/internal/domain/session"
	xerrors "sentra-service/internal/pkg/errors"

	red "github.com/redis/go-redis/v9"
)

// SessionCache is the Redis-backed fast-path validity store. The presence of
// a key under the session namespace is what makes a session valid on the hot
// path; the relational store is never consulted there.
type SessionCache struct {
	client    *red.Client
	namespace string
}

// NewSessionCache constructs a cache helper scoped to the given namespace
// (e.g. "sentra:login-session"). Keys passed to Set/Get/Delete are full keys;
// the namespace is only needed for ClearAll.
func NewSessionCache(client *red.Client, namespace string) *SessionCache {
	return &SessionCache{client: client, namespace: namespace}
}

// Set writes the session's cache entry with the supplied TTL.
func (c *SessionCache) Set(ctx context.Context, key string, value session.CacheValue, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}

	return nil
}

// Get reads a session's cache entry. A missing key yields ErrNotFound no
// matter why it is missing (TTL expiry, eviction, never registered).
func (c *SessionCache) Get(ctx context.Context, key string) (session.CacheValue, error) {
	var value session.CacheValue

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return value, xerrors.ErrNotFound
		}
		return value, fmt.Errorf("redis get session: %w", err)
	}

	if err := json.Unmarshal(data, &value); err != nil {
		return value, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return value, nil
}

// Delete evicts a session's cache entry. Deleting an absent key is a no-op.
func (c *SessionCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

// ClearAll wipes every key in the session namespace. Blunt by design: it is
// the emergency "nothing is fast-path-valid anymore" switch.
func (c *SessionCache) ClearAll(ctx context.Context) error {
	pattern := c.namespace + ":*"

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis clear session namespace: %w", err)
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan session namespace: %w", err)
	}

	return nil
}
