// internal/domain/session/repository.go
package session

import (
	"context"
	"time"
)

// Store is the durable, queryable record of sessions. It is secondary to the
// cache for validity checks but authoritative for audit.
type Store interface {
	Create(ctx context.Context, s *Session) error
	FindByID(ctx context.Context, id string) (*Session, error)
	FindManyByUser(ctx context.Context, userID string) ([]*Session, error)
	// UpdateRevoke marks a single session REVOKED. It only touches ACTIVE
	// rows; revoking an already-revoked session returns the stored record
	// with its original revoke_at untouched.
	UpdateRevoke(ctx context.Context, id string, revokeAt time.Time) (*Session, error)
	// UpdateManyRevokeByUser marks every ACTIVE session of the user REVOKED
	// in one statement and returns the number of rows it flipped.
	UpdateManyRevokeByUser(ctx context.Context, userID string, revokeAt time.Time) (int64, error)
	// DeleteMany is a store-level maintenance helper (administrative
	// cleanup); the registry never calls it.
	DeleteMany(ctx context.Context, ids []string) error
}

// Cache is the fast-path validity authority: a key/value store with per-key
// TTL. Lookups on every authenticated refresh go here, never to the Store.
type Cache interface {
	Set(ctx context.Context, key string, value CacheValue, ttl time.Duration) error
	// Get returns repository.ErrNotFound when the key is absent, whatever
	// the reason (expired, evicted, never written).
	Get(ctx context.Context, key string) (CacheValue, error)
	Delete(ctx context.Context, key string) error
	// ClearAll wipes the whole session namespace.
	ClearAll(ctx context.Context) error
}

// Queue schedules a one-shot revocation job per session. The job key doubles
// as the de-duplication handle: scheduling twice under one key replaces the
// earlier job, so at most one job exists per session.
type Queue interface {
	Schedule(ctx context.Context, jobKey string, payload JobPayload, fireAt time.Time) error
	// Cancel removes a pending job. Cancelling an unknown key is not an
	// error; the job may have fired already or never been scheduled.
	Cancel(ctx context.Context, jobKey string) error
}

// EventPublisher receives revocation notifications so interested transports
// (e.g. websocket push) can tell clients their session died.
type EventPublisher interface {
	SessionRevoked(userID, sessionID string)
}
