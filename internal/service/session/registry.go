// internal/service/session/registry.go
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sentra-service/internal/domain/session"
	xerrors "sentra-service/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Config carries the two knobs the registry needs: the shared key namespace
// and the refresh-token lifetime that bounds both the cache TTL and the
// scheduled expiry.
type Config struct {
	// KeyNamespace is "{appNamespace}:{sessionKeyPrefix}".
	KeyNamespace string
	// RefreshTokenExpiration is the fixed session lifetime.
	RefreshTokenExpiration time.Duration
}

// Registry orchestrates the three session stores: the durable record
// (Postgres), the fast-path validity cache (Redis) and the delayed revocation
// queue. The cache is the authority for "is this session valid right now";
// the store is the durable-but-secondary audit record.
//
// Ordering contract: every revoke path evicts the cache and cancels the
// queued job before the store is marked REVOKED, so a concurrent lookup can
// see "absent" slightly before the store catches up, but never a valid cache
// entry for a REVOKED row.
type Registry struct {
	store  session.Store
	cache  session.Cache
	queue  session.Queue
	events session.EventPublisher
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewRegistry constructs a Registry.
func NewRegistry(store session.Store, cache session.Cache, queue session.Queue, cfg Config, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		store:  store,
		cache:  cache,
		queue:  queue,
		cfg:    cfg,
		logger: logger,
	}
	r.now = func() time.Time { return time.Now().UTC() }
	return r
}

// WithClock overrides the internal clock for deterministic tests.
func (r *Registry) WithClock(clock func() time.Time) *Registry {
	if clock != nil {
		r.now = clock
	}
	return r
}

// WithEventPublisher injects a publisher notified whenever a session is
// revoked.
func (r *Registry) WithEventPublisher(events session.EventPublisher) *Registry {
	r.events = events
	return r
}

// Create persists a new ACTIVE session for the user. It deliberately does
// NOT register the session in the cache or queue: the caller usually needs
// the generated id first (to embed it in the refresh token) and then calls
// SetLoginSession as a second explicit step.
func (r *Registry) Create(ctx context.Context, meta session.RequestMetadata, userID string) (*session.Session, error) {
	now := r.now()

	s := &session.Session{
		ID:              ulid.Make().String(),
		UserID:          userID,
		RequestMetadata: meta,
		Status:          session.StatusActive,
		ExpiredAt:       now.Add(r.cfg.RefreshTokenExpiration),
		CreatedAt:       now,
	}

	if err := r.store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	return s, nil
}

// SetLoginSession registers a just-created session for fast-path lookup and
// schedules its automatic expiry. Cache TTL and job fire time are both
// anchored to the session's CreatedAt, so the two mechanisms converge on the
// same wall-clock moment even if this call runs a beat after Create.
//
// A cache failure surfaces to the caller: the session stays persisted but is
// not fast-path-valid, which degrades to "please re-authenticate" rather
// than to a session that is wrongly valid. A queue failure after a
// successful cache write is only logged — the TTL alone still bounds the
// session's validity, and the missed job merely delays the store-side
// status flip.
func (r *Registry) SetLoginSession(ctx context.Context, userID string, s *session.Session) error {
	key := r.cacheKey(s.ID)

	ttl := r.cfg.RefreshTokenExpiration
	if err := r.cache.Set(ctx, key, session.CacheValue{User: userID}, ttl); err != nil {
		return fmt.Errorf("failed to register login session: %w", err)
	}

	fireAt := s.CreatedAt.Add(r.cfg.RefreshTokenExpiration)
	if err := r.queue.Schedule(ctx, key, session.JobPayload{Session: s.ID}, fireAt); err != nil {
		r.logger.Warn("failed to schedule session expiry job",
			zap.String("session_id", s.ID),
			zap.Error(err),
		)
	}

	return nil
}

// FindLoginSession is the sole fast-path validity check. It answers from the
// cache only and fails closed: expired, evicted, never-registered and
// cache-outage all collapse into (_, false).
func (r *Registry) FindLoginSession(ctx context.Context, sessionID string) (string, bool) {
	value, err := r.cache.Get(ctx, r.cacheKey(sessionID))
	if err != nil {
		if !xerrors.Is(err, xerrors.ErrNotFound) {
			r.logger.Warn("session cache unavailable, failing closed",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
		return "", false
	}

	return value.User, true
}

// DeleteLoginSession evicts a session's cache entry and cancels its pending
// expiry job without touching the store.
func (r *Registry) DeleteLoginSession(ctx context.Context, sessionID string) error {
	key := r.cacheKey(sessionID)

	if err := r.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to evict login session: %w", err)
	}

	if err := r.queue.Cancel(ctx, key); err != nil {
		r.logger.Warn("failed to cancel session expiry job",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}

	return nil
}

// UpdateRevoke terminates a single session: cache evict, then queue cancel,
// then the store flip to REVOKED. Manual logout and the scheduled expiry
// job both funnel through here, so revoking an already-revoked session is a
// no-op that preserves the original RevokeAt.
func (r *Registry) UpdateRevoke(ctx context.Context, s *session.Session) (*session.Session, error) {
	key := r.cacheKey(s.ID)

	if err := r.cache.Delete(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to evict login session: %w", err)
	}

	if err := r.queue.Cancel(ctx, key); err != nil {
		// A missed cancellation only risks a redundant, idempotent revoke
		// when the job eventually fires.
		r.logger.Warn("failed to cancel session expiry job",
			zap.String("session_id", s.ID),
			zap.Error(err),
		)
	}

	wasActive := !s.IsRevoked()

	updated, err := r.store.UpdateRevoke(ctx, s.ID, r.now())
	if err != nil {
		return nil, fmt.Errorf("failed to mark session revoked: %w", err)
	}

	if wasActive && r.events != nil {
		r.events.SessionRevoked(updated.UserID, updated.ID)
	}

	return updated, nil
}

// UpdateManyRevokeByUser force-logs-out a user everywhere: per-session cache
// evictions and job cancellations fan out concurrently (independent keys),
// then one bulk store write flips every remaining ACTIVE row.
func (r *Registry) UpdateManyRevokeByUser(ctx context.Context, userID string) (bool, error) {
	sessions, err := r.store.FindManyByUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to list user sessions: %w", err)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		evictErr error
	)
	for _, s := range sessions {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			key := r.cacheKey(id)

			if err := r.cache.Delete(ctx, key); err != nil {
				mu.Lock()
				if evictErr == nil {
					evictErr = err
				}
				mu.Unlock()
				return
			}
			if err := r.queue.Cancel(ctx, key); err != nil {
				r.logger.Warn("failed to cancel session expiry job",
					zap.String("session_id", id),
					zap.Error(err),
				)
			}
		}(s.ID)
	}
	wg.Wait()

	// Keep the ordering contract: never mark the store REVOKED while a
	// cache entry may still answer "valid".
	if evictErr != nil {
		return false, fmt.Errorf("failed to evict login sessions: %w", evictErr)
	}

	if _, err := r.store.UpdateManyRevokeByUser(ctx, userID, r.now()); err != nil {
		return false, fmt.Errorf("failed to bulk revoke sessions: %w", err)
	}

	if r.events != nil {
		for _, s := range sessions {
			if !s.IsRevoked() {
				r.events.SessionRevoked(userID, s.ID)
			}
		}
	}

	return true, nil
}

// ResetLoginSession wipes the entire session cache namespace. It touches
// neither the store nor the queue: persisted rows keep reporting ACTIVE
// until their own TTL/job fires and converges them through UpdateRevoke.
// That staleness window is a documented property of this blunt instrument,
// not an accident.
func (r *Registry) ResetLoginSession(ctx context.Context) error {
	if err := r.cache.ClearAll(ctx); err != nil {
		return fmt.Errorf("failed to reset login sessions: %w", err)
	}

	r.logger.Info("session cache namespace cleared; store rows converge on their scheduled expiry")
	return nil
}

func (r *Registry) cacheKey(sessionID string) string {
	return r.cfg.KeyNamespace + ":" + sessionID
}
