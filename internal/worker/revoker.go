// internal/worker/revoker.go
package worker

import (
	"context"
	"time"

	"sentra-service/internal/domain/session"
	xerrors "sentra-service/internal/pkg/errors"
	redisrepo "sentra-service/internal/repository/redis"
	sessionsvc "sentra-service/internal/service/session"

	"go.uber.org/zap"
)

// JobSource yields due revocation jobs. Satisfied by the Redis delayed queue.
type JobSource interface {
	Due(ctx context.Context, now time.Time) ([]redisrepo.Job, error)
}

// Revoker drains the delayed queue and funnels fired expiry jobs into the
// registry's revoke path — the same path manual logout uses, so both sides
// share one idempotence guarantee.
type Revoker struct {
	source   JobSource
	store    session.Store
	registry *sessionsvc.Registry
	logger   *zap.Logger
	interval time.Duration
	now      func() time.Time
}

func NewRevoker(source JobSource, store session.Store, registry *sessionsvc.Registry, interval time.Duration, logger *zap.Logger) *Revoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Revoker{
		source:   source,
		store:    store,
		registry: registry,
		logger:   logger,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run polls for due jobs until the context is cancelled.
func (r *Revoker) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("revocation worker started", zap.Duration("poll_interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("revocation worker stopped")
			return
		case <-ticker.C:
			r.Drain(ctx)
		}
	}
}

// Drain claims and processes every currently-due job.
func (r *Revoker) Drain(ctx context.Context) {
	jobs, err := r.source.Due(ctx, r.now())
	if err != nil {
		r.logger.Error("failed to poll due jobs", zap.Error(err))
		return
	}

	for _, job := range jobs {
		if err := r.OnRevokeJobFired(ctx, job.Payload); err != nil {
			r.logger.Error("failed to process expiry job",
				zap.String("session_id", job.Payload.Session),
				zap.Error(err),
			)
		}
	}
}

// OnRevokeJobFired handles one fired expiry job. A session revoked manually
// before the job fired, or one that no longer exists, is a quiet no-op.
func (r *Revoker) OnRevokeJobFired(ctx context.Context, payload session.JobPayload) error {
	s, err := r.store.FindByID(ctx, payload.Session)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			r.logger.Debug("expiry job for unknown session", zap.String("session_id", payload.Session))
			return nil
		}
		return xerrors.Wrap(err, "load session for expiry")
	}

	if _, err := r.registry.UpdateRevoke(ctx, s); err != nil {
		return xerrors.Wrap(err, "revoke expired session")
	}

	r.logger.Info("session expired by schedule", zap.String("session_id", s.ID), zap.String("user_id", s.UserID))
	return nil
}
