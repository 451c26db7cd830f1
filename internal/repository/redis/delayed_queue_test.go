// internal/repository/redis/delayed_queue_test.go
package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"sentra-service/internal/domain/session"
	redisrepo "sentra-service/internal/repository/redis"
)

func setupQueue(t *testing.T) *redisrepo.DelayedQueue {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := red.NewClient(&red.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return redisrepo.NewDelayedQueue(client, "sentra:session-schedule")
}

func TestDelayedQueueFiresAtScheduledTime(t *testing.T) {
	queue := setupQueue(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fireAt := base.Add(time.Hour)

	require.NoError(t, queue.Schedule(ctx, "sentra:login-session:s1", session.JobPayload{Session: "s1"}, fireAt))

	jobs, err := queue.Due(ctx, base)
	require.NoError(t, err)
	require.Empty(t, jobs)

	jobs, err = queue.Due(ctx, fireAt)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "s1", jobs[0].Payload.Session)

	// Claimed jobs do not fire twice.
	jobs, err = queue.Due(ctx, fireAt.Add(time.Hour))
	require.NoError(t, err)
	require.Empty(t, jobs)
}

func TestDelayedQueueScheduleReplacesByKey(t *testing.T) {
	queue := setupQueue(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, queue.Schedule(ctx, "sentra:login-session:s1", session.JobPayload{Session: "s1"}, base.Add(time.Hour)))
	require.NoError(t, queue.Schedule(ctx, "sentra:login-session:s1", session.JobPayload{Session: "s1"}, base.Add(2*time.Hour)))

	// Old fire time no longer applies.
	jobs, err := queue.Due(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	require.Empty(t, jobs)

	jobs, err = queue.Due(ctx, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, jobs, 1)
}

func TestDelayedQueueCancel(t *testing.T) {
	queue := setupQueue(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, queue.Schedule(ctx, "sentra:login-session:s1", session.JobPayload{Session: "s1"}, base.Add(time.Hour)))
	require.NoError(t, queue.Cancel(ctx, "sentra:login-session:s1"))

	jobs, err := queue.Due(ctx, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Empty(t, jobs)
}

func TestDelayedQueueCancelUnknownKeyIsNoop(t *testing.T) {
	queue := setupQueue(t)

	// Already fired, or never scheduled: both collapse into success.
	require.NoError(t, queue.Cancel(context.Background(), "sentra:login-session:never-scheduled"))
}

func TestDelayedQueueDueOrderIndependentKeys(t *testing.T) {
	queue := setupQueue(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, queue.Schedule(ctx, "sentra:login-session:s1", session.JobPayload{Session: "s1"}, base.Add(time.Minute)))
	require.NoError(t, queue.Schedule(ctx, "sentra:login-session:s2", session.JobPayload{Session: "s2"}, base.Add(2*time.Minute)))
	require.NoError(t, queue.Schedule(ctx, "sentra:login-session:s3", session.JobPayload{Session: "s3"}, base.Add(time.Hour)))

	jobs, err := queue.Due(ctx, base.Add(5*time.Minute))
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	seen := map[string]bool{}
	for _, job := range jobs {
		seen[job.Payload.Session] = true
	}
	require.True(t, seen["s1"])
	require.True(t, seen["s2"])
}
