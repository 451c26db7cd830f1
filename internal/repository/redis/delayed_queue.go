// internal/repository/redis/delayed_queue.go
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sentra-service/internal/domain/session"

	red "github.com/redis/go-redis/v9"
)

// DelayedQueue schedules one-shot revocation jobs in Redis: a sorted set
// keyed by job key with the fire time as score, plus a hash holding each
// job's payload. Because the member IS the job key, re-scheduling the same
// key replaces the earlier entry — at most one pending job per session.
type DelayedQueue struct {
	client  *red.Client
	zsetKey string
	hashKey string
}

// Job is a due queue entry claimed by a worker.
type Job struct {
	Key     string
	Payload session.JobPayload
}

// NewDelayedQueue stores the schedule under scheduleKey and its payloads
// under scheduleKey+":payload". The schedule must live outside the session
// cache namespace: ClearAll scan-deletes that namespace wholesale, and
// pending expiry jobs have to survive a global cache reset.
func NewDelayedQueue(client *red.Client, scheduleKey string) *DelayedQueue {
	return &DelayedQueue{
		client:  client,
		zsetKey: scheduleKey,
		hashKey: scheduleKey + ":payload",
	}
}

// Schedule enqueues a job to fire at fireAt. Scheduling an already-pending
// key moves its fire time instead of duplicating it.
func (q *DelayedQueue) Schedule(ctx context.Context, jobKey string, payload session.JobPayload, fireAt time.Time) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.ZAdd(ctx, q.zsetKey, red.Z{Score: float64(fireAt.Unix()), Member: jobKey})
	pipe.HSet(ctx, q.hashKey, jobKey, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis schedule job: %w", err)
	}

	return nil
}

// Cancel removes a pending job by key. An unknown key is fine — the job
// already fired, or was never scheduled because registration half-failed —
// so both the cancelled and not-found outcomes collapse into success.
func (q *DelayedQueue) Cancel(ctx context.Context, jobKey string) error {
	removed, err := q.client.ZRem(ctx, q.zsetKey, jobKey).Result()
	if err != nil {
		return fmt.Errorf("redis cancel job: %w", err)
	}

	if removed > 0 {
		if err := q.client.HDel(ctx, q.hashKey, jobKey).Err(); err != nil {
			return fmt.Errorf("redis cancel job payload: %w", err)
		}
	}

	return nil
}

// Due claims every job whose fire time is at or before now. A job counts as
// claimed only when our ZRem actually removed it, so concurrent pollers never
// both win the same job.
func (q *DelayedQueue) Due(ctx context.Context, now time.Time) ([]Job, error) {
	members, err := q.client.ZRangeByScore(ctx, q.zsetKey, &red.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now.Unix()),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list due jobs: %w", err)
	}

	var jobs []Job
	for _, member := range members {
		removed, err := q.client.ZRem(ctx, q.zsetKey, member).Result()
		if err != nil {
			return jobs, fmt.Errorf("redis claim job: %w", err)
		}
		if removed == 0 {
			continue // another worker got there first
		}

		data, err := q.client.HGet(ctx, q.hashKey, member).Bytes()
		if err != nil {
			if err == red.Nil {
				continue
			}
			return jobs, fmt.Errorf("redis read job payload: %w", err)
		}
		q.client.HDel(ctx, q.hashKey, member)

		var payload session.JobPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return jobs, fmt.Errorf("failed to unmarshal job payload: %w", err)
		}

		jobs = append(jobs, Job{Key: member, Payload: payload})
	}

	return jobs, nil
}
