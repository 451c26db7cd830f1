// internal/worker/revoker_test.go
package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	domain "sentra-service/internal/domain/session"
	xerrors "sentra-service/internal/pkg/errors"
	redisrepo "sentra-service/internal/repository/redis"
	sessionsvc "sentra-service/internal/service/session"
	"sentra-service/internal/worker"
)

const (
	testNamespace   = "sentra:login-session"
	testScheduleKey = "sentra:session-schedule"
)

type memStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*domain.Session)}
}

func (m *memStore) Create(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *s
	m.sessions[s.ID] = &clone
	return nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *memStore) FindManyByUser(_ context.Context, userID string) ([]*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			clone := *s
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memStore) UpdateRevoke(_ context.Context, id string, revokeAt time.Time) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	if s.Status == domain.StatusActive {
		s.Status = domain.StatusRevoked
		at := revokeAt
		s.RevokeAt = &at
	}
	clone := *s
	return &clone, nil
}

func (m *memStore) UpdateManyRevokeByUser(_ context.Context, userID string, revokeAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.sessions {
		if s.UserID == userID && s.Status == domain.StatusActive {
			s.Status = domain.StatusRevoked
			at := revokeAt
			s.RevokeAt = &at
			n++
		}
	}
	return n, nil
}

func (m *memStore) DeleteMany(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.sessions, id)
	}
	return nil
}

func setupWorker(t *testing.T) (*memStore, *redisrepo.DelayedQueue, *sessionsvc.Registry, *worker.Revoker) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := red.NewClient(&red.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := newMemStore()
	cache := redisrepo.NewSessionCache(client, testNamespace)
	queue := redisrepo.NewDelayedQueue(client, testScheduleKey)

	registry := sessionsvc.NewRegistry(store, cache, queue, sessionsvc.Config{
		KeyNamespace:           testNamespace,
		RefreshTokenExpiration: time.Hour,
	}, nil)

	return store, queue, registry, worker.NewRevoker(queue, store, registry, time.Second, nil)
}

func TestDrainRevokesDueSessions(t *testing.T) {
	store, _, registry, revoker := setupWorker(t)
	ctx := context.Background()

	s, err := registry.Create(ctx, domain.RequestMetadata{}, "user-1")
	require.NoError(t, err)
	require.NoError(t, registry.SetLoginSession(ctx, "user-1", s))

	// Nothing due yet: the job fires at createdAt+TTL.
	revoker.Drain(ctx)
	current, err := store.FindByID(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, current.Status)

	// Simulate the fire time arriving.
	require.NoError(t, revoker.OnRevokeJobFired(ctx, domain.JobPayload{Session: s.ID}))

	current, err = store.FindByID(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusRevoked, current.Status)
	require.NotNil(t, current.RevokeAt)

	_, ok := registry.FindLoginSession(ctx, s.ID)
	require.False(t, ok)
}

// Scenario D: manual revoke wins the race; the fired job is a quiet no-op.
func TestJobFiringAfterManualRevokeIsNoop(t *testing.T) {
	store, _, registry, revoker := setupWorker(t)
	ctx := context.Background()

	s, err := registry.Create(ctx, domain.RequestMetadata{}, "user-1")
	require.NoError(t, err)
	require.NoError(t, registry.SetLoginSession(ctx, "user-1", s))

	revoked, err := registry.UpdateRevoke(ctx, s)
	require.NoError(t, err)
	firstRevokeAt := *revoked.RevokeAt

	require.NoError(t, revoker.OnRevokeJobFired(ctx, domain.JobPayload{Session: s.ID}))

	current, err := store.FindByID(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusRevoked, current.Status)
	require.Equal(t, firstRevokeAt, *current.RevokeAt)
}

func TestJobForUnknownSessionIsNoop(t *testing.T) {
	_, _, _, revoker := setupWorker(t)

	require.NoError(t, revoker.OnRevokeJobFired(context.Background(), domain.JobPayload{Session: "gone"}))
}
