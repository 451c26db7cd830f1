// internal/repository/postgres/session_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sentra-service/internal/domain/session"
	xerrors "sentra-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create persists a new session row. ID and timestamps are assigned by the
// caller so that expired_at stays anchored to the same created_at the queue
// scheduling uses.
func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	metadata, err := json.Marshal(s.RequestMetadata)
	if err != nil {
		return fmt.Errorf("failed to marshal request metadata: %w", err)
	}

	query := `
		INSERT INTO sessions (id, user_id, request_metadata, status, expired_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.Exec(ctx, query, s.ID, s.UserID, metadata, s.Status, s.ExpiredAt, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// FindByID retrieves a session by its id
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*session.Session, error) {
	query := `
		SELECT id, user_id, request_metadata, status, expired_at, revoke_at, created_at
		FROM sessions
		WHERE id = $1
	`

	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// FindManyByUser retrieves every session owned by the user, regardless of status
func (r *SessionRepository) FindManyByUser(ctx context.Context, userID string) ([]*session.Session, error) {
	query := `
		SELECT id, user_id, request_metadata, status, expired_at, revoke_at, created_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*session.Session
	for rows.Next() {
		s, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// UpdateRevoke flips one session to REVOKED. The WHERE clause only matches
// ACTIVE rows, so a second revoke falls through to a plain read and the
// original revoke_at survives.
func (r *SessionRepository) UpdateRevoke(ctx context.Context, id string, revokeAt time.Time) (*session.Session, error) {
	query := `
		UPDATE sessions
		SET status = $2, revoke_at = $3
		WHERE id = $1 AND status = $4
		RETURNING id, user_id, request_metadata, status, expired_at, revoke_at, created_at
	`

	s, err := r.scanOne(r.db.QueryRow(ctx, query, id, session.StatusRevoked, revokeAt, session.StatusActive))
	if errors.Is(err, xerrors.ErrNotFound) {
		// Already revoked, or missing entirely. FindByID sorts out which.
		return r.FindByID(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to revoke session: %w", err)
	}

	return s, nil
}

// UpdateManyRevokeByUser marks all of the user's ACTIVE sessions REVOKED in a
// single statement and reports how many rows changed.
func (r *SessionRepository) UpdateManyRevokeByUser(ctx context.Context, userID string, revokeAt time.Time) (int64, error) {
	query := `
		UPDATE sessions
		SET status = $2, revoke_at = $3
		WHERE user_id = $1 AND status = $4
	`

	tag, err := r.db.Exec(ctx, query, userID, session.StatusRevoked, revokeAt, session.StatusActive)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk revoke sessions: %w", err)
	}

	return tag.RowsAffected(), nil
}

// DeleteMany hard-deletes session rows. Administrative maintenance only.
func (r *SessionRepository) DeleteMany(ctx context.Context, ids []string) error {
	query := `DELETE FROM sessions WHERE id = ANY($1)`

	if _, err := r.db.Exec(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}

	return nil
}

func (r *SessionRepository) scanOne(row pgx.Row) (*session.Session, error) {
	var (
		s        session.Session
		metadata []byte
	)

	err := row.Scan(&s.ID, &s.UserID, &metadata, &s.Status, &s.ExpiredAt, &s.RevokeAt, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &s.RequestMetadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal request metadata: %w", err)
		}
	}

	return &s, nil
}
