// internal/service/auth/auth.go
package auth

import (
	"context"
	"fmt"

	"sentra-service/internal/domain/session"
	"sentra-service/internal/domain/user"
	xerrors "sentra-service/internal/pkg/errors"
	jwtpkg "sentra-service/internal/pkg/jwt"
	"sentra-service/internal/repository/postgres"
	sessionsvc "sentra-service/internal/service/session"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService is the thin upstream of the session registry: it verifies
// credentials, mints tokens and delegates all session lifecycle decisions to
// the registry.
type AuthService struct {
	users    *postgres.UserRepository
	store    session.Store
	registry *sessionsvc.Registry
	jwt      *jwtpkg.Manager
	logger   *zap.Logger
}

// LoginResult carries the issued token pair and the session backing it.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Session      *session.Session
}

func NewAuthService(users *postgres.UserRepository, store session.Store, registry *sessionsvc.Registry, jwt *jwtpkg.Manager, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:    users,
		store:    store,
		registry: registry,
		jwt:      jwt,
		logger:   logger,
	}
}

// Register creates a user with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, email, password string) (*user.User, error) {
	if email == "" || password == "" {
		return nil, xerrors.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &user.User{
		ID:           ulid.Make().String(),
		Email:        email,
		PasswordHash: string(hash),
	}

	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// Login verifies credentials, persists a session, embeds its id in the
// refresh token and only then registers the session for fast-path lookup.
// The two-step create/register split exists because the token needs the
// generated session id.
func (s *AuthService) Login(ctx context.Context, email, password string, meta session.RequestMetadata) (*LoginResult, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.ErrUnauthorized
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, xerrors.ErrUnauthorized
	}

	sess, err := s.registry.Create(ctx, meta, u.ID)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.jwt.GenerateRefresh(u.ID, sess.ID)
	if err != nil {
		return nil, err
	}
	accessToken, err := s.jwt.GenerateAccess(u.ID, sess.ID)
	if err != nil {
		return nil, err
	}

	if err := s.registry.SetLoginSession(ctx, u.ID, sess); err != nil {
		// Persisted but not fast-path-valid: the client's refresh will be
		// rejected and it will simply log in again.
		s.logger.Warn("session registration failed after login",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		return nil, xerrors.ErrInternal
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Session:      sess,
	}, nil
}

// Refresh exchanges a refresh token for a new access token. Expired, revoked
// and cache-outage sessions are rejected with the same error so internal
// state never leaks to the client.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwt.Parse(refreshToken, jwtpkg.TypeRefresh)
	if err != nil {
		return "", xerrors.ErrSessionExpired
	}

	userID, ok := s.registry.FindLoginSession(ctx, claims.SessionID)
	if !ok {
		return "", xerrors.ErrSessionExpired
	}

	return s.jwt.GenerateAccess(userID, claims.SessionID)
}

// ValidateAccess verifies an access token for the auth middleware.
func (s *AuthService) ValidateAccess(tokenString string) (*jwtpkg.Claims, error) {
	return s.jwt.Parse(tokenString, jwtpkg.TypeAccess)
}

// Logout revokes the caller's session. Revoking a session that is already
// gone is a success, not an error.
func (s *AuthService) Logout(ctx context.Context, userID, sessionID string) error {
	sess, err := s.store.FindByID(ctx, sessionID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil
		}
		return err
	}

	if sess.UserID != userID {
		return xerrors.ErrForbidden
	}

	_, err = s.registry.UpdateRevoke(ctx, sess)
	return err
}

// LogoutAll force-revokes every session of the user (password reset,
// account deactivation, "log out everywhere").
func (s *AuthService) LogoutAll(ctx context.Context, userID string) (bool, error) {
	return s.registry.UpdateManyRevokeByUser(ctx, userID)
}

// Sessions lists the user's sessions for the audit surface.
func (s *AuthService) Sessions(ctx context.Context, userID string) ([]*session.Session, error) {
	return s.store.FindManyByUser(ctx, userID)
}

// ResetAllSessions is the administrative global cache wipe.
func (s *AuthService) ResetAllSessions(ctx context.Context) error {
	return s.registry.ResetLoginSession(ctx)
}
