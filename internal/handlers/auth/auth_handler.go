// internal/handlers/auth/auth_handler.go
package auth

import (
	"net/http"

	"sentra-service/internal/domain/session"
	"sentra-service/internal/middleware"
	xerrors "sentra-service/internal/pkg/errors"
	"sentra-service/internal/pkg/response"
	authService "sentra-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *authService.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(svc *authService.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: svc,
		logger:      logger,
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid registration payload", err)
		return
	}

	u, err := h.authService.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrDuplicateEntry) || xerrors.Is(err, xerrors.ErrConflict) {
			response.Error(c, http.StatusConflict, "email already registered", nil)
			return
		}
		h.logger.Error("registration failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "registration failed", nil)
		return
	}

	response.Success(c, http.StatusCreated, "registered", gin.H{"id": u.ID, "email": u.Email})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid login payload", err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password, snapshotRequest(c))
	if err != nil {
		if xerrors.Is(err, xerrors.ErrUnauthorized) {
			response.Unauthorized(c, "invalid credentials")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "login failed", nil)
		return
	}

	response.Success(c, http.StatusOK, "logged in", tokenResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		SessionID:    result.Session.ID,
	})
}

// Refresh trades a refresh token for a new access token. All rejection
// reasons look identical to the client.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid refresh payload", err)
		return
	}

	accessToken, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Unauthorized(c, "session expired or invalid")
		return
	}

	response.Success(c, http.StatusOK, "token refreshed", tokenResponse{AccessToken: accessToken})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	sessionID, ok := middleware.GetSessionID(c)
	if !ok || sessionID == "" {
		response.Unauthorized(c, "no session bound to token")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), userID, sessionID); err != nil {
		if xerrors.Is(err, xerrors.ErrForbidden) {
			response.Forbidden(c, "session not owned by caller")
			return
		}
		h.logger.Error("logout failed", zap.String("session_id", sessionID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "logout failed", nil)
		return
	}

	response.Success(c, http.StatusOK, "logged out", nil)
}

func (h *AuthHandler) LogoutAll(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	ok, err := h.authService.LogoutAll(c.Request.Context(), userID)
	if err != nil || !ok {
		h.logger.Error("logout-all failed", zap.String("user_id", userID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "logout-all failed", nil)
		return
	}

	response.Success(c, http.StatusOK, "logged out everywhere", nil)
}

func (h *AuthHandler) Sessions(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	sessions, err := h.authService.Sessions(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("session listing failed", zap.String("user_id", userID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to list sessions", nil)
		return
	}

	response.Success(c, http.StatusOK, "sessions", sessions)
}

// ResetSessions wipes the whole session cache namespace. Persisted rows stay
// ACTIVE until their scheduled expiry converges them; see the registry docs.
func (h *AuthHandler) ResetSessions(c *gin.Context) {
	if err := h.authService.ResetAllSessions(c.Request.Context()); err != nil {
		h.logger.Error("session reset failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "session reset failed", nil)
		return
	}

	response.Success(c, http.StatusOK, "all login sessions invalidated", nil)
}

// snapshotRequest captures the audit-only request metadata stored on the
// session at creation time.
func snapshotRequest(c *gin.Context) session.RequestMetadata {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}

	return session.RequestMetadata{
		Host:           c.Request.Host,
		IP:             c.ClientIP(),
		Protocol:       scheme,
		OriginalURL:    c.Request.URL.RequestURI(),
		Method:         c.Request.Method,
		UserAgent:      c.Request.UserAgent(),
		ForwardedFor:   c.GetHeader("X-Forwarded-For"),
		ForwardedHost:  c.GetHeader("X-Forwarded-Host"),
		ForwardedProto: c.GetHeader("X-Forwarded-Proto"),
	}
}
