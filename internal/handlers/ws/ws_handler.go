// internal/handlers/ws/ws_handler.go
package ws

import (
	"net/http"

	"sentra-service/internal/middleware"
	"sentra-service/internal/service/auth"
	"sentra-service/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades authenticated clients and parks them on the hub so forced
// logouts reach them as push events.
type Handler struct {
	hub         *ws.Hub
	authService *auth.AuthService
	logger      *zap.Logger
}

func NewHandler(hub *ws.Hub, authService *auth.AuthService, logger *zap.Logger) *Handler {
	return &Handler{
		hub:         hub,
		authService: authService,
		logger:      logger,
	}
}

func (h *Handler) HandleConnection(c *gin.Context) {
	token := middleware.ExtractToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := h.authService.ValidateAccess(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.hub.Register(claims.UserID, conn)
	h.logger.Debug("websocket connected", zap.String("user_id", claims.UserID))

	// Clients only listen; drain reads until the peer goes away.
	go func() {
		defer func() {
			h.hub.Unregister(claims.UserID, conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
