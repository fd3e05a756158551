package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/survey-pulse-api/internal/realtime"
)

// WSHandler upgrades connections into the statistics hub.
type WSHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWSHandler creates a new handler. allowedOrigins mirrors the CORS
// allowlist; an empty list admits every origin, as in development.
func NewWSHandler(hub *realtime.Hub, allowedOrigins []string, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
		logger: logger,
	}
}

// Connect godoc
// @Summary Open statistics websocket
// @Description Upgrade to a websocket; send {"action":"join","survey_id":...} to subscribe
// @Tags Realtime
// @Router /ws [get]
func (h *WSHandler) Connect(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.hub.Serve(conn)
}
