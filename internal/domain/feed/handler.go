package feed

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handler upgrades admin requests to the live lead feed.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler accepts browser connections only from allowedOrigins. An empty
// list or "*" allows any origin.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(strings.TrimRight(o, "/"), origin) {
				return true
			}
		}
		return false
	}
}

// Connect handles GET /api/admin/leads/feed
func (h *Handler) Connect(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.hub.log.Debug("feed upgrade failed", "error", err)
		return
	}
	h.hub.ServeWS(conn)
}

// RegisterRoutes registers the feed under the admin group
func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	r.GET("/leads/feed", handler.Connect)
}
