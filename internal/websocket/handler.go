package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/cashtrackr/internal/access"
)

// Handler upgrades authenticated requests and runs them as hub clients.
type Handler struct {
	hub     *Hub
	origins []string
	logger  *slog.Logger
}

// NewHandler accepts cross-origin handshakes only from hosts matching
// originPatterns.
func NewHandler(hub *Hub, originPatterns []string, logger *slog.Logger) *Handler {
	return &Handler{hub: hub, origins: originPatterns, logger: logger}
}

func (h *Handler) Connect(w http.ResponseWriter, r *http.Request, scope access.Scope) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.logger.Warn("websocket accept", "error", err)
		return
	}
	defer conn.CloseNow()

	h.logger.Debug("websocket connected", "user_id", scope.User.ID)
	NewClient(h.hub, conn, scope.User.ID).Run(r.Context())
	conn.Close(ws.StatusNormalClosure, "")
}
