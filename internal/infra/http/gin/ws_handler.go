package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"quickswap/internal/infra/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// cross-origin is already constrained by the CORS layer
		return true
	},
}

// WSHandler upgrades authenticated clients onto the realtime change feed.
type WSHandler struct {
	Hub    *realtime.Hub
	Logger *slog.Logger
}

func (h WSHandler) Connect(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	client := realtime.NewClient(p.ID, conn)
	go client.Serve(h.Hub)
}
