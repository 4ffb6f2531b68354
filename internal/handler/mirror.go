package handler

import (
	"net/http"

	"buildpos/internal/mirror"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Terminals connect from arbitrary LAN origins; auth happens via the
	// JWT middleware before the upgrade.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Mirror upgrades the connection and hands it to the hub. The handler
// goroutine blocks pumping frames for the lifetime of the connection.
func Mirror(hub *mirror.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Msg("mirror: upgrade failed")
			return
		}
		hub.Serve(conn)
	}
}
