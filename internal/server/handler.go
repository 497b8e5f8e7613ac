package server

import (
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func (h *Hub) newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
}

// checkOrigin accepts requests without an Origin header (non-browser
// clients). With no allow list configured every origin is accepted.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.allowedOrigins) == 0 {
		return true
	}
	return slices.ContainsFunc(h.allowedOrigins, func(allowed string) bool {
		return strings.EqualFold(allowed, origin)
	})
}

// ServeWs upgrades the request and hands the connection to the hub under a
// fresh client ID.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Warn("websocket upgrade refused",
			zap.String("origin", r.Header.Get("Origin")),
			zap.String("addr", r.RemoteAddr),
			zap.Error(err))
		return
	}

	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
		ID:   uuid.NewString(),
	}
	hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}
