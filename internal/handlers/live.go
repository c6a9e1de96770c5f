package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"trafficcam/internal/logger"
	ws "trafficcam/internal/services/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const pongWait = 60 * time.Second

// pingPeriod must stay under pongWait or quiet viewers get dropped
// between pings.
var pingPeriod = (pongWait * 9) / 10

// LiveWebsocketHandler upgrades the connection and registers the
// viewer with the hub; count events are pushed until the client
// disconnects. Viewers only receive, so the server pings them to keep
// the read deadline fresh.
func LiveWebsocketHandler(hub *ws.HubService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(512)
		connection.SetReadDeadline(time.Now().Add(pongWait))
		connection.SetPongHandler(func(appData string) error {
			return connection.SetReadDeadline(time.Now().Add(pongWait))
		})
		defer connection.Close()

		hub.Register(connection)
		defer hub.Unregister(connection)

		stop := make(chan struct{})
		defer close(stop)
		go pingViewer(connection, stop)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				logger.Info("Live viewer disconnected: %v", err)
				break
			}
		}
	}
}

// pingViewer keeps an otherwise silent viewer alive. WriteControl is
// safe to call while the hub writes broadcast frames.
func pingViewer(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}
