package ws

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/jmylchreest/sp108ed/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API binds to loopback by default and carries no credentials.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades connections to WebSocket and registers them with the hub.
// The optional "types" query parameter is a comma-separated list of event
// types to receive.
func Handler(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types, err := parseTypes(r.URL.Query().Get("types"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("ws: upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
			return
		}

		client := hub.NewClient(conn, types...)
		if !hub.Register(client) {
			_ = conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}

func parseTypes(raw string) ([]events.EventType, error) {
	var types []events.EventType
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		t, ok := events.ParseType(part)
		if !ok {
			return nil, fmt.Errorf("unknown event type %q", part)
		}
		types = append(types, t)
	}
	return types, nil
}
