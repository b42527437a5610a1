// Package fanoutws exposes the signal hub's broadcast stream over a
// WebSocket endpoint, adapted from the sport-process fanout transport this
// codebase used for its own inter-process relay.
package fanoutws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/charleschow/mispricing-detector/internal/hub"
	"github.com/charleschow/mispricing-detector/internal/telemetry"
)

const (
	clientSendBuf = 64
	writeDeadline = 5 * time.Second
	pongWait      = 30 * time.Second
	pingInterval  = 20 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// Server upgrades HTTP connections to WebSocket and relays hub broadcasts.
type Server struct {
	h *hub.Hub
}

func NewServer(h *hub.Hub) *Server {
	h.OnDrop(func() { telemetry.Metrics.BroadcastDrops.Inc() })
	return &Server{h: h}
}

// HandleWS is the HTTP handler for the live snapshot WebSocket.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		telemetry.Warnf("fanoutws: upgrade failed: %v", err)
		return
	}

	sub := s.h.Subscribe()
	telemetry.Metrics.HubSubscribers.Inc()

	go s.writePump(conn, sub)
	s.readPump(conn, sub)
}

func (s *Server) writePump(conn *websocket.Conn, sub *hub.Subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.h.Unsubscribe(sub)
		telemetry.Metrics.HubSubscribers.Dec()
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-sub.C():
			if !ok {
				return
			}
			data, err := json.Marshal(payload)
			if err != nil {
				telemetry.Warnf("fanoutws: marshal error: %v", err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				telemetry.Warnf("fanoutws: write error: %v", err)
				return
			}
		case <-sub.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump keeps the connection alive by draining pongs/close frames. No
// upstream messages are expected from snapshot subscribers.
func (s *Server) readPump(conn *websocket.Conn, sub *hub.Subscriber) {
	defer s.h.Unsubscribe(sub)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ListenAndServe starts the fanout WebSocket server standalone on its own
// port. cmd/detector does not call it; it mounts HandleWS on the apisrv mux.
func (s *Server) ListenAndServe(port int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/snapshot", s.HandleWS)
	addr := fmt.Sprintf(":%d", port)
	telemetry.Infof("fanoutws: listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
