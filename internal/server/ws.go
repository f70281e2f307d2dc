package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/candybooth/internal/booth"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // kiosk UI is served locally
	},
}

// HandsSource publishes hand detection events.
type HandsSource interface {
	Subscribe() (<-chan booth.HandsEvent, func())
}

// LandmarksHandler forwards hand landmarks and fist counts to WebSocket clients.
type LandmarksHandler struct {
	source HandsSource
}

// NewLandmarksHandler creates a new LandmarksHandler.
func NewLandmarksHandler(source HandsSource) *LandmarksHandler {
	return &LandmarksHandler{source: source}
}

// ServeHTTP upgrades the connection and streams events until either side closes.
func (h *LandmarksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, unsubscribe := h.source.Subscribe()
	defer unsubscribe()

	// The read loop only detects the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case ev, ok := <-events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "booth stopped"),
					time.Now().Add(wsWriteTimeout))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
