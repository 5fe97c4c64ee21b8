package notify

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// The zero CheckOrigin rejects handshakes whose Origin host differs from the
// request host.
var upgrader = websocket.Upgrader{}

// WS streams toasts over a websocket: the retained toasts first, then live
// ones until the client goes away.
type WS struct {
	Hub *Hub
}

func (h *WS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	recent, toasts, unsubscribe := h.Hub.Follow()
	defer unsubscribe()

	// reader: detects close frames
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for _, t := range recent {
		if err := conn.WriteJSON(t); err != nil {
			return
		}
	}

	ping := time.NewTicker(20 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(2*time.Second)); err != nil {
				return
			}
		case t, ok := <-toasts:
			if !ok {
				return
			}
			if err := conn.WriteJSON(t); err != nil {
				log.WithError(err).Debug("notification stream closed")
				return
			}
		}
	}
}
