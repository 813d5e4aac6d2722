package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------

const (
	wsWriteTimeout = 2 * time.Second
	wsIdleTimeout  = 60 * time.Second
	wsPingInterval = wsIdleTimeout * 9 / 10
	wsMaxCommand   = 64 * 1024
	wsQueueSize    = 32
)

// -----------------------------------------------------------------------------
// Subscriber
// -----------------------------------------------------------------------------

// Subscriber is one WebSocket connection following screen results. Only the
// hub loop sends on or closes queue.
type Subscriber struct {
	server *ScreenerServer
	conn   *websocket.Conn
	queue  chan wsMessage

	mu      sync.RWMutex
	tickers []string
}

func newSubscriber(s *ScreenerServer, conn *websocket.Conn) *Subscriber {
	return &Subscriber{
		server: s,
		conn:   conn,
		queue:  make(chan wsMessage, wsQueueSize),
	}
}

// -----------------------------------------------------------------------------

// Tickers returns the subscription filter; empty means every record.
func (sub *Subscriber) Tickers() []string {
	sub.mu.RLock()
	defer sub.mu.RUnlock()
	return sub.tickers
}

func (sub *Subscriber) Subscribe(tickers []string) {
	sub.mu.Lock()
	sub.tickers = tickers
	sub.mu.Unlock()
}

// -----------------------------------------------------------------------------

func (sub *Subscriber) extendDeadline(string) error {
	return sub.conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
}

// receive reads subscribe commands until the peer goes away or stays silent
// past wsIdleTimeout, then detaches from the hub.
func (sub *Subscriber) receive() {
	defer sub.detach()

	sub.conn.SetReadLimit(wsMaxCommand)
	_ = sub.extendDeadline("")
	sub.conn.SetPongHandler(sub.extendDeadline)

	for {
		_, payload, err := sub.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				sub.server.Logger.Info("WebSocket read failed: %v", err)
			}
			return
		}
		sub.server.HandleSubscriberCommand(sub, payload)
	}
}

func (sub *Subscriber) detach() {
	select {
	case sub.server.unregister <- sub:
	case <-sub.server.done:
	}
	sub.conn.Close()
	sub.server.Logger.Info("Subscriber disconnected")
}

// -----------------------------------------------------------------------------

// deliver drains queue onto the socket and pings on wsPingInterval. A closed
// queue ends the connection with a close frame.
func (sub *Subscriber) deliver() {
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	defer sub.conn.Close()

	for {
		select {
		case msg, open := <-sub.queue:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !open {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteJSON(msg); err != nil {
				sub.server.Logger.Info("WebSocket write failed: %v", err)
				return
			}

		case <-ping.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
