package server

import (
	"encoding/json"
	"net/http"

	"market-screener/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Websocket message types
const (
	MessageInitial = "INITIAL"
	MessageUpdate  = "UPDATE"
)

// wsMessage is the envelope pushed to websocket clients.
type wsMessage struct {
	Type   string                `json:"type"`
	Result *models.MScreenResult `json:"result"`
}

// subscribeCommand narrows a client's pushes to a set of tickers.
type subscribeCommand struct {
	Command string   `json:"command"`
	Symbols []string `json:"symbols"`
}

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop. It is the only writer of client.queue.
func (s *ScreenerServer) handleWebsockets() {
	for {
		select {
		case <-s.done:
			for client := range s.clients {
				s.drop(client)
			}
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.connections.Add(1)
			s.sendLatest(client)

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				s.drop(client)
			}

		case client := <-s.refresh:
			if _, ok := s.clients[client]; ok {
				s.sendLatest(client)
			}

		case result := <-s.broadcast:
			for client := range s.clients {
				msg := wsMessage{Type: MessageUpdate, Result: filterResult(result, client.Tickers())}
				select {
				case client.queue <- msg:
				default:
					// Slow consumers are pruned so the hub never blocks.
					s.drop(client)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (s *ScreenerServer) sendLatest(client *Subscriber) {
	latest := s.latestResult()
	if latest == nil {
		return
	}
	select {
	case client.queue <- wsMessage{Type: MessageInitial, Result: filterResult(latest, client.Tickers())}:
	default:
	}
}

// -----------------------------------------------------------------------------

func (s *ScreenerServer) drop(client *Subscriber) {
	delete(s.clients, client)
	close(client.queue)
	s.connections.Add(-1)
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *ScreenerServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := newSubscriber(s, conn)

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.deliver()
	go client.receive()
}

// -----------------------------------------------------------------------------

// HandleSubscriberCommand applies a subscribe command and resends the latest
// result under the new filter. Malformed JSON drops the connection.
func (s *ScreenerServer) HandleSubscriberCommand(client *Subscriber, message []byte) {
	var cmd subscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	client.Subscribe(normalize(cmd.Symbols))

	select {
	case s.refresh <- client:
	case <-s.done:
	}
}
