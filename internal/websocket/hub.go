package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// questionMessage is a payload for everyone watching one question.
type questionMessage struct {
	QuestionID uuid.UUID
	Payload    []byte
}

// Hub maintains the clients watching each question and fans out updates.
type Hub struct {
	// Registered clients. Maps question ID to the connections watching it.
	Clients map[uuid.UUID]map[*Client]bool

	publish    chan *questionMessage
	Register   chan *Client
	Unregister chan *Client

	// Mutex to protect concurrent access to the clients map.
	mu sync.RWMutex

	// done is closed when Run returns.
	done chan struct{}

	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		publish:    make(chan *questionMessage),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Clients:    make(map[uuid.UUID]map[*Client]bool),
		done:       make(chan struct{}),
		logger:     logger.Named("websocket"),
	}
}

// Run processes registrations and publications until ctx is cancelled, then
// closes every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket hub started")
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for questionID, clients := range h.Clients {
				for client := range clients {
					close(client.Send)
				}
				delete(h.Clients, questionID)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket hub stopped")
			return

		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.Clients[client.QuestionID]; !ok {
				h.Clients[client.QuestionID] = make(map[*Client]bool)
			}
			h.Clients[client.QuestionID][client] = true
			h.logger.Debug("Client registered",
				zap.String("questionId", client.QuestionID.String()),
				zap.Int("watchers", len(h.Clients[client.QuestionID])))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.Clients[client.QuestionID]; ok {
				if _, found := clients[client]; found {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.Clients, client.QuestionID)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.publish:
			h.mu.RLock()
			for client := range h.Clients[msg.QuestionID] {
				select {
				case client.Send <- msg.Payload:
				default:
					h.logger.Warn("Send buffer full, dropping update",
						zap.String("questionId", msg.QuestionID.String()))
				}
			}
			h.mu.RUnlock()
		}
	}
}

// RegisterClient subscribes c and reports false if the hub already stopped.
func (h *Hub) RegisterClient(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

// unregister removes a client unless the hub already stopped.
func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

// Watchers reports how many connections follow a question.
func (h *Hub) Watchers(questionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.Clients[questionID])
}

// Publish sends event as JSON to everyone watching questionID. It gives up
// after a second so a stalled hub never blocks the request path.
func (h *Hub) Publish(questionID uuid.UUID, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to encode update", zap.Error(err))
		return
	}
	select {
	case h.publish <- &questionMessage{QuestionID: questionID, Payload: payload}:
	case <-h.done:
	case <-time.After(1 * time.Second):
		h.logger.Warn("Timeout queuing update, hub might be busy or stopped",
			zap.String("questionId", questionID.String()))
	}
}
