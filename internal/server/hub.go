package server

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"PairSentinel/internal/model"

	log "github.com/sirupsen/logrus"
)

// Message is the websocket envelope of a broadcast event.
type Message struct {
	Event     string    `json:"event"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

type keyedMessage struct {
	key  string // pair id for metrics updates, empty otherwise
	data []byte
}

// Hub fans broadcast events out to websocket clients. All client bookkeeping
// happens on the Run goroutine.
type Hub struct {
	broadcast  chan keyedMessage
	register   chan *Client
	unregister chan *Client

	clients map[*Client]struct{}
	// latest metricsUpdate per pair, replayed to new clients
	latest  map[string][]byte
	order   []string
	count   atomic.Int64
	stopped chan struct{}
	once    sync.Once
}

// NewHub creates a Hub. Call Run to start it.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan keyedMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]struct{}),
		latest:     make(map[string][]byte),
		stopped:    make(chan struct{}),
	}
}

// Publish queues an event for every connected client. It never blocks; events
// are dropped when the queue is full.
func (h *Hub) Publish(event string, payload any) {
	data, err := json.Marshal(Message{Event: event, Data: payload, Timestamp: time.Now().UTC()})
	if err != nil {
		log.WithField("event", event).Errorf("[server] encode websocket message: %v", err)
		return
	}
	msg := keyedMessage{data: data}
	if m, ok := payload.(*model.PairMetrics); ok && m != nil {
		msg.key = m.Pair
	}
	select {
	case h.broadcast <- msg:
	default:
		log.WithField("event", event).Warn("[server] websocket queue full, dropping event")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Run is the hub loop. It returns when ctx is cancelled, disconnecting every client.
func (h *Hub) Run(ctx context.Context) {
	defer h.once.Do(func() { close(h.stopped) })
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int64(len(h.clients)))
			for _, key := range h.order {
				select {
				case c.send <- h.latest[key]:
				default:
				}
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}

		case msg := <-h.broadcast:
			if msg.key != "" {
				if _, seen := h.latest[msg.key]; !seen {
					h.order = append(h.order, msg.key)
				}
				h.latest[msg.key] = msg.data
			}
			for c := range h.clients {
				select {
				case c.send <- msg.data:
				default:
					// Slow client; drop it rather than block the hub.
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
	h.count.Store(int64(len(h.clients)))
	log.WithField("client", c.id).Debug("[server] websocket client removed")
}

// join registers c unless the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stopped:
		return false
	}
}

// leave unregisters c unless the hub has stopped.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}
