// Package live pushes gradebook sync notifications to connected dashboards
// over websockets.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/gradeview/internal/gradebook"
)

const (
	clientBuffer = 8
	writeTimeout = 5 * time.Second
)

// Message is sent to every client after a sync.
type Message struct {
	Event    string `json:"event"`
	LastSync string `json:"lastSync"`
}

type client struct {
	msgs      chan Message
	closeSlow func()
}

// Hub fans sync notifications out to websocket clients.
type Hub struct {
	onSync  func()
	origins []string

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates a hub. onSync runs once per received sync before clients
// are notified; it may be nil. origins lists the host patterns allowed to
// connect from another origin.
func NewHub(onSync func(), origins []string) *Hub {
	return &Hub{
		onSync:  onSync,
		origins: origins,
		clients: make(map[*client]struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams messages until the client goes
// away or falls too far behind.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	c := &client{
		msgs: make(chan Message, clientBuffer),
		closeSlow: func() {
			conn.Close(websocket.StatusPolicyViolation, "connection too slow to keep up with messages")
		},
	}
	h.add(c)
	defer h.remove(c)

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case m := <-c.msgs:
			if err := write(ctx, conn, m); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, m Message) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, m)
}

// Broadcast queues m for every client. Clients whose queue is full are
// disconnected.
func (h *Hub) Broadcast(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.msgs <- m:
		default:
			go c.closeSlow()
		}
	}
}

// Notify handles one sync: it runs the sync callback and broadcasts.
func (h *Hub) Notify(lastSync string) {
	if h.onSync != nil {
		h.onSync()
	}
	h.Broadcast(Message{Event: "sync", LastSync: lastSync})
}

// Run subscribes to gradebook updates and notifies clients until ctx is
// cancelled.
func (h *Hub) Run(ctx context.Context, rdb *redis.Client) error {
	sub := rdb.Subscribe(ctx, gradebook.UpdatesChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", gradebook.UpdatesChannel, err)
	}
	slog.Info("listening for gradebook updates", "channel", gradebook.UpdatesChannel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			slog.Info("gradebook synced", "last_sync", msg.Payload, "clients", h.Clients())
			h.Notify(msg.Payload)
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}
