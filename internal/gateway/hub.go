// Package gateway pushes cycle reports and alerts to live dashboard clients
// over websockets.
package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub tracks websocket clients and fans out broadcasts to them. The latest
// payload of every channel is kept so new clients start from current state,
// and recent envelopes are kept per channel so reconnecting clients can
// backfill gaps.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]latestEntry
	seq     int64

	// Per-channel monotonic sequence numbers for gap detection
	channelSeqs map[string]int64

	// Per-channel replay buffers for gap backfill
	replayBufs map[string]*ReplayBuffer
	replaySize int

	// OnClientsChanged, if set, is called with the client count after every
	// connect and disconnect.
	OnClientsChanged func(n int)

	broadcaster *Broadcaster
}

type latestEntry struct {
	Envelope []byte
	TS       time.Time
	Seq      int64
}

// NewHub creates a hub. replaySize bounds the envelopes kept per channel.
func NewHub(log *zap.Logger, replaySize int) *Hub {
	h := &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin:       func(r *http.Request) bool { return true },
			EnableCompression: true,
		},
		clients:     make(map[*Client]bool),
		latest:      make(map[string]latestEntry),
		channelSeqs: make(map[string]int64),
		replayBufs:  make(map[string]*ReplayBuffer),
		replaySize:  replaySize,
	}
	h.broadcaster = NewBroadcaster(h)
	return h
}

// Broadcast JSON-encodes data and sends it on channel to every client.
func (h *Hub) Broadcast(channel string, data interface{}) {
	if err := h.broadcaster.Broadcast(channel, data); err != nil {
		h.log.Warn("broadcast dropped", zap.String("channel", channel), zap.Error(err))
	}
}

// ServeHTTP upgrades the request to a websocket and registers the client.
// A last_ts query parameter (RFC 3339) limits the initial snapshot to
// channels updated after it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	h.register(conn, r.URL.Query().Get("last_ts"))
}

func (h *Hub) register(conn *websocket.Conn, lastTS string) {
	client := newClient(h, conn)
	conn.EnableWriteCompression(true)

	// Queue the snapshot under the same lock that registers the client so no
	// broadcast can overtake it.
	h.mu.Lock()
	h.clients[client] = true
	client.queueInitialStateLocked(lastTS)
	count := len(h.clients)
	h.mu.Unlock()

	h.log.Info("ws client connected", zap.Int("clients", count))
	if h.OnClientsChanged != nil {
		h.OnClientsChanged(count)
	}

	go client.writePump()
	go client.readPump()
}

// RemoveClient removes a client from the hub. Safe to call more than once.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	count := len(h.clients)
	h.mu.Unlock()

	h.log.Info("ws client disconnected", zap.Int("clients", count))
	if h.OnClientsChanged != nil {
		h.OnClientsChanged(count)
	}
}

// Run blocks until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.RemoveClient(c)
	}
}

// Latest returns the latest envelope of every channel.
func (h *Hub) Latest() map[string][]byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cp := make(map[string][]byte, len(h.latest))
	for k, v := range h.latest {
		cp[k] = v.Envelope
	}
	return cp
}

// ReplayRange returns buffered envelopes for a channel in [fromSeq, toSeq].
func (h *Hub) ReplayRange(channel string, fromSeq, toSeq int64) [][]byte {
	h.mu.RLock()
	rb, exists := h.replayBufs[channel]
	h.mu.RUnlock()
	if !exists {
		return nil
	}
	entries := rb.Range(fromSeq, toSeq)
	result := make([][]byte, len(entries))
	for i, e := range entries {
		result[i] = e.Data
	}
	return result
}

// ChannelSeq returns the current sequence number for a channel.
func (h *Hub) ChannelSeq(channel string) int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.channelSeqs[channel]
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
