package httpapi

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hedgehog/ivdmiddleware/internal/httpapi/middleware"
)

// ReviewHub fans review-queue events out to every reviewer connected to
// GET /api/v1/reviews/stream for their tenant. Read-only and additive — no
// particular client is assumed.
type ReviewHub struct {
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan interface{}
	done chan struct{}
}

func NewReviewHub(logger *zap.SugaredLogger) *ReviewHub {
	return &ReviewHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]map[*wsClient]struct{}),
	}
}

// Broadcast pushes v as JSON to every client currently subscribed for
// tenantID. Non-blocking: a client whose send buffer is full is dropped.
func (h *ReviewHub) Broadcast(tenantID string, v interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[tenantID] {
		select {
		case c.send <- v:
		case <-c.done:
		default:
			h.logger.Warnw("dropping slow review stream client", "tenant_id", tenantID)
			h.removeLocked(tenantID, c)
		}
	}
}

func (h *ReviewHub) add(tenantID string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[tenantID] == nil {
		h.clients[tenantID] = make(map[*wsClient]struct{})
	}
	h.clients[tenantID][c] = struct{}{}
}

func (h *ReviewHub) remove(tenantID string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(tenantID, c)
}

func (h *ReviewHub) removeLocked(tenantID string, c *wsClient) {
	delete(h.clients[tenantID], c)
	if len(h.clients[tenantID]) == 0 {
		delete(h.clients, tenantID)
	}
}

func (d *Deps) handleReviewStream(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.Principal(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	conn, err := d.Hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.Logger.Warnw("review stream upgrade failed", "error", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan interface{}, 16), done: make(chan struct{})}
	d.Hub.add(p.TenantID, client)
	defer func() {
		d.Hub.remove(p.TenantID, client)
		conn.Close()
	}()

	go client.discardReads()

	for {
		select {
		case v := <-client.send:
			if err := conn.WriteJSON(v); err != nil {
				return
			}
		case <-client.done:
			return
		}
	}
}

// discardReads keeps the read pump alive so gorilla/websocket's control
// frames (ping/pong, close) are processed; this endpoint accepts no
// client messages.
func (c *wsClient) discardReads() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			close(c.done)
			return
		}
	}
}
