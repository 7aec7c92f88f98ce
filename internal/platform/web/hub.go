package web

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dontdude/tiobot/internal/domain"
)

// pendingTTL is how long a result waits for its client to connect.
const pendingTTL = 2 * time.Minute

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// conn serialises writes to one websocket.
type conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *conn) send(result domain.JobResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(result)
}

type pendingResult struct {
	result domain.JobResult
	at     time.Time
}

// Hub routes rendered results to the websocket waiting for that job.
// Results that arrive before their client connects are held for pendingTTL.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*conn
	pending map[string]pendingResult
	now     func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*conn),
		pending: make(map[string]pendingResult),
		now:     time.Now,
	}
}

// Deliver sends result to its client, or parks it until the client connects.
func (h *Hub) Deliver(result domain.JobResult) {
	h.mu.Lock()
	c, ok := h.clients[result.JobID]
	if !ok {
		h.prune()
		h.pending[result.JobID] = pendingResult{result: result, at: h.now()}
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	if err := c.send(result); err != nil {
		slog.Error("Failed to write to websocket", "jobID", result.JobID, "error", err)
	}
}

// Run delivers every result from ch until it closes.
func (h *Hub) Run(ch <-chan domain.JobResult) {
	for result := range ch {
		h.Deliver(result)
	}
}

// ServeWS upgrades GET /api/ws?job_id=<id> and keeps the socket registered until the
// client disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		http.Error(w, "job_id is required", http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}
	slog.Info("Client connected via WebSocket", "jobID", jobID, "remoteAddr", ws.RemoteAddr())

	c := &conn{ws: ws}
	h.register(jobID, c)

	defer func() {
		slog.Info("Client disconnected", "jobID", jobID)
		h.unregister(jobID, c)
		ws.Close()
	}()

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) register(jobID string, c *conn) {
	h.mu.Lock()
	h.clients[jobID] = c
	p, ok := h.pending[jobID]
	delete(h.pending, jobID)
	h.mu.Unlock()

	if ok {
		if err := c.send(p.result); err != nil {
			slog.Error("Failed to write to websocket", "jobID", jobID, "error", err)
		}
	}
}

func (h *Hub) unregister(jobID string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[jobID] == c {
		delete(h.clients, jobID)
	}
}

// prune drops parked results nobody came for. Callers hold mu.
func (h *Hub) prune() {
	now := h.now()
	for id, p := range h.pending {
		if now.Sub(p.at) > pendingTTL {
			delete(h.pending, id)
		}
	}
}
