package bridge

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/microcosm-cc/bluemonday"

	"github.com/thywilljoshua/repot-ai/internal/logging"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 8 << 20
)

// Host owns the document a surface shows.
type Host interface {
	// Current returns the snapshot a surface receives once it is ready.
	Current() Message
	// Edited receives a sanitized user snapshot.
	Edited(html string)
}

// Hub fans snapshots out to every surface connected for one document.
type Hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader
	policy   *bluemonday.Policy

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
	out  chan Message
	done chan struct{}
}

// offer queues m, replacing a snapshot the writer has not sent yet.
func (c *client) offer(m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.out:
	default:
	}
	c.out <- m
}

func (c *client) writeLoop(log *slog.Logger) {
	for {
		select {
		case <-c.done:
			return
		case m := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(m); err != nil {
				log.Debug("editor write failed", "error", err)
				_ = c.conn.Close()
				return
			}
		}
	}
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log: logging.Or(log),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		policy:  NewPolicy(),
		clients: map[*client]struct{}{},
	}
}

// Sanitize cleans a snapshot coming from a surface.
func (h *Hub) Sanitize(html string) string { return h.policy.Sanitize(html) }

// Push sends m to every connected surface.
func (h *Hub) Push(m Message) {
	m.Editor = true
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.offer(m)
	}
}

// Clients returns the number of connected surfaces.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every surface.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.conn.Close()
	}
}

// Serve upgrades the request and runs the surface connection until it closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, host Host) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade editor connection: %w", err)
	}
	conn.SetReadLimit(maxFrameSize)

	c := &client{conn: conn, out: make(chan Message, 1), done: make(chan struct{})}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	go c.writeLoop(h.log)

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		close(c.done)
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("editor connection closed", "error", err)
			}
			return nil
		}
		m, ok := Decode(data)
		if !ok {
			continue
		}
		switch m.Type {
		case FrameReady:
			c.offer(host.Current())
		case EditHTML:
			clean := h.Sanitize(m.HTML)
			added, removed := ChangeStats(host.Current().HTML, clean)
			h.log.Debug("editor edit", "added", added, "removed", removed, "bytes", len(clean))
			host.Edited(clean)
		}
	}
}
