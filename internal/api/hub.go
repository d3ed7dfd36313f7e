package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"PaintingOnWeb/internal/store"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 4
)

// peer is one websocket subscriber. Only its writer goroutine writes to conn.
type peer struct {
	id   string
	conn *websocket.Conn
	send chan Event
}

// Hub tracks websocket subscribers and fans background writes out to them.
type Hub struct {
	peers    map[*peer]bool
	mu       sync.RWMutex
	kv       store.KV
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHub creates a hub. When kv is non-nil a new subscriber first receives
// the current background.
func NewHub(kv store.KV, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		peers: make(map[*peer]bool),
		kv:    kv,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			// Desktop clients send no Origin worth checking.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log.With("component", "hub"),
	}
}

func (h *Hub) add(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[p] = true
	h.log.Info("subscriber added", "peer", p.id, "remote", p.conn.RemoteAddr().String())
}

func (h *Hub) remove(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.peers[p]; !ok {
		return
	}
	delete(h.peers, p)
	close(p.send)
	h.log.Info("subscriber removed", "peer", p.id)
}

// Len reports the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Broadcast queues ev for every subscriber. A subscriber whose queue is full
// is skipped; it will see a later version.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for p := range h.peers {
		select {
		case p.send <- ev:
		default:
			h.log.Warn("subscriber too slow, event dropped", "peer", p.id, "version", ev.Version)
		}
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.RLock()
	peers := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.RUnlock()
	for _, p := range peers {
		p.conn.Close()
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", "err", err, "request", RequestID(r.Context()))
		return
	}
	p := &peer{id: uuid.NewString(), conn: conn, send: make(chan Event, sendBuffer)}
	h.add(p)

	if ev, ok := h.current(r.Context()); ok {
		p.send <- ev
	}
	go h.writeLoop(p)
	h.readLoop(p)
}

func (h *Hub) current(ctx context.Context) (Event, bool) {
	if h.kv == nil {
		return Event{}, false
	}
	entry, err := h.kv.Get(ctx, store.BackgroundKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log.Warn("read current background", "err", err)
		}
		return Event{}, false
	}
	return Event{Type: EventBackground, Version: entry.Version, Data: entry.Value}, true
}

// readLoop discards inbound messages and notices when the peer goes away.
func (h *Hub) readLoop(p *peer) {
	defer func() {
		h.remove(p)
		p.conn.Close()
	}()
	p.conn.SetReadLimit(512)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := p.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("subscriber read", "peer", p.id, "err", err)
			}
			return
		}
	}
}

func (h *Hub) writeLoop(p *peer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteJSON(ev); err != nil {
				h.log.Warn("send to subscriber failed", "peer", p.id, "err", err)
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
