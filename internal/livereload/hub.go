// Package livereload runs the optional websocket side channel that tells
// browsers to reload when files under the static root change.
//
// The hub follows a single-goroutine design: registration, removal and
// broadcasts are all funnelled through channels into runHub, which owns
// the client set.
package livereload

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/conneroisu/poolserve/internal/logging"
	"github.com/conneroisu/poolserve/internal/validation"
)

const (
	sendBuffer          = 16
	writeTimeout        = 10 * time.Second
	pingInterval        = 54 * time.Second
	maxConnectionsPerIP = 16
)

// Hub tracks connected browsers and broadcasts reload messages to them.
type Hub struct {
	clients      map[*client]struct{}
	perIP        map[string]int
	clientsMutex sync.RWMutex

	register   chan *client
	unregister chan *client
	broadcast  chan []byte

	allowedOrigins []string
	logger         logging.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
	hubDone      chan struct{}
	clientWg     sync.WaitGroup
}

// NewHub creates a hub and starts its goroutine. Browsers presenting an
// Origin header must match one of allowedOrigins; requests without an
// Origin header are accepted.
func NewHub(allowedOrigins []string, logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:        make(map[*client]struct{}),
		perIP:          make(map[string]int),
		register:       make(chan *client, 32),
		unregister:     make(chan *client, 32),
		broadcast:      make(chan []byte, 64),
		allowedOrigins: allowedOrigins,
		logger:         logger.WithComponent("livereload"),
		ctx:            ctx,
		cancel:         cancel,
		hubDone:        make(chan struct{}),
	}

	go h.runHub()

	return h
}

// ServeHTTP upgrades the request to a websocket and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	if origin := r.Header.Get("Origin"); origin != "" {
		if err := validation.ValidateOrigin(origin, h.allowedOrigins); err != nil {
			h.logger.Warn(r.Context(), err, "Live reload connection rejected", "remote", r.RemoteAddr)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	ip := clientIP(r)
	if h.connectionsFrom(ip) >= maxConnectionsPerIP {
		http.Error(w, "Too Many Connections", http.StatusTooManyRequests)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin was validated above.
		InsecureSkipVerify: true,
		CompressionMode:    websocket.CompressionDisabled,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "Websocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	c := &client{
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		ip:          ip,
		connectedAt: time.Now(),
	}

	h.clientWg.Add(1)
	select {
	case h.register <- c:
	case <-h.ctx.Done():
		h.clientWg.Done()
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	go h.writePump(c)
}

// Broadcast queues msg for every connected client.
func (h *Hub) Broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(h.ctx, err, "Failed to marshal live reload message")
		return
	}

	select {
	case h.broadcast <- data:
	case <-h.ctx.Done():
	default:
		h.logger.Warn(h.ctx, nil, "Broadcast channel full, dropping message", "path", msg.Path)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects every client and stops the hub. It is safe to call
// more than once.
func (h *Hub) Shutdown(ctx context.Context) error {
	var err error
	h.shutdownOnce.Do(func() {
		h.cancel()
		<-h.hubDone

		h.clientsMutex.Lock()
		for c := range h.clients {
			_ = c.conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
		h.clientsMutex.Unlock()

		done := make(chan struct{})
		go func() {
			h.clientWg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}

		h.logger.Debug(context.Background(), "Live reload hub stopped")
	})
	return err
}

func (h *Hub) runHub() {
	defer close(h.hubDone)

	for {
		select {
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) addClient(c *client) {
	h.clientsMutex.Lock()
	h.clients[c] = struct{}{}
	h.perIP[c.ip]++
	total := len(h.clients)
	h.clientsMutex.Unlock()

	h.logger.Debug(h.ctx, "Live reload client connected", "ip", c.ip, "clients", total)

	hello, _ := json.Marshal(Message{Type: MessageTypeConnected, Timestamp: time.Now()})
	select {
	case c.send <- hello:
	default:
	}
}

func (h *Hub) removeClient(c *client) {
	h.clientsMutex.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		if h.perIP[c.ip]--; h.perIP[c.ip] <= 0 {
			delete(h.perIP, c.ip)
		}
		close(c.send)
	}
	total := len(h.clients)
	h.clientsMutex.Unlock()

	if ok {
		h.logger.Debug(h.ctx, "Live reload client disconnected", "ip", c.ip, "clients", total)
	}
}

func (h *Hub) broadcastToClients(message []byte) {
	h.clientsMutex.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMutex.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- message:
		default:
			// Slow client; drop it rather than stall the hub.
			h.removeClient(c)
		}
	}
}

func (h *Hub) connectionsFrom(ip string) int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return h.perIP[ip]
}

// writePump delivers queued messages to one client until it disconnects
// or the hub stops.
func (h *Hub) writePump(c *client) {
	defer h.clientWg.Done()
	defer c.conn.CloseNow()
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.ctx.Done():
		}
	}()

	// Browsers never send anything; CloseRead handles control frames and
	// cancels readCtx when the peer goes away.
	readCtx := c.conn.CloseRead(h.ctx)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				_ = c.conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			ctx, cancel := context.WithTimeout(readCtx, writeTimeout)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(readCtx, writeTimeout)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}

		case <-readCtx.Done():
			return
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
