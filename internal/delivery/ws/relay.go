// Package ws relays participation bus events to the websocket connections of
// the user they concern.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	h "eventhub/internal/delivery/http/helpers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/eventbus"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Relay fans bus events out to connected clients.
type Relay struct {
	logger      *slog.Logger
	upgrader    websocket.Upgrader
	unsubscribe func()

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewRelay subscribes to bus. Connections from origins outside
// allowedOrigins are refused; requests without an Origin header are allowed.
func NewRelay(bus *eventbus.Bus, allowedOrigins []string, logger *slog.Logger) *Relay {
	r := &Relay{
		logger:  logger,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(req *http.Request) bool {
				origin := req.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return slices.Contains(allowedOrigins, origin)
			},
		},
	}
	r.unsubscribe = bus.Subscribe(r.dispatch)
	return r
}

// Len returns the number of connected clients.
func (r *Relay) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Close unsubscribes from the bus and disconnects every client.
func (r *Relay) Close() {
	r.unsubscribe()
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.clients {
		c.stopClient()
		delete(r.clients, c)
	}
}

func (r *Relay) dispatch(ev eventbus.AppEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.clients {
		if ev.UserID != "" && ev.UserID != c.userID {
			continue
		}
		if !c.queue(ev) {
			r.logger.Warn("ws send buffer full, dropping event", "user_id", c.userID, "type", ev.Kind)
		}
	}
}

func (r *Relay) register(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c] = struct{}{}
}

func (r *Relay) unregister(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c]; ok {
		delete(r.clients, c)
		c.stopClient()
	}
}

// ServeHTTP upgrades an authenticated request. It must run inside RequireAuth.
//
// @Summary Participation event stream
// @Description Websocket streaming {"type":"event:joined"|"event:left","event_id":...} messages for the caller. Browsers may pass the token as access_token.
// @Tags participation
// @Security BearerAuth
// @Success 101 "switching protocols"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /ws/participation [get]
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p, ok := middleware.PrincipalFromContext(req.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.WarnContext(req.Context(), "websocket upgrade failed", "err", err)
		return
	}
	c := &client{
		relay:  r,
		conn:   conn,
		userID: p.UserID,
		send:   make(chan eventbus.AppEvent, sendBuffer),
		stop:   make(chan struct{}),
		logger: r.logger.With("user_id", p.UserID),
	}
	r.register(c)
	go c.write()
	go c.read()
}

type client struct {
	relay    *Relay
	conn     *websocket.Conn
	userID   string
	send     chan eventbus.AppEvent
	stop     chan struct{}
	stopOnce sync.Once
	logger   *slog.Logger
}

func (c *client) queue(ev eventbus.AppEvent) bool {
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

func (c *client) stopClient() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *client) write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev := <-c.send:
			msg, err := json.Marshal(ev)
			if err != nil {
				c.logger.Error("failed to serialize event", "err", err)
				continue
			}
			if !c.sendMessage(websocket.TextMessage, msg) {
				return
			}
		case <-c.stop:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// read only services control frames; clients have nothing to send.
func (c *client) read() {
	defer func() {
		c.relay.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.logger.Warn("ws read", "err", err)
			}
			return
		}
	}
}

func (c *client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.logger.Warn("ws write", "err", err)
		}
		return false
	}
	return true
}
