package websocket

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"posbackend/internal/middleware"
	"posbackend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 256

	// EventStockUpdated is the event type pushed after a committed stock mutation.
	EventStockUpdated = "stock.updated"
)

// Event is the envelope written to clients.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Client represents a single connected WebSocket client
type Client struct {
	hub    *Hub
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan []byte
}

// Hub tracks connected clients per user and delivers stock events to the owner only.
type Hub struct {
	mu       sync.Mutex
	clients  map[uuid.UUID]map[*Client]struct{}
	origins  map[string]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
}

var _ service.StockNotifier = (*Hub)(nil)

// NewHub initializes a new WS Hub instance. Browser upgrades are accepted only from
// allowedOrigins, the same list the CORS middleware uses; "*" allows any origin.
func NewHub(log *zap.Logger, allowedOrigins []string) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		clients: make(map[uuid.UUID]map[*Client]struct{}),
		origins: make(map[string]struct{}, len(allowedOrigins)),
		log:     log.Named("websocket"),
	}
	for _, o := range allowedOrigins {
		h.origins[strings.ToLower(strings.TrimSuffix(o, "/"))] = struct{}{}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin lets non-browser clients (no Origin header) through.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if _, ok := h.origins["*"]; ok {
		return true
	}
	if _, ok := h.origins[strings.ToLower(origin)]; ok {
		return true
	}
	h.log.Warn("WebSocket origin rejected", zap.String("origin", origin))
	return false
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.log.Debug("WebSocket client connected", zap.String("user_id", c.userID.String()))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	h.log.Debug("WebSocket client disconnected", zap.String("user_id", c.userID.String()))
}

// ConnectedClients returns how many connections userID currently holds.
func (h *Hub) ConnectedClients(userID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[userID])
}

// NotifyStockChanged pushes the changes to every connection of userID.
// A client whose buffer is full is dropped rather than blocking the caller.
func (h *Hub) NotifyStockChanged(userID uuid.UUID, changes []service.StockChange) {
	if len(changes) == 0 {
		return
	}
	payload, err := json.Marshal(Event{Type: EventStockUpdated, Data: changes})
	if err != nil {
		h.log.Error("Failed to encode stock event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
			h.log.Warn("Dropping slow WebSocket client", zap.String("user_id", userID.String()))
			h.removeLocked(client)
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.clients {
		for client := range set {
			h.removeLocked(client)
		}
	}
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.conn.Close()
	}()
	for message := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump drains the connection until the peer goes away
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
	}
}

// ServeWs authenticates the token query param and upgrades the connection
func ServeWs(hub *Hub, c *gin.Context, secret []byte) {
	tokenString := c.Query("token")
	if tokenString == "" {
		hub.log.Debug("WebSocket connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	sub, err := middleware.ParseToken(tokenString, secret)
	if err != nil {
		hub.log.Debug("WebSocket connection rejected: invalid token", zap.Error(err))
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	conn, err := hub.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	client := &Client{hub: hub, userID: userID, conn: conn, send: make(chan []byte, sendBufferSize)}
	hub.register(client)

	go client.writePump()
	go client.readPump()
}
