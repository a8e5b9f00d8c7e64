package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/media-library-system/pkg/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, implement proper origin checking
	},
}

// Handler streams library events to connected clients. Events carrying a
// user id go only to that user's connections; catalog-wide events (uploads,
// deletes) go to everyone. Clients use the feed to refresh their views.
type Handler struct {
	// Map of userID -> map of connectionID -> *websocket.Conn
	users  map[string]map[string]*websocket.Conn
	mu     sync.RWMutex
	events *events.KafkaClient
	once   sync.Once
}

func NewHandler(events *events.KafkaClient) *Handler {
	return &Handler{
		users:  make(map[string]map[string]*websocket.Conn),
		events: events,
	}
}

func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID := c.GetString("user_id") // Set by auth middleware
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	connID := uuid.New().String()
	h.addConnection(userID, connID, conn)
	defer h.removeConnection(userID, connID)

	// One consumer fans events out to all connections.
	h.once.Do(func() {
		go h.consumeEvents()
	})

	// The feed is one-way; drain client frames until the connection closes.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

func (h *Handler) addConnection(userID, connID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.users[userID]; !exists {
		h.users[userID] = make(map[string]*websocket.Conn)
	}
	h.users[userID][connID] = conn
}

func (h *Handler) removeConnection(userID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, exists := h.users[userID]; exists {
		if conn, exists := conns[connID]; exists {
			conn.Close()
			delete(conns, connID)
		}
		if len(conns) == 0 {
			delete(h.users, userID)
		}
	}
}

func (h *Handler) dispatch(event events.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	messageJSON, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal event: %v", err)
		return
	}

	send := func(conns map[string]*websocket.Conn) {
		for _, conn := range conns {
			if err := conn.WriteMessage(websocket.TextMessage, messageJSON); err != nil {
				log.Printf("Failed to send message: %v", err)
			}
		}
	}

	if event.UserID != "" {
		if conns, exists := h.users[event.UserID]; exists {
			send(conns)
		}
		return
	}
	for _, conns := range h.users {
		send(conns)
	}
}

func (h *Handler) consumeEvents() {
	ctx := context.Background()
	err := h.events.ConsumeEvents(ctx, func(event events.Event) error {
		h.dispatch(event)
		return nil
	})
	if err != nil {
		log.Printf("Failed to consume events: %v", err)
	}
}
