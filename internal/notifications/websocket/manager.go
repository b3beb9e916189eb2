package websocket

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message is one live push event delivered to connected clients
type Message struct {
	Type    string      `json:"type"`
	UserID  int64       `json:"user_id,omitempty"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sent_at"`
}

// Manager handles WebSocket connections and message routing
type Manager struct {
	connections map[string]*Connection
	mu          sync.RWMutex
	hub         *hub
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// Connection represents a WebSocket client connection
type Connection struct {
	ID           string
	UserID       int64
	Conn         *websocket.Conn
	Send         chan Message
	LastActivity time.Time
	mu           sync.Mutex
}

type hub struct {
	connections map[*Connection]bool
	broadcast   chan Message
	register    chan *Connection
	unregister  chan *Connection
	stop        chan struct{}
}

// NewManager creates a new WebSocket manager
func NewManager(logger *zap.Logger) *Manager {
	h := &hub{
		connections: make(map[*Connection]bool),
		broadcast:   make(chan Message, 256),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		stop:        make(chan struct{}),
	}
	go h.run()

	return &Manager{
		connections: make(map[string]*Connection),
		hub:         h,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleConnection upgrades an HTTP request and registers the client
func (m *Manager) HandleConnection(w http.ResponseWriter, r *http.Request, userID int64) (*Connection, error) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:           uuid.New().String(),
		UserID:       userID,
		Conn:         conn,
		Send:         make(chan Message, 256),
		LastActivity: time.Now(),
	}

	m.hub.register <- connection

	m.mu.Lock()
	m.connections[connection.ID] = connection
	m.mu.Unlock()

	go m.readPump(connection)
	go m.writePump(connection)

	return connection, nil
}

// SendToUser delivers a message to every connection of one user
func (m *Manager) SendToUser(userID int64, msg Message) {
	msg.UserID = userID
	msg.SentAt = time.Now()

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, conn := range m.connections {
		if conn.UserID != userID {
			continue
		}
		select {
		case conn.Send <- msg:
		default:
			m.logger.Warn("dropping websocket message, send buffer full",
				zap.Int64("user_id", userID))
		}
	}
}

// Broadcast delivers a message to every connected client
func (m *Manager) Broadcast(msg Message) {
	msg.SentAt = time.Now()
	m.hub.broadcast <- msg
}

// Close stops the hub
func (m *Manager) Close() {
	close(m.hub.stop)
}

func (m *Manager) readPump(conn *Connection) {
	defer func() {
		m.hub.unregister <- conn
		m.mu.Lock()
		delete(m.connections, conn.ID)
		m.mu.Unlock()
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(512)
	_ = conn.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.Conn.SetPongHandler(func(string) error {
		_ = conn.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg Message
		if err := conn.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			break
		}
		conn.mu.Lock()
		conn.LastActivity = time.Now()
		conn.mu.Unlock()
	}
}

func (m *Manager) writePump(conn *Connection) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-conn.Send:
			_ = conn.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.connections[conn] = true
		case conn := <-h.unregister:
			if _, ok := h.connections[conn]; ok {
				delete(h.connections, conn)
				close(conn.Send)
			}
		case msg := <-h.broadcast:
			for conn := range h.connections {
				select {
				case conn.Send <- msg:
				default:
				}
			}
		case <-h.stop:
			for conn := range h.connections {
				close(conn.Send)
				conn.Conn.Close()
			}
			return
		}
	}
}
