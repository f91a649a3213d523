package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fabriclens/fabriclens/internal/api"
	"github.com/fabriclens/fabriclens/internal/eventbus"
)

// Client represents a connected WebSocket client.
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	server *WSServer
}

// WSServer manages WebSocket connections and pushes preference and session
// events to connected UI clients.
type WSServer struct {
	prefsManager PrefsManager
	clients      map[*Client]bool
	broadcast    chan []byte
	register     chan *Client
	unregister   chan *Client
	done         chan struct{}
	upgrader     websocket.Upgrader
	mu           sync.RWMutex
}

// NewWSServer creates a new WebSocket server.
// The originAllowed function is used to validate the Origin header on upgrade requests.
func NewWSServer(prefsManager PrefsManager, originAllowed func(string) bool) *WSServer {
	return &WSServer{
		prefsManager: prefsManager,
		clients:      make(map[*Client]bool),
		broadcast:    make(chan []byte, 256),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		done:         make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				if originAllowed != nil {
					return originAllowed(origin)
				}
				return false
			},
		},
	}
}

// GetClientCount returns the number of connected clients (thread-safe).
func (s *WSServer) GetClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Run starts the WebSocket server event loop. It blocks until ctx is cancelled.
func (s *WSServer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// Unblocks clients still parked on register/unregister.
			close(s.done)
			s.mu.Lock()
			for client := range s.clients {
				close(client.send)
				delete(s.clients, client)
			}
			s.mu.Unlock()
			return

		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			s.mu.Unlock()

			s.sendSessionsList(client)

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			s.mu.Unlock()

		case message := <-s.broadcast:
			s.mu.RLock()
			for client := range s.clients {
				select {
				case client.send <- message:
				default:
					// Client's send channel is full, skip
				}
			}
			s.mu.RUnlock()
		}
	}
}

// RunEvents pumps bus events to connected clients until ctx is cancelled.
func (s *WSServer) RunEvents(ctx context.Context, bus *eventbus.Bus) {
	prefsSub := eventbus.SubscribeTo(bus, eventbus.Prefs.Changed,
		eventbus.WithSubscriptionName("websocket-prefs"),
		eventbus.WithSubscriptionBuffer(128),
		eventbus.WithContext(ctx))
	defer prefsSub.Close()

	lifecycleSub := eventbus.SubscribeTo(bus, eventbus.Sessions.Lifecycle,
		eventbus.WithSubscriptionName("websocket-lifecycle"),
		eventbus.WithContext(ctx))
	defer lifecycleSub.Close()

	defaultsSub := eventbus.SubscribeTo(bus, eventbus.Defaults.Changed,
		eventbus.WithSubscriptionName("websocket-defaults"),
		eventbus.WithContext(ctx))
	defer defaultsSub.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case env, ok := <-prefsSub.C():
			if !ok {
				return
			}
			s.BroadcastEvent("preference_changed", env.Payload.SessionID, map[string]any{
				"field": env.Payload.Field,
				"value": env.Payload.Value,
			})

		case env, ok := <-lifecycleSub.C():
			if !ok {
				return
			}
			eventType := "session_created"
			if env.Payload.State == eventbus.SessionStateRemoved {
				eventType = "session_removed"
			}
			var data any
			if env.Payload.Reason != "" {
				data = map[string]any{"reason": env.Payload.Reason}
			}
			s.BroadcastEvent(eventType, env.Payload.SessionID, data)

		case env, ok := <-defaultsSub.C():
			if !ok {
				return
			}
			s.BroadcastEvent("defaults_changed", "", map[string]any{
				"page_size": env.Payload.PageSize,
			})
		}
	}
}

// HandleWebSocket handles WebSocket connection upgrades.
func (s *WSServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WebSocket] upgrade error: %v", err)
		return
	}

	client := &Client{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan []byte, 256),
		server: s,
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// unregisterClient hands a client back to the hub, giving up once the hub
// has stopped so readPump never blocks on a channel nobody drains.
func (s *WSServer) unregisterClient(c *Client) {
	select {
	case s.unregister <- c:
	case <-s.done:
	}
}

// sendSessionsList sends the current sessions list to a client.
func (s *WSServer) sendSessionsList(client *Client) {
	if s.prefsManager == nil {
		return
	}

	msg := api.EventDTO{
		Type:      "sessions_list",
		Data:      api.SessionsFromInfos(s.prefsManager.Sessions()),
		Timestamp: time.Now(),
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[WebSocket] marshal sessions list: %v", err)
		return
	}

	select {
	case client.send <- jsonData:
	default:
		// Client's send channel is full
	}
}

// BroadcastEvent broadcasts an event to every connected client.
func (s *WSServer) BroadcastEvent(eventType, sessionID string, data any) {
	msg := api.EventDTO{
		Type:      eventType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now(),
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[WebSocket] marshal event: %v", err)
		return
	}

	select {
	case s.broadcast <- jsonData:
	default:
		log.Printf("[WebSocket] broadcast channel full, dropping %s event", eventType)
	}
}

// readPump reads messages from the WebSocket connection.
func (c *Client) readPump() {
	defer func() {
		c.server.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WebSocket] read error: %v", err)
			}
			break
		}

		if messageType != websocket.TextMessage {
			// Currently we ignore non-text messages from clients
			continue
		}

		var msg api.EventDTO
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("[WebSocket] parse message: %v", err)
			continue
		}

		switch msg.Type {
		case "list":
			c.server.sendSessionsList(c)

		case "touch":
			if msg.SessionID != "" && c.server.prefsManager != nil {
				c.server.prefsManager.Touch(msg.SessionID)
			}
		}
	}
}

// writePump writes messages to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
