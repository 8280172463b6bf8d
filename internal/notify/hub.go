package notify

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// PingInterval keeps idle connections alive through proxies.
const PingInterval = 25 * time.Second

const writeWait = 10 * time.Second

// Client is one websocket connection of a user.
type Client struct {
	UserID string
	conn   *websocket.Conn
	mu     sync.Mutex
	once   sync.Once
}

func (c *Client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

// Hub tracks live websocket clients per user.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*Client]struct{}
	upgrader websocket.Upgrader
	logger   *log.Logger
}

// NewHub constructs an empty Hub. Browsers may connect from allowedOrigin ("*" for any)
// or from the API's own origin; requests without an Origin header are not browsers and
// are let through.
func NewHub(logger *log.Logger, allowedOrigin string) *Hub {
	if logger == nil {
		logger = log.New(log.Writer(), "[notify] ", log.LstdFlags|log.Lshortfile)
	}
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigin),
		},
		logger: logger,
	}
}

func originChecker(allowed string) func(*http.Request) bool {
	allowed = strings.TrimRight(strings.TrimSpace(allowed), "/")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed == "*" {
			return true
		}
		if allowed != "" && strings.EqualFold(strings.TrimRight(origin, "/"), allowed) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// Register adds a client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.UserID] == nil {
		h.clients[c.UserID] = make(map[*Client]struct{})
	}
	h.clients[c.UserID][c] = struct{}{}
}

// Unregister removes a client and closes its connection. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set := h.clients[c.UserID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	h.mu.Unlock()
	c.once.Do(func() { _ = c.conn.Close() })
}

// Connections returns how many clients a user has open.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Broadcast sends payload as JSON to every connection of the user and returns how many
// writes succeeded. Failed connections are dropped.
func (h *Hub) Broadcast(userID string, payload any) int {
	msg, err := json.Marshal(payload)
	if err != nil {
		h.logger.Printf("marshal broadcast for user=%s: %v", userID, err)
		return 0
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if err := c.write(websocket.TextMessage, msg); err != nil {
			h.Unregister(c)
			continue
		}
		delivered++
	}
	return delivered
}

// Serve upgrades the request and streams the user's notifications until the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("websocket upgrade for user=%s: %v", userID, err)
		return
	}
	client := &Client{UserID: userID, conn: conn}
	h.Register(client)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := client.write(websocket.PingMessage, nil); err != nil {
					h.Unregister(client)
					return
				}
			}
		}
	}()

	// Reads only detect the close; clients never send anything meaningful.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			close(done)
			h.Unregister(client)
			return
		}
	}
}
