// Package ws pushes cart changes to the account's open websocket
// connections using gorilla/websocket.
//
//	hub := ws.NewHub(settings.CORSOrigins)
//	go hub.Run(done)
//	hub.Follow(bus)
//
//	r.Get("/cart/stream", "cart.stream", ctx.Wrap(func(c *ctx.Context) {
//	    hub.Upgrade(c.W, c.R, accountID)
//	}), middleware.StreamTokenAuth(tokens))
package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/modera-shop/modera/pkg/event"
	"github.com/modera-shop/modera/pkg/logger"
	"github.com/modera-shop/modera/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 32
)

// ErrHubStopped is returned by Upgrade once Run has returned.
var ErrHubStopped = errors.New("ws: hub stopped")

// Client is one connection subscribed to an account's cart.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	account string
	send    chan []byte
}

// readPump only drains control frames; clients do not send data.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stopped:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("ws: unexpected close", "account", c.account, "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type envelope struct {
	account string
	data    []byte
}

// Hub routes messages to the connections of one account.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	publish    chan envelope
	stopped    chan struct{}
	count      atomic.Int64
	upgrader   websocket.Upgrader
}

// NewHub accepts browser connections only from allowedOrigins. Requests
// without an Origin header (non-browser clients) are accepted.
func NewHub(allowedOrigins []string) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan envelope, 256),
		stopped:    make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
	}
}

// Run is the hub loop. It closes every connection when done is closed.
// Run must be called once.
func (h *Hub) Run(done <-chan struct{}) {
	defer close(h.stopped)
	for {
		select {
		case c := <-h.register:
			set, ok := h.clients[c.account]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[c.account] = set
			}
			set[c] = struct{}{}
			h.count.Add(1)
			metrics.StreamClients.Inc()

		case c := <-h.unregister:
			h.remove(c)

		case env := <-h.publish:
			for c := range h.clients[env.account] {
				select {
				case c.send <- env.data:
				default:
					h.remove(c)
				}
			}

		case <-done:
			for _, set := range h.clients {
				for c := range set {
					h.remove(c)
				}
			}
			return
		}
	}
}

func (h *Hub) remove(c *Client) {
	set, ok := h.clients[c.account]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.account)
	}
	close(c.send)
	h.count.Add(-1)
	metrics.StreamClients.Dec()
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int { return int(h.count.Load()) }

// Publish queues data for every connection of account. It never blocks;
// when the queue is full the message is dropped.
func (h *Hub) Publish(account string, data []byte) {
	select {
	case h.publish <- envelope{account: account, data: data}:
	default:
		logger.Warn("ws: publish queue full, dropping message", "account", account)
	}
}

// CartMessage is what clients receive after each applied cart change.
type CartMessage struct {
	Type   string         `json:"type"`
	ItemID string         `json:"itemId"`
	Delta  int            `json:"delta"`
	Cart   map[string]int `json:"cart"`
}

// Follow forwards cart.updated events from bus to the account's sockets.
func (h *Hub) Follow(bus *event.Bus) {
	bus.Listen(event.CartUpdated, func(payload interface{}) {
		change, ok := payload.(event.CartChange)
		if !ok {
			return
		}
		data, err := json.Marshal(CartMessage{Type: "cart", ItemID: change.ItemID, Delta: change.Delta, Cart: change.Cart})
		if err != nil {
			return
		}
		h.Publish(change.AccountID, data)
	})
}

// Upgrade switches the request to a websocket subscribed to account.
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request, account string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &Client{hub: h, conn: conn, account: account, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.stopped:
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return ErrHubStopped
	}
	go c.writePump()
	go c.readPump()
	return nil
}
