package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"rewards-backend/internal/models"
	"rewards-backend/internal/services"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type      string `json:"type"`
	AccountID string `json:"account_id,omitempty"`
	Data      any    `json:"data"`

	// to limits delivery to one connection of the account
	to *Client
}

type Client struct {
	AccountID string
	Conn      *websocket.Conn
	send      chan *Message
}

// WebSocketHub owns the connection registry. Only run touches clients.
type WebSocketHub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	log        *zap.Logger
}

func NewWebSocketHub(log *zap.Logger) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run serves the registry until ctx ends, then closes every client.
func (hub *WebSocketHub) Run(ctx context.Context) {
	defer close(hub.done)
	for {
		select {
		case <-ctx.Done():
			for _, conns := range hub.clients {
				for client := range conns {
					close(client.send)
				}
			}
			return

		case client := <-hub.register:
			if hub.clients[client.AccountID] == nil {
				hub.clients[client.AccountID] = make(map[*Client]struct{})
			}
			hub.clients[client.AccountID][client] = struct{}{}
			hub.log.Debug("websocket client registered", zap.String("account_id", client.AccountID))

		case client := <-hub.unregister:
			if conns, ok := hub.clients[client.AccountID]; ok {
				if _, ok := conns[client]; ok {
					delete(conns, client)
					close(client.send)
				}
				if len(conns) == 0 {
					delete(hub.clients, client.AccountID)
				}
				hub.log.Debug("websocket client unregistered", zap.String("account_id", client.AccountID))
			}

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)
		}
	}
}

// Done is closed once Run has returned.
func (hub *WebSocketHub) Done() <-chan struct{} {
	return hub.done
}

func (hub *WebSocketHub) attach(client *Client) bool {
	select {
	case hub.register <- client:
		return true
	case <-hub.done:
		return false
	}
}

func (hub *WebSocketHub) detach(client *Client) {
	select {
	case hub.unregister <- client:
	case <-hub.done:
	}
}

func (hub *WebSocketHub) publish(ctx context.Context, msg *Message) bool {
	select {
	case hub.broadcast <- msg:
		return true
	case <-hub.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	for client := range hub.clients[message.AccountID] {
		if message.to != nil && message.to != client {
			continue
		}
		select {
		case client.send <- message:
		default:
			// slow reader, drop the message rather than stall the hub
			hub.log.Warn("websocket send buffer full", zap.String("account_id", client.AccountID))
		}
	}
}

// Notify pushes ledger events to the account's open sockets.
func (hub *WebSocketHub) Notify(ctx context.Context, accountID string, event models.Event) {
	msg := &Message{
		Type:      string(event.Type),
		AccountID: accountID,
		Data:      event,
	}
	if !hub.publish(ctx, msg) {
		hub.log.Warn("websocket notify dropped", zap.String("account_id", accountID))
	}
}

type WebSocketHandler struct {
	engine *services.WagerEngine
	hub    *WebSocketHub
	log    *zap.Logger
}

func NewWebSocketHandler(engine *services.WagerEngine, hub *WebSocketHub, log *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{engine: engine, hub: hub, log: log}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	accountID := c.GetString("account_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("failed to upgrade to websocket", zap.Error(err))
		return
	}

	client := &Client{
		AccountID: accountID,
		Conn:      conn,
		send:      make(chan *Message, sendBuffer),
	}

	if balance, err := h.engine.Balance(c.Request.Context(), accountID); err == nil {
		client.send <- &Message{Type: "BALANCE_UPDATE", AccountID: accountID, Data: balance}
	} else {
		h.log.Warn("failed to get balance for websocket", zap.String("account_id", accountID), zap.Error(err))
	}

	if !h.hub.attach(client) {
		conn.Close()
		return
	}
	go h.writePump(client)

	defer func() {
		h.hub.detach(client)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket error", zap.String("account_id", accountID), zap.Error(err))
			}
			break
		}

		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case "PING":
		h.enqueue(client, &Message{
			Type: "PONG",
			Data: gin.H{"timestamp": time.Now().Unix()},
		})
	case "BALANCE":
		balance, err := h.engine.Balance(context.Background(), client.AccountID)
		if err != nil {
			h.log.Warn("failed to get balance for websocket", zap.String("account_id", client.AccountID), zap.Error(err))
			return
		}
		h.enqueue(client, &Message{Type: "BALANCE_UPDATE", AccountID: client.AccountID, Data: balance})
	}
}

// enqueue replies through the hub so only the hub closes client.send.
func (h *WebSocketHandler) enqueue(client *Client, msg *Message) {
	msg.AccountID = client.AccountID
	msg.to = client
	h.hub.publish(context.Background(), msg)
}

func (h *WebSocketHandler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
