package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ritvik/chat-dispatch/pkg/auth"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer.
	maxMessageSize = 8192

	// Outbound queue depth per connection.
	sendQueueSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

var errSendQueueFull = errors.New("send queue full")

// Client wraps one websocket connection. The dispatcher only sees it as a
// Handle: Send enqueues onto a bounded queue drained by writePump, so a slow
// peer never blocks another sender's dispatch.
type Client struct {
	conn       *websocket.Conn
	dispatcher *Dispatcher
	send       chan []byte
	closeOnce  sync.Once
}

func (c *Client) Send(payload []byte) error {
	select {
	case c.send <- payload:
		return nil
	default:
		// Writer is hopelessly behind; drop the connection rather than the
		// sender's latency.
		c.Close()
		return errSendQueueFull
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() { c.conn.Close() })
}

// readPump reads frames off the connection and hands them to the dispatcher
// one at a time; per-connection dispatch is serialized by this loop.
func (c *Client) readPump() {
	defer func() {
		c.dispatcher.Disconnect(context.Background(), c)
		c.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("gateway: read error: %v", err)
			}
			break
		}
		c.dispatcher.Dispatch(context.Background(), frame, c)
	}
}

// writePump drains the send queue onto the connection and keeps the peer
// alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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

// serveWs upgrades an HTTP request to a websocket connection. The token gate
// is boundary-only: frame-level user ids stay trusted after the upgrade.
func serveWs(dispatcher *Dispatcher, tokens *auth.Tokens, w http.ResponseWriter, r *http.Request) {
	if tokens.Enabled() {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			// Query param fallback, standard for websocket clients.
			tokenString = r.URL.Query().Get("token")
		}
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")
		if tokenString == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if _, err := tokens.Validate(tokenString); err != nil {
			log.Printf("gateway: rejected upgrade: %v", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	client := &Client{
		conn:       conn,
		dispatcher: dispatcher,
		send:       make(chan []byte, sendQueueSize),
	}
	go client.writePump()
	go client.readPump()
}
