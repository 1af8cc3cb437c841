package realtime

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Connection deadlines. Pings must outpace the pong deadline.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client is one websocket connection attached to a set of topics. Its send
// channel doubles as the hub subscriber channel for all of them.
type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan Event
	topics []string

	closeOnce sync.Once
}

// ServeWS upgrades the request to a websocket and streams events for the
// topics named in the comma-separated "topics" query parameter.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	topics := splitTopics(r.URL.Query().Get("topics"))
	if len(topics) == 0 {
		http.Error(w, "missing topics", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:    h,
		conn:   conn,
		send:   make(chan Event, subscriberBuffer),
		topics: topics,
	}
	for _, topic := range topics {
		h.attach(topic, c.send)
	}
	h.log.Debugw("websocket client connected", "topics", topics, "remote", r.RemoteAddr)

	go c.writePump()
	go c.readPump()
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		c.hub.detach(c.send, c.topics...)
		close(c.send)
		_ = c.conn.Close()
	})
}

// readPump discards inbound frames; its job is noticing the peer going away.
func (c *client) readPump() {
	defer c.close()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func splitTopics(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
