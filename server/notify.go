package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// changeMessage tells connected clients that a context advanced and they
// should re-render against the reported version.
type changeMessage struct {
	Type    string `json:"type"`
	Session string `json:"session"`
	DocID   string `json:"docId"`
	Version int    `json:"version"`
}

// notifyClient is a write-only websocket subscriber. Clients never send
// edits over the socket; the JSON API is the only mutation path.
type notifyClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Notifier fans change notifications out to every connected client.
type Notifier struct {
	mu      sync.Mutex
	clients map[*notifyClient]struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{clients: make(map[*notifyClient]struct{})}
}

// Broadcast pushes one change notification to all clients. Slow clients
// drop messages rather than stall the mutation path.
func (n *Notifier) Broadcast(session, docID string, version int) {
	data, err := json.Marshal(changeMessage{
		Type:    "change",
		Session: session,
		DocID:   docID,
		Version: version,
	})
	if err != nil {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for c := range n.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// Handler upgrades the connection and starts the pump goroutines.
func (n *Notifier) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("websocket upgrade", "error", err)
			return
		}
		client := &notifyClient{conn: conn, send: make(chan []byte, 64)}
		n.register(client)
		go n.writePump(client)
		go n.readPump(client)
	}
}

func (n *Notifier) register(c *notifyClient) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.clients[c] = struct{}{}
}

func (n *Notifier) unregister(c *notifyClient) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.clients, c)
}

// readPump discards inbound frames; it exists to run the pong handler and
// to notice the peer going away.
func (n *Notifier) readPump(c *notifyClient) {
	defer func() {
		n.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read", "error", err)
			}
			return
		}
	}
}

func (n *Notifier) writePump(c *notifyClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
