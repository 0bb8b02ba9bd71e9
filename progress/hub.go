// Package progress streams build events to browsers over websockets. Each
// build id is a room; late subscribers get the room's history replayed first.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"luxe/logging"
	"luxe/mq"
)

const (
	historyPerRoom = 32
	maxFinished    = 256
	sendBuffer     = 64
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
)

var ErrClosed = errors.New("progress hub closed")

type Client struct {
	Conn *websocket.Conn
	Send chan []byte
	Room string
}

type broadcastMsg struct {
	Room     string
	Data     []byte
	Terminal bool
}

type Hub struct {
	rooms      map[string]map[*Client]bool
	history    map[string][][]byte
	finished   []string
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
	quit       chan struct{}
	stopOnce   sync.Once

	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		history:    make(map[string][][]byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg),
		quit:       make(chan struct{}),
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:     logging.OrNop(logger),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			if h.rooms[c.Room] == nil {
				h.rooms[c.Room] = make(map[*Client]bool)
			}
			h.rooms[c.Room][c] = true
			for _, data := range h.history[c.Room] {
				c.Send <- data
			}

		case c := <-h.unregister:
			if conns := h.rooms[c.Room]; conns != nil && conns[c] {
				delete(conns, c)
				close(c.Send)
				if len(conns) == 0 {
					delete(h.rooms, c.Room)
				}
			}

		case m := <-h.broadcast:
			hist := append(h.history[m.Room], m.Data)
			if len(hist) > historyPerRoom {
				hist = hist[len(hist)-historyPerRoom:]
			}
			h.history[m.Room] = hist

			for c := range h.rooms[m.Room] {
				select {
				case c.Send <- m.Data:
				default:
					close(c.Send)
					delete(h.rooms[m.Room], c)
				}
			}
			if m.Terminal {
				h.finish(m.Room)
			}

		case <-h.quit:
			for _, conns := range h.rooms {
				for c := range conns {
					close(c.Send)
				}
			}
			h.rooms = map[string]map[*Client]bool{}
			return
		}
	}
}

// finish remembers a completed room and evicts the oldest histories.
func (h *Hub) finish(room string) {
	h.finished = append(h.finished, room)
	for len(h.finished) > maxFinished {
		delete(h.history, h.finished[0])
		h.finished = h.finished[1:]
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Publish sends ev to every subscriber of ev.BuildID.
func (h *Hub) Publish(ctx context.Context, ev mq.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- broadcastMsg{Room: ev.BuildID, Data: data, Terminal: ev.Stage.Terminal()}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.quit:
		return ErrClosed
	}
}

// Serve upgrades the request and subscribes the connection to room.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, room string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("room", room), zap.Error(err))
		return
	}
	c := &Client{Conn: conn, Send: make(chan []byte, sendBuffer), Room: room}
	select {
	case h.register <- c:
	case <-h.quit:
		conn.Close()
		return
	}
	go writePump(c)
	go h.readPump(c)
}

func writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only watches for the peer going away; subscribers never send.
func (h *Hub) readPump(c *Client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.quit:
		}
		c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
