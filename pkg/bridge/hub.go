// Package bridge adapts a change stream to the hosting application's
// external collaborators (spec §1, §6): a websocket broadcaster, a
// chi REST surface and a graphql-go schema, grounded on the teacher's
// server/handlers/websocket.go and graphql package.
package bridge

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message is the wire shape broadcast to every websocket client:
// the change set's effect flattened into JSON-friendly fields (spec
// §6's "subscribe: receive a sequence of change sets" contract,
// carried over the wire instead of an in-process callback).
type Message struct {
	Type    string `json:"type"` // "change", "loaded", "error"
	Added   []any  `json:"added,omitempty"`
	Removed []any  `json:"removed,omitempty"`
	Error   string `json:"error,omitempty"`
}

func toMessage[T any](msgType string, cs *change.Set[T]) Message {
	added := cs.AddedItems()
	removed := cs.RemovedItems()
	msg := Message{Type: msgType}
	for _, a := range added {
		msg.Added = append(msg.Added, a)
	}
	for _, r := range removed {
		msg.Removed = append(msg.Removed, r)
	}
	return msg
}

// Hub upgrades incoming HTTP requests to websocket connections and
// fans every change-set emission from upstream out to each connected
// client as one JSON Message, mirroring the teacher's
// ChangeStreamManager/ChangeStreamConnection pairing but generic over
// the item type and driven by a change stream instead of an oplog
// tail.
type Hub[T any] struct {
	upstream stream.ChangeStream[T]

	mu      sync.Mutex
	clients map[string]*client
	nextID  int
}

type client struct {
	conn      *websocket.Conn
	writeLock sync.Mutex
}

func (c *client) send(msg Message) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(msg)
}

// NewHub wraps upstream. Call ServeHTTP (or pass the hub's handler
// into a chi route) to accept connections.
func NewHub[T any](upstream stream.ChangeStream[T]) *Hub[T] {
	h := &Hub[T]{upstream: upstream, clients: make(map[string]*client)}
	upstream.Subscribe(stream.Observer[T]{
		OnNext: func(cs *change.Set[T]) { h.broadcast(toMessage("change", cs)) },
		OnError: func(err error) {
			h.broadcast(Message{Type: "error", Error: err.Error()})
		},
		OnLoaded: func() { h.broadcast(Message{Type: "loaded"}) },
	})
	return h
}

func (h *Hub[T]) broadcast(msg Message) {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.send(msg); err != nil {
			log.Printf("bridge: dropping client after write error: %v", err)
			c.conn.Close()
		}
	}
}

// ServeHTTP upgrades the request to a websocket connection and keeps
// it registered until the client disconnects or a read error occurs.
func (h *Hub[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("bridge: upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	c := &client{conn: conn}
	key := strconv.Itoa(id)
	h.clients[key] = c
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, key)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
