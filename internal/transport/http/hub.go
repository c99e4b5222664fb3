package http

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
	"quiz-night-service/internal/domain"
)

const sendBuffer = 64

type client struct {
	id   string
	conn *websocket.Conn
	send chan domain.Event
}

// Hub tracks websocket clients and the room groups they belong to.
// It implements app.Notifier; sends never block the caller.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*client
	groups  map[string]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
		groups:  make(map[string]map[string]struct{}),
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(id)
}

func (h *Hub) dropLocked(id string) {
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	for code, members := range h.groups {
		delete(members, id)
		if len(members) == 0 {
			delete(h.groups, code)
		}
	}
	close(c.send)
}

// Join adds a connection to a room's broadcast group.
func (h *Hub) Join(code, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; !ok {
		return
	}
	members, ok := h.groups[code]
	if !ok {
		members = make(map[string]struct{})
		h.groups[code] = members
	}
	members[connID] = struct{}{}
}

// Leave removes a connection from a room's broadcast group.
func (h *Hub) Leave(code, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.groups[code]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, code)
		}
	}
}

// ToRoom sends the event to every member of the room.
func (h *Hub) ToRoom(code string, ev domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.groups[code] {
		h.deliverLocked(id, ev)
	}
}

// ToConn sends the event to a single connection.
func (h *Hub) ToConn(connID string, ev domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliverLocked(connID, ev)
}

// Close forgets the room's group; the connections stay open.
func (h *Hub) Close(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.groups, code)
}

func (h *Hub) deliverLocked(connID string, ev domain.Event) {
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	select {
	case c.send <- ev:
	default:
		// a client that cannot keep up is dropped; its reader then reports the disconnect
		log.Printf("ws client %s too slow, dropping", connID)
		h.dropLocked(connID)
	}
}
