package signaling

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Hub is the presence relay: the single component that bridges transport
// events to Registry mutations and room broadcasts.
//
// All state changes run on the one goroutine executing Run, so for any
// room the order in which arrival and departure events are emitted always
// matches the order in which the corresponding mutations completed against
// the Registry.
type Hub struct {
	// Register is a channel for registering new clients.
	Register chan *Client

	// Unregister is a channel for unregistering clients. Fed by each
	// client's one-shot close signal.
	Unregister chan *Client

	// Inbound carries messages read from client sockets.
	Inbound chan *Message

	registry *Registry

	// clients holds every connection that has registered and not yet
	// disconnected. A connection absent from this map is terminal: any
	// message still in flight from it is dropped.
	clients map[ConnID]*Client

	// users maps a connection to the display id it announced per room.
	// Display ids are opaque payload, never a membership key.
	users map[ConnID]map[string]string

	log *slog.Logger
}

// NewHub creates a Hub around the given registry.
func NewHub(registry *Registry, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *Message),
		registry:   registry,
		clients:    make(map[ConnID]*Client),
		users:      make(map[ConnID]map[string]string),
		log:        log,
	}
}

// Run starts the hub's main processing loop. It returns when ctx is
// cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.Register:
			// The client is not in a room yet; it has to send a
			// join-room message first. No broadcast on mere connect.
			h.clients[client.ID] = client
			h.log.Debug("client registered", "conn", client.ID)

		case client := <-h.Unregister:
			h.handleDisconnect(client)

		case msg := <-h.Inbound:
			h.handleInbound(msg)
		}
	}
}

func (h *Hub) handleInbound(msg *Message) {
	// Ignore anything from a connection whose disconnect already ran.
	if _, ok := h.clients[msg.client.ID]; !ok {
		h.log.Debug("dropping message from disconnected client", "conn", msg.client.ID)
		return
	}

	switch msg.Type {
	case TypeJoinRoom:
		var req JoinRoomPayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			h.log.Debug("malformed join-room payload", "conn", msg.client.ID, "error", err)
			h.deliver(msg.client, newErrorMessage("malformed join-room payload"))
			return
		}
		h.handleJoin(msg.client, req)

	default:
		h.log.Debug("unknown message type", "type", msg.Type, "conn", msg.client.ID)
	}
}

func (h *Hub) handleJoin(client *Client, req JoinRoomPayload) {
	changed, err := h.registry.Join(req.RoomID, client.ID)
	if err != nil {
		h.log.Debug("join rejected", "conn", client.ID, "error", err)
		h.deliver(client, newErrorMessage("invalid room id"))
		return
	}

	names, ok := h.users[client.ID]
	if !ok {
		names = make(map[string]string)
		h.users[client.ID] = names
	}
	names[req.RoomID] = req.UserID

	if !changed {
		// Re-joining a room the connection is already in: membership is
		// untouched and no second arrival is announced.
		h.log.Debug("duplicate join", "conn", client.ID, "room", req.RoomID)
		return
	}

	h.log.Info("user joined room", "user", req.UserID, "room", req.RoomID, "conn", client.ID)

	// The snapshot includes the joining connection itself: arrivals are
	// announced to the whole room, joiner included.
	h.broadcast(req.RoomID, newPresenceMessage(TypeUserConnected, req.UserID))
}

// handleDisconnect runs the full cleanup sequence for a connection:
// membership removal from every room, then one departure broadcast per
// affected room to the members that remain.
func (h *Hub) handleDisconnect(client *Client) {
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)

	names := h.users[client.ID]
	delete(h.users, client.ID)

	for _, roomID := range h.registry.LeaveAll(client.ID) {
		userID := names[roomID]
		h.log.Info("user left room", "user", userID, "room", roomID, "conn", client.ID)
		h.broadcast(roomID, newPresenceMessage(TypeUserDisconnected, userID))
	}

	// Close the client's send channel to stop its WritePump.
	close(client.Send)
}

// deliver enqueues an event for one client, dropping it if the client's
// buffer is full. Delivery is best-effort by design of the transport.
func (h *Hub) deliver(client *Client, msg *Message) {
	select {
	case client.Send <- msg:
	default:
		h.log.Warn("send buffer full, dropping event", "conn", client.ID, "type", msg.Type)
	}
}

// broadcast fans an event out to a snapshot of the room's current members.
// A slow member only loses its own copy; it never delays the others.
func (h *Hub) broadcast(roomID string, msg *Message) {
	for _, id := range h.registry.Members(roomID) {
		client, ok := h.clients[id]
		if !ok {
			continue
		}
		h.deliver(client, msg)
	}
}
