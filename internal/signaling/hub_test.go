package signaling

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// startHub runs a hub loop for the duration of the test.
func startHub(t *testing.T) (*Hub, *Registry) {
	t.Helper()
	registry := NewRegistry()
	hub := NewHub(registry, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub, registry
}

// connect registers a client whose pumps are not running; the hub only
// ever touches its ID and Send channel, so tests read events straight off
// the channel.
func connect(t *testing.T, hub *Hub) *Client {
	t.Helper()
	c := NewClient(uuid.New(), hub, nil, 16, rate.Inf, 0, nil)
	hub.Register <- c
	return c
}

func join(hub *Hub, c *Client, roomID, userID string) {
	payload, _ := json.Marshal(JoinRoomPayload{RoomID: roomID, UserID: userID})
	hub.Inbound <- &Message{Type: TypeJoinRoom, Payload: payload, client: c}
}

func recv(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		require.True(t, ok, "send channel closed while expecting an event")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for an event")
		return nil
	}
}

func requirePresence(t *testing.T, msg *Message, msgType, userID string) {
	t.Helper()
	require.Equal(t, msgType, msg.Type)
	var got string
	require.NoError(t, json.Unmarshal(msg.Payload, &got))
	require.Equal(t, userID, got)
}

func TestHub_ArrivalIsAnnouncedToTheJoinerToo(t *testing.T) {
	hub, registry := startHub(t)
	c1 := connect(t, hub)

	join(hub, c1, "R1", "ana")

	// The arrival snapshot includes the joining connection itself
	requirePresence(t, recv(t, c1), TypeUserConnected, "ana")
	require.ElementsMatch(t, []ConnID{c1.ID}, registry.Members("R1"))
}

func TestHub_ArrivalOrderMatchesJoinOrder(t *testing.T) {
	hub, _ := startHub(t)
	observer := connect(t, hub)
	c1 := connect(t, hub)
	c2 := connect(t, hub)

	join(hub, observer, "A", "observer")
	requirePresence(t, recv(t, observer), TypeUserConnected, "observer")

	// When c1 joins before c2
	join(hub, c1, "A", "ana")
	join(hub, c2, "A", "bruno")

	// Then the observer sees the arrivals in that order
	requirePresence(t, recv(t, observer), TypeUserConnected, "ana")
	requirePresence(t, recv(t, observer), TypeUserConnected, "bruno")
}

func TestHub_DuplicateJoinEmitsNoSecondArrival(t *testing.T) {
	hub, registry := startHub(t)
	c1 := connect(t, hub)

	join(hub, c1, "A", "ana")
	join(hub, c1, "A", "ana")

	requirePresence(t, recv(t, c1), TypeUserConnected, "ana")

	// Force the hub past the duplicate join with a marker event; if the
	// duplicate had been announced, the marker would not be next.
	join(hub, c1, "B", "marker")
	requirePresence(t, recv(t, c1), TypeUserConnected, "marker")

	require.Len(t, registry.Members("A"), 1)
}

func TestHub_InvalidRoomIsDroppedWithAnErrorEvent(t *testing.T) {
	hub, registry := startHub(t)
	c1 := connect(t, hub)

	join(hub, c1, "", "ana")

	msg := recv(t, c1)
	require.Equal(t, TypeError, msg.Type)
	require.Empty(t, registry.Rooms(c1.ID))
}

func TestHub_MalformedPayloadIsDropped(t *testing.T) {
	hub, registry := startHub(t)
	c1 := connect(t, hub)

	hub.Inbound <- &Message{Type: TypeJoinRoom, Payload: json.RawMessage(`"not an object"`), client: c1}

	msg := recv(t, c1)
	require.Equal(t, TypeError, msg.Type)
	require.Empty(t, registry.Rooms(c1.ID))
}

func TestHub_DepartureGoesOnlyToRemainingMembers(t *testing.T) {
	hub, registry := startHub(t)
	c1 := connect(t, hub)
	c2 := connect(t, hub)

	join(hub, c1, "A", "ana")
	requirePresence(t, recv(t, c1), TypeUserConnected, "ana")

	join(hub, c2, "A", "bruno")
	requirePresence(t, recv(t, c1), TypeUserConnected, "bruno")
	requirePresence(t, recv(t, c2), TypeUserConnected, "bruno")

	// When c1 disconnects
	c1.signalClose()

	// Then c2 gets exactly one departure naming ana
	requirePresence(t, recv(t, c2), TypeUserDisconnected, "ana")
	require.ElementsMatch(t, []ConnID{c2.ID}, registry.Members("A"))

	// And c1 receives nothing further: its channel is closed with no
	// departure queued.
	msg, ok := <-c1.Send
	require.False(t, ok, "departing connection received its own departure: %v", msg)
}

func TestHub_DisconnectBroadcastsPerAffectedRoom(t *testing.T) {
	hub, registry := startHub(t)
	c1 := connect(t, hub)
	inA := connect(t, hub)
	inB := connect(t, hub)

	join(hub, inA, "A", "alice")
	requirePresence(t, recv(t, inA), TypeUserConnected, "alice")
	join(hub, inB, "B", "bob")
	requirePresence(t, recv(t, inB), TypeUserConnected, "bob")

	join(hub, c1, "A", "ana")
	join(hub, c1, "B", "ana")
	requirePresence(t, recv(t, inA), TypeUserConnected, "ana")
	requirePresence(t, recv(t, inB), TypeUserConnected, "ana")

	c1.signalClose()

	requirePresence(t, recv(t, inA), TypeUserDisconnected, "ana")
	requirePresence(t, recv(t, inB), TypeUserDisconnected, "ana")
	require.Empty(t, registry.Rooms(c1.ID))
}

func TestHub_JoinAfterDisconnectIsIgnored(t *testing.T) {
	hub, registry := startHub(t)
	c1 := connect(t, hub)

	c1.signalClose()

	// A join racing the disconnect, arriving after it completed
	join(hub, c1, "A", "ana")

	// Force the hub past the stale join with an unrelated connection
	c2 := connect(t, hub)
	join(hub, c2, "B", "noise")
	requirePresence(t, recv(t, c2), TypeUserConnected, "noise")

	require.Empty(t, registry.Rooms(c1.ID))
	require.Empty(t, registry.Members("A"))
}

func TestHub_DisconnectSequenceRunsAtMostOnce(t *testing.T) {
	hub, registry := startHub(t)
	c1 := connect(t, hub)
	c2 := connect(t, hub)

	join(hub, c1, "A", "ana")
	requirePresence(t, recv(t, c1), TypeUserConnected, "ana")
	join(hub, c2, "A", "bruno")
	requirePresence(t, recv(t, c2), TypeUserConnected, "bruno")
	requirePresence(t, recv(t, c1), TypeUserConnected, "bruno")

	// Both pumps racing to report the close collapse into one signal
	c1.signalClose()
	c1.signalClose()

	requirePresence(t, recv(t, c2), TypeUserDisconnected, "ana")

	// No second departure: the next event c2 sees is an unrelated arrival
	c3 := connect(t, hub)
	join(hub, c3, "A", "carla")
	requirePresence(t, recv(t, c2), TypeUserConnected, "carla")
	require.ElementsMatch(t, []ConnID{c2.ID, c3.ID}, registry.Members("A"))
}

func TestHub_SlowClientLosesOnlyItsOwnCopy(t *testing.T) {
	hub, _ := startHub(t)

	slow := NewClient(uuid.New(), hub, nil, 1, rate.Inf, 0, nil)
	hub.Register <- slow
	healthy := connect(t, hub)

	join(hub, slow, "A", "slow")
	join(hub, healthy, "A", "healthy")

	// slow's single-slot buffer holds its own arrival; the second event
	// is dropped for it and nothing blocks.
	join(hub, connect(t, hub), "A", "third")

	requirePresence(t, recv(t, healthy), TypeUserConnected, "healthy")
	requirePresence(t, recv(t, healthy), TypeUserConnected, "third")
	requirePresence(t, recv(t, slow), TypeUserConnected, "slow")
}
