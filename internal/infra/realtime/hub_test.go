package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"quickswap/internal/app/syncer"
	"quickswap/internal/infra/wire"
)

func testClient(userID string) *Client {
	return &Client{userID: userID, send: make(chan []byte, 4)}
}

func recvCount(c *Client) int {
	n := 0
	for {
		select {
		case <-c.send:
			n++
		default:
			return n
		}
	}
}

func TestDispatchBroadcastsListingEvents(t *testing.T) {
	h := NewHub(slog.Default())
	a, b := testClient("u1"), testClient("u2")
	h.attach(a)
	h.attach(b)

	h.dispatch(syncer.ChangeEvent{
		Table: wire.TableListings,
		Type:  syncer.EventUpdate,
		Row:   json.RawMessage(`{"id":"l1","status":"SOLD"}`),
	})

	if recvCount(a) != 1 || recvCount(b) != 1 {
		t.Fatal("listing event not broadcast to all clients")
	}
}

func TestDispatchRoutesNotificationsToOwner(t *testing.T) {
	h := NewHub(slog.Default())
	owner, other := testClient("u1"), testClient("u2")
	h.attach(owner)
	h.attach(other)

	h.dispatch(syncer.ChangeEvent{
		Table: wire.TableNotifications,
		Type:  syncer.EventInsert,
		Row:   json.RawMessage(`{"id":"n1","user_id":"u1"}`),
	})

	if recvCount(owner) != 1 {
		t.Fatal("owner did not receive notification event")
	}
	if recvCount(other) != 0 {
		t.Fatal("notification event leaked to another user")
	}
}

func TestHandleChangeFeedsDispatch(t *testing.T) {
	h := NewHub(slog.Default())
	c := testClient("u1")
	h.attach(c)

	err := h.HandleChange(context.Background(), syncer.ChangeEvent{
		Table: wire.TableOrders,
		Type:  syncer.EventInsert,
		Row:   json.RawMessage(`{"id":"o1"}`),
	})
	if err != nil {
		t.Fatalf("HandleChange: %v", err)
	}
	if recvCount(c) != 1 {
		t.Fatal("order event not delivered")
	}
}

func TestDetachStopsDelivery(t *testing.T) {
	h := NewHub(slog.Default())
	c := testClient("u1")
	h.attach(c)
	h.detach(c)

	h.dispatch(syncer.ChangeEvent{
		Table: wire.TableListings,
		Type:  syncer.EventInsert,
		Row:   json.RawMessage(`{"id":"l1"}`),
	})
	if h.ClientCount() != 0 {
		t.Fatal("client still attached after detach")
	}
}
