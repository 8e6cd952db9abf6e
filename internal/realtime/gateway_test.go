package realtime

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/WishSync/internal/models"
	"github.com/Kerhoff/WishSync/internal/presence"
	"github.com/Kerhoff/WishSync/internal/repository/memory"
	"github.com/Kerhoff/WishSync/internal/service"
)

// wsMessage mirrors Outbound with the payload left raw for per-test decoding.
type wsMessage struct {
	Type      string          `json:"type"`
	Action    string          `json:"action"`
	UserToken string          `json:"userToken"`
	Data      json.RawMessage `json:"data"`
}

type gatewayFixture struct {
	srv   *httptest.Server
	store *memory.Store
	alice uuid.UUID
	bob   uuid.UUID
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := memory.NewStore()
	svc := service.New(logger, store.Wishlists(), store.Users(), store.Wishes())

	_, members, err := svc.CreateWishlist(context.Background(), service.WishlistInit{
		Name:       "Family Christmas",
		AdminName:  "Alice",
		OtherNames: []string{"Bob"},
	})
	require.NoError(t, err)

	hub := NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	gateway := NewGateway(svc, hub, presence.NewMemoryRegistry(0), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/{userId}", gateway.ServeWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &gatewayFixture{
		srv:   srv,
		store: store,
		alice: members["Alice"],
		bob:   members["Bob"],
	}
}

func (f *gatewayFixture) dial(t *testing.T, userID uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/" + userID.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// expect reads messages until one of the wanted type arrives, skipping
// interleaved presence traffic.
func expect(t *testing.T, conn *websocket.Conn, wantType string) wsMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg wsMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == wantType {
			return msg
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msgType string, objectID *uuid.UUID, postValues any) {
	t.Helper()

	envelope := map[string]any{"type": msgType}
	if objectID != nil {
		envelope["objectId"] = objectID
	}
	if postValues != nil {
		raw, err := json.Marshal(postValues)
		require.NoError(t, err)
		envelope["postValues"] = json.RawMessage(raw)
	}
	require.NoError(t, conn.WriteJSON(envelope))
}

func TestGatewayRefusesUnknownMember(t *testing.T) {
	f := newGatewayFixture(t)

	conn := f.dial(t, uuid.New())
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
}

func TestGatewayAnnouncesConnections(t *testing.T) {
	f := newGatewayFixture(t)

	alice := f.dial(t, f.alice)
	expect(t, alice, TypeMemberConnected)

	// Bob joining is announced to Alice with the current roster.
	f.dial(t, f.bob)
	msg := expect(t, alice, TypeMemberConnected)
	assert.Equal(t, "Bob", msg.UserToken)

	var names []string
	require.NoError(t, json.Unmarshal(msg.Data, &names))
	assert.ElementsMatch(t, []string{"Alice", "Bob"}, names)
}

func TestGatewayAnnouncesDisconnect(t *testing.T) {
	f := newGatewayFixture(t)

	alice := f.dial(t, f.alice)
	bob := f.dial(t, f.bob)
	expect(t, bob, TypeMemberConnected)

	require.NoError(t, bob.Close())

	msg := expect(t, alice, TypeMemberDisconnect)
	assert.Equal(t, "Bob", msg.UserToken)
}

func TestGatewayCreateWishBroadcast(t *testing.T) {
	f := newGatewayFixture(t)

	alice := f.dial(t, f.alice)
	bob := f.dial(t, f.bob)

	send(t, alice, ActionCreateWish, nil, map[string]any{"name": "Book", "price": "20 EUR"})

	// Both room members receive the broadcast, the sender included.
	for _, conn := range []*websocket.Conn{alice, bob} {
		msg := expect(t, conn, TypeUpdatedWish)
		assert.Equal(t, ActionCreateWish, msg.Action)
		assert.Equal(t, "Alice", msg.UserToken)

		var data struct {
			User string           `json:"user"`
			Wish service.WishView `json:"wish"`
		}
		require.NoError(t, json.Unmarshal(msg.Data, &data))
		assert.Equal(t, "Alice", data.User)
		assert.Equal(t, "Book", data.Wish.Name)
		require.NotNil(t, data.Wish.Price)
		assert.Equal(t, "20 EUR", *data.Wish.Price)
	}
}

func TestGatewayClaimBroadcastsAssignmentAction(t *testing.T) {
	f := newGatewayFixture(t)

	alice := f.dial(t, f.alice)
	bob := f.dial(t, f.bob)

	send(t, alice, ActionCreateWish, nil, map[string]any{"name": "Book"})
	created := expect(t, bob, TypeUpdatedWish)
	expect(t, alice, TypeUpdatedWish)

	var data struct {
		Wish service.WishView `json:"wish"`
	}
	require.NoError(t, json.Unmarshal(created.Data, &data))

	send(t, bob, ActionUpdateWish, &data.Wish.ID, map[string]any{"assignedUser": f.bob})

	msg := expect(t, alice, TypeUpdatedWish)
	assert.Equal(t, ActionChangeAssigned, msg.Action)
	assert.Equal(t, "Bob", msg.UserToken)

	require.NoError(t, json.Unmarshal(msg.Data, &data))
	require.NotNil(t, data.Wish.AssignedUser)
	assert.Equal(t, "Bob", *data.Wish.AssignedUser)
}

func TestGatewayDeleteBroadcasts(t *testing.T) {
	f := newGatewayFixture(t)

	alice := f.dial(t, f.alice)
	bob := f.dial(t, f.bob)

	// Unclaimed: terminal deletion with the compact payload.
	send(t, alice, ActionCreateWish, nil, map[string]any{"name": "Book"})
	created := expect(t, bob, TypeUpdatedWish)
	expect(t, alice, TypeUpdatedWish)

	var data struct {
		Wish service.WishView `json:"wish"`
	}
	require.NoError(t, json.Unmarshal(created.Data, &data))

	send(t, alice, ActionDeleteWish, &data.Wish.ID, nil)
	msg := expect(t, bob, TypeUpdatedWish)
	assert.Equal(t, ActionDeleteWish, msg.Action)

	var deleted struct {
		User   string    `json:"user"`
		WishID uuid.UUID `json:"wishId"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &deleted))
	assert.Equal(t, data.Wish.ID, deleted.WishID)

	// Claimed: soft deletion keeps the wish and flags it.
	send(t, alice, ActionCreateWish, nil, map[string]any{"name": "Game"})
	created = expect(t, bob, TypeUpdatedWish)
	expect(t, alice, TypeUpdatedWish)
	require.NoError(t, json.Unmarshal(created.Data, &data))

	send(t, bob, ActionUpdateWish, &data.Wish.ID, map[string]any{"assignedUser": f.bob})
	expect(t, alice, TypeUpdatedWish)
	expect(t, bob, TypeUpdatedWish)

	send(t, alice, ActionDeleteWish, &data.Wish.ID, nil)
	msg = expect(t, bob, TypeUpdatedWish)
	assert.Equal(t, ActionDeleteWish, msg.Action)
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.True(t, data.Wish.Deleted)
	require.NotNil(t, data.Wish.AssignedUser)
	assert.Equal(t, "Bob", *data.Wish.AssignedUser)
}

func TestGatewayErrorsStayIndividual(t *testing.T) {
	f := newGatewayFixture(t)

	alice := f.dial(t, f.alice)
	bob := f.dial(t, f.bob)
	expect(t, bob, TypeMemberConnected)

	// Unknown action.
	send(t, alice, "reboot", nil, nil)
	msg := expect(t, alice, TypeErrorMessage)
	var text string
	require.NoError(t, json.Unmarshal(msg.Data, &text))
	assert.Equal(t, "Invalid action", text)

	// Validation failure on a mutation.
	send(t, alice, ActionCreateWish, nil, map[string]any{"name": ""})
	msg = expect(t, alice, TypeErrorMessage)
	require.NoError(t, json.Unmarshal(msg.Data, &text))
	assert.Equal(t, models.MsgNameCanNotBeNull, text)

	// Bob sees neither; the next thing he receives is a real broadcast.
	send(t, alice, ActionCreateWish, nil, map[string]any{"name": "Book"})
	got := expect(t, bob, TypeUpdatedWish)
	assert.Equal(t, ActionCreateWish, got.Action)
}
