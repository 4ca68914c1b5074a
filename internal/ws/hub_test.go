package ws

import (
    "encoding/json"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/koshhq/kosh-backend/internal/model"
    "github.com/koshhq/kosh-backend/internal/presence"
    "github.com/koshhq/kosh-backend/internal/repository"
)

// testHub builds a hub whose repositories are never reached by the paths
// under test (relay and registry behavior only).
func testHub() *Hub {
    return NewHub(
        repository.NewMessageRepo(nil),
        repository.NewUserRepo(nil),
        presence.NewStore(nil, time.Minute),
    )
}

func testClient(userID uint64) *Client {
    return &Client{userID: userID, send: make(chan []byte, sendBufferSize)}
}

func recvFrame(t *testing.T, c *Client) Frame {
    t.Helper()
    select {
    case raw := <-c.send:
        var f Frame
        require.NoError(t, json.Unmarshal(raw, &f))
        return f
    default:
        t.Fatal("expected a queued frame")
        return Frame{}
    }
}

func TestRegisterAnnouncesOnline(t *testing.T) {
    h := testHub()
    a := testClient(1)
    b := testClient(2)

    h.register(a)
    h.register(b)

    // a hears that b came online; b hears nothing about itself.
    f := recvFrame(t, a)
    assert.Equal(t, EvUserOnline, f.Event)
    var data map[string]uint64
    require.NoError(t, json.Unmarshal(f.Data, &data))
    assert.Equal(t, uint64(2), data["user_id"])
    assert.Empty(t, b.send)
}

func TestRegisterNewestSocketWins(t *testing.T) {
    h := testHub()
    first := testClient(1)
    second := testClient(1)

    h.register(first)
    h.register(second)

    // The replaced socket is closed and no longer addressable.
    assert.True(t, h.SendToUser(1, []byte("x")))
    assert.Equal(t, []byte("x"), <-second.send)

    // Unregistering the stale socket must not evict the new one.
    h.unregister(first)
    assert.True(t, h.SendToUser(1, []byte("y")))
}

func TestUnregisterAnnouncesOffline(t *testing.T) {
    h := testHub()
    a := testClient(1)
    b := testClient(2)
    h.register(a)
    h.register(b)
    recvFrame(t, a) // drain b's online announcement

    h.unregister(b)
    f := recvFrame(t, a)
    assert.Equal(t, EvUserOffline, f.Event)
}

func TestSendToUserUnknownReturnsFalse(t *testing.T) {
    h := testHub()
    assert.False(t, h.SendToUser(42, []byte("x")))
}

func TestTypingRelay(t *testing.T) {
    h := testHub()
    sender := testClient(1)
    receiver := testClient(2)
    h.register(sender)
    h.register(receiver)
    recvFrame(t, sender) // drain receiver's online announcement

    data, _ := json.Marshal(typingReq{ReceiverID: 2})
    h.handleFrame(sender, Frame{Event: EvTypingStart, Data: data})

    f := recvFrame(t, receiver)
    assert.Equal(t, EvTypingUser, f.Event)
    var payload struct {
        UserID uint64 `json:"user_id"`
        Typing bool   `json:"typing"`
    }
    require.NoError(t, json.Unmarshal(f.Data, &payload))
    assert.Equal(t, uint64(1), payload.UserID)
    assert.True(t, payload.Typing)

    h.handleFrame(sender, Frame{Event: EvTypingStop, Data: data})
    f = recvFrame(t, receiver)
    require.NoError(t, json.Unmarshal(f.Data, &payload))
    assert.False(t, payload.Typing)
}

func TestTypingRequiresReceiver(t *testing.T) {
    h := testHub()
    sender := testClient(1)
    h.register(sender)

    h.handleFrame(sender, Frame{Event: EvTypingStart, Data: json.RawMessage(`{}`)})
    f := recvFrame(t, sender)
    assert.Equal(t, EvError, f.Event)
}

func TestOnlineListReflectsPresence(t *testing.T) {
    h := testHub()
    a := testClient(1)
    b := testClient(2)
    h.register(a)
    h.register(b)
    recvFrame(t, a) // drain b's online announcement

    h.handleFrame(a, Frame{Event: EvUsersOnline})
    f := recvFrame(t, a)
    assert.Equal(t, EvOnlineList, f.Event)

    var payload struct {
        UserIDs []uint64 `json:"user_ids"`
    }
    require.NoError(t, json.Unmarshal(f.Data, &payload))
    assert.ElementsMatch(t, []uint64{1, 2}, payload.UserIDs)
}

func TestUnknownEventAnswersError(t *testing.T) {
    h := testHub()
    c := testClient(1)
    h.register(c)

    h.handleFrame(c, Frame{Event: "no:such:event"})
    f := recvFrame(t, c)
    assert.Equal(t, EvError, f.Event)
}

func TestMessageFrameShape(t *testing.T) {
    now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
    raw := MessageFrame(EvMessageReceive, model.Message{
        ID: 9, SenderID: 1, ReceiverID: 2, Content: "hello", CreatedAt: now,
    })

    var f Frame
    require.NoError(t, json.Unmarshal(raw, &f))
    assert.Equal(t, EvMessageReceive, f.Event)

    var p MessagePayload
    require.NoError(t, json.Unmarshal(f.Data, &p))
    assert.Equal(t, uint64(9), p.ID)
    assert.Equal(t, "hello", p.Content)
    assert.Equal(t, "2026-08-29T10:00:00Z", p.CreatedAt)
}
