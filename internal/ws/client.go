package ws

import (
    "context"
    "encoding/json"
    "net/http"
    "sync"
    "time"

    "github.com/gorilla/websocket"
    "github.com/labstack/echo/v4"

    "github.com/koshhq/kosh-backend/internal/utils"
)

const (
    writeWait      = 10 * time.Second
    pongWait       = 60 * time.Second
    pingPeriod     = (pongWait * 9) / 10
    maxFrameBytes  = 8192
    sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
    ReadBufferSize:  1024,
    WriteBufferSize: 1024,
    // Browser clients connect cross-origin from the frontend; the token in
    // the handshake is the actual authentication.
    CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one user's socket on this instance. Writes go through a
// buffered channel drained by writePump so handler goroutines never block
// on a slow peer.
type Client struct {
    hub    *Hub
    conn   *websocket.Conn
    userID uint64
    send   chan []byte

    closeOnce sync.Once
}

func (c *Client) close() {
    c.closeOnce.Do(func() {
        close(c.send)
    })
}

// trySend queues a frame, dropping it when the client's buffer is full.
// A peer that cannot drain 64 frames is effectively gone; the ping loop
// will reap it.
func (c *Client) trySend(frame []byte) bool {
    defer func() { recover() }() // send on closed channel during teardown
    select {
    case c.send <- frame:
        return true
    default:
        return false
    }
}

// Serve upgrades an HTTP request to a chat socket. The access token is
// taken from the `token` query parameter or the Authorization header and
// verified exactly like the HTTP middleware verifies it; unknown and
// unverified users are rejected before the upgrade.
func Serve(h *Hub, secret string) echo.HandlerFunc {
    return func(c echo.Context) error {
        raw := c.QueryParam("token")
        if raw == "" {
            auth := c.Request().Header.Get("Authorization")
            if len(auth) > 7 && auth[:7] == "Bearer " {
                raw = auth[7:]
            }
        }
        uid, err := utils.VerifyAccessToken(secret, raw)
        if err != nil {
            return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "invalid token"})
        }

        ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
        u, err := h.Users.GetByID(ctx, uid)
        cancel()
        if err != nil {
            return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "unknown user"})
        }
        if !u.IsVerified {
            return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "account not verified"})
        }

        conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
        if err != nil {
            return nil // upgrader already wrote the error response
        }
        client := &Client{
            hub:    h,
            conn:   conn,
            userID: uid,
            send:   make(chan []byte, sendBufferSize),
        }
        h.register(client)
        go client.writePump()
        client.readPump()
        return nil
    }
}

// readPump reads frames until the socket dies, dispatching each to the
// hub. Runs on the request goroutine.
func (c *Client) readPump() {
    defer func() {
        c.hub.unregister(c)
        c.close()
        _ = c.conn.Close()
    }()
    c.conn.SetReadLimit(maxFrameBytes)
    _ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
    c.conn.SetPongHandler(func(string) error {
        _ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
        ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
        c.hub.Presence.Heartbeat(ctx, c.userID)
        cancel()
        return nil
    })
    for {
        _, raw, err := c.conn.ReadMessage()
        if err != nil {
            return
        }
        var f Frame
        if err := json.Unmarshal(raw, &f); err != nil || f.Event == "" {
            c.trySend(errorFrame("malformed frame"))
            continue
        }
        c.hub.handleFrame(c, f)
    }
}

// writePump drains the send channel and pings on a timer. One writer per
// connection; gorilla/websocket allows only one concurrent writer.
func (c *Client) writePump() {
    ticker := time.NewTicker(pingPeriod)
    defer func() {
        ticker.Stop()
        _ = c.conn.Close()
    }()
    for {
        select {
        case frame, ok := <-c.send:
            _ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
            if !ok {
                _ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
                return
            }
            if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
