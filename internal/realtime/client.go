package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"support-relay/internal/domain/notify"
)

// Client frame actions.
const (
	ActionJoin  = "join"
	ActionLeave = "leave"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	maxFrameSize = 4096
)

// ClientFrame is a subscription command sent by a viewer.
type ClientFrame struct {
	Action         string `json:"action"`
	ConversationID uint   `json:"conversation_id"`
}

// Client bridges one websocket connection to the hub.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	observer *ChannelObserver
	log      zerolog.Logger
}

// NewClient wraps an upgraded websocket connection.
func NewClient(hub *Hub, conn *websocket.Conn, log zerolog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		hub:      hub,
		conn:     conn,
		observer: NewChannelObserver(id, DefaultBufferSize),
		log:      log.With().Str("component", "realtime-client").Str("observer_id", id).Logger(),
	}
}

// ID returns the observer ID used in the hub.
func (c *Client) ID() string {
	return c.observer.ID()
}

// Serve pumps frames until the connection closes or ctx is done.
// On return the client is unsubscribed everywhere and the connection is closed.
func (c *Client) Serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		c.hub.UnsubscribeAll(c.ID())
		c.observer.Close()
		_ = c.conn.Close()
		c.log.Debug().Msg("realtime client disconnected")
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writeLoop(ctx)
	}()

	c.readLoop()
	cancel()
	<-done
}

func (c *Client) readLoop() {
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("realtime connection closed unexpectedly")
			}
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.ConversationID == 0 {
			c.log.Debug().Msg("ignoring malformed frame")
			continue
		}
		switch frame.Action {
		case ActionJoin:
			c.hub.Subscribe(frame.ConversationID, c.observer)
		case ActionLeave:
			c.hub.Unsubscribe(frame.ConversationID, c.ID())
		default:
			c.log.Debug().Str("action", frame.Action).Msg("ignoring unknown action")
		}
	}
}

func (c *Client) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case event, ok := <-c.observer.Events():
			if !ok {
				return
			}
			if err := c.write(event); err != nil {
				c.log.Debug().Err(err).Msg("write failed")
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}

func (c *Client) write(event notify.Event) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(event)
}
