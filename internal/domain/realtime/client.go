// Package realtime bridges the NATS event bus to WebSocket clients. Each
// connection subscribes to the actor's match channel and, once paired, to the
// session channel; bus events are forwarded as JSON frames.
package realtime

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/duetchat/duet-api/internal/domain/identity"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // inbound frames are typing/read signals only

	sendBuffer = 256
)

// client is one WebSocket connection owned by a resolved actor
type client struct {
	actor identity.Ref
	conn  *websocket.Conn
	send  chan []byte
}

// enqueue drops the frame when the client can't keep up. History re-fetch
// covers dropped message frames; typing and read frames are disposable.
func (c *client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		log.Debug().Str("actor", c.actor.Key()).Msg("Realtime frame dropped, slow consumer")
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
