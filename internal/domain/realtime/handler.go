package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/duetchat/duet-api/internal/domain/message"
	"github.com/duetchat/duet-api/internal/domain/session"
	"github.com/duetchat/duet-api/internal/metrics"
	"github.com/duetchat/duet-api/internal/middleware"
	"github.com/duetchat/duet-api/internal/pkg/messaging"
)

// Handler upgrades connections and wires them to the bus
type Handler struct {
	bus      *messaging.Client
	sessions session.Repository
	messages *message.Service
	upgrader websocket.Upgrader
}

// NewHandler creates realtime handler
func NewHandler(bus *messaging.Client, sessions session.Repository, messages *message.Service, allowedOrigins []string) *Handler {
	return &Handler{
		bus:      bus,
		sessions: sessions,
		messages: messages,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// Serve handles GET /ws
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context()).Ref
	if actor.ID == uuid.Nil {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &client{
		actor: actor,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
	}

	metrics.WSConnections.Inc()

	connID := uuid.NewString()
	matchKey := "ws:" + connID + ":match"
	sessionKey := "ws:" + connID + ":session"

	var mu sync.Mutex
	var activeSessionID string

	subscribeSession := func(id string) {
		mu.Lock()
		defer mu.Unlock()
		if activeSessionID == id {
			return
		}
		if activeSessionID != "" {
			if err := h.bus.Unsubscribe(sessionKey); err != nil {
				log.Debug().Err(err).Msg("Stale session unsubscribe failed")
			}
		}
		activeSessionID = id
		if err := h.bus.SubscribeSession(sessionKey, id, c.enqueue); err != nil {
			log.Warn().Err(err).Str("session_id", id).Msg("Session subscribe failed")
		}
	}

	// Match events both reach the client and retarget the session
	// subscription at the freshly created session.
	err = h.bus.SubscribeMatchFound(matchKey, actor.ID.String(), func(data []byte) {
		c.enqueue(data)

		var event struct {
			SessionID string `json:"session_id"`
		}
		if json.Unmarshal(data, &event) == nil && event.SessionID != "" {
			subscribeSession(event.SessionID)
		}
	})
	if err != nil {
		log.Error().Err(err).Msg("Match subscribe failed")
		conn.Close()
		metrics.WSConnections.Dec()
		return
	}

	// Reconnecting mid-session: attach to the live session immediately.
	if active, err := h.sessions.GetActiveByActor(r.Context(), actor); err == nil && active != nil {
		subscribeSession(active.ID.String())
	}

	cleanup := func() {
		if err := h.bus.Unsubscribe(matchKey); err != nil {
			log.Debug().Err(err).Msg("Match unsubscribe failed")
		}
		mu.Lock()
		if activeSessionID != "" {
			if err := h.bus.Unsubscribe(sessionKey); err != nil {
				log.Debug().Err(err).Msg("Session unsubscribe failed")
			}
		}
		mu.Unlock()
		metrics.WSConnections.Dec()
	}

	go c.writePump()
	go h.readPump(c, cleanup)
}

// readPump consumes inbound frames. Only typing signals are accepted; the
// send pipeline stays on HTTP where the safety gate runs.
func (h *Handler) readPump(c *client, cleanup func()) {
	defer func() {
		cleanup()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("actor", c.actor.Key()).Msg("WebSocket read error")
			}
			return
		}

		var event struct {
			Type      string `json:"type"`
			SessionID string `json:"session_id"`
		}
		if err := json.Unmarshal(frame, &event); err != nil {
			continue
		}

		switch event.Type {
		case "typing":
			sessionID, err := uuid.Parse(event.SessionID)
			if err != nil {
				continue
			}
			if err := h.messages.Typing(context.Background(), c.actor, sessionID); err != nil {
				log.Debug().Err(err).Msg("Typing relay rejected")
			}
		}
	}
}
