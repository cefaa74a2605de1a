package ws

import (
	"log/slog"
	"sync"
	"time"

	"ordersync/config"
	"ordersync/internal/domain/event"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// session is one authenticated websocket connection. The read pump
// consumes per-order subscribe frames; the write pump drains the send
// buffer and keeps the connection alive with pings.
type session struct {
	hub         *Hub
	conn        *websocket.Conn
	logger      *slog.Logger
	cfg         *config.RealtimeConfig
	principalID string

	send chan []byte

	mu     sync.Mutex
	subs   map[string]struct{}
	seq    map[event.Type]uint64
	closed bool

	closeOnce sync.Once
}

func newSession(hub *Hub, conn *websocket.Conn, principalID string) *session {
	return &session{
		hub:         hub,
		conn:        conn,
		logger:      hub.logger,
		cfg:         hub.cfg,
		principalID: principalID,
		send:        make(chan []byte, hub.cfg.SendBuffer),
		subs:        make(map[string]struct{}),
		seq:         make(map[event.Type]uint64),
	}
}

// wants reports whether this session should receive an event for the
// given order.
func (s *session) wants(orderID string, audience []string) bool {
	s.mu.Lock()
	_, subscribed := s.subs[orderID]
	s.mu.Unlock()

	if subscribed {
		return true
	}
	for _, principalID := range audience {
		if principalID == s.principalID {
			return true
		}
	}

	return false
}

// nextSeq increments and returns the per-type sequence number. Numbers
// are scoped to this connection; a reconnect starts over at 1.
func (s *session) nextSeq(eventType event.Type) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq[eventType]++

	return s.seq[eventType]
}

// trySend queues a payload without blocking. It reports false only for
// a full buffer; a closing session swallows the payload so a broadcast
// racing a disconnect never hits a closed channel.
func (s *session) trySend(payload []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return true
	}

	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// close marks the session closed under the same lock trySend holds, so
// no sender can still be queueing when the channel closes.
func (s *session) close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.send)
	})
}

// readPump consumes subscription control frames until the connection
// breaks, then unregisters the session.
func (s *session) readPump() {
	defer func() {
		s.hub.unregister(s)
		_ = s.conn.Close()
	}()

	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		var frame event.ControlFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("realtime session read error",
					slog.String("principal_id", s.principalID),
					slog.Any("error", err),
				)
			}

			return
		}

		switch frame.Action {
		case event.ActionSubscribeOrder:
			s.mu.Lock()
			s.subs[frame.OrderID] = struct{}{}
			s.mu.Unlock()
		case event.ActionUnsubscribeOrder:
			s.mu.Lock()
			delete(s.subs, frame.OrderID)
			s.mu.Unlock()
		default:
			s.logger.Debug("ignoring unknown control frame",
				slog.String("action", frame.Action),
				slog.String("principal_id", s.principalID),
			)
		}
	}
}

// writePump drains the send buffer and pings on an interval. It exits
// when the send channel closes or a write fails.
func (s *session) writePump() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})

				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
