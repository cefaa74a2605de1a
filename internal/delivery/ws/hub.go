// Package ws implements the realtime side of the gateway: a websocket
// hub that fans order lifecycle events out to connected sessions.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"ordersync/config"
	"ordersync/internal/domain/event"

	"go.uber.org/fx"
)

// Hub tracks every connected session and routes event envelopes to the
// ones that should see them: sessions explicitly subscribed to the
// order, and sessions whose principal is part of the event's audience
// (the order's customer, restaurant and courier).
type Hub struct {
	logger *slog.Logger
	cfg    *config.RealtimeConfig

	mu       sync.RWMutex
	sessions map[*session]struct{}
}

// HubParams holds dependencies for the Hub.
type HubParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

// NewHub creates the hub.
func NewHub(params HubParams) *Hub {
	return &Hub{
		logger:   params.Logger,
		cfg:      params.Config.Realtime,
		sessions: make(map[*session]struct{}),
	}
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	count := len(h.sessions)
	h.mu.Unlock()

	h.logger.Info("realtime session connected",
		slog.String("principal_id", s.principalID),
		slog.Int("session_count", count),
	)
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	_, known := h.sessions[s]
	delete(h.sessions, s)
	count := len(h.sessions)
	h.mu.Unlock()

	if known {
		s.close()
		h.logger.Info("realtime session disconnected",
			slog.String("principal_id", s.principalID),
			slog.Int("session_count", count),
		)
	}
}

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.sessions)
}

// Broadcast delivers one envelope to every session watching the order
// or addressed by the audience. Each session gets its own copy stamped
// with that session's per-type sequence number. A session whose send
// buffer is full is dropped rather than allowed to stall the fan-out.
func (h *Hub) Broadcast(envelope *event.Envelope, audience []string) {
	h.mu.RLock()
	targets := make([]*session, 0, len(h.sessions))
	for s := range h.sessions {
		if s.wants(envelope.OrderID, audience) {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		stamped := *envelope
		stamped.Seq = s.nextSeq(envelope.Type)

		payload, err := json.Marshal(&stamped)
		if err != nil {
			h.logger.Error("failed to marshal event for broadcast",
				slog.String("event_type", string(envelope.Type)),
				slog.Any("error", err),
			)

			continue
		}

		if !s.trySend(payload) {
			h.logger.Warn("dropping slow realtime session",
				slog.String("principal_id", s.principalID),
				slog.String("order_id", envelope.OrderID),
			)
			h.unregister(s)
		}
	}
}
