package client

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"ordersync/internal/domain/service"
	"ordersync/internal/infra/localstate"
)

// AuthState is the persisted login of a session: the bearer token the
// transport presents and the principal it belongs to.
type AuthState struct {
	Token       string    `json:"token"`
	PrincipalID string    `json:"principal_id"`
	Roles       []string  `json:"roles"`
	SavedAt     time.Time `json:"saved_at"`
}

// SessionParams wires a Session together.
type SessionParams struct {
	Logger            *slog.Logger
	State             *localstate.Store
	Recommender       service.Recommender
	ReconnectInterval time.Duration
}

// Session bundles the per-device stores into one unit with a shared
// lifecycle: the realtime transport, the order mirror it feeds, the
// offline cart and behavior log, and the recommendation cache. One
// Session corresponds to one signed-in device.
type Session struct {
	logger *slog.Logger
	state  *localstate.Store

	Transport       *Transport
	Orders          *OrderStore
	Cart            *CartStore
	Behavior        *BehaviorLog
	Recommendations *RecommendationCache

	unbind Disposer

	mu        sync.Mutex
	favorites []string
}

// NewSession builds the full client stack. The transport starts
// disconnected; call Connect once an auth token is available.
func NewSession(ctx context.Context, params SessionParams) *Session {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	transport := NewTransport(TransportParams{
		Logger:            logger,
		ReconnectInterval: params.ReconnectInterval,
	})
	orders := NewOrderStore(logger)

	session := &Session{
		logger:    logger,
		state:     params.State,
		Transport: transport,
		Orders:    orders,
		Cart:      NewCartStore(ctx, params.State, logger),
		Behavior:  NewBehaviorLog(ctx, params.State, logger),
		unbind:    BindOrderStore(transport, orders, logger),
	}
	if params.Recommender != nil {
		session.Recommendations = NewRecommendationCache(params.Recommender, session.Behavior, logger)
	}

	if params.State != nil {
		var favorites []string
		ok, err := params.State.Load(ctx, localstate.KeyFavorites, &favorites)
		if err != nil {
			logger.Warn("favorites restore failed, starting empty", slog.Any("error", err))
		} else if ok {
			session.favorites = favorites
		}
	}

	return session
}

// Connect authenticates the realtime transport and persists the auth
// state so a restarted session can reconnect without a fresh login.
func (s *Session) Connect(ctx context.Context, endpoint string, auth AuthState) error {
	if s.state != nil {
		auth.SavedAt = time.Now().UTC()
		if err := s.state.Save(ctx, localstate.KeyAuth, auth); err != nil {
			s.logger.Warn("auth state persist failed", slog.Any("error", err))
		}
	}

	return s.Transport.Connect(ctx, endpoint, auth.Token)
}

// RestoreAuth loads the persisted auth state, if any.
func (s *Session) RestoreAuth(ctx context.Context) (AuthState, bool) {
	if s.state == nil {
		return AuthState{}, false
	}

	var auth AuthState
	ok, err := s.state.Load(ctx, localstate.KeyAuth, &auth)
	if err != nil {
		s.logger.Warn("auth state restore failed", slog.Any("error", err))

		return AuthState{}, false
	}

	return auth, ok && auth.Token != ""
}

// AddFavorite marks one restaurant as a favorite. Adding twice is a
// no-op.
func (s *Session) AddFavorite(ctx context.Context, restaurantID string) {
	s.mu.Lock()
	found := false
	for _, id := range s.favorites {
		if id == restaurantID {
			found = true

			break
		}
	}
	if !found {
		s.favorites = append(s.favorites, restaurantID)
		sort.Strings(s.favorites)
	}
	s.mu.Unlock()

	if !found {
		s.persistFavorites(ctx)
	}
}

// RemoveFavorite unmarks one restaurant. Removing an absent id is a
// no-op.
func (s *Session) RemoveFavorite(ctx context.Context, restaurantID string) {
	s.mu.Lock()
	removed := false
	for i, id := range s.favorites {
		if id == restaurantID {
			s.favorites = append(s.favorites[:i:i], s.favorites[i+1:]...)
			removed = true

			break
		}
	}
	s.mu.Unlock()

	if removed {
		s.persistFavorites(ctx)
	}
}

// Favorites returns a copy of the favorite restaurant ids.
func (s *Session) Favorites() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.favorites...)
}

func (s *Session) persistFavorites(ctx context.Context) {
	if s.state == nil {
		return
	}

	s.mu.Lock()
	favorites := append([]string(nil), s.favorites...)
	s.mu.Unlock()

	if err := s.state.Save(ctx, localstate.KeyFavorites, favorites); err != nil {
		s.logger.Warn("favorites persist failed", slog.Any("error", err))
	}
}

// Logout drops the persisted auth state and closes the transport. The
// cart and behavior log survive logout deliberately.
func (s *Session) Logout(ctx context.Context) {
	if s.state != nil {
		if err := s.state.Delete(ctx, localstate.KeyAuth); err != nil {
			s.logger.Warn("auth state delete failed", slog.Any("error", err))
		}
	}
	s.Transport.Close()
}

// Close tears down every registration and the transport.
func (s *Session) Close() {
	s.unbind()
	s.Transport.Close()
}
