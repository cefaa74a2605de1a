// Command simulator drives the client SDK against a running gateway:
// it signs a development token, opens a realtime session, mirrors order
// events, and prints the derived recommendations. Useful for exercising
// the full event path without a mobile client.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ordersync/config"
	"ordersync/internal/client"
	"ordersync/internal/domain/entity"
	"ordersync/internal/domain/event"
	"ordersync/internal/infra/ai"
	"ordersync/internal/infra/auth"
	"ordersync/internal/infra/localstate"
	logs "ordersync/internal/infra/log"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func main() {
	if err := run(); err != nil {
		slog.Error("simulator failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	endpoint := flag.String("endpoint", "", "websocket endpoint; derived from config when empty")
	principal := flag.String("principal", "", "principal uuid; a fresh one is generated when empty")
	roles := flag.String("roles", entity.RoleCustomer.String(), "comma-separated roles for the signed token")
	orderID := flag.String("order", "", "extra order id to subscribe to explicitly")
	stateDir := flag.String("state", "", "directory for persisted local state; in-memory when empty")
	flag.Parse()

	cfg, err := config.New()
	if err != nil {
		return err
	}

	logger, err := logs.New(logs.Params{Config: cfg})
	if err != nil {
		return err
	}

	principalID := uuid.New()
	if *principal != "" {
		principalID, err = uuid.Parse(*principal)
		if err != nil {
			return err
		}
	}

	roleList := strings.Split(*roles, ",")
	token, err := auth.SignToken(cfg.SecretKey.Access, principalID, roleList, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	if err != nil {
		return err
	}

	state, err := openState(cfg, *stateDir)
	if err != nil {
		return err
	}
	defer state.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := client.NewSession(ctx, client.SessionParams{
		Logger:            logger,
		State:             state,
		Recommender:       ai.NewRecommender(ai.RecommenderParams{Config: cfg, Logger: logger}),
		ReconnectInterval: cfg.Realtime.ReconnectInterval,
	})
	defer session.Close()

	for _, eventType := range event.Types {
		session.Transport.On(eventType, func(envelope *event.Envelope) {
			logger.Info("event received",
				slog.String("type", string(envelope.Type)),
				slog.String("order_id", envelope.OrderID),
				slog.Uint64("seq", envelope.Seq),
			)
		})
	}

	wsEndpoint := *endpoint
	if wsEndpoint == "" {
		wsEndpoint = fmt.Sprintf("ws://localhost:%d%s", cfg.HTTP.Port, cfg.Realtime.Path)
	}

	if err := session.Connect(ctx, wsEndpoint, client.AuthState{
		Token:       token,
		PrincipalID: principalID.String(),
		Roles:       roleList,
	}); err != nil {
		return err
	}
	logger.Info("session connected",
		slog.String("endpoint", wsEndpoint),
		slog.String("principal_id", principalID.String()),
	)

	if *orderID != "" {
		defer session.Transport.SubscribeToOrder(*orderID)()
	}

	seedBehavior(ctx, session)

	for _, rec := range session.Recommendations.Get(ctx) {
		logger.Info("recommendation",
			slog.String("title", rec.Title),
			slog.String("restaurant", rec.Restaurant),
			slog.String("reason", rec.Reason),
		)
	}

	<-ctx.Done()
	logger.Info("shutting down",
		slog.Int("mirrored_orders", session.Orders.Len()),
		slog.Float64("cart_total", session.Cart.Total()),
	)

	return nil
}

func openState(cfg *config.Config, override string) (*localstate.Store, error) {
	dir := override
	if dir == "" && cfg.LocalState != nil {
		dir = cfg.LocalState.Dir
	}
	if dir == "" {
		return localstate.NewMemStore(), nil
	}

	return localstate.NewFileStore(dir)
}

// seedBehavior plants a small browsing history so the recommendation
// flow has something to chew on during a demo run.
func seedBehavior(ctx context.Context, session *client.Session) {
	session.Behavior.Record(ctx, entity.BehaviorView, map[string]any{
		"restaurant_id": "r-night-market",
		"cuisine":       "taiwanese",
	})
	session.Behavior.Record(ctx, entity.BehaviorSearch, map[string]any{
		"query": "beef noodle",
	})
	session.Cart.AddItem(ctx, entity.CartItem{
		ProductID:      "p-beef-noodle",
		Name:           "Beef Noodle Soup",
		UnitPrice:      180,
		Quantity:       1,
		RestaurantID:   "r-night-market",
		RestaurantName: "Night Market Kitchen",
	})
}
