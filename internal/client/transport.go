package client

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ordersync/internal/domain/event"
	"ordersync/internal/errors"

	"github.com/gorilla/websocket"
)

const defaultReconnectInterval = 3 * time.Second

// Transport maintains a single websocket session against the gateway
// and fans received envelopes out through an event dispatcher. A lost
// connection is re-dialed in the background and active per-order
// subscriptions are replayed on the fresh session, so callers never
// manage reconnection themselves.
type Transport struct {
	logger            *slog.Logger
	reconnectInterval time.Duration

	dispatcher *dispatcher

	// writeMu serializes frame writes; gorilla connections allow only
	// one concurrent writer.
	writeMu sync.Mutex

	mu         sync.Mutex
	conn       *websocket.Conn
	connected  bool
	closed     bool
	endpoint   string
	token      string
	subs       map[string]int
	generation uint64
}

// TransportParams configures a Transport.
type TransportParams struct {
	Logger            *slog.Logger
	ReconnectInterval time.Duration
}

// NewTransport builds a disconnected transport. Call Connect to start
// the session.
func NewTransport(params TransportParams) *Transport {
	interval := params.ReconnectInterval
	if interval <= 0 {
		interval = defaultReconnectInterval
	}

	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Transport{
		logger:            logger,
		reconnectInterval: interval,
		dispatcher:        newDispatcher(),
		subs:              make(map[string]int),
	}
}

// Connect dials the gateway websocket endpoint, authenticating with the
// bearer token. A failed dial leaves the transport disconnected and
// retrying in the background; Connect itself only errors on misuse.
// Calling Connect again with the same endpoint and token is a no-op, so
// retry wrappers can call it freely. A second Connect with a different
// endpoint or token errors; use Close and a fresh Transport to move.
func (t *Transport) Connect(ctx context.Context, endpoint string, token string) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()

		return errors.New("transport is closed")
	}
	if t.endpoint != "" {
		same := t.endpoint == endpoint && t.token == token
		current := t.endpoint
		t.mu.Unlock()

		if same {
			return nil
		}

		return errors.Errorf("transport is already connected to %s", current)
	}
	t.endpoint = endpoint
	t.token = token
	t.generation++
	generation := t.generation
	t.mu.Unlock()

	go t.run(ctx, generation)

	return nil
}

// run owns the dial/read/redial cycle for one Connect call.
func (t *Transport) run(ctx context.Context, generation uint64) {
	for {
		if t.isStale(generation) {
			return
		}

		conn, err := t.dial(ctx)
		if err != nil {
			t.logger.Warn("websocket dial failed, will retry",
				slog.String("endpoint", t.endpoint),
				slog.Any("error", err),
			)

			if !t.sleep(ctx) {
				return
			}

			continue
		}

		t.attach(conn)
		t.resubscribe()
		t.readLoop(conn)
		t.detach(conn)

		if !t.sleep(ctx) {
			return
		}
	}
}

func (t *Transport) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+t.token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.endpoint, header)
	if err != nil {
		return nil, errors.Wrap(err, "dial gateway websocket")
	}

	return conn, nil
}

func (t *Transport) attach(conn *websocket.Conn) {
	t.mu.Lock()
	t.conn = conn
	t.connected = true
	t.mu.Unlock()

	t.logger.Info("websocket session established", slog.String("endpoint", t.endpoint))
}

func (t *Transport) detach(conn *websocket.Conn) {
	t.mu.Lock()
	if t.conn == conn {
		t.conn = nil
		t.connected = false
	}
	t.mu.Unlock()

	_ = conn.Close()

	t.logger.Warn("websocket session lost", slog.String("endpoint", t.endpoint))
}

func (t *Transport) isStale(generation uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.closed || t.generation != generation
}

func (t *Transport) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(t.reconnectInterval):
		return true
	}
}

// readLoop decodes envelopes off the socket until it breaks. Frames
// that fail to decode are logged and skipped; one malformed producer
// must not poison the session.
func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var envelope event.Envelope
		if err := envelope.UnmarshalJSON(payload); err != nil {
			t.logger.Warn("discarding malformed event frame", slog.Any("error", err))

			continue
		}

		t.dispatcher.dispatch(&envelope)
	}
}

// IsConnected reports whether a live session currently exists. The
// answer is advisory; the session can drop immediately after.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.connected
}

// On registers a callback for one event type and returns its disposer.
// Events arrive regardless of per-order subscriptions; callers filter
// by order when they care.
func (t *Transport) On(eventType event.Type, fn Handler) Disposer {
	return t.dispatcher.on(eventType, fn)
}

// SubscribeToOrder asks the gateway to include events for the given
// order in this session. Subscriptions are reference counted so two
// screens watching the same order do not cancel each other; the
// returned disposer releases one reference.
func (t *Transport) SubscribeToOrder(orderID string) Disposer {
	t.mu.Lock()
	t.subs[orderID]++
	first := t.subs[orderID] == 1
	conn := t.conn
	t.mu.Unlock()

	if first && conn != nil {
		t.sendControl(conn, event.ActionSubscribeOrder, orderID)
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			t.unsubscribe(orderID)
		})
	}
}

func (t *Transport) unsubscribe(orderID string) {
	t.mu.Lock()
	t.subs[orderID]--
	last := t.subs[orderID] <= 0
	if last {
		delete(t.subs, orderID)
	}
	conn := t.conn
	t.mu.Unlock()

	if last && conn != nil {
		t.sendControl(conn, event.ActionUnsubscribeOrder, orderID)
	}
}

// resubscribe replays all live subscriptions on a fresh session.
func (t *Transport) resubscribe() {
	t.mu.Lock()
	conn := t.conn
	orderIDs := make([]string, 0, len(t.subs))
	for orderID := range t.subs {
		orderIDs = append(orderIDs, orderID)
	}
	t.mu.Unlock()

	if conn == nil {
		return
	}

	for _, orderID := range orderIDs {
		t.sendControl(conn, event.ActionSubscribeOrder, orderID)
	}
}

func (t *Transport) sendControl(conn *websocket.Conn, action string, orderID string) {
	frame := event.ControlFrame{Action: action, OrderID: orderID}

	t.writeMu.Lock()
	err := conn.WriteJSON(frame)
	t.writeMu.Unlock()

	if err != nil {
		t.logger.Warn("control frame send failed",
			slog.String("action", action),
			slog.String("order_id", orderID),
			slog.Any("error", err),
		)
	}
}

// Close tears the session down permanently. The transport cannot be
// reused afterwards.
func (t *Transport) Close() {
	t.mu.Lock()
	t.closed = true
	conn := t.conn
	t.conn = nil
	t.connected = false
	t.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = conn.Close()
	}
}
