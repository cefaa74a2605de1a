package event

// Control actions a client may send upstream on the realtime channel.
// Subscription narrowing is purely an optimization: the gateway may keep
// delivering events for orders the client never subscribed to, and
// clients must drop uninteresting events by id comparison.
const (
	ActionSubscribeOrder   = "subscribe_order"
	ActionUnsubscribeOrder = "unsubscribe_order"
)

// ControlFrame is a client-to-gateway message narrowing or widening
// server-side event delivery for one order id.
type ControlFrame struct {
	Action  string `json:"action"`
	OrderID string `json:"order_id"`
}
