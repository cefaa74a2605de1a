// Package client is the session-side SDK for the order event
// synchronization layer: a realtime transport, a locally consistent
// order store, and the cart/behavior stores shared by the customer,
// restaurant, and courier applications.
package client

import (
	"sync"

	"ordersync/internal/domain/event"
)

// Handler consumes one event envelope. Handlers run synchronously on the
// transport read loop; a slow handler delays everything behind it.
type Handler func(*event.Envelope)

// Disposer removes a registration. Every registration site must invoke
// its disposer on teardown; this is a contract on callers, not enforced
// here. Calling a disposer more than once is a no-op.
type Disposer func()

type registration struct {
	id uint64
	fn Handler
}

// dispatcher routes envelopes to the callbacks registered for their
// event type. Callbacks of one type are invoked in registration order,
// at most once per envelope. No ordering is promised between callbacks
// of different types.
type dispatcher struct {
	mu       sync.Mutex
	handlers map[event.Type][]registration
	nextID   uint64
}

func newDispatcher() *dispatcher {
	return &dispatcher{
		handlers: make(map[event.Type][]registration),
	}
}

// on registers fn for eventType and returns its disposer.
func (d *dispatcher) on(eventType event.Type, fn Handler) Disposer {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.handlers[eventType] = append(d.handlers[eventType], registration{id: id, fn: fn})
	d.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			d.remove(eventType, id)
		})
	}
}

func (d *dispatcher) remove(eventType event.Type, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	regs := d.handlers[eventType]
	for i, reg := range regs {
		if reg.id == id {
			d.handlers[eventType] = append(regs[:i:i], regs[i+1:]...)

			return
		}
	}
}

// dispatch invokes every registered callback for the envelope's type.
// The registration list is snapshotted first so a callback may register
// or dispose without affecting this delivery round.
func (d *dispatcher) dispatch(envelope *event.Envelope) {
	d.mu.Lock()
	regs := d.handlers[envelope.Type]
	snapshot := make([]registration, len(regs))
	copy(snapshot, regs)
	d.mu.Unlock()

	for _, reg := range snapshot {
		reg.fn(envelope)
	}
}
