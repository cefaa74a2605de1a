// Package delivery defines the contract every transport surface of the
// gateway implements. Concrete deliveries (REST API, realtime hub,
// pub/sub push worker) are collected into the fx "deliveries" group and
// served concurrently from main.
package delivery

import "context"

// Delivery is a single serving surface with its own listen loop.
type Delivery interface {
	// Serve blocks, serving until the listener fails or is shut down
	// through the fx lifecycle.
	Serve(ctx context.Context) error
}
