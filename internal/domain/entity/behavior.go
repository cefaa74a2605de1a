// Package entity contains the core business objects of the project.
package entity

import "time"

// BehaviorKind classifies entries in the session behavior log.
type BehaviorKind string

const (
	BehaviorView   BehaviorKind = "view"   // Restaurant or menu page view.
	BehaviorOrder  BehaviorKind = "order"  // Completed order placement.
	BehaviorSearch BehaviorKind = "search" // Free-text search.
	BehaviorCart   BehaviorKind = "cart"   // Cart interaction (add/remove/update).
)

// BehaviorEvent is one append-only entry in the session behavior log.
// The log is bounded per kind: insertion appends and then evicts the
// oldest entries once the kind's retention cap is exceeded.
type BehaviorEvent struct {
	Kind       BehaviorKind   `json:"kind"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"` // Kind-specific fields (restaurant id, query, item id, ...).
}

// UserPreferences is a denormalized cache derived from the behavior log.
// It is recomputable at any time from the log and is never authoritative.
type UserPreferences struct {
	FavoriteCuisines     []string  `json:"favorite_cuisines"`
	FrequentItems        []string  `json:"frequent_items"`
	AverageOrderValue    float64   `json:"average_order_value"`
	PreferredRestaurants []string  `json:"preferred_restaurants"`
	ComputedAt           time.Time `json:"computed_at"`
}
