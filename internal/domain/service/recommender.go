package service

import (
	"context"

	"ordersync/internal/domain/entity"
)

// Recommendation is one suggested restaurant or dish produced for a
// session, either by the generative model or by the local fallback.
type Recommendation struct {
	Title      string  `json:"title"`
	Restaurant string  `json:"restaurant"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// Recommender produces personalized suggestions from the session's
// derived preferences. Implementations must never fail: when the
// underlying model call errors or returns garbage, a deterministic local
// fallback answer is substituted instead.
type Recommender interface {
	// Recommend returns suggestions for the given preferences. The
	// returned slice is never empty.
	Recommend(ctx context.Context, prefs entity.UserPreferences) []Recommendation
}
