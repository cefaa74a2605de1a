package client

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"ordersync/internal/domain/entity"
	"ordersync/internal/infra/localstate"
)

// Per-kind retention caps for the behavior log. Insertion appends and
// then evicts from the front once the kind exceeds its cap, so the log
// always holds the most recent entries.
const (
	maxViewEvents   = 1000
	maxOrderEvents  = 100
	maxSearchEvents = 500
	maxCartEvents   = 500
)

const topPreferenceEntries = 5

func capFor(kind entity.BehaviorKind) int {
	switch kind {
	case entity.BehaviorView:
		return maxViewEvents
	case entity.BehaviorOrder:
		return maxOrderEvents
	case entity.BehaviorSearch:
		return maxSearchEvents
	case entity.BehaviorCart:
		return maxCartEvents
	default:
		return maxCartEvents
	}
}

// BehaviorLog is the session's bounded, append-only record of what the
// user did: pages viewed, searches run, cart touches, orders placed.
// It feeds preference derivation and, through it, recommendations. The
// log is local to the device and flushed to local state best-effort.
type BehaviorLog struct {
	logger *slog.Logger
	state  *localstate.Store
	now    func() time.Time

	mu     sync.Mutex
	events map[entity.BehaviorKind][]entity.BehaviorEvent
}

// NewBehaviorLog builds a behavior log, restoring persisted entries.
// A nil state store yields a purely in-memory log.
func NewBehaviorLog(ctx context.Context, state *localstate.Store, logger *slog.Logger) *BehaviorLog {
	if logger == nil {
		logger = slog.Default()
	}

	log := &BehaviorLog{
		logger: logger,
		state:  state,
		now:    time.Now,
		events: make(map[entity.BehaviorKind][]entity.BehaviorEvent),
	}

	if state != nil {
		var persisted []entity.BehaviorEvent
		ok, err := state.Load(ctx, localstate.KeyBehavior, &persisted)
		if err != nil {
			logger.Warn("behavior log restore failed, starting empty", slog.Any("error", err))
		} else if ok {
			for _, evt := range persisted {
				log.append(evt)
			}
		}
	}

	return log
}

// Record appends one behavior event, stamping it with the current time
// when the caller left OccurredAt zero, and evicts the oldest entries
// of its kind past the retention cap.
func (b *BehaviorLog) Record(ctx context.Context, kind entity.BehaviorKind, payload map[string]any) {
	evt := entity.BehaviorEvent{
		Kind:       kind,
		OccurredAt: b.now().UTC(),
		Payload:    payload,
	}

	b.mu.Lock()
	b.append(evt)
	b.mu.Unlock()

	b.persist(ctx)
}

// append inserts and trims one event. Callers hold b.mu (or own the
// log exclusively, as during restore).
func (b *BehaviorLog) append(evt entity.BehaviorEvent) {
	events := append(b.events[evt.Kind], evt)
	if limit := capFor(evt.Kind); len(events) > limit {
		events = events[len(events)-limit:]
	}
	b.events[evt.Kind] = events
}

// Events returns a copy of the log for one kind, oldest first.
func (b *BehaviorLog) Events(kind entity.BehaviorKind) []entity.BehaviorEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]entity.BehaviorEvent(nil), b.events[kind]...)
}

// Len returns the entry count for one kind.
func (b *BehaviorLog) Len(kind entity.BehaviorKind) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.events[kind])
}

// DerivePreferences recomputes the preference cache from the log. The
// result is denormalized and recomputable; it is persisted alongside
// the log but the log stays the source of truth.
func (b *BehaviorLog) DerivePreferences(ctx context.Context) entity.UserPreferences {
	b.mu.Lock()

	cuisines := make(map[string]int)
	items := make(map[string]int)
	restaurants := make(map[string]int)
	orderTotal := 0.0
	orderCount := 0

	for _, evt := range b.events[entity.BehaviorView] {
		countField(cuisines, evt.Payload, "cuisine")
		countField(restaurants, evt.Payload, "restaurant_id")
	}
	for _, evt := range b.events[entity.BehaviorOrder] {
		countField(cuisines, evt.Payload, "cuisine")
		countField(restaurants, evt.Payload, "restaurant_id")
		for _, name := range stringSliceField(evt.Payload, "items") {
			items[name]++
		}
		if total, ok := floatField(evt.Payload, "total"); ok {
			orderTotal += total
			orderCount++
		}
	}
	for _, evt := range b.events[entity.BehaviorCart] {
		countField(items, evt.Payload, "item_name")
	}

	b.mu.Unlock()

	prefs := entity.UserPreferences{
		FavoriteCuisines:     topKeys(cuisines, topPreferenceEntries),
		FrequentItems:        topKeys(items, topPreferenceEntries),
		PreferredRestaurants: topKeys(restaurants, topPreferenceEntries),
		ComputedAt:           b.now().UTC(),
	}
	if orderCount > 0 {
		prefs.AverageOrderValue = orderTotal / float64(orderCount)
	}

	if b.state != nil {
		if err := b.state.Save(ctx, localstate.KeyPreferences, prefs); err != nil {
			b.logger.Warn("preference cache persist failed", slog.Any("error", err))
		}
	}

	return prefs
}

func (b *BehaviorLog) persist(ctx context.Context) {
	if b.state == nil {
		return
	}

	b.mu.Lock()
	all := make([]entity.BehaviorEvent, 0)
	for _, kind := range []entity.BehaviorKind{
		entity.BehaviorView,
		entity.BehaviorOrder,
		entity.BehaviorSearch,
		entity.BehaviorCart,
	} {
		all = append(all, b.events[kind]...)
	}
	b.mu.Unlock()

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].OccurredAt.Before(all[j].OccurredAt)
	})

	if err := b.state.Save(ctx, localstate.KeyBehavior, all); err != nil {
		b.logger.Warn("behavior log persist failed", slog.Any("error", err))
	}
}

func countField(counts map[string]int, payload map[string]any, field string) {
	if value, ok := payload[field].(string); ok && value != "" {
		counts[value]++
	}
}

func floatField(payload map[string]any, field string) (float64, bool) {
	switch value := payload[field].(type) {
	case float64:
		return value, true
	case int:
		return float64(value), true
	default:
		return 0, false
	}
}

// stringSliceField reads a string slice that may have round-tripped
// through JSON as []any.
func stringSliceField(payload map[string]any, field string) []string {
	switch value := payload[field].(type) {
	case []string:
		return value
	case []any:
		out := make([]string, 0, len(value))
		for _, v := range value {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}

		return out
	default:
		return nil
	}
}

// topKeys returns up to limit keys ordered by descending count, ties
// broken alphabetically for stable output.
func topKeys(counts map[string]int, limit int) []string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}

		return keys[i] < keys[j]
	})

	if len(keys) > limit {
		keys = keys[:limit]
	}

	return keys
}
