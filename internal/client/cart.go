package client

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"ordersync/internal/domain/entity"
	"ordersync/internal/infra/localstate"
)

// CartStore holds the session's shopping cart. It works entirely
// offline; mutations never touch the network and are flushed to local
// key-value state on a best-effort basis so the cart survives a
// restart. Lines are keyed by the (product id, restaurant id) pair, so
// the same product offered by two restaurants stays two lines.
type CartStore struct {
	logger *slog.Logger
	state  *localstate.Store

	mu      sync.Mutex
	items   []entity.CartItem
	primary string
}

// cartState is the persisted shape of the cart. The primary restaurant
// travels with the lines so a restart cannot re-derive it from whatever
// line happens to sit first.
type cartState struct {
	Items   []entity.CartItem `json:"items"`
	Primary string            `json:"primary_restaurant_id"`
}

// NewCartStore builds a cart, restoring any persisted lines. A nil
// state store yields a purely in-memory cart.
func NewCartStore(ctx context.Context, state *localstate.Store, logger *slog.Logger) *CartStore {
	if logger == nil {
		logger = slog.Default()
	}

	cart := &CartStore{
		logger: logger,
		state:  state,
	}

	if state != nil {
		var persisted cartState
		ok, err := state.Load(ctx, localstate.KeyCart, &persisted)
		if err != nil {
			logger.Warn("cart restore failed, starting empty", slog.Any("error", err))
		} else if ok {
			cart.items = persisted.Items
			cart.primary = persisted.Primary
		}
	}

	return cart
}

// AddItem adds one line to the cart. An existing line for the same
// (product, restaurant) pair has its quantity increased instead; a
// second restaurant's line for the same product id never merges.
func (c *CartStore) AddItem(ctx context.Context, item entity.CartItem) {
	if item.Quantity < 1 {
		item.Quantity = 1
	}

	c.mu.Lock()
	if existing := c.find(item.ProductID, item.RestaurantID); existing != nil {
		existing.Quantity += item.Quantity
	} else {
		c.items = append(c.items, item)
	}
	if c.primary == "" {
		c.primary = item.RestaurantID
	}
	c.mu.Unlock()

	c.persist(ctx)
}

// RemoveItem drops one line. The restaurant id is part of the key;
// removing a product from one restaurant leaves the other restaurant's
// line for the same product alone.
func (c *CartStore) RemoveItem(ctx context.Context, productID, restaurantID string) {
	c.mu.Lock()
	for i, item := range c.items {
		if item.ProductID == productID && item.RestaurantID == restaurantID {
			c.items = append(c.items[:i:i], c.items[i+1:]...)

			break
		}
	}
	if len(c.items) == 0 {
		c.primary = ""
	}
	c.mu.Unlock()

	c.persist(ctx)
}

// UpdateQuantity sets the quantity of one line. A quantity of zero or
// less removes the line.
func (c *CartStore) UpdateQuantity(ctx context.Context, productID, restaurantID string, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(ctx, productID, restaurantID)

		return
	}

	c.mu.Lock()
	if existing := c.find(productID, restaurantID); existing != nil {
		existing.Quantity = quantity
	}
	c.mu.Unlock()

	c.persist(ctx)
}

// Clear empties the cart.
func (c *CartStore) Clear(ctx context.Context) {
	c.mu.Lock()
	c.items = nil
	c.primary = ""
	c.mu.Unlock()

	c.persist(ctx)
}

// ClearRestaurant removes every line of one restaurant, typically right
// after that restaurant's part of the cart was checked out.
func (c *CartStore) ClearRestaurant(ctx context.Context, restaurantID string) {
	c.mu.Lock()
	kept := c.items[:0]
	for _, item := range c.items {
		if item.RestaurantID != restaurantID {
			kept = append(kept, item)
		}
	}
	c.items = kept
	if len(c.items) == 0 {
		c.primary = ""
	}
	c.mu.Unlock()

	c.persist(ctx)
}

// Items returns a copy of the cart lines in insertion order.
func (c *CartStore) Items() []entity.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]entity.CartItem(nil), c.items...)
}

// Total returns the sum of all line totals across every restaurant.
func (c *CartStore) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0.0
	for _, item := range c.items {
		total += item.LineTotal()
	}

	return total
}

// Count returns the total unit count in the cart.
func (c *CartStore) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for _, item := range c.items {
		count += item.Quantity
	}

	return count
}

// PrimaryRestaurantID returns the restaurant whose line was added
// first in the cart's lifetime, or "" for an empty cart. Removing that
// restaurant's lines does not move the primary to whoever is now line
// zero; only an emptied cart picks a new primary. Single-restaurant
// screens key off this; multi-restaurant checkout uses Groups.
func (c *CartStore) PrimaryRestaurantID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.primary
}

// Groups returns the cart partitioned by restaurant, each group with
// its own subtotal, ordered by restaurant name for stable display.
func (c *CartStore) Groups() []entity.RestaurantGroup {
	c.mu.Lock()
	defer c.mu.Unlock()

	byRestaurant := make(map[string]*entity.RestaurantGroup)
	order := make([]string, 0)
	for _, item := range c.items {
		group, exists := byRestaurant[item.RestaurantID]
		if !exists {
			group = &entity.RestaurantGroup{
				RestaurantID:   item.RestaurantID,
				RestaurantName: item.RestaurantName,
			}
			byRestaurant[item.RestaurantID] = group
			order = append(order, item.RestaurantID)
		}
		group.Items = append(group.Items, item)
		group.Subtotal += item.LineTotal()
	}

	groups := make([]entity.RestaurantGroup, 0, len(order))
	for _, restaurantID := range order {
		groups = append(groups, *byRestaurant[restaurantID])
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].RestaurantName < groups[j].RestaurantName
	})

	return groups
}

// find returns the addressable line for a key, or nil. Callers hold
// c.mu.
func (c *CartStore) find(productID, restaurantID string) *entity.CartItem {
	for i := range c.items {
		if c.items[i].ProductID == productID && c.items[i].RestaurantID == restaurantID {
			return &c.items[i]
		}
	}

	return nil
}

// persist flushes the cart to local state. Persistence failures are
// logged and swallowed; the in-memory cart stays authoritative for the
// session.
func (c *CartStore) persist(ctx context.Context) {
	if c.state == nil {
		return
	}

	c.mu.Lock()
	persisted := cartState{
		Items:   append([]entity.CartItem(nil), c.items...),
		Primary: c.primary,
	}
	c.mu.Unlock()

	if err := c.state.Save(ctx, localstate.KeyCart, persisted); err != nil {
		c.logger.Warn("cart persist failed", slog.Any("error", err))
	}
}
