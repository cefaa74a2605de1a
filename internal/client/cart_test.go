package client

import (
	"context"
	"testing"

	"ordersync/internal/domain/entity"
	"ordersync/internal/infra/localstate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dumplings(quantity int) entity.CartItem {
	return entity.CartItem{
		ProductID:      "p-1",
		Name:           "Pork Dumplings",
		UnitPrice:      8.5,
		Quantity:       quantity,
		RestaurantID:   "r-1",
		RestaurantName: "Dumpling House",
	}
}

func TestCartStore_AddMergesSameProductSameRestaurant(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cart := NewCartStore(ctx, nil, newDiscardLogger())

	cart.AddItem(ctx, dumplings(1))
	cart.AddItem(ctx, dumplings(2))

	items := cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestCartStore_SameProductDifferentRestaurantStaysSeparate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cart := NewCartStore(ctx, nil, newDiscardLogger())

	cart.AddItem(ctx, dumplings(1))

	other := dumplings(1)
	other.RestaurantID = "r-2"
	other.RestaurantName = "Noodle Bar"
	cart.AddItem(ctx, other)

	require.Len(t, cart.Items(), 2)

	// Removing from one restaurant leaves the other line alone.
	cart.RemoveItem(ctx, "p-1", "r-1")
	items := cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "r-2", items[0].RestaurantID)
}

func TestCartStore_UpdateQuantity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cart := NewCartStore(ctx, nil, newDiscardLogger())
	cart.AddItem(ctx, dumplings(2))

	cart.UpdateQuantity(ctx, "p-1", "r-1", 5)
	assert.Equal(t, 5, cart.Items()[0].Quantity)

	cart.UpdateQuantity(ctx, "p-1", "r-1", 0)
	assert.Empty(t, cart.Items())
}

func TestCartStore_TotalAndCount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cart := NewCartStore(ctx, nil, newDiscardLogger())

	cart.AddItem(ctx, dumplings(2))

	taco := entity.CartItem{
		ProductID: "p-9", Name: "Carnitas Taco", UnitPrice: 4.0, Quantity: 3,
		RestaurantID: "r-2", RestaurantName: "Taco Corner",
	}
	cart.AddItem(ctx, taco)

	assert.InDelta(t, 8.5*2+4.0*3, cart.Total(), 1e-9)
	assert.Equal(t, 5, cart.Count())
}

func TestCartStore_Groups(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cart := NewCartStore(ctx, nil, newDiscardLogger())

	cart.AddItem(ctx, dumplings(2))
	cart.AddItem(ctx, entity.CartItem{
		ProductID: "p-9", Name: "Carnitas Taco", UnitPrice: 4.0, Quantity: 3,
		RestaurantID: "r-2", RestaurantName: "Taco Corner",
	})

	groups := cart.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "Dumpling House", groups[0].RestaurantName)
	assert.InDelta(t, 17.0, groups[0].Subtotal, 1e-9)
	assert.Equal(t, "Taco Corner", groups[1].RestaurantName)
	assert.InDelta(t, 12.0, groups[1].Subtotal, 1e-9)

	cart.ClearRestaurant(ctx, "r-1")
	groups = cart.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, "r-2", groups[0].RestaurantID)
}

func TestCartStore_PrimaryRestaurantID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cart := NewCartStore(ctx, nil, newDiscardLogger())

	assert.Empty(t, cart.PrimaryRestaurantID())

	cart.AddItem(ctx, dumplings(1))
	assert.Equal(t, "r-1", cart.PrimaryRestaurantID())

	cart.Clear(ctx)
	assert.Empty(t, cart.PrimaryRestaurantID())
}

func TestCartStore_PrimarySurvivesFirstRestaurantRemoval(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cart := NewCartStore(ctx, nil, newDiscardLogger())

	cart.AddItem(ctx, dumplings(1))
	cart.AddItem(ctx, entity.CartItem{
		ProductID: "p-9", Name: "Carnitas Taco", UnitPrice: 4.0, Quantity: 1,
		RestaurantID: "r-2", RestaurantName: "Taco Corner",
	})

	// Dropping the first restaurant's only line must not promote
	// whichever restaurant now holds line zero.
	cart.RemoveItem(ctx, "p-1", "r-1")
	require.Len(t, cart.Items(), 1)
	assert.Equal(t, "r-1", cart.PrimaryRestaurantID())

	// Only an emptied cart starts over.
	cart.RemoveItem(ctx, "p-9", "r-2")
	assert.Empty(t, cart.PrimaryRestaurantID())
}

func TestCartStore_TotalIgnoresInsertionOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	lines := []entity.CartItem{
		dumplings(2),
		{ProductID: "p-9", Name: "Carnitas Taco", UnitPrice: 4.0, Quantity: 3,
			RestaurantID: "r-2", RestaurantName: "Taco Corner"},
		{ProductID: "p-4", Name: "Green Tea", UnitPrice: 2.5, Quantity: 1,
			RestaurantID: "r-1", RestaurantName: "Dumpling House"},
	}

	forward := NewCartStore(ctx, nil, newDiscardLogger())
	for _, line := range lines {
		forward.AddItem(ctx, line)
	}

	backward := NewCartStore(ctx, nil, newDiscardLogger())
	for i := len(lines) - 1; i >= 0; i-- {
		backward.AddItem(ctx, lines[i])
	}

	assert.InDelta(t, forward.Total(), backward.Total(), 1e-9)
	assert.Equal(t, forward.Count(), backward.Count())
	assert.ElementsMatch(t, forward.Items(), backward.Items())
}

func TestCartStore_PersistsAcrossRestart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	state := localstate.NewMemStore()

	cart := NewCartStore(ctx, state, newDiscardLogger())
	cart.AddItem(ctx, dumplings(2))

	restored := NewCartStore(ctx, state, newDiscardLogger())
	items := restored.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Pork Dumplings", items[0].Name)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "r-1", restored.PrimaryRestaurantID())
}
