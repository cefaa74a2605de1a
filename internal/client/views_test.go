package client

import (
	"testing"
	"time"

	"ordersync/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedViewStore(t *testing.T) *OrderStore {
	t.Helper()

	store := NewOrderStore(newDiscardLogger())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	specs := []struct {
		restaurant string
		item       string
		status     entity.OrderStatus
		total      float64
		age        time.Duration
	}{
		{"Dumpling House", "Pork Dumplings", entity.StatusPending, 18, 0},
		{"Dumpling House", "Scallion Pancake", entity.StatusDelivered, 9, time.Hour},
		{"Taco Corner", "Carnitas Taco", entity.StatusPreparing, 24, 2 * time.Hour},
		{"Taco Corner", "Horchata", entity.StatusCancelled, 5, 3 * time.Hour},
	}
	for _, spec := range specs {
		order := &entity.Order{
			ID:             uuid.New(),
			RestaurantName: spec.restaurant,
			Status:         spec.status,
			Items:          []entity.OrderItem{{Name: spec.item, UnitPrice: spec.total, Quantity: 1}},
			Total:          spec.total,
			CreatedAt:      base.Add(-spec.age),
		}
		store.ApplyCreated(order.ID.String(), order)
	}

	return store
}

func TestOrderStore_Buckets(t *testing.T) {
	t.Parallel()

	store := seedViewStore(t)

	assert.Len(t, store.Bucket(BucketActive), 2)
	assert.Len(t, store.Bucket(BucketCompleted), 1)
	assert.Len(t, store.Bucket(BucketCancelled), 1)
}

func TestOrderStore_QuerySearch(t *testing.T) {
	t.Parallel()

	store := seedViewStore(t)

	tests := []struct {
		name   string
		search string
		want   int
	}{
		{"restaurant name, case-insensitive", "dumpling house", 2},
		{"item name", "Carnitas", 1},
		{"no match", "sushi", 0},
		{"blank matches all", "   ", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := store.Query(OrderQuery{Search: tt.search})
			assert.Len(t, got, tt.want)
		})
	}
}

func TestOrderStore_QuerySorts(t *testing.T) {
	t.Parallel()

	store := seedViewStore(t)

	newest := store.Query(OrderQuery{Sort: SortNewestFirst})
	require.Len(t, newest, 4)
	for i := 1; i < len(newest); i++ {
		assert.False(t, newest[i].CreatedAt.After(newest[i-1].CreatedAt))
	}

	oldest := store.Query(OrderQuery{Sort: SortOldestFirst})
	require.Len(t, oldest, 4)
	assert.Equal(t, newest[0].ID, oldest[len(oldest)-1].ID)

	byAmount := store.Query(OrderQuery{Sort: SortAmountDesc})
	require.Len(t, byAmount, 4)
	assert.Equal(t, 24.0, byAmount[0].Total)
	assert.Equal(t, 5.0, byAmount[len(byAmount)-1].Total)
}

func TestOrderStore_QueryCombinesFilterAndSearch(t *testing.T) {
	t.Parallel()

	store := seedViewStore(t)

	got := store.Query(OrderQuery{Bucket: BucketActive, Search: "taco"})
	require.Len(t, got, 1)
	assert.Equal(t, entity.StatusPreparing, got[0].Status)
}
