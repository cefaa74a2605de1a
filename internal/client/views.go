package client

import (
	"sort"
	"strings"

	"ordersync/internal/domain/entity"
)

// StatusBucket groups lifecycle statuses into the three tabs every
// order list renders: in-flight, delivered, cancelled.
type StatusBucket string

const (
	BucketActive    StatusBucket = "active"
	BucketCompleted StatusBucket = "completed"
	BucketCancelled StatusBucket = "cancelled"
)

// bucketOf places a status into its bucket. Every valid status belongs
// to exactly one bucket.
func bucketOf(status entity.OrderStatus) StatusBucket {
	switch status {
	case entity.StatusDelivered:
		return BucketCompleted
	case entity.StatusCancelled:
		return BucketCancelled
	default:
		return BucketActive
	}
}

// SortOrder names a presentation ordering for order lists.
type SortOrder string

const (
	SortNewestFirst SortOrder = "newest"
	SortOldestFirst SortOrder = "oldest"
	SortAmountDesc  SortOrder = "amount"
)

// OrderQuery describes one derived view over the order store: an
// optional bucket filter, an optional free-text search, and a sort.
type OrderQuery struct {
	Bucket StatusBucket
	Search string
	Sort   SortOrder
}

// Query returns the orders matching q, sorted. The result is a fresh
// slice of copies; mutating it never touches store state.
func (s *OrderStore) Query(q OrderQuery) []*entity.Order {
	orders := s.All()

	filtered := orders[:0]
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	for _, order := range orders {
		if q.Bucket != "" && bucketOf(order.Status) != q.Bucket {
			continue
		}
		if needle != "" && !matchesSearch(order, needle) {
			continue
		}
		filtered = append(filtered, order)
	}

	sortOrders(filtered, q.Sort)

	return filtered
}

// Bucket returns the orders in one bucket, newest first.
func (s *OrderStore) Bucket(bucket StatusBucket) []*entity.Order {
	return s.Query(OrderQuery{Bucket: bucket, Sort: SortNewestFirst})
}

// matchesSearch reports whether the order matches a lowercased search
// needle. The id, the restaurant name, and every item name are
// searchable.
func matchesSearch(order *entity.Order, needle string) bool {
	if strings.Contains(strings.ToLower(order.ID.String()), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(order.RestaurantName), needle) {
		return true
	}
	for _, item := range order.Items {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			return true
		}
	}

	return false
}

func sortOrders(orders []*entity.Order, order SortOrder) {
	switch order {
	case SortOldestFirst:
		sort.SliceStable(orders, func(i, j int) bool {
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		})
	case SortAmountDesc:
		sort.SliceStable(orders, func(i, j int) bool {
			return orders[i].Total > orders[j].Total
		})
	default:
		sort.SliceStable(orders, func(i, j int) bool {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		})
	}
}
