// Package entity contains the core business objects of the project.
package entity

// CartItem is a single line in a session's shopping cart. Lines are keyed
// by the (ProductID, RestaurantID) pair; the same product id may appear
// under two different restaurants as two distinct lines.
type CartItem struct {
	ProductID      string  `json:"product_id"`      // The ID of the menu item.
	Name           string  `json:"name"`            // Display name of the menu item.
	UnitPrice      float64 `json:"unit_price"`      // Price per unit.
	Quantity       int     `json:"quantity"`        // Number of units, always >= 1.
	RestaurantID   string  `json:"restaurant_id"`   // The ID of the restaurant owning the item.
	RestaurantName string  `json:"restaurant_name"` // Denormalized restaurant name for display.
}

// LineTotal returns price multiplied by quantity for this line.
func (i CartItem) LineTotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// RestaurantGroup is the per-restaurant view of a cart used for checkout
// and display. A group disappears when its last line is removed.
type RestaurantGroup struct {
	RestaurantID   string     `json:"restaurant_id"`
	RestaurantName string     `json:"restaurant_name"`
	Items          []CartItem `json:"items"`
	Subtotal       float64    `json:"subtotal"`
}
