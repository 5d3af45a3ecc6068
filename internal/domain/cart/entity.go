// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/your-org/storefront-api/internal/domain/product"
)

// CartItem represents one product line in a user's cart. A user has at
// most one row per product, enforced by the composite unique index.
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"product_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Product *product.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName overrides the table name
func (CartItem) TableName() string {
	return "cart_items"
}

// LineTotal returns the item subtotal in cents.
func (ci *CartItem) LineTotal() int64 {
	if ci.Product == nil {
		return 0
	}
	return ci.Product.Price * int64(ci.Quantity)
}

// CartTotals aggregates cart pricing. Amounts are in cents.
type CartTotals struct {
	ItemCount     int   `json:"item_count"`
	TotalQuantity int   `json:"total_quantity"`
	SubTotal      int64 `json:"sub_total"`
	Shipping      int64 `json:"shipping"`
	Tax           int64 `json:"tax"`
	Total         int64 `json:"total"`
}

// Cart is the API view of a user's cart.
type Cart struct {
	UserID uint       `json:"user_id"`
	Items  []CartItem `json:"items"`
	Totals CartTotals `json:"totals"`
}
