// internal/domain/order/entity.go
package order

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ValidStatus reports whether s is a known order status.
func ValidStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from one status to
// another. A non-terminal order may be set to any status except pending,
// which is never re-entered; delivered and cancelled orders are frozen.
func CanTransition(from, to OrderStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == OrderStatusPending || to == from {
		return false
	}
	return ValidStatus(to)
}

// IsTerminal reports whether the status admits no further transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Order represents a placed order. Amounts are in cents.
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID      uint        `gorm:"not null;index" json:"user_id"`
	Status      OrderStatus `gorm:"not null;default:'pending';index" json:"status"`

	SubTotal int64 `gorm:"not null" json:"sub_total"`
	Shipping int64 `gorm:"default:0" json:"shipping"`
	Tax      int64 `gorm:"default:0" json:"tax"`
	Total    int64 `gorm:"not null" json:"total"`

	// Checkout replays with the same key return the original order
	// instead of creating a duplicate.
	IdempotencyKey *string `gorm:"uniqueIndex;size:100" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"status_history,omitempty"`
}

// OrderItem is a point-in-time snapshot of a purchased product. Later
// changes to the product do not affect it.
type OrderItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    uint      `gorm:"not null;index" json:"order_id"`
	ProductID  uint      `gorm:"not null" json:"product_id"`
	Name       string    `gorm:"not null;size:255" json:"name"`
	Price      int64     `gorm:"not null" json:"price"`
	Quantity   int       `gorm:"not null" json:"quantity"`
	TotalPrice int64     `gorm:"not null" json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`
}

// OrderStatusHistory records each status transition.
type OrderStatusHistory struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	OrderID    uint        `gorm:"not null;index" json:"order_id"`
	FromStatus OrderStatus `gorm:"size:20" json:"from_status"`
	ToStatus   OrderStatus `gorm:"not null;size:20" json:"to_status"`
	ChangedBy  uint        `json:"changed_by"`
	Note       string      `gorm:"size:255" json:"note,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// TableName overrides the table name for Order
func (Order) TableName() string {
	return "orders"
}

// TableName overrides the table name for OrderItem
func (OrderItem) TableName() string {
	return "order_items"
}

// TableName overrides the table name for OrderStatusHistory
func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}

// CanBeCancelledBy reports whether the given role may cancel the order in
// its current status. Clients may only cancel orders that are still
// pending; admins may cancel anything not yet terminal.
func (o *Order) CanBeCancelledBy(isAdmin bool) bool {
	if isAdmin {
		return CanTransition(o.Status, OrderStatusCancelled)
	}
	return o.Status == OrderStatusPending
}
