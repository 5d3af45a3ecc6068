// internal/domain/order/service.go
package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/user"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
	"github.com/your-org/storefront-api/internal/pkg/email"
)

// Mailer is the subset of the email service the order service depends on.
type Mailer interface {
	SendOrderConfirmationEmail(to, name, orderNumber string, total int64) error
}

// Service handles order business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
	mailer Mailer
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
		mailer: email.NewEmailService(cfg),
	}
}

// SetMailer overrides the mailer, used by tests.
func (s *Service) SetMailer(m Mailer) {
	s.mailer = m
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// OrderListResponse represents an order list with pagination
type OrderListResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Checkout converts the user's cart into an order. Snapshotting the cart,
// creating the order and clearing the cart happen in one transaction, so
// a failure at any point leaves both cart and orders unchanged.
//
// When idempotencyKey is non-empty and an order already exists for it,
// that order is returned and no new order is created.
func (s *Service) Checkout(userID uint, idempotencyKey string) (*Order, error) {
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey != "" {
		existing, err := s.findByIdempotencyKey(idempotencyKey, userID)
		if existing != nil || err != nil {
			return existing, err
		}
	}

	var created Order

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var items []cart.CartItem
		if err := tx.Preload("Product").
			Where("user_id = ?", userID).
			Order("product_id ASC").
			Find(&items).Error; err != nil {
			return apperror.Internal(err, "failed to load cart")
		}

		if len(items) == 0 {
			return apperror.InvalidState("cannot checkout an empty cart")
		}

		var subTotal int64
		orderItems := make([]OrderItem, 0, len(items))
		for _, item := range items {
			if item.Product == nil {
				return apperror.InvalidState("cart references a product that no longer exists")
			}
			lineTotal := item.Product.Price * int64(item.Quantity)
			subTotal += lineTotal
			orderItems = append(orderItems, OrderItem{
				ProductID:  item.ProductID,
				Name:       item.Product.Name,
				Price:      item.Product.Price,
				Quantity:   item.Quantity,
				TotalPrice: lineTotal,
			})
		}

		orderNumber, err := s.generateOrderNumber(tx)
		if err != nil {
			return err
		}

		created = Order{
			OrderNumber: orderNumber,
			UserID:      userID,
			Status:      OrderStatusPending,
			SubTotal:    subTotal,
			Shipping:    s.config.Checkout.ShippingFee,
			Tax:         s.config.Checkout.TaxAmount,
			Items:       orderItems,
			StatusHistory: []OrderStatusHistory{
				{ToStatus: OrderStatusPending, ChangedBy: userID, Note: "order placed"},
			},
		}
		created.Total = created.SubTotal + created.Shipping + created.Tax
		if idempotencyKey != "" {
			created.IdempotencyKey = &idempotencyKey
		}

		if err := tx.Create(&created).Error; err != nil {
			return apperror.Internal(err, "failed to create order")
		}

		if err := tx.Where("user_id = ?", userID).Delete(&cart.CartItem{}).Error; err != nil {
			return apperror.Internal(err, "failed to clear cart")
		}

		return nil
	})
	if err != nil {
		// The pre-check races with concurrent checkouts carrying the
		// same key; the loser fails on the unique index, so replay the
		// order the winner created instead of surfacing the failure.
		if idempotencyKey != "" {
			existing, lookupErr := s.findByIdempotencyKey(idempotencyKey, userID)
			if existing != nil || (lookupErr != nil && apperror.KindOf(lookupErr) == apperror.KindConflict) {
				return existing, lookupErr
			}
		}
		return nil, err
	}

	s.sendConfirmation(&created)

	return &created, nil
}

// findByIdempotencyKey returns the order already holding the key, nil
// when the key is unused. A key held by another user is a conflict.
func (s *Service) findByIdempotencyKey(key string, userID uint) (*Order, error) {
	var existing Order
	result := s.db.Preload("Items").Where("idempotency_key = ?", key).First(&existing)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperror.Internal(result.Error, "failed to check idempotency key")
	}
	if existing.UserID != userID {
		return nil, apperror.Conflict("idempotency key already used")
	}
	return &existing, nil
}

func (s *Service) sendConfirmation(o *Order) {
	var u user.User
	if err := s.db.First(&u, o.UserID).Error; err != nil {
		logrus.WithError(err).WithField("order_id", o.ID).Warn("Failed to load user for confirmation email")
		return
	}
	if err := s.mailer.SendOrderConfirmationEmail(u.Email, u.Name, o.OrderNumber, o.Total); err != nil {
		logrus.WithError(err).WithField("order_id", o.ID).Warn("Failed to send order confirmation email")
	}
}

// generateOrderNumber produces a number like ORD-20260830-00001, unique
// within the day.
func (s *Service) generateOrderNumber(tx *gorm.DB) (string, error) {
	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var count int64
	if err := tx.Model(&Order{}).Unscoped().
		Where("created_at >= ?", dayStart).
		Count(&count).Error; err != nil {
		return "", apperror.Internal(err, "failed to generate order number")
	}

	return fmt.Sprintf("ORD-%s-%05d", now.Format("20060102"), count+1), nil
}

// GetMyOrders returns the caller's orders, newest first.
func (s *Service) GetMyOrders(userID uint, page, limit int) (*OrderListResponse, error) {
	return s.listOrders(s.db.Where("user_id = ?", userID), page, limit)
}

// ListOrders returns all orders, optionally filtered by status. Admin only.
func (s *Service) ListOrders(status OrderStatus, page, limit int) (*OrderListResponse, error) {
	query := s.db.Model(&Order{})
	if status != "" {
		if !ValidStatus(status) {
			return nil, apperror.InvalidArgument("unknown order status: %s", status)
		}
		query = query.Where("status = ?", status)
	}
	return s.listOrders(query, page, limit)
}

func (s *Service) listOrders(query *gorm.DB, page, limit int) (*OrderListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := query.Model(&Order{}).Count(&total).Error; err != nil {
		return nil, apperror.Internal(err, "failed to count orders")
	}

	var orders []Order
	offset := (page - 1) * limit
	err := query.Preload("Items").
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, apperror.Internal(err, "failed to retrieve orders")
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return &OrderListResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}, nil
}

// GetOrder returns a single order. Non-admin callers may only read their
// own orders.
func (s *Service) GetOrder(orderID, actorID uint, actorRole string) (*Order, error) {
	var o Order
	result := s.db.Preload("Items").Preload("StatusHistory").First(&o, orderID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("order not found")
		}
		return nil, apperror.Internal(result.Error, "failed to retrieve order")
	}

	if actorRole != user.RoleAdmin && o.UserID != actorID {
		return nil, apperror.Forbidden("not allowed to view this order")
	}

	return &o, nil
}

// CancelOrder cancels an order. Clients may only cancel their own orders
// while still pending; admins may cancel any order not yet terminal.
func (s *Service) CancelOrder(orderID, actorID uint, actorRole string) (*Order, error) {
	o, err := s.GetOrder(orderID, actorID, actorRole)
	if err != nil {
		return nil, err
	}

	isAdmin := actorRole == user.RoleAdmin
	if !o.CanBeCancelledBy(isAdmin) {
		return nil, apperror.InvalidState("order in status %q cannot be cancelled", o.Status)
	}

	return s.transition(o, OrderStatusCancelled, actorID, "order cancelled")
}

// UpdateStatus moves an order to a new status. Admin only. Unknown status
// values are rejected before anything is persisted; invalid transitions,
// including any change to a delivered or cancelled order, are refused.
func (s *Service) UpdateStatus(orderID uint, newStatus OrderStatus, actorID uint) (*Order, error) {
	if !ValidStatus(newStatus) {
		return nil, apperror.InvalidArgument("unknown order status: %s", newStatus)
	}
	if newStatus == OrderStatusPending {
		return nil, apperror.InvalidArgument("orders cannot be moved back to pending")
	}

	o, err := s.GetOrder(orderID, actorID, user.RoleAdmin)
	if err != nil {
		return nil, err
	}

	if !CanTransition(o.Status, newStatus) {
		return nil, apperror.InvalidState("cannot transition order from %q to %q", o.Status, newStatus)
	}

	return s.transition(o, newStatus, actorID, "")
}

func (s *Service) transition(o *Order, to OrderStatus, actorID uint, note string) (*Order, error) {
	from := o.Status

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Guarding on the status read earlier keeps concurrent
		// transitions from both applying against the same stale state.
		result := tx.Model(&Order{}).
			Where("id = ? AND status = ?", o.ID, from).
			Update("status", to)
		if result.Error != nil {
			return apperror.Internal(result.Error, "failed to update order status")
		}
		if result.RowsAffected == 0 {
			return apperror.InvalidState("order status changed concurrently, retry")
		}
		history := OrderStatusHistory{
			OrderID:    o.ID,
			FromStatus: from,
			ToStatus:   to,
			ChangedBy:  actorID,
			Note:       note,
		}
		if err := tx.Create(&history).Error; err != nil {
			return apperror.Internal(err, "failed to record status history")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.Status = to

	logrus.WithFields(logrus.Fields{
		"order_id": o.ID,
		"from":     from,
		"to":       to,
	}).Info("Order status changed")

	return o, nil
}

// DeleteOrder soft deletes an order. Admin only.
func (s *Service) DeleteOrder(orderID uint) error {
	result := s.db.Delete(&Order{}, orderID)
	if result.Error != nil {
		return apperror.Internal(result.Error, "failed to delete order")
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("order not found")
	}
	return nil
}
