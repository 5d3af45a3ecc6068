// internal/domain/cart/service.go
package cart

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/product"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
)

// Service handles cart business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new cart service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// AddItemRequest represents an add-to-cart request
type AddItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required"`
}

// UpdateItemRequest represents a quantity update request
type UpdateItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// AddItem adds a product to the user's cart. Adding a product already in
// the cart increments its quantity in a single atomic upsert, so
// concurrent adds never lose updates.
func (s *Service) AddItem(userID, productID uint, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, apperror.InvalidArgument("quantity must be at least 1")
	}

	var prod product.Product
	if result := s.db.First(&prod, productID); result.Error != nil {
		return nil, apperror.NotFound("product not found")
	}
	if !prod.IsAvailable() {
		return nil, apperror.InvalidState("product %q is out of stock", prod.Name)
	}

	item := CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&item).Error
	if err != nil {
		return nil, apperror.Internal(err, "failed to add item to cart")
	}

	return s.GetCart(userID)
}

// GetCart returns the user's cart with product details and totals.
// A user with no items has no cart, reported as NotFound.
func (s *Service) GetCart(userID uint) (*Cart, error) {
	c, err := s.view(userID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, apperror.NotFound("cart not found")
	}
	return c, nil
}

// view assembles the cart without the existence check. Mutating
// operations use it so removing the last line can still return the
// emptied cart.
func (s *Service) view(userID uint) (*Cart, error) {
	items, err := s.loadItems(userID)
	if err != nil {
		return nil, err
	}

	return &Cart{
		UserID: userID,
		Items:  items,
		Totals: s.calculateTotals(items),
	}, nil
}

// UpdateItemQuantity sets the quantity of a cart line. Quantities below 1
// are rejected; removal goes through RemoveItem.
func (s *Service) UpdateItemQuantity(userID, productID uint, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, apperror.InvalidArgument("quantity must be at least 1")
	}

	result := s.db.Model(&CartItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Update("quantity", quantity)
	if result.Error != nil {
		return nil, apperror.Internal(result.Error, "failed to update cart item")
	}
	if result.RowsAffected == 0 {
		return nil, apperror.NotFound("item not in cart")
	}

	return s.GetCart(userID)
}

// RemoveItem removes one product line. Removing a product that is not in
// the cart is a no-op as long as the cart itself exists.
func (s *Service) RemoveItem(userID, productID uint) (*Cart, error) {
	var count int64
	if err := s.db.Model(&CartItem{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, apperror.Internal(err, "failed to load cart")
	}
	if count == 0 {
		return nil, apperror.NotFound("cart not found")
	}

	err := s.db.Where("user_id = ? AND product_id = ?", userID, productID).Delete(&CartItem{}).Error
	if err != nil {
		return nil, apperror.Internal(err, "failed to remove cart item")
	}

	return s.view(userID)
}

// ClearCart removes every item from the user's cart.
func (s *Service) ClearCart(userID uint) error {
	result := s.db.Where("user_id = ?", userID).Delete(&CartItem{})
	if result.Error != nil {
		return apperror.Internal(result.Error, "failed to clear cart")
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("cart not found")
	}
	return nil
}

// GetAllCarts returns every non-empty cart, one entry per user. Admin only.
func (s *Service) GetAllCarts() ([]Cart, error) {
	var items []CartItem
	err := s.db.Preload("Product").Preload("Product.Category").
		Order("user_id ASC, product_id ASC").Find(&items).Error
	if err != nil {
		return nil, apperror.Internal(err, "failed to load carts")
	}

	byUser := make(map[uint][]CartItem)
	var order []uint
	for _, item := range items {
		if _, seen := byUser[item.UserID]; !seen {
			order = append(order, item.UserID)
		}
		byUser[item.UserID] = append(byUser[item.UserID], item)
	}

	carts := make([]Cart, 0, len(order))
	for _, uid := range order {
		userItems := byUser[uid]
		carts = append(carts, Cart{
			UserID: uid,
			Items:  userItems,
			Totals: s.calculateTotals(userItems),
		})
	}

	return carts, nil
}

// DeleteUserCart removes another user's cart. Admin only.
func (s *Service) DeleteUserCart(userID uint) error {
	return s.ClearCart(userID)
}

func (s *Service) loadItems(userID uint) ([]CartItem, error) {
	var items []CartItem
	err := s.db.Preload("Product").Preload("Product.Category").
		Where("user_id = ?", userID).
		Order("product_id ASC").
		Find(&items).Error
	if err != nil {
		return nil, apperror.Internal(err, "failed to load cart items")
	}
	return items, nil
}

func (s *Service) calculateTotals(items []CartItem) CartTotals {
	totals := CartTotals{}
	for i := range items {
		totals.ItemCount++
		totals.TotalQuantity += items[i].Quantity
		totals.SubTotal += items[i].LineTotal()
	}

	if totals.ItemCount > 0 {
		totals.Shipping = s.config.Checkout.ShippingFee
		totals.Tax = s.config.Checkout.TaxAmount
	}
	totals.Total = totals.SubTotal + totals.Shipping + totals.Tax

	return totals
}
