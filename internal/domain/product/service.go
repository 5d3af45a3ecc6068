// internal/domain/product/service.go
package product

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/user"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
)

// Service handles product business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new product service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Page       int    `form:"page,default=1"`
	Limit      int    `form:"limit,default=20"`
	CategoryID uint   `form:"category_id"`
	Search     string `form:"search"`
	SortBy     string `form:"sort_by,default=created_at"`
	SortOrder  string `form:"sort_order,default=desc"`
	MinPrice   int64  `form:"min_price"`
	MaxPrice   int64  `form:"max_price"`
	InStock    *bool  `form:"in_stock"`
}

// ProductCreateRequest represents product creation data
type ProductCreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Price       int64  `json:"price" binding:"required"`
	Quantity    int    `json:"quantity"`
	Image       string `json:"image"`
	CategoryID  uint   `json:"category_id" binding:"required"`
}

// ProductUpdateRequest represents product update data
type ProductUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
	Quantity    *int    `json:"quantity"`
	Image       *string `json:"image"`
	CategoryID  *uint   `json:"category_id"`
}

// ProductResponse represents product response with pagination
type ProductResponse struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
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

// GetProducts retrieves products with filtering and pagination
func (s *Service) GetProducts(req *ProductListRequest) (*ProductResponse, error) {
	var products []Product
	var total int64

	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&Product{}).Preload("Category")

	if req.CategoryID > 0 {
		query = query.Where("category_id = ?", req.CategoryID)
	}

	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", search, search)
	}

	if req.MinPrice > 0 {
		query = query.Where("price >= ?", req.MinPrice)
	}

	if req.MaxPrice > 0 {
		query = query.Where("price <= ?", req.MaxPrice)
	}

	if req.InStock != nil {
		query = query.Where("in_stock = ?", *req.InStock)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, apperror.Internal(err, "failed to count products")
	}

	query = query.Order(s.buildOrderClause(req.SortBy, req.SortOrder))

	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Find(&products).Error; err != nil {
		return nil, apperror.Internal(err, "failed to retrieve products")
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	pagination := Pagination{
		Page:       req.Page,
		Limit:      req.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    req.Page < totalPages,
		HasPrev:    req.Page > 1,
	}

	return &ProductResponse{
		Products:   products,
		Pagination: pagination,
	}, nil
}

// GetProduct retrieves a single product by ID
func (s *Service) GetProduct(id uint) (*Product, error) {
	var product Product
	result := s.db.Preload("Category").Where("id = ?", id).First(&product)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("product not found")
		}
		return nil, apperror.Internal(result.Error, "failed to retrieve product")
	}

	return &product, nil
}

// CreateProduct creates a new product owned by the acting user
func (s *Service) CreateProduct(req *ProductCreateRequest, actorID uint) (*Product, error) {
	if req.Price <= 0 {
		return nil, apperror.InvalidArgument("price must be greater than zero")
	}
	if req.Quantity < 0 {
		return nil, apperror.InvalidArgument("quantity must not be negative")
	}

	var category Category
	if result := s.db.First(&category, req.CategoryID); result.Error != nil {
		return nil, apperror.InvalidArgument("category %d does not exist", req.CategoryID)
	}

	product := Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		InStock:     req.Quantity > 0,
		Image:       req.Image,
		CategoryID:  req.CategoryID,
		CreatedBy:   actorID,
	}

	if err := s.db.Create(&product).Error; err != nil {
		return nil, apperror.Internal(err, "failed to create product")
	}

	s.db.Preload("Category").First(&product, product.ID)

	return &product, nil
}

// UpdateProduct updates an existing product. Vendors may only update
// products they created; admins may update any product.
func (s *Service) UpdateProduct(id uint, req *ProductUpdateRequest, actorID uint, actorRole string) (*Product, error) {
	var product Product
	result := s.db.Where("id = ?", id).First(&product)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("product not found")
		}
		return nil, apperror.Internal(result.Error, "failed to find product")
	}

	if err := s.authorizeMutation(&product, actorID, actorRole); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			return nil, apperror.InvalidArgument("price must be greater than zero")
		}
		updates["price"] = *req.Price
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return nil, apperror.InvalidArgument("quantity must not be negative")
		}
		updates["quantity"] = *req.Quantity
		updates["in_stock"] = *req.Quantity > 0
	}
	if req.Image != nil {
		updates["image"] = *req.Image
	}
	if req.CategoryID != nil {
		var category Category
		if result := s.db.First(&category, *req.CategoryID); result.Error != nil {
			return nil, apperror.InvalidArgument("category %d does not exist", *req.CategoryID)
		}
		updates["category_id"] = *req.CategoryID
	}

	if len(updates) > 0 {
		if err := s.db.Model(&product).Updates(updates).Error; err != nil {
			return nil, apperror.Internal(err, "failed to update product")
		}
	}

	s.db.Preload("Category").First(&product, product.ID)

	return &product, nil
}

// DeleteProduct soft deletes a product, subject to the same ownership rule
// as updates.
func (s *Service) DeleteProduct(id uint, actorID uint, actorRole string) error {
	var product Product
	result := s.db.Where("id = ?", id).First(&product)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return apperror.NotFound("product not found")
		}
		return apperror.Internal(result.Error, "failed to find product")
	}

	if err := s.authorizeMutation(&product, actorID, actorRole); err != nil {
		return err
	}

	if err := s.db.Delete(&product).Error; err != nil {
		return apperror.Internal(err, "failed to delete product")
	}
	return nil
}

func (s *Service) authorizeMutation(p *Product, actorID uint, actorRole string) error {
	if actorRole == user.RoleAdmin {
		return nil
	}
	if actorRole == user.RoleVendor && p.CreatedBy == actorID {
		return nil
	}
	return apperror.Forbidden("not allowed to modify this product")
}

// buildOrderClause builds ORDER BY clause for sorting
func (s *Service) buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"name":       true,
		"price":      true,
		"created_at": true,
		"updated_at": true,
		"quantity":   true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s", sortBy, sortOrder)
}
