// internal/domain/product/category_service.go
package product

import (
	"errors"

	"gorm.io/gorm"

	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
)

// CategoryService handles category business logic
type CategoryService struct {
	db     *gorm.DB
	config *config.Config
}

// NewCategoryService creates a new category service
func NewCategoryService(db *gorm.DB, cfg *config.Config) *CategoryService {
	return &CategoryService{
		db:     db,
		config: cfg,
	}
}

// CategoryCreateRequest represents category creation data
type CategoryCreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CategoryUpdateRequest represents category update data
type CategoryUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// CategoryWithProductCount represents category with product count
type CategoryWithProductCount struct {
	Category
	ProductCount int64 `json:"product_count"`
}

// GetCategories retrieves all categories ordered by name
func (s *CategoryService) GetCategories() ([]CategoryWithProductCount, error) {
	var categories []Category
	if err := s.db.Order("name ASC").Find(&categories).Error; err != nil {
		return nil, apperror.Internal(err, "failed to retrieve categories")
	}

	result := make([]CategoryWithProductCount, 0, len(categories))
	for _, c := range categories {
		var count int64
		if err := s.db.Model(&Product{}).Where("category_id = ?", c.ID).Count(&count).Error; err != nil {
			return nil, apperror.Internal(err, "failed to count products")
		}
		result = append(result, CategoryWithProductCount{Category: c, ProductCount: count})
	}

	return result, nil
}

// GetCategory retrieves a single category by ID
func (s *CategoryService) GetCategory(id uint) (*Category, error) {
	var category Category
	result := s.db.First(&category, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("category not found")
		}
		return nil, apperror.Internal(result.Error, "failed to retrieve category")
	}
	return &category, nil
}

// CreateCategory creates a new category with a unique name
func (s *CategoryService) CreateCategory(req *CategoryCreateRequest) (*Category, error) {
	var existing Category
	if result := s.db.Where("name = ?", req.Name).First(&existing); result.Error == nil {
		return nil, apperror.Conflict("category %q already exists", req.Name)
	}

	category := Category{
		Name:        req.Name,
		Description: req.Description,
	}

	if err := s.db.Create(&category).Error; err != nil {
		return nil, apperror.Internal(err, "failed to create category")
	}

	return &category, nil
}

// UpdateCategory updates an existing category
func (s *CategoryService) UpdateCategory(id uint, req *CategoryUpdateRequest) (*Category, error) {
	category, err := s.GetCategory(id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		var existing Category
		if result := s.db.Where("name = ? AND id <> ?", *req.Name, id).First(&existing); result.Error == nil {
			return nil, apperror.Conflict("category %q already exists", *req.Name)
		}
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}

	if len(updates) > 0 {
		if err := s.db.Model(category).Updates(updates).Error; err != nil {
			return nil, apperror.Internal(err, "failed to update category")
		}
	}

	return category, nil
}

// DeleteCategory deletes a category. Deletion is refused while products
// still reference the category.
func (s *CategoryService) DeleteCategory(id uint) error {
	category, err := s.GetCategory(id)
	if err != nil {
		return err
	}

	var count int64
	if err := s.db.Model(&Product{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
		return apperror.Internal(err, "failed to count products")
	}
	if count > 0 {
		return apperror.InvalidState("category has %d products and cannot be deleted", count)
	}

	if err := s.db.Delete(category).Error; err != nil {
		return apperror.Internal(err, "failed to delete category")
	}
	return nil
}
