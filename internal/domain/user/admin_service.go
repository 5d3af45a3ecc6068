// internal/domain/user/admin_service.go
package user

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
)

// AdminService handles admin user management operations
type AdminService struct {
	db     *gorm.DB
	config *config.Config
}

// NewAdminService creates a new admin user service
func NewAdminService(db *gorm.DB, cfg *config.Config) *AdminService {
	return &AdminService{
		db:     db,
		config: cfg,
	}
}

// UserListRequest represents user list query parameters
type UserListRequest struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=20"`
	Search    string `form:"search"`
	Role      string `form:"role"`
	SortBy    string `form:"sort_by,default=created_at"`
	SortOrder string `form:"sort_order,default=desc"`
}

// UserWithStats represents a user with order statistics
type UserWithStats struct {
	User
	OrderCount int64 `json:"order_count"`
	TotalSpent int64 `json:"total_spent"` // In cents
}

// UserListResponse represents a user list with pagination
type UserListResponse struct {
	Users      []UserWithStats `json:"users"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}

// ListUsers returns users with order statistics, filtered and paginated.
func (s *AdminService) ListUsers(req *UserListRequest) (*UserListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&User{})

	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", search, search)
	}
	if req.Role != "" {
		if !ValidRole(req.Role) {
			return nil, apperror.InvalidArgument("invalid role: %s", req.Role)
		}
		query = query.Where("role = ?", req.Role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperror.Internal(err, "failed to count users")
	}

	sortBy := req.SortBy
	switch sortBy {
	case "name", "email", "created_at", "last_login_at":
	default:
		sortBy = "created_at"
	}
	sortOrder := req.SortOrder
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	var users []User
	offset := (req.Page - 1) * req.Limit
	err := query.Order(fmt.Sprintf("%s %s", sortBy, sortOrder)).
		Offset(offset).Limit(req.Limit).
		Find(&users).Error
	if err != nil {
		return nil, apperror.Internal(err, "failed to list users")
	}

	withStats := make([]UserWithStats, 0, len(users))
	for _, u := range users {
		u.Password = ""
		stats := UserWithStats{User: u}
		row := s.db.Table("orders").
			Select("COUNT(*) as order_count, COALESCE(SUM(total), 0) as total_spent").
			Where("user_id = ? AND status <> ? AND deleted_at IS NULL", u.ID, "cancelled").
			Row()
		if err := row.Scan(&stats.OrderCount, &stats.TotalSpent); err != nil {
			return nil, apperror.Internal(err, "failed to load user stats")
		}
		withStats = append(withStats, stats)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))

	return &UserListResponse{
		Users:      withStats,
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: totalPages,
	}, nil
}

// UpdateUserRole changes a user's role. Admins cannot demote themselves.
func (s *AdminService) UpdateUserRole(userID, actorID uint, role string) (*User, error) {
	if !ValidRole(role) {
		return nil, apperror.InvalidArgument("invalid role: %s", role)
	}
	if userID == actorID {
		return nil, apperror.InvalidState("cannot change your own role")
	}

	var u User
	result := s.db.First(&u, userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, apperror.Internal(result.Error, "failed to find user")
	}

	if err := s.db.Model(&u).Update("role", role).Error; err != nil {
		return nil, apperror.Internal(err, "failed to update role")
	}

	u.Password = ""
	return &u, nil
}

// SetUserActive toggles the is_active flag on a user account.
func (s *AdminService) SetUserActive(userID, actorID uint, active bool) error {
	if userID == actorID {
		return apperror.InvalidState("cannot deactivate your own account")
	}

	result := s.db.Model(&User{}).Where("id = ?", userID).Update("is_active", active)
	if result.Error != nil {
		return apperror.Internal(result.Error, "failed to update user")
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("user not found")
	}
	return nil
}
