// internal/domain/analytics/service.go
package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/domain/user"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
)

const (
	statsCacheKey = "dashboard:stats"
	statsCacheTTL = time.Minute
)

// Service aggregates order, user and product data for the admin dashboard.
type Service struct {
	db     *gorm.DB
	redis  *redis.Client
	config *config.Config
}

// NewService creates a new analytics service. redisClient may be nil, in
// which case stats are computed on every request.
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		redis:  redisClient,
		config: cfg,
	}
}

// StatusCount is the number of orders in one status.
type StatusCount struct {
	Status order.OrderStatus `json:"status"`
	Count  int64             `json:"count"`
}

// MonthlyRevenue is revenue bucketed by calendar month.
type MonthlyRevenue struct {
	Year    int   `json:"year"`
	Month   int   `json:"month"`
	Revenue int64 `json:"revenue"`
	Orders  int64 `json:"orders"`
}

// ProductSales ranks a product by sold units and revenue.
type ProductSales struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	Units     int64  `json:"units"`
	Revenue   int64  `json:"revenue"`
}

// RecentOrder is one row of the dashboard's latest-orders list, with the
// customer resolved for display.
type RecentOrder struct {
	ID            uint              `json:"id"`
	OrderNumber   string            `json:"order_number"`
	Status        order.OrderStatus `json:"status"`
	Total         int64             `json:"total"`
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	CreatedAt     time.Time         `json:"created_at"`
}

// DashboardStats represents the admin dashboard aggregate. Amounts are
// in cents. Cancelled orders are excluded from revenue figures.
type DashboardStats struct {
	TotalRevenue          int64            `json:"total_revenue"`
	TotalOrders           int64            `json:"total_orders"`
	TotalCustomers        int64            `json:"total_customers"`
	AverageOrderValue     int64            `json:"average_order_value"`
	OrdersByStatus        []StatusCount    `json:"orders_by_status"`
	RevenueByMonth        []MonthlyRevenue `json:"revenue_by_month"`
	TopProductsByQuantity []ProductSales   `json:"top_products_by_quantity"`
	TopProductsByRevenue  []ProductSales   `json:"top_products_by_revenue"`
	RecentOrders          []RecentOrder    `json:"recent_orders"`
	GeneratedAt           time.Time        `json:"generated_at"`
}

// GetDashboardStats returns the dashboard aggregate, served from the
// Redis cache when a fresh copy exists.
func (s *Service) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	if cached := s.readCache(ctx); cached != nil {
		return cached, nil
	}

	stats, err := s.computeStats()
	if err != nil {
		return nil, err
	}

	s.writeCache(ctx, stats)
	return stats, nil
}

func (s *Service) computeStats() (*DashboardStats, error) {
	stats := &DashboardStats{GeneratedAt: time.Now().UTC()}

	settled := s.db.Model(&order.Order{}).Where("status <> ?", order.OrderStatusCancelled)

	if err := settled.Session(&gorm.Session{}).
		Select("COALESCE(SUM(total), 0)").Scan(&stats.TotalRevenue).Error; err != nil {
		return nil, apperror.Internal(err, "failed to sum revenue")
	}

	if err := s.db.Model(&order.Order{}).Count(&stats.TotalOrders).Error; err != nil {
		return nil, apperror.Internal(err, "failed to count orders")
	}

	if err := s.db.Model(&user.User{}).
		Where("role <> ?", user.RoleAdmin).
		Count(&stats.TotalCustomers).Error; err != nil {
		return nil, apperror.Internal(err, "failed to count customers")
	}

	var settledCount int64
	if err := settled.Session(&gorm.Session{}).Count(&settledCount).Error; err != nil {
		return nil, apperror.Internal(err, "failed to count settled orders")
	}
	if settledCount > 0 {
		stats.AverageOrderValue = stats.TotalRevenue / settledCount
	}

	if err := s.db.Model(&order.Order{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Order("status").
		Scan(&stats.OrdersByStatus).Error; err != nil {
		return nil, apperror.Internal(err, "failed to group orders by status")
	}

	revenueByMonth, err := s.revenueByMonth()
	if err != nil {
		return nil, err
	}
	stats.RevenueByMonth = revenueByMonth

	if err := s.topProducts("units DESC, revenue DESC", &stats.TopProductsByQuantity); err != nil {
		return nil, err
	}
	if err := s.topProducts("revenue DESC, units DESC", &stats.TopProductsByRevenue); err != nil {
		return nil, err
	}

	if err := s.db.Model(&order.Order{}).
		Select("orders.id, orders.order_number, orders.status, orders.total, orders.created_at, "+
			"users.name AS customer_name, users.email AS customer_email").
		Joins("JOIN users ON users.id = orders.user_id").
		Order("orders.created_at DESC, orders.id DESC").
		Limit(10).
		Scan(&stats.RecentOrders).Error; err != nil {
		return nil, apperror.Internal(err, "failed to load recent orders")
	}

	return stats, nil
}

// revenueByMonth buckets the last 12 months of settled orders. Bucketing
// happens in Go so the query stays portable across SQL dialects.
func (s *Service) revenueByMonth() ([]MonthlyRevenue, error) {
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)

	type row struct {
		CreatedAt time.Time
		Total     int64
	}
	var rows []row
	err := s.db.Model(&order.Order{}).
		Select("created_at, total").
		Where("status <> ? AND created_at >= ?", order.OrderStatusCancelled, start).
		Scan(&rows).Error
	if err != nil {
		return nil, apperror.Internal(err, "failed to load monthly revenue")
	}

	buckets := make([]MonthlyRevenue, 12)
	index := make(map[[2]int]*MonthlyRevenue, 12)
	for i := 0; i < 12; i++ {
		m := start.AddDate(0, i, 0)
		buckets[i] = MonthlyRevenue{Year: m.Year(), Month: int(m.Month())}
		index[[2]int{m.Year(), int(m.Month())}] = &buckets[i]
	}

	for _, r := range rows {
		t := r.CreatedAt.UTC()
		if b, ok := index[[2]int{t.Year(), int(t.Month())}]; ok {
			b.Revenue += r.Total
			b.Orders++
		}
	}

	return buckets, nil
}

func (s *Service) topProducts(orderBy string, dest *[]ProductSales) error {
	err := s.db.Model(&order.OrderItem{}).
		Select("order_items.product_id, order_items.name, SUM(order_items.quantity) as units, SUM(order_items.total_price) as revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status <> ? AND orders.deleted_at IS NULL", order.OrderStatusCancelled).
		Group("order_items.product_id, order_items.name").
		Order(orderBy).
		Limit(5).
		Scan(dest).Error
	if err != nil {
		return apperror.Internal(err, "failed to rank products")
	}
	return nil
}

func (s *Service) readCache(ctx context.Context) *DashboardStats {
	if s.redis == nil {
		return nil
	}
	data, err := s.redis.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		return nil
	}
	var stats DashboardStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil
	}
	return &stats
}

func (s *Service) writeCache(ctx context.Context, stats *DashboardStats) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, statsCacheKey, data, statsCacheTTL).Err(); err != nil {
		logrus.WithError(err).Warn("Failed to cache dashboard stats")
	}
}
