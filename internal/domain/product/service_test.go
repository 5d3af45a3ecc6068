package product

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/user"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&Category{}, &Product{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func seedCategory(t *testing.T, db *gorm.DB, name string) *Category {
	t.Helper()
	c := Category{Name: name}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("failed to seed category: %v", err)
	}
	return &c
}

func ptr[T any](v T) *T { return &v }

func TestCreateProduct(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, &config.Config{})
	category := seedCategory(t, db, "Electronics")

	t.Run("creates with stock flag derived from quantity", func(t *testing.T) {
		p, err := svc.CreateProduct(&ProductCreateRequest{
			Name:       "Keyboard",
			Price:      4999,
			Quantity:   10,
			CategoryID: category.ID,
		}, 7)
		if err != nil {
			t.Fatalf("CreateProduct: %v", err)
		}
		if !p.InStock {
			t.Error("expected product with quantity to be in stock")
		}
		if p.CreatedBy != 7 {
			t.Errorf("created_by = %d, want 7", p.CreatedBy)
		}
		if p.Category == nil || p.Category.Name != "Electronics" {
			t.Errorf("category not loaded: %+v", p.Category)
		}
	})

	t.Run("zero quantity product is out of stock", func(t *testing.T) {
		p, err := svc.CreateProduct(&ProductCreateRequest{
			Name:       "Rare item",
			Price:      100,
			Quantity:   0,
			CategoryID: category.ID,
		}, 7)
		if err != nil {
			t.Fatalf("CreateProduct: %v", err)
		}
		if p.InStock {
			t.Error("expected zero-quantity product to be out of stock")
		}
	})

	t.Run("rejects non-positive price", func(t *testing.T) {
		_, err := svc.CreateProduct(&ProductCreateRequest{
			Name: "Freebie", Price: 0, CategoryID: category.ID,
		}, 7)
		if apperror.KindOf(err) != apperror.KindInvalidArgument {
			t.Errorf("kind = %v, want invalid argument", apperror.KindOf(err))
		}
	})

	t.Run("rejects missing category", func(t *testing.T) {
		_, err := svc.CreateProduct(&ProductCreateRequest{
			Name: "Orphan", Price: 100, CategoryID: 999,
		}, 7)
		if apperror.KindOf(err) != apperror.KindInvalidArgument {
			t.Errorf("kind = %v, want invalid argument", apperror.KindOf(err))
		}
	})
}

func TestUpdateProduct(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, &config.Config{})
	category := seedCategory(t, db, "Office")

	created, err := svc.CreateProduct(&ProductCreateRequest{
		Name: "Desk", Price: 25000, Quantity: 3, CategoryID: category.ID,
	}, 7)
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	t.Run("owner vendor updates fields", func(t *testing.T) {
		p, err := svc.UpdateProduct(created.ID, &ProductUpdateRequest{
			Price:    ptr[int64](27000),
			Quantity: ptr(0),
		}, 7, user.RoleVendor)
		if err != nil {
			t.Fatalf("UpdateProduct: %v", err)
		}
		if p.Price != 27000 {
			t.Errorf("price = %d, want 27000", p.Price)
		}
		if p.InStock {
			t.Error("expected in_stock false after quantity set to 0")
		}
	})

	t.Run("other vendor is refused", func(t *testing.T) {
		_, err := svc.UpdateProduct(created.ID, &ProductUpdateRequest{
			Name: ptr("Hijacked"),
		}, 8, user.RoleVendor)
		if apperror.KindOf(err) != apperror.KindForbidden {
			t.Errorf("kind = %v, want forbidden", apperror.KindOf(err))
		}
	})

	t.Run("admin may update any product", func(t *testing.T) {
		p, err := svc.UpdateProduct(created.ID, &ProductUpdateRequest{
			Name: ptr("Standing Desk"),
		}, 99, user.RoleAdmin)
		if err != nil {
			t.Fatalf("admin UpdateProduct: %v", err)
		}
		if p.Name != "Standing Desk" {
			t.Errorf("name = %q", p.Name)
		}
	})

	t.Run("missing product", func(t *testing.T) {
		_, err := svc.UpdateProduct(999, &ProductUpdateRequest{}, 99, user.RoleAdmin)
		if apperror.KindOf(err) != apperror.KindNotFound {
			t.Errorf("kind = %v, want not found", apperror.KindOf(err))
		}
	})
}

func TestDeleteProduct(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, &config.Config{})
	category := seedCategory(t, db, "Garden")

	created, err := svc.CreateProduct(&ProductCreateRequest{
		Name: "Hose", Price: 1500, Quantity: 5, CategoryID: category.ID,
	}, 7)
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	t.Run("other vendor is refused", func(t *testing.T) {
		err := svc.DeleteProduct(created.ID, 8, user.RoleVendor)
		if apperror.KindOf(err) != apperror.KindForbidden {
			t.Errorf("kind = %v, want forbidden", apperror.KindOf(err))
		}
	})

	t.Run("owner deletes and product disappears", func(t *testing.T) {
		if err := svc.DeleteProduct(created.ID, 7, user.RoleVendor); err != nil {
			t.Fatalf("DeleteProduct: %v", err)
		}
		_, err := svc.GetProduct(created.ID)
		if apperror.KindOf(err) != apperror.KindNotFound {
			t.Errorf("kind = %v, want not found after delete", apperror.KindOf(err))
		}
	})
}

func TestGetProducts(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, &config.Config{})
	electronics := seedCategory(t, db, "Electronics")
	furniture := seedCategory(t, db, "Furniture")

	seed := []struct {
		name     string
		price    int64
		quantity int
		category uint
	}{
		{"Monitor", 19999, 4, electronics.ID},
		{"Mouse", 1999, 0, electronics.ID},
		{"Chair", 15000, 2, furniture.ID},
	}
	for _, s := range seed {
		if _, err := svc.CreateProduct(&ProductCreateRequest{
			Name: s.name, Price: s.price, Quantity: s.quantity, CategoryID: s.category,
		}, 1); err != nil {
			t.Fatalf("seed %s: %v", s.name, err)
		}
	}

	t.Run("filters by category", func(t *testing.T) {
		resp, err := svc.GetProducts(&ProductListRequest{CategoryID: electronics.ID})
		if err != nil {
			t.Fatalf("GetProducts: %v", err)
		}
		if resp.Pagination.Total != 2 {
			t.Errorf("total = %d, want 2", resp.Pagination.Total)
		}
	})

	t.Run("filters by stock", func(t *testing.T) {
		inStock := true
		resp, err := svc.GetProducts(&ProductListRequest{InStock: &inStock})
		if err != nil {
			t.Fatalf("GetProducts: %v", err)
		}
		if resp.Pagination.Total != 2 {
			t.Errorf("total = %d, want 2", resp.Pagination.Total)
		}
	})

	t.Run("search is case insensitive", func(t *testing.T) {
		resp, err := svc.GetProducts(&ProductListRequest{Search: "moni"})
		if err != nil {
			t.Fatalf("GetProducts: %v", err)
		}
		if resp.Pagination.Total != 1 || resp.Products[0].Name != "Monitor" {
			t.Errorf("unexpected search result: %+v", resp.Products)
		}
	})

	t.Run("price range", func(t *testing.T) {
		resp, err := svc.GetProducts(&ProductListRequest{MinPrice: 10000, MaxPrice: 16000})
		if err != nil {
			t.Fatalf("GetProducts: %v", err)
		}
		if resp.Pagination.Total != 1 || resp.Products[0].Name != "Chair" {
			t.Errorf("unexpected price filter result: %+v", resp.Products)
		}
	})

	t.Run("sorts by price ascending", func(t *testing.T) {
		resp, err := svc.GetProducts(&ProductListRequest{SortBy: "price", SortOrder: "asc"})
		if err != nil {
			t.Fatalf("GetProducts: %v", err)
		}
		if resp.Products[0].Name != "Mouse" {
			t.Errorf("first product = %q, want Mouse", resp.Products[0].Name)
		}
	})

	t.Run("unknown sort field falls back to created_at", func(t *testing.T) {
		if _, err := svc.GetProducts(&ProductListRequest{SortBy: "evil; DROP TABLE"}); err != nil {
			t.Fatalf("GetProducts with bad sort: %v", err)
		}
	})
}
