package cart

import (
	"fmt"
	"strings"
	"testing"

	"golang.org/x/sync/errgroup"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/product"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&product.Category{}, &product.Product{}, &CartItem{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	cfg := &config.Config{
		Checkout: config.CheckoutConfig{ShippingFee: 500, TaxAmount: 0},
	}

	return NewService(db, cfg)
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price int64, quantity int) *product.Product {
	t.Helper()

	category := product.Category{Name: name + " category"}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("failed to seed category: %v", err)
	}

	p := product.Product{
		Name:       name,
		Price:      price,
		Quantity:   quantity,
		InStock:    quantity > 0,
		CategoryID: category.ID,
		CreatedBy:  1,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}
	return &p
}

func TestAddItem(t *testing.T) {
	t.Run("accumulates quantity for the same product", func(t *testing.T) {
		svc := newTestService(t)
		p := seedProduct(t, svc.db, "Keyboard", 4999, 10)

		if _, err := svc.AddItem(1, p.ID, 2); err != nil {
			t.Fatalf("first AddItem: %v", err)
		}
		c, err := svc.AddItem(1, p.ID, 3)
		if err != nil {
			t.Fatalf("second AddItem: %v", err)
		}

		if len(c.Items) != 1 {
			t.Fatalf("items = %d, want 1", len(c.Items))
		}
		if c.Items[0].Quantity != 5 {
			t.Errorf("quantity = %d, want 5", c.Items[0].Quantity)
		}
		if c.Totals.SubTotal != 5*4999 {
			t.Errorf("sub_total = %d, want %d", c.Totals.SubTotal, 5*4999)
		}
	})

	t.Run("rejects quantity below one", func(t *testing.T) {
		svc := newTestService(t)
		p := seedProduct(t, svc.db, "Mouse", 1999, 10)

		if _, err := svc.AddItem(1, p.ID, 0); err == nil {
			t.Error("expected error for zero quantity")
		}
		if _, err := svc.AddItem(1, p.ID, -3); err == nil {
			t.Error("expected error for negative quantity")
		}
	})

	t.Run("rejects unknown product", func(t *testing.T) {
		svc := newTestService(t)

		if _, err := svc.AddItem(1, 999, 1); err == nil {
			t.Error("expected error for unknown product")
		}
	})

	t.Run("rejects out of stock product", func(t *testing.T) {
		svc := newTestService(t)
		p := seedProduct(t, svc.db, "Monitor", 19999, 0)

		if _, err := svc.AddItem(1, p.ID, 1); err == nil {
			t.Error("expected error for out-of-stock product")
		}
	})

	t.Run("concurrent adds never lose increments", func(t *testing.T) {
		svc := newTestService(t)
		p := seedProduct(t, svc.db, "Webcam", 8999, 100)

		var g errgroup.Group
		for i := 0; i < 4; i++ {
			g.Go(func() error {
				for j := 0; j < 5; j++ {
					if _, err := svc.AddItem(1, p.ID, 1); err != nil {
						return err
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("concurrent AddItem: %v", err)
		}

		c, err := svc.GetCart(1)
		if err != nil {
			t.Fatalf("GetCart: %v", err)
		}
		if c.Items[0].Quantity != 20 {
			t.Errorf("quantity = %d, want 20", c.Items[0].Quantity)
		}
	})
}

func TestGetCart(t *testing.T) {
	t.Run("missing cart is not found", func(t *testing.T) {
		svc := newTestService(t)

		_, err := svc.GetCart(1)
		if apperror.KindOf(err) != apperror.KindNotFound {
			t.Fatalf("GetCart on missing cart = %v, want not found", err)
		}
	})

	t.Run("totals include shipping once cart has items", func(t *testing.T) {
		svc := newTestService(t)
		p1 := seedProduct(t, svc.db, "Desk", 25000, 5)
		p2 := seedProduct(t, svc.db, "Chair", 15000, 5)

		if _, err := svc.AddItem(1, p1.ID, 1); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
		c, err := svc.AddItem(1, p2.ID, 2)
		if err != nil {
			t.Fatalf("AddItem: %v", err)
		}

		wantSub := int64(25000 + 2*15000)
		if c.Totals.SubTotal != wantSub {
			t.Errorf("sub_total = %d, want %d", c.Totals.SubTotal, wantSub)
		}
		if c.Totals.Shipping != 500 {
			t.Errorf("shipping = %d, want 500", c.Totals.Shipping)
		}
		if c.Totals.Total != wantSub+500 {
			t.Errorf("total = %d, want %d", c.Totals.Total, wantSub+500)
		}
		if c.Totals.ItemCount != 2 || c.Totals.TotalQuantity != 3 {
			t.Errorf("item_count = %d total_quantity = %d, want 2 and 3", c.Totals.ItemCount, c.Totals.TotalQuantity)
		}
	})

	t.Run("carts are isolated per user", func(t *testing.T) {
		svc := newTestService(t)
		p := seedProduct(t, svc.db, "Lamp", 3000, 5)

		if _, err := svc.AddItem(1, p.ID, 1); err != nil {
			t.Fatalf("AddItem: %v", err)
		}

		if _, err := svc.GetCart(2); apperror.KindOf(err) != apperror.KindNotFound {
			t.Errorf("user 2 cart = %v, want not found", err)
		}
	})
}

func TestUpdateItemQuantity(t *testing.T) {
	t.Run("sets quantity", func(t *testing.T) {
		svc := newTestService(t)
		p := seedProduct(t, svc.db, "Shelf", 7000, 5)

		if _, err := svc.AddItem(1, p.ID, 1); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
		c, err := svc.UpdateItemQuantity(1, p.ID, 4)
		if err != nil {
			t.Fatalf("UpdateItemQuantity: %v", err)
		}
		if c.Items[0].Quantity != 4 {
			t.Errorf("quantity = %d, want 4", c.Items[0].Quantity)
		}
	})

	t.Run("rejects quantity below one", func(t *testing.T) {
		svc := newTestService(t)
		p := seedProduct(t, svc.db, "Stand", 2000, 5)

		if _, err := svc.AddItem(1, p.ID, 1); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
		if _, err := svc.UpdateItemQuantity(1, p.ID, 0); err == nil {
			t.Error("expected error for zero quantity")
		}
	})

	t.Run("unknown line is reported", func(t *testing.T) {
		svc := newTestService(t)

		if _, err := svc.UpdateItemQuantity(1, 999, 2); err == nil {
			t.Error("expected error for item not in cart")
		}
	})
}

func TestRemoveItem(t *testing.T) {
	t.Run("removes the line", func(t *testing.T) {
		svc := newTestService(t)
		p1 := seedProduct(t, svc.db, "Cable", 900, 5)
		p2 := seedProduct(t, svc.db, "Adapter", 1900, 5)

		if _, err := svc.AddItem(1, p1.ID, 1); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
		if _, err := svc.AddItem(1, p2.ID, 1); err != nil {
			t.Fatalf("AddItem: %v", err)
		}

		c, err := svc.RemoveItem(1, p1.ID)
		if err != nil {
			t.Fatalf("RemoveItem: %v", err)
		}
		if len(c.Items) != 1 || c.Items[0].ProductID != p2.ID {
			t.Errorf("unexpected items after removal: %+v", c.Items)
		}
	})

	t.Run("removing the last line returns the emptied cart", func(t *testing.T) {
		svc := newTestService(t)
		p := seedProduct(t, svc.db, "Stand", 3900, 5)

		if _, err := svc.AddItem(1, p.ID, 1); err != nil {
			t.Fatalf("AddItem: %v", err)
		}

		c, err := svc.RemoveItem(1, p.ID)
		if err != nil {
			t.Fatalf("RemoveItem: %v", err)
		}
		if len(c.Items) != 0 {
			t.Errorf("items = %d, want 0", len(c.Items))
		}
		if _, err := svc.GetCart(1); apperror.KindOf(err) != apperror.KindNotFound {
			t.Errorf("GetCart after emptying = %v, want not found", err)
		}
	})

	t.Run("missing line in an existing cart is a no-op", func(t *testing.T) {
		svc := newTestService(t)
		p := seedProduct(t, svc.db, "Hub", 2900, 5)

		if _, err := svc.AddItem(1, p.ID, 1); err != nil {
			t.Fatalf("AddItem: %v", err)
		}

		c, err := svc.RemoveItem(1, 999)
		if err != nil {
			t.Fatalf("RemoveItem for missing line: %v", err)
		}
		if len(c.Items) != 1 {
			t.Errorf("items = %d, want 1", len(c.Items))
		}
	})

	t.Run("empty cart is reported", func(t *testing.T) {
		svc := newTestService(t)

		if _, err := svc.RemoveItem(1, 1); err == nil {
			t.Error("expected error removing from a cart that does not exist")
		}
	})
}

func TestClearCart(t *testing.T) {
	t.Run("empties the cart", func(t *testing.T) {
		svc := newTestService(t)
		p := seedProduct(t, svc.db, "Router", 9900, 5)

		if _, err := svc.AddItem(1, p.ID, 2); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
		if err := svc.ClearCart(1); err != nil {
			t.Fatalf("ClearCart: %v", err)
		}

		if _, err := svc.GetCart(1); apperror.KindOf(err) != apperror.KindNotFound {
			t.Errorf("cart after clearing = %v, want not found", err)
		}
	})

	t.Run("empty cart is reported", func(t *testing.T) {
		svc := newTestService(t)

		if err := svc.ClearCart(1); err == nil {
			t.Error("expected error clearing a cart that does not exist")
		}
	})
}

func TestGetAllCarts(t *testing.T) {
	svc := newTestService(t)
	p1 := seedProduct(t, svc.db, "Pen", 200, 50)
	p2 := seedProduct(t, svc.db, "Notebook", 700, 50)

	if _, err := svc.AddItem(1, p1.ID, 2); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := svc.AddItem(2, p1.ID, 1); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := svc.AddItem(2, p2.ID, 3); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	carts, err := svc.GetAllCarts()
	if err != nil {
		t.Fatalf("GetAllCarts: %v", err)
	}
	if len(carts) != 2 {
		t.Fatalf("carts = %d, want 2", len(carts))
	}
	if carts[0].UserID != 1 || len(carts[0].Items) != 1 {
		t.Errorf("cart for user 1: %+v", carts[0])
	}
	if carts[1].UserID != 2 || len(carts[1].Items) != 2 {
		t.Errorf("cart for user 2: %+v", carts[1])
	}
}
