package product

import (
	"testing"

	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/user"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
)

func TestCreateCategory(t *testing.T) {
	db := newTestDB(t)
	svc := NewCategoryService(db, &config.Config{})

	if _, err := svc.CreateCategory(&CategoryCreateRequest{Name: "Books"}); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	_, err := svc.CreateCategory(&CategoryCreateRequest{Name: "Books"})
	if apperror.KindOf(err) != apperror.KindConflict {
		t.Errorf("kind = %v, want conflict for duplicate name", apperror.KindOf(err))
	}
}

func TestUpdateCategory(t *testing.T) {
	db := newTestDB(t)
	svc := NewCategoryService(db, &config.Config{})

	books, _ := svc.CreateCategory(&CategoryCreateRequest{Name: "Books"})
	if _, err := svc.CreateCategory(&CategoryCreateRequest{Name: "Music"}); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	t.Run("renames", func(t *testing.T) {
		name := "Printed Books"
		updated, err := svc.UpdateCategory(books.ID, &CategoryUpdateRequest{Name: &name})
		if err != nil {
			t.Fatalf("UpdateCategory: %v", err)
		}
		if updated.Name != "Printed Books" {
			t.Errorf("name = %q", updated.Name)
		}
	})

	t.Run("rename onto an existing name is refused", func(t *testing.T) {
		name := "Music"
		_, err := svc.UpdateCategory(books.ID, &CategoryUpdateRequest{Name: &name})
		if apperror.KindOf(err) != apperror.KindConflict {
			t.Errorf("kind = %v, want conflict", apperror.KindOf(err))
		}
	})

	t.Run("missing category", func(t *testing.T) {
		_, err := svc.UpdateCategory(999, &CategoryUpdateRequest{})
		if apperror.KindOf(err) != apperror.KindNotFound {
			t.Errorf("kind = %v, want not found", apperror.KindOf(err))
		}
	})
}

func TestDeleteCategory(t *testing.T) {
	db := newTestDB(t)
	categorySvc := NewCategoryService(db, &config.Config{})
	productSvc := NewService(db, &config.Config{})

	category, _ := categorySvc.CreateCategory(&CategoryCreateRequest{Name: "Tools"})
	created, err := productSvc.CreateProduct(&ProductCreateRequest{
		Name: "Hammer", Price: 1200, Quantity: 3, CategoryID: category.ID,
	}, 1)
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	t.Run("refused while products reference it", func(t *testing.T) {
		err := categorySvc.DeleteCategory(category.ID)
		if apperror.KindOf(err) != apperror.KindInvalidState {
			t.Errorf("kind = %v, want invalid state", apperror.KindOf(err))
		}
	})

	t.Run("allowed once empty", func(t *testing.T) {
		if err := productSvc.DeleteProduct(created.ID, 1, user.RoleAdmin); err != nil {
			t.Fatalf("DeleteProduct: %v", err)
		}
		if err := categorySvc.DeleteCategory(category.ID); err != nil {
			t.Fatalf("DeleteCategory: %v", err)
		}
	})
}

func TestGetCategories(t *testing.T) {
	db := newTestDB(t)
	categorySvc := NewCategoryService(db, &config.Config{})
	productSvc := NewService(db, &config.Config{})

	zebra, _ := categorySvc.CreateCategory(&CategoryCreateRequest{Name: "Zebra"})
	apple, _ := categorySvc.CreateCategory(&CategoryCreateRequest{Name: "Apple"})
	_ = zebra

	if _, err := productSvc.CreateProduct(&ProductCreateRequest{
		Name: "Pie", Price: 500, Quantity: 1, CategoryID: apple.ID,
	}, 1); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	categories, err := categorySvc.GetCategories()
	if err != nil {
		t.Fatalf("GetCategories: %v", err)
	}
	if len(categories) != 2 {
		t.Fatalf("categories = %d, want 2", len(categories))
	}
	if categories[0].Name != "Apple" {
		t.Errorf("first category = %q, want Apple (name order)", categories[0].Name)
	}
	if categories[0].ProductCount != 1 {
		t.Errorf("product_count = %d, want 1", categories[0].ProductCount)
	}
	if categories[1].ProductCount != 0 {
		t.Errorf("empty category product_count = %d, want 0", categories[1].ProductCount)
	}
}
