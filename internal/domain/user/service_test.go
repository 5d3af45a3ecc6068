package user

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/pkg/apperror"
)

type fakeMailer struct {
	welcomes    []string
	resetTokens []string
	failWelcome bool
	failReset   bool
}

func (f *fakeMailer) SendWelcomeEmail(to, name string) error {
	if f.failWelcome {
		return fmt.Errorf("smtp unavailable")
	}
	f.welcomes = append(f.welcomes, to)
	return nil
}

func (f *fakeMailer) SendPasswordResetEmail(to, name, token string) error {
	if f.failReset {
		return fmt.Errorf("smtp unavailable")
	}
	f.resetTokens = append(f.resetTokens, token)
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeMailer) {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	cfg := &config.Config{
		App: config.AppConfig{Name: "storefront-test"},
		JWT: config.JWTConfig{
			Secret:             "0123456789abcdef0123456789abcdef",
			AccessTokenExpiry:  time.Hour,
			RefreshTokenExpiry: 24 * time.Hour,
		},
		Security: config.SecurityConfig{
			BcryptCost:          bcrypt.MinCost,
			PasswordResetExpiry: 15 * time.Minute,
		},
	}

	svc := NewService(db, cfg)
	mailer := &fakeMailer{}
	svc.SetMailer(mailer)
	return svc, mailer
}

func registerRequest(email, role string) *RegisterRequest {
	return &RegisterRequest{
		Name:            "Test User",
		Email:           email,
		Password:        "OrangeTiger42",
		ConfirmPassword: "OrangeTiger42",
		Role:            role,
	}
}

func TestRegister(t *testing.T) {
	t.Run("defaults to client role and sends welcome email", func(t *testing.T) {
		svc, mailer := newTestService(t)

		resp, err := svc.Register(registerRequest("Alice@Example.com", ""))
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if resp.User.Role != RoleClient {
			t.Errorf("role = %q, want client", resp.User.Role)
		}
		if resp.User.Email != "alice@example.com" {
			t.Errorf("email = %q, want lowercased", resp.User.Email)
		}
		if resp.User.Password != "" {
			t.Error("password leaked in response")
		}
		if resp.AccessToken == "" || resp.RefreshToken == "" {
			t.Error("expected tokens to be issued")
		}
		if len(mailer.welcomes) != 1 {
			t.Errorf("welcome emails = %d, want 1", len(mailer.welcomes))
		}
	})

	t.Run("vendor role is allowed", func(t *testing.T) {
		svc, _ := newTestService(t)

		resp, err := svc.Register(registerRequest("v@example.com", RoleVendor))
		if err != nil {
			t.Fatalf("Register vendor: %v", err)
		}
		if resp.User.Role != RoleVendor {
			t.Errorf("role = %q, want vendor", resp.User.Role)
		}
	})

	t.Run("admin self-registration is refused", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.Register(registerRequest("a@example.com", RoleAdmin))
		if apperror.KindOf(err) != apperror.KindForbidden {
			t.Errorf("kind = %v, want forbidden", apperror.KindOf(err))
		}
	})

	t.Run("unknown role is refused", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.Register(registerRequest("u@example.com", "superuser"))
		if apperror.KindOf(err) != apperror.KindInvalidArgument {
			t.Errorf("kind = %v, want invalid argument", apperror.KindOf(err))
		}
	})

	t.Run("duplicate email is refused", func(t *testing.T) {
		svc, _ := newTestService(t)

		if _, err := svc.Register(registerRequest("dup@example.com", "")); err != nil {
			t.Fatalf("Register: %v", err)
		}
		_, err := svc.Register(registerRequest("dup@example.com", ""))
		if apperror.KindOf(err) != apperror.KindConflict {
			t.Errorf("kind = %v, want conflict", apperror.KindOf(err))
		}
	})

	t.Run("password mismatch is refused", func(t *testing.T) {
		svc, _ := newTestService(t)

		req := registerRequest("m@example.com", "")
		req.ConfirmPassword = "OtherTiger42"
		_, err := svc.Register(req)
		if apperror.KindOf(err) != apperror.KindInvalidArgument {
			t.Errorf("kind = %v, want invalid argument", apperror.KindOf(err))
		}
	})

	t.Run("welcome email failure does not fail registration", func(t *testing.T) {
		svc, mailer := newTestService(t)
		mailer.failWelcome = true

		if _, err := svc.Register(registerRequest("nw@example.com", "")); err != nil {
			t.Fatalf("Register with failing mailer: %v", err)
		}
	})
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Register(registerRequest("login@example.com", "")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	t.Run("valid credentials", func(t *testing.T) {
		resp, err := svc.Login(&LoginRequest{Email: "Login@Example.com", Password: "OrangeTiger42"})
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if resp.User.LastLoginAt == nil {
			t.Error("last_login_at not recorded")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(&LoginRequest{Email: "login@example.com", Password: "WrongTiger42"})
		if apperror.KindOf(err) != apperror.KindUnauthorized {
			t.Errorf("kind = %v, want unauthorized", apperror.KindOf(err))
		}
	})

	t.Run("unknown email gets the same error", func(t *testing.T) {
		_, err := svc.Login(&LoginRequest{Email: "nobody@example.com", Password: "OrangeTiger42"})
		if apperror.KindOf(err) != apperror.KindUnauthorized {
			t.Errorf("kind = %v, want unauthorized", apperror.KindOf(err))
		}
	})

	t.Run("deactivated account cannot log in", func(t *testing.T) {
		svc2, _ := newTestService(t)
		resp, err := svc2.Register(registerRequest("gone@example.com", ""))
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if err := svc2.DeactivateUser(resp.User.ID); err != nil {
			t.Fatalf("DeactivateUser: %v", err)
		}
		_, err = svc2.Login(&LoginRequest{Email: "gone@example.com", Password: "OrangeTiger42"})
		if apperror.KindOf(err) != apperror.KindUnauthorized {
			t.Errorf("kind = %v, want unauthorized", apperror.KindOf(err))
		}
	})
}

func TestRefreshToken(t *testing.T) {
	svc, _ := newTestService(t)
	resp, err := svc.Register(registerRequest("fresh@example.com", ""))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	t.Run("refresh token yields new pair", func(t *testing.T) {
		renewed, err := svc.RefreshToken(resp.RefreshToken)
		if err != nil {
			t.Fatalf("RefreshToken: %v", err)
		}
		if renewed.AccessToken == "" {
			t.Error("no access token issued")
		}
	})

	t.Run("access token is not accepted", func(t *testing.T) {
		_, err := svc.RefreshToken(resp.AccessToken)
		if apperror.KindOf(err) != apperror.KindUnauthorized {
			t.Errorf("kind = %v, want unauthorized", apperror.KindOf(err))
		}
	})
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	resp, err := svc.Register(registerRequest("cp@example.com", ""))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	t.Run("wrong current password", func(t *testing.T) {
		err := svc.ChangePassword(resp.User.ID, "WrongTiger42", "NewTiger43")
		if apperror.KindOf(err) != apperror.KindUnauthorized {
			t.Errorf("kind = %v, want unauthorized", apperror.KindOf(err))
		}
	})

	t.Run("changes and old password stops working", func(t *testing.T) {
		if err := svc.ChangePassword(resp.User.ID, "OrangeTiger42", "NewTiger43"); err != nil {
			t.Fatalf("ChangePassword: %v", err)
		}
		if _, err := svc.Login(&LoginRequest{Email: "cp@example.com", Password: "OrangeTiger42"}); err == nil {
			t.Error("old password still accepted")
		}
		if _, err := svc.Login(&LoginRequest{Email: "cp@example.com", Password: "NewTiger43"}); err != nil {
			t.Errorf("new password rejected: %v", err)
		}
	})
}

func TestPasswordResetFlow(t *testing.T) {
	t.Run("full flow", func(t *testing.T) {
		svc, mailer := newTestService(t)
		if _, err := svc.Register(registerRequest("pw@example.com", "")); err != nil {
			t.Fatalf("Register: %v", err)
		}

		if err := svc.ForgotPassword("pw@example.com"); err != nil {
			t.Fatalf("ForgotPassword: %v", err)
		}
		if len(mailer.resetTokens) != 1 {
			t.Fatalf("reset emails = %d, want 1", len(mailer.resetTokens))
		}

		if err := svc.ResetPassword(mailer.resetTokens[0], "NewTiger43"); err != nil {
			t.Fatalf("ResetPassword: %v", err)
		}
		if _, err := svc.Login(&LoginRequest{Email: "pw@example.com", Password: "NewTiger43"}); err != nil {
			t.Errorf("login with reset password: %v", err)
		}

		// The token is single use.
		if err := svc.ResetPassword(mailer.resetTokens[0], "ThirdTiger44"); err == nil {
			t.Error("expected used token to be rejected")
		}
	})

	t.Run("unknown email is reported", func(t *testing.T) {
		svc, _ := newTestService(t)

		err := svc.ForgotPassword("ghost@example.com")
		if apperror.KindOf(err) != apperror.KindNotFound {
			t.Errorf("kind = %v, want not found", apperror.KindOf(err))
		}
	})

	t.Run("failed email rolls the token back", func(t *testing.T) {
		svc, mailer := newTestService(t)
		mailer.failReset = true
		resp, err := svc.Register(registerRequest("rb@example.com", ""))
		if err != nil {
			t.Fatalf("Register: %v", err)
		}

		if err := svc.ForgotPassword("rb@example.com"); err == nil {
			t.Fatal("expected error when reset email fails")
		}

		var stored User
		if err := svc.db.First(&stored, resp.User.ID).Error; err != nil {
			t.Fatalf("load user: %v", err)
		}
		if stored.ResetPasswordToken != "" {
			t.Error("reset token left on account after failed email")
		}
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		svc, _ := newTestService(t)

		err := svc.ResetPassword("not-a-real-token", "NewTiger43")
		if apperror.KindOf(err) != apperror.KindInvalidArgument {
			t.Errorf("kind = %v, want invalid argument", apperror.KindOf(err))
		}
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		svc, mailer := newTestService(t)
		if _, err := svc.Register(registerRequest("exp@example.com", "")); err != nil {
			t.Fatalf("Register: %v", err)
		}
		if err := svc.ForgotPassword("exp@example.com"); err != nil {
			t.Fatalf("ForgotPassword: %v", err)
		}

		past := time.Now().UTC().Add(-time.Minute)
		svc.db.Model(&User{}).Where("email = ?", "exp@example.com").
			Update("reset_password_expire", past)

		err := svc.ResetPassword(mailer.resetTokens[0], "NewTiger43")
		if apperror.KindOf(err) != apperror.KindInvalidArgument {
			t.Errorf("kind = %v, want invalid argument for expired token", apperror.KindOf(err))
		}
	})
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newTestService(t)
	resp, err := svc.Register(registerRequest("up@example.com", ""))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	updated, err := svc.UpdateProfile(resp.User.ID, &UpdateProfileRequest{Name: "Renamed", Email: "NEW@Example.com"})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Name != "Renamed" {
		t.Errorf("name = %q", updated.Name)
	}

	profile, err := svc.GetProfile(resp.User.ID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile.Email != "new@example.com" {
		t.Errorf("email = %q, want lowercased new@example.com", profile.Email)
	}
}
