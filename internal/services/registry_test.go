package services

import (
	"context"
	"errors"
	"testing"

	"github.com/efir/efir-server/internal/models"
	"github.com/efir/efir-server/internal/storage"
	"go.uber.org/zap"
)

func newTestRegistry(t *testing.T) *RegistryService {
	t.Helper()
	store := storage.NewKVStore(storage.NewMemoryKV())
	return NewRegistryService(store, zap.NewNop().Sugar())
}

func TestRegister_Success(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	identity, err := reg.Register(ctx, models.RegisterRequest{
		Name:     "Asha Verma",
		Email:    "asha@example.com",
		Password: "s3cret-pass",
		Phone:    "9876543210",
	})
	if err != nil {
		t.Fatalf("expected registration to succeed, got: %v", err)
	}

	if identity.Email != "asha@example.com" {
		t.Errorf("email mismatch: got %q", identity.Email)
	}
	if identity.Role != models.RoleCitizen {
		t.Errorf("expected default role %q, got %q", models.RoleCitizen, identity.Role)
	}
	if identity.PasswordHash != "" {
		t.Error("returned identity must not carry the credential digest")
	}
	if identity.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("expected a generated identity ID")
	}
}

func TestRegister_InvalidInput(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  models.RegisterRequest
	}{
		{"missing name", models.RegisterRequest{Email: "a@b.com", Password: "pw12345"}},
		{"missing email", models.RegisterRequest{Name: "A", Password: "pw12345"}},
		{"missing password", models.RegisterRequest{Name: "A", Email: "a@b.com"}},
		{"malformed email", models.RegisterRequest{Name: "A", Email: "not-an-address", Password: "pw12345"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := reg.Register(ctx, tt.req); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got: %v", err)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	req := models.RegisterRequest{Name: "Asha", Email: "asha@example.com", Password: "pw12345"}
	if _, err := reg.Register(ctx, req); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	req.Name = "Someone Else"
	if _, err := reg.Register(ctx, req); !errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("expected ErrDuplicateIdentity, got: %v", err)
	}

	// The registry still holds exactly the first record.
	identity, err := reg.Lookup(ctx, "asha@example.com")
	if err != nil {
		t.Fatalf("lookup after duplicate failed: %v", err)
	}
	if identity.Name != "Asha" {
		t.Errorf("duplicate registration overwrote the record: got name %q", identity.Name)
	}
}

func TestAuthenticate(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	if _, err := reg.Register(ctx, models.RegisterRequest{
		Name: "Asha", Email: "asha@example.com", Password: "correct-horse",
	}); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	t.Run("valid credentials", func(t *testing.T) {
		identity, err := reg.Authenticate(ctx, "asha@example.com", "correct-horse")
		if err != nil {
			t.Fatalf("expected success, got: %v", err)
		}
		if identity.PasswordHash != "" {
			t.Error("authenticated identity must not carry the credential digest")
		}
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		_, wrongPw := reg.Authenticate(ctx, "asha@example.com", "wrong")
		_, unknown := reg.Authenticate(ctx, "nobody@example.com", "correct-horse")

		if !errors.Is(wrongPw, ErrInvalidCredentials) {
			t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", wrongPw)
		}
		if !errors.Is(unknown, ErrInvalidCredentials) {
			t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", unknown)
		}
		if wrongPw.Error() != unknown.Error() {
			t.Errorf("error text leaks which part was wrong: %q vs %q", wrongPw, unknown)
		}
	})

	t.Run("email match is case-sensitive", func(t *testing.T) {
		if _, err := reg.Authenticate(ctx, "Asha@example.com", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials for cased email, got: %v", err)
		}
	})
}

func TestEnsureDemoAccount(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	if err := reg.EnsureDemoAccount(ctx); err != nil {
		t.Fatalf("seeding failed: %v", err)
	}
	// Idempotent on restart.
	if err := reg.EnsureDemoAccount(ctx); err != nil {
		t.Fatalf("second seeding failed: %v", err)
	}

	identity, err := reg.Authenticate(ctx, DemoEmail, DemoPassword)
	if err != nil {
		t.Fatalf("demo login failed: %v", err)
	}
	if identity.Role != models.RoleCitizen {
		t.Errorf("demo account role: got %q", identity.Role)
	}
}

func TestUpdateProfile(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	if _, err := reg.Register(ctx, models.RegisterRequest{
		Name: "Asha", Email: "asha@example.com", Password: "pw12345", Phone: "9876543210",
	}); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	updated, err := reg.UpdateProfile(ctx, "asha@example.com", models.ProfileUpdate{
		Name: "Asha V.", Phone: "1234567890",
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != "Asha V." || updated.Phone != "1234567890" {
		t.Errorf("update not applied: %+v", updated)
	}

	if _, err := reg.UpdateProfile(ctx, "nobody@example.com", models.ProfileUpdate{Name: "X"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown email, got: %v", err)
	}
}
