// Package services contains the business logic of the eFIR server: the
// identity registry and the FIR report store. Services are called by
// handlers (or embedded as a library) and persist through a storage.Store.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/efir/efir-server/internal/models"
	"github.com/efir/efir-server/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Demo account seeded at startup so the app can be tried without
// registering. It is a regular identity in the store, not a bypass
// inside the authentication path.
const (
	DemoEmail    = "user@example.com"
	DemoPassword = "password"
	demoName     = "Demo User"
)

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("efir-dummy-credential"), bcrypt.DefaultCost)

// RegistryService owns account records: registration, authentication
// and profile edits. Emails are unique keys, compared case-sensitively.
type RegistryService struct {
	store  storage.Store
	logger *zap.SugaredLogger
}

// NewRegistryService creates a new identity registry.
func NewRegistryService(store storage.Store, logger *zap.SugaredLogger) *RegistryService {
	return &RegistryService{store: store, logger: logger}
}

// Register creates a new account. The password is stored only as a
// bcrypt digest and the returned identity carries no secret.
func (s *RegistryService) Register(ctx context.Context, req models.RegisterRequest) (*models.Identity, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if req.Email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, fmt.Errorf("%w: email is not a valid address", ErrInvalidInput)
	}
	if req.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	identity := &models.Identity{
		ID:           uuid.New(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Phone:        req.Phone,
		Role:         models.RoleCitizen,
		CreatedAt:    time.Now(),
	}

	if err := s.store.InsertUser(ctx, identity); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	s.logger.Infow("Identity registered", "id", identity.ID, "email", identity.Email)

	public := identity.Public()
	return &public, nil
}

// Authenticate resolves credentials to an identity. Unknown email and
// wrong password both yield ErrInvalidCredentials.
func (s *RegistryService) Authenticate(ctx context.Context, email, password string) (*models.Identity, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	identity, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Burn a comparison anyway so the miss is not observably
			// faster than a wrong password.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	public := identity.Public()
	return &public, nil
}

// Lookup returns the identity registered under email, without secrets.
func (s *RegistryService) Lookup(ctx context.Context, email string) (*models.Identity, error) {
	identity, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	public := identity.Public()
	return &public, nil
}

// UpdateProfile edits the mutable fields of an identity. The email key
// is immutable, and reports filed earlier keep their complainant
// snapshots untouched.
func (s *RegistryService) UpdateProfile(ctx context.Context, email string, upd models.ProfileUpdate) (*models.Identity, error) {
	if upd.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	identity, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	identity.Name = upd.Name
	identity.Phone = upd.Phone

	if err := s.store.UpdateUser(ctx, identity); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Infow("Profile updated", "email", email)

	public := identity.Public()
	return &public, nil
}

// EnsureDemoAccount seeds the demonstration identity if it is absent.
// Called once at startup when demo seeding is enabled.
func (s *RegistryService) EnsureDemoAccount(ctx context.Context) error {
	_, err := s.store.FindUserByEmail(ctx, DemoEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("check demo account: %w", err)
	}

	if _, err := s.Register(ctx, models.RegisterRequest{
		Name:     demoName,
		Email:    DemoEmail,
		Password: DemoPassword,
	}); err != nil && !errors.Is(err, ErrDuplicateIdentity) {
		return fmt.Errorf("seed demo account: %w", err)
	}

	s.logger.Infow("Demo account seeded", "email", DemoEmail)
	return nil
}
