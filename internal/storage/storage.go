// Package storage provides the durable store behind the identity
// registry and the report store. State is two named collections, users
// and firs, held either as JSON arrays under fixed keys in a key-value
// backend (memory, file, Redis) or as per-record rows in PostgreSQL.
package storage

import (
	"context"
	"errors"

	"github.com/efir/efir-server/internal/models"
)

// Fixed collection keys in the key-value backends.
const (
	keyUsers = "users"
	keyFIRs  = "firs"
)

var (
	// ErrNotFound is returned on a lookup miss.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned on a unique-key conflict (user email or
	// FIR number).
	ErrDuplicate = errors.New("duplicate key")
)

// Store is the single owned persistence object. All mutation of the
// users and firs collections goes through it; callers never touch the
// underlying collections directly.
type Store interface {
	Ping(ctx context.Context) error

	InsertUser(ctx context.Context, identity *models.Identity) error
	FindUserByEmail(ctx context.Context, email string) (*models.Identity, error)
	UpdateUser(ctx context.Context, identity *models.Identity) error

	InsertReport(ctx context.Context, report *models.Report) error
	FindReportByNumber(ctx context.Context, firNumber string) (*models.Report, error)
	ListReportsByOwner(ctx context.Context, ownerEmail string) ([]models.Report, error)
	AppendUpdate(ctx context.Context, firNumber string, update models.StatusUpdate) (*models.Report, error)
	CountReports(ctx context.Context) (int64, error)
}
