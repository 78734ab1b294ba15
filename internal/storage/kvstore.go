package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/efir/efir-server/internal/models"
)

// KVStore implements Store over a key-value backend. Each mutation
// reads the whole collection, appends or rewrites in place, and writes
// it back; the mutex serializes writers so that pattern stays safe
// within one process. Multi-process deployments should use the
// PostgresStore instead.
type KVStore struct {
	mu sync.Mutex
	kv KV
}

// NewKVStore wraps a key-value backend as the application store.
func NewKVStore(kv KV) *KVStore {
	return &KVStore{kv: kv}
}

func (s *KVStore) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

func (s *KVStore) InsertUser(ctx context.Context, identity *models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := loadCollection[models.Identity](ctx, s.kv, keyUsers)
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].Email == identity.Email {
			return fmt.Errorf("email %s: %w", identity.Email, ErrDuplicate)
		}
	}
	users = append(users, *identity)
	return saveCollection(ctx, s.kv, keyUsers, users)
}

func (s *KVStore) FindUserByEmail(ctx context.Context, email string) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := loadCollection[models.Identity](ctx, s.kv, keyUsers)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Email == email {
			u := users[i]
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
}

func (s *KVStore) UpdateUser(ctx context.Context, identity *models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := loadCollection[models.Identity](ctx, s.kv, keyUsers)
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].Email == identity.Email {
			users[i] = *identity
			return saveCollection(ctx, s.kv, keyUsers, users)
		}
	}
	return fmt.Errorf("user %s: %w", identity.Email, ErrNotFound)
}

func (s *KVStore) InsertReport(ctx context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports, err := loadCollection[models.Report](ctx, s.kv, keyFIRs)
	if err != nil {
		return err
	}
	for i := range reports {
		if reports[i].FIRNumber == report.FIRNumber {
			return fmt.Errorf("fir %s: %w", report.FIRNumber, ErrDuplicate)
		}
	}
	reports = append(reports, *report)
	return saveCollection(ctx, s.kv, keyFIRs, reports)
}

func (s *KVStore) FindReportByNumber(ctx context.Context, firNumber string) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports, err := loadCollection[models.Report](ctx, s.kv, keyFIRs)
	if err != nil {
		return nil, err
	}
	for i := range reports {
		if reports[i].FIRNumber == firNumber {
			r := reports[i]
			return &r, nil
		}
	}
	return nil, fmt.Errorf("fir %s: %w", firNumber, ErrNotFound)
}

func (s *KVStore) ListReportsByOwner(ctx context.Context, ownerEmail string) ([]models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports, err := loadCollection[models.Report](ctx, s.kv, keyFIRs)
	if err != nil {
		return nil, err
	}
	owned := make([]models.Report, 0)
	for i := range reports {
		if reports[i].OwnerEmail == ownerEmail {
			owned = append(owned, reports[i])
		}
	}
	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	return owned, nil
}

func (s *KVStore) AppendUpdate(ctx context.Context, firNumber string, update models.StatusUpdate) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports, err := loadCollection[models.Report](ctx, s.kv, keyFIRs)
	if err != nil {
		return nil, err
	}
	for i := range reports {
		if reports[i].FIRNumber != firNumber {
			continue
		}
		reports[i].History = append(reports[i].History, update)
		reports[i].Status = update.Status
		if err := saveCollection(ctx, s.kv, keyFIRs, reports); err != nil {
			return nil, err
		}
		r := reports[i]
		return &r, nil
	}
	return nil, fmt.Errorf("fir %s: %w", firNumber, ErrNotFound)
}

func (s *KVStore) CountReports(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports, err := loadCollection[models.Report](ctx, s.kv, keyFIRs)
	if err != nil {
		return 0, err
	}
	return int64(len(reports)), nil
}

// loadCollection reads the JSON array stored under key; absence decodes
// as an empty collection.
func loadCollection[T any](ctx context.Context, kv KV, key string) ([]T, error) {
	data, ok, err := kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode collection %s: %w", key, err)
	}
	return items, nil
}

func saveCollection[T any](ctx context.Context, kv KV, key string, items []T) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", key, err)
	}
	return kv.Put(ctx, key, data)
}
