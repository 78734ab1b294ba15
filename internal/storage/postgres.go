package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/efir/efir-server/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint.
const uniqueViolation = "23505"

// PostgresStore implements Store on per-record rows, the multi-writer
// path: inserts hit unique constraints instead of a read-rewrite cycle,
// and history appends are a single atomic jsonb concatenation.
type PostgresStore struct {
	db     *pgxpool.Pool
	logger *zap.SugaredLogger
}

// NewPostgresPool creates a PostgreSQL connection pool with the
// application's settings and verifies connectivity.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return pool, nil
}

// NewPostgresStore wraps a connection pool as the application store.
func NewPostgresStore(db *pgxpool.Pool, logger *zap.SugaredLogger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// EnsureSchema creates the users and firs tables if they do not exist.
// Called once at startup.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'citizen',
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS firs (
			fir_number TEXT PRIMARY KEY,
			owner_email TEXT NOT NULL,
			complainant_name TEXT NOT NULL,
			complainant_phone TEXT NOT NULL DEFAULT '',
			complainant_address TEXT NOT NULL DEFAULT '',
			accused_name TEXT NOT NULL DEFAULT '',
			incident_date TEXT NOT NULL,
			incident_location TEXT NOT NULL,
			incident_type TEXT NOT NULL,
			description TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			history JSONB NOT NULL DEFAULT '[]'
		);
		CREATE INDEX IF NOT EXISTS firs_owner_email_idx ON firs (owner_email, created_at DESC);
	`
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	s.logger.Info("Database schema ensured")
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) InsertUser(ctx context.Context, identity *models.Identity) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, phone, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.Exec(ctx, query,
		identity.ID, identity.Name, identity.Email,
		identity.PasswordHash, identity.Phone, identity.Role, identity.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("email %s: %w", identity.Email, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindUserByEmail(ctx context.Context, email string) (*models.Identity, error) {
	query := `SELECT id, name, email, password_hash, phone, role, created_at
		FROM users WHERE email = $1`

	var u models.Identity
	row := s.db.QueryRow(ctx, query, email)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, identity *models.Identity) error {
	query := `UPDATE users SET name = $2, phone = $3 WHERE email = $1`
	tag, err := s.db.Exec(ctx, query, identity.Email, identity.Name, identity.Phone)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", identity.Email, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) InsertReport(ctx context.Context, report *models.Report) error {
	history, err := json.Marshal(report.History)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	query := `
		INSERT INTO firs (fir_number, owner_email, complainant_name, complainant_phone,
			complainant_address, accused_name, incident_date, incident_location,
			incident_type, description, status, created_at, history)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = s.db.Exec(ctx, query,
		report.FIRNumber, report.OwnerEmail, report.ComplainantName, report.ComplainantPhone,
		report.ComplainantAddress, report.AccusedName, report.IncidentDate, report.IncidentLocation,
		report.IncidentType, report.Description, report.Status, report.CreatedAt, history,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("fir %s: %w", report.FIRNumber, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

const reportColumns = `fir_number, owner_email, complainant_name, complainant_phone,
	complainant_address, accused_name, incident_date, incident_location,
	incident_type, description, status, created_at, history`

func (s *PostgresStore) FindReportByNumber(ctx context.Context, firNumber string) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM firs WHERE fir_number = $1`

	report, err := scanReport(s.db.QueryRow(ctx, query, firNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("fir %s: %w", firNumber, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find report: %w", err)
	}
	return report, nil
}

func (s *PostgresStore) ListReportsByOwner(ctx context.Context, ownerEmail string) ([]models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM firs
		WHERE owner_email = $1 ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, ownerEmail)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	reports := make([]models.Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, *report)
	}
	return reports, rows.Err()
}

func (s *PostgresStore) AppendUpdate(ctx context.Context, firNumber string, update models.StatusUpdate) (*models.Report, error) {
	entry, err := json.Marshal(update)
	if err != nil {
		return nil, fmt.Errorf("encode update: %w", err)
	}

	// Status move and history append in one statement, so concurrent
	// writers cannot interleave between them.
	query := `UPDATE firs
		SET status = $2, history = history || $3::jsonb
		WHERE fir_number = $1
		RETURNING ` + reportColumns

	report, err := scanReport(s.db.QueryRow(ctx, query, firNumber, update.Status, entry))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("fir %s: %w", firNumber, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("append update: %w", err)
	}
	return report, nil
}

func (s *PostgresStore) CountReports(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM firs").Scan(&count)
	return count, err
}

// scanReport reads one firs row, decoding the jsonb history column.
func scanReport(row pgx.Row) (*models.Report, error) {
	var (
		r       models.Report
		history []byte
	)
	err := row.Scan(&r.FIRNumber, &r.OwnerEmail, &r.ComplainantName, &r.ComplainantPhone,
		&r.ComplainantAddress, &r.AccusedName, &r.IncidentDate, &r.IncidentLocation,
		&r.IncidentType, &r.Description, &r.Status, &r.CreatedAt, &history)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(history, &r.History); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return &r, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
