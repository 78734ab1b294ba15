package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/efir/efir-server/internal/models"
	"github.com/efir/efir-server/internal/storage"
	"go.uber.org/zap"
)

// firNumberAttempts bounds the collision retry loop when assigning a
// FIR number. The numeric space is only a million wide, so a busy store
// can collide; each retry bumps the candidate by one.
const firNumberAttempts = 1000

// filedComment is the comment on the history entry written atomically
// with every new report.
const filedComment = "FIR has been filed successfully"

// ReportService owns FIR records and their status workflow. Reports are
// created once and mutated only by appending history entries.
type ReportService struct {
	store  storage.Store
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewReportService creates a new report store service.
func NewReportService(store storage.Store, logger *zap.SugaredLogger) *ReportService {
	return &ReportService{store: store, logger: logger, now: time.Now}
}

// Submit validates fields, assigns a FIR number and persists the new
// report with its initial Filed history entry. All rule violations are
// collected into a single *ValidationError; nothing is persisted on
// failure. Complainant details left empty are snapshotted from owner.
func (s *ReportService) Submit(ctx context.Context, owner models.Identity, sub models.ReportSubmission) (*models.Report, error) {
	now := s.now()

	if verr := validateSubmission(sub, now); verr != nil {
		return nil, verr
	}

	name := sub.ComplainantName
	if name == "" {
		name = owner.Name
	}
	phone := sub.ComplainantPhone
	if phone == "" {
		phone = owner.Phone
	}

	report := &models.Report{
		OwnerEmail:         owner.Email,
		ComplainantName:    name,
		ComplainantPhone:   phone,
		ComplainantAddress: sub.ComplainantAddress,
		AccusedName:        sub.AccusedName,
		IncidentDate:       sub.IncidentDate,
		IncidentLocation:   sub.IncidentLocation,
		IncidentType:       sub.IncidentType,
		Description:        sub.Description,
		Status:             models.StatusFiled,
		CreatedAt:          now,
		History: []models.StatusUpdate{
			{Timestamp: now, Status: models.StatusFiled, Comment: filedComment},
		},
	}

	// FIR numbers derive from the submission time, with a uniqueness
	// check at write time: on collision the candidate is bumped and
	// the insert retried.
	base := now.UnixMilli()
	for attempt := 0; attempt < firNumberAttempts; attempt++ {
		report.FIRNumber = formatFIRNumber(base, attempt)
		err := s.store.InsertReport(ctx, report)
		if err == nil {
			s.logger.Infow("FIR filed",
				"fir_number", report.FIRNumber,
				"owner", report.OwnerEmail,
				"incident_type", report.IncidentType,
			)
			return report, nil
		}
		if !errors.Is(err, storage.ErrDuplicate) {
			return nil, fmt.Errorf("insert report: %w", err)
		}
	}
	return nil, fmt.Errorf("assign FIR number: exhausted %d candidates", firNumberAttempts)
}

// formatFIRNumber formats a candidate identifier from the millisecond clock,
// offset by the retry attempt.
func formatFIRNumber(base int64, attempt int) string {
	n := (base + int64(attempt)) % 1000000
	return fmt.Sprintf("FIR%06d", n)
}

// AppendStatus moves a report to newStatus, appending one history entry.
// Transitions are checked against the workflow machine: Filed is the
// sole initial state, Resolved/Closed/Rejected are terminal, and
// Under Investigation is the only intermediate.
func (s *ReportService) AppendStatus(ctx context.Context, firNumber string, change models.StatusChange) (*models.Report, error) {
	if !models.ValidStatus(change.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, change.Status)
	}

	report, err := s.FindByNumber(ctx, firNumber)
	if err != nil {
		return nil, err
	}

	if !report.Status.CanTransition(change.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, report.Status, change.Status)
	}

	updated, err := s.store.AppendUpdate(ctx, firNumber, models.StatusUpdate{
		Timestamp: s.now(),
		Status:    change.Status,
		Comment:   change.Comment,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("append update: %w", err)
	}

	s.logger.Infow("FIR status updated",
		"fir_number", firNumber,
		"from", report.Status,
		"to", change.Status,
	)

	return updated, nil
}

// FindByNumber looks up a report by its exact, case-sensitive FIR number.
func (s *ReportService) FindByNumber(ctx context.Context, firNumber string) (*models.Report, error) {
	report, err := s.store.FindReportByNumber(ctx, firNumber)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find report: %w", err)
	}
	return report, nil
}

// ListByOwner returns every report owned by ownerEmail, most recent
// first. An empty email or no matches yields an empty slice.
func (s *ReportService) ListByOwner(ctx context.Context, ownerEmail string) ([]models.Report, error) {
	if ownerEmail == "" {
		return []models.Report{}, nil
	}
	reports, err := s.store.ListReportsByOwner(ctx, ownerEmail)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	if reports == nil {
		reports = []models.Report{}
	}
	return reports, nil
}

// Count returns the total number of filed reports.
func (s *ReportService) Count(ctx context.Context) (int64, error) {
	return s.store.CountReports(ctx)
}
