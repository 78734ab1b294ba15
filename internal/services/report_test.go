package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/efir/efir-server/internal/models"
	"github.com/efir/efir-server/internal/storage"
	"go.uber.org/zap"
)

var testOwner = models.Identity{
	Name:  "Asha Verma",
	Email: "asha@example.com",
	Phone: "9876543210",
	Role:  models.RoleCitizen,
}

func newTestReports(t *testing.T) *ReportService {
	t.Helper()
	store := storage.NewKVStore(storage.NewMemoryKV())
	return NewReportService(store, zap.NewNop().Sugar())
}

func validSubmission() models.ReportSubmission {
	return models.ReportSubmission{
		IncidentType:     "Theft",
		IncidentDate:     time.Now().Format(dateLayout),
		IncidentLocation: "MG Road, Pune",
		Description:      "My bicycle was stolen from outside the railway station.",
	}
}

func TestSubmit_Success(t *testing.T) {
	svc := newTestReports(t)
	ctx := context.Background()

	report, err := svc.Submit(ctx, testOwner, validSubmission())
	if err != nil {
		t.Fatalf("expected submission to succeed, got: %v", err)
	}

	if !strings.HasPrefix(report.FIRNumber, "FIR") || len(report.FIRNumber) != 9 {
		t.Errorf("unexpected FIR number format: %q", report.FIRNumber)
	}
	if report.OwnerEmail != testOwner.Email {
		t.Errorf("owner email not snapshotted: %q", report.OwnerEmail)
	}
	if report.ComplainantName != testOwner.Name || report.ComplainantPhone != testOwner.Phone {
		t.Errorf("complainant details not snapshotted from owner: %+v", report)
	}
	if report.Status != models.StatusFiled {
		t.Errorf("expected status Filed, got %q", report.Status)
	}
	if len(report.History) != 1 {
		t.Fatalf("expected exactly one history entry, got %d", len(report.History))
	}
	if report.History[0].Status != models.StatusFiled {
		t.Errorf("initial history entry status: got %q", report.History[0].Status)
	}
	if report.History[len(report.History)-1].Status != report.Status {
		t.Error("last history entry must match the report status")
	}
}

func TestSubmit_ComplainantOverride(t *testing.T) {
	svc := newTestReports(t)

	sub := validSubmission()
	sub.ComplainantName = "Ravi Verma"
	sub.ComplainantPhone = "1112223330"

	report, err := svc.Submit(context.Background(), testOwner, sub)
	if err != nil {
		t.Fatalf("submission failed: %v", err)
	}
	if report.ComplainantName != "Ravi Verma" || report.ComplainantPhone != "1112223330" {
		t.Errorf("explicit complainant fields must win over the owner snapshot: %+v", report)
	}
}

func TestSubmit_ValidationCollectsAllFailures(t *testing.T) {
	svc := newTestReports(t)

	_, err := svc.Submit(context.Background(), testOwner, models.ReportSubmission{})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got: %v", err)
	}

	want := []string{"incident_type", "incident_date", "incident_location", "description"}
	if len(verr.Fields) != len(want) {
		t.Fatalf("expected %d field errors, got %d: %+v", len(want), len(verr.Fields), verr.Fields)
	}
	for i, field := range want {
		if verr.Fields[i].Field != field {
			t.Errorf("field %d: got %q, want %q", i, verr.Fields[i].Field, field)
		}
	}
}

func TestSubmit_FieldRules(t *testing.T) {
	svc := newTestReports(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		mutate   func(*models.ReportSubmission)
		badField string // empty means the submission should pass
	}{
		{"description of 19 characters fails", func(s *models.ReportSubmission) {
			s.Description = strings.Repeat("x", 19)
		}, "description"},
		{"description of 20 characters passes", func(s *models.ReportSubmission) {
			s.Description = strings.Repeat("x", 20)
		}, ""},
		{"incident date tomorrow fails", func(s *models.ReportSubmission) {
			s.IncidentDate = time.Now().AddDate(0, 0, 1).Format(dateLayout)
		}, "incident_date"},
		{"incident date today passes", func(s *models.ReportSubmission) {
			s.IncidentDate = time.Now().Format(dateLayout)
		}, ""},
		{"unparseable incident date fails", func(s *models.ReportSubmission) {
			s.IncidentDate = "31-02-2024"
		}, "incident_date"},
		{"unknown incident type fails", func(s *models.ReportSubmission) {
			s.IncidentType = "Arson"
		}, "incident_type"},
		{"blank location fails", func(s *models.ReportSubmission) {
			s.IncidentLocation = "   "
		}, "incident_location"},
		{"nine digit phone fails", func(s *models.ReportSubmission) {
			s.ComplainantPhone = "123456789"
		}, "complainant_phone"},
		{"ten digit phone passes", func(s *models.ReportSubmission) {
			s.ComplainantPhone = "1234567890"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubmission()
			tt.mutate(&sub)

			_, err := svc.Submit(ctx, testOwner, sub)
			if tt.badField == "" {
				if err != nil {
					t.Fatalf("expected success, got: %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got: %v", err)
			}
			for _, f := range verr.Fields {
				if f.Field == tt.badField {
					return
				}
			}
			t.Errorf("expected a violation on %q, got: %+v", tt.badField, verr.Fields)
		})
	}
}

func TestSubmit_BackToBackNumbersAreDistinct(t *testing.T) {
	svc := newTestReports(t)
	ctx := context.Background()

	// Freeze the clock so every candidate derives from the same
	// millisecond and only the collision retry can separate them.
	fixed := time.Now()
	svc.now = func() time.Time { return fixed }

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		report, err := svc.Submit(ctx, testOwner, validSubmission())
		if err != nil {
			t.Fatalf("submission %d failed: %v", i, err)
		}
		if seen[report.FIRNumber] {
			t.Fatalf("FIR number %q assigned twice", report.FIRNumber)
		}
		seen[report.FIRNumber] = true
	}
}

func TestListByOwner(t *testing.T) {
	svc := newTestReports(t)
	ctx := context.Background()

	other := testOwner
	other.Email = "ravi@example.com"

	// Three reports with ascending creation times, interleaved with a
	// different owner.
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		created := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return created }
		if _, err := svc.Submit(ctx, testOwner, validSubmission()); err != nil {
			t.Fatalf("submission %d failed: %v", i, err)
		}
		if _, err := svc.Submit(ctx, other, validSubmission()); err != nil {
			t.Fatalf("other submission %d failed: %v", i, err)
		}
	}

	reports, err := svc.ListByOwner(ctx, testOwner.Email)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(reports))
	}
	for _, r := range reports {
		if r.OwnerEmail != testOwner.Email {
			t.Errorf("foreign report in listing: %q", r.OwnerEmail)
		}
	}
	for i := 1; i < len(reports); i++ {
		if reports[i].CreatedAt.After(reports[i-1].CreatedAt) {
			t.Errorf("reports not in descending creation order at index %d", i)
		}
	}

	t.Run("empty owner yields empty slice", func(t *testing.T) {
		reports, err := svc.ListByOwner(ctx, "")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if len(reports) != 0 {
			t.Errorf("expected empty slice, got %d reports", len(reports))
		}
	})

	t.Run("owner with no reports yields empty slice", func(t *testing.T) {
		reports, err := svc.ListByOwner(ctx, "stranger@example.com")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if len(reports) != 0 {
			t.Errorf("expected empty slice, got %d reports", len(reports))
		}
	})
}

func TestAppendStatus(t *testing.T) {
	svc := newTestReports(t)
	ctx := context.Background()

	report, err := svc.Submit(ctx, testOwner, validSubmission())
	if err != nil {
		t.Fatalf("submission failed: %v", err)
	}

	t.Run("Filed to Under Investigation", func(t *testing.T) {
		updated, err := svc.AppendStatus(ctx, report.FIRNumber, models.StatusChange{
			Status:  models.StatusUnderInvestigation,
			Comment: "Assigned to investigating officer",
		})
		if err != nil {
			t.Fatalf("expected transition to succeed, got: %v", err)
		}
		if updated.Status != models.StatusUnderInvestigation {
			t.Errorf("status not moved: %q", updated.Status)
		}
		if len(updated.History) != 2 {
			t.Fatalf("expected 2 history entries, got %d", len(updated.History))
		}
		if updated.History[1].Comment != "Assigned to investigating officer" {
			t.Errorf("comment not recorded: %q", updated.History[1].Comment)
		}
	})

	t.Run("terminal state accepts nothing", func(t *testing.T) {
		if _, err := svc.AppendStatus(ctx, report.FIRNumber, models.StatusChange{Status: models.StatusResolved}); err != nil {
			t.Fatalf("resolving failed: %v", err)
		}
		_, err := svc.AppendStatus(ctx, report.FIRNumber, models.StatusChange{Status: models.StatusClosed})
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition on a Resolved report, got: %v", err)
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := svc.AppendStatus(ctx, report.FIRNumber, models.StatusChange{Status: "Escalated"})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got: %v", err)
		}
	})

	t.Run("missing report", func(t *testing.T) {
		_, err := svc.AppendStatus(ctx, "FIR000000", models.StatusChange{Status: models.StatusUnderInvestigation})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})
}

func TestFindByNumber(t *testing.T) {
	svc := newTestReports(t)
	ctx := context.Background()

	report, err := svc.Submit(ctx, testOwner, validSubmission())
	if err != nil {
		t.Fatalf("submission failed: %v", err)
	}

	found, err := svc.FindByNumber(ctx, report.FIRNumber)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if found.FIRNumber != report.FIRNumber {
		t.Errorf("wrong report returned: %q", found.FIRNumber)
	}

	// Case-sensitive exact match.
	if _, err := svc.FindByNumber(ctx, strings.ToLower(report.FIRNumber)); !errors.Is(err, ErrNotFound) {
		t.Errorf("lowercased number must miss, got: %v", err)
	}
}
