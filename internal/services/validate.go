package services

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/efir/efir-server/internal/models"
)

const (
	dateLayout        = "2006-01-02"
	minDescriptionLen = 20
)

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// validateSubmission applies the filing rules in order, collecting every
// violation instead of stopping at the first. Returns nil when clean.
func validateSubmission(sub models.ReportSubmission, now time.Time) *ValidationError {
	var fields []FieldError
	fail := func(field, message string) {
		fields = append(fields, FieldError{Field: field, Message: message})
	}

	switch {
	case sub.IncidentType == "":
		fail("incident_type", "incident type is required")
	case !models.ValidIncidentType(sub.IncidentType):
		fail("incident_type", "unknown incident type")
	}

	if sub.IncidentDate == "" {
		fail("incident_date", "incident date is required")
	} else if date, err := time.Parse(dateLayout, sub.IncidentDate); err != nil {
		fail("incident_date", "incident date must be a valid date (YYYY-MM-DD)")
	} else {
		// Compare at calendar-date granularity: filing on the day of
		// the incident is fine, tomorrow is not.
		today, _ := time.Parse(dateLayout, now.Format(dateLayout))
		if date.After(today) {
			fail("incident_date", "incident date cannot be in the future")
		}
	}

	if strings.TrimSpace(sub.IncidentLocation) == "" {
		fail("incident_location", "incident location is required")
	}

	if desc := strings.TrimSpace(sub.Description); desc == "" {
		fail("description", "description is required")
	} else if utf8.RuneCountInString(desc) < minDescriptionLen {
		fail("description", "description must be at least 20 characters")
	}

	if sub.ComplainantPhone != "" && !phonePattern.MatchString(sub.ComplainantPhone) {
		fail("complainant_phone", "phone number must be 10 digits")
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
