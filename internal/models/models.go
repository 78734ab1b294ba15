// Package models defines the data structures shared across the eFIR server:
// identities, FIR records, their status history, and the request/response
// shapes consumed by the HTTP layer.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Identity is a registered account in the identity registry.
// PasswordHash is the bcrypt digest of the credential; it must survive
// the JSON round trip through the KV storage backends, but is stripped
// via Public before an identity is returned to callers, so the empty
// value never appears on the wire thanks to omitempty.
type Identity struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"password_hash,omitempty" db:"password_hash"`
	Phone        string    `json:"phone,omitempty" db:"phone"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Public returns a copy safe to hand to callers, with the credential
// digest stripped.
func (i Identity) Public() Identity {
	i.PasswordHash = ""
	return i
}

// RoleCitizen is the default role assigned at registration. Role is an
// opaque extensible string, not a closed enumeration.
const RoleCitizen = "citizen"

// Report is a filed FIR. FIRNumber doubles as the primary key and the
// human-facing lookup code; it is immutable once assigned, as are
// OwnerEmail and CreatedAt. The only permitted mutation is appending a
// history entry (which also moves Status).
type Report struct {
	FIRNumber          string         `json:"fir_number" db:"fir_number"`
	OwnerEmail         string         `json:"owner_email" db:"owner_email"`
	ComplainantName    string         `json:"complainant_name" db:"complainant_name"`
	ComplainantPhone   string         `json:"complainant_phone" db:"complainant_phone"`
	ComplainantAddress string         `json:"complainant_address,omitempty" db:"complainant_address"`
	AccusedName        string         `json:"accused_name,omitempty" db:"accused_name"`
	IncidentDate       string         `json:"incident_date" db:"incident_date"`
	IncidentLocation   string         `json:"incident_location" db:"incident_location"`
	IncidentType       string         `json:"incident_type" db:"incident_type"`
	Description        string         `json:"description" db:"description"`
	Status             Status         `json:"status" db:"status"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
	History            []StatusUpdate `json:"history" db:"history"`
}

// StatusUpdate is one immutable entry in a report's history.
type StatusUpdate struct {
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
	Comment   string    `json:"comment"`
}

// IncidentTypes is the closed set of accepted incident classifications.
var IncidentTypes = []string{
	"Theft",
	"Robbery",
	"Assault",
	"Burglary",
	"Fraud",
	"Vandalism",
	"Other",
}

// ValidIncidentType reports whether t is in the closed set.
func ValidIncidentType(t string) bool {
	for _, known := range IncidentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// RegisterRequest is the request body for creating an account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// LoginRequest is the request body for authenticating.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdate is the request body for editing mutable identity fields.
// Email is the lookup key and cannot be changed.
type ProfileUpdate struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// ReportSubmission is the request body for filing a new FIR. Complainant
// fields left empty are snapshotted from the owning identity.
type ReportSubmission struct {
	ComplainantName    string `json:"complainant_name,omitempty"`
	ComplainantPhone   string `json:"complainant_phone,omitempty"`
	ComplainantAddress string `json:"complainant_address,omitempty"`
	AccusedName        string `json:"accused_name,omitempty"`
	IncidentDate       string `json:"incident_date"`
	IncidentLocation   string `json:"incident_location"`
	IncidentType       string `json:"incident_type"`
	Description        string `json:"description"`
}

// StatusChange is the request body for appending a status update.
type StatusChange struct {
	Status  Status `json:"status"`
	Comment string `json:"comment,omitempty"`
}

// HealthStatus represents the server health check response.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Storage string `json:"storage,omitempty"`
}
