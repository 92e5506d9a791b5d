package models

import (
	"testing"
	"time"
)

func TestSessionExpiredAtBoundary(t *testing.T) {
	expires := time.Date(2024, 10, 25, 9, 0, 0, 0, time.UTC)
	session := Session{ExpiresAt: expires}

	if session.ExpiredAt(expires.Add(-time.Nanosecond)) {
		t.Error("session should be live just before expiry")
	}
	if !session.ExpiredAt(expires) {
		t.Error("session should be expired at its expiry instant")
	}
}

func TestAuthenticatedHasRole(t *testing.T) {
	doctor := Authenticated{Session: &Session{User: SessionUser{Role: RoleDoctor}}}

	if !doctor.HasRole(RoleDoctor, RoleAdmin) {
		t.Error("doctor should pass a doctor|admin gate")
	}
	if doctor.HasRole(RoleAdmin) {
		t.Error("doctor should not pass an admin gate")
	}
}

func TestRoleValid(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleDoctor, true},
		{RoleAdmin, true},
		{"nurse", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			if got := tt.role.Valid(); got != tt.want {
				t.Errorf("Role(%q).Valid() = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}

func TestPatientValidation(t *testing.T) {
	tests := []struct {
		name    string
		patient Patient
		wantErr bool
	}{
		{
			name:    "valid patient",
			patient: Patient{FirstName: "Juan", LastName: "Pérez", Document: "12345678"},
			wantErr: false,
		},
		{
			name:    "missing last name",
			patient: Patient{FirstName: "Juan"},
			wantErr: true,
		},
		{
			name:    "bad birth date",
			patient: Patient{FirstName: "Juan", LastName: "Pérez", BirthDate: "15/05/1980"},
			wantErr: true,
		},
		{
			name:    "bad email",
			patient: Patient{FirstName: "Juan", LastName: "Pérez", Email: "juan"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patient.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Patient.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPatientMatches(t *testing.T) {
	p := Patient{FirstName: "María", LastName: "González", Document: "87654321"}

	if !p.Matches("gonz") {
		t.Error("expected case-insensitive last name match")
	}
	if !p.Matches("8765") {
		t.Error("expected document prefix match")
	}
	if p.Matches("pérez") {
		t.Error("unexpected match")
	}
	if !p.Matches("  ") {
		t.Error("blank query should match everything")
	}
}

func TestAppointmentValidateDefaultsStatus(t *testing.T) {
	a := Appointment{Day: "2024-10-25", Time: "09:00"}
	if err := a.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusPending {
		t.Errorf("expected default status pending, got %q", a.Status)
	}

	a.Status = "lost"
	if err := a.Validate(); err == nil {
		t.Error("expected unknown status to be rejected")
	}
}

func TestConsultationValidation(t *testing.T) {
	c := Consultation{Reason: "Control"}
	if err := c.Validate(); err == nil {
		t.Error("expected missing patient to be rejected")
	}
	c.PatientID = 1
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
