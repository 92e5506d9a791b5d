package models

import "clinichistory/internal/validation"

// AppointmentStatus tracks an appointment through its lifecycle
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusAttended  AppointmentStatus = "attended"
	StatusAbsent    AppointmentStatus = "absent"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Valid reports whether s is a known status
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusAttended, StatusAbsent, StatusCancelled:
		return true
	}
	return false
}

// Appointment is a scheduled slot, optionally tied to a patient
type Appointment struct {
	ID        int64             `json:"id"`
	UserID    int64             `json:"-"`
	PatientID *int64            `json:"patient_id,omitempty"`
	Day       string            `json:"day"`
	Time      string            `json:"time"`
	Reason    string            `json:"reason,omitempty"`
	Status    AppointmentStatus `json:"status"`
	Demo      bool              `json:"demo,omitempty"`
}

// Validate checks the fields required to store an appointment. An empty
// status defaults to pending.
func (a *Appointment) Validate() error {
	if err := validation.ValidateDate("day", a.Day); err != nil {
		return err
	}
	if err := validation.ValidateClock("time", a.Time); err != nil {
		return err
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	if !a.Status.Valid() {
		return validation.ValidationError{Field: "status", Message: "unknown status"}
	}
	return nil
}
