package models

import (
	"time"

	"clinichistory/internal/validation"
)

// Consultation is one visit recorded in a patient's history
type Consultation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	PatientID int64     `json:"patient_id"`
	Date      time.Time `json:"date"`
	Reason    string    `json:"reason"`
	Diagnosis string    `json:"diagnosis,omitempty"`
	Treatment string    `json:"treatment,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Demo      bool      `json:"demo,omitempty"`
}

// Validate checks the fields required to store a consultation
func (c *Consultation) Validate() error {
	if c.PatientID <= 0 {
		return validation.ValidationError{Field: "patient_id", Message: "patient_id is required"}
	}
	return validation.ValidateRequired("reason", c.Reason)
}
