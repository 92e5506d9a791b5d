package models

import (
	"strings"
	"time"

	"clinichistory/internal/validation"
)

// Patient is a person under care of one doctor
type Patient struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"-"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Document        string    `json:"document"`
	BirthDate       string    `json:"birth_date,omitempty"`
	Sex             string    `json:"sex,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Email           string    `json:"email,omitempty"`
	Insurance       string    `json:"insurance,omitempty"`
	InsuranceNumber string    `json:"insurance_number,omitempty"`
	Address         string    `json:"address,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	Demo            bool      `json:"demo,omitempty"`
}

// Normalize trims user supplied text fields
func (p *Patient) Normalize() {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Document = strings.TrimSpace(p.Document)
	p.Email = strings.TrimSpace(p.Email)
}

// Validate checks the fields required to store a patient
func (p *Patient) Validate() error {
	if err := validation.ValidateRequired("first_name", p.FirstName); err != nil {
		return err
	}
	if err := validation.ValidateRequired("last_name", p.LastName); err != nil {
		return err
	}
	if p.BirthDate != "" {
		if err := validation.ValidateDate("birth_date", p.BirthDate); err != nil {
			return err
		}
	}
	if p.Email != "" {
		if err := validation.ValidateEmail(p.Email); err != nil {
			return err
		}
	}
	return nil
}

// Matches reports whether the patient matches a free text search on name or document
func (p *Patient) Matches(query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.FirstName), query) ||
		strings.Contains(strings.ToLower(p.LastName), query) ||
		strings.Contains(strings.ToLower(p.Document), query)
}
