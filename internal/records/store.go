// Package records defines the clinical record store that request handlers
// work against. A Store is always bound to one owning user; the durable
// database and the demo sandbox both provide implementations.
package records

import (
	"context"

	"clinichistory/internal/apperr"
	"clinichistory/internal/models"
)

var (
	ErrPatientNotFound      = apperr.NotFound("Patient not found")
	ErrConsultationNotFound = apperr.NotFound("Consultation not found")
	ErrAppointmentNotFound  = apperr.NotFound("Appointment not found")
	ErrDuplicateDocument    = apperr.Conflict("A patient with that document already exists")
)

// ConsultationFilter narrows ListConsultations. Zero values match everything.
type ConsultationFilter struct {
	PatientID int64
	Day       string // YYYY-MM-DD
}

// AppointmentFilter narrows ListAppointments. Zero values match everything.
type AppointmentFilter struct {
	PatientID int64
	Day       string
}

// Counts summarizes how many records a store holds
type Counts struct {
	Patients      int `json:"patients"`
	Consultations int `json:"consultations"`
	Appointments  int `json:"appointments"`
}

type PatientStore interface {
	ListPatients(ctx context.Context, query string) ([]models.Patient, error)
	GetPatient(ctx context.Context, id int64) (*models.Patient, error)
	GetPatientByDocument(ctx context.Context, document string) (*models.Patient, error)
	CreatePatient(ctx context.Context, p *models.Patient) error
	UpdatePatient(ctx context.Context, id int64, p *models.Patient) error
	DeletePatient(ctx context.Context, id int64) error
}

type ConsultationStore interface {
	ListConsultations(ctx context.Context, filter ConsultationFilter) ([]models.Consultation, error)
	GetConsultation(ctx context.Context, id int64) (*models.Consultation, error)
	CreateConsultation(ctx context.Context, c *models.Consultation) error
	UpdateConsultation(ctx context.Context, id int64, c *models.Consultation) error
	DeleteConsultation(ctx context.Context, id int64) error
}

type AppointmentStore interface {
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error)
	GetAppointment(ctx context.Context, id int64) (*models.Appointment, error)
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	UpdateAppointment(ctx context.Context, id int64, a *models.Appointment) error
	UpdateAppointmentStatus(ctx context.Context, id int64, status models.AppointmentStatus) error
	DeleteAppointment(ctx context.Context, id int64) error
}

// Store is the full record surface for one owner. Lookups of missing records
// return the Err*NotFound values above regardless of implementation.
type Store interface {
	PatientStore
	ConsultationStore
	AppointmentStore
	Counts(ctx context.Context) (Counts, error)
}

// Source hands out owner-scoped stores
type Source interface {
	ForUser(userID int64) Store
}
