package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"clinichistory/internal/apperr"
	"clinichistory/internal/models"
	"clinichistory/internal/records"
	"clinichistory/internal/repository"
)

// BackupVersion identifies the export file layout
const BackupVersion = "1"

// BackupData is one doctor's complete set of clinical records
type BackupData struct {
	Version       string                `json:"version"`
	ExportedAt    time.Time             `json:"exported_at"`
	Owner         models.SessionUser    `json:"owner"`
	Patients      []models.Patient      `json:"patients"`
	Consultations []models.Consultation `json:"consultations"`
	Appointments  []models.Appointment  `json:"appointments"`
}

// BackupService exports the durable records of a single owner
type BackupService struct {
	userRepo *repository.UserRepository
	records  records.Source
	now      func() time.Time
}

// NewBackupService creates a new backup service
func NewBackupService(userRepo *repository.UserRepository, source records.Source) *BackupService {
	return &BackupService{
		userRepo: userRepo,
		records:  source,
		now:      time.Now,
	}
}

// Collect gathers every record owned by the user with the given email
func (s *BackupService) Collect(ctx context.Context, email string) (*BackupData, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal("Failed to look up user", err)
	}
	if user == nil {
		return nil, apperr.NotFound("User not found")
	}

	store := s.records.ForUser(user.ID)
	patients, err := store.ListPatients(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to export patients: %w", err)
	}
	consultations, err := store.ListConsultations(ctx, records.ConsultationFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to export consultations: %w", err)
	}
	appointments, err := store.ListAppointments(ctx, records.AppointmentFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to export appointments: %w", err)
	}

	return &BackupData{
		Version:       BackupVersion,
		ExportedAt:    s.now().UTC(),
		Owner:         user.Snapshot(),
		Patients:      patients,
		Consultations: consultations,
		Appointments:  appointments,
	}, nil
}

// Export writes the owner's records to w as indented JSON
func (s *BackupService) Export(ctx context.Context, email string, w io.Writer) error {
	data, err := s.Collect(ctx, email)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	log.Info().
		Str("email", data.Owner.Email).
		Int("patients", len(data.Patients)).
		Int("consultations", len(data.Consultations)).
		Int("appointments", len(data.Appointments)).
		Msg("Records exported")
	return nil
}
