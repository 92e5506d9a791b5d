package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"clinichistory/internal/database"
	"clinichistory/internal/models"
	"clinichistory/internal/records"
)

// RecordRepository is the durable home of clinical records
type RecordRepository struct {
	db *database.DB
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *database.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// ForUser returns a store scoped to the records owned by userID
func (r *RecordRepository) ForUser(userID int64) records.Store {
	return &ownerRecords{db: r.db, userID: userID}
}

// ownerRecords adds user_id to every statement so one doctor never sees another's data
type ownerRecords struct {
	db     *database.DB
	userID int64
}

const patientColumns = `id, user_id, first_name, last_name, document, birth_date, sex, phone,
	email, insurance, insurance_number, address, notes, created_at`

func scanPatient(scan func(dest ...any) error) (*models.Patient, error) {
	var p models.Patient
	err := scan(
		&p.ID,
		&p.UserID,
		&p.FirstName,
		&p.LastName,
		&p.Document,
		&p.BirthDate,
		&p.Sex,
		&p.Phone,
		&p.Email,
		&p.Insurance,
		&p.InsuranceNumber,
		&p.Address,
		&p.Notes,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ownerRecords) ListPatients(ctx context.Context, query string) ([]models.Patient, error) {
	sqlQuery := "SELECT " + patientColumns + " FROM patients WHERE user_id = ? AND active = ?"
	args := []any{s.userID, true}

	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		like := "%" + q + "%"
		sqlQuery += " AND (LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(document) LIKE ?)"
		args = append(args, like, like, like)
	}
	sqlQuery += " ORDER BY last_name, first_name"

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()

	patients := []models.Patient{}
	for rows.Next() {
		p, err := scanPatient(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, *p)
	}
	return patients, rows.Err()
}

func (s *ownerRecords) GetPatient(ctx context.Context, id int64) (*models.Patient, error) {
	query := "SELECT " + patientColumns + " FROM patients WHERE id = ? AND user_id = ? AND active = ?"
	p, err := scanPatient(s.db.QueryRowContext(ctx, query, id, s.userID, true).Scan)
	if err == sql.ErrNoRows {
		return nil, records.ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, nil
}

func (s *ownerRecords) GetPatientByDocument(ctx context.Context, document string) (*models.Patient, error) {
	query := "SELECT " + patientColumns + " FROM patients WHERE document = ? AND user_id = ? AND active = ?"
	p, err := scanPatient(s.db.QueryRowContext(ctx, query, document, s.userID, true).Scan)
	if err == sql.ErrNoRows {
		return nil, records.ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, nil
}

// documentTaken reports whether another active patient of the owner uses document
func (s *ownerRecords) documentTaken(ctx context.Context, tx database.DBTX, document string, exceptID int64) (bool, error) {
	if document == "" {
		return false, nil
	}
	var count int
	query := "SELECT COUNT(*) FROM patients WHERE user_id = ? AND document = ? AND active = ? AND id <> ?"
	if err := tx.QueryRowContext(ctx, query, s.userID, document, true, exceptID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check document: %w", err)
	}
	return count > 0, nil
}

func (s *ownerRecords) CreatePatient(ctx context.Context, p *models.Patient) error {
	p.UserID = s.userID
	p.CreatedAt = time.Now().UTC()

	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		taken, err := s.documentTaken(ctx, tx, p.Document, 0)
		if err != nil {
			return err
		}
		if taken {
			return records.ErrDuplicateDocument
		}

		query := `
			INSERT INTO patients (user_id, first_name, last_name, document, birth_date, sex, phone,
				email, insurance, insurance_number, address, notes, active, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		id, err := tx.ExecReturningID(ctx, query,
			p.UserID, p.FirstName, p.LastName, p.Document, p.BirthDate, p.Sex, p.Phone,
			p.Email, p.Insurance, p.InsuranceNumber, p.Address, p.Notes, true, p.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create patient: %w", err)
		}
		p.ID = id
		return nil
	})
}

func (s *ownerRecords) UpdatePatient(ctx context.Context, id int64, p *models.Patient) error {
	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		taken, err := s.documentTaken(ctx, tx, p.Document, id)
		if err != nil {
			return err
		}
		if taken {
			return records.ErrDuplicateDocument
		}

		query := `
			UPDATE patients
			SET first_name = ?, last_name = ?, document = ?, birth_date = ?, sex = ?, phone = ?,
				email = ?, insurance = ?, insurance_number = ?, address = ?, notes = ?
			WHERE id = ? AND user_id = ? AND active = ?
		`
		result, err := tx.ExecContext(ctx, query,
			p.FirstName, p.LastName, p.Document, p.BirthDate, p.Sex, p.Phone,
			p.Email, p.Insurance, p.InsuranceNumber, p.Address, p.Notes,
			id, s.userID, true)
		if err != nil {
			return fmt.Errorf("failed to update patient: %w", err)
		}
		if err := requireAffected(result, records.ErrPatientNotFound); err != nil {
			return err
		}

		updated, err := scanPatient(tx.QueryRowContext(ctx, "SELECT "+patientColumns+" FROM patients WHERE id = ?", id).Scan)
		if err != nil {
			return fmt.Errorf("failed to reload patient: %w", err)
		}
		*p = *updated
		return nil
	})
}

// DeletePatient soft-deletes so consultation history stays intact
func (s *ownerRecords) DeletePatient(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE patients SET active = ? WHERE id = ? AND user_id = ? AND active = ?",
		false, id, s.userID, true)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	return requireAffected(result, records.ErrPatientNotFound)
}

// patientExists checks that id is an active patient of the owner
func (s *ownerRecords) patientExists(ctx context.Context, tx database.DBTX, id int64) error {
	var count int
	query := "SELECT COUNT(*) FROM patients WHERE id = ? AND user_id = ? AND active = ?"
	if err := tx.QueryRowContext(ctx, query, id, s.userID, true).Scan(&count); err != nil {
		return fmt.Errorf("failed to check patient: %w", err)
	}
	if count == 0 {
		return records.ErrPatientNotFound
	}
	return nil
}

const consultationColumns = "id, user_id, patient_id, consulted_at, reason, diagnosis, treatment, notes"

func scanConsultation(scan func(dest ...any) error) (*models.Consultation, error) {
	var c models.Consultation
	if err := scan(&c.ID, &c.UserID, &c.PatientID, &c.Date, &c.Reason, &c.Diagnosis, &c.Treatment, &c.Notes); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ownerRecords) ListConsultations(ctx context.Context, filter records.ConsultationFilter) ([]models.Consultation, error) {
	query := "SELECT " + consultationColumns + " FROM consultations WHERE user_id = ?"
	args := []any{s.userID}

	if filter.PatientID > 0 {
		query += " AND patient_id = ?"
		args = append(args, filter.PatientID)
	}
	if filter.Day != "" {
		start, err := time.Parse(time.DateOnly, filter.Day)
		if err != nil {
			return nil, fmt.Errorf("invalid day filter: %w", err)
		}
		query += " AND consulted_at >= ? AND consulted_at < ?"
		args = append(args, start.UTC(), start.Add(24*time.Hour).UTC())
	}
	query += " ORDER BY consulted_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query consultations: %w", err)
	}
	defer rows.Close()

	consultations := []models.Consultation{}
	for rows.Next() {
		c, err := scanConsultation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan consultation: %w", err)
		}
		consultations = append(consultations, *c)
	}
	return consultations, rows.Err()
}

func (s *ownerRecords) GetConsultation(ctx context.Context, id int64) (*models.Consultation, error) {
	query := "SELECT " + consultationColumns + " FROM consultations WHERE id = ? AND user_id = ?"
	c, err := scanConsultation(s.db.QueryRowContext(ctx, query, id, s.userID).Scan)
	if err == sql.ErrNoRows {
		return nil, records.ErrConsultationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get consultation: %w", err)
	}
	return c, nil
}

func (s *ownerRecords) CreateConsultation(ctx context.Context, c *models.Consultation) error {
	c.UserID = s.userID
	if c.Date.IsZero() {
		c.Date = time.Now()
	}
	c.Date = c.Date.UTC()

	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := s.patientExists(ctx, tx, c.PatientID); err != nil {
			return err
		}
		query := `
			INSERT INTO consultations (user_id, patient_id, consulted_at, reason, diagnosis, treatment, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		id, err := tx.ExecReturningID(ctx, query, c.UserID, c.PatientID, c.Date, c.Reason, c.Diagnosis, c.Treatment, c.Notes)
		if err != nil {
			return fmt.Errorf("failed to create consultation: %w", err)
		}
		c.ID = id
		return nil
	})
}

func (s *ownerRecords) UpdateConsultation(ctx context.Context, id int64, c *models.Consultation) error {
	if c.Date.IsZero() {
		current, err := s.GetConsultation(ctx, id)
		if err != nil {
			return err
		}
		c.Date = current.Date
	}
	c.Date = c.Date.UTC()

	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := s.patientExists(ctx, tx, c.PatientID); err != nil {
			return err
		}
		query := `
			UPDATE consultations
			SET patient_id = ?, consulted_at = ?, reason = ?, diagnosis = ?, treatment = ?, notes = ?
			WHERE id = ? AND user_id = ?
		`
		result, err := tx.ExecContext(ctx, query, c.PatientID, c.Date, c.Reason, c.Diagnosis, c.Treatment, c.Notes, id, s.userID)
		if err != nil {
			return fmt.Errorf("failed to update consultation: %w", err)
		}
		if err := requireAffected(result, records.ErrConsultationNotFound); err != nil {
			return err
		}
		c.ID = id
		c.UserID = s.userID
		return nil
	})
}

func (s *ownerRecords) DeleteConsultation(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM consultations WHERE id = ? AND user_id = ?", id, s.userID)
	if err != nil {
		return fmt.Errorf("failed to delete consultation: %w", err)
	}
	return requireAffected(result, records.ErrConsultationNotFound)
}

const appointmentColumns = "id, user_id, patient_id, appointment_date, appointment_time, reason, status"

func scanAppointment(scan func(dest ...any) error) (*models.Appointment, error) {
	var (
		a         models.Appointment
		patientID sql.NullInt64
	)
	if err := scan(&a.ID, &a.UserID, &patientID, &a.Day, &a.Time, &a.Reason, &a.Status); err != nil {
		return nil, err
	}
	if patientID.Valid {
		a.PatientID = &patientID.Int64
	}
	return &a, nil
}

func nullablePatient(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func (s *ownerRecords) ListAppointments(ctx context.Context, filter records.AppointmentFilter) ([]models.Appointment, error) {
	query := "SELECT " + appointmentColumns + " FROM appointments WHERE user_id = ?"
	args := []any{s.userID}

	if filter.PatientID > 0 {
		query += " AND patient_id = ?"
		args = append(args, filter.PatientID)
	}
	if filter.Day != "" {
		query += " AND appointment_date = ?"
		args = append(args, filter.Day)
	}
	query += " ORDER BY appointment_date, appointment_time"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	appointments := []models.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, *a)
	}
	return appointments, rows.Err()
}

func (s *ownerRecords) GetAppointment(ctx context.Context, id int64) (*models.Appointment, error) {
	query := "SELECT " + appointmentColumns + " FROM appointments WHERE id = ? AND user_id = ?"
	a, err := scanAppointment(s.db.QueryRowContext(ctx, query, id, s.userID).Scan)
	if err == sql.ErrNoRows {
		return nil, records.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return a, nil
}

func (s *ownerRecords) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	a.UserID = s.userID

	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		if a.PatientID != nil {
			if err := s.patientExists(ctx, tx, *a.PatientID); err != nil {
				return err
			}
		}
		query := `
			INSERT INTO appointments (user_id, patient_id, appointment_date, appointment_time, reason, status)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		id, err := tx.ExecReturningID(ctx, query, a.UserID, nullablePatient(a.PatientID), a.Day, a.Time, a.Reason, string(a.Status))
		if err != nil {
			return fmt.Errorf("failed to create appointment: %w", err)
		}
		a.ID = id
		return nil
	})
}

func (s *ownerRecords) UpdateAppointment(ctx context.Context, id int64, a *models.Appointment) error {
	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		if a.PatientID != nil {
			if err := s.patientExists(ctx, tx, *a.PatientID); err != nil {
				return err
			}
		}
		query := `
			UPDATE appointments
			SET patient_id = ?, appointment_date = ?, appointment_time = ?, reason = ?, status = ?
			WHERE id = ? AND user_id = ?
		`
		result, err := tx.ExecContext(ctx, query, nullablePatient(a.PatientID), a.Day, a.Time, a.Reason, string(a.Status), id, s.userID)
		if err != nil {
			return fmt.Errorf("failed to update appointment: %w", err)
		}
		if err := requireAffected(result, records.ErrAppointmentNotFound); err != nil {
			return err
		}
		a.ID = id
		a.UserID = s.userID
		return nil
	})
}

func (s *ownerRecords) UpdateAppointmentStatus(ctx context.Context, id int64, status models.AppointmentStatus) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE appointments SET status = ? WHERE id = ? AND user_id = ?",
		string(status), id, s.userID)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	return requireAffected(result, records.ErrAppointmentNotFound)
}

func (s *ownerRecords) DeleteAppointment(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM appointments WHERE id = ? AND user_id = ?", id, s.userID)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return requireAffected(result, records.ErrAppointmentNotFound)
}

func (s *ownerRecords) Counts(ctx context.Context) (records.Counts, error) {
	var c records.Counts
	queries := []struct {
		dest  *int
		query string
		args  []any
	}{
		{&c.Patients, "SELECT COUNT(*) FROM patients WHERE user_id = ? AND active = ?", []any{s.userID, true}},
		{&c.Consultations, "SELECT COUNT(*) FROM consultations WHERE user_id = ?", []any{s.userID}},
		{&c.Appointments, "SELECT COUNT(*) FROM appointments WHERE user_id = ?", []any{s.userID}},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query, q.args...).Scan(q.dest); err != nil {
			return records.Counts{}, fmt.Errorf("failed to count records: %w", err)
		}
	}
	return c, nil
}

// requireAffected turns a zero-row update into notFound
func requireAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
