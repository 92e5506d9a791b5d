package demo

import (
	"context"
	"sort"
	"time"

	"clinichistory/internal/models"
	"clinichistory/internal/records"
)

// userStore is the records.Store view of one demo user's entry. It resolves
// the entry on every call so a sweep between requests is picked up.
type userStore struct {
	sandbox *Sandbox
	userID  int64
}

func (u *userStore) lock() *entry {
	e := u.sandbox.entry(u.userID)
	e.mu.Lock()
	return e
}

func (e *entry) patientIndex(id int64) int {
	for i := range e.patients {
		if e.patients[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *entry) documentTaken(document string, exceptID int64) bool {
	if document == "" {
		return false
	}
	for _, p := range e.patients {
		if p.Document == document && p.ID != exceptID {
			return true
		}
	}
	return false
}

func (u *userStore) ListPatients(_ context.Context, query string) ([]models.Patient, error) {
	e := u.lock()
	defer e.mu.Unlock()

	patients := []models.Patient{}
	for _, p := range e.patients {
		if p.Matches(query) {
			patients = append(patients, p)
		}
	}
	sort.SliceStable(patients, func(i, j int) bool {
		if patients[i].LastName != patients[j].LastName {
			return patients[i].LastName < patients[j].LastName
		}
		return patients[i].FirstName < patients[j].FirstName
	})
	return patients, nil
}

func (u *userStore) GetPatient(_ context.Context, id int64) (*models.Patient, error) {
	e := u.lock()
	defer e.mu.Unlock()

	i := e.patientIndex(id)
	if i < 0 {
		return nil, records.ErrPatientNotFound
	}
	p := e.patients[i]
	return &p, nil
}

func (u *userStore) GetPatientByDocument(_ context.Context, document string) (*models.Patient, error) {
	e := u.lock()
	defer e.mu.Unlock()

	for _, p := range e.patients {
		if p.Document == document {
			return &p, nil
		}
	}
	return nil, records.ErrPatientNotFound
}

func (u *userStore) CreatePatient(_ context.Context, p *models.Patient) error {
	e := u.lock()
	defer e.mu.Unlock()

	if e.documentTaken(p.Document, 0) {
		return records.ErrDuplicateDocument
	}
	e.nextPatient++
	p.ID = e.nextPatient
	p.UserID = u.userID
	p.CreatedAt = time.Now().UTC()
	p.Demo = true
	e.patients = append(e.patients, *p)
	return nil
}

func (u *userStore) UpdatePatient(_ context.Context, id int64, p *models.Patient) error {
	e := u.lock()
	defer e.mu.Unlock()

	i := e.patientIndex(id)
	if i < 0 {
		return records.ErrPatientNotFound
	}
	if e.documentTaken(p.Document, id) {
		return records.ErrDuplicateDocument
	}
	p.ID = id
	p.UserID = u.userID
	p.CreatedAt = e.patients[i].CreatedAt
	p.Demo = true
	e.patients[i] = *p
	return nil
}

func (u *userStore) DeletePatient(_ context.Context, id int64) error {
	e := u.lock()
	defer e.mu.Unlock()

	i := e.patientIndex(id)
	if i < 0 {
		return records.ErrPatientNotFound
	}
	e.patients = append(e.patients[:i], e.patients[i+1:]...)
	return nil
}

func (e *entry) consultationIndex(id int64) int {
	for i := range e.consultations {
		if e.consultations[i].ID == id {
			return i
		}
	}
	return -1
}

func (u *userStore) ListConsultations(_ context.Context, filter records.ConsultationFilter) ([]models.Consultation, error) {
	e := u.lock()
	defer e.mu.Unlock()

	consultations := []models.Consultation{}
	for _, c := range e.consultations {
		if filter.PatientID > 0 && c.PatientID != filter.PatientID {
			continue
		}
		if filter.Day != "" && c.Date.UTC().Format(time.DateOnly) != filter.Day {
			continue
		}
		consultations = append(consultations, c)
	}
	sort.SliceStable(consultations, func(i, j int) bool {
		return consultations[i].Date.After(consultations[j].Date)
	})
	return consultations, nil
}

func (u *userStore) GetConsultation(_ context.Context, id int64) (*models.Consultation, error) {
	e := u.lock()
	defer e.mu.Unlock()

	i := e.consultationIndex(id)
	if i < 0 {
		return nil, records.ErrConsultationNotFound
	}
	c := e.consultations[i]
	return &c, nil
}

func (u *userStore) CreateConsultation(_ context.Context, c *models.Consultation) error {
	e := u.lock()
	defer e.mu.Unlock()

	if e.patientIndex(c.PatientID) < 0 {
		return records.ErrPatientNotFound
	}
	if c.Date.IsZero() {
		c.Date = time.Now()
	}
	e.nextConsultation++
	c.ID = e.nextConsultation
	c.UserID = u.userID
	c.Date = c.Date.UTC()
	c.Demo = true
	e.consultations = append(e.consultations, *c)
	return nil
}

func (u *userStore) UpdateConsultation(_ context.Context, id int64, c *models.Consultation) error {
	e := u.lock()
	defer e.mu.Unlock()

	i := e.consultationIndex(id)
	if i < 0 {
		return records.ErrConsultationNotFound
	}
	if e.patientIndex(c.PatientID) < 0 {
		return records.ErrPatientNotFound
	}
	if c.Date.IsZero() {
		c.Date = e.consultations[i].Date
	}
	c.ID = id
	c.UserID = u.userID
	c.Date = c.Date.UTC()
	c.Demo = true
	e.consultations[i] = *c
	return nil
}

func (u *userStore) DeleteConsultation(_ context.Context, id int64) error {
	e := u.lock()
	defer e.mu.Unlock()

	i := e.consultationIndex(id)
	if i < 0 {
		return records.ErrConsultationNotFound
	}
	e.consultations = append(e.consultations[:i], e.consultations[i+1:]...)
	return nil
}

func (e *entry) appointmentIndex(id int64) int {
	for i := range e.appointments {
		if e.appointments[i].ID == id {
			return i
		}
	}
	return -1
}

// copyAppointment detaches the patient pointer from the stored value
func copyAppointment(a models.Appointment) models.Appointment {
	if a.PatientID != nil {
		id := *a.PatientID
		a.PatientID = &id
	}
	return a
}

func (u *userStore) ListAppointments(_ context.Context, filter records.AppointmentFilter) ([]models.Appointment, error) {
	e := u.lock()
	defer e.mu.Unlock()

	appointments := []models.Appointment{}
	for _, a := range e.appointments {
		if filter.PatientID > 0 && (a.PatientID == nil || *a.PatientID != filter.PatientID) {
			continue
		}
		if filter.Day != "" && a.Day != filter.Day {
			continue
		}
		appointments = append(appointments, copyAppointment(a))
	}
	sort.SliceStable(appointments, func(i, j int) bool {
		if appointments[i].Day != appointments[j].Day {
			return appointments[i].Day < appointments[j].Day
		}
		return appointments[i].Time < appointments[j].Time
	})
	return appointments, nil
}

func (u *userStore) GetAppointment(_ context.Context, id int64) (*models.Appointment, error) {
	e := u.lock()
	defer e.mu.Unlock()

	i := e.appointmentIndex(id)
	if i < 0 {
		return nil, records.ErrAppointmentNotFound
	}
	a := copyAppointment(e.appointments[i])
	return &a, nil
}

func (u *userStore) CreateAppointment(_ context.Context, a *models.Appointment) error {
	e := u.lock()
	defer e.mu.Unlock()

	if a.PatientID != nil && e.patientIndex(*a.PatientID) < 0 {
		return records.ErrPatientNotFound
	}
	e.nextAppointment++
	a.ID = e.nextAppointment
	a.UserID = u.userID
	a.Demo = true
	e.appointments = append(e.appointments, copyAppointment(*a))
	return nil
}

func (u *userStore) UpdateAppointment(_ context.Context, id int64, a *models.Appointment) error {
	e := u.lock()
	defer e.mu.Unlock()

	i := e.appointmentIndex(id)
	if i < 0 {
		return records.ErrAppointmentNotFound
	}
	if a.PatientID != nil && e.patientIndex(*a.PatientID) < 0 {
		return records.ErrPatientNotFound
	}
	a.ID = id
	a.UserID = u.userID
	a.Demo = true
	e.appointments[i] = copyAppointment(*a)
	return nil
}

func (u *userStore) UpdateAppointmentStatus(_ context.Context, id int64, status models.AppointmentStatus) error {
	e := u.lock()
	defer e.mu.Unlock()

	i := e.appointmentIndex(id)
	if i < 0 {
		return records.ErrAppointmentNotFound
	}
	e.appointments[i].Status = status
	return nil
}

func (u *userStore) DeleteAppointment(_ context.Context, id int64) error {
	e := u.lock()
	defer e.mu.Unlock()

	i := e.appointmentIndex(id)
	if i < 0 {
		return records.ErrAppointmentNotFound
	}
	e.appointments = append(e.appointments[:i], e.appointments[i+1:]...)
	return nil
}

func (u *userStore) Counts(_ context.Context) (records.Counts, error) {
	e := u.lock()
	defer e.mu.Unlock()

	return records.Counts{
		Patients:      len(e.patients),
		Consultations: len(e.consultations),
		Appointments:  len(e.appointments),
	}, nil
}
