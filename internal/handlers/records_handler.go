package handlers

import (
	"net/http"
	"strconv"
	"time"

	"clinichistory/internal/apperr"
	"clinichistory/internal/models"
	"clinichistory/internal/records"
	"clinichistory/internal/validation"
)

// RecordsHandler serves patients, consultations and appointments. It works
// against whichever records.Store DemoScope placed in the request context.
type RecordsHandler struct {
	now func() time.Time
}

// NewRecordsHandler creates a new records handler
func NewRecordsHandler() *RecordsHandler {
	return &RecordsHandler{now: time.Now}
}

func isDemo(r *http.Request) bool {
	id, ok := GetIdentityFromContext(r.Context()).(models.Authenticated)
	return ok && id.Demo
}

// store returns the request's record store, answering 500 if DemoScope did not run
func store(w http.ResponseWriter, r *http.Request) (records.Store, bool) {
	s := GetStoreFromContext(r.Context())
	if s == nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Record store missing from request context", nil)
		return nil, false
	}
	return s, true
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(ErrInvalidID)
	}
	return id, nil
}

func queryID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, validation.ValidationError{Field: name, Message: "must be a positive integer"}
	}
	return id, nil
}

func queryDay(r *http.Request, name string) (string, error) {
	day := r.URL.Query().Get(name)
	if day == "" {
		return "", nil
	}
	if err := validation.ValidateDate(name, day); err != nil {
		return "", err
	}
	return day, nil
}

func (h *RecordsHandler) deleted(w http.ResponseWriter, r *http.Request, what string) {
	respondJSON(w, http.StatusOK, messageResponse{Message: what + " deleted", Demo: isDemo(r)})
}

// ListPatients handles GET /api/patients?q=
func (h *RecordsHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	s, ok := store(w, r)
	if !ok {
		return
	}
	patients, err := s.ListPatients(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, patients)
}

// GetPatient handles GET /api/patients/{id}
func (h *RecordsHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	s, ok := store(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondAppError(w, err)
		return
	}
	p, err := s.GetPatient(r.Context(), id)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// GetPatientByDocument handles GET /api/patients/document/{document}
func (h *RecordsHandler) GetPatientByDocument(w http.ResponseWriter, r *http.Request) {
	s, ok := store(w, r)
	if !ok {
		return
	}
	p, err := s.GetPatientByDocument(r.Context(), r.PathValue("document"))
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// CreatePatient handles POST /api/patients
func (h *RecordsHandler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	s, ok := store(w, r)
	if !ok {
		return
	}
	var p models.Patient
	if err := decodeJSON(r, &p); err != nil {
		respondAppError(w, err)
		return
	}
	p.ID, p.Demo = 0, false
	p.Normalize()
	if err := p.Validate(); err != nil {
		respondAppError(w, err)
		return
	}
	if err := s.CreatePatient(r.Context(), &p); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// UpdatePatient handles PUT /api/patients/{id}
func (h *RecordsHandler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	s, ok := store(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondAppError(w, err)
		return
	}
	var p models.Patient
	if err := decodeJSON(r, &p); err != nil {
		respondAppError(w, err)
		return
	}
	p.ID, p.Demo = 0, false
	p.Normalize()
	if err := p.Validate(); err != nil {
		respondAppError(w, err)
		return
	}
	if err := s.UpdatePatient(r.Context(), id, &p); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// DeletePatient handles DELETE /api/patients/{id}
func (h *RecordsHandler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	s, ok := store(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondAppError(w, err)
		return
	}
	if err := s.DeletePatient(r.Context(), id); err != nil {
		respondAppError(w, err)
		return
	}
	h.deleted(w, r, "Patient")
}

// ListConsultations handles GET /api/consultations?patient_id=&date=
func (h *RecordsHandler) ListConsultations(w http.ResponseWriter, r *http.Request) {
	s, ok := store(w, r)
	if !ok {
		return
	}
	patientID, err := queryID(r, "patient_id")
	if err != nil {
		respondAppError(w, err)
		return
	}
	day, err := queryDay(r, "date")
	if err != nil {
		respondAppError(w, err)
		return
	}
	consultations, err := s.ListConsultations(r.Context(), records.ConsultationFilter{PatientID: patientID, Day: day})
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, consultations)
}

// GetConsultation handles GET /api/consultations/{id}
func (h *RecordsHandler) GetConsultation(w http.ResponseWriter, r *http.Request) {
	s, ok := store(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondAppError(w, err)
		return
	}
	c, err := s.GetConsultation(r.Context(), id)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// CreateConsultation handles POST /api/consultations
func (h *RecordsHandler) CreateConsultation(w http.ResponseWriter, r *http.Request) {
	s, ok := store(w, r)
	if !ok {
		return
	}
	var c models.Consultation
	if err := decodeJSON(r, &c); err != nil {
		respondAppError(w, err)
		return
	}
	c.ID, c.Demo = 0, false
	if err := c.Validate(); err != nil {
		respondAppError(w, err)
		return
	}
	if err := s.CreateConsultation(r.Context(), &c); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// UpdateConsultation handles PUT /api/consultations/{id}
func (h *RecordsHandler) UpdateConsultation(w http.ResponseWriter, r *http.Request) {
	s, ok := store(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondAppError(w, err)
		return
	}
	var c models.Consultation
	if err := decodeJSON(r, &c); err != nil {
		respondAppError(w, err)
		return
	}
	c.ID, c.Demo = 0, false
	if err := c.Validate(); err != nil {
		respondAppError(w, err)
		return
	}
	if err := s.UpdateConsultation(r.Context(), id, &c); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// DeleteConsultation handles DELETE /api/consultations/{id}
func (h *RecordsHandler) DeleteConsultation(w http.ResponseWriter, r *http.Request) {
	s, ok := store(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondAppError(w, err)
		return
	}
	if err := s.DeleteConsultation(r.Context(), id); err != nil {
		respondAppError(w, err)
		return
	}
	h.deleted(w, r, "Consultation")
}

// ListAppointments handles GET /api/appointments?day=&patient_id=
func (h *RecordsHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	s, ok := store(w, r)
	if !ok {
		return
	}
	patientID, err := queryID(r, "patient_id")
	if err != nil {
		respondAppError(w, err)
		return
	}
	day, err := queryDay(r, "day")
	if err != nil {
		respondAppError(w, err)
		return
	}
	h.listAppointments(w, r, s, records.AppointmentFilter{PatientID: patientID, Day: day})
}

// TodayAppointments handles GET /api/appointments/today
func (h *RecordsHandler) TodayAppointments(w http.ResponseWriter, r *http.Request) {
	s, ok := store(w, r)
	if !ok {
		return
	}
	h.listAppointments(w, r, s, records.AppointmentFilter{Day: h.now().Format(time.DateOnly)})
}

func (h *RecordsHandler) listAppointments(w http.ResponseWriter, r *http.Request, s records.Store, filter records.AppointmentFilter) {
	appointments, err := s.ListAppointments(r.Context(), filter)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, appointments)
}

// GetAppointment handles GET /api/appointments/{id}
func (h *RecordsHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	s, ok := store(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondAppError(w, err)
		return
	}
	a, err := s.GetAppointment(r.Context(), id)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// CreateAppointment handles POST /api/appointments
func (h *RecordsHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	s, ok := store(w, r)
	if !ok {
		return
	}
	var a models.Appointment
	if err := decodeJSON(r, &a); err != nil {
		respondAppError(w, err)
		return
	}
	a.ID, a.Demo = 0, false
	if err := a.Validate(); err != nil {
		respondAppError(w, err)
		return
	}
	if err := s.CreateAppointment(r.Context(), &a); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

// UpdateAppointment handles PUT /api/appointments/{id}
func (h *RecordsHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	s, ok := store(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondAppError(w, err)
		return
	}
	var a models.Appointment
	if err := decodeJSON(r, &a); err != nil {
		respondAppError(w, err)
		return
	}
	a.ID, a.Demo = 0, false
	if err := a.Validate(); err != nil {
		respondAppError(w, err)
		return
	}
	if err := s.UpdateAppointment(r.Context(), id, &a); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

type statusRequest struct {
	Status models.AppointmentStatus `json:"status"`
}

// UpdateAppointmentStatus handles PUT /api/appointments/{id}/status
func (h *RecordsHandler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	s, ok := store(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondAppError(w, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, err)
		return
	}
	if !req.Status.Valid() {
		respondAppError(w, validation.ValidationError{Field: "status", Message: "unknown status"})
		return
	}
	if err := s.UpdateAppointmentStatus(r.Context(), id, req.Status); err != nil {
		respondAppError(w, err)
		return
	}
	a, err := s.GetAppointment(r.Context(), id)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// DeleteAppointment handles DELETE /api/appointments/{id}
func (h *RecordsHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	s, ok := store(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondAppError(w, err)
		return
	}
	if err := s.DeleteAppointment(r.Context(), id); err != nil {
		respondAppError(w, err)
		return
	}
	h.deleted(w, r, "Appointment")
}

// Summary handles GET /api/summary with record counts for the dashboard
func (h *RecordsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s, ok := store(w, r)
	if !ok {
		return
	}
	counts, err := s.Counts(r.Context())
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}
