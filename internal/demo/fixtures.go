package demo

import (
	"time"

	"clinichistory/internal/models"
)

// seed builds the fixture data every demo user starts from
func seed(userID int64, now time.Time) *entry {
	patientOne, patientTwo := int64(1), int64(2)
	created := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)

	return &entry{
		patients: []models.Patient{
			{
				ID:              patientOne,
				UserID:          userID,
				FirstName:       "Juan",
				LastName:        "Pérez",
				Document:        "12345678",
				BirthDate:       "1980-05-15",
				Sex:             "M",
				Phone:           "11-4567-8901",
				Email:           "juan.perez@email.com",
				Insurance:       "OSDE",
				InsuranceNumber: "123456789",
				Address:         "Av. Corrientes 1234, CABA",
				CreatedAt:       created,
				Demo:            true,
			},
			{
				ID:              patientTwo,
				UserID:          userID,
				FirstName:       "María",
				LastName:        "González",
				Document:        "87654321",
				BirthDate:       "1975-08-22",
				Sex:             "F",
				Phone:           "11-9876-5432",
				Email:           "maria.gonzalez@email.com",
				Insurance:       "Swiss Medical",
				InsuranceNumber: "987654321",
				Address:         "Av. Santa Fe 5678, CABA",
				CreatedAt:       created,
				Demo:            true,
			},
		},
		consultations: []models.Consultation{
			{
				ID:        1,
				UserID:    userID,
				PatientID: patientOne,
				Date:      time.Date(2024, 10, 20, 10, 0, 0, 0, time.UTC),
				Reason:    "Control de presión arterial",
				Diagnosis: "Hipertensión controlada",
				Treatment: "Continuar con medicación actual",
				Notes:     "Paciente estable",
				Demo:      true,
			},
			{
				ID:        2,
				UserID:    userID,
				PatientID: patientTwo,
				Date:      time.Date(2024, 10, 21, 14, 30, 0, 0, time.UTC),
				Reason:    "Dolor de cabeza recurrente",
				Diagnosis: "Migraña tensional",
				Treatment: "Analgésicos y reposo",
				Notes:     "Control en 15 días",
				Demo:      true,
			},
		},
		appointments: []models.Appointment{
			{
				ID:        1,
				UserID:    userID,
				PatientID: &patientOne,
				Day:       "2024-10-25",
				Time:      "09:00",
				Reason:    "Control mensual",
				Status:    models.StatusConfirmed,
				Demo:      true,
			},
			{
				ID:        2,
				UserID:    userID,
				PatientID: &patientTwo,
				Day:       "2024-10-26",
				Time:      "15:00",
				Reason:    "Seguimiento",
				Status:    models.StatusPending,
				Demo:      true,
			},
		},
		nextPatient:      patientIDOffset,
		nextConsultation: consultationIDOffset,
		nextAppointment:  appointmentIDOffset,
		createdAt:        now,
	}
}
