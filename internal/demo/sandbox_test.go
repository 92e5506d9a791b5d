package demo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinichistory/internal/apperr"
	"clinichistory/internal/models"
	"clinichistory/internal/records"
)

func newTestSandbox(now time.Time) (*Sandbox, *time.Time) {
	clock := now
	s := NewSandbox([]string{"Demo@Historias.com", " test@historias.com "}, 0)
	s.now = func() time.Time { return clock }
	return s, &clock
}

func TestIsDemo(t *testing.T) {
	s, _ := newTestSandbox(time.Now())

	tests := []struct {
		email string
		want  bool
	}{
		{"demo@historias.com", true},
		{"DEMO@HISTORIAS.COM", true},
		{"test@historias.com", true},
		{"doctor@clinic.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, s.IsDemo(tt.email))
		})
	}
}

func TestLazySeed(t *testing.T) {
	s, _ := newTestSandbox(time.Now())
	ctx := context.Background()

	assert.False(t, s.Has(7))
	store := s.ForUser(7)
	assert.False(t, s.Has(7), "ForUser alone does not seed")

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, records.Counts{Patients: 2, Consultations: 2, Appointments: 2}, counts)
	assert.True(t, s.Has(7))

	p, err := store.GetPatientByDocument(ctx, "12345678")
	require.NoError(t, err)
	assert.Equal(t, "Juan", p.FirstName)
	assert.True(t, p.Demo)
}

func TestGeneratedIDsStartAtOffsets(t *testing.T) {
	s, _ := newTestSandbox(time.Now())
	ctx := context.Background()
	store := s.ForUser(1)

	p := &models.Patient{FirstName: "Ana", LastName: "Ruiz", Document: "555"}
	require.NoError(t, store.CreatePatient(ctx, p))
	assert.Equal(t, int64(1001), p.ID)

	c := &models.Consultation{PatientID: p.ID, Reason: "Chequeo"}
	require.NoError(t, store.CreateConsultation(ctx, c))
	assert.Equal(t, int64(2001), c.ID)

	a := &models.Appointment{PatientID: &p.ID, Day: "2024-11-01", Time: "10:00", Status: models.StatusPending}
	require.NoError(t, store.CreateAppointment(ctx, a))
	assert.Equal(t, int64(3001), a.ID)

	p2 := &models.Patient{FirstName: "Luis", LastName: "Sosa", Document: "556"}
	require.NoError(t, store.CreatePatient(ctx, p2))
	assert.Equal(t, int64(1002), p2.ID)
}

func TestSweepPurgesAndReseeds(t *testing.T) {
	start := time.Date(2024, 10, 1, 8, 0, 0, 0, time.UTC)
	s, clock := newTestSandbox(start)
	ctx := context.Background()
	store := s.ForUser(1)

	p := &models.Patient{FirstName: "Ana", LastName: "Ruiz"}
	require.NoError(t, store.CreatePatient(ctx, p))
	require.Equal(t, int64(1001), p.ID)

	assert.Equal(t, 0, s.Sweep(start.Add(time.Hour)), "young entries survive")
	assert.True(t, s.Has(1))

	assert.Equal(t, 1, s.Sweep(start.Add(2*time.Hour+time.Minute)))
	assert.False(t, s.Has(1))

	*clock = start.Add(3 * time.Hour)
	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Patients, "fixtures come back after a purge")

	p2 := &models.Patient{FirstName: "Luis", LastName: "Sosa"}
	require.NoError(t, store.CreatePatient(ctx, p2))
	assert.Equal(t, int64(1001), p2.ID, "counters restart at their offsets")
}

func TestSweepIgnoresActivity(t *testing.T) {
	start := time.Date(2024, 10, 1, 8, 0, 0, 0, time.UTC)
	s, _ := newTestSandbox(start)
	ctx := context.Background()
	store := s.ForUser(1)

	_, err := store.ListPatients(ctx, "")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := store.ListPatients(ctx, "")
		require.NoError(t, err)
	}

	assert.Equal(t, 1, s.Sweep(start.Add(2*time.Hour+time.Second)))
}

func TestClear(t *testing.T) {
	s, _ := newTestSandbox(time.Now())
	_, err := s.ForUser(1).Counts(context.Background())
	require.NoError(t, err)
	_, err = s.ForUser(2).Counts(context.Background())
	require.NoError(t, err)

	s.Clear(1)
	s.Clear(99)

	assert.False(t, s.Has(1))
	assert.True(t, s.Has(2))
	assert.Equal(t, 1, s.Len())
}

func TestUsersAreIsolated(t *testing.T) {
	s, _ := newTestSandbox(time.Now())
	ctx := context.Background()

	require.NoError(t, s.ForUser(1).DeletePatient(ctx, 1))

	_, err := s.ForUser(1).GetPatient(ctx, 1)
	assert.ErrorIs(t, err, records.ErrPatientNotFound)

	p, err := s.ForUser(2).GetPatient(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Juan", p.FirstName)
}

func TestNotFoundMatchesDurableErrors(t *testing.T) {
	s, _ := newTestSandbox(time.Now())
	ctx := context.Background()
	store := s.ForUser(1)

	_, err := store.GetPatient(ctx, 404)
	assert.ErrorIs(t, err, records.ErrPatientNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.ErrorIs(t, store.DeleteConsultation(ctx, 404), records.ErrConsultationNotFound)
	assert.ErrorIs(t, store.UpdateAppointmentStatus(ctx, 404, models.StatusAttended), records.ErrAppointmentNotFound)

	err = store.CreateConsultation(ctx, &models.Consultation{PatientID: 404, Reason: "x"})
	assert.ErrorIs(t, err, records.ErrPatientNotFound)

	err = store.CreatePatient(ctx, &models.Patient{FirstName: "A", LastName: "B", Document: "12345678"})
	assert.ErrorIs(t, err, records.ErrDuplicateDocument)
	assert.Equal(t, 409, apperr.Status(err))
}

func TestFilters(t *testing.T) {
	s, _ := newTestSandbox(time.Now())
	ctx := context.Background()
	store := s.ForUser(1)

	patients, err := store.ListPatients(ctx, "gonz")
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, "María", patients[0].FirstName)

	consultations, err := store.ListConsultations(ctx, records.ConsultationFilter{Day: "2024-10-21"})
	require.NoError(t, err)
	require.Len(t, consultations, 1)
	assert.Equal(t, int64(2), consultations[0].PatientID)

	all, err := store.ListConsultations(ctx, records.ConsultationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(2), all[0].ID, "newest first")

	appointments, err := store.ListAppointments(ctx, records.AppointmentFilter{PatientID: 1})
	require.NoError(t, err)
	require.Len(t, appointments, 1)
	assert.Equal(t, models.StatusConfirmed, appointments[0].Status)
}

func TestReturnedAppointmentsAreCopies(t *testing.T) {
	s, _ := newTestSandbox(time.Now())
	ctx := context.Background()
	store := s.ForUser(1)

	a, err := store.GetAppointment(ctx, 1)
	require.NoError(t, err)
	*a.PatientID = 99

	again, err := store.GetAppointment(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), *again.PatientID)
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	s, _ := newTestSandbox(time.Now())
	ctx := context.Background()

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a := &models.Appointment{Day: "2024-12-01", Time: "08:00", Status: models.StatusPending}
			assert.NoError(t, s.ForUser(1).CreateAppointment(ctx, a))
		}()
	}
	wg.Wait()

	counts, err := s.ForUser(1).Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2+writers, counts.Appointments)

	seen := map[int64]bool{}
	list, err := s.ForUser(1).ListAppointments(ctx, records.AppointmentFilter{})
	require.NoError(t, err)
	for _, a := range list {
		assert.False(t, seen[a.ID], "duplicate id %d", a.ID)
		seen[a.ID] = true
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _ := newTestSandbox(time.Now())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
