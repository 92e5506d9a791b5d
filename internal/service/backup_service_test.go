package service

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinichistory/internal/apperr"
	"clinichistory/internal/models"
	"clinichistory/internal/repository"
)

func TestBackupExportsOnlyOwnerRecords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "doc@example.com", "secret1", models.RoleDoctor)
	other := env.createUser(t, "other@example.com", "secret1", models.RoleDoctor)

	recordRepo := repository.NewRecordRepository(env.db)
	require.NoError(t, recordRepo.ForUser(owner.ID).CreatePatient(ctx, &models.Patient{FirstName: "Ana", LastName: "Ruiz", Document: "1"}))
	require.NoError(t, recordRepo.ForUser(other.ID).CreatePatient(ctx, &models.Patient{FirstName: "Luis", LastName: "Sosa", Document: "2"}))
	require.NoError(t, recordRepo.ForUser(owner.ID).CreateAppointment(ctx, &models.Appointment{Day: "2024-11-05", Time: "09:00", Status: models.StatusPending}))

	backup := NewBackupService(env.users, recordRepo)
	var buf bytes.Buffer
	require.NoError(t, backup.Export(ctx, "doc@example.com", &buf))

	var data BackupData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, BackupVersion, data.Version)
	assert.Equal(t, "doc@example.com", data.Owner.Email)
	require.Len(t, data.Patients, 1)
	assert.Equal(t, "Ana", data.Patients[0].FirstName)
	assert.Len(t, data.Appointments, 1)
	assert.Empty(t, data.Consultations)
}

func TestBackupUnknownOwner(t *testing.T) {
	env := newTestEnv(t)
	backup := NewBackupService(env.users, repository.NewRecordRepository(env.db))

	err := backup.Export(context.Background(), "nobody@example.com", &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
