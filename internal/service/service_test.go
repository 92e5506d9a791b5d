package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"clinichistory/internal/database"
	"clinichistory/internal/demo"
	"clinichistory/internal/models"
	"clinichistory/internal/repository"
	"clinichistory/internal/security"
)

type testEnv struct {
	db       *database.DB
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	sandbox  *demo.Sandbox
	auth     *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "clinic.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		db:       db,
		users:    repository.NewUserRepository(db),
		sessions: repository.NewSessionRepository(db),
		sandbox:  demo.NewSandbox([]string{"demo@historias.com"}, 0),
	}
	env.auth = NewAuthService(env.users, env.sessions, env.sandbox, 24*time.Hour, 30*24*time.Hour)
	return env
}

func (e *testEnv) createUser(t *testing.T, email, password string, role models.Role) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password)
	require.NoError(t, err)
	user, err := e.users.CreateUser(context.Background(), email, hash, "Dr. Test", role)
	require.NoError(t, err)
	return user
}

type fakeSessionStore struct {
	sessions map[string]models.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]models.Session{}}
}

func (f *fakeSessionStore) Save(_ context.Context, s *models.Session) error {
	f.sessions[s.ID] = *s
	return nil
}

func (f *fakeSessionStore) Get(_ context.Context, id string) (*models.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeSessionStore) Delete(_ context.Context, id string) error {
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for id, s := range f.sessions {
		if s.ExpiredAt(now) {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}
