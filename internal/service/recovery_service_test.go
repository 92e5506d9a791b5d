package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinichistory/internal/apperr"
	"clinichistory/internal/models"
	"clinichistory/internal/recovery"
)

type capturedCode struct {
	email string
	name  string
	code  string
}

type captureSender struct {
	mu   sync.Mutex
	sent []capturedCode
	err  error
}

func (c *captureSender) SendRecoveryCode(_ context.Context, toEmail, toName, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, capturedCode{email: toEmail, name: toName, code: code})
	return c.err
}

func (c *captureSender) last() capturedCode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent[len(c.sent)-1]
}

func newRecoveryService(t *testing.T, env *testEnv) (*RecoveryService, *captureSender, *time.Time) {
	t.Helper()
	clock := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	sender := &captureSender{}
	svc := NewRecoveryService(env.users, recovery.NewMemoryStore(), sender, env.sandbox, 0)
	svc.now = func() time.Time { return clock }
	return svc, sender, &clock
}

func TestRequestReset(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "doc@example.com", "secret1", models.RoleDoctor)
	svc, sender, _ := newRecoveryService(t, env)
	ctx := context.Background()

	assert.ErrorIs(t, svc.RequestReset(ctx, ""), apperr.ErrValidation)
	assert.ErrorIs(t, svc.RequestReset(ctx, "nobody@example.com"), apperr.ErrNotFound)

	require.NoError(t, svc.RequestReset(ctx, "doc@example.com"))
	sent := sender.last()
	assert.Equal(t, "doc@example.com", sent.email)
	assert.Equal(t, "Dr. Test", sent.name)
	assert.Len(t, sent.code, 6)
}

func TestRequestResetSendFailureIsInternal(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "doc@example.com", "secret1", models.RoleDoctor)
	svc, sender, _ := newRecoveryService(t, env)
	sender.err = errors.New("relay down")

	err := svc.RequestReset(context.Background(), "doc@example.com")
	assert.Equal(t, 500, apperr.Status(err))
}

func TestResetWithCode(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "doc@example.com", "secret1", models.RoleDoctor)
	svc, sender, _ := newRecoveryService(t, env)
	ctx := context.Background()

	_, err := svc.ResetWithCode(ctx, "doc@example.com", "123456", "newsecret")
	assert.ErrorIs(t, err, apperr.ErrValidation, "no code requested yet")

	require.NoError(t, svc.RequestReset(ctx, "doc@example.com"))
	code := sender.last().code

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = svc.ResetWithCode(ctx, "doc@example.com", wrong, "newsecret")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	demo, err := svc.ResetWithCode(ctx, "doc@example.com", code, "newsecret")
	require.NoError(t, err)
	assert.False(t, demo)

	_, err = env.auth.Login(ctx, "doc@example.com", "newsecret", false, "")
	assert.NoError(t, err)

	_, err = svc.ResetWithCode(ctx, "doc@example.com", code, "another1")
	assert.ErrorIs(t, err, apperr.ErrValidation, "codes are single use")
}

func TestResetWithCodeExpires(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "doc@example.com", "secret1", models.RoleDoctor)
	svc, sender, clock := newRecoveryService(t, env)
	ctx := context.Background()

	require.NoError(t, svc.RequestReset(ctx, "doc@example.com"))
	code := sender.last().code

	*clock = clock.Add(15*time.Minute + time.Second)
	_, err := svc.ResetWithCode(ctx, "doc@example.com", code, "newsecret")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.auth.Login(ctx, "doc@example.com", "secret1", false, "")
	assert.NoError(t, err, "password unchanged")
}

func TestNewCodeSupersedesOld(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "doc@example.com", "secret1", models.RoleDoctor)
	svc, sender, _ := newRecoveryService(t, env)
	ctx := context.Background()

	codes := []string{"111111", "222222"}
	next := 0
	svc.generate = func() (string, error) {
		c := codes[next]
		next++
		return c, nil
	}

	require.NoError(t, svc.RequestReset(ctx, "doc@example.com"))
	require.NoError(t, svc.RequestReset(ctx, "doc@example.com"))
	assert.Equal(t, "222222", sender.last().code)

	_, err := svc.ResetWithCode(ctx, "doc@example.com", "111111", "newsecret")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.ResetWithCode(ctx, "doc@example.com", "222222", "newsecret")
	assert.NoError(t, err)
}

func TestResetWithCodeUserRemoved(t *testing.T) {
	env := newTestEnv(t)
	svc, _, clock := newRecoveryService(t, env)
	ctx := context.Background()

	require.NoError(t, svc.codes.Put(ctx, recovery.Code{Email: "gone@example.com", Code: "123456", ExpiresAt: clock.Add(time.Minute)}))

	_, err := svc.ResetWithCode(ctx, "gone@example.com", "123456", "newsecret")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestResetWithCodeDemoDoesNotPersist(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "demo@historias.com", "secret1", models.RoleDoctor)
	svc, sender, _ := newRecoveryService(t, env)
	ctx := context.Background()

	require.NoError(t, svc.RequestReset(ctx, "demo@historias.com"))
	demo, err := svc.ResetWithCode(ctx, "demo@historias.com", sender.last().code, "newsecret")
	require.NoError(t, err)
	assert.True(t, demo)

	_, err = env.auth.Login(ctx, "demo@historias.com", "secret1", false, "")
	assert.NoError(t, err)
}

func TestResetWithCodeConcurrentUseHasOneWinner(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "doc@example.com", "secret1", models.RoleDoctor)
	svc, sender, _ := newRecoveryService(t, env)
	ctx := context.Background()

	require.NoError(t, svc.RequestReset(ctx, "doc@example.com"))
	code := sender.last().code

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ResetWithCode(ctx, "doc@example.com", code, "newsecret"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

// interleavedCodes runs afterGet once, right after the first Get returns
type interleavedCodes struct {
	recovery.Store
	once     sync.Once
	afterGet func()
}

func (s *interleavedCodes) Get(ctx context.Context, email string) (*recovery.Code, error) {
	c, err := s.Store.Get(ctx, email)
	s.once.Do(s.afterGet)
	return c, err
}

func TestResetWithCodeKeepsCodeIssuedMidReset(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "doc@example.com", "secret1", models.RoleDoctor)
	svc, _, _ := newRecoveryService(t, env)
	ctx := context.Background()

	codes := []string{"111111", "222222"}
	next := 0
	svc.generate = func() (string, error) {
		c := codes[next]
		next++
		return c, nil
	}
	require.NoError(t, svc.RequestReset(ctx, "doc@example.com"))

	interleaved := &interleavedCodes{Store: svc.codes}
	interleaved.afterGet = func() {
		require.NoError(t, svc.RequestReset(ctx, "doc@example.com"))
	}
	svc.codes = interleaved

	_, err := svc.ResetWithCode(ctx, "doc@example.com", "111111", "newsecret")
	assert.ErrorIs(t, err, apperr.ErrValidation, "the old code was superseded before it was consumed")

	_, err = env.auth.Login(ctx, "doc@example.com", "secret1", false, "")
	assert.NoError(t, err, "password unchanged")

	outstanding, err := svc.codes.Get(ctx, "doc@example.com")
	require.NoError(t, err)
	require.NotNil(t, outstanding)
	assert.Equal(t, "222222", outstanding.Code)

	_, err = svc.ResetWithCode(ctx, "doc@example.com", "222222", "newsecret")
	assert.NoError(t, err)
}
