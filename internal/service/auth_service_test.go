package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nclexkeys/backend/internal/model"
	"nclexkeys/backend/internal/repository"
	jwtpkg "nclexkeys/backend/pkg/jwt"
)

type authFixture struct {
	codes *codeFixture
	users repository.UserRepository
	state repository.StateStore
	jwt   *jwtpkg.Manager
	svc   AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	codes := newCodeFixture(t)
	f := &authFixture{
		codes: codes,
		users: repository.NewPGUserRepository(codes.db),
		state: repository.NewMemoryStateStore(),
		jwt:   jwtpkg.NewManager("test-signing-key", "nclexkeys", time.Hour, 24*time.Hour),
	}
	f.svc = NewAuthService(f.users, codes.svc, codes.tx, f.state, f.jwt, codes.mailer, zap.NewNop(), "https://app.example.com/")
	return f
}

func (f *authFixture) register(t *testing.T, email string) (*model.User, *model.RegistrationCode) {
	t.Helper()
	rc := createNigeriaCode(t, f.codes)
	user, err := f.svc.Register(context.Background(), RegisterInput{
		Email:            email,
		Password:         "correct-horse",
		FullName:         "Ada Obi",
		RegistrationCode: rc.Code,
	})
	require.NoError(t, err)
	return user, rc
}

func TestRegisterConsumesCode(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, rc := f.register(t, " Ada@Example.com ")
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, model.RoleStudent, user.Role)
	assert.Equal(t, model.ProgramNigeria, user.Program)

	stored, err := f.codes.repo.GetByCode(ctx, rc.Code)
	require.NoError(t, err)
	assert.True(t, stored.IsUsed)
	assert.Equal(t, user.ID, *stored.UsedBy)

	sent := f.codes.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Body, "https://app.example.com/verify-email?token=")
}

func TestRegisterRollsBackOnDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, "ada@example.com")

	rc := createNigeriaCode(t, f.codes)
	_, err := f.svc.Register(ctx, RegisterInput{
		Email: "ADA@example.com", Password: "correct-horse", RegistrationCode: rc.Code,
	})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)

	stored, err := f.codes.repo.GetByCode(ctx, rc.Code)
	require.NoError(t, err)
	assert.False(t, stored.IsUsed, "code must stay unused when registration fails")
}

func TestRegisterRejectsUsedCode(t *testing.T) {
	f := newAuthFixture(t)
	_, rc := f.register(t, "first@example.com")

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email: "second@example.com", Password: "correct-horse", RegistrationCode: rc.Code,
	})
	assert.ErrorIs(t, err, ErrCodeUsed)

	_, err = f.users.GetByEmail(context.Background(), "second@example.com")
	assert.Error(t, err)
}

func TestLoginRefreshLogout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user, _ := f.register(t, "ada@example.com")

	_, err := f.svc.Login(ctx, "ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	tokens, err := f.svc.Login(ctx, "ADA@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, int64(3600), tokens.ExpiresIn)

	claims, err := f.jwt.Validate(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, "student", claims.Role)

	_, err = f.svc.RefreshToken(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)

	rotated, err := f.svc.RefreshToken(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	_, err = f.svc.RefreshToken(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid, "refresh tokens are single use")

	require.NoError(t, f.svc.Logout(ctx, rotated.RefreshToken))
	_, err = f.svc.RefreshToken(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)
}

// barrierStore holds every Take until the expected number of callers arrive,
// so concurrent refreshes hit the store at the same moment.
type barrierStore struct {
	repository.StateStore
	arrived sync.WaitGroup
}

func (s *barrierStore) Take(ctx context.Context, key string) (bool, error) {
	s.arrived.Done()
	s.arrived.Wait()
	return s.StateStore.Take(ctx, key)
}

func TestRefreshTokenConcurrentRotationSingleWinner(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, "ada@example.com")

	const callers = 2
	store := &barrierStore{StateStore: f.state}
	store.arrived.Add(callers)
	svc := NewAuthService(f.users, f.codes.svc, f.codes.tx, store, f.jwt, f.codes.mailer, zap.NewNop(), "")

	tokens, err := svc.Login(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RefreshToken(ctx, tokens.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrRefreshTokenInvalid):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, rejected)
}

func TestLoginRejectsDisabledUser(t *testing.T) {
	f := newAuthFixture(t)
	user, _ := f.register(t, "ada@example.com")
	user.Status = model.UserStatusDisabled
	require.NoError(t, f.users.Update(context.Background(), user))

	_, err := f.svc.Login(context.Background(), "ada@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrUserDisabled)
}

func TestVerifyEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user, _ := f.register(t, "ada@example.com")

	body := f.codes.mailer.Sent()[0].Body
	start := strings.Index(body, "token=") + len("token=")
	token := strings.Fields(body[start:])[0]

	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, "bogus"), ErrVerificationInvalid)
	require.NoError(t, f.svc.VerifyEmail(ctx, token))

	me, err := f.svc.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, me.IsEmailVerified)

	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, token), ErrVerificationInvalid, "tokens are single use")
}
