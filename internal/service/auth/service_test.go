package auth

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskmate/internal/model"
	"taskmate/internal/repository"
)

type memUsers struct {
	byEmail map[string]*model.User
	nextID  int
	// 模拟唯一索引冲突
	conflict bool
}

func newMemUsers() *memUsers { return &memUsers{byEmail: map[string]*model.User{}} }

func (m *memUsers) CreateUser(_ context.Context, u *model.User) error {
	if m.conflict {
		return &pgconn.PgError{Code: "23505"}
	}
	m.nextID++
	u.ID = m.nextID
	cp := *u
	m.byEmail[u.Email] = &cp
	return nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func newTestService(users UserStore) *Service {
	return NewService(users, "test-secret", time.Hour, zap.NewNop())
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(newMemUsers())
	ctx := context.Background()

	u, err := svc.Register(ctx, "  Alice@Example.com ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEqual(t, "correct horse", u.PasswordHash)

	token, logged, err := svc.Login(ctx, "alice@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)

	userID, err := svc.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)
}

func TestRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	users := newMemUsers()
	svc := newTestService(users)
	ctx := context.Background()

	_, err := svc.Register(ctx, "bob@example.com", "password1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "BOB@example.com", "password2")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Register(ctx, "not-an-email", "password1")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Register(ctx, "carol@example.com", "short")
	assert.ErrorIs(t, err, ErrInvalidInput)

	users.conflict = true
	_, err = svc.Register(ctx, "dave@example.com", "password1")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginFailures(t *testing.T) {
	svc := newTestService(newMemUsers())
	ctx := context.Background()
	_, err := svc.Register(ctx, "erin@example.com", "password1")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "erin@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody@example.com", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate("")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate("garbage")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	other := NewService(newMemUsers(), "other-secret", time.Hour, zap.NewNop())
	token, _, err := svc.Login(ctx, "erin@example.com", "password1")
	require.NoError(t, err)
	_, err = other.Authenticate(token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
