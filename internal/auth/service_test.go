package auth

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nmoralesdev/storefront-backend/internal/users"
	pkgauth "github.com/nmoralesdev/storefront-backend/pkg/auth"
	"github.com/nmoralesdev/storefront-backend/pkg/config"
	"github.com/nmoralesdev/storefront-backend/pkg/enums"
	pkgerrors "github.com/nmoralesdev/storefront-backend/pkg/errors"
	"github.com/nmoralesdev/storefront-backend/pkg/security"
)

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Named per test so the shared-cache database is not reused across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.Exec(`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  name TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'customer',
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	require.NoError(t, conn.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (email);`).Error)
	return conn
}

type recordingSessions struct {
	started []string
	revoked []string
	fail    bool
}

func (s *recordingSessions) Start(_ context.Context, accessID string, _ uuid.UUID) error {
	if s.fail {
		return fmt.Errorf("redis unavailable")
	}
	s.started = append(s.started, accessID)
	return nil
}

func (s *recordingSessions) Revoke(_ context.Context, accessID string) error {
	if s.fail {
		return fmt.Errorf("redis unavailable")
	}
	s.revoked = append(s.revoked, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "storefront-test", ExpirationMinutes: 60}
}

func testPasswordConfig() config.PasswordConfig {
	// Cheap parameters so hashing does not dominate the test run.
	return config.PasswordConfig{ArgonMemoryKB: 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
}

func buildAuthTestService(t *testing.T) (Service, *users.Repository, *recordingSessions) {
	t.Helper()

	repo := users.NewRepository(setupAuthTestDB(t))
	sessions := &recordingSessions{}
	svc, err := NewService(repo, sessions, testJWTConfig(), testPasswordConfig())
	require.NoError(t, err)
	return svc, repo, sessions
}

func TestRegisterIssuesTokenAndSession(t *testing.T) {
	svc, repo, sessions := buildAuthTestService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterInput{
		Email:    "  Jordan@Example.COM ",
		Name:     "Jordan Ruiz",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "jordan@example.com", result.User.Email)
	assert.Equal(t, string(enums.UserRoleCustomer), result.User.Role)
	assert.True(t, result.User.IsActive)
	assert.NotEqual(t, uuid.Nil, result.User.ID)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, "jordan@example.com", claims.Email)
	assert.Equal(t, enums.UserRoleCustomer, claims.Role)

	require.Len(t, sessions.started, 1)
	assert.Equal(t, claims.ID, sessions.started[0])

	row, err := repo.FindByEmail(ctx, "jordan@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery", row.PasswordHash)
	ok, err := security.VerifyPassword("correct horse battery", row.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegisterValidatesInput(t *testing.T) {
	svc, _, _ := buildAuthTestService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input RegisterInput
	}{
		{"missing email", RegisterInput{Name: "Jordan", Password: "long enough pw"}},
		{"missing name", RegisterInput{Email: "a@b.com", Password: "long enough pw"}},
		{"short password", RegisterInput{Email: "a@b.com", Name: "Jordan", Password: "short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.input)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := buildAuthTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "dup@example.com", Name: "First", Password: "long enough pw"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Email: "DUP@example.com", Name: "Second", Password: "long enough pw"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	assert.Equal(t, "email already registered", typed.Message())
}

func TestLogin(t *testing.T) {
	svc, repo, sessions := buildAuthTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "shopper@example.com", Name: "Shopper", Password: "long enough pw"})
	require.NoError(t, err)

	result, err := svc.Login(ctx, LoginInput{Email: "Shopper@Example.com", Password: "long enough pw"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Len(t, sessions.started, 2)

	row, err := repo.FindByEmail(ctx, "shopper@example.com")
	require.NoError(t, err)
	assert.NotNil(t, row.LastLoginAt)
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, _, _ := buildAuthTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "shopper@example.com", Name: "Shopper", Password: "long enough pw"})
	require.NoError(t, err)

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "long enough pw"})
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
		assert.Equal(t, "invalid email or password", typed.Message())
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{Email: "shopper@example.com", Password: "not the password"})
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
	})
}

func TestLoginDisabledAccount(t *testing.T) {
	svc, repo, _ := buildAuthTestService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterInput{Email: "banned@example.com", Name: "Banned", Password: "long enough pw"})
	require.NoError(t, err)

	row, err := repo.FindByID(ctx, result.User.ID)
	require.NoError(t, err)
	row.IsActive = false
	_, err = repo.Save(ctx, row)
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{Email: "banned@example.com", Password: "long enough pw"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _, sessions := buildAuthTestService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterInput{Email: "out@example.com", Name: "Out", Password: "long enough pw"})
	require.NoError(t, err)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), result.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, claims.ID))
	require.Len(t, sessions.revoked, 1)
	assert.Equal(t, claims.ID, sessions.revoked[0])
}

func TestMe(t *testing.T) {
	svc, _, _ := buildAuthTestService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterInput{Email: "me@example.com", Name: "Me", Password: "long enough pw"})
	require.NoError(t, err)

	dto, err := svc.Me(ctx, result.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", dto.Email)

	_, err = svc.Me(ctx, uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
