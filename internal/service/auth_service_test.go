package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"recontab/internal/config"
	"recontab/internal/domain"
	"recontab/internal/service"
	"recontab/mocks"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:             "test-secret-key-for-unit-tests",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 168 * time.Hour,
		Issuer:             "recontab-test",
	}
}

func hashPassword(password string) string {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(hash)
}

type authFixture struct {
	tenantRepo *mocks.MockTenantRepo
	userRepo   *mocks.MockUserRepo
	svc        service.AuthService
	tenant     *domain.Tenant
	user       *domain.User
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		tenantRepo: new(mocks.MockTenantRepo),
		userRepo:   new(mocks.MockUserRepo),
	}
	f.svc = service.NewAuthService(f.userRepo, f.tenantRepo, testJWTConfig(), zap.NewNop())
	f.tenant = &domain.Tenant{ID: uuid.New(), Name: "Gabinete Silva", Slug: "gabinete-silva", IsActive: true}
	f.user = &domain.User{
		ID:           uuid.New(),
		TenantID:     f.tenant.ID,
		Email:        "ana@gabinete.pt",
		PasswordHash: hashPassword("password123"),
		FullName:     "Ana Silva",
		Role:         domain.RoleAdmin,
		IsActive:     true,
	}
	return f
}

func (f *authFixture) login() service.LoginInput {
	return service.LoginInput{TenantSlug: f.tenant.Slug, Email: f.user.Email, Password: "password123"}
}

func TestAuthService_Login_Success(t *testing.T) {
	f := newAuthFixture()
	f.tenantRepo.On("GetBySlug", mock.Anything, f.tenant.Slug).Return(f.tenant, nil)
	f.userRepo.On("GetByEmail", mock.Anything, f.tenant.ID, f.user.Email).Return(f.user, nil)

	pair, err := f.svc.Login(context.Background(), f.login())

	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.True(t, pair.ExpiresAt.After(time.Now()))

	claims, err := f.svc.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, claims.UserID)
	assert.Equal(t, f.tenant.ID, claims.TenantID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)

	f.tenantRepo.AssertExpectations(t)
	f.userRepo.AssertExpectations(t)
}

func TestAuthService_Login_InvalidPassword(t *testing.T) {
	f := newAuthFixture()
	f.tenantRepo.On("GetBySlug", mock.Anything, f.tenant.Slug).Return(f.tenant, nil)
	f.userRepo.On("GetByEmail", mock.Anything, f.tenant.ID, f.user.Email).Return(f.user, nil)

	input := f.login()
	input.Password = "wrong-password"
	pair, err := f.svc.Login(context.Background(), input)

	assert.Nil(t, pair)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownTenantOrUser(t *testing.T) {
	f := newAuthFixture()
	f.tenantRepo.On("GetBySlug", mock.Anything, "nonexistent").Return(nil, domain.ErrNotFound)
	f.tenantRepo.On("GetBySlug", mock.Anything, f.tenant.Slug).Return(f.tenant, nil)
	f.userRepo.On("GetByEmail", mock.Anything, f.tenant.ID, "nobody@gabinete.pt").Return(nil, domain.ErrNotFound)

	_, err := f.svc.Login(context.Background(), service.LoginInput{TenantSlug: "nonexistent", Email: "a@b.pt", Password: "password123"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.svc.Login(context.Background(), service.LoginInput{TenantSlug: f.tenant.Slug, Email: "nobody@gabinete.pt", Password: "password123"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthService_Login_Inactive(t *testing.T) {
	f := newAuthFixture()
	f.tenant.IsActive = false
	f.tenantRepo.On("GetBySlug", mock.Anything, f.tenant.Slug).Return(f.tenant, nil)

	_, err := f.svc.Login(context.Background(), f.login())
	assert.ErrorIs(t, err, domain.ErrTenantInactive)

	g := newAuthFixture()
	g.user.IsActive = false
	g.tenantRepo.On("GetBySlug", mock.Anything, g.tenant.Slug).Return(g.tenant, nil)
	g.userRepo.On("GetByEmail", mock.Anything, g.tenant.ID, g.user.Email).Return(g.user, nil)

	_, err = g.svc.Login(context.Background(), g.login())
	assert.ErrorIs(t, err, domain.ErrUserInactive)
}

func TestAuthService_RefreshToken(t *testing.T) {
	f := newAuthFixture()
	f.tenantRepo.On("GetBySlug", mock.Anything, f.tenant.Slug).Return(f.tenant, nil)
	f.userRepo.On("GetByEmail", mock.Anything, f.tenant.ID, f.user.Email).Return(f.user, nil)
	f.userRepo.On("GetByID", mock.Anything, f.tenant.ID, f.user.ID).Return(f.user, nil)

	pair, err := f.svc.Login(context.Background(), f.login())
	require.NoError(t, err)

	refreshed, err := f.svc.RefreshToken(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	// an access token cannot be used to refresh
	_, err = f.svc.RefreshToken(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthService_ValidateToken_RejectsRefreshAndForeignTokens(t *testing.T) {
	f := newAuthFixture()
	f.tenantRepo.On("GetBySlug", mock.Anything, f.tenant.Slug).Return(f.tenant, nil)
	f.userRepo.On("GetByEmail", mock.Anything, f.tenant.ID, f.user.Email).Return(f.user, nil)

	pair, err := f.svc.Login(context.Background(), f.login())
	require.NoError(t, err)

	_, err = f.svc.ValidateToken(pair.RefreshToken)
	assert.Error(t, err)

	other := config.JWTConfig{Secret: "another-secret", AccessTokenExpiry: time.Minute, RefreshTokenExpiry: time.Hour, Issuer: "recontab-test"}
	foreign := service.NewAuthService(f.userRepo, f.tenantRepo, other, zap.NewNop())
	_, err = foreign.ValidateToken(pair.AccessToken)
	assert.Error(t, err)

	_, err = f.svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}
