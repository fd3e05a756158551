package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/survey-pulse-api/internal/models"
	"github.com/noah-isme/survey-pulse-api/pkg/config"
	appErrors "github.com/noah-isme/survey-pulse-api/pkg/errors"
)

type authUserStub struct {
	user    *models.User
	created *models.User
}

func (s *authUserStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user != nil && s.user.Email == email {
		return s.user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authUserStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authUserStub) Create(ctx context.Context, user *models.User) error {
	user.ID = "u1"
	s.created = user
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "survey-pulse", Expiration: time.Hour}
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	users := &authUserStub{}
	svc := NewAuthService(users, testJWTConfig(), nil, nil)

	result, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "owner@example.com",
		Name:     "Owner",
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.NotNil(t, users.created)
	assert.True(t, users.created.Active)
	assert.NotEqual(t, "correct horse", users.created.PasswordHash)

	users.user = users.created
	login, err := svc.Login(context.Background(), LoginRequest{Email: "owner@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)

	claims, err := svc.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "owner@example.com", claims.Email)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	users := &authUserStub{user: &models.User{ID: "u1", Email: "owner@example.com"}}
	svc := NewAuthService(users, testJWTConfig(), nil, nil)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "owner@example.com",
		Name:     "Owner",
		Password: "correct horse",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRegisterValidatesPayload(t *testing.T) {
	svc := NewAuthService(&authUserStub{}, testJWTConfig(), nil, nil)

	_, err := svc.Register(context.Background(), RegisterRequest{Email: "not-an-email", Name: "x", Password: "short"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLoginWrongPassword(t *testing.T) {
	users := &authUserStub{}
	svc := NewAuthService(users, testJWTConfig(), nil, nil)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "owner@example.com",
		Name:     "Owner",
		Password: "correct horse",
	})
	require.NoError(t, err)
	users.user = users.created

	_, err = svc.Login(context.Background(), LoginRequest{Email: "owner@example.com", Password: "wrong horse"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := NewAuthService(&authUserStub{}, testJWTConfig(), nil, nil)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestLoginInactiveUser(t *testing.T) {
	users := &authUserStub{}
	svc := NewAuthService(users, testJWTConfig(), nil, nil)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "owner@example.com",
		Name:     "Owner",
		Password: "correct horse",
	})
	require.NoError(t, err)
	users.user = users.created
	users.user.Active = false

	_, err = svc.Login(context.Background(), LoginRequest{Email: "owner@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc := NewAuthService(&authUserStub{}, testJWTConfig(), nil, nil)

	_, err := svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	other := NewAuthService(&authUserStub{}, config.JWTConfig{Secret: "other-secret", Expiration: time.Hour}, nil, nil)
	result, err := other.Register(context.Background(), RegisterRequest{
		Email:    "owner@example.com",
		Name:     "Owner",
		Password: "correct horse",
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(result.Token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestMe(t *testing.T) {
	users := &authUserStub{user: &models.User{ID: "u1", Email: "owner@example.com"}}
	svc := NewAuthService(users, testJWTConfig(), nil, nil)

	user, err := svc.Me(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", user.Email)

	_, err = svc.Me(context.Background(), "ghost")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
