package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/survey-pulse-api/internal/models"
	"github.com/noah-isme/survey-pulse-api/pkg/config"
	appErrors "github.com/noah-isme/survey-pulse-api/pkg/errors"
)

type authUserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// RegisterRequest is the signup payload.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the credentials payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult carries the signed token and the user it represents.
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type authClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AuthService issues and validates the HS256 session tokens survey
// owners authenticate with.
type AuthService struct {
	users    authUserStore
	cfg      config.JWTConfig
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAuthService wires the service.
func NewAuthService(users authUserStore, cfg config.JWTConfig, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, cfg: cfg, validate: validate, logger: logger}
}

// Register creates a user and signs them in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.FromError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	user := &models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.FromError(err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return s.issueToken(user)
}

// Login verifies credentials and signs a token.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.FromError(err)
	}
	if !user.Active {
		return nil, appErrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}

	return s.issueToken(user)
}

// Me returns the authenticated user's profile.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

// ValidateToken parses and verifies a bearer token.
func (s *AuthService) ValidateToken(token string) (*models.TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &authClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, appErrors.ErrUnauthorized
	}
	claims, ok := parsed.Claims.(*authClaims)
	if !ok || claims.Subject == "" {
		return nil, appErrors.ErrUnauthorized
	}
	return &models.TokenClaims{UserID: claims.Subject, Email: claims.Email}, nil
}

func (s *AuthService) issueToken(user *models.User) (*AuthResult, error) {
	now := time.Now().UTC()
	expires := now.Add(s.cfg.Expiration)

	claims := authClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return &AuthResult{Token: token, ExpiresAt: expires, User: user}, nil
}
