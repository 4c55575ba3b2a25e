package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/chulseok-go-api/internal/dto"
	"github.com/noah-isme/chulseok-go-api/internal/models"
	"github.com/noah-isme/chulseok-go-api/internal/repository"
)

var (
	// ErrInvalidCredentials indicates an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates a missing, malformed, expired or orphaned token.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Bootstrap admin account. A deployment convenience, not a security
// control: rotate the password after first login.
const (
	bootstrapAdminID       = "A0001"
	bootstrapAdminPassword = "admin1234"
	bootstrapAdminName     = "관리자"
)

// AuthService authenticates users and issues/resolves access tokens.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error)
	Authenticate(ctx context.Context, externalID, password string) (models.User, error)
	IssueToken(user models.User) (string, error)
	ResolveToken(ctx context.Context, tokenString string) (models.User, error)
	// EnsureAdmin creates the well-known admin account when no user owns
	// its external id yet. Safe to call on every boot.
	EnsureAdmin(ctx context.Context) error
}

type authService struct {
	users    repository.UserRepository
	secret   []byte
	tokenTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAuthService builds the authentication service.
func NewAuthService(users repository.UserRepository, secret string, tokenTTL time.Duration, logger zerolog.Logger) AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 30 * time.Minute
	}
	return &authService{
		users:    users,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		logger:   logger.With().Str("component", "auth_service").Logger(),
		now:      time.Now,
	}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	user, err := s.Authenticate(ctx, req.UserID, req.Password)
	if err != nil {
		return dto.LoginResponse{}, err
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return dto.LoginResponse{}, err
	}

	return dto.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		Role:        string(user.Role),
		Name:        user.Name,
	}, nil
}

func (s *authService) Authenticate(ctx context.Context, externalID, password string) (models.User, error) {
	user, err := s.users.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	return user, nil
}

func (s *authService) IssueToken(user models.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  user.ExternalID,
		"role": string(user.Role),
		"name": user.Name,
		"iat":  now.Unix(),
		"exp":  now.Add(s.tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

func (s *authService) ResolveToken(ctx context.Context, tokenString string) (models.User, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return models.User{}, ErrUnauthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.User{}, ErrUnauthenticated
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return models.User{}, ErrUnauthenticated
	}

	// The subject must still exist; tokens outlive roster changes.
	user, err := s.users.GetByExternalID(ctx, subject)
	if err != nil {
		return models.User{}, ErrUnauthenticated
	}

	return user, nil
}

func (s *authService) EnsureAdmin(ctx context.Context) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(bootstrapAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	admin := models.User{
		ExternalID:   bootstrapAdminID,
		PasswordHash: string(hash),
		Name:         bootstrapAdminName,
		Role:         models.RoleAdmin,
	}

	_, created, err := s.users.GetOrCreate(ctx, admin)
	if err != nil {
		return fmt.Errorf("failed to ensure admin account: %w", err)
	}

	if created {
		s.logger.Warn().Str("external_id", bootstrapAdminID).
			Msg("bootstrap admin created with default password, rotate it")
	}

	return nil
}
