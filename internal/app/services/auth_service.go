package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/notespace/internal/app/models"
	"github.com/yigit/notespace/internal/app/models/dto"
	"github.com/yigit/notespace/internal/app/repositories"
	"github.com/yigit/notespace/internal/pkg/apperrors"
	"github.com/yigit/notespace/internal/pkg/auth"
	"github.com/yigit/notespace/internal/pkg/validation"
)

// AuthService handles authentication operations
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	CurrentUser(ctx context.Context, userID int64) (*models.User, error)
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	CleanupRevokedTokens(ctx context.Context) (int64, error)
}

type authServiceImpl struct {
	userRepo          repositories.IUserRepository
	tokenRepo         repositories.ITokenRepository
	jwtService        *auth.JWTService
	hasher            *auth.PasswordHasher
	minPasswordLength int
	logger            zerolog.Logger
	now               func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo repositories.IUserRepository,
	tokenRepo repositories.ITokenRepository,
	jwtService *auth.JWTService,
	hasher *auth.PasswordHasher,
	minPasswordLength int,
	logger zerolog.Logger,
) AuthService {
	if minPasswordLength < 1 {
		minPasswordLength = validation.PasswordMinLength
	}
	return &authServiceImpl{
		userRepo:          userRepo,
		tokenRepo:         tokenRepo,
		jwtService:        jwtService,
		hasher:            hasher,
		minPasswordLength: minPasswordLength,
		logger:            logger,
		now:               time.Now,
	}
}

// Register creates an account and signs the user in
func (s *authServiceImpl) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := validation.NormalizeEmail(req.Email)

	if name == "" || email == "" || req.Password == "" {
		return nil, apperrors.NewValidationError("Name, email and password are required")
	}
	if !validation.IsValidUserName(name) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("Name must be at most %d characters", validation.UserNameMaxLength))
	}
	if !validation.IsValidEmail(email) {
		return nil, apperrors.NewValidationError("Invalid email format")
	}
	if !validation.IsStrongPassword(req.Password, s.minPasswordLength) {
		return nil, apperrors.NewCustomError(apperrors.ErrWeakPassword,
			fmt.Sprintf("Password must be at least %d characters", s.minPasswordLength))
	}

	exists, err := s.userRepo.EmailExists(ctx, email)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to check email availability")
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, apperrors.ErrEmailAlreadyExists
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if !errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			s.logger.Error().Err(err).Str("email", email).Msg("Failed to create user")
		}
		return nil, err
	}

	s.logger.Info().Int64("userID", user.ID).Msg("User registered")
	return s.issue(user, "User registered successfully")
}

// Login verifies credentials and returns a fresh token
func (s *authServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	email := validation.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, apperrors.NewValidationError("Email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Check(user.PasswordHash, req.Password) {
		s.logger.Debug().Int64("userID", user.ID).Msg("Password mismatch")
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.issue(user, "Login successful")
}

func (s *authServiceImpl) issue(user *models.User, message string) (*dto.AuthResponse, error) {
	token, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		s.logger.Error().Err(err).Int64("userID", user.ID).Msg("Failed to generate access token")
		return nil, err
	}

	return &dto.AuthResponse{
		Message:     message,
		AccessToken: token.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   token.ExpiresIn,
		User:        dto.NewUserResponse(user),
	}, nil
}

// Logout revokes the token the claims were parsed from until it expires
func (s *authServiceImpl) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" {
		return apperrors.ErrTokenInvalid
	}

	expiresAt := s.now()
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := s.tokenRepo.Revoke(ctx, &models.RevokedToken{
		JTI:       claims.ID,
		UserID:    claims.UserID,
		ExpiresAt: expiresAt,
	}); err != nil {
		return err
	}

	s.logger.Info().Int64("userID", claims.UserID).Msg("User logged out")
	return nil
}

// CurrentUser returns the authenticated user's record
func (s *authServiceImpl) CurrentUser(ctx context.Context, userID int64) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// IsTokenRevoked reports whether a token ID was logged out
func (s *authServiceImpl) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return s.tokenRepo.IsRevoked(ctx, jti)
}

// CleanupRevokedTokens drops revocations of tokens that have expired anyway
func (s *authServiceImpl) CleanupRevokedTokens(ctx context.Context) (int64, error) {
	n, err := s.tokenRepo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Int64("count", n).Msg("Purged expired token revocations")
	}
	return n, nil
}
