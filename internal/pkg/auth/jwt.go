package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/yigit/notespace/internal/app/models"
	"github.com/yigit/notespace/internal/pkg/apperrors"
)

// JWTConfig defines JWT configuration settings
type JWTConfig struct {
	SecretKey      string
	AccessTokenExp time.Duration
	TokenIssuer    string
}

// JWTService handles JWT operations
type JWTService struct {
	config JWTConfig
	now    func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{
		config: config,
		now:    time.Now,
	}
}

// Claims defines JWT token content
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed access token and the claims it carries
type IssuedToken struct {
	AccessToken string
	ExpiresIn   int
	Claims      *Claims
}

// GenerateAccessToken signs a new HS256 access token for the user. Every
// token carries a random jti so it can be revoked individually.
func (s *JWTService) GenerateAccessToken(user *models.User) (*IssuedToken, error) {
	now := s.now()

	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTokenExp)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.config.TokenIssuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	return &IssuedToken{
		AccessToken: signed,
		ExpiresIn:   int(s.config.AccessTokenExp.Seconds()),
		Claims:      claims,
	}, nil
}

// ValidateToken parses and verifies a token string
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, apperrors.ErrTokenInvalid
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.SecretKey), nil
	},
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, apperrors.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidFormat, err)
		default:
			return nil, fmt.Errorf("%w: %v", apperrors.ErrTokenInvalid, err)
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.ErrTokenInvalid
	}

	if claims.UserID <= 0 || claims.ID == "" {
		return nil, apperrors.ErrTokenInvalid
	}

	if s.config.TokenIssuer != "" && claims.Issuer != s.config.TokenIssuer {
		return nil, apperrors.ErrTokenInvalid
	}

	return claims, nil
}

// ExtractBearerToken extracts the token from the Authorization header.
// A bare token without the "Bearer " prefix is accepted as well.
func ExtractBearerToken(authHeader string) (string, error) {
	authHeader = strings.TrimSpace(strings.Trim(authHeader, "\"'"))
	if authHeader == "" {
		return "", apperrors.ErrInvalidFormat
	}

	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "bearer ") {
		authHeader = strings.TrimSpace(authHeader[7:])
	}

	if strings.Count(authHeader, ".") != 2 {
		return "", apperrors.ErrInvalidFormat
	}

	return authHeader, nil
}
