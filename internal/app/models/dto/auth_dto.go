package dto

import "github.com/yigit/notespace/internal/app/models"

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Name     string `json:"name" binding:"required" example:"Ada Lovelace"`
	Email    string `json:"email" binding:"required" example:"ada@example.com"`
	Password string `json:"password" binding:"required" example:"secret123"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"ada@example.com"`
	Password string `json:"password" binding:"required" example:"secret123"`
}

// UserResponse represents basic user information
type UserResponse struct {
	ID        int64  `json:"id" example:"1"`
	Name      string `json:"name" example:"Ada Lovelace"`
	Email     string `json:"email" example:"ada@example.com"`
	CreatedAt string `json:"created_at" example:"2025-01-15T10:00:00.000000Z"`
}

// AuthResponse represents a successful registration or login
type AuthResponse struct {
	Message     string        `json:"message" example:"Login successful"`
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type" example:"Bearer"`
	ExpiresIn   int           `json:"expires_in" example:"86400"`
	User        *UserResponse `json:"user"`
}

// CurrentUserResponse wraps the authenticated user
type CurrentUserResponse struct {
	User *UserResponse `json:"user"`
}

// NewUserResponse converts a user model
func NewUserResponse(u *models.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.UTC().Format(timeFormat),
	}
}
