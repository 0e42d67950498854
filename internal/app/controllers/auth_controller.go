// Package controllers handles HTTP request handling
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/notespace/internal/app/models/dto"
	"github.com/yigit/notespace/internal/app/services"
	"github.com/yigit/notespace/internal/middleware"
	"github.com/yigit/notespace/internal/pkg/apperrors"
)

// AuthController handles authentication related operations
type AuthController struct {
	authService services.AuthService
	logger      zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(authService services.AuthService, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		logger:      logger,
	}
}

// Register handles user registration
// @Summary Register a new user
// @Description Creates an account and returns an access token for it
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "User registration information"
// @Success 200 {object} dto.AuthResponse "User registered"
// @Failure 400 {object} dto.ErrorResponse "Missing fields, invalid email or weak password"
// @Failure 409 {object} dto.ErrorResponse "Email already exists"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if !middleware.BindJSON(ctx, &req) {
		c.logger.Debug().Msg("Invalid registration request payload")
		return
	}

	resp, err := c.authService.Register(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// Login handles user login
// @Summary User login
// @Description Authenticates a user and returns an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.AuthResponse "Login successful"
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.authService.Login(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// Logout revokes the caller's access token
// @Summary Log out
// @Description Revokes the access token used for this request until it expires
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.MessageResponse "Logged out"
// @Failure 401 {object} dto.ErrorResponse "Missing, invalid or revoked token"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	claims, ok := middleware.GetClaims(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrUnauthorized)
		return
	}

	if err := c.authService.Logout(ctx.Request.Context(), claims); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "Logged out successfully"})
}

// Me returns the authenticated user
// @Summary Current user
// @Description Returns the user the access token belongs to
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.CurrentUserResponse
// @Failure 401 {object} dto.ErrorResponse "Missing, invalid or revoked token"
// @Failure 404 {object} dto.ErrorResponse "User no longer exists"
// @Router /auth/me [get]
func (c *AuthController) Me(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrUnauthorized)
		return
	}

	user, err := c.authService.CurrentUser(ctx.Request.Context(), userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.CurrentUserResponse{User: dto.NewUserResponse(user)})
}
