package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/notespace/internal/app/models"
	"github.com/yigit/notespace/internal/app/models/dto"
	"github.com/yigit/notespace/internal/pkg/apperrors"
	"github.com/yigit/notespace/internal/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestErrorResponseFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   dto.ErrorCode
	}{
		{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed},
		{apperrors.ErrEmptyName, http.StatusBadRequest, dto.ErrorCodeValidationFailed},
		{apperrors.ErrNoFiles, http.StatusBadRequest, dto.ErrorCodeBadRequest},
		{apperrors.ErrMetaDocumentNotReady, http.StatusBadRequest, dto.ErrorCodeBadRequest},
		{apperrors.ErrFileTooLarge, http.StatusRequestEntityTooLarge, dto.ErrorCodePayloadTooLarge},
		{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials},
		{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken},
		{apperrors.ErrTokenRevoked, http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
		{apperrors.ErrUnauthorized, http.StatusUnauthorized, dto.ErrorCodeUnauthorized},
		{fmt.Errorf("lookup: %w", apperrors.ErrTopicNotFound), http.StatusNotFound, dto.ErrorCodeResourceNotFound},
		{apperrors.ErrMetaDocumentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
		{apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
		{apperrors.ErrProcessingInProgress, http.StatusConflict, dto.ErrorCodeConflict},
		{fmt.Errorf("%w: queue full", apperrors.ErrPipelineUnavailable), http.StatusServiceUnavailable, dto.ErrorCodeServiceUnavailable},
		{fmt.Errorf("connection refused"), http.StatusInternalServerError, dto.ErrorCodeInternalServer},
	}

	for _, tt := range tests {
		status, resp := ErrorResponseFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, resp.Code, tt.err.Error())
		assert.False(t, resp.Success)
		assert.NotEmpty(t, resp.Error)
	}
}

func TestErrorResponseUsesCustomMessage(t *testing.T) {
	err := apperrors.NewCustomError(apperrors.ErrWeakPassword, "Password must be at least 6 characters").
		WithDetails(map[string]interface{}{"min_length": 6})

	status, resp := ErrorResponseFor(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Password must be at least 6 characters", resp.Error)
	assert.Equal(t, map[string]interface{}{"min_length": 6}, resp.Details)

	_, resp = ErrorResponseFor(fmt.Errorf("secret internals: %w", fmt.Errorf("pq: boom")))
	assert.Equal(t, "Internal server error", resp.Error, "unmapped errors are not leaked")
}

type fakeRevocations map[string]bool

func (f fakeRevocations) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	return f[jti], nil
}

func newJWT(exp time.Duration) *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{SecretKey: "test-secret", AccessTokenExp: exp, TokenIssuer: "notespace"})
}

func protectedRouter(m *AuthMiddleware, optional bool) *gin.Engine {
	r := gin.New()
	handler := m.JWTAuth()
	if optional {
		handler = m.OptionalJWTAuth()
	}
	r.GET("/me", handler, func(c *gin.Context) {
		id, ok := GetUserID(c)
		_, hasClaims := GetClaims(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id, "authenticated": ok && hasClaims})
	})
	return r
}

func doGet(r http.Handler, authHeader string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestJWTAuth(t *testing.T) {
	jwtService := newJWT(time.Hour)
	revoked := fakeRevocations{}
	r := protectedRouter(NewAuthMiddleware(jwtService, revoked), false)

	issued, err := jwtService.GenerateAccessToken(&models.User{ID: 42, Email: "a@b.co"})
	require.NoError(t, err)

	w, body := doGet(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_008", body["code"])

	w, body = doGet(r, "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_005", body["code"])

	w, body = doGet(r, "Bearer "+issued.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(42), body["user_id"])
	assert.Equal(t, true, body["authenticated"])

	revoked[issued.Claims.ID] = true
	w, body = doGet(r, "Bearer "+issued.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token has been revoked", body["error"])
}

func TestJWTAuthExpiredToken(t *testing.T) {
	jwtService := newJWT(-time.Minute)
	r := protectedRouter(NewAuthMiddleware(jwtService, nil), false)

	issued, err := jwtService.GenerateAccessToken(&models.User{ID: 1})
	require.NoError(t, err)

	w, body := doGet(r, "Bearer "+issued.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_006", body["code"])
}

func TestOptionalJWTAuth(t *testing.T) {
	jwtService := newJWT(time.Hour)
	r := protectedRouter(NewAuthMiddleware(jwtService, fakeRevocations{}), true)

	w, body := doGet(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["authenticated"])

	issued, err := jwtService.GenerateAccessToken(&models.User{ID: 5})
	require.NoError(t, err)
	w, body = doGet(r, issued.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code, "bare tokens are accepted")
	assert.Equal(t, float64(5), body["user_id"])

	w, _ = doGet(r, "Bearer x.y.z")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBindJSON(t *testing.T) {
	r := gin.New()
	r.POST("/register", func(c *gin.Context) {
		var req dto.RegisterRequest
		if !BindJSON(c, &req) {
			return
		}
		c.JSON(http.StatusOK, req)
	})

	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(`{"name":"Ann","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, dto.ErrorCodeValidationFailed, body.Code)
	assert.Equal(t, "email is required", body.Error)

	req = httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(`{not json`))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(zerolog.Nop()), Recovery(zerolog.Nop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "SRV_001")
}
