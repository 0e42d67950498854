package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/notespace/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	cfg.Server.Mode = "production"
	cfg.Storage.LocalPath = t.TempDir()
	cfg.Summarizer.Provider = "noop"
	return cfg
}

func TestBuildDependenciesAndRouter(t *testing.T) {
	cfg := testConfig(t)

	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>app</html>"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(static, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(static, "assets", "app.js"), []byte("console.log(1)"), 0o600))
	cfg.Server.StaticDir = static

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	deps, err := BuildDependencies(context.Background(), cfg, mock, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "noop", deps.Summarizer.Name())
	require.NotNil(t, deps.Controllers.MetaDocument)

	router := SetupRouter(cfg, deps, zerolog.Nop())

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = get("/topics/42")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<html>app</html>", w.Body.String())

	w = get("/assets/app.js")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log(1)", w.Body.String())

	w = get("/api/unknown")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "RES_001")

	// Protected routes reject anonymous callers before touching the database
	req := httptest.NewRequest(http.MethodPost, "/api/upload/4/upvote", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCorsConfig(t *testing.T) {
	c := corsConfig([]string{"http://localhost:3000"})
	assert.Equal(t, []string{"http://localhost:3000"}, c.AllowOrigins)
	assert.True(t, c.AllowCredentials)

	assert.True(t, corsConfig([]string{"*"}).AllowAllOrigins)
	assert.True(t, corsConfig(nil).AllowAllOrigins)
}

func TestNewFileStorageLocal(t *testing.T) {
	cfg := testConfig(t)
	storage, err := NewFileStorage(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, storage)
}
