package helpers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/notespace/internal/pkg/apperrors"
)

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 90*time.Second, ParseDuration("90s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("soon", time.Minute))
}

func TestParseDeadline(t *testing.T) {
	d, err := ParseDeadline("")
	require.NoError(t, err)
	assert.Nil(t, d)

	want := time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC)
	for _, in := range []string{
		"2025-03-01T23:59:00Z",
		"2025-03-01T23:59:00+00:00",
		"2025-03-02T02:59:00+03:00",
		"2025-03-01T23:59:00",
		"2025-03-01T23:59",
	} {
		d, err := ParseDeadline(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(*d), in)
		assert.Equal(t, time.UTC, d.Location())
	}

	d, err = ParseDeadline("2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, 1, d.Day())

	_, err = ParseDeadline("next friday")
	assert.ErrorIs(t, err, ErrInvalidDeadline)
}

func testContext(target string, params gin.Params) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	c.Params = params
	return c
}

func TestParseIDParam(t *testing.T) {
	id, err := ParseIDParam(testContext("/", gin.Params{{Key: "id", Value: "42"}}), "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "abc", "0", "-3"} {
		_, err := ParseIDParam(testContext("/", gin.Params{{Key: "id", Value: bad}}), "id")
		assert.ErrorIs(t, err, apperrors.ErrValidationFailed, bad)
	}
}

func TestQueryHelpers(t *testing.T) {
	c := testContext("/?topic_id=5&download=1&empty=", nil)

	v, err := OptionalInt64Query(c, "topic_id")
	require.NoError(t, err)
	assert.Equal(t, int64(5), *v)

	v, err = OptionalInt64Query(c, "empty")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = OptionalInt64Query(testContext("/?topic_id=x", nil), "topic_id")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	assert.True(t, BoolQuery(c, "download"))
	assert.False(t, BoolQuery(c, "missing"))
}
