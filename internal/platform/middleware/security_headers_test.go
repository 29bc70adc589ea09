package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityHeaders_OnRecordResponses(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeaders())
	e.GET("/api/tests/:id", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"id":          c.Param("id"),
			"patientName": "Zain",
			"result":      "Pending",
		})
	})
	e.GET("/api/tests", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []any{})
	})

	tests := []struct {
		name string
		path string
		code int
	}{
		{"single record", "/api/tests/9b2f0c7e-4a4e-4d0b-8b57-0d1f8f2b6a11", http.StatusOK},
		{"collection", "/api/tests", http.StatusOK},
		{"unknown route", "/api/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"), "patient results must not be cached")
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
			for _, kv := range apiHeaders {
				assert.Equal(t, kv[1], rec.Header().Get(kv[0]), kv[0])
			}
		})
	}
}

func TestSecurityHeaders_KeepsHandlerError(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/api/tests/missing", nil), rec)

	err := SecurityHeaders()(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "Test not found")
	})(c)

	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusNotFound, he.Code)
	assert.Equal(t, "Test not found", he.Message)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}
