package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dxresults/dxresults/internal/domain/diagnostictest"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := diagnostictest.NewService(diagnostictest.NewDiagnosticTestRepoMemory())
	e := echo.New()
	diagnostictest.NewHandler(svc, zerolog.Nop()).RegisterRoutes(e.Group("/api"))
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func strPtr(s string) *string { return &s }

func TestClient_RoundTrip(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL, WithTimeout(5*time.Second))
	ctx := context.Background()

	date := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	created, err := c.Create(ctx, Input{
		PatientName: "Zain",
		TestType:    "Blood Test",
		Result:      "Pending",
		TestDate:    &date,
		Notes:       strPtr("Patient has mild symptoms."),
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Zain", created.PatientName)
	assert.True(t, created.TestDate.Equal(date))
	require.NotNil(t, created.Notes)

	got, err := c.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	updated, err := c.Update(ctx, created.ID, Input{PatientName: "Zain", TestType: "Blood Test", Result: "Negative"})
	require.NoError(t, err)
	assert.Equal(t, "Negative", updated.Result)
	assert.Nil(t, updated.Notes, "omitted notes are cleared on update")
	assert.True(t, updated.TestDate.Equal(date), "omitted testDate is kept on update")

	list, err := c.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	deleted, err := c.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Negative", deleted.Result)

	_, err = c.Get(ctx, created.ID)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.NotFound())
	assert.Equal(t, "Test not found", apiErr.Message)
}

func TestClient_ListEmpty(t *testing.T) {
	srv := newServer(t)
	list, err := New(srv.URL).List(context.Background(), false)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestClient_ValidationError(t *testing.T) {
	srv := newServer(t)
	_, err := New(srv.URL).Create(context.Background(), Input{PatientName: "Zain"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Validation failed", apiErr.Message)

	fields := map[string]string{}
	for _, fe := range apiErr.Errors {
		fields[fe.Field] = fe.Code
	}
	assert.Equal(t, map[string]string{
		"testType": "required_field_missing",
		"result":   "required_field_missing",
	}, fields)
	assert.Contains(t, apiErr.Error(), "testType: Test type is required")
}

func TestClient_ServerErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Get(context.Background(), "abc")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestClient_SendsRequestID(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Request-ID")
		assert.Equal(t, "/api/tests", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := New(srv.URL+"/", WithRequestID("cli-42")).List(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "cli-42", seen)
}

// flakyServer drops the connection on the first failures requests and then
// answers with an empty list.
func flakyServer(t *testing.T, failures int32) (*httptest.Server, *int32) {
	t.Helper()
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) <= failures {
			conn, _, err := w.(http.Hijacker).Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)
	return srv, &attempts
}

func TestClient_WithRetry(t *testing.T) {
	srv, attempts := flakyServer(t, 1)

	list, err := New(srv.URL, WithRetry(2)).List(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, int32(2), atomic.LoadInt32(attempts))
}

func TestClient_NoRetryByDefault(t *testing.T) {
	srv, attempts := flakyServer(t, 1)

	_, err := New(srv.URL).List(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(attempts))
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, WithTimeout(time.Second)).List(context.Background(), false)
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
