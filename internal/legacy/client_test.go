package legacy

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupStudentReturnsEnrollmentData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/students/42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42,"name":"Castro, Ana","career_id":7,"program":"Ing. Sistemas"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, slog.New(slog.DiscardHandler))
	info, err := c.LookupStudent(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, info)
	require.Equal(t, "Castro, Ana", info.Name)
	require.NotNil(t, info.CareerID)
	require.Equal(t, int64(7), *info.CareerID)
}

func TestLookupStudentUnknownIsNilWithoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, slog.New(slog.DiscardHandler))
	info, err := c.LookupStudent(context.Background(), 1)
	require.NoError(t, err)
	require.Nil(t, info)
}

func TestLookupStudentOutageDegradesToNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL, slog.New(slog.DiscardHandler))
	info, err := c.LookupStudent(context.Background(), 1)
	require.NoError(t, err)
	require.Nil(t, info)
}

func TestLookupCareerUnwrapsCareerID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42,"name":"Castro, Ana","career_id":7}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, slog.New(slog.DiscardHandler))
	careerID, err := c.LookupCareer(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, careerID)
	require.Equal(t, int64(7), *careerID)
}
