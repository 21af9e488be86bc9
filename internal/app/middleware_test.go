package app

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/titulaflow/titulaflow/internal/shared"
)

func callerThrough(t *testing.T, decorate func(*http.Request)) shared.Caller {
	t.Helper()
	var got shared.Caller
	handler := CallerMiddleware(slog.New(slog.DiscardHandler))(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = shared.CallerFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	decorate(req)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestCallerMiddlewareParsesIdentityHeaders(t *testing.T) {
	caller := callerThrough(t, func(req *http.Request) {
		req.Header.Set("X-User-ID", "42")
		req.Header.Set("X-Roles", "finance-office, records-office")
		req.Header.Set("X-Override", "1")
	})

	require.Equal(t, int64(42), caller.UserID)
	require.Equal(t, []string{"finance-office", "records-office"}, caller.Roles)
	require.True(t, caller.Override)
	require.True(t, caller.HasRole(shared.RoleFinanceOffice))
	require.False(t, caller.HasRole(shared.RoleTitulationOffice))
}

func TestCallerMiddlewareDefaultsToAnonymous(t *testing.T) {
	caller := callerThrough(t, func(_ *http.Request) {})

	require.Zero(t, caller.UserID)
	require.Empty(t, caller.Roles)
	require.False(t, caller.Override)
}

func TestCallerMiddlewareIgnoresMalformedUserID(t *testing.T) {
	caller := callerThrough(t, func(req *http.Request) {
		req.Header.Set("X-User-ID", "forty-two")
		req.Header.Set("X-Override", "true") // only "1" grants the override
	})

	require.Zero(t, caller.UserID)
	require.False(t, caller.Override)
}
