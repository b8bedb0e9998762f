package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/timeslot-scheduler/internal/application"
)

type fakeSessionValidator struct {
	principal application.Principal
	err       error
}

func (f fakeSessionValidator) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	return f.principal, f.err
}

func TestRequireSessionRejectsInvalidTokens(t *testing.T) {
	tests := []struct {
		name           string
		cookie         *http.Cookie
		header         string
		validatorErr   error
		expectedStatus int
	}{
		{
			name:           "missing credentials",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unknown token",
			header:         "Bearer unknown",
			validatorErr:   application.ErrUnauthorized,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "expired session",
			cookie:         &http.Cookie{Name: "session_token", Value: "stale"},
			validatorErr:   application.ErrSessionExpired,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "validator failure",
			header:         "Bearer token",
			validatorErr:   errors.New("store offline"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.cookie != nil {
				req.AddCookie(tc.cookie)
			}
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			recorder := httptest.NewRecorder()

			handler := RequireSession(fakeSessionValidator{err: tc.validatorErr}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("next handler should not run when authentication fails")
			}))
			handler.ServeHTTP(recorder, req)

			if recorder.Code != tc.expectedStatus {
				t.Fatalf("status = %d, want %d", recorder.Code, tc.expectedStatus)
			}
		})
	}
}

func TestRequireSessionAttachesPrincipal(t *testing.T) {
	principal := application.Principal{IsAdmin: true}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "valid"})
	recorder := httptest.NewRecorder()

	handler := RequireSession(fakeSessionValidator{principal: principal}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := PrincipalFromContext(r.Context())
		if !ok || !got.IsAdmin {
			t.Fatalf("principal in context = %+v, ok = %v", got, ok)
		}
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
}

func TestExtractTokenPrefersAuthorizationHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "cookie-token"})

	if got := extractTokenFromRequest(req); got != "header-token" {
		t.Fatalf("token = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "cookie-token"})
	if got := extractTokenFromRequest(req); got != "cookie-token" {
		t.Fatalf("token = %q", got)
	}
}
