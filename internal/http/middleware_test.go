package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequirePrincipal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		userID     string
		role       string
		wantStatus int
		wantAdmin  bool
	}{
		{name: "missing user id", wantStatus: http.StatusUnauthorized},
		{name: "blank user id", userID: "   ", wantStatus: http.StatusUnauthorized},
		{name: "regular user", userID: "u1", role: "lecturer", wantStatus: http.StatusOK},
		{name: "admin role matches case-insensitively", userID: "u2", role: "Admin", wantStatus: http.StatusOK, wantAdmin: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var (
				called  bool
				isAdmin bool
			)
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				principal, ok := PrincipalFromContext(r.Context())
				if !ok {
					t.Fatal("principal missing from context")
				}
				called = true
				isAdmin = principal.IsAdmin
			})

			req := httptest.NewRequest(http.MethodGet, "/sync/pending", nil)
			if tc.userID != "" {
				req.Header.Set(HeaderUserID, tc.userID)
			}
			if tc.role != "" {
				req.Header.Set(HeaderUserRole, tc.role)
			}
			rec := httptest.NewRecorder()
			RequirePrincipal("admin", nil)(next).ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if called != (tc.wantStatus == http.StatusOK) {
				t.Fatalf("next called = %v", called)
			}
			if isAdmin != tc.wantAdmin {
				t.Fatalf("isAdmin = %v, want %v", isAdmin, tc.wantAdmin)
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("propagates incoming request id", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		var seen string
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = RequestIDFromContext(r.Context())
			if LoggerFromContext(r.Context()) == nil {
				t.Fatal("logger missing from context")
			}
			w.WriteHeader(http.StatusTeapot)
		})

		req := httptest.NewRequest(http.MethodGet, "/sync/pending", nil)
		req.Header.Set(HeaderRequestID, "req-42")
		rec := httptest.NewRecorder()
		RequestLogger(logger)(next).ServeHTTP(rec, req)

		if seen != "req-42" || rec.Header().Get(HeaderRequestID) != "req-42" {
			t.Fatalf("request id = %q, header = %q", seen, rec.Header().Get(HeaderRequestID))
		}
		out := buf.String()
		if !strings.Contains(out, `"request_id":"req-42"`) || !strings.Contains(out, `"status":418`) {
			t.Fatalf("unexpected log output %s", out)
		}
	})

	t.Run("generates a request id when absent", func(t *testing.T) {
		t.Parallel()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
		rec := httptest.NewRecorder()
		RequestLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))(next).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if len(rec.Header().Get(HeaderRequestID)) != 36 {
			t.Fatalf("expected generated uuid, got %q", rec.Header().Get(HeaderRequestID))
		}
	})
}
