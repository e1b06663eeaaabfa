package web

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const canonicalSession = "3c8f1f64-2d0b-4c1e-9a57-7f2e0d6b5a44"

func TestSessionMiddleware(t *testing.T) {
	testCases := []struct {
		name       string
		header     string
		wantStatus int
		wantID     string
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "not a uuid", header: "abc", wantStatus: http.StatusBadRequest},
		{name: "valid session", header: canonicalSession, wantStatus: http.StatusNoContent, wantID: canonicalSession},
		{name: "upper case", header: "3C8F1F64-2D0B-4C1E-9A57-7F2E0D6B5A44", wantStatus: http.StatusNoContent, wantID: canonicalSession},
		{name: "braced", header: "{3c8f1f64-2d0b-4c1e-9a57-7f2e0d6b5a44}", wantStatus: http.StatusNoContent, wantID: canonicalSession},
		{name: "urn form", header: "urn:uuid:3c8f1f64-2d0b-4c1e-9a57-7f2e0d6b5a44", wantStatus: http.StatusNoContent, wantID: canonicalSession},
		{name: "no hyphens", header: "3c8f1f642d0b4c1e9a577f2e0d6b5a44", wantStatus: http.StatusNoContent, wantID: canonicalSession},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			var seen string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = GetSessionID(r.Context())
				w.WriteHeader(http.StatusNoContent)
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(XSessionId, tc.header)
			}
			rr := httptest.NewRecorder()

			// when
			SessionMiddleware(next).ServeHTTP(rr, req)

			// then
			require.Equal(t, tc.wantStatus, rr.Code)
			if tc.wantStatus == http.StatusNoContent {
				assert.Equal(t, tc.wantID, seen)
			} else {
				assert.Empty(t, seen)
			}
		})
	}
}

func TestRequestIDInjector(t *testing.T) {
	testCases := []struct {
		name   string
		header string
	}{
		{name: "reuses incoming id", header: "req-42"},
		{name: "generates id", header: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			var seen string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = GetRequestID(r.Context())
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(middleware.RequestIDHeader, tc.header)
			}
			rr := httptest.NewRecorder()

			// when
			RequestIDInjector(next).ServeHTTP(rr, req)

			// then
			require.NotEmpty(t, seen)
			assert.Equal(t, seen, rr.Header().Get(middleware.RequestIDHeader))
			if tc.header != "" {
				assert.Equal(t, tc.header, seen)
			}
		})
	}
}

func TestRecoverer(t *testing.T) {
	// given
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	rr := httptest.NewRecorder()

	// when
	Recoverer(slog.New(slog.NewTextHandler(io.Discard, nil)))(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	// then
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
