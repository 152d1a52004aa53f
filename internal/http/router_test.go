package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func stub(marker string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(marker))
	}
}

func TestRouterMethodGuard(t *testing.T) {
	router := NewRouter(Routes{
		DetectionSubmit: stub("submit"),
		DetectionsList:  stub("list"),
		Sessions:        stub("sessions"),
		Health:          stub("health"),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	assert.Equal(t, "sessions", rec.Body.String())
}

func TestRouterSharedPathDispatch(t *testing.T) {
	router := NewRouter(Routes{
		DetectionSubmit: stub("submit"),
		DetectionsList:  stub("list"),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/detections", nil))
	assert.Equal(t, "submit", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/detections", nil))
	assert.Equal(t, "list", rec.Body.String())
}

func TestRouterAliases(t *testing.T) {
	router := NewRouter(Routes{
		Sessions:       stub("sessions"),
		ResidentCreate: stub("create"),
		ResidentsList:  stub("residents"),
	})

	for _, path := range []string{"/api/verifications", "/api/sessions"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, "sessions", rec.Body.String(), path)
	}
	for _, path := range []string{"/api/residents", "/api/vehicles", "/api/owners"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, "residents", rec.Body.String(), path)
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	handler := RequestLogger(zap.NewNop(), stub("ok"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "cam-req-1")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "cam-req-1", rec.Header().Get("X-Request-ID"))
}
