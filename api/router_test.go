package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	models "github.com/CLDWare/pollroom-backend/pkg/db"
	"github.com/CLDWare/pollroom-backend/pkg/logger"
)

func newTestAPI(t *testing.T) *API {
	t.Helper()
	logger.Init()

	db, err := models.InitialiseDatabaseAt(":memory:")
	if err != nil {
		t.Fatalf("failed to initialise database: %v", err)
	}
	return NewAPI(db)
}

func TestAPI_WithMiddleware(t *testing.T) {
	api := newTestAPI(t)
	mux := api.CreateMux()
	handler := ApplyMiddleware(mux)

	req := httptest.NewRequest(http.MethodGet, "/v", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	// Check that the request went through middleware and reached the handler
	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	// Check CORS headers are present (from CORSMiddleware)
	corsHeader := w.Header().Get("Access-Control-Allow-Origin")
	if corsHeader == "" {
		t.Error("expected CORS headers to be set by middleware")
	}
}

func TestAPI_HealthRoute(t *testing.T) {
	api := newTestAPI(t)
	mux := api.CreateMux()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestAPI_PostPollRequiresAuthentication(t *testing.T) {
	api := newTestAPI(t)
	mux := api.CreateMux()

	req := httptest.NewRequest(http.MethodPost, "/api/polls", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAPI_UnknownPollIsNotFound(t *testing.T) {
	api := newTestAPI(t)
	mux := api.CreateMux()

	req := httptest.NewRequest(http.MethodGet, "/api/polls/does-not-exist", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestAPI_FallbackRoute(t *testing.T) {
	api := newTestAPI(t)
	mux := api.CreateMux()

	req := httptest.NewRequest(http.MethodGet, "/no-such-route", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}
