package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"churn-intel/internal/bundle"
	"churn-intel/internal/ingest"
	"churn-intel/internal/scoring"
	"churn-intel/pkg/platform"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	paths := platform.Paths{BundleFile: filepath.Join(t.TempDir(), "bundle.gob")}
	service := scoring.NewService(bundle.NewLoader(paths.BundleFile))
	return NewServer(service, paths, nil)
}

func TestHandleHealth(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "healthy", body["status"])
}

func TestHandleReadyWithoutBundle(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.handleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleStatsOffline(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.handleStats(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "offline", body["status"])
}

func TestHandlePredictRequiresPost(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.handlePredict(rec, httptest.NewRequest(http.MethodGet, "/api/predict", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandlePredictRequiresFileField(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "value"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/predict", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	s := testServer(t)
	rec := httptest.NewRecorder()
	s.handlePredict(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, false, body["success"])
}

func TestHandlePredictWithoutTrainedModel(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "customers.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("customerID,tenure\na,1\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/predict", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	s := testServer(t)
	rec := httptest.NewRecorder()
	s.handlePredict(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestScoringErrorHidesInternalDetail(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.scoringError(rec, errors.New("dial tcp 10.0.0.7:9000: connect: connection refused"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, false, body["success"])
	require.Equal(t, "internal error while scoring upload", body["error"])
	require.NotContains(t, rec.Body.String(), "10.0.0.7")
}

func TestScoringErrorEchoesClientFault(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.scoringError(rec, &ingest.MissingColumnsError{Missing: []string{"tenure", "Churn"}})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "tenure")
}

func TestStatusForErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"missing columns", &ingest.MissingColumnsError{Missing: []string{"tenure"}}, http.StatusBadRequest},
		{"ingest failure", &ingest.Error{Reason: "no usable rows"}, http.StatusBadRequest},
		{"contract violation", &scoring.ContractViolation{Message: "x", Context: "Training"}, http.StatusBadRequest},
		{"no model", bundle.ErrModelUnavailable, http.StatusServiceUnavailable},
		{"corrupt model", bundle.ErrInvalidPipeline, http.StatusServiceUnavailable},
		{"unknown", http.ErrBodyNotAllowed, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, statusFor(tc.err))
		})
	}
}

func TestCORSMiddlewareAllowsConfiguredOrigin(t *testing.T) {
	s := testServer(t)
	s.config.CORSOrigins = []string{"https://dashboard.example.com"}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := s.corsMiddleware(next)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, "https://dashboard.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	s := testServer(t)
	handler := s.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/predict", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}
