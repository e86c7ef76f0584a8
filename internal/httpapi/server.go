// Package httpapi provides the embeddable HTTP server used by the CLI.
// The standalone server binary under cmd/server carries the full
// dashboard surface; this one covers scoring and health only.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"churn-intel/internal/bundle"
	"churn-intel/internal/ingest"
	"churn-intel/internal/scoring"
	"churn-intel/pkg/platform"
)

// Server is the HTTP API server
type Server struct {
	httpServer *http.Server
	service    *scoring.Service
	paths      platform.Paths
	config     *Config
}

// Config holds server configuration
type Config struct {
	Port          int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxUploadSize int64
	CORSOrigins   []string
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Port:          8080,
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  120 * time.Second,
		MaxUploadSize: 32 * 1024 * 1024, // 32MB
		CORSOrigins:   []string{"*"},
	}
}

// NewServer creates a new API server
func NewServer(service *scoring.Service, paths platform.Paths, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	return &Server{
		service: service,
		paths:   paths,
		config:  config,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/api/predict", s.handlePredict)
	mux.HandleFunc("/api/stats", s.handleStats)

	handler := s.corsMiddleware(s.loggingMiddleware(mux))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	fmt.Printf("🚀 Churn scoring API starting on port %d\n", s.config.Port)
	return s.httpServer.ListenAndServe()
}

// StartWithGracefulShutdown starts server with graceful shutdown handling
func (s *Server) StartWithGracefulShutdown() error {
	errChan := make(chan error, 1)
	go func() {
		if err := s.Start(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-quit:
		fmt.Println("\n📴 Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		fmt.Printf("%s %s %s %s\n", r.Method, r.URL.Path, r.RemoteAddr, time.Since(start))
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		allowed := false
		for _, o := range s.config.CORSOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "1.0.0",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(s.paths.BundleFile); os.IsNotExist(err) {
		s.jsonError(w, http.StatusServiceUnavailable, "model bundle not trained")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.jsonError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if err := r.ParseMultipartForm(s.config.MaxUploadSize); err != nil {
		s.jsonError(w, http.StatusBadRequest, "expected multipart form upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	result, err := s.service.Score(r.Context(), raw, header.Filename)
	if err != nil {
		s.scoringError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// scoringError maps a scoring failure to its HTTP status. Client and
// availability errors echo their message; anything unexpected is
// logged server-side and answered with a generic body so internal
// paths and state never leak to callers.
func (s *Server) scoringError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("scoring request failed")
		s.jsonError(w, status, "internal error while scoring upload")
		return
	}
	s.jsonError(w, status, err.Error())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.service.Status())
}

func statusFor(err error) int {
	var ingestErr *ingest.Error
	var missingErr *ingest.MissingColumnsError
	var contractErr *scoring.ContractViolation
	switch {
	case errors.As(err, &missingErr), errors.As(err, &ingestErr), errors.As(err, &contractErr):
		return http.StatusBadRequest
	case errors.Is(err, bundle.ErrModelUnavailable), errors.Is(err, bundle.ErrInvalidPipeline):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}
