// Package server exposes the shared tree and quota ledger over a REST-style
// JSON/multipart API.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ssd-technologies/lanshare/internal/config"
	"github.com/ssd-technologies/lanshare/internal/quota"
	"github.com/ssd-technologies/lanshare/internal/share"
)

// Server is the HTTP server for the lanshare API.
type Server struct {
	store   *share.Store
	ledger  *quota.Ledger
	events  *eventHub
	limiter *rateLimiter
	mux     *http.ServeMux
	cfg     *config.Config
}

// New creates a Server with all routes registered.
func New(store *share.Store, ledger *quota.Ledger, cfg *config.Config) *Server {
	s := &Server{
		store:   store,
		ledger:  ledger,
		events:  newEventHub(),
		limiter: newRateLimiter(cfg.RateLimit.Requests, cfg.RateLimitWindow()),
		mux:     http.NewServeMux(),
		cfg:     cfg,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// routes registers all HTTP routes on the server mux.
func (s *Server) routes() {
	// Health
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Files
	s.mux.HandleFunc("GET /api/files", s.handleListFiles)
	s.mux.HandleFunc("POST /api/files/upload", s.limited(s.handleUpload))
	s.mux.HandleFunc("GET /api/files/download", s.handleDownload)
	s.mux.HandleFunc("GET /api/files/preview", s.handlePreview)
	s.mux.HandleFunc("POST /api/files/delete", s.limited(s.handleDeleteFile))

	// Folders
	s.mux.HandleFunc("GET /api/folders", s.handleFolderTree)
	s.mux.HandleFunc("POST /api/folders/create", s.limited(s.handleCreateFolder))
	s.mux.HandleFunc("POST /api/folders/delete", s.limited(s.handleDeleteFolder))

	// Settings
	s.mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	s.mux.HandleFunc("POST /api/settings", s.limited(s.handleUpdateSettings))
	s.mux.HandleFunc("POST /api/settings/password", s.limited(s.handleChangePassword))

	// Change feed
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "lanshare",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain sentinel errors to HTTP statuses. Anything
// unmapped is a 500 with a static message; raw internal errors never reach
// the client.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, share.ErrInvalidPath):
		writeError(w, http.StatusBadRequest, "invalid path")
	case errors.Is(err, share.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, quota.ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds single upload limit")
	case errors.Is(err, quota.ErrQuotaExceeded):
		writeError(w, http.StatusRequestEntityTooLarge, "storage quota exceeded")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
