// Package server provides the HTTP server for the candybooth API, downloads
// and the booth kiosk surface.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/candybooth/internal/booth"
	"github.com/ayusman/candybooth/internal/server/api"
	"github.com/ayusman/candybooth/internal/store"
	"github.com/ayusman/candybooth/internal/survey"
)

// BackgroundsPrefix is the URL path the frame backgrounds are served under.
const BackgroundsPrefix = "/image/purikura-background"

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Survey    *survey.Service
	// BackgroundsDir defaults to StaticDir + BackgroundsPrefix.
	BackgroundsDir string
	// Objects maps a bucket name to a local directory served at /objects/{bucket}/.
	Objects map[string]string
	// BaseURL is the public origin used in download links and QR codes.
	BaseURL string
	Booth   *booth.Booth
}

// Server represents the HTTP server for the candybooth application.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	start   time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	s.handler = withLogging(s.mux)
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		s.mux.Handle("/api/questions", api.NewQuestionsHandler(s.config.Store))

		if s.config.Survey != nil {
			results := api.NewResultsHandler(s.config.Store, s.config.Survey)
			s.mux.Handle("/api/results", results)
			s.mux.Handle("/api/results/", results)

			s.mux.Handle("/download/", NewDownloadHandler(s.config.Store, s.config.Survey, s.config.BaseURL))
		}
	}

	bgDir := s.config.BackgroundsDir
	if bgDir == "" && s.config.StaticDir != "" {
		bgDir = filepath.Join(s.config.StaticDir, filepath.FromSlash(BackgroundsPrefix))
	}
	if bgDir != "" {
		s.mux.Handle("/api/backgrounds", api.NewBackgroundsHandler(bgDir, BackgroundsPrefix))
	}

	for bucket, dir := range s.config.Objects {
		prefix := "/objects/" + bucket + "/"
		s.mux.Handle(prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(dir))))
	}

	if s.config.Booth != nil {
		s.registerBooth(s.config.Booth)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Store != nil {
		response["database"] = s.config.Store.Driver()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// isStreaming reports whether a request holds its connection open.
func isStreaming(r *http.Request) bool {
	return r.URL.Path == "/booth/stream" || strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
