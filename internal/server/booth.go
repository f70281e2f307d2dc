package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/candybooth/internal/booth"
	"github.com/ayusman/candybooth/internal/review"
)

func (s *Server) registerBooth(b *booth.Booth) {
	h := NewBoothHandler(b)
	s.mux.Handle("/booth/", h)
	s.mux.Handle("/booth/stream", NewStreamHandler(b.Compositor()))
	s.mux.Handle("/booth/landmarks", NewLandmarksHandler(b))
}

// BoothHandler exposes the kiosk controls:
//
//	GET  /booth/status
//	POST /booth/capture
//	GET  /booth/preview/{token}
//	POST /booth/confirm
//	POST /booth/retake
//	POST /booth/overlay?enabled=true|false
type BoothHandler struct {
	booth *booth.Booth
}

// NewBoothHandler creates a new BoothHandler.
func NewBoothHandler(b *booth.Booth) *BoothHandler {
	return &BoothHandler{booth: b}
}

type captureResponse struct {
	PreviewToken string `json:"previewToken"`
	PreviewURL   string `json:"previewUrl"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

type confirmResponse struct {
	Success  bool   `json:"success"`
	PhotoURL string `json:"photoUrl"`
}

type overlayResponse struct {
	Enabled bool `json:"enabled"`
}

// ServeHTTP implements the http.Handler interface.
func (h *BoothHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/booth"), "/")

	if token, ok := strings.CutPrefix(path, "preview/"); ok {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.preview(w, token)
		return
	}

	method := http.MethodPost
	if path == "status" {
		method = http.MethodGet
	}

	switch path {
	case "status", "capture", "confirm", "retake", "overlay":
	default:
		http.NotFound(w, r)
		return
	}
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch path {
	case "status":
		writeJSON(w, http.StatusOK, h.booth.Status())
	case "capture":
		h.capture(w)
	case "confirm":
		h.confirm(w, r)
	case "retake":
		h.retake(w)
	case "overlay":
		h.overlay(w, r)
	}
}

func (h *BoothHandler) capture(w http.ResponseWriter) {
	cand, err := h.booth.Flow().Capture()
	if err != nil {
		switch {
		case errors.Is(err, review.ErrBusy), errors.Is(err, review.ErrDone):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, review.ErrCanvasUnavailable), errors.Is(err, review.ErrEmptyCanvas):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, captureResponse{
		PreviewToken: cand.PreviewToken,
		PreviewURL:   "/booth/preview/" + cand.PreviewToken,
		Width:        cand.Width,
		Height:       cand.Height,
	})
}

func (h *BoothHandler) preview(w http.ResponseWriter, token string) {
	data, ok := h.booth.Flow().Previews().Get(token)
	if !ok {
		http.Error(w, "Preview not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

func (h *BoothHandler) confirm(w http.ResponseWriter, r *http.Request) {
	url, err := h.booth.Flow().Confirm(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, review.ErrBusy), errors.Is(err, review.ErrNoCandidate):
			writeError(w, http.StatusConflict, err.Error())
		default:
			log.Warn().Err(err).Int64("resultId", h.booth.ResultID()).Msg("Confirm failed")
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, confirmResponse{Success: true, PhotoURL: url})
}

func (h *BoothHandler) retake(w http.ResponseWriter) {
	if err := h.booth.Flow().Retake(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BoothHandler) overlay(w http.ResponseWriter, r *http.Request) {
	enabled, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "enabled must be true or false")
		return
	}
	h.booth.Compositor().SetOverlayEnabled(enabled)
	writeJSON(w, http.StatusOK, overlayResponse{Enabled: enabled})
}
