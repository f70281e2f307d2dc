package server

import (
	"fmt"
	"image"
	"net/http"
	"time"

	"github.com/ayusman/candybooth/internal/detector"
)

// DefaultStreamInterval is the polling period of the MJPEG stream (~15 FPS).
const DefaultStreamInterval = 66 * time.Millisecond

// CanvasSource provides finished canvases and a counter that changes when
// a new one is rendered.
type CanvasSource interface {
	Snapshot() *image.RGBA
	Frames() int64
}

// StreamHandler serves the composited canvas as MJPEG.
type StreamHandler struct {
	source   CanvasSource
	interval time.Duration
	encode   func(image.Image) ([]byte, error)
}

// NewStreamHandler creates a new StreamHandler for the given canvas source.
func NewStreamHandler(source CanvasSource) *StreamHandler {
	return &StreamHandler{
		source:   source,
		interval: DefaultStreamInterval,
		encode:   detector.EncodeJPEG,
	}
}

// ServeHTTP streams a frame each time the canvas changes until the client goes away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	last := int64(-1)
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		n := h.source.Frames()
		if n == last {
			continue
		}
		img := h.source.Snapshot()
		if img == nil {
			continue
		}
		last = n

		data, err := h.encode(img)
		if err != nil {
			continue
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(data))
		if _, err := w.Write(data); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
