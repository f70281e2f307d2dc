package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"github.com/ayusman/candybooth/internal/storage"
	"github.com/ayusman/candybooth/internal/store"
)

// zipMethodZstd is the zip method id for Zstandard (APPNOTE 4.4.5).
const zipMethodZstd uint16 = 93

// QRSize is the edge length of generated QR codes in pixels.
const QRSize = 256

func init() {
	zip.RegisterCompressor(zipMethodZstd, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(12)))
	})
}

// ImageSource reads the stored images of a result.
type ImageSource interface {
	Photo(ctx context.Context, res *store.Result) ([]byte, error)
	GeneratedImage(ctx context.Context, res *store.Result) ([]byte, error)
}

// DownloadHandler serves the post-visit download surface:
//
//	GET /download/{id}             HTML page with a QR code for the photo
//	GET /download/{id}/qr.png      the QR code alone
//	GET /download/{id}/bundle.zip  photo and candy image
type DownloadHandler struct {
	store   *store.Store
	images  ImageSource
	baseURL string
}

// NewDownloadHandler creates a new DownloadHandler.
func NewDownloadHandler(s *store.Store, images ImageSource, baseURL string) *DownloadHandler {
	return &DownloadHandler{store: s, images: images, baseURL: strings.TrimRight(baseURL, "/")}
}

var downloadPage = template.Must(template.New("download").Parse(`<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Photo {{.ID}}</title>
</head>
<body style="font-family: sans-serif; padding: 24px">
<h1>Photo {{.ID}}</h1>
<img src="{{.QR}}" alt="QR code" width="{{.Size}}" height="{{.Size}}">
<p><a href="{{.PhotoURL}}">Open photo</a></p>
{{if .CandyURL}}<p><a href="{{.CandyURL}}">Open candy image</a></p>{{end}}
<p><a href="{{.BundleURL}}" download="candybooth-{{.ID}}.zip">Download all</a></p>
<p><a href="{{.QRURL}}" download="qr-{{.ID}}.png">Download QR code</a></p>
</body>
</html>
`))

type downloadView struct {
	ID        int64
	QR        template.URL
	Size      int
	PhotoURL  string
	CandyURL  string
	BundleURL string
	QRURL     string
}

// ServeHTTP implements the http.Handler interface.
func (h *DownloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/download"), "/")
	idParam, action, _ := strings.Cut(path, "/")

	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return
	}

	res, err := h.store.Results().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Result not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Int64("resultId", id).Msg("Failed to load result for download")
		http.Error(w, "Failed to load result", http.StatusInternalServerError)
		return
	}

	if res.PhotoURL == "" {
		http.Error(w, "Photo not taken yet", http.StatusConflict)
		return
	}

	switch action {
	case "":
		h.page(w, res)
	case "qr.png":
		h.qr(w, res)
	case "bundle.zip":
		h.bundle(w, r, res)
	default:
		http.NotFound(w, r)
	}
}

func (h *DownloadHandler) page(w http.ResponseWriter, res *store.Result) {
	png, err := qrcode.Encode(res.PhotoURL, qrcode.Medium, QRSize)
	if err != nil {
		http.Error(w, "Failed to render QR code", http.StatusInternalServerError)
		return
	}

	self := fmt.Sprintf("%s/download/%d", h.baseURL, res.ID)
	view := downloadView{
		ID:        res.ID,
		QR:        template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)),
		Size:      QRSize,
		PhotoURL:  res.PhotoURL,
		CandyURL:  res.GeneratedImageURL,
		BundleURL: self + "/bundle.zip",
		QRURL:     self + "/qr.png",
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := downloadPage.Execute(w, view); err != nil {
		log.Warn().Err(err).Int64("resultId", res.ID).Msg("Failed to render download page")
	}
}

func (h *DownloadHandler) qr(w http.ResponseWriter, res *store.Result) {
	png, err := qrcode.Encode(res.PhotoURL, qrcode.Medium, QRSize)
	if err != nil {
		http.Error(w, "Failed to render QR code", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="qr-%d.png"`, res.ID))
	w.Write(png)
}

func (h *DownloadHandler) bundle(w http.ResponseWriter, r *http.Request, res *store.Result) {
	photo, err := h.images.Photo(r.Context(), res)
	if err != nil {
		log.Error().Err(err).Int64("resultId", res.ID).Msg("Failed to read photo for bundle")
		http.Error(w, "Failed to read photo", http.StatusBadGateway)
		return
	}

	files := []bundleFile{{name: "photo.png", data: photo}}

	candy, err := h.images.GeneratedImage(r.Context(), res)
	switch {
	case err == nil:
		files = append(files, bundleFile{name: "apple-candy.png", data: candy})
	case errors.Is(err, storage.ErrObjectNotFound):
	default:
		log.Warn().Err(err).Int64("resultId", res.ID).Msg("Candy image missing from bundle")
	}

	data, err := buildBundle(files, time.Now())
	if err != nil {
		log.Error().Err(err).Int64("resultId", res.ID).Msg("Failed to build bundle")
		http.Error(w, "Failed to build bundle", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="candybooth-%d.zip"`, res.ID))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

type bundleFile struct {
	name string
	data []byte
}

// buildBundle writes files into a zstd-compressed zip archive.
func buildBundle(files []bundleFile, modTime time.Time) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, f := range files {
		header := &zip.FileHeader{
			Name:   f.name,
			Method: zipMethodZstd,
		}
		header.SetModTime(modTime)

		fw, err := zw.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("create zip entry for %s: %w", f.name, err)
		}
		if _, err := fw.Write(f.data); err != nil {
			return nil, fmt.Errorf("write zip entry for %s: %w", f.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip writer: %w", err)
	}
	return buf.Bytes(), nil
}
