package api

import (
	"net/http"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// BackgroundsHandler lists the .webp frame backgrounds in a directory.
type BackgroundsHandler struct {
	dir    string
	prefix string
}

// NewBackgroundsHandler lists files in dir and reports them as URLs under prefix.
func NewBackgroundsHandler(dir, prefix string) *BackgroundsHandler {
	return &BackgroundsHandler{dir: dir, prefix: prefix}
}

type backgroundsResponse struct {
	Backgrounds []string `json:"backgrounds"`
}

// ServeHTTP handles GET /api/backgrounds.
func (h *BackgroundsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	backgrounds, err := h.List()
	if err != nil {
		log.Error().Err(err).Str("dir", h.dir).Msg("Failed to list backgrounds")
		writeError(w, http.StatusInternalServerError, "Failed to load backgrounds.")
		return
	}

	writeJSON(w, http.StatusOK, backgroundsResponse{Backgrounds: backgrounds})
}

// List returns the background URLs in natural order (bg2 before bg10).
func (h *BackgroundsHandler) List() ([]string, error) {
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		return nil, err
	}

	backgrounds := []string{}
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), ".webp") {
			continue
		}
		backgrounds = append(backgrounds, path.Join(h.prefix, entry.Name()))
	}

	sort.Slice(backgrounds, func(i, j int) bool {
		return naturalLess(backgrounds[i], backgrounds[j])
	})
	return backgrounds, nil
}

// naturalLess compares strings with digit runs ordered by numeric value.
func naturalLess(a, b string) bool {
	for a != "" && b != "" {
		if isDigit(a[0]) && isDigit(b[0]) {
			na, ra := splitDigits(a)
			nb, rb := splitDigits(b)
			ta, tb := strings.TrimLeft(na, "0"), strings.TrimLeft(nb, "0")
			if len(ta) != len(tb) {
				return len(ta) < len(tb)
			}
			if ta != tb {
				return ta < tb
			}
			a, b = ra, rb
			continue
		}

		ca, cb := lower(a[0]), lower(b[0])
		if ca != cb {
			return ca < cb
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func splitDigits(s string) (string, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}
