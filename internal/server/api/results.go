package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/candybooth/internal/layers"
	"github.com/ayusman/candybooth/internal/store"
	"github.com/ayusman/candybooth/internal/survey"
)

// MaxPhotoBytes bounds the multipart body of a photo upload.
const MaxPhotoBytes = 32 << 20

// ResultsHandler handles HTTP requests for result resources.
type ResultsHandler struct {
	store  *store.Store
	survey *survey.Service
}

// NewResultsHandler creates a new ResultsHandler.
func NewResultsHandler(s *store.Store, svc *survey.Service) *ResultsHandler {
	return &ResultsHandler{store: s, survey: svc}
}

// ServeHTTP routes:
//
//	POST /api/results
//	POST /api/results/survey-upload
//	GET  /api/results/{id}
//	POST /api/results/{id}/photo
func (h *ResultsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/results")
	path = strings.Trim(path, "/")

	switch {
	case path == "":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.create(w, r)

	case path == "survey-upload":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.surveyUpload(w, r)

	case strings.HasSuffix(path, "/photo"):
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.uploadPhoto(w, r, strings.TrimSuffix(path, "/photo"))

	case !strings.Contains(path, "/"):
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.get(w, r, path)

	default:
		http.NotFound(w, r)
	}
}

type createResultResponse struct {
	Success  bool  `json:"success"`
	ResultID int64 `json:"resultId"`
}

// ResultView is the public JSON form of a result.
type ResultView struct {
	ID            int64   `json:"id"`
	Answers       []int64 `json:"answers"`
	AppleCandyURL *string `json:"appleCandyUrl"`
	PhotoURL      *string `json:"photoUrl"`
}

type getResultResponse struct {
	Success bool       `json:"success"`
	Result  ResultView `json:"result"`
}

type surveyUploadResponse struct {
	Success       bool   `json:"success"`
	ResultID      int64  `json:"resultId"`
	AppleCandyURL string `json:"appleCandyUrl"`
	SameCount     int    `json:"sameCount"`
	PastCount     int    `json:"pastCount"`
	DuplicateRank int    `json:"duplicateRank"`
	Message       string `json:"message"`
}

type photoResponse struct {
	Success  bool   `json:"success"`
	PhotoURL string `json:"photoUrl"`
}

// toView converts a store.Result, mapping empty URLs to null.
func toView(res *store.Result) ResultView {
	v := ResultView{ID: res.ID, Answers: res.Answers}
	if res.GeneratedImageURL != "" {
		v.AppleCandyURL = &res.GeneratedImageURL
	}
	if res.PhotoURL != "" {
		v.PhotoURL = &res.PhotoURL
	}
	return v
}

// create handles POST /api/results.
func (h *ResultsHandler) create(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.Results().Create()
	if err != nil {
		log.Error().Err(err).Msg("Failed to create result record")
		writeError(w, http.StatusInternalServerError, "Failed to create result record")
		return
	}

	log.Info().Int64("resultId", res.ID).Msg("Result created")
	writeJSON(w, http.StatusOK, createResultResponse{Success: true, ResultID: res.ID})
}

// get handles GET /api/results/{id}.
func (h *ResultsHandler) get(w http.ResponseWriter, r *http.Request, idParam string) {
	id, ok := parseID(idParam)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	res, err := h.store.Results().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Result not found")
			return
		}
		log.Error().Err(err).Int64("resultId", id).Msg("Failed to fetch result")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, getResultResponse{Success: true, Result: toView(res)})
}

type surveyUploadRequest struct {
	ResultID       json.RawMessage `json:"resultId"`
	Answers        json.RawMessage `json:"answers"`
	TotalQuestions json.RawMessage `json:"totalQuestions"`
	IsAdult        json.RawMessage `json:"isAdult"`
}

// parse validates the loosely typed body in the order the checks are
// reported: shape first, then answer types, then the result id.
func (req surveyUploadRequest) parse() (survey.Submission, string) {
	var sub survey.Submission

	var raw []json.RawMessage
	var total float64
	if json.Unmarshal(req.Answers, &raw) != nil || raw == nil ||
		isNull(req.TotalQuestions) || json.Unmarshal(req.TotalQuestions, &total) != nil {
		return sub, "Invalid request data"
	}

	sub.Answers = make([]int64, 0, len(raw))
	for _, a := range raw {
		var id int64
		if isNull(a) || json.Unmarshal(a, &id) != nil {
			return sub, "Answers must contain option IDs as numbers"
		}
		sub.Answers = append(sub.Answers, id)
	}

	if json.Unmarshal(req.ResultID, &sub.ResultID) != nil || sub.ResultID <= 0 {
		return sub, "Invalid result id"
	}

	sub.TotalQuestions = int(total)
	sub.IsAdult = string(req.IsAdult) == "true"
	return sub, ""
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// surveyUpload handles POST /api/results/survey-upload.
func (h *ResultsHandler) surveyUpload(w http.ResponseWriter, r *http.Request) {
	var req surveyUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request data")
		return
	}

	sub, msg := req.parse()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	out, err := h.survey.Submit(r.Context(), sub)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Result record not found")
		case errors.Is(err, layers.ErrNoLayers):
			writeError(w, http.StatusUnprocessableEntity, layers.ErrNoLayers.Error())
		case errors.Is(err, survey.ErrInvalidSubmission):
			writeError(w, http.StatusBadRequest, "Invalid request data")
		default:
			log.Error().Err(err).Int64("resultId", sub.ResultID).Msg("Survey upload failed")
			writeError(w, http.StatusInternalServerError, "Failed to save survey answers")
		}
		return
	}

	writeJSON(w, http.StatusOK, surveyUploadResponse{
		Success:       true,
		ResultID:      out.ResultID,
		AppleCandyURL: out.GeneratedImageURL,
		SameCount:     out.SameCount,
		PastCount:     out.PastCount,
		DuplicateRank: out.DuplicateRank(),
		Message:       "Survey answers saved",
	})
}

// uploadPhoto handles POST /api/results/{id}/photo with a multipart "file" field.
func (h *ResultsHandler) uploadPhoto(w http.ResponseWriter, r *http.Request, idParam string) {
	id, ok := parseID(idParam)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxPhotoBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Photo data not found")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Photo data not found")
		return
	}

	url, err := h.survey.SavePhoto(r.Context(), id, header.Header.Get("Content-Type"), data)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Result not found")
		case errors.Is(err, survey.ErrInvalidSubmission):
			writeError(w, http.StatusBadRequest, "Photo data not found")
		default:
			log.Error().Err(err).Int64("resultId", id).Msg("Failed to save photo")
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, photoResponse{Success: true, PhotoURL: url})
}
