package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/candybooth/internal/store"
)

// QuestionsHandler serves GET /api/questions?isAdult=true|false.
type QuestionsHandler struct {
	store *store.Store
}

// NewQuestionsHandler creates a new QuestionsHandler with the given store.
func NewQuestionsHandler(s *store.Store) *QuestionsHandler {
	return &QuestionsHandler{store: s}
}

type questionsResponse struct {
	Success   bool              `json:"success"`
	Questions []*store.Question `json:"questions"`
}

// ServeHTTP lists the questions for one audience. Anything other than
// isAdult=true selects the child set.
func (h *QuestionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	isAdult := r.URL.Query().Get("isAdult") == "true"

	questions, err := h.store.Questions().ListByAudience(isAdult)
	if err != nil {
		log.Error().Err(err).Bool("isAdult", isAdult).Msg("Failed to list questions")
		writeError(w, http.StatusInternalServerError, "Failed to load questions")
		return
	}

	if len(questions) == 0 {
		writeError(w, http.StatusNotFound, "No questions found")
		return
	}

	writeJSON(w, http.StatusOK, questionsResponse{Success: true, Questions: questions})
}
