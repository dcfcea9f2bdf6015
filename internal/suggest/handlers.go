package suggest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/stocksentry/backend/internal/httputil"
)

// Handlers provides HTTP handlers for reviewing suggestions.
type Handlers struct {
	store  *SuggestionStore
	engine *Engine
}

func NewHandlers(store *SuggestionStore, engine *Engine) *Handlers {
	return &Handlers{store: store, engine: engine}
}

// RegisterRoutes wires the suggestion endpoints onto the provided router.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/suggestions", h.ListSuggestions).Methods("GET")
	r.HandleFunc("/api/suggestions/{id}", h.GetSuggestion).Methods("GET")
	r.HandleFunc("/api/suggestions/{id}/approve", h.ApproveSuggestion).Methods("POST")
	r.HandleFunc("/api/suggestions/{id}/reject", h.RejectSuggestion).Methods("POST")
}

// ListSuggestions handles GET /api/suggestions?status=&limit=&offset=
func (h *Handlers) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := parseIntParam(q.Get("limit"), 50)
	offset := parseIntParam(q.Get("offset"), 0)

	suggestions, err := h.store.List(r.Context(), q.Get("status"), limit, offset)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, suggestions)
}

// GetSuggestion handles GET /api/suggestions/{id}
func (h *Handlers) GetSuggestion(w http.ResponseWriter, r *http.Request) {
	sug, err := h.store.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "suggestion not found")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sug)
}

type reviewRequest struct {
	ReviewerID string `json:"reviewer_id"`
}

// ApproveSuggestion handles POST /api/suggestions/{id}/approve
func (h *Handlers) ApproveSuggestion(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ReviewerID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "reviewer_id is required")
		return
	}

	sug, err := h.engine.Approve(r.Context(), mux.Vars(r)["id"], req.ReviewerID)
	if err != nil {
		h.writeReviewError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sug)
}

// RejectSuggestion handles POST /api/suggestions/{id}/reject
func (h *Handlers) RejectSuggestion(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ReviewerID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "reviewer_id is required")
		return
	}

	sug, err := h.engine.Reject(r.Context(), mux.Vars(r)["id"], req.ReviewerID)
	if err != nil {
		h.writeReviewError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sug)
}

func (h *Handlers) writeReviewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, "suggestion not found")
	case errors.Is(err, ErrInvalidState):
		httputil.WriteError(w, http.StatusConflict, err.Error())
	default:
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
