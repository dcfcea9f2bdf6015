package sales

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stocksentry/backend/internal/catalog"
	"github.com/stocksentry/backend/internal/httputil"
)

// Handlers provides HTTP handlers for sales.
type Handlers struct {
	store   *SaleStore
	service *Service
}

func NewHandlers(store *SaleStore, service *Service) *Handlers {
	return &Handlers{store: store, service: service}
}

// RegisterRoutes wires the sales endpoints onto the provided router.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/sales", h.CreateSale).Methods("POST")
	r.HandleFunc("/api/sales", h.ListSales).Methods("GET")
	r.HandleFunc("/api/sales/{id}", h.GetSale).Methods("GET")
	r.HandleFunc("/api/sales/{id}/complete", h.CompleteSale).Methods("POST")
	r.HandleFunc("/api/sales/{id}/cancel", h.CancelSale).Methods("POST")
}

// CreateSale handles POST /api/sales
func (h *Handlers) CreateSale(w http.ResponseWriter, r *http.Request) {
	var sale Sale
	if err := httputil.DecodeJSON(r, &sale); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(sale.Items) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "sale must have at least one item")
		return
	}

	if err := h.service.CreateSale(r.Context(), &sale); err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			httputil.WriteError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, catalog.ErrInsufficientStock):
			httputil.WriteError(w, http.StatusConflict, err.Error())
		default:
			httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sale)
}

// ListSales handles GET /api/sales
func (h *Handlers) ListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.store.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sales)
}

// GetSale handles GET /api/sales/{id}
func (h *Handlers) GetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.store.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "sale not found")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sale)
}

// CompleteSale handles POST /api/sales/{id}/complete
func (h *Handlers) CompleteSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.service.CompleteSale(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeTransitionError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sale)
}

// CancelSale handles POST /api/sales/{id}/cancel
func (h *Handlers) CancelSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.service.CancelSale(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeTransitionError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sale)
}

func (h *Handlers) writeTransitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, "sale not found")
	case errors.Is(err, ErrInvalidState):
		httputil.WriteError(w, http.StatusConflict, err.Error())
	default:
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
