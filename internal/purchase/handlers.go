package purchase

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stocksentry/backend/internal/httputil"
)

// Handlers provides HTTP handlers for purchase orders.
type Handlers struct {
	store   *PurchaseStore
	service *Service
}

func NewHandlers(store *PurchaseStore, service *Service) *Handlers {
	return &Handlers{store: store, service: service}
}

// RegisterRoutes wires the purchase endpoints onto the provided router.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/purchases", h.CreatePurchase).Methods("POST")
	r.HandleFunc("/api/purchases", h.ListPurchases).Methods("GET")
	r.HandleFunc("/api/purchases/{id}", h.GetPurchase).Methods("GET")
	r.HandleFunc("/api/purchases/{id}/receive", h.ReceivePurchase).Methods("POST")
	r.HandleFunc("/api/purchases/{id}/cancel", h.CancelPurchase).Methods("POST")
}

// CreatePurchase handles POST /api/purchases
func (h *Handlers) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	var p Purchase
	if err := httputil.DecodeJSON(r, &p); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p.SupplierID == "" || len(p.Items) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "supplier_id and at least one item are required")
		return
	}

	if err := h.service.Create(r.Context(), &p); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

// ListPurchases handles GET /api/purchases
func (h *Handlers) ListPurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := h.store.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, purchases)
}

// GetPurchase handles GET /api/purchases/{id}
func (h *Handlers) GetPurchase(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "purchase not found")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// ReceivePurchase handles POST /api/purchases/{id}/receive
func (h *Handlers) ReceivePurchase(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Receive(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeTransitionError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// CancelPurchase handles POST /api/purchases/{id}/cancel
func (h *Handlers) CancelPurchase(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Cancel(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeTransitionError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handlers) writeTransitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, "purchase not found")
	case errors.Is(err, ErrInvalidState):
		httputil.WriteError(w, http.StatusConflict, err.Error())
	default:
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
