package catalog

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stocksentry/backend/internal/httputil"
)

// Handlers provides HTTP handlers for the product and supplier catalog.
type Handlers struct {
	products  *ProductStore
	suppliers *SupplierStore
	service   *Service
}

func NewHandlers(products *ProductStore, suppliers *SupplierStore, service *Service) *Handlers {
	return &Handlers{products: products, suppliers: suppliers, service: service}
}

// RegisterRoutes wires the catalog endpoints onto the provided router.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/products", h.CreateProduct).Methods("POST")
	r.HandleFunc("/api/products", h.ListProducts).Methods("GET")
	r.HandleFunc("/api/products/{id}", h.GetProduct).Methods("GET")
	r.HandleFunc("/api/products/{id}/stock-adjustments", h.AdjustStock).Methods("POST")
	r.HandleFunc("/api/products/{id}/suppliers", h.ListSupplierOptions).Methods("GET")
	r.HandleFunc("/api/products/{id}/suppliers/{supplierID}", h.UpsertPreference).Methods("PUT")
	r.HandleFunc("/api/suppliers", h.CreateSupplier).Methods("POST")
	r.HandleFunc("/api/suppliers", h.ListSuppliers).Methods("GET")
}

// CreateProduct handles POST /api/products
func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p Product
	if err := httputil.DecodeJSON(r, &p); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p.SKU == "" || p.Name == "" {
		httputil.WriteError(w, http.StatusBadRequest, "sku and name are required")
		return
	}
	if p.CurrentStock < 0 || p.LowStockThreshold < 0 {
		httputil.WriteError(w, http.StatusBadRequest, "stock fields must be non-negative")
		return
	}
	p.IsActive = true

	if err := h.products.Insert(r.Context(), &p); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

// ListProducts handles GET /api/products
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, products)
}

// GetProduct handles GET /api/products/{id}
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "product not found")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// AdjustStock handles POST /api/products/{id}/stock-adjustments
func (h *Handlers) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Delta int `json:"delta"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Delta == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "delta must be non-zero")
		return
	}

	p, err := h.service.AdjustStock(r.Context(), id, req.Delta)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httputil.WriteError(w, http.StatusNotFound, "product not found")
		case errors.Is(err, ErrInsufficientStock):
			httputil.WriteError(w, http.StatusConflict, "insufficient stock")
		default:
			httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

// ListSupplierOptions handles GET /api/products/{id}/suppliers
func (h *Handlers) ListSupplierOptions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	options, err := h.suppliers.OptionsForProduct(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if options == nil {
		options = []SupplierOption{}
	}
	httputil.WriteJSON(w, http.StatusOK, options)
}

// UpsertPreference handles PUT /api/products/{id}/suppliers/{supplierID}
func (h *Handlers) UpsertPreference(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var pref SupplierPreference
	if err := httputil.DecodeJSON(r, &pref); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	pref.ProductID = vars["id"]
	pref.SupplierID = vars["supplierID"]
	if pref.MinimumOrderQty < 0 || pref.LeadTimeDays < 0 {
		httputil.WriteError(w, http.StatusBadRequest, "order quantity and lead time must be non-negative")
		return
	}

	if err := h.suppliers.UpsertPreference(r.Context(), &pref); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pref)
}

// CreateSupplier handles POST /api/suppliers
func (h *Handlers) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var sup Supplier
	if err := httputil.DecodeJSON(r, &sup); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if sup.Code == "" || sup.Name == "" {
		httputil.WriteError(w, http.StatusBadRequest, "code and name are required")
		return
	}
	sup.IsActive = true

	if err := h.suppliers.Insert(r.Context(), &sup); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sup)
}

// ListSuppliers handles GET /api/suppliers
func (h *Handlers) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.suppliers.List(r.Context())
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, suppliers)
}
