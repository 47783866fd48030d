package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bcnelson/gateway-address-manager/internal/domain"
	"github.com/bcnelson/gateway-address-manager/internal/metrics"
	"github.com/bcnelson/gateway-address-manager/internal/service"
	"github.com/bcnelson/gateway-address-manager/internal/storage"
	"github.com/bcnelson/gateway-address-manager/internal/validation"
)

// GatewayHandler handles gateway endpoints.
type GatewayHandler struct {
	store       storage.Storage
	syncService *service.SyncService
}

// NewGatewayHandler creates a new GatewayHandler.
func NewGatewayHandler(store storage.Storage, syncService *service.SyncService) *GatewayHandler {
	return &GatewayHandler{store: store, syncService: syncService}
}

// Create creates a new gateway.
func (h *GatewayHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateGatewayRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if errs := validation.ValidateCreateGateway(&req); errs.HasErrors() {
		respondValidationErrors(w, errs)
		return
	}

	now := time.Now()
	gw := &domain.Gateway{
		ID:               generateID(),
		Namespace:        req.Namespace,
		Name:             req.Name,
		GatewayClassName: req.GatewayClassName,
		Addresses:        req.Addresses.Clone(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := h.store.CreateGateway(r.Context(), gw); err != nil {
		handleError(w, err)
		return
	}

	h.syncService.TriggerSync()
	SetGatewayETag(w, gw)
	respondJSON(w, http.StatusCreated, gw)
}

// List lists gateways, optionally filtered by the namespace query parameter.
func (h *GatewayHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		gateways []*domain.Gateway
		err      error
	)
	if ns := r.URL.Query().Get("namespace"); ns != "" {
		gateways, err = h.store.ListGateways(r.Context(), ns)
	} else {
		gateways, err = h.store.ListAllGateways(r.Context())
	}
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, gateways)
}

// Get gets a gateway by namespace and name.
func (h *GatewayHandler) Get(w http.ResponseWriter, r *http.Request) {
	gw, err := h.store.GetGateway(r.Context(), chi.URLParam(r, "namespace"), chi.URLParam(r, "name"))
	if err != nil {
		handleError(w, err)
		return
	}

	SetGatewayETag(w, gw)
	respondJSON(w, http.StatusOK, gw)
}

// Update changes the gateway class and, when given, replaces the whole
// address list.
func (h *GatewayHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateGatewayRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var errs validation.ValidationErrors
	if req.GatewayClassName != nil {
		if err := validation.ValidateGatewayClassName(*req.GatewayClassName); err != nil {
			errs.Add("gatewayClassName", *req.GatewayClassName, err.Error())
		}
	}
	errs = append(errs, validation.ValidateAddresses("addresses", req.Addresses)...)
	if errs.HasErrors() {
		respondValidationErrors(w, errs)
		return
	}

	gw, err := h.store.GetGateway(r.Context(), chi.URLParam(r, "namespace"), chi.URLParam(r, "name"))
	if err != nil {
		handleError(w, err)
		return
	}
	if err := gatewayPrecondition(r)(gw); err != nil {
		handleError(w, err)
		return
	}

	if req.GatewayClassName != nil {
		gw.GatewayClassName = *req.GatewayClassName
	}
	if req.Addresses != nil {
		gw.Addresses = req.Addresses.Clone()
	}

	if err := h.store.UpdateGateway(r.Context(), gw); err != nil {
		handleError(w, err)
		return
	}
	if req.Addresses != nil {
		metrics.AddressMutation(metrics.OpReplace, metrics.SourceAPI)
	}

	h.syncService.TriggerSync()
	SetGatewayETag(w, gw)
	respondJSON(w, http.StatusOK, gw)
}

// Delete deletes a gateway.
func (h *GatewayHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ns, name := chi.URLParam(r, "namespace"), chi.URLParam(r, "name")

	gw, err := h.store.GetGateway(r.Context(), ns, name)
	if err != nil {
		handleError(w, err)
		return
	}
	if err := gatewayPrecondition(r)(gw); err != nil {
		handleError(w, err)
		return
	}

	if err := h.store.DeleteGateway(r.Context(), ns, name); err != nil {
		handleError(w, err)
		return
	}

	h.syncService.TriggerSync()
	w.WriteHeader(http.StatusNoContent)
}
