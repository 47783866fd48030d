package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bcnelson/gateway-address-manager/internal/domain"
	"github.com/bcnelson/gateway-address-manager/internal/service"
)

// AddressHandler edits a gateway's address list by position.
type AddressHandler struct {
	addresses *service.AddressService
}

// NewAddressHandler creates a new AddressHandler.
func NewAddressHandler(addresses *service.AddressService) *AddressHandler {
	return &AddressHandler{addresses: addresses}
}

// Add appends a default address entry.
func (h *AddressHandler) Add(w http.ResponseWriter, r *http.Request) {
	gw, err := h.addresses.AddAddress(r.Context(),
		chi.URLParam(r, "namespace"), chi.URLParam(r, "name"), gatewayPrecondition(r))
	if err != nil {
		handleError(w, err)
		return
	}

	SetGatewayETag(w, gw)
	respondJSON(w, http.StatusCreated, gw)
}

// Replace replaces the whole address list.
func (h *AddressHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var list domain.AddressList
	if err := decodeJSON(r, &list); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	gw, err := h.addresses.ReplaceAddresses(r.Context(),
		chi.URLParam(r, "namespace"), chi.URLParam(r, "name"), list, gatewayPrecondition(r))
	if err != nil {
		handleError(w, err)
		return
	}

	SetGatewayETag(w, gw)
	respondJSON(w, http.StatusOK, gw)
}

// Update replaces the entry at {index}.
func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndex(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	var req domain.UpdateAddressRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry := domain.Address{Type: domain.AddressType(req.Type), Value: req.Value}
	gw, err := h.addresses.UpdateAddress(r.Context(),
		chi.URLParam(r, "namespace"), chi.URLParam(r, "name"), index, entry, gatewayPrecondition(r))
	if err != nil {
		handleError(w, err)
		return
	}

	SetGatewayETag(w, gw)
	respondJSON(w, http.StatusOK, gw)
}

// Delete removes the entry at {index}; later entries move down by one.
func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndex(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	gw, err := h.addresses.RemoveAddress(r.Context(),
		chi.URLParam(r, "namespace"), chi.URLParam(r, "name"), index, gatewayPrecondition(r))
	if err != nil {
		handleError(w, err)
		return
	}

	SetGatewayETag(w, gw)
	respondJSON(w, http.StatusOK, gw)
}
