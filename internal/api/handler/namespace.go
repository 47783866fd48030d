package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/bcnelson/gateway-address-manager/internal/domain"
	"github.com/bcnelson/gateway-address-manager/internal/merger"
	"github.com/bcnelson/gateway-address-manager/internal/service"
	"github.com/bcnelson/gateway-address-manager/internal/storage"
	"github.com/bcnelson/gateway-address-manager/internal/validation"
)

// NamespaceHandler handles namespace endpoints. Namespaces exist only through
// the gateways that live in them.
type NamespaceHandler struct {
	store       storage.Storage
	merger      *merger.Merger
	syncService *service.SyncService
}

// NewNamespaceHandler creates a new NamespaceHandler.
func NewNamespaceHandler(store storage.Storage, syncService *service.SyncService) *NamespaceHandler {
	return &NamespaceHandler{
		store:       store,
		merger:      merger.New(store),
		syncService: syncService,
	}
}

// List lists namespaces with their gateway counts.
func (h *NamespaceHandler) List(w http.ResponseWriter, r *http.Request) {
	namespaces, err := h.store.ListNamespaces(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, namespaces)
}

// Validations summarizes the address entries of one namespace that will not
// be published.
func (h *NamespaceHandler) Validations(w http.ResponseWriter, r *http.Request) {
	summary, err := h.merger.ValidateNamespace(r.Context(), chi.URLParam(r, "namespace"))
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// ConfigValidations summarizes the namespaces named in the comma separated
// "namespaces" query parameter, or all of them when it is absent.
func (h *NamespaceHandler) ConfigValidations(w http.ResponseWriter, r *http.Request) {
	var namespaces []string
	for _, ns := range strings.Split(r.URL.Query().Get("namespaces"), ",") {
		if ns = strings.TrimSpace(ns); ns != "" {
			namespaces = append(namespaces, ns)
		}
	}

	summaries, err := h.merger.Validate(r.Context(), namespaces)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summaries)
}

// Update renames a namespace, moving all of its gateways at once.
func (h *NamespaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	from := chi.URLParam(r, "namespace")

	var req domain.UpdateNamespaceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var errs validation.ValidationErrors
	if err := validation.ValidateNamespace(req.Name); err != nil {
		errs.Add("name", req.Name, err.Error())
	} else if req.Name == from {
		errs.Add("name", req.Name, "namespace already has this name")
	}
	if errs.HasErrors() {
		respondValidationErrors(w, errs)
		return
	}

	moved, err := h.store.RenameNamespace(r.Context(), from, req.Name)
	if err != nil {
		handleError(w, err)
		return
	}

	log.WithFields(logrus.Fields{
		"from":     from,
		"to":       req.Name,
		"gateways": moved,
	}).Info("namespace renamed")
	h.syncService.TriggerSync()
	respondJSON(w, http.StatusOK, &domain.Namespace{Name: req.Name, GatewayCount: moved})
}
