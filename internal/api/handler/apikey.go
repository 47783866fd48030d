package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bcnelson/gateway-address-manager/internal/api/middleware"
	"github.com/bcnelson/gateway-address-manager/internal/domain"
	"github.com/bcnelson/gateway-address-manager/internal/storage"
)

// APIKeyHandler serves /keys.
type APIKeyHandler struct {
	store storage.Storage
}

func NewAPIKeyHandler(store storage.Storage) *APIKeyHandler {
	return &APIKeyHandler{store: store}
}

// Create issues a key. The plaintext key is only ever in this response.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondStandardError(w, http.StatusBadRequest, domain.ErrCodeValidationError, "name is required", "name", nil)
		return
	}

	apiKey, plaintext, err := middleware.IssueAPIKey(name)
	if err != nil {
		handleError(w, err)
		return
	}
	if err := h.store.CreateAPIKey(r.Context(), apiKey); err != nil {
		handleError(w, err)
		return
	}

	log.WithField("prefix", apiKey.KeyPrefix).Info("api key created")
	respondJSON(w, http.StatusCreated, &domain.CreateAPIKeyResponse{
		ID:        apiKey.ID,
		Name:      apiKey.Name,
		Key:       plaintext,
		KeyPrefix: apiKey.KeyPrefix,
		CreatedAt: apiKey.CreatedAt,
	})
}

func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.ListAPIKeys(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, keys)
}

// Self describes the key the request was made with. With the bootstrap key
// this is a synthetic record.
func (h *APIKeyHandler) Self(w http.ResponseWriter, r *http.Request) {
	key := middleware.GetAPIKeyFromContext(r.Context())
	if key == nil {
		handleError(w, domain.ErrUnauthorized)
		return
	}
	respondJSON(w, http.StatusOK, key)
}

func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteAPIKey(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}
	log.WithField("id", id).Info("api key deleted")
	w.WriteHeader(http.StatusNoContent)
}
