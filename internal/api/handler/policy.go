package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bcnelson/gateway-address-manager/internal/domain"
	"github.com/bcnelson/gateway-address-manager/internal/service"
	"github.com/bcnelson/gateway-address-manager/internal/storage"
)

const (
	defaultVersionsPage = 20
	maxVersionsPage     = 100
)

// PolicyHandler serves the published hosts and their version history.
type PolicyHandler struct {
	store       storage.Storage
	syncService *service.SyncService
}

func NewPolicyHandler(store storage.Storage, syncService *service.SyncService) *PolicyHandler {
	return &PolicyHandler{store: store, syncService: syncService}
}

// PolicyPreview is the hosts section the next sync would publish.
type PolicyPreview struct {
	Hosts     map[string]string `json:"hosts"`
	HostCount int               `json:"hostCount"`
}

// Get returns the latest policy version, pushed or not.
func (h *PolicyHandler) Get(w http.ResponseWriter, r *http.Request) {
	version, err := h.store.GetLatestPolicyVersion(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, version)
}

func (h *PolicyHandler) Preview(w http.ResponseWriter, r *http.Request) {
	policy, err := h.syncService.GetMergedPolicy(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	hosts := policy.Hosts
	if hosts == nil {
		hosts = map[string]string{}
	}
	respondJSON(w, http.StatusOK, PolicyPreview{Hosts: hosts, HostCount: len(hosts)})
}

// Sync pushes now, skipping the debounce.
func (h *PolicyHandler) Sync(w http.ResponseWriter, r *http.Request) {
	h.respondSync(w, r, func() (*domain.SyncResponse, error) {
		return h.syncService.ForceSync(r.Context())
	})
}

func (h *PolicyHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	h.respondSync(w, r, func() (*domain.SyncResponse, error) {
		return h.syncService.Rollback(r.Context(), chi.URLParam(r, "id"))
	})
}

// respondSync reports a failed push as 502 with the version that recorded it.
func (h *PolicyHandler) respondSync(w http.ResponseWriter, r *http.Request, push func() (*domain.SyncResponse, error)) {
	resp, err := push()
	if err != nil {
		handleError(w, err)
		return
	}
	if resp.Status == domain.PushStatusFailed {
		respondJSON(w, http.StatusBadGateway, resp)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *PolicyHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	versions, err := h.store.ListPolicyVersions(r.Context(), limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, versions)
}

func (h *PolicyHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	version, err := h.store.GetPolicyVersion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, version)
}

// pageParams reads ?limit and ?offset. Bad values fall back to the defaults.
func pageParams(r *http.Request) (limit, offset int) {
	limit = defaultVersionsPage
	q := r.URL.Query()
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		limit = min(n, maxVersionsPage)
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n >= 0 {
		offset = n
	}
	return limit, offset
}
