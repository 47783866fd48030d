package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bcnelson/gateway-address-manager/internal/api/handler"
	"github.com/bcnelson/gateway-address-manager/internal/api/middleware"
	"github.com/bcnelson/gateway-address-manager/internal/metrics"
	"github.com/bcnelson/gateway-address-manager/internal/service"
	"github.com/bcnelson/gateway-address-manager/internal/storage"
	"github.com/bcnelson/gateway-address-manager/internal/web"
)

// NewRouter creates a new HTTP router with all routes configured.
// oidc may be nil when OIDC login is disabled.
func NewRouter(
	store storage.Storage,
	syncService *service.SyncService,
	bootstrapKey string,
	webConfig web.Config,
	oidc *web.OIDCComponents,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging)

	// No auth on health and metrics.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	// Web UI serves HTML, so it sits outside the JSON Content-Type middleware.
	webConfig.BootstrapKey = bootstrapKey
	r.Mount("/", web.NewRouter(store, syncService, webConfig, oidc))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)
		r.Use(middleware.Auth(store, bootstrapKey))

		// API Keys
		keyHandler := handler.NewAPIKeyHandler(store)
		r.Post("/keys", keyHandler.Create)
		r.Get("/keys", keyHandler.List)
		r.Get("/keys/self", keyHandler.Self)
		r.Delete("/keys/{id}", keyHandler.Delete)

		// Namespaces
		nsHandler := handler.NewNamespaceHandler(store, syncService)
		r.Get("/namespaces", nsHandler.List)
		r.Put("/namespaces/{namespace}", nsHandler.Update)
		r.Get("/namespaces/{namespace}/validations", nsHandler.Validations)
		r.Get("/validations", nsHandler.ConfigValidations)

		// Gateways
		gwHandler := handler.NewGatewayHandler(store, syncService)
		r.Post("/gateways", gwHandler.Create)
		r.Get("/gateways", gwHandler.List)

		r.Route("/gateways/{namespace}/{name}", func(r chi.Router) {
			r.Get("/", gwHandler.Get)
			r.Put("/", gwHandler.Update)
			r.Delete("/", gwHandler.Delete)

			// Address list, edited by position
			addrHandler := handler.NewAddressHandler(
				service.NewAddressService(store, syncService, metrics.SourceAPI))
			r.Post("/addresses", addrHandler.Add)
			r.Put("/addresses", addrHandler.Replace)
			r.Put("/addresses/{index}", addrHandler.Update)
			r.Delete("/addresses/{index}", addrHandler.Delete)
		})

		// Policy management
		policyHandler := handler.NewPolicyHandler(store, syncService)
		r.Get("/policy", policyHandler.Get)
		r.Get("/policy/preview", policyHandler.Preview)
		r.Post("/policy/sync", policyHandler.Sync)
		r.Get("/policy/versions", policyHandler.ListVersions)
		r.Get("/policy/versions/{id}", policyHandler.GetVersion)
		r.Post("/policy/rollback/{id}", policyHandler.Rollback)
	})

	return r
}
