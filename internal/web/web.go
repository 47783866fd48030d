package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/bcnelson/gateway-address-manager/internal/auth"
	"github.com/bcnelson/gateway-address-manager/internal/metrics"
	"github.com/bcnelson/gateway-address-manager/internal/service"
	"github.com/bcnelson/gateway-address-manager/internal/storage"
)

//go:embed templates static
var content embed.FS

var log = logrus.WithField("module", "web")

// Config holds web UI settings.
type Config struct {
	BootstrapKey    string
	SessionDuration time.Duration
	SecureCookies   bool
	DraftTTL        time.Duration
}

// OIDCComponents bundles what the OIDC login flow needs. A nil
// *OIDCComponents disables OIDC login.
type OIDCComponents struct {
	Provider  *auth.OIDCProvider
	States    *auth.StateStore
	LogoutURL string
}

// Server holds dependencies for web handlers.
type Server struct {
	store        storage.Storage
	syncService  *service.SyncService
	addresses    *service.AddressService
	bootstrapKey string
	sessions     *auth.SessionStore
	drafts       *DraftStore
	oidc         *OIDCComponents
	templates    map[string]*template.Template
	funcMap      template.FuncMap
}

// NewRouter creates a new web router with all routes configured.
func NewRouter(store storage.Storage, syncService *service.SyncService, cfg Config, oidc *OIDCComponents) http.Handler {
	s := &Server{
		store:        store,
		syncService:  syncService,
		addresses:    service.NewAddressService(store, syncService, metrics.SourceWeb),
		bootstrapKey: cfg.BootstrapKey,
		sessions:     auth.NewSessionStore(cfg.SessionDuration, cfg.SecureCookies),
		drafts:       NewDraftStore(cfg.DraftTTL),
		oidc:         oidc,
	}

	s.templates = s.parseTemplates()

	r := chi.NewRouter()

	staticFS, _ := fs.Sub(content, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Public routes
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Get("/logout", s.handleLogout)
	r.Get("/auth/oidc", s.handleOIDCLogin)
	r.Get("/auth/callback", s.handleOIDCCallback)

	// Protected routes (require session)
	r.Group(func(r chi.Router) {
		r.Use(s.sessionAuth)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/gateways", http.StatusSeeOther)
		})

		// Gateways
		r.Get("/gateways", s.handleGatewaysList)
		r.Get("/gateways/new", s.handleGatewayForm)
		r.Post("/gateways", s.handleGatewayCreate)
		r.Get("/gateways/{namespace}/{name}", s.handleGatewayEdit)
		r.Delete("/gateways/{namespace}/{name}", s.handleGatewayDelete)

		// Form drafts of a gateway's address list
		r.Post("/drafts/{draft}/addresses", s.handleDraftAdd)
		r.Put("/drafts/{draft}/addresses/{index}", s.handleDraftUpdate)
		r.Delete("/drafts/{draft}/addresses/{index}", s.handleDraftRemove)
		r.Post("/drafts/{draft}/save", s.handleDraftSave)
		r.Post("/drafts/{draft}/discard", s.handleDraftDiscard)

		// Policy
		r.Get("/policy", s.handlePolicyPage)
		r.Post("/policy/sync", s.handlePolicySync)
		r.Post("/policy/rollback/{id}", s.handlePolicyRollback)

		// Settings
		r.Get("/settings", s.handleSettingsPage)
		r.Post("/settings/keys", s.handleAPIKeyCreate)
		r.Delete("/settings/keys/{id}", s.handleAPIKeyDelete)
	})

	return r
}

// parseTemplates parses all templates with custom functions.
func (s *Server) parseTemplates() map[string]*template.Template {
	s.funcMap = template.FuncMap{
		"join":  strings.Join,
		"lower": strings.ToLower,
		"dict":  dict,
		"ago":   ago,
		"add":   func(a, b int) int { return a + b },
	}

	templates := make(map[string]*template.Template)

	// Base template plus every shared component
	var shared strings.Builder
	baseContent, _ := content.ReadFile("templates/base.html")
	shared.Write(baseContent)
	componentFiles, _ := fs.Glob(content, "templates/components/*.html")
	for _, path := range componentFiles {
		c, _ := content.ReadFile(path)
		shared.Write(c)
	}

	// Parse each page template separately with the base
	pageFiles, _ := fs.Glob(content, "templates/pages/*.html")
	for _, pagePath := range pageFiles {
		pageName := strings.TrimSuffix(filepath.Base(pagePath), ".html")
		pageContent, _ := content.ReadFile(pagePath)

		tmpl, err := template.New(pageName).Funcs(s.funcMap).Parse(shared.String() + string(pageContent))
		if err != nil {
			panic("failed to parse template " + pageName + ": " + err.Error())
		}
		templates[pageName] = tmpl
	}

	return templates
}

// dict creates a map from key-value pairs for use in templates.
func dict(values ...any) map[string]any {
	if len(values)%2 != 0 {
		return nil
	}
	m := make(map[string]any, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		m[key] = values[i+1]
	}
	return m
}

// ago renders a timestamp as "5 minutes ago".
func ago(t any) string {
	switch v := t.(type) {
	case time.Time:
		if v.IsZero() {
			return "never"
		}
		return humanize.Time(v)
	case *time.Time:
		if v == nil || v.IsZero() {
			return "never"
		}
		return humanize.Time(*v)
	}
	return ""
}

// PageData holds common data passed to all page templates.
type PageData struct {
	Title   string
	Active  string // Current nav item
	User    string
	OIDC    bool
	Flash   *FlashMessage
	Content any
}

// FlashMessage represents a flash message.
type FlashMessage struct {
	Type    string // "success", "error", "info"
	Message string
}
