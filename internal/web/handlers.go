package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bcnelson/gateway-address-manager/internal/api/middleware"
	"github.com/bcnelson/gateway-address-manager/internal/auth"
	"github.com/bcnelson/gateway-address-manager/internal/domain"
)

// handleLoginPage renders the login page.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	data := PageData{
		Title: "Login",
		OIDC:  s.oidc != nil,
	}

	if msg := r.URL.Query().Get("error"); msg != "" {
		data.Flash = &FlashMessage{Type: "error", Message: msg}
	}

	s.render(w, "base-noauth", "login", data)
}

// handleLogin processes the API key login form.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/login?error=Invalid+form+data", http.StatusSeeOther)
		return
	}

	apiKey := strings.TrimSpace(r.FormValue("api_key"))
	if apiKey == "" {
		http.Redirect(w, r, "/login?error=API+key+required", http.StatusSeeOther)
		return
	}

	key, err := middleware.Authenticate(r.Context(), s.store, s.bootstrapKey, apiKey)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			http.Redirect(w, r, "/login?error=Invalid+API+key", http.StatusSeeOther)
			return
		}
		log.WithError(err).Error("api key login failed")
		http.Redirect(w, r, "/login?error=Server+error", http.StatusSeeOther)
		return
	}

	session := &auth.Session{Method: auth.MethodAPIKey, APIKeyID: key.ID, Name: key.Name}
	if err := s.sessions.Create(w, session); err != nil {
		log.WithError(err).Error("failed to create session")
		http.Redirect(w, r, "/login?error=Server+error", http.StatusSeeOther)
		return
	}

	log.WithField("key", key.KeyPrefix).Info("web login with api key")
	http.Redirect(w, r, "/gateways", http.StatusSeeOther)
}

// handleLogout ends the session. OIDC users go on to the provider's logout
// page when one is configured.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := s.sessions.Get(r)
	s.sessions.Destroy(w, r)

	if session != nil && session.Method == auth.MethodOIDC && s.oidc != nil && s.oidc.LogoutURL != "" {
		http.Redirect(w, r, s.oidc.LogoutURL, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// PolicyPageData holds data for the policy page.
type PolicyPageData struct {
	PolicyJSON    string
	HostCount     int
	Versions      []*domain.PolicyVersion
	LatestVersion *domain.PolicyVersion
}

// handlePolicyPage renders the policy page.
func (s *Server) handlePolicyPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	policy, err := s.syncService.GetMergedPolicy(ctx)
	if err != nil {
		s.renderError(w, "Failed to load policy", http.StatusInternalServerError)
		return
	}

	policyJSON, _ := json.MarshalIndent(policy, "", "  ")

	versions, _ := s.store.ListPolicyVersions(ctx, parseInt(r.URL.Query().Get("limit"), 10), 0)
	latestVersion, _ := s.store.GetLatestPolicyVersion(ctx)

	data := s.page(r, "Policy", "policy", PolicyPageData{
		PolicyJSON:    string(policyJSON),
		HostCount:     len(policy.Hosts),
		Versions:      versions,
		LatestVersion: latestVersion,
	})
	s.render(w, "base", "policy", data)
}

// handlePolicySync triggers a policy sync.
func (s *Server) handlePolicySync(w http.ResponseWriter, r *http.Request) {
	result, err := s.syncService.ForceSync(r.Context())
	if err != nil {
		s.renderError(w, "Sync failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if result.Status == domain.PushStatusFailed {
		s.renderError(w, "Sync failed: "+result.Error, http.StatusInternalServerError)
		return
	}

	hxRedirect(w, "/policy")
}

// handlePolicyRollback rolls back to a previous policy version.
func (s *Server) handlePolicyRollback(w http.ResponseWriter, r *http.Request) {
	result, err := s.syncService.Rollback(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.renderError(w, "Rollback failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if result.Status == domain.PushStatusFailed {
		s.renderError(w, "Rollback failed: "+result.Error, http.StatusInternalServerError)
		return
	}

	hxRedirect(w, "/policy")
}

// SettingsPageData holds data for the settings page.
type SettingsPageData struct {
	APIKeys    []*domain.APIKey
	OpenDrafts int
	Sessions   int
}

// handleSettingsPage renders the settings page.
func (s *Server) handleSettingsPage(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.ListAPIKeys(r.Context())
	if err != nil {
		s.renderError(w, "Failed to load API keys", http.StatusInternalServerError)
		return
	}

	data := s.page(r, "Settings", "settings", SettingsPageData{
		APIKeys:    keys,
		OpenDrafts: s.drafts.Count(),
		Sessions:   s.sessions.Count(),
	})

	if key := r.URL.Query().Get("created"); key != "" {
		data.Flash = &FlashMessage{
			Type:    "success",
			Message: "API key created. Copy it now, it will not be shown again: " + key,
		}
	}

	s.render(w, "base", "settings", data)
}

// handleAPIKeyCreate creates a new API key.
func (s *Server) handleAPIKeyCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		s.renderError(w, "Name is required", http.StatusBadRequest)
		return
	}

	apiKey, plaintext, err := middleware.IssueAPIKey(name)
	if err != nil {
		s.renderError(w, "Failed to generate key", http.StatusInternalServerError)
		return
	}
	if err := s.store.CreateAPIKey(r.Context(), apiKey); err != nil {
		s.renderError(w, "Failed to create API key", http.StatusInternalServerError)
		return
	}

	hxRedirect(w, "/settings?created="+url.QueryEscape(plaintext))
}

// handleAPIKeyDelete deletes an API key and ends the web sessions it opened.
func (s *Server) handleAPIKeyDelete(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "id")

	if err := s.store.DeleteAPIKey(r.Context(), keyID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.renderError(w, "API key not found", http.StatusNotFound)
			return
		}
		s.renderError(w, "Failed to delete API key", http.StatusInternalServerError)
		return
	}

	if n := s.sessions.RevokeAPIKey(keyID); n > 0 {
		log.WithField("sessions", n).Info("revoked web sessions of deleted api key")
	}

	hxRedirect(w, "/settings")
}

// render renders a full page using the base template.
// page is the page name (e.g., "login", "gateways")
// base is the base template to use ("base" or "base-noauth")
func (s *Server) render(w http.ResponseWriter, base, page string, data PageData) {
	s.execute(w, page, base, data)
}

// renderFragment renders just the content block for htmx requests.
func (s *Server) renderFragment(w http.ResponseWriter, page string, data any) {
	s.execute(w, page, "content", data)
}

// renderPartial renders one named shared template, such as the address
// list table, for htmx swaps.
func (s *Server) renderPartial(w http.ResponseWriter, name string, data any) {
	s.execute(w, "gateway_edit", name, data)
}

// execute renders into a buffer first so a template error never leaves a
// half-written page behind.
func (s *Server) execute(w http.ResponseWriter, page, name string, data any) {
	tmpl, ok := s.templates[page]
	if !ok {
		http.Error(w, "Template not found: "+page, http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		log.WithError(err).WithField("template", page+"/"+name).Error("template error")
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// renderError renders an error message.
func (s *Server) renderError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(`<div class="flash flash-error">` + template.HTMLEscapeString(message) + `</div>`))
}
