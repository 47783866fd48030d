package web

import (
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
)

func loginError(w http.ResponseWriter, r *http.Request, message string) {
	http.Redirect(w, r, "/login?error="+url.QueryEscape(message), http.StatusSeeOther)
}

// handleOIDCLogin initiates the OIDC login flow.
func (s *Server) handleOIDCLogin(w http.ResponseWriter, r *http.Request) {
	if s.oidc == nil {
		http.Error(w, "OIDC authentication is not enabled", http.StatusNotFound)
		return
	}

	stateData, err := s.oidc.States.Generate(w)
	if err != nil {
		log.WithError(err).Error("failed to generate oidc state")
		loginError(w, r, "Failed to initiate login")
		return
	}

	http.Redirect(w, r, s.oidc.Provider.AuthCodeURL(stateData.State, stateData.Nonce), http.StatusSeeOther)
}

// handleOIDCCallback handles the OIDC callback after authentication.
func (s *Server) handleOIDCCallback(w http.ResponseWriter, r *http.Request) {
	if s.oidc == nil {
		http.Error(w, "OIDC authentication is not enabled", http.StatusNotFound)
		return
	}

	ctx := r.Context()
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		errDesc := query.Get("error_description")
		if errDesc == "" {
			errDesc = errParam
		}
		log.WithFields(logrus.Fields{"error": errParam, "description": errDesc}).Warn("oidc provider returned error")
		loginError(w, r, errDesc)
		return
	}

	code := query.Get("code")
	if code == "" {
		loginError(w, r, "No authorization code received")
		return
	}

	stateData, err := s.oidc.States.Validate(r, query.Get("state"))
	s.oidc.States.Clear(w)
	if err != nil {
		log.WithError(err).Warn("oidc state validation failed")
		loginError(w, r, "Invalid state parameter")
		return
	}

	result, err := s.oidc.Provider.Exchange(ctx, code, stateData.Nonce)
	if err != nil {
		log.WithError(err).Error("oidc token exchange failed")
		loginError(w, r, "Failed to complete authentication")
		return
	}

	if err := s.oidc.Provider.ValidateClaims(result.Claims); err != nil {
		log.WithError(err).WithField("email", result.Claims.Email).Warn("oidc claims rejected")
		loginError(w, r, err.Error())
		return
	}

	if err := s.sessions.Create(w, result.Session()); err != nil {
		log.WithError(err).Error("failed to create oidc session")
		loginError(w, r, "Failed to create session")
		return
	}

	log.WithField("email", result.Claims.Email).Info("web login with oidc")
	http.Redirect(w, r, "/gateways", http.StatusSeeOther)
}
