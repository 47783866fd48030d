// Package auth provides web login: an OIDC provider and in-memory session
// and state stores.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// ProviderConfig configures OIDC login.
type ProviderConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	// AllowedDomains restricts logins to verified emails in these domains.
	// Empty allows any email.
	AllowedDomains []string
}

// Login rejections reported by Exchange and ValidateClaims.
var (
	ErrNonceMismatch    = errors.New("nonce mismatch")
	ErrEmailRequired    = errors.New("email claim is required")
	ErrEmailUnverified  = errors.New("email is not verified")
	ErrDomainNotAllowed = errors.New("email domain is not allowed")
)

// OIDCProvider runs the authorization code flow against one issuer.
type OIDCProvider struct {
	oauth2Config   *oauth2.Config
	verifier       *oidc.IDTokenVerifier
	allowedDomains []string
}

// OIDCClaims are the ID token claims a login needs.
type OIDCClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// NewOIDCProvider discovers the issuer and prepares the OAuth2 client.
func NewOIDCProvider(ctx context.Context, cfg ProviderConfig) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discovering oidc issuer %s: %w", cfg.IssuerURL, err)
	}

	return &OIDCProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       cfg.Scopes,
		},
		verifier:       provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		allowedDomains: cfg.AllowedDomains,
	}, nil
}

// AuthCodeURL generates an authorization URL with state and nonce.
func (p *OIDCProvider) AuthCodeURL(state, nonce string) string {
	return p.oauth2Config.AuthCodeURL(
		state,
		oidc.Nonce(nonce),
	)
}

// ExchangeResult contains the result of an authorization code exchange.
// Tokens are not kept; the UI only needs the identity.
type ExchangeResult struct {
	Claims *OIDCClaims
	Expiry time.Time
}

// Session builds the web session for a verified login.
func (r *ExchangeResult) Session() *Session {
	return &Session{
		Method:  MethodOIDC,
		Subject: r.Claims.Subject,
		Email:   r.Claims.Email,
		Name:    r.Claims.Name,
	}
}

// Exchange trades the authorization code for a verified ID token whose
// nonce must match the one sent with the login request.
func (p *OIDCProvider) Exchange(ctx context.Context, code, nonce string) (*ExchangeResult, error) {
	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("no id_token in token response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verifying id token: %w", err)
	}
	if !ConstantTimeCompare(idToken.Nonce, nonce) {
		return nil, ErrNonceMismatch
	}

	var claims OIDCClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("parsing claims: %w", err)
	}
	return &ExchangeResult{Claims: &claims, Expiry: token.Expiry}, nil
}

// ValidateClaims requires an email and, when domains are restricted, a
// verified email in one of them.
func (p *OIDCProvider) ValidateClaims(claims *OIDCClaims) error {
	if claims.Email == "" {
		return ErrEmailRequired
	}
	if len(p.allowedDomains) == 0 {
		return nil
	}

	_, domain, ok := strings.Cut(claims.Email, "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return fmt.Errorf("%w: malformed email %q", ErrDomainNotAllowed, claims.Email)
	}
	if !slices.ContainsFunc(p.allowedDomains, func(d string) bool { return strings.EqualFold(d, domain) }) {
		return fmt.Errorf("%w: %s", ErrDomainNotAllowed, strings.ToLower(domain))
	}
	if !claims.EmailVerified {
		return ErrEmailUnverified
	}
	return nil
}

// GenerateSecureString generates a cryptographically secure random string.
func GenerateSecureString(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// ConstantTimeCompare performs a constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
