package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	// StateCookieName binds a pending OIDC login to the browser that started it.
	StateCookieName = "gam_oidc_state"
	// StateTTL is how long a login may take at the provider.
	StateTTL = 5 * time.Minute
)

// StateData holds the state and nonce for an OIDC request.
type StateData struct {
	State     string
	Nonce     string
	ExpiresAt time.Time
}

// StateStore keeps pending OIDC state/nonce pairs for CSRF protection. Each
// state can be consumed once.
type StateStore struct {
	cache  *cache.Cache
	secure bool
}

// NewStateStore creates a new state store.
func NewStateStore(secure bool) *StateStore {
	return &StateStore{
		cache:  cache.New(StateTTL, time.Minute),
		secure: secure,
	}
}

// Generate creates a new state/nonce pair, remembers it and sets the state
// cookie.
func (ss *StateStore) Generate(w http.ResponseWriter) (*StateData, error) {
	state, err := GenerateSecureString(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	nonce, err := GenerateSecureString(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	data := &StateData{
		State:     state,
		Nonce:     nonce,
		ExpiresAt: time.Now().Add(StateTTL),
	}
	ss.cache.Set(state, data, StateTTL)

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(StateTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   ss.secure,
	})
	return data, nil
}

// Validate checks state against the cookie and the store, and consumes it.
func (ss *StateStore) Validate(r *http.Request, state string) (*StateData, error) {
	cookie, err := r.Cookie(StateCookieName)
	if err != nil {
		return nil, fmt.Errorf("state cookie not found: %w", err)
	}
	if state == "" || !ConstantTimeCompare(cookie.Value, state) {
		return nil, errors.New("state mismatch")
	}

	v, ok := ss.cache.Get(state)
	if !ok {
		return nil, errors.New("state expired")
	}
	ss.cache.Delete(state)
	return v.(*StateData), nil
}

// Clear clears the state cookie.
func (ss *StateStore) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   ss.secure,
	})
}
