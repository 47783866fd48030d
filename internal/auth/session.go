package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
)

// SessionCookieName is the cookie carrying the opaque session ID.
const SessionCookieName = "gam_session"

// Login methods recorded on a Session.
const (
	MethodAPIKey = "apikey"
	MethodOIDC   = "oidc"
)

// ErrNoSession is returned when a request carries no live session.
var ErrNoSession = errors.New("no session")

// Session is a logged-in web user. Sessions live only in server memory; the
// browser holds nothing but the random ID.
type Session struct {
	ID        string
	Method    string
	APIKeyID  string // MethodAPIKey only
	Subject   string // MethodOIDC only
	Email     string
	Name      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// DisplayName is what the UI shows for the logged-in user.
func (s *Session) DisplayName() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.Email != "":
		return s.Email
	}
	return "API key"
}

// SessionStore keeps sessions in a TTL cache keyed by session ID.
type SessionStore struct {
	cache    *cache.Cache
	duration time.Duration
	secure   bool // Secure flag on cookies (for HTTPS)
}

// NewSessionStore creates a session store whose sessions expire after
// duration.
func NewSessionStore(duration time.Duration, secure bool) *SessionStore {
	return &SessionStore{
		cache:    cache.New(duration, duration/2),
		duration: duration,
		secure:   secure,
	}
}

// Create stores session under a fresh ID and sets the session cookie.
func (ss *SessionStore) Create(w http.ResponseWriter, session *Session) error {
	id, err := GenerateSecureString(32)
	if err != nil {
		return fmt.Errorf("failed to generate session id: %w", err)
	}

	now := time.Now()
	session.ID = id
	session.CreatedAt = now
	session.ExpiresAt = now.Add(ss.duration)
	ss.cache.Set(id, session, ss.duration)

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(ss.duration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   ss.secure,
	})
	return nil
}

// Get returns the session named by the request's cookie.
func (ss *SessionStore) Get(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}
	v, ok := ss.cache.Get(cookie.Value)
	if !ok {
		return nil, ErrNoSession
	}
	return v.(*Session), nil
}

// Destroy forgets the request's session and clears the cookie.
func (ss *SessionStore) Destroy(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		ss.cache.Delete(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   ss.secure,
	})
}

// RevokeAPIKey ends every session that logged in with the given key.
func (ss *SessionStore) RevokeAPIKey(keyID string) int {
	n := 0
	for id, item := range ss.cache.Items() {
		if sess, ok := item.Object.(*Session); ok && sess.APIKeyID == keyID {
			ss.cache.Delete(id)
			n++
		}
	}
	return n
}

// Count returns the number of live sessions.
func (ss *SessionStore) Count() int {
	return ss.cache.ItemCount()
}
