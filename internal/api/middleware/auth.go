package middleware

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bcnelson/gateway-address-manager/internal/domain"
	"github.com/bcnelson/gateway-address-manager/internal/storage"
)

type contextKey string

const APIKeyContextKey contextKey = "api_key"

// BootstrapKeyID identifies requests authenticated with the bootstrap key.
const BootstrapKeyID = "bootstrap"

// Auth creates authentication middleware. The bootstrap key is accepted only
// while no API keys exist.
func Auth(store storage.Storage, bootstrapKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "missing authorization header")
				return
			}

			apiKey, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				unauthorized(w, "invalid authorization header format")
				return
			}
			if apiKey == "" {
				unauthorized(w, "empty API key")
				return
			}

			ctx := r.Context()
			storedKey, err := Authenticate(ctx, store, bootstrapKey, apiKey)
			if err != nil {
				if errors.Is(err, domain.ErrUnauthorized) {
					unauthorized(w, "invalid API key")
					return
				}
				log.WithError(err).Error("api key lookup failed")
				writeError(w, http.StatusInternalServerError, domain.ErrCodeInternalError, "internal server error")
				return
			}

			ctx = context.WithValue(ctx, APIKeyContextKey, storedKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authenticate resolves a raw API key to its stored record. It is shared by
// the API and the web login form.
func Authenticate(ctx context.Context, store storage.Storage, bootstrapKey, apiKey string) (*domain.APIKey, error) {
	keyCount, err := store.CountAPIKeys(ctx)
	if err != nil {
		return nil, err
	}

	if keyCount == 0 && bootstrapKey != "" &&
		subtle.ConstantTimeCompare([]byte(apiKey), []byte(bootstrapKey)) == 1 {
		return &domain.APIKey{ID: BootstrapKeyID, Name: "Bootstrap Key"}, nil
	}

	storedKey, err := store.GetAPIKeyByHash(ctx, HashAPIKey(apiKey))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}

	// Fire and forget.
	go func(id string) {
		if err := store.UpdateAPIKeyLastUsed(context.Background(), id); err != nil {
			log.WithError(err).Debug("could not record api key use")
		}
	}(storedKey.ID)

	return storedKey, nil
}

// KeyPrefix starts every issued API key.
const KeyPrefix = "gam_"

// IssueAPIKey creates a random API key. The returned plaintext is the only
// copy; the APIKey record carries its hash.
func IssueAPIKey(name string) (*domain.APIKey, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", err
	}
	plaintext := KeyPrefix + hex.EncodeToString(raw)

	return &domain.APIKey{
		ID:        uuid.New().String(),
		Name:      name,
		KeyHash:   HashAPIKey(plaintext),
		KeyPrefix: plaintext[:len(KeyPrefix)+8],
		CreatedAt: time.Now(),
	}, plaintext, nil
}

// HashAPIKey creates a SHA-256 hash of the API key.
// SHA-256 is enough here since API keys are already high-entropy random strings.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// GetAPIKeyFromContext retrieves the API key from the request context.
func GetAPIKeyFromContext(ctx context.Context) *domain.APIKey {
	key, _ := ctx.Value(APIKeyContextKey).(*domain.APIKey)
	return key
}

func unauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, message)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.StandardErrorResponse{
		Error: domain.StandardError{Code: code, Message: message},
	})
}
