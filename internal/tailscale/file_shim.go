package tailscale

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bcnelson/gateway-address-manager/internal/domain"
)

var log = logrus.WithField("module", "tailscale")

// FileShim stands in for the Tailscale API by keeping the policy in a local
// JSON file. Sections other than "hosts" are preserved untouched.
type FileShim struct {
	filePath string
	mu       sync.RWMutex
	etag     string
}

// Ensure FileShim implements PolicyClient.
var _ PolicyClient = (*FileShim)(nil)

// NewFileShim creates a new file-based shim for testing.
func NewFileShim(filePath string) *FileShim {
	return &FileShim{
		filePath: filePath,
		etag:     generateETag(nil),
	}
}

// readDocument loads the policy file as a generic document. A missing file is
// an empty policy.
func (f *FileShim) readDocument() (map[string]json.RawMessage, map[string]string, error) {
	doc := make(map[string]json.RawMessage)
	hosts := make(map[string]string)

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, hosts, nil
		}
		return nil, nil, fmt.Errorf("reading policy file: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parsing policy file: %w", err)
	}
	if raw, ok := doc["hosts"]; ok {
		if err := json.Unmarshal(raw, &hosts); err != nil {
			return nil, nil, fmt.Errorf("parsing policy hosts: %w", err)
		}
	}
	return doc, hosts, nil
}

// GetPolicy reads the gateway-owned hosts from the file.
func (f *FileShim) GetPolicy(ctx context.Context) (*domain.TailscalePolicy, string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	_, hosts, err := f.readDocument()
	if err != nil {
		return nil, "", err
	}
	return &domain.TailscalePolicy{Hosts: ownedHosts(hosts)}, f.etag, nil
}

// SetPolicy merges the rendered hosts into the file.
func (f *FileShim) SetPolicy(ctx context.Context, policy *domain.TailscalePolicy, etag string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if etag != "" && etag != f.etag {
		return "", fmt.Errorf("etag mismatch: expected %s, got %s", f.etag, etag)
	}

	doc, hosts, err := f.readDocument()
	if err != nil {
		return "", err
	}

	merged := mergeOwnedHosts(hosts, policy.Hosts)
	if len(merged) == 0 {
		delete(doc, "hosts")
	} else {
		raw, err := json.Marshal(merged)
		if err != nil {
			return "", fmt.Errorf("marshaling hosts: %w", err)
		}
		doc["hosts"] = raw
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling policy: %w", err)
	}
	if err := os.WriteFile(f.filePath, data, 0644); err != nil {
		return "", fmt.Errorf("writing policy file: %w", err)
	}

	f.etag = generateETag(data)
	log.WithFields(logrus.Fields{
		"path":  f.filePath,
		"etag":  f.etag[:12],
		"hosts": len(policy.Hosts),
	}).Info("policy written to file shim")

	return f.etag, nil
}

// ValidatePolicy only checks that the policy can be encoded.
func (f *FileShim) ValidatePolicy(ctx context.Context, policy *domain.TailscalePolicy) error {
	if _, err := json.Marshal(policy); err != nil {
		return fmt.Errorf("policy validation failed: %w", err)
	}
	return nil
}

// generateETag creates an ETag from the policy data.
func generateETag(data []byte) string {
	if data == nil {
		data = []byte(time.Now().String())
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
