package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bcnelson/gateway-address-manager/internal/domain"
	"github.com/bcnelson/gateway-address-manager/internal/storage"
)

// Store is an in-memory implementation of the storage interface for testing.
// Gateways are cloned on the way in and out so callers never share address
// slices with the store.
type Store struct {
	mu sync.RWMutex

	apiKeys        map[string]*domain.APIKey
	gateways       map[string]*domain.Gateway       // key: namespace/name
	policyVersions map[string]*domain.PolicyVersion // key: id
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		apiKeys:        make(map[string]*domain.APIKey),
		gateways:       make(map[string]*domain.Gateway),
		policyVersions: make(map[string]*domain.PolicyVersion),
	}
}

var _ storage.Storage = (*Store)(nil)

func (s *Store) Close() error { return nil }

func (s *Store) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return &Tx{Store: s}, nil
}

// Tx is a no-op transaction for the in-memory store. Every call goes straight
// to the embedded store.
type Tx struct {
	*Store
}

func (t *Tx) Commit() error   { return nil }
func (t *Tx) Rollback() error { return nil }
func (t *Tx) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return nil, domain.ErrInvalidInput
}

func gatewayKey(namespace, name string) string {
	return namespace + "/" + name
}

// ============================================
// API Keys
// ============================================

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apiKeys[key.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.apiKeys[key.ID] = key
	return nil
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, key := range s.apiKeys {
		if key.KeyHash == keyHash {
			return key, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]*domain.APIKey, 0, len(s.apiKeys))
	for _, key := range s.apiKeys {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].CreatedAt.Before(keys[j].CreatedAt)
	})
	return keys, nil
}

func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apiKeys[id]; !exists {
		return domain.ErrNotFound
	}
	delete(s.apiKeys, id)
	return nil
}

func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, exists := s.apiKeys[id]
	if !exists {
		return domain.ErrNotFound
	}
	now := time.Now()
	key.LastUsedAt = &now
	return nil
}

func (s *Store) CountAPIKeys(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.apiKeys), nil
}

// ============================================
// Gateways
// ============================================

func (s *Store) CreateGateway(ctx context.Context, gw *domain.Gateway) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := gatewayKey(gw.Namespace, gw.Name)
	if _, exists := s.gateways[key]; exists {
		return domain.ErrAlreadyExists
	}
	s.gateways[key] = gw.Clone()
	return nil
}

func (s *Store) GetGateway(ctx context.Context, namespace, name string) (*domain.Gateway, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	gw, exists := s.gateways[gatewayKey(namespace, name)]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return gw.Clone(), nil
}

func (s *Store) GetGatewayByID(ctx context.Context, id string) (*domain.Gateway, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, gw := range s.gateways {
		if gw.ID == id {
			return gw.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListGateways(ctx context.Context, namespace string) ([]*domain.Gateway, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	gateways := make([]*domain.Gateway, 0)
	for _, gw := range s.gateways {
		if gw.Namespace == namespace {
			gateways = append(gateways, gw.Clone())
		}
	}
	sortGateways(gateways)
	return gateways, nil
}

func (s *Store) ListAllGateways(ctx context.Context) ([]*domain.Gateway, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	gateways := make([]*domain.Gateway, 0, len(s.gateways))
	for _, gw := range s.gateways {
		gateways = append(gateways, gw.Clone())
	}
	sortGateways(gateways)
	return gateways, nil
}

func sortGateways(gateways []*domain.Gateway) {
	sort.Slice(gateways, func(i, j int) bool {
		if gateways[i].Namespace != gateways[j].Namespace {
			return gateways[i].Namespace < gateways[j].Namespace
		}
		return gateways[i].Name < gateways[j].Name
	})
}

func (s *Store) UpdateGateway(ctx context.Context, gw *domain.Gateway) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := gatewayKey(gw.Namespace, gw.Name)
	existing, exists := s.gateways[key]
	if !exists || existing.ID != gw.ID {
		return domain.ErrNotFound
	}
	gw.UpdatedAt = nextUpdatedAt(existing.UpdatedAt)
	s.gateways[key] = gw.Clone()
	return nil
}

// nextUpdatedAt returns the current time, nudged past prev so that ETags
// derived from UpdatedAt change on every write even on coarse clocks.
func nextUpdatedAt(prev time.Time) time.Time {
	now := time.Now()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now
}

func (s *Store) DeleteGateway(ctx context.Context, namespace, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := gatewayKey(namespace, name)
	if _, exists := s.gateways[key]; !exists {
		return domain.ErrNotFound
	}
	delete(s.gateways, key)
	return nil
}

func (s *Store) ListNamespaces(ctx context.Context) ([]*domain.Namespace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, gw := range s.gateways {
		counts[gw.Namespace]++
	}
	namespaces := make([]*domain.Namespace, 0, len(counts))
	for name, count := range counts {
		namespaces = append(namespaces, &domain.Namespace{Name: name, GatewayCount: count})
	}
	sort.Slice(namespaces, func(i, j int) bool {
		return namespaces[i].Name < namespaces[j].Name
	})
	return namespaces, nil
}

func (s *Store) RenameNamespace(ctx context.Context, from, to string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var moving []*domain.Gateway
	for _, gw := range s.gateways {
		if gw.Namespace == from {
			moving = append(moving, gw)
		}
	}
	if len(moving) == 0 {
		return 0, domain.ErrNotFound
	}
	for _, gw := range moving {
		if _, exists := s.gateways[gatewayKey(to, gw.Name)]; exists {
			return 0, domain.ErrAlreadyExists
		}
	}
	for _, gw := range moving {
		delete(s.gateways, gatewayKey(from, gw.Name))
		gw.Namespace = to
		gw.UpdatedAt = nextUpdatedAt(gw.UpdatedAt)
		s.gateways[gatewayKey(to, gw.Name)] = gw
	}
	return len(moving), nil
}

// ============================================
// Policy Versions
// ============================================

func (s *Store) CreatePolicyVersion(ctx context.Context, version *domain.PolicyVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.policyVersions[version.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.policyVersions[version.ID] = copyVersion(version)
	return nil
}

// copyVersion detaches stored versions from the caller's pointer; the sync
// service keeps mutating a version while it pushes.
func copyVersion(v *domain.PolicyVersion) *domain.PolicyVersion {
	c := *v
	return &c
}

func (s *Store) GetPolicyVersion(ctx context.Context, id string) (*domain.PolicyVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	version, exists := s.policyVersions[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return copyVersion(version), nil
}

func (s *Store) GetLatestPolicyVersion(ctx context.Context) (*domain.PolicyVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *domain.PolicyVersion
	for _, v := range s.policyVersions {
		if latest == nil || v.VersionNumber > latest.VersionNumber {
			latest = v
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return copyVersion(latest), nil
}

func (s *Store) ListPolicyVersions(ctx context.Context, limit, offset int) ([]*domain.PolicyVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := make([]*domain.PolicyVersion, 0, len(s.policyVersions))
	for _, v := range s.policyVersions {
		versions = append(versions, copyVersion(v))
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].VersionNumber > versions[j].VersionNumber
	})
	if offset >= len(versions) {
		return []*domain.PolicyVersion{}, nil
	}
	end := offset + limit
	if end > len(versions) {
		end = len(versions)
	}
	return versions[offset:end], nil
}

func (s *Store) UpdatePolicyVersion(ctx context.Context, version *domain.PolicyVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.policyVersions[version.ID]; !exists {
		return domain.ErrNotFound
	}
	s.policyVersions[version.ID] = copyVersion(version)
	return nil
}
