package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bcnelson/gateway-address-manager/internal/domain"
	"github.com/bcnelson/gateway-address-manager/internal/merger"
	"github.com/bcnelson/gateway-address-manager/internal/metrics"
	"github.com/bcnelson/gateway-address-manager/internal/storage"
	"github.com/bcnelson/gateway-address-manager/internal/tailscale"
)

var log = logrus.WithField("module", "service")

// SyncService publishes the merged gateway hosts to the tailnet policy.
type SyncService struct {
	store    storage.Storage
	merger   *merger.Merger
	client   tailscale.PolicyClient
	debounce time.Duration
	autoSync bool

	mu          sync.Mutex
	syncTimer   *time.Timer
	syncPending bool
}

// NewSyncService creates a new SyncService. A nil client disables pushing;
// merged policies can still be previewed.
func NewSyncService(store storage.Storage, client tailscale.PolicyClient, debounce time.Duration, autoSync bool) *SyncService {
	return &SyncService{
		store:    store,
		merger:   merger.New(store),
		client:   client,
		debounce: debounce,
		autoSync: autoSync,
	}
}

// TriggerSync triggers a debounced sync operation.
// Multiple triggers within the debounce period will result in a single sync.
func (s *SyncService) TriggerSync() {
	if !s.autoSync || s.client == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.syncTimer != nil {
		s.syncTimer.Stop()
	}

	s.syncPending = true
	s.syncTimer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		s.syncPending = false
		s.mu.Unlock()

		if _, err := s.doSync(context.Background()); err != nil {
			log.WithError(err).Error("auto-sync failed")
		}
	})
}

// Pending reports whether a debounced sync is waiting to run.
func (s *SyncService) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncPending
}

// Stop cancels any pending debounced sync.
func (s *SyncService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.syncTimer != nil {
		s.syncTimer.Stop()
	}
	s.syncPending = false
}

// GetMergedPolicy returns the current merged policy without syncing.
func (s *SyncService) GetMergedPolicy(ctx context.Context) (*domain.TailscalePolicy, error) {
	return s.merger.Merge(ctx)
}

// ForceSync forces an immediate sync to Tailscale.
func (s *SyncService) ForceSync(ctx context.Context) (*domain.SyncResponse, error) {
	s.Stop()
	return s.doSync(ctx)
}

func (s *SyncService) doSync(ctx context.Context) (*domain.SyncResponse, error) {
	if s.client == nil {
		return nil, fmt.Errorf("%w: no tailscale client configured", domain.ErrSyncFailed)
	}

	policy, err := s.merger.Merge(ctx)
	if err != nil {
		return nil, err
	}
	metrics.SetPublishedHosts(len(policy.Hosts))

	policyJSON, err := json.Marshal(policy)
	if err != nil {
		return nil, fmt.Errorf("rendering policy: %w", err)
	}

	return s.push(ctx, policy, string(policyJSON))
}

// Rollback re-publishes the policy recorded in a previous version as a new
// version.
func (s *SyncService) Rollback(ctx context.Context, versionID string) (*domain.SyncResponse, error) {
	if s.client == nil {
		return nil, fmt.Errorf("%w: no tailscale client configured", domain.ErrSyncFailed)
	}

	version, err := s.store.GetPolicyVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}

	var policy domain.TailscalePolicy
	if err := json.Unmarshal([]byte(version.RenderedPolicy), &policy); err != nil {
		return nil, fmt.Errorf("parsing version %d: %w", version.VersionNumber, err)
	}

	log.WithField("version", version.VersionNumber).Info("rolling back policy")
	return s.push(ctx, &policy, version.RenderedPolicy)
}

// push records a new version, sends the policy and stores the outcome. A
// failed push is reported in the response, not as an error.
func (s *SyncService) push(ctx context.Context, policy *domain.TailscalePolicy, rendered string) (*domain.SyncResponse, error) {
	nextVersion := 1
	latest, err := s.store.GetLatestPolicyVersion(ctx)
	if err == nil {
		nextVersion = latest.VersionNumber + 1
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	version := &domain.PolicyVersion{
		ID:             uuid.New().String(),
		VersionNumber:  nextVersion,
		RenderedPolicy: rendered,
		PushStatus:     domain.PushStatusPending,
		CreatedAt:      time.Now(),
	}
	if err := s.store.CreatePolicyVersion(ctx, version); err != nil {
		return nil, err
	}

	// Optimistic locking against concurrent edits of the tailnet policy.
	_, currentETag, err := s.client.GetPolicy(ctx)
	if err != nil {
		log.WithError(err).Warn("could not get current policy etag")
		currentETag = ""
	}

	now := time.Now()
	newETag, err := s.client.SetPolicy(ctx, policy, currentETag)
	if err != nil {
		version.PushStatus = domain.PushStatusFailed
		version.PushError = err.Error()
		version.PushedAt = &now
		_ = s.store.UpdatePolicyVersion(ctx, version)
		metrics.PolicySync(domain.PushStatusFailed)

		log.WithError(err).WithField("version", version.VersionNumber).Error("policy push failed")
		return &domain.SyncResponse{
			VersionID:     version.ID,
			VersionNumber: version.VersionNumber,
			Status:        domain.PushStatusFailed,
			Error:         err.Error(),
		}, nil
	}

	version.PushStatus = domain.PushStatusSuccess
	version.TailscaleETag = newETag
	version.PushedAt = &now
	if err := s.store.UpdatePolicyVersion(ctx, version); err != nil {
		log.WithError(err).Warn("failed to update version record")
	}
	metrics.PolicySync(domain.PushStatusSuccess)

	log.WithFields(logrus.Fields{
		"version": version.VersionNumber,
		"hosts":   len(policy.Hosts),
	}).Info("policy pushed")

	return &domain.SyncResponse{
		VersionID:     version.ID,
		VersionNumber: version.VersionNumber,
		Status:        domain.PushStatusSuccess,
	}, nil
}
