package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcnelson/gateway-address-manager/internal/domain"
	"github.com/bcnelson/gateway-address-manager/internal/service"
	"github.com/bcnelson/gateway-address-manager/internal/storage/memory"
)

// fakeClient records the last pushed policy.
type fakeClient struct {
	pushed  *domain.TailscalePolicy
	pushErr error
	etag    string
}

func (f *fakeClient) GetPolicy(ctx context.Context) (*domain.TailscalePolicy, string, error) {
	return f.pushed, f.etag, nil
}

func (f *fakeClient) SetPolicy(ctx context.Context, policy *domain.TailscalePolicy, etag string) (string, error) {
	if f.pushErr != nil {
		return "", f.pushErr
	}
	f.pushed = policy
	f.etag = etag + "x"
	return f.etag, nil
}

func (f *fakeClient) ValidatePolicy(ctx context.Context, policy *domain.TailscalePolicy) error {
	return nil
}

func TestSyncService_ForceSyncRecordsVersion(t *testing.T) {
	store := memory.New()
	seedGateway(t, store, domain.AddressList{ipOne, hostTwo})
	client := &fakeClient{}
	svc := service.NewSyncService(store, client, time.Second, false)
	ctx := context.Background()

	resp, err := svc.ForceSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PushStatusSuccess, resp.Status)
	assert.Equal(t, 1, resp.VersionNumber)
	assert.Equal(t, map[string]string{"gw-edge--ingress": "10.0.0.1"}, client.pushed.Hosts)

	version, err := store.GetPolicyVersion(ctx, resp.VersionID)
	require.NoError(t, err)
	assert.Equal(t, domain.PushStatusSuccess, version.PushStatus)
	assert.NotEmpty(t, version.TailscaleETag)
}

func TestSyncService_FailedPushIsReported(t *testing.T) {
	store := memory.New()
	client := &fakeClient{pushErr: errors.New("boom")}
	svc := service.NewSyncService(store, client, time.Second, false)

	resp, err := svc.ForceSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PushStatusFailed, resp.Status)
	assert.Equal(t, "boom", resp.Error)
}

func TestSyncService_Rollback(t *testing.T) {
	store := memory.New()
	seedGateway(t, store, domain.AddressList{ipOne})
	client := &fakeClient{}
	svc := service.NewSyncService(store, client, time.Second, false)
	ctx := context.Background()

	first, err := svc.ForceSync(ctx)
	require.NoError(t, err)

	require.NoError(t, store.DeleteGateway(ctx, "edge", "ingress"))
	_, err = svc.ForceSync(ctx)
	require.NoError(t, err)
	assert.Empty(t, client.pushed.Hosts)

	resp, err := svc.Rollback(ctx, first.VersionID)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.VersionNumber)
	assert.Equal(t, map[string]string{"gw-edge--ingress": "10.0.0.1"}, client.pushed.Hosts)
}

func TestSyncService_NoClient(t *testing.T) {
	svc := service.NewSyncService(memory.New(), nil, time.Millisecond, true)

	svc.TriggerSync()
	assert.False(t, svc.Pending())

	_, err := svc.ForceSync(context.Background())
	assert.ErrorIs(t, err, domain.ErrSyncFailed)
}

func TestSyncService_TriggerSyncDebounces(t *testing.T) {
	store := memory.New()
	seedGateway(t, store, domain.AddressList{ipOne})
	client := &fakeClient{}
	svc := service.NewSyncService(store, client, 20*time.Millisecond, true)

	svc.TriggerSync()
	svc.TriggerSync()
	assert.True(t, svc.Pending())

	require.Eventually(t, func() bool {
		versions, err := store.ListPolicyVersions(context.Background(), 10, 0)
		return err == nil && len(versions) == 1 && versions[0].PushStatus == domain.PushStatusSuccess
	}, time.Second, 10*time.Millisecond)
	assert.False(t, svc.Pending())
}
