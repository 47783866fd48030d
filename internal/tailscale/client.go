package tailscale

import (
	"context"
	"fmt"
	"strings"

	tsclient "github.com/tailscale/tailscale-client-go/v2"

	"github.com/bcnelson/gateway-address-manager/internal/domain"
)

// PolicyClient reads and writes the gateway-owned part of a tailnet policy.
// SetPolicy replaces every host alias starting with domain.GatewayHostPrefix
// and keeps the rest of the policy as it is.
type PolicyClient interface {
	GetPolicy(ctx context.Context) (*domain.TailscalePolicy, string, error)
	SetPolicy(ctx context.Context, policy *domain.TailscalePolicy, etag string) (string, error)
	ValidatePolicy(ctx context.Context, policy *domain.TailscalePolicy) error
}

// Client wraps the Tailscale API client.
type Client struct {
	client  *tsclient.Client
	tailnet string
}

// Ensure Client implements PolicyClient.
var _ PolicyClient = (*Client)(nil)

// New creates a new Tailscale client.
func New(apiKey, tailnet string) (*Client, error) {
	if apiKey == "" || tailnet == "" {
		return nil, fmt.Errorf("tailscale api key and tailnet are required")
	}
	client := &tsclient.Client{
		APIKey:  apiKey,
		Tailnet: tailnet,
	}
	return &Client{client: client, tailnet: tailnet}, nil
}

// GetPolicy returns the gateway-owned hosts of the current policy and its ETag.
func (c *Client) GetPolicy(ctx context.Context) (*domain.TailscalePolicy, string, error) {
	acl, err := c.client.PolicyFile().Get(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("getting policy file: %w", err)
	}
	return &domain.TailscalePolicy{Hosts: ownedHosts(acl.Hosts)}, acl.ETag, nil
}

// SetPolicy merges the rendered hosts into the live policy file and writes it
// back. The etag guards the write; pass "" to skip the check.
func (c *Client) SetPolicy(ctx context.Context, policy *domain.TailscalePolicy, etag string) (string, error) {
	acl, err := c.client.PolicyFile().Get(ctx)
	if err != nil {
		return "", fmt.Errorf("getting policy file: %w", err)
	}
	acl.Hosts = mergeOwnedHosts(acl.Hosts, policy.Hosts)

	if err := c.client.PolicyFile().Set(ctx, *acl, etag); err != nil {
		return "", fmt.Errorf("setting policy file: %w", err)
	}

	newACL, err := c.client.PolicyFile().Get(ctx)
	if err != nil {
		// The write went through; only the new ETag is unknown.
		return "", nil
	}
	return newACL.ETag, nil
}

// ValidatePolicy asks Tailscale to validate the merged policy without
// applying it.
func (c *Client) ValidatePolicy(ctx context.Context, policy *domain.TailscalePolicy) error {
	acl, err := c.client.PolicyFile().Get(ctx)
	if err != nil {
		return fmt.Errorf("getting policy file: %w", err)
	}
	acl.Hosts = mergeOwnedHosts(acl.Hosts, policy.Hosts)
	return c.client.PolicyFile().Validate(ctx, *acl)
}

// ownedHosts returns the hosts whose alias carries the gateway prefix.
func ownedHosts(hosts map[string]string) map[string]string {
	owned := make(map[string]string)
	for alias, addr := range hosts {
		if strings.HasPrefix(alias, domain.GatewayHostPrefix) {
			owned[alias] = addr
		}
	}
	if len(owned) == 0 {
		return nil
	}
	return owned
}

// mergeOwnedHosts drops every gateway-owned alias from current and adds
// rendered in their place.
func mergeOwnedHosts(current, rendered map[string]string) map[string]string {
	merged := make(map[string]string, len(current)+len(rendered))
	for alias, addr := range current {
		if !strings.HasPrefix(alias, domain.GatewayHostPrefix) {
			merged[alias] = addr
		}
	}
	for alias, addr := range rendered {
		merged[alias] = addr
	}
	return merged
}
