package merger

import (
	"context"
	"fmt"

	"github.com/bcnelson/gateway-address-manager/internal/domain"
)

// Summarize reports which address entries of the given gateways, all from
// one namespace, will be left out of the policy.
func Summarize(namespace string, gateways []*domain.Gateway) *domain.ValidationSummary {
	summary := &domain.ValidationSummary{
		Namespace: namespace,
		Issues:    []domain.AddressIssue{},
	}
	for _, gw := range gateways {
		summary.ObjectCount++
		for i, addr := range gw.Addresses {
			summary.Addresses++
			ok, reason := Publishable(addr)
			if ok {
				summary.Publishable++
				continue
			}
			summary.Unpublishable++
			summary.Issues = append(summary.Issues, domain.AddressIssue{
				Gateway: gw.Name,
				Index:   i,
				Type:    string(addr.Type),
				Value:   addr.Value,
				Reason:  reason,
			})
		}
	}
	return summary
}

// ValidateNamespace summarizes one namespace. A namespace without gateways
// does not exist and yields ErrNotFound.
func (m *Merger) ValidateNamespace(ctx context.Context, namespace string) (*domain.ValidationSummary, error) {
	gateways, err := m.store.ListGateways(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("listing gateways: %w", err)
	}
	if len(gateways) == 0 {
		return nil, domain.ErrNotFound
	}
	return Summarize(namespace, gateways), nil
}

// Validate summarizes the named namespaces, or every namespace holding a
// gateway when none are named. Named namespaces without gateways get an
// empty summary.
func (m *Merger) Validate(ctx context.Context, namespaces []string) (domain.ValidationSummaries, error) {
	gateways, err := m.store.ListAllGateways(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing gateways: %w", err)
	}

	byNamespace := make(map[string][]*domain.Gateway)
	for _, gw := range gateways {
		byNamespace[gw.Namespace] = append(byNamespace[gw.Namespace], gw)
	}
	if len(namespaces) == 0 {
		for ns := range byNamespace {
			namespaces = append(namespaces, ns)
		}
	}

	summaries := make(domain.ValidationSummaries, len(namespaces))
	for _, ns := range namespaces {
		summaries[ns] = Summarize(ns, byNamespace[ns])
	}
	return summaries, nil
}
