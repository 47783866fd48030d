// Package merger renders stored gateways into the tailnet policy fragment
// this service publishes.
package merger

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/sirupsen/logrus"

	"github.com/bcnelson/gateway-address-manager/internal/domain"
	"github.com/bcnelson/gateway-address-manager/internal/storage"
)

var log = logrus.WithField("module", "merger")

// Merger builds a TailscalePolicy from every stored gateway.
type Merger struct {
	store storage.Storage
}

// New creates a new Merger.
func New(store storage.Storage) *Merger {
	return &Merger{store: store}
}

// Merge renders the host aliases of all gateways.
func (m *Merger) Merge(ctx context.Context) (*domain.TailscalePolicy, error) {
	gateways, err := m.store.ListAllGateways(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing gateways: %w", err)
	}

	hosts := mergeHosts(gateways)
	if len(hosts) == 0 {
		return &domain.TailscalePolicy{}, nil
	}
	return &domain.TailscalePolicy{Hosts: hosts}, nil
}

// AliasSeparator joins the namespace, name and index parts of a host alias.
// Namespaces and gateway names may not contain it, so every alias maps back
// to exactly one gateway address.
const AliasSeparator = "--"

// mergeHosts maps each IP address entry of each gateway to a host alias.
// The first IP of a gateway is published as gw-<namespace>--<name>, later
// ones get a --2, --3, ... suffix. Hostname entries and values that are not
// an IP or CIDR are skipped. A clash can only come from names stored before
// the separator rule existed; the first gateway in namespace/name order keeps
// the alias.
func mergeHosts(gateways []*domain.Gateway) map[string]string {
	hosts := make(map[string]string)
	for _, gw := range gateways {
		base := HostAlias(gw.Namespace, gw.Name)
		n := 0
		for i, addr := range gw.Addresses {
			if ok, _ := Publishable(addr); !ok {
				continue
			}
			n++
			alias := base
			if n > 1 {
				alias = fmt.Sprintf("%s%s%d", base, AliasSeparator, n)
			}
			if _, taken := hosts[alias]; taken {
				log.WithFields(logrus.Fields{
					"alias":   alias,
					"gateway": gw.Namespace + "/" + gw.Name,
					"index":   i,
				}).Warn("host alias already claimed, skipping address")
				continue
			}
			hosts[alias] = addr.Value
		}
	}
	return hosts
}

// HostAlias returns the base host alias for a gateway.
func HostAlias(namespace, name string) string {
	return domain.GatewayHostPrefix + namespace + AliasSeparator + name
}

// Publishable reports whether an address entry is rendered into the policy,
// and if not, why.
func Publishable(addr domain.Address) (bool, string) {
	switch {
	case addr.Type == domain.AddressTypeHostname:
		return false, domain.ReasonHostname
	case addr.Value == "":
		return false, domain.ReasonEmptyValue
	case addr.Type != domain.AddressTypeIP:
		return false, domain.ReasonUnknownType
	case !isIPOrPrefix(addr.Value):
		return false, domain.ReasonNotIP
	}
	return true, ""
}

func isIPOrPrefix(s string) bool {
	if _, err := netip.ParseAddr(s); err == nil {
		return true
	}
	_, err := netip.ParsePrefix(s)
	return err == nil
}
