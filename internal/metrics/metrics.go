// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Address list operations, used as the "op" label.
const (
	OpAdd     = "add"
	OpUpdate  = "update"
	OpRemove  = "remove"
	OpReplace = "replace"
)

// Surfaces that drive the address list editor, used as the "source" label.
const (
	SourceAPI = "api"
	SourceWeb = "web"
)

var (
	addressMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway_manager",
		Name:      "address_mutations_total",
		Help:      "Address list mutations applied, by operation and source",
	},
		[]string{"op", "source"},
	)
	openDrafts = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gateway_manager",
		Name:      "open_form_drafts",
		Help:      "Number of web form drafts currently held in memory",
	})
	policySyncs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway_manager",
		Name:      "policy_syncs_total",
		Help:      "Tailnet policy pushes, by result",
	},
		[]string{"status"},
	)
	publishedHosts = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gateway_manager",
		Name:      "published_hosts",
		Help:      "Host aliases in the last rendered tailnet policy",
	})
)

// Registry holds every collector of this service.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(addressMutations, openDrafts, policySyncs, publishedHosts)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// AddressMutation counts one applied address list mutation.
func AddressMutation(op, source string) {
	addressMutations.WithLabelValues(op, source).Inc()
}

// SetOpenDrafts records the current number of form drafts.
func SetOpenDrafts(n int) {
	openDrafts.Set(float64(n))
}

// PolicySync counts one policy push with its final status.
func PolicySync(status string) {
	policySyncs.WithLabelValues(status).Inc()
}

// SetPublishedHosts records the host count of the last rendered policy.
func SetPublishedHosts(n int) {
	publishedHosts.Set(float64(n))
}
