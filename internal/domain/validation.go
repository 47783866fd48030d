package domain

// Reasons an address entry is left out of the published policy.
const (
	ReasonHostname    = "hostname entries are not published"
	ReasonEmptyValue  = "value is empty"
	ReasonNotIP       = "value is not an IP address or CIDR"
	ReasonUnknownType = "unknown address type"
)

// AddressIssue points at one address entry that will not be published.
type AddressIssue struct {
	Gateway string `json:"gateway"`
	Index   int    `json:"index"`
	Type    string `json:"type"`
	Value   string `json:"value"`
	Reason  string `json:"reason"`
}

// ValidationSummary counts, for one namespace, how many address entries make
// it into the policy.
type ValidationSummary struct {
	Namespace     string         `json:"namespace"`
	ObjectCount   int            `json:"objectCount"`
	Addresses     int            `json:"addresses"`
	Publishable   int            `json:"publishable"`
	Unpublishable int            `json:"unpublishable"`
	Issues        []AddressIssue `json:"issues"`
}

// ValidationSummaries maps namespace name to its summary.
type ValidationSummaries map[string]*ValidationSummary

// UpdateNamespaceRequest renames a namespace.
type UpdateNamespaceRequest struct {
	Name string `json:"name"`
}
