package domain

// Namespace groups gateways. Namespaces are not stored on their own; they
// exist while at least one gateway lives in them.
type Namespace struct {
	Name         string `json:"name" db:"namespace"`
	GatewayCount int    `json:"gatewayCount" db:"gateway_count"`
}
