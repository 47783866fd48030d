package domain

import "time"

// Gateway is a named gateway configuration that owns an ordered address list.
// (Namespace, Name) is unique.
type Gateway struct {
	ID               string      `json:"id" db:"id"`
	Namespace        string      `json:"namespace" db:"namespace"`
	Name             string      `json:"name" db:"name"`
	GatewayClassName string      `json:"gatewayClassName" db:"gateway_class_name"`
	Addresses        AddressList `json:"addresses" db:"-"`
	CreatedAt        time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time   `json:"updatedAt" db:"updated_at"`
}

// Clone returns a deep copy of the gateway.
func (g *Gateway) Clone() *Gateway {
	c := *g
	c.Addresses = g.Addresses.Clone()
	return &c
}

// CreateGatewayRequest is the request body for creating a gateway.
type CreateGatewayRequest struct {
	Namespace        string      `json:"namespace"`
	Name             string      `json:"name"`
	GatewayClassName string      `json:"gatewayClassName,omitempty"`
	Addresses        AddressList `json:"addresses,omitempty"`
}

// UpdateGatewayRequest is the request body for updating a gateway.
// A nil Addresses leaves the list untouched.
type UpdateGatewayRequest struct {
	GatewayClassName *string     `json:"gatewayClassName,omitempty"`
	Addresses        AddressList `json:"addresses,omitempty"`
}

// UpdateAddressRequest replaces one entry of a gateway's address list.
type UpdateAddressRequest struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}
