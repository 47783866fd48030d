package storage

import (
	"context"

	"github.com/bcnelson/gateway-address-manager/internal/domain"
)

// Storage defines the interface for the storage layer.
// Implementations must be safe for concurrent use. Gateways returned by the
// store are copies; mutating them does not change stored state until
// UpdateGateway is called.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	// API Keys
	CreateAPIKey(ctx context.Context, key *domain.APIKey) error
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error)
	ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error)
	DeleteAPIKey(ctx context.Context, id string) error
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
	CountAPIKeys(ctx context.Context) (int, error)

	// Gateways
	CreateGateway(ctx context.Context, gw *domain.Gateway) error
	GetGateway(ctx context.Context, namespace, name string) (*domain.Gateway, error)
	GetGatewayByID(ctx context.Context, id string) (*domain.Gateway, error)
	ListGateways(ctx context.Context, namespace string) ([]*domain.Gateway, error)
	ListAllGateways(ctx context.Context) ([]*domain.Gateway, error)
	UpdateGateway(ctx context.Context, gw *domain.Gateway) error
	DeleteGateway(ctx context.Context, namespace, name string) error
	ListNamespaces(ctx context.Context) ([]*domain.Namespace, error)
	// RenameNamespace moves every gateway in from to namespace to and returns
	// how many moved. It fails with ErrAlreadyExists, moving nothing, when a
	// gateway of the same name already lives in to.
	RenameNamespace(ctx context.Context, from, to string) (int, error)

	// Policy Versions
	CreatePolicyVersion(ctx context.Context, version *domain.PolicyVersion) error
	GetPolicyVersion(ctx context.Context, id string) (*domain.PolicyVersion, error)
	GetLatestPolicyVersion(ctx context.Context) (*domain.PolicyVersion, error)
	ListPolicyVersions(ctx context.Context, limit, offset int) ([]*domain.PolicyVersion, error)
	UpdatePolicyVersion(ctx context.Context, version *domain.PolicyVersion) error

	// Transaction support
	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Storage
	Commit() error
	Rollback() error
}
