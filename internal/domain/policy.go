package domain

import "time"

// Push states recorded on a PolicyVersion.
const (
	PushStatusPending = "pending"
	PushStatusSuccess = "success"
	PushStatusFailed  = "failed"
)

// PolicyVersion is a versioned snapshot of the rendered tailnet policy.
type PolicyVersion struct {
	ID             string     `json:"id" db:"id"`
	VersionNumber  int        `json:"versionNumber" db:"version_number"`
	RenderedPolicy string     `json:"renderedPolicy" db:"rendered_policy"` // JSON
	TailscaleETag  string     `json:"tailscaleEtag,omitempty" db:"tailscale_etag"`
	PushStatus     string     `json:"pushStatus" db:"push_status"`
	PushError      string     `json:"pushError,omitempty" db:"push_error"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	PushedAt       *time.Time `json:"pushedAt,omitempty" db:"pushed_at"`
}

// GatewayHostPrefix starts every host alias this service owns in the tailnet
// policy. Hosts without it are left alone when publishing.
const GatewayHostPrefix = "gw-"

// TailscalePolicy is the part of the tailnet policy file this service owns:
// host aliases rendered from gateway IP addresses.
type TailscalePolicy struct {
	Hosts map[string]string `json:"hosts,omitempty"`
}

// SyncResponse is returned after pushing a policy.
type SyncResponse struct {
	VersionID     string `json:"versionId"`
	VersionNumber int    `json:"versionNumber"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
}
