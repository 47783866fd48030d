package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bcnelson/gateway-address-manager/internal/domain"
	"github.com/bcnelson/gateway-address-manager/internal/service"
)

// GenerateETag generates an ETag for a resource based on its ID and updated_at timestamp.
// Format: "<resource_type>-<id>-<updated_at_unix_nano>"
func GenerateETag(resourceType, id string, updatedAt time.Time) string {
	return fmt.Sprintf(`"%s-%s-%d"`, resourceType, id, updatedAt.UnixNano())
}

// CheckIfMatch reports whether the request may modify the resource: either
// no If-Match header was sent or it matches the current ETag.
func CheckIfMatch(r *http.Request, resourceType, id string, updatedAt time.Time) bool {
	ifMatch := r.Header.Get("If-Match")
	if ifMatch == "" || ifMatch == "*" {
		return true
	}
	return ifMatch == GenerateETag(resourceType, id, updatedAt)
}

// staleETagError reports a failed If-Match check. It unwraps to
// domain.ErrPreconditionFailed.
type staleETagError struct {
	currentETag string
}

func (e *staleETagError) Error() string {
	return "precondition failed: current etag " + e.currentETag
}

func (e *staleETagError) Unwrap() error {
	return domain.ErrPreconditionFailed
}

// Gateway ETag helpers

func gatewayETag(gw *domain.Gateway) string {
	return GenerateETag("gateway", gw.ID, gw.UpdatedAt)
}

func SetGatewayETag(w http.ResponseWriter, gw *domain.Gateway) {
	w.Header().Set("ETag", gatewayETag(gw))
}

func CheckGatewayIfMatch(r *http.Request, gw *domain.Gateway) bool {
	return CheckIfMatch(r, "gateway", gw.ID, gw.UpdatedAt)
}

// gatewayPrecondition turns the request's If-Match header into a check the
// address service runs against the stored gateway.
func gatewayPrecondition(r *http.Request) service.Precondition {
	return func(gw *domain.Gateway) error {
		if !CheckGatewayIfMatch(r, gw) {
			return &staleETagError{currentETag: gatewayETag(gw)}
		}
		return nil
	}
}
