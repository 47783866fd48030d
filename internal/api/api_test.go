package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bcnelson/gateway-address-manager/internal/api"
	"github.com/bcnelson/gateway-address-manager/internal/domain"
	"github.com/bcnelson/gateway-address-manager/internal/service"
	"github.com/bcnelson/gateway-address-manager/internal/storage/memory"
	"github.com/bcnelson/gateway-address-manager/internal/web"
)

// testServer creates a test server with in-memory storage
type testServer struct {
	handler      http.Handler
	store        *memory.Store
	bootstrapKey string
}

func newTestServer() *testServer {
	store := memory.New()
	bootstrapKey := "test-bootstrap-key"

	// No Tailscale client: sync is disabled, preview still works.
	syncService := service.NewSyncService(store, nil, 5*time.Second, false)

	webConfig := web.Config{
		SessionDuration: time.Hour,
		DraftTTL:        time.Minute,
	}
	handler := api.NewRouter(store, syncService, bootstrapKey, webConfig, nil)

	return &testServer{
		handler:      handler,
		store:        store,
		bootstrapKey: bootstrapKey,
	}
}

func (ts *testServer) request(method, path string, body any, apiKey string) *httptest.ResponseRecorder {
	return ts.requestWithHeaders(method, path, body, apiKey, nil)
}

func (ts *testServer) requestWithHeaders(method, path string, body any, apiKey string, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody io.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewReader(jsonBytes)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

// createGateway creates edge/ingress with the given addresses.
func (ts *testServer) createGateway(t *testing.T, addrs domain.AddressList) *domain.Gateway {
	t.Helper()
	rr := ts.request("POST", "/api/v1/gateways", domain.CreateGatewayRequest{
		Namespace:        "edge",
		Name:             "ingress",
		GatewayClassName: "tailscale",
		Addresses:        addrs,
	}, ts.bootstrapKey)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	return decodeGateway(t, rr)
}

func decodeGateway(t *testing.T, rr *httptest.ResponseRecorder) *domain.Gateway {
	t.Helper()
	var gw domain.Gateway
	if err := json.Unmarshal(rr.Body.Bytes(), &gw); err != nil {
		t.Fatalf("Failed to decode gateway: %v (%s)", err, rr.Body.String())
	}
	return &gw
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) domain.StandardError {
	t.Helper()
	var resp domain.StandardErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode error: %v (%s)", err, rr.Body.String())
	}
	return resp.Error
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer()

	rr := ts.request("GET", "/health", nil, "")

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}

	var resp map[string]string
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp["status"] != "ok" {
		t.Errorf("Expected status ok, got %s", resp["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer()
	ts.createGateway(t, nil)
	ts.request("POST", "/api/v1/gateways/edge/ingress/addresses", nil, ts.bootstrapKey)

	rr := ts.request("GET", "/metrics", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `gateway_manager_address_mutations_total{op="add",source="api"}`) {
		t.Errorf("Expected address mutation counter in metrics output")
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer()

	rr := ts.request("GET", "/api/v1/gateways", nil, "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != domain.ErrCodeUnauthorized {
		t.Errorf("Expected code %s, got %s", domain.ErrCodeUnauthorized, e.Code)
	}

	req := httptest.NewRequest("GET", "/api/v1/gateways", nil)
	req.Header.Set("Authorization", "Basic invalid")
	rr = httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rr.Code)
	}

	rr = ts.request("GET", "/api/v1/gateways", nil, "invalid-key")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rr.Code)
	}
}

func TestAPIKeyLifecycle(t *testing.T) {
	ts := newTestServer()

	rr := ts.request("POST", "/api/v1/keys", domain.CreateAPIKeyRequest{Name: "Test Key"}, ts.bootstrapKey)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var createResp domain.CreateAPIKeyResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &createResp)
	if createResp.Key == "" {
		t.Error("Expected key to be returned on creation")
	}

	rr = ts.request("GET", "/api/v1/gateways", nil, createResp.Key)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200 with new API key, got %d", rr.Code)
	}

	// The bootstrap key stops working once a real key exists.
	rr = ts.request("GET", "/api/v1/gateways", nil, ts.bootstrapKey)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for bootstrap key, got %d", rr.Code)
	}

	rr = ts.request("DELETE", "/api/v1/keys/"+createResp.ID, nil, createResp.Key)
	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rr.Code)
	}
}

func TestGatewayCRUD(t *testing.T) {
	ts := newTestServer()

	gw := ts.createGateway(t, domain.AddressList{{Type: domain.AddressTypeIP, Value: "100.64.0.1"}})
	if gw.ID == "" || len(gw.Addresses) != 1 {
		t.Fatalf("Unexpected gateway: %+v", gw)
	}

	// Duplicate
	rr := ts.request("POST", "/api/v1/gateways", domain.CreateGatewayRequest{Namespace: "edge", Name: "ingress"}, ts.bootstrapKey)
	if rr.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", rr.Code)
	}

	rr = ts.request("GET", "/api/v1/gateways/edge/ingress", nil, ts.bootstrapKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if rr.Header().Get("ETag") == "" {
		t.Error("Expected ETag header")
	}

	class := "internal"
	rr = ts.request("PUT", "/api/v1/gateways/edge/ingress", domain.UpdateGatewayRequest{GatewayClassName: &class}, ts.bootstrapKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	updated := decodeGateway(t, rr)
	if updated.GatewayClassName != "internal" || len(updated.Addresses) != 1 {
		t.Errorf("Unexpected update result: %+v", updated)
	}

	rr = ts.request("GET", "/api/v1/gateways?namespace=edge", nil, ts.bootstrapKey)
	var list []*domain.Gateway
	_ = json.Unmarshal(rr.Body.Bytes(), &list)
	if len(list) != 1 {
		t.Errorf("Expected 1 gateway, got %d", len(list))
	}

	rr = ts.request("GET", "/api/v1/namespaces", nil, ts.bootstrapKey)
	var namespaces []*domain.Namespace
	_ = json.Unmarshal(rr.Body.Bytes(), &namespaces)
	if len(namespaces) != 1 || namespaces[0].Name != "edge" || namespaces[0].GatewayCount != 1 {
		t.Errorf("Unexpected namespaces: %s", rr.Body.String())
	}

	rr = ts.request("DELETE", "/api/v1/gateways/edge/ingress", nil, ts.bootstrapKey)
	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rr.Code)
	}

	rr = ts.request("GET", "/api/v1/gateways/edge/ingress", nil, ts.bootstrapKey)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestGatewayValidation(t *testing.T) {
	ts := newTestServer()

	rr := ts.request("POST", "/api/v1/gateways", domain.CreateGatewayRequest{
		Namespace: "Edge",
		Name:      "ingress",
		Addresses: domain.AddressList{{Type: "MAC", Value: "aa:bb"}},
	}, ts.bootstrapKey)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != domain.ErrCodeValidationError || e.Field != "namespace" {
		t.Errorf("Unexpected error: %+v", e)
	}
}

func TestAddressListEditing(t *testing.T) {
	ts := newTestServer()
	ts.createGateway(t, nil)
	base := "/api/v1/gateways/edge/ingress/addresses"

	// Add to an empty list appends the default entry.
	rr := ts.request("POST", base, nil, ts.bootstrapKey)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	gw := decodeGateway(t, rr)
	want := domain.AddressList{{Type: domain.AddressTypeIP, Value: ""}}
	if !gw.Addresses.Equal(want) {
		t.Errorf("Expected %v, got %v", want, gw.Addresses)
	}

	// Update replaces in place.
	rr = ts.request("PUT", base+"/0", domain.UpdateAddressRequest{Type: "Hostname", Value: "example.com"}, ts.bootstrapKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	gw = decodeGateway(t, rr)
	want = domain.AddressList{{Type: domain.AddressTypeHostname, Value: "example.com"}}
	if !gw.Addresses.Equal(want) {
		t.Errorf("Expected %v, got %v", want, gw.Addresses)
	}

	// Grow to three, remove the middle one.
	ts.request("POST", base, nil, ts.bootstrapKey)
	ts.request("POST", base, nil, ts.bootstrapKey)
	ts.request("PUT", base+"/2", domain.UpdateAddressRequest{Type: "IPAddress", Value: "100.64.0.3"}, ts.bootstrapKey)

	rr = ts.request("DELETE", base+"/1", nil, ts.bootstrapKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	gw = decodeGateway(t, rr)
	want = domain.AddressList{
		{Type: domain.AddressTypeHostname, Value: "example.com"},
		{Type: domain.AddressTypeIP, Value: "100.64.0.3"},
	}
	if !gw.Addresses.Equal(want) {
		t.Errorf("Expected %v, got %v", want, gw.Addresses)
	}

	// The preview publishes the IP entry only.
	rr = ts.request("GET", "/api/v1/policy/preview", nil, ts.bootstrapKey)
	var policy domain.TailscalePolicy
	_ = json.Unmarshal(rr.Body.Bytes(), &policy)
	if policy.Hosts["gw-edge--ingress"] != "100.64.0.3" || len(policy.Hosts) != 1 {
		t.Errorf("Unexpected preview: %s", rr.Body.String())
	}

	// Replace the whole list.
	rr = ts.request("PUT", base, domain.AddressList{}, ts.bootstrapKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gw = decodeGateway(t, rr); len(gw.Addresses) != 0 {
		t.Errorf("Expected empty list, got %v", gw.Addresses)
	}
}

func TestAddressIndexErrors(t *testing.T) {
	ts := newTestServer()
	ts.createGateway(t, domain.AddressList{{Type: domain.AddressTypeIP, Value: "100.64.0.1"}})
	base := "/api/v1/gateways/edge/ingress/addresses"

	for _, path := range []string{base + "/1", base + "/-1"} {
		rr := ts.request("DELETE", path, nil, ts.bootstrapKey)
		if rr.Code != http.StatusNotFound {
			t.Errorf("DELETE %s: expected status 404, got %d", path, rr.Code)
			continue
		}
		if e := decodeError(t, rr); e.Code != domain.ErrCodeIndexOutOfRange {
			t.Errorf("DELETE %s: expected code %s, got %s", path, domain.ErrCodeIndexOutOfRange, e.Code)
		}
	}

	rr := ts.request("PUT", base+"/5", domain.UpdateAddressRequest{Type: "IPAddress", Value: "1.2.3.4"}, ts.bootstrapKey)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}

	rr = ts.request("DELETE", base+"/first", nil, ts.bootstrapKey)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}

	rr = ts.request("PUT", base+"/0", domain.UpdateAddressRequest{Type: "MAC", Value: "aa"}, ts.bootstrapKey)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}

	rr = ts.request("POST", "/api/v1/gateways/edge/missing/addresses", nil, ts.bootstrapKey)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}

	// Nothing above changed the list.
	rr = ts.request("GET", "/api/v1/gateways/edge/ingress", nil, ts.bootstrapKey)
	if gw := decodeGateway(t, rr); len(gw.Addresses) != 1 || gw.Addresses[0].Value != "100.64.0.1" {
		t.Errorf("Unexpected addresses: %v", gw.Addresses)
	}
}

func TestIfMatch(t *testing.T) {
	ts := newTestServer()
	ts.createGateway(t, nil)

	rr := ts.request("GET", "/api/v1/gateways/edge/ingress", nil, ts.bootstrapKey)
	etag := rr.Header().Get("ETag")

	rr = ts.requestWithHeaders("POST", "/api/v1/gateways/edge/ingress/addresses", nil, ts.bootstrapKey,
		map[string]string{"If-Match": etag})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	newETag := rr.Header().Get("ETag")
	if newETag == "" || newETag == etag {
		t.Errorf("Expected a new ETag, got %q", newETag)
	}

	// The old ETag is now stale.
	rr = ts.requestWithHeaders("DELETE", "/api/v1/gateways/edge/ingress/addresses/0", nil, ts.bootstrapKey,
		map[string]string{"If-Match": etag})
	if rr.Code != http.StatusPreconditionFailed {
		t.Fatalf("Expected status 412, got %d", rr.Code)
	}
	e := decodeError(t, rr)
	if e.Code != domain.ErrCodePreconditionFailed || e.Details["currentETag"] != newETag {
		t.Errorf("Unexpected error: %+v", e)
	}

	rr = ts.requestWithHeaders("DELETE", "/api/v1/gateways/edge/ingress", nil, ts.bootstrapKey,
		map[string]string{"If-Match": etag})
	if rr.Code != http.StatusPreconditionFailed {
		t.Errorf("Expected status 412, got %d", rr.Code)
	}
}

func TestPolicySyncWithoutClient(t *testing.T) {
	ts := newTestServer()

	rr := ts.request("POST", "/api/v1/policy/sync", nil, ts.bootstrapKey)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", rr.Code)
	}

	rr = ts.request("GET", "/api/v1/policy", nil, ts.bootstrapKey)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 before any push, got %d", rr.Code)
	}

	rr = ts.request("GET", "/api/v1/policy/versions", nil, ts.bootstrapKey)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
}

func TestInvalidRequests(t *testing.T) {
	ts := newTestServer()

	req := httptest.NewRequest("POST", "/api/v1/gateways", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+ts.bootstrapKey)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}

	rr = ts.request("POST", "/api/v1/keys", domain.CreateAPIKeyRequest{Name: "  "}, ts.bootstrapKey)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

func TestKeySelf(t *testing.T) {
	ts := newTestServer()

	rr := ts.request("GET", "/api/v1/keys/self", nil, ts.bootstrapKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var key domain.APIKey
	_ = json.Unmarshal(rr.Body.Bytes(), &key)
	if key.ID != "bootstrap" {
		t.Errorf("Expected bootstrap key, got %+v", key)
	}

	rr = ts.request("POST", "/api/v1/keys", domain.CreateAPIKeyRequest{Name: "ci"}, ts.bootstrapKey)
	var created domain.CreateAPIKeyResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &created)
	if !strings.HasPrefix(created.Key, "gam_") || !strings.HasPrefix(created.Key, created.KeyPrefix) {
		t.Fatalf("Unexpected key: %+v", created)
	}

	rr = ts.request("GET", "/api/v1/keys/self", nil, created.Key)
	_ = json.Unmarshal(rr.Body.Bytes(), &key)
	if key.ID != created.ID || key.Name != "ci" {
		t.Errorf("Expected key %s, got %+v", created.ID, key)
	}
}

func TestPolicyPreviewCount(t *testing.T) {
	ts := newTestServer()
	ts.createGateway(t, domain.AddressList{
		{Type: domain.AddressTypeIP, Value: "100.64.0.1"},
		{Type: domain.AddressTypeIP, Value: "100.64.0.2"},
		{Type: domain.AddressTypeIP, Value: ""},
	})

	rr := ts.request("GET", "/api/v1/policy/preview", nil, ts.bootstrapKey)
	var preview struct {
		Hosts     map[string]string `json:"hosts"`
		HostCount int               `json:"hostCount"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &preview)
	if preview.HostCount != 2 || preview.Hosts["gw-edge--ingress--2"] != "100.64.0.2" {
		t.Errorf("Unexpected preview: %s", rr.Body.String())
	}

	rr = ts.request("GET", "/api/v1/policy/versions/missing", nil, ts.bootstrapKey)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func (ts *testServer) createNamedGateway(t *testing.T, namespace, name string, addrs domain.AddressList) {
	t.Helper()
	rr := ts.request("POST", "/api/v1/gateways", domain.CreateGatewayRequest{
		Namespace: namespace,
		Name:      name,
		Addresses: addrs,
	}, ts.bootstrapKey)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
}

// seedValidations creates gateways in edge and core with a mix of entries
// that do and do not publish.
func seedValidations(t *testing.T, ts *testServer) {
	t.Helper()
	ts.createNamedGateway(t, "edge", "ingress", domain.AddressList{
		{Type: domain.AddressTypeIP, Value: "100.64.0.1"},
		{Type: domain.AddressTypeHostname, Value: "ingress.example.com"},
		{Type: domain.AddressTypeIP, Value: ""},
	})
	ts.createNamedGateway(t, "edge", "egress", domain.AddressList{
		{Type: domain.AddressTypeIP, Value: "100.64.0.0/24"},
		{Type: domain.AddressTypeIP, Value: "egress"},
	})
	ts.createNamedGateway(t, "core", "mesh", domain.AddressList{
		{Type: domain.AddressTypeIP, Value: "fd7a:115c:a1e0::1"},
	})
}

func TestNamespaceValidations(t *testing.T) {
	ts := newTestServer()
	seedValidations(t, ts)

	tests := []struct {
		name          string
		namespace     string
		wantStatus    int
		objects       int
		publishable   int
		unpublishable int
		reasons       []string
	}{
		{"mixed entries", "edge", http.StatusOK, 2, 2, 3,
			[]string{domain.ReasonNotIP, domain.ReasonHostname, domain.ReasonEmptyValue}},
		{"all publishable", "core", http.StatusOK, 1, 1, 0, nil},
		{"unknown namespace", "missing", http.StatusNotFound, 0, 0, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request("GET", "/api/v1/namespaces/"+tt.namespace+"/validations", nil, ts.bootstrapKey)
			if rr.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var summary domain.ValidationSummary
			if err := json.Unmarshal(rr.Body.Bytes(), &summary); err != nil {
				t.Fatalf("Failed to decode summary: %v", err)
			}
			if summary.Namespace != tt.namespace || summary.ObjectCount != tt.objects ||
				summary.Publishable != tt.publishable || summary.Unpublishable != tt.unpublishable {
				t.Errorf("Unexpected summary: %+v", summary)
			}
			if summary.Addresses != tt.publishable+tt.unpublishable {
				t.Errorf("Expected %d addresses, got %d", tt.publishable+tt.unpublishable, summary.Addresses)
			}
			if len(summary.Issues) != len(tt.reasons) {
				t.Fatalf("Expected %d issues, got %+v", len(tt.reasons), summary.Issues)
			}
			// Gateways are listed by name: egress before ingress.
			for i, reason := range tt.reasons {
				if summary.Issues[i].Reason != reason {
					t.Errorf("Issue %d: expected %q, got %+v", i, reason, summary.Issues[i])
				}
			}
		})
	}
}

func TestConfigValidations(t *testing.T) {
	ts := newTestServer()
	seedValidations(t, ts)

	tests := []struct {
		name          string
		query         string
		unpublishable map[string]int
	}{
		{"all namespaces", "", map[string]int{"edge": 3, "core": 0}},
		{"one namespace", "?namespaces=core", map[string]int{"core": 0}},
		{"list with spaces", "?namespaces=edge,%20core", map[string]int{"edge": 3, "core": 0}},
		{"namespace without gateways", "?namespaces=edge,missing", map[string]int{"edge": 3, "missing": 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request("GET", "/api/v1/validations"+tt.query, nil, ts.bootstrapKey)
			if rr.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
			}

			var summaries domain.ValidationSummaries
			if err := json.Unmarshal(rr.Body.Bytes(), &summaries); err != nil {
				t.Fatalf("Failed to decode summaries: %v", err)
			}
			if len(summaries) != len(tt.unpublishable) {
				t.Fatalf("Expected %d namespaces, got %d: %s", len(tt.unpublishable), len(summaries), rr.Body.String())
			}
			for ns, want := range tt.unpublishable {
				got, ok := summaries[ns]
				if !ok {
					t.Errorf("Missing summary for %s", ns)
					continue
				}
				if got.Unpublishable != want {
					t.Errorf("%s: expected %d unpublishable, got %d", ns, want, got.Unpublishable)
				}
			}
		})
	}
}

func TestNamespaceUpdate(t *testing.T) {
	tests := []struct {
		name       string
		from       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"rename", "edge", domain.UpdateNamespaceRequest{Name: "perimeter"}, http.StatusOK, ""},
		{"target holds same gateway name", "edge", domain.UpdateNamespaceRequest{Name: "core"}, http.StatusConflict, domain.ErrCodeResourceAlreadyExists},
		{"unknown namespace", "missing", domain.UpdateNamespaceRequest{Name: "perimeter"}, http.StatusNotFound, domain.ErrCodeResourceNotFound},
		{"invalid name", "edge", domain.UpdateNamespaceRequest{Name: "Perimeter"}, http.StatusBadRequest, domain.ErrCodeValidationError},
		{"double hyphen", "edge", domain.UpdateNamespaceRequest{Name: "edge--2"}, http.StatusBadRequest, domain.ErrCodeValidationError},
		{"same name", "edge", domain.UpdateNamespaceRequest{Name: "edge"}, http.StatusBadRequest, domain.ErrCodeValidationError},
		{"unknown field", "edge", map[string]string{"labels": "x"}, http.StatusBadRequest, domain.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.createNamedGateway(t, "edge", "ingress", domain.AddressList{{Type: domain.AddressTypeIP, Value: "100.64.0.1"}})
			ts.createNamedGateway(t, "edge", "egress", nil)
			ts.createNamedGateway(t, "core", "ingress", nil)

			rr := ts.request("PUT", "/api/v1/namespaces/"+tt.from, tt.body, ts.bootstrapKey)
			if rr.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				if e := decodeError(t, rr); e.Code != tt.wantCode {
					t.Errorf("Expected code %s, got %+v", tt.wantCode, e)
				}
				// Nothing moved.
				if rr := ts.request("GET", "/api/v1/gateways/edge/egress", nil, ts.bootstrapKey); tt.from == "edge" && rr.Code != http.StatusOK {
					t.Errorf("Expected edge/egress to stay, got %d", rr.Code)
				}
				return
			}

			var ns domain.Namespace
			_ = json.Unmarshal(rr.Body.Bytes(), &ns)
			if ns.Name != "perimeter" || ns.GatewayCount != 2 {
				t.Errorf("Unexpected namespace: %+v", ns)
			}
			if rr := ts.request("GET", "/api/v1/gateways/perimeter/egress", nil, ts.bootstrapKey); rr.Code != http.StatusOK {
				t.Errorf("Expected moved gateway, got %d", rr.Code)
			}
			if rr := ts.request("GET", "/api/v1/gateways/edge/ingress", nil, ts.bootstrapKey); rr.Code != http.StatusNotFound {
				t.Errorf("Expected old namespace to be empty, got %d", rr.Code)
			}

			rr = ts.request("GET", "/api/v1/policy/preview", nil, ts.bootstrapKey)
			if !strings.Contains(rr.Body.String(), "gw-perimeter--ingress") {
				t.Errorf("Expected preview to use the new namespace: %s", rr.Body.String())
			}
		})
	}
}
