package netrisk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookvault/internal/security"
)

// HTTPLookupClient queries a proxycheck-style IP intelligence API.
// The provider returns one JSON object per queried address:
//
//	{"status":"ok","1.2.3.4":{"proxy":"yes","vpn":"yes","type":"VPN","risk":66}}
type HTTPLookupClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPLookupClient creates a lookup client. The base URL is
// validated against private and link-local ranges so a misconfigured
// endpoint cannot be used to probe internal services.
func NewHTTPLookupClient(baseURL, apiKey string, timeout time.Duration) (*HTTPLookupClient, error) {
	if err := security.ValidateEndpointURL(baseURL); err != nil {
		return nil, fmt.Errorf("invalid risk lookup URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPLookupClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Lookup queries the provider for a single IP.
func (c *HTTPLookupClient) Lookup(ctx context.Context, ip string) (*LookupResult, error) {
	q := url.Values{}
	q.Set("vpn", "1")
	q.Set("risk", "1")
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	reqURL := c.baseURL + "/" + url.PathEscape(ip) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("risk lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("risk lookup returned status %d", resp.StatusCode)
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode risk lookup response: %w", err)
	}

	if status, ok := payload["status"]; ok {
		var s string
		_ = json.Unmarshal(status, &s)
		if s != "" && s != "ok" {
			return nil, fmt.Errorf("risk lookup status %q", s)
		}
	}

	raw, ok := payload[ip]
	if !ok {
		return nil, fmt.Errorf("risk lookup response missing entry for %s", ip)
	}

	var entry struct {
		Proxy string `json:"proxy"`
		VPN   string `json:"vpn"`
		Tor   string `json:"tor"`
		Type  string `json:"type"`
		Risk  int    `json:"risk"`
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode risk lookup entry: %w", err)
	}

	return &LookupResult{
		Proxy: entry.Proxy == "yes",
		VPN:   entry.VPN == "yes",
		Tor:   entry.Tor == "yes",
		Risk:  entry.Risk,
		Type:  entry.Type,
	}, nil
}

// Compile-time assertion that HTTPLookupClient implements LookupClient.
var _ LookupClient = (*HTTPLookupClient)(nil)
