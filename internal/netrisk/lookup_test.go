package netrisk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewHTTPLookupClient_RejectsUnsafeURLs(t *testing.T) {
	tests := []string{
		"http://localhost:1234",
		"http://127.0.0.1/v2",
		"http://10.0.0.5/check",
		"ftp://proxycheck.io",
		"",
	}
	for _, u := range tests {
		if _, err := NewHTTPLookupClient(u, "", time.Second); err == nil {
			t.Errorf("NewHTTPLookupClient(%q) succeeded, want error", u)
		}
	}
}

func TestHTTPLookupClient_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("vpn") != "1" {
			t.Errorf("missing vpn=1 query param")
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("key = %q, want test-key", r.URL.Query().Get("key"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "ok",
			"203.0.113.9": {"proxy": "yes", "vpn": "yes", "tor": "no", "type": "VPN", "risk": 66}
		}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, "test-key")

	result, err := client.Lookup(context.Background(), "203.0.113.9")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !result.Proxy || !result.VPN || result.Tor {
		t.Errorf("flags = {proxy:%v vpn:%v tor:%v}", result.Proxy, result.VPN, result.Tor)
	}
	if result.Risk != 66 || result.Type != "VPN" {
		t.Errorf("risk = %d type = %q, want 66 VPN", result.Risk, result.Type)
	}
}

func TestHTTPLookupClient_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "denied", "message": "bad key"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, "")
	if _, err := client.Lookup(context.Background(), "203.0.113.9"); err == nil {
		t.Fatal("Lookup succeeded, want provider status error")
	}
}

func TestHTTPLookupClient_MissingEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, "")
	if _, err := client.Lookup(context.Background(), "203.0.113.9"); err == nil {
		t.Fatal("Lookup succeeded, want missing-entry error")
	}
}

func TestHTTPLookupClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, "")
	if _, err := client.Lookup(context.Background(), "203.0.113.9"); err == nil {
		t.Fatal("Lookup succeeded, want status error")
	}
}

// newTestClient builds a client against an httptest server, bypassing
// the SSRF check (httptest binds to 127.0.0.1).
func newTestClient(t *testing.T, baseURL, key string) *HTTPLookupClient {
	t.Helper()
	return &HTTPLookupClient{
		baseURL: baseURL,
		apiKey:  key,
		client:  &http.Client{Timeout: 2 * time.Second},
	}
}
