package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"bookvault/internal/config"
	"bookvault/internal/gateway"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testConfig returns a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Port:          "0",
		Env:           "development",
		LogLevel:      "error",
		Currency:      "INR",
		JWTSecret:     "test-jwt-secret",
		WebhookSecret: "test-webhook-secret",
	}
}

// newTestServer creates an in-memory server with a mock payment provider
func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(testConfig(), WithProvider(gateway.NewMockProvider()))
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

func request(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("Failed to decode response: %v\nbody: %s", err, w.Body.String())
	}
}

func registerUser(t *testing.T, s *Server, email, role string) string {
	t.Helper()

	w := request(t, s, http.MethodPost, "/v1/auth/register", "", gin.H{
		"firstName": "Test",
		"lastName":  "User",
		"email":     email,
		"password":  "correct-horse",
		"role":      role,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Registration failed: %d %s", w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	decode(t, w, &resp)
	if resp.Token == "" {
		t.Fatal("Expected a token in registration response")
	}
	return resp.Token
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := request(t, s, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 from /health, got %d", w.Code)
	}

	var resp HealthResponse
	decode(t, w, &resp)
	if resp.Status != "healthy" {
		t.Errorf("Expected healthy, got %s", resp.Status)
	}
	details := make(map[string]string)
	for _, check := range resp.Checks {
		if !check.Healthy {
			t.Errorf("Expected %s healthy, got detail %q", check.Name, check.Detail)
		}
		details[check.Name] = check.Detail
	}
	if details["database"] != "in-memory" {
		t.Errorf("Expected in-memory database check, got %q", details["database"])
	}
	if details["gateway"] != "mock" {
		t.Errorf("Expected mock gateway check, got %q", details["gateway"])
	}

	w = request(t, s, http.MethodGet, "/health/live", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 from /health/live, got %d", w.Code)
	}

	// Not ready until Run() has started
	w = request(t, s, http.MethodGet, "/health/ready", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 from /health/ready before start, got %d", w.Code)
	}
}

func TestInfoEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := request(t, s, http.MethodGet, "/", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var info struct {
		Name string `json:"name"`
	}
	decode(t, w, &info)
	if info.Name != "Bookvault" {
		t.Errorf("Expected Bookvault, got %q", info.Name)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/v1/payment/create-order"},
		{http.MethodPost, "/v1/payment/verify"},
		{http.MethodGet, "/v1/orders"},
		{http.MethodGet, "/v1/library"},
		{http.MethodGet, "/v1/me"},
	}
	for _, p := range paths {
		w := request(t, s, p.method, p.path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", p.method, p.path, w.Code)
		}
	}
}

func TestCatalogManagementRequiresAuthorRole(t *testing.T) {
	s := newTestServer(t)
	readerToken := registerUser(t, s, "reader@example.com", "reader")

	w := request(t, s, http.MethodPost, "/v1/books", readerToken, gin.H{
		"title": "Nope", "author": "Nobody", "price": 100, "stock": 1,
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for reader creating a book, got %d", w.Code)
	}
}

func TestPurchaseFlow(t *testing.T) {
	s := newTestServer(t)

	authorToken := registerUser(t, s, "author@example.com", "author")
	readerToken := registerUser(t, s, "reader@example.com", "reader")

	// Author publishes a book
	w := request(t, s, http.MethodPost, "/v1/books", authorToken, gin.H{
		"title":  "The Go Programming Language",
		"author": "Test User",
		"price":  450,
		"stock":  10,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Book creation failed: %d %s", w.Code, w.Body.String())
	}
	var bookResp struct {
		Book struct {
			ID string `json:"id"`
		} `json:"book"`
	}
	decode(t, w, &bookResp)

	// Anyone can browse
	w = request(t, s, http.MethodGet, "/v1/books", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Book listing failed: %d", w.Code)
	}

	// Reader checks out
	w = request(t, s, http.MethodPost, "/v1/payment/create-order", readerToken, gin.H{
		"books":         []gin.H{{"bookId": bookResp.Book.ID, "quantity": 1}},
		"paymentMethod": "upi",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Checkout failed: %d %s", w.Code, w.Body.String())
	}
	var orderResp struct {
		OrderID         string `json:"orderId"`
		ProviderOrderID string `json:"providerOrderId"`
	}
	decode(t, w, &orderResp)

	// Simulate the provider callback with a valid signature
	sig := gateway.NewSigner("test-webhook-secret", false).Sign(orderResp.ProviderOrderID, "pay_e2e")
	w = request(t, s, http.MethodPost, "/v1/payment/verify", readerToken, gin.H{
		"razorpay_order_id":   orderResp.ProviderOrderID,
		"razorpay_payment_id": "pay_e2e",
		"razorpay_signature":  sig,
		"order_id":            orderResp.OrderID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Verification failed: %d %s", w.Code, w.Body.String())
	}

	// The book lands in the reader's library
	w = request(t, s, http.MethodGet, "/v1/library", readerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Library fetch failed: %d", w.Code)
	}
	var library struct {
		Count int `json:"count"`
	}
	decode(t, w, &library)
	if library.Count != 1 {
		t.Errorf("Expected 1 owned book, got %d", library.Count)
	}

	// A second purchase of the same book is refused
	w = request(t, s, http.MethodPost, "/v1/payment/create-order", readerToken, gin.H{
		"books":         []gin.H{{"bookId": bookResp.Book.ID, "quantity": 1}},
		"paymentMethod": "upi",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for duplicate purchase, got %d: %s", w.Code, w.Body.String())
	}

	// Stock moved after settlement
	w = request(t, s, http.MethodGet, "/v1/books/"+bookResp.Book.ID, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Book fetch failed: %d", w.Code)
	}
	var stockResp struct {
		Book struct {
			Stock int `json:"stock"`
		} `json:"book"`
	}
	decode(t, w, &stockResp)
	if stockResp.Book.Stock != 9 {
		t.Errorf("Expected stock 9 after sale, got %d", stockResp.Book.Stock)
	}
}

func TestVPNCheckEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := request(t, s, http.MethodPost, "/v1/security/vpn-check", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		VPNDetected bool     `json:"vpnDetected"`
		Risk        string   `json:"risk"`
		Suspicious  bool     `json:"suspicious"`
		Reasons     []string `json:"reasons"`
		ShouldBlock bool     `json:"shouldBlock"`
	}
	decode(t, w, &resp)
	if resp.VPNDetected || resp.ShouldBlock {
		t.Errorf("Expected browser from a public test address to pass, got %+v", resp)
	}

	// Automated user agent supplied in the body flags the request.
	w = request(t, s, http.MethodPost, "/v1/security/vpn-check", "", gin.H{
		"userAgent": "HeadlessChrome/120.0",
	})
	decode(t, w, &resp)
	if !resp.Suspicious || !resp.ShouldBlock {
		t.Errorf("Expected headless agent to be flagged, got %+v", resp)
	}
	if len(resp.Reasons) == 0 {
		t.Error("Expected a reason for the flagged agent")
	}
}
