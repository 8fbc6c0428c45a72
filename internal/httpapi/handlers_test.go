package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"warungpos/backend/internal/cache"
	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/service"
	"warungpos/backend/internal/store/memory"
)

// newTestAPI builds a full API with the in-memory store, a real AuthManager,
// and a real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) http.Handler {
	t.Helper()

	repo := memory.NewSeeded()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(repo, cache.NoopProductCache{}, logger, domain.CompanyProfile{Name: "Warung Test"}, time.Second)
	auth := NewAuthManager("test-secret-key-at-least-32byte!", time.Hour, repo)

	return New(svc, auth, logger, "*").Router()
}

func login(t *testing.T, handler http.Handler, username string, password string) string {
	t.Helper()

	payload, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d (body: %s)", username, rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.AccessToken
}

func doJSON(t *testing.T, handler http.Handler, method string, path string, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestProductsRequireToken(t *testing.T) {
	handler := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/products", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestProductCreateRequiresAdmin(t *testing.T) {
	handler := newTestAPI(t)
	cashierToken := login(t, handler, "kasir", "kasir123")

	rec := doJSON(t, handler, http.MethodPost, "/api/products", cashierToken, domain.ProductCreateRequest{
		SKU:        "SKU-NEW",
		Name:       "New Product",
		PriceCents: 1000,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestCheckoutFlowOverHTTP(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "kasir", "kasir123")

	rec := doJSON(t, handler, http.MethodPost, "/api/cart/t1/items", token, map[string]string{"product_id": "prod-rice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("cart add: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var view domain.CartView
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode cart view: %v", err)
	}
	if view.TotalCents != 300000 {
		t.Fatalf("expected cart total 300000, got %d", view.TotalCents)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/checkout", token, domain.CheckoutRequest{
		TerminalID:    "t1",
		PaymentMethod: domain.PaymentCash,
		TenderedCents: 300000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var resp domain.CheckoutResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode checkout response: %v", err)
	}
	if resp.Sale.TotalCents != 300000 {
		t.Fatalf("expected sale total 300000, got %d", resp.Sale.TotalCents)
	}
	if resp.ReceiptHTML == "" {
		t.Fatalf("expected rendered receipt")
	}

	// The cart is empty after commit.
	rec = doJSON(t, handler, http.MethodGet, "/api/cart/t1", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cart view: expected 200, got %d", rec.Code)
	}
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode cart view: %v", err)
	}
	if len(view.Lines) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(view.Lines))
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/sales/"+resp.Sale.ID+"/receipt", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("receipt: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestCheckoutEmptyCartReturns400(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "kasir", "kasir123")

	rec := doJSON(t, handler, http.MethodPost, "/api/checkout", token, domain.CheckoutRequest{
		TerminalID:    "t9",
		PaymentMethod: domain.PaymentCash,
		TenderedCents: 100000,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestLedgerPostAndCustomerDetail(t *testing.T) {
	handler := newTestAPI(t)
	adminToken := login(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodPost, "/api/ledger", adminToken, domain.LedgerPostRequest{
		CustomerID:  "cust-siti",
		EntryType:   domain.LedgerEntryDebit,
		AmountCents: 5000,
		Description: "goodwill credit",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("ledger post: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/customers/cust-siti", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("customer detail: expected 200, got %d", rec.Code)
	}
	var detail domain.CustomerDetail
	if err := json.NewDecoder(rec.Body).Decode(&detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.Customer.CreditBalanceCents != 5000 {
		t.Fatalf("expected balance 5000, got %d", detail.Customer.CreditBalanceCents)
	}
	if detail.StoreCreditCents != 5000 {
		t.Fatalf("expected store credit view 5000, got %d", detail.StoreCreditCents)
	}
}

func TestReportsForbiddenForCashier(t *testing.T) {
	handler := newTestAPI(t)
	cashierToken := login(t, handler, "kasir", "kasir123")

	rec := doJSON(t, handler, http.MethodGet, "/api/reports/daily", cashierToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestStockAdjustmentOverHTTP(t *testing.T) {
	handler := newTestAPI(t)
	adminToken := login(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodPost, "/api/stock/adjustments", adminToken, domain.StockAdjustRequest{
		ProductID: "prod-egg",
		DeltaQty:  -3,
		Reason:    "spoilage",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("adjust: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var product domain.Product
	if err := json.NewDecoder(rec.Body).Decode(&product); err != nil {
		t.Fatalf("decode product: %v", err)
	}
	if product.StockQty != 7 {
		t.Fatalf("expected stock 7, got %d", product.StockQty)
	}
}
