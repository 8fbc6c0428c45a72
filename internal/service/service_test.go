package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"warungpos/backend/internal/cache"
	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
	"warungpos/backend/internal/store/memory"
)

// countingRepo wraps the memory store and counts the mutating calls the
// checkout path may issue, so rejection tests can assert nothing was
// persisted.
type countingRepo struct {
	store.Repository
	createSaleCalls int
	ledgerPostCalls int
}

func (c *countingRepo) CreateSale(ctx context.Context, sale domain.Sale, ledger *domain.CreditLedgerEntry) (*domain.Sale, error) {
	c.createSaleCalls++
	return c.Repository.CreateSale(ctx, sale, ledger)
}

func (c *countingRepo) PostLedgerEntry(ctx context.Context, entry domain.CreditLedgerEntry) (*domain.Customer, error) {
	c.ledgerPostCalls++
	return c.Repository.PostLedgerEntry(ctx, entry)
}

func newTestService(t *testing.T) (*Service, *countingRepo) {
	t.Helper()
	repo := &countingRepo{Repository: memory.NewSeeded()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(repo, cache.NoopProductCache{}, logger, domain.CompanyProfile{Name: "Warung Test"}, time.Second)
	return svc, repo
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: domain.RoleAdmin})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "kasir", Role: domain.RoleCashier})
}

// seedProduct creates a product through the admin path and returns it.
func seedProduct(t *testing.T, svc *Service, sku string, priceCents int64, stock int) *domain.Product {
	t.Helper()
	product, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		SKU:          sku,
		Name:         "Test " + sku,
		PriceCents:   priceCents,
		InitialStock: stock,
	})
	if err != nil {
		t.Fatalf("seed product %s: %v", sku, err)
	}
	return product
}

func fillCart(t *testing.T, svc *Service, terminalID string, productID string, qty int) {
	t.Helper()
	for i := 0; i < qty; i++ {
		if _, err := svc.CartAdd(context.Background(), terminalID, productID); err != nil {
			t.Fatalf("cart add: %v", err)
		}
	}
}

func TestCheckoutEmptyCartRejectedWithoutPersistence(t *testing.T) {
	svc, repo := newTestService(t)

	_, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		TerminalID:    "t1",
		PaymentMethod: domain.PaymentCash,
		TenderedCents: 100000,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty cart, got %v", err)
	}
	if repo.createSaleCalls != 0 || repo.ledgerPostCalls != 0 {
		t.Fatalf("expected no persistence calls, got sale=%d ledger=%d", repo.createSaleCalls, repo.ledgerPostCalls)
	}
}

func TestCheckoutUnderpaidRejectedForCashier(t *testing.T) {
	svc, repo := newTestService(t)
	product := seedProduct(t, svc, "SKU-UNDERPAY", 10000, 5)
	fillCart(t, svc, "t1", product.ID, 1)

	_, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		TerminalID:    "t1",
		PaymentMethod: domain.PaymentCash,
		TenderedCents: 9000,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for underpaid cashier sale, got %v", err)
	}
	if repo.createSaleCalls != 0 {
		t.Fatalf("expected no CreateSale call, got %d", repo.createSaleCalls)
	}

	// The cart survives a rejected commit.
	view, err := svc.CartView(context.Background(), "t1")
	if err != nil {
		t.Fatalf("cart view: %v", err)
	}
	if len(view.Lines) != 1 {
		t.Fatalf("expected cart to keep its line, got %d lines", len(view.Lines))
	}
}

func TestCheckoutUnderpaidAllowedForAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	product := seedProduct(t, svc, "SKU-ADMIN-UNDER", 10000, 5)
	fillCart(t, svc, "t1", product.ID, 1)

	resp, err := svc.Checkout(adminCtx(), domain.CheckoutRequest{
		TerminalID:    "t1",
		PaymentMethod: domain.PaymentCash,
		TenderedCents: 4000,
	})
	if err != nil {
		t.Fatalf("admin underpaid checkout failed: %v", err)
	}
	if resp.Sale.ChangeCents != -6000 {
		t.Fatalf("expected change -6000, got %d", resp.Sale.ChangeCents)
	}
}

func TestCheckoutStoreCreditRequiresCustomer(t *testing.T) {
	svc, repo := newTestService(t)
	product := seedProduct(t, svc, "SKU-CREDITPAY", 10000, 5)
	fillCart(t, svc, "t1", product.ID, 1)

	_, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		TerminalID:    "t1",
		PaymentMethod: domain.PaymentStoreCredit,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for anonymous store-credit sale, got %v", err)
	}
	if repo.createSaleCalls != 0 {
		t.Fatalf("expected no CreateSale call, got %d", repo.createSaleCalls)
	}
}

func TestCheckoutWalletRequiresPhone(t *testing.T) {
	svc, _ := newTestService(t)
	product := seedProduct(t, svc, "SKU-WALLET", 10000, 5)
	fillCart(t, svc, "t1", product.ID, 1)

	_, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		TerminalID:    "t1",
		PaymentMethod: domain.PaymentWallet,
		TenderedCents: 10000,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for wallet sale without phone, got %v", err)
	}
}

func TestCheckoutChangeBankedAsStoreCredit(t *testing.T) {
	svc, _ := newTestService(t)
	product := seedProduct(t, svc, "SKU-CHANGE", 5000, 10)
	fillCart(t, svc, "t1", product.ID, 2)

	resp, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		TerminalID:    "t1",
		CustomerID:    "cust-siti",
		PaymentMethod: domain.PaymentCash,
		TenderedCents: 12000,
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if resp.Sale.TotalCents != 10000 {
		t.Fatalf("expected total 10000, got %d", resp.Sale.TotalCents)
	}
	if resp.Sale.ChangeCents != 2000 {
		t.Fatalf("expected change 2000, got %d", resp.Sale.ChangeCents)
	}

	detail, err := svc.GetCustomerDetail(context.Background(), "cust-siti")
	if err != nil {
		t.Fatalf("customer detail: %v", err)
	}
	if detail.Customer.CreditBalanceCents != 2000 {
		t.Fatalf("expected balance 2000, got %d", detail.Customer.CreditBalanceCents)
	}
	if detail.StoreCreditCents != 2000 {
		t.Fatalf("expected store credit view 2000, got %d", detail.StoreCreditCents)
	}

	entries, err := svc.ListLedgerEntries(context.Background(), "cust-siti", 10)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one ledger entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.EntryType != domain.LedgerEntryCredit {
		t.Fatalf("expected credit entry, got %s", entry.EntryType)
	}
	if entry.AmountCents != 2000 {
		t.Fatalf("expected amount 2000, got %d", entry.AmountCents)
	}
	if entry.SaleID != resp.Sale.ID {
		t.Fatalf("expected ledger entry to reference sale %s, got %s", resp.Sale.ID, entry.SaleID)
	}
}

func TestCheckoutAnonymousChangeNotTracked(t *testing.T) {
	svc, _ := newTestService(t)
	product := seedProduct(t, svc, "SKU-ANON", 5000, 10)
	fillCart(t, svc, "t1", product.ID, 2)

	resp, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		TerminalID:    "t1",
		PaymentMethod: domain.PaymentCash,
		TenderedCents: 12000,
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if resp.Sale.ChangeCents != 2000 {
		t.Fatalf("expected change 2000, got %d", resp.Sale.ChangeCents)
	}

	entries, err := svc.ListLedgerEntries(context.Background(), "cust-siti", 10)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no ledger entries for anonymous sale, got %d", len(entries))
	}

	detail, err := svc.GetCustomerDetail(context.Background(), "cust-siti")
	if err != nil {
		t.Fatalf("customer detail: %v", err)
	}
	if detail.Customer.CreditBalanceCents != 0 {
		t.Fatalf("expected untouched balance, got %d", detail.Customer.CreditBalanceCents)
	}
}

func TestCheckoutDecrementsStockExactly(t *testing.T) {
	svc, _ := newTestService(t)
	product := seedProduct(t, svc, "SKU-STOCK", 5000, 7)
	fillCart(t, svc, "t1", product.ID, 3)

	if _, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		TerminalID:    "t1",
		PaymentMethod: domain.PaymentCash,
		TenderedCents: 15000,
	}); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	after, err := svc.GetProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.StockQty != 4 {
		t.Fatalf("expected stock 4, got %d", after.StockQty)
	}
}

func TestCheckoutInsufficientStockAbortsWholeSale(t *testing.T) {
	svc, _ := newTestService(t)
	scarce := seedProduct(t, svc, "SKU-SCARCE", 5000, 2)
	plenty := seedProduct(t, svc, "SKU-PLENTY", 3000, 50)

	fillCart(t, svc, "t1", scarce.ID, 2)
	fillCart(t, svc, "t1", plenty.ID, 1)

	// The cart quantity was valid when added, but stock moved underneath it.
	if _, err := svc.AdjustStock(adminCtx(), domain.StockAdjustRequest{
		ProductID: scarce.ID,
		DeltaQty:  -1,
		Reason:    "damaged unit removed",
	}); err != nil {
		t.Fatalf("adjust stock: %v", err)
	}

	_, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		TerminalID:    "t1",
		PaymentMethod: domain.PaymentCash,
		TenderedCents: 100000,
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	// Nothing moved, including the line that had stock.
	after, err := svc.GetProduct(context.Background(), plenty.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.StockQty != 50 {
		t.Fatalf("expected untouched stock 50, got %d", after.StockQty)
	}
}

func TestCheckoutStoreCreditSpendsBalance(t *testing.T) {
	svc, _ := newTestService(t)
	product := seedProduct(t, svc, "SKU-REDEEM", 4000, 10)

	if _, err := svc.PostLedgerEntry(adminCtx(), domain.LedgerPostRequest{
		CustomerID:  "cust-siti",
		EntryType:   domain.LedgerEntryDebit,
		AmountCents: 10000,
		Description: "opening balance",
	}); err != nil {
		t.Fatalf("post ledger: %v", err)
	}

	fillCart(t, svc, "t1", product.ID, 2)
	resp, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		TerminalID:    "t1",
		CustomerID:    "cust-siti",
		PaymentMethod: domain.PaymentStoreCredit,
	})
	if err != nil {
		t.Fatalf("store-credit checkout failed: %v", err)
	}
	if resp.Sale.TenderedCents != 8000 || resp.Sale.ChangeCents != 0 {
		t.Fatalf("expected tendered 8000 / change 0, got %d / %d", resp.Sale.TenderedCents, resp.Sale.ChangeCents)
	}

	detail, err := svc.GetCustomerDetail(context.Background(), "cust-siti")
	if err != nil {
		t.Fatalf("customer detail: %v", err)
	}
	if detail.Customer.CreditBalanceCents != 2000 {
		t.Fatalf("expected remaining balance 2000, got %d", detail.Customer.CreditBalanceCents)
	}
}

func TestCheckoutStoreCreditInsufficientBalance(t *testing.T) {
	svc, repo := newTestService(t)
	product := seedProduct(t, svc, "SKU-NOFUNDS", 4000, 10)
	fillCart(t, svc, "t1", product.ID, 1)

	_, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		TerminalID:    "t1",
		CustomerID:    "cust-siti",
		PaymentMethod: domain.PaymentStoreCredit,
	})
	if !errors.Is(err, store.ErrInsufficientCredit) {
		t.Fatalf("expected insufficient credit, got %v", err)
	}
	if repo.createSaleCalls != 0 {
		t.Fatalf("expected no CreateSale call, got %d", repo.createSaleCalls)
	}
}

func TestCheckoutIdempotencyKeyDeduplicates(t *testing.T) {
	svc, _ := newTestService(t)
	product := seedProduct(t, svc, "SKU-IDEM", 5000, 10)
	fillCart(t, svc, "t1", product.ID, 1)

	first, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		TerminalID:     "t1",
		PaymentMethod:  domain.PaymentCash,
		TenderedCents:  5000,
		IdempotencyKey: "idem-retry",
	})
	if err != nil {
		t.Fatalf("first checkout failed: %v", err)
	}
	if first.Duplicate {
		t.Fatalf("first checkout flagged as duplicate")
	}

	// Retry after the cart was cleared, same key.
	fillCart(t, svc, "t1", product.ID, 1)
	second, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		TerminalID:     "t1",
		PaymentMethod:  domain.PaymentCash,
		TenderedCents:  5000,
		IdempotencyKey: "idem-retry",
	})
	if err != nil {
		t.Fatalf("retried checkout failed: %v", err)
	}
	if !second.Duplicate {
		t.Fatalf("expected duplicate flag on retry")
	}
	if second.Sale.ID != first.Sale.ID {
		t.Fatalf("expected same sale, got %s and %s", first.Sale.ID, second.Sale.ID)
	}

	after, err := svc.GetProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.StockQty != 9 {
		t.Fatalf("expected stock decremented once, got %d", after.StockQty)
	}
}

func TestCheckoutClearsCartAndRendersReceipt(t *testing.T) {
	svc, _ := newTestService(t)
	product := seedProduct(t, svc, "SKU-RECEIPT", 5000, 10)
	fillCart(t, svc, "t1", product.ID, 1)

	resp, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		TerminalID:    "t1",
		CustomerID:    "cust-siti",
		PaymentMethod: domain.PaymentCash,
		TenderedCents: 5000,
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if !strings.Contains(resp.ReceiptHTML, resp.Sale.Number) {
		t.Fatalf("receipt missing sale number %s", resp.Sale.Number)
	}
	if strings.Count(resp.ReceiptHTML, "Ibu Siti") != 1 {
		t.Fatalf("expected customer name exactly once in receipt")
	}

	view, err := svc.CartView(context.Background(), "t1")
	if err != nil {
		t.Fatalf("cart view: %v", err)
	}
	if len(view.Lines) != 0 {
		t.Fatalf("expected cleared cart, got %d lines", len(view.Lines))
	}
}

func TestCheckoutRequiresKnownRole(t *testing.T) {
	svc, repo := newTestService(t)
	product := seedProduct(t, svc, "SKU-NOAUTH", 5000, 10)
	fillCart(t, svc, "t1", product.ID, 1)

	_, err := svc.Checkout(context.Background(), domain.CheckoutRequest{
		TerminalID:    "t1",
		PaymentMethod: domain.PaymentCash,
		TenderedCents: 5000,
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden without actor, got %v", err)
	}
	if repo.createSaleCalls != 0 {
		t.Fatalf("expected no CreateSale call, got %d", repo.createSaleCalls)
	}
}

func TestLedgerRepaymentFloorsAtZero(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.PostLedgerEntry(adminCtx(), domain.LedgerPostRequest{
		CustomerID:  "cust-siti",
		EntryType:   domain.LedgerEntryDebit,
		AmountCents: 3000,
	}); err != nil {
		t.Fatalf("debit failed: %v", err)
	}

	detail, err := svc.PostLedgerEntry(adminCtx(), domain.LedgerPostRequest{
		CustomerID:  "cust-siti",
		EntryType:   domain.LedgerEntryRepayment,
		AmountCents: 5000,
	})
	if err != nil {
		t.Fatalf("repayment failed: %v", err)
	}
	if detail.Customer.CreditBalanceCents != 0 {
		t.Fatalf("expected balance floored at 0, got %d", detail.Customer.CreditBalanceCents)
	}

	// The ledger itself keeps the full signed history.
	entries, err := svc.ListLedgerEntries(context.Background(), "cust-siti", 10)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected two entries, got %d", len(entries))
	}
	if detail.DebtCents != 2000 {
		t.Fatalf("expected derived debt view 2000, got %d", detail.DebtCents)
	}
}

func TestLedgerPostRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.PostLedgerEntry(cashierCtx(), domain.LedgerPostRequest{
		CustomerID:  "cust-siti",
		EntryType:   domain.LedgerEntryDebit,
		AmountCents: 1000,
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for cashier, got %v", err)
	}
}

func TestProductMutationsRequireAdmin(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateProduct(cashierCtx(), domain.ProductCreateRequest{
		SKU:        "SKU-NOPE",
		Name:       "Nope",
		PriceCents: 1000,
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for cashier, got %v", err)
	}
}

func TestCartAddRefusesInactiveProduct(t *testing.T) {
	svc, _ := newTestService(t)
	product := seedProduct(t, svc, "SKU-INACTIVE", 1000, 5)

	inactive := false
	if _, err := svc.UpdateProduct(adminCtx(), product.ID, domain.ProductUpdateRequest{Active: &inactive}); err != nil {
		t.Fatalf("deactivate product: %v", err)
	}

	if _, err := svc.CartAdd(context.Background(), "t1", product.ID); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for inactive product, got %v", err)
	}
}

func TestDailySalesReportAggregates(t *testing.T) {
	svc, _ := newTestService(t)
	product := seedProduct(t, svc, "SKU-REPORT", 5000, 20)
	fillCart(t, svc, "t1", product.ID, 2)

	if _, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		TerminalID:    "t1",
		PaymentMethod: domain.PaymentCash,
		TenderedCents: 10000,
	}); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	now := time.Now().UTC()
	points, err := svc.DailySalesReport(adminCtx(), now.Add(-24*time.Hour), now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("daily report: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected one report point, got %d", len(points))
	}
	if points[0].RevenueCents != 10000 {
		t.Fatalf("expected revenue 10000, got %d", points[0].RevenueCents)
	}
	if points[0].Transactions != 1 {
		t.Fatalf("expected one transaction, got %d", points[0].Transactions)
	}
}
