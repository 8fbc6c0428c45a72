package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
)

func saleWith(lines ...domain.SaleLine) domain.Sale {
	return domain.Sale{
		ID:              "sale-1",
		Number:          "INV-TEST-1",
		CashierUsername: "kasir",
		PaymentMethod:   domain.PaymentCash,
		IdempotencyKey:  "idem-1",
		CreatedAt:       time.Now().UTC(),
		Lines:           lines,
	}
}

func TestCreateSaleDecrementsStock(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	sale := saleWith(domain.SaleLine{ID: "l1", SaleID: "sale-1", ProductID: "prod-rice", SKU: "SKU-RICE-5KG", Qty: 3, UnitPriceCents: 300000, LineTotalCents: 900000})
	sale.TotalCents = 900000
	sale.TenderedCents = 900000

	if _, err := s.CreateSale(ctx, sale, nil); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	product, err := s.GetProduct(ctx, "prod-rice")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.StockQty != 37 {
		t.Fatalf("expected stock 37, got %d", product.StockQty)
	}
}

func TestCreateSaleInsufficientStockLeavesEverythingUntouched(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	sale := saleWith(
		domain.SaleLine{ID: "l1", SaleID: "sale-1", ProductID: "prod-rice", Qty: 1, UnitPriceCents: 300000, LineTotalCents: 300000},
		domain.SaleLine{ID: "l2", SaleID: "sale-1", ProductID: "prod-egg", Qty: 11, UnitPriceCents: 250000, LineTotalCents: 2750000},
	)

	_, err := s.CreateSale(ctx, sale, nil)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	rice, _ := s.GetProduct(ctx, "prod-rice")
	if rice.StockQty != 40 {
		t.Fatalf("expected rice stock untouched at 40, got %d", rice.StockQty)
	}
	if _, err := s.GetSale(ctx, "sale-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no sale persisted, got %v", err)
	}
}

func TestCreateSaleIdempotencyReturnsExisting(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	sale := saleWith(domain.SaleLine{ID: "l1", SaleID: "sale-1", ProductID: "prod-oil", Qty: 2, UnitPriceCents: 400000, LineTotalCents: 800000})

	first, err := s.CreateSale(ctx, sale, nil)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	retry := sale
	retry.ID = "sale-2"
	second, err := s.CreateSale(ctx, retry, nil)
	if err != nil {
		t.Fatalf("retry create: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected retry to return existing sale %s, got %s", first.ID, second.ID)
	}

	oil, _ := s.GetProduct(ctx, "prod-oil")
	if oil.StockQty != 23 {
		t.Fatalf("expected one decrement, got stock %d", oil.StockQty)
	}
}

func TestCreateSaleLedgerInsufficientCreditAborts(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	sale := saleWith(domain.SaleLine{ID: "l1", SaleID: "sale-1", ProductID: "prod-oil", Qty: 1, UnitPriceCents: 400000, LineTotalCents: 400000})
	ledger := &domain.CreditLedgerEntry{
		ID:          "ledger-1",
		CustomerID:  "cust-siti",
		AmountCents: -400000,
		EntryType:   domain.LedgerEntryRedemption,
		SaleID:      "sale-1",
		CreatedAt:   time.Now().UTC(),
	}

	_, err := s.CreateSale(ctx, sale, ledger)
	if !errors.Is(err, store.ErrInsufficientCredit) {
		t.Fatalf("expected insufficient credit, got %v", err)
	}

	oil, _ := s.GetProduct(ctx, "prod-oil")
	if oil.StockQty != 25 {
		t.Fatalf("expected stock untouched at 25, got %d", oil.StockQty)
	}
	net, _ := s.LedgerNet(ctx, "cust-siti")
	if net != 0 {
		t.Fatalf("expected empty ledger, got net %d", net)
	}
}

func TestPostLedgerEntryFloorsBalanceAtZero(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if _, err := s.PostLedgerEntry(ctx, domain.CreditLedgerEntry{
		ID: "ledger-1", CustomerID: "cust-siti", AmountCents: 3000,
		EntryType: domain.LedgerEntryDebit, CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("debit: %v", err)
	}

	customer, err := s.PostLedgerEntry(ctx, domain.CreditLedgerEntry{
		ID: "ledger-2", CustomerID: "cust-siti", AmountCents: -10000,
		EntryType: domain.LedgerEntryRepayment, CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("repayment: %v", err)
	}
	if customer.CreditBalanceCents != 0 {
		t.Fatalf("expected balance floored at 0, got %d", customer.CreditBalanceCents)
	}

	net, _ := s.LedgerNet(ctx, "cust-siti")
	if net != -7000 {
		t.Fatalf("expected signed net -7000, got %d", net)
	}
}

func TestAdjustStockClampsAtZero(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	product, err := s.AdjustStock(ctx, domain.StockAdjustment{
		ID: "adj-1", ProductID: "prod-egg", DeltaQty: -999,
		Reason: "count correction", ActorUsername: "admin", CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if product.StockQty != 0 {
		t.Fatalf("expected stock clamped at 0, got %d", product.StockQty)
	}
}
