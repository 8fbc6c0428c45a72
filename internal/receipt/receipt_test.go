package receipt

import (
	"strings"
	"testing"
	"time"

	"warungpos/backend/internal/domain"
)

func sampleData() Data {
	sale := domain.Sale{
		ID:            "sale-1",
		Number:        "INV-20250314-092653-a1b2",
		TotalCents:    1000000,
		TenderedCents: 1200000,
		ChangeCents:   200000,
		PaymentMethod: domain.PaymentCash,
		CreatedAt:     time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
	}
	lines := []domain.SaleLine{
		{SaleID: "sale-1", ProductID: "p1", SKU: "SKU-A", Name: "Rice 5kg", Qty: 2, UnitPriceCents: 300000, LineTotalCents: 600000},
		{SaleID: "sale-1", ProductID: "p2", SKU: "SKU-B", Name: "Cooking Oil", Qty: 1, UnitPriceCents: 400000, LineTotalCents: 400000},
	}
	return Data{
		Company: domain.CompanyProfile{Name: "Warung Makmur"},
		Sale:    sale,
		Lines:   lines,
	}
}

func TestRenderHTMLOmitsCustomerRowWhenAbsent(t *testing.T) {
	html, err := RenderHTML(sampleData())
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if strings.Contains(html, "Customer") {
		t.Fatalf("expected no customer row for anonymous sale")
	}
}

func TestRenderHTMLRendersCustomerNameOnce(t *testing.T) {
	d := sampleData()
	d.CustomerName = "Ibu Siti"
	html, err := RenderHTML(d)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if got := strings.Count(html, "Ibu Siti"); got != 1 {
		t.Fatalf("expected customer name exactly once, got %d", got)
	}
}

func TestRenderHTMLOmitsEmptyCompanyFields(t *testing.T) {
	html, err := RenderHTML(sampleData())
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	for _, label := range []string{"Tax ID", "Wallet"} {
		if strings.Contains(html, label) {
			t.Fatalf("expected %q row to be omitted", label)
		}
	}
}

func TestRenderHTMLIncludesConfiguredCompanyFields(t *testing.T) {
	d := sampleData()
	d.Company.Address = "Jl. Merdeka 10"
	d.Company.TaxID = "01.234.567.8-901.000"
	d.Company.Website = "warungmakmur.example"
	html, err := RenderHTML(d)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	for _, want := range []string{"Jl. Merdeka 10", "Tax ID: 01.234.567.8-901.000", "warungmakmur.example"} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in markup", want)
		}
	}
}

func TestRenderHTMLEscapesUserContent(t *testing.T) {
	d := sampleData()
	d.Lines[0].Name = `<script>alert("x")</script>`
	html, err := RenderHTML(d)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if strings.Contains(html, "<script>alert") {
		t.Fatalf("expected product name to be escaped")
	}
}

func TestRenderTextContainsItemAndPaymentBlocks(t *testing.T) {
	d := sampleData()
	d.Sale.PaymentMethod = domain.PaymentWallet
	d.Sale.WalletPhone = "0812-000-111"
	lines := RenderText(d)
	text := strings.Join(lines, "\n")

	for _, want := range []string{
		"Rice 5kg x2",
		"Total    : 10,000.00",
		"Wallet   : 0812-000-111",
		"Change   : 2,000.00",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in preview text:\n%s", want, text)
		}
	}
}

func TestRenderEscposBase64NotEmpty(t *testing.T) {
	if RenderEscposBase64(sampleData()) == "" {
		t.Fatalf("expected non-empty escpos payload")
	}
}

func TestFormatCents(t *testing.T) {
	cases := map[int64]string{
		0:        "0.00",
		5:        "0.05",
		1250:     "12.50",
		100000:   "1,000.00",
		1234550:  "12,345.50",
		-1234550: "-12,345.50",
	}
	for in, want := range cases {
		if got := FormatCents(in); got != want {
			t.Fatalf("FormatCents(%d) = %q, want %q", in, got, want)
		}
	}
}
