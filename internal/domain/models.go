package domain

import "time"

type Product struct {
	ID         string    `json:"id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	CategoryID string    `json:"category_id,omitempty"`
	BrandID    string    `json:"brand_id,omitempty"`
	PriceCents int64     `json:"price_cents"`
	CostCents  int64     `json:"cost_cents"`
	StockQty   int       `json:"stock_qty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ProductCreateRequest struct {
	SKU          string `json:"sku" validate:"required"`
	Name         string `json:"name" validate:"required"`
	CategoryID   string `json:"category_id,omitempty"`
	BrandID      string `json:"brand_id,omitempty"`
	PriceCents   int64  `json:"price_cents" validate:"gt=0"`
	CostCents    int64  `json:"cost_cents" validate:"gte=0"`
	InitialStock int    `json:"initial_stock" validate:"gte=0"`
}

type ProductUpdateRequest struct {
	Name       *string `json:"name,omitempty"`
	CategoryID *string `json:"category_id,omitempty"`
	BrandID    *string `json:"brand_id,omitempty"`
	PriceCents *int64  `json:"price_cents,omitempty"`
	CostCents  *int64  `json:"cost_cents,omitempty"`
	Active     *bool   `json:"active,omitempty"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Brand struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Attribute struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

type CatalogEntryCreateRequest struct {
	Name  string `json:"name" validate:"required"`
	Value string `json:"value,omitempty"`
}

type Customer struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Phone              string    `json:"phone,omitempty"`
	CreditBalanceCents int64     `json:"credit_balance_cents"`
	CreatedAt          time.Time `json:"created_at"`
}

// CustomerDetail augments the stored balance with the two ledger-derived
// views so callers never have to guess the polarity of the scalar.
type CustomerDetail struct {
	Customer         Customer            `json:"customer"`
	StoreCreditCents int64               `json:"store_credit_cents"`
	DebtCents        int64               `json:"debt_cents"`
	RecentEntries    []CreditLedgerEntry `json:"recent_entries"`
}

type CustomerCreateRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone,omitempty"`
}

type CustomerUpdateRequest struct {
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

type Supplier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type SupplierCreateRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone,omitempty"`
}

// CartLine captures the product snapshot for one cart entry. UnitPriceCents
// is frozen at add time, not a live lookup; StockAtFetch is the stock seen on
// the most recent add and caps how far AddItem may increment the quantity.
type CartLine struct {
	ProductID      string `json:"product_id"`
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Qty            int    `json:"qty"`
	LineTotalCents int64  `json:"line_total_cents"`
	StockAtFetch   int    `json:"stock_at_fetch"`
}

type CartView struct {
	TerminalID string     `json:"terminal_id"`
	Lines      []CartLine `json:"lines"`
	TotalCents int64      `json:"total_cents"`
}

type Sale struct {
	ID              string     `json:"id"`
	Number          string     `json:"number"`
	CustomerID      string     `json:"customer_id,omitempty"`
	CashierUsername string     `json:"cashier_username"`
	TotalCents      int64      `json:"total_cents"`
	TenderedCents   int64      `json:"tendered_cents"`
	ChangeCents     int64      `json:"change_cents"`
	PaymentMethod   string     `json:"payment_method"`
	WalletPhone     string     `json:"wallet_phone,omitempty"`
	IdempotencyKey  string     `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	Lines           []SaleLine `json:"lines"`
}

type SaleLine struct {
	ID             string `json:"id"`
	SaleID         string `json:"sale_id"`
	ProductID      string `json:"product_id"`
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	LineTotalCents int64  `json:"line_total_cents"`
}

// CreditLedgerEntry is append-only. AmountCents carries the sign: positive
// grows the store credit owed to the customer, negative shrinks it.
type CreditLedgerEntry struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customer_id"`
	AmountCents int64     `json:"amount_cents"`
	EntryType   string    `json:"entry_type"`
	Description string    `json:"description,omitempty"`
	SaleID      string    `json:"sale_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type LedgerPostRequest struct {
	CustomerID  string `json:"customer_id" validate:"required"`
	EntryType   string `json:"entry_type" validate:"required,oneof=repayment debit"`
	AmountCents int64  `json:"amount_cents" validate:"gt=0"`
	Description string `json:"description,omitempty"`
}

type StockAdjustment struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	DeltaQty      int       `json:"delta_qty"`
	Reason        string    `json:"reason"`
	ActorUsername string    `json:"actor_username"`
	CreatedAt     time.Time `json:"created_at"`
}

type StockAdjustRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	DeltaQty  int    `json:"delta_qty" validate:"ne=0"`
	Reason    string `json:"reason" validate:"required"`
}

type CheckoutRequest struct {
	TerminalID     string `json:"terminal_id" validate:"required"`
	CustomerID     string `json:"customer_id,omitempty"`
	PaymentMethod  string `json:"payment_method" validate:"required,oneof=cash wallet store_credit"`
	WalletPhone    string `json:"wallet_phone,omitempty"`
	TenderedCents  int64  `json:"tendered_cents" validate:"gte=0"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type CheckoutResponse struct {
	Sale        Sale   `json:"sale"`
	ReceiptHTML string `json:"receipt_html"`
	Duplicate   bool   `json:"duplicate"`
}

type ReceiptResponse struct {
	SaleID       string `json:"sale_id"`
	HTML         string `json:"html"`
	PreviewText  string `json:"preview_text"`
	EscposBase64 string `json:"escpos_base64"`
	FileName     string `json:"file_name"`
}

// CompanyProfile feeds the receipt header. Only Name is required; empty
// fields are omitted from the rendered document.
type CompanyProfile struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	TaxID   string `json:"tax_id,omitempty"`
	Website string `json:"website,omitempty"`
}

type DailySalesPoint struct {
	Date         string `json:"date"`
	Transactions int64  `json:"transactions"`
	RevenueCents int64  `json:"revenue_cents"`
	ProfitCents  int64  `json:"profit_cents"`
}

type TopProduct struct {
	ProductID    string `json:"product_id"`
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	QtySold      int64  `json:"qty_sold"`
	RevenueCents int64  `json:"revenue_cents"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username" validate:"required,min=4"`
	Password string `json:"password" validate:"required,min=6"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

const (
	PaymentCash        = "cash"
	PaymentWallet      = "wallet"
	PaymentStoreCredit = "store_credit"
)

const (
	// LedgerEntryCredit records sale change kept as store credit (positive).
	LedgerEntryCredit = "credit"
	// LedgerEntryDebit records a manual balance increase (positive).
	LedgerEntryDebit = "debit"
	// LedgerEntryRepayment records a manual balance decrease (negative).
	LedgerEntryRepayment = "repayment"
	// LedgerEntryRedemption records store credit spent at checkout (negative).
	LedgerEntryRedemption = "redemption"
)
