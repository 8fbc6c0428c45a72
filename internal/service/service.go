// Package service implements the business operations on top of the injected
// repository: catalog and customer management, the checkout flow, ledger
// posting, stock adjustments, and reporting.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"warungpos/backend/internal/cache"
	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/pos"
	"warungpos/backend/internal/receipt"
	"warungpos/backend/internal/store"
	"warungpos/backend/internal/xid"
)

// ErrForbidden marks an operation the actor's role does not permit.
var ErrForbidden = errors.New("admin role required")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo     store.Repository
	products cache.ProductCache
	cacheTTL time.Duration
	logger   *slog.Logger
	carts    *pos.Registry
	company  domain.CompanyProfile
}

func New(repo store.Repository, products cache.ProductCache, logger *slog.Logger, company domain.CompanyProfile, cacheTTL time.Duration) *Service {
	if products == nil {
		products = cache.NoopProductCache{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &Service{
		repo:     repo,
		products: products,
		cacheTTL: cacheTTL,
		logger:   logger,
		carts:    pos.NewRegistry(),
		company:  company,
	}
}

func requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Actor{}, ErrForbidden
	}
	return actor, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if cached, ok, err := s.products.Get(ctx); err == nil && ok {
		return cached, nil
	} else if err != nil {
		s.logger.Warn("product cache read failed", "error", err)
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.products.Set(ctx, products, s.cacheTTL); err != nil {
		s.logger.Warn("product cache write failed", "error", err)
	}
	return products, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return nil, store.ErrInvalidInput
	}
	return s.repo.GetProductBySKU(ctx, sku)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	if req.SKU == "" || req.Name == "" || req.PriceCents < 1 || req.CostCents < 0 || req.InitialStock < 0 {
		return nil, store.ErrInvalidInput
	}

	now := time.Now().UTC()
	created, err := s.repo.CreateProduct(ctx, domain.Product{
		ID:         xid.New("prod"),
		SKU:        req.SKU,
		Name:       req.Name,
		CategoryID: req.CategoryID,
		BrandID:    req.BrandID,
		PriceCents: req.PriceCents,
		CostCents:  req.CostCents,
		StockQty:   req.InitialStock,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return nil, err
	}

	s.invalidateProducts(ctx)
	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("sku=%s,price=%d,stock=%d", created.SKU, created.PriceCents, created.StockQty))
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.CategoryID != nil {
		updated.CategoryID = *req.CategoryID
	}
	if req.BrandID != nil {
		updated.BrandID = *req.BrandID
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 1 {
			return nil, store.ErrInvalidInput
		}
		updated.PriceCents = *req.PriceCents
	}
	if req.CostCents != nil {
		if *req.CostCents < 0 {
			return nil, store.ErrInvalidInput
		}
		updated.CostCents = *req.CostCents
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return nil, err
	}

	s.invalidateProducts(ctx)
	s.logAudit(ctx, "product_update", "product", saved.ID, fmt.Sprintf("active=%t,price=%d", saved.Active, saved.PriceCents))
	return saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.invalidateProducts(ctx)
	s.logAudit(ctx, "product_delete", "product", id, "")
	return nil
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CatalogEntryCreateRequest) (*domain.Category, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, store.ErrInvalidInput
	}
	created, err := s.repo.CreateCategory(ctx, domain.Category{ID: xid.New("cat"), Name: name})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "category_create", "category", created.ID, name)
	return created, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "category_delete", "category", id, "")
	return nil
}

func (s *Service) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	return s.repo.ListBrands(ctx)
}

func (s *Service) CreateBrand(ctx context.Context, req domain.CatalogEntryCreateRequest) (*domain.Brand, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, store.ErrInvalidInput
	}
	created, err := s.repo.CreateBrand(ctx, domain.Brand{ID: xid.New("brand"), Name: name})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "brand_create", "brand", created.ID, name)
	return created, nil
}

func (s *Service) DeleteBrand(ctx context.Context, id string) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteBrand(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "brand_delete", "brand", id, "")
	return nil
}

func (s *Service) ListAttributes(ctx context.Context) ([]domain.Attribute, error) {
	return s.repo.ListAttributes(ctx)
}

func (s *Service) CreateAttribute(ctx context.Context, req domain.CatalogEntryCreateRequest) (*domain.Attribute, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, store.ErrInvalidInput
	}
	created, err := s.repo.CreateAttribute(ctx, domain.Attribute{ID: xid.New("attr"), Name: name, Value: strings.TrimSpace(req.Value)})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "attribute_create", "attribute", created.ID, name)
	return created, nil
}

func (s *Service) DeleteAttribute(ctx context.Context, id string) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteAttribute(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "attribute_delete", "attribute", id, "")
	return nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

// GetCustomerDetail returns the customer with the two ledger-derived views.
// A positive ledger net is store credit owed to the customer, a negative net
// is debt owed by the customer.
func (s *Service) GetCustomerDetail(ctx context.Context, id string) (*domain.CustomerDetail, error) {
	customer, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	net, err := s.repo.LedgerNet(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListLedgerEntries(ctx, id, 20)
	if err != nil {
		return nil, err
	}

	detail := &domain.CustomerDetail{Customer: *customer, RecentEntries: entries}
	if net >= 0 {
		detail.StoreCreditCents = net
	} else {
		detail.DebtCents = -net
	}
	return detail, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (*domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, store.ErrInvalidInput
	}
	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		ID:        xid.New("cust"),
		Name:      name,
		Phone:     strings.TrimSpace(req.Phone),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "customer_create", "customer", created.ID, name)
	return created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (*domain.Customer, error) {
	existing, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}

	saved, err := s.repo.UpdateCustomer(ctx, updated)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "customer_update", "customer", saved.ID, saved.Name)
	return saved, nil
}

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierCreateRequest) (*domain.Supplier, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, store.ErrInvalidInput
	}
	created, err := s.repo.CreateSupplier(ctx, domain.Supplier{
		ID:        xid.New("sup"),
		Name:      name,
		Phone:     strings.TrimSpace(req.Phone),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "supplier_create", "supplier", created.ID, name)
	return created, nil
}

func (s *Service) DeleteSupplier(ctx context.Context, id string) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteSupplier(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "supplier_delete", "supplier", id, "")
	return nil
}

// CartAdd fetches the product and adds one unit to the terminal's cart. The
// price and stock snapshot are captured now; later price changes do not move
// lines already in the cart.
func (s *Service) CartAdd(ctx context.Context, terminalID string, productID string) (domain.CartView, error) {
	if terminalID == "" || productID == "" {
		return domain.CartView{}, store.ErrInvalidInput
	}

	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return domain.CartView{}, err
	}
	if !product.Active {
		return domain.CartView{}, store.ErrInvalidInput
	}

	var view domain.CartView
	s.carts.With(terminalID, func(c *pos.Cart) {
		c.AddItem(*product)
		view = snapshotCart(terminalID, c)
	})
	return view, nil
}

func (s *Service) CartSetQuantity(ctx context.Context, terminalID string, productID string, qty int) (domain.CartView, error) {
	if terminalID == "" || productID == "" || qty < 0 {
		return domain.CartView{}, store.ErrInvalidInput
	}

	var view domain.CartView
	s.carts.With(terminalID, func(c *pos.Cart) {
		c.SetQuantity(productID, qty)
		view = snapshotCart(terminalID, c)
	})
	return view, nil
}

func (s *Service) CartRemove(_ context.Context, terminalID string, productID string) (domain.CartView, error) {
	if terminalID == "" || productID == "" {
		return domain.CartView{}, store.ErrInvalidInput
	}

	var view domain.CartView
	s.carts.With(terminalID, func(c *pos.Cart) {
		c.RemoveItem(productID)
		view = snapshotCart(terminalID, c)
	})
	return view, nil
}

func (s *Service) CartView(_ context.Context, terminalID string) (domain.CartView, error) {
	if terminalID == "" {
		return domain.CartView{}, store.ErrInvalidInput
	}

	var view domain.CartView
	s.carts.With(terminalID, func(c *pos.Cart) {
		view = snapshotCart(terminalID, c)
	})
	return view, nil
}

func (s *Service) CartClear(_ context.Context, terminalID string) error {
	if terminalID == "" {
		return store.ErrInvalidInput
	}
	s.carts.With(terminalID, func(c *pos.Cart) {
		c.Clear()
	})
	return nil
}

func snapshotCart(terminalID string, c *pos.Cart) domain.CartView {
	return domain.CartView{
		TerminalID: terminalID,
		Lines:      c.Lines(),
		TotalCents: c.TotalCents(),
	}
}

// Checkout converts the terminal's cart plus payment input into a persisted
// sale. All validation happens before the repository is touched; the sale
// header, lines, stock decrements, and optional ledger posting then land in
// one atomic CreateSale call. The cart is cleared only after the sale is
// durable.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || (actor.Role != domain.RoleAdmin && actor.Role != domain.RoleCashier) {
		return domain.CheckoutResponse{}, ErrForbidden
	}

	if req.TerminalID == "" {
		return domain.CheckoutResponse{}, store.ErrInvalidInput
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = domain.PaymentCash
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}

	var (
		lines      []domain.CartLine
		totalCents int64
	)
	s.carts.With(req.TerminalID, func(c *pos.Cart) {
		lines = c.Lines()
		totalCents = c.TotalCents()
	})
	if len(lines) == 0 {
		return domain.CheckoutResponse{}, fmt.Errorf("%w: cart is empty", store.ErrInvalidInput)
	}

	var customer *domain.Customer
	if req.CustomerID != "" {
		found, err := s.repo.GetCustomer(ctx, req.CustomerID)
		if err != nil {
			return domain.CheckoutResponse{}, err
		}
		customer = found
	}

	switch req.PaymentMethod {
	case domain.PaymentCash:
	case domain.PaymentWallet:
		if strings.TrimSpace(req.WalletPhone) == "" {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: wallet phone required", store.ErrInvalidInput)
		}
	case domain.PaymentStoreCredit:
		if customer == nil {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: store-credit payment requires a customer", store.ErrInvalidInput)
		}
		if customer.CreditBalanceCents < totalCents {
			return domain.CheckoutResponse{}, store.ErrInsufficientCredit
		}
		// The full total is drawn from the balance.
		req.TenderedCents = totalCents
	default:
		return domain.CheckoutResponse{}, store.ErrInvalidInput
	}

	if req.TenderedCents < totalCents && actor.Role != domain.RoleAdmin {
		return domain.CheckoutResponse{}, fmt.Errorf("%w: tendered amount below total", store.ErrInvalidInput)
	}

	if existing, err := s.repo.FindSaleByIdempotency(ctx, req.IdempotencyKey); err == nil {
		html, renderErr := s.renderSaleReceipt(ctx, existing)
		if renderErr != nil {
			return domain.CheckoutResponse{}, renderErr
		}
		return domain.CheckoutResponse{Sale: *existing, ReceiptHTML: html, Duplicate: true}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.CheckoutResponse{}, err
	}

	now := time.Now().UTC()
	changeCents := req.TenderedCents - totalCents

	sale := domain.Sale{
		ID:              xid.New("sale"),
		Number:          pos.SaleNumber(now),
		CustomerID:      req.CustomerID,
		CashierUsername: actor.Username,
		TotalCents:      totalCents,
		TenderedCents:   req.TenderedCents,
		ChangeCents:     changeCents,
		PaymentMethod:   req.PaymentMethod,
		WalletPhone:     strings.TrimSpace(req.WalletPhone),
		IdempotencyKey:  req.IdempotencyKey,
		CreatedAt:       now,
	}
	for _, line := range lines {
		sale.Lines = append(sale.Lines, domain.SaleLine{
			ID:             xid.New("line"),
			SaleID:         sale.ID,
			ProductID:      line.ProductID,
			SKU:            line.SKU,
			Name:           line.Name,
			Qty:            line.Qty,
			UnitPriceCents: line.UnitPriceCents,
			LineTotalCents: line.LineTotalCents,
		})
	}

	var ledger *domain.CreditLedgerEntry
	switch {
	case req.PaymentMethod == domain.PaymentStoreCredit:
		ledger = &domain.CreditLedgerEntry{
			ID:          xid.New("ledger"),
			CustomerID:  customer.ID,
			AmountCents: -totalCents,
			EntryType:   domain.LedgerEntryRedemption,
			Description: fmt.Sprintf("store credit spent on sale %s", sale.Number),
			SaleID:      sale.ID,
			CreatedAt:   now,
		}
	case changeCents > 0 && customer != nil:
		// Change for a known customer is banked as store credit instead of
		// handed back. Anonymous overpayment is returned in cash and never
		// tracked.
		ledger = &domain.CreditLedgerEntry{
			ID:          xid.New("ledger"),
			CustomerID:  customer.ID,
			AmountCents: changeCents,
			EntryType:   domain.LedgerEntryCredit,
			Description: fmt.Sprintf("change from sale %s", sale.Number),
			SaleID:      sale.ID,
			CreatedAt:   now,
		}
	}

	created, err := s.repo.CreateSale(ctx, sale, ledger)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	// Receipt from the pre-commit snapshot, not a re-fetch.
	data := receipt.Data{Company: s.company, Sale: *created, Lines: created.Lines}
	if customer != nil {
		data.CustomerName = customer.Name
		data.CustomerPhone = customer.Phone
	}
	html, err := receipt.RenderHTML(data)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	s.carts.With(req.TerminalID, func(c *pos.Cart) {
		c.Clear()
	})
	s.invalidateProducts(ctx)

	s.logAudit(ctx, "checkout", "sale", created.ID, fmt.Sprintf("number=%s,total=%d,payment=%s,change=%d", created.Number, created.TotalCents, created.PaymentMethod, created.ChangeCents))

	return domain.CheckoutResponse{Sale: *created, ReceiptHTML: html}, nil
}

func (s *Service) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, limit)
}

func (s *Service) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	return s.repo.GetSale(ctx, id)
}

// SaleReceipt re-renders the printable documents for a stored sale.
func (s *Service) SaleReceipt(ctx context.Context, saleID string) (domain.ReceiptResponse, error) {
	sale, err := s.repo.GetSale(ctx, saleID)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}

	data := receipt.Data{Company: s.company, Sale: *sale, Lines: sale.Lines}
	if sale.CustomerID != "" {
		if customer, err := s.repo.GetCustomer(ctx, sale.CustomerID); err == nil {
			data.CustomerName = customer.Name
			data.CustomerPhone = customer.Phone
		}
	}

	html, err := receipt.RenderHTML(data)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}

	return domain.ReceiptResponse{
		SaleID:       sale.ID,
		HTML:         html,
		PreviewText:  strings.Join(receipt.RenderText(data), "\n"),
		EscposBase64: receipt.RenderEscposBase64(data),
		FileName:     fmt.Sprintf("receipt-%s.html", sale.Number),
	}, nil
}

func (s *Service) renderSaleReceipt(ctx context.Context, sale *domain.Sale) (string, error) {
	data := receipt.Data{Company: s.company, Sale: *sale, Lines: sale.Lines}
	if sale.CustomerID != "" {
		if customer, err := s.repo.GetCustomer(ctx, sale.CustomerID); err == nil {
			data.CustomerName = customer.Name
			data.CustomerPhone = customer.Phone
		}
	}
	return receipt.RenderHTML(data)
}

// PostLedgerEntry records a manual repayment or debit from the credit
// management screen. Repayment shrinks the balance, debit grows it; the
// stored balance floors at zero either way.
func (s *Service) PostLedgerEntry(ctx context.Context, req domain.LedgerPostRequest) (*domain.CustomerDetail, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if req.AmountCents < 1 {
		return nil, store.ErrInvalidInput
	}

	amount := req.AmountCents
	switch req.EntryType {
	case domain.LedgerEntryDebit:
	case domain.LedgerEntryRepayment:
		amount = -amount
	default:
		return nil, store.ErrInvalidInput
	}

	entry := domain.CreditLedgerEntry{
		ID:          xid.New("ledger"),
		CustomerID:  req.CustomerID,
		AmountCents: amount,
		EntryType:   req.EntryType,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.repo.PostLedgerEntry(ctx, entry); err != nil {
		return nil, err
	}

	s.logAudit(ctx, "ledger_post", "customer", req.CustomerID, fmt.Sprintf("type=%s,amount=%d", req.EntryType, req.AmountCents))
	return s.GetCustomerDetail(ctx, req.CustomerID)
}

func (s *Service) ListLedgerEntries(ctx context.Context, customerID string, limit int) ([]domain.CreditLedgerEntry, error) {
	if customerID == "" {
		return nil, store.ErrInvalidInput
	}
	return s.repo.ListLedgerEntries(ctx, customerID, limit)
}

func (s *Service) AdjustStock(ctx context.Context, req domain.StockAdjustRequest) (*domain.Product, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if req.DeltaQty == 0 || strings.TrimSpace(req.Reason) == "" {
		return nil, store.ErrInvalidInput
	}

	adjusted, err := s.repo.AdjustStock(ctx, domain.StockAdjustment{
		ID:            xid.New("adj"),
		ProductID:     req.ProductID,
		DeltaQty:      req.DeltaQty,
		Reason:        strings.TrimSpace(req.Reason),
		ActorUsername: actor.Username,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	s.invalidateProducts(ctx)
	s.logAudit(ctx, "stock_adjust", "product", req.ProductID, fmt.Sprintf("delta=%d,reason=%s", req.DeltaQty, req.Reason))
	return adjusted, nil
}

func (s *Service) ListStockAdjustments(ctx context.Context, productID string, limit int) ([]domain.StockAdjustment, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListStockAdjustments(ctx, productID, limit)
}

func (s *Service) DailySalesReport(ctx context.Context, from time.Time, to time.Time) ([]domain.DailySalesPoint, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if !to.After(from) {
		return nil, store.ErrInvalidInput
	}
	return s.repo.DailySalesReport(ctx, from, to)
}

func (s *Service) TopProducts(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.TopProduct, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if !to.After(from) {
		return nil, store.ErrInvalidInput
	}
	return s.repo.TopProducts(ctx, from, to, limit)
}

func (s *Service) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) invalidateProducts(ctx context.Context) {
	if err := s.products.Invalidate(ctx); err != nil {
		s.logger.Warn("product cache invalidate failed", "error", err)
	}
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("audit log write failed", "action", action, "entity", entityType+"/"+entityID, "error", err)
	}
}
