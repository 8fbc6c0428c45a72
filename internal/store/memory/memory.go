// Package memory implements store.Repository entirely in process. It mirrors
// the postgres implementation's semantics, including the all-or-nothing
// CreateSale, so the service layer can be exercised without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
	"warungpos/backend/internal/xid"
)

type Store struct {
	mu sync.Mutex

	products   map[string]domain.Product
	categories map[string]domain.Category
	brands     map[string]domain.Brand
	attributes map[string]domain.Attribute
	customers  map[string]domain.Customer
	suppliers  map[string]domain.Supplier

	sales        map[string]domain.Sale
	salesByIdem  map[string]string
	saleOrder    []string
	ledger       []domain.CreditLedgerEntry
	adjustments  []domain.StockAdjustment
	auditLogs    []domain.AuditLog
	users        map[string]domain.UserAccount
	productOrder []string
}

func New() *Store {
	return &Store{
		products:    make(map[string]domain.Product),
		categories:  make(map[string]domain.Category),
		brands:      make(map[string]domain.Brand),
		attributes:  make(map[string]domain.Attribute),
		customers:   make(map[string]domain.Customer),
		suppliers:   make(map[string]domain.Supplier),
		sales:       make(map[string]domain.Sale),
		salesByIdem: make(map[string]string),
		users:       make(map[string]domain.UserAccount),
	}
}

// NewSeeded returns a store pre-populated with a small catalog, a customer,
// and an admin account, enough for local development and the service tests.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	category := domain.Category{ID: "cat-groceries", Name: "Groceries"}
	brand := domain.Brand{ID: "brand-house", Name: "House Brand"}
	s.categories[category.ID] = category
	s.brands[brand.ID] = brand

	seedProducts := []domain.Product{
		{ID: "prod-rice", SKU: "SKU-RICE-5KG", Name: "Rice 5kg", CategoryID: category.ID, BrandID: brand.ID, PriceCents: 300000, CostCents: 250000, StockQty: 40, Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: "prod-oil", SKU: "SKU-OIL-1L", Name: "Cooking Oil 1L", CategoryID: category.ID, BrandID: brand.ID, PriceCents: 400000, CostCents: 330000, StockQty: 25, Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: "prod-egg", SKU: "SKU-EGG-TRAY", Name: "Egg Tray", CategoryID: category.ID, BrandID: brand.ID, PriceCents: 250000, CostCents: 210000, StockQty: 10, Active: true, CreatedAt: now, UpdatedAt: now},
	}
	for _, p := range seedProducts {
		s.products[p.ID] = p
		s.productOrder = append(s.productOrder, p.ID)
	}

	s.customers["cust-siti"] = domain.Customer{ID: "cust-siti", Name: "Ibu Siti", Phone: "0812-000-111", CreatedAt: now}

	s.users["admin"] = domain.UserAccount{Username: "admin", Password: "admin123", Role: domain.RoleAdmin, Active: true, CreatedAt: now}
	s.users["kasir"] = domain.UserAccount{Username: "kasir", Password: "kasir123", Role: domain.RoleCashier, Active: true, CreatedAt: now}

	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Product, 0, len(s.productOrder))
	for _, id := range s.productOrder {
		p, ok := s.products[id]
		if !ok || !p.Active {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := p
	return &copied, nil
}

func (s *Store) GetProductBySKU(_ context.Context, sku string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.products {
		if p.SKU == sku {
			copied := p
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.products {
		if existing.SKU == product.SKU {
			return nil, fmt.Errorf("%w: sku %s already exists", store.ErrConflict, product.SKU)
		}
	}
	s.products[product.ID] = product
	s.productOrder = append(s.productOrder, product.ID)
	copied := product
	return &copied, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[product.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.products[product.ID] = product
	copied := product
	return &copied, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.products, id)
	for i, pid := range s.productOrder {
		if pid == id {
			s.productOrder = append(s.productOrder[:i], s.productOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.categories[category.ID] = category
	copied := category
	return &copied, nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) ListBrands(_ context.Context) ([]domain.Brand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Brand, 0, len(s.brands))
	for _, b := range s.brands {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateBrand(_ context.Context, brand domain.Brand) (*domain.Brand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.brands[brand.ID] = brand
	copied := brand
	return &copied, nil
}

func (s *Store) DeleteBrand(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.brands[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.brands, id)
	return nil
}

func (s *Store) ListAttributes(_ context.Context) ([]domain.Attribute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Attribute, 0, len(s.attributes))
	for _, a := range s.attributes {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateAttribute(_ context.Context, attribute domain.Attribute) (*domain.Attribute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attributes[attribute.ID] = attribute
	copied := attribute
	return &copied, nil
}

func (s *Store) DeleteAttribute(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attributes[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.attributes, id)
	return nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := c
	return &copied, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.customers[customer.ID] = customer
	copied := customer
	return &copied, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[customer.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.customers[customer.ID] = customer
	copied := customer
	return &copied, nil
}

func (s *Store) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		out = append(out, sup)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.suppliers[supplier.ID] = supplier
	copied := supplier
	return &copied, nil
}

func (s *Store) DeleteSupplier(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.suppliers[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.suppliers, id)
	return nil
}

// CreateSale applies the whole commit under one lock: validate stock for
// every line first, then decrement, insert, and post the optional ledger
// entry. Either everything lands or nothing does.
func (s *Store) CreateSale(_ context.Context, sale domain.Sale, ledger *domain.CreditLedgerEntry) (*domain.Sale, error) {
	if sale.IdempotencyKey == "" || len(sale.Lines) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.salesByIdem[sale.IdempotencyKey]; ok {
		existing := s.sales[existingID]
		return &existing, nil
	}

	for _, line := range sale.Lines {
		if line.Qty < 1 {
			return nil, store.ErrInvalidInput
		}
		product, ok := s.products[line.ProductID]
		if !ok || !product.Active {
			return nil, fmt.Errorf("%w: product %s unavailable", store.ErrInvalidInput, line.ProductID)
		}
		if product.StockQty < line.Qty {
			return nil, store.ErrInsufficientStock
		}
	}

	if ledger != nil {
		customer, ok := s.customers[ledger.CustomerID]
		if !ok {
			return nil, store.ErrNotFound
		}
		if ledger.AmountCents < 0 && customer.CreditBalanceCents+ledger.AmountCents < 0 {
			return nil, store.ErrInsufficientCredit
		}
	}

	for _, line := range sale.Lines {
		product := s.products[line.ProductID]
		product.StockQty -= line.Qty
		product.UpdatedAt = sale.CreatedAt
		s.products[line.ProductID] = product
	}

	if ledger != nil {
		customer := s.customers[ledger.CustomerID]
		balance := customer.CreditBalanceCents + ledger.AmountCents
		if balance < 0 {
			balance = 0
		}
		customer.CreditBalanceCents = balance
		s.customers[ledger.CustomerID] = customer
		s.ledger = append(s.ledger, *ledger)
	}

	s.sales[sale.ID] = sale
	s.salesByIdem[sale.IdempotencyKey] = sale.ID
	s.saleOrder = append(s.saleOrder, sale.ID)

	copied := sale
	return &copied, nil
}

func (s *Store) FindSaleByIdempotency(_ context.Context, key string) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.salesByIdem[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	sale := s.sales[id]
	return &sale, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := sale
	return &copied, nil
}

func (s *Store) ListSales(_ context.Context, limit int) ([]domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit < 1 {
		limit = 50
	}
	out := make([]domain.Sale, 0, limit)
	for i := len(s.saleOrder) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.sales[s.saleOrder[i]])
	}
	return out, nil
}

func (s *Store) PostLedgerEntry(_ context.Context, entry domain.CreditLedgerEntry) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[entry.CustomerID]
	if !ok {
		return nil, store.ErrNotFound
	}

	balance := customer.CreditBalanceCents + entry.AmountCents
	if balance < 0 {
		balance = 0
	}
	customer.CreditBalanceCents = balance
	s.customers[entry.CustomerID] = customer
	s.ledger = append(s.ledger, entry)

	copied := customer
	return &copied, nil
}

func (s *Store) ListLedgerEntries(_ context.Context, customerID string, limit int) ([]domain.CreditLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit < 1 {
		limit = 50
	}
	out := make([]domain.CreditLedgerEntry, 0, limit)
	for i := len(s.ledger) - 1; i >= 0 && len(out) < limit; i-- {
		if s.ledger[i].CustomerID == customerID {
			out = append(out, s.ledger[i])
		}
	}
	return out, nil
}

func (s *Store) LedgerNet(_ context.Context, customerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var net int64
	for _, entry := range s.ledger {
		if entry.CustomerID == customerID {
			net += entry.AmountCents
		}
	}
	return net, nil
}

func (s *Store) AdjustStock(_ context.Context, adjustment domain.StockAdjustment) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[adjustment.ProductID]
	if !ok {
		return nil, store.ErrNotFound
	}

	qty := product.StockQty + adjustment.DeltaQty
	if qty < 0 {
		qty = 0
	}
	product.StockQty = qty
	product.UpdatedAt = adjustment.CreatedAt
	s.products[adjustment.ProductID] = product
	s.adjustments = append(s.adjustments, adjustment)

	copied := product
	return &copied, nil
}

func (s *Store) ListStockAdjustments(_ context.Context, productID string, limit int) ([]domain.StockAdjustment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit < 1 {
		limit = 50
	}
	out := make([]domain.StockAdjustment, 0, limit)
	for i := len(s.adjustments) - 1; i >= 0 && len(out) < limit; i-- {
		if productID == "" || s.adjustments[i].ProductID == productID {
			out = append(out, s.adjustments[i])
		}
	}
	return out, nil
}

func (s *Store) DailySalesReport(_ context.Context, from time.Time, to time.Time) ([]domain.DailySalesPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byDay := make(map[string]*domain.DailySalesPoint)
	for _, sale := range s.sales {
		if sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		day := sale.CreatedAt.UTC().Format("2006-01-02")
		point, ok := byDay[day]
		if !ok {
			point = &domain.DailySalesPoint{Date: day}
			byDay[day] = point
		}
		point.Transactions++
		point.RevenueCents += sale.TotalCents
		for _, line := range sale.Lines {
			cost := int64(0)
			if product, ok := s.products[line.ProductID]; ok {
				cost = product.CostCents
			}
			point.ProfitCents += line.LineTotalCents - cost*int64(line.Qty)
		}
	}

	out := make([]domain.DailySalesPoint, 0, len(byDay))
	for _, point := range byDay {
		out = append(out, *point)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *Store) TopProducts(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.TopProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit < 1 {
		limit = 10
	}
	byProduct := make(map[string]*domain.TopProduct)
	for _, sale := range s.sales {
		if sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		for _, line := range sale.Lines {
			top, ok := byProduct[line.ProductID]
			if !ok {
				top = &domain.TopProduct{ProductID: line.ProductID, SKU: line.SKU, Name: line.Name}
				byProduct[line.ProductID] = top
			}
			top.QtySold += int64(line.Qty)
			top.RevenueCents += line.LineTotalCents
		}
	}

	out := make([]domain.TopProduct, 0, len(byProduct))
	for _, top := range byProduct {
		out = append(out, *top)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QtySold != out[j].QtySold {
			return out[i].QtySold > out[j].QtySold
		}
		return out[i].RevenueCents > out[j].RevenueCents
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit < 1 {
		limit = 100
	}
	out := make([]domain.AuditLog, 0, limit)
	for i := len(s.auditLogs) - 1; i >= 0 && len(out) < limit; i-- {
		entry := s.auditLogs[i]
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(user.Username)
	if _, exists := s.users[key]; exists {
		return fmt.Errorf("%w: username %s already exists", store.ErrConflict, user.Username)
	}
	s.users[key] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.UserAccount, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(username)
	user, ok := s.users[key]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.users[key] = user
	return nil
}

func (s *Store) SetUserActive(_ context.Context, username string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(username)
	user, ok := s.users[key]
	if !ok {
		return store.ErrNotFound
	}
	user.Active = active
	s.users[key] = user
	return nil
}
