package store

import (
	"context"
	"errors"
	"time"

	"warungpos/backend/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInsufficientCredit = errors.New("insufficient store credit")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("conflict")
)

// Repository is the single configured handle to the backing store. It is
// injected into the service so tests can substitute the memory
// implementation.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	ListBrands(ctx context.Context) ([]domain.Brand, error)
	CreateBrand(ctx context.Context, brand domain.Brand) (*domain.Brand, error)
	DeleteBrand(ctx context.Context, id string) error
	ListAttributes(ctx context.Context) ([]domain.Attribute, error)
	CreateAttribute(ctx context.Context, attribute domain.Attribute) (*domain.Attribute, error)
	DeleteAttribute(ctx context.Context, id string) error

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)

	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	DeleteSupplier(ctx context.Context, id string) error

	// CreateSale persists the sale header, its lines, the conditional stock
	// decrements, and the optional credit-ledger posting as one atomic
	// operation. A decrement that would drive stock negative aborts the
	// whole sale with ErrInsufficientStock. A sale with the same idempotency
	// key as an existing one is not re-inserted.
	CreateSale(ctx context.Context, sale domain.Sale, ledger *domain.CreditLedgerEntry) (*domain.Sale, error)
	FindSaleByIdempotency(ctx context.Context, key string) (*domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, limit int) ([]domain.Sale, error)

	// PostLedgerEntry appends the entry and applies its signed amount to the
	// customer's balance, flooring at zero.
	PostLedgerEntry(ctx context.Context, entry domain.CreditLedgerEntry) (*domain.Customer, error)
	ListLedgerEntries(ctx context.Context, customerID string, limit int) ([]domain.CreditLedgerEntry, error)
	LedgerNet(ctx context.Context, customerID string) (int64, error)

	AdjustStock(ctx context.Context, adjustment domain.StockAdjustment) (*domain.Product, error)
	ListStockAdjustments(ctx context.Context, productID string, limit int) ([]domain.StockAdjustment, error)

	DailySalesReport(ctx context.Context, from time.Time, to time.Time) ([]domain.DailySalesPoint, error)
	TopProducts(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.TopProduct, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
	SetUserActive(ctx context.Context, username string, active bool) error
}
