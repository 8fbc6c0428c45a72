// Package postgres implements store.Repository against PostgreSQL using the
// pgx stdlib driver. CreateSale runs the whole commit in one serializable
// transaction with row locks on the touched stock rows.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sku, name, COALESCE(category_id, ''), COALESCE(brand_id, ''),
		       price_cents, cost_cents, stock_qty, active, created_at, updated_at
		FROM products
		WHERE active = true
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.CategoryID, &p.BrandID,
			&p.PriceCents, &p.CostCents, &p.StockQty, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) scanProductRow(row *sql.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.CategoryID, &p.BrandID,
		&p.PriceCents, &p.CostCents, &p.StockQty, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

const productColumns = `id, sku, name, COALESCE(category_id, ''), COALESCE(brand_id, ''),
	price_cents, cost_cents, stock_qty, active, created_at, updated_at`

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.scanProductRow(s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+` FROM products WHERE id = $1
	`, id))
}

func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	return s.scanProductRow(s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+` FROM products WHERE sku = $1
	`, sku))
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, sku, name, category_id, brand_id, price_cents, cost_cents, stock_qty, active, created_at, updated_at)
		VALUES ($1,$2,$3,NULLIF($4,''),NULLIF($5,''),$6,$7,$8,$9,$10,$11)
	`, product.ID, product.SKU, product.Name, product.CategoryID, product.BrandID,
		product.PriceCents, product.CostCents, product.StockQty, product.Active,
		product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: sku %s already exists", store.ErrConflict, product.SKU)
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, category_id = NULLIF($3,''), brand_id = NULLIF($4,''),
		    price_cents = $5, cost_cents = $6, active = $7, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.CategoryID, product.BrandID,
		product.PriceCents, product.CostCents, product.Active)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.listCatalog(ctx, `SELECT id, name FROM categories ORDER BY name`)
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if err := s.insertCatalog(ctx, `INSERT INTO categories (id, name) VALUES ($1,$2)`, category.ID, category.Name); err != nil {
		return nil, err
	}
	created := category
	return &created, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.deleteByID(ctx, `DELETE FROM categories WHERE id = $1`, id)
}

func (s *Store) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	categories, err := s.listCatalog(ctx, `SELECT id, name FROM brands ORDER BY name`)
	if err != nil {
		return nil, err
	}
	brands := make([]domain.Brand, 0, len(categories))
	for _, c := range categories {
		brands = append(brands, domain.Brand(c))
	}
	return brands, nil
}

func (s *Store) CreateBrand(ctx context.Context, brand domain.Brand) (*domain.Brand, error) {
	if err := s.insertCatalog(ctx, `INSERT INTO brands (id, name) VALUES ($1,$2)`, brand.ID, brand.Name); err != nil {
		return nil, err
	}
	created := brand
	return &created, nil
}

func (s *Store) DeleteBrand(ctx context.Context, id string) error {
	return s.deleteByID(ctx, `DELETE FROM brands WHERE id = $1`, id)
}

func (s *Store) ListAttributes(ctx context.Context) ([]domain.Attribute, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, COALESCE(value, '') FROM attributes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attributes := make([]domain.Attribute, 0, 32)
	for rows.Next() {
		var a domain.Attribute
		if err := rows.Scan(&a.ID, &a.Name, &a.Value); err != nil {
			return nil, err
		}
		attributes = append(attributes, a)
	}
	return attributes, rows.Err()
}

func (s *Store) CreateAttribute(ctx context.Context, attribute domain.Attribute) (*domain.Attribute, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attributes (id, name, value) VALUES ($1,$2,NULLIF($3,''))
	`, attribute.ID, attribute.Name, attribute.Value)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := attribute
	return &created, nil
}

func (s *Store) DeleteAttribute(ctx context.Context, id string) error {
	return s.deleteByID(ctx, `DELETE FROM attributes WHERE id = $1`, id)
}

func (s *Store) listCatalog(ctx context.Context, query string) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.Category, 0, 32)
	for rows.Next() {
		var e domain.Category
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) insertCatalog(ctx context.Context, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, query, args...)
	if err != nil && isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

func (s *Store) deleteByID(ctx context.Context, query string, id string) error {
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(phone, ''), credit_balance_cents, created_at
		FROM customers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.CreditBalanceCents, &c.CreatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(phone, ''), credit_balance_cents, created_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Phone, &c.CreditBalanceCents, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, credit_balance_cents, created_at)
		VALUES ($1,$2,NULLIF($3,''),$4,$5)
	`, customer.ID, customer.Name, customer.Phone, customer.CreditBalanceCents, customer.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE customers SET name = $2, phone = NULLIF($3,'') WHERE id = $1
	`, customer.ID, customer.Name, customer.Phone)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := customer
	return &updated, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(phone, ''), created_at FROM suppliers ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0, 32)
	for rows.Next() {
		var sup domain.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.Phone, &sup.CreatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, sup)
	}
	return suppliers, rows.Err()
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, phone, created_at) VALUES ($1,$2,NULLIF($3,''),$4)
	`, supplier.ID, supplier.Name, supplier.Phone, supplier.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := supplier
	return &created, nil
}

func (s *Store) DeleteSupplier(ctx context.Context, id string) error {
	return s.deleteByID(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale, ledger *domain.CreditLedgerEntry) (*domain.Sale, error) {
	if sale.IdempotencyKey == "" || len(sale.Lines) == 0 {
		return nil, store.ErrInvalidInput
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	// Idempotent retry: a sale with this key already exists.
	var existingID string
	err = pgTx.QueryRowContext(ctx, `
		SELECT id FROM sales WHERE idempotency_key = $1
	`, sale.IdempotencyKey).Scan(&existingID)
	if err == nil {
		_ = pgTx.Rollback()
		return s.GetSale(ctx, existingID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	for _, line := range sale.Lines {
		if line.Qty < 1 {
			return nil, store.ErrInvalidInput
		}
		// Conditional decrement: refuses to drive stock below zero, which
		// both floors the value and rejects concurrent oversells.
		res, err := pgTx.ExecContext(ctx, `
			UPDATE products
			SET stock_qty = stock_qty - $1, updated_at = now()
			WHERE id = $2 AND active = true AND stock_qty >= $1
		`, line.Qty, line.ProductID)
		if err != nil {
			return nil, err
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return nil, store.ErrInsufficientStock
		}
	}

	// Header goes in before the ledger entry: the ledger row may reference
	// the sale id, and a foreign key on that column must see the parent row.
	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO sales (id, number, customer_id, cashier_username, total_cents, tendered_cents,
		                   change_cents, payment_method, wallet_phone, idempotency_key, created_at)
		VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,$7,$8,NULLIF($9,''),$10,$11)
	`, sale.ID, sale.Number, sale.CustomerID, sale.CashierUsername, sale.TotalCents,
		sale.TenderedCents, sale.ChangeCents, sale.PaymentMethod, sale.WalletPhone,
		sale.IdempotencyKey, sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	if ledger != nil {
		var balance int64
		err = pgTx.QueryRowContext(ctx, `
			SELECT credit_balance_cents FROM customers WHERE id = $1 FOR UPDATE
		`, ledger.CustomerID).Scan(&balance)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrNotFound
			}
			return nil, err
		}
		if ledger.AmountCents < 0 && balance+ledger.AmountCents < 0 {
			return nil, store.ErrInsufficientCredit
		}

		_, err = pgTx.ExecContext(ctx, `
			INSERT INTO credit_ledger (id, customer_id, amount_cents, entry_type, description, sale_id, created_at)
			VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7)
		`, ledger.ID, ledger.CustomerID, ledger.AmountCents, ledger.EntryType,
			ledger.Description, ledger.SaleID, ledger.CreatedAt)
		if err != nil {
			return nil, err
		}
		_, err = pgTx.ExecContext(ctx, `
			UPDATE customers
			SET credit_balance_cents = GREATEST(0, credit_balance_cents + $1)
			WHERE id = $2
		`, ledger.AmountCents, ledger.CustomerID)
		if err != nil {
			return nil, err
		}
	}

	for _, line := range sale.Lines {
		_, err = pgTx.ExecContext(ctx, `
			INSERT INTO sale_lines (id, sale_id, product_id, sku, name, qty, unit_price_cents, line_total_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, line.ID, sale.ID, line.ProductID, line.SKU, line.Name, line.Qty,
			line.UnitPriceCents, line.LineTotalCents)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	created := sale
	return &created, nil
}

const saleColumns = `id, number, COALESCE(customer_id, ''), cashier_username, total_cents,
	tendered_cents, change_cents, payment_method, COALESCE(wallet_phone, ''), idempotency_key, created_at`

func (s *Store) scanSale(row *sql.Row) (*domain.Sale, error) {
	var sale domain.Sale
	err := row.Scan(&sale.ID, &sale.Number, &sale.CustomerID, &sale.CashierUsername,
		&sale.TotalCents, &sale.TenderedCents, &sale.ChangeCents, &sale.PaymentMethod,
		&sale.WalletPhone, &sale.IdempotencyKey, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

func (s *Store) loadSaleLines(ctx context.Context, sale *domain.Sale) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, product_id, sku, name, qty, unit_price_cents, line_total_cents
		FROM sale_lines
		WHERE sale_id = $1
		ORDER BY id
	`, sale.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.SaleLine
		if err := rows.Scan(&line.ID, &line.SaleID, &line.ProductID, &line.SKU,
			&line.Name, &line.Qty, &line.UnitPriceCents, &line.LineTotalCents); err != nil {
			return err
		}
		sale.Lines = append(sale.Lines, line)
	}
	return rows.Err()
}

func (s *Store) FindSaleByIdempotency(ctx context.Context, key string) (*domain.Sale, error) {
	sale, err := s.scanSale(s.db.QueryRowContext(ctx, `
		SELECT `+saleColumns+` FROM sales WHERE idempotency_key = $1
	`, key))
	if err != nil {
		return nil, err
	}
	if err := s.loadSaleLines(ctx, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	sale, err := s.scanSale(s.db.QueryRowContext(ctx, `
		SELECT `+saleColumns+` FROM sales WHERE id = $1
	`, id))
	if err != nil {
		return nil, err
	}
	if err := s.loadSaleLines(ctx, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *Store) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+saleColumns+` FROM sales ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, limit)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.Number, &sale.CustomerID, &sale.CashierUsername,
			&sale.TotalCents, &sale.TenderedCents, &sale.ChangeCents, &sale.PaymentMethod,
			&sale.WalletPhone, &sale.IdempotencyKey, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func (s *Store) PostLedgerEntry(ctx context.Context, entry domain.CreditLedgerEntry) (*domain.Customer, error) {
	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var customer domain.Customer
	err = pgTx.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(phone, ''), credit_balance_cents, created_at
		FROM customers
		WHERE id = $1
		FOR UPDATE
	`, entry.CustomerID).Scan(&customer.ID, &customer.Name, &customer.Phone,
		&customer.CreditBalanceCents, &customer.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO credit_ledger (id, customer_id, amount_cents, entry_type, description, sale_id, created_at)
		VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7)
	`, entry.ID, entry.CustomerID, entry.AmountCents, entry.EntryType,
		entry.Description, entry.SaleID, entry.CreatedAt)
	if err != nil {
		return nil, err
	}

	balance := customer.CreditBalanceCents + entry.AmountCents
	if balance < 0 {
		balance = 0
	}
	_, err = pgTx.ExecContext(ctx, `
		UPDATE customers SET credit_balance_cents = $1 WHERE id = $2
	`, balance, entry.CustomerID)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	customer.CreditBalanceCents = balance
	return &customer, nil
}

func (s *Store) ListLedgerEntries(ctx context.Context, customerID string, limit int) ([]domain.CreditLedgerEntry, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, amount_cents, entry_type, COALESCE(description, ''), COALESCE(sale_id, ''), created_at
		FROM credit_ledger
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.CreditLedgerEntry, 0, limit)
	for rows.Next() {
		var entry domain.CreditLedgerEntry
		if err := rows.Scan(&entry.ID, &entry.CustomerID, &entry.AmountCents, &entry.EntryType,
			&entry.Description, &entry.SaleID, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) LedgerNet(ctx context.Context, customerID string) (int64, error) {
	var net int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM credit_ledger WHERE customer_id = $1
	`, customerID).Scan(&net)
	return net, err
}

func (s *Store) AdjustStock(ctx context.Context, adjustment domain.StockAdjustment) (*domain.Product, error) {
	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	// Manual corrections clamp at zero instead of failing: the operator is
	// reconciling a physical count, not selling.
	res, err := pgTx.ExecContext(ctx, `
		UPDATE products
		SET stock_qty = GREATEST(0, stock_qty + $1), updated_at = now()
		WHERE id = $2
	`, adjustment.DeltaQty, adjustment.ProductID)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, store.ErrNotFound
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO stock_adjustments (id, product_id, delta_qty, reason, actor_username, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, adjustment.ID, adjustment.ProductID, adjustment.DeltaQty, adjustment.Reason,
		adjustment.ActorUsername, adjustment.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	return s.GetProduct(ctx, adjustment.ProductID)
}

func (s *Store) ListStockAdjustments(ctx context.Context, productID string, limit int) ([]domain.StockAdjustment, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, delta_qty, reason, actor_username, created_at
		FROM stock_adjustments
		WHERE ($1 = '' OR product_id = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	adjustments := make([]domain.StockAdjustment, 0, limit)
	for rows.Next() {
		var adj domain.StockAdjustment
		if err := rows.Scan(&adj.ID, &adj.ProductID, &adj.DeltaQty, &adj.Reason,
			&adj.ActorUsername, &adj.CreatedAt); err != nil {
			return nil, err
		}
		adjustments = append(adjustments, adj)
	}
	return adjustments, rows.Err()
}

func (s *Store) DailySalesReport(ctx context.Context, from time.Time, to time.Time) ([]domain.DailySalesPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(s.created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
		       COUNT(DISTINCT s.id),
		       COALESCE(SUM(l.line_total_cents), 0),
		       COALESCE(SUM(l.line_total_cents - p.cost_cents * l.qty), 0)
		FROM sales s
		JOIN sale_lines l ON l.sale_id = s.id
		JOIN products p ON p.id = l.product_id
		WHERE s.created_at >= $1 AND s.created_at < $2
		GROUP BY day
		ORDER BY day
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]domain.DailySalesPoint, 0, 31)
	for rows.Next() {
		var point domain.DailySalesPoint
		if err := rows.Scan(&point.Date, &point.Transactions, &point.RevenueCents, &point.ProfitCents); err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	return points, rows.Err()
}

func (s *Store) TopProducts(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.TopProduct, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.product_id, l.sku, l.name,
		       COALESCE(SUM(l.qty), 0), COALESCE(SUM(l.line_total_cents), 0)
		FROM sale_lines l
		JOIN sales s ON s.id = l.sale_id
		WHERE s.created_at >= $1 AND s.created_at < $2
		GROUP BY l.product_id, l.sku, l.name
		ORDER BY SUM(l.qty) DESC, SUM(l.line_total_cents) DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	top := make([]domain.TopProduct, 0, limit)
	for rows.Next() {
		var t domain.TopProduct
		if err := rows.Scan(&t.ProductID, &t.SKU, &t.Name, &t.QtySold, &t.RevenueCents); err != nil {
			return nil, err
		}
		top = append(top, t)
	}
	return top, rows.Err()
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType,
		entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action,
			&entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("%w: username %s already exists", store.ErrConflict, user.Username)
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at FROM users ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SetUserActive(ctx context.Context, username string, active bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET active = $2 WHERE username = $1
	`, username, active)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
