// Package httpapi exposes the service over JSON HTTP. Routing is chi with
// the usual middleware stack; handlers decode, validate, call the service,
// and map the sentinel errors to status codes.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/unrolled/secure"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/service"
	"warungpos/backend/internal/store"
)

type API struct {
	svc           *service.Service
	auth          *AuthManager
	validate      *validator.Validate
	logger        *slog.Logger
	allowedOrigin string
}

func New(svc *service.Service, auth *AuthManager, logger *slog.Logger, allowedOrigin string) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		svc:           svc,
		auth:          auth,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		logger:        logger,
		allowedOrigin: allowedOrigin,
	}
}

func (a *API) Router() http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	})

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(secureMiddleware.Handler)
	r.Use(a.cors)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(10, time.Minute))
		r.Post("/api/login", a.handleLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.authenticate)

		r.Get("/api/products", a.handleListProducts)
		r.Get("/api/products/sku/{sku}", a.handleGetProductBySKU)
		r.Get("/api/products/{id}", a.handleGetProduct)

		r.Get("/api/categories", a.handleListCategories)
		r.Get("/api/brands", a.handleListBrands)
		r.Get("/api/attributes", a.handleListAttributes)

		r.Get("/api/customers", a.handleListCustomers)
		r.Post("/api/customers", a.handleCreateCustomer)
		r.Get("/api/customers/{id}", a.handleGetCustomerDetail)
		r.Put("/api/customers/{id}", a.handleUpdateCustomer)
		r.Get("/api/customers/{id}/ledger", a.handleListLedgerEntries)

		r.Get("/api/suppliers", a.handleListSuppliers)

		r.Get("/api/cart/{terminalID}", a.handleCartView)
		r.Delete("/api/cart/{terminalID}", a.handleCartClear)
		r.Post("/api/cart/{terminalID}/items", a.handleCartAdd)
		r.Put("/api/cart/{terminalID}/items/{productID}", a.handleCartSetQuantity)
		r.Delete("/api/cart/{terminalID}/items/{productID}", a.handleCartRemove)

		r.Post("/api/checkout", a.handleCheckout)
		r.Get("/api/sales", a.handleListSales)
		r.Get("/api/sales/{id}", a.handleGetSale)
		r.Get("/api/sales/{id}/receipt", a.handleSaleReceipt)

		// Admin-only surface. The service re-checks the role; the route
		// guard just fails fast with a clean 403.
		r.Group(func(r chi.Router) {
			r.Use(requireRole(domain.RoleAdmin))

			r.Post("/api/products", a.handleCreateProduct)
			r.Put("/api/products/{id}", a.handleUpdateProduct)
			r.Delete("/api/products/{id}", a.handleDeleteProduct)

			r.Post("/api/categories", a.handleCreateCategory)
			r.Delete("/api/categories/{id}", a.handleDeleteCategory)
			r.Post("/api/brands", a.handleCreateBrand)
			r.Delete("/api/brands/{id}", a.handleDeleteBrand)
			r.Post("/api/attributes", a.handleCreateAttribute)
			r.Delete("/api/attributes/{id}", a.handleDeleteAttribute)

			r.Post("/api/suppliers", a.handleCreateSupplier)
			r.Delete("/api/suppliers/{id}", a.handleDeleteSupplier)

			r.Post("/api/ledger", a.handlePostLedgerEntry)

			r.Post("/api/stock/adjustments", a.handleAdjustStock)
			r.Get("/api/stock/adjustments", a.handleListStockAdjustments)

			r.Get("/api/reports/daily", a.handleDailySalesReport)
			r.Get("/api/reports/top-products", a.handleTopProducts)
			r.Get("/api/audit-logs", a.handleListAuditLogs)

			r.Get("/api/cashiers", a.handleListCashiers)
			r.Post("/api/cashiers", a.handleCreateCashier)
			r.Put("/api/cashiers/{username}/active", a.handleSetCashierActive)
		})
	})

	return r
}

func (a *API) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, a.logger, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}
		actor, err := a.auth.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, a.logger, http.StatusUnauthorized, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
	})
}

func requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := service.ActorFromContext(r.Context())
			if !ok || actor.Role != role {
				writeJSON(w, http.StatusForbidden, map[string]any{"error": "forbidden role"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, a.logger, http.StatusBadRequest, err)
		return
	}
	resp, err := a.auth.Login(req)
	if err != nil {
		writeError(w, a.logger, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.svc.ListProducts(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := a.svc.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *API) handleGetProductBySKU(w http.ResponseWriter, r *http.Request) {
	product, err := a.svc.GetProductBySKU(r.Context(), chi.URLParam(r, "sku"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductCreateRequest
	if !a.decode(w, r, &req) {
		return
	}
	product, err := a.svc.CreateProduct(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, a.logger, http.StatusBadRequest, err)
		return
	}
	product, err := a.svc.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.svc.ListCategories(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (a *API) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.CatalogEntryCreateRequest
	if !a.decode(w, r, &req) {
		return
	}
	category, err := a.svc.CreateCategory(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (a *API) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := a.svc.ListBrands(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, brands)
}

func (a *API) handleCreateBrand(w http.ResponseWriter, r *http.Request) {
	var req domain.CatalogEntryCreateRequest
	if !a.decode(w, r, &req) {
		return
	}
	brand, err := a.svc.CreateBrand(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, brand)
}

func (a *API) handleDeleteBrand(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.DeleteBrand(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListAttributes(w http.ResponseWriter, r *http.Request) {
	attributes, err := a.svc.ListAttributes(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attributes)
}

func (a *API) handleCreateAttribute(w http.ResponseWriter, r *http.Request) {
	var req domain.CatalogEntryCreateRequest
	if !a.decode(w, r, &req) {
		return
	}
	attribute, err := a.svc.CreateAttribute(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, attribute)
}

func (a *API) handleDeleteAttribute(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.DeleteAttribute(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := a.svc.ListCustomers(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (a *API) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerCreateRequest
	if !a.decode(w, r, &req) {
		return
	}
	customer, err := a.svc.CreateCustomer(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (a *API) handleGetCustomerDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := a.svc.GetCustomerDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (a *API) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, a.logger, http.StatusBadRequest, err)
		return
	}
	customer, err := a.svc.UpdateCustomer(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (a *API) handleListLedgerEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := a.svc.ListLedgerEntries(r.Context(), chi.URLParam(r, "id"), queryInt(r, "limit", 50))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := a.svc.ListSuppliers(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suppliers)
}

func (a *API) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req domain.SupplierCreateRequest
	if !a.decode(w, r, &req) {
		return
	}
	supplier, err := a.svc.CreateSupplier(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, supplier)
}

func (a *API) handleDeleteSupplier(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.DeleteSupplier(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type cartAddRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

type cartQuantityRequest struct {
	Qty int `json:"qty" validate:"gte=0"`
}

func (a *API) handleCartView(w http.ResponseWriter, r *http.Request) {
	view, err := a.svc.CartView(r.Context(), chi.URLParam(r, "terminalID"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleCartClear(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.CartClear(r.Context(), chi.URLParam(r, "terminalID")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	var req cartAddRequest
	if !a.decode(w, r, &req) {
		return
	}
	view, err := a.svc.CartAdd(r.Context(), chi.URLParam(r, "terminalID"), req.ProductID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleCartSetQuantity(w http.ResponseWriter, r *http.Request) {
	var req cartQuantityRequest
	if !a.decode(w, r, &req) {
		return
	}
	view, err := a.svc.CartSetQuantity(r.Context(), chi.URLParam(r, "terminalID"), chi.URLParam(r, "productID"), req.Qty)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	view, err := a.svc.CartRemove(r.Context(), chi.URLParam(r, "terminalID"), chi.URLParam(r, "productID"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutRequest
	if !a.decode(w, r, &req) {
		return
	}
	resp, err := a.svc.Checkout(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := a.svc.ListSales(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := a.svc.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (a *API) handleSaleReceipt(w http.ResponseWriter, r *http.Request) {
	resp, err := a.svc.SaleReceipt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handlePostLedgerEntry(w http.ResponseWriter, r *http.Request) {
	var req domain.LedgerPostRequest
	if !a.decode(w, r, &req) {
		return
	}
	detail, err := a.svc.PostLedgerEntry(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, detail)
}

func (a *API) handleAdjustStock(w http.ResponseWriter, r *http.Request) {
	var req domain.StockAdjustRequest
	if !a.decode(w, r, &req) {
		return
	}
	product, err := a.svc.AdjustStock(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *API) handleListStockAdjustments(w http.ResponseWriter, r *http.Request) {
	adjustments, err := a.svc.ListStockAdjustments(r.Context(), r.URL.Query().Get("product_id"), queryInt(r, "limit", 50))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adjustments)
}

func (a *API) handleDailySalesReport(w http.ResponseWriter, r *http.Request) {
	from, to, err := queryDateRange(r)
	if err != nil {
		writeError(w, a.logger, http.StatusBadRequest, err)
		return
	}
	points, err := a.svc.DailySalesReport(r.Context(), from, to)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (a *API) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	from, to, err := queryDateRange(r)
	if err != nil {
		writeError(w, a.logger, http.StatusBadRequest, err)
		return
	}
	top, err := a.svc.TopProducts(r.Context(), from, to, queryInt(r, "limit", 10))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

func (a *API) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	from, to, err := queryDateRange(r)
	if err != nil {
		writeError(w, a.logger, http.StatusBadRequest, err)
		return
	}
	logs, err := a.svc.ListAuditLogs(r.Context(), from, to, queryInt(r, "limit", 100))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (a *API) handleListCashiers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.auth.ListCashiers())
}

func (a *API) handleCreateCashier(w http.ResponseWriter, r *http.Request) {
	var req domain.CashierCreateRequest
	if !a.decode(w, r, &req) {
		return
	}
	cashier, err := a.auth.CreateCashier(req)
	if err != nil {
		writeError(w, a.logger, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusCreated, cashier)
}

type cashierActiveRequest struct {
	Active bool `json:"active"`
}

func (a *API) handleSetCashierActive(w http.ResponseWriter, r *http.Request) {
	var req cashierActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, a.logger, http.StatusBadRequest, err)
		return
	}
	if err := a.auth.SetCashierActive(chi.URLParam(r, "username"), req.Active); err != nil {
		writeError(w, a.logger, http.StatusUnprocessableEntity, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode unmarshals the body into dst and runs the struct validation tags.
// On failure it writes a 400 and returns false.
func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, a.logger, http.StatusBadRequest, err)
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		writeError(w, a.logger, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		writeError(w, a.logger, http.StatusForbidden, err)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, a.logger, http.StatusNotFound, err)
	case errors.Is(err, store.ErrConflict):
		writeError(w, a.logger, http.StatusConflict, err)
	case errors.Is(err, store.ErrInsufficientStock):
		writeError(w, a.logger, http.StatusConflict, err)
	case errors.Is(err, store.ErrInsufficientCredit):
		writeError(w, a.logger, http.StatusUnprocessableEntity, err)
	case errors.Is(err, store.ErrInvalidInput):
		writeError(w, a.logger, http.StatusBadRequest, err)
	default:
		writeError(w, a.logger, http.StatusInternalServerError, err)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

// queryDateRange reads from/to as YYYY-MM-DD, defaulting to the last 30 days.
// The to date is exclusive at the following midnight.
func queryDateRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30).Truncate(24 * time.Hour)
	to := now.AddDate(0, 0, 1).Truncate(24 * time.Hour)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid from date, expected YYYY-MM-DD")
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid to date, expected YYYY-MM-DD")
		}
		to = parsed.AddDate(0, 0, 1)
	}
	return from, to, nil
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	// 5xx messages stay generic so internals never leak to the client.
	msg := err.Error()
	if status >= 500 {
		logger.Error("request failed", "status", status, "error", err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
