package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/account"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/coupon"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/idempotency"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/pricing"
)

const goodToken = "good-token"

var shopper = account.User{ID: 42, Username: "alice", Email: "alice@example.com", FullName: "Alice"}

type fakeAccounts struct {
	registerErr error
	loggedOut   []string
}

func (f *fakeAccounts) Register(ctx context.Context, r account.Registration) (account.User, account.Session, error) {
	if f.registerErr != nil {
		return account.User{}, account.Session{}, f.registerErr
	}
	return shopper, account.Session{Token: goodToken, UserID: shopper.ID, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeAccounts) Login(ctx context.Context, username, password string) (account.User, account.Session, error) {
	if username != "alice" || password != "secret1" {
		return account.User{}, account.Session{}, account.ErrInvalidCredentials
	}
	return shopper, account.Session{Token: goodToken, UserID: shopper.ID, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeAccounts) Logout(ctx context.Context, token string) error {
	f.loggedOut = append(f.loggedOut, token)
	return nil
}

func (f *fakeAccounts) Authenticate(ctx context.Context, token string) (account.User, error) {
	if token == goodToken {
		return shopper, nil
	}
	return account.User{}, account.ErrUnauthenticated
}

func (f *fakeAccounts) Profile(ctx context.Context, userID int64) (account.User, error) {
	return shopper, nil
}

func (f *fakeAccounts) UpdateProfile(ctx context.Context, userID int64, p account.Profile) (account.User, error) {
	u := shopper
	u.FullName, u.City = p.FullName, p.City
	return u, nil
}

type fakeCatalog struct {
	products   map[int64]catalog.Product
	lastFilter catalog.Filter
}

func (f *fakeCatalog) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	return []catalog.Category{{ID: 1, Name: "Audio", Slug: "audio"}}, nil
}

func (f *fakeCatalog) GetCategory(ctx context.Context, id int64) (catalog.Category, error) {
	if id != 1 {
		return catalog.Category{}, catalog.ErrNotFound
	}
	return catalog.Category{ID: 1, Name: "Audio", Slug: "audio"}, nil
}

func (f *fakeCatalog) ListSuppliers(ctx context.Context) ([]catalog.Supplier, error) {
	return []catalog.Supplier{}, nil
}

func (f *fakeCatalog) ListProducts(ctx context.Context, filter catalog.Filter) (catalog.ProductPage, error) {
	f.lastFilter = filter
	return catalog.ProductPage{Products: []catalog.Product{}, Total: 0}, nil
}

func (f *fakeCatalog) GetProduct(ctx context.Context, id int64) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) ListActiveOffers(ctx context.Context, now time.Time) ([]catalog.SpecialOffer, error) {
	return []catalog.SpecialOffer{}, nil
}

func (f *fakeCatalog) ProductsByOffer(ctx context.Context, offerID int64) ([]catalog.Product, error) {
	return []catalog.Product{}, nil
}

type fakeCoupons struct {
	coupons map[string]coupon.Coupon
}

func (f *fakeCoupons) ListActive(ctx context.Context) ([]coupon.Coupon, error) {
	return []coupon.Coupon{}, nil
}

func (f *fakeCoupons) Validate(ctx context.Context, code string) (coupon.Coupon, error) {
	if code == "" {
		return coupon.Coupon{}, coupon.ErrCodeRequired
	}
	c, ok := f.coupons[code]
	if !ok {
		return coupon.Coupon{}, coupon.ErrNotFound
	}
	if c.Exhausted() {
		return coupon.Coupon{}, coupon.ErrUsageLimitReached
	}
	return c, nil
}

type fakeOrders struct {
	placed   []order.PlaceRequest
	placeErr error
	statuses map[int64]order.Status
}

func (f *fakeOrders) Place(ctx context.Context, req order.PlaceRequest) (order.Order, error) {
	f.placed = append(f.placed, req)
	if f.placeErr != nil {
		return order.Order{}, f.placeErr
	}
	return order.Order{ID: 100, UserID: req.UserID, Status: order.StatusPending, Total: req.Total.Decimal}, nil
}

func (f *fakeOrders) Get(ctx context.Context, userID, orderID int64) (order.Order, error) {
	if orderID != 100 || userID != shopper.ID {
		return order.Order{}, order.ErrNotFound
	}
	return order.Order{ID: 100, UserID: userID, Items: []order.Item{}}, nil
}

func (f *fakeOrders) List(ctx context.Context, userID int64) ([]order.Order, error) {
	return []order.Order{{ID: 100, UserID: userID, Items: []order.Item{}}}, nil
}

func (f *fakeOrders) ListSupplierItems(ctx context.Context, supplierID int64) ([]order.SupplierItem, error) {
	return []order.SupplierItem{}, nil
}

func (f *fakeOrders) UpdateStatus(ctx context.Context, orderID int64, next order.Status) error {
	if !next.Valid() {
		return order.ErrInvalidStatus
	}
	cur, ok := f.statuses[orderID]
	if !ok {
		return order.ErrNotFound
	}
	if cur != next && !cur.CanTransitionTo(next) {
		return order.ErrInvalidTransition
	}
	f.statuses[orderID] = next
	return nil
}

func (f *fakeOrders) UpdateItemStatus(ctx context.Context, itemID int64, next order.Status) error {
	return order.ErrItemNotFound
}

type fakeStock struct {
	levels map[int64]int
}

func (f *fakeStock) Get(ctx context.Context, productID int64) (inventory.StockItem, error) {
	n, ok := f.levels[productID]
	if !ok {
		return inventory.StockItem{}, inventory.ErrNotFound
	}
	return inventory.StockItem{ProductID: productID, Available: n}, nil
}

func (f *fakeStock) SetAvailable(ctx context.Context, productID int64, available int) error {
	if _, ok := f.levels[productID]; !ok {
		return inventory.ErrNotFound
	}
	f.levels[productID] = available
	return nil
}

type fakeIdem struct {
	held     map[string]bool
	released []string
}

func (f *fakeIdem) Acquire(ctx context.Context, scope, key string) error {
	if f.held[scope+key] {
		return idempotency.ErrDuplicate
	}
	f.held[scope+key] = true
	return nil
}

func (f *fakeIdem) Release(ctx context.Context, scope, key string) error {
	delete(f.held, scope+key)
	f.released = append(f.released, key)
	return nil
}

type fakeCache struct{ invalidated []int64 }

func (f *fakeCache) Invalidate(ctx context.Context, ids ...int64) error {
	f.invalidated = append(f.invalidated, ids...)
	return nil
}

type testServer struct {
	router   http.Handler
	accounts *fakeAccounts
	catalog  *fakeCatalog
	orders   *fakeOrders
	stock    *fakeStock
	idem     *fakeIdem
	cache    *fakeCache
	carts    *cart.MemoryStorage
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	minimum := decimal.NewNullDecimal(decimal.RequireFromString("50"))
	limit := 10
	ts := &testServer{
		accounts: &fakeAccounts{},
		catalog: &fakeCatalog{products: map[int64]catalog.Product{
			1: {ID: 1, Name: "Widget", Price: decimal.RequireFromString("10.00"), ImageURL: "/w.png", IsActive: true},
			2: {ID: 2, Name: "Retired", Price: decimal.RequireFromString("5.00"), IsActive: false},
		}},
		orders: &fakeOrders{statuses: map[int64]order.Status{7: order.StatusProcessing}},
		stock:  &fakeStock{levels: map[int64]int{1: 5}},
		idem:   &fakeIdem{held: map[string]bool{}},
		cache:  &fakeCache{},
		carts:  cart.NewMemoryStorage(),
	}
	coupons := &fakeCoupons{coupons: map[string]coupon.Coupon{
		"SAVE10": {ID: 3, Code: "SAVE10", DiscountType: pricing.DiscountPercentage, DiscountValue: decimal.NewFromInt(10), IsActive: true},
		"BIG50":  {ID: 4, Code: "BIG50", DiscountType: pricing.DiscountFixed, DiscountValue: decimal.NewFromInt(5), MinimumPurchase: minimum, IsActive: true},
		"GONE":   {ID: 5, Code: "GONE", DiscountType: pricing.DiscountFixed, DiscountValue: decimal.NewFromInt(5), UsageLimit: &limit, UsageCount: 10, IsActive: true},
	}}
	h := NewHandler(Deps{
		Accounts:    ts.accounts,
		Catalog:     ts.catalog,
		Coupons:     coupons,
		Orders:      ts.orders,
		Stock:       ts.stock,
		CartStorage: ts.carts,
		Idempotency: ts.idem,
		Cache:       ts.cache,
		Metrics:     metrics.New(),
		Logger:      logging.Discard(),
		Config: Config{
			RequestTimeout:   time.Second,
			CORSAllowOrigins: []string{"http://shop.local"},
			FulfillmentToken: "ship-it",
		},
	})
	ts.router = NewRouter(h)
	return ts
}

type reqOpt func(*http.Request)

func withCookie(c *http.Cookie) reqOpt {
	return func(r *http.Request) { r.AddCookie(c) }
}

func withHeader(k, v string) reqOpt {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

var loggedIn = withCookie(&http.Cookie{Name: sessionCookie, Value: goodToken})

func (ts *testServer) do(t *testing.T, method, path string, body any, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func cookieFrom(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `storefront_http_requests_total{code="200",method="GET",route="/health"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodOptions, "/api/cart", nil,
		withHeader("Origin", "http://shop.local"),
		withHeader("Access-Control-Request-Method", "POST"))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://shop.local", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = ts.do(t, http.MethodGet, "/health", nil, withHeader("Origin", "http://evil.local"))
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/auth/register", account.Registration{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	c := cookieFrom(rec, sessionCookie)
	require.NotNil(t, c)
	require.Equal(t, goodToken, c.Value)
	require.True(t, c.HttpOnly)

	rec = ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Invalid username or password", decodeBody[errorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodGet, "/api/auth/user", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/auth/user", nil, loggedIn)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[map[string]userResponse](t, rec)
	require.Equal(t, "alice", got["user"].Username)

	// a stale cookie is cleared and the request continues anonymously
	rec = ts.do(t, http.MethodGet, "/api/auth/user", nil, withCookie(&http.Cookie{Name: sessionCookie, Value: "stale"}))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, -1, cookieFrom(rec, sessionCookie).MaxAge)

	rec = ts.do(t, http.MethodPost, "/api/auth/logout", nil, loggedIn)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{goodToken}, ts.accounts.loggedOut)
}

func TestRegisterConflicts(t *testing.T) {
	ts := newTestServer(t)

	ts.accounts.registerErr = account.ErrEmailTaken
	rec := ts.do(t, http.MethodPost, "/api/auth/register", account.Registration{Username: "alice"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Email already registered", decodeBody[errorResponse](t, rec).Error)

	ts.accounts.registerErr = &account.ValidationError{Fields: map[string]string{"password": "too short"}}
	rec = ts.do(t, http.MethodPost, "/api/auth/register", account.Registration{Username: "alice"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "too short", decodeBody[errorResponse](t, rec).Fields["password"])
}

func TestProfile(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPut, "/api/users/profile", account.Profile{FullName: "Alice A", City: "Springfield"}, loggedIn)
	require.Equal(t, http.StatusOK, rec.Code)
	u := decodeBody[account.User](t, rec)
	require.Equal(t, "Springfield", u.City)
	require.NotContains(t, rec.Body.String(), "password")

	rec = ts.do(t, http.MethodGet, "/api/users/profile", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCatalogRoutes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/products?categoryId=3&minPrice=5.50&search=%20lamp%20&limit=500&sortBy=price&sortDirection=ASC", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	f := ts.catalog.lastFilter
	require.Equal(t, int64(3), *f.CategoryID)
	require.Equal(t, "5.5", f.MinPrice.Decimal.String())
	require.Equal(t, "lamp", f.Search)
	require.Equal(t, catalog.MaxPageSize, f.Limit)
	require.Equal(t, 1, f.Page)
	require.Equal(t, catalog.SortPrice, f.SortBy)
	require.Equal(t, "asc", f.SortDirection)

	rec = ts.do(t, http.MethodGet, "/api/products?minPrice=cheap&isDropshipped=maybe", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decodeBody[errorResponse](t, rec).Fields
	require.Contains(t, fields, "minPrice")
	require.Contains(t, fields, "isDropshipped")

	rec = ts.do(t, http.MethodGet, "/api/products/99", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/products/abc", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/categories/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/categories/2", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidateCoupon(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		code   string
		status int
		msg    string
	}{
		{"", http.StatusBadRequest, "Coupon code is required"},
		{"NOPE", http.StatusNotFound, "Invalid coupon code"},
		{"GONE", http.StatusBadRequest, "Coupon usage limit reached"},
	}
	for _, tc := range tests {
		rec := ts.do(t, http.MethodPost, "/api/coupons/validate", couponCodeRequest{Code: tc.code})
		require.Equal(t, tc.status, rec.Code, tc.code)
		require.Equal(t, tc.msg, decodeBody[errorResponse](t, rec).Error)
	}

	rec := ts.do(t, http.MethodPost, "/api/coupons/validate", couponCodeRequest{Code: "SAVE10"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "SAVE10", decodeBody[coupon.Coupon](t, rec).Code)
}

func TestCartFlow(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: 1, Quantity: 2})
	require.Equal(t, http.StatusOK, rec.Code)
	cartCookieValue := cookieFrom(rec, cartCookie)
	require.NotNil(t, cartCookieValue)
	withCart := withCookie(&http.Cookie{Name: cartCookie, Value: cartCookieValue.Value})

	resp := decodeBody[cartResponse](t, rec)
	require.Equal(t, "Item added to cart", resp.Notices[0].Title)
	require.Equal(t, "20", resp.Summary.Subtotal.String())

	rec = ts.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: 1, Quantity: 3}, withCart)
	resp = decodeBody[cartResponse](t, rec)
	require.Equal(t, "Widget quantity increased to 5", resp.Notices[0].Message)
	require.Nil(t, cookieFrom(rec, cartCookie))

	rec = ts.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: 2}, withCart)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/cart/coupon", couponCodeRequest{Code: "BIG50"}, withCart)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeBody[cartResponse](t, rec)
	require.Equal(t, "45", resp.Summary.Total.String())

	// dropping below the coupon minimum revokes it
	rec = ts.do(t, http.MethodPut, "/api/cart/items/1", map[string]int{"quantity": 4}, withCart)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeBody[cartResponse](t, rec)
	require.Nil(t, resp.Coupon)
	require.Equal(t, "Coupon removed", resp.Notices[0].Title)

	rec = ts.do(t, http.MethodPost, "/api/cart/coupon", couponCodeRequest{Code: "BIG50"}, withCart)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "A minimum purchase of $50.00 is required", decodeBody[errorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodDelete, "/api/cart", nil, withCart)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/cart", nil, withCart)
	resp = decodeBody[cartResponse](t, rec)
	require.Empty(t, resp.Items)
	require.Equal(t, 0, resp.Summary.TotalItems)
}

func TestPlaceOrderFromCart(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: 1, Quantity: 2})
	withCart := withCookie(&http.Cookie{Name: cartCookie, Value: cookieFrom(rec, cartCookie).Value})
	rec = ts.do(t, http.MethodPost, "/api/cart/coupon", couponCodeRequest{Code: "SAVE10"}, withCart)
	require.Equal(t, http.StatusOK, rec.Code)

	shipping := map[string]string{
		"shippingAddress": "1 Main Street",
		"shippingCity":    "Springfield",
		"shippingState":   "IL",
		"shippingZip":     "62701",
	}
	rec = ts.do(t, http.MethodPost, "/api/orders", shipping, loggedIn, withCart, withHeader(HeaderIdempotencyKey, "k1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, ts.orders.placed, 1)
	req := ts.orders.placed[0]
	require.Equal(t, shopper.ID, req.UserID)
	require.Equal(t, "Springfield", req.City)
	require.Len(t, req.Items, 1)
	require.Equal(t, "10", req.Items[0].Price.Decimal.String())
	require.Equal(t, int64(3), *req.CouponID)
	require.Equal(t, "2", req.CouponDiscount.Decimal.String())
	require.Equal(t, "18", req.Total.Decimal.String())

	// the cart is cleared once the order is committed
	rec = ts.do(t, http.MethodGet, "/api/cart", nil, withCart)
	resp := decodeBody[cartResponse](t, rec)
	require.Empty(t, resp.Items)
	require.Nil(t, resp.Coupon)

	rec = ts.do(t, http.MethodPost, "/api/orders", shipping, loggedIn, withHeader(HeaderIdempotencyKey, "k1"))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Len(t, ts.orders.placed, 1)
}

func TestPlaceOrderErrors(t *testing.T) {
	body := placeOrderRequest{
		Items:    []placeOrderLine{{ProductID: 1, Quantity: 1}},
		Shipping: order.Shipping{Address: "1 Main Street", City: "Springfield", State: "IL", Zip: "62701"},
	}
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &order.ValidationError{Fields: map[string]string{"shippingZip": "too short"}}, http.StatusBadRequest},
		{"stock", &order.StockError{Depleted: []inventory.DepletedLine{{ProductID: 1, Requested: 3, Available: 1}}}, http.StatusConflict},
		{"mismatch", order.ErrTotalMismatch, http.StatusConflict},
		{"exhausted", order.ErrCouponExhausted, http.StatusConflict},
		{"invalid coupon", order.ErrCouponInvalid, http.StatusUnprocessableEntity},
		{"minimum", pricing.ErrMinimumNotMet, http.StatusUnprocessableEntity},
		{"product", order.ErrProductNotFound, http.StatusUnprocessableEntity},
		{"internal", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.orders.placeErr = tc.err

			rec := ts.do(t, http.MethodPost, "/api/orders", body, loggedIn, withHeader(HeaderIdempotencyKey, "retry-me"))
			require.Equal(t, tc.status, rec.Code)
			// a failed submission frees its key
			require.Equal(t, []string{"retry-me"}, ts.idem.released)
		})
	}
}

func TestPlaceOrderRequiresSession(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/orders", placeOrderRequest{})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, ts.orders.placed)
}

func TestGetOrder(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/orders/100", nil, loggedIn)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/orders/101", nil, loggedIn)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/orders", nil, loggedIn)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[[]order.Order](t, rec), 1)
}

func TestFulfillment(t *testing.T) {
	ts := newTestServer(t)
	token := withHeader(HeaderFulfillmentToken, "ship-it")

	rec := ts.do(t, http.MethodPost, "/api/fulfillment/orders/7/status", statusRequest{Status: "shipped"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/fulfillment/orders/7/status", statusRequest{Status: "shipped"}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, order.StatusShipped, ts.orders.statuses[7])

	rec = ts.do(t, http.MethodPost, "/api/fulfillment/orders/7/status", statusRequest{Status: "pending"}, token)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/fulfillment/orders/7/status", statusRequest{Status: "lost"}, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/fulfillment/items/9/status", statusRequest{Status: "shipped"}, token)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/fulfillment/suppliers/2/items", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestInventoryAdjust(t *testing.T) {
	ts := newTestServer(t)
	token := withHeader(HeaderFulfillmentToken, "ship-it")

	rec := ts.do(t, http.MethodGet, "/api/fulfillment/inventory/1", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 5, decodeBody[inventory.StockItem](t, rec).Available)

	rec = ts.do(t, http.MethodPost, "/api/fulfillment/inventory/adjust", adjustRequest{ProductID: 1, Available: 9}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 9, ts.stock.levels[1])
	require.Equal(t, []int64{1}, ts.cache.invalidated)

	rec = ts.do(t, http.MethodPost, "/api/fulfillment/inventory/adjust", adjustRequest{ProductID: 1, Available: -1}, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/fulfillment/inventory/8", nil, token)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
