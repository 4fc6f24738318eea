package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/account"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/coupon"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

type Accounts interface {
	Register(ctx context.Context, r account.Registration) (account.User, account.Session, error)
	Login(ctx context.Context, username, password string) (account.User, account.Session, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (account.User, error)
	Profile(ctx context.Context, userID int64) (account.User, error)
	UpdateProfile(ctx context.Context, userID int64, p account.Profile) (account.User, error)
}

type Coupons interface {
	ListActive(ctx context.Context) ([]coupon.Coupon, error)
	Validate(ctx context.Context, code string) (coupon.Coupon, error)
}

type Orders interface {
	Place(ctx context.Context, req order.PlaceRequest) (order.Order, error)
	Get(ctx context.Context, userID, orderID int64) (order.Order, error)
	List(ctx context.Context, userID int64) ([]order.Order, error)
	ListSupplierItems(ctx context.Context, supplierID int64) ([]order.SupplierItem, error)
	UpdateStatus(ctx context.Context, orderID int64, next order.Status) error
	UpdateItemStatus(ctx context.Context, itemID int64, next order.Status) error
}

type Stock interface {
	Get(ctx context.Context, productID int64) (inventory.StockItem, error)
	SetAvailable(ctx context.Context, productID int64, available int) error
}

type IdempotencyGuard interface {
	Acquire(ctx context.Context, scope, key string) error
	Release(ctx context.Context, scope, key string) error
}

type ProductCache interface {
	Invalidate(ctx context.Context, ids ...int64) error
}

type Config struct {
	RequestTimeout   time.Duration
	SessionTTL       time.Duration
	CookieSecure     bool
	CORSAllowOrigins []string
	FulfillmentToken string
}

// Deps wires the handler. Idempotency, Cache and Metrics are optional.
type Deps struct {
	Accounts    Accounts
	Catalog     catalog.Repository
	Coupons     Coupons
	Orders      Orders
	Stock       Stock
	CartStorage cart.Storage
	Idempotency IdempotencyGuard
	Cache       ProductCache
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	Config      Config
}

type Handler struct {
	accounts Accounts
	catalog  catalog.Repository
	coupons  Coupons
	orders   Orders
	stock    Stock
	carts    cart.Storage
	idem     IdempotencyGuard
	cache    ProductCache
	metrics  *metrics.Metrics
	logger   *slog.Logger
	cfg      Config
	now      func() time.Time
}

func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := d.Config
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}
	if len(cfg.CORSAllowOrigins) == 0 {
		cfg.CORSAllowOrigins = []string{"*"}
	}
	return &Handler{
		accounts: d.Accounts,
		catalog:  d.Catalog,
		coupons:  d.Coupons,
		orders:   d.Orders,
		stock:    d.Stock,
		carts:    d.CartStorage,
		idem:     d.Idempotency,
		cache:    d.Cache,
		metrics:  d.Metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (h *Handler) timeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, s account.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
