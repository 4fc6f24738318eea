package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(h.metrics.Middleware)
	r.Use(CORS(h.cfg.CORSAllowOrigins))
	r.Use(correlate)

	r.Get("/health", h.Health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(h.session)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.With(requireUser).Get("/user", h.CurrentUser)
		})

		r.With(requireUser).Route("/users/profile", func(r chi.Router) {
			r.Get("/", h.GetProfile)
			r.Put("/", h.UpdateProfile)
		})

		r.Get("/categories", h.ListCategories)
		r.Get("/categories/{id}", h.GetCategory)
		r.Get("/suppliers", h.ListSuppliers)
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Get("/special-offers", h.ListOffers)
		r.Get("/special-offers/{id}/products", h.ListOfferProducts)

		r.Get("/coupons", h.ListCoupons)
		r.Post("/coupons/validate", h.ValidateCoupon)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddCartItem)
			r.Put("/items/{productId}", h.UpdateCartItem)
			r.Delete("/items/{productId}", h.RemoveCartItem)
			r.Post("/coupon", h.ApplyCartCoupon)
			r.Delete("/coupon", h.RemoveCartCoupon)
		})

		r.With(requireUser).Route("/orders", func(r chi.Router) {
			r.Post("/", h.PlaceOrder)
			r.Get("/", h.ListOrders)
			r.Get("/{id}", h.GetOrder)
		})

		r.With(h.requireFulfillmentToken).Route("/fulfillment", func(r chi.Router) {
			r.Get("/suppliers/{id}/items", h.ListSupplierItems)
			r.Post("/orders/{id}/status", h.UpdateOrderStatus)
			r.Post("/items/{id}/status", h.UpdateItemStatus)
			r.Get("/inventory/{productId}", h.GetAvailability)
			r.Post("/inventory/adjust", h.AdjustAvailability)
		})
	})

	return r
}
