package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
)

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.timeout(r)
	defer cancel()

	cats, err := h.catalog.ListCategories(ctx)
	if err != nil {
		h.logger.Error("list categories", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch categories")
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	ctx, cancel := h.timeout(r)
	defer cancel()

	c, err := h.catalog.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Category not found")
			return
		}
		h.logger.Error("get category", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch category")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.timeout(r)
	defer cancel()

	sups, err := h.catalog.ListSuppliers(ctx)
	if err != nil {
		h.logger.Error("list suppliers", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch suppliers")
		return
	}
	writeJSON(w, http.StatusOK, sups)
}

// parseFilter reads the product listing query. Malformed values are reported
// per field.
func parseFilter(q url.Values) (catalog.Filter, map[string]string) {
	var f catalog.Filter
	bad := map[string]string{}

	optID := func(key string) *int64 {
		v := q.Get(key)
		if v == "" {
			return nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			bad[key] = "must be a positive integer"
			return nil
		}
		return &n
	}
	optPrice := func(key string) decimal.NullDecimal {
		v := q.Get(key)
		if v == "" {
			return decimal.NullDecimal{}
		}
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			bad[key] = "must be a non-negative number"
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(d)
	}
	optInt := func(key string) int {
		v := q.Get(key)
		if v == "" {
			return 0
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			bad[key] = "must be an integer"
		}
		return n
	}

	f.CategoryID = optID("categoryId")
	f.SupplierID = optID("supplierId")
	f.MinPrice = optPrice("minPrice")
	f.MaxPrice = optPrice("maxPrice")
	f.Search = strings.TrimSpace(q.Get("search"))
	if v := q.Get("isDropshipped"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			bad["isDropshipped"] = "must be true or false"
		} else {
			f.IsDropshipped = &b
		}
	}
	f.Page = optInt("page")
	f.Limit = optInt("limit")
	f.SortBy = catalog.SortField(q.Get("sortBy"))
	f.SortDirection = strings.ToLower(q.Get("sortDirection"))

	return f.Normalize(), bad
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	f, bad := parseFilter(r.URL.Query())
	if len(bad) > 0 {
		writeFields(w, "Invalid product filter", bad)
		return
	}

	ctx, cancel := h.timeout(r)
	defer cancel()

	page, err := h.catalog.ListProducts(ctx, f)
	if err != nil {
		h.logger.Error("list products", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	ctx, cancel := h.timeout(r)
	defer cancel()

	p, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.logger.Error("get product", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.timeout(r)
	defer cancel()

	offers, err := h.catalog.ListActiveOffers(ctx, h.now())
	if err != nil {
		h.logger.Error("list offers", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch special offers")
		return
	}
	writeJSON(w, http.StatusOK, offers)
}

func (h *Handler) ListOfferProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid offer id")
		return
	}

	ctx, cancel := h.timeout(r)
	defer cancel()

	products, err := h.catalog.ProductsByOffer(ctx, id)
	if err != nil {
		h.logger.Error("list offer products", "offer_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch offer products")
		return
	}
	writeJSON(w, http.StatusOK, products)
}
