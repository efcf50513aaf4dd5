package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/shop"
)

// Facade is the read and auth surface the handlers use. Cart writes go through the cart registry.
type Facade interface {
	SignIn(ctx context.Context, email, password string) (*shop.AuthUser, error)
	SignUp(ctx context.Context, data shop.SignUpData) (*shop.AuthUser, error)
	SignOut(ctx context.Context) error
	GetCurrentUser(ctx context.Context) *shop.AuthUser

	FetchProducts(ctx context.Context) []shop.Product
	ProductByID(ctx context.Context, id string) (shop.Product, error)
	FetchCategories(ctx context.Context) []string
	SearchProducts(ctx context.Context, query string) []shop.Product
	FetchOrders(ctx context.Context, userID string) []shop.Order
}

type HealthChecker interface {
	Check(ctx context.Context) clients.HealthResult
}

type Handler struct {
	facade Facade
	carts  *cart.Registry
	health HealthChecker
	logger *slog.Logger
}

// NewHandler wires the handlers. health may be nil when no primary backend is configured.
func NewHandler(facade Facade, carts *cart.Registry, health HealthChecker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{facade: facade, carts: carts, health: health, logger: logger}
}

type healthResponse struct {
	Status  string                `json:"status"`
	Service string                `json:"service"`
	Primary *clients.HealthResult `json:"primary,omitempty"`
}

// Health reports ok whenever the storefront itself is serving. Primary reachability is informational.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Service: "storefront"}
	if h.health != nil {
		res := h.health.Check(r.Context())
		resp.Primary = &res
	}
	writeJSON(w, http.StatusOK, resp)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	User *shop.AuthUser `json:"user"`
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decodeJSON(r, &body); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	u, err := h.facade.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	h.carts.Bind(r.Context(), session.IDFromContext(r.Context()), u.ID)
	writeJSON(w, http.StatusOK, userResponse{User: u})
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var body shop.SignUpData
	if err := decodeJSON(r, &body); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	u, err := h.facade.SignUp(r.Context(), body)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	h.carts.Bind(r.Context(), session.IDFromContext(r.Context()), u.ID)
	writeJSON(w, http.StatusCreated, userResponse{User: u})
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	err := h.facade.SignOut(r.Context())
	h.carts.Drop(session.IDFromContext(r.Context()))
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me answers with a null user for guests.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userResponse{User: h.facade.GetCurrentUser(r.Context())})
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, order, err := parseFilter(q.Get("category"), q.Get("minPrice"), q.Get("maxPrice"), q.Get("minRating"), q.Get("sort"))
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	var products []shop.Product
	if search := strings.TrimSpace(q.Get("q")); search != "" {
		products = h.facade.SearchProducts(r.Context(), search)
	} else {
		products = h.facade.FetchProducts(r.Context())
	}
	writeJSON(w, http.StatusOK, shop.ApplyFilter(products, filter, order))
}

func parseFilter(category, minPrice, maxPrice, minRating, sort string) (shop.Filter, shop.SortOrder, error) {
	var f shop.Filter
	for _, c := range strings.Split(category, ",") {
		if c = strings.TrimSpace(c); c != "" {
			f.Categories = append(f.Categories, c)
		}
	}

	var err error
	if f.MinPrice, err = parsePrice("minPrice", minPrice); err != nil {
		return f, "", err
	}
	if f.MaxPrice, err = parsePrice("maxPrice", maxPrice); err != nil {
		return f, "", err
	}
	if minRating != "" {
		if f.MinRating, err = strconv.ParseFloat(minRating, 64); err != nil {
			return f, "", shop.NewValidationError("minRating", err)
		}
	}

	order, err := shop.ParseSortOrder(sort)
	return f, order, err
}

func parsePrice(field, v string) (*decimal.Decimal, error) {
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, shop.NewValidationError(field, err)
	}
	return &d, nil
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.facade.FetchCategories(r.Context()))
}

type cartResponse struct {
	Items []shop.CartLine `json:"items"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// sessionCart returns the session's cart, attaching it to the signed-in user if the session outlived it.
func (h *Handler) sessionCart(ctx context.Context) *cart.Reconciler {
	sid := session.IDFromContext(ctx)
	rec := h.carts.Get(sid)
	if rec.UserID() != "" {
		return rec
	}
	if u := h.facade.GetCurrentUser(ctx); u != nil {
		return h.carts.Bind(ctx, sid, u.ID)
	}
	return rec
}

func (h *Handler) writeCart(w http.ResponseWriter, status int, rec *cart.Reconciler) {
	lines := rec.Lines()
	writeJSON(w, status, cartResponse{Items: lines, Total: shop.LinesTotal(lines), Count: shop.LinesCount(lines)})
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, http.StatusOK, h.sessionCart(r.Context()))
}

type addItemRequest struct {
	ProductID string `json:"productId"`
}

// AddItem and the other cart writes detach from the request context. A write is never cancelled
// half way when the client goes away.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var body addItemRequest
	if err := decodeJSON(r, &body); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	// name and price come from the catalog, never from the client
	p, err := h.facade.ProductByID(r.Context(), body.ProductID)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	rec := h.sessionCart(r.Context())
	if err := rec.AddToCart(context.WithoutCancel(r.Context()), p); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	h.writeCart(w, http.StatusOK, rec)
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var body updateItemRequest
	if err := decodeJSON(r, &body); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	rec := h.sessionCart(r.Context())
	if err := rec.UpdateQuantity(context.WithoutCancel(r.Context()), chi.URLParam(r, "productId"), body.Quantity); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	h.writeCart(w, http.StatusOK, rec)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	rec := h.sessionCart(r.Context())
	if err := rec.RemoveFromCart(context.WithoutCancel(r.Context()), chi.URLParam(r, "productId")); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	h.writeCart(w, http.StatusOK, rec)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	rec := h.sessionCart(r.Context())
	if err := rec.Clear(context.WithoutCancel(r.Context())); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	h.writeCart(w, http.StatusOK, rec)
}

type checkoutResponse struct {
	OrderID string `json:"orderId"`
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var body cart.CheckoutRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &body); err != nil {
			writeFailure(w, r, h.logger, err)
			return
		}
	}
	rec := h.sessionCart(r.Context())
	orderID, err := rec.Checkout(context.WithoutCancel(r.Context()), body)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkoutResponse{OrderID: orderID})
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	u := h.facade.GetCurrentUser(r.Context())
	if u == nil {
		writeFailure(w, r, h.logger, shop.NewAuthError(shop.ErrNotAuthenticated))
		return
	}
	writeJSON(w, http.StatusOK, h.facade.FetchOrders(r.Context(), u.ID))
}
